package service

import (
	"context"
	"strings"

	"campusfind/internal/authz"
	"campusfind/internal/models"
	"campusfind/internal/notifications"
	"campusfind/internal/observability"
	"campusfind/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type ContactService struct {
	contactRepo repository.ContactRepository
	userRepo    repository.UserRepository
	dispatcher  EventDispatcher
}

func NewContactService(
	contactRepo repository.ContactRepository,
	userRepo repository.UserRepository,
	dispatcher EventDispatcher,
) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		userRepo:    userRepo,
		dispatcher:  dispatcher,
	}
}

type CreateContactInput struct {
	// Actor may be anonymous; contact threads accept walk-in requests.
	Actor   authz.Actor
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

type AddReplyInput struct {
	Actor     authz.Actor
	ContactID uint
	Message   string
	ImageURL  string
}

type DeleteReplyInput struct {
	Actor     authz.Actor
	ContactID uint
	// UID is the stable reply identity. When empty, Index selects the reply
	// positionally and ExpectedSender guards against drift.
	UID            string
	Index          int
	ExpectedSender models.ReplySender
}

// requireNotBlocked consults the live user record. The per-thread cached flag
// is never trusted for enforcement.
func (s *ContactService) requireNotBlocked(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.BlockedFromContact {
		return models.NewBlockedError("You are blocked from contacting staff")
	}
	return nil
}

func (s *ContactService) CreateContact(ctx context.Context, in CreateContactInput) (*models.Contact, error) {
	if strings.TrimSpace(in.Subject) == "" {
		return nil, models.NewValidationError("Subject is required")
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, models.NewValidationError("Message is required")
	}
	if err := s.requireNotBlocked(ctx, in.Actor.ID); err != nil {
		return nil, err
	}

	contact := &models.Contact{
		RequesterName:  in.Name,
		RequesterEmail: in.Email,
		RequesterPhone: in.Phone,
		Subject:        in.Subject,
		Message:        in.Message,
		Status:         models.ContactStatusNew,
	}
	if !in.Actor.Anonymous() {
		id := in.Actor.ID
		contact.RequesterUserID = &id
		if user, err := s.userRepo.GetByID(ctx, id); err == nil {
			if contact.RequesterName == "" {
				contact.RequesterName = user.FullName
			}
			if contact.RequesterEmail == "" {
				contact.RequesterEmail = user.Email
			}
		}
	}

	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// GetThreads lists threads for staff, enriched with the requester's live
// display fields. Stored reply snapshots stay frozen.
func (s *ContactService) GetThreads(ctx context.Context, actor authz.Actor, filter repository.ListContactsFilter) ([]*models.Contact, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	threads, err := s.contactRepo.ListForAdmin(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.enrichRequesters(ctx, threads)
	return threads, nil
}

func (s *ContactService) enrichRequesters(ctx context.Context, threads []*models.Contact) {
	ids := make([]uint, 0, len(threads))
	seen := map[uint]struct{}{}
	for _, thread := range threads {
		if thread.RequesterUserID == nil {
			continue
		}
		id := *thread.RequesterUserID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return
	}
	for _, thread := range threads {
		if thread.RequesterUserID == nil {
			continue
		}
		if user, ok := users[*thread.RequesterUserID]; ok {
			thread.RequesterAvatar = user.Avatar
			thread.RequesterLiveName = user.FullName
		}
	}
}

// GetOwnThreads lists the requester's own threads, excluding the ones they
// have hidden.
func (s *ContactService) GetOwnThreads(ctx context.Context, actor authz.Actor, limit, offset int) ([]*models.Contact, error) {
	if err := authz.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	return s.contactRepo.ListForRequester(ctx, actor.ID, limit, offset)
}

func (s *ContactService) GetThread(ctx context.Context, actor authz.Actor, contactID uint) (*models.Contact, error) {
	thread, err := s.contactRepo.GetByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if !s.canAccessThread(actor, thread) {
		return nil, models.NewNotFoundError("Contact", contactID)
	}
	// First access by either party moves a fresh thread to read. The update
	// is conditional on status, so replied threads never regress.
	if thread.Status == models.ContactStatusNew {
		if err := s.contactRepo.MarkRead(ctx, contactID); err != nil {
			observability.LogAsyncOperationError(ctx, "contact_mark_read", err, map[string]interface{}{
				"contact_id": contactID,
			})
		} else {
			thread.Status = models.ContactStatusRead
		}
	}
	if actor.IsAdmin() {
		s.enrichRequesters(ctx, []*models.Contact{thread})
	}
	return thread, nil
}

func (s *ContactService) canAccessThread(actor authz.Actor, thread *models.Contact) bool {
	if actor.IsAdmin() {
		return true
	}
	return thread.RequesterUserID != nil && *thread.RequesterUserID == actor.ID
}

// MarkRead transitions new -> read. Threads already read or replied are
// untouched, so re-opening never regresses the status.
func (s *ContactService) MarkRead(ctx context.Context, actor authz.Actor, contactID uint) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.contactRepo.GetByID(ctx, contactID); err != nil {
		return err
	}
	return s.contactRepo.MarkRead(ctx, contactID)
}

func (s *ContactService) AddReply(ctx context.Context, in AddReplyInput) (reply *models.ContactReply, err error) {
	ctx, span := observability.StartSpan(ctx, "contact.add_reply",
		attribute.Int("contact.id", int(in.ContactID)))
	defer func() { observability.EndSpan(span, err) }()

	if err = authz.RequireAuthenticated(in.Actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Message) == "" && strings.TrimSpace(in.ImageURL) == "" {
		return nil, models.NewValidationError("Reply needs a message or an image")
	}

	thread, err := s.contactRepo.GetByID(ctx, in.ContactID)
	if err != nil {
		return nil, err
	}
	if !s.canAccessThread(in.Actor, thread) {
		return nil, models.NewNotFoundError("Contact", in.ContactID)
	}

	sender := models.SenderUser
	if in.Actor.IsAdmin() {
		sender = models.SenderAdmin
	} else {
		if err := s.requireNotBlocked(ctx, in.Actor.ID); err != nil {
			return nil, err
		}
	}

	user, err := s.userRepo.GetByID(ctx, in.Actor.ID)
	if err != nil {
		return nil, err
	}

	reply = &models.ContactReply{
		UID:          uuid.NewString(),
		ContactID:    in.ContactID,
		Sender:       sender,
		SenderID:     in.Actor.ID,
		SenderName:   user.FullName,
		SenderAvatar: user.Avatar,
		Message:      in.Message,
		ImageURL:     in.ImageURL,
	}
	if err := s.contactRepo.AppendReply(ctx, reply); err != nil {
		return nil, err
	}
	observability.ContactReplies.WithLabelValues(string(sender)).Inc()

	if sender == models.SenderAdmin {
		if err := s.contactRepo.SetStatus(ctx, in.ContactID, models.ContactStatusReplied); err != nil {
			return nil, err
		}
		if thread.RequesterUserID != nil && *thread.RequesterUserID != in.Actor.ID {
			s.dispatcher.Dispatch(ctx, notifications.Event{
				UserID:    *thread.RequesterUserID,
				Type:      notifications.EventContactReply,
				Title:     "Staff replied",
				Message:   "Staff replied to your support request.",
				RelatedID: in.ContactID,
			})
		}
	}
	return reply, nil
}

// HideForUser hides the thread from the requester's own listing only.
func (s *ContactService) HideForUser(ctx context.Context, actor authz.Actor, contactID uint) error {
	thread, err := s.contactRepo.GetByID(ctx, contactID)
	if err != nil {
		return err
	}
	if thread.RequesterUserID == nil || *thread.RequesterUserID != actor.ID {
		return models.NewUnauthorizedError("You can only hide your own threads")
	}
	return s.contactRepo.SetHiddenForUser(ctx, contactID, true)
}

// HideForAdmin hides the thread from the staff listing only.
func (s *ContactService) HideForAdmin(ctx context.Context, actor authz.Actor, contactID uint) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.contactRepo.GetByID(ctx, contactID); err != nil {
		return err
	}
	return s.contactRepo.SetHiddenForAdmin(ctx, contactID, true)
}

// RecallContact lets the requester hard-delete their own thread.
func (s *ContactService) RecallContact(ctx context.Context, actor authz.Actor, contactID uint) error {
	thread, err := s.contactRepo.GetByID(ctx, contactID)
	if err != nil {
		return err
	}
	if thread.RequesterUserID == nil || *thread.RequesterUserID != actor.ID {
		return models.NewUnauthorizedError("You can only recall your own threads")
	}
	return s.contactRepo.Delete(ctx, contactID)
}

// DeleteContact is the staff-side hard delete. No notification is sent.
func (s *ContactService) DeleteContact(ctx context.Context, actor authz.Actor, contactID uint) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.contactRepo.GetByID(ctx, contactID); err != nil {
		return err
	}
	return s.contactRepo.Delete(ctx, contactID)
}

// DeleteReply removes one reply, addressed by its stable UID or, for older
// clients, by position. Positional deletes re-check the sender at execution
// time and refuse to touch a reply that drifted.
func (s *ContactService) DeleteReply(ctx context.Context, in DeleteReplyInput) error {
	if err := authz.RequireAuthenticated(in.Actor); err != nil {
		return err
	}
	thread, err := s.contactRepo.GetByID(ctx, in.ContactID)
	if err != nil {
		return err
	}
	if !s.canAccessThread(in.Actor, thread) {
		return models.NewNotFoundError("Contact", in.ContactID)
	}

	var target *models.ContactReply
	if in.UID != "" {
		for i := range thread.Replies {
			if thread.Replies[i].UID == in.UID {
				target = &thread.Replies[i]
				break
			}
		}
		if target == nil {
			return models.NewNotFoundError("Reply", in.UID)
		}
	} else {
		if in.Index < 0 || in.Index >= len(thread.Replies) {
			return models.NewNotFoundError("Reply", in.Index)
		}
		target = &thread.Replies[in.Index]
		if in.ExpectedSender != "" && target.Sender != in.ExpectedSender {
			return models.NewConflictError("Reply at that position is not the one you meant to delete")
		}
	}

	if !in.Actor.IsAdmin() && target.SenderID != in.Actor.ID {
		return models.NewUnauthorizedError("You can only delete your own replies")
	}
	return s.contactRepo.DeleteReplyByUID(ctx, in.ContactID, target.UID)
}

// BlockUser flips the authoritative flag on the user record, then fans the
// cached flag out over the requester's threads. The fan-out is best-effort;
// enforcement always re-reads the user record.
func (s *ContactService) BlockUser(ctx context.Context, actor authz.Actor, userID uint) error {
	return s.setBlocked(ctx, actor, userID, true)
}

// UnblockUser reverses BlockUser, including the thread fan-out.
func (s *ContactService) UnblockUser(ctx context.Context, actor authz.Actor, userID uint) error {
	return s.setBlocked(ctx, actor, userID, false)
}

func (s *ContactService) setBlocked(ctx context.Context, actor authz.Actor, userID uint, blocked bool) error {
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.userRepo.SetContactBlocked(ctx, userID, blocked); err != nil {
		return err
	}
	if err := s.contactRepo.SetUserBlockedForRequester(ctx, userID, blocked); err != nil {
		// The cached flag is advisory; the live record already changed.
		observability.LogAsyncOperationError(ctx, "contact_block_fanout", err, map[string]interface{}{
			"user_id": userID,
		})
	}
	return nil
}
