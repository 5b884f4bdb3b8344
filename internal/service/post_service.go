// Package service implements the application's business logic layer.
package service

import (
	"context"
	"fmt"
	"strings"

	"campusfind/internal/authz"
	"campusfind/internal/cache"
	"campusfind/internal/models"
	"campusfind/internal/notifications"
	"campusfind/internal/observability"
	"campusfind/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// EventDispatcher is the notification sink used by services. Delivery is
// fire-and-forget; services never observe or propagate its failures.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event notifications.Event)
}

type PostService struct {
	postRepo   repository.PostRepository
	userRepo   repository.UserRepository
	dispatcher EventDispatcher
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	dispatcher EventDispatcher,
) *PostService {
	return &PostService{
		postRepo:   postRepo,
		userRepo:   userRepo,
		dispatcher: dispatcher,
	}
}

type CreatePostInput struct {
	Actor       authz.Actor
	Category    models.PostCategory
	Title       string
	Description string
	ItemType    string
	Location    string
	ImageURLs   []string
}

type UpdatePostInput struct {
	Actor       authz.Actor
	PostID      uint
	Title       string
	Description string
	ItemType    string
	Location    string
	// ReturnStatus, when set, routes through the coupled transition.
	ReturnStatus models.ReturnStatus
}

type ListPostsInput struct {
	Category models.PostCategory
	Search   string
	Limit    int
	Offset   int
	Actor    authz.Actor
}

const (
	maxTitleLen       = 300
	maxDescriptionLen = 10000
	maxPostImages     = 6
)

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := authz.RequireAuthenticated(in.Actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	if len(in.Description) > maxDescriptionLen {
		return nil, models.NewValidationError("Description too long (max 10000 characters)")
	}
	if !in.Category.Valid() {
		return nil, models.NewValidationError("Category must be 'lost' or 'found'")
	}
	if strings.TrimSpace(in.ItemType) == "" {
		return nil, models.NewValidationError("Item type is required")
	}
	if strings.TrimSpace(in.Location) == "" {
		return nil, models.NewValidationError("Location is required")
	}
	if len(in.ImageURLs) > maxPostImages {
		return nil, models.NewValidationError("Too many images (max 6)")
	}

	author, err := s.userRepo.GetByID(ctx, in.Actor.ID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		OwnerID:     in.Actor.ID,
		Category:    in.Category,
		Title:       in.Title,
		Description: in.Description,
		ItemType:    in.ItemType,
		Location:    in.Location,
		Status:      models.StatusPending,
		Author:      snapshotOf(author),
	}
	// Staff reports skip the moderation queue.
	if in.Actor.IsAdmin() {
		post.Status = models.StatusApproved
		post.IsAdminPost = true
	}
	for i, url := range in.ImageURLs {
		post.Images = append(post.Images, models.PostImage{URL: url, Position: i})
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.Actor.ID)
}

func snapshotOf(u *models.User) models.AuthorSnapshot {
	return models.AuthorSnapshot{
		FullName: u.FullName,
		Avatar:   u.Avatar,
		Roles:    u.Roles,
	}
}

// visibleTo reports whether the actor may see the post at all. Pending,
// rejected, and banned reports are private to their owner and staff.
func visibleTo(post *models.Post, actor authz.Actor) bool {
	if post.Status == models.StatusApproved || post.Status == models.StatusCompleted {
		if !post.Banned {
			return true
		}
	}
	return actor.ID == post.OwnerID || actor.IsAdmin()
}

func (s *PostService) GetPost(ctx context.Context, id uint, actor authz.Actor) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(post, actor) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	filter := repository.ListPostsFilter{
		Category: in.Category,
		Status:   models.StatusApproved,
		Search:   in.Search,
		Limit:    in.Limit,
		Offset:   in.Offset,
	}

	// Front page short-cache: only the unfiltered first page is worth it.
	if in.Category == "" && in.Search == "" && in.Offset == 0 && in.Limit <= 20 {
		var posts []*models.Post
		err := cache.Aside(ctx, cache.PostsListKey, &posts, cache.ListTTL, func() error {
			var fetchErr error
			posts, fetchErr = s.postRepo.List(ctx, filter, 0)
			return fetchErr
		})
		if err != nil {
			return nil, err
		}
		s.reapplyLiked(ctx, posts, in.Actor.ID)
		return posts, nil
	}

	return s.postRepo.List(ctx, filter, in.Actor.ID)
}

// reapplyLiked restamps the per-viewer liked flag on cache-served lists.
func (s *PostService) reapplyLiked(ctx context.Context, posts []*models.Post, currentUserID uint) {
	if currentUserID == 0 || len(posts) == 0 {
		return
	}
	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}
	likedIDs, err := s.postRepo.GetLikedPostIDs(ctx, currentUserID, postIDs)
	if err != nil {
		return
	}
	likedMap := make(map[uint]bool, len(likedIDs))
	for _, id := range likedIDs {
		likedMap[id] = true
	}
	for _, p := range posts {
		p.Liked = likedMap[p.ID]
	}
}

func (s *PostService) SearchPosts(ctx context.Context, query string, limit, offset int, actor authz.Actor) ([]*models.Post, error) {
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.postRepo.List(ctx, repository.ListPostsFilter{
		Status: models.StatusApproved,
		Search: query,
		Limit:  limit,
		Offset: offset,
	}, actor.ID)
}

// GetUserPosts lists one owner's reports. Owners and staff see every status
// including banned reports; everyone else sees the public subset.
func (s *PostService) GetUserPosts(ctx context.Context, ownerID uint, limit, offset int, actor authz.Actor) ([]*models.Post, error) {
	filter := repository.ListPostsFilter{
		OwnerID: ownerID,
		Limit:   limit,
		Offset:  offset,
	}
	if actor.ID == ownerID || actor.IsAdmin() {
		filter.IncludeBanned = true
	} else {
		filter.Status = models.StatusApproved
	}
	return s.postRepo.List(ctx, filter, actor.ID)
}

// AdminListPosts lists reports across all statuses and the banned partition.
func (s *PostService) AdminListPosts(ctx context.Context, actor authz.Actor, filter repository.ListPostsFilter) ([]*models.Post, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	filter.IncludeBanned = true
	return s.postRepo.List(ctx, filter, actor.ID)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwnerOrAdmin(in.Actor, post.OwnerID); err != nil {
		return nil, err
	}

	// Only the edited columns are written. A whole-record save would race
	// with concurrent moderation and write back stale status or ban columns.
	fields := map[string]interface{}{}

	if in.Title != "" {
		if len(in.Title) > maxTitleLen {
			return nil, models.NewValidationError("Title too long (max 300 characters)")
		}
		fields["title"] = in.Title
	}
	if in.Description != "" {
		if len(in.Description) > maxDescriptionLen {
			return nil, models.NewValidationError("Description too long (max 10000 characters)")
		}
		fields["description"] = in.Description
	}
	if in.ItemType != "" {
		fields["item_type"] = in.ItemType
	}
	if in.Location != "" {
		fields["location"] = in.Location
	}

	// Status is never writable directly; a return status in the payload is
	// the only sanctioned route, and it derives status itself.
	var from, to models.PostStatus
	if in.ReturnStatus != "" {
		target, err := models.StatusForReturn(in.ReturnStatus)
		if err != nil {
			return nil, err
		}
		if !models.CanTransition(post.Status, target) {
			return nil, models.NewValidationError(
				fmt.Sprintf("Cannot move a %s report to %s", post.Status, target))
		}
		from = post.Status
		if err := models.ApplyReturnStatus(post, in.ReturnStatus); err != nil {
			return nil, err
		}
		to = post.Status
		fields["return_status"] = post.ReturnStatus
		fields["status"] = post.Status
	}

	// Only a self-edit refreshes the author snapshot; staff edits of someone
	// else's report leave it frozen.
	if in.Actor.ID == post.OwnerID {
		author, err := s.userRepo.GetByID(ctx, in.Actor.ID)
		if err != nil {
			return nil, err
		}
		snap := snapshotOf(author)
		fields["author_full_name"] = snap.FullName
		fields["author_avatar"] = snap.Avatar
		fields["author_roles"] = snap.Roles
	}

	if len(fields) > 0 {
		if err := s.postRepo.UpdateFields(ctx, in.PostID, fields); err != nil {
			return nil, err
		}
		if from != to {
			observability.RecordStatusTransition(string(from), string(to))
		}
	}
	return s.postRepo.GetByID(ctx, in.PostID, in.Actor.ID)
}

func (s *PostService) DeletePost(ctx context.Context, actor authz.Actor, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, actor.ID)
	if err != nil {
		return err
	}
	if err := authz.RequireOwnerOrAdmin(actor, post.OwnerID); err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, postID)
}

// ApprovePost moves a report into the approved state. Approving an already
// approved report is a no-op and sends no second notification.
func (s *PostService) ApprovePost(ctx context.Context, actor authz.Actor, postID uint) (*models.Post, error) {
	return s.transition(ctx, actor, postID, models.StatusApproved, notifications.Event{
		Type:    notifications.EventPostApproved,
		Title:   "Report approved",
		Message: "Your lost & found report has been approved and is now public.",
	})
}

// RejectPost declines a pending report.
func (s *PostService) RejectPost(ctx context.Context, actor authz.Actor, postID uint) (*models.Post, error) {
	return s.transition(ctx, actor, postID, models.StatusRejected, notifications.Event{
		Type:    notifications.EventPostRejected,
		Title:   "Report rejected",
		Message: "Your lost & found report was not approved.",
	})
}

func (s *PostService) transition(ctx context.Context, actor authz.Actor, postID uint, target models.PostStatus, event notifications.Event) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "moderation.transition",
		attribute.Int("post.id", int(postID)),
		attribute.String("post.target_status", string(target)))
	defer func() { observability.EndSpan(span, err) }()

	if err = authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	post, err = s.postRepo.GetByID(ctx, postID, actor.ID)
	if err != nil {
		return nil, err
	}
	if post.Status == target {
		return post, nil
	}
	if !models.CanTransition(post.Status, target) {
		return nil, models.NewValidationError(
			fmt.Sprintf("Cannot move a %s report to %s", post.Status, target))
	}

	from := post.Status
	if err := s.postRepo.UpdateFields(ctx, postID, map[string]interface{}{
		"status": target,
	}); err != nil {
		return nil, err
	}
	observability.RecordStatusTransition(string(from), string(target))

	if post.OwnerID != actor.ID {
		event.UserID = post.OwnerID
		event.RelatedID = post.ID
		s.dispatcher.Dispatch(ctx, event)
	}
	return s.postRepo.GetByID(ctx, postID, actor.ID)
}

// BanPost applies the ban overlay. The moderation status is untouched.
func (s *PostService) BanPost(ctx context.Context, actor authz.Actor, postID uint, reason string) (*models.Post, error) {
	return s.setBan(ctx, actor, postID, true, reason, notifications.Event{
		Type:    notifications.EventPostBanned,
		Title:   "Report banned",
		Message: "Your lost & found report has been banned by staff.",
	})
}

// UnbanPost lifts the ban overlay.
func (s *PostService) UnbanPost(ctx context.Context, actor authz.Actor, postID uint) (*models.Post, error) {
	return s.setBan(ctx, actor, postID, false, "", notifications.Event{
		Type:    notifications.EventPostUnbanned,
		Title:   "Report restored",
		Message: "The ban on your lost & found report has been lifted.",
	})
}

func (s *PostService) setBan(ctx context.Context, actor authz.Actor, postID uint, banned bool, reason string, event notifications.Event) (*models.Post, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, postID, actor.ID)
	if err != nil {
		return nil, err
	}
	if post.Banned == banned {
		return post, nil
	}
	if err := s.postRepo.SetBan(ctx, postID, banned, reason); err != nil {
		return nil, err
	}
	if post.OwnerID != actor.ID {
		event.UserID = post.OwnerID
		event.RelatedID = post.ID
		s.dispatcher.Dispatch(ctx, event)
	}
	return s.postRepo.GetByID(ctx, postID, actor.ID)
}

// UpdateReturnStatus records whether the item made it back to its owner. The
// derived status lands in the same UPDATE as the return status.
func (s *PostService) UpdateReturnStatus(ctx context.Context, actor authz.Actor, postID uint, rs models.ReturnStatus) (*models.Post, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	target, err := models.StatusForReturn(rs)
	if err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, postID, actor.ID)
	if err != nil {
		return nil, err
	}
	if post.ReturnStatus == rs && post.Status == target {
		return post, nil
	}
	if !models.CanTransition(post.Status, target) {
		return nil, models.NewValidationError(
			fmt.Sprintf("Cannot move a %s report to %s", post.Status, target))
	}

	from := post.Status
	if err := s.postRepo.UpdateFields(ctx, postID, map[string]interface{}{
		"status":        target,
		"return_status": rs,
	}); err != nil {
		return nil, err
	}
	if from != target {
		observability.RecordStatusTransition(string(from), string(target))
	}

	if post.OwnerID != actor.ID {
		event := notifications.Event{
			UserID:    post.OwnerID,
			Type:      notifications.EventReturnStatusUpdated,
			RelatedID: post.ID,
		}
		if rs == models.Returned {
			event.Title = "Item returned"
			event.Message = "Your item has been returned. The report is now closed."
		} else {
			event.Title = "Owner not found"
			event.Message = "The owner could not be located. Your report stays public."
		}
		s.dispatcher.Dispatch(ctx, event)
	}
	return s.postRepo.GetByID(ctx, postID, actor.ID)
}

// MarkFound records a successful return.
func (s *PostService) MarkFound(ctx context.Context, actor authz.Actor, postID uint) (*models.Post, error) {
	return s.UpdateReturnStatus(ctx, actor, postID, models.Returned)
}

// MarkNotFound records that the owner could not be located.
func (s *PostService) MarkNotFound(ctx context.Context, actor authz.Actor, postID uint) (*models.Post, error) {
	return s.UpdateReturnStatus(ctx, actor, postID, models.ReturnNotFound)
}

// ToggleLike adds or removes the actor's like. Applying it twice always
// lands back on the starting state.
func (s *PostService) ToggleLike(ctx context.Context, actor authz.Actor, postID uint) (*models.Post, error) {
	if err := authz.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, postID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(post, actor) {
		return nil, models.NewNotFoundError("Post", postID)
	}

	isLiked, err := s.postRepo.IsLiked(ctx, actor.ID, postID)
	if err != nil {
		return nil, err
	}

	if isLiked {
		if err := s.postRepo.Unlike(ctx, actor.ID, postID); err != nil {
			return nil, err
		}
	} else {
		if err := s.postRepo.Like(ctx, actor.ID, postID); err != nil {
			return nil, err
		}
		if post.OwnerID != actor.ID {
			s.dispatcher.Dispatch(ctx, notifications.Event{
				UserID:    post.OwnerID,
				Type:      notifications.EventPostLiked,
				Title:     "New like",
				Message:   "Someone liked your lost & found report.",
				RelatedID: post.ID,
			})
		}
	}

	return s.postRepo.GetByID(ctx, postID, actor.ID)
}

// SharePost creates a new report that embeds a frozen snapshot of the source
// report's display fields. Later edits to the source never leak into shares.
func (s *PostService) SharePost(ctx context.Context, actor authz.Actor, postID uint, comment string) (*models.Post, error) {
	if err := authz.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	source, err := s.postRepo.GetByID(ctx, postID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(source, actor) {
		return nil, models.NewNotFoundError("Post", postID)
	}

	author, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	imageURLs := make([]string, 0, len(source.Images))
	for _, img := range source.Images {
		imageURLs = append(imageURLs, img.URL)
	}

	share := &models.Post{
		OwnerID:      actor.ID,
		Category:     source.Category,
		Title:        source.Title,
		Description:  source.Description,
		ItemType:     source.ItemType,
		Location:     source.Location,
		Status:       models.StatusApproved,
		Author:       snapshotOf(author),
		IsShared:     true,
		ShareComment: comment,
		Origin: models.OriginSnapshot{
			PostID:         source.ID,
			OwnerID:        source.OwnerID,
			AuthorFullName: source.Author.FullName,
			AuthorAvatar:   source.Author.Avatar,
			Title:          source.Title,
			Description:    source.Description,
			Category:       source.Category,
			ItemType:       source.ItemType,
			Location:       source.Location,
			ImageURLs:      imageURLs,
		},
	}
	if err := s.postRepo.Create(ctx, share); err != nil {
		return nil, err
	}

	if source.OwnerID != actor.ID {
		s.dispatcher.Dispatch(ctx, notifications.Event{
			UserID:    source.OwnerID,
			Type:      notifications.EventPostShared,
			Title:     "Report shared",
			Message:   "Someone shared your lost & found report.",
			RelatedID: share.ID,
		})
	}
	return s.postRepo.GetByID(ctx, share.ID, actor.ID)
}
