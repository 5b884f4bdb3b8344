package repository

import (
	"context"
	"errors"

	"campusfind/internal/cache"
	"campusfind/internal/models"

	"gorm.io/gorm"
)

// ListContactsFilter narrows an admin-side thread listing.
type ListContactsFilter struct {
	Status models.ContactStatus
	// IncludeBlocked keeps threads whose requester is blocked in the result.
	IncludeBlocked bool
	Limit          int
	Offset         int
}

// ContactRepository defines persistence operations for contact threads.
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	GetByID(ctx context.Context, id uint) (*models.Contact, error)
	ListForAdmin(ctx context.Context, filter ListContactsFilter) ([]*models.Contact, error)
	ListForRequester(ctx context.Context, userID uint, limit, offset int) ([]*models.Contact, error)
	AppendReply(ctx context.Context, reply *models.ContactReply) error
	GetReplyByUID(ctx context.Context, contactID uint, uid string) (*models.ContactReply, error)
	// MarkRead transitions new -> read only; read and replied are untouched.
	MarkRead(ctx context.Context, id uint) error
	SetStatus(ctx context.Context, id uint, status models.ContactStatus) error
	SetHiddenForUser(ctx context.Context, id uint, hidden bool) error
	SetHiddenForAdmin(ctx context.Context, id uint, hidden bool) error
	// SetUserBlockedForRequester stamps the cached blocked flag onto every
	// thread belonging to the requester.
	SetUserBlockedForRequester(ctx context.Context, userID uint, blocked bool) error
	Delete(ctx context.Context, id uint) error
	DeleteReplyByUID(ctx context.Context, contactID uint, uid string) error
}

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository returns a new ContactRepository implementation.
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, contact *models.Contact) error {
	if err := r.db.WithContext(ctx).Create(contact).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// repliesAscending preloads replies in creation order so positional indexes
// stay stable between reads.
func repliesAscending(db *gorm.DB) *gorm.DB {
	return db.Order("contact_replies.created_at ASC, contact_replies.id ASC")
}

func (r *contactRepository) GetByID(ctx context.Context, id uint) (*models.Contact, error) {
	var contact models.Contact
	err := readDB(r.db).WithContext(ctx).
		Preload("Replies", repliesAscending).
		First(&contact, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Contact", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &contact, nil
}

func (r *contactRepository) ListForAdmin(ctx context.Context, filter ListContactsFilter) ([]*models.Contact, error) {
	var contacts []*models.Contact
	q := readDB(r.db).WithContext(ctx).
		Preload("Replies", repliesAscending).
		Where("hidden_for_admin = ?", false)

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.IncludeBlocked {
		q = q.Where("user_blocked = ?", false)
	}

	err := q.Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&contacts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return contacts, nil
}

func (r *contactRepository) ListForRequester(ctx context.Context, userID uint, limit, offset int) ([]*models.Contact, error) {
	var contacts []*models.Contact
	err := readDB(r.db).WithContext(ctx).
		Preload("Replies", repliesAscending).
		Where("requester_user_id = ? AND hidden_for_user = ?", userID, false).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&contacts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return contacts, nil
}

// AppendReply inserts a single reply row. The thread row itself is not
// rewritten, so concurrent appends interleave without lost updates.
func (r *contactRepository) AppendReply(ctx context.Context, reply *models.ContactReply) error {
	if err := r.db.WithContext(ctx).Create(reply).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateContact(ctx, reply.ContactID)
	return nil
}

func (r *contactRepository) GetReplyByUID(ctx context.Context, contactID uint, uid string) (*models.ContactReply, error) {
	var reply models.ContactReply
	err := readDB(r.db).WithContext(ctx).
		Where("contact_id = ? AND uid = ?", contactID, uid).
		First(&reply).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Reply", uid)
		}
		return nil, models.NewInternalError(err)
	}
	return &reply, nil
}

func (r *contactRepository) MarkRead(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("id = ? AND status = ?", id, models.ContactStatusNew).
		Update("status", models.ContactStatusRead)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	// Zero rows means the thread was already read or replied; not an error.
	cache.InvalidateContact(ctx, id)
	return nil
}

func (r *contactRepository) SetStatus(ctx context.Context, id uint, status models.ContactStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Contact", id)
	}
	cache.InvalidateContact(ctx, id)
	return nil
}

func (r *contactRepository) SetHiddenForUser(ctx context.Context, id uint, hidden bool) error {
	return r.setFlag(ctx, id, "hidden_for_user", hidden)
}

func (r *contactRepository) SetHiddenForAdmin(ctx context.Context, id uint, hidden bool) error {
	return r.setFlag(ctx, id, "hidden_for_admin", hidden)
}

func (r *contactRepository) setFlag(ctx context.Context, id uint, column string, value bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("id = ?", id).
		Update(column, value)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Contact", id)
	}
	cache.InvalidateContact(ctx, id)
	return nil
}

func (r *contactRepository) SetUserBlockedForRequester(ctx context.Context, userID uint, blocked bool) error {
	err := r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("requester_user_id = ?", userID).
		Update("user_blocked", blocked).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the thread and, via the FK cascade, its replies.
func (r *contactRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Contact{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Contact", id)
	}
	cache.InvalidateContact(ctx, id)
	return nil
}

func (r *contactRepository) DeleteReplyByUID(ctx context.Context, contactID uint, uid string) error {
	res := r.db.WithContext(ctx).
		Where("contact_id = ? AND uid = ?", contactID, uid).
		Delete(&models.ContactReply{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Reply", uid)
	}
	cache.InvalidateContact(ctx, contactID)
	return nil
}
