package service

import (
	"context"
	"sync"
	"testing"

	"campusfind/internal/models"
	"campusfind/internal/notifications"
	"campusfind/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub implements repository.UserRepository with overridable funcs.
type userRepoStub struct {
	getByIDFn           func(ctx context.Context, id uint) (*models.User, error)
	getByEmailFn        func(ctx context.Context, email string) (*models.User, error)
	getByUsernameFn     func(ctx context.Context, username string) (*models.User, error)
	getByIDsFn          func(ctx context.Context, ids []uint) (map[uint]models.User, error)
	createFn            func(ctx context.Context, user *models.User) error
	updateFn            func(ctx context.Context, user *models.User) error
	setContactBlockedFn func(ctx context.Context, id uint, blocked bool) error
	setBannedFn         func(ctx context.Context, id uint, banned bool) error
	deleteFn            func(ctx context.Context, id uint) error
	listFn              func(ctx context.Context, limit, offset int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) SetContactBlocked(ctx context.Context, id uint, blocked bool) error {
	return s.setContactBlockedFn(ctx, id, blocked)
}
func (s *userRepoStub) SetBanned(ctx context.Context, id uint, banned bool) error {
	return s.setBannedFn(ctx, id, banned)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

// noopUserRepo returns a stub whose every method succeeds with zero values.
func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		getByEmailFn: func(_ context.Context, _ string) (*models.User, error) {
			return nil, nil
		},
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) {
			return nil, nil
		},
		getByIDsFn: func(_ context.Context, _ []uint) (map[uint]models.User, error) {
			return map[uint]models.User{}, nil
		},
		createFn:            func(_ context.Context, _ *models.User) error { return nil },
		updateFn:            func(_ context.Context, _ *models.User) error { return nil },
		setContactBlockedFn: func(_ context.Context, _ uint, _ bool) error { return nil },
		setBannedFn:         func(_ context.Context, _ uint, _ bool) error { return nil },
		deleteFn:            func(_ context.Context, _ uint) error { return nil },
		listFn:              func(_ context.Context, _, _ int) ([]models.User, error) { return nil, nil },
	}
}

// postRepoStub implements repository.PostRepository with overridable funcs.
type postRepoStub struct {
	createFn          func(ctx context.Context, post *models.Post) error
	getByIDFn         func(ctx context.Context, id uint, currentUserID uint) (*models.Post, error)
	listFn            func(ctx context.Context, filter repository.ListPostsFilter, currentUserID uint) ([]*models.Post, error)
	updateFieldsFn    func(ctx context.Context, id uint, fields map[string]interface{}) error
	setBanFn          func(ctx context.Context, id uint, banned bool, reason string) error
	deleteFn          func(ctx context.Context, id uint) error
	isLikedFn         func(ctx context.Context, userID, postID uint) (bool, error)
	getLikedPostIDsFn func(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
	likeFn            func(ctx context.Context, userID, postID uint) error
	unlikeFn          func(ctx context.Context, userID, postID uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *postRepoStub) List(ctx context.Context, filter repository.ListPostsFilter, currentUserID uint) ([]*models.Post, error) {
	return s.listFn(ctx, filter, currentUserID)
}
func (s *postRepoStub) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updateFieldsFn(ctx, id, fields)
}
func (s *postRepoStub) SetBan(ctx context.Context, id uint, banned bool, reason string) error {
	return s.setBanFn(ctx, id, banned, reason)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isLikedFn(ctx, userID, postID)
}
func (s *postRepoStub) GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	return s.getLikedPostIDsFn(ctx, userID, postIDs)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) error {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) error {
	return s.unlikeFn(ctx, userID, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, Status: models.StatusApproved}, nil
		},
		listFn: func(_ context.Context, _ repository.ListPostsFilter, _ uint) ([]*models.Post, error) {
			return nil, nil
		},
		updateFieldsFn: func(_ context.Context, _ uint, _ map[string]interface{}) error { return nil },
		setBanFn:       func(_ context.Context, _ uint, _ bool, _ string) error { return nil },
		deleteFn:       func(_ context.Context, _ uint) error { return nil },
		isLikedFn:      func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		getLikedPostIDsFn: func(_ context.Context, _ uint, _ []uint) ([]uint, error) {
			return nil, nil
		},
		likeFn:   func(_ context.Context, _, _ uint) error { return nil },
		unlikeFn: func(_ context.Context, _, _ uint) error { return nil },
	}
}

// contactRepoStub implements repository.ContactRepository with overridable funcs.
type contactRepoStub struct {
	createFn                     func(ctx context.Context, contact *models.Contact) error
	getByIDFn                    func(ctx context.Context, id uint) (*models.Contact, error)
	listForAdminFn               func(ctx context.Context, filter repository.ListContactsFilter) ([]*models.Contact, error)
	listForRequesterFn           func(ctx context.Context, userID uint, limit, offset int) ([]*models.Contact, error)
	appendReplyFn                func(ctx context.Context, reply *models.ContactReply) error
	getReplyByUIDFn              func(ctx context.Context, contactID uint, uid string) (*models.ContactReply, error)
	markReadFn                   func(ctx context.Context, id uint) error
	setStatusFn                  func(ctx context.Context, id uint, status models.ContactStatus) error
	setHiddenForUserFn           func(ctx context.Context, id uint, hidden bool) error
	setHiddenForAdminFn          func(ctx context.Context, id uint, hidden bool) error
	setUserBlockedForRequesterFn func(ctx context.Context, userID uint, blocked bool) error
	deleteFn                     func(ctx context.Context, id uint) error
	deleteReplyByUIDFn           func(ctx context.Context, contactID uint, uid string) error
}

func (s *contactRepoStub) Create(ctx context.Context, contact *models.Contact) error {
	return s.createFn(ctx, contact)
}
func (s *contactRepoStub) GetByID(ctx context.Context, id uint) (*models.Contact, error) {
	return s.getByIDFn(ctx, id)
}
func (s *contactRepoStub) ListForAdmin(ctx context.Context, filter repository.ListContactsFilter) ([]*models.Contact, error) {
	return s.listForAdminFn(ctx, filter)
}
func (s *contactRepoStub) ListForRequester(ctx context.Context, userID uint, limit, offset int) ([]*models.Contact, error) {
	return s.listForRequesterFn(ctx, userID, limit, offset)
}
func (s *contactRepoStub) AppendReply(ctx context.Context, reply *models.ContactReply) error {
	return s.appendReplyFn(ctx, reply)
}
func (s *contactRepoStub) GetReplyByUID(ctx context.Context, contactID uint, uid string) (*models.ContactReply, error) {
	return s.getReplyByUIDFn(ctx, contactID, uid)
}
func (s *contactRepoStub) MarkRead(ctx context.Context, id uint) error {
	return s.markReadFn(ctx, id)
}
func (s *contactRepoStub) SetStatus(ctx context.Context, id uint, status models.ContactStatus) error {
	return s.setStatusFn(ctx, id, status)
}
func (s *contactRepoStub) SetHiddenForUser(ctx context.Context, id uint, hidden bool) error {
	return s.setHiddenForUserFn(ctx, id, hidden)
}
func (s *contactRepoStub) SetHiddenForAdmin(ctx context.Context, id uint, hidden bool) error {
	return s.setHiddenForAdminFn(ctx, id, hidden)
}
func (s *contactRepoStub) SetUserBlockedForRequester(ctx context.Context, userID uint, blocked bool) error {
	return s.setUserBlockedForRequesterFn(ctx, userID, blocked)
}
func (s *contactRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *contactRepoStub) DeleteReplyByUID(ctx context.Context, contactID uint, uid string) error {
	return s.deleteReplyByUIDFn(ctx, contactID, uid)
}

func noopContactRepo() *contactRepoStub {
	return &contactRepoStub{
		createFn: func(_ context.Context, _ *models.Contact) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Contact, error) {
			return &models.Contact{ID: id, Status: models.ContactStatusNew}, nil
		},
		listForAdminFn: func(_ context.Context, _ repository.ListContactsFilter) ([]*models.Contact, error) {
			return nil, nil
		},
		listForRequesterFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Contact, error) {
			return nil, nil
		},
		appendReplyFn: func(_ context.Context, _ *models.ContactReply) error { return nil },
		getReplyByUIDFn: func(_ context.Context, _ uint, uid string) (*models.ContactReply, error) {
			return nil, models.NewNotFoundError("Reply", uid)
		},
		markReadFn:  func(_ context.Context, _ uint) error { return nil },
		setStatusFn: func(_ context.Context, _ uint, _ models.ContactStatus) error { return nil },
		setHiddenForUserFn: func(_ context.Context, _ uint, _ bool) error {
			return nil
		},
		setHiddenForAdminFn: func(_ context.Context, _ uint, _ bool) error {
			return nil
		},
		setUserBlockedForRequesterFn: func(_ context.Context, _ uint, _ bool) error { return nil },
		deleteFn:                     func(_ context.Context, _ uint) error { return nil },
		deleteReplyByUIDFn:           func(_ context.Context, _ uint, _ string) error { return nil },
	}
}

// dispatcherStub records every dispatched event.
type dispatcherStub struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (d *dispatcherStub) Dispatch(_ context.Context, event notifications.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *dispatcherStub) Events() []notifications.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]notifications.Event, len(d.events))
	copy(out, d.events)
	return out
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}
