// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// PostCategory distinguishes lost-item reports from found-item reports.
type PostCategory string

const (
	// CategoryLost marks a report about a lost item.
	CategoryLost PostCategory = "lost"
	// CategoryFound marks a report about a found item.
	CategoryFound PostCategory = "found"
)

// Valid reports whether c is a recognized category.
func (c PostCategory) Valid() bool {
	return c == CategoryLost || c == CategoryFound
}

// PostStatus is the moderation/resolution status of an item report.
type PostStatus string

const (
	// StatusPending awaits admin review.
	StatusPending PostStatus = "pending"
	// StatusApproved is publicly visible.
	StatusApproved PostStatus = "approved"
	// StatusRejected was declined by an admin.
	StatusRejected PostStatus = "rejected"
	// StatusCompleted means the item was returned to its owner.
	StatusCompleted PostStatus = "completed"
)

// ReturnStatus is the secondary resolution flag indicating whether a found
// item has been physically returned to its owner.
type ReturnStatus string

const (
	// ReturnNone means no resolution has been recorded yet.
	ReturnNone ReturnStatus = "none"
	// Returned means the item made it back to its owner.
	Returned ReturnStatus = "returned"
	// ReturnNotFound means the owner could not be located.
	ReturnNotFound ReturnStatus = "not_found"
)

// AuthorSnapshot is a copy of the author's display fields captured at post
// creation and refreshed only when the owner edits their own post. It is
// never re-joined to the live profile.
type AuthorSnapshot struct {
	FullName string   `json:"fullname"`
	Avatar   string   `json:"avatar"`
	Roles    RoleList `gorm:"serializer:json" json:"roles"`
}

// OriginSnapshot is an immutable deep copy of the source post's display
// fields at share time. Meaningful only when IsShared is set.
type OriginSnapshot struct {
	PostID         uint         `json:"post_id"`
	OwnerID        uint         `json:"owner_id"`
	AuthorFullName string       `json:"author_fullname"`
	AuthorAvatar   string       `json:"author_avatar"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Category       PostCategory `json:"category"`
	ItemType       string       `json:"item_type"`
	Location       string       `json:"location"`
	ImageURLs      []string     `gorm:"serializer:json" json:"image_urls"`
}

// Post represents a lost/found item report.
type Post struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	OwnerID     uint         `gorm:"not null;index" json:"owner_id"`
	Owner       User         `gorm:"foreignKey:OwnerID" json:"owner"`
	Category    PostCategory `gorm:"type:varchar(10);not null;index" json:"category"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	ItemType    string       `gorm:"not null" json:"item_type"`
	Location    string       `gorm:"not null" json:"location"`

	Status PostStatus `gorm:"type:varchar(12);default:'pending';index" json:"status"`
	// ReturnStatus and Status are coupled: returned implies completed,
	// not_found implies approved. Mutated only through ApplyReturnStatus.
	ReturnStatus ReturnStatus `gorm:"type:varchar(12);default:'none'" json:"return_status"`

	// Banned is an orthogonal overlay; it never changes Status.
	Banned    bool   `gorm:"default:false;index" json:"banned"`
	BanReason string `json:"ban_reason,omitempty"`

	IsAdminPost bool `gorm:"default:false" json:"is_admin_post"`

	Author AuthorSnapshot `gorm:"embedded;embeddedPrefix:author_" json:"author"`

	IsShared     bool           `gorm:"default:false" json:"is_shared"`
	ShareComment string         `json:"share_comment,omitempty"`
	Origin       OriginSnapshot `gorm:"embedded;embeddedPrefix:origin_" json:"origin,omitempty"`

	Images []PostImage `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"images"`

	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked bool `gorm:"->;-:migration" json:"liked"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PostImage is an opaque reference to an externally stored image, ordered
// by Position within its post.
type PostImage struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PostID   uint   `gorm:"not null;index" json:"post_id"`
	URL      string `gorm:"not null" json:"url"`
	Position int    `gorm:"not null" json:"position"`
}

// Like records one user's like on one post. Membership only: the unique
// index makes duplicate inserts impossible.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
