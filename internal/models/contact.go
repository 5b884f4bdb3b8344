// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// ContactStatus tracks how far a contact thread has progressed.
type ContactStatus string

const (
	// ContactStatusNew has not been opened by either party yet.
	ContactStatusNew ContactStatus = "new"
	// ContactStatusRead has been opened but not answered by staff.
	ContactStatusRead ContactStatus = "read"
	// ContactStatusReplied has at least one staff reply.
	ContactStatusReplied ContactStatus = "replied"
)

// ReplySender identifies which party authored a reply.
type ReplySender string

const (
	// SenderUser is the original requester side.
	SenderUser ReplySender = "user"
	// SenderAdmin is the staff side.
	SenderAdmin ReplySender = "admin"
)

// Contact is a two-party support thread between a requester (possibly
// anonymous) and staff.
type Contact struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	RequesterName   string `gorm:"not null" json:"requester_name"`
	RequesterEmail  string `json:"requester_email"`
	RequesterPhone  string `json:"requester_phone"`
	RequesterUserID *uint  `gorm:"index" json:"requester_user_id"`
	Subject         string `gorm:"not null" json:"subject"`
	Message         string `gorm:"type:text;not null" json:"message"`

	Status ContactStatus `gorm:"type:varchar(10);default:'new';index" json:"status"`

	// One-sided soft-delete flags. A thread hidden on both sides drops out
	// of both default listings but is never physically removed by hiding.
	HiddenForUser  bool `gorm:"default:false" json:"hidden_for_user"`
	HiddenForAdmin bool `gorm:"default:false" json:"hidden_for_admin"`

	// UserBlocked caches the requester's blocked state as of the last
	// blocking fan-out. Eventually consistent; never authoritative.
	UserBlocked bool `gorm:"default:false;index" json:"user_blocked"`

	Replies []ContactReply `gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE" json:"replies"`

	// RequesterAvatar/RequesterLiveName are join-enriched for admin views
	// from the live directory; not persisted and never written back.
	RequesterAvatar   string `gorm:"-" json:"requester_avatar,omitempty"`
	RequesterLiveName string `gorm:"-" json:"requester_live_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactReply is one message inside a contact thread. Appended, never
// rewritten. UID is the stable client-facing identity; the positional index
// of a reply is a compatibility shim only.
type ContactReply struct {
	ID        uint        `gorm:"primaryKey" json:"-"`
	UID       string      `gorm:"type:varchar(36);uniqueIndex;not null" json:"uid"`
	ContactID uint        `gorm:"not null;index" json:"contact_id"`
	Sender    ReplySender `gorm:"type:varchar(5);not null" json:"sender"`
	SenderID  uint        `json:"sender_id"`
	// SenderName and SenderAvatar are snapshots at send time; they are
	// never re-joined to the live profile.
	SenderName   string    `json:"sender_name"`
	SenderAvatar string    `json:"sender_avatar"`
	Message      string    `gorm:"type:text" json:"message"`
	ImageURL     string    `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasContent reports whether the reply carries a message or an image.
func (r *ContactReply) HasContent() bool {
	return r.Message != "" || r.ImageURL != ""
}
