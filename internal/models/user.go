// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// RoleAdmin is the role that grants moderation capabilities.
const RoleAdmin = "admin"

// RoleList is a flat set of role names attached to a user. Stored as JSON.
type RoleList []string

// Has reports whether the list contains the given role.
func (r RoleList) Has(role string) bool {
	for _, v := range r {
		if v == role {
			return true
		}
	}
	return false
}

// User represents a campus community member.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	FullName string `json:"fullname"`
	Avatar   string `json:"avatar"`
	// Roles is the flat capability set; "admin" grants moderation rights.
	Roles RoleList `gorm:"serializer:json" json:"roles"`
	// BlockedFromContact prevents the user from creating or continuing
	// contact threads. This is the source of truth; the per-thread
	// user_blocked flag is only a denormalized cache of it.
	BlockedFromContact bool           `gorm:"default:false" json:"blocked_from_contact"`
	IsBanned           bool           `gorm:"default:false" json:"is_banned"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Roles.Has(RoleAdmin)
}

// Notification is a persisted copy of a dispatched event so users can
// review notifications received while offline.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `gorm:"index" json:"type"`
	RelatedID uint      `json:"related_id"`
	Read      bool      `gorm:"default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
