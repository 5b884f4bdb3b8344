// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	NumContacts int
	// MaxDays spreads created_at timestamps over the past N days.
	MaxDays     int
	ShouldClean bool
}

// Seed populates the database with test data
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d users, %d posts, %d contact threads...",
		opts.NumUsers, opts.NumPosts, opts.NumContacts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	f := NewFactory(db, opts)

	users, err := f.CreateUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d test users created", len(users))

	posts, err := f.CreatePosts(users, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("✓ %d item reports created", len(posts))

	if err := f.CreateLikes(users, posts); err != nil {
		return fmt.Errorf("failed to create likes: %w", err)
	}
	log.Println("✓ likes created")

	contacts, err := f.CreateContactThreads(users, opts.NumContacts)
	if err != nil {
		return fmt.Errorf("failed to create contact threads: %w", err)
	}
	log.Printf("✓ %d contact threads created", len(contacts))

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	sql := `TRUNCATE TABLE notifications, contact_replies, contacts, likes, post_images, posts, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

// adminUsernames are the stable accounts every seeded environment gets, so
// the moderation UI is usable without manual promotion.
var adminUsernames = []string{"frontdesk", "lostfound-admin"}
