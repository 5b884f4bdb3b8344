package seed

import (
	"testing"

	"campusfind/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.PostImage{},
		&models.Like{},
		&models.Contact{},
		&models.ContactReply{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

func TestCreateUsers_IncludesStableAdmins(t *testing.T) {
	db := setupSeedTestDB(t)
	f := NewFactory(db, Options{})

	users, err := f.CreateUsers(10)
	if err != nil {
		t.Fatalf("CreateUsers: %v", err)
	}
	if len(users) != 10 {
		t.Fatalf("expected 10 users, got %d", len(users))
	}

	var admins int64
	db.Model(&models.User{}).Where("username IN ?", adminUsernames).Count(&admins)
	if admins != int64(len(adminUsernames)) {
		t.Errorf("expected %d stable admin accounts, got %d", len(adminUsernames), admins)
	}

	var staff models.User
	db.Where("username = ?", adminUsernames[0]).First(&staff)
	if !staff.Roles.Has(models.RoleAdmin) {
		t.Error("seeded staff account missing admin role")
	}
}

func TestBuildPost_StatusAndReturnCoupling(t *testing.T) {
	db := setupSeedTestDB(t)
	f := NewFactory(db, Options{MaxDays: 30})

	owner := models.User{Username: "seed-owner", Email: "o@campusfind.example", Password: "x", FullName: "Seed Owner"}
	db.Create(&owner)

	// The generated distribution is random; assert the invariant over a batch.
	for i := 0; i < 200; i++ {
		post := f.BuildPost(&owner)

		if !post.Category.Valid() {
			t.Fatalf("invalid category %q", post.Category)
		}
		switch post.Status {
		case models.StatusCompleted:
			if post.ReturnStatus != models.Returned {
				t.Fatalf("completed report with return status %q", post.ReturnStatus)
			}
		case models.StatusPending, models.StatusRejected:
			if post.ReturnStatus != models.ReturnNone {
				t.Fatalf("%s report with return status %q", post.Status, post.ReturnStatus)
			}
		case models.StatusApproved:
			if post.ReturnStatus == models.Returned {
				t.Fatal("approved report cannot already be returned")
			}
		}

		if post.Author.FullName != owner.FullName {
			t.Fatal("author snapshot not captured")
		}
		for p, img := range post.Images {
			if img.Position != p {
				t.Fatalf("image positions out of order: %d at %d", img.Position, p)
			}
		}
	}
}

func TestSeed_EndToEnd(t *testing.T) {
	db := setupSeedTestDB(t)

	// TRUNCATE is Postgres-only; keep cleaning off under sqlite.
	err := Seed(db, Options{NumUsers: 8, NumPosts: 20, NumContacts: 6, MaxDays: 14})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}

	var userCount, postCount, contactCount int64
	db.Model(&models.User{}).Count(&userCount)
	db.Model(&models.Post{}).Count(&postCount)
	db.Model(&models.Contact{}).Count(&contactCount)

	if userCount != 8 {
		t.Errorf("expected 8 users, got %d", userCount)
	}
	if postCount != 20 {
		t.Errorf("expected 20 posts, got %d", postCount)
	}
	if contactCount != 6 {
		t.Errorf("expected 6 contact threads, got %d", contactCount)
	}

	// Every reply must carry a stable UID.
	var replies []models.ContactReply
	db.Find(&replies)
	for _, reply := range replies {
		if reply.UID == "" {
			t.Error("seeded reply missing UID")
		}
	}

	// Replied threads must have moved off the new status.
	var replied []models.Contact
	db.Preload("Replies").Find(&replied)
	for _, thread := range replied {
		hasStaffReply := false
		for _, reply := range thread.Replies {
			if reply.Sender == models.SenderAdmin {
				hasStaffReply = true
			}
		}
		if hasStaffReply && thread.Status != models.ContactStatusReplied {
			t.Errorf("thread %d has staff reply but status %s", thread.ID, thread.Status)
		}
	}
}
