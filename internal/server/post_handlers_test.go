package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"campusfind/internal/config"
	"campusfind/internal/models"
	"campusfind/internal/notifications"
	"campusfind/internal/repository"
	"campusfind/internal/service"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
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

// newHandlerTestServer wires real repositories and services over sqlite.
// No Redis: caching and live push degrade to no-ops.
func newHandlerTestServer(t *testing.T, db *gorm.DB) *Server {
	t.Helper()
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	contactRepo := repository.NewContactRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	dispatcher := notifications.NewDispatcher(notificationRepo, nil)

	return &Server{
		config:           &config.Config{JWTSecret: "handler-test-secret", Env: "test"},
		db:               db,
		userRepo:         userRepo,
		postRepo:         postRepo,
		contactRepo:      contactRepo,
		notificationRepo: notificationRepo,
		postService:      service.NewPostService(postRepo, userRepo, dispatcher),
		contactService:   service.NewContactService(contactRepo, userRepo, dispatcher),
		userService:      service.NewUserService(userRepo),
	}
}

func createHandlerTestUser(t *testing.T, db *gorm.DB, username string, roles models.RoleList) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@campus.test",
		Password: "irrelevant-hash",
		FullName: username + " Test",
		Roles:    roles,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCreatePostHandler(t *testing.T) {
	t.Parallel()
	db := setupHandlerTestDB(t)
	s := newHandlerTestServer(t, db)

	member := createHandlerTestUser(t, db, "reporter", nil)
	admin := createHandlerTestUser(t, db, "staffer", models.RoleList{models.RoleAdmin})

	app := fiber.New()
	app.Post("/posts/as/:userID", func(c *fiber.Ctx) error {
		uid, _ := c.ParamsInt("userID")
		c.Locals("userID", uint(uid))
		return s.CreatePost(c)
	})

	validBody := map[string]interface{}{
		"category":    "lost",
		"title":       "Blue backpack",
		"description": "Left in the library reading room",
		"item_type":   "bag",
		"location":    "Main Library",
	}

	t.Run("member report enters moderation queue", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, fmt.Sprintf("/posts/as/%d", member.ID), validBody)
		resp, _ := app.Test(req)
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		var post models.Post
		_ = json.NewDecoder(resp.Body).Decode(&post)
		if post.Status != models.StatusPending {
			t.Errorf("expected pending, got %s", post.Status)
		}
		if post.Author.FullName != member.FullName {
			t.Errorf("author snapshot not captured: %q", post.Author.FullName)
		}
	})

	t.Run("staff report skips the queue", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, fmt.Sprintf("/posts/as/%d", admin.ID), validBody)
		resp, _ := app.Test(req)
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		var post models.Post
		_ = json.NewDecoder(resp.Body).Decode(&post)
		if post.Status != models.StatusApproved {
			t.Errorf("expected approved, got %s", post.Status)
		}
		if !post.IsAdminPost {
			t.Error("expected admin post marker")
		}
	})

	t.Run("missing title rejected", func(t *testing.T) {
		body := map[string]interface{}{
			"category":  "lost",
			"item_type": "bag",
			"location":  "Main Library",
		}
		req := jsonRequest(http.MethodPost, fmt.Sprintf("/posts/as/%d", member.ID), body)
		resp, _ := app.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("bad category rejected", func(t *testing.T) {
		body := map[string]interface{}{
			"category":  "stolen",
			"title":     "Bike",
			"item_type": "bike",
			"location":  "Rack B",
		}
		req := jsonRequest(http.MethodPost, fmt.Sprintf("/posts/as/%d", member.ID), body)
		resp, _ := app.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestGetPostVisibilityHandler(t *testing.T) {
	t.Parallel()
	db := setupHandlerTestDB(t)
	s := newHandlerTestServer(t, db)

	owner := createHandlerTestUser(t, db, "owner", nil)

	pending := &models.Post{
		OwnerID: owner.ID, Category: models.CategoryLost,
		Title: "Pending report", ItemType: "keys", Location: "Gym",
		Status: models.StatusPending,
	}
	approved := &models.Post{
		OwnerID: owner.ID, Category: models.CategoryFound,
		Title: "Approved report", ItemType: "wallet", Location: "Cafeteria",
		Status: models.StatusApproved,
	}
	db.Create(pending)
	db.Create(approved)

	app := fiber.New()
	app.Get("/posts/:id", s.GetPost)

	ownerToken, err := s.generateToken(owner.ID, owner.Username)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	t.Run("anonymous sees approved", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/posts/%d", approved.ID), nil)
		resp, _ := app.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("anonymous cannot see pending", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/posts/%d", pending.ID), nil)
		resp, _ := app.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("owner sees own pending report", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/posts/%d", pending.ID), nil)
		req.Header.Set("Authorization", "Bearer "+ownerToken)
		resp, _ := app.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/posts/9999", nil)
		resp, _ := app.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestUpdatePostHandler(t *testing.T) {
	t.Parallel()
	db := setupHandlerTestDB(t)
	s := newHandlerTestServer(t, db)

	owner := createHandlerTestUser(t, db, "editor", nil)
	stranger := createHandlerTestUser(t, db, "stranger", nil)

	post := &models.Post{
		OwnerID: owner.ID, Category: models.CategoryLost,
		Title: "Old title", ItemType: "phone", Location: "Lecture Hall 2",
		Status: models.StatusApproved,
	}
	db.Create(post)

	app := fiber.New()
	app.Put("/posts/:id/as/:userID", func(c *fiber.Ctx) error {
		uid, _ := c.ParamsInt("userID")
		c.Locals("userID", uint(uid))
		return s.UpdatePost(c)
	})

	t.Run("owner edits title", func(t *testing.T) {
		req := jsonRequest(http.MethodPut,
			fmt.Sprintf("/posts/%d/as/%d", post.ID, owner.ID),
			map[string]string{"title": "New title"})
		resp, _ := app.Test(req)
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var updated models.Post
		_ = json.NewDecoder(resp.Body).Decode(&updated)
		if updated.Title != "New title" {
			t.Errorf("title not updated: %q", updated.Title)
		}
	})

	t.Run("stranger rejected", func(t *testing.T) {
		req := jsonRequest(http.MethodPut,
			fmt.Sprintf("/posts/%d/as/%d", post.ID, stranger.ID),
			map[string]string{"title": "Hijacked"})
		resp, _ := app.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
	})

	t.Run("return status routes through coupled transition", func(t *testing.T) {
		req := jsonRequest(http.MethodPut,
			fmt.Sprintf("/posts/%d/as/%d", post.ID, owner.ID),
			map[string]string{"return_status": "returned"})
		resp, _ := app.Test(req)
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var updated models.Post
		_ = json.NewDecoder(resp.Body).Decode(&updated)
		if updated.Status != models.StatusCompleted {
			t.Errorf("expected completed, got %s", updated.Status)
		}
		if updated.ReturnStatus != models.Returned {
			t.Errorf("expected returned, got %s", updated.ReturnStatus)
		}
	})
}

func TestDeletePostHandler(t *testing.T) {
	t.Parallel()
	db := setupHandlerTestDB(t)
	s := newHandlerTestServer(t, db)

	owner := createHandlerTestUser(t, db, "deleter", nil)
	post := &models.Post{
		OwnerID: owner.ID, Category: models.CategoryLost,
		Title: "To remove", ItemType: "umbrella", Location: "Bus stop",
		Status: models.StatusApproved,
	}
	db.Create(post)

	app := fiber.New()
	app.Delete("/posts/:id", func(c *fiber.Ctx) error {
		c.Locals("userID", owner.ID)
		return s.DeletePost(c)
	})
	app.Get("/posts/:id", s.GetPost)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/posts/%d", post.ID), nil)
	resp, _ := app.Test(req)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/posts/%d", post.ID), nil)
	resp, _ = app.Test(req)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted post still visible: %d", resp.StatusCode)
	}
}

func TestSharePostHandler(t *testing.T) {
	t.Parallel()
	db := setupHandlerTestDB(t)
	s := newHandlerTestServer(t, db)

	owner := createHandlerTestUser(t, db, "original", nil)
	sharer := createHandlerTestUser(t, db, "sharer", nil)

	source := &models.Post{
		OwnerID: owner.ID, Category: models.CategoryFound,
		Title: "Found calculator", ItemType: "electronics", Location: "Room 101",
		Status: models.StatusApproved,
		Author: models.AuthorSnapshot{FullName: owner.FullName},
	}
	db.Create(source)

	app := fiber.New()
	app.Post("/posts/:id/share", func(c *fiber.Ctx) error {
		c.Locals("userID", sharer.ID)
		return s.SharePost(c)
	})

	req := jsonRequest(http.MethodPost, fmt.Sprintf("/posts/%d/share", source.ID),
		map[string]string{"comment": "Anyone missing this?"})
	resp, _ := app.Test(req)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var share models.Post
	_ = json.NewDecoder(resp.Body).Decode(&share)
	if !share.IsShared {
		t.Error("expected shared marker")
	}
	if share.Origin.PostID != source.ID {
		t.Errorf("origin snapshot points at %d, want %d", share.Origin.PostID, source.ID)
	}
	if share.ShareComment != "Anyone missing this?" {
		t.Errorf("share comment lost: %q", share.ShareComment)
	}

	// Editing the source afterwards must not leak into the frozen snapshot.
	db.Model(source).Update("title", "Edited title")

	var persisted models.Post
	db.First(&persisted, share.ID)
	if persisted.Origin.Title != "Found calculator" {
		t.Errorf("origin snapshot mutated: %q", persisted.Origin.Title)
	}
}
