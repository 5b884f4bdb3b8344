package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"campusfind/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func mountContactRoutes(s *Server, actorID uint) *fiber.App {
	app := fiber.New()
	as := func(h fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if actorID != 0 {
				c.Locals("userID", actorID)
			}
			return h(c)
		}
	}
	app.Post("/contact", as(s.CreateContact))
	app.Get("/contact/me", as(s.GetMyContactThreads))
	app.Get("/contact/:id", as(s.GetContactThread))
	app.Post("/contact/:id/replies", as(s.AddContactReply))
	app.Delete("/contact/:id/replies/:uid", as(s.DeleteContactReply))
	app.Post("/contact/:id/hide", as(s.HideContactForUser))
	app.Delete("/contact/:id", as(s.RecallContact))
	app.Get("/admin/contact", as(s.AdminGetContactThreads))
	app.Post("/admin/contact/:id/read", as(s.MarkContactRead))
	app.Post("/admin/contact/:id/hide", as(s.HideContactForAdmin))
	app.Delete("/admin/contact/:id", as(s.AdminDeleteContact))
	app.Post("/admin/users/:id/block-contact", as(s.BlockContactUser))
	app.Post("/admin/users/:id/unblock-contact", as(s.UnblockContactUser))
	return app
}

func createContactThread(t *testing.T, db *gorm.DB, requesterID *uint) *models.Contact {
	t.Helper()
	contact := &models.Contact{
		RequesterName:   "Walk-in",
		RequesterEmail:  "walkin@campus.test",
		RequesterUserID: requesterID,
		Subject:         "Lost card",
		Message:         "I lost my student ID card near the gym.",
		Status:          models.ContactStatusNew,
	}
	if err := db.Create(contact).Error; err != nil {
		t.Fatalf("create contact: %v", err)
	}
	return contact
}

func TestCreateContactHandler(t *testing.T) {
	t.Parallel()
	db := setupHandlerTestDB(t)
	s := newHandlerTestServer(t, db)

	member := createHandlerTestUser(t, db, "requester", nil)
	blocked := createHandlerTestUser(t, db, "persona-non-grata", nil)
	db.Model(blocked).Update("blocked_from_contact", true)

	anonApp := fiber.New()
	anonApp.Post("/contact", s.CreateContact)

	body := map[string]string{
		"name":    "Visitor",
		"email":   "visitor@example.com",
		"subject": "Found a phone",
		"message": "Picked up a phone at the bus stop.",
	}

	t.Run("anonymous walk-in accepted", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/contact", body)
		resp, _ := anonApp.Test(req)
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		var contact models.Contact
		_ = json.NewDecoder(resp.Body).Decode(&contact)
		if contact.RequesterUserID != nil {
			t.Error("anonymous thread should not be linked to an account")
		}
		if contact.Status != models.ContactStatusNew {
			t.Errorf("expected new, got %s", contact.Status)
		}
	})

	t.Run("missing subject rejected", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/contact", map[string]string{"message": "hi"})
		resp, _ := anonApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("logged-in requester gets linked and backfilled", func(t *testing.T) {
		token, err := s.generateToken(member.ID, member.Username)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req := jsonRequest(http.MethodPost, "/contact", map[string]string{
			"subject": "Locker question",
			"message": "Can I get my locker reassigned?",
		})
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := anonApp.Test(req)
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		var contact models.Contact
		_ = json.NewDecoder(resp.Body).Decode(&contact)
		if contact.RequesterUserID == nil || *contact.RequesterUserID != member.ID {
			t.Error("thread not linked to the requester's account")
		}
		if contact.RequesterName != member.FullName {
			t.Errorf("name not backfilled from profile: %q", contact.RequesterName)
		}
		if contact.RequesterEmail != member.Email {
			t.Errorf("email not backfilled from profile: %q", contact.RequesterEmail)
		}
	})

	t.Run("blocked requester refused", func(t *testing.T) {
		token, err := s.generateToken(blocked.ID, blocked.Username)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req := jsonRequest(http.MethodPost, "/contact", body)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := anonApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
	})
}

func TestContactThreadAccess(t *testing.T) {
	t.Parallel()
	db := setupHandlerTestDB(t)
	s := newHandlerTestServer(t, db)

	requester := createHandlerTestUser(t, db, "thread-owner", nil)
	stranger := createHandlerTestUser(t, db, "thread-stranger", nil)
	admin := createHandlerTestUser(t, db, "thread-admin", models.RoleList{models.RoleAdmin})

	thread := createContactThread(t, db, &requester.ID)

	cases := []struct {
		name       string
		actorID    uint
		wantStatus int
	}{
		{"requester reads own thread", requester.ID, http.StatusOK},
		{"staff reads any thread", admin.ID, http.StatusOK},
		// A stranger gets 404, not 403, so thread existence is not leaked.
		{"stranger gets not found", stranger.ID, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := mountContactRoutes(s, tc.actorID)
			req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/contact/%d", thread.ID), nil)
			resp, _ := app.Test(req)
			_ = resp.Body.Close()
			if resp.StatusCode != tc.wantStatus {
				t.Errorf("expected %d, got %d", tc.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestAddContactReplyHandler(t *testing.T) {
	t.Parallel()
	db := setupHandlerTestDB(t)
	s := newHandlerTestServer(t, db)

	requester := createHandlerTestUser(t, db, "reply-requester", nil)
	admin := createHandlerTestUser(t, db, "reply-admin", models.RoleList{models.RoleAdmin})

	thread := createContactThread(t, db, &requester.ID)
	adminApp := mountContactRoutes(s, admin.ID)
	requesterApp := mountContactRoutes(s, requester.ID)

	t.Run("staff reply flips status to replied", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, fmt.Sprintf("/contact/%d/replies", thread.ID),
			map[string]string{"message": "Come pick it up at the front desk."})
		resp, _ := adminApp.Test(req)
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		var reply models.ContactReply
		_ = json.NewDecoder(resp.Body).Decode(&reply)
		if reply.Sender != models.SenderAdmin {
			t.Errorf("expected admin sender, got %s", reply.Sender)
		}
		if reply.UID == "" {
			t.Error("reply missing stable UID")
		}

		var stored models.Contact
		db.First(&stored, thread.ID)
		if stored.Status != models.ContactStatusReplied {
			t.Errorf("expected replied, got %s", stored.Status)
		}
	})

	t.Run("requester reply keeps status", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, fmt.Sprintf("/contact/%d/replies", thread.ID),
			map[string]string{"message": "Thanks, on my way."})
		resp, _ := requesterApp.Test(req)
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		var reply models.ContactReply
		_ = json.NewDecoder(resp.Body).Decode(&reply)
		if reply.Sender != models.SenderUser {
			t.Errorf("expected user sender, got %s", reply.Sender)
		}
	})

	t.Run("empty reply rejected", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, fmt.Sprintf("/contact/%d/replies", thread.ID),
			map[string]string{})
		resp, _ := requesterApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestDeleteContactReplyHandler(t *testing.T) {
	t.Parallel()
	db := setupHandlerTestDB(t)
	s := newHandlerTestServer(t, db)

	requester := createHandlerTestUser(t, db, "del-requester", nil)
	admin := createHandlerTestUser(t, db, "del-admin", models.RoleList{models.RoleAdmin})

	thread := createContactThread(t, db, &requester.ID)
	replies := []models.ContactReply{
		{UID: "uid-a", ContactID: thread.ID, Sender: models.SenderUser, SenderID: requester.ID, Message: "first"},
		{UID: "uid-b", ContactID: thread.ID, Sender: models.SenderAdmin, SenderID: admin.ID, Message: "second"},
		{UID: "uid-c", ContactID: thread.ID, Sender: models.SenderUser, SenderID: requester.ID, Message: "third"},
	}
	for i := range replies {
		if err := db.Create(&replies[i]).Error; err != nil {
			t.Fatalf("seed reply: %v", err)
		}
	}

	adminApp := mountContactRoutes(s, admin.ID)
	requesterApp := mountContactRoutes(s, requester.ID)

	countReplies := func() int64 {
		var n int64
		db.Model(&models.ContactReply{}).Where("contact_id = ?", thread.ID).Count(&n)
		return n
	}

	t.Run("delete by stable UID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete,
			fmt.Sprintf("/contact/%d/replies/uid-c", thread.ID), nil)
		resp, _ := requesterApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}
		if countReplies() != 2 {
			t.Errorf("expected 2 replies left, got %d", countReplies())
		}
	})

	t.Run("positional delete with sender drift conflicts", func(t *testing.T) {
		// Index 0 is a user reply; the old client thought it was deleting an
		// admin one.
		req := httptest.NewRequest(http.MethodDelete,
			fmt.Sprintf("/contact/%d/replies/0?expected_sender=admin", thread.ID), nil)
		resp, _ := adminApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("expected 409, got %d", resp.StatusCode)
		}
	})

	t.Run("positional delete with matching sender", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete,
			fmt.Sprintf("/contact/%d/replies/1?expected_sender=admin", thread.ID), nil)
		resp, _ := adminApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}

		var remaining []models.ContactReply
		db.Where("contact_id = ?", thread.ID).Find(&remaining)
		if len(remaining) != 1 || remaining[0].UID != "uid-a" {
			t.Errorf("wrong reply deleted; remaining %+v", remaining)
		}
	})

	t.Run("requester cannot delete staff reply", func(t *testing.T) {
		staffReply := models.ContactReply{UID: "uid-d", ContactID: thread.ID, Sender: models.SenderAdmin, SenderID: admin.ID, Message: "staff note"}
		db.Create(&staffReply)

		req := httptest.NewRequest(http.MethodDelete,
			fmt.Sprintf("/contact/%d/replies/uid-d", thread.ID), nil)
		resp, _ := requesterApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
	})

	t.Run("unknown uid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete,
			fmt.Sprintf("/contact/%d/replies/uid-zz", thread.ID), nil)
		resp, _ := adminApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestContactHideAndRecallHandlers(t *testing.T) {
	t.Parallel()
	db := setupHandlerTestDB(t)
	s := newHandlerTestServer(t, db)

	requester := createHandlerTestUser(t, db, "hide-requester", nil)
	admin := createHandlerTestUser(t, db, "hide-admin", models.RoleList{models.RoleAdmin})

	requesterApp := mountContactRoutes(s, requester.ID)
	adminApp := mountContactRoutes(s, admin.ID)

	t.Run("requester hides own view", func(t *testing.T) {
		thread := createContactThread(t, db, &requester.ID)
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/contact/%d/hide", thread.ID), nil)
		resp, _ := requesterApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var stored models.Contact
		db.First(&stored, thread.ID)
		if !stored.HiddenForUser {
			t.Error("expected hidden_for_user set")
		}
		if stored.HiddenForAdmin {
			t.Error("staff view should be untouched")
		}
	})

	t.Run("staff hide does not touch requester view", func(t *testing.T) {
		thread := createContactThread(t, db, &requester.ID)
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/admin/contact/%d/hide", thread.ID), nil)
		resp, _ := adminApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var stored models.Contact
		db.First(&stored, thread.ID)
		if !stored.HiddenForAdmin {
			t.Error("expected hidden_for_admin set")
		}
		if stored.HiddenForUser {
			t.Error("requester view should be untouched")
		}
	})

	t.Run("requester recalls own thread", func(t *testing.T) {
		thread := createContactThread(t, db, &requester.ID)
		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/contact/%d", thread.ID), nil)
		resp, _ := requesterApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}

		var count int64
		db.Model(&models.Contact{}).Where("id = ?", thread.ID).Count(&count)
		if count != 0 {
			t.Error("thread should be gone")
		}
	})

	t.Run("staff cannot recall a requester thread", func(t *testing.T) {
		thread := createContactThread(t, db, &requester.ID)
		req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/contact/%d", thread.ID), nil)
		resp, _ := adminApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
	})
}

func TestAdminContactListingAndBlock(t *testing.T) {
	t.Parallel()
	db := setupHandlerTestDB(t)
	s := newHandlerTestServer(t, db)

	requester := createHandlerTestUser(t, db, "block-requester", nil)
	admin := createHandlerTestUser(t, db, "block-admin", models.RoleList{models.RoleAdmin})

	threadA := createContactThread(t, db, &requester.ID)
	threadB := createContactThread(t, db, &requester.ID)

	adminApp := mountContactRoutes(s, admin.ID)
	requesterApp := mountContactRoutes(s, requester.ID)

	t.Run("listing is admin only", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/contact", nil)
		resp, _ := requesterApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %d", resp.StatusCode)
		}
	})

	t.Run("admin listing enriches live requester fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/contact", nil)
		resp, _ := adminApp.Test(req)
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var threads []models.Contact
		_ = json.NewDecoder(resp.Body).Decode(&threads)
		if len(threads) != 2 {
			t.Fatalf("expected 2 threads, got %d", len(threads))
		}
		for _, thread := range threads {
			if thread.RequesterLiveName != requester.FullName {
				t.Errorf("live name not enriched: %q", thread.RequesterLiveName)
			}
		}
	})

	t.Run("mark read", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/admin/contact/%d/read", threadA.ID), nil)
		resp, _ := adminApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var stored models.Contact
		db.First(&stored, threadA.ID)
		if stored.Status != models.ContactStatusRead {
			t.Errorf("expected read, got %s", stored.Status)
		}
	})

	t.Run("block fans out to cached thread flags", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/admin/users/%d/block-contact", requester.ID), nil)
		resp, _ := adminApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var user models.User
		db.First(&user, requester.ID)
		if !user.BlockedFromContact {
			t.Error("authoritative flag not set")
		}

		var stored models.Contact
		db.First(&stored, threadB.ID)
		if !stored.UserBlocked {
			t.Error("cached thread flag not fanned out")
		}

		// Unblock reverses both.
		req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/admin/users/%d/unblock-contact", requester.ID), nil)
		resp, _ = adminApp.Test(req)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		db.First(&user, requester.ID)
		if user.BlockedFromContact {
			t.Error("authoritative flag not cleared")
		}
	})
}
