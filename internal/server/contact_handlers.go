package server

import (
	"strconv"

	"campusfind/internal/models"
	"campusfind/internal/repository"
	"campusfind/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateContact handles POST /api/contact. Anonymous walk-in requests are
// accepted; logged-in requesters get their thread linked to their account.
func (s *Server) CreateContact(c *fiber.Ctx) error {
	actor := s.optionalActor(c)

	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	contact, err := s.contactService.CreateContact(c.Context(), service.CreateContactInput{
		Actor:   actor,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(contact)
}

// GetMyContactThreads handles GET /api/contact/me
func (s *Server) GetMyContactThreads(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return models.RespondError(c, err)
	}
	page := parsePagination(c, 20)

	threads, err := s.contactService.GetOwnThreads(c.Context(), actor, page.Limit, page.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(threads)
}

// GetContactThread handles GET /api/contact/:id
func (s *Server) GetContactThread(c *fiber.Ctx) error {
	contactID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	thread, err := s.contactService.GetThread(c.Context(), actor, contactID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(thread)
}

// AddContactReply handles POST /api/contact/:id/replies
func (s *Server) AddContactReply(c *fiber.Ctx) error {
	contactID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	var req struct {
		Message  string `json:"message"`
		ImageURL string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	reply, err := s.contactService.AddReply(c.Context(), service.AddReplyInput{
		Actor:     actor,
		ContactID: contactID,
		Message:   req.Message,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(reply)
}

// DeleteContactReply handles DELETE /api/contact/:id/replies/:uid and its
// admin twin. The :uid segment is normally the reply's stable UID; when it
// parses as a bare integer it is treated as a positional index from an older
// client, guarded by the expected_sender query parameter.
func (s *Server) DeleteContactReply(c *fiber.Ctx) error {
	contactID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	in := service.DeleteReplyInput{
		Actor:     actor,
		ContactID: contactID,
	}

	uid := c.Params("uid")
	if idx, convErr := strconv.Atoi(uid); convErr == nil {
		in.Index = idx
		in.ExpectedSender = models.ReplySender(c.Query("expected_sender"))
	} else {
		in.UID = uid
	}

	if err := s.contactService.DeleteReply(c.Context(), in); err != nil {
		return models.RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// HideContactForUser handles POST /api/contact/:id/hide
func (s *Server) HideContactForUser(c *fiber.Ctx) error {
	contactID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	if err := s.contactService.HideForUser(c.Context(), actor, contactID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Thread hidden"})
}

// RecallContact handles DELETE /api/contact/:id (requester hard delete)
func (s *Server) RecallContact(c *fiber.Ctx) error {
	contactID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	if err := s.contactService.RecallContact(c.Context(), actor, contactID); err != nil {
		return models.RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// AdminGetContactThreads handles GET /api/admin/contact
func (s *Server) AdminGetContactThreads(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return models.RespondError(c, err)
	}
	page := parsePagination(c, 50)

	filter := repository.ListContactsFilter{
		Limit:          page.Limit,
		Offset:         page.Offset,
		IncludeBlocked: c.QueryBool("include_blocked", false),
	}
	if status := c.Query("status"); status != "" {
		filter.Status = models.ContactStatus(status)
	}

	threads, err := s.contactService.GetThreads(c.Context(), actor, filter)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(threads)
}

// MarkContactRead handles POST /api/admin/contact/:id/read
func (s *Server) MarkContactRead(c *fiber.Ctx) error {
	contactID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	if err := s.contactService.MarkRead(c.Context(), actor, contactID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Thread marked as read"})
}

// HideContactForAdmin handles POST /api/admin/contact/:id/hide
func (s *Server) HideContactForAdmin(c *fiber.Ctx) error {
	contactID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	if err := s.contactService.HideForAdmin(c.Context(), actor, contactID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Thread hidden"})
}

// AdminDeleteContact handles DELETE /api/admin/contact/:id
func (s *Server) AdminDeleteContact(c *fiber.Ctx) error {
	contactID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	if err := s.contactService.DeleteContact(c.Context(), actor, contactID); err != nil {
		return models.RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// BlockContactUser handles POST /api/admin/users/:id/block-contact
func (s *Server) BlockContactUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	if err := s.contactService.BlockUser(c.Context(), actor, userID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "User blocked from contact"})
}

// UnblockContactUser handles POST /api/admin/users/:id/unblock-contact
func (s *Server) UnblockContactUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	if err := s.contactService.UnblockUser(c.Context(), actor, userID); err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "User unblocked from contact"})
}
