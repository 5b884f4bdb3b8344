package server

import (
	"time"

	"campusfind/internal/models"
	"campusfind/internal/notifications"
	"campusfind/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// AdminGetPosts handles GET /api/admin/posts. Staff see the full moderation
// queue across every status, including the banned partition.
func (s *Server) AdminGetPosts(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return models.RespondError(c, err)
	}
	page := parsePagination(c, 50)

	filter := repository.ListPostsFilter{
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if status := c.Query("status"); status != "" {
		filter.Status = models.PostStatus(status)
	}
	if category := c.Query("category"); category != "" {
		filter.Category = models.PostCategory(category)
	}

	posts, err := s.postService.AdminListPosts(c.Context(), actor, filter)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(posts)
}

// ApprovePost handles POST /api/admin/posts/:id/approve
func (s *Server) ApprovePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	post, err := s.postService.ApprovePost(c.Context(), actor, postID)
	if err != nil {
		return models.RespondError(c, err)
	}

	// Live feeds refresh when a report becomes publicly visible.
	s.publishBroadcastEvent(notifications.EventPostApproved, map[string]interface{}{
		"post_id":    post.ID,
		"category":   post.Category,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	})

	return c.JSON(post)
}

// RejectPost handles POST /api/admin/posts/:id/reject
func (s *Server) RejectPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	post, err := s.postService.RejectPost(c.Context(), actor, postID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(post)
}

// BanPost handles POST /api/admin/posts/:id/ban
func (s *Server) BanPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.BanPost(c.Context(), actor, postID, req.Reason)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(post)
}

// UnbanPost handles POST /api/admin/posts/:id/unban
func (s *Server) UnbanPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	post, err := s.postService.UnbanPost(c.Context(), actor, postID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(post)
}

// UpdateReturnStatus handles PUT /api/admin/posts/:id/return-status
func (s *Server) UpdateReturnStatus(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	var req struct {
		ReturnStatus string `json:"return_status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdateReturnStatus(c.Context(), actor, postID,
		models.ReturnStatus(req.ReturnStatus))
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(post)
}

// MarkPostFound handles POST /api/admin/posts/:id/mark-found
func (s *Server) MarkPostFound(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	post, err := s.postService.MarkFound(c.Context(), actor, postID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(post)
}

// MarkPostNotFound handles POST /api/admin/posts/:id/mark-not-found
func (s *Server) MarkPostNotFound(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	post, err := s.postService.MarkNotFound(c.Context(), actor, postID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(post)
}
