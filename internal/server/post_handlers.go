package server

import (
	"campusfind/internal/models"
	"campusfind/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts. Anonymous browsing only sees approved,
// unbanned reports; the optional category query narrows to lost or found.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	actor := s.optionalActor(c)

	category := models.PostCategory(c.Query("category"))
	if category != "" && !category.Valid() {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Category must be 'lost' or 'found'"))
	}

	posts, err := s.postService.ListPosts(c.Context(), service.ListPostsInput{
		Category: category,
		Limit:    page.Limit,
		Offset:   page.Offset,
		Actor:    actor,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(posts)
}

// SearchPosts handles GET /api/posts/search?q=...
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	q := c.Query("q")
	page := parsePagination(c, 10)
	actor := s.optionalActor(c)

	posts, err := s.postService.SearchPosts(c.Context(), q, page.Limit, page.Offset, actor)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor := s.optionalActor(c)

	post, err := s.postService.GetPost(c.Context(), id, actor)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	actor, err := s.actor(c)
	if err != nil {
		return models.RespondError(c, err)
	}

	var req struct {
		Category    string   `json:"category"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		ItemType    string   `json:"item_type"`
		Location    string   `json:"location"`
		ImageURLs   []string `json:"image_urls"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.Context(), service.CreatePostInput{
		Actor:       actor,
		Category:    models.PostCategory(req.Category),
		Title:       req.Title,
		Description: req.Description,
		ItemType:    req.ItemType,
		Location:    req.Location,
		ImageURLs:   req.ImageURLs,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	ownerID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	posts, err := s.postService.GetUserPosts(c.Context(), ownerID, page.Limit, page.Offset, actor)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(posts)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	var req struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		ItemType     string `json:"item_type"`
		Location     string `json:"location"`
		ReturnStatus string `json:"return_status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.Context(), service.UpdatePostInput{
		Actor:        actor,
		PostID:       postID,
		Title:        req.Title,
		Description:  req.Description,
		ItemType:     req.ItemType,
		Location:     req.Location,
		ReturnStatus: models.ReturnStatus(req.ReturnStatus),
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	if err := s.postService.DeletePost(c.Context(), actor, postID); err != nil {
		return models.RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost handles POST /api/posts/:id/like. The endpoint toggles: if
// already liked it unlikes, so applying it twice is a no-op.
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	post, err := s.postService.ToggleLike(c.Context(), actor, postID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(post)
}

// SharePost handles POST /api/posts/:id/share
func (s *Server) SharePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, aerr := s.actor(c)
	if aerr != nil {
		return models.RespondError(c, aerr)
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	share, err := s.postService.SharePost(c.Context(), actor, postID, req.Comment)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(share)
}
