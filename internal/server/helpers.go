package server

import (
	"errors"
	"strings"
	"unicode"

	"campusfind/internal/authz"
	"campusfind/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten signals that a helper already committed the HTTP
// response. Handlers must return nil instead of this error, otherwise
// Fiber's ErrorHandler would overwrite the body.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination reads limit and offset from the query string. Bad or
// missing values fall back to defaults; the limit is capped so a single
// request can never page through the whole reports table.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// parseID reads a route parameter as a positive uint. On failure it writes
// the 400 itself and returns errResponseWritten; callers then return nil.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam turns a route param name into the label used in error
// messages: "id" becomes "ID", "userId" becomes "user ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	prefix, ok := strings.CutSuffix(param, "Id")
	if !ok {
		return param
	}
	return strings.ToLower(strings.Join(splitCamel(prefix), " ")) + " ID"
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}

// actor resolves the authenticated principal from the request. The role set
// is read through the cache-backed user repository, so a promotion or role
// revocation takes effect without re-issuing the token.
func (s *Server) actor(c *fiber.Ctx) (authz.Actor, error) {
	userID, ok := c.Locals("userID").(uint)
	if !ok || userID == 0 {
		return authz.Actor{}, nil
	}
	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return authz.Actor{}, err
	}
	return authz.Actor{ID: user.ID, Roles: user.Roles}, nil
}

// optionalActor resolves the principal on routes where authentication is not
// enforced. Anonymous callers get a zero Actor.
func (s *Server) optionalActor(c *fiber.Ctx) authz.Actor {
	userID, ok := s.optionalUserID(c)
	if !ok {
		return authz.Actor{}
	}
	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return authz.Actor{ID: userID}
	}
	return authz.Actor{ID: user.ID, Roles: user.Roles}
}
