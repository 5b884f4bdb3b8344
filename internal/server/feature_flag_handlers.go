package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags lets staff inspect the configured rollout flags and how
// they evaluate for the requesting account.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	actorID, _ := c.Locals("userID").(uint)

	raw := map[string]string{}
	evaluated := map[string]bool{}
	if s.featureFlags != nil {
		raw = s.featureFlags.Raw()
		evaluated = s.featureFlags.Snapshot(actorID)
	}

	return c.JSON(fiber.Map{
		"raw":       raw,
		"evaluated": evaluated,
	})
}
