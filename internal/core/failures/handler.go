package failures

import (
	"github.com/gofiber/fiber/v2"
)

type Handler struct{ store *Store }

func NewHandler(store *Store) *Handler { return &Handler{store: store} }

// HandleList serves GET /v1/failures?limit=N.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	items, err := h.store.List(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true, "data": items})
}
