package ingest

import (
	"errors"

	"comicstore/internal/core/comic"
	"comicstore/internal/core/download"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleSubmit accepts {"comic": {"episode": ["url", ...]}} and reports
// accepted once every derived task has been handed to the executor.
func (h *Handler) HandleSubmit(c *fiber.Ctx) error {
	tree, err := comic.ParseTree(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "invalid body"})
	}

	res, err := h.service.Submit(c.UserContext(), tree)
	if err != nil {
		var derr *comic.DerivationError
		var qErr *download.QueueError
		switch {
		case errors.As(err, &derr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": err.Error()})
		case errors.As(err, &qErr):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false, "error": "task queue unavailable", "batch_id": res.BatchID})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}
	}

	return c.JSON(fiber.Map{
		"ok":       true,
		"accepted": true,
		"batch_id": res.BatchID,
		"tasks":    res.Tasks,
		"failed":   res.Failed,
	})
}
