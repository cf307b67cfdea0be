package library

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleListComics(c *fiber.Ctx) error {
	return respond(c, func() ([]string, error) { return h.service.Comics() })
}

func (h *Handler) HandleListEpisodes(c *fiber.Ctx) error {
	return respond(c, func() ([]string, error) {
		return h.service.Episodes(param(c, "comic"))
	})
}

func (h *Handler) HandleListPages(c *fiber.Ctx) error {
	return respond(c, func() ([]string, error) {
		return h.service.Pages(param(c, "comic"), param(c, "episode"))
	})
}

func respond(c *fiber.Ctx, list func() ([]string, error)) error {
	names, err := list()
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"ok": false, "status": fiber.StatusNotFound})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true, "data": names})
}

func param(c *fiber.Ctx, key string) string {
	raw := c.Params(key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
