package server

import (
	"comicstore/internal/core/failures"
	"comicstore/internal/core/ingest"
	"comicstore/internal/core/library"
	"comicstore/internal/health"
	"comicstore/internal/platform/redis"

	"github.com/gofiber/fiber/v2"
)

type Dependencies struct {
	Ingest      *ingest.Service
	Library     *library.Service
	StorageRoot string
	// Redis and Failures are nil when the process runs without a queue.
	Redis    *redis.Service
	Failures *failures.Store
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	checks := map[string]health.CheckFunc{"storage": health.StorageCheck(d.StorageRoot)}
	if d.Redis != nil {
		checks["redis"] = d.Redis.HealthCheck
	}
	healthHandler := health.NewHealthHandler(checks)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	ingestHandler := ingest.NewHandler(d.Ingest)
	libraryHandler := library.NewHandler(d.Library)

	api := app.Group("/v1")
	api.Post("/comics", ingestHandler.HandleSubmit)
	api.Get("/comics", libraryHandler.HandleListComics)
	api.Get("/comics/:comic", libraryHandler.HandleListEpisodes)
	api.Get("/comics/:comic/:episode", libraryHandler.HandleListPages)
	if d.Failures != nil {
		api.Get("/failures", failures.NewHandler(d.Failures).HandleList)
	}

	// Unversioned routes kept for existing clients.
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("Hello, World!") })
	app.Post("/add", ingestHandler.HandleSubmit)
	app.Get("/list", libraryHandler.HandleListComics)
	app.Get("/list/:comic", libraryHandler.HandleListEpisodes)
	app.Get("/list/:comic/:episode", libraryHandler.HandleListPages)

	return healthHandler
}
