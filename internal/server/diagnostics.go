package server

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/book-hub/internal/metrics"
	"github.com/any-hub/book-hub/internal/version"
)

// registerDiagnostics 暴露 /-/healthz、/-/metrics 与 /-/metrics/:operation 诊断接口。
func registerDiagnostics(app *fiber.App, opts AppOptions) {
	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "ok",
			"version":    version.Full(),
			"cache_mode": opts.CacheMode,
		})
	})

	app.Get("/-/metrics", func(c fiber.Ctx) error {
		stats := opts.Latency.Snapshot()
		if stats == nil {
			stats = []metrics.Stats{}
		}
		return c.JSON(fiber.Map{"operations": stats})
	})

	app.Get("/-/metrics/:operation", func(c fiber.Ctx) error {
		stats, err := opts.Latency.GetStats(c.Params("operation"))
		if errors.Is(err, metrics.ErrNoData) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		if err != nil {
			return err
		}
		return c.JSON(stats)
	})
}
