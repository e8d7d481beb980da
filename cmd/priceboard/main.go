package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"priceboard/internal/config"
	"priceboard/internal/http/handlers"
	applog "priceboard/internal/log"
	"priceboard/internal/repos"
	"priceboard/internal/services"
)

func main() {
	cfg := config.Load()
	applog.Init(cfg.LogLevel, cfg.LogFile)

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			if code >= 500 {
				applog.Error(c, "server.error", err, nil)
				return c.Status(code).JSON(fiber.Map{"error": "internal error"})
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Warn(c, "rate.limit.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))

	deps := handlers.NewDeps(db, cfg)

	api := app.Group("/api/v1")

	api.Get("/units", deps.ItemHandler.Units)

	api.Get("/items", deps.ItemHandler.List)
	api.Post("/items", deps.ItemHandler.Create)
	api.Get("/items/best-offers", deps.ItemHandler.BestOffers)
	api.Get("/items/:id", deps.ItemHandler.Detail)
	api.Post("/items/:id/unit-change/preview", deps.ItemHandler.PreviewUnitChange)
	api.Post("/items/:id/unit-change", deps.ItemHandler.ChangeUnit)
	api.Get("/items/:id/best-offer", deps.OfferHandler.BestForItem)

	api.Get("/items/:id/prices", deps.HistoryHandler.List)
	api.Post("/items/:id/prices", deps.HistoryHandler.Record)
	api.Get("/items/:id/price-trend", deps.HistoryHandler.Trend)
	api.Get("/items/:id/price-statistics", deps.HistoryHandler.Statistics)
	api.Get("/items/:id/best-price", deps.HistoryHandler.Best)
	api.Get("/items/:id/price-alerts", deps.HistoryHandler.Alerts)
	api.Get("/items/:id/price-summary", deps.HistoryHandler.Summary)

	api.Get("/offers", deps.OfferHandler.Compare)
	api.Post("/offers", deps.OfferHandler.Create)
	api.Get("/offers/:id", deps.OfferHandler.Detail)
	api.Patch("/offers/:id", deps.OfferHandler.Update)
	api.Delete("/offers/:id", deps.OfferHandler.Delete)

	api.Get("/suppliers", deps.SupplierHandler.List)
	api.Post("/suppliers", deps.SupplierHandler.Create)
	api.Get("/suppliers/:id/performance", deps.SupplierHandler.Performance)

	api.Post("/maintenance/history-cleanup", deps.HistoryHandler.Cleanup)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	// Periodic ledger retention sweep
	if cfg.HistoryRetentionDays > 0 {
		hist := services.NewHistoryService(repos.NewHistoryRepo(db))
		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for range ticker.C {
				removed, err := hist.CleanupOldData(cfg.HistoryRetentionDays)
				if err != nil {
					applog.Error(nil, "history.retention", err, nil)
					continue
				}
				applog.Info(nil, "history.retention", map[string]any{
					"older_than_days": cfg.HistoryRetentionDays, "removed": removed,
				})
			}
		}()
	}

	log.Fatal(app.Listen(":" + cfg.Port))
}
