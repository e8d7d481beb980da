package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "priceboard/internal/log"
	"priceboard/internal/pricing"
	"priceboard/internal/services"
)

// writeErr maps service errors onto HTTP statuses. Anything unrecognized is
// a 500 and gets logged; the client only ever sees the error text for
// well-known failures.
func writeErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrItemNotFound),
		errors.Is(err, services.ErrSupplierNotFound),
		errors.Is(err, services.ErrOfferNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrUnitAlreadySet):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrUnknownUnit),
		errors.Is(err, pricing.ErrInvalidConversion),
		errors.Is(err, pricing.ErrNonPositiveAmount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	applog.Error(c, "server.error", err, nil)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
