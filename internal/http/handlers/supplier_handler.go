package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"priceboard/internal/domain"
	"priceboard/internal/repos"
	"priceboard/internal/validate"
)

type SupplierHandler struct {
	Suppliers  *repos.SupplierRepo
	Comparison *repos.ComparisonRepo
}

func (h *SupplierHandler) List(c *fiber.Ctx) error {
	sups, err := h.Suppliers.List()
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"suppliers": sups})
}

type createSupplierInput struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

func (h *SupplierHandler) Create(c *fiber.Ctx) error {
	var in createSupplierInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "malformed body")
	}
	if err := validate.Struct(in); err != nil {
		return badRequest(c, err.Error())
	}
	sup := domain.Supplier{
		ID:        uuid.NewString(),
		Name:      in.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Suppliers.Create(sup); err != nil {
		return writeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sup)
}

// Performance aggregates a supplier's live offers, optionally windowed by
// created-at.
func (h *SupplierHandler) Performance(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid supplier id")
	}
	sup, err := h.Suppliers.FindByID(id)
	if err != nil {
		return writeErr(c, err)
	}
	if sup == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "supplier not found"})
	}

	start, err := queryTime(c, "start")
	if err != nil {
		return badRequest(c, "start must be RFC 3339")
	}
	end, err := queryTime(c, "end")
	if err != nil {
		return badRequest(c, "end must be RFC 3339")
	}
	stats, err := h.Comparison.SupplierPerformanceStats(id, start, end)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(stats)
}
