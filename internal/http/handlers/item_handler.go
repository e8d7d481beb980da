package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"priceboard/internal/domain"
	applog "priceboard/internal/log"
	"priceboard/internal/repos"
	"priceboard/internal/services"
	"priceboard/internal/units"
	"priceboard/internal/validate"
)

type ItemHandler struct {
	Items      *repos.ItemRepo
	UnitChange *services.UnitChangeService
	Comparison *repos.ComparisonRepo
}

func (h *ItemHandler) List(c *fiber.Ctx) error {
	items, err := h.Items.List()
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"items": items})
}

type createItemInput struct {
	Name          string `json:"name" validate:"required,min=1,max=200"`
	Dimension     string `json:"dimension" validate:"required"`
	CanonicalUnit string `json:"canonicalUnit" validate:"required"`
}

func (h *ItemHandler) Create(c *fiber.Ctx) error {
	var in createItemInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "malformed body")
	}
	if err := validate.Struct(in); err != nil {
		return badRequest(c, err.Error())
	}
	dim := domain.Dimension(in.Dimension)
	if !dim.Valid() {
		return badRequest(c, "unknown dimension "+in.Dimension)
	}
	if !units.Known(in.CanonicalUnit, dim) {
		return badRequest(c, "unknown unit "+in.CanonicalUnit+" for dimension "+in.Dimension)
	}

	now := time.Now().UTC()
	item := domain.InventoryItem{
		ID:                 uuid.NewString(),
		Name:               in.Name,
		CanonicalDimension: dim,
		CanonicalUnit:      in.CanonicalUnit,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := h.Items.Create(item); err != nil {
		return writeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *ItemHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Warn(c, "validation.fail", map[string]any{"field": "item"})
		return badRequest(c, "invalid item id")
	}
	item, err := h.Items.FindByID(id)
	if err != nil {
		return writeErr(c, err)
	}
	if item == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "item not found"})
	}
	return c.JSON(item)
}

// Units lists the accepted canonical units for one dimension.
func (h *ItemHandler) Units(c *fiber.Ctx) error {
	dim := domain.Dimension(c.Query("dimension"))
	if !dim.Valid() {
		return badRequest(c, "unknown dimension "+c.Query("dimension"))
	}
	return c.JSON(fiber.Map{
		"dimension": dim,
		"baseUnit":  units.BaseUnit(dim),
		"units":     units.CanonicalUnits(dim),
	})
}

type unitChangeInput struct {
	NewUnit string `json:"newUnit" validate:"required"`
}

// PreviewUnitChange reports what a canonical-unit switch would do to the
// item's offers without writing anything.
func (h *ItemHandler) PreviewUnitChange(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid item id")
	}
	var in unitChangeInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "malformed body")
	}
	if err := validate.Struct(in); err != nil {
		return badRequest(c, err.Error())
	}
	preview, err := h.UnitChange.PreviewUnitChangeImpact(services.UnitChange{
		InventoryItemID: id,
		NewUnit:         in.NewUnit,
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(preview)
}

// ChangeUnit switches the item's canonical unit and renormalizes every live
// offer against it.
func (h *ItemHandler) ChangeUnit(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid item id")
	}
	var in unitChangeInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "malformed body")
	}
	if err := validate.Struct(in); err != nil {
		return badRequest(c, err.Error())
	}
	result, err := h.UnitChange.ChangeCanonicalUnit(services.UnitChange{
		InventoryItemID: id,
		NewUnit:         in.NewUnit,
	})
	if err != nil {
		return writeErr(c, err)
	}
	applog.Info(c, "item.unit_change", map[string]any{
		"item_id": id, "new_unit": in.NewUnit, "updated": result.UpdatedOffers, "failed": len(result.FailedOffers),
	})
	return c.JSON(result)
}

// BestOffers pairs every item with its cheapest live offer.
func (h *ItemHandler) BestOffers(c *fiber.Ctx) error {
	pairs, err := h.Comparison.FindItemsWithBestOffers()
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"items": pairs})
}
