package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"priceboard/internal/domain"
	applog "priceboard/internal/log"
	"priceboard/internal/repos"
	"priceboard/internal/services"
	"priceboard/internal/validate"
)

type OfferHandler struct {
	Offers     *services.OfferService
	Comparison *repos.ComparisonRepo
}

func (h *OfferHandler) Create(c *fiber.Ctx) error {
	var in services.OfferInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "malformed body")
	}
	if err := validate.Struct(in); err != nil {
		return badRequest(c, err.Error())
	}
	offer, err := h.Offers.CreateOffer(in)
	if err != nil {
		return writeErr(c, err)
	}
	applog.Info(c, "offer.create", map[string]any{"offer_id": offer.ID, "item_id": offer.InventoryItemID})
	return c.Status(fiber.StatusCreated).JSON(offer)
}

func (h *OfferHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	offer, err := h.Offers.GetOffer(id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(offer)
}

func (h *OfferHandler) Update(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	var ch services.OfferChanges
	if err := c.BodyParser(&ch); err != nil {
		return badRequest(c, "malformed body")
	}
	if err := validate.Struct(ch); err != nil {
		return badRequest(c, err.Error())
	}
	offer, err := h.Offers.UpdateOffer(id, ch)
	if err != nil {
		return writeErr(c, err)
	}
	if offer == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "offer not found"})
	}
	return c.JSON(offer)
}

func (h *OfferHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	if err := h.Offers.DeleteOffer(id); err != nil {
		return writeErr(c, err)
	}
	applog.Info(c, "offer.delete", map[string]any{"offer_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// Compare lists live offers under a sort strategy plus optional filters.
func (h *OfferHandler) Compare(c *fiber.Ctx) error {
	sort := domain.SortStrategy(c.Query("sort", string(domain.SortEffectivePriceAsc)))
	if !sort.Valid() {
		return badRequest(c, "unknown sort strategy "+c.Query("sort"))
	}
	cfg := domain.ComparisonConfig{Sort: sort, Limit: c.QueryInt("limit")}
	filters := domain.OfferFilters{
		InventoryItemID: c.Query("itemId"),
		SupplierID:      c.Query("supplierId"),
	}
	var err error
	if filters.Start, err = queryTime(c, "start"); err != nil {
		return badRequest(c, "start must be RFC 3339")
	}
	if filters.End, err = queryTime(c, "end"); err != nil {
		return badRequest(c, "end must be RFC 3339")
	}

	result, err := h.Comparison.FindOffersByComparison(cfg, filters)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(result)
}

// BestForItem returns the cheapest live offer for one item.
func (h *OfferHandler) BestForItem(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid item id")
	}
	best, err := h.Comparison.FindBestOfferForItem(id)
	if err != nil {
		return writeErr(c, err)
	}
	if best == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no live offers for item"})
	}
	return c.JSON(best)
}

func queryTime(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
