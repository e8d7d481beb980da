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

type HistoryHandler struct {
	History *services.HistoryService
}

type recordPriceInput struct {
	SupplierID *string  `json:"supplierId"`
	Price      float64  `json:"price" validate:"gt=0"`
	Currency   string   `json:"currency" validate:"required,min=1,max=8"`
	Unit       string   `json:"unit" validate:"required"`
	Quantity   float64  `json:"quantity" validate:"gt=0"`
	ObservedAt *string  `json:"observedAt"`
	Confidence float64  `json:"confidence" validate:"gte=0,lte=1"`
	Notes      string   `json:"notes"`
	Tags       []string `json:"tags"`
}

// Record appends a manual observation to the item's ledger.
func (h *HistoryHandler) Record(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid item id")
	}
	var in recordPriceInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "malformed body")
	}
	if err := validate.Struct(in); err != nil {
		return badRequest(c, err.Error())
	}

	p := domain.HistoricalPrice{
		InventoryItemID: id,
		SupplierID:      in.SupplierID,
		Price:           in.Price,
		Currency:        in.Currency,
		Unit:            in.Unit,
		Quantity:        in.Quantity,
		Source:          domain.SourceManual,
		Confidence:      in.Confidence,
		Notes:           in.Notes,
		Tags:            in.Tags,
	}
	if in.ObservedAt != nil {
		t, err := time.Parse(time.RFC3339, *in.ObservedAt)
		if err != nil {
			return badRequest(c, "observedAt must be RFC 3339")
		}
		p.ObservedAt = t
	}
	rec, err := h.History.RecordPrice(p)
	if err != nil {
		return writeErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// List reads an item's ledger, newest first by default.
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid item id")
	}
	q := repos.HistoryQuery{
		Limit:     c.QueryInt("limit"),
		Ascending: c.QueryBool("ascending"),
	}
	if sup := c.Query("supplierId"); sup != "" {
		q.SupplierID = &sup
	}
	if src := c.Query("source"); src != "" {
		source := domain.PriceSource(src)
		if !source.Valid() {
			return badRequest(c, "unknown source "+src)
		}
		q.Source = source
	}
	var err error
	if q.Start, err = queryTime(c, "start"); err != nil {
		return badRequest(c, "start must be RFC 3339")
	}
	if q.End, err = queryTime(c, "end"); err != nil {
		return badRequest(c, "end must be RFC 3339")
	}

	prices, err := h.History.GetHistoricalPrices(id, q)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(fiber.Map{"prices": prices})
}

func (h *HistoryHandler) Trend(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid item id")
	}
	period, perr := queryPeriod(c, "30d")
	if perr != nil {
		return badRequest(c, perr.Error())
	}
	opts := services.TrendOptions{Period: period}
	if sup := c.Query("supplierId"); sup != "" {
		opts.SupplierID = &sup
	}
	trend, err := h.History.GetPriceTrend(id, opts)
	if err != nil {
		return writeErr(c, err)
	}
	if trend == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not enough data points for a trend"})
	}
	return c.JSON(trend)
}

func (h *HistoryHandler) Statistics(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid item id")
	}
	period, perr := queryPeriod(c, "30d")
	if perr != nil {
		return badRequest(c, perr.Error())
	}
	var supplierID *string
	if sup := c.Query("supplierId"); sup != "" {
		supplierID = &sup
	}
	stats, err := h.History.GetPriceStatistics(id, period, supplierID)
	if err != nil {
		return writeErr(c, err)
	}
	if stats == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no observations in period"})
	}
	return c.JSON(stats)
}

func (h *HistoryHandler) Best(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid item id")
	}
	period, perr := queryPeriod(c, "all")
	if perr != nil {
		return badRequest(c, perr.Error())
	}
	var supplierID *string
	if sup := c.Query("supplierId"); sup != "" {
		supplierID = &sup
	}
	best, err := h.History.GetBestHistoricalPrice(id, period, supplierID)
	if err != nil {
		return writeErr(c, err)
	}
	if best == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no observations in period"})
	}
	return c.JSON(best)
}

func (h *HistoryHandler) Alerts(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid item id")
	}
	period, perr := queryPeriod(c, "7d")
	if perr != nil {
		return badRequest(c, perr.Error())
	}
	opts := services.AlertOptions{
		Threshold: c.QueryFloat("threshold"),
		Period:    period,
	}
	if sup := c.Query("supplierId"); sup != "" {
		opts.SupplierID = &sup
	}
	alerts, err := h.History.GetPriceAlerts(id, opts)
	if err != nil {
		return writeErr(c, err)
	}
	if alerts == nil {
		alerts = []domain.PriceAlert{}
	}
	return c.JSON(fiber.Map{"alerts": alerts})
}

func (h *HistoryHandler) Summary(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid item id")
	}
	period, perr := queryPeriod(c, "30d")
	if perr != nil {
		return badRequest(c, perr.Error())
	}
	sum, err := h.History.GetPriceHistorySummary(id, period)
	if err != nil {
		return writeErr(c, err)
	}
	if sum == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no observations in period"})
	}
	return c.JSON(sum)
}

// Cleanup prunes ledger rows older than the given number of days.
func (h *HistoryHandler) Cleanup(c *fiber.Ctx) error {
	days := c.QueryInt("olderThanDays")
	if days <= 0 {
		return badRequest(c, "olderThanDays must be positive")
	}
	removed, err := h.History.CleanupOldData(days)
	if err != nil {
		return writeErr(c, err)
	}
	applog.Info(c, "history.cleanup", map[string]any{"older_than_days": days, "removed": removed})
	return c.JSON(fiber.Map{"removed": removed})
}

func queryPeriod(c *fiber.Ctx, fallback string) (domain.Period, error) {
	p := domain.Period(c.Query("period", fallback))
	if !p.Valid() {
		return "", fiber.NewError(fiber.StatusBadRequest, "unknown period "+string(p))
	}
	return p, nil
}
