package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"priceboard/internal/domain"
)

type OfferRepo struct{ db *sqlx.DB }

func NewOfferRepo(db *sqlx.DB) *OfferRepo { return &OfferRepo{db: db} }

const offerCols = `
	id, inventory_item_id, supplier_id, total_price, currency, amount, amount_unit,
	amount_canonical, price_per_canonical_excl, price_per_canonical_incl, effective_price,
	shipping_cost, shipping_included, is_tax_included, quality_rating, notes,
	computed_by_version, created_at, updated_at, deleted_at`

type offerRow struct {
	ID              string  `db:"id"`
	InventoryItemID string  `db:"inventory_item_id"`
	SupplierID      string  `db:"supplier_id"`
	TotalPrice      float64 `db:"total_price"`
	Currency        string  `db:"currency"`
	Amount          float64 `db:"amount"`
	AmountUnit      string  `db:"amount_unit"`

	AmountCanonical       float64 `db:"amount_canonical"`
	PricePerCanonicalExcl float64 `db:"price_per_canonical_excl"`
	PricePerCanonicalIncl float64 `db:"price_per_canonical_incl"`
	EffectivePrice        float64 `db:"effective_price"`

	ShippingCost     *float64 `db:"shipping_cost"`
	ShippingIncluded bool     `db:"shipping_included"`
	IsTaxIncluded    bool     `db:"is_tax_included"`
	QualityRating    *float64 `db:"quality_rating"`
	Notes            string   `db:"notes"`

	ComputedByVersion int    `db:"computed_by_version"`
	CreatedAt         int64  `db:"created_at"`
	UpdatedAt         int64  `db:"updated_at"`
	DeletedAt         *int64 `db:"deleted_at"`
}

func (r offerRow) toDomain() domain.Offer {
	return domain.Offer{
		ID:              r.ID,
		InventoryItemID: r.InventoryItemID,
		SupplierID:      r.SupplierID,
		TotalPrice:      r.TotalPrice,
		Currency:        r.Currency,
		Amount:          r.Amount,
		AmountUnit:      r.AmountUnit,

		AmountCanonical:               r.AmountCanonical,
		PricePerCanonicalExclShipping: r.PricePerCanonicalExcl,
		PricePerCanonicalInclShipping: r.PricePerCanonicalIncl,
		EffectivePricePerCanonical:    r.EffectivePrice,

		ShippingCost:     r.ShippingCost,
		ShippingIncluded: r.ShippingIncluded,
		IsTaxIncluded:    r.IsTaxIncluded,
		QualityRating:    r.QualityRating,
		Notes:            r.Notes,

		ComputedByVersion: r.ComputedByVersion,
		CreatedAt:         fromUnix(r.CreatedAt),
		UpdatedAt:         fromUnix(r.UpdatedAt),
		DeletedAt:         fromUnixPtr(r.DeletedAt),
	}
}

func (r *OfferRepo) Create(o domain.Offer) error {
	_, err := r.db.Exec(`
		INSERT INTO offers(`+offerCols+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`, o.ID, o.InventoryItemID, o.SupplierID, o.TotalPrice, o.Currency, o.Amount, o.AmountUnit,
		o.AmountCanonical, o.PricePerCanonicalExclShipping, o.PricePerCanonicalInclShipping, o.EffectivePricePerCanonical,
		o.ShippingCost, o.ShippingIncluded, o.IsTaxIncluded, o.QualityRating, o.Notes,
		o.ComputedByVersion, o.CreatedAt.Unix(), o.UpdatedAt.Unix(), toUnixPtr(o.DeletedAt))
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

// FindByID returns nil without error when the offer does not exist or is
// soft-deleted.
func (r *OfferRepo) FindByID(id string) (*domain.Offer, error) {
	var row offerRow
	err := r.db.Get(&row, `SELECT `+offerCols+` FROM offers WHERE id = ? AND deleted_at IS NULL`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query offer: %w", err)
	}
	o := row.toDomain()
	return &o, nil
}

// FindForItem lists all live offers for an item in stable fetch order; the
// cascade recompute walks this list one offer at a time.
func (r *OfferRepo) FindForItem(itemID string) ([]domain.Offer, error) {
	var rows []offerRow
	if err := r.db.Select(&rows, `
		SELECT `+offerCols+` FROM offers
		WHERE inventory_item_id = ? AND deleted_at IS NULL
		ORDER BY created_at, id
	`, itemID); err != nil {
		return nil, fmt.Errorf("query offers for item: %w", err)
	}
	out := make([]domain.Offer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// updatableCols whitelists the columns UpdateFields may touch. The derived
// metric columns are deliberately absent; they only move together through
// UpdateMetrics.
var updatableCols = map[string]string{
	"totalPrice":       "total_price",
	"currency":         "currency",
	"amount":           "amount",
	"amountUnit":       "amount_unit",
	"shippingCost":     "shipping_cost",
	"shippingIncluded": "shipping_included",
	"isTaxIncluded":    "is_tax_included",
	"qualityRating":    "quality_rating",
	"notes":            "notes",
}

// UpdateFields applies a partial update and returns the updated offer, or
// nil when the offer does not exist. Unknown field names are an error.
func (r *OfferRepo) UpdateFields(id string, fields map[string]any) (*domain.Offer, error) {
	if len(fields) == 0 {
		return r.FindByID(id)
	}
	names := make([]string, 0, len(fields))
	for f := range fields {
		if _, ok := updatableCols[f]; !ok {
			return nil, fmt.Errorf("offer field %q is not updatable", f)
		}
		names = append(names, f)
	}
	sort.Strings(names)

	set := ""
	args := make([]any, 0, len(names)+2)
	for _, f := range names {
		set += updatableCols[f] + " = ?, "
		args = append(args, fields[f])
	}
	set += "updated_at = ?"
	args = append(args, time.Now().Unix(), id)

	res, err := r.db.Exec(`UPDATE offers SET `+set+` WHERE id = ? AND deleted_at IS NULL`, args...)
	if err != nil {
		return nil, fmt.Errorf("update offer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.FindByID(id)
}

// UpdateMetrics persists a fresh metrics computation, tagging the version
// it was computed by.
func (r *OfferRepo) UpdateMetrics(id string, m domain.OfferMetrics, version int) error {
	res, err := r.db.Exec(`
		UPDATE offers SET
		  amount_canonical = ?, price_per_canonical_excl = ?, price_per_canonical_incl = ?,
		  effective_price = ?, computed_by_version = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, m.AmountCanonical, m.PricePerCanonicalExclShipping, m.PricePerCanonicalInclShipping,
		m.EffectivePricePerCanonical, version, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("update offer metrics: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("offer %s not found", id)
	}
	return nil
}

// SoftDelete marks the offer deleted; rows are never hard-deleted here.
func (r *OfferRepo) SoftDelete(id string) error {
	res, err := r.db.Exec(`
		UPDATE offers SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL
	`, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("offer %s not found", id)
	}
	return nil
}
