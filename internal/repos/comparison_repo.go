package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"priceboard/internal/domain"
)

// ComparisonRepo answers ranking and aggregation queries over live offers.
type ComparisonRepo struct{ db *sqlx.DB }

func NewComparisonRepo(db *sqlx.DB) *ComparisonRepo { return &ComparisonRepo{db: db} }

func orderClause(s domain.SortStrategy) string {
	switch s {
	case domain.SortPriceExclAsc:
		return `price_per_canonical_excl ASC, id`
	case domain.SortTotalPriceAsc:
		return `total_price ASC, id`
	case domain.SortNewestFirst:
		return `created_at DESC, id`
	default: // SortEffectivePriceAsc
		return `effective_price ASC, id`
	}
}

func comparisonWhere(f domain.OfferFilters) (string, []any) {
	where := `deleted_at IS NULL`
	args := []any{}
	if f.InventoryItemID != "" {
		where += ` AND inventory_item_id = ?`
		args = append(args, f.InventoryItemID)
	}
	if f.SupplierID != "" {
		where += ` AND supplier_id = ?`
		args = append(args, f.SupplierID)
	}
	if f.Start != nil {
		where += ` AND created_at >= ?`
		args = append(args, f.Start.Unix())
	}
	if f.End != nil {
		where += ` AND created_at <= ?`
		args = append(args, f.End.Unix())
	}
	return where, args
}

// FindOffersByComparison applies the configured sort plus filters and
// reports total/returned counts and query wall time.
func (r *ComparisonRepo) FindOffersByComparison(cfg domain.ComparisonConfig, f domain.OfferFilters) (*domain.ComparisonResult, error) {
	started := time.Now()
	where, args := comparisonWhere(f)

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(*) FROM offers WHERE `+where, args...); err != nil {
		return nil, fmt.Errorf("count offers: %w", err)
	}

	query := `SELECT ` + offerCols + ` FROM offers WHERE ` + where + ` ORDER BY ` + orderClause(cfg.Sort)
	if cfg.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, cfg.Limit)
	}
	var rows []offerRow
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}

	results := make([]domain.Offer, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toDomain())
	}
	return &domain.ComparisonResult{
		Results: results,
		Meta: domain.ComparisonMeta{
			TotalCount:      total,
			ReturnedCount:   len(results),
			ExecutionTimeMs: time.Since(started).Milliseconds(),
		},
	}, nil
}

// FindBestOfferForItem returns the cheapest live offer by effective price,
// or nil when the item has none.
func (r *ComparisonRepo) FindBestOfferForItem(itemID string) (*domain.Offer, error) {
	var row offerRow
	err := r.db.Get(&row, `
		SELECT `+offerCols+` FROM offers
		WHERE inventory_item_id = ? AND deleted_at IS NULL
		ORDER BY effective_price ASC, id
		LIMIT 1
	`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query best offer: %w", err)
	}
	o := row.toDomain()
	return &o, nil
}

// FindItemsWithBestOffers pairs every item with its cheapest live offer.
// Items without offers appear with a nil offer.
func (r *ComparisonRepo) FindItemsWithBestOffers() ([]domain.ItemBestOffer, error) {
	var items []itemRow
	if err := r.db.Select(&items, `
		SELECT id, name, canonical_dimension, canonical_unit, created_at, updated_at
		FROM items ORDER BY name
	`); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([]domain.ItemBestOffer, 0, len(items))
	for _, it := range items {
		best, err := r.FindBestOfferForItem(it.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ItemBestOffer{Item: it.toDomain(), BestOffer: best})
	}
	return out, nil
}

type supplierStatsRow struct {
	TotalOffers int      `db:"total_offers"`
	AvgPrice    *float64 `db:"avg_price"`
	MinPrice    *float64 `db:"min_price"`
	MaxPrice    *float64 `db:"max_price"`
	AvgQuality  *float64 `db:"avg_quality"`
}

// SupplierPerformanceStats aggregates a supplier's live offers, optionally
// restricted to a created-at range.
func (r *ComparisonRepo) SupplierPerformanceStats(supplierID string, start, end *time.Time) (*domain.SupplierPerformance, error) {
	where := `supplier_id = ? AND deleted_at IS NULL`
	args := []any{supplierID}
	if start != nil {
		where += ` AND created_at >= ?`
		args = append(args, start.Unix())
	}
	if end != nil {
		where += ` AND created_at <= ?`
		args = append(args, end.Unix())
	}

	var row supplierStatsRow
	if err := r.db.Get(&row, `
		SELECT COUNT(*) AS total_offers,
		       AVG(effective_price) AS avg_price,
		       MIN(effective_price) AS min_price,
		       MAX(effective_price) AS max_price,
		       AVG(quality_rating)  AS avg_quality
		FROM offers WHERE `+where, args...); err != nil {
		return nil, fmt.Errorf("supplier stats: %w", err)
	}

	// offers that are the cheapest live offer for their item
	var best int
	if err := r.db.Get(&best, `
		SELECT COUNT(*) FROM offers o
		WHERE `+where+` AND o.effective_price = (
		  SELECT MIN(effective_price) FROM offers
		  WHERE inventory_item_id = o.inventory_item_id AND deleted_at IS NULL
		)
	`, args...); err != nil {
		return nil, fmt.Errorf("supplier best-offer count: %w", err)
	}

	stats := &domain.SupplierPerformance{
		SupplierID:     supplierID,
		TotalOffers:    row.TotalOffers,
		BestOfferCount: best,
	}
	if row.AvgPrice != nil {
		stats.AvgPrice = *row.AvgPrice
	}
	if row.MinPrice != nil {
		stats.MinPrice = *row.MinPrice
	}
	if row.MaxPrice != nil {
		stats.MaxPrice = *row.MaxPrice
	}
	if row.AvgQuality != nil {
		stats.AvgQualityRating = *row.AvgQuality
	}
	return stats, nil
}
