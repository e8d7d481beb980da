package repos

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"priceboard/internal/domain"
)

// HistoryRepo owns the append-only price ledger. Rows are only ever
// inserted or pruned by age.
type HistoryRepo struct{ db *sqlx.DB }

func NewHistoryRepo(db *sqlx.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// HistoryQuery narrows a ledger read. Nil/zero fields are ignored.
type HistoryQuery struct {
	Start      *time.Time
	End        *time.Time
	SupplierID *string
	Source     domain.PriceSource
	Limit      int
	Ascending  bool // default is newest first
}

type historyRow struct {
	ID              string   `db:"id"`
	InventoryItemID string   `db:"inventory_item_id"`
	SupplierID      *string  `db:"supplier_id"`
	Price           float64  `db:"price"`
	Currency        string   `db:"currency"`
	Unit            string   `db:"unit"`
	Quantity        float64  `db:"quantity"`
	ObservedAt      int64    `db:"observed_at"`
	Source          string   `db:"source"`
	OriginalOfferID *string  `db:"original_offer_id"`
	Confidence      float64  `db:"confidence"`
	IncludesShip    bool     `db:"includes_shipping"`
	IncludesTax     bool     `db:"includes_tax"`
	QualityRating   *float64 `db:"quality_rating"`
	Notes           string   `db:"notes"`
	Tags            string   `db:"tags"`
}

func (r historyRow) toDomain() domain.HistoricalPrice {
	var tags []string
	_ = json.Unmarshal([]byte(r.Tags), &tags)
	return domain.HistoricalPrice{
		ID:              r.ID,
		InventoryItemID: r.InventoryItemID,
		SupplierID:      r.SupplierID,
		Price:           r.Price,
		Currency:        r.Currency,
		Unit:            r.Unit,
		Quantity:        r.Quantity,
		ObservedAt:      fromUnix(r.ObservedAt),
		Source:          domain.PriceSource(r.Source),

		OriginalOfferID:  r.OriginalOfferID,
		Confidence:       r.Confidence,
		IncludesShipping: r.IncludesShip,
		IncludesTax:      r.IncludesTax,
		QualityRating:    r.QualityRating,
		Notes:            r.Notes,
		Tags:             tags,
	}
}

const historyCols = `
	id, inventory_item_id, supplier_id, price, currency, unit, quantity, observed_at, source,
	original_offer_id, confidence, includes_shipping, includes_tax, quality_rating, notes, tags`

func insertHistoryArgs(p domain.HistoricalPrice) []any {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, _ := json.Marshal(tags)
	return []any{
		p.ID, p.InventoryItemID, p.SupplierID, p.Price, p.Currency, p.Unit, p.Quantity,
		p.ObservedAt.Unix(), string(p.Source),
		p.OriginalOfferID, p.Confidence, p.IncludesShipping, p.IncludesTax,
		p.QualityRating, p.Notes, string(encoded),
	}
}

func (r *HistoryRepo) Create(p domain.HistoricalPrice) error {
	_, err := r.db.Exec(`
		INSERT INTO price_history(`+historyCols+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`, insertHistoryArgs(p)...)
	if err != nil {
		return fmt.Errorf("insert historical price: %w", err)
	}
	return nil
}

func (r *HistoryRepo) CreateMany(prices []domain.HistoricalPrice) error {
	if len(prices) == 0 {
		return nil
	}
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, p := range prices {
		if _, err := tx.Exec(`
			INSERT INTO price_history(`+historyCols+`)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		`, insertHistoryArgs(p)...); err != nil {
			return fmt.Errorf("insert historical price: %w", err)
		}
	}
	return tx.Commit()
}

func historyWhere(itemID string, q HistoryQuery) (string, []any) {
	where := `inventory_item_id = ?`
	args := []any{itemID}
	if q.Start != nil {
		where += ` AND observed_at >= ?`
		args = append(args, q.Start.Unix())
	}
	if q.End != nil {
		where += ` AND observed_at <= ?`
		args = append(args, q.End.Unix())
	}
	if q.SupplierID != nil {
		where += ` AND supplier_id = ?`
		args = append(args, *q.SupplierID)
	}
	if q.Source != "" {
		where += ` AND source = ?`
		args = append(args, string(q.Source))
	}
	return where, args
}

// ForItem reads ledger rows for an item, newest first unless Ascending.
func (r *HistoryRepo) ForItem(itemID string, q HistoryQuery) ([]domain.HistoricalPrice, error) {
	where, args := historyWhere(itemID, q)
	order := `observed_at DESC, id DESC`
	if q.Ascending {
		order = `observed_at ASC, id ASC`
	}
	query := `SELECT ` + historyCols + ` FROM price_history WHERE ` + where + ` ORDER BY ` + order
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	var rows []historyRow
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	out := make([]domain.HistoricalPrice, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Best returns the single lowest-price record in the filtered window, or
// nil when the window is empty.
func (r *HistoryRepo) Best(itemID string, q HistoryQuery) (*domain.HistoricalPrice, error) {
	where, args := historyWhere(itemID, q)
	var row historyRow
	err := r.db.Get(&row, `
		SELECT `+historyCols+` FROM price_history
		WHERE `+where+`
		ORDER BY price ASC, observed_at DESC
		LIMIT 1
	`, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query best price: %w", err)
	}
	p := row.toDomain()
	return &p, nil
}

// CleanupOldData prunes rows older than the cutoff and reports how many
// were removed.
func (r *HistoryRepo) CleanupOldData(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).Unix()
	res, err := r.db.Exec(`DELETE FROM price_history WHERE observed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
