package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"priceboard/internal/domain"
)

type ItemRepo struct{ db *sqlx.DB }

func NewItemRepo(db *sqlx.DB) *ItemRepo { return &ItemRepo{db: db} }

type itemRow struct {
	ID                 string `db:"id"`
	Name               string `db:"name"`
	CanonicalDimension string `db:"canonical_dimension"`
	CanonicalUnit      string `db:"canonical_unit"`
	CreatedAt          int64  `db:"created_at"`
	UpdatedAt          int64  `db:"updated_at"`
}

func (r itemRow) toDomain() domain.InventoryItem {
	return domain.InventoryItem{
		ID:                 r.ID,
		Name:               r.Name,
		CanonicalDimension: domain.Dimension(r.CanonicalDimension),
		CanonicalUnit:      r.CanonicalUnit,
		CreatedAt:          fromUnix(r.CreatedAt),
		UpdatedAt:          fromUnix(r.UpdatedAt),
	}
}

// FindByID returns nil without error when the item does not exist.
func (r *ItemRepo) FindByID(id string) (*domain.InventoryItem, error) {
	var row itemRow
	err := r.db.Get(&row, `
		SELECT id, name, canonical_dimension, canonical_unit, created_at, updated_at
		FROM items WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	it := row.toDomain()
	return &it, nil
}

func (r *ItemRepo) List() ([]domain.InventoryItem, error) {
	var rows []itemRow
	if err := r.db.Select(&rows, `
		SELECT id, name, canonical_dimension, canonical_unit, created_at, updated_at
		FROM items ORDER BY name
	`); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([]domain.InventoryItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *ItemRepo) Create(it domain.InventoryItem) error {
	_, err := r.db.Exec(`
		INSERT INTO items(id, name, canonical_dimension, canonical_unit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, it.ID, it.Name, string(it.CanonicalDimension), it.CanonicalUnit, it.CreatedAt.Unix(), it.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// UpdateCanonicalUnit sets the unit under which all of the item's offer
// amounts are normalized. The caller is responsible for cascading.
func (r *ItemRepo) UpdateCanonicalUnit(id, unit string) error {
	res, err := r.db.Exec(`
		UPDATE items SET canonical_unit = ?, updated_at = ? WHERE id = ?
	`, unit, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("update item unit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("item %s not found", id)
	}
	return nil
}
