package repos

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"priceboard/internal/domain"
)

type SupplierRepo struct{ db *sqlx.DB }

func NewSupplierRepo(db *sqlx.DB) *SupplierRepo { return &SupplierRepo{db: db} }

type supplierRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	CreatedAt int64  `db:"created_at"`
}

func (r *SupplierRepo) Create(s domain.Supplier) error {
	_, err := r.db.Exec(`
		INSERT INTO suppliers(id, name, created_at) VALUES (?, ?, ?)
	`, s.ID, s.Name, s.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

func (r *SupplierRepo) FindByID(id string) (*domain.Supplier, error) {
	var row supplierRow
	err := r.db.Get(&row, `SELECT id, name, created_at FROM suppliers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query supplier: %w", err)
	}
	return &domain.Supplier{ID: row.ID, Name: row.Name, CreatedAt: fromUnix(row.CreatedAt)}, nil
}

func (r *SupplierRepo) List() ([]domain.Supplier, error) {
	var rows []supplierRow
	if err := r.db.Select(&rows, `SELECT id, name, created_at FROM suppliers ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	out := make([]domain.Supplier, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Supplier{ID: row.ID, Name: row.Name, CreatedAt: fromUnix(row.CreatedAt)})
	}
	return out, nil
}
