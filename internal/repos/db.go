package repos

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	applog "priceboard/internal/log"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	// Seed a few demo items/suppliers if the DB is empty
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates all tables and indexes. Idempotent; safe to run on
// every start. Timestamps are stored as unix seconds.
func EnsureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS items(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  canonical_dimension TEXT NOT NULL CHECK (canonical_dimension IN ('mass','volume','count','length','area')),
  canonical_unit TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS suppliers(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_suppliers_name_nocase ON suppliers(LOWER(name));

CREATE TABLE IF NOT EXISTS offers(
  id TEXT PRIMARY KEY,
  inventory_item_id TEXT NOT NULL REFERENCES items(id) ON DELETE RESTRICT,
  supplier_id TEXT NOT NULL REFERENCES suppliers(id) ON DELETE RESTRICT,
  total_price REAL NOT NULL CHECK (total_price >= 0),
  currency TEXT NOT NULL,
  amount REAL NOT NULL,
  amount_unit TEXT NOT NULL,
  amount_canonical REAL NOT NULL,
  price_per_canonical_excl REAL NOT NULL,
  price_per_canonical_incl REAL NOT NULL,
  effective_price REAL NOT NULL,
  shipping_cost REAL,
  shipping_included INTEGER NOT NULL DEFAULT 0,
  is_tax_included INTEGER NOT NULL DEFAULT 0,
  quality_rating REAL,
  notes TEXT NOT NULL DEFAULT '',
  computed_by_version INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  deleted_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_offers_item      ON offers(inventory_item_id);
CREATE INDEX IF NOT EXISTS idx_offers_supplier  ON offers(supplier_id);
CREATE INDEX IF NOT EXISTS idx_offers_effective ON offers(effective_price);
CREATE INDEX IF NOT EXISTS idx_offers_deleted   ON offers(deleted_at);

CREATE TABLE IF NOT EXISTS price_history(
  id TEXT PRIMARY KEY,
  inventory_item_id TEXT NOT NULL,
  supplier_id TEXT,
  price REAL NOT NULL,
  currency TEXT NOT NULL,
  unit TEXT NOT NULL,
  quantity REAL NOT NULL,
  observed_at INTEGER NOT NULL,
  source TEXT NOT NULL CHECK (source IN ('offer','aggregated','manual')),
  original_offer_id TEXT,
  confidence REAL NOT NULL DEFAULT 0.8,
  includes_shipping INTEGER NOT NULL DEFAULT 1,
  includes_tax INTEGER NOT NULL DEFAULT 1,
  quality_rating REAL,
  notes TEXT NOT NULL DEFAULT '',
  tags TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_history_item_observed ON price_history(inventory_item_id, observed_at);
CREATE INDEX IF NOT EXISTS idx_history_supplier      ON price_history(supplier_id);
CREATE INDEX IF NOT EXISTS idx_history_source        ON price_history(source);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM items`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	applog.Info(nil, "seed.demo", map[string]any{"tables": "items,suppliers"})

	now := time.Now().Unix()
	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO items(id,name,canonical_dimension,canonical_unit,created_at,updated_at) VALUES
	  ('item-flour','Wheat Flour','mass','g',?,?),
	  ('item-milk','Whole Milk','volume','ml',?,?),
	  ('item-screws','Wood Screws','count','pcs',?,?)`, now, now, now, now, now, now)
	tx.MustExec(`INSERT INTO suppliers(id,name,created_at) VALUES
	  ('sup-north','Northside Wholesale',?),
	  ('sup-mill','Millbrook Goods',?)`, now, now)
	return tx.Commit()
}
