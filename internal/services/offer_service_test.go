package services_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"priceboard/internal/domain"
	"priceboard/internal/pricing"
	"priceboard/internal/repos"
	"priceboard/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	// a second pool connection would see a fresh empty database
	db.SetMaxOpenConns(1)
	if err := repos.EnsureSchema(db); err != nil {
		t.Fatal(err)
	}
	return db
}

func seedItem(t *testing.T, db *sqlx.DB, id string, dim domain.Dimension, unit string) {
	t.Helper()
	now := time.Now().UTC()
	if err := repos.NewItemRepo(db).Create(domain.InventoryItem{
		ID: id, Name: id, CanonicalDimension: dim, CanonicalUnit: unit,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}
}

func seedSupplier(t *testing.T, db *sqlx.DB, id string) {
	t.Helper()
	if err := repos.NewSupplierRepo(db).Create(domain.Supplier{
		ID: id, Name: id, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}
}

func newOfferService(db *sqlx.DB, rec services.PriceRecorder) *services.OfferService {
	return services.NewOfferService(
		repos.NewItemRepo(db), repos.NewSupplierRepo(db), repos.NewOfferRepo(db), rec)
}

func TestOfferService_CreateComputesMetrics(t *testing.T) {
	db := memdb(t)
	seedItem(t, db, "item-flour", domain.DimensionMass, "g")
	seedSupplier(t, db, "sup-1")

	svc := newOfferService(db, nil)
	offer, err := svc.CreateOffer(services.OfferInput{
		InventoryItemID: "item-flour", SupplierID: "sup-1",
		TotalPrice: 10, Currency: "EUR", Amount: 1000, AmountUnit: "g",
	})
	if err != nil {
		t.Fatal(err)
	}
	if offer.AmountCanonical != 1000 {
		t.Fatalf("want canonical 1000, got %v", offer.AmountCanonical)
	}
	if math.Abs(offer.PricePerCanonicalExclShipping-0.01) > 1e-12 {
		t.Fatalf("want 0.01/g, got %v", offer.PricePerCanonicalExclShipping)
	}
	if offer.ComputedByVersion != pricing.MetricsVersion {
		t.Fatalf("missing version tag: %+v", offer)
	}
}

func TestOfferService_CreateUnknownUnit(t *testing.T) {
	db := memdb(t)
	seedItem(t, db, "item-flour", domain.DimensionMass, "g")
	seedSupplier(t, db, "sup-1")

	svc := newOfferService(db, nil)
	_, err := svc.CreateOffer(services.OfferInput{
		InventoryItemID: "item-flour", SupplierID: "sup-1",
		TotalPrice: 10, Currency: "EUR", Amount: 5, AmountUnit: "banana",
	})
	if !errors.Is(err, pricing.ErrInvalidConversion) {
		t.Fatalf("want conversion error, got %v", err)
	}
}

func TestOfferService_CreateMissingItem(t *testing.T) {
	db := memdb(t)
	seedSupplier(t, db, "sup-1")

	svc := newOfferService(db, nil)
	_, err := svc.CreateOffer(services.OfferInput{
		InventoryItemID: "ghost", SupplierID: "sup-1",
		TotalPrice: 10, Currency: "EUR", Amount: 1, AmountUnit: "g",
	})
	if !errors.Is(err, services.ErrItemNotFound) {
		t.Fatalf("want ErrItemNotFound, got %v", err)
	}
}

func TestOfferService_RecorderHookSamplesLedger(t *testing.T) {
	db := memdb(t)
	seedItem(t, db, "item-milk", domain.DimensionVolume, "ml")
	seedSupplier(t, db, "sup-1")
	histRepo := repos.NewHistoryRepo(db)
	hist := services.NewHistoryService(histRepo)

	svc := newOfferService(db, hist)
	offer, err := svc.CreateOffer(services.OfferInput{
		InventoryItemID: "item-milk", SupplierID: "sup-1",
		TotalPrice: 20, Currency: "EUR", Amount: 1000, AmountUnit: "ml",
	})
	if err != nil {
		t.Fatal(err)
	}

	rows, err := histRepo.ForItem("item-milk", repos.HistoryQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 ledger row, got %d", len(rows))
	}
	rec := rows[0]
	if rec.Source != domain.SourceOffer || rec.Price != offer.EffectivePricePerCanonical {
		t.Fatalf("bad ledger row: %+v", rec)
	}
	if rec.OriginalOfferID == nil || *rec.OriginalOfferID != offer.ID {
		t.Fatalf("ledger row should point at the offer: %+v", rec)
	}
	if rec.Confidence != 0.8 || !rec.IncludesShipping || !rec.IncludesTax {
		t.Fatalf("defaults not applied: %+v", rec)
	}
}

// a recorder that always fails; offer writes must not notice
type failingRecorder struct{}

func (failingRecorder) RecordPriceFromOffer(domain.Offer, domain.InventoryItem, services.RecordOptions) (*domain.HistoricalPrice, error) {
	return nil, errors.New("ledger unavailable")
}

func TestOfferService_RecorderFailureIsSwallowed(t *testing.T) {
	db := memdb(t)
	seedItem(t, db, "item-flour", domain.DimensionMass, "g")
	seedSupplier(t, db, "sup-1")

	svc := newOfferService(db, failingRecorder{})
	offer, err := svc.CreateOffer(services.OfferInput{
		InventoryItemID: "item-flour", SupplierID: "sup-1",
		TotalPrice: 10, Currency: "EUR", Amount: 100, AmountUnit: "g",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, err := svc.GetOffer(offer.ID); err != nil || got == nil {
		t.Fatalf("offer should be committed despite recorder failure: %v", err)
	}
}

func TestOfferService_UpdateRecomputesMetrics(t *testing.T) {
	db := memdb(t)
	seedItem(t, db, "item-flour", domain.DimensionMass, "g")
	seedSupplier(t, db, "sup-1")

	svc := newOfferService(db, nil)
	offer, err := svc.CreateOffer(services.OfferInput{
		InventoryItemID: "item-flour", SupplierID: "sup-1",
		TotalPrice: 10, Currency: "EUR", Amount: 1000, AmountUnit: "g",
	})
	if err != nil {
		t.Fatal(err)
	}

	newTotal := 20.0
	updated, err := svc.UpdateOffer(offer.ID, services.OfferChanges{TotalPrice: &newTotal})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(updated.PricePerCanonicalExclShipping-0.02) > 1e-12 {
		t.Fatalf("metrics not recomputed: %+v", updated)
	}

	// a non-price field leaves metrics alone
	notes := "bulk pallet"
	updated, err = svc.UpdateOffer(offer.ID, services.OfferChanges{Notes: &notes})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Notes != "bulk pallet" || math.Abs(updated.PricePerCanonicalExclShipping-0.02) > 1e-12 {
		t.Fatalf("bad update: %+v", updated)
	}
}

func TestOfferService_SoftDelete(t *testing.T) {
	db := memdb(t)
	seedItem(t, db, "item-flour", domain.DimensionMass, "g")
	seedSupplier(t, db, "sup-1")

	svc := newOfferService(db, nil)
	offer, err := svc.CreateOffer(services.OfferInput{
		InventoryItemID: "item-flour", SupplierID: "sup-1",
		TotalPrice: 10, Currency: "EUR", Amount: 100, AmountUnit: "g",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteOffer(offer.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetOffer(offer.ID); !errors.Is(err, services.ErrOfferNotFound) {
		t.Fatalf("deleted offer should be invisible, got %v", err)
	}
	// row still exists, only marked
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM offers WHERE id = ? AND deleted_at IS NOT NULL`, offer.ID); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatal("soft delete should keep the row")
	}
}
