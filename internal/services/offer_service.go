package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"priceboard/internal/domain"
	applog "priceboard/internal/log"
	"priceboard/internal/pricing"
	"priceboard/internal/repos"
	"priceboard/internal/units"
)

var (
	ErrItemNotFound     = errors.New("inventory item not found")
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrOfferNotFound    = errors.New("offer not found")
	ErrUnitAlreadySet   = errors.New("canonical unit already set")
	ErrUnknownUnit      = errors.New("unknown unit")
)

// RecordOptions tunes a ledger write derived from an offer. Nil fields take
// the recorder's defaults.
type RecordOptions struct {
	Confidence      *float64
	IncludeShipping *bool
	IncludeTax      *bool
	Notes           string
}

// PriceRecorder is the decoupled post-write hook that samples an offer into
// the historical-price ledger. Callers may run it inline, queue it, or use
// a no-op in tests; its failure never blocks the offer write.
type PriceRecorder interface {
	RecordPriceFromOffer(offer domain.Offer, item domain.InventoryItem, opts RecordOptions) (*domain.HistoricalPrice, error)
}

type OfferService struct {
	Items     *repos.ItemRepo
	Suppliers *repos.SupplierRepo
	Offers    *repos.OfferRepo
	Recorder  PriceRecorder // optional
}

func NewOfferService(items *repos.ItemRepo, suppliers *repos.SupplierRepo, offers *repos.OfferRepo, rec PriceRecorder) *OfferService {
	return &OfferService{Items: items, Suppliers: suppliers, Offers: offers, Recorder: rec}
}

type OfferInput struct {
	InventoryItemID  string   `json:"inventoryItemId" validate:"required"`
	SupplierID       string   `json:"supplierId" validate:"required"`
	TotalPrice       float64  `json:"totalPrice" validate:"gt=0"`
	Currency         string   `json:"currency" validate:"required,min=1,max=8"`
	Amount           float64  `json:"amount" validate:"gt=0"`
	AmountUnit       string   `json:"amountUnit" validate:"required"`
	ShippingCost     *float64 `json:"shippingCost" validate:"omitempty,gte=0"`
	ShippingIncluded bool     `json:"shippingIncluded"`
	IsTaxIncluded    bool     `json:"isTaxIncluded"`
	QualityRating    *float64 `json:"qualityRating" validate:"omitempty,gte=0,lte=5"`
	Notes            string   `json:"notes"`
}

// CreateOffer validates the references, computes the derived metrics and
// persists the offer. The ledger hook runs afterwards, best-effort.
func (s *OfferService) CreateOffer(in OfferInput) (*domain.Offer, error) {
	item, err := s.Items.FindByID(in.InventoryItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, in.InventoryItemID)
	}
	sup, err := s.Suppliers.FindByID(in.SupplierID)
	if err != nil {
		return nil, err
	}
	if sup == nil {
		return nil, fmt.Errorf("%w: %s", ErrSupplierNotFound, in.SupplierID)
	}

	target := units.ConversionTarget{Dimension: item.CanonicalDimension, CanonicalUnit: item.CanonicalUnit}
	m, err := pricing.ComputeMetrics(pricing.Input{
		TotalPrice:       in.TotalPrice,
		Amount:           in.Amount,
		AmountUnit:       in.AmountUnit,
		ShippingCost:     in.ShippingCost,
		ShippingIncluded: in.ShippingIncluded,
	}, target)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	offer := domain.Offer{
		ID:              uuid.NewString(),
		InventoryItemID: in.InventoryItemID,
		SupplierID:      in.SupplierID,
		TotalPrice:      in.TotalPrice,
		Currency:        in.Currency,
		Amount:          in.Amount,
		AmountUnit:      in.AmountUnit,

		AmountCanonical:               m.AmountCanonical,
		PricePerCanonicalExclShipping: m.PricePerCanonicalExclShipping,
		PricePerCanonicalInclShipping: m.PricePerCanonicalInclShipping,
		EffectivePricePerCanonical:    m.EffectivePricePerCanonical,

		ShippingCost:     in.ShippingCost,
		ShippingIncluded: in.ShippingIncluded,
		IsTaxIncluded:    in.IsTaxIncluded,
		QualityRating:    in.QualityRating,
		Notes:            in.Notes,

		ComputedByVersion: pricing.MetricsVersion,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Offers.Create(offer); err != nil {
		return nil, err
	}

	s.recordBestEffort(offer, *item)
	return &offer, nil
}

// OfferChanges is a partial update; nil fields are untouched.
type OfferChanges struct {
	TotalPrice       *float64 `json:"totalPrice" validate:"omitempty,gt=0"`
	Amount           *float64 `json:"amount" validate:"omitempty,gt=0"`
	AmountUnit       *string  `json:"amountUnit" validate:"omitempty,min=1"`
	ShippingCost     *float64 `json:"shippingCost" validate:"omitempty,gte=0"`
	ShippingIncluded *bool    `json:"shippingIncluded"`
	IsTaxIncluded    *bool    `json:"isTaxIncluded"`
	QualityRating    *float64 `json:"qualityRating" validate:"omitempty,gte=0,lte=5"`
	Notes            *string  `json:"notes"`
}

func (c OfferChanges) priceAffecting() bool {
	return c.TotalPrice != nil || c.Amount != nil || c.AmountUnit != nil ||
		c.ShippingCost != nil || c.ShippingIncluded != nil
}

// UpdateOffer applies the changes and, when a price-affecting field moved,
// recomputes the derived metrics and re-samples the ledger.
func (s *OfferService) UpdateOffer(id string, ch OfferChanges) (*domain.Offer, error) {
	offer, err := s.Offers.FindByID(id)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, fmt.Errorf("%w: %s", ErrOfferNotFound, id)
	}

	fields := map[string]any{}
	if ch.TotalPrice != nil {
		offer.TotalPrice = *ch.TotalPrice
		fields["totalPrice"] = *ch.TotalPrice
	}
	if ch.Amount != nil {
		offer.Amount = *ch.Amount
		fields["amount"] = *ch.Amount
	}
	if ch.AmountUnit != nil {
		offer.AmountUnit = *ch.AmountUnit
		fields["amountUnit"] = *ch.AmountUnit
	}
	if ch.ShippingCost != nil {
		offer.ShippingCost = ch.ShippingCost
		fields["shippingCost"] = *ch.ShippingCost
	}
	if ch.ShippingIncluded != nil {
		offer.ShippingIncluded = *ch.ShippingIncluded
		fields["shippingIncluded"] = *ch.ShippingIncluded
	}
	if ch.IsTaxIncluded != nil {
		fields["isTaxIncluded"] = *ch.IsTaxIncluded
	}
	if ch.QualityRating != nil {
		fields["qualityRating"] = *ch.QualityRating
	}
	if ch.Notes != nil {
		fields["notes"] = *ch.Notes
	}

	if ch.priceAffecting() {
		item, err := s.Items.FindByID(offer.InventoryItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, offer.InventoryItemID)
		}
		target := units.ConversionTarget{Dimension: item.CanonicalDimension, CanonicalUnit: item.CanonicalUnit}
		m, err := pricing.ComputeMetrics(pricing.InputFromOffer(*offer), target)
		if err != nil {
			return nil, err
		}
		if _, err := s.Offers.UpdateFields(id, fields); err != nil {
			return nil, err
		}
		if err := s.Offers.UpdateMetrics(id, m, pricing.MetricsVersion); err != nil {
			return nil, err
		}
		updated, err := s.Offers.FindByID(id)
		if err != nil {
			return nil, err
		}
		if updated != nil {
			s.recordBestEffort(*updated, *item)
		}
		return updated, nil
	}

	return s.Offers.UpdateFields(id, fields)
}

func (s *OfferService) DeleteOffer(id string) error {
	return s.Offers.SoftDelete(id)
}

func (s *OfferService) GetOffer(id string) (*domain.Offer, error) {
	offer, err := s.Offers.FindByID(id)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, fmt.Errorf("%w: %s", ErrOfferNotFound, id)
	}
	return offer, nil
}

// recordBestEffort samples the offer into the ledger. Failures are logged
// and discarded; the offer write has already committed.
func (s *OfferService) recordBestEffort(offer domain.Offer, item domain.InventoryItem) {
	if s.Recorder == nil {
		return
	}
	if _, err := s.Recorder.RecordPriceFromOffer(offer, item, RecordOptions{}); err != nil {
		applog.Error(nil, "offer.record_price", err, map[string]any{"offer_id": offer.ID})
	}
}
