package services

import (
	"fmt"
	"math"

	"priceboard/internal/domain"
	applog "priceboard/internal/log"
	"priceboard/internal/pricing"
	"priceboard/internal/repos"
	"priceboard/internal/units"
)

// previewSampleLimit caps how many per-offer deltas a preview reports.
const previewSampleLimit = 5

// UnitChangeService re-derives every offer of an item after the item's
// canonical unit changes. Offers are processed one at a time in fetch
// order; a failure on one offer never rolls back the ones already updated.
// Recomputation is idempotent, so re-invoking the cascade is safe.
type UnitChangeService struct {
	Items  *repos.ItemRepo
	Offers *repos.OfferRepo
}

func NewUnitChangeService(items *repos.ItemRepo, offers *repos.OfferRepo) *UnitChangeService {
	return &UnitChangeService{Items: items, Offers: offers}
}

type UnitChange struct {
	InventoryItemID string `json:"inventoryItemId" validate:"required"`
	NewUnit         string `json:"newUnit" validate:"required"`
}

// MutationResult reports a cascade. Success means no offer failed; updates
// that did land stay committed either way.
type MutationResult struct {
	Success       bool     `json:"success"`
	UpdatedOffers int      `json:"updatedOffers"`
	FailedOffers  []string `json:"failedOffers"`
	Errors        []string `json:"errors"`
}

type SampleChange struct {
	OfferID              string  `json:"offerId"`
	OldPricePerCanonical float64 `json:"oldPricePerCanonical"`
	NewPricePerCanonical float64 `json:"newPricePerCanonical"`
	OldAmountCanonical   float64 `json:"oldAmountCanonical"`
	NewAmountCanonical   float64 `json:"newAmountCanonical"`
}

type PreviewResult struct {
	AffectedOffers int            `json:"affectedOffers"`
	SampleChanges  []SampleChange `json:"sampleChanges"`
	Errors         []string       `json:"errors"`
}

// ChangeCanonicalUnit is the caller-facing wrapper: it validates the
// proposed unit, persists it on the item and then runs the cascade.
func (s *UnitChangeService) ChangeCanonicalUnit(ch UnitChange) (*MutationResult, error) {
	item, err := s.Items.FindByID(ch.InventoryItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, ch.InventoryItemID)
	}
	if item.CanonicalUnit == ch.NewUnit {
		return nil, fmt.Errorf("%w: %q", ErrUnitAlreadySet, ch.NewUnit)
	}
	if !units.Known(ch.NewUnit, item.CanonicalDimension) {
		return nil, fmt.Errorf("%w: %q for dimension %q", ErrUnknownUnit, ch.NewUnit, item.CanonicalDimension)
	}
	if err := s.Items.UpdateCanonicalUnit(item.ID, ch.NewUnit); err != nil {
		return nil, err
	}
	return s.MutateOffersForUnitChange(ch)
}

// MutateOffersForUnitChange recomputes the metrics of every live offer of
// the item against its current canonical unit. Run after the unit has been
// persisted. Per-offer failures are collected, not raised.
func (s *UnitChangeService) MutateOffersForUnitChange(ch UnitChange) (*MutationResult, error) {
	offers, err := s.Offers.FindForItem(ch.InventoryItemID)
	if err != nil {
		return nil, err
	}
	result := &MutationResult{Success: true}
	if len(offers) == 0 {
		return result, nil
	}

	// re-fetch for the new canonical unit
	item, err := s.Items.FindByID(ch.InventoryItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, ch.InventoryItemID)
	}
	target := units.ConversionTarget{Dimension: item.CanonicalDimension, CanonicalUnit: item.CanonicalUnit}

	for _, offer := range offers {
		m, err := pricing.ComputeMetrics(pricing.InputFromOffer(offer), target)
		if err != nil {
			result.FailedOffers = append(result.FailedOffers, offer.ID)
			result.Errors = append(result.Errors, fmt.Sprintf("offer %s: %v", offer.ID, err))
			continue
		}
		if metricsUnchanged(offer, m) && offer.ComputedByVersion == pricing.MetricsVersion {
			continue
		}
		if err := s.Offers.UpdateMetrics(offer.ID, m, pricing.MetricsVersion); err != nil {
			result.FailedOffers = append(result.FailedOffers, offer.ID)
			result.Errors = append(result.Errors, fmt.Sprintf("offer %s: %v", offer.ID, err))
			continue
		}
		result.UpdatedOffers++
	}
	result.Success = len(result.FailedOffers) == 0

	applog.Info(nil, "unitchange.cascade", map[string]any{
		"item_id": item.ID,
		"unit":    item.CanonicalUnit,
		"updated": result.UpdatedOffers,
		"failed":  len(result.FailedOffers),
	})
	return result, nil
}

// PreviewUnitChangeImpact runs the cascade read-only for a proposed unit,
// reporting up to previewSampleLimit per-offer deltas. Nothing persists.
func (s *UnitChangeService) PreviewUnitChangeImpact(ch UnitChange) (*PreviewResult, error) {
	item, err := s.Items.FindByID(ch.InventoryItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, ch.InventoryItemID)
	}
	if item.CanonicalUnit == ch.NewUnit {
		return nil, fmt.Errorf("%w: %q", ErrUnitAlreadySet, ch.NewUnit)
	}

	offers, err := s.Offers.FindForItem(ch.InventoryItemID)
	if err != nil {
		return nil, err
	}
	result := &PreviewResult{AffectedOffers: len(offers)}
	target := units.ConversionTarget{Dimension: item.CanonicalDimension, CanonicalUnit: ch.NewUnit}

	for _, offer := range offers {
		if len(result.SampleChanges) >= previewSampleLimit {
			break
		}
		m, err := pricing.ComputeMetrics(pricing.InputFromOffer(offer), target)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("offer %s: %v", offer.ID, err))
			continue
		}
		result.SampleChanges = append(result.SampleChanges, SampleChange{
			OfferID:              offer.ID,
			OldPricePerCanonical: offer.EffectivePricePerCanonical,
			NewPricePerCanonical: m.EffectivePricePerCanonical,
			OldAmountCanonical:   offer.AmountCanonical,
			NewAmountCanonical:   m.AmountCanonical,
		})
	}
	return result, nil
}

func metricsUnchanged(o domain.Offer, m domain.OfferMetrics) bool {
	const eps = 1e-9
	return math.Abs(o.AmountCanonical-m.AmountCanonical) < eps &&
		math.Abs(o.PricePerCanonicalExclShipping-m.PricePerCanonicalExclShipping) < eps &&
		math.Abs(o.PricePerCanonicalInclShipping-m.PricePerCanonicalInclShipping) < eps &&
		math.Abs(o.EffectivePricePerCanonical-m.EffectivePricePerCanonical) < eps
}
