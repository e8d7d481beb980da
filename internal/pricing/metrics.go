// Package pricing derives the per-canonical-unit price metrics of an offer.
package pricing

import (
	"errors"
	"fmt"

	"priceboard/internal/domain"
	"priceboard/internal/units"
)

// MetricsVersion tags every persisted metrics computation so stale rows can
// be told apart after the formula changes.
const MetricsVersion = 2

var (
	ErrInvalidConversion = errors.New("conversion failed")
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// Input is the raw offer data the calculator works from.
type Input struct {
	TotalPrice       float64
	Amount           float64
	AmountUnit       string
	ShippingCost     *float64
	ShippingIncluded bool
}

// ComputeMetrics converts the offer amount into the target's canonical unit
// and derives the three price-per-canonical-unit figures. Pure; conversion
// failures surface as ErrInvalidConversion wrapping the table's message.
func ComputeMetrics(in Input, target units.ConversionTarget) (domain.OfferMetrics, error) {
	res := units.ValidateAndConvert(in.Amount, in.AmountUnit, target)
	if !res.Valid {
		return domain.OfferMetrics{}, fmt.Errorf("%w: %s", ErrInvalidConversion, res.ErrorMessage)
	}
	if res.CanonicalAmount <= 0 {
		return domain.OfferMetrics{}, ErrNonPositiveAmount
	}

	shipping := 0.0
	if in.ShippingCost != nil {
		shipping = *in.ShippingCost
	}
	totalWithShipping := in.TotalPrice
	if !in.ShippingIncluded {
		totalWithShipping += shipping
	}

	excl := in.TotalPrice / res.CanonicalAmount
	incl := totalWithShipping / res.CanonicalAmount
	return domain.OfferMetrics{
		AmountCanonical:               res.CanonicalAmount,
		PricePerCanonicalExclShipping: excl,
		PricePerCanonicalInclShipping: incl,
		EffectivePricePerCanonical:    effectivePrice(incl),
	}, nil
}

// effectivePrice is the extension point for tax and bulk-discount
// adjustments. Today the effective price equals the price including
// shipping.
func effectivePrice(priceInclShipping float64) float64 {
	return priceInclShipping
}

// InputFromOffer rebuilds the calculator input from a stored offer's
// original fields, as the cascade recompute does.
func InputFromOffer(o domain.Offer) Input {
	return Input{
		TotalPrice:       o.TotalPrice,
		Amount:           o.Amount,
		AmountUnit:       o.AmountUnit,
		ShippingCost:     o.ShippingCost,
		ShippingIncluded: o.ShippingIncluded,
	}
}
