package pricing_test

import (
	"errors"
	"math"
	"testing"

	"priceboard/internal/domain"
	"priceboard/internal/pricing"
	"priceboard/internal/units"
)

func massTarget(canonical string) units.ConversionTarget {
	return units.ConversionTarget{Dimension: domain.DimensionMass, CanonicalUnit: canonical}
}

func TestComputeMetricsGramCanonical(t *testing.T) {
	// 1000 g for 10 with a g-canonical item: 0.01 per g
	m, err := pricing.ComputeMetrics(pricing.Input{TotalPrice: 10, Amount: 1000, AmountUnit: "g"}, massTarget("g"))
	if err != nil {
		t.Fatal(err)
	}
	if m.AmountCanonical != 1000 {
		t.Fatalf("want canonical 1000, got %v", m.AmountCanonical)
	}
	if math.Abs(m.PricePerCanonicalExclShipping-0.01) > 1e-12 {
		t.Fatalf("want 0.01/g, got %v", m.PricePerCanonicalExclShipping)
	}
}

func TestComputeMetricsKilogramCanonical(t *testing.T) {
	// same offer against a kg-canonical item: 1 kg at 10.0 per kg
	m, err := pricing.ComputeMetrics(pricing.Input{TotalPrice: 10, Amount: 1000, AmountUnit: "g"}, massTarget("kg"))
	if err != nil {
		t.Fatal(err)
	}
	if m.AmountCanonical != 1 || m.PricePerCanonicalExclShipping != 10.0 {
		t.Fatalf("want 1 kg at 10.0, got %+v", m)
	}
}

func TestComputeMetricsLitreCanonical(t *testing.T) {
	target := units.ConversionTarget{Dimension: domain.DimensionVolume, CanonicalUnit: "ml"}
	m, err := pricing.ComputeMetrics(pricing.Input{TotalPrice: 20, Amount: 1000, AmountUnit: "ml"}, target)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m.PricePerCanonicalExclShipping-0.02) > 1e-12 {
		t.Fatalf("want 0.02/ml, got %v", m.PricePerCanonicalExclShipping)
	}

	target.CanonicalUnit = "L"
	m, err = pricing.ComputeMetrics(pricing.Input{TotalPrice: 20, Amount: 1000, AmountUnit: "ml"}, target)
	if err != nil {
		t.Fatal(err)
	}
	if m.AmountCanonical != 1 || m.PricePerCanonicalExclShipping != 20.0 {
		t.Fatalf("want 1 L at 20.0, got %+v", m)
	}
}

func TestComputeMetricsShipping(t *testing.T) {
	ship := 5.0
	in := pricing.Input{TotalPrice: 10, Amount: 1000, AmountUnit: "g", ShippingCost: &ship}
	m, err := pricing.ComputeMetrics(in, massTarget("g"))
	if err != nil {
		t.Fatal(err)
	}
	// shipping not included in the total: incl must exceed excl
	if m.PricePerCanonicalInclShipping <= m.PricePerCanonicalExclShipping {
		t.Fatalf("incl %v should exceed excl %v", m.PricePerCanonicalInclShipping, m.PricePerCanonicalExclShipping)
	}
	if math.Abs(m.PricePerCanonicalInclShipping-0.015) > 1e-12 {
		t.Fatalf("want 0.015, got %v", m.PricePerCanonicalInclShipping)
	}
	if m.EffectivePricePerCanonical != m.PricePerCanonicalInclShipping {
		t.Fatal("effective price should equal price incl shipping")
	}

	// shipping already folded into the total: no surcharge
	in.ShippingIncluded = true
	m, err = pricing.ComputeMetrics(in, massTarget("g"))
	if err != nil {
		t.Fatal(err)
	}
	if m.PricePerCanonicalInclShipping != m.PricePerCanonicalExclShipping {
		t.Fatalf("included shipping must not add: %+v", m)
	}
}

func TestComputeMetricsZeroShippingEquality(t *testing.T) {
	m, err := pricing.ComputeMetrics(pricing.Input{TotalPrice: 10, Amount: 500, AmountUnit: "g"}, massTarget("g"))
	if err != nil {
		t.Fatal(err)
	}
	if m.PricePerCanonicalInclShipping != m.PricePerCanonicalExclShipping {
		t.Fatalf("no shipping cost, prices must match: %+v", m)
	}
}

func TestComputeMetricsUnknownUnit(t *testing.T) {
	_, err := pricing.ComputeMetrics(pricing.Input{TotalPrice: 10, Amount: 1, AmountUnit: "banana"}, massTarget("g"))
	if !errors.Is(err, pricing.ErrInvalidConversion) {
		t.Fatalf("want ErrInvalidConversion, got %v", err)
	}
}

func TestComputeMetricsNonPositiveAmount(t *testing.T) {
	_, err := pricing.ComputeMetrics(pricing.Input{TotalPrice: 10, Amount: 0, AmountUnit: "g"}, massTarget("g"))
	if !errors.Is(err, pricing.ErrNonPositiveAmount) {
		t.Fatalf("want ErrNonPositiveAmount, got %v", err)
	}
}
