// Package units holds the static unit conversion table and the canonical
// conversion validator. Amounts are converted into an item's canonical
// unit via the dimension's base unit: amount * factor(unit) / factor(canonical).
package units

import (
	"fmt"

	"priceboard/internal/domain"
)

// ConversionTarget is the dimension target an amount is normalized
// against: the item's dimension plus the item's chosen canonical unit.
type ConversionTarget struct {
	Dimension     domain.Dimension
	CanonicalUnit string
}

// ConversionResult reports a conversion attempt. When Valid is false,
// ErrorMessage names the offending unit and dimension.
type ConversionResult struct {
	Valid           bool
	CanonicalAmount float64
	CanonicalUnit   string
	ErrorMessage    string
}

// ValidateAndConvert converts amount from unit into the target's canonical
// unit. Amounts <= 0 are not rejected here; that is the caller's job.
func ValidateAndConvert(amount float64, unit string, target ConversionTarget) ConversionResult {
	from, ok := Factor(unit, target.Dimension)
	if !ok {
		return ConversionResult{
			ErrorMessage: fmt.Sprintf("unknown unit %q for dimension %q", unit, target.Dimension),
		}
	}
	to, ok := Factor(target.CanonicalUnit, target.Dimension)
	if !ok {
		return ConversionResult{
			ErrorMessage: fmt.Sprintf("unknown canonical unit %q for dimension %q", target.CanonicalUnit, target.Dimension),
		}
	}
	return ConversionResult{
		Valid:           true,
		CanonicalAmount: amount * from / to,
		CanonicalUnit:   target.CanonicalUnit,
	}
}
