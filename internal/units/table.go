package units

import (
	"sort"

	"priceboard/internal/domain"
)

type key struct {
	unit string
	dim  domain.Dimension
}

// baseUnits names the single factor-1 unit per dimension.
var baseUnits = map[domain.Dimension]string{
	domain.DimensionMass:   "g",
	domain.DimensionVolume: "ml",
	domain.DimensionCount:  "pcs",
	domain.DimensionLength: "m",
	domain.DimensionArea:   "m2",
}

// factors maps (unit, dimension) to the multiplier into the dimension's
// base unit. Lookup is by exact string match; case variants such as
// "l"/"L" and "ml"/"mL" are stored as separate explicit entries rather
// than case-folded. The table never mutates at runtime.
var factors = map[key]float64{
	// mass, base g
	{"mg", domain.DimensionMass}: 0.001,
	{"g", domain.DimensionMass}:  1,
	{"kg", domain.DimensionMass}: 1000,
	{"t", domain.DimensionMass}:  1_000_000,
	{"oz", domain.DimensionMass}: 28.3495,
	{"lb", domain.DimensionMass}: 453.592,

	// volume, base ml
	{"ml", domain.DimensionVolume}:  1,
	{"mL", domain.DimensionVolume}:  1,
	{"cl", domain.DimensionVolume}:  10,
	{"dl", domain.DimensionVolume}:  100,
	{"l", domain.DimensionVolume}:   1000,
	{"L", domain.DimensionVolume}:   1000,
	{"gal", domain.DimensionVolume}: 3785.41,

	// count, base pcs
	{"pcs", domain.DimensionCount}:   1,
	{"pc", domain.DimensionCount}:    1,
	{"piece", domain.DimensionCount}: 1,
	{"pair", domain.DimensionCount}:  2,
	{"dozen", domain.DimensionCount}: 12,

	// length, base m
	{"mm", domain.DimensionLength}: 0.001,
	{"cm", domain.DimensionLength}: 0.01,
	{"m", domain.DimensionLength}:  1,
	{"km", domain.DimensionLength}: 1000,
	{"in", domain.DimensionLength}: 0.0254,
	{"ft", domain.DimensionLength}: 0.3048,

	// area, base m2
	{"cm2", domain.DimensionArea}: 0.0001,
	{"m2", domain.DimensionArea}:  1,
	{"ha", domain.DimensionArea}:  10_000,
	{"ft2", domain.DimensionArea}: 0.092903,
}

// Factor returns the multiplier into the dimension's base unit.
func Factor(unit string, dim domain.Dimension) (float64, bool) {
	f, ok := factors[key{unit, dim}]
	return f, ok
}

// Known reports whether the unit exists for the dimension.
func Known(unit string, dim domain.Dimension) bool {
	_, ok := factors[key{unit, dim}]
	return ok
}

// BaseUnit returns the dimension's factor-1 unit.
func BaseUnit(dim domain.Dimension) string { return baseUnits[dim] }

// CanonicalUnits lists the units of a dimension that an item may pick as
// its canonical unit, sorted for stable output.
func CanonicalUnits(dim domain.Dimension) []string {
	var out []string
	for k := range factors {
		if k.dim == dim {
			out = append(out, k.unit)
		}
	}
	sort.Strings(out)
	return out
}
