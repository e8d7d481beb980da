package domain

import "time"

// Dimension is the measurement dimension an inventory item's quantities
// are normalized under. The set is closed.
type Dimension string

const (
	DimensionMass   Dimension = "mass"
	DimensionVolume Dimension = "volume"
	DimensionCount  Dimension = "count"
	DimensionLength Dimension = "length"
	DimensionArea   Dimension = "area"
)

func (d Dimension) Valid() bool {
	switch d {
	case DimensionMass, DimensionVolume, DimensionCount, DimensionLength, DimensionArea:
		return true
	}
	return false
}

// InventoryItem is the entity offers hang off. Changing CanonicalUnit is
// the event that triggers a cascade recompute of the item's offers.
type InventoryItem struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	CanonicalDimension Dimension `json:"canonicalDimension"`
	CanonicalUnit      string    `json:"canonicalUnit"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Offer is a recorded supplier price for an item. AmountCanonical and the
// three price fields are derived; they are recomputed together whenever a
// price-affecting input or the item's canonical unit changes, never edited
// independently. Currency is stored verbatim and never converted.
type Offer struct {
	ID              string  `json:"id"`
	InventoryItemID string  `json:"inventoryItemId"`
	SupplierID      string  `json:"supplierId"`
	TotalPrice      float64 `json:"totalPrice"`
	Currency        string  `json:"currency"`
	Amount          float64 `json:"amount"`
	AmountUnit      string  `json:"amountUnit"`

	AmountCanonical               float64 `json:"amountCanonical"`
	PricePerCanonicalExclShipping float64 `json:"pricePerCanonicalExclShipping"`
	PricePerCanonicalInclShipping float64 `json:"pricePerCanonicalInclShipping"`
	EffectivePricePerCanonical    float64 `json:"effectivePricePerCanonical"`

	ShippingCost     *float64 `json:"shippingCost,omitempty"`
	ShippingIncluded bool     `json:"shippingIncluded"`
	IsTaxIncluded    bool     `json:"isTaxIncluded"`
	QualityRating    *float64 `json:"qualityRating,omitempty"`
	Notes            string   `json:"notes"`

	ComputedByVersion int        `json:"computedByVersion"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	DeletedAt         *time.Time `json:"deletedAt,omitempty"` // soft delete marker
}

func (o Offer) Deleted() bool { return o.DeletedAt != nil }

// OfferMetrics is the recomputed-together derived portion of an Offer.
type OfferMetrics struct {
	AmountCanonical               float64
	PricePerCanonicalExclShipping float64
	PricePerCanonicalInclShipping float64
	EffectivePricePerCanonical    float64
}

// PriceSource tags where a ledger observation came from.
type PriceSource string

const (
	SourceOffer      PriceSource = "offer"
	SourceAggregated PriceSource = "aggregated"
	SourceManual     PriceSource = "manual"
)

func (s PriceSource) Valid() bool {
	switch s {
	case SourceOffer, SourceAggregated, SourceManual:
		return true
	}
	return false
}

// HistoricalPrice is one append-only ledger observation. Records are never
// mutated; they are only created or pruned by age.
type HistoricalPrice struct {
	ID              string      `json:"id"`
	InventoryItemID string      `json:"inventoryItemId"`
	SupplierID      *string     `json:"supplierId,omitempty"`
	Price           float64     `json:"price"`
	Currency        string      `json:"currency"`
	Unit            string      `json:"unit"`
	Quantity        float64     `json:"quantity"`
	ObservedAt      time.Time   `json:"observedAt"`
	Source          PriceSource `json:"source"`

	OriginalOfferID  *string  `json:"originalOfferId,omitempty"`
	Confidence       float64  `json:"confidence"` // [0,1]
	IncludesShipping bool     `json:"includesShipping"`
	IncludesTax      bool     `json:"includesTax"`
	QualityRating    *float64 `json:"qualityRating,omitempty"`
	Notes            string   `json:"notes"`
	Tags             []string `json:"tags"`
}
