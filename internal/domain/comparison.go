package domain

import "time"

// SortStrategy selects the primary sort of a comparison query.
type SortStrategy string

const (
	SortEffectivePriceAsc SortStrategy = "effective_price_asc"
	SortPriceExclAsc      SortStrategy = "price_excl_asc"
	SortTotalPriceAsc     SortStrategy = "total_price_asc"
	SortNewestFirst       SortStrategy = "newest_first"
)

func (s SortStrategy) Valid() bool {
	switch s {
	case SortEffectivePriceAsc, SortPriceExclAsc, SortTotalPriceAsc, SortNewestFirst:
		return true
	}
	return false
}

type ComparisonConfig struct {
	Sort  SortStrategy
	Limit int
}

// OfferFilters narrows a comparison query. Zero-value fields are ignored.
type OfferFilters struct {
	InventoryItemID string
	SupplierID      string
	Start           *time.Time
	End             *time.Time
}

type ComparisonMeta struct {
	TotalCount      int   `json:"totalCount"`
	ReturnedCount   int   `json:"returnedCount"`
	ExecutionTimeMs int64 `json:"executionTimeMs"`
}

type ComparisonResult struct {
	Results []Offer        `json:"results"`
	Meta    ComparisonMeta `json:"meta"`
}

// ItemBestOffer pairs an item with its cheapest live offer, if any.
type ItemBestOffer struct {
	Item      InventoryItem `json:"item"`
	BestOffer *Offer        `json:"bestOffer,omitempty"`
}

// SupplierPerformance aggregates a supplier's offer record. BestOfferCount
// counts offers that are the cheapest live offer for their item.
type SupplierPerformance struct {
	SupplierID       string  `json:"supplierId"`
	TotalOffers      int     `json:"totalOffers"`
	AvgPrice         float64 `json:"avgPrice"`
	MinPrice         float64 `json:"minPrice"`
	MaxPrice         float64 `json:"maxPrice"`
	BestOfferCount   int     `json:"bestOfferCount"`
	AvgQualityRating float64 `json:"avgQualityRating"`
}
