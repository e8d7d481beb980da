package domain

import "time"

// Period is a closed set of analysis windows ending at "now".
type Period string

const (
	Period1d  Period = "1d"
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"
	Period1y  Period = "1y"
	PeriodAll Period = "all"
)

func (p Period) Valid() bool {
	switch p {
	case Period1d, Period7d, Period30d, Period90d, Period1y, PeriodAll:
		return true
	}
	return false
}

// Bounds returns the [start, end] window for the period, ending at now.
// For PeriodAll the start is the zero time.
func (p Period) Bounds(now time.Time) (start, end time.Time) {
	end = now
	switch p {
	case Period1d:
		start = now.AddDate(0, 0, -1)
	case Period7d:
		start = now.AddDate(0, 0, -7)
	case Period30d:
		start = now.AddDate(0, 0, -30)
	case Period90d:
		start = now.AddDate(0, 0, -90)
	case Period1y:
		start = now.AddDate(-1, 0, 0)
	case PeriodAll:
		start = time.Time{}
	}
	return start, end
}

type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// PriceTrend is computed on demand and never persisted.
type PriceTrend struct {
	Direction           TrendDirection   `json:"direction"`
	Strength            float64          `json:"strength"`   // [0,1]
	Confidence          float64          `json:"confidence"` // [0,1]
	Statistics          *PriceStatistics `json:"statistics,omitempty"`
	BestHistoricalPrice *HistoricalPrice `json:"bestHistoricalPrice,omitempty"`
}

// PriceStatistics describes a price series over a window. Volatility is the
// standard deviation divided by the average, as a percentage.
type PriceStatistics struct {
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
	Average           float64 `json:"average"`
	Median            float64 `json:"median"`
	StandardDeviation float64 `json:"standardDeviation"`
	Volatility        float64 `json:"volatility"`
	DataPoints        int     `json:"dataPoints"`
}

type AlertType string

const (
	AlertIncrease AlertType = "increase"
	AlertDecrease AlertType = "decrease"
)

// PriceAlert flags a consecutive-observation change at or above a threshold.
type PriceAlert struct {
	Type          AlertType `json:"type"`
	Percentage    float64   `json:"percentage"`
	CurrentPrice  float64   `json:"currentPrice"`
	PreviousPrice float64   `json:"previousPrice"`
	Date          time.Time `json:"date"`
	SupplierID    *string   `json:"supplierId,omitempty"`
}

// PriceHistorySummary is the composed at-a-glance view of an item's ledger.
type PriceHistorySummary struct {
	CurrentPrice   float64     `json:"currentPrice"`
	BestPrice      float64     `json:"bestPrice"`
	AveragePrice   float64     `json:"averagePrice"`
	MinPrice       float64     `json:"minPrice"`
	MaxPrice       float64     `json:"maxPrice"`
	Trend          *PriceTrend `json:"trend,omitempty"`
	SupplierCount  int         `json:"supplierCount"`
	DataPoints     int         `json:"dataPoints"`
	LastObservedAt time.Time   `json:"lastObservedAt"`
}
