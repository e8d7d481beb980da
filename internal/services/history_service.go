package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"priceboard/internal/domain"
	"priceboard/internal/repos"
)

const (
	defaultOfferConfidence      = 0.8
	defaultAggregatedConfidence = 0.6
	defaultMinDataPoints        = 2
	defaultAlertThreshold       = 10.0
	defaultAlertPeriod          = domain.Period7d
	defaultTrendPeriod          = domain.Period30d

	// trend tuning: relative projected changes inside the band are
	// "stable"; strength saturates at fullStrengthPct.
	stableBandPct   = 2.0
	fullStrengthPct = 25.0
)

// HistoryService owns the append-only ledger and the analytics derived from
// it. It implements PriceRecorder.
type HistoryService struct {
	History *repos.HistoryRepo
	Now     func() time.Time // nil means time.Now
}

func NewHistoryService(history *repos.HistoryRepo) *HistoryService {
	return &HistoryService{History: history}
}

func (s *HistoryService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// RecordPrice appends a manually sourced observation.
func (s *HistoryService) RecordPrice(p domain.HistoricalPrice) (*domain.HistoricalPrice, error) {
	if p.InventoryItemID == "" {
		return nil, fmt.Errorf("%w: missing item", ErrItemNotFound)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.ObservedAt.IsZero() {
		p.ObservedAt = s.now()
	}
	if p.Source == "" {
		p.Source = domain.SourceManual
	}
	p.Confidence = clamp01(p.Confidence)
	if err := s.History.Create(p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RecordPriceFromOffer samples an offer's effective per-canonical price
// into the ledger.
func (s *HistoryService) RecordPriceFromOffer(offer domain.Offer, item domain.InventoryItem, opts RecordOptions) (*domain.HistoricalPrice, error) {
	supplierID := offer.SupplierID
	p := domain.HistoricalPrice{
		ID:              uuid.NewString(),
		InventoryItemID: item.ID,
		SupplierID:      &supplierID,
		Price:           offer.EffectivePricePerCanonical,
		Currency:        offer.Currency,
		Unit:            item.CanonicalUnit,
		Quantity:        offer.AmountCanonical,
		ObservedAt:      s.now(),
		Source:          domain.SourceOffer,

		OriginalOfferID:  &offer.ID,
		Confidence:       orDefault(opts.Confidence, defaultOfferConfidence),
		IncludesShipping: orDefaultBool(opts.IncludeShipping, true),
		IncludesTax:      orDefaultBool(opts.IncludeTax, true),
		QualityRating:    offer.QualityRating,
		Notes:            opts.Notes,
	}
	if err := s.History.Create(p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RecordAggregatedPrice appends the unweighted mean of several observations
// (assumed same currency), stamped with the most recent of their times.
func (s *HistoryService) RecordAggregatedPrice(itemID string, prices []domain.HistoricalPrice, unit string, quantity float64, opts RecordOptions) (*domain.HistoricalPrice, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("nothing to aggregate for item %s", itemID)
	}
	sum := 0.0
	latest := prices[0].ObservedAt
	for _, p := range prices {
		sum += p.Price
		if p.ObservedAt.After(latest) {
			latest = p.ObservedAt
		}
	}
	p := domain.HistoricalPrice{
		ID:              uuid.NewString(),
		InventoryItemID: itemID,
		Price:           sum / float64(len(prices)),
		Currency:        prices[0].Currency,
		Unit:            unit,
		Quantity:        quantity,
		ObservedAt:      latest,
		Source:          domain.SourceAggregated,

		Confidence:       orDefault(opts.Confidence, defaultAggregatedConfidence),
		IncludesShipping: orDefaultBool(opts.IncludeShipping, true),
		IncludesTax:      orDefaultBool(opts.IncludeTax, true),
		Notes:            opts.Notes,
	}
	if err := s.History.Create(p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *HistoryService) GetHistoricalPrices(itemID string, q repos.HistoryQuery) ([]domain.HistoricalPrice, error) {
	return s.History.ForItem(itemID, q)
}

type TrendOptions struct {
	Period        domain.Period
	SupplierID    *string
	MinDataPoints int
}

// GetPriceTrend fits a least-squares line through the window's offer-sourced
// observations. Direction comes from the sign of the projected relative
// change over the window, with a ±stableBandPct stable band; strength is
// that change scaled against fullStrengthPct; confidence is the fit's R²
// damped for short series. Returns nil when the series is too short.
func (s *HistoryService) GetPriceTrend(itemID string, opts TrendOptions) (*domain.PriceTrend, error) {
	period := opts.Period
	if period == "" {
		period = defaultTrendPeriod
	}
	minPoints := opts.MinDataPoints
	if minPoints <= 0 {
		minPoints = defaultMinDataPoints
	}
	start, end := period.Bounds(s.now())
	q := repos.HistoryQuery{
		SupplierID: opts.SupplierID,
		Source:     domain.SourceOffer,
		Ascending:  true,
	}
	if period != domain.PeriodAll {
		q.Start = &start
	}
	q.End = &end

	series, err := s.History.ForItem(itemID, q)
	if err != nil {
		return nil, err
	}
	if len(series) < minPoints {
		return nil, nil
	}

	direction, strength, confidence := analyzePriceTrend(series)
	trend := &domain.PriceTrend{
		Direction:  direction,
		Strength:   strength,
		Confidence: confidence,
		Statistics: statisticsFromSeries(series),
	}
	best, err := s.History.Best(itemID, q)
	if err != nil {
		return nil, err
	}
	trend.BestHistoricalPrice = best
	return trend, nil
}

// GetPriceStatistics describes the window's series across all sources.
// Returns nil when the series is empty.
func (s *HistoryService) GetPriceStatistics(itemID string, period domain.Period, supplierID *string) (*domain.PriceStatistics, error) {
	series, err := s.windowSeries(itemID, period, supplierID)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, nil
	}
	return statisticsFromSeries(series), nil
}

// GetBestHistoricalPrice returns the lowest observation in the window, or
// nil when there is none.
func (s *HistoryService) GetBestHistoricalPrice(itemID string, period domain.Period, supplierID *string) (*domain.HistoricalPrice, error) {
	if period == "" {
		period = domain.PeriodAll
	}
	start, end := period.Bounds(s.now())
	q := repos.HistoryQuery{SupplierID: supplierID}
	if period != domain.PeriodAll {
		q.Start = &start
	}
	q.End = &end
	return s.History.Best(itemID, q)
}

type AlertOptions struct {
	Threshold  float64
	Period     domain.Period
	SupplierID *string
}

// GetPriceAlerts walks the window's series in observation order and flags
// every consecutive change at or above the threshold percentage.
func (s *HistoryService) GetPriceAlerts(itemID string, opts AlertOptions) ([]domain.PriceAlert, error) {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = defaultAlertThreshold
	}
	period := opts.Period
	if period == "" {
		period = defaultAlertPeriod
	}
	series, err := s.windowSeries(itemID, period, opts.SupplierID)
	if err != nil {
		return nil, err
	}

	var alerts []domain.PriceAlert
	for i := 1; i < len(series); i++ {
		prev, curr := series[i-1], series[i]
		if prev.Price == 0 {
			continue
		}
		pct := math.Abs(curr.Price-prev.Price) / prev.Price * 100
		if pct < threshold {
			continue
		}
		typ := domain.AlertIncrease
		if curr.Price < prev.Price {
			typ = domain.AlertDecrease
		}
		alerts = append(alerts, domain.PriceAlert{
			Type:          typ,
			Percentage:    pct,
			CurrentPrice:  curr.Price,
			PreviousPrice: prev.Price,
			Date:          curr.ObservedAt,
			SupplierID:    curr.SupplierID,
		})
	}
	return alerts, nil
}

// GetPriceHistorySummary composes the current/best/average view of an
// item's ledger for one period. Returns nil when the window is empty.
func (s *HistoryService) GetPriceHistorySummary(itemID string, period domain.Period) (*domain.PriceHistorySummary, error) {
	series, err := s.windowSeries(itemID, period, nil)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, nil
	}

	stats := statisticsFromSeries(series)
	trend, err := s.GetPriceTrend(itemID, TrendOptions{Period: period})
	if err != nil {
		return nil, err
	}

	suppliers := map[string]struct{}{}
	for _, p := range series {
		if p.SupplierID != nil {
			suppliers[*p.SupplierID] = struct{}{}
		}
	}
	last := series[len(series)-1]
	return &domain.PriceHistorySummary{
		CurrentPrice:   last.Price,
		BestPrice:      stats.Min,
		AveragePrice:   stats.Average,
		MinPrice:       stats.Min,
		MaxPrice:       stats.Max,
		Trend:          trend,
		SupplierCount:  len(suppliers),
		DataPoints:     len(series),
		LastObservedAt: last.ObservedAt,
	}, nil
}

func (s *HistoryService) CleanupOldData(olderThanDays int) (int64, error) {
	return s.History.CleanupOldData(olderThanDays)
}

// windowSeries fetches a period's observations ascending by time.
func (s *HistoryService) windowSeries(itemID string, period domain.Period, supplierID *string) ([]domain.HistoricalPrice, error) {
	if period == "" {
		period = domain.PeriodAll
	}
	start, end := period.Bounds(s.now())
	q := repos.HistoryQuery{SupplierID: supplierID, Ascending: true}
	if period != domain.PeriodAll {
		q.Start = &start
	}
	q.End = &end
	return s.History.ForItem(itemID, q)
}

// analyzePriceTrend fits price against hours-since-first-observation and
// turns the slope into direction/strength/confidence.
func analyzePriceTrend(series []domain.HistoricalPrice) (domain.TrendDirection, float64, float64) {
	n := len(series)
	xs := make([]float64, n)
	ys := make([]float64, n)
	first := series[0].ObservedAt
	for i, p := range series {
		xs[i] = p.ObservedAt.Sub(first).Hours()
		ys[i] = p.Price
	}

	mean := meanOf(ys)
	span := xs[n-1] - xs[0]
	if mean == 0 || span == 0 {
		return domain.TrendStable, 0, 0
	}

	slope, r2 := leastSquares(xs, ys)
	relPct := slope * span / mean * 100

	direction := domain.TrendStable
	switch {
	case relPct > stableBandPct:
		direction = domain.TrendUp
	case relPct < -stableBandPct:
		direction = domain.TrendDown
	}
	strength := math.Min(1, math.Abs(relPct)/fullStrengthPct)
	confidence := clamp01(r2 * math.Min(1, float64(n)/8))
	return direction, strength, confidence
}

func statisticsFromSeries(series []domain.HistoricalPrice) *domain.PriceStatistics {
	prices := make([]float64, len(series))
	for i, p := range series {
		prices[i] = p.Price
	}
	avg := meanOf(prices)
	sd := stddevOf(prices, avg)
	volatility := 0.0
	if avg != 0 {
		volatility = sd / avg * 100
	}
	min, max := prices[0], prices[0]
	for _, p := range prices {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return &domain.PriceStatistics{
		Min:               min,
		Max:               max,
		Average:           avg,
		Median:            medianOf(prices),
		StandardDeviation: sd,
		Volatility:        volatility,
		DataPoints:        len(series),
	}
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func medianOf(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stddevOf is the population standard deviation.
func stddevOf(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// leastSquares returns the slope and R² of the ordinary least-squares fit.
func leastSquares(xs, ys []float64) (slope, r2 float64) {
	mx, my := meanOf(xs), meanOf(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 {
		return 0, 0
	}
	slope = sxy / sxx
	if syy == 0 {
		// flat series fits perfectly
		return slope, 1
	}
	r2 = (sxy * sxy) / (sxx * syy)
	return slope, r2
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return clamp01(*v)
}

func orDefaultBool(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
