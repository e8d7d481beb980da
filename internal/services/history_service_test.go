package services_test

import (
	"math"
	"testing"
	"time"

	"priceboard/internal/domain"
	"priceboard/internal/repos"
	"priceboard/internal/services"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newHistoryService(t *testing.T) (*services.HistoryService, *repos.HistoryRepo) {
	t.Helper()
	db := memdb(t)
	repo := repos.NewHistoryRepo(db)
	svc := services.NewHistoryService(repo)
	svc.Now = func() time.Time { return testNow }
	return svc, repo
}

func observe(t *testing.T, svc *services.HistoryService, itemID string, price float64, at time.Time, source domain.PriceSource, supplier *string) {
	t.Helper()
	if _, err := svc.RecordPrice(domain.HistoricalPrice{
		InventoryItemID: itemID,
		SupplierID:      supplier,
		Price:           price,
		Currency:        "EUR",
		Unit:            "g",
		Quantity:        1,
		ObservedAt:      at,
		Source:          source,
		Confidence:      0.9,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestHistory_AlertOnDoubledPrice(t *testing.T) {
	svc, _ := newHistoryService(t)
	observe(t, svc, "item-1", 10, testNow.Add(-48*time.Hour), domain.SourceOffer, nil)
	observe(t, svc, "item-1", 20, testNow.Add(-24*time.Hour), domain.SourceOffer, nil)

	alerts, err := svc.GetPriceAlerts("item-1", services.AlertOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("want exactly one alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Type != domain.AlertIncrease || a.Percentage != 100 {
		t.Fatalf("want 100%% increase, got %+v", a)
	}
	if a.PreviousPrice != 10 || a.CurrentPrice != 20 {
		t.Fatalf("bad prices: %+v", a)
	}
}

func TestHistory_AlertBelowThresholdSilent(t *testing.T) {
	svc, _ := newHistoryService(t)
	observe(t, svc, "item-1", 100, testNow.Add(-48*time.Hour), domain.SourceOffer, nil)
	observe(t, svc, "item-1", 105, testNow.Add(-24*time.Hour), domain.SourceOffer, nil)

	alerts, err := svc.GetPriceAlerts("item-1", services.AlertOptions{Threshold: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 0 {
		t.Fatalf("5%% move should not alert, got %+v", alerts)
	}
}

func TestHistory_AlertWindowExcludesOldRows(t *testing.T) {
	svc, _ := newHistoryService(t)
	// outside the default 7d window
	observe(t, svc, "item-1", 10, testNow.AddDate(0, 0, -30), domain.SourceOffer, nil)
	observe(t, svc, "item-1", 20, testNow.Add(-24*time.Hour), domain.SourceOffer, nil)

	alerts, err := svc.GetPriceAlerts("item-1", services.AlertOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 0 {
		t.Fatalf("single in-window point cannot pair, got %+v", alerts)
	}
}

func TestHistory_Statistics(t *testing.T) {
	svc, _ := newHistoryService(t)
	for i, price := range []float64{10, 20, 30, 40} {
		observe(t, svc, "item-1", price, testNow.Add(-time.Duration(4-i)*24*time.Hour), domain.SourceManual, nil)
	}

	stats, err := svc.GetPriceStatistics("item-1", domain.Period30d, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats == nil {
		t.Fatal("want statistics")
	}
	if stats.Min != 10 || stats.Max != 40 || stats.Average != 25 || stats.Median != 25 {
		t.Fatalf("bad stats: %+v", stats)
	}
	wantSD := math.Sqrt(125) // population stddev of 10,20,30,40
	if math.Abs(stats.StandardDeviation-wantSD) > 1e-9 {
		t.Fatalf("want stddev %v, got %v", wantSD, stats.StandardDeviation)
	}
	wantVol := wantSD / 25 * 100
	if math.Abs(stats.Volatility-wantVol) > 1e-9 {
		t.Fatalf("want volatility %v, got %v", wantVol, stats.Volatility)
	}
	if stats.DataPoints != 4 {
		t.Fatalf("want 4 points, got %d", stats.DataPoints)
	}
}

func TestHistory_StatisticsEmptyWindow(t *testing.T) {
	svc, _ := newHistoryService(t)
	stats, err := svc.GetPriceStatistics("item-1", domain.Period7d, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats != nil {
		t.Fatalf("empty window should yield nil, got %+v", stats)
	}
}

func TestHistory_TrendDirections(t *testing.T) {
	svc, _ := newHistoryService(t)
	// rising series for one item, flat for another
	for i, price := range []float64{10, 12, 14, 16, 18} {
		observe(t, svc, "item-up", price, testNow.Add(-time.Duration(5-i)*24*time.Hour), domain.SourceOffer, nil)
		observe(t, svc, "item-flat", 10, testNow.Add(-time.Duration(5-i)*24*time.Hour), domain.SourceOffer, nil)
		observe(t, svc, "item-down", 20-price, testNow.Add(-time.Duration(5-i)*24*time.Hour), domain.SourceOffer, nil)
	}

	up, err := svc.GetPriceTrend("item-up", services.TrendOptions{Period: domain.Period30d})
	if err != nil {
		t.Fatal(err)
	}
	if up == nil || up.Direction != domain.TrendUp {
		t.Fatalf("want up trend, got %+v", up)
	}
	if up.Strength <= 0 || up.Confidence <= 0 {
		t.Fatalf("rising line should have strength and confidence: %+v", up)
	}
	if up.Statistics == nil || up.BestHistoricalPrice == nil {
		t.Fatalf("trend should embed stats and best price: %+v", up)
	}
	if up.BestHistoricalPrice.Price != 10 {
		t.Fatalf("best price should be 10, got %v", up.BestHistoricalPrice.Price)
	}

	flat, err := svc.GetPriceTrend("item-flat", services.TrendOptions{Period: domain.Period30d})
	if err != nil {
		t.Fatal(err)
	}
	if flat == nil || flat.Direction != domain.TrendStable {
		t.Fatalf("want stable trend, got %+v", flat)
	}

	down, err := svc.GetPriceTrend("item-down", services.TrendOptions{Period: domain.Period30d})
	if err != nil {
		t.Fatal(err)
	}
	if down == nil || down.Direction != domain.TrendDown {
		t.Fatalf("want down trend, got %+v", down)
	}
}

func TestHistory_TrendInsufficientData(t *testing.T) {
	svc, _ := newHistoryService(t)
	observe(t, svc, "item-1", 10, testNow.Add(-24*time.Hour), domain.SourceOffer, nil)

	trend, err := svc.GetPriceTrend("item-1", services.TrendOptions{Period: domain.Period30d})
	if err != nil {
		t.Fatal(err)
	}
	if trend != nil {
		t.Fatalf("one point is below minDataPoints, got %+v", trend)
	}
}

func TestHistory_TrendIgnoresManualRows(t *testing.T) {
	svc, _ := newHistoryService(t)
	observe(t, svc, "item-1", 10, testNow.Add(-48*time.Hour), domain.SourceManual, nil)
	observe(t, svc, "item-1", 90, testNow.Add(-24*time.Hour), domain.SourceManual, nil)

	trend, err := svc.GetPriceTrend("item-1", services.TrendOptions{Period: domain.Period30d})
	if err != nil {
		t.Fatal(err)
	}
	if trend != nil {
		t.Fatalf("trend series is offer-sourced only, got %+v", trend)
	}
}

func TestHistory_RecordAggregatedPrice(t *testing.T) {
	svc, repo := newHistoryService(t)
	inputs := []domain.HistoricalPrice{
		{Price: 10, Currency: "EUR", ObservedAt: testNow.Add(-72 * time.Hour)},
		{Price: 20, Currency: "EUR", ObservedAt: testNow.Add(-24 * time.Hour)},
		{Price: 30, Currency: "EUR", ObservedAt: testNow.Add(-48 * time.Hour)},
	}
	rec, err := svc.RecordAggregatedPrice("item-1", inputs, "g", 1, services.RecordOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Price != 20 {
		t.Fatalf("want unweighted mean 20, got %v", rec.Price)
	}
	if !rec.ObservedAt.Equal(testNow.Add(-24 * time.Hour)) {
		t.Fatalf("want latest input timestamp, got %v", rec.ObservedAt)
	}
	if rec.Source != domain.SourceAggregated || rec.Confidence != 0.6 {
		t.Fatalf("bad aggregated defaults: %+v", rec)
	}

	rows, err := repo.ForItem("item-1", repos.HistoryQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 persisted row, got %d", len(rows))
	}
}

func TestHistory_RecordAggregatedPriceEmpty(t *testing.T) {
	svc, _ := newHistoryService(t)
	if _, err := svc.RecordAggregatedPrice("item-1", nil, "g", 1, services.RecordOptions{}); err == nil {
		t.Fatal("empty input should error")
	}
}

func TestHistory_BestHistoricalPrice(t *testing.T) {
	svc, _ := newHistoryService(t)
	sup := "sup-cheap"
	observe(t, svc, "item-1", 30, testNow.Add(-72*time.Hour), domain.SourceOffer, nil)
	observe(t, svc, "item-1", 10, testNow.Add(-48*time.Hour), domain.SourceOffer, &sup)
	observe(t, svc, "item-1", 20, testNow.Add(-24*time.Hour), domain.SourceOffer, nil)

	best, err := svc.GetBestHistoricalPrice("item-1", domain.PeriodAll, nil)
	if err != nil {
		t.Fatal(err)
	}
	if best == nil || best.Price != 10 {
		t.Fatalf("want lowest record, got %+v", best)
	}

	// supplier filter
	other := "sup-other"
	best, err = svc.GetBestHistoricalPrice("item-1", domain.PeriodAll, &other)
	if err != nil {
		t.Fatal(err)
	}
	if best != nil {
		t.Fatalf("unknown supplier should yield nil, got %+v", best)
	}
}

func TestHistory_Summary(t *testing.T) {
	svc, _ := newHistoryService(t)
	supA, supB := "sup-a", "sup-b"
	observe(t, svc, "item-1", 10, testNow.Add(-72*time.Hour), domain.SourceOffer, &supA)
	observe(t, svc, "item-1", 20, testNow.Add(-48*time.Hour), domain.SourceOffer, &supB)
	observe(t, svc, "item-1", 30, testNow.Add(-24*time.Hour), domain.SourceOffer, &supA)

	sum, err := svc.GetPriceHistorySummary("item-1", domain.Period30d)
	if err != nil {
		t.Fatal(err)
	}
	if sum == nil {
		t.Fatal("want a summary")
	}
	if sum.CurrentPrice != 30 || sum.BestPrice != 10 || sum.AveragePrice != 20 {
		t.Fatalf("bad summary prices: %+v", sum)
	}
	if sum.MinPrice != 10 || sum.MaxPrice != 30 {
		t.Fatalf("bad range: %+v", sum)
	}
	if sum.SupplierCount != 2 || sum.DataPoints != 3 {
		t.Fatalf("bad counts: %+v", sum)
	}
	if sum.Trend == nil || sum.Trend.Direction != domain.TrendUp {
		t.Fatalf("want embedded up trend: %+v", sum.Trend)
	}
	if !sum.LastObservedAt.Equal(testNow.Add(-24 * time.Hour)) {
		t.Fatalf("bad last timestamp: %v", sum.LastObservedAt)
	}
}

func TestHistory_SummaryEmpty(t *testing.T) {
	svc, _ := newHistoryService(t)
	sum, err := svc.GetPriceHistorySummary("item-1", domain.Period7d)
	if err != nil {
		t.Fatal(err)
	}
	if sum != nil {
		t.Fatalf("no data should yield nil, got %+v", sum)
	}
}

func TestHistory_Cleanup(t *testing.T) {
	svc, repo := newHistoryService(t)
	// cleanup cuts against the wall clock, so plant rows relative to it
	now := time.Now().UTC()
	observe(t, svc, "item-1", 10, now.AddDate(0, 0, -400), domain.SourceManual, nil)
	observe(t, svc, "item-1", 20, now.AddDate(0, 0, -5), domain.SourceManual, nil)

	removed, err := svc.CleanupOldData(365)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("want 1 pruned row, got %d", removed)
	}
	rows, err := repo.ForItem("item-1", repos.HistoryQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Price != 20 {
		t.Fatalf("recent row should survive: %+v", rows)
	}
}
