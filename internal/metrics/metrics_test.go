package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if scraperCyclesTotal == nil || scraperHistorySize == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()

	beforeNew := testutil.ToFloat64(scraperEntriesNewTotal)
	beforeOK := testutil.ToFloat64(scraperCyclesTotal.WithLabelValues("success"))
	beforeResets := testutil.ToFloat64(scraperHistoryResetsTotal)
	beforeOverruns := testutil.ToFloat64(scraperIntervalOverrunsTotal)

	rec.ObserveCycle("success", 3*time.Second, 2, 10, 4)
	rec.ObserveHistory(42, false)
	rec.ObserveHistory(7, true)
	rec.ObserveOverrun()

	if got := testutil.ToFloat64(scraperEntriesNewTotal) - beforeNew; got != 4 {
		t.Errorf("scraper_entries_new_total delta = %f; want 4", got)
	}
	if got := testutil.ToFloat64(scraperCyclesTotal.WithLabelValues("success")) - beforeOK; got != 1 {
		t.Errorf("scraper_cycles_total{success} delta = %f; want 1", got)
	}
	if got := testutil.ToFloat64(scraperHistorySize); got != 7 {
		t.Errorf("scraper_history_size = %f; want 7", got)
	}
	if got := testutil.ToFloat64(scraperHistoryResetsTotal) - beforeResets; got != 1 {
		t.Errorf("scraper_history_resets_total delta = %f; want 1", got)
	}
	if got := testutil.ToFloat64(scraperIntervalOverrunsTotal) - beforeOverruns; got != 1 {
		t.Errorf("scraper_interval_overruns_total delta = %f; want 1", got)
	}
}

func TestObserveNavigationWait(t *testing.T) {
	Init()
	ObserveNavigationWait("www.google.com", 2*time.Second)
	if n := testutil.CollectAndCount(scraperNavigationWaitSeconds); n < 1 {
		t.Errorf("expected navigation wait histogram to have series, got %d", n)
	}
}
