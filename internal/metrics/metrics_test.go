package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRecompute(t *testing.T) {
	before := testutil.ToFloat64(RatingRecomputations.WithLabelValues("liked"))
	RecordRecompute("liked", 3*time.Millisecond)
	after := testutil.ToFloat64(RatingRecomputations.WithLabelValues("liked"))
	if after-before != 1 {
		t.Fatalf("recomputations delta = %v, want 1", after-before)
	}
}

func TestRecordMutationFailure(t *testing.T) {
	before := testutil.ToFloat64(LedgerMutationFailures.WithLabelValues("unlike"))
	RecordMutationFailure("unlike")
	if got := testutil.ToFloat64(LedgerMutationFailures.WithLabelValues("unlike")); got-before != 1 {
		t.Fatalf("failures delta = %v, want 1", got-before)
	}
}

func TestRecordRequest(t *testing.T) {
	RecordRequest(http.MethodGet, "/series/{seriesID}", http.StatusNotFound, time.Millisecond)
	if got := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET", "/series/{seriesID}", "404")); got < 1 {
		t.Fatalf("http_requests_total = %v, want >= 1", got)
	}
}

type fakeStat struct{ acquired, idle, total int32 }

func (f fakeStat) AcquiredConns() int32 { return f.acquired }
func (f fakeStat) IdleConns() int32     { return f.idle }
func (f fakeStat) TotalConns() int32    { return f.total }

func TestRegisterPoolGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	var current PoolStat
	if err := RegisterPoolGauges(reg, func() PoolStat { return current }); err != nil {
		t.Fatalf("register: %v", err)
	}

	if n, err := testutil.GatherAndCount(reg, "db_pool_total_conns"); err != nil || n != 1 {
		t.Fatalf("gather before pool ready: n=%d err=%v", n, err)
	}

	current = fakeStat{acquired: 2, idle: 3, total: 5}
	expected := `
# HELP db_pool_total_conns Total connections in the pool
# TYPE db_pool_total_conns gauge
db_pool_total_conns 5
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "db_pool_total_conns"); err != nil {
		t.Fatalf("unexpected gauge output: %v", err)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordRecompute("review_created", time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "series_rating_recomputations_total") {
		t.Fatalf("metrics output missing recompute counter")
	}
}
