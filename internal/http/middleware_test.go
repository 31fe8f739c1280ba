package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Clark-Hu/mangareview/internal/metrics"
)

func TestObserveLabelsByRoutePattern(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := chi.NewRouter()
	r.Use(observe(zap.New(core)))
	r.Get("/series/{seriesID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/series/{seriesID}", "418")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/series/"+id, nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Fatalf("counter delta = %v, want 3", got)
	}
	entries := logs.FilterMessage("http request").All()
	if len(entries) != 3 {
		t.Fatalf("logged %d requests, want 3", len(entries))
	}
	if route := entries[0].ContextMap()["route"]; route != "/series/{seriesID}" {
		t.Fatalf("route field = %v", route)
	}
}

func TestObserveLogsServerErrorsAtErrorLevel(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := observe(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	if n := logs.FilterLevelExact(zap.ErrorLevel).Len(); n != 1 {
		t.Fatalf("error entries = %d, want 1", n)
	}
	if route := logs.All()[0].ContextMap()["route"]; route != "unmatched" {
		t.Fatalf("route = %v, want unmatched", route)
	}
}
