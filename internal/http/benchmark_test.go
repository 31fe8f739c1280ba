package httpserver

import (
	"fmt"
	"net/http"
	"testing"
)

func BenchmarkToggleLike(b *testing.B) {
	srv := buildTestServer(b)
	alice := register(b, srv, "alice")
	bob := register(b, srv, "bob")
	series := createSeries(b, srv, alice.AccessToken, "Benchmark Series")

	rec := call(b, srv, http.MethodPost, fmt.Sprintf("/series/%d/reviews", series.ID), alice.AccessToken, map[string]any{"content": "bench", "rating": 7})
	expectStatus(b, rec, http.StatusCreated)
	review := decode[reviewMutationResponse](b, rec)
	path := fmt.Sprintf("/series/%d/reviews/%d", series.ID, review.Review.ID)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		action := "/like"
		if i%2 == 1 {
			action = "/unlike"
		}
		rec := call(b, srv, http.MethodPut, path+action, bob.AccessToken, nil)
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}

func BenchmarkGetSeries(b *testing.B) {
	srv := buildTestServer(b)
	alice := register(b, srv, "alice")
	series := createSeries(b, srv, alice.AccessToken, "Benchmark Series")
	path := fmt.Sprintf("/series/%d", series.ID)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := call(b, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
