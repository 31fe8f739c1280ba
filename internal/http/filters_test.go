package httpserver

import (
	"net/url"
	"testing"

	"github.com/Clark-Hu/mangareview/internal/repository"
)

func TestBuildSeriesFilters(t *testing.T) {
	cursor := repository.EncodeCursor(42)
	values, _ := url.ParseQuery("title= Berserk &author=Kentaro%20Miura&year=1989&rating%5Bgte%5D=8.5&limit=150&cursor=" + cursor)

	filters, err := buildSeriesFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Title == nil || *filters.Title != "Berserk" {
		t.Fatalf("title not trimmed: %+v", filters.Title)
	}
	if filters.Author == nil || *filters.Author != "Kentaro Miura" {
		t.Fatalf("author parse failed: %+v", filters.Author)
	}
	if filters.Year == nil || *filters.Year != 1989 {
		t.Fatalf("year parse failed: %+v", filters.Year)
	}
	if filters.RatingGTE == nil || *filters.RatingGTE != 8.5 {
		t.Fatalf("rating[gte] parse failed: %+v", filters.RatingGTE)
	}
	if filters.Limit != 150 {
		t.Fatalf("limit not parsed: %d", filters.Limit)
	}
	if filters.Cursor == nil || *filters.Cursor != 42 {
		t.Fatalf("cursor parse failed: %+v", filters.Cursor)
	}
}

func TestBuildSeriesFilters_Empty(t *testing.T) {
	filters, err := buildSeriesFilters(url.Values{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Title != nil || filters.Author != nil || filters.Year != nil || filters.RatingGTE != nil || filters.Cursor != nil || filters.Limit != 0 {
		t.Fatalf("expected zero filters, got %+v", filters)
	}
}

func TestBuildSeriesFilters_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"year", "year=abc"},
		{"rating not a number", "rating%5Bgte%5D=high"},
		{"rating above scale", "rating%5Bgte%5D=11"},
		{"rating negative", "rating%5Bgte%5D=-1"},
		{"rating nan", "rating%5Bgte%5D=NaN"},
		{"limit zero", "limit=0"},
		{"limit text", "limit=ten"},
		{"cursor", "cursor=%21%21%21"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			if _, err := buildSeriesFilters(values); err == nil {
				t.Fatalf("expected error for %q", tt.query)
			}
		})
	}
}
