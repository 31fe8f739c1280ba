package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type seriesPayload struct {
	Title string   `json:"title" validate:"required,min=1,max=180"`
	Genre []string `json:"genre" validate:"required,min=1,dive,genre"`
	Year  int      `json:"year" validate:"required,gte=1900,pubyear"`
}

type registerPayload struct {
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
}

type patchPayload struct {
	Rating *float64 `json:"rating" validate:"omitempty,gte=0,lte=10"`
	Year   *int     `json:"year" validate:"omitempty,gte=1900,pubyear"`
}

func fixedClock() time.Time {
	return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func newTestValidator() *Validator {
	return New([]string{"shonen", "slice of life"}, fixedClock)
}

func fieldsOf(t *testing.T, err error) map[string]FieldError {
	t.Helper()
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *validation.Error", err)
	}
	out := make(map[string]FieldError, len(verr.Fields))
	for _, f := range verr.Fields {
		out[f.Field] = f
	}
	return out
}

func TestStructValid(t *testing.T) {
	v := newTestValidator()
	payload := seriesPayload{Title: "Mushishi", Genre: []string{"slice of life"}, Year: 2024}
	if err := v.Struct(payload); err != nil {
		t.Fatalf("Struct() unexpected error: %v", err)
	}
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	v := newTestValidator()
	err := v.Struct(seriesPayload{Title: strings.Repeat("x", 181), Genre: []string{"shonen", "space opera"}, Year: 2025})
	fields := fieldsOf(t, err)

	tests := []struct {
		field string
		tag   string
	}{
		{"title", "max"},
		{"genre[1]", "genre"},
		{"year", "pubyear"},
	}
	for _, tt := range tests {
		got, ok := fields[tt.field]
		if !ok {
			t.Fatalf("missing error for %s in %v", tt.field, fields)
		}
		if got.Tag != tt.tag {
			t.Fatalf("%s tag = %s, want %s", tt.field, got.Tag, tt.tag)
		}
		if got.Message == "" {
			t.Fatalf("%s has empty message", tt.field)
		}
	}
	if !strings.Contains(fields["year"].Message, "2024") {
		t.Fatalf("year message %q should mention the current year", fields["year"].Message)
	}
}

func TestStructEmptyGenreList(t *testing.T) {
	v := newTestValidator()
	fields := fieldsOf(t, v.Struct(seriesPayload{Title: "t", Genre: []string{}, Year: 2000}))
	if _, ok := fields["genre"]; !ok {
		t.Fatalf("expected genre error, got %v", fields)
	}
}

func TestStructPasswordMismatch(t *testing.T) {
	v := newTestValidator()
	fields := fieldsOf(t, v.Struct(registerPayload{Password: "correct horse", Password2: "battery staple"}))
	got, ok := fields["password2"]
	if !ok || got.Tag != "eqfield" {
		t.Fatalf("expected eqfield error on password2, got %v", fields)
	}
	if got.Message != "password2 must match password" {
		t.Fatalf("message = %q", got.Message)
	}
}

func TestStructOptionalFields(t *testing.T) {
	v := newTestValidator()
	if err := v.Struct(patchPayload{}); err != nil {
		t.Fatalf("empty patch should validate: %v", err)
	}

	bad := 10.5
	year := 1899
	fields := fieldsOf(t, v.Struct(patchPayload{Rating: &bad, Year: &year}))
	if fields["rating"].Tag != "lte" || fields["year"].Tag != "gte" {
		t.Fatalf("unexpected errors: %v", fields)
	}

	zero := 0.0
	if err := v.Struct(patchPayload{Rating: &zero}); err != nil {
		t.Fatalf("rating 0 should be accepted: %v", err)
	}
}

func TestClockIsInjected(t *testing.T) {
	later := New([]string{"shonen"}, func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) })
	if err := later.Struct(seriesPayload{Title: "t", Genre: []string{"shonen"}, Year: 2029}); err != nil {
		t.Fatalf("year before injected clock should pass: %v", err)
	}
}

func TestErrorMessageJoinsFields(t *testing.T) {
	err := &Error{Fields: []FieldError{{Message: "a"}, {Message: "b"}}}
	if err.Error() != "a; b" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if Field("password", "len", "too long").Fields[0].Field != "password" {
		t.Fatalf("Field() did not keep field name")
	}
}
