package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/guilhermegsn/finance-control/internal/core"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"description": "Rent", "value": 400.5, "is_recurrence": true, "date": "2024-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if got := parser.Get("description"); got != "Rent" {
		t.Errorf("Get('description') = %q, want 'Rent'", got)
	}
	if got := parser.Get("value"); got != "400.5" {
		t.Errorf("Get('value') = %q, want '400.5'", got)
	}
	if !parser.GetBool("is_recurrence") {
		t.Error("GetBool('is_recurrence') = false, want true")
	}
	d, err := parser.GetDate("date")
	if err != nil || d != core.NewDate(2024, 3, 1) {
		t.Errorf("GetDate('date') = %v, %v", d, err)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "description=Gym+fee&value=30&is_recurrence=on&end_date="
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if got := parser.Get("description"); got != "Gym fee" {
		t.Errorf("Get('description') = %q, want 'Gym fee'", got)
	}
	if !parser.GetBool("is_recurrence") {
		t.Error("checkbox value 'on' not read as true")
	}
	d, err := parser.GetDate("end_date")
	if err != nil || !d.IsEmpty() {
		t.Errorf("GetDate('end_date') = %v, %v; want zero date", d, err)
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(`{"description":`))
	req.Header.Set("Content-Type", "application/json")
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Error("Parse() of truncated JSON returned nil error")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("date=03/01/2024"))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := p.GetDate("date"); !core.IsValidation(err) {
		t.Errorf("GetDate() error = %v, want validation error", err)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(""))
	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Rent\x00\x07 March\t "); got != "Rent March" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}

func TestParseMonthPath(t *testing.T) {
	tests := []struct {
		year, month string
		wantErr     bool
	}{
		{"2024", "3", false},
		{"2024", "12", false},
		{"2024", "13", true},
		{"2024", "0", true},
		{"abcd", "3", true},
	}
	for _, tt := range tests {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("year", tt.year)
		rctx.URLParams.Add("month", tt.month)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

		_, _, err := parseMonthPath(req)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMonthPath(%s, %s) error = %v, wantErr %v", tt.year, tt.month, err, tt.wantErr)
		}
		if err != nil && !core.IsValidation(err) {
			t.Errorf("parseMonthPath(%s, %s) error = %v, want validation error", tt.year, tt.month, err)
		}
	}
}
