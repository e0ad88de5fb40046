package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		rec := map[string]any{}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Format: "json", Output: &buf})

	logger.Info("reconciled", FieldYear, 2024, FieldMonth, 3)
	logger.WithComponent(ComponentStorage).Debug("opened")

	recs := decodeLines(t, &buf)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0][FieldComponent] != ComponentLedger {
		t.Errorf("component = %v, want %v", recs[0][FieldComponent], ComponentLedger)
	}
	if recs[0][FieldYear] != float64(2024) {
		t.Errorf("year = %v, want 2024", recs[0][FieldYear])
	}
	if recs[1][FieldComponent] != ComponentStorage {
		t.Errorf("component = %v, want %v", recs[1][FieldComponent], ComponentStorage)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: "json", Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept")

	recs := decodeLines(t, &buf)
	if len(recs) != 1 || recs[0]["msg"] != "kept" {
		t.Errorf("records = %v, want only the warning", recs)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf})

	handler := Middleware(logger)(RequestIDMiddleware(func(r *http.Request) string {
		return r.Header.Get("X-Request-ID")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "handled")
	})))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	recs := decodeLines(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0][FieldRequestID] != "req-42" {
		t.Errorf("request_id = %v, want req-42", recs[0][FieldRequestID])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil || logger.Component() != ComponentApp {
		t.Errorf("FromContext() = %v, want default app logger", logger)
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf})
	sl := NewStructuredLogger(logger)
	ctx := NewContext(context.Background(), logger)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	sl.LogHTTPEnd(ctx, req, 422, 3, "10.0.0.1")
	sl.LogHTTPEnd(ctx, req, 500, 3, "10.0.0.1")
	sl.LogLedgerChange(ctx, OpAdd, "tx-1", 2024, 3)
	sl.LogError(ctx, "export failed", errors.New("boom"), ErrorTypeNetwork, OpExport, NewFields().WithMonth(2024, 3))

	recs := decodeLines(t, &buf)
	if len(recs) != 4 {
		t.Fatalf("got %d records, want 4", len(recs))
	}
	if recs[0]["level"] != "WARN" || recs[1]["level"] != "ERROR" {
		t.Errorf("levels = %v, %v; want WARN, ERROR", recs[0]["level"], recs[1]["level"])
	}
	if recs[2][FieldOperation] != OpAdd || recs[2][FieldEntityID] != "tx-1" {
		t.Errorf("ledger change record = %v", recs[2])
	}
	if recs[3][FieldError] != "boom" || recs[3][FieldErrorType] != ErrorTypeNetwork {
		t.Errorf("error record = %v", recs[3])
	}
}
