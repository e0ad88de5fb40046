package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"
	"github.com/guilhermegsn/finance-control/internal/ledger/memory"
	"github.com/guilhermegsn/finance-control/internal/services"
)

func newTestServer(t *testing.T, store ledger.Store, rateLimit bool) *Server {
	t.Helper()
	calc := services.NewBalanceCalculator(store)
	balances := services.NewCachedBalance(store, calc, 32, time.Minute)
	srv := NewServer(":0", Deps{
		Store:     store,
		Months:    services.NewReconciler(store, balances, 2),
		Balances:  balances,
		Ledger:    services.NewLedgerService(store, core.NewUUIDGenerator(), services.WithInvalidator(balances)),
		RateLimit: rateLimit,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		if strings.HasPrefix(body, "{") {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func createdID(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := decode[map[string]string](t, rr)["id"]
	require.NotEmpty(t, id)
	return id
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, memory.New(), false)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"), path)
	}

	rr := do(t, srv, http.MethodGet, "/readyz", "")
	checks := decode[map[string]any](t, rr)["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["store"])
	assert.EqualValues(t, 2, checks["requests_total"])
	assert.EqualValues(t, 0, checks["suspicious_requests"])
}

func TestMonthViewScenario(t *testing.T) {
	srv := newTestServer(t, memory.New(), false)

	createdID(t, do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Rent","value":"200","type":"expense","date":"2024-01-10","is_recurrence":true}`))

	rr := do(t, srv, http.MethodGet, "/api/months/2024/3", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	month := decode[monthDTO](t, rr)

	require.Len(t, month.Entries, 2)
	assert.Equal(t, core.KindAccumulated, month.Entries[0].Kind)
	assert.Equal(t, "-400.00", month.Entries[0].Value)
	assert.Equal(t, core.KindRecurringInstance, month.Entries[1].Kind)
	assert.Equal(t, "2024-03-10", month.Entries[1].Date)
	assert.Equal(t, int64(20000), month.Entries[1].ValueCents)
	assert.Equal(t, "-600.00", month.Summary.Closing)

	rr = do(t, srv, http.MethodGet, "/api/months/2024/3/balance", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(-40000), decode[balanceDTO](t, rr).ValueCents)
}

func TestAddFormEncodedAndEditUnique(t *testing.T) {
	srv := newTestServer(t, memory.New(), false)

	id := createdID(t, do(t, srv, http.MethodPost, "/api/transactions",
		"description=Salary&value=1000&type=income&date=2024-02-01"))

	rr := do(t, srv, http.MethodPut, "/api/transactions/"+id, `{"description":"Salary","value":"1050"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	month := decode[monthDTO](t, do(t, srv, http.MethodGet, "/api/months/2024/2", ""))
	require.Len(t, month.Entries, 2)
	assert.Equal(t, id, month.Entries[1].ID)
	assert.Equal(t, "1050.00", month.Entries[1].Value)

	rr = do(t, srv, http.MethodGet, "/api/months/2024/3/balance", "")
	assert.Equal(t, int64(105000), decode[balanceDTO](t, rr).ValueCents)
}

func TestOverrideAndSplit(t *testing.T) {
	srv := newTestServer(t, memory.New(), false)

	seriesID := createdID(t, do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Gym","value":"30","type":"expense","start_date":"2024-01-05","is_recurrence":"true"}`))

	overrideID := createdID(t, do(t, srv, http.MethodPost, "/api/series/"+seriesID+"/months/2024/2/override",
		`{"description":"Gym (promo)","value":"15"}`))

	feb := decode[monthDTO](t, do(t, srv, http.MethodGet, "/api/months/2024/2", ""))
	require.Len(t, feb.Entries, 2)
	assert.Equal(t, core.KindOverride, feb.Entries[1].Kind)
	assert.Equal(t, overrideID, feb.Entries[1].ID)
	assert.Equal(t, seriesID, feb.Entries[1].SeriesID)
	assert.Equal(t, "15.00", feb.Entries[1].Value)

	succID := createdID(t, do(t, srv, http.MethodPost, "/api/series/"+seriesID+"/months/2024/4/split",
		`{"description":"Gym","value":"40","as_of":"2024-04-01"}`))

	apr := decode[monthDTO](t, do(t, srv, http.MethodGet, "/api/months/2024/4", ""))
	require.Len(t, apr.Entries, 2)
	assert.Equal(t, succID, apr.Entries[1].ID)
	assert.Equal(t, seriesID, apr.Entries[1].PredecessorID)
	assert.Equal(t, "40.00", apr.Entries[1].Value)
	// Jan 30 + Feb 15 + Mar 30.
	assert.Equal(t, "-75.00", apr.Entries[0].Value)

	// The closed predecessor no longer covers June.
	rr := do(t, srv, http.MethodPost, "/api/series/"+seriesID+"/months/2024/6/override",
		`{"description":"Gym","value":"10"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "series not active in month")
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t, memory.New(), false)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing description", http.MethodPost, "/api/transactions", `{"value":"10","type":"expense","date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"negative value", http.MethodPost, "/api/transactions", "description=x&value=-1&type=expense&date=2024-01-01", http.StatusUnprocessableEntity},
		{"missing type", http.MethodPost, "/api/transactions", `{"description":"x","value":"1","date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"bad date", http.MethodPost, "/api/transactions", `{"description":"x","value":"1","type":"income","date":"01/02/2024"}`, http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, "/api/transactions", `{"description":`, http.StatusBadRequest},
		{"month out of range", http.MethodGet, "/api/months/2024/13", "", http.StatusUnprocessableEntity},
		{"unknown transaction", http.MethodPut, "/api/transactions/nope", `{"description":"x","value":"1"}`, http.StatusNotFound},
		{"unknown series override", http.MethodPost, "/api/series/nope/months/2024/2/override", `{"description":"x","value":"1"}`, http.StatusNotFound},
		{"unknown series split", http.MethodPost, "/api/series/nope/months/2024/2/split", `{"description":"x","value":"1"}`, http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/transactions/abc", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}

	rr := do(t, srv, http.MethodPost, "/api/transactions", `{"value":"10","type":"expense","date":"2024-01-01"}`)
	assert.Equal(t, "description", decode[errorDTO](t, rr).Field)
}

type brokenStore struct{}

var errBroken = errors.New("disk on fire")

func (brokenStore) View(context.Context, func(ledger.Reader) error) error      { return errBroken }
func (brokenStore) Update(context.Context, func(ledger.ReadWriter) error) error { return errBroken }
func (brokenStore) Close() error                                                { return nil }

func TestStoreFailureIs500(t *testing.T) {
	srv := newTestServer(t, brokenStore{}, false)

	rr := do(t, srv, http.MethodGet, "/api/months/2024/3", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "disk on fire")
	assert.NotContains(t, rr.Body.String(), "entries")

	rr = do(t, srv, http.MethodPost, "/api/transactions", `{"description":"x","value":"1","type":"income","date":"2024-01-01"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestWriteRateLimit(t *testing.T) {
	srv := newTestServer(t, memory.New(), true)

	body := `{"description":"Coffee","value":"2","type":"expense","date":"2024-01-01"}`
	for i := 0; i < 60; i++ {
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/transactions", body).Code, "request %d", i+1)
	}
	rr := do(t, srv, http.MethodPost, "/api/transactions", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("X-RateLimit-Limit"))
	retry, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.True(t, retry >= 1 && retry <= 60, "retry after %d", retry)

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/months/2024/1", "").Code)
}

func TestCORS(t *testing.T) {
	store := memory.New()
	calc := services.NewBalanceCalculator(store)
	srv := NewServer(":0", Deps{
		Store:       store,
		Months:      services.NewReconciler(store, calc, 1),
		Balances:    services.NewCachedBalance(store, calc, 4, 0),
		Ledger:      services.NewLedgerService(store, core.NewUUIDGenerator()),
		CORSOrigins: []string{"http://localhost:1234"},
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	preflight := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	preflight.Header.Set("Origin", "http://localhost:1234")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, preflight)
	assert.Less(t, rr.Code, 300)
	assert.Equal(t, "http://localhost:1234", rr.Header().Get("Access-Control-Allow-Origin"))

	get := httptest.NewRequest(http.MethodGet, "/api/months/2024/1", nil)
	get.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, get)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
