package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/guilhermegsn/finance-control/internal/ledger"
	applog "github.com/guilhermegsn/finance-control/internal/log"
	"github.com/guilhermegsn/finance-control/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the store answers a read transaction.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]any{}
	status, code := "ready", http.StatusOK

	err := s.store.View(ctx, func(rd ledger.Reader) error {
		_, err := rd.ListSeries(ctx)
		return err
	})
	if err != nil {
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}
	if s.balances != nil {
		checks["balance_cache_entries"] = s.balances.Size()
	}
	if s.limiter != nil {
		checks["rate_limit_clients"] = s.limiter.ActiveClients()
		checks["rate_limit_rejected"] = s.limiter.Rejected()
	}
	if s.tracer != nil {
		tm := s.tracer.GetMetrics()
		checks["requests_total"] = tm.TotalRequests
		checks["request_avg_ms"] = tm.AverageDurationMs
	}
	if s.detector != nil {
		checks["suspicious_requests"] = s.detector.GetMetrics().SuspiciousRequests
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthPath(r)
	if err != nil {
		writeError(w, r, applog.OpReconcile, err)
		return
	}
	view, err := s.months.MonthView(r.Context(), year, month)
	if err != nil {
		writeError(w, r, applog.OpReconcile, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthDTO(view))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthPath(r)
	if err != nil {
		writeError(w, r, applog.OpBalance, err)
		return
	}
	bal, err := s.balances.AccumulatedBalance(r.Context(), year, month)
	if err != nil {
		writeError(w, r, applog.OpBalance, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceDTO{Year: year, Month: month, Balance: bal.String(), ValueCents: bal.Cents})
}

// handleAdd creates a one-time transaction, or a series when
// is_recurrence is set. start_date is accepted as an alias of date.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpAdd, err)
		return
	}

	dateField := "date"
	if p.Get(dateField) == "" {
		dateField = "start_date"
	}
	date, err := p.GetDate(dateField)
	if err != nil {
		writeError(w, r, applog.OpAdd, err)
		return
	}
	endDate, err := p.GetDate("end_date")
	if err != nil {
		writeError(w, r, applog.OpAdd, err)
		return
	}

	id, err := s.ledger.Add(r.Context(), services.AddInput{
		Description:  p.Get("description"),
		Value:        p.Get("value"),
		Type:         p.Get("type"),
		Date:         date,
		IsRecurrence: p.GetBool("is_recurrence"),
		EndDate:      endDate,
	})
	if err != nil {
		writeError(w, r, applog.OpAdd, err)
		return
	}
	var year, month int
	if !date.IsEmpty() {
		year, month = date.Year(), date.Month()
	}
	s.events.LogLedgerChange(r.Context(), applog.OpAdd, id, year, month)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleEditUnique(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpEditUnique, err)
		return
	}

	err := s.ledger.EditUnique(r.Context(), id, services.EditInput{
		Description: p.Get("description"),
		Value:       p.Get("value"),
	})
	if err != nil {
		writeError(w, r, applog.OpEditUnique, err)
		return
	}
	s.events.LogLedgerChange(r.Context(), applog.OpEditUnique, id, 0, 0)
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "id")
	year, month, err := parseMonthPath(r)
	if err != nil {
		writeError(w, r, applog.OpOverride, err)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpOverride, err)
		return
	}
	date, err := p.GetDate("date")
	if err != nil {
		writeError(w, r, applog.OpOverride, err)
		return
	}

	id, err := s.ledger.EditOnlyMonth(r.Context(), seriesID, year, month, services.OverrideInput{
		Description: p.Get("description"),
		Value:       p.Get("value"),
		Type:        p.Get("type"),
		Date:        date,
	})
	if err != nil {
		writeError(w, r, applog.OpOverride, err)
		return
	}
	s.events.LogLedgerChange(r.Context(), applog.OpOverride, id, year, month)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "id")
	year, month, err := parseMonthPath(r)
	if err != nil {
		writeError(w, r, applog.OpSplit, err)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpSplit, err)
		return
	}
	endDate, err := p.GetDate("end_date")
	if err != nil {
		writeError(w, r, applog.OpSplit, err)
		return
	}
	asOf, err := p.GetDate("as_of")
	if err != nil {
		writeError(w, r, applog.OpSplit, err)
		return
	}

	id, err := s.ledger.EditAllFromMonth(r.Context(), seriesID, year, month, services.SplitInput{
		Description: p.Get("description"),
		Value:       p.Get("value"),
		EndDate:     endDate,
		AsOf:        asOf,
	})
	if err != nil {
		writeError(w, r, applog.OpSplit, err)
		return
	}
	s.events.LogLedgerChange(r.Context(), applog.OpSplit, id, year, month)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
