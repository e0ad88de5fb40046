package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/ledger"
	applog "github.com/guilhermegsn/finance-control/internal/log"
	"github.com/guilhermegsn/finance-control/internal/services"
)

type entryDTO struct {
	Kind          core.EntryKind       `json:"kind"`
	ID            string               `json:"id"`
	SeriesID      string               `json:"series_id,omitempty"`
	PredecessorID string               `json:"predecessor_id,omitempty"`
	Description   string               `json:"description"`
	Value         string               `json:"value"`
	ValueCents    int64                `json:"value_cents"`
	Type          core.TransactionType `json:"type"`
	Date          string               `json:"date"`
}

type summaryDTO struct {
	Accumulated string `json:"accumulated"`
	Income      string `json:"income"`
	Expense     string `json:"expense"`
	Credit      string `json:"credit"`
	Net         string `json:"net"`
	Closing     string `json:"closing"`
}

type monthDTO struct {
	Year    int        `json:"year"`
	Month   int        `json:"month"`
	Entries []entryDTO `json:"entries"`
	Summary summaryDTO `json:"summary"`
}

type balanceDTO struct {
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Balance    string `json:"balance"`
	ValueCents int64  `json:"value_cents"`
}

type errorDTO struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func toEntryDTO(e core.Entry) entryDTO {
	p := core.PostingOf(e)
	dto := entryDTO{
		Kind:        e.Kind(),
		ID:          e.EntryID(),
		Description: p.Description,
		Value:       p.Value.String(),
		ValueCents:  p.Value.Cents,
		Type:        p.Type,
		Date:        p.Date.String(),
	}
	switch v := e.(type) {
	case core.InstanceEntry:
		dto.SeriesID = v.SeriesID
		dto.PredecessorID = v.PredecessorID
	case core.OverrideEntry:
		dto.SeriesID = v.SeriesID
	}
	return dto
}

func toMonthDTO(v services.MonthView) monthDTO {
	entries := make([]entryDTO, 0, len(v.Entries))
	for _, e := range v.Entries {
		entries = append(entries, toEntryDTO(e))
	}
	s := v.Summary
	return monthDTO{
		Year:    v.Year,
		Month:   v.Month,
		Entries: entries,
		Summary: summaryDTO{
			Accumulated: s.Accumulated.String(),
			Income:      s.Income.String(),
			Expense:     s.Expense.String(),
			Credit:      s.Credit.String(),
			Net:         s.Net.String(),
			Closing:     s.Closing.String(),
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps engine errors onto status codes. Store failures and
// anything unrecognised are reported as 500 without internal detail.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := applog.FromContext(r.Context())

	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		logger.WarnContext(r.Context(), "Rejected invalid input",
			applog.FieldOperation, op, "field", ve.Field, applog.FieldError, err)
		writeJSON(w, http.StatusUnprocessableEntity, errorDTO{Error: ve.Err.Error(), Field: ve.Field})
	case errors.Is(err, errMalformedBody):
		writeJSON(w, http.StatusBadRequest, errorDTO{Error: err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorDTO{Error: "not found"})
	default:
		logger.ErrorContext(r.Context(), "Ledger operation failed",
			applog.FieldOperation, op,
			applog.FieldErrorType, errorType(err),
			applog.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorDTO{Error: "internal error"})
	}
}

func errorType(err error) string {
	if errors.Is(err, services.ErrStoreFailure) {
		return applog.ErrorTypeDatabase
	}
	return applog.ErrorTypeInternal
}
