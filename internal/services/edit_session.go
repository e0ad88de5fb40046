package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/guilhermegsn/finance-control/internal/core"
)

// EditState is the pending edit of an EditSession.
type EditState int

const (
	Idle EditState = iota
	Adding
	EditingUniqueTransaction
	EditingSeriesAllFromMonth
	EditingSeriesThisMonthOnly
)

func (s EditState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Adding:
		return "adding"
	case EditingUniqueTransaction:
		return "editing_unique_transaction"
	case EditingSeriesAllFromMonth:
		return "editing_series_all_from_month"
	case EditingSeriesThisMonthOnly:
		return "editing_series_this_month_only"
	default:
		return fmt.Sprintf("EditState(%d)", int(s))
	}
}

// SeriesEditMode picks how a series edit is applied.
type SeriesEditMode int

const (
	AllFromMonth SeriesEditMode = iota
	ThisMonthOnly
)

var ErrInvalidTransition = errors.New("invalid edit transition")

// Draft is the form content submitted with Save. Fields a mutation does not
// use are ignored.
type Draft struct {
	Description  string
	Value        string
	Type         string
	Date         core.Date
	IsRecurrence bool
	EndDate      core.Date
}

// EditSession tracks one pending edit and routes Save to the matching
// LedgerService mutation. Begin* are only allowed from Idle.
type EditSession struct {
	mu       sync.Mutex
	svc      *LedgerService
	state    EditState
	targetID string
	year     int
	month    int
}

func NewEditSession(svc *LedgerService) *EditSession {
	return &EditSession{svc: svc}
}

func (e *EditSession) State() EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *EditSession) begin(next EditState, id string, year, month int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Idle {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, e.state, next)
	}
	e.state, e.targetID, e.year, e.month = next, id, year, month
	return nil
}

func (e *EditSession) BeginAdd() error {
	return e.begin(Adding, "", 0, 0)
}

func (e *EditSession) BeginEditUnique(id string) error {
	return e.begin(EditingUniqueTransaction, id, 0, 0)
}

func (e *EditSession) BeginEditSeries(seriesID string, year, month int, mode SeriesEditMode) error {
	if err := core.ValidateMonth(year, month); err != nil {
		return err
	}
	next := EditingSeriesAllFromMonth
	if mode == ThisMonthOnly {
		next = EditingSeriesThisMonthOnly
	}
	return e.begin(next, seriesID, year, month)
}

// Cancel drops the pending edit.
func (e *EditSession) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state, e.targetID, e.year, e.month = Idle, "", 0, 0
}

// Save applies d and returns the id the mutation produced (the edited id for
// unique edits). The session returns to Idle only on success.
func (e *EditSession) Save(ctx context.Context, d Draft) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		id  string
		err error
	)
	switch e.state {
	case Adding:
		id, err = e.svc.Add(ctx, AddInput{
			Description:  d.Description,
			Value:        d.Value,
			Type:         d.Type,
			Date:         d.Date,
			IsRecurrence: d.IsRecurrence,
			EndDate:      d.EndDate,
		})
	case EditingUniqueTransaction:
		id = e.targetID
		err = e.svc.EditUnique(ctx, e.targetID, EditInput{Description: d.Description, Value: d.Value})
	case EditingSeriesThisMonthOnly:
		id, err = e.svc.EditOnlyMonth(ctx, e.targetID, e.year, e.month, OverrideInput{
			Description: d.Description,
			Value:       d.Value,
			Type:        d.Type,
			Date:        d.Date,
		})
	case EditingSeriesAllFromMonth:
		id, err = e.svc.EditAllFromMonth(ctx, e.targetID, e.year, e.month, SplitInput{
			Description: d.Description,
			Value:       d.Value,
			EndDate:     d.EndDate,
			AsOf:        d.Date,
		})
	default:
		return "", fmt.Errorf("%w: nothing to save", ErrInvalidTransition)
	}
	if err != nil {
		return "", err
	}
	e.state, e.targetID, e.year, e.month = Idle, "", 0, 0
	return id, nil
}
