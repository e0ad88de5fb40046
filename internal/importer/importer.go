// Package importer loads a YAML ledger file and applies it through the
// ledger service.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/guilhermegsn/finance-control/internal/core"
	"github.com/guilhermegsn/finance-control/internal/services"
)

// File is the import document:
//
//	transactions:
//	  - {description: Salary, value: "1500.00", type: income, date: 2024-01-05}
//	series:
//	  - {description: Rent, value: 400, type: expense, start_date: 2024-01-10}
type File struct {
	Transactions []Transaction `yaml:"transactions"`
	Series       []Series      `yaml:"series"`
}

type Transaction struct {
	Description string `yaml:"description"`
	Value       string `yaml:"value"`
	Type        string `yaml:"type"`
	Date        string `yaml:"date"`
}

type Series struct {
	Description string `yaml:"description"`
	Value       string `yaml:"value"`
	Type        string `yaml:"type"`
	StartDate   string `yaml:"start_date"`
	EndDate     string `yaml:"end_date"`
}

// Adder is the write side the importer needs.
type Adder interface {
	Add(ctx context.Context, in services.AddInput) (string, error)
}

// Result lists the ids created, in file order.
type Result struct {
	TransactionIDs []string
	SeriesIDs      []string
}

// Decode parses a document, rejecting unknown keys.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &f, nil
}

// Load reads and decodes the file at path.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Decode(fh)
}

// Inputs converts every document row to an AddInput. Dates are checked up
// front so a bad row fails the import before anything is written.
func (f *File) Inputs() ([]services.AddInput, error) {
	out := make([]services.AddInput, 0, len(f.Transactions)+len(f.Series))
	for i, t := range f.Transactions {
		date, err := optionalDate(t.Date)
		if err != nil {
			return nil, fmt.Errorf("transactions[%d]: %w", i, &core.ValidationError{Field: "date", Err: err})
		}
		out = append(out, services.AddInput{
			Description: t.Description,
			Value:       t.Value,
			Type:        t.Type,
			Date:        date,
		})
	}
	for i, s := range f.Series {
		start, err := optionalDate(s.StartDate)
		if err != nil {
			return nil, fmt.Errorf("series[%d]: %w", i, &core.ValidationError{Field: "start_date", Err: err})
		}
		if start.IsEmpty() {
			return nil, fmt.Errorf("series[%d]: %w", i, &core.ValidationError{Field: "start_date", Err: core.ErrInvalidDate})
		}
		end, err := optionalDate(s.EndDate)
		if err != nil {
			return nil, fmt.Errorf("series[%d]: %w", i, &core.ValidationError{Field: "end_date", Err: err})
		}
		out = append(out, services.AddInput{
			Description:  s.Description,
			Value:        s.Value,
			Type:         s.Type,
			Date:         start,
			IsRecurrence: true,
			EndDate:      end,
		})
	}
	return out, nil
}

func optionalDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

// Apply adds every row in order. It stops at the first failure; rows
// added before it stay committed and are reported in the result.
func Apply(ctx context.Context, ledger Adder, f *File) (Result, error) {
	var res Result
	inputs, err := f.Inputs()
	if err != nil {
		return res, err
	}

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		id, err := ledger.Add(ctx, in)
		if err != nil {
			return res, fmt.Errorf("row %d (%s): %w", i+1, in.Description, err)
		}
		if in.IsRecurrence {
			res.SeriesIDs = append(res.SeriesIDs, id)
		} else {
			res.TransactionIDs = append(res.TransactionIDs, id)
		}
	}

	slog.InfoContext(ctx, "Import applied",
		"transactions", len(res.TransactionIDs),
		"series", len(res.SeriesIDs))
	return res, nil
}
