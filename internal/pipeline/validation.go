package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/city-bureau/city-scrapers-go/internal/logger"
	"github.com/city-bureau/city-scrapers-go/internal/meeting"
)

// ErrValidationFailed is returned by Validation.Check when enforcement is on and
// a field falls below the threshold.
var ErrValidationFailed = errors.New("validation failed")

// Validation counts schema errors per meeting field. It never drops items.
type Validation struct {
	Threshold float64
	Enforce   bool

	mu     sync.Mutex
	items  int
	errors map[string]int
}

// NewValidation creates a validation stage.
func NewValidation(threshold float64, enforce bool) *Validation {
	return &Validation{
		Threshold: threshold,
		Enforce:   enforce,
		errors:    make(map[string]int),
	}
}

func (v *Validation) Name() string { return "validation" }

func (v *Validation) Process(_ context.Context, item Item) (Item, error) {
	m, ok := currentMeeting(item)
	if !ok {
		return item, nil
	}

	invalid := meeting.InvalidFields(m.Validate())

	v.mu.Lock()
	defer v.mu.Unlock()
	v.items++
	for _, field := range invalid {
		v.errors[field]++
	}
	if len(invalid) > 0 {
		logger.Debug("Meeting failed validation", logger.Fields{
			"id":     m.ID,
			"fields": invalid,
		})
	}
	return item, nil
}

// FieldResult is the validity of one field across all items.
type FieldResult struct {
	Field   string  `json:"field"`
	Invalid int     `json:"invalid"`
	Valid   float64 `json:"valid"`
}

// Report is a validation summary.
type Report struct {
	Items     int           `json:"items"`
	Threshold float64       `json:"threshold"`
	Fields    []FieldResult `json:"fields"`
}

// Passed reports whether every field meets the threshold. An empty report passes.
func (r Report) Passed() bool {
	for _, f := range r.Fields {
		if f.Valid < r.Threshold {
			return false
		}
	}
	return true
}

// Report summarizes the items seen so far.
func (v *Validation) Report() Report {
	v.mu.Lock()
	defer v.mu.Unlock()

	r := Report{Items: v.items, Threshold: v.Threshold, Fields: []FieldResult{}}
	if v.items == 0 {
		return r
	}
	for _, field := range meeting.Fields {
		invalid := v.errors[field]
		r.Fields = append(r.Fields, FieldResult{
			Field:   field,
			Invalid: invalid,
			Valid:   float64(v.items-invalid) / float64(v.items),
		})
	}
	return r
}

// Check returns ErrValidationFailed if enforcement is on and the report fails.
func (v *Validation) Check(spider string) error {
	r := v.Report()
	if r.Passed() {
		return nil
	}
	if v.Enforce {
		return fmt.Errorf("%w: less than %.0f%% of items from %s passed validation",
			ErrValidationFailed, v.Threshold*100, spider)
	}
	logger.Warn("Items below validation threshold", logger.Fields{
		"spider":    spider,
		"threshold": v.Threshold,
	})
	return nil
}

// Render writes a one-line summary followed by the per-field table. Fields
// below the threshold are marked FAIL.
func (r Report) Render(w io.Writer, spider string) {
	fmt.Fprintf(w, "Validation summary for %s (%d items)\n", spider, r.Items)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Field", "Invalid", "Valid", ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	for _, f := range r.Fields {
		mark := ""
		if f.Valid < r.Threshold {
			mark = "FAIL"
		}
		t.AppendRow(table.Row{f.Field, f.Invalid, fmt.Sprintf("%.0f%%", f.Valid*100), mark})
	}
	t.Render()
}
