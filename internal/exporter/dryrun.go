package exporter

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/city-bureau/city-scrapers-go/internal/feed"
	"github.com/city-bureau/city-scrapers-go/internal/meeting"
)

// DryRunExporter prints batches instead of storing them
type DryRunExporter struct {
	out io.Writer
}

// NewDryRunExporter creates a dry-run exporter writing to out, or stdout if nil
func NewDryRunExporter(out io.Writer) *DryRunExporter {
	if out == nil {
		out = os.Stdout
	}
	return &DryRunExporter{out: out}
}

// Export prints the records that would be written
func (e *DryRunExporter) Export(_ context.Context, agency meeting.Agency, _ time.Time, records []feed.Record) error {
	data, err := feed.EncodeLines(records)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "--- %s (%d records) ---\n", agency.Spider, len(records))
	if len(data) > 0 {
		fmt.Fprintf(e.out, "%s\n", data)
	}
	return nil
}
