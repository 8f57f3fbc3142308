package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/city-bureau/city-scrapers-go/internal/config"
	"github.com/city-bureau/city-scrapers-go/internal/storage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates the --format flag.
func ParseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// WriteSummaries writes run summaries in the specified format
func WriteSummaries(w io.Writer, summaries []*RunSummary, format OutputFormat, verbose bool) error {
	if format == FormatJSON {
		return writeJSON(w, summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(w, "No spiders were run.")
		return nil
	}

	total := 0
	for _, s := range summaries {
		total += s.Records
		fmt.Fprintf(w, "%s: %d meetings (%d scraped, %d from previous batch, %d dropped) in %s\n",
			s.Spider, s.Records, s.Scraped, s.Injected, s.Dropped, s.Duration)
		if verbose {
			fmt.Fprintf(w, "     Previous batch: %d records\n", s.Previous)
			fmt.Fprintf(w, "     Exported: %t\n", s.Exported)
			for _, name := range sortedKeys(s.Counters) {
				fmt.Fprintf(w, "     %s: %d\n", name, s.Counters[name])
			}
		}
	}
	if len(summaries) > 1 {
		fmt.Fprintf(w, "\nTotal: %d meetings across %d spiders\n", total, len(summaries))
	}
	return nil
}

// WriteCombine writes a combine result in the specified format
func WriteCombine(w io.Writer, result *storage.CombineResult, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, result)
	}
	if len(result.Batches) == 0 {
		fmt.Fprintln(w, "No batches found.")
		return nil
	}
	fmt.Fprintf(w, "Combined %d batches from %s\n", len(result.Batches), result.Prefix)
	for _, b := range result.Batches {
		fmt.Fprintf(w, "  %s\n", b)
	}
	fmt.Fprintf(w, "\nTotal: %d meetings, %d upcoming\n", result.Meetings, result.Upcoming)
	return nil
}

// WriteReports writes validation reports. Text output renders one table per spider.
func WriteReports(w io.Writer, summaries []*RunSummary, format OutputFormat) error {
	if format == FormatJSON {
		reports := make(map[string]interface{}, len(summaries))
		for _, s := range summaries {
			reports[s.Spider] = s.Validation
		}
		return writeJSON(w, reports)
	}
	for _, s := range summaries {
		s.Validation.Render(w, s.Spider)
		fmt.Fprintln(w)
	}
	return nil
}

// WriteSpiders writes the configured spiders
func WriteSpiders(w io.Writer, spiders []config.SpiderConfig, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, spiders)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Agency", "Kind", "Timezone", "Start URLs"})
	for _, s := range spiders {
		t.AppendRow(table.Row{s.Name, s.Agency, s.Kind, s.Timezone, strings.Join(s.StartURLs, "\n")})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(spiders)})
	t.Render()
	return nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
