package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SyntaxError reports a line of a feed that is not valid JSON.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// ParseLines decodes a newline-delimited JSON feed. Blank lines are skipped; any other
// line that fails to decode aborts the parse.
func ParseLines(data []byte) ([]Record, error) {
	records := make([]Record, 0)
	for i, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, &SyntaxError{Line: i + 1, Err: err}
		}
		if rec == nil {
			return nil, &SyntaxError{Line: i + 1, Err: fmt.Errorf("expected object, got null")}
		}
		records = append(records, rec)
	}
	return records, nil
}

// EncodeLines encodes records as newline-delimited JSON without a trailing newline.
func EncodeLines(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encoding record %d: %w", i, err)
		}
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
