// Package snapshot encodes cleaned batches as run CSV artifacts and decodes
// submitted CSV content back into readings for reprocessing.
package snapshot

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/envimetry/pipeline/internal/cleaning"
	"github.com/envimetry/pipeline/internal/telemetry"
)

// utf8BOM marks snapshots for spreadsheet tools that sniff encodings.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Provenance and status columns appended after the schema fields.
const (
	colTimestamp = "timestamp"
	colSource    = "source"
	colSuccess   = "success"
	colError     = "error_message"
	colImputed   = "imputed_fields"
)

// Columns returns the snapshot column order for a schema: timestamp, the
// schema fields in declaration order, then provenance columns.
func Columns(s telemetry.Schema) []string {
	cols := make([]string, 0, len(s.Fields)+5)
	cols = append(cols, colTimestamp)
	for _, f := range s.Fields {
		cols = append(cols, f.Name)
	}
	return append(cols, colSource, colSuccess, colError, colImputed)
}

// Filename names the artifact for one run.
func Filename(domain, runID string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s.csv", domain, at.Format("20060102_150405"), runID)
}

// Encode renders the batch as UTF-8 CSV with a byte-order mark. Null cells
// are empty strings.
func Encode(s telemetry.Schema, batch telemetry.Batch) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	cols := Columns(s)
	if err := w.Write(cols); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range batch.Readings {
		row := make([]string, 0, len(cols))
		row = append(row, r.Timestamp.Format(time.RFC3339))
		for _, f := range s.Fields {
			row = append(row, cell(f, r))
		}
		row = append(row, r.Source, strconv.FormatBool(r.Success), r.ErrorMessage, encodeImputed(r.Imputed))
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses CSV content into readings using the schema for typing.
// Unknown columns are ignored; a row with an unparseable timestamp is
// dropped rather than failing the batch.
func Decode(s telemetry.Schema, content []byte) ([]telemetry.Reading, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	rd := csv.NewReader(bytes.NewReader(content))
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true

	records, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv content has no header row")
	}

	header := records[0]
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	if _, ok := index[colTimestamp]; !ok {
		return nil, fmt.Errorf("csv content has no %s column", colTimestamp)
	}

	tz := telemetry.Timezone()
	out := make([]telemetry.Reading, 0, len(records)-1)
	for _, rec := range records[1:] {
		r, ok := decodeRow(s, index, rec, tz)
		if !ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func decodeRow(s telemetry.Schema, index map[string]int, rec []string, tz *time.Location) (telemetry.Reading, bool) {
	ts, ok := cleaning.ParseTimestampIn(field(rec, index, colTimestamp), tz)
	if !ok {
		return telemetry.Reading{}, false
	}

	r := telemetry.Reading{
		Timestamp: ts,
		Source:    field(rec, index, colSource),
		Success:   true,
		Numbers:   make(map[string]float64),
		Strings:   make(map[string]string),
	}
	if v := field(rec, index, colSuccess); v != "" {
		r.Success = strings.EqualFold(v, "true")
	}
	r.ErrorMessage = field(rec, index, colError)
	r.Imputed = decodeImputed(field(rec, index, colImputed))

	for _, f := range s.Fields {
		raw := field(rec, index, f.Name)
		if raw == "" {
			continue
		}
		switch f.Kind {
		case telemetry.KindNumber:
			if v, ok := cleaning.ParseNumeric(raw); ok {
				r.Numbers[f.Name] = v
			}
		case telemetry.KindString:
			r.Strings[f.Name] = raw
		}
	}
	return r, true
}

func field(rec []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func cell(f telemetry.Field, r telemetry.Reading) string {
	switch f.Kind {
	case telemetry.KindNumber:
		if v, ok := r.Number(f.Name); ok {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	case telemetry.KindString:
		if v, ok := r.String(f.Name); ok {
			return v
		}
	}
	return ""
}

func encodeImputed(imputed map[string]string) string {
	if len(imputed) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(imputed))
	for f, m := range imputed {
		pairs = append(pairs, f+":"+m)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ";")
}

func decodeImputed(cell string) map[string]string {
	if cell == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(cell, ";") {
		f, m, ok := strings.Cut(pair, ":")
		if !ok || f == "" {
			continue
		}
		out[f] = m
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
