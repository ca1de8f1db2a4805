// Package transform decomposes a cleaned batch into dimension tables with
// first-seen surrogate keys plus one fact table referencing them.
package transform

import (
	"sort"
	"strings"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// Table is a named relation: column order is load order.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Dataset is the transform output for one run.
type Dataset struct {
	Domain     string
	RunID      string
	Dimensions []Table
	Fact       Table
}

// keySep joins natural-key components; it cannot occur in field values.
const keySep = "\x1f"

// Transform builds the dimensional decomposition. Surrogate keys are
// assigned 1..k in first-seen order, so the output is reproducible for a
// deterministically sorted input batch.
func Transform(s telemetry.Schema, batch telemetry.Batch) Dataset {
	ds := Dataset{Domain: batch.Domain, RunID: batch.RunID}

	lookups := make([]map[string]int, len(s.Dimensions))
	for i, dim := range s.Dimensions {
		table, lookup := buildDimension(dim, batch.Readings)
		ds.Dimensions = append(ds.Dimensions, table)
		lookups[i] = lookup
	}
	ds.Fact = buildFact(s, batch.Readings, lookups)
	return ds
}

// buildDimension collects distinct natural-key tuples in first-seen order.
// A tuple participates only when at least one key component is non-null.
func buildDimension(dim telemetry.Dimension, rows []telemetry.Reading) (Table, map[string]int) {
	table := Table{
		Name:    "dim_" + dim.Name,
		Columns: append(append([]string{dim.KeyColumn()}, dim.NaturalKey...), dim.Attrs...),
	}
	lookup := make(map[string]int)

	for _, r := range rows {
		key, ok := naturalKey(dim, r)
		if !ok {
			continue
		}
		if _, seen := lookup[key]; seen {
			continue
		}
		id := len(lookup) + 1
		lookup[key] = id

		row := make([]any, 0, len(table.Columns))
		row = append(row, id)
		for _, col := range dim.NaturalKey {
			row = append(row, cellValue(r, col))
		}
		for _, col := range dim.Attrs {
			row = append(row, cellValue(r, col))
		}
		table.Rows = append(table.Rows, row)
	}
	return table, lookup
}

// buildFact projects the readings onto surrogate keys plus the measurement
// columns not consumed by any dimension.
func buildFact(s telemetry.Schema, rows []telemetry.Reading, lookups []map[string]int) Table {
	consumed := s.DimensionFieldSet()

	columns := []string{"timestamp"}
	for _, dim := range s.Dimensions {
		columns = append(columns, dim.KeyColumn())
	}
	var measurements []string
	for _, f := range s.Fields {
		if consumed[f.Name] || f.Name == "source" {
			continue
		}
		measurements = append(measurements, f.Name)
	}
	columns = append(columns, measurements...)
	columns = append(columns, "imputed_fields")

	fact := Table{Name: s.FactTable, Columns: columns}
	for _, r := range rows {
		row := make([]any, 0, len(columns))
		row = append(row, r.Timestamp)
		for i, dim := range s.Dimensions {
			key, ok := naturalKey(dim, r)
			if !ok {
				row = append(row, nil)
				continue
			}
			row = append(row, lookups[i][key])
		}
		for _, name := range measurements {
			row = append(row, cellValue(r, name))
		}
		row = append(row, provenance(r))
		fact.Rows = append(fact.Rows, row)
	}
	return fact
}

// naturalKey derives the lookup key for a reading; ok is false when every
// key component is null.
func naturalKey(dim telemetry.Dimension, r telemetry.Reading) (string, bool) {
	parts := make([]string, len(dim.NaturalKey))
	nonNull := false
	for i, col := range dim.NaturalKey {
		if v, ok := r.String(col); ok {
			parts[i] = v
			nonNull = true
		}
	}
	if !nonNull {
		return "", false
	}
	return strings.Join(parts, keySep), true
}

// cellValue reads a field as a nullable cell. Numbers and strings are
// looked up in their respective maps; a missing value is nil.
func cellValue(r telemetry.Reading, field string) any {
	if v, ok := r.Number(field); ok {
		return v
	}
	if v, ok := r.String(field); ok {
		return v
	}
	return nil
}

// provenance serializes the imputation map into a stable cell, empty when
// every value was measured.
func provenance(r telemetry.Reading) any {
	if len(r.Imputed) == 0 {
		return nil
	}
	pairs := make([]string, 0, len(r.Imputed))
	for field, method := range r.Imputed {
		pairs = append(pairs, field+":"+method)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ";")
}
