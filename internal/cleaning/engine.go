// Package cleaning turns a raw crawl batch into a fully typed, bounded,
// deduplicated batch under a deterministic step order: success filter,
// normalization, required-field filter, dedup, range clipping, imputation,
// storage safety. Per-field problems never abort the batch; the only hard
// failure is zero records surviving the required-field filter.
package cleaning

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/envimetry/pipeline/internal/metrics"
	"github.com/envimetry/pipeline/internal/telemetry"
)

// maxSafeValue bounds what the store can represent without precision loss.
const maxSafeValue = 1e15

// escalationThreshold is the pre-imputation null fraction across important
// field cells beyond which those fields are substituted wholesale.
const escalationThreshold = 0.30

// Engine cleans batches for one schema.
type Engine struct {
	schema telemetry.Schema
	tz     *time.Location
	rng    *rand.Rand
	logger *zap.Logger

	constant  ConstantDefault
	median    MedianOfBatch
	synthetic SyntheticFallback
}

// Option configures an Engine.
type Option func(*Engine)

// WithSeed makes synthetic imputation reproducible.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewSource(seed)) }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine builds a cleaning engine for the schema. Timestamps are
// canonicalized to Asia/Ho_Chi_Minh.
func NewEngine(s telemetry.Schema, opts ...Option) *Engine {
	e := &Engine{
		schema: s,
		tz:     telemetry.Timezone(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.synthetic = SyntheticFallback{Rand: e.rng}
	return e
}

// Clean runs the full step order and returns the batch with its readings
// replaced by the cleaned set. ErrBatchEmpty is the only error.
func (e *Engine) Clean(batch telemetry.Batch) (telemetry.Batch, error) {
	in := len(batch.Readings)
	metrics.AddCleaningRecords(batch.Domain, "input", in)

	rows := e.successFilter(batch.Readings)
	rows = e.normalize(rows)
	rows = e.requiredFieldFilter(rows)
	if len(rows) == 0 {
		return batch, telemetry.ErrBatchEmpty
	}
	rows = e.dedup(rows)
	e.clip(rows)
	e.impute(batch.Domain, rows)
	e.storageSafety(rows)

	metrics.AddCleaningRecords(batch.Domain, "output", len(rows))
	e.logger.Info("batch cleaned",
		zap.String("domain", batch.Domain),
		zap.String("run_id", batch.RunID),
		zap.Int("in", in),
		zap.Int("out", len(rows)),
	)

	out := batch
	out.Readings = rows
	return out, nil
}

// successFilter drops failure readings; they exist for counting, not for
// loading.
func (e *Engine) successFilter(rows []telemetry.Reading) []telemetry.Reading {
	out := rows[:0:0]
	for _, r := range rows {
		if r.Success {
			out = append(out, r.Clone())
		}
	}
	return out
}

// normalize canonicalizes timestamps, drops unknown fields, and
// materializes provenance as the source column.
func (e *Engine) normalize(rows []telemetry.Reading) []telemetry.Reading {
	known := map[string]telemetry.Kind{}
	for _, f := range e.schema.Fields {
		known[f.Name] = f.Kind
	}
	for i := range rows {
		r := &rows[i]
		if !r.Timestamp.IsZero() {
			r.Timestamp = r.Timestamp.In(e.tz)
		}
		for name := range r.Numbers {
			if kind, ok := known[name]; !ok || kind != telemetry.KindNumber {
				delete(r.Numbers, name)
			}
		}
		for name := range r.Strings {
			if name == "source" {
				continue
			}
			if kind, ok := known[name]; !ok || kind != telemetry.KindString {
				delete(r.Strings, name)
			}
		}
		r.Strings["source"] = r.Source
	}
	return rows
}

// requiredFieldFilter drops records missing any required field or a usable
// timestamp.
func (e *Engine) requiredFieldFilter(rows []telemetry.Reading) []telemetry.Reading {
	out := rows[:0]
	for _, r := range rows {
		if r.Timestamp.IsZero() {
			continue
		}
		keep := true
		for _, f := range e.schema.Fields {
			if !f.Required {
				continue
			}
			switch f.Kind {
			case telemetry.KindNumber:
				if _, ok := r.Number(f.Name); !ok {
					keep = false
				}
			case telemetry.KindString:
				if _, ok := r.String(f.Name); !ok {
					keep = false
				}
			}
			if !keep {
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

// dedup drops exact duplicates on (location, timestamp), keeping the first
// occurrence.
func (e *Engine) dedup(rows []telemetry.Reading) []telemetry.Reading {
	seen := map[string]bool{}
	out := rows[:0]
	for _, r := range rows {
		key := r.Location() + "|" + r.Timestamp.Format(time.RFC3339)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// clip nulls numeric values outside their documented physical bounds; the
// record itself survives.
func (e *Engine) clip(rows []telemetry.Reading) {
	for _, f := range e.schema.NumberFields() {
		if f.Bounds == nil {
			continue
		}
		for i := range rows {
			if v, ok := rows[i].Number(f.Name); ok && !f.Bounds.Contains(v) {
				delete(rows[i].Numbers, f.Name)
			}
		}
	}
}

// impute fills nulls in priority order: constant default, median of batch,
// synthetic fallback; under high missingness the important fields are
// substituted wholesale so the non-null contract holds downstream.
func (e *Engine) impute(domain string, rows []telemetry.Reading) {
	escalate := e.shouldEscalate(rows)
	if escalate {
		e.logger.Warn("important-field missingness over threshold, substituting synthetic values",
			zap.String("domain", domain))
	}

	for _, f := range e.schema.Fields {
		if n := e.constant.Impute(f, rows); n > 0 {
			metrics.AddImputedValues(domain, MethodConstant, n)
		}

		if f.Kind != telemetry.KindNumber {
			continue
		}
		if escalate && f.Important && f.Synth != nil {
			n := 0
			for i := range rows {
				delete(rows[i].Numbers, f.Name)
				rows[i].SetNumber(f.Name, e.synthetic.draw(f))
				rows[i].MarkImputed(f.Name, MethodEscalated)
				n++
			}
			metrics.AddImputedValues(domain, MethodEscalated, n)
			continue
		}
		if n := e.median.Impute(f, rows); n > 0 {
			metrics.AddImputedValues(domain, MethodMedian, n)
		}
		if n := e.synthetic.Impute(f, rows); n > 0 {
			metrics.AddImputedValues(domain, MethodSynthetic, n)
		}
	}
}

// shouldEscalate measures the pre-imputation null fraction across the
// important-field cells.
func (e *Engine) shouldEscalate(rows []telemetry.Reading) bool {
	important := e.schema.ImportantFields()
	if len(important) == 0 || len(rows) == 0 {
		return false
	}
	nulls, cells := 0, 0
	for _, f := range important {
		for i := range rows {
			cells++
			switch f.Kind {
			case telemetry.KindNumber:
				if _, ok := rows[i].Number(f.Name); !ok {
					nulls++
				}
			case telemetry.KindString:
				if _, ok := rows[i].String(f.Name); !ok {
					nulls++
				}
			}
		}
	}
	return float64(nulls)/float64(cells) > escalationThreshold
}

// storageSafety nulls non-finite or unrepresentably large values.
func (e *Engine) storageSafety(rows []telemetry.Reading) {
	for i := range rows {
		for name, v := range rows[i].Numbers {
			if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxSafeValue {
				delete(rows[i].Numbers, name)
			}
		}
	}
}

// ParseNumeric coerces a string cell into a float64, tolerating locale
// decimal commas and surrounding noise. Unparseable input is null.
func ParseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") || s == "-" {
		return 0, false
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseTimestamp parses a timestamp cell in any of the formats the sources
// emit, returning it in the canonical timezone.
func (e *Engine) ParseTimestamp(s string) (time.Time, bool) {
	return ParseTimestampIn(s, e.tz)
}

// ParseTimestampIn parses a timestamp cell relative to the given location.
func ParseTimestampIn(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts.In(loc), true
		}
	}
	return time.Time{}, false
}
