package cleaning

import (
	"math/rand"
	"sort"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// Imputation method names recorded in reading provenance.
const (
	MethodConstant  = "constant_default"
	MethodMedian    = "median_of_batch"
	MethodSynthetic = "synthetic_fallback"
	MethodEscalated = "synthetic_escalated"
)

// Strategy fills nulls for one field across a batch and reports how many
// cells it touched. Strategies mark every filled cell in the reading's
// provenance map so fabricated values stay distinguishable from measured
// data.
type Strategy interface {
	Method() string
	Impute(field telemetry.Field, readings []telemetry.Reading) int
}

// ConstantDefault fills null categoricals with the field's constant
// default, e.g. unknown country -> "VN".
type ConstantDefault struct{}

func (ConstantDefault) Method() string { return MethodConstant }

func (s ConstantDefault) Impute(field telemetry.Field, readings []telemetry.Reading) int {
	if field.Kind != telemetry.KindString || field.Default == "" {
		return 0
	}
	filled := 0
	for i := range readings {
		if _, ok := readings[i].String(field.Name); ok {
			continue
		}
		readings[i].SetString(field.Name, field.Default)
		readings[i].MarkImputed(field.Name, s.Method())
		filled++
	}
	return filled
}

// MedianOfBatch fills null numerics with the median of the batch's valid
// values; with an even count the median is the mean of the middle two.
type MedianOfBatch struct{}

func (MedianOfBatch) Method() string { return MethodMedian }

func (s MedianOfBatch) Impute(field telemetry.Field, readings []telemetry.Reading) int {
	if field.Kind != telemetry.KindNumber {
		return 0
	}
	valid := make([]float64, 0, len(readings))
	for i := range readings {
		if v, ok := readings[i].Number(field.Name); ok {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return 0
	}
	m := median(valid)
	filled := 0
	for i := range readings {
		if _, ok := readings[i].Number(field.Name); ok {
			continue
		}
		readings[i].SetNumber(field.Name, m)
		readings[i].MarkImputed(field.Name, s.Method())
		filled++
	}
	return filled
}

// SyntheticFallback draws a uniform value inside the field's plausible
// envelope. It only applies to fields that declare one, and only fills what
// the earlier strategies left null.
type SyntheticFallback struct {
	Rand *rand.Rand
}

func (SyntheticFallback) Method() string { return MethodSynthetic }

func (s SyntheticFallback) Impute(field telemetry.Field, readings []telemetry.Reading) int {
	if field.Kind != telemetry.KindNumber || field.Synth == nil {
		return 0
	}
	filled := 0
	for i := range readings {
		if _, ok := readings[i].Number(field.Name); ok {
			continue
		}
		readings[i].SetNumber(field.Name, s.draw(field))
		readings[i].MarkImputed(field.Name, s.Method())
		filled++
	}
	return filled
}

func (s SyntheticFallback) draw(field telemetry.Field) float64 {
	span := field.Synth.Max - field.Synth.Min
	return field.Synth.Min + s.Rand.Float64()*span
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
