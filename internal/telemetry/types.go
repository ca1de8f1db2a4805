// Package telemetry defines core types shared across the ingestion pipeline.
package telemetry

import (
	"sort"
	"time"
)

// Well-known field names shared by every domain schema.
const (
	FieldLocation = "location"
	FieldProvince = "province"
	FieldCountry  = "country"
	FieldLat      = "lat"
	FieldLon      = "lon"
)

// Location identifies a crawl target. Natural key: (Name, Province).
type Location struct {
	Name     string   `json:"name" mapstructure:"name"`
	AltNames []string `json:"alt_names,omitempty" mapstructure:"alt_names"`
	Province string   `json:"province" mapstructure:"province"`
	Country  string   `json:"country,omitempty" mapstructure:"country"`
	Lat      float64  `json:"lat" mapstructure:"lat"`
	Lon      float64  `json:"lon" mapstructure:"lon"`
	River    string   `json:"major_river,omitempty" mapstructure:"major_river"`
}

// Reading is one record per (location, source, timestamp). Measurement fields
// live in Numbers/Strings keyed by canonical field name; a missing key is a
// null value. Failure readings carry the same location fields as successes so
// downstream code always sees a uniform shape.
type Reading struct {
	Timestamp    time.Time
	Source       string
	Success      bool
	ErrorCode    string
	ErrorMessage string

	Numbers map[string]float64
	Strings map[string]string

	// Imputed maps field name to the imputation method that produced its
	// value, so fabricated values stay distinguishable from measured data.
	Imputed map[string]string
}

// NewReading builds a successful reading seeded with the location fields.
func NewReading(loc Location, source string, ts time.Time) Reading {
	return Reading{
		Timestamp: ts,
		Source:    source,
		Success:   true,
		Numbers: map[string]float64{
			FieldLat: loc.Lat,
			FieldLon: loc.Lon,
		},
		Strings: map[string]string{
			FieldLocation: loc.Name,
			FieldProvince: loc.Province,
			FieldCountry:  loc.Country,
		},
	}
}

// NewFailure builds a failure reading for the location.
func NewFailure(loc Location, source string, ts time.Time, code, message string) Reading {
	r := NewReading(loc, source, ts)
	r.Success = false
	r.ErrorCode = code
	r.ErrorMessage = message
	return r
}

// Location returns the location name field.
func (r Reading) Location() string { return r.Strings[FieldLocation] }

// Province returns the province field.
func (r Reading) Province() string { return r.Strings[FieldProvince] }

// Number returns the numeric field value and whether it is non-null.
func (r Reading) Number(field string) (float64, bool) {
	v, ok := r.Numbers[field]
	return v, ok
}

// String returns the categorical field value and whether it is non-null.
func (r Reading) String(field string) (string, bool) {
	v, ok := r.Strings[field]
	return v, ok && v != ""
}

// SetNumber stores a numeric field value.
func (r Reading) SetNumber(field string, v float64) { r.Numbers[field] = v }

// SetString stores a categorical field value; empty strings are nulls and
// are not stored.
func (r Reading) SetString(field, v string) {
	if v != "" {
		r.Strings[field] = v
	}
}

// MarkImputed records the imputation method used for a field.
func (r *Reading) MarkImputed(field, method string) {
	if r.Imputed == nil {
		r.Imputed = make(map[string]string)
	}
	r.Imputed[field] = method
}

// Clone returns a deep copy of the reading.
func (r Reading) Clone() Reading {
	out := r
	out.Numbers = make(map[string]float64, len(r.Numbers))
	for k, v := range r.Numbers {
		out.Numbers[k] = v
	}
	out.Strings = make(map[string]string, len(r.Strings))
	for k, v := range r.Strings {
		out.Strings[k] = v
	}
	if r.Imputed != nil {
		out.Imputed = make(map[string]string, len(r.Imputed))
		for k, v := range r.Imputed {
			out.Imputed[k] = v
		}
	}
	return out
}

// SortReadings orders a batch deterministically: timestamp descending, then
// location ascending. Every downstream stage depends on this order for
// reproducible surrogate key assignment.
func SortReadings(batch []Reading) {
	sort.SliceStable(batch, func(i, j int) bool {
		if !batch[i].Timestamp.Equal(batch[j].Timestamp) {
			return batch[i].Timestamp.After(batch[j].Timestamp)
		}
		return batch[i].Location() < batch[j].Location()
	})
}

// SourceCounts tracks per-source success/failure totals for one run.
type SourceCounts struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	CacheHits int `json:"cache_hits"`
}

// Batch is the orchestrator output: readings plus per-source counts.
type Batch struct {
	Domain   string
	RunID    string
	Readings []Reading
	Counts   map[string]SourceCounts
}

// Sources lists the source ids present in the counts, sorted.
func (b Batch) Sources() []string {
	out := make([]string, 0, len(b.Counts))
	for s := range b.Counts {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
