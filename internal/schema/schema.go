// Package schema holds the hand-specified per-domain descriptors that
// parameterize the ingestion pipeline. Each domain has a fixed field list,
// physical bounds table, and dimensional decomposition.
package schema

import (
	"fmt"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// Domain names accepted by the pipeline.
const (
	DomainAir     = "air"
	DomainClimate = "climate"
	DomainSoil    = "soil"
	DomainWater   = "water"
)

// ByDomain returns the schema for a domain name.
func ByDomain(domain string) (telemetry.Schema, error) {
	switch domain {
	case DomainAir:
		return Air(), nil
	case DomainClimate:
		return Climate(), nil
	case DomainSoil:
		return Soil(), nil
	case DomainWater:
		return Water(), nil
	}
	return telemetry.Schema{}, fmt.Errorf("unknown domain %q", domain)
}

// Domains lists every supported domain.
func Domains() []string {
	return []string{DomainAir, DomainClimate, DomainSoil, DomainWater}
}

func bounds(min, max float64) *telemetry.Bounds {
	return &telemetry.Bounds{Min: min, Max: max}
}

// coreFields are shared by every domain: the location identity columns.
func coreFields() []telemetry.Field {
	return []telemetry.Field{
		{Name: telemetry.FieldLocation, Kind: telemetry.KindString, Required: true},
		{Name: telemetry.FieldProvince, Kind: telemetry.KindString, Required: true},
		{Name: telemetry.FieldCountry, Kind: telemetry.KindString, Default: "VN"},
		{Name: telemetry.FieldLat, Kind: telemetry.KindNumber, Bounds: bounds(-90, 90), Required: true},
		{Name: telemetry.FieldLon, Kind: telemetry.KindNumber, Bounds: bounds(-180, 180), Required: true},
	}
}
