package schema

import "github.com/envimetry/pipeline/internal/telemetry"

// Water returns the water resource schema. Quality scores are estimates
// composed from rainfall and soil signals where no in-situ sensor exists.
func Water() telemetry.Schema {
	fields := append(coreFields(),
		telemetry.Field{Name: "ph", Kind: telemetry.KindNumber, Bounds: bounds(0, 14), Important: true, Synth: bounds(6, 8.5)},
		telemetry.Field{Name: "water_quality_index", Kind: telemetry.KindNumber, Bounds: bounds(0, 100), Important: true, Synth: bounds(20, 90)},
		telemetry.Field{Name: "water_quality_score", Kind: telemetry.KindNumber, Bounds: bounds(0, 100), Important: true, Synth: bounds(20, 90)},
		telemetry.Field{Name: "rainfall_24h", Kind: telemetry.KindNumber, Bounds: bounds(0, 500)},
		telemetry.Field{Name: "rainfall_7d", Kind: telemetry.KindNumber, Bounds: bounds(0, 2000)},
		telemetry.Field{Name: "annual_rainfall_mm", Kind: telemetry.KindNumber, Bounds: bounds(0, 10000)},
		telemetry.Field{Name: "estimated_turbidity", Kind: telemetry.KindNumber, Bounds: bounds(0, 100)},
		telemetry.Field{Name: "estimated_flood_risk", Kind: telemetry.KindNumber, Bounds: bounds(0, 100)},
		telemetry.Field{Name: "estimated_drought_risk", Kind: telemetry.KindNumber, Bounds: bounds(0, 100)},
		telemetry.Field{Name: "region", Kind: telemetry.KindString},
		telemetry.Field{Name: "major_river", Kind: telemetry.KindString},
		telemetry.Field{Name: "water_source_type", Kind: telemetry.KindString, Default: "unknown"},
		telemetry.Field{Name: "water_availability", Kind: telemetry.KindString},
		telemetry.Field{Name: "flood_risk", Kind: telemetry.KindString},
		telemetry.Field{Name: "drought_risk", Kind: telemetry.KindString},
		telemetry.Field{Name: "water_quality_category", Kind: telemetry.KindString},
	)
	return telemetry.Schema{
		Domain:    DomainWater,
		FactTable: "water_record",
		Fields:    fields,
		Dimensions: []telemetry.Dimension{
			{
				Name:       "city",
				NaturalKey: []string{telemetry.FieldLocation, telemetry.FieldProvince},
				Attrs:      []string{telemetry.FieldLat, telemetry.FieldLon, "region", "major_river"},
			},
			{Name: "source", NaturalKey: []string{"source"}},
			{Name: "water_source_type", NaturalKey: []string{"water_source_type"}},
		},
	}
}
