package schema

import "github.com/envimetry/pipeline/internal/telemetry"

// Climate returns the weather observation schema.
func Climate() telemetry.Schema {
	fields := append(coreFields(),
		telemetry.Field{Name: "temperature", Kind: telemetry.KindNumber, Bounds: bounds(-50, 60), Important: true, Synth: bounds(18, 36)},
		telemetry.Field{Name: "feels_like", Kind: telemetry.KindNumber, Bounds: bounds(-60, 70)},
		telemetry.Field{Name: "temp_min", Kind: telemetry.KindNumber, Bounds: bounds(-50, 60)},
		telemetry.Field{Name: "temp_max", Kind: telemetry.KindNumber, Bounds: bounds(-50, 60)},
		telemetry.Field{Name: "humidity", Kind: telemetry.KindNumber, Bounds: bounds(0, 100), Important: true, Synth: bounds(40, 95)},
		telemetry.Field{Name: "pressure", Kind: telemetry.KindNumber, Bounds: bounds(800, 1100)},
		telemetry.Field{Name: "dew_point", Kind: telemetry.KindNumber, Bounds: bounds(-60, 40)},
		telemetry.Field{Name: "uvi", Kind: telemetry.KindNumber, Bounds: bounds(0, 20)},
		telemetry.Field{Name: "rainfall", Kind: telemetry.KindNumber, Bounds: bounds(0, 500)},
		telemetry.Field{Name: "wind_speed", Kind: telemetry.KindNumber, Bounds: bounds(0, 120)},
		telemetry.Field{Name: "wind_deg", Kind: telemetry.KindNumber, Bounds: bounds(0, 360)},
		telemetry.Field{Name: "wind_gust", Kind: telemetry.KindNumber, Bounds: bounds(0, 150)},
		telemetry.Field{Name: "clouds", Kind: telemetry.KindNumber, Bounds: bounds(0, 100)},
		telemetry.Field{Name: "visibility", Kind: telemetry.KindNumber, Bounds: bounds(0, 100000)},
		telemetry.Field{Name: "weather_condition", Kind: telemetry.KindString, Default: "unknown"},
		telemetry.Field{Name: "weather_main", Kind: telemetry.KindString},
	)
	return telemetry.Schema{
		Domain:    DomainClimate,
		FactTable: "climate_record",
		Fields:    fields,
		Dimensions: []telemetry.Dimension{
			{
				Name:       "city",
				NaturalKey: []string{telemetry.FieldLocation, telemetry.FieldProvince},
				Attrs:      []string{telemetry.FieldLat, telemetry.FieldLon},
			},
			{Name: "source", NaturalKey: []string{"source"}},
			{Name: "weather_condition", NaturalKey: []string{"weather_condition", "weather_main"}},
		},
	}
}
