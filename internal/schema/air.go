package schema

import "github.com/envimetry/pipeline/internal/telemetry"

// Air returns the air quality schema. Pollutant bounds follow outdoor
// measurement ranges; AQI outside [10,500] is treated as sensor noise.
func Air() telemetry.Schema {
	fields := append(coreFields(),
		telemetry.Field{Name: "aqi", Kind: telemetry.KindNumber, Bounds: bounds(10, 500), Important: true, Synth: bounds(20, 160)},
		telemetry.Field{Name: "pm25", Kind: telemetry.KindNumber, Bounds: bounds(0, 1000), Important: true, Synth: bounds(5, 120)},
		telemetry.Field{Name: "pm10", Kind: telemetry.KindNumber, Bounds: bounds(0, 1200)},
		telemetry.Field{Name: "o3", Kind: telemetry.KindNumber, Bounds: bounds(0, 600)},
		telemetry.Field{Name: "no2", Kind: telemetry.KindNumber, Bounds: bounds(0, 400)},
		telemetry.Field{Name: "so2", Kind: telemetry.KindNumber, Bounds: bounds(0, 500)},
		telemetry.Field{Name: "co", Kind: telemetry.KindNumber, Bounds: bounds(0, 50)},
		telemetry.Field{Name: "nh3", Kind: telemetry.KindNumber, Bounds: bounds(0, 200)},
		telemetry.Field{Name: "temperature", Kind: telemetry.KindNumber, Bounds: bounds(-50, 60)},
		telemetry.Field{Name: "humidity", Kind: telemetry.KindNumber, Bounds: bounds(0, 100)},
		telemetry.Field{Name: "pressure", Kind: telemetry.KindNumber, Bounds: bounds(800, 1100)},
		telemetry.Field{Name: "wind_speed", Kind: telemetry.KindNumber, Bounds: bounds(0, 120)},
		telemetry.Field{Name: "wind_direction", Kind: telemetry.KindNumber, Bounds: bounds(0, 360)},
		telemetry.Field{Name: "visibility", Kind: telemetry.KindNumber, Bounds: bounds(0, 100000)},
		telemetry.Field{Name: "weather_condition", Kind: telemetry.KindString, Default: "unknown"},
	)
	return telemetry.Schema{
		Domain:    DomainAir,
		FactTable: "air_quality_record",
		Fields:    fields,
		Dimensions: []telemetry.Dimension{
			{
				Name:       "city",
				NaturalKey: []string{telemetry.FieldLocation, telemetry.FieldProvince},
				Attrs:      []string{telemetry.FieldLat, telemetry.FieldLon},
			},
			{Name: "source", NaturalKey: []string{"source"}},
			{Name: "weather_condition", NaturalKey: []string{"weather_condition"}},
		},
	}
}
