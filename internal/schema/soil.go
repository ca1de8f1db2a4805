package schema

import "github.com/envimetry/pipeline/internal/telemetry"

// Soil returns the soil condition schema. Moisture fields are volumetric
// fractions, not percentages.
func Soil() telemetry.Schema {
	fields := append(coreFields(),
		telemetry.Field{Name: "soil_temperature_0cm", Kind: telemetry.KindNumber, Bounds: bounds(-20, 60), Important: true, Synth: bounds(15, 38)},
		telemetry.Field{Name: "soil_temperature_6cm", Kind: telemetry.KindNumber, Bounds: bounds(-20, 55)},
		telemetry.Field{Name: "soil_moisture_0_to_1cm", Kind: telemetry.KindNumber, Bounds: bounds(0, 1), Important: true, Synth: bounds(0.1, 0.5)},
		telemetry.Field{Name: "soil_moisture_1_to_3cm", Kind: telemetry.KindNumber, Bounds: bounds(0, 1)},
		telemetry.Field{Name: "soil_moisture_3_to_9cm", Kind: telemetry.KindNumber, Bounds: bounds(0, 1)},
		telemetry.Field{Name: "temperature_2m_max", Kind: telemetry.KindNumber, Bounds: bounds(-50, 60)},
		telemetry.Field{Name: "temperature_2m_min", Kind: telemetry.KindNumber, Bounds: bounds(-50, 60)},
		telemetry.Field{Name: "precipitation_sum", Kind: telemetry.KindNumber, Bounds: bounds(0, 1000)},
		telemetry.Field{Name: "et0_fao_evapotranspiration", Kind: telemetry.KindNumber, Bounds: bounds(0, 30)},
		telemetry.Field{Name: "ph", Kind: telemetry.KindNumber, Bounds: bounds(3, 10), Important: true, Synth: bounds(4.5, 7.5)},
		telemetry.Field{Name: "clay_content", Kind: telemetry.KindNumber, Bounds: bounds(0, 100)},
		telemetry.Field{Name: "sand_content", Kind: telemetry.KindNumber, Bounds: bounds(0, 100)},
		telemetry.Field{Name: "silt_content", Kind: telemetry.KindNumber, Bounds: bounds(0, 100)},
		telemetry.Field{Name: "organic_carbon", Kind: telemetry.KindNumber, Bounds: bounds(0, 800)},
		telemetry.Field{Name: "nitrogen", Kind: telemetry.KindNumber, Bounds: bounds(0, 50)},
		telemetry.Field{Name: "soil_type", Kind: telemetry.KindString, Default: "unknown"},
		telemetry.Field{Name: "moisture_status", Kind: telemetry.KindString},
		telemetry.Field{Name: "temperature_stress", Kind: telemetry.KindString},
		telemetry.Field{Name: "irrigation_need", Kind: telemetry.KindString},
		telemetry.Field{Name: "soil_health_status", Kind: telemetry.KindString},
	)
	return telemetry.Schema{
		Domain:    DomainSoil,
		FactTable: "soil_record",
		Fields:    fields,
		Dimensions: []telemetry.Dimension{
			{
				Name:       "city",
				NaturalKey: []string{telemetry.FieldLocation, telemetry.FieldProvince},
				Attrs:      []string{telemetry.FieldLat, telemetry.FieldLon},
			},
			{Name: "source", NaturalKey: []string{"source"}},
			{Name: "soil_type", NaturalKey: []string{"soil_type"}},
		},
	}
}
