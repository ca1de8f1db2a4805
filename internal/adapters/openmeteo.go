package adapters

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/envimetry/pipeline/internal/telemetry"
)

type openMeteoResponse struct {
	Hourly struct {
		Time               []string   `json:"time"`
		SoilTemperature0cm []*float64 `json:"soil_temperature_0cm"`
		SoilTemperature6cm []*float64 `json:"soil_temperature_6cm"`
		SoilMoisture0To1cm []*float64 `json:"soil_moisture_0_to_1cm"`
		SoilMoisture1To3cm []*float64 `json:"soil_moisture_1_to_3cm"`
		SoilMoisture3To9cm []*float64 `json:"soil_moisture_3_to_9cm"`
	} `json:"hourly"`
	Daily struct {
		Temperature2mMax         []*float64 `json:"temperature_2m_max"`
		Temperature2mMin         []*float64 `json:"temperature_2m_min"`
		PrecipitationSum         []*float64 `json:"precipitation_sum"`
		ET0FAOEvapotranspiration []*float64 `json:"et0_fao_evapotranspiration"`
	} `json:"daily"`
}

// OpenMeteo reads real-time soil conditions from the Open-Meteo forecast
// API and derives the agronomic status fields.
type OpenMeteo struct {
	cfg Config
}

// NewOpenMeteo builds the adapter. The API needs no credentials.
func NewOpenMeteo(cfg Config) *OpenMeteo {
	cfg.defaults()
	return &OpenMeteo{cfg: cfg}
}

func (a *OpenMeteo) Name() string { return "open-meteo" }

// CacheTTL matches the forecast refresh cadence.
func (a *OpenMeteo) CacheTTL() time.Duration { return time.Hour }

func (a *OpenMeteo) Fetch(ctx context.Context, loc telemetry.Location) telemetry.Reading {
	now := a.cfg.Clock.Now()

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
	params.Set("hourly", "soil_temperature_0cm,soil_temperature_6cm,soil_moisture_0_to_1cm,soil_moisture_1_to_3cm,soil_moisture_3_to_9cm")
	params.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,et0_fao_evapotranspiration")
	params.Set("timezone", "Asia/Ho_Chi_Minh")

	var resp openMeteoResponse
	if err := getJSON(ctx, a.cfg.Client, query(a.cfg.OpenMeteoBaseURL, "/v1/forecast", params), &resp); err != nil {
		return fail(loc, a.Name(), now, err)
	}

	r := telemetry.NewReading(loc, a.Name(), now)

	idx := currentHourIndex(resp.Hourly.Time, now)
	pickHourly := func(field string, series []*float64) {
		if idx >= 0 && idx < len(series) {
			setNumber(r, field, series[idx])
		}
	}
	pickHourly("soil_temperature_0cm", resp.Hourly.SoilTemperature0cm)
	pickHourly("soil_temperature_6cm", resp.Hourly.SoilTemperature6cm)
	pickHourly("soil_moisture_0_to_1cm", resp.Hourly.SoilMoisture0To1cm)
	pickHourly("soil_moisture_1_to_3cm", resp.Hourly.SoilMoisture1To3cm)
	pickHourly("soil_moisture_3_to_9cm", resp.Hourly.SoilMoisture3To9cm)

	pickDaily := func(field string, series []*float64) {
		if len(series) > 0 {
			setNumber(r, field, series[0])
		}
	}
	pickDaily("temperature_2m_max", resp.Daily.Temperature2mMax)
	pickDaily("temperature_2m_min", resp.Daily.Temperature2mMin)
	pickDaily("precipitation_sum", resp.Daily.PrecipitationSum)
	pickDaily("et0_fao_evapotranspiration", resp.Daily.ET0FAOEvapotranspiration)

	if len(r.Numbers) <= 2 { // only lat/lon seeded
		return fail(loc, a.Name(), now, &sourceError{code: telemetry.ErrCodeBadResponse, msg: "response carries no soil series"})
	}

	deriveSoilStatus(r)
	return r
}

// deriveSoilStatus fills the agronomic categoricals from the raw series.
func deriveSoilStatus(r telemetry.Reading) {
	if m, ok := r.Number("soil_moisture_0_to_1cm"); ok {
		switch {
		case m < 0.1:
			r.SetString("moisture_status", "very_dry")
		case m < 0.2:
			r.SetString("moisture_status", "dry")
		case m < 0.3:
			r.SetString("moisture_status", "adequate")
		case m < 0.4:
			r.SetString("moisture_status", "moist")
		default:
			r.SetString("moisture_status", "wet")
		}
	}
	if tmp, ok := r.Number("soil_temperature_0cm"); ok {
		switch {
		case tmp < 10:
			r.SetString("temperature_stress", "cold_stress")
		case tmp < 15:
			r.SetString("temperature_stress", "cool")
		case tmp < 25:
			r.SetString("temperature_stress", "optimal")
		case tmp < 35:
			r.SetString("temperature_stress", "warm")
		default:
			r.SetString("temperature_stress", "heat_stress")
		}
	}
	if et0, ok := r.Number("et0_fao_evapotranspiration"); ok {
		switch {
		case et0 < 2:
			r.SetString("irrigation_need", "low")
		case et0 < 4:
			r.SetString("irrigation_need", "moderate")
		case et0 < 6:
			r.SetString("irrigation_need", "high")
		default:
			r.SetString("irrigation_need", "very_high")
		}
	}
}

// currentHourIndex picks the latest series index not after now; -1 when the
// axis is empty, 0 when every entry is in the future. The axis is requested
// in the pipeline timezone, so entries are parsed there too.
func currentHourIndex(times []string, now time.Time) int {
	if len(times) == 0 {
		return -1
	}
	tz := telemetry.Timezone()
	best := 0
	for i, s := range times {
		ts, err := time.ParseInLocation("2006-01-02T15:04", s, tz)
		if err != nil {
			continue
		}
		if ts.After(now) {
			break
		}
		best = i
	}
	return best
}
