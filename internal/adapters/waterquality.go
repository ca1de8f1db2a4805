package adapters

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// WaterQuality estimates water quality where no in-situ sensor network
// exists, composing current weather (rain, temperature, humidity) with the
// SoilGrids surface pH. The output fields are estimates and are flagged as
// such by the field names.
type WaterQuality struct {
	cfg Config
}

// NewWaterQuality builds the estimator. Without an OpenWeather key the
// weather terms fall back to regional norms and only pH is fetched.
func NewWaterQuality(cfg Config) *WaterQuality {
	cfg.defaults()
	return &WaterQuality{cfg: cfg}
}

func (a *WaterQuality) Name() string            { return "water-quality-estimate" }
func (a *WaterQuality) CacheTTL() time.Duration { return 0 }

func (a *WaterQuality) Fetch(ctx context.Context, loc telemetry.Location) telemetry.Reading {
	now := a.cfg.Clock.Now()

	// regional norms used when a feed is unavailable
	temp, humidity, rain24 := 25.0, 70.0, 0.0

	if a.cfg.OpenWeatherAPIKey != "" {
		params := url.Values{}
		params.Set("lat", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
		params.Set("lon", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
		params.Set("appid", a.cfg.OpenWeatherAPIKey)
		params.Set("units", "metric")

		var weather owWeatherResponse
		if err := getJSON(ctx, a.cfg.Client, query(a.cfg.OpenWeatherBaseURL, "/data/2.5/weather", params), &weather); err == nil {
			if weather.Main.Temp != nil {
				temp = *weather.Main.Temp
			}
			if weather.Main.Humidity != nil {
				humidity = *weather.Main.Humidity
			}
			if weather.Rain.OneHour != nil {
				rain24 = *weather.Rain.OneHour * 24
			}
		}
	}

	ph := 6.5
	phMeasured := false
	{
		params := url.Values{}
		params.Set("lat", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
		params.Set("lon", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
		params.Add("property", "phh2o")
		params.Set("depth", "0-5cm")
		params.Set("value", "mean")

		var resp soilGridsResponse
		if err := getJSON(ctx, a.cfg.Client, query(a.cfg.SoilGridsBaseURL, "/soilgrids/v2.0/properties/query", params), &resp); err == nil {
			for _, layer := range resp.Properties.Layers {
				if layer.Name != "phh2o" {
					continue
				}
				for _, d := range layer.Depths {
					if d.Label == "0-5cm" && d.Values.Mean != nil {
						ph = *d.Values.Mean / 10
						phMeasured = true
					}
				}
			}
		}
	}

	bacterialRisk := clamp((temp*2+humidity)/3, 0, 100)
	pollutionRisk := clamp(rain24*10, 0, 100)
	phRisk := 0.0
	switch {
	case ph < 5.5 || ph > 8.5:
		phRisk = 30
	case ph < 6 || ph > 8:
		phRisk = 15
	}
	score := clamp(100-(bacterialRisk+pollutionRisk+phRisk)/3, 0, 100)

	r := telemetry.NewReading(loc, a.Name(), now)
	if phMeasured {
		r.SetNumber("ph", ph)
	}
	r.SetNumber("rainfall_24h", rain24)
	r.SetNumber("estimated_turbidity", pollutionRisk)
	r.SetNumber("water_quality_score", score)
	r.SetNumber("water_quality_index", score)
	r.SetString("water_quality_category", qualityCategory(score))
	return r
}

func qualityCategory(score float64) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "fair"
	case score >= 20:
		return "poor"
	default:
		return "very_poor"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
