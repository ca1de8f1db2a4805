package adapters

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// soilGridsResponse is the ISRIC properties/query shape. Values arrive
// scaled by property-specific factors (pH by 10, texture fractions by 10,
// nitrogen by 100).
type soilGridsResponse struct {
	Properties struct {
		Layers []struct {
			Name   string `json:"name"`
			Depths []struct {
				Label  string `json:"label"`
				Values struct {
					Mean *float64 `json:"mean"`
				} `json:"values"`
			} `json:"depths"`
		} `json:"layers"`
	} `json:"properties"`
}

// SoilGrids reads static soil properties from the ISRIC SoilGrids API.
type SoilGrids struct {
	cfg Config
}

// NewSoilGrids builds the adapter. The API needs no credentials.
func NewSoilGrids(cfg Config) *SoilGrids {
	cfg.defaults()
	return &SoilGrids{cfg: cfg}
}

func (a *SoilGrids) Name() string { return "soilgrids" }

// CacheTTL is a week: the properties are survey-derived and effectively
// static.
func (a *SoilGrids) CacheTTL() time.Duration { return 168 * time.Hour }

func (a *SoilGrids) Fetch(ctx context.Context, loc telemetry.Location) telemetry.Reading {
	now := a.cfg.Clock.Now()

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
	for _, p := range []string{"phh2o", "clay", "sand", "silt", "soc", "nitrogen"} {
		params.Add("property", p)
	}
	params.Set("depth", "0-5cm")
	params.Set("value", "mean")

	var resp soilGridsResponse
	if err := getJSON(ctx, a.cfg.Client, query(a.cfg.SoilGridsBaseURL, "/soilgrids/v2.0/properties/query", params), &resp); err != nil {
		return fail(loc, a.Name(), now, err)
	}

	surface := map[string]float64{}
	for _, layer := range resp.Properties.Layers {
		for _, d := range layer.Depths {
			if d.Label == "0-5cm" && d.Values.Mean != nil {
				surface[layer.Name] = *d.Values.Mean
				break
			}
		}
	}
	if len(surface) == 0 {
		return fail(loc, a.Name(), now, &sourceError{code: telemetry.ErrCodeBadResponse, msg: "no surface layer values"})
	}

	r := telemetry.NewReading(loc, a.Name(), now)
	if v, ok := surface["phh2o"]; ok {
		r.SetNumber("ph", v/10)
	}
	if v, ok := surface["clay"]; ok {
		r.SetNumber("clay_content", v/10)
	}
	if v, ok := surface["sand"]; ok {
		r.SetNumber("sand_content", v/10)
	}
	if v, ok := surface["silt"]; ok {
		r.SetNumber("silt_content", v/10)
	}
	if v, ok := surface["soc"]; ok {
		r.SetNumber("organic_carbon", v/10)
	}
	if v, ok := surface["nitrogen"]; ok {
		r.SetNumber("nitrogen", v/100)
	}

	r.SetString("soil_type", classifyTexture(r))
	if ph, ok := r.Number("ph"); ok {
		r.SetString("soil_health_status", classifySoilHealth(ph))
	}
	return r
}

// classifyTexture is a coarse USDA-style split on the dominant fraction.
func classifyTexture(r telemetry.Reading) string {
	clay, hasClay := r.Number("clay_content")
	sand, hasSand := r.Number("sand_content")
	silt, hasSilt := r.Number("silt_content")
	if !hasClay || !hasSand || !hasSilt {
		return "unknown"
	}
	switch {
	case clay >= 40:
		return "clay"
	case sand >= 60:
		return "sandy"
	case silt >= 60:
		return "silty"
	case clay >= 25:
		return "clay_loam"
	default:
		return "loam"
	}
}

func classifySoilHealth(ph float64) string {
	switch {
	case ph < 4.5:
		return "poor_acidic"
	case ph < 5.5:
		return "marginal"
	case ph <= 7.5:
		return "healthy"
	case ph <= 8.5:
		return "marginal"
	default:
		return "poor_alkaline"
	}
}
