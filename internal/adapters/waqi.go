package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// waqiResponse is the api.waqi.info feed shape. AQI is a json.Number-ish
// field that sometimes arrives as the string "-" when a station is down.
type waqiResponse struct {
	Status string `json:"status"`
	Data   struct {
		AQI  json.RawMessage `json:"aqi"`
		IAQI map[string]struct {
			V *float64 `json:"v"`
		} `json:"iaqi"`
	} `json:"data"`
}

// WAQI reads the World Air Quality Index feed by coordinates, falling back
// to the city-name feed when the geo feed has no station.
type WAQI struct {
	cfg Config
}

// NewWAQI builds the adapter. The public "demo" token is used when none is
// configured.
func NewWAQI(cfg Config) *WAQI {
	cfg.defaults()
	if cfg.WAQIToken == "" {
		cfg.WAQIToken = "demo"
	}
	return &WAQI{cfg: cfg}
}

func (a *WAQI) Name() string            { return "waqi" }
func (a *WAQI) CacheTTL() time.Duration { return 0 }

func (a *WAQI) Fetch(ctx context.Context, loc telemetry.Location) telemetry.Reading {
	now := a.cfg.Clock.Now()
	params := url.Values{}
	params.Set("token", a.cfg.WAQIToken)

	paths := []string{
		fmt.Sprintf("/feed/geo:%.4f;%.4f/", loc.Lat, loc.Lon),
		fmt.Sprintf("/feed/%s/", citySlug(loc.Name)),
	}

	var lastErr *sourceError
	for _, path := range paths {
		var resp waqiResponse
		if err := getJSON(ctx, a.cfg.Client, query(a.cfg.WAQIBaseURL, path, params), &resp); err != nil {
			lastErr = err
			continue
		}
		if resp.Status != "ok" {
			lastErr = &sourceError{code: telemetry.ErrCodeBadResponse, msg: "feed status " + resp.Status}
			continue
		}
		aqi, ok := parseWAQINumber(resp.Data.AQI)
		if !ok {
			lastErr = &sourceError{code: telemetry.ErrCodeBadResponse, msg: "station reports no AQI"}
			continue
		}

		r := telemetry.NewReading(loc, a.Name(), now)
		r.SetNumber("aqi", aqi)
		for field, key := range map[string]string{
			"pm25": "pm25", "pm10": "pm10", "o3": "o3",
			"no2": "no2", "so2": "so2", "co": "co",
		} {
			if v, ok := resp.Data.IAQI[key]; ok && v.V != nil {
				r.SetNumber(field, *v.V)
			}
		}
		return r
	}
	return fail(loc, a.Name(), now, lastErr)
}

// parseWAQINumber tolerates the feed's mixed typing: a number, a numeric
// string, or "-" for no data.
func parseWAQINumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if err := json.Unmarshal([]byte(s), &n); err == nil {
			return n, true
		}
	}
	return 0, false
}
