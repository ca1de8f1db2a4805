package adapters

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// nasaPowerResponse is the temporal/daily/point shape: one map of
// date -> value per requested parameter. -999 is the fill value for
// missing days.
type nasaPowerResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

const nasaPowerFill = -999

// NASAPower reads 30-day agro-meteorology aggregates from the NASA POWER
// daily API. It backs the climate domain where no station feed exists.
type NASAPower struct {
	cfg Config
}

// NewNASAPower builds the adapter. The API needs no credentials.
func NewNASAPower(cfg Config) *NASAPower {
	cfg.defaults()
	return &NASAPower{cfg: cfg}
}

func (a *NASAPower) Name() string { return "nasa-power" }

// CacheTTL matches the daily publication cadence.
func (a *NASAPower) CacheTTL() time.Duration { return 24 * time.Hour }

func (a *NASAPower) Fetch(ctx context.Context, loc telemetry.Location) telemetry.Reading {
	now := a.cfg.Clock.Now()

	params := url.Values{}
	params.Set("parameters", "T2M,T2M_MAX,T2M_MIN,RH2M,PRECTOTCORR,WS2M")
	params.Set("community", "AG")
	params.Set("latitude", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
	params.Set("start", now.AddDate(0, 0, -30).Format("20060102"))
	params.Set("end", now.Format("20060102"))
	params.Set("format", "JSON")

	var resp nasaPowerResponse
	if err := getJSON(ctx, a.cfg.Client, query(a.cfg.NASAPowerBaseURL, "/api/temporal/daily/point", params), &resp); err != nil {
		return fail(loc, a.Name(), now, err)
	}
	if len(resp.Properties.Parameter) == 0 {
		return fail(loc, a.Name(), now, &sourceError{code: telemetry.ErrCodeBadResponse, msg: "no parameter series"})
	}

	r := telemetry.NewReading(loc, a.Name(), now)
	if v, ok := seriesMean(resp.Properties.Parameter["T2M"]); ok {
		r.SetNumber("temperature", v)
	}
	if v, ok := seriesMax(resp.Properties.Parameter["T2M_MAX"]); ok {
		r.SetNumber("temp_max", v)
	}
	if v, ok := seriesMin(resp.Properties.Parameter["T2M_MIN"]); ok {
		r.SetNumber("temp_min", v)
	}
	if v, ok := seriesMean(resp.Properties.Parameter["RH2M"]); ok {
		r.SetNumber("humidity", v)
	}
	if v, ok := seriesMean(resp.Properties.Parameter["PRECTOTCORR"]); ok {
		r.SetNumber("rainfall", v)
	}
	if v, ok := seriesMean(resp.Properties.Parameter["WS2M"]); ok {
		r.SetNumber("wind_speed", v)
	}

	if len(r.Numbers) <= 2 { // only lat/lon seeded
		return fail(loc, a.Name(), now, &sourceError{code: telemetry.ErrCodeBadResponse, msg: "all series are fill values"})
	}
	return r
}

func seriesMean(series map[string]float64) (float64, bool) {
	var sum float64
	var n int
	for _, v := range series {
		if v == nasaPowerFill {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func seriesMax(series map[string]float64) (float64, bool) {
	var best float64
	found := false
	for _, v := range series {
		if v == nasaPowerFill {
			continue
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found
}

func seriesMin(series map[string]float64) (float64, bool) {
	var best float64
	found := false
	for _, v := range series {
		if v == nasaPowerFill {
			continue
		}
		if !found || v < best {
			best = v
			found = true
		}
	}
	return best, found
}
