package adapters

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// AQICN scrapes the aqicn.org city widget. It backs up the WAQI API for
// cities whose stations are not in the geo feed.
type AQICN struct {
	cfg           Config
	baseCollector *colly.Collector
}

// NewAQICN builds the scraper with a shared base collector; each fetch
// clones it so callbacks never leak across requests.
func NewAQICN(cfg Config) *AQICN {
	cfg.defaults()
	c := colly.NewCollector(colly.Async(false))
	return &AQICN{cfg: cfg, baseCollector: c}
}

func (a *AQICN) Name() string            { return "aqicn" }
func (a *AQICN) CacheTTL() time.Duration { return 0 }

func (a *AQICN) Fetch(ctx context.Context, loc telemetry.Location) telemetry.Reading {
	now := a.cfg.Clock.Now()

	paths := []string{
		"/city/" + citySlug(loc.Name),
		"/city/vietnam/" + citySlug(loc.Name),
	}

	var lastErr *sourceError
	for _, path := range paths {
		r, err := a.scrape(ctx, loc, now, a.cfg.AQICNBaseURL+path)
		if err == nil {
			return r
		}
		lastErr = err
	}
	return fail(loc, a.Name(), now, lastErr)
}

func (a *AQICN) scrape(ctx context.Context, loc telemetry.Location, now time.Time, pageURL string) (telemetry.Reading, *sourceError) {
	collector := a.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	timeout := a.cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var (
		aqi        *float64
		pollutants = map[string]float64{}
		scrapeErr  *sourceError
	)

	collector.OnHTML("#aqiwgtvalue, span.aqivalue, div.aqivalue", func(e *colly.HTMLElement) {
		if aqi != nil {
			return
		}
		if v, ok := extractNumber(e.Text); ok {
			aqi = &v
		}
	})
	for _, p := range []string{"pm25", "pm10", "o3", "no2", "so2", "co"} {
		pollutant := p
		collector.OnHTML("td#cur_"+pollutant, func(e *colly.HTMLElement) {
			if v, ok := extractNumber(e.Text); ok {
				pollutants[pollutant] = v
			}
		})
	}
	collector.OnError(func(resp *colly.Response, err error) {
		if resp != nil && resp.StatusCode != 0 {
			scrapeErr = classifyStatus(resp.StatusCode)
			return
		}
		scrapeErr = classifyTransport(err)
	})
	collector.OnRequest(func(req *colly.Request) {
		select {
		case <-ctx.Done():
			req.Abort()
		default:
		}
	})

	if err := collector.Visit(pageURL); err != nil && scrapeErr == nil {
		scrapeErr = classifyTransport(err)
	}
	collector.Wait()

	if scrapeErr != nil {
		return telemetry.Reading{}, scrapeErr
	}
	if aqi == nil {
		return telemetry.Reading{}, &sourceError{code: telemetry.ErrCodeBadResponse, msg: "page has no AQI widget"}
	}

	r := telemetry.NewReading(loc, a.Name(), now)
	r.SetNumber("aqi", *aqi)
	for field, v := range pollutants {
		r.SetNumber(field, v)
	}
	return r, nil
}

// extractNumber pulls the first decimal number out of widget text like
// "153 AQI" or " 42\n".
func extractNumber(text string) (float64, bool) {
	start := -1
	var end int
	for i, c := range text {
		isNumeric := c >= '0' && c <= '9' || c == '.' || (c == '-' && start == -1)
		if isNumeric && start == -1 {
			start = i
			end = i + 1
			continue
		}
		if start != -1 {
			if !isNumeric {
				break
			}
			end = i + 1
		}
	}
	if start == -1 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(text[start:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
