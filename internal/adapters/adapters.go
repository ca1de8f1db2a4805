// Package adapters maps provider responses into the common per-domain
// reading shape. One adapter per provider; an adapter never returns an
// error, only success or failure readings.
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/envimetry/pipeline/internal/clock"
	"github.com/envimetry/pipeline/internal/schema"
	"github.com/envimetry/pipeline/internal/telemetry"
)

// Config carries provider credentials and shared plumbing. Base URLs are
// overridable so tests can point adapters at a local server.
type Config struct {
	OpenWeatherAPIKey string
	WAQIToken         string

	OpenWeatherBaseURL string
	WAQIBaseURL        string
	AQICNBaseURL       string
	OpenMeteoBaseURL   string
	SoilGridsBaseURL   string
	NASAPowerBaseURL   string

	HTTPTimeout time.Duration

	Client *http.Client
	Clock  telemetry.Clock
	Logger *zap.Logger
}

func (c *Config) defaults() {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: c.HTTPTimeout}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Clock == nil {
		c.Clock = clock.System{}
	}
	if c.OpenWeatherBaseURL == "" {
		c.OpenWeatherBaseURL = "https://api.openweathermap.org"
	}
	if c.WAQIBaseURL == "" {
		c.WAQIBaseURL = "https://api.waqi.info"
	}
	if c.AQICNBaseURL == "" {
		c.AQICNBaseURL = "https://aqicn.org"
	}
	if c.OpenMeteoBaseURL == "" {
		c.OpenMeteoBaseURL = "https://api.open-meteo.com"
	}
	if c.SoilGridsBaseURL == "" {
		c.SoilGridsBaseURL = "https://rest.isric.org"
	}
	if c.NASAPowerBaseURL == "" {
		c.NASAPowerBaseURL = "https://power.larc.nasa.gov"
	}
}

// ForDomain returns the adapter set for a domain. Adapters needing a
// missing credential are left out rather than producing guaranteed
// failures.
func ForDomain(domain string, cfg Config) ([]telemetry.Adapter, error) {
	cfg.defaults()
	switch domain {
	case schema.DomainAir:
		out := []telemetry.Adapter{NewWAQI(cfg), NewAQICN(cfg)}
		if cfg.OpenWeatherAPIKey != "" {
			out = append(out, NewOpenWeatherAir(cfg))
		}
		return out, nil
	case schema.DomainClimate:
		out := []telemetry.Adapter{NewNASAPower(cfg)}
		if cfg.OpenWeatherAPIKey != "" {
			out = append(out, NewOpenWeatherClimate(cfg))
		}
		return out, nil
	case schema.DomainSoil:
		return []telemetry.Adapter{NewOpenMeteo(cfg), NewSoilGrids(cfg)}, nil
	case schema.DomainWater:
		return []telemetry.Adapter{NewWaterResources(cfg), NewWaterQuality(cfg)}, nil
	}
	return nil, fmt.Errorf("unknown domain %q", domain)
}

// sourceError is a provider failure classified into the retry taxonomy.
type sourceError struct {
	code string
	msg  string
}

func (e *sourceError) Error() string { return e.msg }

func classifyStatus(status int) *sourceError {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &sourceError{code: telemetry.ErrCodeUnauthorized, msg: fmt.Sprintf("provider rejected credentials (%d)", status)}
	case status == http.StatusTooManyRequests:
		return &sourceError{code: telemetry.ErrCodeRateLimited, msg: "provider rate limit hit (429)"}
	case status >= 500:
		return &sourceError{code: telemetry.ErrCodeServerError, msg: fmt.Sprintf("provider server error (%d)", status)}
	default:
		return &sourceError{code: telemetry.ErrCodeBadResponse, msg: fmt.Sprintf("unexpected status %d", status)}
	}
}

func classifyTransport(err error) *sourceError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &sourceError{code: telemetry.ErrCodeTimeout, msg: err.Error()}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &sourceError{code: telemetry.ErrCodeTimeout, msg: err.Error()}
	default:
		return &sourceError{code: telemetry.ErrCodeNetwork, msg: err.Error()}
	}
}

// getJSON issues a GET and decodes the body into out.
func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) *sourceError {
	body, srcErr := getBody(ctx, client, rawURL, "application/json")
	if srcErr != nil {
		return srcErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &sourceError{code: telemetry.ErrCodeBadResponse, msg: fmt.Sprintf("undecodable body: %v", err)}
	}
	return nil
}

func getBody(ctx context.Context, client *http.Client, rawURL, accept string) ([]byte, *sourceError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &sourceError{code: telemetry.ErrCodeBadResponse, msg: err.Error()}
	}
	req.Header.Set("Accept", accept)
	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, classifyStatus(resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}
	return body, nil
}

func query(base, path string, params url.Values) string {
	return base + path + "?" + params.Encode()
}

// citySlug turns a location name into the provider URL form, e.g.
// "Ho Chi Minh City" -> "ho-chi-minh-city".
func citySlug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

func fail(loc telemetry.Location, source string, now time.Time, err *sourceError) telemetry.Reading {
	return telemetry.NewFailure(loc, source, now, err.code, err.msg)
}
