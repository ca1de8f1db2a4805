package adapters

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// owAirResponse is the /data/2.5/air_pollution shape.
type owAirResponse struct {
	List []struct {
		Main struct {
			AQI *float64 `json:"aqi"`
		} `json:"main"`
		Components map[string]*float64 `json:"components"`
	} `json:"list"`
}

// owWeatherResponse is the /data/2.5/weather shape.
type owWeatherResponse struct {
	Main struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		TempMin   *float64 `json:"temp_min"`
		TempMax   *float64 `json:"temp_max"`
		Humidity  *float64 `json:"humidity"`
		Pressure  *float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
		Gust  *float64 `json:"gust"`
	} `json:"wind"`
	Clouds struct {
		All *float64 `json:"all"`
	} `json:"clouds"`
	Rain struct {
		OneHour *float64 `json:"1h"`
	} `json:"rain"`
	Visibility *float64 `json:"visibility"`
	Weather    []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

// OpenWeatherAir combines the air_pollution and weather endpoints into one
// air quality reading.
type OpenWeatherAir struct {
	cfg Config
}

// NewOpenWeatherAir builds the adapter; requires an API key.
func NewOpenWeatherAir(cfg Config) *OpenWeatherAir {
	cfg.defaults()
	return &OpenWeatherAir{cfg: cfg}
}

func (a *OpenWeatherAir) Name() string            { return "openweathermap" }
func (a *OpenWeatherAir) CacheTTL() time.Duration { return 0 }

func (a *OpenWeatherAir) Fetch(ctx context.Context, loc telemetry.Location) telemetry.Reading {
	now := a.cfg.Clock.Now()

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
	params.Set("appid", a.cfg.OpenWeatherAPIKey)

	var air owAirResponse
	if err := getJSON(ctx, a.cfg.Client, query(a.cfg.OpenWeatherBaseURL, "/data/2.5/air_pollution", params), &air); err != nil {
		return fail(loc, a.Name(), now, err)
	}
	if len(air.List) == 0 {
		return fail(loc, a.Name(), now, &sourceError{code: telemetry.ErrCodeBadResponse, msg: "empty pollution list"})
	}

	r := telemetry.NewReading(loc, a.Name(), now)
	current := air.List[0]
	setNumber(r, "aqi", current.Main.AQI)
	setNumber(r, "pm25", current.Components["pm2_5"])
	setNumber(r, "pm10", current.Components["pm10"])
	setNumber(r, "o3", current.Components["o3"])
	setNumber(r, "no2", current.Components["no2"])
	setNumber(r, "so2", current.Components["so2"])
	setNumber(r, "co", current.Components["co"])
	setNumber(r, "nh3", current.Components["nh3"])

	// weather fields are best-effort: an error here degrades the record
	// instead of failing it
	params.Set("units", "metric")
	var weather owWeatherResponse
	if err := getJSON(ctx, a.cfg.Client, query(a.cfg.OpenWeatherBaseURL, "/data/2.5/weather", params), &weather); err == nil {
		setNumber(r, "temperature", weather.Main.Temp)
		setNumber(r, "humidity", weather.Main.Humidity)
		setNumber(r, "pressure", weather.Main.Pressure)
		setNumber(r, "wind_speed", weather.Wind.Speed)
		setNumber(r, "wind_direction", weather.Wind.Deg)
		setNumber(r, "visibility", weather.Visibility)
		if len(weather.Weather) > 0 {
			r.SetString("weather_condition", weather.Weather[0].Main)
		}
	}
	return r
}

// OpenWeatherClimate maps the weather endpoint into a climate reading.
type OpenWeatherClimate struct {
	cfg Config
}

// NewOpenWeatherClimate builds the adapter; requires an API key.
func NewOpenWeatherClimate(cfg Config) *OpenWeatherClimate {
	cfg.defaults()
	return &OpenWeatherClimate{cfg: cfg}
}

func (a *OpenWeatherClimate) Name() string            { return "openweathermap" }
func (a *OpenWeatherClimate) CacheTTL() time.Duration { return time.Hour }

func (a *OpenWeatherClimate) Fetch(ctx context.Context, loc telemetry.Location) telemetry.Reading {
	now := a.cfg.Clock.Now()

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
	params.Set("appid", a.cfg.OpenWeatherAPIKey)
	params.Set("units", "metric")

	var weather owWeatherResponse
	if err := getJSON(ctx, a.cfg.Client, query(a.cfg.OpenWeatherBaseURL, "/data/2.5/weather", params), &weather); err != nil {
		return fail(loc, a.Name(), now, err)
	}
	if weather.Main.Temp == nil {
		return fail(loc, a.Name(), now, &sourceError{code: telemetry.ErrCodeBadResponse, msg: "missing temperature"})
	}

	r := telemetry.NewReading(loc, a.Name(), now)
	setNumber(r, "temperature", weather.Main.Temp)
	setNumber(r, "feels_like", weather.Main.FeelsLike)
	setNumber(r, "temp_min", weather.Main.TempMin)
	setNumber(r, "temp_max", weather.Main.TempMax)
	setNumber(r, "humidity", weather.Main.Humidity)
	setNumber(r, "pressure", weather.Main.Pressure)
	setNumber(r, "wind_speed", weather.Wind.Speed)
	setNumber(r, "wind_deg", weather.Wind.Deg)
	setNumber(r, "wind_gust", weather.Wind.Gust)
	setNumber(r, "clouds", weather.Clouds.All)
	setNumber(r, "rainfall", weather.Rain.OneHour)
	setNumber(r, "visibility", weather.Visibility)
	if weather.Main.Temp != nil && weather.Main.Humidity != nil {
		// Magnus-free approximation used by the upstream feed
		r.SetNumber("dew_point", *weather.Main.Temp-((100-*weather.Main.Humidity)/5))
	}
	if len(weather.Weather) > 0 {
		r.SetString("weather_condition", weather.Weather[0].Description)
		r.SetString("weather_main", weather.Weather[0].Main)
	}
	return r
}

func setNumber(r telemetry.Reading, field string, v *float64) {
	if v != nil {
		r.SetNumber(field, *v)
	}
}
