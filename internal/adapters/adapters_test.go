package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envimetry/pipeline/internal/telemetry"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func hanoi() telemetry.Location {
	return telemetry.Location{Name: "Hanoi", Province: "Hanoi", Country: "VN", Lat: 21.0285, Lon: 105.8542}
}

func testConfig(srv *httptest.Server) Config {
	return Config{
		OpenWeatherAPIKey:  "test-key",
		WAQIToken:          "test-token",
		OpenWeatherBaseURL: srv.URL,
		WAQIBaseURL:        srv.URL,
		AQICNBaseURL:       srv.URL,
		OpenMeteoBaseURL:   srv.URL,
		SoilGridsBaseURL:   srv.URL,
		NASAPowerBaseURL:   srv.URL,
		Client:             srv.Client(),
		Clock:              fakeClock{now: testNow},
	}
}

func TestForDomain(t *testing.T) {
	t.Parallel()

	cfg := Config{OpenWeatherAPIKey: "k"}
	for domain, want := range map[string]int{"air": 3, "climate": 2, "soil": 2, "water": 2} {
		got, err := ForDomain(domain, cfg)
		require.NoError(t, err)
		assert.Len(t, got, want, domain)
	}

	// credentialed adapters drop out without a key
	air, err := ForDomain("air", Config{})
	require.NoError(t, err)
	assert.Len(t, air, 2)

	_, err = ForDomain("magma", Config{})
	require.Error(t, err)
}

func TestOpenWeatherAirMapsBothEndpoints(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/2.5/air_pollution":
			assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
			w.Write([]byte(`{"list":[{"main":{"aqi":3},"components":{"pm2_5":35.2,"pm10":48.1,"o3":60,"no2":12,"so2":4,"co":500,"nh3":1.2}}]}`))
		case "/data/2.5/weather":
			w.Write([]byte(`{"main":{"temp":28.4,"humidity":74,"pressure":1008},"wind":{"speed":3.2,"deg":120},"visibility":9000,"weather":[{"main":"Clouds","description":"scattered clouds"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewOpenWeatherAir(testConfig(srv)).Fetch(context.Background(), hanoi())
	require.True(t, r.Success, r.ErrorMessage)
	assert.Equal(t, "openweathermap", r.Source)
	assert.Equal(t, testNow, r.Timestamp)

	for field, want := range map[string]float64{
		"aqi": 3, "pm25": 35.2, "pm10": 48.1, "nh3": 1.2,
		"temperature": 28.4, "humidity": 74, "wind_direction": 120,
	} {
		got, ok := r.Number(field)
		require.Truef(t, ok, "missing %s", field)
		assert.Equalf(t, want, got, "field %s", field)
	}
	cond, ok := r.String("weather_condition")
	require.True(t, ok)
	assert.Equal(t, "Clouds", cond)
}

func TestOpenWeatherAirSurvivesWeatherOutage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/data/2.5/air_pollution" {
			w.Write([]byte(`{"list":[{"main":{"aqi":2},"components":{"pm2_5":12}}]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewOpenWeatherAir(testConfig(srv)).Fetch(context.Background(), hanoi())
	require.True(t, r.Success)
	_, ok := r.Number("pm25")
	assert.True(t, ok)
	_, ok = r.Number("temperature")
	assert.False(t, ok)
}

func TestOpenWeatherClimateStatusClassification(t *testing.T) {
	t.Parallel()

	for status, wantCode := range map[int]string{
		http.StatusUnauthorized:        telemetry.ErrCodeUnauthorized,
		http.StatusTooManyRequests:     telemetry.ErrCodeRateLimited,
		http.StatusInternalServerError: telemetry.ErrCodeServerError,
		http.StatusNotFound:            telemetry.ErrCodeBadResponse,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		r := NewOpenWeatherClimate(testConfig(srv)).Fetch(context.Background(), hanoi())
		srv.Close()

		require.False(t, r.Success)
		assert.Equal(t, wantCode, r.ErrorCode, "status %d", status)
		// failure carries the location fields
		assert.Equal(t, "Hanoi", r.Location())
	}
}

func TestWAQIFallsBackToCityFeed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed/hanoi/" {
			w.Write([]byte(`{"status":"ok","data":{"aqi":153,"iaqi":{"pm25":{"v":153},"o3":{"v":21.4}}}}`))
			return
		}
		// geo feed: station down, aqi is "-"
		w.Write([]byte(`{"status":"ok","data":{"aqi":"-"}}`))
	}))
	defer srv.Close()

	r := NewWAQI(testConfig(srv)).Fetch(context.Background(), hanoi())
	require.True(t, r.Success, r.ErrorMessage)
	aqi, ok := r.Number("aqi")
	require.True(t, ok)
	assert.Equal(t, 153.0, aqi)
	o3, ok := r.Number("o3")
	require.True(t, ok)
	assert.Equal(t, 21.4, o3)
}

func TestWAQINoStation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"error"}`))
	}))
	defer srv.Close()

	r := NewWAQI(testConfig(srv)).Fetch(context.Background(), hanoi())
	require.False(t, r.Success)
	assert.Equal(t, telemetry.ErrCodeBadResponse, r.ErrorCode)
}

func TestAQICNScrapesWidget(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/city/hanoi" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<div id="aqiwgtvalue">156</div>
			<table>
				<tr><td id="cur_pm25">156</td></tr>
				<tr><td id="cur_pm10">88</td></tr>
				<tr><td id="cur_o3">-</td></tr>
			</table>
		</body></html>`))
	}))
	defer srv.Close()

	r := NewAQICN(testConfig(srv)).Fetch(context.Background(), hanoi())
	require.True(t, r.Success, r.ErrorMessage)
	assert.Equal(t, "aqicn", r.Source)

	aqi, ok := r.Number("aqi")
	require.True(t, ok)
	assert.Equal(t, 156.0, aqi)
	pm10, ok := r.Number("pm10")
	require.True(t, ok)
	assert.Equal(t, 88.0, pm10)
	_, ok = r.Number("o3")
	assert.False(t, ok, "dash cell must stay null")
}

func TestOpenMeteoMapsAndDerives(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/forecast", r.URL.Path)
		w.Write([]byte(`{
			"hourly":{
				"time":["2025-03-01T18:00","2025-03-01T19:00","2025-03-01T20:00"],
				"soil_temperature_0cm":[26.1,27.5,28.0],
				"soil_temperature_6cm":[25.0,25.8,26.2],
				"soil_moisture_0_to_1cm":[0.31,0.33,0.30],
				"soil_moisture_1_to_3cm":[0.29,0.30,0.31],
				"soil_moisture_3_to_9cm":[0.28,0.28,0.29]
			},
			"daily":{
				"temperature_2m_max":[33.5],
				"temperature_2m_min":[24.1],
				"precipitation_sum":[4.2],
				"et0_fao_evapotranspiration":[4.8]
			}
		}`))
	}))
	defer srv.Close()

	r := NewOpenMeteo(testConfig(srv)).Fetch(context.Background(), hanoi())
	require.True(t, r.Success, r.ErrorMessage)

	// The axis is in Asia/Ho_Chi_Minh: 19:00 ICT equals noon UTC, so it is
	// the latest hour not after the clock.
	temp, ok := r.Number("soil_temperature_0cm")
	require.True(t, ok)
	assert.Equal(t, 27.5, temp)
	moist, ok := r.Number("soil_moisture_0_to_1cm")
	require.True(t, ok)
	assert.Equal(t, 0.33, moist)
	et0, ok := r.Number("et0_fao_evapotranspiration")
	require.True(t, ok)
	assert.Equal(t, 4.8, et0)

	status, _ := r.String("moisture_status")
	assert.Equal(t, "moist", status)
	stress, _ := r.String("temperature_stress")
	assert.Equal(t, "warm", stress)
	irrigation, _ := r.String("irrigation_need")
	assert.Equal(t, "high", irrigation)
}

func TestSoilGridsScalesAndClassifies(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"properties":{"layers":[
			{"name":"phh2o","depths":[{"label":"0-5cm","values":{"mean":62}}]},
			{"name":"clay","depths":[{"label":"0-5cm","values":{"mean":450}}]},
			{"name":"sand","depths":[{"label":"0-5cm","values":{"mean":300}}]},
			{"name":"silt","depths":[{"label":"0-5cm","values":{"mean":250}}]},
			{"name":"soc","depths":[{"label":"0-5cm","values":{"mean":180}}]},
			{"name":"nitrogen","depths":[{"label":"0-5cm","values":{"mean":210}}]}
		]}}`))
	}))
	defer srv.Close()

	r := NewSoilGrids(testConfig(srv)).Fetch(context.Background(), hanoi())
	require.True(t, r.Success, r.ErrorMessage)

	ph, ok := r.Number("ph")
	require.True(t, ok)
	assert.InDelta(t, 6.2, ph, 1e-9)
	clay, _ := r.Number("clay_content")
	assert.InDelta(t, 45.0, clay, 1e-9)
	nitrogen, _ := r.Number("nitrogen")
	assert.InDelta(t, 2.1, nitrogen, 1e-9)

	soilType, _ := r.String("soil_type")
	assert.Equal(t, "clay", soilType)
	health, _ := r.String("soil_health_status")
	assert.Equal(t, "healthy", health)
}

func TestNASAPowerAggregatesAndSkipsFill(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/temporal/daily/point", r.URL.Path)
		assert.Equal(t, "AG", r.URL.Query().Get("community"))
		w.Write([]byte(`{"properties":{"parameter":{
			"T2M":{"20250227":24,"20250228":26,"20250301":-999},
			"T2M_MAX":{"20250227":31,"20250228":33},
			"T2M_MIN":{"20250227":20,"20250228":19},
			"RH2M":{"20250227":80,"20250228":70},
			"PRECTOTCORR":{"20250227":2,"20250228":6},
			"WS2M":{"20250227":3,"20250228":5}
		}}}`))
	}))
	defer srv.Close()

	r := NewNASAPower(testConfig(srv)).Fetch(context.Background(), hanoi())
	require.True(t, r.Success, r.ErrorMessage)

	temp, _ := r.Number("temperature")
	assert.InDelta(t, 25.0, temp, 1e-9, "fill value must be excluded from the mean")
	tmax, _ := r.Number("temp_max")
	assert.Equal(t, 33.0, tmax)
	tmin, _ := r.Number("temp_min")
	assert.Equal(t, 19.0, tmin)
	rain, _ := r.Number("rainfall")
	assert.InDelta(t, 4.0, rain, 1e-9)
}

func TestWaterResourcesIsStatic(t *testing.T) {
	t.Parallel()

	a := NewWaterResources(Config{Clock: fakeClock{now: testNow}})

	north := a.Fetch(context.Background(), hanoi())
	require.True(t, north.Success)
	region, _ := north.String("region")
	assert.Equal(t, "north", region)
	rainfall, _ := north.Number("annual_rainfall_mm")
	assert.Equal(t, 1800.0, rainfall)
	river, _ := north.String("major_river")
	assert.Equal(t, "Red River", river)

	canTho := telemetry.Location{Name: "Can Tho", Province: "Can Tho", Lat: 10.0452, Lon: 105.7469, River: "Hau River"}
	south := a.Fetch(context.Background(), canTho)
	region, _ = south.String("region")
	assert.Equal(t, "south", region)
	river, _ = south.String("major_river")
	assert.Equal(t, "Hau River", river, "location river overrides the regional default")
}

func TestWaterQualityComposesSources(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/2.5/weather":
			w.Write([]byte(`{"main":{"temp":30,"humidity":90},"rain":{"1h":0.5}}`))
		case "/soilgrids/v2.0/properties/query":
			w.Write([]byte(`{"properties":{"layers":[{"name":"phh2o","depths":[{"label":"0-5cm","values":{"mean":50}}]}]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewWaterQuality(testConfig(srv)).Fetch(context.Background(), hanoi())
	require.True(t, r.Success, r.ErrorMessage)

	ph, ok := r.Number("ph")
	require.True(t, ok)
	assert.InDelta(t, 5.0, ph, 1e-9)

	// bacterial (30*2+90)/3=50, pollution 0.5*24*10=120 -> 100, ph 30
	// score = 100 - (50+100+30)/3 = 40
	score, ok := r.Number("water_quality_score")
	require.True(t, ok)
	assert.InDelta(t, 40.0, score, 1e-9)
	category, _ := r.String("water_quality_category")
	assert.Equal(t, "fair", category)
}

func TestExtractNumber(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		v  float64
		ok bool
	}{
		"153":      {153, true},
		" 42\n":    {42, true},
		"88 AQI":   {88, true},
		"pm: 12.5": {12.5, true},
		"-":        {0, false},
		"n/a":      {0, false},
		"":         {0, false},
	}
	for in, want := range cases {
		v, ok := extractNumber(in)
		assert.Equalf(t, want.ok, ok, "input %q", in)
		if want.ok {
			assert.Equalf(t, want.v, v, "input %q", in)
		}
	}
}

func TestCurrentHourIndexUsesPipelineTimezone(t *testing.T) {
	t.Parallel()

	// 12:00 UTC is 19:00 in Asia/Ho_Chi_Minh, so the 19:00 entry is the
	// latest one not after the clock.
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	times := []string{"2025-03-01T18:00", "2025-03-01T19:00", "2025-03-01T20:00"}
	assert.Equal(t, 1, currentHourIndex(times, now))

	assert.Equal(t, -1, currentHourIndex(nil, now))
	assert.Equal(t, 0, currentHourIndex([]string{"2025-03-02T08:00"}, now))
}
