package snapshot

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envimetry/pipeline/internal/telemetry"
)

func snapshotSchema() telemetry.Schema {
	return telemetry.Schema{
		Domain:    "air",
		FactTable: "air_quality",
		Fields: []telemetry.Field{
			{Name: "location", Kind: telemetry.KindString, Required: true},
			{Name: "province", Kind: telemetry.KindString},
			{Name: "aqi", Kind: telemetry.KindNumber},
			{Name: "pm25", Kind: telemetry.KindNumber},
		},
	}
}

func TestEncodeWritesBOMAndColumnOrder(t *testing.T) {
	t.Parallel()

	s := snapshotSchema()
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := telemetry.Batch{
		Domain: "air",
		RunID:  "run-0001",
		Readings: []telemetry.Reading{
			{
				Timestamp: ts,
				Source:    "waqi",
				Success:   true,
				Numbers:   map[string]float64{"aqi": 87.5},
				Strings:   map[string]string{"location": "Hanoi", "province": "Hanoi"},
				Imputed:   map[string]string{"aqi": "median_of_batch"},
			},
		},
	}

	data, err := Encode(s, batch)
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	lines := bytes.Split(bytes.TrimSpace(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "timestamp,location,province,aqi,pm25,source,success,error_message,imputed_fields", string(lines[0]))
	assert.Equal(t, "2025-03-01T10:00:00Z,Hanoi,Hanoi,87.5,,waqi,true,,aqi:median_of_batch", string(lines[1]))
}

func TestDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	s := snapshotSchema()
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := telemetry.Batch{
		Domain: "air",
		Readings: []telemetry.Reading{
			{
				Timestamp: ts,
				Source:    "waqi",
				Success:   true,
				Numbers:   map[string]float64{"aqi": 87.5, "pm25": 40},
				Strings:   map[string]string{"location": "Hanoi", "province": "Hanoi"},
			},
		},
	}

	data, err := Encode(s, batch)
	require.NoError(t, err)

	readings, err := Decode(s, data)
	require.NoError(t, err)
	require.Len(t, readings, 1)

	got := readings[0]
	assert.True(t, got.Timestamp.Equal(ts))
	assert.Equal(t, "waqi", got.Source)
	assert.True(t, got.Success)
	assert.Equal(t, "Hanoi", got.Strings["location"])
	assert.Equal(t, 87.5, got.Numbers["aqi"])
	assert.Equal(t, 40.0, got.Numbers["pm25"])
}

func TestDecodeToleratesForeignCSV(t *testing.T) {
	t.Parallel()

	s := snapshotSchema()
	csv := "timestamp,location,aqi,station_id\n" +
		"2025-03-01 10:00:00,Hanoi,156,ST-9\n" +
		"not-a-time,Hue,70,ST-2\n" +
		"2025-03-01 11:00:00,Da Nang,nan,ST-3\n"

	readings, err := Decode(s, []byte(csv))
	require.NoError(t, err)
	require.Len(t, readings, 2, "the unparseable timestamp row is dropped")

	assert.Equal(t, "Hanoi", readings[0].Strings["location"])
	assert.Equal(t, 156.0, readings[0].Numbers["aqi"])
	assert.True(t, readings[0].Success, "success defaults to true when absent")

	_, ok := readings[1].Numbers["aqi"]
	assert.False(t, ok, "nan cell decodes as null")
}

func TestDecodeRejectsMissingTimestampColumn(t *testing.T) {
	t.Parallel()

	_, err := Decode(snapshotSchema(), []byte("location,aqi\nHanoi,50\n"))
	require.Error(t, err)
}

func TestDecodeImputedProvenance(t *testing.T) {
	t.Parallel()

	csv := "timestamp,location,aqi,imputed_fields\n" +
		"2025-03-01T10:00:00Z,Hanoi,87.5,aqi:median_of_batch;pm25:synthetic_fallback\n"

	readings, err := Decode(snapshotSchema(), []byte(csv))
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, map[string]string{
		"aqi":  "median_of_batch",
		"pm25": "synthetic_fallback",
	}, readings[0].Imputed)
}

func TestFilename(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "air_20250301_103000_run-0001.csv", Filename("air", "run-0001", at))
}
