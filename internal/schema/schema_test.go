package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envimetry/pipeline/internal/telemetry"
)

func TestByDomain(t *testing.T) {
	t.Parallel()

	for _, domain := range Domains() {
		s, err := ByDomain(domain)
		require.NoError(t, err)
		assert.Equal(t, domain, s.Domain)
		assert.NotEmpty(t, s.FactTable)
		assert.NotEmpty(t, s.Fields)
		assert.NotEmpty(t, s.Dimensions)
	}

	_, err := ByDomain("plasma")
	require.Error(t, err)
}

func TestSchemasWellFormed(t *testing.T) {
	t.Parallel()

	for _, domain := range Domains() {
		s, err := ByDomain(domain)
		require.NoError(t, err)

		seen := map[string]bool{}
		for _, f := range s.Fields {
			assert.Falsef(t, seen[f.Name], "%s: duplicate field %s", domain, f.Name)
			seen[f.Name] = true
			if f.Synth != nil {
				require.NotNilf(t, f.Bounds, "%s: synth field %s must carry bounds", domain, f.Name)
				assert.Truef(t, f.Bounds.Contains(f.Synth.Min), "%s: synth range of %s escapes bounds", domain, f.Name)
				assert.Truef(t, f.Bounds.Contains(f.Synth.Max), "%s: synth range of %s escapes bounds", domain, f.Name)
			}
		}

		for _, d := range s.Dimensions {
			require.NotEmptyf(t, d.NaturalKey, "%s: dimension %s has no natural key", domain, d.Name)
			for _, col := range append(append([]string{}, d.NaturalKey...), d.Attrs...) {
				if col == "source" {
					// provenance column, attached during cleaning
					continue
				}
				_, ok := s.Field(col)
				assert.Truef(t, ok, "%s: dimension %s references unknown column %s", domain, d.Name, col)
			}
		}
	}
}

func TestCoreFieldsRequired(t *testing.T) {
	t.Parallel()

	s := Air()
	for _, name := range []string{telemetry.FieldLocation, telemetry.FieldProvince, telemetry.FieldLat, telemetry.FieldLon} {
		f, ok := s.Field(name)
		require.True(t, ok, name)
		assert.True(t, f.Required, name)
	}
}
