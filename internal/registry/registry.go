// Package registry supplies the list of locations the pipeline crawls.
// Locations come from a JSON file when configured and fall back to a
// built-in Vietnamese city list otherwise.
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// Filter narrows the location list. Zero value selects everything.
type Filter struct {
	Provinces []string `json:"provinces,omitempty"`
	Names     []string `json:"names,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// Registry holds an immutable location list.
type Registry struct {
	locations []telemetry.Location
	logger    *zap.Logger
}

// New builds a registry from an explicit location slice.
func New(locations []telemetry.Location, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{locations: locations, logger: logger}
}

// Load reads a JSON array of locations from path. A missing or unreadable
// file is not an error: the built-in default list is used instead, so local
// runs work with no configuration at all.
func Load(path string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return New(DefaultLocations(), logger)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("location file unreadable, using built-in list",
			zap.String("path", path), zap.Error(err))
		return New(DefaultLocations(), logger)
	}
	var locations []telemetry.Location
	if err := json.Unmarshal(data, &locations); err != nil {
		logger.Warn("location file malformed, using built-in list",
			zap.String("path", path), zap.Error(err))
		return New(DefaultLocations(), logger)
	}
	if len(locations) == 0 {
		logger.Warn("location file empty, using built-in list", zap.String("path", path))
		return New(DefaultLocations(), logger)
	}
	logger.Info("loaded locations", zap.String("path", path), zap.Int("count", len(locations)))
	return New(locations, logger)
}

// List returns locations matching the filter, preserving registry order.
// Name matching also consults alternate names.
func (r *Registry) List(f Filter) []telemetry.Location {
	provinces := toSet(f.Provinces)
	names := toSet(f.Names)

	out := make([]telemetry.Location, 0, len(r.locations))
	for _, loc := range r.locations {
		if len(provinces) > 0 && !provinces[loc.Province] {
			continue
		}
		if len(names) > 0 && !matchesName(loc, names) {
			continue
		}
		out = append(out, loc)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// Len reports the registry size before filtering.
func (r *Registry) Len() int { return len(r.locations) }

// Lookup finds a location by name or alternate name.
func (r *Registry) Lookup(name string) (telemetry.Location, error) {
	set := map[string]bool{name: true}
	for _, loc := range r.locations {
		if matchesName(loc, set) {
			return loc, nil
		}
	}
	return telemetry.Location{}, fmt.Errorf("unknown location %q", name)
}

func matchesName(loc telemetry.Location, names map[string]bool) bool {
	if names[loc.Name] {
		return true
	}
	for _, alt := range loc.AltNames {
		if names[alt] {
			return true
		}
	}
	return false
}

func toSet(ss []string) map[string]bool {
	if len(ss) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ss))
	for _, s := range ss {
		set[s] = true
	}
	return set
}
