package adapters

import (
	"context"
	"time"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// waterRegion holds hydrological reference data for one of Vietnam's three
// macro regions.
type waterRegion struct {
	name           string
	annualRainfall float64
	availability   string
	majorRiver     string
	floodRisk      float64
	droughtRisk    float64
}

var waterRegions = []waterRegion{
	{name: "north", annualRainfall: 1800, availability: "high", majorRiver: "Red River", floodRisk: 55, droughtRisk: 25},
	{name: "central", annualRainfall: 2000, availability: "medium", majorRiver: "Perfume River", floodRisk: 70, droughtRisk: 45},
	{name: "south", annualRainfall: 2200, availability: "high", majorRiver: "Mekong River", floodRisk: 60, droughtRisk: 30},
}

// WaterResources maps each location onto regional hydrology reference data.
// It is a static source: no network, never fails.
type WaterResources struct {
	cfg Config
}

// NewWaterResources builds the adapter.
func NewWaterResources(cfg Config) *WaterResources {
	cfg.defaults()
	return &WaterResources{cfg: cfg}
}

func (a *WaterResources) Name() string { return "vietnam-water-resources" }

// CacheTTL is a month; the reference tables change on survey updates only.
func (a *WaterResources) CacheTTL() time.Duration { return 720 * time.Hour }

func (a *WaterResources) Fetch(_ context.Context, loc telemetry.Location) telemetry.Reading {
	now := a.cfg.Clock.Now()
	region := regionFor(loc.Lat)

	r := telemetry.NewReading(loc, a.Name(), now)
	r.SetString("region", region.name)
	r.SetNumber("annual_rainfall_mm", region.annualRainfall)
	r.SetString("water_availability", region.availability)
	r.SetNumber("estimated_flood_risk", region.floodRisk)
	r.SetNumber("estimated_drought_risk", region.droughtRisk)
	r.SetString("flood_risk", riskCategory(region.floodRisk))
	r.SetString("drought_risk", riskCategory(region.droughtRisk))
	r.SetString("water_source_type", "river_groundwater")

	river := loc.River
	if river == "" {
		river = region.majorRiver
	}
	r.SetString("major_river", river)
	return r
}

func regionFor(lat float64) waterRegion {
	switch {
	case lat > 20:
		return waterRegions[0]
	case lat > 14:
		return waterRegions[1]
	default:
		return waterRegions[2]
	}
}

func riskCategory(score float64) string {
	switch {
	case score >= 67:
		return "high"
	case score >= 34:
		return "medium"
	default:
		return "low"
	}
}
