// Package catalog provides named restaurant profiles and scenario
// presets.
//
// The catalog merges two data sources:
//
//  1. **Built-in presets**: a small set of common QSR situations so
//     the CLI and API work immediately without any setup.
//  2. **YAML files**: optional `profiles:` / `scenarios:` documents
//     loaded from a presets directory at startup. File entries override
//     builtins with the same name.
//
// Lookups are thread-safe. The HTTP API exposes the catalog read-only
// and the CLI resolves --preset names through it.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/shiftcast/shiftcast/pkg/models"
)

// Profile is a named restaurant infrastructure configuration.
type Profile struct {
	Name        string                  `json:"name" yaml:"name"`
	Description string                  `json:"description,omitempty" yaml:"description,omitempty"`
	Restaurant  models.RestaurantConfig `json:"restaurant" yaml:"restaurant"`
}

// Preset is a named, ready-to-run planning scenario. Profile optionally
// names a catalog profile that supplies the restaurant config when the
// scenario omits it.
type Preset struct {
	Name        string                   `json:"name" yaml:"name"`
	Description string                   `json:"description,omitempty" yaml:"description,omitempty"`
	Profile     string                   `json:"profile,omitempty" yaml:"profile,omitempty"`
	Scenario    models.Scenario          `json:"scenario" yaml:"scenario"`
	Constraints *models.Constraints      `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Targets     *models.AlignmentTargets `json:"alignment_targets,omitempty" yaml:"alignment_targets,omitempty"`
	Priority    models.OperatorPriority  `json:"operator_priority,omitempty" yaml:"operator_priority,omitempty"`
}

// presetsFile is the on-disk YAML document shape.
type presetsFile struct {
	Profiles  []Profile `yaml:"profiles"`
	Scenarios []Preset  `yaml:"scenarios"`
}

// Catalog is a thread-safe preset registry.
type Catalog struct {
	mu        sync.RWMutex
	profiles  map[string]*Profile
	scenarios map[string]*Preset
}

// New creates a catalog pre-populated with the built-in presets.
func New() *Catalog {
	c := &Catalog{
		profiles:  make(map[string]*Profile),
		scenarios: make(map[string]*Preset),
	}
	c.loadBuiltins()
	return c
}

// LoadDir registers every profile and scenario found in the .yaml/.yml
// files of dir, overriding builtins with the same name.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read presets dir: %w", err)
	}

	var files, profiles, scenarios int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read preset file %s: %w", e.Name(), err)
		}
		var pf presetsFile
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return fmt.Errorf("parse preset file %s: %w", e.Name(), err)
		}

		for i := range pf.Profiles {
			p := pf.Profiles[i]
			if p.Name == "" {
				return fmt.Errorf("preset file %s: profile #%d has no name", e.Name(), i+1)
			}
			c.RegisterProfile(&p)
			profiles++
		}
		for i := range pf.Scenarios {
			s := pf.Scenarios[i]
			if s.Name == "" {
				return fmt.Errorf("preset file %s: scenario #%d has no name", e.Name(), i+1)
			}
			c.RegisterScenario(&s)
			scenarios++
		}
		files++
	}

	log.Info().
		Int("files", files).
		Int("profiles", profiles).
		Int("scenarios", scenarios).
		Str("dir", dir).
		Msg("Preset catalog loaded")
	return nil
}

// RegisterProfile adds or replaces a profile entry.
func (c *Catalog) RegisterProfile(p *Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[p.Name] = p
}

// RegisterScenario adds or replaces a scenario preset.
func (c *Catalog) RegisterScenario(p *Preset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scenarios[p.Name] = p
}

// Profile returns the named profile, or nil if unknown.
func (c *Catalog) Profile(name string) *Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profiles[name]
}

// Scenario returns the named scenario preset, or nil if unknown.
func (c *Catalog) Scenario(name string) *Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scenarios[name]
}

// ListProfiles returns all profiles sorted by name.
func (c *Catalog) ListProfiles() []Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Profile, 0, len(c.profiles))
	for _, p := range c.profiles {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ListScenarios returns all scenario presets sorted by name.
func (c *Catalog) ListScenarios() []Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Preset, 0, len(c.scenarios))
	for _, s := range c.scenarios {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Resolve materializes the named preset into a planning request. The
// returned request owns its data: validating or mutating it does not
// touch the catalog entry.
func (c *Catalog) Resolve(name string) (*models.PlanningRequest, error) {
	preset := c.Scenario(name)
	if preset == nil {
		return nil, fmt.Errorf("unknown preset %q", name)
	}

	scenario := preset.Scenario
	if len(scenario.SpecialEvents) > 0 {
		scenario.SpecialEvents = append([]string(nil), scenario.SpecialEvents...)
	}
	if preset.Profile != "" && scenario.Restaurant.Location == "" {
		prof := c.Profile(preset.Profile)
		if prof == nil {
			return nil, fmt.Errorf("preset %q references unknown profile %q", name, preset.Profile)
		}
		scenario.Restaurant = prof.Restaurant
	}

	req := &models.PlanningRequest{
		Scenario:         scenario,
		OperatorPriority: preset.Priority,
	}
	if preset.Constraints != nil {
		cc := *preset.Constraints
		if cc.MinStaffPerStation != nil {
			m := make(map[string]int, len(cc.MinStaffPerStation))
			for station, n := range cc.MinStaffPerStation {
				m[station] = n
			}
			cc.MinStaffPerStation = m
		}
		req.Constraints = &cc
	}
	if preset.Targets != nil {
		tt := *preset.Targets
		req.AlignmentTargets = &tt
	}
	return req, nil
}

// ── Built-in Presets ────────────────────────────────────────

// loadBuiltins registers the stock profiles and scenarios so the
// catalog works immediately without a presets directory.
func (c *Catalog) loadBuiltins() {
	profiles := []*Profile{
		{
			Name:        "downtown-drive-thru",
			Description: "Downtown location with two drive-thru lanes and a medium kitchen",
			Restaurant: models.RestaurantConfig{
				Location:           "downtown",
				HasDriveThru:       true,
				DriveThruLanes:     2,
				KitchenCapacity:    models.KitchenMedium,
				DineIn:             true,
				DineInSeatCapacity: 50,
			},
		},
		{
			Name:        "suburban-family",
			Description: "Suburban location with one drive-thru lane and a large dining room",
			Restaurant: models.RestaurantConfig{
				Location:           "suburban",
				HasDriveThru:       true,
				DriveThruLanes:     1,
				KitchenCapacity:    models.KitchenLarge,
				DineIn:             true,
				DineInSeatCapacity: 80,
			},
		},
		{
			Name:        "urban-counter",
			Description: "Walk-in city location, counter service only",
			Restaurant: models.RestaurantConfig{
				Location:           "city_center",
				HasDriveThru:       false,
				KitchenCapacity:    models.KitchenSmall,
				DineIn:             true,
				DineInSeatCapacity: 30,
			},
		},
	}

	scenarios := []*Preset{
		{
			Name:        "friday-dinner-rush",
			Description: "Peak Friday dinner with the weekly rush event",
			Profile:     "downtown-drive-thru",
			Scenario: models.Scenario{
				Shift:         models.ShiftDinner,
				DayOfWeek:     "friday",
				Weather:       models.WeatherSunny,
				SpecialEvents: []string{"friday_rush"},
			},
		},
		{
			Name:        "rainy-weekday-lunch",
			Description: "Midweek lunch with rain pushing traffic to the drive-thru",
			Profile:     "downtown-drive-thru",
			Scenario: models.Scenario{
				Shift:     models.ShiftLunch,
				DayOfWeek: "wednesday",
				Weather:   models.WeatherRainy,
			},
		},
		{
			Name:        "gameday-dinner",
			Description: "Saturday dinner near the stadium on a game night",
			Profile:     "suburban-family",
			Scenario: models.Scenario{
				Shift:         models.ShiftDinner,
				DayOfWeek:     "saturday",
				Weather:       models.WeatherCloudy,
				SpecialEvents: []string{"local_sports_game"},
			},
			Constraints: &models.Constraints{
				AvailableStaff: 18,
				BudgetHours:    70,
			},
		},
		{
			Name:        "stormy-breakfast",
			Description: "Storm-morning breakfast at the walk-in location",
			Profile:     "urban-counter",
			Scenario: models.Scenario{
				Shift:     models.ShiftBreakfast,
				DayOfWeek: "monday",
				Weather:   models.WeatherStormy,
			},
			Priority: models.PriorityServiceFocus,
		},
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range profiles {
		c.profiles[p.Name] = p
	}
	for _, s := range scenarios {
		c.scenarios[s.Name] = s
	}
}
