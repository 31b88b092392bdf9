package session

import (
	"github.com/banshee-data/tabletop/internal/config"
	"github.com/banshee-data/tabletop/internal/desktop"
	"github.com/banshee-data/tabletop/internal/gesture"
	"github.com/banshee-data/tabletop/internal/physics"
	"github.com/banshee-data/tabletop/internal/surface"
)

// Config gathers the component configurations of a session.
type Config struct {
	Surface surface.Config
	Desktop desktop.Config
	Physics physics.Config
	Gesture gesture.Config

	// DesktopSize is the requested desktop size; the zero value uses the
	// detected extents.
	DesktopSize   desktop.Size
	PlateSpacingM float64 // minimum gap between spawned plates
	Seed          int64   // spawn layout and spin jitter
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config { return ConfigFromTuning(nil) }

// ConfigFromTuning builds every component configuration from one tuning
// file; nil uses defaults.
func ConfigFromTuning(t *config.TuningConfig) Config {
	if t == nil {
		t = config.EmptyTuningConfig()
	}
	return Config{
		Surface:       surface.ConfigFromTuning(t),
		Desktop:       desktop.ConfigFromTuning(t),
		Physics:       physics.ConfigFromTuning(t),
		Gesture:       gesture.ConfigFromTuning(t),
		PlateSpacingM: t.GetPlateSpacingM(),
		Seed:          1,
	}
}
