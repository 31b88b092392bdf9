package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// Every field is optional; the Get* methods supply the built-in default for
// anything omitted, so partial files are safe.
type TuningConfig struct {
	// Surface catalog rejection policy
	CeilingHeightM         *float64 `json:"ceiling_height_m,omitempty"`
	FloorMaxHeightM        *float64 `json:"floor_max_height_m,omitempty"`
	FloorMinAreaM2         *float64 `json:"floor_min_area_m2,omitempty"`
	HorizontalToleranceDeg *float64 `json:"horizontal_tolerance_deg,omitempty"`

	// Desktop anchoring
	DesktopMinSizeM      *float64 `json:"desktop_min_size_m,omitempty"`
	DesktopMaxSizeM      *float64 `json:"desktop_max_size_m,omitempty"`
	DesktopMarginScale   *float64 `json:"desktop_margin_scale,omitempty"`
	DesktopDefaultWidthM *float64 `json:"desktop_default_width_m,omitempty"`
	DesktopDefaultDepthM *float64 `json:"desktop_default_depth_m,omitempty"`
	DesktopThicknessM    *float64 `json:"desktop_thickness_m,omitempty"`

	// Physics world
	GravityMps2        *float64 `json:"gravity_mps2,omitempty"`
	SolverIterations   *int     `json:"solver_iterations,omitempty"`
	ContactStiffness   *float64 `json:"contact_stiffness,omitempty"`
	FixedStepHz        *float64 `json:"fixed_step_hz,omitempty"`
	MaxSubSteps        *int     `json:"max_sub_steps,omitempty"`
	WallHeightM        *float64 `json:"wall_height_m,omitempty"`
	WallThicknessM     *float64 `json:"wall_thickness_m,omitempty"`
	FloorExtraThickM   *float64 `json:"floor_extra_thickness_m,omitempty"`
	MaxBodySpeedMps    *float64 `json:"max_body_speed_mps,omitempty"`
	FallToleranceM     *float64 `json:"fall_tolerance_m,omitempty"`
	LinearDamping      *float64 `json:"linear_damping,omitempty"`
	AngularDamping     *float64 `json:"angular_damping,omitempty"`
	DesktopFriction    *float64 `json:"desktop_friction,omitempty"`
	DesktopRestitution *float64 `json:"desktop_restitution,omitempty"`

	// Plates and their contact materials
	PlateRadiusM            *float64 `json:"plate_radius_m,omitempty"`
	PlateHeightM            *float64 `json:"plate_height_m,omitempty"`
	PlateMassKg             *float64 `json:"plate_mass_kg,omitempty"`
	PlatePlateFriction      *float64 `json:"plate_plate_friction,omitempty"`
	PlatePlateRestitution   *float64 `json:"plate_plate_restitution,omitempty"`
	PlateDesktopFriction    *float64 `json:"plate_desktop_friction,omitempty"`
	PlateDesktopRestitution *float64 `json:"plate_desktop_restitution,omitempty"`
	PlateSpacingM           *float64 `json:"plate_spacing_m,omitempty"`

	// Gestures
	DragEdgeMarginM         *float64 `json:"drag_edge_margin_m,omitempty"`
	DragSmoothing           *float64 `json:"drag_smoothing,omitempty"`
	DragLiftM               *float64 `json:"drag_lift_m,omitempty"`
	TapThresholdM           *float64 `json:"tap_threshold_m,omitempty"`
	VelocityWindowSamples   *int     `json:"velocity_window_samples,omitempty"`
	VelocityWindow          *string  `json:"velocity_window,omitempty"` // duration string like "150ms"
	AmplificationHand       *float64 `json:"amplification_hand,omitempty"`
	AmplificationController *float64 `json:"amplification_controller,omitempty"`
	AmplificationScreen     *float64 `json:"amplification_screen,omitempty"`
	VerticalDamping         *float64 `json:"vertical_damping,omitempty"`
	MaxThrowVelocityMps     *float64 `json:"max_throw_velocity_mps,omitempty"`
	AngularJitterRadps      *float64 `json:"angular_jitter_radps,omitempty"`
	PointerDropoutTimeout   *string  `json:"pointer_dropout_timeout,omitempty"`
	SelectingTimeout        *string  `json:"selecting_timeout,omitempty"`
	SampleCapacity          *int     `json:"sample_capacity,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the built-in defaults. Useful for writing a fresh defaults file.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		CeilingHeightM:         ptrFloat64(e.GetCeilingHeightM()),
		FloorMaxHeightM:        ptrFloat64(e.GetFloorMaxHeightM()),
		FloorMinAreaM2:         ptrFloat64(e.GetFloorMinAreaM2()),
		HorizontalToleranceDeg: ptrFloat64(e.GetHorizontalToleranceDeg()),

		DesktopMinSizeM:      ptrFloat64(e.GetDesktopMinSizeM()),
		DesktopMaxSizeM:      ptrFloat64(e.GetDesktopMaxSizeM()),
		DesktopMarginScale:   ptrFloat64(e.GetDesktopMarginScale()),
		DesktopDefaultWidthM: ptrFloat64(e.GetDesktopDefaultWidthM()),
		DesktopDefaultDepthM: ptrFloat64(e.GetDesktopDefaultDepthM()),
		DesktopThicknessM:    ptrFloat64(e.GetDesktopThicknessM()),

		GravityMps2:        ptrFloat64(e.GetGravityMps2()),
		SolverIterations:   ptrInt(e.GetSolverIterations()),
		ContactStiffness:   ptrFloat64(e.GetContactStiffness()),
		FixedStepHz:        ptrFloat64(e.GetFixedStepHz()),
		MaxSubSteps:        ptrInt(e.GetMaxSubSteps()),
		WallHeightM:        ptrFloat64(e.GetWallHeightM()),
		WallThicknessM:     ptrFloat64(e.GetWallThicknessM()),
		FloorExtraThickM:   ptrFloat64(e.GetFloorExtraThickM()),
		MaxBodySpeedMps:    ptrFloat64(e.GetMaxBodySpeedMps()),
		FallToleranceM:     ptrFloat64(e.GetFallToleranceM()),
		LinearDamping:      ptrFloat64(e.GetLinearDamping()),
		AngularDamping:     ptrFloat64(e.GetAngularDamping()),
		DesktopFriction:    ptrFloat64(e.GetDesktopFriction()),
		DesktopRestitution: ptrFloat64(e.GetDesktopRestitution()),

		PlateRadiusM:            ptrFloat64(e.GetPlateRadiusM()),
		PlateHeightM:            ptrFloat64(e.GetPlateHeightM()),
		PlateMassKg:             ptrFloat64(e.GetPlateMassKg()),
		PlatePlateFriction:      ptrFloat64(e.GetPlatePlateFriction()),
		PlatePlateRestitution:   ptrFloat64(e.GetPlatePlateRestitution()),
		PlateDesktopFriction:    ptrFloat64(e.GetPlateDesktopFriction()),
		PlateDesktopRestitution: ptrFloat64(e.GetPlateDesktopRestitution()),
		PlateSpacingM:           ptrFloat64(e.GetPlateSpacingM()),

		DragEdgeMarginM:         ptrFloat64(e.GetDragEdgeMarginM()),
		DragSmoothing:           ptrFloat64(e.GetDragSmoothing()),
		DragLiftM:               ptrFloat64(e.GetDragLiftM()),
		TapThresholdM:           ptrFloat64(e.GetTapThresholdM()),
		VelocityWindowSamples:   ptrInt(e.GetVelocityWindowSamples()),
		VelocityWindow:          ptrString(e.GetVelocityWindow().String()),
		AmplificationHand:       ptrFloat64(e.GetAmplificationHand()),
		AmplificationController: ptrFloat64(e.GetAmplificationController()),
		AmplificationScreen:     ptrFloat64(e.GetAmplificationScreen()),
		VerticalDamping:         ptrFloat64(e.GetVerticalDamping()),
		MaxThrowVelocityMps:     ptrFloat64(e.GetMaxThrowVelocityMps()),
		AngularJitterRadps:      ptrFloat64(e.GetAngularJitterRadps()),
		PointerDropoutTimeout:   ptrString(e.GetPointerDropoutTimeout().String()),
		SelectingTimeout:        ptrString(e.GetSelectingTimeout().String()),
		SampleCapacity:          ptrInt(e.GetSampleCapacity()),
	}
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/<pkg>/ and cmd/tabletop/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"ceiling_height_m", c.CeilingHeightM},
		{"floor_min_area_m2", c.FloorMinAreaM2},
		{"desktop_min_size_m", c.DesktopMinSizeM},
		{"desktop_max_size_m", c.DesktopMaxSizeM},
		{"desktop_thickness_m", c.DesktopThicknessM},
		{"fixed_step_hz", c.FixedStepHz},
		{"plate_radius_m", c.PlateRadiusM},
		{"plate_height_m", c.PlateHeightM},
		{"plate_mass_kg", c.PlateMassKg},
		{"max_body_speed_mps", c.MaxBodySpeedMps},
		{"max_throw_velocity_mps", c.MaxThrowVelocityMps},
	} {
		if f.v != nil && *f.v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", f.name, *f.v)
		}
	}

	if c.GetDesktopMinSizeM() > c.GetDesktopMaxSizeM() {
		return fmt.Errorf("desktop_min_size_m (%f) exceeds desktop_max_size_m (%f)",
			c.GetDesktopMinSizeM(), c.GetDesktopMaxSizeM())
	}
	if c.GetFloorMaxHeightM() >= c.GetCeilingHeightM() {
		return fmt.Errorf("floor_max_height_m (%f) must be below ceiling_height_m (%f)",
			c.GetFloorMaxHeightM(), c.GetCeilingHeightM())
	}

	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"desktop_margin_scale", c.DesktopMarginScale},
		{"contact_stiffness", c.ContactStiffness},
		{"drag_smoothing", c.DragSmoothing},
	} {
		if f.v != nil && (*f.v <= 0 || *f.v > 1) {
			return fmt.Errorf("%s must be in (0, 1], got %f", f.name, *f.v)
		}
	}
	if c.VerticalDamping != nil && (*c.VerticalDamping < 0 || *c.VerticalDamping > 1) {
		return fmt.Errorf("vertical_damping must be between 0 and 1, got %f", *c.VerticalDamping)
	}

	for _, f := range []struct {
		name string
		v    *int
	}{
		{"solver_iterations", c.SolverIterations},
		{"max_sub_steps", c.MaxSubSteps},
		{"velocity_window_samples", c.VelocityWindowSamples},
		{"sample_capacity", c.SampleCapacity},
	} {
		if f.v != nil && *f.v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", f.name, *f.v)
		}
	}
	if c.VelocityWindowSamples != nil && *c.VelocityWindowSamples < 2 {
		return fmt.Errorf("velocity_window_samples must be at least 2, got %d", *c.VelocityWindowSamples)
	}

	for _, f := range []struct {
		name string
		v    *string
	}{
		{"velocity_window", c.VelocityWindow},
		{"pointer_dropout_timeout", c.PointerDropoutTimeout},
		{"selecting_timeout", c.SelectingTimeout},
	} {
		if f.v != nil && *f.v != "" {
			if _, err := time.ParseDuration(*f.v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", f.name, *f.v, err)
			}
		}
	}

	return nil
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getDuration(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetCeilingHeightM returns the height above which surfaces are treated as ceilings.
func (c *TuningConfig) GetCeilingHeightM() float64 { return getFloat(c.CeilingHeightM, 2.0) }

// GetFloorMaxHeightM returns the height below which large surfaces are treated as floor.
func (c *TuningConfig) GetFloorMaxHeightM() float64 { return getFloat(c.FloorMaxHeightM, 0.5) }

// GetFloorMinAreaM2 returns the area above which low surfaces are treated as floor.
func (c *TuningConfig) GetFloorMinAreaM2() float64 { return getFloat(c.FloorMinAreaM2, 3.0) }

// GetHorizontalToleranceDeg returns the normal tilt allowed for a horizontal plane.
func (c *TuningConfig) GetHorizontalToleranceDeg() float64 {
	return getFloat(c.HorizontalToleranceDeg, 15.0)
}

func (c *TuningConfig) GetDesktopMinSizeM() float64 { return getFloat(c.DesktopMinSizeM, 0.3) }
func (c *TuningConfig) GetDesktopMaxSizeM() float64 { return getFloat(c.DesktopMaxSizeM, 2.0) }
func (c *TuningConfig) GetDesktopMarginScale() float64 {
	return getFloat(c.DesktopMarginScale, 0.9)
}
func (c *TuningConfig) GetDesktopDefaultWidthM() float64 {
	return getFloat(c.DesktopDefaultWidthM, 0.8)
}
func (c *TuningConfig) GetDesktopDefaultDepthM() float64 {
	return getFloat(c.DesktopDefaultDepthM, 0.6)
}
func (c *TuningConfig) GetDesktopThicknessM() float64 { return getFloat(c.DesktopThicknessM, 0.03) }

// GetGravityMps2 returns the signed vertical gravity component.
func (c *TuningConfig) GetGravityMps2() float64 { return getFloat(c.GravityMps2, -9.82) }

// GetSolverIterations returns the contact solver iteration count. The
// engine default is 10; stacked and thrown plates need roughly double.
func (c *TuningConfig) GetSolverIterations() int { return getInt(c.SolverIterations, 20) }

// GetContactStiffness returns the fraction of penetration removed per solver pass.
func (c *TuningConfig) GetContactStiffness() float64 { return getFloat(c.ContactStiffness, 0.9) }

func (c *TuningConfig) GetFixedStepHz() float64 { return getFloat(c.FixedStepHz, 60) }
func (c *TuningConfig) GetMaxSubSteps() int     { return getInt(c.MaxSubSteps, 4) }
func (c *TuningConfig) GetWallHeightM() float64 { return getFloat(c.WallHeightM, 0.15) }
func (c *TuningConfig) GetWallThicknessM() float64 {
	return getFloat(c.WallThicknessM, 0.05)
}
func (c *TuningConfig) GetFloorExtraThickM() float64 {
	return getFloat(c.FloorExtraThickM, 0.1)
}
func (c *TuningConfig) GetMaxBodySpeedMps() float64 { return getFloat(c.MaxBodySpeedMps, 5.0) }
func (c *TuningConfig) GetFallToleranceM() float64  { return getFloat(c.FallToleranceM, 0.05) }
func (c *TuningConfig) GetLinearDamping() float64   { return getFloat(c.LinearDamping, 0.05) }
func (c *TuningConfig) GetAngularDamping() float64  { return getFloat(c.AngularDamping, 0.3) }
func (c *TuningConfig) GetDesktopFriction() float64 { return getFloat(c.DesktopFriction, 0.5) }
func (c *TuningConfig) GetDesktopRestitution() float64 {
	return getFloat(c.DesktopRestitution, 0.0)
}

func (c *TuningConfig) GetPlateRadiusM() float64 { return getFloat(c.PlateRadiusM, 0.06) }
func (c *TuningConfig) GetPlateHeightM() float64 { return getFloat(c.PlateHeightM, 0.02) }
func (c *TuningConfig) GetPlateMassKg() float64  { return getFloat(c.PlateMassKg, 0.15) }
func (c *TuningConfig) GetPlatePlateFriction() float64 {
	return getFloat(c.PlatePlateFriction, 0.3)
}
func (c *TuningConfig) GetPlatePlateRestitution() float64 {
	return getFloat(c.PlatePlateRestitution, 0.3)
}
func (c *TuningConfig) GetPlateDesktopFriction() float64 {
	return getFloat(c.PlateDesktopFriction, 0.4)
}
func (c *TuningConfig) GetPlateDesktopRestitution() float64 {
	return getFloat(c.PlateDesktopRestitution, 0.1)
}

// GetPlateSpacingM returns the minimum gap left between spawned plates.
func (c *TuningConfig) GetPlateSpacingM() float64 { return getFloat(c.PlateSpacingM, 0.02) }

func (c *TuningConfig) GetDragEdgeMarginM() float64 { return getFloat(c.DragEdgeMarginM, 0.02) }
func (c *TuningConfig) GetDragSmoothing() float64   { return getFloat(c.DragSmoothing, 0.35) }
func (c *TuningConfig) GetDragLiftM() float64       { return getFloat(c.DragLiftM, 0.01) }
func (c *TuningConfig) GetTapThresholdM() float64   { return getFloat(c.TapThresholdM, 0.02) }
func (c *TuningConfig) GetVelocityWindowSamples() int {
	return getInt(c.VelocityWindowSamples, 6)
}
func (c *TuningConfig) GetVelocityWindow() time.Duration {
	return getDuration(c.VelocityWindow, 150*time.Millisecond)
}
func (c *TuningConfig) GetAmplificationHand() float64 {
	return getFloat(c.AmplificationHand, 2.5)
}
func (c *TuningConfig) GetAmplificationController() float64 {
	return getFloat(c.AmplificationController, 1.8)
}
func (c *TuningConfig) GetAmplificationScreen() float64 {
	return getFloat(c.AmplificationScreen, 1.0)
}
func (c *TuningConfig) GetVerticalDamping() float64 { return getFloat(c.VerticalDamping, 0) }
func (c *TuningConfig) GetMaxThrowVelocityMps() float64 {
	return getFloat(c.MaxThrowVelocityMps, 3.0)
}
func (c *TuningConfig) GetAngularJitterRadps() float64 {
	return getFloat(c.AngularJitterRadps, 2.0)
}
func (c *TuningConfig) GetPointerDropoutTimeout() time.Duration {
	return getDuration(c.PointerDropoutTimeout, 500*time.Millisecond)
}
func (c *TuningConfig) GetSelectingTimeout() time.Duration {
	return getDuration(c.SelectingTimeout, 250*time.Millisecond)
}
func (c *TuningConfig) GetSampleCapacity() int { return getInt(c.SampleCapacity, 32) }
