package physics

import (
	"github.com/banshee-data/tabletop/internal/config"
	"github.com/banshee-data/tabletop/internal/rigid"
)

// Material classes. Every body of a class shares one material.
const (
	MaterialDesktop rigid.MaterialClass = "desktop"
	MaterialPlate   rigid.MaterialClass = "plate"
)

// Config tunes the world and the safety nets.
type Config struct {
	Gravity            float64 // m/s², negative is down
	SolverIterations   int
	ContactStiffness   float64
	FixedStep          float64 // seconds
	MaxSubSteps        int
	WallHeightM        float64 // above the desktop surface
	WallThicknessM     float64
	FloorExtraThickM   float64 // added below the nominal desktop thickness
	DesktopFriction    float64
	DesktopRestitution float64

	PlateRadiusM   float64
	PlateHeightM   float64
	PlateMassKg    float64
	LinearDamping  float64
	AngularDamping float64

	PlatePlateFriction      float64
	PlatePlateRestitution   float64
	PlateDesktopFriction    float64
	PlateDesktopRestitution float64

	MaxBodySpeedMps float64
	FallToleranceM  float64
}

// DefaultConfig returns the built-in tuning.
func DefaultConfig() Config { return ConfigFromTuning(nil) }

// ConfigFromTuning reads physics tuning; nil uses defaults.
func ConfigFromTuning(t *config.TuningConfig) Config {
	if t == nil {
		t = config.EmptyTuningConfig()
	}
	return Config{
		Gravity:                 t.GetGravityMps2(),
		SolverIterations:        t.GetSolverIterations(),
		ContactStiffness:        t.GetContactStiffness(),
		FixedStep:               1 / t.GetFixedStepHz(),
		MaxSubSteps:             t.GetMaxSubSteps(),
		WallHeightM:             t.GetWallHeightM(),
		WallThicknessM:          t.GetWallThicknessM(),
		FloorExtraThickM:        t.GetFloorExtraThickM(),
		DesktopFriction:         t.GetDesktopFriction(),
		DesktopRestitution:      t.GetDesktopRestitution(),
		PlateRadiusM:            t.GetPlateRadiusM(),
		PlateHeightM:            t.GetPlateHeightM(),
		PlateMassKg:             t.GetPlateMassKg(),
		LinearDamping:           t.GetLinearDamping(),
		AngularDamping:          t.GetAngularDamping(),
		PlatePlateFriction:      t.GetPlatePlateFriction(),
		PlatePlateRestitution:   t.GetPlatePlateRestitution(),
		PlateDesktopFriction:    t.GetPlateDesktopFriction(),
		PlateDesktopRestitution: t.GetPlateDesktopRestitution(),
		MaxBodySpeedMps:         t.GetMaxBodySpeedMps(),
		FallToleranceM:          t.GetFallToleranceM(),
	}
}
