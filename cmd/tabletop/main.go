// Command tabletop runs the tabletop pipeline headless: surface detection,
// selection, desktop placement, plate spawning and a scripted throw, either
// in a synthetic room or by replaying a recorded scenario.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/tabletop/internal/monitoring"
	"github.com/banshee-data/tabletop/internal/version"
)

func main() {
	s, err := loadSettings(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("tabletop: %v", err)
	}
	if s.ShowVersion {
		fmt.Println("tabletop", version.String())
		return
	}
	monitoring.Configure(os.Stderr, s.LogLevel, s.Pretty)
	monitoring.Logger.Info().Str("version", version.String()).Msg("tabletop starting")

	sum, err := run(s)
	if err != nil {
		monitoring.Logger.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
	monitoring.Logger.Info().
		Int("frames", sum.Frames).
		Str("surface", sum.Selected).
		Bool("placed", sum.Placed).
		Int("plates", sum.Plates).
		Int("throws", sum.Throws).
		Int("taps", sum.Taps).
		Int("timeouts", sum.Timeouts).
		Int64("sub_steps", sum.SubSteps).
		Float64("dropped_s", sum.DroppedSeconds).
		Int("plots", sum.Plots).
		Msg("run complete")
}
