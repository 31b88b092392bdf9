package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// settings are resolved from flags, TABLETOP_* environment variables and an
// optional JSON config file, in that order of precedence.
type settings struct {
	LogLevel   string
	Pretty     bool
	Scenario   string // replay this scenario file instead of the synthetic room
	Frames     int
	Plates     int
	PlotDir    string
	TuningPath string
	Record     string // write the frames that were run to this scenario file
	Seed       int64

	ShowVersion bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log-level", "info")
	v.SetDefault("pretty", true)
	v.SetDefault("scenario", "")
	v.SetDefault("frames", 600)
	v.SetDefault("plates", 6)
	v.SetDefault("plot-dir", "")
	v.SetDefault("tuning", "")
	v.SetDefault("record", "")
	v.SetDefault("seed", 1)
}

func loadSettings(args []string) (settings, error) {
	v := viper.New()
	setDefaults(v)

	fs := flag.NewFlagSet("tabletop", flag.ContinueOnError)
	configFile := fs.String("config", "", "JSON settings file")
	fs.String("log-level", v.GetString("log-level"), "log level: debug, info, warn, error, off")
	fs.Bool("pretty", v.GetBool("pretty"), "human-readable console logs")
	fs.String("scenario", "", "scenario JSON to replay (default: synthetic room)")
	fs.Int("frames", v.GetInt("frames"), "maximum number of frames to run")
	fs.Int("plates", v.GetInt("plates"), "plates to spawn once the desktop is placed")
	fs.String("plot-dir", "", "write trajectory plots under this directory")
	fs.String("tuning", "", "tuning JSON file (default: built-in defaults)")
	fs.String("record", "", "save the frames that were run as a scenario JSON")
	fs.Int64("seed", v.GetInt64("seed"), "seed for plate layout and spin")
	showVersion := fs.Bool("version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return settings{}, err
	}

	v.SetEnvPrefix("TABLETOP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return settings{}, fmt.Errorf("error reading config file: %w", err)
		}
	}
	// Only flags given on the command line override env and file values.
	fs.Visit(func(f *flag.Flag) {
		if f.Name != "config" && f.Name != "version" {
			v.Set(f.Name, f.Value.String())
		}
	})

	s := settings{
		LogLevel:   v.GetString("log-level"),
		Pretty:     v.GetBool("pretty"),
		Scenario:   v.GetString("scenario"),
		Frames:     v.GetInt("frames"),
		Plates:     v.GetInt("plates"),
		PlotDir:    v.GetString("plot-dir"),
		TuningPath: v.GetString("tuning"),
		Record:     v.GetString("record"),
		Seed:       v.GetInt64("seed"),

		ShowVersion: *showVersion,
	}
	if s.Frames <= 0 {
		return settings{}, fmt.Errorf("frames must be positive, got %d", s.Frames)
	}
	if s.Plates < 0 {
		return settings{}, fmt.Errorf("plates must not be negative, got %d", s.Plates)
	}
	return s, nil
}
