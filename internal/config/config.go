// Package config loads match settings from defaults, an optional config file
// and FRONTLINE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Garsondee/frontline/internal/game"
)

// EnvPrefix is prepended to every environment override, e.g. FRONTLINE_MATCH_MAXTICKETS.
const EnvPrefix = "FRONTLINE"

// Config is the fully decoded configuration.
type Config struct {
	LogLevel string        `mapstructure:"logLevel"`
	Seed     int64         `mapstructure:"seed"`
	TickRate float64       `mapstructure:"tickRate"`
	MaxTime  time.Duration `mapstructure:"maxTime"`
	Verbose  bool          `mapstructure:"verbose"`

	Scenario string `mapstructure:"scenario"`

	Sim       SimSettings       `mapstructure:"sim"`
	Influence InfluenceSettings `mapstructure:"influence"`
	Match     MatchSettings     `mapstructure:"match"`
	Recorder  RecorderSettings  `mapstructure:"recorder"`
	EventLog  EventLogSettings  `mapstructure:"eventLog"`
}

// SimSettings tunes the spatial index and scheduling.
type SimSettings struct {
	CellSize          float64       `mapstructure:"cellSize"`
	WorldSize         float64       `mapstructure:"worldSize"`
	UseOctree         bool          `mapstructure:"useOctree"`
	OccupancyInterval time.Duration `mapstructure:"occupancyInterval"`
	DeathGrace        time.Duration `mapstructure:"deathGrace"`
	LODHighRange      float64       `mapstructure:"lodHighRange"`
	LODMediumRange    float64       `mapstructure:"lodMediumRange"`
}

// InfluenceSettings sizes the influence grid.
type InfluenceSettings struct {
	GridSize    int           `mapstructure:"gridSize"`
	Interval    time.Duration `mapstructure:"interval"`
	Perspective string        `mapstructure:"perspective"`
}

// MatchSettings is the ticket economy. Durations are in seconds to match the economy.
type MatchSettings struct {
	Mode              string  `mapstructure:"mode"`
	MaxTickets        float64 `mapstructure:"maxTickets"`
	DeathPenalty      float64 `mapstructure:"deathPenalty"`
	BaseBleedRate     float64 `mapstructure:"baseBleedRate"`
	SetupDuration     float64 `mapstructure:"setupDuration"`
	CombatDuration    float64 `mapstructure:"combatDuration"`
	OvertimeDuration  float64 `mapstructure:"overtimeDuration"`
	OvertimeThreshold float64 `mapstructure:"overtimeThreshold"`
	KillTarget        float64 `mapstructure:"killTarget"`
}

// RecorderSettings points the after-action recorder at a SQLite file.
type RecorderSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// EventLogSettings controls the compressed SimLog export.
type EventLogSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	sim := game.DefaultSimConfig()
	ec := sim.Economy

	v.SetDefault("logLevel", "info")
	v.SetDefault("seed", sim.Seed)
	v.SetDefault("tickRate", 10.0)
	v.SetDefault("maxTime", "20m")
	v.SetDefault("verbose", false)
	v.SetDefault("scenario", "")

	v.SetDefault("sim.cellSize", sim.CellSize)
	v.SetDefault("sim.worldSize", sim.WorldSize)
	v.SetDefault("sim.useOctree", sim.UseOctree)
	v.SetDefault("sim.occupancyInterval", sim.OccupancyInterval.String())
	v.SetDefault("sim.deathGrace", sim.DeathGrace.String())
	v.SetDefault("sim.lodHighRange", sim.LODHighRange)
	v.SetDefault("sim.lodMediumRange", sim.LODMediumRange)

	v.SetDefault("influence.gridSize", sim.Influence.GridSize)
	v.SetDefault("influence.interval", sim.Influence.Interval.String())
	v.SetDefault("influence.perspective", sim.Influence.Perspective.String())

	v.SetDefault("match.mode", ec.Mode.String())
	v.SetDefault("match.maxTickets", ec.MaxTickets)
	v.SetDefault("match.deathPenalty", ec.DeathPenalty)
	v.SetDefault("match.baseBleedRate", ec.BaseBleedRate)
	v.SetDefault("match.setupDuration", ec.SetupDuration)
	v.SetDefault("match.combatDuration", ec.CombatDuration)
	v.SetDefault("match.overtimeDuration", ec.OvertimeDuration)
	v.SetDefault("match.overtimeThreshold", ec.OvertimeThreshold)
	v.SetDefault("match.killTarget", ec.KillTarget)

	v.SetDefault("recorder.enabled", false)
	v.SetDefault("recorder.path", "./frontline.db")
	v.SetDefault("eventLog.enabled", false)
	v.SetDefault("eventLog.path", "./frontline-events.jsonl.zst")
}

// New returns a viper instance with defaults and environment overrides bound.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (json, yaml or toml by extension) over the defaults. An
// empty path uses defaults and environment only.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return Decode(v)
}

// Decode unmarshals v and validates the result.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c Config) Validate() error {
	var errs []error
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("logLevel: %w", err))
	}
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tickRate must be positive, got %v", c.TickRate))
	}
	if c.Sim.CellSize <= 0 {
		errs = append(errs, fmt.Errorf("sim.cellSize must be positive, got %v", c.Sim.CellSize))
	}
	if c.Sim.WorldSize <= 0 {
		errs = append(errs, fmt.Errorf("sim.worldSize must be positive, got %v", c.Sim.WorldSize))
	}
	if c.Sim.LODMediumRange < c.Sim.LODHighRange {
		errs = append(errs, errors.New("sim.lodMediumRange must not be below sim.lodHighRange"))
	}
	if c.Influence.GridSize <= 0 {
		errs = append(errs, fmt.Errorf("influence.gridSize must be positive, got %d", c.Influence.GridSize))
	}
	if _, ok := game.ParseFaction(c.Influence.Perspective); !ok {
		errs = append(errs, fmt.Errorf("influence.perspective: unknown faction %q", c.Influence.Perspective))
	}
	if _, ok := game.ParseMatchMode(c.Match.Mode); !ok {
		errs = append(errs, fmt.Errorf("match.mode: unknown mode %q", c.Match.Mode))
	}
	if c.Match.MaxTickets <= 0 {
		errs = append(errs, fmt.Errorf("match.maxTickets must be positive, got %v", c.Match.MaxTickets))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Dt is the simulated seconds per tick.
func (c Config) Dt() float64 {
	return 1 / c.TickRate
}

// MaxTicks is how many ticks fit in MaxTime.
func (c Config) MaxTicks() int {
	return int(c.MaxTime.Seconds() * c.TickRate)
}

// SimConfig maps the settings onto the engine configuration.
func (c Config) SimConfig() game.SimConfig {
	sc := game.DefaultSimConfig()
	sc.Seed = c.Seed
	sc.CellSize = c.Sim.CellSize
	sc.WorldSize = c.Sim.WorldSize
	sc.UseOctree = c.Sim.UseOctree
	sc.OccupancyInterval = c.Sim.OccupancyInterval
	sc.DeathGrace = c.Sim.DeathGrace
	sc.LODHighRange = c.Sim.LODHighRange
	sc.LODMediumRange = c.Sim.LODMediumRange

	sc.Influence.GridSize = c.Influence.GridSize
	sc.Influence.WorldSize = c.Sim.WorldSize
	sc.Influence.Interval = c.Influence.Interval
	if f, ok := game.ParseFaction(c.Influence.Perspective); ok {
		sc.Influence.Perspective = f
	}

	mode, _ := game.ParseMatchMode(c.Match.Mode)
	sc.Economy = game.EconomyConfig{
		Mode:              mode,
		MaxTickets:        c.Match.MaxTickets,
		DeathPenalty:      c.Match.DeathPenalty,
		BaseBleedRate:     c.Match.BaseBleedRate,
		SetupDuration:     c.Match.SetupDuration,
		CombatDuration:    c.Match.CombatDuration,
		OvertimeDuration:  c.Match.OvertimeDuration,
		OvertimeThreshold: c.Match.OvertimeThreshold,
		KillTarget:        c.Match.KillTarget,
	}
	return sc
}
