// Package scenario loads battlefield layouts (zones, squads, cover) from YAML.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Garsondee/frontline/internal/game"
)

// Scenario is one battlefield layout.
type Scenario struct {
	Name   string      `yaml:"name"`
	Zones  []ZoneSpec  `yaml:"zones"`
	Squads []SquadSpec `yaml:"squads"`
	Cover  []BoxSpec   `yaml:"cover,omitempty"`
	Player *PointSpec  `yaml:"player,omitempty"`
}

type ZoneSpec struct {
	ID       string  `yaml:"id"`
	X        float64 `yaml:"x"`
	Z        float64 `yaml:"z"`
	Radius   float64 `yaml:"radius"`
	Owner    string  `yaml:"owner,omitempty"`
	HomeBase bool    `yaml:"home_base,omitempty"`
}

type SquadSpec struct {
	ID      string  `yaml:"id"`
	Faction string  `yaml:"faction"`
	X       float64 `yaml:"x"`
	Z       float64 `yaml:"z"`
	Size    int     `yaml:"size"`
	Spacing float64 `yaml:"spacing"`
	Skill   string  `yaml:"skill,omitempty"`
	Player  bool    `yaml:"player,omitempty"`
	Command string  `yaml:"command,omitempty"`
	// Target is the command position for orders that take one.
	Target *PointSpec `yaml:"target,omitempty"`
}

type PointSpec struct {
	X float64 `yaml:"x"`
	Z float64 `yaml:"z"`
}

type BoxSpec struct {
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

const (
	defaultSquadSize = 4
	defaultSpacing   = 3.0
	defaultRadius    = 15.0
)

// Load reads a scenario file. An empty path returns the built-in layout.
func Load(path string) (Scenario, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	return Parse(b)
}

// Parse decodes, normalizes and validates a scenario document.
func Parse(b []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return sc, fmt.Errorf("scenario: %w", err)
	}
	sc.Normalize()
	if err := sc.Validate(); err != nil {
		return sc, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	return sc, nil
}

// Default is a three-zone line between two home bases, two squads a side.
func Default() Scenario {
	sc := Scenario{
		Name: "crossroads",
		Zones: []ZoneSpec{
			{ID: "us_base", X: -180, Z: 0, Radius: 25, Owner: "US", HomeBase: true},
			{ID: "opfor_base", X: 180, Z: 0, Radius: 25, Owner: "OPFOR", HomeBase: true},
			{ID: "A", X: -60, Z: 20, Radius: 15},
			{ID: "B", X: 0, Z: 0, Radius: 15},
			{ID: "C", X: 60, Z: -20, Radius: 15},
		},
		Squads: []SquadSpec{
			{ID: "blue-1", Faction: "US", X: -160, Z: 15, Skill: "veteran"},
			{ID: "blue-2", Faction: "US", X: -160, Z: -15},
			{ID: "red-1", Faction: "OPFOR", X: 160, Z: 15},
			{ID: "red-2", Faction: "OPFOR", X: 160, Z: -15, Skill: "veteran"},
		},
		Cover: []BoxSpec{
			{Min: [3]float64{-35, 0, 5}, Max: [3]float64{-31, 2, 13}},
			{Min: [3]float64{-4, 0, 20}, Max: [3]float64{4, 2, 23}},
			{Min: [3]float64{-4, 0, -23}, Max: [3]float64{4, 2, -20}},
			{Min: [3]float64{31, 0, -13}, Max: [3]float64{35, 2, -5}},
		},
	}
	sc.Normalize()
	return sc
}

// Normalize fills unset fields.
func (sc *Scenario) Normalize() {
	if sc.Name == "" {
		sc.Name = "unnamed"
	}
	for i := range sc.Zones {
		z := &sc.Zones[i]
		z.ID = strings.TrimSpace(z.ID)
		if z.Radius <= 0 {
			z.Radius = defaultRadius
		}
	}
	for i := range sc.Squads {
		s := &sc.Squads[i]
		s.ID = strings.TrimSpace(s.ID)
		if s.Size <= 0 {
			s.Size = defaultSquadSize
		}
		if s.Spacing <= 0 {
			s.Spacing = defaultSpacing
		}
		if s.Skill == "" {
			s.Skill = "default"
		}
		if s.Command == "" {
			s.Command = game.CommandNone.String()
		}
	}
}

// Validate checks ids, factions, skills and commands.
func (sc Scenario) Validate() error {
	var errs []error
	zoneIDs := make(map[string]bool, len(sc.Zones))
	for _, z := range sc.Zones {
		if z.ID == "" {
			errs = append(errs, errors.New("zone with empty id"))
			continue
		}
		if zoneIDs[z.ID] {
			errs = append(errs, fmt.Errorf("duplicate zone id %q", z.ID))
		}
		zoneIDs[z.ID] = true
		if z.Owner != "" {
			if _, ok := game.ParseFaction(z.Owner); !ok {
				errs = append(errs, fmt.Errorf("zone %s: unknown owner %q", z.ID, z.Owner))
			}
		}
		if z.HomeBase && z.Owner == "" {
			errs = append(errs, fmt.Errorf("zone %s: home base needs an owner", z.ID))
		}
	}

	squadIDs := make(map[string]bool, len(sc.Squads))
	players := 0
	for _, s := range sc.Squads {
		if s.ID == "" {
			errs = append(errs, errors.New("squad with empty id"))
			continue
		}
		if squadIDs[s.ID] {
			errs = append(errs, fmt.Errorf("duplicate squad id %q", s.ID))
		}
		squadIDs[s.ID] = true
		if _, ok := game.ParseFaction(s.Faction); !ok {
			errs = append(errs, fmt.Errorf("squad %s: unknown faction %q", s.ID, s.Faction))
		}
		if _, ok := skillProfile(s.Skill); !ok {
			errs = append(errs, fmt.Errorf("squad %s: unknown skill %q", s.ID, s.Skill))
		}
		cmd, ok := game.ParseSquadCommand(s.Command)
		if !ok {
			errs = append(errs, fmt.Errorf("squad %s: unknown command %q", s.ID, s.Command))
		}
		if cmd != game.CommandNone && !s.Player {
			errs = append(errs, fmt.Errorf("squad %s: only player squads take commands", s.ID))
		}
		if s.Player {
			players++
		}
	}
	if players > 1 {
		errs = append(errs, fmt.Errorf("%d player squads, at most one allowed", players))
	}
	for i, b := range sc.Cover {
		for k := 0; k < 3; k++ {
			if b.Min[k] > b.Max[k] {
				errs = append(errs, fmt.Errorf("cover %d: min above max on axis %d", i, k))
				break
			}
		}
	}
	return errors.Join(errs...)
}

func skillProfile(name string) (game.SkillProfile, bool) {
	switch strings.ToLower(name) {
	case "", "default", "regular":
		return game.DefaultSkillProfile(), true
	case "veteran":
		return game.VeteranSkillProfile(), true
	}
	return game.SkillProfile{}, false
}

// CoverVolumes returns the static cover as engine volumes.
func (sc Scenario) CoverVolumes() game.StaticCover {
	out := make(game.StaticCover, 0, len(sc.Cover))
	for _, b := range sc.Cover {
		out = append(out, game.AABB{
			Min: game.V3(b.Min[0], b.Min[1], b.Min[2]),
			Max: game.V3(b.Max[0], b.Max[1], b.Max[2]),
		})
	}
	return out
}

// Build creates a Sim populated with the scenario. deps.Cover is replaced by
// the scenario's cover when it has any, and cover taller than eye height
// blocks sight unless deps.Sight is already set.
func (sc Scenario) Build(cfg game.SimConfig, deps game.SimDeps) (*game.Sim, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if len(sc.Cover) > 0 {
		cover := sc.CoverVolumes()
		deps.Cover = cover
		if deps.Sight == nil {
			deps.Sight = game.NewWallSight(cover)
		}
	}
	sim := game.NewSim(cfg, deps)
	if err := sc.Populate(sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// Populate adds zones, the player and squads to an empty Sim.
func (sc Scenario) Populate(sim *game.Sim) error {
	for _, z := range sc.Zones {
		pos := game.V3(z.X, 0, z.Z)
		owner, hasOwner := game.ParseFaction(z.Owner)
		switch {
		case z.HomeBase:
			sim.AddZone(game.NewHomeBase(z.ID, pos, z.Radius, owner))
		case hasOwner:
			zone := game.NewCaptureZone(z.ID, pos, z.Radius)
			zone.SetOwner(owner)
			sim.AddZone(zone)
		default:
			sim.AddZone(game.NewCaptureZone(z.ID, pos, z.Radius))
		}
	}
	if sc.Player != nil {
		sim.SetPlayerPosition(game.V3(sc.Player.X, 0, sc.Player.Z))
	}

	for _, s := range sc.Squads {
		faction, _ := game.ParseFaction(s.Faction)
		skill, _ := skillProfile(s.Skill)
		ids := make([]game.CombatantID, 0, s.Size)
		for _, p := range SquadLayout(s) {
			ids = append(ids, sim.Spawn(faction, p, skill).ID)
		}
		sim.AddSquad(s.ID, faction, s.Player, ids...)

		cmd, _ := game.ParseSquadCommand(s.Command)
		if cmd == game.CommandNone {
			continue
		}
		var pos *game.Vec3
		if s.Target != nil {
			p := game.V3(s.Target.X, 0, s.Target.Z)
			pos = &p
		}
		if !sim.IssueCommand(s.ID, cmd, pos) {
			return fmt.Errorf("squad %s: command %s rejected", s.ID, cmd)
		}
	}
	return nil
}

// SquadLayout places a squad's members in a column centred on its anchor.
func SquadLayout(s SquadSpec) []game.Vec3 {
	out := make([]game.Vec3, s.Size)
	start := -float64(s.Size-1) / 2 * s.Spacing
	for i := range out {
		out[i] = game.V3(s.X, 0, s.Z+start+float64(i)*s.Spacing)
	}
	return out
}

// Counts returns how many combatants each faction fields.
func (sc Scenario) Counts() (us, opfor int) {
	for _, s := range sc.Squads {
		f, _ := game.ParseFaction(s.Faction)
		if f == game.FactionOPFOR {
			opfor += s.Size
		} else {
			us += s.Size
		}
	}
	return us, opfor
}
