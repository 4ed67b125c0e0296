package game

import (
	"github.com/rs/zerolog"
)

// TestSim is a headless match harness used by tests and the headless report.
// It wraps Sim with deterministic seeding, a fixed tick length and structured logging.
type TestSim struct {
	*Sim
	SimLog *SimLog
	Dt     float64

	cfg       SimConfig
	deps      SimDeps
	cover     StaticCover
	zones     []*CaptureZone
	spawns    []spawnSpec
	squads    []squadSpec
	commands  []commandSpec
	player    *Vec3
	observers []MatchObserver
}

type spawnSpec struct {
	faction Faction
	pos     Vec3
	skill   SkillProfile
}

type squadSpec struct {
	id               string
	faction          Faction
	playerControlled bool
	members          []CombatantID
}

type commandSpec struct {
	squadID string
	cmd     SquadCommand
	pos     *Vec3
}

// simOptionKind controls the pass in which an option is applied.
type simOptionKind int

const (
	simOptInfra     simOptionKind = iota // seed, config, logging and cover; applied first
	simOptWorld                          // zones and the player, once the Sim exists
	simOptCombatant                      // spawns, after zones
	simOptSquad                          // squads and their orders, after combatants exist
)

// SimOption is a builder function applied to a TestSim during construction.
type SimOption struct {
	kind simOptionKind
	fn   func(*TestSim)
}

// WithSeed sets the RNG seed for deterministic runs.
func WithSeed(seed int64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.cfg.Seed = seed
		ts.deps.Rand = NewRand(seed)
	}}
}

// WithConfig replaces the whole match configuration. Apply before WithSeed to keep a custom seed.
func WithConfig(cfg SimConfig) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.cfg = cfg
	}}
}

// WithEconomy overrides only the ticket economy settings.
func WithEconomy(ec EconomyConfig) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.cfg.Economy = ec
	}}
}

// WithTickRate sets how many ticks make one simulated second.
func WithTickRate(hz float64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		if hz > 0 {
			ts.Dt = 1 / hz
		}
	}}
}

// WithVerbose enables verbose SimLog entries.
func WithVerbose(v bool) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.SimLog = NewSimLog(v)
	}}
}

// WithLogger routes operational logs to l.
func WithLogger(l zerolog.Logger) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.deps.Logger = l
	}}
}

// WithVoice replaces the default callout board.
func WithVoice(v VoiceSink) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.deps.Voice = v
	}}
}

// WithCover adds a static cover volume.
func WithCover(b AABB) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.cover = append(ts.cover, b)
	}}
}

// WithObserver subscribes o to match events.
func WithObserver(o MatchObserver) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.observers = append(ts.observers, o)
	}}
}

// WithZone adds a neutral capture zone.
func WithZone(id string, x, z, radius float64) SimOption {
	return SimOption{simOptWorld, func(ts *TestSim) {
		ts.zones = append(ts.zones, NewCaptureZone(id, V3(x, 0, z), radius))
	}}
}

// WithOwnedZone adds a capture zone already held by owner.
func WithOwnedZone(id string, x, z, radius float64, owner Faction) SimOption {
	return SimOption{simOptWorld, func(ts *TestSim) {
		zn := NewCaptureZone(id, V3(x, 0, z), radius)
		zn.SetOwner(owner)
		ts.zones = append(ts.zones, zn)
	}}
}

// WithHomeBase adds an uncapturable base for owner.
func WithHomeBase(id string, x, z, radius float64, owner Faction) SimOption {
	return SimOption{simOptWorld, func(ts *TestSim) {
		ts.zones = append(ts.zones, NewHomeBase(id, V3(x, 0, z), radius, owner))
	}}
}

// WithPlayer places the player.
func WithPlayer(x, z float64) SimOption {
	return SimOption{simOptWorld, func(ts *TestSim) {
		p := V3(x, 0, z)
		ts.player = &p
	}}
}

// WithCombatant spawns a combatant with the default skill profile. IDs are
// assigned from 1 in option order.
func WithCombatant(f Faction, x, z float64) SimOption {
	return WithSkilledCombatant(f, x, z, DefaultSkillProfile())
}

// WithSkilledCombatant spawns a combatant with an explicit skill profile.
func WithSkilledCombatant(f Faction, x, z float64, skill SkillProfile) SimOption {
	return SimOption{simOptCombatant, func(ts *TestSim) {
		ts.spawns = append(ts.spawns, spawnSpec{faction: f, pos: V3(x, 0, z), skill: skill})
	}}
}

// WithSquad groups combatants (by ID) into an AI squad.
func WithSquad(id string, f Faction, members ...CombatantID) SimOption {
	return SimOption{simOptSquad, func(ts *TestSim) {
		ts.squads = append(ts.squads, squadSpec{id: id, faction: f, members: members})
	}}
}

// WithPlayerSquad groups combatants into a player-controlled squad.
func WithPlayerSquad(id string, f Faction, members ...CombatantID) SimOption {
	return SimOption{simOptSquad, func(ts *TestSim) {
		ts.squads = append(ts.squads, squadSpec{id: id, faction: f, playerControlled: true, members: members})
	}}
}

// WithCommand issues a squad order before the first tick.
func WithCommand(squadID string, cmd SquadCommand, pos *Vec3) SimOption {
	return SimOption{simOptSquad, func(ts *TestSim) {
		ts.commands = append(ts.commands, commandSpec{squadID: squadID, cmd: cmd, pos: pos})
	}}
}

// NewTestSim constructs a TestSim from the given options in ordered passes:
//  1. Infrastructure (seed, config, logging, cover)
//  2. Build the Sim
//  3. World (zones, player)
//  4. Combatants
//  5. Squads and orders
func NewTestSim(opts ...SimOption) *TestSim {
	ts := &TestSim{
		SimLog: NewSimLog(false),
		Dt:     0.1,
		cfg:    DefaultSimConfig(),
	}
	ts.deps.Logger = zerolog.Nop()
	ts.apply(opts, simOptInfra)

	ts.deps.Log = ts.SimLog
	ts.deps.Observers = ts.observers
	if len(ts.cover) > 0 {
		ts.deps.Cover = ts.cover
	}
	if ts.deps.Rand == nil {
		ts.deps.Rand = NewRand(ts.cfg.Seed)
	}
	ts.Sim = NewSim(ts.cfg, ts.deps)

	ts.apply(opts, simOptWorld)
	for _, z := range ts.zones {
		ts.AddZone(z)
	}
	if ts.player != nil {
		ts.SetPlayerPosition(*ts.player)
	}

	ts.apply(opts, simOptCombatant)
	for _, sp := range ts.spawns {
		ts.Spawn(sp.faction, sp.pos, sp.skill)
	}

	ts.apply(opts, simOptSquad)
	for _, sq := range ts.squads {
		ts.AddSquad(sq.id, sq.faction, sq.playerControlled, sq.members...)
	}
	for _, c := range ts.commands {
		ts.IssueCommand(c.squadID, c.cmd, c.pos)
	}
	return ts
}

func (ts *TestSim) apply(opts []SimOption, kind simOptionKind) {
	for _, o := range opts {
		if o.kind == kind {
			o.fn(ts)
		}
	}
}

// RunTicks advances the simulation n ticks, stopping early once the match ends.
// It returns how many ticks actually ran.
func (ts *TestSim) RunTicks(n int) int {
	ran := 0
	for i := 0; i < n && !ts.Ended(); i++ {
		ts.Update(ts.Dt)
		ran++
	}
	return ran
}

// RunUntil advances up to maxTicks, stopping once predicate holds. It returns
// the tick at which the predicate was satisfied, or -1.
func (ts *TestSim) RunUntil(predicate func(*TestSim) bool, maxTicks int) int {
	for i := 0; i < maxTicks && !ts.Ended(); i++ {
		ts.Update(ts.Dt)
		if predicate(ts) {
			return ts.Tick()
		}
	}
	return -1
}

// ByFaction returns every combatant of f, dead included.
func (ts *TestSim) ByFaction(f Faction) []*Combatant {
	var out []*Combatant
	for _, c := range ts.CombatantList() {
		if c.Faction == f {
			out = append(out, c)
		}
	}
	return out
}

// Summary formats the current match state.
func (ts *TestSim) Summary() string {
	return ts.SimLog.Summary(ts.Tick(), ts.CombatantList(), ts.Zones().Zones(), ts.GameState())
}
