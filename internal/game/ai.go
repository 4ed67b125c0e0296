package game

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

const (
	suppressionDecayRate  = 0.25 // per second
	nearMissDecayDelay    = 3 * time.Second
	nearMissDecayRate     = 1.0 // per second
	movementCalloutChance = 0.2

	engageRange           = 80.0
	retreatHealthFraction = 0.3
	burstShotInterval     = 0.12
	suppressionDuration   = 3 * time.Second
	losMemory             = 2 * time.Second
	retreatDuration       = 4.0
	coverSeekTimeout      = 8.0
	defenseLeash          = 5.0
	cohesionRadius        = 25.0
	advanceSearchRadius   = 15.0
	followDistance        = 4.0
	arriveRadius          = 1.5
	wanderMin             = 5.0
	wanderMax             = 20.0

	patrolSpeed  = 2.0
	advanceSpeed = 3.5
	sprintSpeed  = 5.0
)

// AIDeps is everything a CombatantAI consults. Only Rand and Clock are
// defaulted; any other nil collaborator switches its feature off.
type AIDeps struct {
	Zones     ZoneDirectory
	Squads    SquadDirectory
	Influence *InfluenceField
	Cover     *CoverFinder
	Voice     VoiceSink
	Terrain   Terrain
	Targeting *Targeting
	Cluster   *ClusterManager
	Flanking  *FlankingCoordinator

	Rand   Rand
	Clock  Clock
	Logger zerolog.Logger
	Log    *SimLog
	Tick   func() int
}

type stateHandler func(*CombatantAI, *aiTick)

// aiHandlers is the closed state → handler dispatch table.
var aiHandlers = [numCombatantStates]stateHandler{
	StateIdle:         (*CombatantAI).handleIdle,
	StatePatrolling:   (*CombatantAI).handlePatrol,
	StateAlert:        (*CombatantAI).handleAlert,
	StateEngaging:     (*CombatantAI).handleEngage,
	StateSuppressing:  (*CombatantAI).handleSuppress,
	StateAdvancing:    (*CombatantAI).handleAdvance,
	StateRetreating:   (*CombatantAI).handleRetreat,
	StateSeekingCover: (*CombatantAI).handleSeekCover,
	StateDefending:    (*CombatantAI).handleDefend,
	StateDead:         (*CombatantAI).handleDead,
}

// aiTick bundles one combatant's inputs for a single update.
type aiTick struct {
	c         *Combatant
	dt        float64
	now       time.Time
	playerPos Vec3
	all       map[CombatantID]*Combatant
	index     SpatialIndex
	squad     *Squad
}

// CombatantAI drives the per-combatant state machine.
type CombatantAI struct {
	zones     ZoneDirectory
	squads    SquadDirectory
	influence *InfluenceField
	cover     *CoverFinder
	voice     VoiceSink
	terrain   Terrain
	targeting *Targeting
	cluster   *ClusterManager
	flanking  *FlankingCoordinator

	rng    Rand
	clock  Clock
	logger zerolog.Logger
	simLog *SimLog
	tick   func() int
}

// NewCombatantAI wires the state machine from deps.
func NewCombatantAI(deps AIDeps) *CombatantAI {
	ai := &CombatantAI{
		zones:     deps.Zones,
		squads:    deps.Squads,
		influence: deps.Influence,
		cover:     deps.Cover,
		voice:     deps.Voice,
		terrain:   deps.Terrain,
		targeting: deps.Targeting,
		cluster:   deps.Cluster,
		flanking:  deps.Flanking,
		rng:       deps.Rand,
		clock:     deps.Clock,
		logger:    deps.Logger,
		simLog:    deps.Log,
		tick:      deps.Tick,
	}
	if ai.rng == nil {
		ai.rng = NewRand(1)
	}
	if ai.clock == nil {
		ai.clock = SystemClock{}
	}
	if ai.targeting == nil {
		ai.targeting = NewTargeting(ai.cluster, nil)
	}
	return ai
}

// UpdateAI advances one live combatant by dt seconds.
func (ai *CombatantAI) UpdateAI(c *Combatant, dt float64, playerPos Vec3, all map[CombatantID]*Combatant, index SpatialIndex) {
	if c == nil || !c.Alive() {
		return
	}
	t := &aiTick{
		c:         c,
		dt:        dt,
		now:       ai.clock.Now(),
		playerPos: playerPos,
		all:       all,
		index:     index,
	}
	t.squad, _ = lookupSquad(ai.squads, c.SquadID)

	startState := c.State
	c.Intent = Intent{}

	ai.decaySuppression(c, dt, t.now)
	ai.applySquadCommand(t)
	aiHandlers[c.State](ai, t)

	if c.State != startState && (c.State == StateAdvancing || c.State == StateRetreating) {
		ai.movementCallout(c)
	}

	if ai.flanking != nil && c.SquadID != "" {
		ai.advanceFlank(t)
	}
}

// decaySuppression bleeds suppression linearly. Near misses only start to
// fade once the unit has gone nearMissDecayDelay without being shot at.
func (ai *CombatantAI) decaySuppression(c *Combatant, dt float64, now time.Time) {
	c.SuppressionLevel = math.Max(0, c.SuppressionLevel-suppressionDecayRate*dt)
	if c.LastSuppressedAt.IsZero() || now.Sub(c.LastSuppressedAt) < nearMissDecayDelay {
		return
	}
	c.NearMissCount = math.Max(0, c.NearMissCount-nearMissDecayRate*dt)
	if c.NearMissCount == 0 {
		c.LastSuppressedAt = time.Time{}
	}
}

func (ai *CombatantAI) movementCallout(c *Combatant) {
	if ai.voice == nil || !c.Alive() {
		return
	}
	if ai.rng.Float64() >= movementCalloutChance {
		return
	}
	ai.callout(c, CalloutMoving)
}

func (ai *CombatantAI) callout(c *Combatant, kind CalloutType) {
	if ai.voice == nil {
		return
	}
	ai.voice.TriggerCallout(c, kind, c.Position)
	ai.record(c, "callout", kind.String(), "", 0)
}

func (ai *CombatantAI) advanceFlank(t *aiTick) {
	c := t.c
	op, ok := ai.flanking.Operation(c.SquadID)
	if !ok {
		return
	}
	before, stateBefore := op.Phase, c.State
	after, _ := ai.flanking.Advance(c, t.all, t.now)
	if after != before {
		ai.record(c, "flank", "phase", fmt.Sprintf("%s %s → %s", c.SquadID, before, after), 0)
	}
	if c.State != stateBefore {
		ai.record(c, "state", "transition", fmt.Sprintf("%s → %s (flank)", stateBefore, c.State), 0)
		c.stateTimer = 0
	}
}

// setState moves c to s. DEAD is never entered here; only combat resolution kills.
func (ai *CombatantAI) setState(c *Combatant, s CombatantState, reason string) {
	if c.State == s || c.State == StateDead || s == StateDead {
		return
	}
	ai.logger.Debug().
		Str("unit", c.Label()).
		Stringer("from", c.State).
		Stringer("to", s).
		Str("reason", reason).
		Msg("state transition")
	ai.record(c, "state", "transition", fmt.Sprintf("%s → %s (%s)", c.State, s, reason), 0)
	c.PreviousState = c.State
	c.State = s
	c.stateTimer = 0
}

func (ai *CombatantAI) record(c *Combatant, category, key, value string, num float64) {
	if ai.simLog == nil {
		return
	}
	tick := 0
	if ai.tick != nil {
		tick = ai.tick()
	}
	ai.simLog.Add(tick, c.Label(), c.Faction.String(), category, key, value, num)
}

// moveTo sets a movement intent toward dest.
func (ai *CombatantAI) moveTo(c *Combatant, dest Vec3, speed float64) {
	if ai.terrain != nil {
		dest.Y = ai.terrain.HeightAt(dest.X, dest.Z)
	}
	c.Intent.Move = true
	c.Intent.MoveTo = dest
	c.Intent.Speed = speed
	if c.Position.Dist2D(dest) > 1e-6 {
		c.Heading = HeadingTo(c.Position, dest)
	}
}

// threatPosition is where c believes its threat is.
func threatPosition(t *aiTick) Vec3 {
	if target, ok := t.c.resolveTarget(t.all); ok {
		return target.Position
	}
	return t.c.LastKnownTargetPos
}
