package game

import (
	"fmt"
	"time"
)

// CombatantID identifies a combatant for the lifetime of a match.
// IDs start at 1; NoTarget is the empty handle.
type CombatantID int32

// NoTarget is the zero handle: the combatant has nothing targeted.
const NoTarget CombatantID = 0

// CombatantState is the high-level behaviour state driven by CombatantAI.
type CombatantState uint8

const (
	StateIdle CombatantState = iota
	StatePatrolling
	StateAlert
	StateEngaging
	StateSuppressing
	StateAdvancing
	StateRetreating
	StateSeekingCover
	StateDefending
	StateDead
	numCombatantStates
)

func (s CombatantState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePatrolling:
		return "patrolling"
	case StateAlert:
		return "alert"
	case StateEngaging:
		return "engaging"
	case StateSuppressing:
		return "suppressing"
	case StateAdvancing:
		return "advancing"
	case StateRetreating:
		return "retreating"
	case StateSeekingCover:
		return "seeking_cover"
	case StateDefending:
		return "defending"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// SkillProfile is fixed at spawn.
type SkillProfile struct {
	ReactionDelay         float64 // seconds between spotting and opening fire
	AimJitter             float64 // 0 = perfect, 1 = hopeless
	BurstLength           int     // rounds per burst
	BurstPause            float64 // seconds between bursts
	SuppressionResistance float64 // 0-1, higher shrugs off more suppression
	VisualRange           float64 // metres
}

// DefaultSkillProfile returns a baseline rifleman.
func DefaultSkillProfile() SkillProfile {
	return SkillProfile{
		ReactionDelay:         0.6,
		AimJitter:             0.35,
		BurstLength:           3,
		BurstPause:            0.9,
		SuppressionResistance: 0.5,
		VisualRange:           60,
	}
}

// VeteranSkillProfile is a steadier, faster-reacting variant.
func VeteranSkillProfile() SkillProfile {
	return SkillProfile{
		ReactionDelay:         0.35,
		AimJitter:             0.2,
		BurstLength:           4,
		BurstPause:            0.7,
		SuppressionResistance: 0.75,
		VisualRange:           75,
	}
}

// LODLevel controls how often a combatant's AI runs.
type LODLevel uint8

const (
	LODHigh LODLevel = iota
	LODMedium
	LODLow
)

func (l LODLevel) String() string {
	switch l {
	case LODHigh:
		return "high"
	case LODMedium:
		return "medium"
	default:
		return "low"
	}
}

// Intent is what the AI wants the body to do this tick. Movement and
// ballistics systems consume it.
type Intent struct {
	Move   bool
	MoveTo Vec3
	Speed  float64 // m/s

	Fire       bool
	FireTarget CombatantID // NoTarget when firing at AimAt
	AimAt      Vec3
	Shots      int
	FullAuto   bool
}

// Combatant is one simulated unit.
type Combatant struct {
	ID       CombatantID
	Faction  Faction
	Position Vec3
	Velocity Vec3
	Heading  float64

	State         CombatantState
	PreviousState CombatantState

	Health    float64
	MaxHealth float64

	// Target is a non-owning handle resolved through the combatant table on every use.
	Target             CombatantID
	LastKnownTargetPos Vec3
	lastSeenTarget     time.Time

	Skill SkillProfile

	SuppressionLevel float64
	NearMissCount    float64
	LastSuppressedAt time.Time // zero when cleared

	SquadID string

	// Engagement bookkeeping.
	reactionTimer      float64
	burstTimer         float64
	burstShots         int
	IsFullAuto         bool
	SuppressionTarget  Vec3
	SuppressionEndTime time.Time
	InCover            bool
	CoverPosition      Vec3
	stateTimer         float64

	DefensePos      Vec3
	HasDefensePos   bool
	DefendingZoneID string

	Destination    Vec3
	HasDestination bool

	Intent Intent

	// Per-tick scratch written by the orchestrator.
	LODLevel         LODLevel
	UpdatePriority   int
	DistanceToPlayer float64
	pendingDt        float64

	DeathTime time.Time
}

const combatantMaxHP = 100.0

// NewCombatant creates a live combatant in the PATROLLING state.
func NewCombatant(id CombatantID, faction Faction, pos Vec3, skill SkillProfile) *Combatant {
	return &Combatant{
		ID:            id,
		Faction:       faction,
		Position:      pos,
		State:         StatePatrolling,
		PreviousState: StatePatrolling,
		Health:        combatantMaxHP,
		MaxHealth:     combatantMaxHP,
		Skill:         skill,
	}
}

// Label is a short human-readable handle for logs, e.g. "U7" or "O12".
func (c *Combatant) Label() string {
	prefix := "U"
	if c.Faction == FactionOPFOR {
		prefix = "O"
	}
	return fmt.Sprintf("%s%d", prefix, c.ID)
}

// Alive reports whether the combatant is still in play.
func (c *Combatant) Alive() bool {
	return c.State != StateDead
}

// HealthFraction returns health as 0-1.
func (c *Combatant) HealthFraction() float64 {
	if c.MaxHealth <= 0 {
		return 0
	}
	return clamp01(c.Health / c.MaxHealth)
}

// ApplySuppression records incoming fire. Called by combat resolution.
func (c *Combatant) ApplySuppression(amount float64, now time.Time) {
	if !c.Alive() {
		return
	}
	c.SuppressionLevel = clamp01(c.SuppressionLevel + amount)
	c.NearMissCount++
	c.LastSuppressedAt = now
}

// ClearTarget drops the current target handle.
func (c *Combatant) ClearTarget() {
	c.Target = NoTarget
}

func (c *Combatant) clearDefense() {
	c.HasDefensePos = false
	c.DefensePos = Vec3{}
	c.DefendingZoneID = ""
}

func (c *Combatant) clearSuppressionOrder() {
	c.SuppressionTarget = Vec3{}
	c.SuppressionEndTime = time.Time{}
	c.IsFullAuto = false
}

func (c *Combatant) setDestination(p Vec3) {
	c.Destination = p
	c.HasDestination = true
}

func (c *Combatant) clearDestination() {
	c.HasDestination = false
}

// markDead moves the combatant to the terminal state.
func (c *Combatant) markDead(now time.Time) {
	if c.State == StateDead {
		return
	}
	c.PreviousState = c.State
	c.State = StateDead
	c.Health = 0
	c.Target = NoTarget
	c.Intent = Intent{}
	c.Velocity = Vec3{}
	c.DeathTime = now
}

// resolveTarget looks the target handle up in the authoritative table.
// A handle pointing at a missing or dead combatant is cleared.
func (c *Combatant) resolveTarget(all map[CombatantID]*Combatant) (*Combatant, bool) {
	if c.Target == NoTarget {
		return nil, false
	}
	t, ok := all[c.Target]
	if !ok || !t.Alive() {
		c.Target = NoTarget
		return nil, false
	}
	return t, true
}
