package game

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// FlankPhase is the stage of a squad flanking manoeuvre.
type FlankPhase uint8

const (
	FlankSuppress FlankPhase = iota
	FlankManeuver
	FlankAssault
	FlankComplete
	FlankAborted
)

func (p FlankPhase) String() string {
	switch p {
	case FlankSuppress:
		return "suppress"
	case FlankManeuver:
		return "maneuver"
	case FlankAssault:
		return "assault"
	case FlankComplete:
		return "complete"
	case FlankAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Finished reports whether the operation has ended either way.
func (p FlankPhase) Finished() bool {
	return p == FlankComplete || p == FlankAborted
}

// FlankRole is a member's job in a flanking operation.
type FlankRole uint8

const (
	RoleBaseOfFire FlankRole = iota
	RoleFlanker
)

func (r FlankRole) String() string {
	if r == RoleFlanker {
		return "flanker"
	}
	return "base_of_fire"
}

const (
	flankMinMembers       = 4
	flankMinEngaged       = 2
	flankCooldown         = 30 * time.Second
	flankTimeout          = 20 * time.Second
	flankSuppressDuration = 3 * time.Second
	flankManeuverLimit    = 10 * time.Second
	flankAssaultDuration  = 5 * time.Second
	flankCasualtyLimit    = 0.5
	flankLateralOffset    = 25.0
	flankArriveRadius     = 5.0
)

// FlankOperation is one squad's active manoeuvre.
type FlankOperation struct {
	SquadID        string
	Phase          FlankPhase
	Objective      Vec3 // enemy position being flanked
	FlankPoint     Vec3 // where flankers swing out to
	Roles          map[CombatantID]FlankRole
	InitialMembers int
	StartedAt      time.Time

	phaseStarted time.Time
	lastStep     time.Time
}

// FlankingCoordinator runs flanking operations for non-player squads.
type FlankingCoordinator struct {
	rng      Rand
	log      zerolog.Logger
	ops      map[string]*FlankOperation
	cooldown map[string]time.Time
}

// NewFlankingCoordinator creates a coordinator. rng picks the flank side.
func NewFlankingCoordinator(rng Rand, log zerolog.Logger) *FlankingCoordinator {
	return &FlankingCoordinator{
		rng:      rng,
		log:      log,
		ops:      make(map[string]*FlankOperation),
		cooldown: make(map[string]time.Time),
	}
}

// Operation returns the squad's active operation, if any.
func (fc *FlankingCoordinator) Operation(squadID string) (*FlankOperation, bool) {
	op, ok := fc.ops[squadID]
	return op, ok
}

// FlankDestination returns where c should be moving if it is a flanker in the
// manoeuvre or assault phase of an active operation.
func (fc *FlankingCoordinator) FlankDestination(c *Combatant) (Vec3, bool) {
	op, ok := fc.ops[c.SquadID]
	if !ok {
		return Vec3{}, false
	}
	if role, member := op.Roles[c.ID]; !member || role != RoleFlanker {
		return Vec3{}, false
	}
	switch op.Phase {
	case FlankManeuver:
		return op.FlankPoint, true
	case FlankAssault:
		return op.Objective, true
	}
	return Vec3{}, false
}

// TryInitiate starts a flanking operation against objective when the squad is
// AI-controlled, has enough live members, several of them in a firefight, no
// operation already running, and its cooldown has expired.
func (fc *FlankingCoordinator) TryInitiate(sq *Squad, all map[CombatantID]*Combatant, objective Vec3, now time.Time) bool {
	if sq == nil || sq.IsPlayerControlled {
		return false
	}
	if _, busy := fc.ops[sq.ID]; busy {
		return false
	}
	if until, ok := fc.cooldown[sq.ID]; ok && now.Before(until) {
		return false
	}
	alive := sq.Alive(all)
	if len(alive) < flankMinMembers {
		return false
	}
	engaged := 0
	for _, m := range alive {
		if m.State == StateEngaging || m.State == StateSuppressing {
			engaged++
		}
	}
	if engaged < flankMinEngaged {
		return false
	}

	centroid, _ := sq.Centroid(all)
	toEnemy := objective.Sub(centroid).Flat().Normalize()
	if toEnemy == (Vec3{}) {
		return false
	}
	side := 1.0
	if fc.rng != nil && fc.rng.Float64() < 0.5 {
		side = -1.0
	}
	lateral := Vec3{X: -toEnemy.Z * side, Z: toEnemy.X * side}

	op := &FlankOperation{
		SquadID:        sq.ID,
		Phase:          FlankSuppress,
		Objective:      objective,
		FlankPoint:     objective.Add(lateral.Scale(flankLateralOffset)),
		Roles:          make(map[CombatantID]FlankRole, len(alive)),
		InitialMembers: len(alive),
		StartedAt:      now,
		phaseStarted:   now,
	}
	// Closest half lays down fire; the rest swing wide.
	sort.SliceStable(alive, func(i, j int) bool {
		return alive[i].Position.DistSq(objective) < alive[j].Position.DistSq(objective)
	})
	nBase := int(math.Ceil(float64(len(alive)) / 2))
	for i, m := range alive {
		role := RoleFlanker
		if i < nBase {
			role = RoleBaseOfFire
		}
		op.Roles[m.ID] = role
	}
	fc.ops[sq.ID] = op
	fc.log.Debug().Str("squad", sq.ID).Int("members", len(alive)).Msg("flank initiated")
	return true
}

// Advance steps c's squad operation (once per timestamp) and applies c's role.
// It returns the operation phase after the step, or false when none is active.
func (fc *FlankingCoordinator) Advance(c *Combatant, all map[CombatantID]*Combatant, now time.Time) (FlankPhase, bool) {
	op, ok := fc.ops[c.SquadID]
	if !ok {
		return 0, false
	}
	if op.lastStep.IsZero() || now.After(op.lastStep) {
		op.lastStep = now
		fc.step(op, all, now)
	}
	if op.Phase.Finished() {
		delete(fc.ops, op.SquadID)
		fc.cooldown[op.SquadID] = now.Add(flankCooldown)
		return op.Phase, true
	}
	if c.Alive() {
		fc.apply(op, c, now)
	}
	return op.Phase, true
}

func (fc *FlankingCoordinator) step(op *FlankOperation, all map[CombatantID]*Combatant, now time.Time) {
	alive := 0
	var flankers []*Combatant
	for id, role := range op.Roles {
		m, ok := all[id]
		if !ok || !m.Alive() {
			continue
		}
		alive++
		if role == RoleFlanker {
			flankers = append(flankers, m)
		}
	}
	casualties := op.InitialMembers - alive
	if float64(casualties) > float64(op.InitialMembers)*flankCasualtyLimit || now.Sub(op.StartedAt) > flankTimeout {
		fc.setPhase(op, FlankAborted, now)
		return
	}
	inPhase := now.Sub(op.phaseStarted)
	switch op.Phase {
	case FlankSuppress:
		if inPhase >= flankSuppressDuration {
			fc.setPhase(op, FlankManeuver, now)
		}
	case FlankManeuver:
		arrived := len(flankers) > 0
		for _, m := range flankers {
			if m.Position.Dist2D(op.FlankPoint) > flankArriveRadius {
				arrived = false
				break
			}
		}
		if arrived || inPhase >= flankManeuverLimit {
			fc.setPhase(op, FlankAssault, now)
		}
	case FlankAssault:
		if inPhase >= flankAssaultDuration {
			fc.setPhase(op, FlankComplete, now)
		}
	}
}

func (fc *FlankingCoordinator) setPhase(op *FlankOperation, p FlankPhase, now time.Time) {
	fc.log.Debug().Str("squad", op.SquadID).Stringer("from", op.Phase).Stringer("to", p).Msg("flank phase")
	op.Phase = p
	op.phaseStarted = now
}

func (fc *FlankingCoordinator) apply(op *FlankOperation, c *Combatant, now time.Time) {
	role, ok := op.Roles[c.ID]
	if !ok || c.State == StateRetreating || c.State == StateSeekingCover {
		return
	}
	switch {
	case role == RoleBaseOfFire && op.Phase != FlankAssault:
		if c.State != StateSuppressing {
			c.PreviousState = c.State
			c.State = StateSuppressing
		}
		c.SuppressionTarget = op.Objective
		c.SuppressionEndTime = now.Add(flankSuppressDuration)
		c.IsFullAuto = true
	case role == RoleFlanker && op.Phase == FlankManeuver:
		c.setDestination(op.FlankPoint)
		if c.State != StateAdvancing {
			c.PreviousState = c.State
			c.State = StateAdvancing
		}
	case role == RoleFlanker && op.Phase == FlankAssault:
		c.setDestination(op.Objective)
		if c.State != StateAdvancing && c.State != StateEngaging {
			c.PreviousState = c.State
			c.State = StateAdvancing
		}
	}
}
