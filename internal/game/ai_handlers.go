package game

import (
	"math"
)

func (ai *CombatantAI) handleDead(*aiTick) {}

func (ai *CombatantAI) handleIdle(t *aiTick) {
	if _, ok := ai.orderedMove(t); ok {
		ai.setState(t.c, StatePatrolling, "orders")
		ai.handlePatrol(t)
		return
	}
	if ai.acquire(t) {
		return
	}
	if _, ok := ai.commandDestination(t); ok || t.c.HasDestination {
		ai.setState(t.c, StatePatrolling, "orders")
	}
}

// handlePatrol looks for contacts, then walks: squad orders first, then
// cohesion with the leader, then the best zone objective, then a wander point.
// Units moving under FOLLOW_ME or RETREAT ignore contacts until they arrive.
func (ai *CombatantAI) handlePatrol(t *aiTick) {
	c := t.c
	if dest, ok := ai.orderedMove(t); ok {
		if c.Position.Dist2D(dest) > followDistance {
			speed := patrolSpeed
			if t.squad.CurrentCommand == CommandRetreat {
				speed = sprintSpeed
			}
			ai.moveTo(c, dest, speed)
		}
		return
	}
	if ai.acquire(t) {
		return
	}
	if ai.tryZoneDefense(t) {
		return
	}
	if dest, ok := ai.commandDestination(t); ok {
		if c.Position.Dist2D(dest) > followDistance {
			ai.moveTo(c, dest, patrolSpeed)
		}
		return
	}
	if leader, ok := ai.cohesionLeader(t); ok {
		ai.moveTo(c, leader.Position.Add(ai.spacing(t)), patrolSpeed)
		return
	}
	if !c.HasDestination || c.Position.Dist2D(c.Destination) <= arriveRadius {
		ai.pickPatrolDestination(t)
	}
	ai.moveTo(c, c.Destination, patrolSpeed)
}

// acquire looks for a visible enemy and, on contact, starts the reaction timer.
func (ai *CombatantAI) acquire(t *aiTick) bool {
	c := t.c
	id, ok := ai.targeting.Acquire(c, t.index, t.all)
	if !ok {
		return false
	}
	ai.targeting.Assign(c, t.all[id], t.now)
	c.reactionTimer = c.Skill.ReactionDelay
	if ai.cluster != nil {
		c.reactionTimer += ai.cluster.StaggerDelay(c, t.index, t.all)
	}
	ai.callout(c, CalloutContact)
	ai.setState(c, StateAlert, "contact")
	return true
}

// tryZoneDefense sends an idle unit to hold a friendly zone that is under pressure.
func (ai *CombatantAI) tryZoneDefense(t *aiTick) bool {
	c := t.c
	if ai.zones == nil || c.HasDestination {
		return false
	}
	for _, z := range ai.zones.Zones() {
		if z.IsHomeBase || !z.OwnedBy(c.Faction) || c.Position.Dist2D(z.Position) > 2*z.Radius {
			continue
		}
		threatened := z.State == ZoneContested
		if !threatened && ai.influence != nil {
			if cell, ok := ai.influence.QueryCellAt(z.Position); ok && ai.influence.Config().Perspective == c.Faction {
				threatened = cell.Threat >= 0.5
			}
		}
		if !threatened {
			continue
		}
		c.DefensePos = z.Position
		c.HasDefensePos = true
		c.DefendingZoneID = z.ID
		ai.setState(c, StateDefending, "defend_zone")
		return true
	}
	return false
}

func (ai *CombatantAI) cohesionLeader(t *aiTick) (*Combatant, bool) {
	if t.squad == nil || t.squad.LeaderID == t.c.ID {
		return nil, false
	}
	leader, ok := t.squad.Leader(t.all)
	if !ok || t.c.Position.Dist2D(leader.Position) <= cohesionRadius {
		return nil, false
	}
	return leader, true
}

func (ai *CombatantAI) spacing(t *aiTick) Vec3 {
	if ai.cluster == nil {
		return Vec3{}
	}
	return ai.cluster.SpacingOffset(t.c, t.index, t.all)
}

func (ai *CombatantAI) pickPatrolDestination(t *aiTick) {
	c := t.c
	var dest Vec3
	if z, ok := ai.zoneObjective(c); ok {
		r := z.Radius * 0.5
		dest = z.Position.Add(Vec3{X: (ai.rng.Float64()*2 - 1) * r, Z: (ai.rng.Float64()*2 - 1) * r})
	} else {
		angle := ai.rng.Float64() * 2 * math.Pi
		dist := wanderMin + ai.rng.Float64()*(wanderMax-wanderMin)
		dest = c.Position.Add(Vec3{X: math.Cos(angle) * dist, Z: math.Sin(angle) * dist})
	}
	c.setDestination(dest.Add(ai.spacing(t)))
}

// zoneObjective asks the influence field for a zone to take, falling back to
// the nearest zone c's faction does not hold.
func (ai *CombatantAI) zoneObjective(c *Combatant) (*CaptureZone, bool) {
	if ai.influence != nil {
		if z, ok := ai.influence.FindBestZoneTarget(c.Position, c.Faction); ok {
			return z, true
		}
	}
	if ai.zones == nil {
		return nil, false
	}
	var best *CaptureZone
	bestD := math.Inf(1)
	for _, z := range ai.zones.Zones() {
		if z.IsHomeBase || (z.OwnedBy(c.Faction) && z.State != ZoneContested) {
			continue
		}
		if d := c.Position.Dist2D(z.Position); d < bestD {
			best, bestD = z, d
		}
	}
	return best, best != nil
}

func (ai *CombatantAI) handleAlert(t *aiTick) {
	c := t.c
	target, ok := c.resolveTarget(t.all)
	if !ok {
		ai.targeting.Release(c)
		ai.setState(c, StatePatrolling, "target_lost")
		return
	}
	c.Heading = HeadingTo(c.Position, target.Position)
	c.reactionTimer -= t.dt
	if c.reactionTimer <= 0 {
		c.burstShots = 0
		c.burstTimer = 0
		ai.setState(c, StateEngaging, "reacted")
	}
}

// engageTarget resolves c's target, re-acquiring through the targeting
// strategy when the handle has gone stale.
func (ai *CombatantAI) engageTarget(t *aiTick) (*Combatant, bool) {
	c := t.c
	if target, ok := c.resolveTarget(t.all); ok {
		return target, true
	}
	id, ok := ai.targeting.Acquire(c, t.index, t.all)
	if !ok {
		return nil, false
	}
	target := t.all[id]
	ai.targeting.Assign(c, target, t.now)
	return target, true
}

func (ai *CombatantAI) handleEngage(t *aiTick) {
	c := t.c
	target, ok := ai.engageTarget(t)
	if !ok {
		ai.targeting.Release(c)
		ai.setState(c, StatePatrolling, "no_target")
		return
	}
	if c.SuppressionLevel > c.Skill.SuppressionResistance && ai.cover.Available() && !c.InCover {
		ai.setState(c, StateSeekingCover, "suppressed")
		return
	}
	if c.HealthFraction() < retreatHealthFraction && !c.InCover {
		ai.setState(c, StateRetreating, "wounded")
		return
	}
	if c.Position.Dist(target.Position) > engageRange {
		ai.setState(c, StateAdvancing, "out_of_range")
		return
	}
	if !ai.targeting.CanSee(c, target) {
		if t.now.Sub(c.lastSeenTarget) > losMemory {
			c.SuppressionTarget = c.LastKnownTargetPos
			c.SuppressionEndTime = t.now.Add(suppressionDuration)
			c.IsFullAuto = true
			ai.callout(c, CalloutSuppressing)
			ai.setState(c, StateSuppressing, "lost_sight")
		}
		return
	}
	c.LastKnownTargetPos = target.Position
	c.lastSeenTarget = t.now

	ai.maybeFlank(t, target)
	ai.fireBurst(c, target, t.dt)
}

// fireBurst paces single shots inside a burst and pauses between bursts.
func (ai *CombatantAI) fireBurst(c *Combatant, target *Combatant, dt float64) {
	c.Heading = HeadingTo(c.Position, target.Position)
	if c.burstTimer > 0 {
		c.burstTimer -= dt
		if c.burstTimer > 0 {
			return
		}
	}
	c.Intent.Fire = true
	c.Intent.FireTarget = target.ID
	c.Intent.AimAt = target.Position
	c.Intent.Shots = 1
	c.burstShots++
	if c.burstShots >= max(1, c.Skill.BurstLength) {
		c.burstShots = 0
		c.burstTimer = c.Skill.BurstPause
	} else {
		c.burstTimer = burstShotInterval
	}
}

// maybeFlank lets an AI squad leader in a firefight open a flanking operation.
func (ai *CombatantAI) maybeFlank(t *aiTick, target *Combatant) {
	sq := t.squad
	if ai.flanking == nil || sq == nil || sq.IsPlayerControlled || sq.LeaderID != t.c.ID {
		return
	}
	if ai.flanking.TryInitiate(sq, t.all, target.Position, t.now) {
		ai.record(t.c, "flank", "initiated", sq.ID, float64(len(sq.Members)))
		ai.callout(t.c, CalloutFlanking)
	}
}

func (ai *CombatantAI) handleSuppress(t *aiTick) {
	c := t.c
	if c.SuppressionEndTime.IsZero() {
		c.SuppressionEndTime = t.now.Add(suppressionDuration)
	}
	if !t.now.Before(c.SuppressionEndTime) {
		c.clearSuppressionOrder()
		target, ok := c.resolveTarget(t.all)
		switch {
		case !ok:
			ai.targeting.Release(c)
			ai.setState(c, StatePatrolling, "suppression_over")
		case ai.targeting.CanSee(c, target):
			ai.setState(c, StateEngaging, "suppression_over")
		default:
			ai.setState(c, StateAdvancing, "regain_contact")
		}
		return
	}
	c.Heading = HeadingTo(c.Position, c.SuppressionTarget)
	c.Intent.Fire = true
	c.Intent.FireTarget = NoTarget
	c.Intent.AimAt = c.SuppressionTarget
	c.Intent.FullAuto = true
	c.Intent.Shots = max(1, int(t.dt/burstShotInterval))
}

func (ai *CombatantAI) handleAdvance(t *aiTick) {
	c := t.c
	target, hasTarget := c.resolveTarget(t.all)

	if ai.flanking != nil {
		if dest, ok := ai.flanking.FlankDestination(c); ok {
			ai.moveTo(c, dest, advanceSpeed)
			if hasTarget && ai.targeting.CanSee(c, target) {
				ai.fireBurst(c, target, t.dt)
			}
			return
		}
	}

	if !hasTarget {
		if c.HasDestination && c.Position.Dist2D(c.Destination) > arriveRadius {
			ai.moveTo(c, c.Destination, advanceSpeed)
			return
		}
		ai.targeting.Release(c)
		c.clearDestination()
		ai.setState(c, StatePatrolling, "target_gone")
		return
	}
	if c.Position.Dist(target.Position) <= engageRange && ai.targeting.CanSee(c, target) {
		c.clearDestination()
		ai.setState(c, StateEngaging, "in_range")
		return
	}
	dest := c.LastKnownTargetPos
	if ai.influence != nil {
		if p, ok := ai.influence.FindBestPositionNear(target.Position, advanceSearchRadius, c.Faction); ok {
			dest = p
		}
	}
	ai.moveTo(c, dest, advanceSpeed)
}

func (ai *CombatantAI) handleRetreat(t *aiTick) {
	c := t.c
	if c.stateTimer == 0 {
		c.setDestination(ai.retreatDestination(t))
	}
	c.stateTimer += t.dt
	ai.moveTo(c, c.Destination, sprintSpeed)

	arrived := c.Position.Dist2D(c.Destination) <= arriveRadius
	if c.stateTimer < retreatDuration && !arrived {
		return
	}
	c.clearDestination()
	if ai.cover.Available() {
		ai.setState(c, StateSeekingCover, "retreat_done")
		return
	}
	ai.targeting.Release(c)
	ai.setState(c, StatePatrolling, "retreat_done")
}

// retreatDestination prefers the faction's home base, then the safest nearby
// influence cell, then simply away from the threat.
func (ai *CombatantAI) retreatDestination(t *aiTick) Vec3 {
	c := t.c
	if base, ok := HomeBaseFor(ai.zones, c.Faction); ok {
		return base.Position
	}
	threat := threatPosition(t)
	if ai.influence != nil {
		if p, ok := ai.influence.FindBestPositionNear(c.Position, 2*wanderMax, c.Faction); ok && p.Dist2D(threat) > c.Position.Dist2D(threat) {
			return p
		}
	}
	away := c.Position.Sub(threat).Flat().Normalize()
	if away == (Vec3{}) {
		away = Vec3{X: 1}
	}
	return c.Position.Add(away.Scale(wanderMax))
}

func (ai *CombatantAI) handleSeekCover(t *aiTick) {
	c := t.c
	_, hasTarget := c.resolveTarget(t.all)
	if !ai.cover.Available() {
		ai.leaveCoverSearch(t, hasTarget, "no_cover_source")
		return
	}
	if c.stateTimer == 0 {
		p, ok := ai.cover.FindCover(c.Position, threatPosition(t))
		if !ok {
			ai.leaveCoverSearch(t, hasTarget, "no_cover_nearby")
			return
		}
		c.CoverPosition = p
	}
	c.stateTimer += t.dt
	ai.moveTo(c, c.CoverPosition, sprintSpeed)

	arrived := c.Position.Dist2D(c.CoverPosition) <= arriveRadius
	if !arrived && c.stateTimer < coverSeekTimeout {
		return
	}
	c.InCover = arrived
	ai.leaveCoverSearch(t, hasTarget, "in_cover")
}

func (ai *CombatantAI) leaveCoverSearch(t *aiTick, hasTarget bool, reason string) {
	c := t.c
	if hasTarget {
		ai.setState(c, StateEngaging, reason)
		return
	}
	c.DefensePos = c.Position
	c.HasDefensePos = true
	c.DefendingZoneID = ""
	ai.setState(c, StateDefending, reason)
}

// handleDefend holds the defence point and fires at anything that shows up.
func (ai *CombatantAI) handleDefend(t *aiTick) {
	c := t.c
	if c.DefendingZoneID != "" {
		z, ok := ai.zoneByID(c.DefendingZoneID)
		if !ok || !z.OwnedBy(c.Faction) {
			c.clearDefense()
			ai.setState(c, StatePatrolling, "zone_lost")
			return
		}
	}
	if !c.HasDefensePos {
		c.DefensePos = c.Position
		c.HasDefensePos = true
	}

	target, ok := c.resolveTarget(t.all)
	if !ok || !ai.targeting.CanSee(c, target) {
		target, ok = nil, false
		if id, found := ai.targeting.Acquire(c, t.index, t.all); found {
			target, ok = t.all[id], true
			ai.targeting.Assign(c, target, t.now)
		}
	}
	if ok {
		c.LastKnownTargetPos = target.Position
		c.lastSeenTarget = t.now
		ai.fireBurst(c, target, t.dt)
	}

	if c.Position.Dist2D(c.DefensePos) > defenseLeash {
		ai.moveTo(c, c.DefensePos, patrolSpeed)
	}
}

func (ai *CombatantAI) zoneByID(id string) (*CaptureZone, bool) {
	if ai.zones == nil {
		return nil, false
	}
	return ai.zones.ZoneByID(id)
}
