package game

import "time"

// commandInterruptible are the states FOLLOW_ME and RETREAT pull a unit out of.
func commandInterruptible(s CombatantState) bool {
	switch s {
	case StateEngaging, StateSuppressing, StateAlert, StateSeekingCover, StateDefending:
		return true
	}
	return false
}

// commandApplies reports whether c takes orders from sq this tick.
func commandApplies(c *Combatant, sq *Squad) bool {
	return sq != nil &&
		sq.IsPlayerControlled &&
		sq.CurrentCommand != CommandNone &&
		sq.Faction == c.Faction
}

// applySquadCommand lets a player-issued squad command override the unit's
// own state before its handler runs.
func (ai *CombatantAI) applySquadCommand(t *aiTick) {
	c, sq := t.c, t.squad
	if !commandApplies(c, sq) {
		return
	}
	switch sq.CurrentCommand {
	case CommandFollowMe:
		if commandInterruptible(c.State) {
			ai.releaseToPatrol(c, "follow_me")
		}
	case CommandRetreat:
		if commandInterruptible(c.State) {
			ai.releaseToPatrol(c, "retreat_order")
			c.SuppressionLevel = 0
			c.NearMissCount = 0
			c.LastSuppressedAt = time.Time{}
		}
	case CommandHoldPosition:
		if c.State == StatePatrolling || c.State == StateAdvancing {
			c.DefensePos = ai.commandAnchor(t)
			c.HasDefensePos = true
			c.DefendingZoneID = ""
			c.clearDestination()
			ai.setState(c, StateDefending, "hold_position")
		}
	case CommandPatrolHere:
		if c.State == StateDefending {
			c.clearDefense()
			ai.setState(c, StatePatrolling, "patrol_here")
		}
	case CommandFreeRoam:
		if c.State == StateDefending && c.DefendingZoneID == "" {
			c.clearDefense()
			ai.setState(c, StatePatrolling, "free_roam")
		}
	}
}

// releaseToPatrol drops every combat commitment and returns c to patrol logic.
func (ai *CombatantAI) releaseToPatrol(c *Combatant, reason string) {
	ai.targeting.Release(c)
	c.clearSuppressionOrder()
	c.InCover = false
	c.clearDefense()
	c.clearDestination()
	ai.setState(c, StatePatrolling, reason)
}

// commandAnchor is where a positional command points: the command position,
// else the squad leader, else the unit itself.
func (ai *CombatantAI) commandAnchor(t *aiTick) Vec3 {
	sq := t.squad
	if sq.HasCommandPosition {
		return sq.CommandPosition
	}
	if leader, ok := sq.Leader(t.all); ok {
		return leader.Position
	}
	return t.c.Position
}

// commandDestination is where a commanded unit in patrol should head.
func (ai *CombatantAI) commandDestination(t *aiTick) (Vec3, bool) {
	c, sq := t.c, t.squad
	if !commandApplies(c, sq) {
		return Vec3{}, false
	}
	switch sq.CurrentCommand {
	case CommandFollowMe:
		return t.playerPos, true
	case CommandPatrolHere, CommandRetreat:
		if sq.HasCommandPosition {
			return sq.CommandPosition, true
		}
	}
	return Vec3{}, false
}

// orderedMove is where FOLLOW_ME or RETREAT sends c. A retreat without a
// command position falls back to the home base, then to the command anchor.
func (ai *CombatantAI) orderedMove(t *aiTick) (Vec3, bool) {
	c, sq := t.c, t.squad
	if !commandApplies(c, sq) {
		return Vec3{}, false
	}
	switch sq.CurrentCommand {
	case CommandFollowMe:
		return t.playerPos, true
	case CommandRetreat:
		if sq.HasCommandPosition {
			return sq.CommandPosition, true
		}
		if base, ok := HomeBaseFor(ai.zones, c.Faction); ok {
			return base.Position, true
		}
		return ai.commandAnchor(t), true
	}
	return Vec3{}, false
}
