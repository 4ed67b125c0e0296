package game

import (
	"math"
	"time"
)

// Targeting picks and validates enemies for a combatant.
type Targeting struct {
	cluster *ClusterManager
	sight   LineOfSight
}

// NewTargeting builds the targeting strategy. Both collaborators are optional.
func NewTargeting(cluster *ClusterManager, sight LineOfSight) *Targeting {
	return &Targeting{cluster: cluster, sight: sight}
}

// CanSee reports whether t is inside c's visual range and line of sight.
func (tg *Targeting) CanSee(c, t *Combatant) bool {
	if t == nil || !t.Alive() {
		return false
	}
	if c.Position.Dist(t.Position) > c.Skill.VisualRange {
		return false
	}
	if tg.sight != nil && !tg.sight.Visible(c.Position, t.Position) {
		return false
	}
	return true
}

// Acquire returns the best visible enemy around c, or false when none is in sight.
// Candidates come from the spatial index; distance is weighted by how many
// friendlies already shoot at each candidate.
func (tg *Targeting) Acquire(c *Combatant, index SpatialIndex, all map[CombatantID]*Combatant) (CombatantID, bool) {
	if index == nil {
		return NoTarget, false
	}
	best := NoTarget
	bestScore := math.Inf(1)
	for _, id := range index.QueryRadius(c.Position, c.Skill.VisualRange) {
		t, ok := all[id]
		if !ok || id == c.ID || !Hostile(c.Faction, t.Faction) || !tg.CanSee(c, t) {
			continue
		}
		d := c.Position.Dist(t.Position)
		score := d
		if tg.cluster != nil {
			score = tg.cluster.TargetScore(d, id)
		}
		if score < bestScore || (score == bestScore && id < best) {
			best, bestScore = id, score
		}
	}
	return best, best != NoTarget
}

// Assign points c at target, keeping the cluster manager's counts current.
func (tg *Targeting) Assign(c *Combatant, target *Combatant, now time.Time) {
	if tg.cluster != nil {
		tg.cluster.Retarget(c.Target, target.ID)
	}
	c.Target = target.ID
	c.LastKnownTargetPos = target.Position
	c.lastSeenTarget = now
}

// Release drops c's target.
func (tg *Targeting) Release(c *Combatant) {
	if tg.cluster != nil {
		tg.cluster.Retarget(c.Target, NoTarget)
	}
	c.ClearTarget()
}
