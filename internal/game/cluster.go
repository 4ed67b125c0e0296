package game

// A unit with more than clusterDenseCount friendlies inside clusterRadius is in a dense cluster.
const (
	clusterRadius     = 4.0
	clusterDenseCount = 3
	clusterSpacing    = 3.0
	clusterMaxStagger = 0.3
	attackerPenalty   = 0.5
	targetScoreJitter = 0.01

	// clusterNeighbourCap bounds the k-nearest query; hostiles and self are filtered afterwards.
	clusterNeighbourCap = 16
)

// nearestIndex is implemented by indexes that answer k-nearest queries (Octree).
type nearestIndex interface {
	QueryNearestK(pos Vec3, k int, maxDist float64) []CombatantID
}

// ClusterManager spreads fire across targets and breaks up dense knots of
// friendlies. One instance is shared by every CombatantAI in a match.
type ClusterManager struct {
	rng       Rand
	attackers map[CombatantID]int
}

// NewClusterManager creates a manager drawing jitter from rng.
func NewClusterManager(rng Rand) *ClusterManager {
	return &ClusterManager{rng: rng, attackers: make(map[CombatantID]int)}
}

// BeginTick recounts how many live combatants are targeting each enemy.
func (cm *ClusterManager) BeginTick(all []*Combatant) {
	clear(cm.attackers)
	for _, c := range all {
		if c.Alive() && c.Target != NoTarget {
			cm.attackers[c.Target]++
		}
	}
}

// Attackers returns the current attacker count on id.
func (cm *ClusterManager) Attackers(id CombatantID) int {
	return cm.attackers[id]
}

// Retarget moves one attacker from old to next so later decisions this tick see it.
func (cm *ClusterManager) Retarget(old, next CombatantID) {
	if old == next {
		return
	}
	if old != NoTarget && cm.attackers[old] > 0 {
		cm.attackers[old]--
	}
	if next != NoTarget {
		cm.attackers[next]++
	}
}

// TargetScore rates a candidate target; lower is better. Targets already drawing
// fire are penalised so a squad spreads its attention.
func (cm *ClusterManager) TargetScore(distance float64, target CombatantID) float64 {
	score := distance * (1 + attackerPenalty*float64(cm.attackers[target]))
	if cm.rng != nil {
		score += cm.rng.Float64() * targetScoreJitter
	}
	return score
}

func (cm *ClusterManager) neighbours(c *Combatant, index SpatialIndex, all map[CombatantID]*Combatant) []*Combatant {
	if index == nil {
		return nil
	}
	var ids []CombatantID
	if ni, ok := index.(nearestIndex); ok {
		ids = ni.QueryNearestK(c.Position, clusterNeighbourCap, clusterRadius)
	} else {
		ids = index.QueryRadius(c.Position, clusterRadius)
	}
	var out []*Combatant
	for _, id := range ids {
		if id == c.ID {
			continue
		}
		o, ok := all[id]
		if !ok || !o.Alive() || Hostile(o.Faction, c.Faction) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// IsDense reports whether more than three friendlies stand within 4 m of c.
func (cm *ClusterManager) IsDense(c *Combatant, index SpatialIndex, all map[CombatantID]*Combatant) bool {
	return len(cm.neighbours(c, index, all)) > clusterDenseCount
}

// SpacingOffset pushes a destination away from nearby friendlies when c is in a dense cluster.
func (cm *ClusterManager) SpacingOffset(c *Combatant, index SpatialIndex, all map[CombatantID]*Combatant) Vec3 {
	near := cm.neighbours(c, index, all)
	if len(near) <= clusterDenseCount {
		return Vec3{}
	}
	var push Vec3
	for _, o := range near {
		away := c.Position.Sub(o.Position).Flat()
		if away.LenSq() < 1e-6 && cm.rng != nil {
			away = Vec3{X: cm.rng.Float64() - 0.5, Z: cm.rng.Float64() - 0.5}
		}
		push = push.Add(away.Normalize())
	}
	return push.Normalize().Scale(clusterSpacing)
}

// StaggerDelay returns extra reaction time (0-0.3 s) for a unit in a dense
// cluster so the whole knot does not react on the same tick.
func (cm *ClusterManager) StaggerDelay(c *Combatant, index SpatialIndex, all map[CombatantID]*Combatant) float64 {
	if cm.rng == nil || !cm.IsDense(c, index, all) {
		return 0
	}
	return cm.rng.Float64() * clusterMaxStagger
}
