package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitsAt(f Faction, firstID CombatantID, pts ...Vec3) []*Combatant {
	out := make([]*Combatant, len(pts))
	for i, p := range pts {
		out[i] = NewCombatant(firstID+CombatantID(i), f, p, DefaultSkillProfile())
	}
	return out
}

func tableOf(groups ...[]*Combatant) (map[CombatantID]*Combatant, []*Combatant) {
	all := make(map[CombatantID]*Combatant)
	var order []*Combatant
	for _, g := range groups {
		for _, c := range g {
			all[c.ID] = c
			order = append(order, c)
		}
	}
	return all, order
}

func TestCluster_TargetScorePenalisesPopularTargets(t *testing.T) {
	cm := NewClusterManager(nil)
	shooters := unitsAt(FactionUS, 1, V3(0, 0, 0), V3(1, 0, 0), V3(2, 0, 0))
	shooters[0].Target = 10
	shooters[1].Target = 10
	shooters[2].Target = 11
	shooters[2].markDead(simEpoch)
	cm.BeginTick(shooters)

	assert.Equal(t, 2, cm.Attackers(10))
	assert.Equal(t, 0, cm.Attackers(11), "dead shooters do not count")
	assert.Equal(t, 20.0, cm.TargetScore(10, 10))
	assert.Equal(t, 10.0, cm.TargetScore(10, 11))

	cm.Retarget(10, 11)
	assert.Equal(t, 1, cm.Attackers(10))
	assert.Equal(t, 1, cm.Attackers(11))
}

func TestCluster_JitterIsSmall(t *testing.T) {
	cm := NewClusterManager(NewRand(3))
	for i := 0; i < 100; i++ {
		s := cm.TargetScore(10, 1)
		assert.GreaterOrEqual(t, s, 10.0)
		assert.Less(t, s, 10.0+targetScoreJitter)
	}
}

func TestCluster_DenseDetection(t *testing.T) {
	knot := unitsAt(FactionUS, 1, V3(0, 0, 0), V3(1, 0, 0), V3(0, 0, 1), V3(-1, 0, 0), V3(0, 0, -1))
	enemy := unitsAt(FactionOPFOR, 10, V3(1, 0, 1))
	all, order := tableOf(knot, enemy)

	g := NewSpatialGrid(8)
	g.Rebuild(order)
	o := NewOctree(AABB{Min: V3(-50, -50, -50), Max: V3(50, 50, 50)})
	o.Rebuild(order)

	cm := NewClusterManager(NewRand(1))
	for _, idx := range []SpatialIndex{g, o} {
		assert.True(t, cm.IsDense(knot[0], idx, all), "%T", idx)
		off := cm.SpacingOffset(knot[1], idx, all)
		assert.InDelta(t, clusterSpacing, off.Len(), 1e-9)
		assert.Greater(t, off.X, 0.0, "pushed away from the knot")

		d := cm.StaggerDelay(knot[0], idx, all)
		assert.GreaterOrEqual(t, d, 0.0)
		assert.Less(t, d, clusterMaxStagger)
	}

	sparse := unitsAt(FactionUS, 20, V3(30, 0, 30), V3(31, 0, 30), V3(30, 0, 31))
	all2, order2 := tableOf(sparse)
	g.Rebuild(order2)
	assert.False(t, cm.IsDense(sparse[0], g, all2))
	assert.Equal(t, Vec3{}, cm.SpacingOffset(sparse[0], g, all2))
	assert.Equal(t, 0.0, cm.StaggerDelay(sparse[0], g, all2))
}

func TestTargeting_AcquireSpreadsFire(t *testing.T) {
	shooter := unitsAt(FactionUS, 1, V3(0, 0, 0))
	others := unitsAt(FactionUS, 2, V3(1, 0, 1), V3(-1, 0, 1))
	enemies := unitsAt(FactionOPFOR, 10, V3(20, 0, 0), V3(-30, 0, 0))
	others[0].Target = 10
	others[1].Target = 10
	all, order := tableOf(shooter, others, enemies)

	g := NewSpatialGrid(8)
	g.Rebuild(order)

	plain := NewTargeting(nil, nil)
	id, ok := plain.Acquire(shooter[0], g, all)
	require.True(t, ok)
	assert.Equal(t, CombatantID(10), id, "without a cluster manager the closest wins")

	cm := NewClusterManager(nil)
	cm.BeginTick(order)
	spread := NewTargeting(cm, nil)
	id, ok = spread.Acquire(shooter[0], g, all)
	require.True(t, ok)
	assert.Equal(t, CombatantID(11), id, "20 m with two attackers scores worse than 30 m with none")

	spread.Assign(shooter[0], all[id], simEpoch)
	assert.Equal(t, 1, cm.Attackers(11))
	spread.Release(shooter[0])
	assert.Equal(t, 0, cm.Attackers(11))
	assert.Equal(t, NoTarget, shooter[0].Target)
}

func TestTargeting_TiesGoToLowestID(t *testing.T) {
	shooter := unitsAt(FactionUS, 1, V3(0, 0, 0))
	enemies := unitsAt(FactionOPFOR, 10, V3(0, 0, 20), V3(20, 0, 0), V3(-20, 0, 0))
	all, order := tableOf(shooter, enemies)
	g := NewSpatialGrid(8)
	g.Rebuild(order)

	id, ok := NewTargeting(nil, nil).Acquire(shooter[0], g, all)
	require.True(t, ok)
	assert.Equal(t, CombatantID(10), id)
}

func TestTargeting_CanSee(t *testing.T) {
	a := NewCombatant(1, FactionUS, V3(0, 0, 0), DefaultSkillProfile())
	b := NewCombatant(2, FactionOPFOR, V3(59, 0, 0), DefaultSkillProfile())
	tg := NewTargeting(nil, nil)
	assert.True(t, tg.CanSee(a, b))

	b.Position = V3(61, 0, 0)
	assert.False(t, tg.CanSee(a, b))

	b.Position = V3(10, 0, 0)
	assert.False(t, NewTargeting(nil, blindSight{}).CanSee(a, b))

	b.markDead(simEpoch)
	assert.False(t, tg.CanSee(a, b))
	assert.False(t, tg.CanSee(a, nil))
}
