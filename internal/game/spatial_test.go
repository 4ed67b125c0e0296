package game

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortedIDs(ids []CombatantID) []CombatantID {
	out := append([]CombatantID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestSpatialGrid_QueryRadiusBoundary(t *testing.T) {
	g := NewSpatialGrid(8)
	g.UpdatePosition(1, V3(10, 0, 0))
	g.UpdatePosition(2, V3(10.01, 0, 0))
	g.UpdatePosition(3, V3(-3, 0, -4))

	got := sortedIDs(g.QueryRadius(V3(0, 0, 0), 10))
	assert.Equal(t, []CombatantID{1, 3}, got, "exactly-on-radius must be included, just outside excluded")
	assert.Empty(t, g.QueryRadius(V3(0, 0, 0), -1))
}

func TestSpatialGrid_ExtremeQueriesTerminate(t *testing.T) {
	g := NewSpatialGrid(8)
	g.UpdatePosition(1, V3(0, 0, 0))
	g.UpdatePosition(2, V3(1e12, 0, 0))
	g.UpdatePosition(3, V3(-1e12, 0, 1e12))

	assert.Equal(t, []CombatantID{1, 2, 3}, sortedIDs(g.QueryRadius(V3(0, 0, 0), math.Inf(1))))
	assert.Equal(t, []CombatantID{1, 2, 3}, sortedIDs(g.QueryRadius(V3(0, 0, 0), math.MaxFloat64)))
	assert.Equal(t, []CombatantID{1}, g.QueryRadius(V3(0, 0, 0), 1e6))
	assert.Equal(t, []CombatantID{2}, g.QueryRadius(V3(1e12, 0, 0), 1))
	assert.Empty(t, g.QueryRadius(V3(0, 0, 0), math.NaN()))
	assert.Empty(t, g.QueryRadius(V3(math.Inf(1), 0, 0), 5))

	g.Remove(2)
	assert.Empty(t, g.QueryRadius(V3(1e12, 0, 0), 1))
	assert.Equal(t, 2, g.Len())
}

func TestSpatialGrid_MoveAndRemove(t *testing.T) {
	g := NewSpatialGrid(10)
	g.UpdatePosition(7, V3(1, 0, 1))
	require.Equal(t, []CombatantID{7}, g.QueryCell(V3(5, 0, 5)))

	// Same cell: position refreshed, membership unchanged.
	g.UpdatePosition(7, V3(2, 0, 2))
	p, ok := g.Position(7)
	require.True(t, ok)
	assert.Equal(t, V3(2, 0, 2), p)
	assert.Equal(t, 1, g.Len())

	// New cell.
	g.UpdatePosition(7, V3(25, 0, 25))
	assert.Empty(t, g.QueryCell(V3(5, 0, 5)))
	assert.Equal(t, []CombatantID{7}, g.QueryCell(V3(21, 0, 21)))

	g.Remove(7)
	g.Remove(99)
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.QueryRadius(V3(25, 0, 25), 50))
}

func TestSpatialGrid_NegativeCoordinates(t *testing.T) {
	g := NewSpatialGrid(8)
	g.UpdatePosition(1, V3(-0.5, 0, -0.5))
	g.UpdatePosition(2, V3(0.5, 0, 0.5))
	assert.Equal(t, []CombatantID{1}, g.QueryCell(V3(-4, 0, -4)))
	assert.Equal(t, []CombatantID{1, 2}, sortedIDs(g.QueryRadius(V3(0, 0, 0), 1)))
}

func TestSpatialGrid_RebuildSkipsDead(t *testing.T) {
	alive := NewCombatant(1, FactionUS, V3(0, 0, 0), DefaultSkillProfile())
	dead := NewCombatant(2, FactionUS, V3(1, 0, 0), DefaultSkillProfile())
	dead.markDead(simEpoch)

	g := NewSpatialGrid(8)
	g.Rebuild([]*Combatant{alive, dead, nil})
	assert.Equal(t, []CombatantID{1}, g.QueryRadius(V3(0, 0, 0), 5))
}

// Grid and octree must agree on every radius query.
func TestOctree_MatchesGrid(t *testing.T) {
	rng := NewRand(7)
	g := NewSpatialGrid(8)
	o := NewOctree(AABB{Min: V3(-256, -256, -256), Max: V3(256, 256, 256)})
	for i := 1; i <= 300; i++ {
		p := V3(rng.Float64()*400-200, rng.Float64()*4, rng.Float64()*400-200)
		g.UpdatePosition(CombatantID(i), p)
		o.Insert(CombatantID(i), p)
	}
	require.Equal(t, 300, o.Len())

	for i := 0; i < 25; i++ {
		center := V3(rng.Float64()*400-200, 0, rng.Float64()*400-200)
		radius := 5 + rng.Float64()*60
		assert.Equal(t, sortedIDs(g.QueryRadius(center, radius)), sortedIDs(o.QueryRadius(center, radius)),
			"radius query %d at %+v r=%.1f", i, center, radius)
	}
}

func TestOctree_UpdateAndRemove(t *testing.T) {
	o := NewOctree(AABB{Min: V3(-100, -100, -100), Max: V3(100, 100, 100)})
	for i := 1; i <= 50; i++ {
		o.Insert(CombatantID(i), V3(float64(i), 0, 0))
	}
	require.Equal(t, 50, o.Len())

	o.Update(10, V3(-80, 0, -80))
	assert.Equal(t, []CombatantID{10}, o.QueryRadius(V3(-80, 0, -80), 1))
	assert.NotContains(t, o.QueryRadius(V3(10, 0, 0), 0.5), CombatantID(10))

	// Re-inserting an existing id moves it rather than duplicating it.
	o.Insert(10, V3(-70, 0, -70))
	assert.Equal(t, 50, o.Len())
	assert.Equal(t, []CombatantID{10}, o.QueryRadius(V3(-70, 0, -70), 1))

	for i := 1; i <= 50; i++ {
		o.Remove(CombatantID(i))
	}
	assert.Equal(t, 0, o.Len())
	assert.Empty(t, o.QueryRadius(V3(0, 0, 0), 200))
}

func TestOctree_OutOfBoundsKeepsTruePosition(t *testing.T) {
	o := NewOctree(AABB{Min: V3(-256, -256, -256), Max: V3(256, 256, 256)})
	g := NewSpatialGrid(8)
	for id, p := range map[CombatantID]Vec3{7: V3(0, 400, 0), 8: V3(500, 0, 0), 9: V3(250, 0, 0)} {
		o.Insert(id, p)
		g.UpdatePosition(id, p)
	}
	require.Equal(t, 3, o.Len())

	for _, q := range []struct {
		center Vec3
		radius float64
	}{
		{V3(0, 256, 0), 1},
		{V3(0, 399, 0), 2},
		{V3(256, 0, 0), 10},
		{V3(495, 0, 0), 6},
		{V3(0, 0, 0), 1000},
	} {
		assert.Equal(t, sortedIDs(g.QueryRadius(q.center, q.radius)), sortedIDs(o.QueryRadius(q.center, q.radius)),
			"radius %.0f around %+v", q.radius, q.center)
	}
	assert.Empty(t, o.QueryRadius(V3(0, 256, 0), 1))

	assert.Equal(t, []CombatantID{8, 9}, o.QueryNearestK(V3(600, 0, 0), 2, 0))
	hits := o.QueryRay(V3(0, 400, -50), V3(0, 0, 1), 100)
	require.Len(t, hits, 1)
	assert.Equal(t, CombatantID(7), hits[0].ID)

	// Moving back inside and out again keeps queries exact.
	o.Update(7, V3(0, 10, 0))
	assert.Equal(t, []CombatantID{7}, o.QueryRadius(V3(0, 10, 0), 0.5))
	o.Update(8, V3(600, 0, 0))
	assert.Empty(t, o.QueryRadius(V3(500, 0, 0), 1))
	assert.Equal(t, []CombatantID{8}, o.QueryRadius(V3(600, 0, 0), 1))
	o.Remove(8)
	assert.Empty(t, o.QueryRadius(V3(600, 0, 0), 1))
	assert.Equal(t, 2, o.Len())
}

func TestOctree_QueryFrustum(t *testing.T) {
	o := NewOctree(AABB{Min: V3(-100, -100, -100), Max: V3(100, 100, 100)})
	o.Insert(1, V3(5, 0, 5))
	o.Insert(2, V3(-5, 0, 5))
	o.Insert(3, V3(50, 0, 50))

	f := BoxFrustum(AABB{Min: V3(0, -1, 0), Max: V3(10, 1, 10)})
	assert.Equal(t, []CombatantID{1}, o.QueryFrustum(f))
}

func TestOctree_QueryRay(t *testing.T) {
	o := NewOctree(AABB{Min: V3(-100, -100, -100), Max: V3(100, 100, 100)})
	o.Insert(1, V3(10, 0, 0))
	o.Insert(2, V3(20, 0, 0))
	o.Insert(3, V3(0, 0, 10))

	hits := o.QueryRay(V3(0, 0, 0), V3(2, 0, 0), 100)
	require.Len(t, hits, 2)
	assert.Equal(t, CombatantID(1), hits[0].ID)
	assert.InDelta(t, 9.0, hits[0].Distance, 1e-9)
	assert.Equal(t, CombatantID(2), hits[1].ID)

	short := o.QueryRay(V3(0, 0, 0), V3(1, 0, 0), 15)
	require.Len(t, short, 1)
	assert.Equal(t, CombatantID(1), short[0].ID)

	assert.Empty(t, o.QueryRay(V3(0, 0, 0), Vec3{}, 100))
}

func TestOctree_QueryNearestK(t *testing.T) {
	o := NewOctree(AABB{Min: V3(-100, -100, -100), Max: V3(100, 100, 100)})
	o.Insert(3, V3(5, 0, 0))
	o.Insert(1, V3(1, 0, 0))
	o.Insert(2, V3(-2, 0, 0))

	assert.Equal(t, []CombatantID{1, 2}, o.QueryNearestK(V3(0, 0, 0), 2, 0))
	assert.Equal(t, []CombatantID{1}, o.QueryNearestK(V3(0, 0, 0), 5, 1.5))
	assert.Empty(t, o.QueryNearestK(V3(0, 0, 0), 0, 0))
}
