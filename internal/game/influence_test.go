package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type combatantSlice []*Combatant

func (s combatantSlice) CombatantList() []*Combatant { return s }

func newTestField(units combatantSlice, zones ...*CaptureZone) (*InfluenceField, *ManualClock) {
	clock := NewManualClock(simEpoch)
	src := InfluenceSources{Combatants: units}
	if len(zones) > 0 {
		src.Zones = NewZoneManager(clock, 0, zones...)
	}
	return NewInfluenceField(DefaultInfluenceConfig(), src, clock), clock
}

func TestInfluence_Throttle(t *testing.T) {
	enemy := NewCombatant(1, FactionOPFOR, V3(0, 0, 0), DefaultSkillProfile())
	f, clock := newTestField(combatantSlice{enemy})

	require.True(t, f.Update(0.1), "first update always recomputes")
	first := f.Snapshot()

	enemy.Position = V3(100, 0, 100)
	clock.Advance(499 * time.Millisecond)
	assert.False(t, f.Update(0.1))
	assert.Equal(t, first, f.Snapshot(), "grid must not change inside the interval")

	clock.Advance(time.Millisecond)
	assert.True(t, f.Update(0.1))
	assert.NotEqual(t, first, f.Snapshot())
	assert.Equal(t, 2, f.Recomputes())
}

func TestInfluence_ThreatAndSupport(t *testing.T) {
	enemy := NewCombatant(1, FactionOPFOR, V3(4, 0, 4), DefaultSkillProfile())
	friend := NewCombatant(2, FactionUS, V3(-100, 0, -100), DefaultSkillProfile())
	dead := NewCombatant(3, FactionOPFOR, V3(100, 0, 100), DefaultSkillProfile())
	dead.markDead(simEpoch)
	f, _ := newTestField(combatantSlice{enemy, friend, dead})
	f.Update(0)

	at, ok := f.QueryCellAt(V3(4, 0, 4))
	require.True(t, ok)
	assert.Equal(t, 1.0, at.Threat, "cell centred on an enemy has full threat")
	assert.Equal(t, 0.0, at.Support)

	near, _ := f.QueryCellAt(V3(28, 0, 4))
	assert.InDelta(t, 1-24*threatFalloff, near.Threat, 1e-9)

	sup, _ := f.QueryCellAt(V3(-100, 0, -100))
	assert.Greater(t, sup.Support, 0.8)
	assert.Equal(t, 0.0, sup.Threat)

	deadCell, _ := f.QueryCellAt(V3(100, 0, 100))
	assert.Equal(t, 0.0, deadCell.Threat, "dead units project nothing")
}

func TestInfluence_PlayerIsPriorityThreat(t *testing.T) {
	f, _ := newTestField(nil)
	f.SetPlayerPosition(V3(20, 0, 4))
	f.Update(0)

	// 24 m from the player, scaled up by the player weighting.
	cell, _ := f.QueryCellAt(V3(44, 0, 4))
	assert.InDelta(t, (1-24*threatFalloff)*playerThreatScale, cell.Threat, 1e-9)

	f.ClearPlayerPosition()
	f.recompute()
	cell, _ = f.QueryCellAt(V3(44, 0, 4))
	assert.Equal(t, 0.0, cell.Threat)
}

func TestInfluence_ZoneOpportunity(t *testing.T) {
	neutral := NewCaptureZone("N", V3(-100, 0, 4), 10)
	own := NewCaptureZone("O", V3(4, 0, 4), 10)
	own.SetOwner(FactionUS)
	enemy := NewCaptureZone("E", V3(100, 0, 4), 10)
	enemy.SetOwner(FactionOPFOR)
	contested := NewCaptureZone("C", V3(4, 0, 100), 10)
	contested.State = ZoneContested
	base := NewHomeBase("hq", V3(4, 0, -100), 10, FactionOPFOR)

	f, _ := newTestField(nil, neutral, own, enemy, contested, base)
	f.Update(0)

	for _, tc := range []struct {
		pos  Vec3
		want float64
	}{
		{neutral.Position, 0.8},
		{own.Position, 0.3},
		{enemy.Position, 1.0},
		{contested.Position, 1.0},
		{base.Position, 0.0},
	} {
		cell, ok := f.QueryCellAt(tc.pos)
		require.True(t, ok)
		assert.InDelta(t, tc.want, cell.Opportunity, 1e-9, "at %+v", tc.pos)
	}
}

func TestInfluence_CoverAndCombined(t *testing.T) {
	clock := NewManualClock(simEpoch)
	cover := StaticCover{{Min: V3(0, 0, 0), Max: V3(8, 2, 8)}}
	f := NewInfluenceField(DefaultInfluenceConfig(), InfluenceSources{Cover: cover}, clock)
	f.Update(0)

	cell, _ := f.QueryCellAt(V3(4, 0, 4))
	assert.Equal(t, 1.0, cell.Cover)
	assert.InDelta(t, (1.5+0.8)/influenceNorm, cell.Combined, 1e-9)

	empty, _ := f.QueryCellAt(V3(-200, 0, -200))
	assert.InDelta(t, 1.5/influenceNorm, empty.Combined, 1e-9)
}

func TestInfluence_OutsideWorld(t *testing.T) {
	f, _ := newTestField(nil)
	f.Update(0)
	_, ok := f.QueryCellAt(V3(300, 0, 0))
	assert.False(t, ok)
	_, ok = f.QueryCellAt(V3(0, 0, -256.5))
	assert.False(t, ok)
}

func TestInfluence_FindBestPositionNear(t *testing.T) {
	enemy := NewCombatant(1, FactionOPFOR, V3(44, 0, 4), DefaultSkillProfile())
	f, _ := newTestField(combatantSlice{enemy})
	f.Update(0)

	usPos, ok := f.FindBestPositionNear(V3(4, 0, 4), 60, FactionUS)
	require.True(t, ok)
	usCell, _ := f.QueryCellAt(usPos)
	assert.Equal(t, 0.0, usCell.Threat, "the perspective faction avoids threat")

	opPos, ok := f.FindBestPositionNear(V3(4, 0, 4), 60, FactionOPFOR)
	require.True(t, ok)
	opCell, _ := f.QueryCellAt(opPos)
	assert.Equal(t, 1.0, opCell.Threat, "the opposing faction seeks threat")

	_, ok = f.FindBestPositionNear(V3(0, 0, 0), -1, FactionUS)
	assert.False(t, ok)
}

func TestInfluence_FindBestZoneTarget(t *testing.T) {
	own := NewCaptureZone("own", V3(10, 0, 0), 10)
	own.SetOwner(FactionUS)
	far := NewCaptureZone("far", V3(150, 0, 0), 10)
	near := NewCaptureZone("near", V3(-30, 0, 0), 10)
	f, _ := newTestField(nil, own, far, near)
	f.Update(0)

	z, ok := f.FindBestZoneTarget(V3(0, 0, 0), FactionUS)
	require.True(t, ok)
	assert.Equal(t, "near", z.ID)

	// A contested zone outranks a closer neutral one, even if owned.
	own.State = ZoneContested
	f.recompute()
	z, _ = f.FindBestZoneTarget(V3(0, 0, 0), FactionUS)
	assert.Equal(t, "own", z.ID)
}

func TestInfluence_NoZones(t *testing.T) {
	f, _ := newTestField(nil)
	_, ok := f.FindBestZoneTarget(V3(0, 0, 0), FactionUS)
	assert.False(t, ok)
}
