package game

import (
	"testing"
)

func TestWallSight_TallVolumesBlock(t *testing.T) {
	walls := NewWallSight(StaticCover{
		{Min: V3(10, 0, -5), Max: V3(11, 3, 5)},   // wall
		{Min: V3(-11, 0, -5), Max: V3(-10, 1, 5)}, // sandbags
	})
	if len(walls) != 1 {
		t.Fatalf("expected only the tall volume to be kept, got %d", len(walls))
	}

	if walls.Visible(V3(0, 0, 0), V3(20, 0, 0)) {
		t.Fatal("expected the wall to block sight")
	}
	if !walls.Visible(V3(0, 0, 0), V3(-20, 0, 0)) {
		t.Fatal("expected low cover not to block sight")
	}
	if !walls.Visible(V3(0, 0, 10), V3(20, 0, 10)) {
		t.Fatal("expected a clear line beside the wall")
	}
	if !walls.Visible(V3(0, 0, 0), V3(8, 0, 0)) {
		t.Fatal("expected a target short of the wall to be visible")
	}
}

func TestWallSight_NilSource(t *testing.T) {
	if w := NewWallSight(nil); w != nil {
		t.Fatalf("expected nil sight, got %v", w)
	}
	var w WallSight
	if !w.Visible(V3(0, 0, 0), V3(100, 0, 0)) {
		t.Fatal("an empty sight never blocks")
	}
}

func TestTargeting_WallBlocksAcquire(t *testing.T) {
	shooter := NewCombatant(1, FactionUS, V3(0, 0, 0), DefaultSkillProfile())
	enemy := NewCombatant(2, FactionOPFOR, V3(20, 0, 0), DefaultSkillProfile())
	all := map[CombatantID]*Combatant{1: shooter, 2: enemy}
	g := NewSpatialGrid(8)
	g.Rebuild([]*Combatant{shooter, enemy})

	tg := NewTargeting(nil, NewWallSight(StaticCover{{Min: V3(10, 0, -5), Max: V3(11, 3, 5)}}))
	if _, ok := tg.Acquire(shooter, g, all); ok {
		t.Fatal("expected no target through a wall")
	}
}
