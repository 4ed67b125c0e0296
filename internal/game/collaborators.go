package game

// Terrain samples ground height.
type Terrain interface {
	HeightAt(x, z float64) float64
}

// FlatTerrain is a terrain at constant height.
type FlatTerrain float64

func (f FlatTerrain) HeightAt(x, z float64) float64 { return float64(f) }

// ZoneDirectory lists capture zones.
type ZoneDirectory interface {
	Zones() []*CaptureZone
	ZoneByID(id string) (*CaptureZone, bool)
}

// SquadDirectory lists squads by id.
type SquadDirectory interface {
	Squads() map[string]*Squad
}

// CoverSource supplies static cover and obstruction volumes.
type CoverSource interface {
	CoverVolumes() []AABB
}

// StaticCover is a fixed list of cover volumes.
type StaticCover []AABB

func (s StaticCover) CoverVolumes() []AABB { return s }

// LineOfSight reports whether b can be seen from a. Optional; without it every
// contact inside visual range counts as visible.
type LineOfSight interface {
	Visible(from, to Vec3) bool
}

// CombatantSource lists combatants in a stable order.
type CombatantSource interface {
	CombatantList() []*Combatant
}

// MatchObserver receives match-level events. Implementations must not mutate simulation state.
type MatchObserver interface {
	OnKill(ev KillEvent)
	OnZoneEvent(ev ZoneEvent)
	OnPhaseChange(from, to MatchPhase, atSeconds float64)
	OnMatchEnd(state GameState)
}

// KillEvent describes one death resolved by combat.
type KillEvent struct {
	AtSeconds     float64
	Victim        CombatantID
	VictimFaction Faction
	Killer        CombatantID // NoTarget when unattributed
	KillerFaction Faction
	Assists       []CombatantID
}
