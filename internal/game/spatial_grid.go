package game

import (
	"math"

	"github.com/kamstrup/intmap"
)

// SpatialIndex answers proximity queries over live combatants.
type SpatialIndex interface {
	QueryRadius(center Vec3, radius float64) []CombatantID
}

// cellKey packs a 2D cell coordinate into one integer so it can key an intmap.
type cellKey uint64

func makeCellKey(cx, cz int32) cellKey {
	return cellKey(uint64(uint32(cx))<<32 | uint64(uint32(cz)))
}

// SpatialGrid is a hash grid over the X/Z plane.
type SpatialGrid struct {
	cellSize  float64
	cells     *intmap.Map[cellKey, []CombatantID]
	cellOf    *intmap.Map[CombatantID, cellKey]
	positions *intmap.Map[CombatantID, Vec3]
}

// NewSpatialGrid creates an empty grid with square cells of the given size.
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 10
	}
	return &SpatialGrid{
		cellSize:  cellSize,
		cells:     intmap.New[cellKey, []CombatantID](256),
		cellOf:    intmap.New[CombatantID, cellKey](256),
		positions: intmap.New[CombatantID, Vec3](256),
	}
}

// CellSize returns the grid's cell edge length.
func (g *SpatialGrid) CellSize() float64 {
	return g.cellSize
}

// Len returns the number of indexed entities.
func (g *SpatialGrid) Len() int {
	return g.cellOf.Len()
}

// maxQueryCells caps the cells one radius query walks. Wider queries scan
// every entity instead.
const maxQueryCells = 4096

func (g *SpatialGrid) cellCoords(pos Vec3) (int32, int32) {
	return g.cellCoord(pos.X), g.cellCoord(pos.Z)
}

// cellCoord saturates at the int32 range so extreme positions still land in a cell.
func (g *SpatialGrid) cellCoord(v float64) int32 {
	c := math.Floor(v / g.cellSize)
	switch {
	case math.IsNaN(c):
		return 0
	case c <= math.MinInt32:
		return math.MinInt32
	case c >= math.MaxInt32:
		return math.MaxInt32
	}
	return int32(c)
}

// UpdatePosition moves id to the cell containing pos. The stored position is
// always refreshed; cell membership only changes when the cell does.
func (g *SpatialGrid) UpdatePosition(id CombatantID, pos Vec3) {
	g.positions.Put(id, pos)
	key := makeCellKey(g.cellCoords(pos))
	old, ok := g.cellOf.Get(id)
	if ok && old == key {
		return
	}
	if ok {
		g.removeFromCell(old, id)
	}
	members, _ := g.cells.Get(key)
	g.cells.Put(key, append(members, id))
	g.cellOf.Put(id, key)
}

// Remove drops id from the index. Unknown ids are ignored.
func (g *SpatialGrid) Remove(id CombatantID) {
	key, ok := g.cellOf.Get(id)
	if !ok {
		return
	}
	g.removeFromCell(key, id)
	g.cellOf.Del(id)
	g.positions.Del(id)
}

func (g *SpatialGrid) removeFromCell(key cellKey, id CombatantID) {
	members, ok := g.cells.Get(key)
	if !ok {
		return
	}
	for i, m := range members {
		if m == id {
			last := len(members) - 1
			members[i] = members[last]
			members = members[:last]
			break
		}
	}
	if len(members) == 0 {
		g.cells.Del(key)
		return
	}
	g.cells.Put(key, members)
}

// QueryRadius returns ids whose Euclidean distance to center is <= radius.
// Every cell overlapping the bounding square is scanned, then filtered by squared distance.
func (g *SpatialGrid) QueryRadius(center Vec3, radius float64) []CombatantID {
	if !(radius >= 0) || g.cellOf.Len() == 0 {
		return nil
	}
	r2 := radius * radius
	spanX := math.Floor((center.X+radius)/g.cellSize) - math.Floor((center.X-radius)/g.cellSize) + 1
	spanZ := math.Floor((center.Z+radius)/g.cellSize) - math.Floor((center.Z-radius)/g.cellSize) + 1
	if !(spanX*spanZ <= maxQueryCells) {
		return g.scanAll(center, r2)
	}
	minX, minZ := g.cellCoords(Vec3{X: center.X - radius, Z: center.Z - radius})
	maxX, maxZ := g.cellCoords(Vec3{X: center.X + radius, Z: center.Z + radius})

	var out []CombatantID
	for cx := int64(minX); cx <= int64(maxX); cx++ {
		for cz := int64(minZ); cz <= int64(maxZ); cz++ {
			members, ok := g.cells.Get(makeCellKey(int32(cx), int32(cz)))
			if !ok {
				continue
			}
			for _, id := range members {
				p, _ := g.positions.Get(id)
				if p.DistSq(center) <= r2 {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// scanAll filters every indexed entity by squared distance.
func (g *SpatialGrid) scanAll(center Vec3, r2 float64) []CombatantID {
	var out []CombatantID
	g.positions.ForEach(func(id CombatantID, p Vec3) bool {
		if p.DistSq(center) <= r2 {
			out = append(out, id)
		}
		return true
	})
	return out
}

// QueryCell returns every id bucketed in the cell containing pos.
func (g *SpatialGrid) QueryCell(pos Vec3) []CombatantID {
	members, ok := g.cells.Get(makeCellKey(g.cellCoords(pos)))
	if !ok {
		return nil
	}
	out := make([]CombatantID, len(members))
	copy(out, members)
	return out
}

// Position returns the last indexed position of id.
func (g *SpatialGrid) Position(id CombatantID) (Vec3, bool) {
	return g.positions.Get(id)
}

// Clear empties the index.
func (g *SpatialGrid) Clear() {
	g.cells.Clear()
	g.cellOf.Clear()
	g.positions.Clear()
}

// Rebuild clears the grid and repopulates it from combatants, skipping the dead.
func (g *SpatialGrid) Rebuild(combatants []*Combatant) {
	g.Clear()
	for _, c := range combatants {
		if c == nil || !c.Alive() {
			continue
		}
		g.UpdatePosition(c.ID, c.Position)
	}
}
