package game

// eyeHeight is the sight line height above a combatant's feet.
const eyeHeight = 1.7

// WallSight is a LineOfSight over static volumes. Only volumes that rise
// above eye height block sight; chest walls and rubble do not.
type WallSight []AABB

var _ LineOfSight = WallSight(nil)

// NewWallSight keeps the sight-blocking volumes of src.
func NewWallSight(src CoverSource) WallSight {
	if src == nil {
		return nil
	}
	var out WallSight
	for _, v := range src.CoverVolumes() {
		if v.Max.Y-v.Min.Y >= eyeHeight {
			out = append(out, v)
		}
	}
	return out
}

// Visible returns true if the eye-level segment from -> to does not
// intersect any wall.
func (w WallSight) Visible(from, to Vec3) bool {
	a := from.Add(V3(0, eyeHeight, 0))
	b := to.Add(V3(0, eyeHeight, 0))
	for _, v := range w {
		if segmentHitsAABB(a, b, v) {
			return false
		}
	}
	return true
}

// segmentHitsAABB checks if the segment a -> b enters box.
func segmentHitsAABB(a, b Vec3, box AABB) bool {
	t, hit := box.RayIntersect(a, b.Sub(a))
	return hit && t <= 1
}
