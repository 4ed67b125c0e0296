package game

import (
	"math"
)

const (
	coverSearchRadius = 30.0
	// coverStandOff is how far past a volume's edge a unit stands to use it.
	coverStandOff = 1.2
	// coverArc limits cover to volumes roughly toward the threat.
	coverArc = math.Pi / 2.5
)

// CoverFinder picks firing positions behind static cover volumes.
type CoverFinder struct {
	src CoverSource
}

// NewCoverFinder wraps a cover source. A nil source finds nothing.
func NewCoverFinder(src CoverSource) *CoverFinder {
	return &CoverFinder{src: src}
}

// Available reports whether any cover geometry is registered.
func (cf *CoverFinder) Available() bool {
	return cf != nil && cf.src != nil
}

// FindCover returns the position on the far side of the best nearby volume
// relative to threat. Volumes behind the unit (away from the threat) are ignored.
func (cf *CoverFinder) FindCover(pos, threat Vec3) (Vec3, bool) {
	if !cf.Available() {
		return Vec3{}, false
	}
	threatAngle := HeadingTo(pos, threat)
	var best Vec3
	bestScore := math.Inf(-1)
	found := false
	for _, b := range cf.src.CoverVolumes() {
		center := b.Center()
		dist := pos.Dist2D(center)
		if dist > coverSearchRadius {
			continue
		}
		angDiff := 0.0
		if dist > 1 {
			angDiff = math.Abs(normalizeAngle(HeadingTo(pos, center) - threatAngle))
			if angDiff > coverArc {
				continue
			}
		}
		score := -dist/coverSearchRadius - angDiff/coverArc*0.5
		if score > bestScore {
			bestScore = score
			best = CoverPositionBehind(b, threat)
			found = true
		}
	}
	return best, found
}

// CoverPositionBehind returns where to stand so b sits between the unit and threat.
func CoverPositionBehind(b AABB, threat Vec3) Vec3 {
	center := b.Center()
	away := center.Sub(threat).Flat().Normalize()
	if away == (Vec3{}) {
		away = Vec3{X: 1}
	}
	p := center.Add(away.Scale(b.HalfExtent() + coverStandOff))
	p.Y = 0
	return p
}

// IsBehindCover reports whether a cover volume interposes between pos and threat
// on the ground plane.
func (cf *CoverFinder) IsBehindCover(pos, threat Vec3) bool {
	if !cf.Available() {
		return false
	}
	for _, b := range cf.src.CoverVolumes() {
		y := b.Center().Y
		from := Vec3{X: threat.X, Y: y, Z: threat.Z}
		to := Vec3{X: pos.X, Y: y, Z: pos.Z}
		if b.Contains(to) {
			continue
		}
		if t, ok := b.RayIntersect(from, to.Sub(from)); ok && t <= 1 {
			return true
		}
	}
	return false
}
