package game

import "math"

// Vec3 is a world-space position or direction in metres. The ground plane is X/Z; Y is up.
type Vec3 struct {
	X, Y, Z float64
}

// V3 is shorthand for constructing a Vec3.
func V3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3       { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3       { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3  { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64    { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) LenSq() float64        { return v.Dot(v) }
func (v Vec3) Len() float64          { return math.Sqrt(v.LenSq()) }
func (v Vec3) DistSq(o Vec3) float64 { return v.Sub(o).LenSq() }
func (v Vec3) Dist(o Vec3) float64   { return math.Sqrt(v.DistSq(o)) }

// Dist2D is the ground-plane (X/Z) distance, ignoring height.
func (v Vec3) Dist2D(o Vec3) float64 {
	dx := v.X - o.X
	dz := v.Z - o.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// Normalize returns a unit vector, or the zero vector when v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l < 1e-9 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Flat drops the vertical component.
func (v Vec3) Flat() Vec3 {
	return Vec3{X: v.X, Z: v.Z}
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Vec3
}

// BoxAround returns a cube of the given half extent centred on p.
func BoxAround(p Vec3, half float64) AABB {
	h := Vec3{half, half, half}
	return AABB{Min: p.Sub(h), Max: p.Add(h)}
}

func (b AABB) Center() Vec3 {
	return Vec3{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2, (b.Min.Z + b.Max.Z) / 2}
}

// HalfExtent returns the larger horizontal half-size of the box.
func (b AABB) HalfExtent() float64 {
	return math.Max(b.Max.X-b.Min.X, b.Max.Z-b.Min.Z) / 2
}

func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// DistSqTo is the squared distance from p to the closest point of the box (0 inside).
func (b AABB) DistSqTo(p Vec3) float64 {
	dx := math.Max(math.Max(b.Min.X-p.X, 0), p.X-b.Max.X)
	dy := math.Max(math.Max(b.Min.Y-p.Y, 0), p.Y-b.Max.Y)
	dz := math.Max(math.Max(b.Min.Z-p.Z, 0), p.Z-b.Max.Z)
	return dx*dx + dy*dy + dz*dz
}

// RayIntersect runs a slab test and returns the entry distance along dir.
// dir need not be normalised; the distance is in units of dir.
func (b AABB) RayIntersect(origin, dir Vec3) (float64, bool) {
	tMin := 0.0
	tMax := math.Inf(1)
	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (lo[i] - o[i]) * inv
		t2 := (hi[i] - o[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// HeadingTo returns the ground-plane angle in radians from a toward b.
func HeadingTo(a, b Vec3) float64 {
	return math.Atan2(b.Z-a.Z, b.X-a.X)
}

// normalizeAngle wraps an angle to [-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
