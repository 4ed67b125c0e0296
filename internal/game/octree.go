package game

import (
	"math"
	"sort"

	"github.com/kamstrup/intmap"
)

const (
	octreeMaxEntities = 8
	octreeMaxDepth    = 8

	// rayHitTolerance is the half extent of the box a ray must pass through to hit an entity.
	rayHitTolerance = 1.0
)

// Plane is n·p + D >= 0 on the inside.
type Plane struct {
	Normal Vec3
	D      float64
}

// Frustum is six inward-facing planes.
type Frustum struct {
	Planes [6]Plane
}

// containsPoint reports whether p is inside every plane.
func (f Frustum) containsPoint(p Vec3) bool {
	for _, pl := range f.Planes {
		if pl.Normal.Dot(p)+pl.D < 0 {
			return false
		}
	}
	return true
}

// intersectsBox rejects a box when its most positive vertex lies outside any plane.
func (f Frustum) intersectsBox(b AABB) bool {
	for _, pl := range f.Planes {
		pv := b.Min
		if pl.Normal.X >= 0 {
			pv.X = b.Max.X
		}
		if pl.Normal.Y >= 0 {
			pv.Y = b.Max.Y
		}
		if pl.Normal.Z >= 0 {
			pv.Z = b.Max.Z
		}
		if pl.Normal.Dot(pv)+pl.D < 0 {
			return false
		}
	}
	return true
}

// BoxFrustum builds a frustum equal to an axis-aligned box. Handy for area-of-interest queries.
func BoxFrustum(b AABB) Frustum {
	return Frustum{Planes: [6]Plane{
		{Normal: Vec3{X: 1}, D: -b.Min.X},
		{Normal: Vec3{X: -1}, D: b.Max.X},
		{Normal: Vec3{Y: 1}, D: -b.Min.Y},
		{Normal: Vec3{Y: -1}, D: b.Max.Y},
		{Normal: Vec3{Z: 1}, D: -b.Min.Z},
		{Normal: Vec3{Z: -1}, D: b.Max.Z},
	}}
}

type octreeEntry struct {
	id  CombatantID
	pos Vec3
}

type octreeNode struct {
	bounds   AABB
	depth    int
	entries  []octreeEntry
	children *[8]*octreeNode
}

// Octree is a sparse spatial index for large worlds. It supports the same
// radius query as SpatialGrid plus frustum, ray and nearest-K queries.
// Entities outside the root bounds live in an overflow list that every
// query scans exactly.
type Octree struct {
	root    *octreeNode
	outside *octreeNode
	nodeOf  *intmap.Map[CombatantID, *octreeNode]
}

// NewOctree creates an empty octree covering bounds.
func NewOctree(bounds AABB) *Octree {
	return &Octree{
		root:    &octreeNode{bounds: bounds},
		outside: &octreeNode{bounds: bounds},
		nodeOf:  intmap.New[CombatantID, *octreeNode](256),
	}
}

// Len returns the number of indexed entities.
func (o *Octree) Len() int {
	return o.nodeOf.Len()
}

// Insert adds id at pos.
func (o *Octree) Insert(id CombatantID, pos Vec3) {
	if _, ok := o.nodeOf.Get(id); ok {
		o.Update(id, pos)
		return
	}
	o.place(octreeEntry{id: id, pos: pos})
}

// Update moves id. An entity that stays inside its current leaf, or stays
// outside the root bounds, is updated in place.
func (o *Octree) Update(id CombatantID, pos Vec3) {
	n, ok := o.nodeOf.Get(id)
	if !ok {
		o.place(octreeEntry{id: id, pos: pos})
		return
	}
	inPlace := n.children == nil && n.bounds.Contains(pos)
	if n == o.outside {
		inPlace = !o.root.bounds.Contains(pos)
	}
	if inPlace {
		for i := range n.entries {
			if n.entries[i].id == id {
				n.entries[i].pos = pos
				return
			}
		}
	}
	o.Remove(id)
	o.place(octreeEntry{id: id, pos: pos})
}

// Remove drops id. Unknown ids are ignored.
func (o *Octree) Remove(id CombatantID) {
	n, ok := o.nodeOf.Get(id)
	if !ok {
		return
	}
	for i, e := range n.entries {
		if e.id == id {
			last := len(n.entries) - 1
			n.entries[i] = n.entries[last]
			n.entries = n.entries[:last]
			break
		}
	}
	o.nodeOf.Del(id)
}

// Clear empties the tree.
func (o *Octree) Clear() {
	o.root = &octreeNode{bounds: o.root.bounds}
	o.outside = &octreeNode{bounds: o.root.bounds}
	o.nodeOf.Clear()
}

// Rebuild clears and repopulates from combatants, skipping the dead.
func (o *Octree) Rebuild(combatants []*Combatant) {
	o.Clear()
	for _, c := range combatants {
		if c == nil || !c.Alive() {
			continue
		}
		o.Insert(c.ID, c.Position)
	}
}

// place routes e into the tree, or into the overflow list when it lies
// outside the root bounds.
func (o *Octree) place(e octreeEntry) {
	if !o.root.bounds.Contains(e.pos) {
		o.outside.entries = append(o.outside.entries, e)
		o.nodeOf.Put(e.id, o.outside)
		return
	}
	o.insert(o.root, e)
}

func (o *Octree) insert(n *octreeNode, e octreeEntry) {
	for n.children != nil {
		n = n.children[n.childIndex(e.pos)]
	}
	n.entries = append(n.entries, e)
	o.nodeOf.Put(e.id, n)
	if len(n.entries) > octreeMaxEntities && n.depth < octreeMaxDepth {
		o.split(n)
	}
}

func (n *octreeNode) childIndex(p Vec3) int {
	c := n.bounds.Center()
	idx := 0
	if p.X >= c.X {
		idx |= 1
	}
	if p.Y >= c.Y {
		idx |= 2
	}
	if p.Z >= c.Z {
		idx |= 4
	}
	return idx
}

func (o *Octree) split(n *octreeNode) {
	c := n.bounds.Center()
	var kids [8]*octreeNode
	for i := 0; i < 8; i++ {
		b := n.bounds
		if i&1 != 0 {
			b.Min.X = c.X
		} else {
			b.Max.X = c.X
		}
		if i&2 != 0 {
			b.Min.Y = c.Y
		} else {
			b.Max.Y = c.Y
		}
		if i&4 != 0 {
			b.Min.Z = c.Z
		} else {
			b.Max.Z = c.Z
		}
		kids[i] = &octreeNode{bounds: b, depth: n.depth + 1}
	}
	n.children = &kids
	entries := n.entries
	n.entries = nil
	for _, e := range entries {
		child := kids[n.childIndex(e.pos)]
		child.entries = append(child.entries, e)
		o.nodeOf.Put(e.id, child)
	}
}

// scan visits every entry in nodes that keep passes, then every overflow entry.
func (o *Octree) scan(keep func(AABB) bool, visit func(octreeEntry)) {
	o.root.walk(func(n *octreeNode) bool {
		if !keep(n.bounds) {
			return false
		}
		for _, e := range n.entries {
			visit(e)
		}
		return true
	})
	for _, e := range o.outside.entries {
		visit(e)
	}
}

func (n *octreeNode) walk(visit func(*octreeNode) bool) {
	if !visit(n) {
		return
	}
	if n.children == nil {
		return
	}
	for _, c := range n.children {
		c.walk(visit)
	}
}

// QueryRadius returns ids within radius of center.
func (o *Octree) QueryRadius(center Vec3, radius float64) []CombatantID {
	if radius < 0 || o.nodeOf.Len() == 0 {
		return nil
	}
	r2 := radius * radius
	var out []CombatantID
	o.scan(func(b AABB) bool { return b.DistSqTo(center) <= r2 }, func(e octreeEntry) {
		if e.pos.DistSq(center) <= r2 {
			out = append(out, e.id)
		}
	})
	return out
}

// QueryFrustum returns ids inside the frustum.
func (o *Octree) QueryFrustum(f Frustum) []CombatantID {
	if o.nodeOf.Len() == 0 {
		return nil
	}
	var out []CombatantID
	o.scan(f.intersectsBox, func(e octreeEntry) {
		if f.containsPoint(e.pos) {
			out = append(out, e.id)
		}
	})
	return out
}

// RayHit is one entity struck by QueryRay.
type RayHit struct {
	ID       CombatantID
	Distance float64
}

// QueryRay returns entities whose tolerance box the ray crosses within maxDist,
// nearest first. Nodes the ray misses are rejected before their entities are tested.
func (o *Octree) QueryRay(origin, dir Vec3, maxDist float64) []RayHit {
	dir = dir.Normalize()
	if o.nodeOf.Len() == 0 || dir == (Vec3{}) || maxDist <= 0 {
		return nil
	}
	var hits []RayHit
	pad := V3(rayHitTolerance, rayHitTolerance, rayHitTolerance)
	keep := func(b AABB) bool {
		t, ok := AABB{Min: b.Min.Sub(pad), Max: b.Max.Add(pad)}.RayIntersect(origin, dir)
		return ok && t <= maxDist
	}
	o.scan(keep, func(e octreeEntry) {
		d, hit := BoxAround(e.pos, rayHitTolerance).RayIntersect(origin, dir)
		if hit && d <= maxDist {
			hits = append(hits, RayHit{ID: e.id, Distance: d})
		}
	})
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	return hits
}

// QueryNearestK returns up to k ids nearest to pos within maxDist (<= 0 means unbounded).
// Nodes farther than maxDist are pruned, then candidates are sorted exactly and sliced.
func (o *Octree) QueryNearestK(pos Vec3, k int, maxDist float64) []CombatantID {
	if k <= 0 || o.nodeOf.Len() == 0 {
		return nil
	}
	limit := math.Inf(1)
	if maxDist > 0 {
		limit = maxDist * maxDist
	}
	type cand struct {
		id CombatantID
		d2 float64
	}
	var cands []cand
	o.scan(func(b AABB) bool { return b.DistSqTo(pos) <= limit }, func(e octreeEntry) {
		if d2 := e.pos.DistSq(pos); d2 <= limit {
			cands = append(cands, cand{id: e.id, d2: d2})
		}
	})
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].d2 != cands[j].d2 {
			return cands[i].d2 < cands[j].d2
		}
		return cands[i].id < cands[j].id
	})
	if len(cands) > k {
		cands = cands[:k]
	}
	out := make([]CombatantID, len(cands))
	for i, c := range cands {
		out[i] = c.id
	}
	return out
}
