package game

import (
	"math"
	"time"
)

// --- Combat resolution constants ---

const (
	baseDamage          = 25.0 // per hit
	maxFireRange        = 300.0
	bodyHalfWidth       = 0.45 // m, target silhouette half-width
	baseSpread          = 0.015
	jitterSpread        = 0.09 // extra spread at AimJitter 1
	suppressedSpread    = 0.05 // extra spread at full suppression
	fullAutoSpread      = 0.04
	coverHitMul         = 0.45
	hitSuppression      = 0.2
	nearMissSuppression = 0.12
	// areaSuppressionRadius is how close to an aim point a unit must be to be pinned by area fire.
	areaSuppressionRadius = 3.0
)

// rayIndex is implemented by indexes that can walk a bullet's path (Octree).
type rayIndex interface {
	QueryRay(origin, dir Vec3, maxDist float64) []RayHit
}

// Death is one kill produced by combat resolution.
type Death struct {
	Victim CombatantID
	Killer CombatantID
}

// CombatResolver turns fire intents into hits, suppression and deaths. It is the
// headless stand-in for the external ballistics system.
type CombatResolver struct {
	rng     Rand
	cover   *CoverFinder
	assists *AssistTracker

	ShotsFired int
	Hits       int
}

// NewCombatResolver creates a resolver. cover and assists are optional.
func NewCombatResolver(rng Rand, cover *CoverFinder, assists *AssistTracker) *CombatResolver {
	if rng == nil {
		rng = NewRand(1)
	}
	return &CombatResolver{rng: rng, cover: cover, assists: assists}
}

// Resolve fires every pending shot of shooters in order. Killed combatants are
// moved to DEAD and returned; fire intents are consumed.
func (r *CombatResolver) Resolve(shooters []*Combatant, all map[CombatantID]*Combatant, index SpatialIndex, now time.Time, matchMs int64) []Death {
	var deaths []Death
	for _, s := range shooters {
		if !s.Alive() || !s.Intent.Fire {
			s.Intent.Fire = false
			continue
		}
		shots := max(1, s.Intent.Shots)
		for i := 0; i < shots && s.Alive(); i++ {
			if d, ok := r.resolveShot(s, i, all, index, now, matchMs); ok {
				deaths = append(deaths, d)
			}
		}
		s.Intent.Fire = false
		s.Intent.Shots = 0
	}
	return deaths
}

func (r *CombatResolver) resolveShot(s *Combatant, shotIdx int, all map[CombatantID]*Combatant, index SpatialIndex, now time.Time, matchMs int64) (Death, bool) {
	var target *Combatant
	aim := s.Intent.AimAt
	if s.Intent.FireTarget != NoTarget {
		if t, ok := all[s.Intent.FireTarget]; ok && t.Alive() {
			target = t
			aim = t.Position
		}
	}
	dist := s.Position.Dist(aim)
	if dist > maxFireRange || dist < 1e-6 {
		return Death{}, false
	}
	r.ShotsFired++

	spread := baseSpread + s.Skill.AimJitter*jitterSpread + s.SuppressionLevel*suppressedSpread
	if s.Intent.FullAuto {
		spread += fullAutoSpread * float64(min(shotIdx+1, 4)) / 4
	}
	// Triangular distribution: two uniform samples averaged.
	u1 := r.rng.Float64()*2 - 1
	u2 := r.rng.Float64()*2 - 1
	deflection := (u1 + u2) / 2 * spread

	if target != nil {
		halfSize := math.Atan(bodyHalfWidth / dist)
		if target.InCover && r.cover.IsBehindCover(target.Position, s.Position) {
			halfSize *= coverHitMul
		}
		if math.Abs(deflection) <= halfSize {
			r.Hits++
			return r.applyHit(s, target, now, matchMs)
		}
		target.ApplySuppression(suppressionFor(target, nearMissSuppression), now)
	}

	r.suppressAlongPath(s, target, aim, deflection, dist, all, index, now)
	return Death{}, false
}

func (r *CombatResolver) applyHit(s, target *Combatant, now time.Time, matchMs int64) (Death, bool) {
	target.Health -= baseDamage
	target.ApplySuppression(suppressionFor(target, hitSuppression), now)
	if r.assists != nil {
		r.assists.RecordDamage(target.ID, s.ID, baseDamage, matchMs)
	}
	if target.Health > 0 {
		return Death{}, false
	}
	target.markDead(now)
	return Death{Victim: target.ID, Killer: s.ID}, true
}

// suppressAlongPath pins enemies the round passes close to. With a ray-capable
// index the deflected bullet path is walked; otherwise only units near the
// aim point are affected.
func (r *CombatResolver) suppressAlongPath(s, target *Combatant, aim Vec3, deflection, dist float64, all map[CombatantID]*Combatant, index SpatialIndex, now time.Time) {
	if index == nil {
		return
	}
	var ids []CombatantID
	if ri, ok := index.(rayIndex); ok {
		dir := rotateFlat(aim.Sub(s.Position), deflection)
		for _, h := range ri.QueryRay(s.Position, dir, dist+areaSuppressionRadius) {
			ids = append(ids, h.ID)
		}
	} else {
		ids = index.QueryRadius(aim, areaSuppressionRadius)
	}
	for _, id := range ids {
		o, ok := all[id]
		if !ok || o == target || o == s || !o.Alive() || !Hostile(s.Faction, o.Faction) {
			continue
		}
		o.ApplySuppression(suppressionFor(o, nearMissSuppression), now)
	}
}

func suppressionFor(c *Combatant, amount float64) float64 {
	return amount * (1 - 0.5*c.Skill.SuppressionResistance)
}

// rotateFlat turns v about the vertical axis by a radians.
func rotateFlat(v Vec3, a float64) Vec3 {
	sin, cos := math.Sincos(a)
	return Vec3{X: v.X*cos - v.Z*sin, Y: v.Y, Z: v.X*sin + v.Z*cos}
}
