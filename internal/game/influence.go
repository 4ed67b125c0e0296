package game

import (
	"math"
	"time"
)

// InfluenceCell is one cell of the tactical scoring grid. All terms are 0-1.
type InfluenceCell struct {
	Threat      float64
	Opportunity float64
	Cover       float64
	Support     float64
	Combined    float64
}

// InfluenceConfig sizes the grid and sets whose point of view it is scored from.
type InfluenceConfig struct {
	GridSize    int
	WorldSize   float64
	Interval    time.Duration
	Perspective Faction
}

// DefaultInfluenceConfig is a 64×64 grid over a 512 m world, recomputed every 500 ms.
func DefaultInfluenceConfig() InfluenceConfig {
	return InfluenceConfig{
		GridSize:    64,
		WorldSize:   512,
		Interval:    500 * time.Millisecond,
		Perspective: FactionUS,
	}
}

// InfluenceSources are the inputs the field samples on every recompute.
// Any of them may be nil.
type InfluenceSources struct {
	Combatants CombatantSource
	Zones      ZoneDirectory
	Cover      CoverSource
}

// Source radii and falloffs.
const (
	threatRadius      = 50.0
	threatFalloff     = 0.02
	playerThreatScale = 1.2

	opportunityRadius  = 30.0
	opportunityFalloff = 0.033

	coverRadius  = 15.0
	coverFalloff = 0.067

	supportRadius  = 40.0
	supportFalloff = 0.025

	influenceNorm = 4.8
)

// InfluenceField is a throttled 2D scalar grid used for positioning decisions.
type InfluenceField struct {
	cfg      InfluenceConfig
	src      InfluenceSources
	clock    Clock
	cellSize float64
	half     float64
	cells    []InfluenceCell

	playerPos  Vec3
	hasPlayer  bool
	lastUpdate time.Time
	recomputes int
}

// NewInfluenceField allocates the grid. Nothing is computed until the first Update.
func NewInfluenceField(cfg InfluenceConfig, src InfluenceSources, clock Clock) *InfluenceField {
	if cfg.GridSize <= 0 {
		cfg.GridSize = DefaultInfluenceConfig().GridSize
	}
	if cfg.WorldSize <= 0 {
		cfg.WorldSize = DefaultInfluenceConfig().WorldSize
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &InfluenceField{
		cfg:      cfg,
		src:      src,
		clock:    clock,
		cellSize: cfg.WorldSize / float64(cfg.GridSize),
		half:     cfg.WorldSize / 2,
		cells:    make([]InfluenceCell, cfg.GridSize*cfg.GridSize),
	}
}

// Config returns the field configuration.
func (f *InfluenceField) Config() InfluenceConfig {
	return f.cfg
}

// SetPlayerPosition registers the player as a priority threat source.
func (f *InfluenceField) SetPlayerPosition(p Vec3) {
	f.playerPos = p
	f.hasPlayer = true
}

// ClearPlayerPosition removes the player threat source.
func (f *InfluenceField) ClearPlayerPosition() {
	f.hasPlayer = false
}

// Recomputes returns how many times the grid has been rebuilt.
func (f *InfluenceField) Recomputes() int {
	return f.recomputes
}

// Update recomputes the grid if at least Interval has passed on the clock since
// the previous recompute. It returns true when the grid was rebuilt.
func (f *InfluenceField) Update(dt float64) bool {
	now := f.clock.Now()
	if f.recomputes > 0 && now.Sub(f.lastUpdate) < f.cfg.Interval {
		return false
	}
	f.lastUpdate = now
	f.recompute()
	f.recomputes++
	return true
}

// Snapshot copies the grid in row-major (z, x) order.
func (f *InfluenceField) Snapshot() []InfluenceCell {
	return append([]InfluenceCell(nil), f.cells...)
}

func (f *InfluenceField) recompute() {
	for i := range f.cells {
		f.cells[i] = InfluenceCell{}
	}
	persp := f.cfg.Perspective

	if f.src.Combatants != nil {
		for _, c := range f.src.Combatants.CombatantList() {
			if !c.Alive() {
				continue
			}
			if Hostile(c.Faction, persp) {
				f.accumulate(c.Position, threatRadius, func(cell *InfluenceCell, d float64) {
					cell.Threat = math.Min(1, cell.Threat+math.Max(0, 1-d*threatFalloff))
				})
			} else {
				f.accumulate(c.Position, supportRadius, func(cell *InfluenceCell, d float64) {
					cell.Support = math.Min(1, cell.Support+math.Max(0, 1-d*supportFalloff))
				})
			}
		}
	}
	if f.hasPlayer {
		f.accumulate(f.playerPos, threatRadius, func(cell *InfluenceCell, d float64) {
			cell.Threat = math.Min(1, cell.Threat+math.Max(0, 1-d*threatFalloff)*playerThreatScale)
		})
	}
	if f.src.Zones != nil {
		for _, z := range f.src.Zones.Zones() {
			if z.IsHomeBase {
				continue
			}
			base := zoneOpportunity(z, persp)
			f.accumulate(z.Position, opportunityRadius, func(cell *InfluenceCell, d float64) {
				cell.Opportunity = math.Min(1, cell.Opportunity+math.Max(0, base-d*opportunityFalloff))
			})
		}
	}
	if f.src.Cover != nil {
		for _, b := range f.src.Cover.CoverVolumes() {
			f.accumulate(b.Center(), coverRadius, func(cell *InfluenceCell, d float64) {
				cell.Cover = math.Min(1, cell.Cover+math.Max(0, 1-d*coverFalloff))
			})
		}
	}

	for i := range f.cells {
		c := &f.cells[i]
		c.Combined = clamp01((c.Opportunity*2.0 + (1-c.Threat)*1.5 + c.Cover*0.8 + c.Support*0.5) / influenceNorm)
	}
}

func zoneOpportunity(z *CaptureZone, persp Faction) float64 {
	switch {
	case z.State == ZoneContested:
		return 1.5
	case z.Owner == nil:
		return 0.8
	case *z.Owner == persp:
		return 0.3
	default:
		return 1.2
	}
}

// accumulate visits only the cells in the bounding sub-rectangle of a source
// and applies fn to those whose centre lies within radius.
func (f *InfluenceField) accumulate(p Vec3, radius float64, fn func(*InfluenceCell, float64)) {
	n := f.cfg.GridSize
	x0 := clampIndex(int(math.Floor((p.X-radius+f.half)/f.cellSize)), n)
	x1 := clampIndex(int(math.Floor((p.X+radius+f.half)/f.cellSize)), n)
	z0 := clampIndex(int(math.Floor((p.Z-radius+f.half)/f.cellSize)), n)
	z1 := clampIndex(int(math.Floor((p.Z+radius+f.half)/f.cellSize)), n)
	for gz := z0; gz <= z1; gz++ {
		for gx := x0; gx <= x1; gx++ {
			d := f.cellCenter(gx, gz).Dist2D(p)
			if d > radius {
				continue
			}
			fn(&f.cells[gz*n+gx], d)
		}
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (f *InfluenceField) cellCenter(gx, gz int) Vec3 {
	return Vec3{
		X: -f.half + (float64(gx)+0.5)*f.cellSize,
		Z: -f.half + (float64(gz)+0.5)*f.cellSize,
	}
}

func (f *InfluenceField) cellIndex(p Vec3) (int, int, bool) {
	if p.X < -f.half || p.X >= f.half || p.Z < -f.half || p.Z >= f.half {
		return 0, 0, false
	}
	gx := clampIndex(int((p.X+f.half)/f.cellSize), f.cfg.GridSize)
	gz := clampIndex(int((p.Z+f.half)/f.cellSize), f.cfg.GridSize)
	return gx, gz, true
}

// QueryCellAt returns the cell containing pos, or false outside the world.
func (f *InfluenceField) QueryCellAt(pos Vec3) (InfluenceCell, bool) {
	gx, gz, ok := f.cellIndex(pos)
	if !ok {
		return InfluenceCell{}, false
	}
	return f.cells[gz*f.cfg.GridSize+gx], true
}

// scoreFor rates a cell for faction. The alliance opposed to the field's
// perspective seeks threat instead of avoiding it.
func (f *InfluenceField) scoreFor(c InfluenceCell, faction Faction) float64 {
	if !Hostile(faction, f.cfg.Perspective) {
		return c.Combined
	}
	return clamp01((c.Opportunity*2.0 + c.Threat*1.5 + c.Cover*0.8 + c.Support*0.5) / influenceNorm)
}

// FindBestPositionNear returns the centre of the best-scoring cell within radius of target.
func (f *InfluenceField) FindBestPositionNear(target Vec3, radius float64, faction Faction) (Vec3, bool) {
	if radius < 0 {
		return Vec3{}, false
	}
	n := f.cfg.GridSize
	x0 := clampIndex(int(math.Floor((target.X-radius+f.half)/f.cellSize)), n)
	x1 := clampIndex(int(math.Floor((target.X+radius+f.half)/f.cellSize)), n)
	z0 := clampIndex(int(math.Floor((target.Z-radius+f.half)/f.cellSize)), n)
	z1 := clampIndex(int(math.Floor((target.Z+radius+f.half)/f.cellSize)), n)

	best := math.Inf(-1)
	var bestPos Vec3
	found := false
	for gz := z0; gz <= z1; gz++ {
		for gx := x0; gx <= x1; gx++ {
			center := f.cellCenter(gx, gz)
			if center.Dist2D(target) > radius {
				continue
			}
			if s := f.scoreFor(f.cells[gz*n+gx], faction); s > best {
				best = s
				bestPos = center
				found = true
			}
		}
	}
	return bestPos, found
}

// FindBestZoneTarget picks the zone most worth moving to from pos. Home bases
// and zones faction already holds uncontested are skipped.
func (f *InfluenceField) FindBestZoneTarget(pos Vec3, faction Faction) (*CaptureZone, bool) {
	if f.src.Zones == nil {
		return nil, false
	}
	var best *CaptureZone
	bestScore := math.Inf(-1)
	for _, z := range f.src.Zones.Zones() {
		if z.IsHomeBase {
			continue
		}
		contested := z.State == ZoneContested
		if z.OwnedBy(faction) && !contested {
			continue
		}
		score := 0.0
		if cell, ok := f.QueryCellAt(z.Position); ok {
			score = cell.Combined
		}
		score -= math.Min(1, pos.Dist2D(z.Position)/200) * 0.3
		if contested {
			score += 0.5
		}
		if score > bestScore {
			bestScore = score
			best = z
		}
	}
	return best, best != nil
}
