package game

import (
	"time"
)

// ZoneState mirrors who holds a capture zone.
type ZoneState uint8

const (
	ZoneNeutral ZoneState = iota
	ZoneContested
	ZoneUSControlled
	ZoneOPFORControlled
)

func (s ZoneState) String() string {
	switch s {
	case ZoneNeutral:
		return "NEUTRAL"
	case ZoneContested:
		return "CONTESTED"
	case ZoneUSControlled:
		return "US_CONTROLLED"
	case ZoneOPFORControlled:
		return "OPFOR_CONTROLLED"
	default:
		return "UNKNOWN"
	}
}

// ControlledState returns the <FACTION>_CONTROLLED state for f.
func ControlledState(f Faction) ZoneState {
	if f == FactionOPFOR {
		return ZoneOPFORControlled
	}
	return ZoneUSControlled
}

const (
	defaultCaptureSpeed = 10.0
	maxCaptureProgress  = 100.0
)

// CaptureZone is a contested area of the map.
type CaptureZone struct {
	ID       string
	Name     string
	Position Vec3
	Radius   float64

	Owner           *Faction
	State           ZoneState
	CaptureProgress float64 // 0-100
	CaptureSpeed    float64
	IsHomeBase      bool

	dwell           float64
	progressFaction *Faction // who a neutral zone's partial progress belongs to
}

// NewCaptureZone creates a neutral capturable zone.
func NewCaptureZone(id string, pos Vec3, radius float64) *CaptureZone {
	return &CaptureZone{
		ID:           id,
		Name:         id,
		Position:     pos,
		Radius:       radius,
		State:        ZoneNeutral,
		CaptureSpeed: defaultCaptureSpeed,
	}
}

// NewHomeBase creates a permanently owned, uncapturable zone.
func NewHomeBase(id string, pos Vec3, radius float64, owner Faction) *CaptureZone {
	z := NewCaptureZone(id, pos, radius)
	z.IsHomeBase = true
	z.SetOwner(owner)
	return z
}

// SetOwner gives the zone fully to f.
func (z *CaptureZone) SetOwner(f Faction) {
	z.Owner = factionPtr(f)
	z.progressFaction = factionPtr(f)
	z.CaptureProgress = maxCaptureProgress
	z.State = ControlledState(f)
}

// OwnedBy reports whether f currently owns the zone.
func (z *CaptureZone) OwnedBy(f Faction) bool {
	return z.Owner != nil && *z.Owner == f
}

// Dwell returns accumulated unequal-occupancy time in seconds.
func (z *CaptureZone) Dwell() float64 {
	return z.dwell
}

// Contains reports whether p lies within the zone radius on the ground plane.
func (z *CaptureZone) Contains(p Vec3) bool {
	return z.Position.Dist2D(p) <= z.Radius
}

func (z *CaptureZone) settledState(contested bool) ZoneState {
	switch {
	case contested:
		return ZoneContested
	case z.Owner != nil:
		return ControlledState(*z.Owner)
	default:
		return ZoneNeutral
	}
}

// Occupants counts live combatants inside a zone per alliance.
type Occupants struct {
	BLUFOR int
	OPFOR  int
}

func (o Occupants) count(a Alliance) int {
	if a == AllianceOPFOR {
		return o.OPFOR
	}
	return o.BLUFOR
}

const defaultOccupancyInterval = 200 * time.Millisecond

// ZoneManager owns the match's zones and derives per-zone occupancy.
// It implements ZoneDirectory.
type ZoneManager struct {
	zones     []*CaptureZone
	byID      map[string]*CaptureZone
	occupancy map[string]Occupants

	clock         Clock
	interval      time.Duration
	lastOccupancy time.Time
}

// NewZoneManager creates a manager. interval <= 0 recomputes occupancy on every refresh.
func NewZoneManager(clock Clock, interval time.Duration, zones ...*CaptureZone) *ZoneManager {
	if clock == nil {
		clock = SystemClock{}
	}
	zm := &ZoneManager{
		byID:      make(map[string]*CaptureZone),
		occupancy: make(map[string]Occupants),
		clock:     clock,
		interval:  interval,
	}
	for _, z := range zones {
		zm.Add(z)
	}
	return zm
}

// Add registers a zone. A zone with a duplicate id replaces the earlier one.
func (zm *ZoneManager) Add(z *CaptureZone) {
	if old, ok := zm.byID[z.ID]; ok {
		for i, existing := range zm.zones {
			if existing == old {
				zm.zones[i] = z
			}
		}
	} else {
		zm.zones = append(zm.zones, z)
	}
	zm.byID[z.ID] = z
}

func (zm *ZoneManager) Zones() []*CaptureZone {
	return zm.zones
}

func (zm *ZoneManager) ZoneByID(id string) (*CaptureZone, bool) {
	z, ok := zm.byID[id]
	return z, ok
}

// Occupancy returns the last derived occupant counts for a zone.
func (zm *ZoneManager) Occupancy(id string) Occupants {
	return zm.occupancy[id]
}

// RefreshOccupancy recounts occupants of every zone from the spatial index when the
// throttle interval has elapsed. It returns true when counts were recomputed.
func (zm *ZoneManager) RefreshOccupancy(index SpatialIndex, all map[CombatantID]*Combatant) bool {
	now := zm.clock.Now()
	if !zm.lastOccupancy.IsZero() && now.Sub(zm.lastOccupancy) < zm.interval {
		return false
	}
	zm.lastOccupancy = now
	for _, z := range zm.zones {
		var occ Occupants
		if index != nil {
			for _, id := range index.QueryRadius(z.Position, z.Radius) {
				c, ok := all[id]
				if !ok || !c.Alive() {
					continue
				}
				if c.Faction.Alliance() == AllianceOPFOR {
					occ.OPFOR++
				} else {
					occ.BLUFOR++
				}
			}
		}
		zm.occupancy[z.ID] = occ
	}
	return true
}

// ControlSummary counts capturable zones and how many each faction owns.
func ControlSummary(zones []*CaptureZone) (owned [numFactions]int, capturable int) {
	for _, z := range zones {
		if z.IsHomeBase {
			continue
		}
		capturable++
		if z.Owner != nil {
			owned[*z.Owner]++
		}
	}
	return owned, capturable
}

// HomeBaseFor returns the first home base owned by f.
func HomeBaseFor(dir ZoneDirectory, f Faction) (*CaptureZone, bool) {
	if dir == nil {
		return nil, false
	}
	for _, z := range dir.Zones() {
		if z.IsHomeBase && z.OwnedBy(f) {
			return z, true
		}
	}
	return nil, false
}
