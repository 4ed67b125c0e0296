package game

import (
	"math"

	"github.com/rs/zerolog"
)

const (
	// captureDwellThreshold is how long unequal occupancy must last before progress moves.
	captureDwellThreshold = 1.0
	// captureMaxAdvantage caps how much a numbers advantage speeds capture.
	captureMaxAdvantage = 3.0
)

// ZoneEventKind classifies a capture-state change.
type ZoneEventKind uint8

const (
	ZoneEventNone ZoneEventKind = iota
	ZoneEventContested
	ZoneEventNeutralized
	ZoneEventCaptured
)

func (k ZoneEventKind) String() string {
	switch k {
	case ZoneEventContested:
		return "contested"
	case ZoneEventNeutralized:
		return "neutralized"
	case ZoneEventCaptured:
		return "captured"
	default:
		return "none"
	}
}

// ZoneEvent reports what happened to a zone during one capture update.
// Faction is the new owner for captures and the previous owner for neutralisations.
type ZoneEvent struct {
	Kind      ZoneEventKind
	ZoneID    string
	Faction   Faction
	AtSeconds float64
}

// CaptureLogic advances the tug-of-war capture state machine of a zone.
type CaptureLogic struct {
	log zerolog.Logger
}

// NewCaptureLogic creates the capture state machine.
func NewCaptureLogic(log zerolog.Logger) *CaptureLogic {
	return &CaptureLogic{log: log}
}

// UpdateZoneCaptureState advances zone given this tick's occupant counts.
//
// Progress only moves once the dwell timer has passed captureDwellThreshold.
// The alliance with more occupants pushes progress: an opposing owner is drained
// to zero and loses the zone before the attackers can start climbing toward 100.
func (cl *CaptureLogic) UpdateZoneCaptureState(z *CaptureZone, occ Occupants, dt float64) ZoneEvent {
	ev := ZoneEvent{ZoneID: z.ID}
	if z.IsHomeBase {
		z.State = z.settledState(false)
		return ev
	}

	switch {
	case occ.BLUFOR == 0 && occ.OPFOR == 0:
		z.dwell = 0
	case occ.BLUFOR != occ.OPFOR:
		z.dwell += dt
	}

	contested := occ.BLUFOR > 0 && occ.OPFOR > 0
	if contested && z.State != ZoneContested {
		ev.Kind = ZoneEventContested
	}

	if occ.BLUFOR == occ.OPFOR || z.dwell <= captureDwellThreshold {
		z.State = z.settledState(contested)
		return ev
	}

	leader := AllianceBLUFOR
	if occ.OPFOR > occ.BLUFOR {
		leader = AllianceOPFOR
	}
	advantage := occ.count(leader) - occ.count(opposingAlliance(leader))
	f := leader.Faction()
	step := z.CaptureSpeed * math.Min(float64(advantage), captureMaxAdvantage) * dt

	switch {
	case z.Owner != nil && *z.Owner != f:
		z.CaptureProgress -= step
		if z.CaptureProgress <= 0 {
			prev := *z.Owner
			z.CaptureProgress = 0
			z.Owner = nil
			z.progressFaction = nil
			ev = ZoneEvent{Kind: ZoneEventNeutralized, ZoneID: z.ID, Faction: prev}
			cl.log.Info().Str("zone", z.ID).Stringer("lost_by", prev).Msg("zone neutralized")
		}
	case z.Owner != nil:
		z.CaptureProgress = math.Min(maxCaptureProgress, z.CaptureProgress+step)
	case z.progressFaction != nil && *z.progressFaction != f:
		z.CaptureProgress -= step
		if z.CaptureProgress <= 0 {
			z.CaptureProgress = 0
			z.progressFaction = nil
		}
	default:
		z.progressFaction = factionPtr(f)
		z.CaptureProgress += step
		if z.CaptureProgress >= maxCaptureProgress {
			z.CaptureProgress = maxCaptureProgress
			z.Owner = factionPtr(f)
			ev = ZoneEvent{Kind: ZoneEventCaptured, ZoneID: z.ID, Faction: f}
			cl.log.Info().Str("zone", z.ID).Stringer("owner", f).Msg("zone captured")
		}
	}

	z.CaptureProgress = clamp(z.CaptureProgress, 0, maxCaptureProgress)
	z.State = z.settledState(contested)
	return ev
}

func opposingAlliance(a Alliance) Alliance {
	if a == AllianceOPFOR {
		return AllianceBLUFOR
	}
	return AllianceOPFOR
}
