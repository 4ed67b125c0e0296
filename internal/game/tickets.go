package game

import (
	"math"

	"github.com/rs/zerolog"
)

// MatchMode selects how tickets are scored.
type MatchMode uint8

const (
	// ModeTickets drains a shared pool per faction through deaths and zone bleed.
	ModeTickets MatchMode = iota
	// ModeTDM repurposes tickets as a kill score racing to KillTarget.
	ModeTDM
)

func (m MatchMode) String() string {
	if m == ModeTDM {
		return "tdm"
	}
	return "tickets"
}

// ParseMatchMode maps a config string to a mode.
func ParseMatchMode(s string) (MatchMode, bool) {
	switch s {
	case "tickets", "TICKETS", "":
		return ModeTickets, true
	case "tdm", "TDM":
		return ModeTDM, true
	}
	return ModeTickets, false
}

// MatchPhase is the match lifecycle stage.
type MatchPhase uint8

const (
	PhaseSetup MatchPhase = iota
	PhaseCombat
	PhaseOvertime
	PhaseEnded
)

func (p MatchPhase) String() string {
	switch p {
	case PhaseSetup:
		return "SETUP"
	case PhaseCombat:
		return "COMBAT"
	case PhaseOvertime:
		return "OVERTIME"
	case PhaseEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// EndReason records why a match ended.
type EndReason uint8

const (
	EndNone EndReason = iota
	EndTicketsDepleted
	EndTotalControl
	EndKillTarget
	EndTimeLimit
)

func (r EndReason) String() string {
	switch r {
	case EndTicketsDepleted:
		return "tickets_depleted"
	case EndTotalControl:
		return "total_control"
	case EndKillTarget:
		return "kill_target"
	case EndTimeLimit:
		return "time_limit"
	default:
		return "none"
	}
}

// EconomyConfig tunes the ticket economy. Durations are in seconds.
type EconomyConfig struct {
	Mode              MatchMode
	MaxTickets        float64
	DeathPenalty      float64
	BaseBleedRate     float64 // tickets per second at full minority
	SetupDuration     float64
	CombatDuration    float64
	OvertimeDuration  float64
	OvertimeThreshold float64 // ticket gap below which COMBAT rolls into OVERTIME
	KillTarget        float64 // TDM only
}

// DefaultEconomyConfig returns the standard ticket-match tuning.
func DefaultEconomyConfig() EconomyConfig {
	return EconomyConfig{
		Mode:              ModeTickets,
		MaxTickets:        300,
		DeathPenalty:      2,
		BaseBleedRate:     1,
		SetupDuration:     10,
		CombatDuration:    900,
		OvertimeDuration:  120,
		OvertimeThreshold: 50,
		KillTarget:        50,
	}
}

// GameState is a snapshot of the match economy.
type GameState struct {
	Mode         MatchMode
	Phase        MatchPhase
	PhaseElapsed float64
	MatchElapsed float64
	Tickets      [numFactions]float64
	Kills        [numFactions]int
	Winner       *Faction // nil while running or on a draw
	EndReason    EndReason
}

// Ended reports whether the match is over.
func (gs GameState) Ended() bool {
	return gs.Phase == PhaseEnded
}

// TicketEconomy tracks tickets, kills and the match phase.
type TicketEconomy struct {
	cfg   EconomyConfig
	zones ZoneDirectory
	log   zerolog.Logger

	state GameState
}

// NewTicketEconomy starts a match in SETUP. zones may be nil, in which case
// zone bleed and total-control victory never apply.
func NewTicketEconomy(cfg EconomyConfig, zones ZoneDirectory, log zerolog.Logger) *TicketEconomy {
	te := &TicketEconomy{cfg: cfg, zones: zones, log: log}
	te.state.Mode = cfg.Mode
	te.state.Phase = PhaseSetup
	if cfg.Mode == ModeTickets {
		for _, f := range Factions {
			te.state.Tickets[f] = cfg.MaxTickets
		}
	}
	return te
}

// Config returns the economy tuning.
func (te *TicketEconomy) Config() EconomyConfig {
	return te.cfg
}

// Tickets returns a faction's ticket count (kill score in TDM).
func (te *TicketEconomy) Tickets(f Faction) float64 {
	return te.state.Tickets[f]
}

// GameState returns a copy of the current match state.
func (te *TicketEconomy) GameState() GameState {
	gs := te.state
	if gs.Winner != nil {
		gs.Winner = factionPtr(*gs.Winner)
	}
	return gs
}

// Phase returns the current match phase.
func (te *TicketEconomy) Phase() MatchPhase {
	return te.state.Phase
}

func (te *TicketEconomy) active() bool {
	return te.state.Phase == PhaseCombat || te.state.Phase == PhaseOvertime
}

func (te *TicketEconomy) setTickets(f Faction, v float64) {
	te.state.Tickets[f] = clamp(v, 0, te.cfg.MaxTickets)
}

// OnCombatantDeath charges a death to the victim's faction. Deaths outside
// COMBAT and OVERTIME are not counted.
func (te *TicketEconomy) OnCombatantDeath(victim Faction) {
	if !te.active() {
		return
	}
	killer := victim.Opponent()
	te.state.Kills[killer]++
	if te.cfg.Mode == ModeTDM {
		te.setTickets(killer, te.state.Tickets[killer]+1)
	} else {
		te.setTickets(victim, te.state.Tickets[victim]-te.cfg.DeathPenalty)
	}
	te.checkVictory()
}

// BleedRate returns how many tickets per second f is losing to zone control.
func (te *TicketEconomy) BleedRate(f Faction) float64 {
	if te.cfg.Mode != ModeTickets || te.zones == nil {
		return 0
	}
	owned, capturable := ControlSummary(te.zones.Zones())
	if capturable == 0 {
		return 0
	}
	share := float64(owned[f]) / float64(capturable)
	if share >= 0.5 {
		return 0
	}
	rate := (0.5 - share) * 2 * te.cfg.BaseBleedRate
	if owned[f.Opponent()] == capturable {
		rate *= 2
	}
	return rate
}

// Update advances phase timers, applies bleed and checks victory. A no-op once ENDED.
func (te *TicketEconomy) Update(dt float64) {
	if te.state.Phase == PhaseEnded || dt <= 0 {
		return
	}
	te.state.MatchElapsed += dt
	te.state.PhaseElapsed += dt

	switch te.state.Phase {
	case PhaseSetup:
		if te.state.PhaseElapsed >= te.cfg.SetupDuration {
			te.enterPhase(PhaseCombat)
		}
		return
	case PhaseCombat, PhaseOvertime:
		if te.cfg.Mode == ModeTickets {
			for _, f := range Factions {
				if rate := te.BleedRate(f); rate > 0 {
					te.setTickets(f, te.state.Tickets[f]-rate*dt)
				}
			}
		}
	}

	if te.checkVictory() {
		return
	}

	switch te.state.Phase {
	case PhaseCombat:
		if te.state.PhaseElapsed < te.cfg.CombatDuration {
			return
		}
		gap := math.Abs(te.state.Tickets[FactionUS] - te.state.Tickets[FactionOPFOR])
		if gap < te.cfg.OvertimeThreshold {
			te.enterPhase(PhaseOvertime)
			return
		}
		te.endByTickets()
	case PhaseOvertime:
		if te.state.PhaseElapsed >= te.cfg.OvertimeDuration {
			te.endByTickets()
		}
	}
}

func (te *TicketEconomy) enterPhase(p MatchPhase) {
	te.log.Info().
		Stringer("from", te.state.Phase).
		Stringer("to", p).
		Float64("at", te.state.MatchElapsed).
		Msg("match phase change")
	te.state.Phase = p
	te.state.PhaseElapsed = 0
}

// checkVictory ends the match when a faction is out of tickets, holds every
// capturable zone, or (TDM) reaches the kill target.
func (te *TicketEconomy) checkVictory() bool {
	if !te.active() {
		return te.state.Phase == PhaseEnded
	}
	t := te.state.Tickets

	if te.cfg.Mode == ModeTDM {
		for _, f := range Factions {
			if t[f] >= te.cfg.KillTarget {
				te.end(factionPtr(f), EndKillTarget)
				return true
			}
		}
		return false
	}

	usOut, opOut := t[FactionUS] <= 0, t[FactionOPFOR] <= 0
	switch {
	case usOut && opOut:
		te.end(nil, EndTicketsDepleted)
		return true
	case usOut:
		te.end(factionPtr(FactionOPFOR), EndTicketsDepleted)
		return true
	case opOut:
		te.end(factionPtr(FactionUS), EndTicketsDepleted)
		return true
	}

	if te.zones != nil {
		owned, capturable := ControlSummary(te.zones.Zones())
		if capturable > 0 {
			for _, f := range Factions {
				if owned[f] == capturable {
					te.end(factionPtr(f), EndTotalControl)
					return true
				}
			}
		}
	}
	return false
}

func (te *TicketEconomy) endByTickets() {
	t := te.state.Tickets
	switch {
	case t[FactionUS] > t[FactionOPFOR]:
		te.end(factionPtr(FactionUS), EndTimeLimit)
	case t[FactionOPFOR] > t[FactionUS]:
		te.end(factionPtr(FactionOPFOR), EndTimeLimit)
	default:
		te.end(nil, EndTimeLimit)
	}
}

func (te *TicketEconomy) end(winner *Faction, reason EndReason) {
	ev := te.log.Info().Stringer("reason", reason).Float64("at", te.state.MatchElapsed)
	if winner != nil {
		ev = ev.Stringer("winner", *winner)
	} else {
		ev = ev.Str("winner", "draw")
	}
	ev.Msg("match ended")
	te.state.Phase = PhaseEnded
	te.state.Winner = winner
	te.state.EndReason = reason
}
