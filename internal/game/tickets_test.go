package game

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEconomy(cfg EconomyConfig, zones ...*CaptureZone) *TicketEconomy {
	var dir ZoneDirectory
	if len(zones) > 0 {
		dir = NewZoneManager(nil, 0, zones...)
	}
	return NewTicketEconomy(cfg, dir, zerolog.Nop())
}

// startCombat runs the economy through SETUP.
func startCombat(t *testing.T, te *TicketEconomy) {
	t.Helper()
	te.Update(te.Config().SetupDuration)
	require.Equal(t, PhaseCombat, te.Phase())
}

func ownedZone(id string, f *Faction) *CaptureZone {
	z := NewCaptureZone(id, V3(0, 0, 0), 10)
	if f != nil {
		z.SetOwner(*f)
	}
	return z
}

func TestTickets_FloorAtZero(t *testing.T) {
	cfg := DefaultEconomyConfig()
	cfg.MaxTickets = 10
	cfg.DeathPenalty = 7
	te := newEconomy(cfg)
	startCombat(t, te)

	te.OnCombatantDeath(FactionUS)
	assert.Equal(t, 3.0, te.Tickets(FactionUS))
	te.OnCombatantDeath(FactionUS)
	assert.Equal(t, 0.0, te.Tickets(FactionUS))

	gs := te.GameState()
	require.True(t, gs.Ended())
	require.NotNil(t, gs.Winner)
	assert.Equal(t, FactionOPFOR, *gs.Winner)
	assert.Equal(t, EndTicketsDepleted, gs.EndReason)

	// Further deaths after the end change nothing.
	te.OnCombatantDeath(FactionUS)
	assert.Equal(t, 0.0, te.Tickets(FactionUS))
}

func TestTickets_HugePenaltyStillFloors(t *testing.T) {
	cfg := DefaultEconomyConfig()
	cfg.DeathPenalty = 1e9
	te := newEconomy(cfg)
	startCombat(t, te)

	te.OnCombatantDeath(FactionOPFOR)
	assert.Equal(t, 0.0, te.Tickets(FactionOPFOR))
	assert.Equal(t, cfg.MaxTickets, te.Tickets(FactionUS))
}

func TestTickets_DeathsDuringSetupIgnored(t *testing.T) {
	te := newEconomy(DefaultEconomyConfig())
	te.OnCombatantDeath(FactionUS)
	gs := te.GameState()
	assert.Equal(t, 300.0, gs.Tickets[FactionUS])
	assert.Equal(t, 0, gs.Kills[FactionOPFOR])
}

func TestTickets_KillCounting(t *testing.T) {
	te := newEconomy(DefaultEconomyConfig())
	startCombat(t, te)
	te.OnCombatantDeath(FactionUS)
	te.OnCombatantDeath(FactionUS)
	te.OnCombatantDeath(FactionOPFOR)

	gs := te.GameState()
	assert.Equal(t, 2, gs.Kills[FactionOPFOR])
	assert.Equal(t, 1, gs.Kills[FactionUS])
	assert.Equal(t, 296.0, gs.Tickets[FactionUS])
	assert.Equal(t, 298.0, gs.Tickets[FactionOPFOR])
}

func TestTickets_BleedSymmetry(t *testing.T) {
	us, op := factionPtr(FactionUS), factionPtr(FactionOPFOR)
	cfg := DefaultEconomyConfig()
	cfg.BaseBleedRate = 0.75

	split := newEconomy(cfg, ownedZone("A", us), ownedZone("B", op))
	assert.Equal(t, 0.0, split.BleedRate(FactionUS))
	assert.Equal(t, 0.0, split.BleedRate(FactionOPFOR))

	total := newEconomy(cfg, ownedZone("A", us), ownedZone("B", us),
		NewHomeBase("hq", V3(0, 0, 0), 10, FactionOPFOR))
	assert.Equal(t, 0.0, total.BleedRate(FactionUS))
	assert.Equal(t, 2*cfg.BaseBleedRate, total.BleedRate(FactionOPFOR))
}

func TestTickets_BleedPartialShare(t *testing.T) {
	us := factionPtr(FactionUS)
	cfg := DefaultEconomyConfig()
	te := newEconomy(cfg, ownedZone("A", us), ownedZone("B", us), ownedZone("C", us), ownedZone("D", nil))

	// OPFOR holds 0 of 4 but US does not hold all: no doubling.
	assert.InDelta(t, 1.0, te.BleedRate(FactionOPFOR), 1e-12)
	assert.Equal(t, 0.0, te.BleedRate(FactionUS))
}

func TestTickets_BleedDrainsOverTime(t *testing.T) {
	us, op := factionPtr(FactionUS), factionPtr(FactionOPFOR)
	cfg := DefaultEconomyConfig()
	te := newEconomy(cfg, ownedZone("A", us), ownedZone("B", us), ownedZone("C", us), ownedZone("D", op))
	startCombat(t, te)

	te.Update(10)
	// OPFOR share 0.25 → (0.5-0.25)*2*1 = 0.5/s.
	assert.InDelta(t, 295.0, te.Tickets(FactionOPFOR), 1e-9)
	assert.Equal(t, 300.0, te.Tickets(FactionUS))
}

func TestTickets_BothDepletedIsDraw(t *testing.T) {
	cfg := DefaultEconomyConfig()
	cfg.MaxTickets = 5
	te := newEconomy(cfg, ownedZone("A", nil), ownedZone("B", nil))
	startCombat(t, te)

	te.Update(5)
	gs := te.GameState()
	require.True(t, gs.Ended())
	assert.Nil(t, gs.Winner)
	assert.Equal(t, EndTicketsDepleted, gs.EndReason)
}

func TestTickets_TotalControlVictory(t *testing.T) {
	us := factionPtr(FactionUS)
	te := newEconomy(DefaultEconomyConfig(), ownedZone("A", us), ownedZone("B", us))
	startCombat(t, te)

	te.Update(0.1)
	gs := te.GameState()
	require.True(t, gs.Ended())
	require.NotNil(t, gs.Winner)
	assert.Equal(t, FactionUS, *gs.Winner)
	assert.Equal(t, EndTotalControl, gs.EndReason)
}

func TestTickets_PhaseProgression(t *testing.T) {
	cfg := DefaultEconomyConfig()
	cfg.SetupDuration = 10
	cfg.CombatDuration = 20
	cfg.OvertimeDuration = 5
	te := newEconomy(cfg)

	te.Update(5)
	assert.Equal(t, PhaseSetup, te.Phase())
	te.Update(5)
	assert.Equal(t, PhaseCombat, te.Phase())

	te.Update(19)
	assert.Equal(t, PhaseCombat, te.Phase())
	te.Update(1)
	assert.Equal(t, PhaseOvertime, te.Phase(), "equal tickets roll into overtime")

	te.Update(5)
	gs := te.GameState()
	assert.Equal(t, PhaseEnded, gs.Phase)
	assert.Nil(t, gs.Winner)
	assert.Equal(t, EndTimeLimit, gs.EndReason)
	assert.InDelta(t, 35.0, gs.MatchElapsed, 1e-9)

	// Ended matches are frozen.
	te.Update(100)
	assert.InDelta(t, 35.0, te.GameState().MatchElapsed, 1e-9)
}

func TestTickets_TimeLimitWithLead(t *testing.T) {
	cfg := DefaultEconomyConfig()
	cfg.SetupDuration = 0.5
	cfg.CombatDuration = 10
	cfg.DeathPenalty = 60
	te := newEconomy(cfg)
	startCombat(t, te)

	te.OnCombatantDeath(FactionUS)
	te.Update(10)
	gs := te.GameState()
	require.True(t, gs.Ended())
	require.NotNil(t, gs.Winner)
	assert.Equal(t, FactionOPFOR, *gs.Winner)
	assert.Equal(t, EndTimeLimit, gs.EndReason)
}

func TestTickets_TDMKillTarget(t *testing.T) {
	cfg := DefaultEconomyConfig()
	cfg.Mode = ModeTDM
	cfg.KillTarget = 3
	us := factionPtr(FactionUS)
	te := newEconomy(cfg, ownedZone("A", us))

	assert.Equal(t, 0.0, te.Tickets(FactionUS))
	assert.Equal(t, 0.0, te.BleedRate(FactionOPFOR), "no bleed in TDM")
	startCombat(t, te)

	te.Update(1)
	assert.False(t, te.GameState().Ended(), "total control does not end a TDM match")

	for i := 0; i < 3; i++ {
		te.OnCombatantDeath(FactionOPFOR)
	}
	gs := te.GameState()
	require.True(t, gs.Ended())
	require.NotNil(t, gs.Winner)
	assert.Equal(t, FactionUS, *gs.Winner)
	assert.Equal(t, EndKillTarget, gs.EndReason)
	assert.Equal(t, 3.0, gs.Tickets[FactionUS])
}

func TestTickets_GameStateIsACopy(t *testing.T) {
	cfg := DefaultEconomyConfig()
	cfg.DeathPenalty = 1e9
	te := newEconomy(cfg)
	startCombat(t, te)
	te.OnCombatantDeath(FactionUS)

	gs := te.GameState()
	*gs.Winner = FactionUS
	gs.Tickets[FactionUS] = 42
	again := te.GameState()
	assert.Equal(t, FactionOPFOR, *again.Winner)
	assert.Equal(t, 0.0, again.Tickets[FactionUS])
}

func TestParseMatchMode(t *testing.T) {
	m, ok := ParseMatchMode("tdm")
	assert.True(t, ok)
	assert.Equal(t, ModeTDM, m)
	_, ok = ParseMatchMode("ctf")
	assert.False(t, ok)
}
