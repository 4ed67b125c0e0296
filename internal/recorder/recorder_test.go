package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/frontline/internal/game"
)

var started = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "aar.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func finishedRecorder(seed int64, winner *game.Faction) *Recorder {
	r := NewRecorder("crossroads", seed, game.ModeTickets, started.Add(time.Duration(seed)*time.Minute))
	r.OnZoneEvent(game.ZoneEvent{Kind: game.ZoneEventCaptured, ZoneID: "B", Faction: game.FactionUS, AtSeconds: 40})
	r.OnKill(game.KillEvent{AtSeconds: 55, Victim: 9, VictimFaction: game.FactionOPFOR, Killer: 2, KillerFaction: game.FactionUS, Assists: []game.CombatantID{4, 1}})
	r.OnKill(game.KillEvent{AtSeconds: 61, Victim: 10, VictimFaction: game.FactionOPFOR, Killer: 2, KillerFaction: game.FactionUS})
	r.OnKill(game.KillEvent{AtSeconds: 70, Victim: 3, VictimFaction: game.FactionUS, Killer: 11, KillerFaction: game.FactionOPFOR})
	r.OnPhaseChange(game.PhaseCombat, game.PhaseOvertime, 900)

	gs := game.GameState{Phase: game.PhaseEnded, MatchElapsed: 1020, EndReason: game.EndTimeLimit, Winner: winner}
	gs.Tickets[game.FactionUS] = 120
	gs.Tickets[game.FactionOPFOR] = 80
	gs.Kills[game.FactionUS] = 2
	gs.Kills[game.FactionOPFOR] = 1
	r.OnMatchEnd(gs)
	return r
}

func TestRecorder_CollectsEvents(t *testing.T) {
	us := game.FactionUS
	r := finishedRecorder(1, &us)
	m := r.Match()

	assert.True(t, m.Finished)
	assert.True(t, m.ReachedOvertime)
	assert.Equal(t, "US", m.Winner)
	assert.Equal(t, "time_limit", m.EndReason)
	assert.Equal(t, 120.0, m.TicketsUS)
	assert.Equal(t, 2, m.KillsUS)
	require.Len(t, m.Kills, 3)
	assert.Equal(t, "4,1", m.Kills[0].Assists)
	assert.Equal(t, 2, m.Kills[0].AssistCount)
	assert.Equal(t, "", m.Kills[1].Assists)
	require.Len(t, m.Captures, 1)
	assert.Equal(t, "captured", m.Captures[0].Kind)
	assert.Equal(t, r.ID(), m.Captures[0].MatchID)

	m.Kills[0].Victim = 99
	assert.Equal(t, int32(9), r.Match().Kills[0].Victim, "Match returns a copy")
}

func TestRecorder_DrawAndUnfinished(t *testing.T) {
	draw := finishedRecorder(1, nil)
	assert.Equal(t, "draw", draw.Match().Winner)

	r := NewRecorder("crossroads", 1, game.ModeTDM, started)
	r.Finish(game.GameState{Phase: game.PhaseCombat, MatchElapsed: 60})
	m := r.Match()
	assert.False(t, m.Finished)
	assert.Equal(t, "", m.Winner)
	assert.Equal(t, "tdm", m.Mode)
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	us := game.FactionUS
	r := finishedRecorder(1, &us)
	require.NoError(t, r.Save(ctx, s))

	m, err := s.Match(ctx, r.ID())
	require.NoError(t, err)
	assert.Equal(t, "crossroads", m.Scenario)
	assert.True(t, m.StartedAt.Equal(started.Add(time.Minute)))
	require.Len(t, m.Kills, 3)
	assert.Equal(t, []game.CombatantID{4, 1}, ParseAssists(m.Kills[0].Assists))
	assert.Equal(t, 61.0, m.Kills[1].AtSeconds)
	require.Len(t, m.Captures, 1)
	assert.Equal(t, "B", m.Captures[0].ZoneID)

	// Saving again replaces rather than duplicates.
	require.NoError(t, r.Save(ctx, s))
	again, err := s.Match(ctx, r.ID())
	require.NoError(t, err)
	assert.Len(t, again.Kills, 3)

	top, err := s.TopKillers(ctx, r.ID(), 5)
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.Equal(t, KillerCount{Killer: 2, KillerFaction: "US", Kills: 2}, top[0])
}

func TestStore_MatchesAndWinCounts(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	us, op := game.FactionUS, game.FactionOPFOR
	for i, w := range []*game.Faction{&us, &op, &us, nil} {
		require.NoError(t, finishedRecorder(int64(i+1), w).Save(ctx, s))
	}
	unfinished := NewRecorder("crossroads", 9, game.ModeTickets, started.Add(time.Hour))
	require.NoError(t, unfinished.Save(ctx, s))

	all, err := s.Matches(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, int64(1), all[0].Seed, "oldest first")
	assert.Empty(t, all[0].Kills, "listing does not preload events")

	wins, err := s.WinCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []WinCount{{"OPFOR", 1}, {"US", 2}, {"draw", 1}}, wins)
}

func TestStore_NotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.Match(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_InMemory(t *testing.T) {
	s, err := Open("", zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	m := &MatchRecord{Scenario: "scratch", StartedAt: started}
	require.NoError(t, s.Save(context.Background(), m))
	assert.NotEqual(t, uuid.Nil, m.ID, "an id is assigned on save")

	all, err := s.Matches(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRecorder_WiredToSim(t *testing.T) {
	ec := game.DefaultEconomyConfig()
	ec.SetupDuration = 0
	cfg := game.DefaultSimConfig()
	cfg.Economy = ec
	r := NewRecorder("unit", cfg.Seed, ec.Mode, started)
	sim := game.NewSim(cfg, game.SimDeps{Logger: zerolog.Nop(), Observers: []game.MatchObserver{r}})
	a := sim.Spawn(game.FactionUS, game.V3(-200, 0, 0), game.DefaultSkillProfile())
	b := sim.Spawn(game.FactionOPFOR, game.V3(200, 0, 0), game.DefaultSkillProfile())
	sim.Update(0.1)

	require.True(t, sim.ApplyDamage(b.ID, a.ID, 150))
	m := r.Match()
	require.Len(t, m.Kills, 1)
	assert.Equal(t, "US", m.Kills[0].KillerFaction)
}
