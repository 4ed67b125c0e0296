package recorder

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Garsondee/frontline/internal/game"
)

// Recorder collects match events from a Sim and writes them to a Store when
// the match is saved.
type Recorder struct {
	match MatchRecord
}

var _ game.MatchObserver = (*Recorder)(nil)

// NewRecorder starts a record for one match.
func NewRecorder(scenario string, seed int64, mode game.MatchMode, startedAt time.Time) *Recorder {
	return &Recorder{match: MatchRecord{
		ID:        uuid.New(),
		Scenario:  scenario,
		Seed:      seed,
		Mode:      mode.String(),
		StartedAt: startedAt.UTC(),
	}}
}

// ID is the match record id.
func (r *Recorder) ID() uuid.UUID { return r.match.ID }

// Match returns a copy of the record so far.
func (r *Recorder) Match() MatchRecord {
	m := r.match
	m.Kills = append([]KillRecord(nil), r.match.Kills...)
	m.Captures = append([]CaptureRecord(nil), r.match.Captures...)
	return m
}

func (r *Recorder) OnKill(ev game.KillEvent) {
	ids := make([]string, len(ev.Assists))
	for i, id := range ev.Assists {
		ids[i] = strconv.Itoa(int(id))
	}
	r.match.Kills = append(r.match.Kills, KillRecord{
		MatchID:       r.match.ID,
		AtSeconds:     ev.AtSeconds,
		Victim:        int32(ev.Victim),
		VictimFaction: ev.VictimFaction.String(),
		Killer:        int32(ev.Killer),
		KillerFaction: ev.KillerFaction.String(),
		Assists:       strings.Join(ids, ","),
		AssistCount:   len(ev.Assists),
	})
}

func (r *Recorder) OnZoneEvent(ev game.ZoneEvent) {
	r.match.Captures = append(r.match.Captures, CaptureRecord{
		MatchID:   r.match.ID,
		AtSeconds: ev.AtSeconds,
		ZoneID:    ev.ZoneID,
		Kind:      ev.Kind.String(),
		Faction:   ev.Faction.String(),
	})
}

func (r *Recorder) OnPhaseChange(_, to game.MatchPhase, _ float64) {
	if to == game.PhaseOvertime {
		r.match.ReachedOvertime = true
	}
}

func (r *Recorder) OnMatchEnd(gs game.GameState) {
	r.Finish(gs)
	r.match.Finished = true
}

// Finish copies the final economy state into the record. It is called by
// OnMatchEnd; call it directly to record a match cut short by a time limit.
func (r *Recorder) Finish(gs game.GameState) {
	r.match.DurationSeconds = gs.MatchElapsed
	r.match.EndReason = gs.EndReason.String()
	r.match.TicketsUS = gs.Tickets[game.FactionUS]
	r.match.TicketsOPFOR = gs.Tickets[game.FactionOPFOR]
	r.match.KillsUS = gs.Kills[game.FactionUS]
	r.match.KillsOPFOR = gs.Kills[game.FactionOPFOR]
	switch {
	case gs.Winner != nil:
		r.match.Winner = gs.Winner.String()
	case gs.Ended():
		r.match.Winner = "draw"
	}
}

// Save writes the record to s.
func (r *Recorder) Save(ctx context.Context, s *Store) error {
	return s.Save(ctx, &r.match)
}

// ParseAssists splits a stored assist list.
func ParseAssists(s string) []game.CombatantID {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]game.CombatantID, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		out = append(out, game.CombatantID(n))
	}
	return out
}
