package game

import (
	"fmt"
	"strings"
)

// SimLogEntry is one recorded event during a simulation run.
type SimLogEntry struct {
	Tick     int     `json:"tick"`
	Actor    string  `json:"actor"`    // label e.g. "U3", "O12", a zone id, or "--" for global events
	Faction  string  `json:"faction"`  // "US", "OPFOR", or "--"
	Category string  `json:"category"` // state, zone, ticket, squad, callout, combat, flank
	Key      string  `json:"key"`      // specific event name within the category
	Value    string  `json:"value"`    // human-readable detail
	NumVal   float64 `json:"num"`      // optional numeric value for threshold checks
}

// String formats the entry as a fixed-width log line.
//
//	[T=042] U3   state     transition       patrolling → alert
func (e SimLogEntry) String() string {
	return fmt.Sprintf("[T=%03d] %-4s %-9s %-16s %s",
		e.Tick, e.Actor, e.Category, e.Key, e.Value)
}

// SimLog collects structured events during a simulation.
// Unlike CalloutBoard (bounded ring), SimLog is unbounded and machine-readable.
type SimLog struct {
	entries []SimLogEntry
	verbose bool
}

// NewSimLog creates a SimLog. If verbose is true, per-tick movement and
// fire entries are also recorded.
func NewSimLog(verbose bool) *SimLog {
	return &SimLog{verbose: verbose}
}

// Add records a new entry.
func (sl *SimLog) Add(tick int, actor, faction, category, key, value string, numVal float64) {
	if sl == nil {
		return
	}
	sl.entries = append(sl.entries, SimLogEntry{
		Tick:     tick,
		Actor:    actor,
		Faction:  faction,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	})
}

// AddVerbose records an entry only when verbose mode is on.
func (sl *SimLog) AddVerbose(tick int, actor, faction, category, key, value string, numVal float64) {
	if sl == nil || !sl.verbose {
		return
	}
	sl.Add(tick, actor, faction, category, key, value, numVal)
}

// Entries returns all recorded entries.
func (sl *SimLog) Entries() []SimLogEntry {
	return sl.entries
}

// Since returns entries recorded after the first n.
func (sl *SimLog) Since(n int) []SimLogEntry {
	if n >= len(sl.entries) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	return sl.entries[n:]
}

// Len returns the number of recorded entries.
func (sl *SimLog) Len() int {
	return len(sl.entries)
}

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (sl *SimLog) Filter(category, key string) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterActor returns entries for a specific actor label.
func (sl *SimLog) FilterActor(label string) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if e.Actor == label {
			out = append(out, e)
		}
	}
	return out
}

// FilterTickRange returns entries within [fromTick, toTick] inclusive.
func (sl *SimLog) FilterTickRange(fromTick, toTick int) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if e.Tick >= fromTick && e.Tick <= toTick {
			out = append(out, e)
		}
	}
	return out
}

// CountCategory returns how many entries match the given category and key.
func (sl *SimLog) CountCategory(category, key string) int {
	return len(sl.Filter(category, key))
}

// LastOf returns the most recent entry matching category+key, or false if none.
func (sl *SimLog) LastOf(category, key string) (SimLogEntry, bool) {
	entries := sl.Filter(category, key)
	if len(entries) == 0 {
		return SimLogEntry{}, false
	}
	return entries[len(entries)-1], true
}

// HasEntry returns true if at least one entry matches category, key, and value substring.
func (sl *SimLog) HasEntry(category, key, valueSubstr string) bool {
	for _, e := range sl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		if valueSubstr != "" && !strings.Contains(e.Value, valueSubstr) {
			continue
		}
		return true
	}
	return false
}

// Format returns the full log as a single string for t.Log output.
func (sl *SimLog) Format() string {
	var sb strings.Builder
	for _, e := range sl.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatRange returns a log string filtered to a tick range.
func (sl *SimLog) FormatRange(fromTick, toTick int) string {
	var sb strings.Builder
	for _, e := range sl.FilterTickRange(fromTick, toTick) {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Summary returns a short human-readable summary of the match at tick.
func (sl *SimLog) Summary(tick int, combatants []*Combatant, zones []*CaptureZone, gs GameState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Summary at T=%03d ---\n", tick)

	var states [numFactions][numCombatantStates]int
	var alive [numFactions]int
	for _, c := range combatants {
		states[c.Faction][c.State]++
		if c.Alive() {
			alive[c.Faction]++
		}
	}
	for _, f := range Factions {
		fmt.Fprintf(&sb, "%s states: ", f)
		for s := StateIdle; s < numCombatantStates; s++ {
			if n := states[f][s]; n > 0 {
				fmt.Fprintf(&sb, "%s=%d  ", s, n)
			}
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "Alive: US=%d  OPFOR=%d\n", alive[FactionUS], alive[FactionOPFOR])

	for _, z := range zones {
		owner := "--"
		if z.Owner != nil {
			owner = z.Owner.String()
		}
		fmt.Fprintf(&sb, "Zone %-8s %-16s owner=%-5s progress=%.0f\n", z.ID, z.State, owner, z.CaptureProgress)
	}
	fmt.Fprintf(&sb, "Phase: %s  tickets US=%.0f OPFOR=%.0f  kills US=%d OPFOR=%d\n",
		gs.Phase, gs.Tickets[FactionUS], gs.Tickets[FactionOPFOR], gs.Kills[FactionUS], gs.Kills[FactionOPFOR])
	return sb.String()
}
