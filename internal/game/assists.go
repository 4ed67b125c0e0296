package game

// assistWindowMs is how old a damage entry may be and still earn assist credit.
const assistWindowMs = 10_000

type damageEntry struct {
	attacker CombatantID
	amount   float64
	atMs     int64
}

// AssistTracker remembers who damaged whom so kills can credit assists.
type AssistTracker struct {
	history map[CombatantID][]damageEntry
}

// NewAssistTracker creates an empty tracker.
func NewAssistTracker() *AssistTracker {
	return &AssistTracker{history: make(map[CombatantID][]damageEntry)}
}

// RecordDamage notes that attacker hit victim for amount at atMs (match milliseconds).
func (at *AssistTracker) RecordDamage(victim, attacker CombatantID, amount float64, atMs int64) {
	if attacker == NoTarget || attacker == victim || amount <= 0 {
		return
	}
	at.history[victim] = append(at.history[victim], damageEntry{attacker: attacker, amount: amount, atMs: atMs})
}

// Assists returns the distinct attackers, in first-hit order, who damaged
// victim within the window before killMs. The killer is never included.
// The victim's history is cleared by the call.
func (at *AssistTracker) Assists(victim, killer CombatantID, killMs int64) []CombatantID {
	entries := at.history[victim]
	delete(at.history, victim)

	var out []CombatantID
	seen := make(map[CombatantID]bool, len(entries))
	for _, e := range entries {
		if e.attacker == killer || seen[e.attacker] {
			continue
		}
		if killMs-e.atMs > assistWindowMs {
			continue
		}
		seen[e.attacker] = true
		out = append(out, e.attacker)
	}
	return out
}

// Forget drops a combatant's history without reading it.
func (at *AssistTracker) Forget(victim CombatantID) {
	delete(at.history, victim)
}

// Pending returns how many victims have damage history.
func (at *AssistTracker) Pending() int {
	return len(at.history)
}
