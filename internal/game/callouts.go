package game

import (
	"time"
)

// CalloutType is a kind of voice line a combatant can shout.
type CalloutType uint8

const (
	CalloutMoving CalloutType = iota
	CalloutContact
	CalloutSuppressing
	CalloutTakingFire
	CalloutManDown
	CalloutFlanking
)

func (t CalloutType) String() string {
	switch t {
	case CalloutMoving:
		return "moving"
	case CalloutContact:
		return "contact"
	case CalloutSuppressing:
		return "suppressing"
	case CalloutTakingFire:
		return "taking_fire"
	case CalloutManDown:
		return "man_down"
	case CalloutFlanking:
		return "flanking"
	default:
		return "unknown"
	}
}

// VoiceSink receives callouts. Audio playback lives outside the simulation.
type VoiceSink interface {
	TriggerCallout(c *Combatant, kind CalloutType, pos Vec3)
}

const (
	calloutBoardSize = 60
	// calloutCooldown is the minimum gap between two callouts from one speaker.
	calloutCooldown = 8 * time.Second
)

var calloutPhrases = [...][]string{
	CalloutMoving:      {"Moving!", "On the move!", "Relocating!", "Shifting position!"},
	CalloutContact:     {"Contact!", "Eyes on!", "Targets front!"},
	CalloutSuppressing: {"Suppressing!", "Covering fire!", "Keep their heads down!"},
	CalloutTakingFire:  {"Taking fire!", "Rounds incoming!", "They're on us!"},
	CalloutManDown:     {"Man down!", "We lost one!"},
	CalloutFlanking:    {"Flanking!", "Going around!"},
}

// Callout is one line on the board.
type Callout struct {
	At       time.Time
	Speaker  CombatantID
	Label    string
	Faction  Faction
	Kind     CalloutType
	Phrase   string
	Position Vec3
}

// CalloutBoard is a bounded ring of recent callouts with a per-speaker cooldown.
// It implements VoiceSink.
type CalloutBoard struct {
	entries []Callout
	head    int
	count   int

	clock    Clock
	rng      Rand
	lastSaid map[CombatantID]time.Time
	dropped  int
}

// NewCalloutBoard creates an empty board. rng picks phrases and may be nil.
func NewCalloutBoard(clock Clock, rng Rand) *CalloutBoard {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CalloutBoard{
		entries:  make([]Callout, calloutBoardSize),
		clock:    clock,
		rng:      rng,
		lastSaid: make(map[CombatantID]time.Time),
	}
}

func (b *CalloutBoard) TriggerCallout(c *Combatant, kind CalloutType, pos Vec3) {
	if c == nil || !c.Alive() {
		return
	}
	now := b.clock.Now()
	if last, ok := b.lastSaid[c.ID]; ok && now.Sub(last) < calloutCooldown {
		b.dropped++
		return
	}
	b.lastSaid[c.ID] = now

	phrase := ""
	if int(kind) < len(calloutPhrases) {
		options := calloutPhrases[kind]
		phrase = options[0]
		if b.rng != nil {
			phrase = options[b.rng.Intn(len(options))]
		}
	}
	b.entries[b.head] = Callout{
		At:       now,
		Speaker:  c.ID,
		Label:    c.Label(),
		Faction:  c.Faction,
		Kind:     kind,
		Phrase:   phrase,
		Position: pos,
	}
	b.head = (b.head + 1) % calloutBoardSize
	if b.count < calloutBoardSize {
		b.count++
	}
}

// Recent returns callouts oldest first.
func (b *CalloutBoard) Recent() []Callout {
	out := make([]Callout, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head - b.count + i + calloutBoardSize) % calloutBoardSize
		out[i] = b.entries[idx]
	}
	return out
}

// Dropped returns how many callouts were swallowed by the cooldown.
func (b *CalloutBoard) Dropped() int {
	return b.dropped
}
