package game

import (
	"sort"
)

// SquadCommand is an order a player issues to their squad.
type SquadCommand uint8

const (
	CommandNone SquadCommand = iota
	CommandFollowMe
	CommandPatrolHere
	CommandRetreat
	CommandHoldPosition
	CommandFreeRoam
)

func (c SquadCommand) String() string {
	switch c {
	case CommandFollowMe:
		return "FOLLOW_ME"
	case CommandPatrolHere:
		return "PATROL_HERE"
	case CommandRetreat:
		return "RETREAT"
	case CommandHoldPosition:
		return "HOLD_POSITION"
	case CommandFreeRoam:
		return "FREE_ROAM"
	default:
		return "NONE"
	}
}

// ParseSquadCommand maps a config string to a command.
func ParseSquadCommand(s string) (SquadCommand, bool) {
	for c := CommandNone; c <= CommandFreeRoam; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return CommandNone, false
}

// Squad is a group of combatants sharing a faction.
type Squad struct {
	ID                 string
	Faction            Faction
	Members            []CombatantID
	LeaderID           CombatantID
	IsPlayerControlled bool

	CurrentCommand     SquadCommand
	CommandPosition    Vec3
	HasCommandPosition bool
}

// NewSquad creates a squad led by its first member.
func NewSquad(id string, faction Faction, members ...CombatantID) *Squad {
	sq := &Squad{
		ID:      id,
		Faction: faction,
		Members: append([]CombatantID(nil), members...),
	}
	if len(members) > 0 {
		sq.LeaderID = members[0]
	}
	return sq
}

// Issue sets the squad's current command. pos is nil for commands without a position.
func (sq *Squad) Issue(cmd SquadCommand, pos *Vec3) {
	sq.CurrentCommand = cmd
	if pos != nil {
		sq.CommandPosition = *pos
		sq.HasCommandPosition = true
	} else {
		sq.HasCommandPosition = false
	}
}

// Alive returns the squad's live members in member order.
func (sq *Squad) Alive(all map[CombatantID]*Combatant) []*Combatant {
	out := make([]*Combatant, 0, len(sq.Members))
	for _, id := range sq.Members {
		if c, ok := all[id]; ok && c.Alive() {
			out = append(out, c)
		}
	}
	return out
}

// Leader resolves the squad leader, if alive.
func (sq *Squad) Leader(all map[CombatantID]*Combatant) (*Combatant, bool) {
	c, ok := all[sq.LeaderID]
	if !ok || !c.Alive() {
		return nil, false
	}
	return c, true
}

// Centroid is the average position of live members.
func (sq *Squad) Centroid(all map[CombatantID]*Combatant) (Vec3, bool) {
	alive := sq.Alive(all)
	if len(alive) == 0 {
		return Vec3{}, false
	}
	var sum Vec3
	for _, c := range alive {
		sum = sum.Add(c.Position)
	}
	return sum.Scale(1 / float64(len(alive))), true
}

// Spread is the largest distance of a live member from the centroid.
func (sq *Squad) Spread(all map[CombatantID]*Combatant) float64 {
	cx, ok := sq.Centroid(all)
	if !ok {
		return 0
	}
	maxD := 0.0
	for _, c := range sq.Alive(all) {
		if d := c.Position.Dist2D(cx); d > maxD {
			maxD = d
		}
	}
	return maxD
}

// electLeader promotes the first live member when the leader is gone.
// It returns true if leadership changed.
func (sq *Squad) electLeader(all map[CombatantID]*Combatant) bool {
	if _, ok := sq.Leader(all); ok {
		return false
	}
	for _, id := range sq.Members {
		if c, ok := all[id]; ok && c.Alive() {
			sq.LeaderID = id
			return true
		}
	}
	return false
}

func (sq *Squad) removeMember(id CombatantID) {
	for i, m := range sq.Members {
		if m == id {
			sq.Members = append(sq.Members[:i], sq.Members[i+1:]...)
			return
		}
	}
}

// SquadRoster owns the match's squads. It implements SquadDirectory.
type SquadRoster struct {
	squads map[string]*Squad
}

// NewSquadRoster creates an empty roster.
func NewSquadRoster() *SquadRoster {
	return &SquadRoster{squads: make(map[string]*Squad)}
}

func (r *SquadRoster) Squads() map[string]*Squad {
	return r.squads
}

// Add registers a squad, replacing any squad with the same id.
func (r *SquadRoster) Add(sq *Squad) {
	r.squads[sq.ID] = sq
}

// Remove deletes a squad.
func (r *SquadRoster) Remove(id string) {
	delete(r.squads, id)
}

// Get looks a squad up by id.
func (r *SquadRoster) Get(id string) (*Squad, bool) {
	sq, ok := r.squads[id]
	return sq, ok
}

// IssueCommand sets a squad's command. Unknown squads are ignored.
func (r *SquadRoster) IssueCommand(id string, cmd SquadCommand, pos *Vec3) bool {
	sq, ok := r.squads[id]
	if !ok {
		return false
	}
	sq.Issue(cmd, pos)
	return true
}

// Sorted returns squads ordered by id.
func (r *SquadRoster) Sorted() []*Squad {
	out := make([]*Squad, 0, len(r.squads))
	for _, sq := range r.squads {
		out = append(out, sq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func lookupSquad(dir SquadDirectory, id string) (*Squad, bool) {
	if dir == nil || id == "" {
		return nil, false
	}
	sq, ok := dir.Squads()[id]
	return sq, ok && sq != nil
}
