package game

// Faction is a playable side. Every faction belongs to exactly one alliance.
type Faction uint8

const (
	FactionUS Faction = iota
	FactionOPFOR
	numFactions
)

// Factions lists every faction in a stable order.
var Factions = [...]Faction{FactionUS, FactionOPFOR}

func (f Faction) String() string {
	switch f {
	case FactionUS:
		return "US"
	case FactionOPFOR:
		return "OPFOR"
	default:
		return "unknown"
	}
}

// Alliance returns the side this faction fights for.
func (f Faction) Alliance() Alliance {
	if f == FactionOPFOR {
		return AllianceOPFOR
	}
	return AllianceBLUFOR
}

// Opponent returns the faction on the other side.
func (f Faction) Opponent() Faction {
	if f == FactionUS {
		return FactionOPFOR
	}
	return FactionUS
}

// ParseFaction maps a config string to a faction.
func ParseFaction(s string) (Faction, bool) {
	switch s {
	case "US", "us", "blufor", "BLUFOR":
		return FactionUS, true
	case "OPFOR", "opfor":
		return FactionOPFOR, true
	}
	return 0, false
}

// Alliance groups factions into the two opposing sides for targeting and capture.
type Alliance uint8

const (
	AllianceBLUFOR Alliance = iota
	AllianceOPFOR
)

func (a Alliance) String() string {
	if a == AllianceOPFOR {
		return "opfor"
	}
	return "blufor"
}

// Faction is the faction that takes ownership of zones on behalf of the alliance.
func (a Alliance) Faction() Faction {
	if a == AllianceOPFOR {
		return FactionOPFOR
	}
	return FactionUS
}

// Hostile reports whether two factions are on opposite sides.
func Hostile(a, b Faction) bool {
	return a.Alliance() != b.Alliance()
}

func factionPtr(f Faction) *Faction {
	return &f
}
