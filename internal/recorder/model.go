package recorder

import (
	"time"

	"github.com/google/uuid"
)

// MatchRecord is one finished (or abandoned) match.
type MatchRecord struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Scenario  string    `gorm:"index"`
	Seed      int64
	Mode      string
	StartedAt time.Time `gorm:"index"`

	Finished        bool
	DurationSeconds float64
	Winner          string // "US", "OPFOR", "draw"; empty while unfinished
	EndReason       string
	ReachedOvertime bool

	TicketsUS    float64
	TicketsOPFOR float64
	KillsUS      int
	KillsOPFOR   int

	Kills    []KillRecord    `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	Captures []CaptureRecord `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
}

func (MatchRecord) TableName() string { return "matches" }

// KillRecord is one death with its assist credit.
type KillRecord struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	MatchID       uuid.UUID `gorm:"type:varchar(36);index"`
	AtSeconds     float64
	Victim        int32
	VictimFaction string
	Killer        int32
	KillerFaction string
	Assists       string // comma-separated combatant ids, first hit first
	AssistCount   int
}

func (KillRecord) TableName() string { return "kills" }

// CaptureRecord is one zone state event.
type CaptureRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	MatchID   uuid.UUID `gorm:"type:varchar(36);index"`
	AtSeconds float64
	ZoneID    string `gorm:"index"`
	Kind      string
	Faction   string
}

func (CaptureRecord) TableName() string { return "zone_events" }

var models = []any{&MatchRecord{}, &KillRecord{}, &CaptureRecord{}}
