// Package recorder keeps an after-action record of matches in SQLite.
package recorder

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a match id is unknown.
var ErrNotFound = errors.New("match not found")

// Store is the SQLite-backed match archive.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to the SQLite file at path and migrates the schema. An empty
// path opens a private in-memory database.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	// One connection keeps an in-memory database alive and serialises writers.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA temp_store = MEMORY;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	if err := db.AutoMigrate(models...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Debug().Str("path", dsn).Msg("after-action store ready")
	return &Store{db: db, log: log}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save writes a match with its kills and zone events in one transaction.
// Saving the same match again replaces it.
func (s *Store) Save(ctx context.Context, m *MatchRecord) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteMatch(tx, m.ID); err != nil {
			return err
		}
		for i := range m.Kills {
			m.Kills[i].ID = 0
		}
		for i := range m.Captures {
			m.Captures[i].ID = 0
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return fmt.Errorf("save match %s: %w", m.ID, err)
	}
	s.log.Info().
		Str("match", m.ID.String()).
		Str("winner", m.Winner).
		Int("kills", len(m.Kills)).
		Int("zone_events", len(m.Captures)).
		Msg("match recorded")
	return nil
}

func deleteMatch(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("match_id = ?", id).Delete(&KillRecord{}).Error; err != nil {
		return err
	}
	if err := tx.Where("match_id = ?", id).Delete(&CaptureRecord{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&MatchRecord{}).Error
}

// Match loads one match with its events.
func (s *Store) Match(ctx context.Context, id uuid.UUID) (MatchRecord, error) {
	var m MatchRecord
	err := s.db.WithContext(ctx).
		Preload("Kills", func(db *gorm.DB) *gorm.DB { return db.Order("at_seconds, id") }).
		Preload("Captures", func(db *gorm.DB) *gorm.DB { return db.Order("at_seconds, id") }).
		First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MatchRecord{}, ErrNotFound
	}
	if err != nil {
		return MatchRecord{}, fmt.Errorf("load match %s: %w", id, err)
	}
	return m, nil
}

// Matches lists matches oldest first, without their events.
func (s *Store) Matches(ctx context.Context) ([]MatchRecord, error) {
	var out []MatchRecord
	if err := s.db.WithContext(ctx).Order("started_at, id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return out, nil
}

// WinCount is one row of the win tally.
type WinCount struct {
	Winner string
	Count  int
}

// WinCounts tallies finished matches by winner.
func (s *Store) WinCounts(ctx context.Context) ([]WinCount, error) {
	var out []WinCount
	err := s.db.WithContext(ctx).Model(&MatchRecord{}).
		Select("winner, count(*) as count").
		Where("finished = ?", true).
		Group("winner").
		Order("winner").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("tally wins: %w", err)
	}
	return out, nil
}

// TopKillers returns the combatants with the most kills in a match.
func (s *Store) TopKillers(ctx context.Context, id uuid.UUID, limit int) ([]KillerCount, error) {
	var out []KillerCount
	err := s.db.WithContext(ctx).Model(&KillRecord{}).
		Select("killer, killer_faction, count(*) as kills").
		Where("match_id = ? AND killer <> 0", id).
		Group("killer, killer_faction").
		Order("kills desc, killer").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("top killers for %s: %w", id, err)
	}
	return out, nil
}

// KillerCount is one row of TopKillers.
type KillerCount struct {
	Killer        int32
	KillerFaction string
	Kills         int
}
