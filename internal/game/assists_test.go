package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssists_Window(t *testing.T) {
	at := NewAssistTracker()
	const kill = int64(20_000)
	at.RecordDamage(9, 2, 10, kill-9_999)  // inside
	at.RecordDamage(9, 3, 10, kill-10_001) // too old
	at.RecordDamage(9, 4, 10, kill-10_000) // exactly on the edge
	at.RecordDamage(9, 5, 30, kill-100)    // killer

	assert.Equal(t, []CombatantID{2, 4}, at.Assists(9, 5, kill))
}

func TestAssists_ClearedAfterRead(t *testing.T) {
	at := NewAssistTracker()
	at.RecordDamage(1, 2, 10, 100)
	assert.Equal(t, 1, at.Pending())

	assert.Equal(t, []CombatantID{2}, at.Assists(1, 3, 200))
	assert.Empty(t, at.Assists(1, 3, 200))
	assert.Equal(t, 0, at.Pending())
}

func TestAssists_DistinctInFirstHitOrder(t *testing.T) {
	at := NewAssistTracker()
	at.RecordDamage(1, 4, 5, 100)
	at.RecordDamage(1, 2, 5, 200)
	at.RecordDamage(1, 4, 5, 300)
	at.RecordDamage(1, 3, 5, 400)

	assert.Equal(t, []CombatantID{4, 2, 3}, at.Assists(1, 99, 500))
}

func TestAssists_IgnoresSelfAndEmptyDamage(t *testing.T) {
	at := NewAssistTracker()
	at.RecordDamage(1, 1, 50, 0)
	at.RecordDamage(1, NoTarget, 50, 0)
	at.RecordDamage(1, 2, 0, 0)
	assert.Equal(t, 0, at.Pending())
}

func TestAssists_Forget(t *testing.T) {
	at := NewAssistTracker()
	at.RecordDamage(1, 2, 5, 0)
	at.Forget(1)
	assert.Empty(t, at.Assists(1, 3, 10))
}
