package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garsondee/frontline/internal/game"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	assert.Equal(t, int64(1), cfg.Seed)
	assert.Equal(t, 10.0, cfg.TickRate)
	assert.InDelta(t, 0.1, cfg.Dt(), 1e-12)
	assert.Equal(t, 20*time.Minute, cfg.MaxTime)
	assert.Equal(t, 12000, cfg.MaxTicks())
	assert.Equal(t, 200*time.Millisecond, cfg.Sim.OccupancyInterval)
	assert.Equal(t, 5*time.Second, cfg.Sim.DeathGrace)
	assert.Equal(t, "US", cfg.Influence.Perspective)
	assert.Equal(t, "tickets", cfg.Match.Mode)
	assert.False(t, cfg.Recorder.Enabled)

	assert.Equal(t, game.DefaultSimConfig(), cfg.SimConfig(), "defaults round-trip to the engine defaults")
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frontline.yaml")
	body := `
logLevel: debug
seed: 99
tickRate: 20
sim:
  useOctree: true
  occupancyInterval: 1s
influence:
  gridSize: 32
  perspective: OPFOR
match:
  mode: tdm
  killTarget: 25
recorder:
  enabled: true
  path: /tmp/aar.db
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, 0.05, cfg.Dt())
	assert.True(t, cfg.Recorder.Enabled)
	assert.Equal(t, "/tmp/aar.db", cfg.Recorder.Path)

	sc := cfg.SimConfig()
	assert.Equal(t, int64(99), sc.Seed)
	assert.True(t, sc.UseOctree)
	assert.Equal(t, time.Second, sc.OccupancyInterval)
	assert.Equal(t, 32, sc.Influence.GridSize)
	assert.Equal(t, game.FactionOPFOR, sc.Influence.Perspective)
	assert.Equal(t, game.ModeTDM, sc.Economy.Mode)
	assert.Equal(t, 25.0, sc.Economy.KillTarget)
	assert.Equal(t, 300.0, sc.Economy.MaxTickets, "unset keys keep their defaults")
}

func TestLoad_JSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frontline.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"match": {"maxTickets": 150}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 150.0, cfg.SimConfig().Economy.MaxTickets)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FRONTLINE_SEED", "7")
	t.Setenv("FRONTLINE_MATCH_DEATHPENALTY", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 5.0, cfg.Match.DeathPenalty)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/frontline.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := cfg
	bad.LogLevel = "shouty"
	bad.TickRate = 0
	bad.Match.Mode = "ctf"
	bad.Influence.Perspective = "GREEN"
	err = bad.Validate()
	require.Error(t, err)
	for _, want := range []string{"logLevel", "tickRate", "match.mode", "influence.perspective"} {
		assert.Contains(t, err.Error(), want)
	}

	lod := cfg
	lod.Sim.LODMediumRange = 10
	assert.Error(t, lod.Validate())
}

func TestDecode_RejectsInvalid(t *testing.T) {
	v := New()
	v.Set("sim.cellSize", -1)
	_, err := Decode(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sim.cellSize")
}
