package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"github.com/Garsondee/frontline/internal/config"
	"github.com/Garsondee/frontline/internal/eventlog"
	"github.com/Garsondee/frontline/internal/game"
	"github.com/Garsondee/frontline/internal/recorder"
	"github.com/Garsondee/frontline/internal/scenario"
)

type options struct {
	runs         int
	maxTicks     int
	seedBase     int64
	seedStep     int64
	scenarioPath string
	configPath   string
	dbPath       string
	eventLogPath string
	copy         bool
	verbose      bool
}

type runStats struct {
	runIndex int
	seed     int64
	matchID  string
	ticks    int

	winner    string
	endReason string
	duration  float64
	tickets   [2]float64
	kills     [2]int

	firstContactTick int
	firstEngageTick  int
	firstDeathTick   int
	firstCaptureTick int

	stateChanges    int
	captures        int
	neutralizations int
	flanks          int
	callouts        int
	assists         int
	shotsFired      int
	hits            int

	usTotal, opforTotal         int
	usSurvivors, opforSurvivors int
}

func main() {
	var opts options
	flag.IntVar(&opts.runs, "runs", 5, "number of headless simulation runs")
	flag.IntVar(&opts.maxTicks, "ticks", 0, "tick cap per run (0 = config maxTime)")
	flag.Int64Var(&opts.seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&opts.seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&opts.scenarioPath, "scenario", "", "scenario YAML file (default: built-in crossroads)")
	flag.StringVar(&opts.configPath, "config", "", "config file (yaml, json or toml)")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite file for after-action records")
	flag.StringVar(&opts.eventLogPath, "eventlog", "", "write each run's event log as zstd JSONL to this path")
	flag.BoolVar(&opts.copy, "copy", false, "copy the report to the clipboard")
	flag.BoolVar(&opts.verbose, "verbose", false, "record per-shot entries in the event log")
	flag.Parse()

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	if opts.runs <= 0 {
		return errors.New("-runs must be > 0")
	}
	if opts.maxTicks < 0 {
		return errors.New("-ticks must be >= 0")
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(cfg.Level()).
		With().Timestamp().Logger()

	scenarioPath := opts.scenarioPath
	if scenarioPath == "" {
		scenarioPath = cfg.Scenario
	}
	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		return err
	}

	dbPath := opts.dbPath
	if dbPath == "" && cfg.Recorder.Enabled {
		dbPath = cfg.Recorder.Path
	}
	var store *recorder.Store
	if dbPath != "" {
		store, err = recorder.Open(dbPath, logger)
		if err != nil {
			return err
		}
		defer store.Close()
	}
	eventLogPath := opts.eventLogPath
	if eventLogPath == "" && cfg.EventLog.Enabled {
		eventLogPath = cfg.EventLog.Path
	}
	maxTicks := opts.maxTicks
	if maxTicks == 0 {
		maxTicks = cfg.MaxTicks()
	}

	var report strings.Builder
	w := io.MultiWriter(out, &report)
	fmt.Fprintf(w, "=== Headless Match Report ===\n")
	fmt.Fprintf(w, "scenario=%s runs=%d max_ticks=%d tick_rate=%.0f seed_base=%d seed_step=%d\n\n",
		sc.Name, opts.runs, maxTicks, cfg.TickRate, opts.seedBase, opts.seedStep)

	all := make([]runStats, 0, opts.runs)
	for i := 0; i < opts.runs; i++ {
		m := match{
			runIndex: i + 1,
			seed:     opts.seedBase + int64(i)*opts.seedStep,
			maxTicks: maxTicks,
			verbose:  opts.verbose || cfg.Verbose,
			cfg:      cfg,
			sc:       sc,
			logger:   logger,
			store:    store,
		}
		if eventLogPath != "" {
			m.eventLogPath = runLogPath(eventLogPath, i+1, opts.runs)
		}
		rs, err := m.play(ctx)
		if err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}
		all = append(all, rs)
		printRun(w, rs)
	}
	printAggregate(w, all)

	if store != nil {
		wins, err := store.WinCounts(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\n=== Recorded Matches (%s) ===\n", dbPath)
		for _, wc := range wins {
			fmt.Fprintf(w, "  %-6s %d\n", wc.Winner, wc.Count)
		}
	}

	if opts.copy {
		if err := clipboard.WriteAll(report.String()); err != nil {
			logger.Warn().Err(err).Msg("clipboard copy failed")
		} else {
			logger.Info().Int("bytes", report.Len()).Msg("report copied to clipboard")
		}
	}
	return nil
}

// match is one headless run.
type match struct {
	runIndex     int
	seed         int64
	maxTicks     int
	verbose      bool
	eventLogPath string

	cfg    config.Config
	sc     scenario.Scenario
	logger zerolog.Logger
	store  *recorder.Store
}

func (m match) play(ctx context.Context) (runStats, error) {
	simCfg := m.cfg.SimConfig()
	simCfg.Seed = m.seed
	log := game.NewSimLog(m.verbose)
	rec := recorder.NewRecorder(m.sc.Name, m.seed, simCfg.Economy.Mode, time.Now())
	logger := m.logger.With().Int("run", m.runIndex).Int64("seed", m.seed).Logger()

	sim, err := m.sc.Build(simCfg, game.SimDeps{
		Logger:    logger,
		Log:       log,
		Observers: []game.MatchObserver{rec},
	})
	if err != nil {
		return runStats{}, err
	}

	var events *eventlog.Writer
	if m.eventLogPath != "" {
		events, err = eventlog.Create(m.eventLogPath)
		if err != nil {
			return runStats{}, err
		}
		defer events.Close()
	}

	dt := m.cfg.Dt()
	for sim.Tick() < m.maxTicks && !sim.Ended() {
		sim.Update(dt)
		if events != nil {
			if err := events.Sync(log); err != nil {
				return runStats{}, fmt.Errorf("event log: %w", err)
			}
		}
	}
	if !sim.Ended() {
		rec.Finish(sim.GameState())
		logger.Warn().Int("ticks", sim.Tick()).Msg("tick cap reached before the match ended")
	}
	if events != nil {
		if err := events.Close(); err != nil {
			return runStats{}, fmt.Errorf("event log: %w", err)
		}
	}
	if m.store != nil {
		if err := rec.Save(ctx, m.store); err != nil {
			return runStats{}, err
		}
	}

	us, opfor := m.sc.Counts()
	return collectStats(m.runIndex, m.seed, rec.Match(), sim, log, us, opfor), nil
}

func collectStats(runIndex int, seed int64, rec recorder.MatchRecord, sim *game.Sim, log *game.SimLog, usTotal, opforTotal int) runStats {
	entries := log.Entries()
	gs := sim.GameState()
	rs := runStats{
		runIndex:         runIndex,
		seed:             seed,
		matchID:          rec.ID.String(),
		ticks:            sim.Tick(),
		winner:           rec.Winner,
		endReason:        gs.EndReason.String(),
		duration:         gs.MatchElapsed,
		tickets:          gs.Tickets,
		kills:            gs.Kills,
		firstContactTick: firstTick(entries, "state", "transition", "→ alert"),
		firstEngageTick:  firstTick(entries, "state", "transition", "→ engaging"),
		firstDeathTick:   firstTick(entries, "combat", "killed", ""),
		firstCaptureTick: firstTick(entries, "zone", "captured", ""),
		stateChanges:     log.CountCategory("state", "transition"),
		captures:         log.CountCategory("zone", "captured"),
		neutralizations:  log.CountCategory("zone", "neutralized"),
		flanks:           log.CountCategory("flank", "initiated"),
		callouts:         log.CountCategory("callout", ""),
		shotsFired:       sim.Resolver().ShotsFired,
		hits:             sim.Resolver().Hits,
		usTotal:          usTotal,
		opforTotal:       opforTotal,
		usSurvivors:      sim.Alive(game.FactionUS),
		opforSurvivors:   sim.Alive(game.FactionOPFOR),
	}
	if rs.winner == "" {
		rs.winner = "unfinished"
	}
	for _, e := range log.Filter("combat", "killed") {
		rs.assists += int(e.NumVal)
	}
	return rs
}

func firstTick(entries []game.SimLogEntry, category, key, contains string) int {
	for _, e := range entries {
		if e.Category != category || e.Key != key {
			continue
		}
		if contains == "" || strings.Contains(e.Value, contains) {
			return e.Tick
		}
	}
	return -1
}

// runLogPath numbers event log files when there is more than one run.
func runLogPath(base string, runIndex, runs int) string {
	if runs <= 1 {
		return base
	}
	dir, file := filepath.Split(base)
	stem, ext := file, ""
	for _, suffix := range []string{".jsonl.zst", ".zst", ".jsonl"} {
		if strings.HasSuffix(file, suffix) {
			stem, ext = strings.TrimSuffix(file, suffix), suffix
			break
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s-run%02d%s", stem, runIndex, ext))
}

// detectStalemate flags runs where neither side achieved anything decisive:
// most of both sides alive, no zone changing hands and no decisive end.
func detectStalemate(rs runStats) (bool, string) {
	switch rs.endReason {
	case game.EndTicketsDepleted.String(), game.EndTotalControl.String(), game.EndKillTarget.String():
		return false, "decisive_end=" + rs.endReason
	}
	usRate := survivalRate(rs.usSurvivors, rs.usTotal)
	opRate := survivalRate(rs.opforSurvivors, rs.opforTotal)
	var reasons []string
	if usRate >= 0.6 && opRate >= 0.6 {
		reasons = append(reasons, fmt.Sprintf("high_mutual_survival(us=%.0f%% opfor=%.0f%%)", usRate*100, opRate*100))
	}
	if rs.captures == 0 {
		reasons = append(reasons, "no_zone_changes")
	}
	if len(reasons) < 2 {
		return false, "activity: " + fmt.Sprintf("captures=%d us_survival=%.0f%% opfor_survival=%.0f%%", rs.captures, usRate*100, opRate*100)
	}
	return true, strings.Join(reasons, ",")
}

func survivalRate(alive, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(alive) / float64(total)
}

func printRun(w io.Writer, rs runStats) {
	fmt.Fprintf(w, "--- Run %d (seed=%d match=%s) ---\n", rs.runIndex, rs.seed, rs.matchID)
	fmt.Fprintf(w, "result: winner=%s reason=%s ticks=%d duration=%.1fs\n", rs.winner, rs.endReason, rs.ticks, rs.duration)
	fmt.Fprintf(w, "tickets: US=%.0f OPFOR=%.0f  kills: US=%d OPFOR=%d assists=%d\n",
		rs.tickets[game.FactionUS], rs.tickets[game.FactionOPFOR], rs.kills[game.FactionUS], rs.kills[game.FactionOPFOR], rs.assists)
	fmt.Fprintf(w, "phase_markers: contact=%d engage=%d first_death=%d first_capture=%d\n",
		rs.firstContactTick, rs.firstEngageTick, rs.firstDeathTick, rs.firstCaptureTick)
	fmt.Fprintf(w, "event_totals: state_change=%d captured=%d neutralized=%d flanks=%d callouts=%d\n",
		rs.stateChanges, rs.captures, rs.neutralizations, rs.flanks, rs.callouts)
	fmt.Fprintf(w, "fire: shots=%d hits=%d accuracy=%.1f%%\n", rs.shotsFired, rs.hits, pct(rs.hits, rs.shotsFired))
	fmt.Fprintf(w, "survivors: US=%d/%d OPFOR=%d/%d\n", rs.usSurvivors, rs.usTotal, rs.opforSurvivors, rs.opforTotal)
	if stale, reason := detectStalemate(rs); stale {
		fmt.Fprintf(w, "stalemate: %s\n", reason)
	}
	fmt.Fprintln(w)
}

func printAggregate(w io.Writer, all []runStats) {
	wins := map[string]int{}
	reasons := map[string]int{}
	totalKills, totalAssists, totalCaptures, totalFlanks := 0, 0, 0, 0
	totalShots, totalHits, stalemates := 0, 0, 0
	contactTicks := make([]int, 0, len(all))
	deathTicks := make([]int, 0, len(all))
	captureTicks := make([]int, 0, len(all))
	durations := 0.0

	for _, rs := range all {
		wins[rs.winner]++
		reasons[rs.endReason]++
		totalKills += rs.kills[game.FactionUS] + rs.kills[game.FactionOPFOR]
		totalAssists += rs.assists
		totalCaptures += rs.captures
		totalFlanks += rs.flanks
		totalShots += rs.shotsFired
		totalHits += rs.hits
		durations += rs.duration
		if stale, _ := detectStalemate(rs); stale {
			stalemates++
		}
		if rs.firstContactTick >= 0 {
			contactTicks = append(contactTicks, rs.firstContactTick)
		}
		if rs.firstDeathTick >= 0 {
			deathTicks = append(deathTicks, rs.firstDeathTick)
		}
		if rs.firstCaptureTick >= 0 {
			captureTicks = append(captureTicks, rs.firstCaptureTick)
		}
	}

	fmt.Fprintln(w, "=== Aggregate ===")
	fmt.Fprintf(w, "runs=%d wins=[%s] end_reasons=[%s] stalemates=%d\n", len(all), joinCounts(wins), joinCounts(reasons), stalemates)
	fmt.Fprintf(w, "avg_per_run: kills=%.1f assists=%.1f captures=%.1f flanks=%.1f duration=%.1fs\n",
		avg(totalKills, len(all)), avg(totalAssists, len(all)), avg(totalCaptures, len(all)), avg(totalFlanks, len(all)), durations/float64(max(1, len(all))))
	fmt.Fprintf(w, "accuracy=%.1f%% (%d/%d)\n", pct(totalHits, totalShots), totalHits, totalShots)
	fmt.Fprintf(w, "phase_marker_avg_ticks: first_contact=%s first_death=%s first_capture=%s\n",
		avgTickString(contactTicks), avgTickString(deathTicks), avgTickString(captureTicks))
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func pct(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}

func joinCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}
