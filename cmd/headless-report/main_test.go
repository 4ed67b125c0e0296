package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Garsondee/frontline/internal/eventlog"
	"github.com/Garsondee/frontline/internal/game"
	"github.com/Garsondee/frontline/internal/recorder"
)

func TestFirstTick(t *testing.T) {
	entries := []game.SimLogEntry{
		{Tick: 3, Category: "state", Key: "transition", Value: "idle → patrolling (spawn)"},
		{Tick: 9, Category: "state", Key: "transition", Value: "patrolling → alert (contact)"},
		{Tick: 12, Category: "combat", Key: "killed", Value: "by U1 assists=0"},
	}
	if got := firstTick(entries, "state", "transition", "→ alert"); got != 9 {
		t.Fatalf("expected first alert at tick 9, got %d", got)
	}
	if got := firstTick(entries, "combat", "killed", ""); got != 12 {
		t.Fatalf("expected first kill at tick 12, got %d", got)
	}
	if got := firstTick(entries, "zone", "captured", ""); got != -1 {
		t.Fatalf("expected -1 for missing marker, got %d", got)
	}
}

func TestDetectStalemate_TrueWhenMutualSurvivalAndNoCaptures(t *testing.T) {
	rs := runStats{
		endReason:      game.EndTimeLimit.String(),
		usTotal:        8,
		opforTotal:     8,
		usSurvivors:    6,
		opforSurvivors: 7,
	}

	isStalemate, reason := detectStalemate(rs)
	if !isStalemate {
		t.Fatalf("expected stalemate=true, got false (reason=%s)", reason)
	}
	if !strings.Contains(reason, "high_mutual_survival") {
		t.Fatalf("expected reason to mention high_mutual_survival, got: %s", reason)
	}
}

func TestDetectStalemate_FalseWhenZoneChangesHands(t *testing.T) {
	rs := runStats{
		endReason:      game.EndTimeLimit.String(),
		usTotal:        8,
		opforTotal:     8,
		usSurvivors:    6,
		opforSurvivors: 7,
		captures:       1,
	}

	if isStalemate, reason := detectStalemate(rs); isStalemate {
		t.Fatalf("expected stalemate=false once a zone is captured (reason=%s)", reason)
	}
}

func TestDetectStalemate_FalseWhenAttritionDecisive(t *testing.T) {
	rs := runStats{
		endReason:      game.EndTimeLimit.String(),
		usTotal:        8,
		opforTotal:     8,
		usSurvivors:    2,
		opforSurvivors: 7,
	}

	if isStalemate, reason := detectStalemate(rs); isStalemate {
		t.Fatalf("expected stalemate=false under decisive attrition (reason=%s)", reason)
	}
}

func TestDetectStalemate_FalseOnDecisiveEnd(t *testing.T) {
	rs := runStats{endReason: game.EndTicketsDepleted.String(), usTotal: 8, opforTotal: 8, usSurvivors: 8, opforSurvivors: 8}
	isStalemate, reason := detectStalemate(rs)
	if isStalemate || !strings.HasPrefix(reason, "decisive_end=") {
		t.Fatalf("expected decisive end, got stalemate=%v reason=%s", isStalemate, reason)
	}
}

func TestRunLogPath(t *testing.T) {
	cases := []struct {
		base      string
		run, runs int
		want      string
	}{
		{"out/events.jsonl.zst", 1, 1, "out/events.jsonl.zst"},
		{"out/events.jsonl.zst", 3, 5, "out/events-run03.jsonl.zst"},
		{"events.zst", 2, 2, "events-run02.zst"},
		{"events", 1, 2, "events-run01"},
	}
	for _, tc := range cases {
		if got := runLogPath(tc.base, tc.run, tc.runs); got != tc.want {
			t.Fatalf("runLogPath(%q, %d, %d) = %q, want %q", tc.base, tc.run, tc.runs, got, tc.want)
		}
	}
}

func TestJoinCountsSorted(t *testing.T) {
	if got := joinCounts(map[string]int{"US": 2, "OPFOR": 1, "draw": 1}); got != "OPFOR=1 US=2 draw=1" {
		t.Fatalf("unexpected join: %s", got)
	}
	if got := joinCounts(nil); got != "none" {
		t.Fatalf("expected none, got %s", got)
	}
}

func TestRun_WritesReportRecordsAndEventLogs(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		runs:         2,
		maxTicks:     150,
		seedBase:     11,
		seedStep:     1,
		dbPath:       filepath.Join(dir, "matches.db"),
		eventLogPath: filepath.Join(dir, "events.jsonl.zst"),
	}
	var out bytes.Buffer
	if err := run(context.Background(), opts, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	report := out.String()
	for _, want := range []string{"=== Headless Match Report ===", "--- Run 1 (seed=11", "--- Run 2 (seed=12", "=== Aggregate ===", "=== Recorded Matches"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}

	for _, name := range []string{"events-run01.jsonl.zst", "events-run02.jsonl.zst"} {
		entries, err := eventlog.ReadEntries(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(entries) == 0 {
			t.Fatalf("%s is empty", name)
		}
	}

	store, err := recorder.Open(opts.dbPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	matches, err := store.Matches(context.Background())
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 recorded matches, got %d", len(matches))
	}
	for _, m := range matches {
		if m.Scenario != "crossroads" || m.Finished {
			t.Fatalf("unexpected record: scenario=%s finished=%v", m.Scenario, m.Finished)
		}
	}
}

func TestRun_RejectsBadFlags(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), options{runs: 0}, &out); err == nil {
		t.Fatal("expected error for zero runs")
	}
	if err := run(context.Background(), options{runs: 1, maxTicks: -1}, &out); err == nil {
		t.Fatal("expected error for negative tick cap")
	}
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if err := run(context.Background(), options{runs: 1, scenarioPath: missing}, &out); err == nil {
		t.Fatal("expected error for missing scenario")
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Fatalf("scenario file should not have been created: %v", err)
	}
}
