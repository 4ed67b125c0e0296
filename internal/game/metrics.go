package game

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/Garsondee/frontline/internal/game"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// simMetrics are the OTel instruments a Sim reports to. With no global
// provider installed they are no-ops.
type simMetrics struct {
	ticks               metric.Int64Counter
	deaths              metric.Int64Counter
	zoneCaptures        metric.Int64Counter
	influenceRecomputes metric.Int64Counter
	tickDuration        metric.Float64Histogram
}

func newSimMetrics(m metric.Meter) (*simMetrics, error) {
	sm := &simMetrics{}
	var err error

	sm.ticks, err = m.Int64Counter(
		"frontline.sim.ticks",
		metric.WithDescription("Simulation ticks advanced"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	sm.deaths, err = m.Int64Counter(
		"frontline.sim.deaths",
		metric.WithDescription("Combatant deaths resolved"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating deaths counter: %w", err)
	}

	sm.zoneCaptures, err = m.Int64Counter(
		"frontline.sim.zone_captures",
		metric.WithDescription("Zones captured"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zone captures counter: %w", err)
	}

	sm.influenceRecomputes, err = m.Int64Counter(
		"frontline.sim.influence_recomputes",
		metric.WithDescription("Influence field recomputations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating influence counter: %w", err)
	}

	sm.tickDuration, err = m.Float64Histogram(
		"frontline.sim.tick_duration_ms",
		metric.WithDescription("Wall time spent in one simulation tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}

	return sm, nil
}

// noopSimMetrics never fails.
func noopSimMetrics() *simMetrics {
	sm, _ := newSimMetrics(noop.Meter{})
	return sm
}

func factionAttr(f Faction) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("faction", f.String()))
}

func (sm *simMetrics) recordTick(ctx context.Context, ms float64) {
	sm.ticks.Add(ctx, 1)
	sm.tickDuration.Record(ctx, ms)
}

func (sm *simMetrics) recordDeath(ctx context.Context, victim Faction) {
	sm.deaths.Add(ctx, 1, factionAttr(victim))
}

func (sm *simMetrics) recordCapture(ctx context.Context, owner Faction) {
	sm.zoneCaptures.Add(ctx, 1, factionAttr(owner))
}

func (sm *simMetrics) recordInfluence(ctx context.Context) {
	sm.influenceRecomputes.Add(ctx, 1)
}
