package game

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
)

// SimConfig tunes a match. Durations are simulated time.
type SimConfig struct {
	Seed              int64
	CellSize          float64 // spatial grid cell, metres
	WorldSize         float64 // octree bounds, metres per side
	UseOctree         bool    // answer AI proximity queries from the octree instead of the grid
	OccupancyInterval time.Duration
	DeathGrace        time.Duration // how long the dead stay in the table
	LODHighRange      float64
	LODMediumRange    float64
	Influence         InfluenceConfig
	Economy           EconomyConfig
}

// DefaultSimConfig returns the standard match setup.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Seed:              1,
		CellSize:          8,
		WorldSize:         512,
		OccupancyInterval: defaultOccupancyInterval,
		DeathGrace:        5 * time.Second,
		LODHighRange:      150,
		LODMediumRange:    300,
		Influence:         DefaultInfluenceConfig(),
		Economy:           DefaultEconomyConfig(),
	}
}

// SimDeps are the external collaborators of a Sim. Every field is optional.
type SimDeps struct {
	// Clock drives every throttle. When nil the Sim owns a ManualClock and
	// advances it by dt on each Update.
	Clock   Clock
	Rand    Rand
	Logger  zerolog.Logger
	Log     *SimLog
	Voice   VoiceSink
	Sight   LineOfSight
	Terrain Terrain
	Cover   CoverSource
	Meter   metric.Meter

	Observers []MatchObserver
}

// Sim is the composition root: it owns the combatant table, zones and squads
// and runs every component once per tick in a fixed order.
type Sim struct {
	cfg     SimConfig
	clock   Clock
	manual  *ManualClock
	rng     Rand
	logger  zerolog.Logger
	log     *SimLog
	metrics *simMetrics
	terrain Terrain

	combatants map[CombatantID]*Combatant
	order      []*Combatant // ascending ID
	nextID     CombatantID

	grid      *SpatialGrid
	octree    *Octree
	zones     *ZoneManager
	squads    *SquadRoster
	capture   *CaptureLogic
	influence *InfluenceField
	economy   *TicketEconomy
	assists   *AssistTracker
	cluster   *ClusterManager
	flanking  *FlankingCoordinator
	ai        *CombatantAI
	resolver  *CombatResolver
	voice     VoiceSink
	observers []MatchObserver

	tick      int
	elapsed   float64
	playerPos Vec3
	hasPlayer bool
	frustum   *Frustum
	ended     bool
}

// NewSim builds a match with no combatants, zones or squads.
func NewSim(cfg SimConfig, deps SimDeps) *Sim {
	s := &Sim{
		cfg:        cfg,
		clock:      deps.Clock,
		rng:        deps.Rand,
		logger:     deps.Logger,
		log:        deps.Log,
		terrain:    deps.Terrain,
		combatants: make(map[CombatantID]*Combatant),
		nextID:     1,
		observers:  deps.Observers,
	}
	if s.clock == nil {
		s.manual = NewManualClock(simEpoch)
		s.clock = s.manual
	}
	if s.rng == nil {
		s.rng = NewRand(cfg.Seed)
	}
	if s.log == nil {
		s.log = NewSimLog(false)
	}

	m := deps.Meter
	if m == nil {
		m = meter()
	}
	sm, err := newSimMetrics(m)
	if err != nil {
		s.logger.Warn().Err(err).Msg("metrics disabled")
		sm = noopSimMetrics()
	}
	s.metrics = sm

	half := cfg.WorldSize / 2
	s.grid = NewSpatialGrid(cfg.CellSize)
	s.octree = NewOctree(AABB{Min: V3(-half, -half, -half), Max: V3(half, half, half)})
	s.zones = NewZoneManager(s.clock, cfg.OccupancyInterval)
	s.squads = NewSquadRoster()
	s.capture = NewCaptureLogic(s.logger)
	s.influence = NewInfluenceField(cfg.Influence, InfluenceSources{
		Combatants: s,
		Zones:      s.zones,
		Cover:      deps.Cover,
	}, s.clock)
	s.economy = NewTicketEconomy(cfg.Economy, s.zones, s.logger)
	s.assists = NewAssistTracker()
	s.cluster = NewClusterManager(s.rng)
	s.flanking = NewFlankingCoordinator(s.rng, s.logger)

	s.voice = deps.Voice
	if s.voice == nil {
		s.voice = NewCalloutBoard(s.clock, s.rng)
	}
	cover := NewCoverFinder(deps.Cover)
	s.resolver = NewCombatResolver(s.rng, cover, s.assists)
	s.ai = NewCombatantAI(AIDeps{
		Zones:     s.zones,
		Squads:    s.squads,
		Influence: s.influence,
		Cover:     cover,
		Voice:     s.voice,
		Terrain:   deps.Terrain,
		Targeting: NewTargeting(s.cluster, deps.Sight),
		Cluster:   s.cluster,
		Flanking:  s.flanking,
		Rand:      s.rng,
		Clock:     s.clock,
		Logger:    s.logger,
		Log:       s.log,
		Tick:      func() int { return s.tick },
	})
	return s
}

// --- setup ---

// Spawn adds a live combatant and returns it.
func (s *Sim) Spawn(faction Faction, pos Vec3, skill SkillProfile) *Combatant {
	if s.terrain != nil {
		pos.Y = s.terrain.HeightAt(pos.X, pos.Z)
	}
	c := NewCombatant(s.nextID, faction, pos, skill)
	s.nextID++
	s.combatants[c.ID] = c
	s.order = append(s.order, c)
	return c
}

// AddSquad groups existing combatants. The first member leads.
func (s *Sim) AddSquad(id string, faction Faction, playerControlled bool, members ...CombatantID) *Squad {
	sq := NewSquad(id, faction, members...)
	sq.IsPlayerControlled = playerControlled
	for _, m := range members {
		if c, ok := s.combatants[m]; ok {
			c.SquadID = id
		}
	}
	s.squads.Add(sq)
	return sq
}

// AddZone registers a capture zone or home base.
func (s *Sim) AddZone(z *CaptureZone) {
	s.zones.Add(z)
}

// AddObserver subscribes o to match events.
func (s *Sim) AddObserver(o MatchObserver) {
	s.observers = append(s.observers, o)
}

// IssueCommand forwards a player order to a squad.
func (s *Sim) IssueCommand(squadID string, cmd SquadCommand, pos *Vec3) bool {
	ok := s.squads.IssueCommand(squadID, cmd, pos)
	if ok {
		s.log.Add(s.tick, squadID, "--", "squad", "command", cmd.String(), 0)
	}
	return ok
}

// SetPlayerPosition places the player for LOD, influence threat and FOLLOW_ME.
func (s *Sim) SetPlayerPosition(p Vec3) {
	s.playerPos = p
	s.hasPlayer = true
	s.influence.SetPlayerPosition(p)
}

// ClearPlayer removes the player from the world.
func (s *Sim) ClearPlayer() {
	s.hasPlayer = false
	s.frustum = nil
	s.influence.ClearPlayerPosition()
}

// SetPlayerFrustum boosts AI detail for combatants on screen. nil disables it.
func (s *Sim) SetPlayerFrustum(f *Frustum) {
	s.frustum = f
}

// --- accessors ---

// CombatantList returns every combatant in the table, dead included, by ID.
func (s *Sim) CombatantList() []*Combatant {
	return s.order
}

// Combatant looks a combatant up by id.
func (s *Sim) Combatant(id CombatantID) (*Combatant, bool) {
	c, ok := s.combatants[id]
	return c, ok
}

func (s *Sim) Zones() *ZoneManager            { return s.zones }
func (s *Sim) Squads() *SquadRoster           { return s.squads }
func (s *Sim) Economy() *TicketEconomy        { return s.economy }
func (s *Sim) Influence() *InfluenceField     { return s.influence }
func (s *Sim) Grid() *SpatialGrid             { return s.grid }
func (s *Sim) Octree() *Octree                { return s.octree }
func (s *Sim) Flanking() *FlankingCoordinator { return s.flanking }
func (s *Sim) Resolver() *CombatResolver      { return s.resolver }
func (s *Sim) Voice() VoiceSink               { return s.voice }
func (s *Sim) SimLog() *SimLog                { return s.log }
func (s *Sim) Clock() Clock                   { return s.clock }
func (s *Sim) Tick() int                      { return s.tick }
func (s *Sim) Elapsed() float64               { return s.elapsed }
func (s *Sim) GameState() GameState           { return s.economy.GameState() }
func (s *Sim) Ended() bool                    { return s.ended }

// Alive counts live combatants of f.
func (s *Sim) Alive(f Faction) int {
	n := 0
	for _, c := range s.order {
		if c.Alive() && c.Faction == f {
			n++
		}
	}
	return n
}

func (s *Sim) aiIndex() SpatialIndex {
	if s.cfg.UseOctree {
		return s.octree
	}
	return s.grid
}

func (s *Sim) matchMs() int64 {
	return int64(s.elapsed * 1000)
}

// --- tick ---

// Update advances the whole simulation by dt seconds:
// spatial index, occupancy, capture, influence, AI, movement, combat, economy.
func (s *Sim) Update(dt float64) {
	if s.ended || dt <= 0 {
		return
	}
	wallStart := time.Now()
	ctx := context.Background()

	s.tick++
	s.elapsed += dt
	if s.manual != nil {
		s.manual.Advance(secondsToDuration(dt))
	}
	now := s.clock.Now()
	phaseBefore := s.economy.Phase()

	s.grid.Rebuild(s.order)
	s.octree.Rebuild(s.order)

	s.zones.RefreshOccupancy(s.grid, s.combatants)
	for _, z := range s.zones.Zones() {
		ev := s.capture.UpdateZoneCaptureState(z, s.zones.Occupancy(z.ID), dt)
		if ev.Kind != ZoneEventNone {
			ev.AtSeconds = s.elapsed
			s.onZoneEvent(ctx, ev)
		}
	}

	if s.influence.Update(dt) {
		s.metrics.recordInfluence(ctx)
	}

	s.cluster.BeginTick(s.order)
	s.updateLOD()
	index := s.aiIndex()
	for _, c := range s.order {
		if !c.Alive() {
			continue
		}
		c.pendingDt += dt
		if !s.aiDue(c) {
			continue
		}
		step := c.pendingDt
		c.pendingDt = 0
		s.ai.UpdateAI(c, step, s.playerPos, s.combatants, index)
	}
	s.applyMovement(dt)

	for _, d := range s.resolver.Resolve(s.order, s.combatants, s.octree, now, s.matchMs()) {
		s.handleDeath(ctx, d)
	}

	s.economy.Update(dt)
	if phase := s.economy.Phase(); phase != phaseBefore {
		s.onPhaseChange(phaseBefore, phase)
	}

	s.purgeDead(now)
	s.metrics.recordTick(ctx, float64(time.Since(wallStart).Microseconds())/1000)
}

// updateLOD grades every live combatant by distance to the player. Units inside
// the player's frustum are promoted one level; units in a firefight never drop to LOW.
func (s *Sim) updateLOD() {
	var visible map[CombatantID]bool
	if s.frustum != nil {
		ids := s.octree.QueryFrustum(*s.frustum)
		visible = make(map[CombatantID]bool, len(ids))
		for _, id := range ids {
			visible[id] = true
		}
	}
	for _, c := range s.order {
		if !c.Alive() {
			continue
		}
		if !s.hasPlayer {
			c.DistanceToPlayer = 0
			c.LODLevel = LODHigh
			c.UpdatePriority = 0
			continue
		}
		d := c.Position.Dist(s.playerPos)
		c.DistanceToPlayer = d
		level := LODLow
		switch {
		case d < s.cfg.LODHighRange:
			level = LODHigh
		case d < s.cfg.LODMediumRange:
			level = LODMedium
		}
		if visible[c.ID] && level > LODHigh {
			level--
		}
		inFight := c.State == StateAlert || c.State == StateEngaging || c.State == StateSuppressing
		if inFight && level == LODLow {
			level = LODMedium
		}
		c.LODLevel = level
		c.UpdatePriority = int(level)
		if inFight {
			c.UpdatePriority = 0
		}
	}
}

// aiDue spreads reduced-detail units across ticks by ID.
func (s *Sim) aiDue(c *Combatant) bool {
	switch c.LODLevel {
	case LODMedium:
		return (s.tick+int(c.ID))%2 == 0
	case LODLow:
		return (s.tick+int(c.ID))%4 == 0
	default:
		return true
	}
}

func (s *Sim) applyMovement(dt float64) {
	half := s.cfg.WorldSize / 2
	for _, c := range s.order {
		if !c.Alive() || !c.Intent.Move || c.Intent.Speed <= 0 {
			c.Velocity = Vec3{}
			continue
		}
		to := c.Intent.MoveTo.Sub(c.Position).Flat()
		dist := to.Len()
		if dist < 1e-6 {
			c.Velocity = Vec3{}
			continue
		}
		next := c.Intent.MoveTo
		if step := c.Intent.Speed * dt; step < dist {
			next = c.Position.Add(to.Scale(step / dist))
		}
		next.X = clamp(next.X, -half, half)
		next.Z = clamp(next.Z, -half, half)
		if s.terrain != nil {
			next.Y = s.terrain.HeightAt(next.X, next.Z)
		} else {
			next.Y = c.Position.Y
		}
		c.Velocity = next.Sub(c.Position).Scale(1 / dt)
		c.Position = next
		if c.InCover && c.Position.Dist2D(c.CoverPosition) > arriveRadius {
			c.InCover = false
		}
	}
}

// ApplyDamage lets an external combat system hurt a combatant. It returns true
// if the hit was fatal.
func (s *Sim) ApplyDamage(victim, attacker CombatantID, amount float64) bool {
	c, ok := s.combatants[victim]
	if !ok || !c.Alive() || amount <= 0 {
		return false
	}
	s.assists.RecordDamage(victim, attacker, amount, s.matchMs())
	c.Health -= amount
	if c.Health > 0 {
		return false
	}
	phaseBefore := s.economy.Phase()
	c.markDead(s.clock.Now())
	s.handleDeath(context.Background(), Death{Victim: victim, Killer: attacker})
	if phase := s.economy.Phase(); phase != phaseBefore {
		s.onPhaseChange(phaseBefore, phase)
	}
	return true
}

// handleDeath propagates a kill: dangling targets cleared, index entries
// dropped, economy charged, assists credited, squad leadership re-elected.
func (s *Sim) handleDeath(ctx context.Context, d Death) {
	victim, ok := s.combatants[d.Victim]
	if !ok {
		return
	}
	for _, c := range s.order {
		if c.Target == d.Victim {
			c.ClearTarget()
		}
	}
	s.grid.Remove(d.Victim)
	s.octree.Remove(d.Victim)

	assists := s.assists.Assists(d.Victim, d.Killer, s.matchMs())
	s.economy.OnCombatantDeath(victim.Faction)
	s.metrics.recordDeath(ctx, victim.Faction)

	ev := KillEvent{
		AtSeconds:     s.elapsed,
		Victim:        d.Victim,
		VictimFaction: victim.Faction,
		Killer:        d.Killer,
		KillerFaction: victim.Faction.Opponent(),
		Assists:       assists,
	}
	killerLabel := "--"
	if k, ok := s.combatants[d.Killer]; ok {
		killerLabel = k.Label()
		ev.KillerFaction = k.Faction
	}
	s.log.Add(s.tick, victim.Label(), victim.Faction.String(), "combat", "killed",
		fmt.Sprintf("by %s assists=%d", killerLabel, len(assists)), float64(len(assists)))
	s.logger.Debug().Str("victim", victim.Label()).Str("killer", killerLabel).Int("assists", len(assists)).Msg("combatant killed")
	for _, o := range s.observers {
		o.OnKill(ev)
	}

	sq, ok := s.squads.Get(victim.SquadID)
	if !ok {
		return
	}
	if mates := sq.Alive(s.combatants); len(mates) > 0 {
		s.voice.TriggerCallout(mates[0], CalloutManDown, victim.Position)
	}
	if sq.electLeader(s.combatants) {
		if leader, ok := sq.Leader(s.combatants); ok {
			s.log.Add(s.tick, leader.Label(), leader.Faction.String(), "squad", "leader", sq.ID, 0)
		}
	}
}

func (s *Sim) onZoneEvent(ctx context.Context, ev ZoneEvent) {
	s.log.Add(s.tick, ev.ZoneID, ev.Faction.String(), "zone", ev.Kind.String(), ev.Faction.String(), s.elapsed)
	if ev.Kind == ZoneEventCaptured {
		s.metrics.recordCapture(ctx, ev.Faction)
	}
	for _, o := range s.observers {
		o.OnZoneEvent(ev)
	}
}

func (s *Sim) onPhaseChange(from, to MatchPhase) {
	s.log.Add(s.tick, "--", "--", "ticket", "phase", fmt.Sprintf("%s → %s", from, to), s.elapsed)
	for _, o := range s.observers {
		o.OnPhaseChange(from, to, s.elapsed)
	}
	if to != PhaseEnded {
		return
	}
	s.ended = true
	gs := s.economy.GameState()
	winner := "draw"
	if gs.Winner != nil {
		winner = gs.Winner.String()
	}
	s.log.Add(s.tick, "--", winner, "ticket", "match_end", gs.EndReason.String(), s.elapsed)
	for _, o := range s.observers {
		o.OnMatchEnd(gs)
	}
}

// purgeDead drops combatants whose death grace window has passed.
func (s *Sim) purgeDead(now time.Time) {
	kept := s.order[:0]
	for _, c := range s.order {
		if c.Alive() || now.Sub(c.DeathTime) < s.cfg.DeathGrace {
			kept = append(kept, c)
			continue
		}
		delete(s.combatants, c.ID)
		s.assists.Forget(c.ID)
		if sq, ok := s.squads.Get(c.SquadID); ok {
			sq.removeMember(c.ID)
		}
	}
	for i := len(kept); i < len(s.order); i++ {
		s.order[i] = nil
	}
	s.order = kept
}
