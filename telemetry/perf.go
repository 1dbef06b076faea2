package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies one part of a simulation tick.
type Phase int

const (
	PhaseSnapshot Phase = iota
	PhaseCompute
	PhaseApply
	PhaseEvolve // generation boundary: scoring, breeding, respawn

	numPhases
)

var phaseNames = [numPhases]string{"snapshot", "compute", "apply", "evolve"}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

type tickSample struct {
	total  time.Duration
	phases [numPhases]time.Duration
	agents int
}

// PerfCollector keeps per-phase tick timings over a ring of recent ticks.
// Phases are fixed, so recording a tick does not allocate.
type PerfCollector struct {
	ring   []tickSample
	next   int
	filled int

	cur        tickSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool
}

// NewPerfCollector creates a collector averaging over the last window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{ring: make([]tickSample, window)}
}

// StartTick begins timing a new tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.cur = tickSample{}
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = phase
	p.inPhase = true
}

// CountAgents records how many agents the current tick processed.
func (p *PerfCollector) CountAgents(n int) {
	p.cur.agents = n
}

// EndTick closes the tick and stores it in the ring.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	if p.filled < len(p.ring) {
		p.filled++
	}
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase && p.phase >= 0 && p.phase < numPhases {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
	p.inPhase = false
}

// PerfStats is the aggregate over the collector's window.
type PerfStats struct {
	Samples int

	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	TicksPerSecond  float64

	PhaseAvg [numPhases]time.Duration
	PhasePct [numPhases]float64 // share of the average tick

	AvgAgents        float64
	AgentStepsPerSec float64
}

// Stats aggregates the ticks currently in the window.
func (p *PerfCollector) Stats() PerfStats {
	var s PerfStats
	if p.filled == 0 {
		return s
	}
	s.Samples = p.filled

	var total time.Duration
	var phaseSum [numPhases]time.Duration
	agents := 0
	for i, t := range p.ring[:p.filled] {
		total += t.total
		if i == 0 || t.total < s.MinTickDuration {
			s.MinTickDuration = t.total
		}
		s.MaxTickDuration = max(s.MaxTickDuration, t.total)
		for ph, d := range t.phases {
			phaseSum[ph] += d
		}
		agents += t.agents
	}

	n := time.Duration(p.filled)
	s.AvgTickDuration = total / n
	s.AvgAgents = float64(agents) / float64(p.filled)
	for ph := range phaseSum {
		s.PhaseAvg[ph] = phaseSum[ph] / n
		if s.AvgTickDuration > 0 {
			s.PhasePct[ph] = float64(s.PhaseAvg[ph]) / float64(s.AvgTickDuration) * 100
		}
	}
	if total > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
		s.AgentStepsPerSec = float64(agents) / total.Seconds()
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("samples", s.Samples),
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
		slog.Float64("agent_steps_per_sec", s.AgentStepsPerSec),
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		if s.PhaseAvg[ph] > 0 {
			attrs = append(attrs, slog.Float64(ph.String()+"_pct", s.PhasePct[ph]))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfRow is one perf.csv record.
type PerfRow struct {
	Generation       int     `csv:"generation"`
	Samples          int     `csv:"samples"`
	AvgTickUS        int64   `csv:"avg_tick_us"`
	MinTickUS        int64   `csv:"min_tick_us"`
	MaxTickUS        int64   `csv:"max_tick_us"`
	TicksPerSec      float64 `csv:"ticks_per_sec"`
	AvgAgents        float64 `csv:"avg_agents"`
	AgentStepsPerSec float64 `csv:"agent_steps_per_sec"`
	SnapshotPct      float64 `csv:"snapshot_pct"`
	ComputePct       float64 `csv:"compute_pct"`
	ApplyPct         float64 `csv:"apply_pct"`
	EvolvePct        float64 `csv:"evolve_pct"`
}

// Row flattens the stats for perf.csv.
func (s PerfStats) Row(generation int) PerfRow {
	return PerfRow{
		Generation:       generation,
		Samples:          s.Samples,
		AvgTickUS:        s.AvgTickDuration.Microseconds(),
		MinTickUS:        s.MinTickDuration.Microseconds(),
		MaxTickUS:        s.MaxTickDuration.Microseconds(),
		TicksPerSec:      s.TicksPerSecond,
		AvgAgents:        s.AvgAgents,
		AgentStepsPerSec: s.AgentStepsPerSec,
		SnapshotPct:      s.PhasePct[PhaseSnapshot],
		ComputePct:       s.PhasePct[PhaseCompute],
		ApplyPct:         s.PhasePct[PhaseApply],
		EvolvePct:        s.PhasePct[PhaseEvolve],
	}
}
