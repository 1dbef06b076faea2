package game

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/pthm-cable/rockets/components"
	"github.com/pthm-cable/rockets/config"
	"github.com/pthm-cable/rockets/systems"
)

// constPolicy always returns the same output.
type constPolicy struct {
	out []float64
}

func (p *constPolicy) Evaluate([]float64) []float64 {
	if p.out == nil {
		return nil
	}
	return append([]float64(nil), p.out...)
}

var (
	thrustOut = []float64{1, 0, 0}
	idleOut   = []float64{0, 0, 0}
	nanOut    = []float64{1, math.NaN(), 0}
)

func newConst(out []float64) Policy {
	return &constPolicy{out: out}
}

// fakeEvolver records how the simulation drives it.
type fakeEvolver struct {
	pop     []Policy
	scores  []float64
	elitism int
	size    int // overrides len(pop) when non-zero

	offspring    func() Policy
	offspringErr error
	setErr       error

	sorted       []Policy // population right after the last SortByScore
	lastSet      []Policy
	sortCalls    int
	offspringN   int
	mutateCalls  int
	scoreHistory [][]float64
}

func newFakeEvolver(pop []Policy, elitism int) *fakeEvolver {
	return &fakeEvolver{pop: pop, scores: make([]float64, len(pop)), elitism: elitism}
}

func (f *fakeEvolver) Population() []Policy { return append([]Policy(nil), f.pop...) }

func (f *fakeEvolver) Size() int {
	if f.size != 0 {
		return f.size
	}
	return len(f.pop)
}

func (f *fakeEvolver) Elitism() int { return f.elitism }

func (f *fakeEvolver) SetScore(i int, score float64) { f.scores[i] = score }

func (f *fakeEvolver) SortByScore() {
	f.sortCalls++
	f.scoreHistory = append(f.scoreHistory, append([]float64(nil), f.scores...))

	idx := make([]int, len(f.pop))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return f.scores[idx[a]] > f.scores[idx[b]] })

	pop := make([]Policy, len(f.pop))
	scores := make([]float64, len(f.scores))
	for i, j := range idx {
		pop[i] = f.pop[j]
		scores[i] = f.scores[j]
	}
	f.pop, f.scores = pop, scores
	f.sorted = append([]Policy(nil), pop...)
}

func (f *fakeEvolver) Offspring() Policy {
	f.offspringN++
	if f.offspring != nil {
		return f.offspring()
	}
	return newConst(thrustOut)
}

func (f *fakeEvolver) LastError() error { return f.offspringErr }

func (f *fakeEvolver) SetPopulation(members []Policy) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.lastSet = append([]Policy(nil), members...)
	f.pop = append([]Policy(nil), members...)
	f.scores = make([]float64, len(members))
	return nil
}

func (f *fakeEvolver) MutateAll() { f.mutateCalls++ }

var errForeign = errors.New("foreign policy type")

func testConfig(t testing.TB) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func centeredTarget(_ *rand.Rand, cfg *config.Config) components.Target {
	return systems.CenteredTarget(cfg)
}

func newTestSim(t testing.TB, cfg *config.Config, ev Evolver, opts ...func(*Options)) *Simulation {
	t.Helper()
	o := Options{
		Config:      cfg,
		Evolver:     ev,
		Seed:        1,
		RunID:       "test",
		Logger:      quietLogger(),
		PlaceTarget: centeredTarget,
	}
	for _, fn := range opts {
		fn(&o)
	}
	sim, err := NewSimulation(o)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	t.Cleanup(sim.Close)
	return sim
}

func mustStep(t testing.TB, sim *Simulation) StepResult {
	t.Helper()
	res, err := sim.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	return res
}
