// Package evolve implements a fixed-topology neuro-evolution population of
// feedforward networks for the simulation's Evolver interface.
package evolve

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/pthm-cable/rockets/config"
	"github.com/pthm-cable/rockets/game"
	"github.com/pthm-cable/rockets/neural"
)

// ErrForeignPolicy is returned by SetPopulation for members that are not
// networks of this population's shape.
var ErrForeignPolicy = errors.New("foreign policy")

// MutationStats summarizes the last MutateAll call.
type MutationStats struct {
	Mutated     int
	AvgAbsDelta float64
}

// Population holds scored networks and breeds the next generation.
type Population struct {
	rng      *rand.Rand
	mutation config.MutationConfig
	selector Selector
	sizes    []int
	elitism  int

	members []Member
	last    MutationStats
	lastErr error
}

// NewPopulation creates population.size randomly initialized networks with
// the configured layer sizes.
func NewPopulation(cfg *config.Config, rng *rand.Rand) (*Population, error) {
	selector, err := NewSelector(cfg.Selection)
	if err != nil {
		return nil, fmt.Errorf("new population: %w", err)
	}
	if cfg.Population.Size <= 0 {
		return nil, fmt.Errorf("new population: size must be positive, got %d", cfg.Population.Size)
	}

	p := &Population{
		rng:      rng,
		mutation: cfg.Mutation,
		selector: selector,
		sizes:    append([]int(nil), cfg.Derived.LayerSizes...),
		elitism:  cfg.Derived.ElitismCount,
		members:  make([]Member, cfg.Population.Size),
	}
	for i := range p.members {
		p.members[i].Net = neural.NewFFNN(rng, p.sizes)
	}
	return p, nil
}

// Population returns the networks in slot order.
func (p *Population) Population() []game.Policy {
	out := make([]game.Policy, len(p.members))
	for i, m := range p.members {
		out[i] = m.Net
	}
	return out
}

func (p *Population) Size() int {
	return len(p.members)
}

func (p *Population) Elitism() int {
	return p.elitism
}

func (p *Population) SetScore(i int, score float64) {
	p.members[i].Score = score
}

// Score returns the score of slot i.
func (p *Population) Score(i int) float64 {
	return p.members[i].Score
}

// SortByScore orders members by descending score. Ties keep slot order.
func (p *Population) SortByScore() {
	sort.SliceStable(p.members, func(i, j int) bool {
		return p.members[i].Score > p.members[j].Score
	})
}

// Offspring crosses two selected parents. Call after SortByScore.
// It returns nil on failure; LastError reports why.
func (p *Population) Offspring() game.Policy {
	child, err := p.offspring()
	p.lastErr = err
	if err != nil {
		return nil
	}
	return child
}

func (p *Population) offspring() (*neural.FFNN, error) {
	a, err := p.selector.PickParent(p.rng, p.members)
	if err != nil {
		return nil, fmt.Errorf("offspring: %s: %w", p.selector.Name(), err)
	}
	b, err := p.selector.PickParent(p.rng, p.members)
	if err != nil {
		return nil, fmt.Errorf("offspring: %s: %w", p.selector.Name(), err)
	}
	child, err := neural.Crossover(p.rng, a, b)
	if err != nil {
		return nil, fmt.Errorf("offspring: %w", err)
	}
	return child, nil
}

// LastError returns the error from the most recent Offspring call.
func (p *Population) LastError() error {
	return p.lastErr
}

// SetPopulation replaces the members and clears their scores.
func (p *Population) SetPopulation(policies []game.Policy) error {
	members := make([]Member, len(policies))
	for i, pol := range policies {
		net, ok := pol.(*neural.FFNN)
		if !ok || net == nil {
			return fmt.Errorf("%w: member %d is %T", ErrForeignPolicy, i, pol)
		}
		if !sameSizes(net.Sizes(), p.sizes) {
			return fmt.Errorf("%w: member %d has layers %v, want %v", ErrForeignPolicy, i, net.Sizes(), p.sizes)
		}
		members[i].Net = net
	}
	p.members = members
	return nil
}

// MutateAll applies sparse mutation to each non-elite member with
// probability mutation.rate. Elites are included when mutate_elites is set.
func (p *Population) MutateAll() {
	m := p.mutation
	start := p.elitism
	if m.MutateElites {
		start = 0
	}

	var stats MutationStats
	var deltaSum float64
	for i := start; i < len(p.members); i++ {
		if p.rng.Float64() >= m.Rate {
			continue
		}
		deltaSum += p.members[i].Net.MutateSparse(p.rng, m.WeightRate, m.Sigma, m.BigRate, m.BigSigma, m.BiasRateMultiplier)
		stats.Mutated++
	}
	if stats.Mutated > 0 {
		stats.AvgAbsDelta = deltaSum / float64(stats.Mutated)
	}
	p.last = stats
}

// LastMutation reports what the most recent MutateAll did.
func (p *Population) LastMutation() MutationStats {
	return p.last
}

// Best returns the highest scoring member.
func (p *Population) Best() Member {
	best := p.members[0]
	for _, m := range p.members[1:] {
		if m.Score > best.Score {
			best = m
		}
	}
	return best
}

func sameSizes(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var (
	_ game.Evolver          = (*Population)(nil)
	_ game.OffspringErrorer = (*Population)(nil)
)
