package evolve

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/rockets/config"
	"github.com/pthm-cable/rockets/neural"
)

var errNoCandidates = errors.New("no ranked members to select from")

// Member is one scored policy network.
type Member struct {
	Net   *neural.FFNN
	Score float64
}

// Selector chooses parents from members ranked by descending score.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked []Member) (*neural.FFNN, error)
}

// NewSelector builds the selector named in the config.
func NewSelector(cfg config.SelectionConfig) (Selector, error) {
	switch cfg.Method {
	case "power":
		return PowerSelector{Power: cfg.Power}, nil
	case "tournament":
		return TournamentSelector{TournamentSize: cfg.TournamentSize}, nil
	default:
		return nil, fmt.Errorf("unknown selection method %q", cfg.Method)
	}
}

// PowerSelector picks index floor(u^power * n) for uniform u, so higher
// powers concentrate on the top of the ranking. Power 1 is uniform.
type PowerSelector struct {
	Power float64
}

func (PowerSelector) Name() string {
	return "power"
}

func (s PowerSelector) PickParent(rng *rand.Rand, ranked []Member) (*neural.FFNN, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return nil, errNoCandidates
	}

	power := s.Power
	if power <= 0 {
		power = 1
	}
	idx := int(math.Floor(math.Pow(rng.Float64(), power) * float64(len(ranked))))
	idx = min(idx, len(ranked)-1)
	return ranked[idx].Net, nil
}

// TournamentSelector samples candidates and picks the best score among them.
type TournamentSelector struct {
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked []Member) (*neural.FFNN, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return nil, errNoCandidates
	}

	tournamentSize := s.TournamentSize
	if tournamentSize <= 0 {
		tournamentSize = 3
	}

	best := ranked[rng.Intn(len(ranked))]
	for i := 1; i < tournamentSize; i++ {
		candidate := ranked[rng.Intn(len(ranked))]
		if candidate.Score > best.Score {
			best = candidate
		}
	}
	return best.Net, nil
}
