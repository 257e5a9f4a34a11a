// Package selector picks one reviewer out of an eligible candidate set.
package selector

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/goliatone/go-reviewers/pkg/types"
	"github.com/google/uuid"
)

// Strategy controls how candidates are ranked.
type Strategy string

const (
	// StrategyWeighted ranks by weight / max(1, workload).
	StrategyWeighted Strategy = "weighted"
	// StrategyLeastLoaded ranks by lowest workload and uses weight as the
	// tiebreak. Low-weight roles are not starved under sustained load.
	StrategyLeastLoaded Strategy = "least_loaded"
)

const topCandidatesToLog = 5

// Score is the ranking state of a single candidate.
type Score struct {
	ReviewerID uuid.UUID
	Role       string
	Weight     int
	Workload   int
	Capacity   int
	Value      float64
	// AtCapacity marks candidates dropped by the hard concurrency cap.
	AtCapacity bool
}

// Selection is the chosen candidate plus every score computed on the way.
type Selection struct {
	Candidate types.Candidate
	Score     float64
	Workload  int
	Scores    []Score
}

// Option customizes a Selector.
type Option func(*Selector)

// WithStrategy overrides the ranking strategy.
func WithStrategy(strategy Strategy) Option {
	return func(s *Selector) {
		if strategy != "" {
			s.strategy = strategy
		}
	}
}

// WithLogger sets the logger used for the candidate ranking trace.
func WithLogger(logger types.Logger) Option {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Selector scores candidates against their current workload.
type Selector struct {
	strategy Strategy
	logger   types.Logger
}

// New returns a selector using the weighted strategy unless overridden.
func New(opts ...Option) *Selector {
	s := &Selector{strategy: StrategyWeighted, logger: types.NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Strategy reports the active ranking strategy.
func (s *Selector) Strategy() Strategy {
	return s.strategy
}

// WeightedScore is weight / max(1, workload).
func WeightedScore(weight, workload int) float64 {
	if workload < 1 {
		workload = 1
	}
	return float64(weight) / float64(workload)
}

// Select returns the best candidate. Candidates whose workload has reached
// the profile's MaxConcurrentReviews are never chosen; when none remain the
// result is ErrNoCapacity. Missing workload entries count as zero.
func (s *Selector) Select(candidates []types.Candidate, workload map[uuid.UUID]int) (Selection, error) {
	scores := make([]Score, 0, len(candidates))
	available := make([]int, 0, len(candidates))
	for i, candidate := range candidates {
		profile := candidate.Profile.WithDefaults()
		count := workload[candidate.ReviewerID]
		score := Score{
			ReviewerID: candidate.ReviewerID,
			Role:       candidate.Role,
			Weight:     profile.Weight,
			Workload:   count,
			Capacity:   profile.MaxConcurrentReviews,
			Value:      WeightedScore(profile.Weight, count),
			AtCapacity: count >= profile.MaxConcurrentReviews,
		}
		scores = append(scores, score)
		if !score.AtCapacity {
			available = append(available, i)
		}
	}
	if len(available) == 0 {
		return Selection{Scores: scores}, fmt.Errorf("%w: %d candidates at capacity", types.ErrNoCapacity, len(candidates))
	}

	sort.SliceStable(available, func(i, j int) bool {
		return s.less(scores[available[i]], scores[available[j]])
	})

	for rank, idx := range available {
		if rank >= topCandidatesToLog {
			break
		}
		sc := scores[idx]
		s.logger.Debug("selector ranked candidate", "rank", rank+1, "reviewer_id", sc.ReviewerID, "role", sc.Role, "score", sc.Value, "workload", sc.Workload, "capacity", sc.Capacity, "strategy", s.strategy)
	}

	best := available[0]
	return Selection{
		Candidate: candidates[best],
		Score:     scores[best].Value,
		Workload:  scores[best].Workload,
		Scores:    scores,
	}, nil
}

func (s *Selector) less(a, b Score) bool {
	if s.strategy == StrategyLeastLoaded {
		if a.Workload != b.Workload {
			return a.Workload < b.Workload
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return bytes.Compare(a.ReviewerID[:], b.ReviewerID[:]) < 0
	}
	if a.Value != b.Value {
		return a.Value > b.Value
	}
	if a.Workload != b.Workload {
		return a.Workload < b.Workload
	}
	return bytes.Compare(a.ReviewerID[:], b.ReviewerID[:]) < 0
}
