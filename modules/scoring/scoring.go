// Package scoring implements the Scoring & Filter component of spec.md
// §4.4: a pure, deterministic score in [0,1] combining a length penalty and
// a per-step value-dispersion (fairness) term, plus a tenant policy gate
// (collection allow/deny, minimum score).
package scoring

import (
	"context"
	"math"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nftbarter/tradeloop-engine/modules"
	"github.com/nftbarter/tradeloop-engine/types"
)

// Policy carries one tenant's scoring configuration (spec.md §4.4, §4.8).
type Policy struct {
	// LengthPenalty controls how strongly longer loops are discounted; 0
	// disables the penalty entirely. Applied as 1/(1+LengthPenalty*(len-2)).
	LengthPenalty float64

	MinScore float64

	// AllowCollections, if non-empty, restricts accepted loops to those
	// whose every item belongs to one of these collections. Items with no
	// known collection are rejected by a non-empty allow-list.
	AllowCollections mapset.Set[types.CollectionID]
	// DenyCollections rejects a loop if any item belongs to one of these.
	DenyCollections mapset.Set[types.CollectionID]
}

// Scorer satisfies modules.Scorer. It is safe for concurrent use: Score and
// Accept read only their arguments and the immutable Policy/ItemValuer they
// were built with (spec.md §4.4 "MUST NOT mutate shared state").
type Scorer struct {
	policy Policy
	valuer modules.ItemValuer
}

// New returns a Scorer for one tenant's policy. valuer may be nil, in which
// case every item is treated as having equal value and the fairness term is
// always 1 (perfectly fair).
func New(policy Policy, valuer modules.ItemValuer) *Scorer {
	return &Scorer{policy: policy, valuer: valuer}
}

// Score satisfies modules.Scorer.
func (s *Scorer) Score(loop types.TradeLoop) float64 {
	length := lengthTerm(loop.Len(), s.policy.LengthPenalty)
	fairness := s.fairnessTerm(loop)
	score := length * fairness
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Accept satisfies modules.Scorer.
func (s *Scorer) Accept(loop types.TradeLoop, score float64) bool {
	if score < s.policy.MinScore {
		return false
	}
	return s.passesCollectionPolicy(loop)
}

func lengthTerm(length int, penalty float64) float64 {
	if length < 2 {
		return 0
	}
	if penalty <= 0 {
		return 1
	}
	return 1 / (1 + penalty*float64(length-2))
}

// fairnessTerm scores 1 for a perfectly even value exchange and decays
// toward 0 as per-step item values disperse, measured via the coefficient
// of variation of the step values.
func (s *Scorer) fairnessTerm(loop types.TradeLoop) float64 {
	if s.valuer == nil || loop.Len() == 0 {
		return 1
	}
	values := make([]float64, 0, loop.Len())
	ctx := context.Background()
	for _, step := range loop.Steps {
		var stepValue float64
		for _, item := range step.Items {
			v, err := s.valuer.Value(ctx, item)
			if err != nil || v < 0 {
				continue
			}
			stepValue += v
		}
		values = append(values, stepValue)
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if mean == 0 {
		return 1
	}
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	cv := math.Sqrt(variance) / mean
	return 1 / (1 + cv)
}

func (s *Scorer) passesCollectionPolicy(loop types.TradeLoop) bool {
	for _, step := range loop.Steps {
		for _, item := range step.Items {
			if s.policy.DenyCollections != nil && item.CollectionID != "" && s.policy.DenyCollections.Contains(item.CollectionID) {
				return false
			}
			if s.policy.AllowCollections != nil && s.policy.AllowCollections.Cardinality() > 0 {
				if item.CollectionID == "" || !s.policy.AllowCollections.Contains(item.CollectionID) {
					return false
				}
			}
		}
	}
	return true
}
