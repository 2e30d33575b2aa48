package scoring_test

import (
	"context"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nftbarter/tradeloop-engine/modules/scoring"
	"github.com/nftbarter/tradeloop-engine/types"
)

type fixedValuer map[types.ItemID]float64

func (f fixedValuer) Value(_ context.Context, item types.ItemRef) (float64, error) {
	return f[item.ID], nil
}

func threeStepLoop() types.TradeLoop {
	return types.TradeLoop{
		Tenant: "t1",
		Steps: []types.TradeLoopStep{
			{From: "A", To: "B", Items: []types.ItemRef{{ID: "x1", CollectionID: "coolcats"}}},
			{From: "B", To: "C", Items: []types.ItemRef{{ID: "y1", CollectionID: "coolcats"}}},
			{From: "C", To: "A", Items: []types.ItemRef{{ID: "z1", CollectionID: "coolcats"}}},
		},
	}
}

func TestShorterLoopsScoreHigherWithPenalty(t *testing.T) {
	s := scoring.New(scoring.Policy{LengthPenalty: 0.25}, nil)
	short := threeStepLoop()
	long := threeStepLoop()
	long.Steps = append(long.Steps, types.TradeLoopStep{From: "A", To: "D", Items: []types.ItemRef{{ID: "w1"}}})
	long.Steps = append(long.Steps, types.TradeLoopStep{From: "D", To: "B", Items: []types.ItemRef{{ID: "w2"}}})

	if s.Score(short) <= s.Score(long) {
		t.Fatalf("expected shorter loop to score higher: short=%f long=%f", s.Score(short), s.Score(long))
	}
}

func TestFairValueExchangeScoresHigherThanLopsided(t *testing.T) {
	fair := fixedValuer{"x1": 10, "y1": 10, "z1": 10}
	lopsided := fixedValuer{"x1": 1, "y1": 1, "z1": 100}

	sFair := scoring.New(scoring.Policy{}, fair)
	sLopsided := scoring.New(scoring.Policy{}, lopsided)

	loop := threeStepLoop()
	if sFair.Score(loop) <= sLopsided.Score(loop) {
		t.Fatalf("expected the fair valuation to score higher: fair=%f lopsided=%f", sFair.Score(loop), sLopsided.Score(loop))
	}
}

func TestMinScoreRejectsBelowThreshold(t *testing.T) {
	s := scoring.New(scoring.Policy{MinScore: 0.9}, nil)
	loop := threeStepLoop()
	score := s.Score(loop)
	if s.Accept(loop, score) && score < 0.9 {
		t.Fatalf("Accept should reject a loop scoring %f below MinScore 0.9", score)
	}
}

func TestDenyCollectionRejectsLoop(t *testing.T) {
	s := scoring.New(scoring.Policy{DenyCollections: mapset.NewSet[types.CollectionID]("coolcats")}, nil)
	loop := threeStepLoop()
	if s.Accept(loop, 1.0) {
		t.Fatal("expected denied collection to reject the loop regardless of score")
	}
}

func TestAllowCollectionRejectsOutsideList(t *testing.T) {
	s := scoring.New(scoring.Policy{AllowCollections: mapset.NewSet[types.CollectionID]("otherset")}, nil)
	loop := threeStepLoop()
	if s.Accept(loop, 1.0) {
		t.Fatal("expected an allow-list that excludes the loop's collection to reject it")
	}
}

func TestDeterministicAndNoSharedMutation(t *testing.T) {
	s := scoring.New(scoring.Policy{LengthPenalty: 0.1}, fixedValuer{"x1": 5, "y1": 5, "z1": 5})
	loop := threeStepLoop()
	first := s.Score(loop)
	second := s.Score(loop)
	if first != second {
		t.Fatalf("Score is not deterministic: %f != %f", first, second)
	}
}
