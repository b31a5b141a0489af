package algorithm

import (
	"fmt"
	"math/big"

	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/election"
)

// SequentialPhragmen elects the active set one seat per round using the
// classic Phragmen load computation: each round the candidate with the
// lowest score wins, where a candidate's score is one plus the load-weighted
// stake of its supporters, divided by its approval stake. Loads are exact
// rationals, so the method is fully deterministic across platforms.
type SequentialPhragmen struct {
	maxBalanceIterations int
}

// NewSequentialPhragmen creates the method with the default balancing bound.
func NewSequentialPhragmen() *SequentialPhragmen {
	return &SequentialPhragmen{maxBalanceIterations: defaultBalanceIterations}
}

// Name implements Algorithm.
func (a *SequentialPhragmen) Name() string {
	return string(core.SequentialPhragmen)
}

// Execute implements Algorithm.
func (a *SequentialPhragmen) Execute(candidates []election.ValidatorCandidate, nominators []election.Nominator, activeSetSize uint32) (*RawSelection, error) {
	if len(candidates) == 0 {
		return nil, core.ErrValidation("", "Cannot run election with zero candidates")
	}

	g := newGraph(candidates, nominators)
	toElect := int(activeSetSize)

	if electable := g.electableCount(); electable < toElect {
		return nil, &core.AlgorithmError{
			Message: fmt.Sprintf(
				"Active set needs %d candidates but only %d have non-zero approval stake; candidates with zero backing cannot be elected",
				toElect, electable),
			Algorithm: core.SequentialPhragmen,
		}
	}

	for round := 0; round < toElect; round++ {
		winner := phragmenRound(g)
		if winner == nil {
			return nil, &core.AlgorithmError{
				Message:   fmt.Sprintf("No electable candidate left in round %d", round+1),
				Algorithm: core.SequentialPhragmen,
			}
		}
		winner.elected = true
		winner.round = round

		// The winner's score becomes the new load of every supporting
		// voter; the edge records the increment so loads telescope.
		for _, v := range g.voters {
			for _, e := range v.edges {
				if e.candidate == winner {
					e.load = new(big.Rat).Sub(winner.score, v.load)
					v.load = new(big.Rat).Set(winner.score)
				}
			}
		}
	}

	g.distributeByLoads()

	outcome := balance(g, a.maxBalanceIterations)
	if !outcome.converged {
		return nil, &core.AlgorithmError{
			Message: fmt.Sprintf("Stake balancing did not converge after %d iterations, residual imbalance %s",
				outcome.iterations, outcome.residual),
			Algorithm:  core.SequentialPhragmen,
			Iterations: outcome.iterations,
			Residual:   outcome.residual.String(),
		}
	}

	return &RawSelection{
		Winners:           g.winnerIDs(),
		Assignments:       g.assignments(),
		BalanceIterations: outcome.iterations,
	}, nil
}

// phragmenRound scores every unelected candidate and returns the one with
// the minimal score, breaking ties toward the lexically smaller account id.
// Candidates with zero approval stake are not electable and score nil.
func phragmenRound(g *electionGraph) *graphCandidate {
	one := big.NewInt(1)
	for _, c := range g.candidates {
		if !c.elected && c.approval.Sign() > 0 {
			c.score = new(big.Rat).SetFrac(one, c.approval)
		} else {
			c.score = nil
		}
	}

	for _, v := range g.voters {
		if v.budget.Sign() == 0 || v.load.Sign() == 0 {
			continue
		}
		for _, e := range v.edges {
			c := e.candidate
			if c.elected || c.score == nil {
				continue
			}
			contribution := new(big.Rat).SetInt(v.budget)
			contribution.Mul(contribution, v.load)
			contribution.Quo(contribution, new(big.Rat).SetInt(c.approval))
			c.score.Add(c.score, contribution)
		}
	}

	var best *graphCandidate
	for _, c := range g.candidates {
		if c.elected || c.score == nil {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		cmp := c.score.Cmp(best.score)
		if cmp < 0 || (cmp == 0 && c.id < best.id) {
			best = c
		}
	}
	return best
}
