package algorithm

import (
	"fmt"
	"math/big"

	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/election"
)

// ParallelPhragmen is the round-parallel scoring variant. Each round every
// unelected candidate is scored independently as the sum of supporter
// budgets diluted by how many winners each supporter already backs; the
// highest score wins the seat. Scores within a round share no state, so
// they could be computed concurrently, but this implementation stays
// single-threaded to keep outputs bit-identical on every platform.
type ParallelPhragmen struct {
	maxBalanceIterations int
}

// NewParallelPhragmen creates the method with the default balancing bound.
func NewParallelPhragmen() *ParallelPhragmen {
	return &ParallelPhragmen{maxBalanceIterations: defaultBalanceIterations}
}

// Name implements Algorithm.
func (a *ParallelPhragmen) Name() string {
	return string(core.ParallelPhragmen)
}

// Execute implements Algorithm.
func (a *ParallelPhragmen) Execute(candidates []election.ValidatorCandidate, nominators []election.Nominator, activeSetSize uint32) (*RawSelection, error) {
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
			Algorithm: core.ParallelPhragmen,
		}
	}

	for round := 0; round < toElect; round++ {
		winner := parallelRound(g)
		if winner == nil {
			return nil, &core.AlgorithmError{
				Message:   fmt.Sprintf("No electable candidate left in round %d", round+1),
				Algorithm: core.ParallelPhragmen,
			}
		}
		winner.elected = true
		winner.round = round
	}

	g.distributeEqually()

	outcome := balance(g, a.maxBalanceIterations)
	if !outcome.converged {
		return nil, &core.AlgorithmError{
			Message: fmt.Sprintf("Stake balancing did not converge after %d iterations, residual imbalance %s",
				outcome.iterations, outcome.residual),
			Algorithm:  core.ParallelPhragmen,
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

// parallelRound scores all unelected candidates from scratch and returns the
// highest scoring one, breaking ties toward the lexically smaller account
// id. A voter already backing k winners contributes budget/(k+1) to each of
// its remaining targets.
func parallelRound(g *electionGraph) *graphCandidate {
	for _, c := range g.candidates {
		if !c.elected && c.approval.Sign() > 0 {
			c.score = new(big.Rat)
		} else {
			c.score = nil
		}
	}

	for _, v := range g.voters {
		if v.budget.Sign() == 0 {
			continue
		}
		electedTargets := 0
		for _, e := range v.edges {
			if e.candidate.elected {
				electedTargets++
			}
		}
		contribution := new(big.Rat).SetFrac(v.budget, big.NewInt(int64(electedTargets+1)))
		for _, e := range v.edges {
			if e.candidate.score != nil {
				e.candidate.score.Add(e.candidate.score, contribution)
			}
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
		if cmp > 0 || (cmp == 0 && c.id < best.id) {
			best = c
		}
	}
	return best
}
