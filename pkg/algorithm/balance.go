package algorithm

import (
	"math/big"
	"sort"
)

// defaultBalanceIterations bounds the equalization sweeps, matching the
// iteration budget production chains give this pass.
const defaultBalanceIterations = 10

// balanceOutcome reports how the equalization ended.
type balanceOutcome struct {
	iterations int
	residual   *big.Int
	converged  bool
}

// balance equalizes backing stake across elected candidates by repeatedly
// water-filling each voter's budget over its elected edges. A sweep in which
// no voter moves stake is a fixed point. When the iteration bound is hit
// before that, the outcome carries the residual imbalance for the caller to
// report.
func balance(g *electionGraph, maxIterations int) balanceOutcome {
	if maxIterations <= 0 {
		maxIterations = defaultBalanceIterations
	}
	residual := new(big.Int)
	for iter := 1; iter <= maxIterations; iter++ {
		maxDiff := new(big.Int)
		moved := false
		for _, v := range g.voters {
			diff, rebalanced := balanceVoter(v)
			if rebalanced {
				moved = true
			}
			if diff.Cmp(maxDiff) > 0 {
				maxDiff = diff
			}
		}
		residual = maxDiff
		if !moved {
			return balanceOutcome{iterations: iter, residual: residual, converged: true}
		}
	}
	return balanceOutcome{iterations: maxIterations, residual: residual, converged: false}
}

// balanceVoter re-spreads one voter's budget across its elected edges so
// their backed stakes level out. Returns the pre-move imbalance and whether
// any stake moved. A voter already within its tolerance is left untouched;
// the tolerance is the elected edge count, the spread floor reachable with
// integer amounts.
func balanceVoter(v *graphVoter) (*big.Int, bool) {
	var elected []*graphEdge
	for _, e := range v.edges {
		if e.candidate.elected {
			elected = append(elected, e)
		}
	}
	// A single elected edge is either a self vote or an unsplittable
	// nomination; there is nothing to level.
	if len(elected) <= 1 {
		return new(big.Int), false
	}
	tolerance := big.NewInt(int64(len(elected)))

	stakeUsed := new(big.Int)
	for _, e := range elected {
		stakeUsed.Add(stakeUsed, e.weight)
	}

	var minBacked, maxBacking *big.Int
	for _, e := range elected {
		b := e.candidate.backed
		if minBacked == nil || b.Cmp(minBacked) < 0 {
			minBacked = b
		}
		if e.weight.Sign() > 0 && (maxBacking == nil || b.Cmp(maxBacking) > 0) {
			maxBacking = b
		}
	}

	diff := new(big.Int)
	if maxBacking != nil {
		diff.Sub(maxBacking, minBacked)
		diff.Add(diff, new(big.Int).Sub(v.budget, stakeUsed))
		if diff.Cmp(tolerance) < 0 {
			return diff, false
		}
	} else {
		if v.budget.Sign() == 0 {
			return diff, false
		}
		diff.Set(v.budget)
	}

	for _, e := range elected {
		e.candidate.backed.Sub(e.candidate.backed, e.weight)
		e.weight.SetInt64(0)
	}

	sort.SliceStable(elected, func(i, j int) bool {
		cmp := elected[i].candidate.backed.Cmp(elected[j].candidate.backed)
		if cmp != 0 {
			return cmp < 0
		}
		return elected[i].candidate.id < elected[j].candidate.id
	})

	// Find how many of the lowest-backed edges the budget can raise to a
	// common level.
	cumulative := new(big.Int)
	lastIndex := len(elected) - 1
	for i, e := range elected {
		level := new(big.Int).Mul(e.candidate.backed, big.NewInt(int64(i)))
		level.Sub(level, cumulative)
		if level.Cmp(v.budget) > 0 {
			lastIndex = i - 1
			break
		}
		cumulative.Add(cumulative, e.candidate.backed)
	}

	lastStake := new(big.Int).Set(elected[lastIndex].candidate.backed)
	ways := int64(lastIndex + 1)
	waysBig := big.NewInt(ways)

	excess := new(big.Int).Add(v.budget, cumulative)
	excess.Sub(excess, new(big.Int).Mul(lastStake, waysBig))
	share := new(big.Int).Quo(excess, waysBig)
	remainder := new(big.Int).Sub(excess, new(big.Int).Mul(share, waysBig))

	for i := int64(0); i < ways; i++ {
		e := elected[i]
		w := new(big.Int).Sub(lastStake, e.candidate.backed)
		w.Add(w, share)
		if i == 0 {
			w.Add(w, remainder)
		}
		e.weight.Set(w)
		e.candidate.backed.Add(e.candidate.backed, w)
	}

	return diff, true
}
