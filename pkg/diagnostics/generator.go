package diagnostics

import (
	"fmt"
	"math/big"

	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/election"
)

// Generator produces diagnostics from a finished election.
type Generator struct{}

// NewGenerator creates a diagnostics generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate explains the given result against the data it was computed from.
// Every candidate receives an explanation; every selected validator must end
// up with a non-empty reason, otherwise the generator reports its own defect
// instead of returning partial output.
func (g *Generator) Generate(result *election.ElectionResult, data *election.ElectionData) (*Diagnostics, error) {
	if result == nil || data == nil {
		return nil, &core.InvalidDataError{Message: "Diagnostics require both a result and the election data"}
	}

	selected := make(map[string]*election.SelectedValidator, len(result.SelectedValidators))
	for i := range result.SelectedValidators {
		v := &result.SelectedValidators[i]
		if data.FindCandidate(v.AccountID) == nil {
			return nil, &core.InvalidDataError{
				Message: fmt.Sprintf("Selected validator '%s' is not part of the election data", v.AccountID),
			}
		}
		selected[v.AccountID] = v
	}

	supportCount := make(map[string]int, len(data.Candidates))
	supportStake := make(map[string]core.StakeAmount, len(data.Candidates))
	for i := range data.Nominators {
		n := &data.Nominators[i]
		for _, target := range n.Targets {
			supportCount[target]++
			supportStake[target] = supportStake[target].Add(n.Stake)
		}
	}

	analysis := g.analyzeStake(result)
	meanBacking := analysis.AverageStakePerValidator
	maxBacking, minBacking := analysis.MaxBackingStake, analysis.MinBackingStake

	explanations := make([]ValidatorExplanation, 0, len(data.Candidates))
	for i := range data.Candidates {
		c := &data.Candidates[i]
		if v, ok := selected[c.AccountID]; ok {
			explanations = append(explanations, g.explainSelected(c, v, result, meanBacking, maxBacking))
		} else {
			explanations = append(explanations, g.explainExcluded(c, supportCount[c.AccountID], supportStake[c.AccountID], result, minBacking))
		}
	}

	diag := &Diagnostics{
		ValidatorExplanations: explanations,
		StakeAnalysis:         analysis,
		AlgorithmInsights:     g.insights(result),
		Warnings:              g.warnings(result, data),
	}

	for _, v := range result.SelectedValidators {
		expl := diag.ExplanationFor(v.AccountID)
		if expl == nil || expl.Reason == "" {
			return nil, &core.InvalidDataError{
				Message: fmt.Sprintf("Diagnostics generator produced no explanation for selected validator '%s'", v.AccountID),
			}
		}
	}
	return diag, nil
}

func (g *Generator) explainSelected(c *election.ValidatorCandidate, v *election.SelectedValidator, result *election.ElectionResult, mean, max core.StakeAmount) ValidatorExplanation {
	reason := fmt.Sprintf("Selected at rank %d with total backing stake %s from %d nominators",
		v.Rank, v.TotalBackingStake, v.NominatorCount)

	factors := []string{
		fmt.Sprintf("rank %d of %d", v.Rank, len(result.SelectedValidators)),
		fmt.Sprintf("self stake %s, nominator backing %s", c.Stake, v.TotalBackingStake.Sub(c.Stake)),
	}
	if v.TotalBackingStake.Cmp(max) == 0 {
		factors = append(factors, "highest total backing stake in the active set")
	}
	if v.TotalBackingStake.Cmp(mean) >= 0 {
		factors = append(factors, "backing at or above the active set average")
	} else {
		factors = append(factors, "backing below the active set average")
	}
	if v.NominatorCount == 0 {
		factors = append(factors, "zero nominator support; elected on self stake alone")
	}
	return ValidatorExplanation{AccountID: c.AccountID, Selected: true, Reason: reason, KeyFactors: factors}
}

func (g *Generator) explainExcluded(c *election.ValidatorCandidate, supporters int, nominated core.StakeAmount, result *election.ElectionResult, minBacking core.StakeAmount) ValidatorExplanation {
	approval := c.Stake.Add(nominated)
	if approval.IsZero() {
		return ValidatorExplanation{
			AccountID: c.AccountID,
			Selected:  false,
			Reason:    "Not selected: zero approval stake, with neither self stake nor nominator votes this candidate is never electable",
			KeyFactors: []string{
				"zero self stake",
				"zero nominator support",
			},
		}
	}

	reason := fmt.Sprintf("Not selected: approval stake %s did not displace any of the %d elected validators",
		approval, len(result.SelectedValidators))
	factors := []string{
		fmt.Sprintf("approval stake %s against lowest winner backing %s", approval, minBacking),
		fmt.Sprintf("supported by %d nominators", supporters),
	}
	if supporters == 0 {
		factors = append(factors, "zero nominator support")
	}
	return ValidatorExplanation{AccountID: c.AccountID, Selected: false, Reason: reason, KeyFactors: factors}
}

// analyzeStake computes total, mean and population variance of the backing
// stakes. The variance is (n*sum(b^2) - total^2) / n^2, floored, which keeps
// the arithmetic exact in integers.
func (g *Generator) analyzeStake(result *election.ElectionResult) StakeAnalysis {
	n := len(result.SelectedValidators)
	if n == 0 {
		return StakeAnalysis{BackingStakeVariance: "0"}
	}

	total := new(big.Int)
	sumSquares := new(big.Int)
	for _, v := range result.SelectedValidators {
		b := v.TotalBackingStake.ToBig()
		total.Add(total, b)
		sumSquares.Add(sumSquares, new(big.Int).Mul(b, b))
	}

	nBig := big.NewInt(int64(n))
	mean := new(big.Int).Quo(total, nBig)

	variance := new(big.Int).Mul(sumSquares, nBig)
	variance.Sub(variance, new(big.Int).Mul(total, total))
	variance.Quo(variance, new(big.Int).Mul(nBig, nBig))

	maxBacking, minBacking := backingRange(result)
	return StakeAnalysis{
		TotalStake:               result.TotalStake,
		AverageStakePerValidator: core.MustStakeFromBig(mean),
		MaxBackingStake:          maxBacking,
		MinBackingStake:          minBacking,
		BackingStakeVariance:     variance.String(),
	}
}

func (g *Generator) insights(result *election.ElectionResult) map[string]interface{} {
	out := map[string]interface{}{
		"algorithm":        string(result.AlgorithmUsed),
		"selected_count":   len(result.SelectedValidators),
		"allocation_count": len(result.StakeDistribution),
	}
	if result.ExecutionMetadata.Phase != "" {
		out["phase"] = result.ExecutionMetadata.Phase
	}
	return out
}

// warnings lists notable input conditions in a fixed order.
func (g *Generator) warnings(result *election.ElectionResult, data *election.ElectionData) []string {
	var out []string

	zeroStake := 0
	for i := range data.Nominators {
		if data.Nominators[i].Stake.IsZero() {
			zeroStake++
		}
	}
	if zeroStake > 0 {
		out = append(out, fmt.Sprintf("%d of %d nominators carry zero stake and cannot affect the outcome", zeroStake, len(data.Nominators)))
	}

	allocated := make(map[string]struct{}, len(result.StakeDistribution))
	for _, a := range result.StakeDistribution {
		allocated[a.NominatorID] = struct{}{}
	}
	unallocated := 0
	for i := range data.Nominators {
		n := &data.Nominators[i]
		if n.Stake.IsZero() || len(n.Targets) == 0 {
			continue
		}
		if _, ok := allocated[n.AccountID]; !ok {
			unallocated++
		}
	}
	if unallocated > 0 {
		out = append(out, fmt.Sprintf("%d nominators back no selected validator; their stake remains unallocated", unallocated))
	}

	if len(data.Candidates) == len(result.SelectedValidators) {
		out = append(out, "every candidate was elected; the active set size leaves no competition")
	}

	zeroApproval := 0
	support := make(map[string]struct{})
	for i := range data.Nominators {
		if data.Nominators[i].Stake.IsZero() {
			continue
		}
		for _, t := range data.Nominators[i].Targets {
			support[t] = struct{}{}
		}
	}
	for i := range data.Candidates {
		c := &data.Candidates[i]
		if !c.Stake.IsZero() {
			continue
		}
		if _, ok := support[c.AccountID]; !ok {
			zeroApproval++
		}
	}
	if zeroApproval > 0 {
		out = append(out, fmt.Sprintf("%d candidates have zero approval stake and can never be elected", zeroApproval))
	}

	return out
}

// backingRange returns the highest and lowest backing among the selected
// validators.
func backingRange(result *election.ElectionResult) (max, min core.StakeAmount) {
	for i, v := range result.SelectedValidators {
		if i == 0 {
			max, min = v.TotalBackingStake, v.TotalBackingStake
			continue
		}
		if v.TotalBackingStake.Cmp(max) > 0 {
			max = v.TotalBackingStake
		}
		if v.TotalBackingStake.Cmp(min) < 0 {
			min = v.TotalBackingStake
		}
	}
	return max, min
}
