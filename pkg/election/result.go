package election

import (
	"encoding/json"

	"github.com/staketools/offline-election/pkg/core"
)

// SelectedValidator is one member of the elected active set.
type SelectedValidator struct {
	AccountID         string           `json:"account_id"`
	TotalBackingStake core.StakeAmount `json:"total_backing_stake"`
	NominatorCount    uint32           `json:"nominator_count"`
	// Rank is the 1-based selection order within the active set.
	Rank uint32 `json:"rank"`
}

// StakeAllocation records how much of one nominator's stake backs one
// selected validator.
type StakeAllocation struct {
	NominatorID string           `json:"nominator_id"`
	ValidatorID string           `json:"validator_id"`
	Amount      core.StakeAmount `json:"amount"`
	// Proportion is the share of the nominator's declared stake, in [0, 1].
	Proportion float64 `json:"proportion"`
}

// ExecutionMetadata describes how and when a result was produced.
type ExecutionMetadata struct {
	BlockNumber        *uint64 `json:"block_number,omitempty"`
	ExecutionTimestamp string  `json:"execution_timestamp,omitempty"`
	DataSource         string  `json:"data_source,omitempty"`
	Phase              string  `json:"phase,omitempty"`
}

// ElectionResult is the outcome of one election execution.
type ElectionResult struct {
	SelectedValidators []SelectedValidator `json:"selected_validators"`
	StakeDistribution  []StakeAllocation   `json:"stake_distribution"`
	TotalStake         core.StakeAmount    `json:"total_stake"`
	AlgorithmUsed      core.AlgorithmType  `json:"algorithm_used"`
	ExecutionMetadata  ExecutionMetadata   `json:"execution_metadata"`
}

// FindValidator returns the selected validator with the given account id, or
// nil when it was not elected.
func (r *ElectionResult) FindValidator(accountID string) *SelectedValidator {
	for i := range r.SelectedValidators {
		if r.SelectedValidators[i].AccountID == accountID {
			return &r.SelectedValidators[i]
		}
	}
	return nil
}

// AllocationsFor returns the stake allocations of one nominator, in result
// order.
func (r *ElectionResult) AllocationsFor(nominatorID string) []StakeAllocation {
	var out []StakeAllocation
	for _, alloc := range r.StakeDistribution {
		if alloc.NominatorID == nominatorID {
			out = append(out, alloc)
		}
	}
	return out
}

// TotalAllocated sums every stake allocation in the distribution.
func (r *ElectionResult) TotalAllocated() core.StakeAmount {
	total := core.NewStake(0)
	for _, alloc := range r.StakeDistribution {
		total = total.Add(alloc.Amount)
	}
	return total
}

// ToJSON renders the result as indented JSON.
func (r *ElectionResult) ToJSON() (string, error) {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", &core.InvalidDataError{Message: "Failed to serialize result to JSON: " + err.Error()}
	}
	return string(raw), nil
}
