// Package diagnostics explains election outcomes: why each candidate was
// selected or passed over, how backing stake spreads across the active set,
// and which input conditions deserve attention.
package diagnostics

import "github.com/staketools/offline-election/pkg/core"

// Diagnostics is the full explanation bundle for one election result.
type Diagnostics struct {
	// ValidatorExplanations covers every candidate in input order, selected
	// or not.
	ValidatorExplanations []ValidatorExplanation `json:"validator_explanations"`
	StakeAnalysis         StakeAnalysis          `json:"stake_analysis"`
	// AlgorithmInsights carries method-specific observations keyed by name.
	AlgorithmInsights map[string]interface{} `json:"algorithm_insights,omitempty"`
	Warnings          []string               `json:"warnings,omitempty"`
}

// ValidatorExplanation says why one candidate ended up in or out of the
// active set.
type ValidatorExplanation struct {
	AccountID  string   `json:"account_id"`
	Selected   bool     `json:"selected"`
	Reason     string   `json:"reason"`
	KeyFactors []string `json:"key_factors,omitempty"`
}

// StakeAnalysis aggregates backing stake across the selected validators.
type StakeAnalysis struct {
	TotalStake               core.StakeAmount `json:"total_stake"`
	AverageStakePerValidator core.StakeAmount `json:"average_stake_per_validator"`
	MaxBackingStake          core.StakeAmount `json:"max_backing_stake"`
	MinBackingStake          core.StakeAmount `json:"min_backing_stake"`
	// BackingStakeVariance is the population variance of backing stakes as a
	// decimal string; squared stake exceeds every native integer width.
	BackingStakeVariance string `json:"backing_stake_variance"`
}

// ExplanationFor returns the explanation for one account id, or nil.
func (d *Diagnostics) ExplanationFor(accountID string) *ValidatorExplanation {
	for i := range d.ValidatorExplanations {
		if d.ValidatorExplanations[i].AccountID == accountID {
			return &d.ValidatorExplanations[i]
		}
	}
	return nil
}
