package election

import "github.com/staketools/offline-election/pkg/core"

// ValidatorCandidate is an account eligible for selection into the active set.
type ValidatorCandidate struct {
	// AccountID is the unique account identifier, usually SS58-encoded. Any
	// non-empty string is accepted; the account does not need to exist on
	// chain.
	AccountID string `json:"account_id"`
	// Stake is the candidate's own bond. It backs the candidate from the
	// first selection round onward.
	Stake core.StakeAmount `json:"stake"`
	// Metadata carries optional on-chain detail when the data came from RPC.
	Metadata *CandidateMetadata `json:"metadata,omitempty"`
}

// CandidateMetadata is optional per-candidate detail from the data source.
type CandidateMetadata struct {
	// CommissionRate is the validator commission in percent, 0-100.
	CommissionRate *uint8 `json:"commission_rate,omitempty"`
	// OnChainStatus is the raw status string from the source chain.
	OnChainStatus string `json:"on_chain_status,omitempty"`
}

// NewCandidate creates a validator candidate.
func NewCandidate(accountID string, stake core.StakeAmount) ValidatorCandidate {
	return ValidatorCandidate{AccountID: accountID, Stake: stake}
}

func (c ValidatorCandidate) clone() ValidatorCandidate {
	out := c
	if c.Metadata != nil {
		m := *c.Metadata
		if c.Metadata.CommissionRate != nil {
			r := *c.Metadata.CommissionRate
			m.CommissionRate = &r
		}
		out.Metadata = &m
	}
	return out
}
