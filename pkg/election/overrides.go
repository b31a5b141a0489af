package election

import (
	"sort"

	"github.com/staketools/offline-election/pkg/core"
)

// EdgeAction is the kind of mutation applied to a voting edge.
type EdgeAction string

const (
	// EdgeAdd inserts a new voting edge.
	EdgeAdd EdgeAction = "add"
	// EdgeRemove deletes a matching voting edge if present.
	EdgeRemove EdgeAction = "remove"
	// EdgeModify re-registers an existing edge, optionally with a new weight.
	EdgeModify EdgeAction = "modify"
)

// EdgeModification is one requested change to the voting graph.
type EdgeModification struct {
	Action      EdgeAction        `json:"action"`
	NominatorID string            `json:"nominator_id"`
	CandidateID string            `json:"candidate_id"`
	Weight      *core.StakeAmount `json:"weight,omitempty"`
}

// ElectionOverrides are parameter mutations applied to election data before
// execution. Stake overrides replace values outright. Edge modifications are
// applied in declaration order.
type ElectionOverrides struct {
	CandidateStakes map[string]core.StakeAmount `json:"candidate_stakes,omitempty"`
	NominatorStakes map[string]core.StakeAmount `json:"nominator_stakes,omitempty"`
	VotingEdges     []EdgeModification          `json:"voting_edges,omitempty"`
	ActiveSetSize   *uint32                     `json:"active_set_size,omitempty"`
}

// NewOverrides creates an empty overrides structure.
func NewOverrides() *ElectionOverrides {
	return &ElectionOverrides{
		CandidateStakes: map[string]core.StakeAmount{},
		NominatorStakes: map[string]core.StakeAmount{},
	}
}

// IsEmpty reports whether the overrides carry no mutations at all.
func (o *ElectionOverrides) IsEmpty() bool {
	if o == nil {
		return true
	}
	return len(o.CandidateStakes) == 0 &&
		len(o.NominatorStakes) == 0 &&
		len(o.VotingEdges) == 0 &&
		o.ActiveSetSize == nil
}

// SetCandidateStake records a stake replacement for a candidate.
func (o *ElectionOverrides) SetCandidateStake(accountID string, stake core.StakeAmount) {
	if o.CandidateStakes == nil {
		o.CandidateStakes = map[string]core.StakeAmount{}
	}
	o.CandidateStakes[accountID] = stake
}

// SetNominatorStake records a stake replacement for a nominator.
func (o *ElectionOverrides) SetNominatorStake(accountID string, stake core.StakeAmount) {
	if o.NominatorStakes == nil {
		o.NominatorStakes = map[string]core.StakeAmount{}
	}
	o.NominatorStakes[accountID] = stake
}

// AddVotingEdge records an edge insertion.
func (o *ElectionOverrides) AddVotingEdge(nominatorID, candidateID string) {
	o.VotingEdges = append(o.VotingEdges, EdgeModification{
		Action:      EdgeAdd,
		NominatorID: nominatorID,
		CandidateID: candidateID,
	})
}

// RemoveVotingEdge records an edge removal.
func (o *ElectionOverrides) RemoveVotingEdge(nominatorID, candidateID string) {
	o.VotingEdges = append(o.VotingEdges, EdgeModification{
		Action:      EdgeRemove,
		NominatorID: nominatorID,
		CandidateID: candidateID,
	})
}

// ModifyVotingEdge records an edge modification with an optional weight.
func (o *ElectionOverrides) ModifyVotingEdge(nominatorID, candidateID string, weight *core.StakeAmount) {
	o.VotingEdges = append(o.VotingEdges, EdgeModification{
		Action:      EdgeModify,
		NominatorID: nominatorID,
		CandidateID: candidateID,
		Weight:      weight,
	})
}

// SetActiveSetSize records an active set size replacement.
func (o *ElectionOverrides) SetActiveSetSize(size uint32) {
	o.ActiveSetSize = &size
}

// Apply produces a new data and configuration pair with the overrides applied.
// The inputs are never mutated. Mutations run in a fixed order: candidate
// stakes, nominator stakes, voting edges, active set size. Apply performs no
// validation; callers re-validate the returned data.
func (o *ElectionOverrides) Apply(data *ElectionData, config ElectionConfiguration) (*ElectionData, ElectionConfiguration) {
	out := data.Clone()
	cfg := config
	if o == nil {
		return out, cfg
	}

	for _, accountID := range sortedKeys(o.CandidateStakes) {
		if candidate := out.FindCandidate(accountID); candidate != nil {
			candidate.Stake = o.CandidateStakes[accountID]
		}
	}

	for _, accountID := range sortedKeys(o.NominatorStakes) {
		if nominator := out.FindNominator(accountID); nominator != nil {
			nominator.Stake = o.NominatorStakes[accountID]
		}
	}

	for _, mod := range o.VotingEdges {
		nominator := out.FindNominator(mod.NominatorID)
		if nominator == nil {
			continue
		}
		switch mod.Action {
		case EdgeAdd:
			if out.FindCandidate(mod.CandidateID) != nil {
				nominator.AddTarget(mod.CandidateID)
			}
		case EdgeRemove:
			nominator.RemoveTarget(mod.CandidateID)
		case EdgeModify:
			// Re-registers the edge; the election method recomputes the
			// actual split, so the carried weight stays advisory.
			if nominator.HasTarget(mod.CandidateID) {
				nominator.RemoveTarget(mod.CandidateID)
				nominator.AddTarget(mod.CandidateID)
			}
		}
	}

	if o.ActiveSetSize != nil {
		cfg.ActiveSetSize = *o.ActiveSetSize
	}

	return out, cfg
}

func sortedKeys(m map[string]core.StakeAmount) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
