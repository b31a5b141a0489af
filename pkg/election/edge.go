package election

import "github.com/staketools/offline-election/pkg/core"

// VotingEdge is a nominator's declared backing of one specific candidate.
// Edges live implicitly in Nominator.Targets; this type is the explicit form
// used by overrides and diagnostics.
type VotingEdge struct {
	NominatorID string `json:"nominator_id"`
	CandidateID string `json:"candidate_id"`
	// Weight optionally pins the edge to an explicit amount. When nil the
	// nominator's stake is split across its edges by the election method.
	Weight *core.StakeAmount `json:"weight,omitempty"`
}

// NewVotingEdge creates an edge with no explicit weight.
func NewVotingEdge(nominatorID, candidateID string) VotingEdge {
	return VotingEdge{NominatorID: nominatorID, CandidateID: candidateID}
}
