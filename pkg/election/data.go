package election

import (
	"fmt"
	"strings"

	"github.com/staketools/offline-election/pkg/core"
)

// ElectionData is the complete state needed to run an election: the candidate
// set, the nominator set with their voting edges, and optional source metadata.
type ElectionData struct {
	Candidates []ValidatorCandidate `json:"candidates"`
	Nominators []Nominator          `json:"nominators"`
	Metadata   *ElectionMetadata    `json:"metadata,omitempty"`
}

// ElectionMetadata describes where a snapshot came from.
type ElectionMetadata struct {
	BlockNumber *uint64             `json:"block_number,omitempty"`
	Chain       string              `json:"chain,omitempty"`
	Source      core.DataSourceKind `json:"source,omitempty"`
}

// NewElectionData creates an empty election data structure.
func NewElectionData() *ElectionData {
	return &ElectionData{
		Candidates: []ValidatorCandidate{},
		Nominators: []Nominator{},
	}
}

// AddCandidate appends a validator candidate, rejecting duplicate account ids.
func (d *ElectionData) AddCandidate(candidate ValidatorCandidate) error {
	for i := range d.Candidates {
		if d.Candidates[i].AccountID == candidate.AccountID {
			return core.ErrValidationf("candidates", "Duplicate candidate account ID: %s", candidate.AccountID)
		}
	}
	d.Candidates = append(d.Candidates, candidate)
	return nil
}

// AddNominator appends a nominator, rejecting duplicate account ids.
func (d *ElectionData) AddNominator(nominator Nominator) error {
	for i := range d.Nominators {
		if d.Nominators[i].AccountID == nominator.AccountID {
			return core.ErrValidationf("nominators", "Duplicate nominator account ID: %s", nominator.AccountID)
		}
	}
	d.Nominators = append(d.Nominators, nominator)
	return nil
}

// Validate checks structural integrity and returns the first violation found.
// Checks run in a fixed order: candidate set non-empty, nominator set
// non-empty, candidate id uniqueness, nominator id uniqueness, voting edges
// resolve to known candidates, stake amounts within bounds.
func (d *ElectionData) Validate() error {
	if len(d.Candidates) == 0 {
		return core.ErrValidationf("candidates",
			"Election data must contain at least one validator candidate, but found %d. Please add at least one candidate.",
			len(d.Candidates))
	}

	if len(d.Nominators) == 0 {
		return core.ErrValidationf("nominators",
			"Election data must contain at least one nominator, but found %d. Please add at least one nominator.",
			len(d.Nominators))
	}

	candidateIDs := make(map[string]struct{}, len(d.Candidates))
	for i := range d.Candidates {
		id := d.Candidates[i].AccountID
		if _, seen := candidateIDs[id]; seen {
			return core.ErrValidationf("candidates", "Duplicate candidate account ID: %s", id)
		}
		candidateIDs[id] = struct{}{}
	}

	nominatorIDs := make(map[string]struct{}, len(d.Nominators))
	for i := range d.Nominators {
		id := d.Nominators[i].AccountID
		if _, seen := nominatorIDs[id]; seen {
			return core.ErrValidationf("nominators", "Duplicate nominator account ID: %s", id)
		}
		nominatorIDs[id] = struct{}{}
	}

	for i := range d.Nominators {
		for _, target := range d.Nominators[i].Targets {
			if _, ok := candidateIDs[target]; !ok {
				return core.ErrValidationf("nominators.targets",
					"Nominator '%s' votes for non-existent candidate '%s'. Available candidates: %s",
					d.Nominators[i].AccountID, target, d.candidateSummary())
			}
		}
	}

	for i := range d.Candidates {
		if !d.Candidates[i].Stake.WithinBounds() {
			return core.ErrValidationf("candidates.stake",
				"Candidate '%s' stake %s exceeds the maximum supported amount (2^128 - 1)",
				d.Candidates[i].AccountID, d.Candidates[i].Stake.Dec())
		}
	}
	for i := range d.Nominators {
		if !d.Nominators[i].Stake.WithinBounds() {
			return core.ErrValidationf("nominators.stake",
				"Nominator '%s' stake %s exceeds the maximum supported amount (2^128 - 1)",
				d.Nominators[i].AccountID, d.Nominators[i].Stake.Dec())
		}
	}

	return nil
}

// candidateSummary lists up to five candidate ids for validation messages.
func (d *ElectionData) candidateSummary() string {
	const limit = 5
	n := len(d.Candidates)
	ids := make([]string, 0, limit)
	for i := 0; i < n && i < limit; i++ {
		ids = append(ids, d.Candidates[i].AccountID)
	}
	if n > limit {
		return fmt.Sprintf("%s (and %d more)", strings.Join(ids, ", "), n-limit)
	}
	return strings.Join(ids, ", ")
}

// Edges flattens nominator target lists into explicit voting edges, in
// nominator order then target order.
func (d *ElectionData) Edges() []VotingEdge {
	var edges []VotingEdge
	for i := range d.Nominators {
		for _, target := range d.Nominators[i].Targets {
			edges = append(edges, NewVotingEdge(d.Nominators[i].AccountID, target))
		}
	}
	return edges
}

// FindCandidate returns a pointer into the candidate slice, or nil.
func (d *ElectionData) FindCandidate(accountID string) *ValidatorCandidate {
	for i := range d.Candidates {
		if d.Candidates[i].AccountID == accountID {
			return &d.Candidates[i]
		}
	}
	return nil
}

// FindNominator returns a pointer into the nominator slice, or nil.
func (d *ElectionData) FindNominator(accountID string) *Nominator {
	for i := range d.Nominators {
		if d.Nominators[i].AccountID == accountID {
			return &d.Nominators[i]
		}
	}
	return nil
}

// Clone deep-copies the data so callers can mutate the copy freely.
func (d *ElectionData) Clone() *ElectionData {
	out := &ElectionData{
		Candidates: make([]ValidatorCandidate, len(d.Candidates)),
		Nominators: make([]Nominator, len(d.Nominators)),
	}
	for i := range d.Candidates {
		out.Candidates[i] = d.Candidates[i].clone()
	}
	for i := range d.Nominators {
		out.Nominators[i] = d.Nominators[i].clone()
	}
	if d.Metadata != nil {
		meta := *d.Metadata
		if d.Metadata.BlockNumber != nil {
			block := *d.Metadata.BlockNumber
			meta.BlockNumber = &block
		}
		out.Metadata = &meta
	}
	return out
}
