// Package algorithm implements the validator selection methods: sequential
// Phragmen, its parallel scoring variant, and the multi-phase wrapper.
//
// Every method consumes the same inputs (candidates, nominators, active set
// size) and produces a RawSelection, the minimal election outcome before the
// engine normalizes it into the public result shape. All methods are fully
// deterministic: ties are broken by account id lexical order and no map
// iteration order ever reaches the output.
package algorithm

import (
	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/election"
)

// Algorithm is the contract every selection method implements.
type Algorithm interface {
	// Execute runs the method over the given electorate and returns the raw
	// selection, or an error when the method cannot produce a full set.
	Execute(candidates []election.ValidatorCandidate, nominators []election.Nominator, activeSetSize uint32) (*RawSelection, error)

	// Name returns the canonical method name used for result tagging.
	Name() string
}

// RawSelection is the minimal output of a selection method: the winners in
// selection order and the weighted edge assignment per nominator.
type RawSelection struct {
	// Winners holds elected candidate account ids, ordered by selection round.
	Winners []string
	// Assignments carries the integer stake split of each nominator across
	// its elected targets. Nominators with no elected target are absent.
	Assignments []Assignment
	// BalanceIterations is how many equalization passes the method ran.
	BalanceIterations int
	// Phase tags the election phase for multi-phase runs, empty otherwise.
	Phase string
}

// Assignment is one nominator's stake split across elected validators.
type Assignment struct {
	NominatorID string
	Edges       []AssignedEdge
}

// AssignedEdge is an integer amount of one nominator's stake placed on one
// elected validator.
type AssignedEdge struct {
	ValidatorID string
	Amount      core.StakeAmount
}

// ForType resolves an algorithm type to its implementation. The method set is
// closed; unknown types are a validation error.
func ForType(t core.AlgorithmType) (Algorithm, error) {
	switch t {
	case core.SequentialPhragmen:
		return NewSequentialPhragmen(), nil
	case core.ParallelPhragmen:
		return NewParallelPhragmen(), nil
	case core.MultiPhase:
		return NewMultiPhase(), nil
	default:
		return nil, core.ErrValidationf("algorithm", "Unknown algorithm: %s", t)
	}
}
