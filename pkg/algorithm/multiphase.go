package algorithm

import (
	"errors"

	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/election"
)

// PhaseSigned is the election phase tag carried by multi-phase results.
const PhaseSigned = "signed"

// MultiPhase mirrors the staged election providers used by production
// chains, where a signed phase accepts precomputed solutions before unsigned
// and fallback phases run. Offline there is no solution market, so the
// signed phase computes its solution directly with sequential Phragmen, the
// same method those submissions use. Failures are reported, never silently
// recovered by a fallback, so a broken electorate surfaces to the caller.
type MultiPhase struct {
	inner *SequentialPhragmen
}

// NewMultiPhase creates the method backed by sequential Phragmen.
func NewMultiPhase() *MultiPhase {
	return &MultiPhase{inner: NewSequentialPhragmen()}
}

// Name implements Algorithm.
func (a *MultiPhase) Name() string {
	return string(core.MultiPhase)
}

// Execute implements Algorithm.
func (a *MultiPhase) Execute(candidates []election.ValidatorCandidate, nominators []election.Nominator, activeSetSize uint32) (*RawSelection, error) {
	raw, err := a.inner.Execute(candidates, nominators, activeSetSize)
	if err != nil {
		var algErr *core.AlgorithmError
		if errors.As(err, &algErr) {
			return nil, &core.AlgorithmError{
				Message:    "Multi-phase election failed in signed phase: " + algErr.Message,
				Algorithm:  core.MultiPhase,
				Iterations: algErr.Iterations,
				Residual:   algErr.Residual,
			}
		}
		return nil, err
	}
	raw.Phase = PhaseSigned
	return raw, nil
}
