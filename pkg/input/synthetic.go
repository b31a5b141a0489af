package input

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/staketools/offline-election/pkg/address"
	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/election"
)

// SyntheticBuilder assembles election data programmatically, for accounts
// that need not exist on any chain. Add calls chain; the first problem they
// detect sticks and surfaces from Build.
type SyntheticBuilder struct {
	candidates []election.ValidatorCandidate
	nominators []election.Nominator
	err        error
}

// NewSyntheticBuilder creates an empty builder.
func NewSyntheticBuilder() *SyntheticBuilder {
	return &SyntheticBuilder{}
}

// AddCandidate appends a candidate. Duplicate account ids are rejected.
func (b *SyntheticBuilder) AddCandidate(accountID string, stake core.StakeAmount) *SyntheticBuilder {
	if b.err != nil {
		return b
	}
	for i := range b.candidates {
		if b.candidates[i].AccountID == accountID {
			b.err = core.ErrValidationf("candidates", "Duplicate candidate account ID: %s", accountID)
			return b
		}
	}
	b.candidates = append(b.candidates, election.NewCandidate(accountID, stake))
	return b
}

// AddNominator appends a nominator with its targets. Duplicate account ids
// are rejected; duplicate targets collapse.
func (b *SyntheticBuilder) AddNominator(accountID string, stake core.StakeAmount, targets ...string) *SyntheticBuilder {
	if b.err != nil {
		return b
	}
	for i := range b.nominators {
		if b.nominators[i].AccountID == accountID {
			b.err = core.ErrValidationf("nominators", "Duplicate nominator account ID: %s", accountID)
			return b
		}
	}
	n := election.NewNominator(accountID, stake)
	for _, t := range targets {
		n.AddTarget(t)
	}
	b.nominators = append(b.nominators, n)
	return b
}

// AddVotingEdge adds one target to an existing nominator.
func (b *SyntheticBuilder) AddVotingEdge(nominatorID, candidateID string) *SyntheticBuilder {
	if b.err != nil {
		return b
	}
	for i := range b.nominators {
		if b.nominators[i].AccountID == nominatorID {
			b.nominators[i].AddTarget(candidateID)
			return b
		}
	}
	b.err = core.ErrValidationf("nominators", "Nominator not found: %s", nominatorID)
	return b
}

// Err returns the sticky error without building.
func (b *SyntheticBuilder) Err() error {
	return b.err
}

// Build validates the assembled electorate and returns it stamped as
// synthetic data.
func (b *SyntheticBuilder) Build() (*election.ElectionData, error) {
	if b.err != nil {
		return nil, b.err
	}
	data := election.NewElectionData()
	for i := range b.candidates {
		if err := data.AddCandidate(b.candidates[i]); err != nil {
			return nil, err
		}
	}
	for i := range b.nominators {
		if err := data.AddNominator(b.nominators[i]); err != nil {
			return nil, err
		}
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	data.Metadata = &election.ElectionMetadata{Source: core.SourceSynthetic}
	return data, nil
}

// GeneratorConfig controls the deterministic electorate generator.
type GeneratorConfig struct {
	// Seed feeds the account id derivation; the same seed always produces
	// the same electorate.
	Seed       string
	Candidates int
	Nominators int
	// TargetsPer is how many candidates each nominator backs.
	TargetsPer int
	// CandidateBase is the stake unit scaled by the Fibonacci spread.
	CandidateBase uint64
	// NominatorBase is the stake unit scaled per nominator.
	NominatorBase uint64
}

// DefaultGeneratorConfig returns a small electorate suitable for quick runs.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:          "offline-election",
		Candidates:    10,
		Nominators:    20,
		TargetsPer:    3,
		CandidateBase: 1_000_000,
		NominatorBase: 500_000,
	}
}

// GenerateSynthetic builds a reproducible electorate. Candidate stakes follow
// a Fibonacci spread so backing is deliberately uneven, nominator stakes
// cycle through five tiers, and every account id is a valid SS58 address
// derived from the seed.
func GenerateSynthetic(cfg GeneratorConfig) (*election.ElectionData, error) {
	if cfg.Candidates < 1 {
		return nil, core.ErrValidation("candidates", "Generator needs at least one candidate")
	}
	if cfg.Nominators < 1 {
		return nil, core.ErrValidation("nominators", "Generator needs at least one nominator")
	}
	if cfg.TargetsPer < 1 || cfg.TargetsPer > cfg.Candidates {
		return nil, core.ErrValidationf("targets_per", "Targets per nominator must be between 1 and %d", cfg.Candidates)
	}

	builder := NewSyntheticBuilder()

	stakes := fibonacciStakes(cfg.Candidates, cfg.CandidateBase)
	candidateIDs := make([]string, cfg.Candidates)
	for i := 0; i < cfg.Candidates; i++ {
		candidateIDs[i] = syntheticAccountID(cfg.Seed, "candidate", i)
		builder.AddCandidate(candidateIDs[i], stakes[i])
	}

	for i := 0; i < cfg.Nominators; i++ {
		id := syntheticAccountID(cfg.Seed, "nominator", i)
		targets := make([]string, 0, cfg.TargetsPer)
		for j := 0; j < cfg.TargetsPer; j++ {
			targets = append(targets, candidateIDs[(i+j)%cfg.Candidates])
		}
		stake := core.NewStake(cfg.NominatorBase).MulUint64(uint64(1 + i%5))
		builder.AddNominator(id, stake, targets...)
	}

	return builder.Build()
}

// syntheticAccountID derives a stable SS58 address from the seed, role and
// index. The Keccak digest doubles as the 32-byte public key.
func syntheticAccountID(seed, role string, index int) string {
	material := crypto.Keccak256([]byte(fmt.Sprintf("%s-%s-%d", seed, role, index)))
	return address.MustEncode(material, address.GenericPrefix)
}

// fibonacciStakes scales the base stake by a Fibonacci sequence, reversed so
// the largest stake lands on the first candidate. Terms saturate at the
// 64-bit boundary before scaling.
func fibonacciStakes(count int, base uint64) []core.StakeAmount {
	fib := make([]uint64, 2, count+2)
	fib[0], fib[1] = 1, 1
	for len(fib) < count {
		next := fib[len(fib)-1] + fib[len(fib)-2]
		if next < fib[len(fib)-1] {
			next = fib[len(fib)-1]
		}
		fib = append(fib, next)
	}

	stakes := make([]core.StakeAmount, count)
	for i := 0; i < count; i++ {
		stakes[i] = core.NewStake(base).MulUint64(fib[count-1-i])
	}
	return stakes
}
