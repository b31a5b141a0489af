package election

import (
	"github.com/staketools/offline-election/pkg/core"
)

// DefaultActiveSetSize is the active set size used when none is configured.
const DefaultActiveSetSize = 100

// ElectionConfiguration controls how an election is executed.
type ElectionConfiguration struct {
	Algorithm     core.AlgorithmType `json:"algorithm"`
	ActiveSetSize uint32             `json:"active_set_size"`
	Overrides     *ElectionOverrides `json:"overrides,omitempty"`
	BlockNumber   *uint64            `json:"block_number,omitempty"`
}

// NewConfiguration returns a configuration with defaults: sequential Phragmen
// and an active set of DefaultActiveSetSize.
func NewConfiguration() ElectionConfiguration {
	return ElectionConfiguration{
		Algorithm:     core.SequentialPhragmen,
		ActiveSetSize: DefaultActiveSetSize,
	}
}

// Validate checks internal consistency of the configuration.
func (c *ElectionConfiguration) Validate() error {
	if c.ActiveSetSize == 0 {
		return core.ErrValidation("active_set_size", "Active set size must be positive")
	}
	if _, err := core.ParseAlgorithm(string(c.Algorithm)); err != nil {
		return core.ErrValidationf("algorithm", "Unknown algorithm: %s", c.Algorithm)
	}
	return nil
}

// ValidateAgainstData checks that the configured active set size can be
// satisfied by the available candidate count.
func (c *ElectionConfiguration) ValidateAgainstData(candidateCount int) error {
	if int(c.ActiveSetSize) > candidateCount {
		return &core.InsufficientCandidatesError{
			Requested: c.ActiveSetSize,
			Available: uint32(candidateCount),
		}
	}
	return nil
}

// EffectiveSetSize is the active set size after overrides are taken into
// account.
func (c *ElectionConfiguration) EffectiveSetSize() uint32 {
	if c.Overrides != nil && c.Overrides.ActiveSetSize != nil {
		return *c.Overrides.ActiveSetSize
	}
	return c.ActiveSetSize
}

// ConfigBuilder assembles an ElectionConfiguration step by step. Build is the
// only terminal operation and validates before returning.
type ConfigBuilder struct {
	cfg ElectionConfiguration
}

// NewConfigBuilder starts a builder from the defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{cfg: NewConfiguration()}
}

// Algorithm sets the election algorithm.
func (b *ConfigBuilder) Algorithm(algorithm core.AlgorithmType) *ConfigBuilder {
	b.cfg.Algorithm = algorithm
	return b
}

// ActiveSetSize sets the number of validators to select.
func (b *ConfigBuilder) ActiveSetSize(size uint32) *ConfigBuilder {
	b.cfg.ActiveSetSize = size
	return b
}

// Overrides attaches parameter overrides.
func (b *ConfigBuilder) Overrides(overrides ElectionOverrides) *ConfigBuilder {
	b.cfg.Overrides = &overrides
	return b
}

// BlockNumber pins the configuration to a chain block for RPC snapshots.
func (b *ConfigBuilder) BlockNumber(block uint64) *ConfigBuilder {
	b.cfg.BlockNumber = &block
	return b
}

// Build validates the assembled configuration and returns it.
func (b *ConfigBuilder) Build() (ElectionConfiguration, error) {
	if err := b.cfg.Validate(); err != nil {
		return ElectionConfiguration{}, err
	}
	return b.cfg, nil
}
