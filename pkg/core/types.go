package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AlgorithmType identifies one of the supported election methods.
type AlgorithmType string

const (
	// SequentialPhragmen is the canonical sequential stake-balancing method.
	SequentialPhragmen AlgorithmType = "sequential-phragmen"
	// ParallelPhragmen is the max-min fairness variant.
	ParallelPhragmen AlgorithmType = "parallel-phragmen"
	// MultiPhase wraps the sequential method with phase metadata.
	MultiPhase AlgorithmType = "multi-phase"
)

// Algorithms lists every supported method in a stable order.
func Algorithms() []AlgorithmType {
	return []AlgorithmType{SequentialPhragmen, ParallelPhragmen, MultiPhase}
}

// ParseAlgorithm resolves a user-supplied algorithm name, accepting the short
// aliases the CLI documents.
func ParseAlgorithm(s string) (AlgorithmType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential-phragmen", "sequential":
		return SequentialPhragmen, nil
	case "parallel-phragmen", "parallel":
		return ParallelPhragmen, nil
	case "multi-phase", "multiphase":
		return MultiPhase, nil
	default:
		return "", ErrValidationf("algorithm", "unknown algorithm type: %s", s)
	}
}

func (a AlgorithmType) String() string { return string(a) }

// MarshalJSON encodes the algorithm as its kebab-case name.
func (a AlgorithmType) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// UnmarshalJSON accepts any of the documented aliases.
func (a *AlgorithmType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("algorithm must be a string: %w", err)
	}
	parsed, err := ParseAlgorithm(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// DataSourceKind identifies where election data came from.
type DataSourceKind string

const (
	// SourceRPC marks data fetched from a chain RPC endpoint.
	SourceRPC DataSourceKind = "rpc"
	// SourceFile marks data loaded from a JSON file.
	SourceFile DataSourceKind = "file"
	// SourceSynthetic marks programmatically built data.
	SourceSynthetic DataSourceKind = "synthetic"
)
