package core

import "fmt"

// ValidationError reports election data or configuration that violates an
// invariant. Field names the offending field when known.
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.Message, e.Field)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ErrValidation creates a new validation error
func ErrValidation(field, msg string) error {
	return &ValidationError{Message: msg, Field: field}
}

// ErrValidationf creates a new formatted validation error
func ErrValidationf(field, format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Field: field}
}

// AlgorithmError reports a failure inside an election method, typically
// non-convergence of the balancing loop. Iterations and Residual carry the
// context needed to analyze the failure.
type AlgorithmError struct {
	Message   string
	Algorithm AlgorithmType
	// Iterations is the number of balancing passes executed before giving up.
	Iterations int
	// Residual is the remaining stake imbalance when the iteration cap hit.
	Residual string
}

func (e *AlgorithmError) Error() string {
	if e.Iterations > 0 {
		return fmt.Sprintf("algorithm error: %s (algorithm: %s, iterations: %d, residual: %s)",
			e.Message, e.Algorithm, e.Iterations, e.Residual)
	}
	return fmt.Sprintf("algorithm error: %s (algorithm: %s)", e.Message, e.Algorithm)
}

// InsufficientCandidatesError reports an active set size that exceeds the
// number of available candidates.
type InsufficientCandidatesError struct {
	Requested uint32
	Available uint32
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("insufficient candidates: requested %d, available %d", e.Requested, e.Available)
}

// InvalidDataError reports structurally broken data not tied to one field.
type InvalidDataError struct {
	Message string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("invalid data: %s", e.Message)
}

// RPCError reports a failed interaction with a chain RPC endpoint.
type RPCError struct {
	Message string
	URL     string
	Err     error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error: %s (url: %s)", e.Message, e.URL)
}

func (e *RPCError) Unwrap() error { return e.Err }

// FileError reports a failed file read or write.
type FileError struct {
	Message string
	Path    string
	Err     error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file error: %s (path: %s)", e.Message, e.Path)
}

func (e *FileError) Unwrap() error { return e.Err }
