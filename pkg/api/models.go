package api

import (
	"github.com/staketools/offline-election/pkg/election"
)

// Error codes returned in ErrorResponse.Error.
const (
	codeValidation             = "VALIDATION_ERROR"
	codeInsufficientCandidates = "INSUFFICIENT_CANDIDATES"
	codeRPC                    = "RPC_ERROR"
	codeAlgorithm              = "ALGORITHM_ERROR"
	codeElection               = "ELECTION_ERROR"
	codeNotFound               = "NOT_FOUND"
	codeInternal               = "INTERNAL_ERROR"
)

// Data source types accepted in ElectionRequest.DataSource.Type.
const (
	sourceTypeRPC       = "rpc"
	sourceTypeJSON      = "json"
	sourceTypeSynthetic = "synthetic"
)

// ElectionRequest is the body of POST /elections/run.
type ElectionRequest struct {
	// Algorithm selects the election method, see core.ParseAlgorithm for the
	// accepted names.
	Algorithm string `json:"algorithm" validate:"required"`
	// ActiveSetSize is the number of validators to select.
	ActiveSetSize uint32 `json:"active_set_size" validate:"required,gt=0"`
	// DataSource says where the election data comes from.
	DataSource DataSource `json:"data_source" validate:"required"`
	// Overrides are optional what-if modifications applied before execution.
	Overrides *election.ElectionOverrides `json:"overrides,omitempty"`
	// BlockNumber optionally labels the result with a snapshot height.
	BlockNumber *uint64 `json:"block_number,omitempty"`
}

// DataSource is a tagged union over the three supported inputs. Type selects
// the variant; the other fields are read according to it.
type DataSource struct {
	Type string `json:"type" validate:"required,oneof=rpc json synthetic"`
	// URL is the node endpoint, required for the rpc variant.
	URL string `json:"url,omitempty" validate:"required_if=Type rpc"`
	// BlockNumber pins the rpc snapshot to a block, latest when absent.
	BlockNumber *uint64 `json:"block_number,omitempty"`
	// Data is the inline election data for the json variant.
	Data *election.ElectionData `json:"data,omitempty"`
	// Candidates and Nominators describe the synthetic variant.
	Candidates []CandidateInput `json:"candidates,omitempty" validate:"dive"`
	Nominators []NominatorInput `json:"nominators,omitempty" validate:"dive"`
}

// CandidateInput is a synthetic candidate. Stake is a decimal string so
// amounts above 2^64 survive JSON.
type CandidateInput struct {
	AccountID string `json:"account_id" validate:"required"`
	Stake     string `json:"stake" validate:"required"`
}

// NominatorInput is a synthetic nominator with its voting targets.
type NominatorInput struct {
	AccountID string   `json:"account_id" validate:"required"`
	Stake     string   `json:"stake" validate:"required"`
	Targets   []string `json:"targets"`
}

// ElectionResponse is returned by POST /elections/run and
// GET /elections/{id}/results.
type ElectionResponse struct {
	// ElectionID identifies the stored run for later retrieval.
	ElectionID string `json:"election_id"`
	// Result is the full election outcome.
	Result *election.ElectionResult `json:"result"`
	// ExecutionTimeMS is the wall-clock run duration.
	ExecutionTimeMS *uint64 `json:"execution_time_ms,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Field   string                 `json:"field,omitempty"`
}
