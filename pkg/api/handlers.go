package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/diagnostics"
	"github.com/staketools/offline-election/pkg/election"
	"github.com/staketools/offline-election/pkg/engine"
	"github.com/staketools/offline-election/pkg/input"
)

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

// Handlers implements the REST endpoints. Runs execute synchronously and
// are persisted together with their input so diagnostics can be produced on
// demand afterwards.
type Handlers struct {
	engine  *engine.Engine
	store   *RunStore
	metrics *Metrics
	log     *zap.Logger

	// loadRPC is swapped out in tests to avoid dialing a node.
	loadRPC func(url string, block *uint64) (*election.ElectionData, error)
}

// NewHandlers wires the endpoint implementations. A nil logger disables
// logging, a nil metrics set gets replaced with a fresh one.
func NewHandlers(eng *engine.Engine, store *RunStore, metrics *Metrics, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Handlers{
		engine:  eng,
		store:   store,
		metrics: metrics,
		log:     log,
		loadRPC: loadFromRPC,
	}
}

func loadFromRPC(url string, block *uint64) (*election.ElectionData, error) {
	loader, err := input.NewRPCLoader(url)
	if err != nil {
		return nil, err
	}
	if block != nil {
		return loader.LoadAtBlock(*block)
	}
	return loader.LoadLatest()
}

// RunElection handles POST /elections/run.
func (h *Handlers) RunElection(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   codeValidation,
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}
	if err := requestValidator.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, validationResponse(err))
		return
	}

	algorithm, err := core.ParseAlgorithm(req.Algorithm)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   codeValidation,
			Message: "Invalid algorithm: " + err.Error(),
			Field:   "algorithm",
		})
		return
	}

	data, err := h.loadData(req.DataSource)
	if err != nil {
		h.metrics.ObserveRun(algorithm.String(), "error", 0)
		h.writeElectionError(w, err)
		return
	}

	builder := election.NewConfigBuilder().
		Algorithm(algorithm).
		ActiveSetSize(req.ActiveSetSize)
	if req.BlockNumber != nil {
		builder = builder.BlockNumber(*req.BlockNumber)
	}
	if req.Overrides != nil {
		builder = builder.Overrides(*req.Overrides)
	}
	config, err := builder.Build()
	if err != nil {
		h.metrics.ObserveRun(algorithm.String(), "error", 0)
		h.writeElectionError(w, err)
		return
	}

	result, err := h.engine.Execute(config, data)
	if err != nil {
		h.metrics.ObserveRun(algorithm.String(), "error", 0)
		h.writeElectionError(w, err)
		return
	}

	elapsed := time.Since(start)
	elapsedMS := uint64(elapsed.Milliseconds())
	response := ElectionResponse{
		ElectionID:      uuid.New().String(),
		Result:          result,
		ExecutionTimeMS: &elapsedMS,
	}

	if err := h.store.Save(response.ElectionID, StoredRun{Response: response, Data: data}); err != nil {
		h.metrics.ObserveRun(algorithm.String(), "error", 0)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   codeInternal,
			Message: "Failed to store election run: " + err.Error(),
		})
		return
	}

	h.metrics.ObserveRun(algorithm.String(), "ok", elapsed.Seconds())
	h.log.Info("election run complete",
		zap.String("election_id", response.ElectionID),
		zap.String("algorithm", algorithm.String()),
		zap.Int("validators", len(result.SelectedValidators)),
		zap.Duration("elapsed", elapsed))

	writeJSON(w, http.StatusOK, response)
}

// GetResults handles GET /elections/{id}/results.
func (h *Handlers) GetResults(w http.ResponseWriter, r *http.Request) {
	electionID := mux.Vars(r)["id"]
	run, found, err := h.store.Get(electionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   codeInternal,
			Message: err.Error(),
		})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   codeNotFound,
			Message: "Election not found: " + electionID,
		})
		return
	}
	writeJSON(w, http.StatusOK, run.Response)
}

// GetDiagnostics handles GET /elections/{id}/diagnostics. Diagnostics are
// generated on demand from the stored run.
func (h *Handlers) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	electionID := mux.Vars(r)["id"]
	run, found, err := h.store.Get(electionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   codeInternal,
			Message: err.Error(),
		})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   codeNotFound,
			Message: "Election not found: " + electionID,
		})
		return
	}

	diag, err := diagnostics.NewGenerator().Generate(run.Response.Result, run.Data)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   codeInternal,
			Message: "Failed to generate diagnostics: " + err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, diag)
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// loadData resolves the request's data source into validated election data.
func (h *Handlers) loadData(src DataSource) (*election.ElectionData, error) {
	switch src.Type {
	case sourceTypeRPC:
		return h.loadRPC(src.URL, src.BlockNumber)
	case sourceTypeJSON:
		if src.Data == nil {
			return nil, core.ErrValidation("data_source.data", "Data source 'json' requires an inline data object")
		}
		if err := src.Data.Validate(); err != nil {
			return nil, err
		}
		return src.Data, nil
	case sourceTypeSynthetic:
		builder := input.NewSyntheticBuilder()
		for _, c := range src.Candidates {
			stake, err := core.StakeFromDecimal(c.Stake)
			if err != nil {
				return nil, core.ErrValidationf("candidates.stake", "Invalid stake value: %v", err)
			}
			builder.AddCandidate(c.AccountID, stake)
		}
		for _, n := range src.Nominators {
			stake, err := core.StakeFromDecimal(n.Stake)
			if err != nil {
				return nil, core.ErrValidationf("nominators.stake", "Invalid stake value: %v", err)
			}
			builder.AddNominator(n.AccountID, stake, n.Targets...)
		}
		return builder.Build()
	default:
		return nil, core.ErrValidationf("data_source.type", "Unknown data source type: %s", src.Type)
	}
}

// writeElectionError maps domain errors onto HTTP status codes.
func (h *Handlers) writeElectionError(w http.ResponseWriter, err error) {
	var (
		validationErr   *core.ValidationError
		insufficientErr *core.InsufficientCandidatesError
		rpcErr          *core.RPCError
		algorithmErr    *core.AlgorithmError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   codeValidation,
			Message: validationErr.Message,
			Field:   validationErr.Field,
		})
	case errors.As(err, &insufficientErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: codeInsufficientCandidates,
			Message: fmt.Sprintf("Requested %d candidates but only %d available",
				insufficientErr.Requested, insufficientErr.Available),
		})
	case errors.As(err, &rpcErr):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   codeRPC,
			Message: rpcErr.Message,
		})
	case errors.As(err, &algorithmErr):
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   codeAlgorithm,
			Message: algorithmErr.Message,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   codeElection,
			Message: err.Error(),
		})
	}
}

// validationResponse turns a validator error into the first offending field.
func validationResponse(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return ErrorResponse{
			Error:   codeValidation,
			Message: fmt.Sprintf("Invalid request: '%s' failed on the '%s' rule", first.Namespace(), first.Tag()),
			Field:   first.Field(),
		}
	}
	return ErrorResponse{Error: codeValidation, Message: "Invalid request: " + err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
