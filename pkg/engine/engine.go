// Package engine orchestrates election runs: validation, override
// application, algorithm dispatch and result normalization live here so the
// selection methods stay pure.
package engine

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/staketools/offline-election/pkg/algorithm"
	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/diagnostics"
	"github.com/staketools/offline-election/pkg/election"
)

// Engine executes elections. It is stateless between runs and safe for
// concurrent use.
type Engine struct {
	log   *zap.Logger
	clock func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock replaces the timestamp source. Reproducible runs inject a fixed
// clock so identical inputs serialize to identical bytes.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{log: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one election. The sequence is fixed: validate, apply
// overrides and re-validate, dispatch to the configured algorithm, normalize
// the raw selection into the public result shape. The first failure at any
// stage aborts the run; a partial result is never returned.
func (e *Engine) Execute(config election.ElectionConfiguration, data *election.ElectionData) (*election.ElectionResult, error) {
	result, _, err := e.run(config, data, false)
	return result, err
}

// ExecuteWithDiagnostics is Execute plus, when requested, the diagnostics
// bundle explaining the outcome.
func (e *Engine) ExecuteWithDiagnostics(config election.ElectionConfiguration, data *election.ElectionData, wantDiagnostics bool) (*election.ElectionResult, *diagnostics.Diagnostics, error) {
	return e.run(config, data, wantDiagnostics)
}

func (e *Engine) run(config election.ElectionConfiguration, data *election.ElectionData, wantDiagnostics bool) (*election.ElectionResult, *diagnostics.Diagnostics, error) {
	start := e.clock()

	if err := config.Validate(); err != nil {
		return nil, nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, nil, err
	}
	if err := config.ValidateAgainstData(len(data.Candidates)); err != nil {
		return nil, nil, err
	}

	workData, workConfig := data, config
	if !config.Overrides.IsEmpty() {
		workData, workConfig = config.Overrides.Apply(data, config)
		e.log.Debug("applied overrides",
			zap.Int("candidate_stakes", len(config.Overrides.CandidateStakes)),
			zap.Int("nominator_stakes", len(config.Overrides.NominatorStakes)),
			zap.Int("edge_modifications", len(config.Overrides.VotingEdges)))

		if err := workConfig.Validate(); err != nil {
			return nil, nil, err
		}
		if err := workData.Validate(); err != nil {
			return nil, nil, err
		}
		if err := workConfig.ValidateAgainstData(len(workData.Candidates)); err != nil {
			return nil, nil, err
		}
	}

	method, err := algorithm.ForType(workConfig.Algorithm)
	if err != nil {
		return nil, nil, err
	}

	e.log.Info("executing election",
		zap.String("algorithm", method.Name()),
		zap.Uint32("active_set_size", workConfig.ActiveSetSize),
		zap.Int("candidates", len(workData.Candidates)),
		zap.Int("nominators", len(workData.Nominators)))

	raw, err := method.Execute(workData.Candidates, workData.Nominators, workConfig.ActiveSetSize)
	if err != nil {
		return nil, nil, err
	}

	result, err := e.normalize(raw, workData, workConfig)
	if err != nil {
		return nil, nil, err
	}
	result.ExecutionMetadata.ExecutionTimestamp = start.UTC().Format(time.RFC3339)

	if err := e.verify(result, workConfig); err != nil {
		return nil, nil, err
	}

	e.log.Info("election complete",
		zap.Int("selected", len(result.SelectedValidators)),
		zap.Int("allocations", len(result.StakeDistribution)),
		zap.String("total_stake", result.TotalStake.String()))

	var diag *diagnostics.Diagnostics
	if wantDiagnostics {
		diag, err = diagnostics.NewGenerator().Generate(result, workData)
		if err != nil {
			return nil, nil, err
		}
	}
	return result, diag, nil
}

// normalize turns a raw selection into the public result shape: winners keep
// their selection order with 1-based ranks, backing adds self stake to the
// assigned nominations, and allocations are ordered by nominator then
// validator id so output bytes never depend on execution order.
func (e *Engine) normalize(raw *algorithm.RawSelection, data *election.ElectionData, config election.ElectionConfiguration) (*election.ElectionResult, error) {
	backing := make(map[string]core.StakeAmount, len(raw.Winners))
	nominatorCount := make(map[string]uint32, len(raw.Winners))
	for _, id := range raw.Winners {
		if _, dup := backing[id]; dup {
			return nil, &core.InvalidDataError{Message: fmt.Sprintf("Algorithm selected '%s' more than once", id)}
		}
		c := data.FindCandidate(id)
		if c == nil {
			return nil, &core.InvalidDataError{Message: fmt.Sprintf("Algorithm selected unknown candidate '%s'", id)}
		}
		backing[id] = c.Stake
	}

	var allocations []election.StakeAllocation
	for _, assignment := range raw.Assignments {
		nominator := data.FindNominator(assignment.NominatorID)
		if nominator == nil {
			return nil, &core.InvalidDataError{Message: fmt.Sprintf("Algorithm assigned stake for unknown nominator '%s'", assignment.NominatorID)}
		}

		assigned := core.NewStake(0)
		for _, edge := range assignment.Edges {
			if edge.Amount.IsZero() {
				continue
			}
			if _, ok := backing[edge.ValidatorID]; !ok {
				return nil, &core.InvalidDataError{Message: fmt.Sprintf("Algorithm assigned stake to unelected candidate '%s'", edge.ValidatorID)}
			}
			backing[edge.ValidatorID] = backing[edge.ValidatorID].Add(edge.Amount)
			nominatorCount[edge.ValidatorID]++
			assigned = assigned.Add(edge.Amount)

			allocations = append(allocations, election.StakeAllocation{
				NominatorID: assignment.NominatorID,
				ValidatorID: edge.ValidatorID,
				Amount:      edge.Amount,
				Proportion:  proportionOf(edge.Amount, nominator.Stake),
			})
		}

		if assigned.Cmp(nominator.Stake) > 0 {
			return nil, &core.InvalidDataError{
				Message: fmt.Sprintf("Nominator '%s' was assigned %s, more than its declared stake %s",
					assignment.NominatorID, assigned, nominator.Stake),
			}
		}
	}

	sort.Slice(allocations, func(i, j int) bool {
		if allocations[i].NominatorID != allocations[j].NominatorID {
			return allocations[i].NominatorID < allocations[j].NominatorID
		}
		return allocations[i].ValidatorID < allocations[j].ValidatorID
	})

	winners := make([]election.SelectedValidator, 0, len(raw.Winners))
	total := core.NewStake(0)
	for i, id := range raw.Winners {
		winners = append(winners, election.SelectedValidator{
			AccountID:         id,
			TotalBackingStake: backing[id],
			NominatorCount:    nominatorCount[id],
			Rank:              uint32(i + 1),
		})
		total = total.Add(backing[id])
	}

	meta := election.ExecutionMetadata{Phase: raw.Phase}
	switch {
	case config.BlockNumber != nil:
		block := *config.BlockNumber
		meta.BlockNumber = &block
	case data.Metadata != nil && data.Metadata.BlockNumber != nil:
		block := *data.Metadata.BlockNumber
		meta.BlockNumber = &block
	}
	if data.Metadata != nil && data.Metadata.Source != "" {
		meta.DataSource = string(data.Metadata.Source)
	}

	return &election.ElectionResult{
		SelectedValidators: winners,
		StakeDistribution:  allocations,
		TotalStake:         total,
		AlgorithmUsed:      config.Algorithm,
		ExecutionMetadata:  meta,
	}, nil
}

// verify rejects results violating the engine's own output contract.
func (e *Engine) verify(result *election.ElectionResult, config election.ElectionConfiguration) error {
	if len(result.SelectedValidators) != int(config.ActiveSetSize) {
		return core.ErrValidationf("selected_validators", "Result has %d validators but expected %d",
			len(result.SelectedValidators), config.ActiveSetSize)
	}

	total := core.NewStake(0)
	for _, v := range result.SelectedValidators {
		total = total.Add(v.TotalBackingStake)
	}
	if total.Cmp(result.TotalStake) != 0 {
		return core.ErrValidationf("total_stake", "Backing stakes sum to %s but total stake is %s",
			total, result.TotalStake)
	}
	return nil
}

// proportionOf is amount/stake as a float, zero when the stake is zero.
func proportionOf(amount, stake core.StakeAmount) float64 {
	if stake.IsZero() {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(amount.ToBig(), stake.ToBig()).Float64()
	return f
}
