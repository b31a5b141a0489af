package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/staketools/offline-election/configs"
	"github.com/staketools/offline-election/pkg/application"
	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/diagnostics"
	"github.com/staketools/offline-election/pkg/election"
	"github.com/staketools/offline-election/pkg/engine"
	"github.com/staketools/offline-election/pkg/input"
)

var (
	// Run command flags
	runAlgorithm       string
	runActiveSetSize   uint32
	runRPCURL          string
	runNetwork         string
	runBlockNumber     uint64
	runInputFile       string
	runSynthetic       bool
	runDiagnostics     bool
	runOutputFile      string
	runFormat          string
	runCandidateStakes []string
	runNominatorStakes []string
	runAddEdges        []string
	runRemoveEdges     []string
	runSetSizeOverride uint32
)

// runOutput is the document written by the run command. Diagnostics are
// only present when requested.
type runOutput struct {
	Result      *election.ElectionResult `json:"result"`
	Diagnostics *diagnostics.Diagnostics `json:"diagnostics,omitempty"`
}

// NewRunCmd creates the run command
func NewRunCmd(app *application.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an election simulation",
		Long:  "Run an election simulation against RPC, file or synthetic data and print the selected validator set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return fmt.Errorf("application not initialized")
			}

			data, err := loadRunData(cmd, app)
			if err != nil {
				return err
			}

			algorithm, err := core.ParseAlgorithm(runAlgorithm)
			if err != nil {
				return core.ErrValidationf("algorithm", "Invalid algorithm: %v", err)
			}

			builder := election.NewConfigBuilder().
				Algorithm(algorithm).
				ActiveSetSize(runActiveSetSize)
			if cmd.Flags().Changed("block-number") {
				builder = builder.BlockNumber(runBlockNumber)
			}
			overrides, err := parseRunOverrides(cmd)
			if err != nil {
				return err
			}
			if overrides != nil {
				builder = builder.Overrides(*overrides)
			}
			config, err := builder.Build()
			if err != nil {
				return err
			}

			eng := engine.New(engine.WithLogger(app.Log))
			result, diag, err := eng.ExecuteWithDiagnostics(config, data, runDiagnostics)
			if err != nil {
				return err
			}

			app.Log.Info("election finished",
				zap.String("algorithm", algorithm.String()),
				zap.Int("validators", len(result.SelectedValidators)))

			return writeRunOutput(runOutput{Result: result, Diagnostics: diag})
		},
	}

	cmd.Flags().StringVar(&runAlgorithm, "algorithm", "", "election algorithm (sequential-phragmen, parallel-phragmen, multi-phase)")
	cmd.Flags().Uint32Var(&runActiveSetSize, "active-set-size", 0, "number of validators to select")
	cmd.Flags().StringVar(&runRPCURL, "rpc-url", "", "RPC URL for fetching on-chain data")
	cmd.Flags().StringVar(&runNetwork, "network", "", "well-known network to fetch from ("+strings.Join(configs.NetworkNames(), ", ")+")")
	cmd.Flags().Uint64Var(&runBlockNumber, "block-number", 0, "block number for RPC snapshot")
	cmd.Flags().StringVar(&runInputFile, "input-file", "", "input file path (JSON format)")
	cmd.Flags().BoolVar(&runSynthetic, "synthetic", false, "use built-in synthetic example data")
	cmd.Flags().BoolVar(&runDiagnostics, "diagnostics", false, "include detailed diagnostics in output")
	cmd.Flags().StringVar(&runOutputFile, "output-file", "", "output file path (default: stdout)")
	cmd.Flags().StringVar(&runFormat, "format", "json", "output format: json or human-readable")
	cmd.Flags().StringArrayVar(&runCandidateStakes, "override-candidate-stake", nil, "override candidate stake (format: account_id=stake, can be repeated)")
	cmd.Flags().StringArrayVar(&runNominatorStakes, "override-nominator-stake", nil, "override nominator stake (format: account_id=stake, can be repeated)")
	cmd.Flags().StringArrayVar(&runAddEdges, "add-edge", nil, "add a voting edge (format: nominator_id:candidate_id, can be repeated)")
	cmd.Flags().StringArrayVar(&runRemoveEdges, "remove-edge", nil, "remove a voting edge (format: nominator_id:candidate_id, can be repeated)")
	cmd.Flags().Uint32Var(&runSetSizeOverride, "override-active-set-size", 0, "override the active set size without touching --active-set-size")

	_ = cmd.MarkFlagRequired("algorithm")
	_ = cmd.MarkFlagRequired("active-set-size")
	cmd.MarkFlagsOneRequired("rpc-url", "network", "input-file", "synthetic")
	cmd.MarkFlagsMutuallyExclusive("rpc-url", "network", "input-file", "synthetic")

	return cmd
}

// loadRunData resolves the selected data source flag into election data.
func loadRunData(cmd *cobra.Command, app *application.App) (*election.ElectionData, error) {
	switch {
	case runRPCURL != "":
		return loadFromRPC(cmd, runRPCURL)
	case runNetwork != "":
		network, ok := configs.GetNetwork(runNetwork)
		if !ok {
			return nil, core.ErrValidationf("network",
				"Unknown network '%s'. Known networks: %s", runNetwork, strings.Join(configs.NetworkNames(), ", "))
		}
		app.Log.Info("resolved network endpoint",
			zap.String("network", network.Name),
			zap.String("rpc_url", network.RPCURL))
		return loadFromRPC(cmd, network.RPCURL)
	case runInputFile != "":
		return input.NewJSONLoader().LoadFromFile(runInputFile)
	case runSynthetic:
		return syntheticExample()
	default:
		return nil, core.ErrValidation("", "Must specify one of: --rpc-url, --network, --input-file, or --synthetic")
	}
}

// loadFromRPC fetches a snapshot from the node at url, pinned to the
// requested block when one was given.
func loadFromRPC(cmd *cobra.Command, url string) (*election.ElectionData, error) {
	loader, err := input.NewRPCLoader(url)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("block-number") {
		return loader.LoadAtBlock(runBlockNumber)
	}
	return loader.LoadLatest()
}

// syntheticExample is a small fixed data set with the edge cases a first
// run should surface: a zero stake candidate and an idle zero stake
// nominator.
func syntheticExample() (*election.ElectionData, error) {
	return input.NewSyntheticBuilder().
		AddCandidate("0x1111111111111111111111111111111111111111111111111111111111111111", core.NewStake(1_000_000)).
		AddCandidate("0x2222222222222222222222222222222222222222222222222222222222222222", core.NewStake(2_000_000)).
		AddCandidate("0x3333333333333333333333333333333333333333333333333333333333333333", core.NewStake(1_500_000)).
		AddCandidate("0x4444444444444444444444444444444444444444444444444444444444444444", core.NewStake(0)).
		AddNominator("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", core.NewStake(500_000),
			"0x1111111111111111111111111111111111111111111111111111111111111111",
			"0x2222222222222222222222222222222222222222222222222222222222222222").
		AddNominator("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", core.NewStake(300_000),
			"0x3333333333333333333333333333333333333333333333333333333333333333").
		AddNominator("0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc", core.NewStake(0)).
		Build()
}

// parseRunOverrides turns the override flags into an overrides set, nil when
// no override flag was given.
func parseRunOverrides(cmd *cobra.Command) (*election.ElectionOverrides, error) {
	hasSetSize := cmd.Flags().Changed("override-active-set-size")
	if len(runCandidateStakes) == 0 && len(runNominatorStakes) == 0 &&
		len(runAddEdges) == 0 && len(runRemoveEdges) == 0 && !hasSetSize {
		return nil, nil
	}
	overrides := election.NewOverrides()
	for _, s := range runCandidateStakes {
		accountID, stake, err := parseOverride(s, "candidate")
		if err != nil {
			return nil, err
		}
		overrides.SetCandidateStake(accountID, stake)
	}
	for _, s := range runNominatorStakes {
		accountID, stake, err := parseOverride(s, "nominator")
		if err != nil {
			return nil, err
		}
		overrides.SetNominatorStake(accountID, stake)
	}
	for _, s := range runAddEdges {
		nominatorID, candidateID, err := parseEdge(s, "add_edge")
		if err != nil {
			return nil, err
		}
		overrides.AddVotingEdge(nominatorID, candidateID)
	}
	for _, s := range runRemoveEdges {
		nominatorID, candidateID, err := parseEdge(s, "remove_edge")
		if err != nil {
			return nil, err
		}
		overrides.RemoveVotingEdge(nominatorID, candidateID)
	}
	if hasSetSize {
		overrides.SetActiveSetSize(runSetSizeOverride)
	}
	return overrides, nil
}

// parseEdge splits one "nominator_id:candidate_id" flag value.
func parseEdge(s, field string) (string, string, error) {
	nominatorID, candidateID, ok := strings.Cut(s, ":")
	nominatorID = strings.TrimSpace(nominatorID)
	candidateID = strings.TrimSpace(candidateID)
	if !ok || nominatorID == "" || candidateID == "" {
		return "", "", core.ErrValidationf(field,
			"Invalid voting edge format: '%s'. Expected format: nominator_id:candidate_id", s)
	}
	return nominatorID, candidateID, nil
}

// parseOverride splits one "account_id=stake" flag value.
func parseOverride(s, overrideType string) (string, core.StakeAmount, error) {
	field := "override_" + overrideType + "_stake"
	parts := strings.Split(s, "=")
	if len(parts) != 2 {
		return "", core.StakeAmount{}, core.ErrValidationf(field,
			"Invalid %s stake override format: '%s'. Expected format: account_id=stake", overrideType, s)
	}
	accountID := strings.TrimSpace(parts[0])
	stakeStr := strings.TrimSpace(parts[1])
	stake, err := core.StakeFromDecimal(stakeStr)
	if err != nil {
		return "", core.StakeAmount{}, core.ErrValidationf(field,
			"Invalid stake value '%s' in %s override: %v", stakeStr, overrideType, err)
	}
	return accountID, stake, nil
}

// writeRunOutput renders the result in the selected format and writes it to
// the output file or stdout.
func writeRunOutput(out runOutput) error {
	var rendered string
	if runFormat == "human-readable" {
		rendered = formatHumanReadable(out)
	} else {
		buf, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return &core.InvalidDataError{Message: "Failed to serialize result: " + err.Error()}
		}
		rendered = string(buf)
	}

	if runOutputFile != "" {
		if err := os.WriteFile(runOutputFile, []byte(rendered+"\n"), 0644); err != nil {
			return &core.FileError{Message: "Failed to write output file: " + err.Error(), Path: runOutputFile, Err: err}
		}
		return nil
	}
	fmt.Println(rendered)
	return nil
}

// formatHumanReadable renders a summary: header, the first ten validators
// and an elision line for the rest.
func formatHumanReadable(out runOutput) string {
	result := out.Result
	var b strings.Builder
	b.WriteString("Election Results\n")
	b.WriteString("================\n")
	fmt.Fprintf(&b, "Algorithm: %s\n", result.AlgorithmUsed)
	fmt.Fprintf(&b, "Total Stake: %s\n", result.TotalStake)
	fmt.Fprintf(&b, "Selected Validators: %d\n\n", len(result.SelectedValidators))

	b.WriteString("Selected Validators:\n")
	shown := len(result.SelectedValidators)
	if shown > 10 {
		shown = 10
	}
	for i := 0; i < shown; i++ {
		v := result.SelectedValidators[i]
		fmt.Fprintf(&b, "%d. %s - Stake: %s, Nominators: %d\n",
			i+1, v.AccountID, v.TotalBackingStake, v.NominatorCount)
	}
	if len(result.SelectedValidators) > 10 {
		fmt.Fprintf(&b, "... and %d more\n", len(result.SelectedValidators)-10)
	}

	if out.Diagnostics != nil && len(out.Diagnostics.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range out.Diagnostics.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
