package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/staketools/offline-election/pkg/application"
	"github.com/staketools/offline-election/pkg/core"
	"github.com/staketools/offline-election/pkg/input"
)

// NewValidateCmd creates the validate command
func NewValidateCmd(app *application.App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate an election data file",
		Long:  "Load a JSON election data file, run the full validation pass and print a summary.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return fmt.Errorf("application not initialized")
			}

			data, err := input.NewJSONLoader().LoadFromFile(args[0])
			if err != nil {
				// Exit 2 distinguishes invalid data from operational
				// failures like an unreadable path.
				var vErr *core.ValidationError
				if errors.As(err, &vErr) {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(2)
				}
				return err
			}

			fmt.Printf("Election data is valid\n")
			fmt.Printf("Candidates:  %d\n", len(data.Candidates))
			fmt.Printf("Nominators:  %d\n", len(data.Nominators))
			fmt.Printf("Voting edges: %d\n", len(data.Edges()))
			if data.Metadata != nil {
				if data.Metadata.Chain != "" {
					fmt.Printf("Chain:       %s\n", data.Metadata.Chain)
				}
				if data.Metadata.BlockNumber != nil {
					fmt.Printf("Block:       %d\n", *data.Metadata.BlockNumber)
				}
			}
			return nil
		},
	}
}
