package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"demodesk/internal/config"
)

// printJSON renders an operation response the way the HTTP surface
// would, so CLI output matches what the presentation layer sees.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ProvisionCommand creates (or re-discovers) a requester's demo
// account from the command line.
func ProvisionCommand() *cobra.Command {
	var requester, firstName, lastName string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision the demo account for a requester",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requester == "" {
				return fmt.Errorf("error: --requester flag is required")
			}
			d, err := buildDeps(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer d.Close()

			return printJSON(d.svc.CreateAccount(cmd.Context(), requester, firstName, lastName))
		},
	}

	cmd.Flags().StringVar(&requester, "requester", "", "Requester email the demo identity derives from (required)")
	cmd.Flags().StringVar(&firstName, "first", "Demo", "First name for a newly created account")
	cmd.Flags().StringVar(&lastName, "last", "User", "Last name for a newly created account")
	return cmd
}

// GenerateCommand generates a walkthrough script for an already
// provisioned requester.
func GenerateCommand() *cobra.Command {
	var requester, demoContext string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a demo walkthrough script",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requester == "" || demoContext == "" {
				return fmt.Errorf("error: --requester and --context flags are required")
			}
			d, err := buildDeps(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer d.Close()

			return printJSON(d.svc.GenerateScript(cmd.Context(), requester, demoContext))
		},
	}

	cmd.Flags().StringVar(&requester, "requester", "", "Requester email (required)")
	cmd.Flags().StringVar(&demoContext, "context", "", "What the demo should cover (required)")
	return cmd
}

// TeardownCommand deletes a requester's demo account and clears their
// stored state.
func TeardownCommand() *cobra.Command {
	var requester, email string

	cmd := &cobra.Command{
		Use:   "teardown",
		Short: "Delete a demo account and its stored state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requester == "" || email == "" {
				return fmt.Errorf("error: --requester and --email flags are required")
			}
			d, err := buildDeps(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer d.Close()

			return printJSON(d.svc.DeleteAccount(cmd.Context(), requester, email))
		},
	}

	cmd.Flags().StringVar(&requester, "requester", "", "Requester email (required)")
	cmd.Flags().StringVar(&email, "email", "", "Demo account email to delete (required)")
	return cmd
}
