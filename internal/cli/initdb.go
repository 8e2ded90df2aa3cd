package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"demodesk/internal/audit"
	"demodesk/internal/config"
	"demodesk/internal/statestore"
)

// InitDBCommand creates the Postgres tables the service needs.
func InitDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the demo_state and demo_audit tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := cmd.Context()

			pg, err := statestore.OpenPostgresStore(ctx, cfg.DBConnStr)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := pg.InitSchema(ctx); err != nil {
				return err
			}
			if err := audit.NewPostgresSink(pg.DB()).InitSchema(ctx); err != nil {
				return fmt.Errorf("failed to create demo_audit table: %w", err)
			}

			fmt.Println("Database initialized successfully.")
			return nil
		},
	}
}
