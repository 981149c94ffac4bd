package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/voice-agent/internal/store"
)

var kpisCmd = &cobra.Command{
	Use:   "kpis",
	Short: "Print the KPI snapshot of the configured store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("kpis"); err != nil {
			return err
		}

		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := st.KPIs(ctx)
		if err != nil {
			return err
		}
		return writeIndentedJSON(cmd.OutOrStdout(), snap)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the call store schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		// New migrates; Required turns a fallback to memory into an error.
		sc := cfg.Store
		sc.Required = true
		st, err := store.New(ctx, sc)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrated %s store\n", sc.Driver)
		return err
	},
}

func init() {
	rootCmd.AddCommand(kpisCmd, migrateCmd)
}
