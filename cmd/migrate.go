package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pdfqa/src/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables, extensions and vector classes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		if a.db != nil {
			if _, err := a.jobRepository(ctx); err != nil {
				return err
			}
		}

		log.Info("migration finished")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
