package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newsanalyzer/govkb/modules/govorg/infrastructure/persistence"
	"github.com/newsanalyzer/govkb/modules/govorg/services"
	"github.com/newsanalyzer/govkb/pkg/composables"
	"github.com/newsanalyzer/govkb/pkg/configuration"
)

type importOutput struct {
	Command    string `json:"command"`
	File       string `json:"file"`
	DurationMS int64  `json:"duration_ms"`
	Result     any    `json:"result"`
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import organizations from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer func() { _ = file.Close() }()

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			service := services.NewCsvImportService(
				persistence.NewOrgRepository(),
				configuration.Use().Logger(),
			)

			var result *services.ImportResult
			start := time.Now()
			err = composables.InTx(composables.WithPool(cmd.Context(), pool), func(ctx context.Context) error {
				var importErr error
				result, importErr = service.Import(ctx, file)
				return importErr
			})
			if err != nil {
				return err
			}

			if err := writeJSON(importOutput{
				Command:    "import",
				File:       path,
				DurationMS: time.Since(start).Milliseconds(),
				Result:     result,
			}); err != nil {
				return err
			}
			if !result.Success || len(result.ValidationErrors) > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
	return cmd
}
