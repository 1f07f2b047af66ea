package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/newsanalyzer/govkb/modules/govorg/infrastructure/federalregister"
	"github.com/newsanalyzer/govkb/modules/govorg/infrastructure/persistence"
	"github.com/newsanalyzer/govkb/modules/govorg/services"
	"github.com/newsanalyzer/govkb/pkg/composables"
	"github.com/newsanalyzer/govkb/pkg/configuration"
	"github.com/newsanalyzer/govkb/pkg/eventbus"
)

type syncOutput struct {
	Command    string `json:"command"`
	DurationMS int64  `json:"duration_ms"`
	Result     any    `json:"result"`
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one Federal Register synchronization pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			logger := conf.Logger()

			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			client := federalregister.NewClient(federalregister.Config{
				BaseURL:        conf.FederalRegister.BaseURL,
				MinRequestGap:  conf.FederalRegister.MinRequestGap,
				RetryAttempts:  conf.FederalRegister.RetryAttempts,
				RequestTimeout: conf.FederalRegister.RequestTimeout,
			}, logger)
			service := services.NewSyncService(
				persistence.NewOrgRepository(),
				client,
				eventbus.NewEventPublisher(logger),
				logger,
			)

			ctx := composables.WithPool(cmd.Context(), pool)
			start := time.Now()
			result, err := service.Sync(ctx)
			if err != nil {
				return err
			}

			return writeJSON(syncOutput{
				Command:    "sync",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     result,
			})
		},
	}
	return cmd
}
