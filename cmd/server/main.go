package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newsanalyzer/govkb/modules"
	"github.com/newsanalyzer/govkb/modules/govorg/services"
	"github.com/newsanalyzer/govkb/pkg/application"
	"github.com/newsanalyzer/govkb/pkg/composables"
	"github.com/newsanalyzer/govkb/pkg/configuration"
	"github.com/newsanalyzer/govkb/pkg/constants"
	"github.com/newsanalyzer/govkb/pkg/eventbus"
	"github.com/newsanalyzer/govkb/pkg/metrics"
	"github.com/newsanalyzer/govkb/pkg/middleware"
	"github.com/newsanalyzer/govkb/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if err := app.ApplySchemas(ctx); err != nil {
		log.Fatalf("failed to apply schemas: %v", err)
	}

	app.RegisterMiddleware(
		middleware.Provide(constants.AppKey, app),
		middleware.Provide(constants.PoolKey, pool),
		middleware.Provide(constants.LoggerKey, logger),
		middleware.WithLogger(logger),
	)

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	if conf.GovOrgSync.ScheduleEnabled {
		syncService := app.Service((*services.SyncService)(nil)).(*services.SyncService)
		scheduler := services.NewSyncScheduler(syncService, conf.GovOrgSync.Interval, logger)
		go scheduler.Run(composables.WithPool(context.Background(), pool))
	}

	serverInstance := server.NewHTTPServer(app)
	log.Printf("Listening on: %s\n", conf.SocketAddress)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
