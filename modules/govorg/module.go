package govorg

import (
	"embed"

	"github.com/newsanalyzer/govkb/modules/govorg/infrastructure/federalregister"
	"github.com/newsanalyzer/govkb/modules/govorg/infrastructure/persistence"
	"github.com/newsanalyzer/govkb/modules/govorg/presentation/controllers"
	"github.com/newsanalyzer/govkb/modules/govorg/services"
	"github.com/newsanalyzer/govkb/pkg/application"
	"github.com/newsanalyzer/govkb/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/govorg-schema.sql
var migrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.RegisterSchema(&migrationFiles)

	conf := configuration.Use()
	repo := persistence.NewOrgRepository()
	client := federalregister.NewClient(federalregister.Config{
		BaseURL:        conf.FederalRegister.BaseURL,
		MinRequestGap:  conf.FederalRegister.MinRequestGap,
		RetryAttempts:  conf.FederalRegister.RetryAttempts,
		RequestTimeout: conf.FederalRegister.RequestTimeout,
	}, app.Logger())

	app.RegisterServices(
		services.NewSyncService(repo, client, app.EventPublisher(), app.Logger()),
		services.NewCsvImportService(repo, app.Logger()),
		services.NewConflictResolver(repo),
	)

	app.RegisterControllers(
		controllers.NewSyncAPIController(app, repo),
	)

	return nil
}

func (m *Module) Name() string {
	return "govorg"
}
