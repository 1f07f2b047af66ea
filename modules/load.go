package modules

import (
	"github.com/newsanalyzer/govkb/modules/govorg"
	"github.com/newsanalyzer/govkb/pkg/application"
)

var BuiltInModules = []application.Module{
	govorg.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
