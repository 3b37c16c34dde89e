package backend

import (
	"parking_terminal/internal/config"
	"parking_terminal/internal/parking"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"backend",
		fx.Provide(NewTracker, NewClient),
		fx.Invoke(func(cfg config.Config) error {
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			parking.SetLocation(loc)
			return nil
		}),
	)
}
