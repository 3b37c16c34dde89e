package desk

import (
	"context"

	"parking_terminal/internal/backend"
	"parking_terminal/internal/config"
	"parking_terminal/internal/printer"
	"parking_terminal/internal/receipt"
	"parking_terminal/internal/session"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"desk",
		fx.Provide(func(
			cfg config.Config,
			api *backend.Client,
			sessions *session.Manager,
			bridge *printer.Session,
			logger *zap.Logger,
		) (*Desk, error) {
			loc, err := cfg.Location()
			if err != nil {
				return nil, err
			}
			return New(api, sessions, bridge, Options{
				Printer: cfg.Printer,
				Receipt: receipt.Options{Business: cfg.Business, Location: loc},
			}, logger), nil
		}),
		fx.Invoke(func(lc fx.Lifecycle, d *Desk) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					d.Resume(ctx)
					return nil
				},
			})
		}),
	)
}
