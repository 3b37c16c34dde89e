package session

import (
	"context"

	"parking_terminal/internal/config"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"session",
		fx.Provide(
			fx.Annotate(
				func(cfg config.Config) *FileStore {
					return NewFileStore(cfg.SessionFile)
				},
				fx.As(new(Store)),
			),
			NewManager,
		),
		fx.Invoke(func(lc fx.Lifecycle, m *Manager) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					return m.Restore()
				},
			})
		}),
	)
}
