package logging

import (
	"context"
	"os"

	"parking_terminal/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module tees every component logger into the configured log file. It is not
// wrapped in fx.Module so the decoration reaches the whole application.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(func(cfg config.Config) (*os.File, error) {
			return OpenLogFile(cfg.LogFile)
		}),
		fx.Decorate(func(base *zap.Logger, cfg config.Config, file *os.File) *zap.Logger {
			return AttachFileLogger(base, file, cfg.Debug)
		}),
		fx.Invoke(func(lc fx.Lifecycle, file *os.File) {
			if file == nil {
				return
			}
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					return file.Close()
				},
			})
		}),
	)
}
