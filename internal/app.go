package internal

import (
	"context"
	"errors"
	"os"

	"parking_terminal/internal/backend"
	"parking_terminal/internal/cli"
	"parking_terminal/internal/config"
	"parking_terminal/internal/desk"
	"parking_terminal/internal/logging"
	"parking_terminal/internal/printer"
	"parking_terminal/internal/session"

	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Run(args []string) error {
	opts, err := cli.ParseArgs("parking-terminal", args, os.Stderr)
	if errors.Is(err, cli.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	var runner *cli.Runner

	app := fx.New(
		logger.Module(),
		logger.WithFxDefaultLogger(),
		config.Module(),
		fx.Supply(opts),
		fx.Decorate(opts.Apply),
		logging.Module(),
		session.Module(),
		backend.Module(),
		printer.Module(),
		desk.Module(),
		cli.Module(),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(ctx)
	}()

	return runner.Execute()
}
