package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"parking_terminal/internal/backend"
	"parking_terminal/internal/config"
	"parking_terminal/internal/desk"
	"parking_terminal/internal/printer"

	"go.uber.org/zap"
)

// ErrCommandFailed is returned by a one-shot run after its error notice has
// already been written.
var ErrCommandFailed = errors.New("command failed")

var errQuit = errors.New("quit")

type Runner struct {
	desk    *desk.Desk
	tracker *backend.Tracker
	opts    Options
	logger  *zap.Logger

	loc          *time.Location
	lookupDelay  time.Duration
	showReceipts bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	lines  <-chan string
}

func NewRunner(cfg config.Config, opts Options, d *desk.Desk, tracker *backend.Tracker, logger *zap.Logger) (*Runner, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		desk:         d,
		tracker:      tracker,
		opts:         opts,
		logger:       logger.Named("cli"),
		loc:          loc,
		lookupDelay:  cfg.LookupDelay,
		showReceipts: printer.IsSimulated(cfg.Printer) || cfg.Debug,
		in:           os.Stdin,
		out:          os.Stdout,
		errOut:       os.Stderr,
	}
	if tracker != nil {
		tracker.OnChange(func(busy bool) {
			r.logger.Debug("busy indicator", zap.Bool("busy", busy))
		})
	}
	return r, nil
}

func (r *Runner) Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(r.opts.Command) > 0 {
		return r.runOneShot(ctx, r.opts.Command)
	}
	return r.runREPL(ctx)
}

func (r *Runner) runOneShot(ctx context.Context, args []string) error {
	if err := r.dispatch(ctx, args); err != nil && !errors.Is(err, errQuit) {
		notifyError(r.errOut, err)
		return ErrCommandFailed
	}
	return nil
}

func (r *Runner) runREPL(ctx context.Context) error {
	fmt.Fprintln(r.out, headingStyle.Render("Parqueadero - terminal de taquilla"))
	fmt.Fprintln(r.out, mutedStyle.Render("Escriba 'ayuda' para ver los comandos, 'salir' para terminar."))
	lines := r.readLines()

	for {
		fmt.Fprint(r.out, r.prompt())

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case next, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(next)
		}
		if line == "" {
			continue
		}

		args, err := splitArgs(line)
		if err == nil {
			err = r.dispatch(ctx, args)
		}
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			r.logger.Info("command failed", zap.String("command", line), zap.Error(err))
			notifyError(r.out, err)
		}
	}
}

func (r *Runner) prompt() string {
	if current, ok := r.desk.Current(); ok {
		return fmt.Sprintf("[%s] > ", current.Name)
	}
	return "> "
}

// readLines feeds input lines to a channel so the REPL can also react to
// cancellation. The channel is shared by every reader of the session.
func (r *Runner) readLines() <-chan string {
	if r.lines != nil {
		return r.lines
	}
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			r.logger.Warn("input closed", zap.Error(err))
		}
	}()
	r.lines = lines
	return lines
}
