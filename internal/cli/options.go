package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"parking_terminal/internal/config"

	"github.com/spf13/pflag"
)

// ErrHelp is returned by ParseArgs when usage was requested and printed.
var ErrHelp = pflag.ErrHelp

type Options struct {
	Command   []string
	APIURL    string
	Printer   string
	BridgeURL string
	Timeout   time.Duration
	LogFile   string
	Debug     bool
	JSON      bool

	debugSet bool
}

// ParseArgs reads the process flags. Flags left unset keep the configured
// values; whatever follows the flags is a one-shot command.
func ParseArgs(name string, args []string, stderr io.Writer) (Options, error) {
	var opts Options

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Uso: %s [flags] [comando [args...]]\n\n", name)
		fs.PrintDefaults()
		fmt.Fprintln(stderr)
		writeHelp(stderr)
	}
	fs.SetInterspersed(false)

	fs.StringVar(&opts.APIURL, "api-url", "", "Parking API base URL (API_URL)")
	fs.StringVar(&opts.Printer, "printer", "", "Receipt printer name, or SIMULATE (PRINTER)")
	fs.StringVar(&opts.BridgeURL, "bridge-url", "", "Print bridge websocket URL (BRIDGE_URL)")
	fs.DurationVar(&opts.Timeout, "timeout", 0, "API request timeout (TIMEOUT)")
	fs.StringVar(&opts.LogFile, "log-file", "", "Log file path (LOG_FILE)")
	fs.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&opts.JSON, "json", false, "Output listings as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return Options{}, ErrHelp
		}
		return Options{}, err
	}

	opts.debugSet = fs.Changed("debug")
	opts.Command = fs.Args()
	return opts, nil
}

// Apply overlays the flags that were set on top of the loaded config.
func (o Options) Apply(cfg config.Config) config.Config {
	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
	}
	if o.Printer != "" {
		cfg.Printer = o.Printer
	}
	if o.BridgeURL != "" {
		cfg.BridgeURL = o.BridgeURL
	}
	if o.Timeout > 0 {
		cfg.Timeout = o.Timeout
	}
	if o.LogFile != "" {
		cfg.LogFile = o.LogFile
	}
	if o.debugSet {
		cfg.Debug = o.Debug
	}
	return cfg
}
