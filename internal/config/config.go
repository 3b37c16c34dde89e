package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/go-core-fx/config"
)

type Config struct {
	APIURL          string        `koanf:"api_url"`
	SignURL         string        `koanf:"sign_url"`
	BridgeURL       string        `koanf:"bridge_url"`
	CertificateFile string        `koanf:"certificate_file"`
	CertificateURL  string        `koanf:"certificate_url"`
	Printer         string        `koanf:"printer"`
	Business        string        `koanf:"business"`
	Timeout         time.Duration `koanf:"timeout"`
	PrintTimeout    time.Duration `koanf:"print_timeout"`
	LookupDelay     time.Duration `koanf:"lookup_delay"`
	SessionFile     string        `koanf:"session_file"`
	TimeZone        string        `koanf:"time_zone"`
	LogFile         string        `koanf:"log_file"`
	Debug           bool          `koanf:"debug"`
}

func New() (Config, error) {
	cfg := Config{
		APIURL:       "http://localhost:8080/api",
		SignURL:      "http://localhost:8080/api/sign",
		BridgeURL:    "ws://localhost:8182",
		Printer:      "ticket",
		Timeout:      20 * time.Second,
		PrintTimeout: 10 * time.Second,
		LookupDelay:  500 * time.Millisecond,
		SessionFile:  "./parking-session.json",
		TimeZone:     "America/Bogota",
		LogFile:      "./parking-terminal.log",
		Debug:        false,
	}

	if err := coreconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

// Location resolves the zone receipts and API timestamps are expressed in.
// An empty zone means the machine's local zone.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.TimeZone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", name, err)
	}
	return loc, nil
}
