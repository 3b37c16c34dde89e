package printer

import (
	"context"
	"strings"

	"parking_terminal/internal/backend"
	"parking_terminal/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"printer",
		fx.Provide(
			newCertificateProvider,
			fx.Annotate(
				func(client *backend.Client) *backend.Client { return client },
				fx.As(new(Signer)),
			),
			func(cfg config.Config, certs CertificateProvider, signer Signer, logger *zap.Logger) *Session {
				return NewSession(Options{URL: cfg.BridgeURL, Timeout: cfg.PrintTimeout}, certs, signer, logger)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, s *Session) {
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					return s.Close()
				},
			})
		}),
	)
}

func newCertificateProvider(cfg config.Config) CertificateProvider {
	switch {
	case strings.TrimSpace(cfg.CertificateFile) != "":
		return FileCertificate(cfg.CertificateFile)
	case strings.TrimSpace(cfg.CertificateURL) != "":
		return NewRemoteCertificate(cfg.CertificateURL, cfg.Timeout)
	default:
		return DefaultCertificate()
	}
}
