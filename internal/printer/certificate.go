package printer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// CertificateProvider supplies the public certificate presented to the bridge.
type CertificateProvider interface {
	Certificate(ctx context.Context) ([]byte, error)
}

// Signer signs bridge challenges. The private key never lives in this process.
type Signer interface {
	Sign(ctx context.Context, challenge []byte) ([]byte, error)
}

//go:embed certificate.pem
var defaultCertificate []byte

var errEmptyCertificate = errors.New("certificate is empty")

type StaticCertificate []byte

// DefaultCertificate is the certificate bundled with the terminal.
func DefaultCertificate() StaticCertificate {
	return StaticCertificate(defaultCertificate)
}

func (c StaticCertificate) Certificate(context.Context) ([]byte, error) {
	if len(c) == 0 {
		return nil, errEmptyCertificate
	}
	return []byte(c), nil
}

// FileCertificate reads the certificate from disk on every handshake, so a
// replaced file is picked up on the next reconnect.
type FileCertificate string

func (f FileCertificate) Certificate(context.Context) ([]byte, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("read certificate %s: %w", f, errEmptyCertificate)
	}
	return data, nil
}

// RemoteCertificate fetches the certificate from a static asset URL.
type RemoteCertificate struct {
	http *resty.Client
	url  string
}

func NewRemoteCertificate(url string, timeout time.Duration) *RemoteCertificate {
	return &RemoteCertificate{
		http: resty.New().SetTimeout(timeout),
		url:  url,
	}
}

func (r *RemoteCertificate) Certificate(ctx context.Context) ([]byte, error) {
	resp, err := r.http.R().SetContext(ctx).Get(r.url)
	if err != nil {
		return nil, fmt.Errorf("fetch certificate: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch certificate: %s", resp.Status())
	}
	if len(strings.TrimSpace(resp.String())) == 0 {
		return nil, fmt.Errorf("fetch certificate: %w", errEmptyCertificate)
	}
	return resp.Body(), nil
}
