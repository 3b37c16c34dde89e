package printer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type bridgeFrame struct {
	UID    string          `json:"uid"`
	Call   string          `json:"call"`
	Params json.RawMessage `json:"params"`
}

// fakeBridge is a minimal print bridge: it issues a fixed challenge, expects
// it signed by fakeSigner and records every raw job it receives.
type fakeBridge struct {
	t               *testing.T
	printers        []string
	rejectSignature bool
	dropOnPrint     bool
	notFoundMessage string

	mu          sync.Mutex
	connections int
	calls       []string
	jobs        []string
	certificate string
}

func (b *fakeBridge) serve(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	b.mu.Lock()
	b.connections++
	b.mu.Unlock()

	for {
		var frame bridgeFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		b.mu.Lock()
		b.calls = append(b.calls, frame.Call)
		b.mu.Unlock()

		result, errText, drop := b.handle(frame)
		if drop {
			return
		}
		resp := map[string]any{"uid": frame.UID}
		if errText != "" {
			resp["error"] = errText
		} else {
			resp["result"] = result
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (b *fakeBridge) handle(frame bridgeFrame) (any, string, bool) {
	switch frame.Call {
	case callCertificate:
		var params certificateParams
		_ = json.Unmarshal(frame.Params, &params)
		b.mu.Lock()
		b.certificate = params.Certificate
		b.mu.Unlock()
		return map[string]string{"challenge": "nonce-42"}, "", false
	case callSignature:
		var params signatureParams
		_ = json.Unmarshal(frame.Params, &params)
		if b.rejectSignature || params.Signature != "signed:nonce-42" {
			return nil, "invalid signature", false
		}
		return true, "", false
	case callFindPrinter:
		var params findParams
		_ = json.Unmarshal(frame.Params, &params)
		for _, name := range b.printers {
			if strings.EqualFold(name, params.Query) {
				return name, "", false
			}
		}
		b.mu.Lock()
		message := b.notFoundMessage
		b.mu.Unlock()
		if message == "" {
			message = "Specified printer could not be found"
		}
		return nil, message, false
	case callListPrinters:
		return b.printers, "", false
	case callPrint:
		b.mu.Lock()
		drop := b.dropOnPrint
		b.mu.Unlock()
		if drop {
			return nil, "", true
		}
		var params printParams
		_ = json.Unmarshal(frame.Params, &params)
		for _, job := range params.Data {
			data, _ := base64.StdEncoding.DecodeString(job.Data)
			b.mu.Lock()
			b.jobs = append(b.jobs, string(data))
			b.mu.Unlock()
		}
		return nil, "", false
	default:
		return nil, "unknown call", false
	}
}

type fakeSigner struct {
	err error
}

func (f fakeSigner) Sign(_ context.Context, challenge []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("signed:" + string(challenge)), nil
}

func newBridgeSession(t *testing.T, bridge *fakeBridge, signer Signer) *Session {
	t.Helper()
	bridge.t = t
	srv := httptest.NewServer(http.HandlerFunc(bridge.serve))
	t.Cleanup(srv.Close)

	s := NewSession(Options{
		URL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Timeout: 2 * time.Second,
	}, StaticCertificate("-----BEGIN CERTIFICATE-----\ntest\n-----END CERTIFICATE-----\n"), signer, zap.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSimulateLogsPayloadWithoutBridge(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewSession(Options{URL: "ws://127.0.0.1:1"}, DefaultCertificate(), fakeSigner{err: errors.New("must not sign")}, zap.New(core))

	for _, target := range []string{"SIMULATE", "simulate", "  Simulate "} {
		if err := s.Print(context.Background(), target, "hola"); err != nil {
			t.Fatalf("Print(%q): %v", target, err)
		}
	}

	entries := logs.FilterMessage("simulated print job").All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 simulated jobs, got %d", len(entries))
	}
	want := "\x1B\x40" + "hola" + "\n\n\n" + "\x1D\x56\x00"
	for _, entry := range entries {
		if entry.LoggerName != "printer" {
			t.Fatalf("logger name = %q", entry.LoggerName)
		}
		if got := entry.ContextMap()["payload"]; got != want {
			t.Fatalf("payload = %q, want %q", got, want)
		}
	}
	if s.State() != Disconnected {
		t.Fatalf("simulate mode must not connect, state = %s", s.State())
	}
}

func TestPrintSendsRawJob(t *testing.T) {
	bridge := &fakeBridge{printers: []string{"ticket"}}
	s := newBridgeSession(t, bridge, fakeSigner{})

	if err := s.Print(context.Background(), "TICKET", "hola"); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if s.State() != Connected {
		t.Fatalf("state after print = %s", s.State())
	}

	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	if len(bridge.jobs) != 1 || bridge.jobs[0] != Payload("hola") {
		t.Fatalf("unexpected jobs %q", bridge.jobs)
	}
	wantCalls := []string{callCertificate, callSignature, callFindPrinter, callPrint}
	if strings.Join(bridge.calls, ",") != strings.Join(wantCalls, ",") {
		t.Fatalf("calls = %v, want %v", bridge.calls, wantCalls)
	}
	if !strings.Contains(bridge.certificate, "BEGIN CERTIFICATE") {
		t.Fatalf("certificate not presented: %q", bridge.certificate)
	}
}

func TestPrintReusesConnection(t *testing.T) {
	bridge := &fakeBridge{printers: []string{"ticket"}}
	s := newBridgeSession(t, bridge, fakeSigner{})

	for i := 0; i < 3; i++ {
		if err := s.Print(context.Background(), "ticket", "x"); err != nil {
			t.Fatalf("Print #%d: %v", i, err)
		}
	}

	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	if bridge.connections != 1 {
		t.Fatalf("connections = %d, want 1", bridge.connections)
	}
}

func TestPrintUnknownPrinter(t *testing.T) {
	for _, message := range []string{
		"Specified printer could not be found",
		"Printer not found",
	} {
		t.Run(message, func(t *testing.T) {
			bridge := &fakeBridge{printers: []string{"ticket"}, notFoundMessage: message}
			s := newBridgeSession(t, bridge, fakeSigner{})

			err := s.Print(context.Background(), "Nonexistent-Printer-X", "hola")
			if !errors.Is(err, ErrPrinterNotFound) {
				t.Fatalf("expected ErrPrinterNotFound, got %v", err)
			}
			if errors.Is(err, ErrBridgeConnection) {
				t.Fatal("a missing printer is not a connection failure")
			}
			if s.State() != Connected {
				t.Fatalf("state = %s, want connected", s.State())
			}

			bridge.mu.Lock()
			defer bridge.mu.Unlock()
			if len(bridge.jobs) != 0 {
				t.Fatal("no job may be submitted for an unknown printer")
			}
		})
	}
}

func TestBridgeUnreachable(t *testing.T) {
	s := NewSession(Options{URL: "ws://127.0.0.1:1", Timeout: time.Second}, DefaultCertificate(), fakeSigner{}, zap.NewNop())

	err := s.Print(context.Background(), "ticket", "hola")
	if !errors.Is(err, ErrBridgeConnection) {
		t.Fatalf("expected ErrBridgeConnection, got %v", err)
	}
	var bridgeErr *BridgeError
	if !errors.As(err, &bridgeErr) || bridgeErr.Op != "connect" {
		t.Fatalf("expected connect BridgeError, got %v", err)
	}
}

func TestHandshakeFailures(t *testing.T) {
	cases := []struct {
		name   string
		bridge *fakeBridge
		signer Signer
	}{
		{name: "signer error", bridge: &fakeBridge{printers: []string{"ticket"}}, signer: fakeSigner{err: errors.New("sign endpoint down")}},
		{name: "signature rejected", bridge: &fakeBridge{printers: []string{"ticket"}, rejectSignature: true}, signer: fakeSigner{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newBridgeSession(t, tc.bridge, tc.signer)

			err := s.Print(context.Background(), "ticket", "hola")
			if !errors.Is(err, ErrBridgeConnection) {
				t.Fatalf("expected ErrBridgeConnection, got %v", err)
			}
			if s.State() != Disconnected {
				t.Fatalf("state after failed handshake = %s", s.State())
			}
		})
	}
}

func TestDroppedConnectionReconnects(t *testing.T) {
	bridge := &fakeBridge{printers: []string{"ticket"}, dropOnPrint: true}
	s := newBridgeSession(t, bridge, fakeSigner{})

	if err := s.Print(context.Background(), "ticket", "hola"); !errors.Is(err, ErrBridgeConnection) {
		t.Fatalf("expected ErrBridgeConnection on drop, got %v", err)
	}
	if s.State() != Disconnected {
		t.Fatalf("state after drop = %s", s.State())
	}

	bridge.mu.Lock()
	bridge.dropOnPrint = false
	bridge.mu.Unlock()

	if err := s.Print(context.Background(), "ticket", "again"); err != nil {
		t.Fatalf("Print after reconnect: %v", err)
	}
	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	if bridge.connections != 2 {
		t.Fatalf("connections = %d, want 2", bridge.connections)
	}
}

func TestConcurrentPrintsDoNotInterleave(t *testing.T) {
	bridge := &fakeBridge{printers: []string{"ticket"}}
	s := newBridgeSession(t, bridge, fakeSigner{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Print(context.Background(), "ticket", strings.Repeat("z", 64)); err != nil {
				t.Errorf("Print: %v", err)
			}
		}()
	}
	wg.Wait()

	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	if len(bridge.jobs) != 5 || bridge.connections != 1 {
		t.Fatalf("jobs = %d, connections = %d", len(bridge.jobs), bridge.connections)
	}
	for _, job := range bridge.jobs {
		if job != Payload(strings.Repeat("z", 64)) {
			t.Fatalf("corrupted job %q", job)
		}
	}
}

func TestPrinters(t *testing.T) {
	bridge := &fakeBridge{printers: []string{"ticket", "oficina"}}
	s := newBridgeSession(t, bridge, fakeSigner{})

	printers, err := s.Printers(context.Background())
	if err != nil {
		t.Fatalf("Printers: %v", err)
	}
	if strings.Join(printers, ",") != "ticket,oficina" {
		t.Fatalf("printers = %v", printers)
	}
}

func TestCertificateProviders(t *testing.T) {
	if cert, err := DefaultCertificate().Certificate(context.Background()); err != nil || !strings.Contains(string(cert), "BEGIN CERTIFICATE") {
		t.Fatalf("default certificate: %v", err)
	}
	if _, err := StaticCertificate(nil).Certificate(context.Background()); err == nil {
		t.Fatal("empty static certificate must fail")
	}

	path := filepath.Join(t.TempDir(), "cert.pem")
	if _, err := FileCertificate(path).Certificate(context.Background()); err == nil {
		t.Fatal("missing certificate file must fail")
	}
	if err := os.WriteFile(path, []byte("PEM"), 0o600); err != nil {
		t.Fatal(err)
	}
	if cert, err := FileCertificate(path).Certificate(context.Background()); err != nil || string(cert) != "PEM" {
		t.Fatalf("file certificate = %q, %v", cert, err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("REMOTE PEM"))
	}))
	defer srv.Close()
	if cert, err := NewRemoteCertificate(srv.URL, time.Second).Certificate(context.Background()); err != nil || string(cert) != "REMOTE PEM" {
		t.Fatalf("remote certificate = %q, %v", cert, err)
	}
}
