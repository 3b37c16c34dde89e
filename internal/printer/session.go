// Package printer delivers rendered receipts to a local print bridge.
//
// The bridge speaks JSON over a websocket. Before it accepts jobs it asks for
// a certificate and has the client sign a challenge; both are delegated to
// injected providers so no private key material is held here.
package printer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SimulateTarget routes a job to the log instead of the bridge.
const SimulateTarget = "SIMULATE"

const (
	resetSequence = "\x1B\x40"
	trailingFeed  = "\n\n\n"
	cutSequence   = "\x1D\x56\x00"

	defaultTimeout = 10 * time.Second
)

type State int

const (
	Disconnected State = iota
	Handshaking
	Connected
	Printing
)

func (s State) String() string {
	switch s {
	case Handshaking:
		return "handshaking"
	case Connected:
		return "connected"
	case Printing:
		return "printing"
	default:
		return "disconnected"
	}
}

type Options struct {
	URL     string
	Timeout time.Duration
}

// Session is the process-wide connection to the print bridge. Every
// connect-or-print sequence holds the session exclusively, so payloads never
// interleave.
type Session struct {
	opts   Options
	certs  CertificateProvider
	signer Signer
	logger *zap.Logger

	op sync.Mutex

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	pending map[string]chan reply
}

func NewSession(opts Options, certs CertificateProvider, signer Signer, logger *zap.Logger) *Session {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Session{
		opts:    opts,
		certs:   certs,
		signer:  signer,
		logger:  logger.Named("printer"),
		pending: make(map[string]chan reply),
	}
}

// Payload wraps text in the reset, feed and cut sequences sent to the printer.
func Payload(text string) string {
	return resetSequence + text + trailingFeed + cutSequence
}

func IsSimulated(target string) bool {
	return strings.EqualFold(strings.TrimSpace(target), SimulateTarget)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Print sends text to the named printer as one raw job. It makes a single
// attempt; a failed job is not queued.
func (s *Session) Print(ctx context.Context, target, text string) error {
	payload := Payload(text)
	if IsSimulated(target) {
		s.logger.Info("simulated print job", zap.String("payload", payload))
		return nil
	}

	s.op.Lock()
	defer s.op.Unlock()

	if err := s.ensureConnected(ctx); err != nil {
		return err
	}

	printer, err := s.findPrinter(ctx, target)
	if err != nil {
		return err
	}

	s.setState(Printing)
	_, err = s.call(ctx, callPrint, printParams{
		Printer: printer,
		Data: []printJob{{
			Type:   "raw",
			Format: "base64",
			Data:   base64.StdEncoding.EncodeToString([]byte(payload)),
		}},
	})
	s.settle()
	if err != nil {
		return err
	}

	s.logger.Info("print job sent", zap.String("printer", printer), zap.Int("bytes", len(payload)))
	return nil
}

// Printers lists the printers the bridge can see.
func (s *Session) Printers(ctx context.Context) ([]string, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	raw, err := s.call(ctx, callListPrinters, nil)
	if err != nil {
		return nil, err
	}
	var printers []string
	if err := json.Unmarshal(raw, &printers); err != nil {
		return nil, &BridgeError{Op: callListPrinters, Err: err}
	}
	return printers, nil
}

func (s *Session) Close() error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	s.drop(conn, errors.New("session closed"))
	return nil
}

func (s *Session) ensureConnected(ctx context.Context) error {
	s.mu.Lock()
	connected := s.conn != nil && s.state == Connected
	s.mu.Unlock()
	if connected {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: s.opts.Timeout}
	conn, _, err := dialer.DialContext(dialCtx, s.opts.URL, nil)
	if err != nil {
		return &BridgeError{Op: "connect", Err: err}
	}

	s.mu.Lock()
	s.conn = conn
	s.state = Handshaking
	s.mu.Unlock()
	go s.readLoop(conn)

	if err := s.handshake(ctx); err != nil {
		s.drop(conn, err)
		var bridgeErr *BridgeError
		if errors.As(err, &bridgeErr) {
			return err
		}
		return &BridgeError{Op: "handshake", Err: err}
	}

	s.setState(Connected)
	s.logger.Info("print bridge connected", zap.String("url", s.opts.URL))
	return nil
}

func (s *Session) handshake(ctx context.Context) error {
	cert, err := s.certs.Certificate(ctx)
	if err != nil {
		return fmt.Errorf("certificate: %w", err)
	}

	raw, err := s.call(ctx, callCertificate, certificateParams{Certificate: string(cert)})
	if err != nil {
		return err
	}
	var challenge challengeResult
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return fmt.Errorf("decode challenge: %w", err)
	}

	signature, err := s.signer.Sign(ctx, []byte(challenge.Challenge))
	if err != nil {
		return fmt.Errorf("sign challenge: %w", err)
	}

	_, err = s.call(ctx, callSignature, signatureParams{
		Challenge: challenge.Challenge,
		Signature: string(signature),
	})
	return err
}

func (s *Session) findPrinter(ctx context.Context, target string) (string, error) {
	query := strings.TrimSpace(target)
	raw, err := s.call(ctx, callFindPrinter, findParams{Query: query})
	if err != nil {
		// The bridge only rejects a lookup when no printer matches; its
		// wording varies between versions.
		var callErr *CallError
		if errors.As(err, &callErr) {
			return "", fmt.Errorf("%w: %s (%s)", ErrPrinterNotFound, query, callErr.Message)
		}
		return "", err
	}

	var name string
	if err := json.Unmarshal(raw, &name); err != nil || strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: %s", ErrPrinterNotFound, query)
	}
	return name, nil
}

// call sends one request and waits for its reply. A write failure or a
// missing reply drops the connection.
func (s *Session) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	s.mu.Lock()
	conn := s.conn
	if conn == nil {
		s.mu.Unlock()
		return nil, &BridgeError{Op: method, Err: errors.New("not connected")}
	}
	uid := uuid.NewString()
	replies := make(chan reply, 1)
	s.pending[uid] = replies
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, uid)
		s.mu.Unlock()
	}()

	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	err := conn.WriteJSON(request{
		UID:       uid,
		Call:      method,
		Params:    params,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		s.drop(conn, err)
		return nil, &BridgeError{Op: method, Err: err}
	}

	select {
	case r, ok := <-replies:
		if !ok {
			return nil, &BridgeError{Op: method, Err: errors.New("connection lost")}
		}
		if r.Error != "" {
			return nil, &CallError{Call: method, Message: r.Error}
		}
		return r.Result, nil
	case <-ctx.Done():
		s.drop(conn, ctx.Err())
		return nil, &BridgeError{Op: method, Err: ctx.Err()}
	}
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		var r reply
		if err := conn.ReadJSON(&r); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.logger.Warn("malformed bridge frame", zap.Error(err))
				continue
			}
			s.drop(conn, err)
			return
		}

		s.mu.Lock()
		replies, ok := s.pending[r.UID]
		if ok {
			delete(s.pending, r.UID)
		}
		s.mu.Unlock()

		if !ok {
			s.logger.Debug("unsolicited bridge frame", zap.String("uid", r.UID))
			continue
		}
		replies <- r
	}
}

// drop tears down conn if it is still the active connection and fails every
// pending call. It is safe to call more than once for the same conn.
func (s *Session) drop(conn *websocket.Conn, cause error) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = Disconnected
	pending := s.pending
	s.pending = make(map[string]chan reply)
	s.mu.Unlock()

	for _, replies := range pending {
		close(replies)
	}
	_ = conn.Close()
	s.logger.Info("print bridge disconnected", zap.Error(cause))
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.state = state
	}
}

// settle returns a printing session to Connected unless the job dropped it.
func (s *Session) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil && s.state == Printing {
		s.state = Connected
	}
}
