package printer

import (
	"errors"
	"fmt"
)

var (
	ErrPrinterNotFound  = errors.New("printer not found")
	ErrBridgeConnection = errors.New("print bridge connection failed")
)

// BridgeError reports a failure to reach or talk to the print bridge. It
// matches ErrBridgeConnection as well as the underlying cause.
type BridgeError struct {
	Op  string
	Err error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("print bridge %s: %v", e.Op, e.Err)
}

func (e *BridgeError) Unwrap() []error {
	return []error{ErrBridgeConnection, e.Err}
}

// CallError is an error reply sent by the bridge for a single call.
type CallError struct {
	Call    string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("print bridge %s: %s", e.Call, e.Message)
}
