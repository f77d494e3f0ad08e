package logic2

import (
	"errors"
	"fmt"
)

// ErrCaptureBusy is returned when a capture is started while another one is
// still running. The automation endpoint supports a single active capture,
// so concurrent requests fail fast instead of queuing.
var ErrCaptureBusy = errors.New("capture already in progress")

// ErrClosed is returned when an operation is attempted on a closed session.
var ErrClosed = errors.New("session is closed")

// ConnectionError indicates the automation endpoint is unreachable, usually
// because the Logic desktop application is not running or its automation
// server is disabled.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot reach automation endpoint %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ConfigurationError indicates the device layer rejected the capture
// configuration or no device is available to run it.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture configuration rejected: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("capture configuration rejected: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ExportError indicates the export step failed or produced no data.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export to %s failed: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
