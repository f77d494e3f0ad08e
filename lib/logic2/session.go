package logic2

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Automation is the subset of the automation endpoint a capture session
// drives. *Client implements it; tests substitute fakes.
type Automation interface {
	SetActiveChannels(digital, analog []int) error
	SetSampleRate(digital, analog int) error
	SetDigitalThreshold(volts float64) error
	SetCaptureSeconds(seconds float64) error
	StartCapture() error
	StopCapture() error
	IsProcessingComplete() (bool, error)
	ExportChannelCSV(path string, channel int, analog bool) error
	SaveToFile(path string) error
	CloseCapture() error
}

// State is the lifecycle position of a capture session.
type State int

const (
	StateConnected State = iota
	StateConfigured
	StateCapturing
	StateCaptured
	StateExported
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateConfigured:
		return "configured"
	case StateCapturing:
		return "capturing"
	case StateCaptured:
		return "captured"
	case StateExported:
		return "exported"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// completionPoll is how often Wait asks the endpoint whether buffers have
// been flushed after the capture duration elapsed.
const completionPoll = 100 * time.Millisecond

// flushTimeout bounds the post-capture flush wait.
const flushTimeout = 30 * time.Second

// Session owns one capture on an already-connected automation endpoint.
// It is not safe for concurrent captures: the endpoint supports a single
// active capture, and Start fails fast with ErrCaptureBusy while one runs.
// Close releases the capture handle and must run on every exit path; it is
// idempotent so callers can defer it unconditionally.
type Session struct {
	auto Automation

	mu        sync.Mutex
	state     State
	config    DeviceConfiguration
	duration  float64
	startedAt time.Time
}

// NewSession wraps a connected automation endpoint. The caller keeps
// ownership of the connection itself; the session owns only the capture.
func NewSession(auto Automation) *Session {
	return &Session{auto: auto, state: StateConnected}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Configure pushes the channel selection, sample rates and optional digital
// threshold to the device layer. Requires at least one channel.
func (s *Session) Configure(cfg DeviceConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateCapturing:
		return ErrCaptureBusy
	}

	if cfg.Empty() {
		return &ConfigurationError{Reason: "no digital or analog channels selected"}
	}
	if cfg.HasDigital() && cfg.DigitalSampleRate <= 0 {
		return &ConfigurationError{Reason: "digital sample rate must be positive"}
	}

	analog := cfg.AnalogChannels
	if !cfg.HasAnalog() {
		// No analog rate supplied: drop analog capture instead of
		// rejecting the request.
		analog = nil
	}

	if err := s.auto.SetActiveChannels(cfg.DigitalChannels, analog); err != nil {
		return &ConfigurationError{Reason: "channel selection rejected", Err: err}
	}
	if err := s.auto.SetSampleRate(cfg.DigitalSampleRate, cfg.AnalogSampleRate); err != nil {
		return &ConfigurationError{Reason: "sample rate rejected", Err: err}
	}
	if cfg.DigitalThresholdVolts != nil {
		if err := s.auto.SetDigitalThreshold(*cfg.DigitalThresholdVolts); err != nil {
			return &ConfigurationError{Reason: "digital threshold rejected", Err: err}
		}
	}

	s.config = cfg
	s.state = StateConfigured
	return nil
}

// Start begins a timed capture. Requires a configured session; fails with
// ErrCaptureBusy while a capture is running.
func (s *Session) Start(cfg CaptureConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateCapturing:
		return ErrCaptureBusy
	case StateConfigured:
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("cannot start capture from state %s", s.state)}
	}

	if cfg.DurationSeconds <= 0 {
		return &ConfigurationError{Reason: "capture duration must be positive"}
	}

	if err := s.auto.SetCaptureSeconds(cfg.DurationSeconds); err != nil {
		return &ConfigurationError{Reason: "capture duration rejected", Err: err}
	}
	if err := s.auto.StartCapture(); err != nil {
		return &ConfigurationError{Reason: "capture start rejected", Err: err}
	}

	s.duration = cfg.DurationSeconds
	s.startedAt = time.Now()
	s.state = StateCapturing
	return nil
}

// Wait blocks until the capture duration has elapsed and the device has
// flushed its buffers. There is no partial delivery during the wait; the
// only early exit is ctx cancellation, which leaves the capture to be
// released by Close.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateCapturing {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot wait for capture from state %s", state)
	}
	remaining := time.Duration(s.duration*float64(time.Second)) - time.Since(s.startedAt)
	s.mu.Unlock()

	if remaining > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(remaining):
		}
	}

	deadline := time.Now().Add(flushTimeout)
	for {
		done, err := s.auto.IsProcessingComplete()
		if err != nil {
			return fmt.Errorf("failed to poll capture completion: %w", err)
		}
		if done {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("capture did not finish flushing within %s", flushTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(completionPoll):
		}
	}

	s.mu.Lock()
	s.state = StateCaptured
	s.mu.Unlock()
	return nil
}

// ExportFileName is the deterministic CSV name for one exported channel.
func ExportFileName(channel int, analog bool) string {
	if analog {
		return fmt.Sprintf("analog_channel_%d.csv", channel)
	}
	return fmt.Sprintf("digital_channel_%d.csv", channel)
}

// Export writes one CSV per captured channel into dir and returns the file
// names written. Requires a finished capture.
func (s *Session) Export(dir string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCaptured {
		return nil, &ExportError{Path: dir, Err: fmt.Errorf("cannot export from state %s", s.state)}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &ExportError{Path: dir, Err: err}
	}

	var names []string
	for _, ch := range s.config.DigitalChannels {
		name := ExportFileName(ch, false)
		if err := s.auto.ExportChannelCSV(filepath.Join(dir, name), ch, false); err != nil {
			return nil, &ExportError{Path: filepath.Join(dir, name), Err: err}
		}
		names = append(names, name)
	}
	if s.config.HasAnalog() {
		for _, ch := range s.config.AnalogChannels {
			name := ExportFileName(ch, true)
			if err := s.auto.ExportChannelCSV(filepath.Join(dir, name), ch, true); err != nil {
				return nil, &ExportError{Path: filepath.Join(dir, name), Err: err}
			}
			names = append(names, name)
		}
	}

	if len(names) == 0 {
		return nil, &ExportError{Path: dir, Err: fmt.Errorf("no channels to export")}
	}

	s.state = StateExported
	return names, nil
}

// Save persists the full capture artifact. Best-effort: callers downgrade
// a failure here to a warning, since the exported CSVs already carry the
// data the analysis needs.
func (s *Session) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCaptured && s.state != StateExported {
		return fmt.Errorf("cannot save capture from state %s", s.state)
	}
	return s.auto.SaveToFile(path)
}

// Close releases the capture handle on the endpoint. It runs at most once;
// closing an already-closed session is a no-op. Callers defer it so the
// handle is released on every exit path, including failures in
// Start/Wait/Export/Save.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	return s.auto.CloseCapture()
}

// Abort is the deliberate mid-capture abort path: it stops a running
// capture before releasing the handle. Distinct from normal completion,
// which lets the duration elapse.
func (s *Session) Abort() error {
	s.mu.Lock()
	if s.state == StateCapturing {
		if err := s.auto.StopCapture(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()
	return s.Close()
}
