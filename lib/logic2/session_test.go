package logic2

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeAutomation records calls and lets tests force failures per method.
type fakeAutomation struct {
	calls []string

	digitalChannels []int
	analogChannels  []int
	threshold       *float64

	configureErr error
	startErr     error
	exportErr    error
	saveErr      error

	closeCount int
}

func (f *fakeAutomation) record(name string) {
	f.calls = append(f.calls, name)
}

func (f *fakeAutomation) SetActiveChannels(digital, analog []int) error {
	f.record("SetActiveChannels")
	f.digitalChannels = digital
	f.analogChannels = analog
	return f.configureErr
}

func (f *fakeAutomation) SetSampleRate(digital, analog int) error {
	f.record("SetSampleRate")
	return nil
}

func (f *fakeAutomation) SetDigitalThreshold(volts float64) error {
	f.record("SetDigitalThreshold")
	f.threshold = &volts
	return nil
}

func (f *fakeAutomation) SetCaptureSeconds(seconds float64) error {
	f.record("SetCaptureSeconds")
	return nil
}

func (f *fakeAutomation) StartCapture() error {
	f.record("StartCapture")
	return f.startErr
}

func (f *fakeAutomation) StopCapture() error {
	f.record("StopCapture")
	return nil
}

func (f *fakeAutomation) IsProcessingComplete() (bool, error) {
	f.record("IsProcessingComplete")
	return true, nil
}

func (f *fakeAutomation) ExportChannelCSV(path string, channel int, analog bool) error {
	f.record("ExportChannelCSV")
	if f.exportErr != nil {
		return f.exportErr
	}
	return os.WriteFile(path, []byte("Time [s],Channel\n0.0,0\n"), 0o644)
}

func (f *fakeAutomation) SaveToFile(path string) error {
	f.record("SaveToFile")
	return f.saveErr
}

func (f *fakeAutomation) CloseCapture() error {
	f.record("CloseCapture")
	f.closeCount++
	return nil
}

func configured(t *testing.T, fake *fakeAutomation) *Session {
	t.Helper()

	sess := NewSession(fake)
	cfg := NewDeviceConfiguration([]int{0, 1}, nil, 1_000_000, 0, nil)
	if err := sess.Configure(cfg); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	return sess
}

func TestSessionLifecycle(t *testing.T) {
	fake := &fakeAutomation{}
	sess := configured(t, fake)

	if sess.State() != StateConfigured {
		t.Fatalf("expected configured state, got %s", sess.State())
	}

	if err := sess.Start(CaptureConfiguration{DurationSeconds: 0.01}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if sess.State() != StateCapturing {
		t.Fatalf("expected capturing state, got %s", sess.State())
	}

	if err := sess.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if sess.State() != StateCaptured {
		t.Fatalf("expected captured state, got %s", sess.State())
	}

	dir := t.TempDir()
	names, err := sess.Export(dir)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 exported files, got %v", names)
	}
	if names[0] != "digital_channel_0.csv" || names[1] != "digital_channel_1.csv" {
		t.Fatalf("unexpected export names: %v", names)
	}
	if sess.State() != StateExported {
		t.Fatalf("expected exported state, got %s", sess.State())
	}

	if err := sess.Save(filepath.Join(dir, "capture.sal")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if sess.State() != StateClosed {
		t.Fatalf("expected closed state, got %s", sess.State())
	}
	if fake.closeCount != 1 {
		t.Fatalf("expected exactly one CloseCapture, got %d", fake.closeCount)
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	fake := &fakeAutomation{}
	sess := NewSession(fake)

	for i := 0; i < 3; i++ {
		if err := sess.Close(); err != nil {
			t.Fatalf("Close %d failed: %v", i, err)
		}
	}

	if fake.closeCount != 1 {
		t.Fatalf("expected exactly one CloseCapture, got %d", fake.closeCount)
	}
}

func TestSessionCloseRunsOnExportFailure(t *testing.T) {
	fake := &fakeAutomation{exportErr: errors.New("disk full")}
	sess := configured(t, fake)

	if err := sess.Start(CaptureConfiguration{DurationSeconds: 0.01}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sess.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	_, err := sess.Export(t.TempDir())
	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("expected an ExportError, got %v", err)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if fake.closeCount != 1 {
		t.Fatalf("expected CloseCapture after export failure, got %d calls", fake.closeCount)
	}
}

func TestSessionStartBusy(t *testing.T) {
	fake := &fakeAutomation{}
	sess := configured(t, fake)

	if err := sess.Start(CaptureConfiguration{DurationSeconds: 1}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := sess.Start(CaptureConfiguration{DurationSeconds: 1}); !errors.Is(err, ErrCaptureBusy) {
		t.Fatalf("expected ErrCaptureBusy, got %v", err)
	}
}

func TestSessionStartRequiresConfigure(t *testing.T) {
	sess := NewSession(&fakeAutomation{})

	err := sess.Start(CaptureConfiguration{DurationSeconds: 1})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected a ConfigurationError, got %v", err)
	}
}

func TestSessionStartRejectsZeroDuration(t *testing.T) {
	sess := configured(t, &fakeAutomation{})

	if err := sess.Start(CaptureConfiguration{DurationSeconds: 0}); err == nil {
		t.Fatal("expected an error for a zero duration")
	}
}

func TestSessionConfigureEmptyChannels(t *testing.T) {
	sess := NewSession(&fakeAutomation{})

	err := sess.Configure(DeviceConfiguration{DigitalSampleRate: 1_000_000})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected a ConfigurationError, got %v", err)
	}
}

func TestSessionConfigureDropsAnalogWithoutRate(t *testing.T) {
	fake := &fakeAutomation{}
	sess := NewSession(fake)

	cfg := NewDeviceConfiguration([]int{0}, []int{4}, 1_000_000, 0, nil)
	if err := sess.Configure(cfg); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if len(fake.analogChannels) != 0 {
		t.Fatalf("expected analog channels dropped without a rate, got %v", fake.analogChannels)
	}
}

func TestSessionConfigureThreshold(t *testing.T) {
	fake := &fakeAutomation{}
	sess := NewSession(fake)

	threshold := 1.8
	cfg := NewDeviceConfiguration([]int{0}, nil, 1_000_000, 0, &threshold)
	if err := sess.Configure(cfg); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if fake.threshold == nil || *fake.threshold != 1.8 {
		t.Fatalf("expected a 1.8V threshold push, got %v", fake.threshold)
	}
}

func TestSessionConfigureSkipsThresholdByDefault(t *testing.T) {
	fake := &fakeAutomation{}
	sess := NewSession(fake)

	cfg := NewDeviceConfiguration([]int{0}, nil, 1_000_000, 0, nil)
	if err := sess.Configure(cfg); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	for _, call := range fake.calls {
		if call == "SetDigitalThreshold" {
			t.Fatal("threshold must not be pushed when unset")
		}
	}
}

func TestSessionAbortStopsRunningCapture(t *testing.T) {
	fake := &fakeAutomation{}
	sess := configured(t, fake)

	if err := sess.Start(CaptureConfiguration{DurationSeconds: 10}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sess.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}

	stopped := false
	for _, call := range fake.calls {
		if call == "StopCapture" {
			stopped = true
		}
	}
	if !stopped {
		t.Fatal("expected StopCapture during abort")
	}
	if sess.State() != StateClosed {
		t.Fatalf("expected closed state after abort, got %s", sess.State())
	}
	if fake.closeCount != 1 {
		t.Fatalf("expected exactly one CloseCapture, got %d", fake.closeCount)
	}
}

func TestSessionWaitCancellation(t *testing.T) {
	fake := &fakeAutomation{}
	sess := configured(t, fake)

	if err := sess.Start(CaptureConfiguration{DurationSeconds: 60}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sess.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSessionClosedRejectsOperations(t *testing.T) {
	sess := NewSession(&fakeAutomation{})
	if err := sess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	cfg := NewDeviceConfiguration([]int{0}, nil, 1_000_000, 0, nil)
	if err := sess.Configure(cfg); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := sess.Start(CaptureConfiguration{DurationSeconds: 1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestExportFileName(t *testing.T) {
	if name := ExportFileName(3, false); name != "digital_channel_3.csv" {
		t.Fatalf("unexpected digital name: %s", name)
	}
	if name := ExportFileName(5, true); name != "analog_channel_5.csv" {
		t.Fatalf("unexpected analog name: %s", name)
	}
}
