// Package tools exposes the capture toolkit through a tool-calling (MCP)
// server and hosts the one-shot capture-and-analyze orchestration shared
// with the CLI.
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hbarrio/logic2-toolkit/lib/analysis"
	"github.com/hbarrio/logic2-toolkit/lib/logic2"
)

// Default sample rates used when a request omits one.
const (
	DefaultDigitalSampleRate = 10_000_000
	DefaultAnalogSampleRate  = 625_000
)

// captureArtifactName is the saved capture file inside the export
// directory.
const captureArtifactName = "capture.sal"

// Automation is a connected automation endpoint whose connection the
// service owns for the duration of one request.
type Automation interface {
	logic2.Automation
	GetConnectedDevices() ([]logic2.Device, error)
	Close() error
}

// DialFunc opens a connection to the automation endpoint. Injected at
// construction so callers own connection policy (launch retry, endpoint
// address) instead of the service holding process-wide state.
type DialFunc func(ctx context.Context) (Automation, error)

// Service runs capture operations against a device endpoint. A single
// capture may run at a time; concurrent requests fail fast with a busy
// error instead of queuing.
type Service struct {
	dial      DialFunc
	outputDir string
	metrics   *Metrics

	busy atomic.Bool
}

// NewService builds a Service. outputDir is the base directory for export
// artifacts when a request does not name one. metrics may be nil.
func NewService(dial DialFunc, outputDir string, metrics *Metrics) *Service {
	if outputDir == "" {
		outputDir = "."
	}
	return &Service{dial: dial, outputDir: outputDir, metrics: metrics}
}

// DigitalRequest parameterizes capture_and_analyze_digital.
type DigitalRequest struct {
	Channels        []int
	DurationSeconds float64
	SampleRate      int
	// ThresholdVolts of nil keeps the device-native threshold.
	ThresholdVolts  *float64
	OutputDirectory string
}

// AnalogRequest parameterizes capture_and_analyze_analog.
type AnalogRequest struct {
	Channels        []int
	DurationSeconds float64
	SampleRate      int
	OutputDirectory string
}

// CaptureAndAnalyzeDigital runs the one-shot digital pipeline: configure,
// capture for the requested duration, export one CSV per channel, save the
// capture artifact, reduce the CSVs to per-channel statistics.
func (s *Service) CaptureAndAnalyzeDigital(ctx context.Context, req DigitalRequest) analysis.Report {
	if req.SampleRate <= 0 {
		req.SampleRate = DefaultDigitalSampleRate
	}

	cfg := logic2.NewDeviceConfiguration(req.Channels, nil, req.SampleRate, 0, req.ThresholdVolts)
	return s.captureAndAnalyze(ctx, cfg, req.DurationSeconds, req.SampleRate, req.OutputDirectory)
}

// CaptureAndAnalyzeAnalog is the analog counterpart of
// CaptureAndAnalyzeDigital.
func (s *Service) CaptureAndAnalyzeAnalog(ctx context.Context, req AnalogRequest) analysis.Report {
	if req.SampleRate <= 0 {
		req.SampleRate = DefaultAnalogSampleRate
	}

	cfg := logic2.NewDeviceConfiguration(nil, req.Channels, 0, req.SampleRate, nil)
	// Analog-only captures still need a digital rate for the device layer;
	// reuse the requested rate.
	cfg.DigitalSampleRate = req.SampleRate
	return s.captureAndAnalyze(ctx, cfg, req.DurationSeconds, req.SampleRate, req.OutputDirectory)
}

func (s *Service) captureAndAnalyze(ctx context.Context, cfg logic2.DeviceConfiguration, duration float64, rate int, outDir string) analysis.Report {
	started := time.Now()
	report := s.runCapture(ctx, cfg, duration, rate, outDir)
	s.metrics.observe(report.Status, time.Since(started).Seconds())
	return report
}

func (s *Service) runCapture(ctx context.Context, cfg logic2.DeviceConfiguration, duration float64, rate int, outDir string) analysis.Report {
	if !s.busy.CompareAndSwap(false, true) {
		return analysis.Failure(logic2.ErrCaptureBusy)
	}
	defer s.busy.Store(false)

	if outDir == "" {
		outDir = filepath.Join(s.outputDir, "capture_"+time.Now().Format("20060102-150405"))
	}

	auto, err := s.dial(ctx)
	if err != nil {
		return analysis.Failure(err)
	}
	defer auto.Close()

	sess := logic2.NewSession(auto)
	// The capture handle is released on every exit path, success or not.
	defer sess.Close()

	if err := sess.Configure(cfg); err != nil {
		return analysis.Failure(err)
	}
	if err := sess.Start(logic2.CaptureConfiguration{DurationSeconds: duration}); err != nil {
		return analysis.Failure(err)
	}
	if err := sess.Wait(ctx); err != nil {
		return analysis.Failure(err)
	}

	names, err := sess.Export(outDir)
	if err != nil {
		return analysis.Failure(err)
	}

	var warnings []string
	var captureFile *string
	artifact := filepath.Join(outDir, captureArtifactName)
	if err := sess.Save(artifact); err != nil {
		// Best-effort artifact: the statistics below do not depend on it.
		warnings = append(warnings, fmt.Sprintf("failed to save capture artifact: %v", err))
	} else {
		captureFile = &artifact
	}

	stats, reduceWarnings := analysis.ReduceFiles(outDir, names)
	warnings = append(warnings, reduceWarnings...)

	channels := append(append([]int{}, cfg.DigitalChannels...), cfg.AnalogChannels...)

	return analysis.Report{
		Status:       "success",
		DurationS:    duration,
		SampleRate:   rate,
		Channels:     channels,
		Analysis:     stats,
		CSVDirectory: outDir,
		CaptureFile:  captureFile,
		Warnings:     warnings,
	}
}

// logic2DeviceConfig builds a digital-only device configuration.
func logic2DeviceConfig(channels []int, rate int) logic2.DeviceConfiguration {
	return logic2.NewDeviceConfiguration(channels, nil, rate, 0, nil)
}

// CaptureToFile runs a timed capture and saves the artifact without any
// analysis.
func (s *Service) CaptureToFile(ctx context.Context, cfg logic2.DeviceConfiguration, duration float64, path string) error {
	if !s.busy.CompareAndSwap(false, true) {
		return logic2.ErrCaptureBusy
	}
	defer s.busy.Store(false)

	auto, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer auto.Close()

	sess := logic2.NewSession(auto)
	defer sess.Close()

	if err := sess.Configure(cfg); err != nil {
		return err
	}
	if err := sess.Start(logic2.CaptureConfiguration{DurationSeconds: duration}); err != nil {
		return err
	}
	if err := sess.Wait(ctx); err != nil {
		return err
	}
	return sess.Save(path)
}

// ExportCapture exports channels of the capture the endpoint still holds
// from an earlier run and reduces the resulting CSVs. The capture is left
// open so further exports remain possible.
func (s *Service) ExportCapture(ctx context.Context, digital, analog []int, dir string) analysis.Report {
	if !s.busy.CompareAndSwap(false, true) {
		return analysis.Failure(logic2.ErrCaptureBusy)
	}
	defer s.busy.Store(false)

	if len(digital) == 0 && len(analog) == 0 {
		return analysis.Failure(fmt.Errorf("no channels to export"))
	}
	if dir == "" {
		dir = filepath.Join(s.outputDir, "export_"+time.Now().Format("20060102-150405"))
	}

	auto, err := s.dial(ctx)
	if err != nil {
		return analysis.Failure(err)
	}
	defer auto.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return analysis.Failure(err)
	}

	var names []string
	for _, ch := range digital {
		name := logic2.ExportFileName(ch, false)
		if err := auto.ExportChannelCSV(filepath.Join(dir, name), ch, false); err != nil {
			return analysis.Failure(err)
		}
		names = append(names, name)
	}
	for _, ch := range analog {
		name := logic2.ExportFileName(ch, true)
		if err := auto.ExportChannelCSV(filepath.Join(dir, name), ch, true); err != nil {
			return analysis.Failure(err)
		}
		names = append(names, name)
	}

	stats, warnings := analysis.ReduceFiles(dir, names)

	return analysis.Report{
		Status:       "success",
		Channels:     append(append([]int{}, digital...), analog...),
		Analysis:     stats,
		CSVDirectory: dir,
		Warnings:     warnings,
	}
}

// Devices lists the analyzers visible to the automation endpoint.
func (s *Service) Devices(ctx context.Context) ([]logic2.Device, error) {
	auto, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer auto.Close()

	return auto.GetConnectedDevices()
}

// AnalyzeDirectory reduces previously exported channel CSVs without
// touching the device.
func (s *Service) AnalyzeDirectory(dir string) analysis.Report {
	stats, warnings, err := analysis.ReduceDirectory(dir)
	if err != nil {
		return analysis.Failure(err)
	}

	return analysis.Report{
		Status:       "success",
		Analysis:     stats,
		CSVDirectory: dir,
		Warnings:     warnings,
	}
}
