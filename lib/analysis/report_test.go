package analysis

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestChannelStatisticsMarshalFlattens(t *testing.T) {
	freq := 5.0
	duty := 50.0
	stats := ChannelStatistics{Digital: &DigitalStats{
		SampleCount:          4,
		TransitionCount:      3,
		EstimatedFrequencyHz: &freq,
		DutyCyclePercent:     &duty,
	}}

	out, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded["transition_count"] != 3.0 {
		t.Fatalf("expected flattened transition_count, got %v", decoded)
	}
	if decoded["estimated_frequency_hz"] != 5.0 {
		t.Fatalf("expected flattened frequency, got %v", decoded)
	}
}

func TestReportJSONCaptureFileNull(t *testing.T) {
	report := Report{Status: "success", CSVDirectory: "/tmp/out"}

	out, err := report.JSON()
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}

	if !strings.Contains(out, `"capture_file":null`) {
		t.Fatalf("expected capture_file to serialize as null, got %s", out)
	}
}

func TestFailureReport(t *testing.T) {
	report := Failure(errors.New("endpoint unreachable"))

	if report.Status != "error" {
		t.Fatalf("expected error status, got %q", report.Status)
	}
	if report.Message != "endpoint unreachable" {
		t.Fatalf("unexpected message: %q", report.Message)
	}
}

func TestReduceFiles(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "digital_channel_0.csv", "Time [s],Channel 0\n0.0,0\n0.1,1\n0.2,0\n0.3,1\n")
	writeCSV(t, dir, "analog_channel_4.csv", "Time [s],Channel 4\n0.0,1.0\n0.1,2.0\n0.2,3.0\n")

	results, warnings := ReduceFiles(dir, []string{"digital_channel_0.csv", "analog_channel_4.csv"})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	digital := results["digital_channel_0.csv"]
	if digital.Digital == nil || digital.Digital.TransitionCount != 3 {
		t.Fatalf("unexpected digital reduction: %+v", digital)
	}

	analog := results["analog_channel_4.csv"]
	if analog.Analog == nil || analog.Analog.MeanV != 2.0 {
		t.Fatalf("unexpected analog reduction: %+v", analog)
	}
}

func TestReduceFilesUnreadableFileWarns(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "digital_channel_0.csv", "Time [s],Channel 0\n0.0,0\n0.1,1\n")

	results, warnings := ReduceFiles(dir, []string{"digital_channel_0.csv", "digital_channel_1.csv"})

	if len(results) != 1 {
		t.Fatalf("expected the readable file to reduce, got %d results", len(results))
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "digital_channel_1.csv") {
		t.Fatalf("expected a warning for the missing file, got %v", warnings)
	}
}

func TestReduceDirectory(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "digital_channel_2.csv", "Time [s],Channel 2\n0.0,0\n0.1,1\n")
	writeCSV(t, dir, "notes.txt", "not a csv")

	results, warnings, err := ReduceDirectory(dir)
	if err != nil {
		t.Fatalf("ReduceDirectory failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(results) != 1 {
		t.Fatalf("expected only the csv to reduce, got %d results", len(results))
	}
	if _, ok := results["digital_channel_2.csv"]; !ok {
		t.Fatalf("missing expected key: %v", results)
	}
}

func TestReduceDirectoryMissing(t *testing.T) {
	if _, _, err := ReduceDirectory("/does/not/exist"); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}
