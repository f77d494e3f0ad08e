package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ChannelStatistics is the per-file reduction result: exactly one of the
// two variants is set.
type ChannelStatistics struct {
	Digital *DigitalStats
	Analog  *AnalogStats
}

// MarshalJSON flattens the active variant so callers see the statistics
// fields directly under the file-name key.
func (c ChannelStatistics) MarshalJSON() ([]byte, error) {
	switch {
	case c.Digital != nil:
		return json.Marshal(c.Digital)
	case c.Analog != nil:
		return json.Marshal(c.Analog)
	default:
		return []byte("null"), nil
	}
}

// Report is the response envelope of a one-shot capture-and-analyze
// operation.
type Report struct {
	Status     string                       `json:"status"`
	DurationS  float64                      `json:"duration_s,omitempty"`
	SampleRate int                          `json:"sample_rate,omitempty"`
	Channels   []int                        `json:"channels,omitempty"`
	Analysis   map[string]ChannelStatistics `json:"analysis,omitempty"`
	// CSVDirectory holds the per-channel CSV exports.
	CSVDirectory string `json:"csv_directory,omitempty"`
	// CaptureFile is the saved capture artifact. Null when the save step
	// failed: the artifact is best-effort and its absence never fails the
	// operation.
	CaptureFile *string  `json:"capture_file"`
	Warnings    []string `json:"warnings,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// Failure builds an error report. Only capture start, wait and export
// failures escalate to this; save failures and malformed CSV rows are
// absorbed as warnings.
func Failure(err error) Report {
	return Report{Status: "error", Message: err.Error()}
}

// JSON renders the report for transport.
func (r Report) JSON() (string, error) {
	out, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(out), nil
}

// ReduceFiles reduces the named CSV files inside dir, keying results by
// file name so callers can correlate statistics back to channels. Files
// named analog_channel_*.csv get the analog reduction, everything else the
// digital one. A file that cannot be read is reported as a warning instead
// of aborting the remaining channels.
func ReduceFiles(dir string, names []string) (map[string]ChannelStatistics, []string) {
	results := make(map[string]ChannelStatistics, len(names))
	var warnings []string

	for _, name := range names {
		analog := strings.HasPrefix(name, "analog_")

		samples, err := ReadChannelCSV(filepath.Join(dir, name), !analog)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: %v", name, err))
			continue
		}

		if analog {
			stats := ReduceAnalog(samples)
			results[name] = ChannelStatistics{Analog: &stats}
		} else {
			stats := ReduceDigital(samples)
			results[name] = ChannelStatistics{Digital: &stats}
		}
	}

	return results, warnings
}

// ReduceDirectory reduces every exported channel CSV found in dir. Used by
// the offline analyze path, where the export happened in an earlier run.
func ReduceDirectory(dir string) (map[string]ChannelStatistics, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	results, warnings := ReduceFiles(dir, names)
	return results, warnings, nil
}
