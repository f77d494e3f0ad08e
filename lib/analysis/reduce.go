// Package analysis turns exported per-channel CSV waveforms into aggregate
// statistics: transition counts, frequency and duty cycle estimates for
// digital channels, voltage statistics for analog channels.
package analysis

import (
	"bufio"
	"math"
	"os"
	"strconv"
	"strings"
)

// Sample is one (timestamp, value) pair from an exported CSV row. Digital
// samples carry 0 or 1 in Value.
type Sample struct {
	Time  float64
	Value float64
}

// ReadChannelCSV parses an exported channel CSV: a header row followed by
// "timestamp,value" rows. Rows that fail to parse (wrong column count,
// non-numeric fields) are skipped silently rather than failing the whole
// file; partial exports from an interrupted device flush still yield usable
// statistics. Digital values must parse as integers, analog as floats.
func ReadChannelCSV(path string, digital bool) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var samples []Sample
	scanner := bufio.NewScanner(f)
	first := true

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			// Header row.
			first = false
			continue
		}
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != 2 {
			continue
		}

		ts, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			continue
		}

		raw := strings.TrimSpace(fields[1])
		var value float64
		if digital {
			bit, err := strconv.Atoi(raw)
			if err != nil {
				continue
			}
			value = float64(bit)
		} else {
			value, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
		}

		samples = append(samples, Sample{Time: ts, Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// DigitalStats aggregates a digital sample stream.
type DigitalStats struct {
	SampleCount     int `json:"sample_count"`
	TransitionCount int `json:"transition_count"`
	// EstimatedFrequencyHz is present only when at least two transitions
	// were observed over a positive elapsed time.
	EstimatedFrequencyHz *float64 `json:"estimated_frequency_hz,omitempty"`
	// DutyCyclePercent is present unless the stream is empty.
	DutyCyclePercent *float64 `json:"duty_cycle_percent,omitempty"`
}

// ReduceDigital computes transition count, estimated frequency and duty
// cycle. A transition is an adjacent pair of samples with differing values;
// a pair of transitions approximates one full period, so the frequency
// estimate is transitions / (2 * elapsed).
func ReduceDigital(samples []Sample) DigitalStats {
	stats := DigitalStats{SampleCount: len(samples)}
	if len(samples) == 0 {
		return stats
	}

	ones := 0
	for i, s := range samples {
		if s.Value == 1 {
			ones++
		}
		if i > 0 && s.Value != samples[i-1].Value {
			stats.TransitionCount++
		}
	}

	elapsed := samples[len(samples)-1].Time - samples[0].Time
	if stats.TransitionCount >= 2 && elapsed > 0 {
		freq := round2(float64(stats.TransitionCount) / (2 * elapsed))
		stats.EstimatedFrequencyHz = &freq
	}

	duty := round2(100 * float64(ones) / float64(len(samples)))
	stats.DutyCyclePercent = &duty

	return stats
}

// AnalogStats aggregates an analog voltage stream. All values are rounded
// to six decimal places.
type AnalogStats struct {
	SampleCount int     `json:"sample_count"`
	MinV        float64 `json:"min_v"`
	MaxV        float64 `json:"max_v"`
	MeanV       float64 `json:"mean_v"`
	StdevV      float64 `json:"stdev_v"`
	PeakToPeakV float64 `json:"peak_to_peak_v"`
}

// ReduceAnalog computes min/max/mean, sample standard deviation and
// peak-to-peak voltage. The standard deviation of fewer than two samples
// is defined as 0.0.
func ReduceAnalog(samples []Sample) AnalogStats {
	stats := AnalogStats{SampleCount: len(samples)}
	if len(samples) == 0 {
		return stats
	}

	min, max := samples[0].Value, samples[0].Value
	sum := 0.0
	for _, s := range samples {
		if s.Value < min {
			min = s.Value
		}
		if s.Value > max {
			max = s.Value
		}
		sum += s.Value
	}
	mean := sum / float64(len(samples))

	stdev := 0.0
	if len(samples) >= 2 {
		var sq float64
		for _, s := range samples {
			d := s.Value - mean
			sq += d * d
		}
		stdev = math.Sqrt(sq / float64(len(samples)-1))
	}

	stats.MinV = round6(min)
	stats.MaxV = round6(max)
	stats.MeanV = round6(mean)
	stats.StdevV = round6(stdev)
	stats.PeakToPeakV = round6(max - min)

	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
