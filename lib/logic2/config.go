package logic2

// DeviceConfiguration describes which channels to record and at which
// rates. It is a plain value: building one has no side effects and never
// fails. Invalid values surface later, when the device layer rejects the
// capture start.
type DeviceConfiguration struct {
	DigitalChannels   []int
	AnalogChannels    []int
	DigitalSampleRate int
	// AnalogSampleRate of 0 means analog capture is not requested. When
	// analog channels are listed without a rate, analog capture is simply
	// omitted downstream rather than rejected.
	AnalogSampleRate int
	// DigitalThresholdVolts of nil keeps the device-native default. A
	// forced 0V threshold is invalid on some device families, so zero is
	// never used as the default.
	DigitalThresholdVolts *float64
}

// NewDeviceConfiguration builds a configuration from user-supplied channel
// lists. Negative and duplicate channel indices are dropped, preserving
// order.
func NewDeviceConfiguration(digital, analog []int, digitalRate, analogRate int, threshold *float64) DeviceConfiguration {
	return DeviceConfiguration{
		DigitalChannels:       normalizeChannels(digital),
		AnalogChannels:        normalizeChannels(analog),
		DigitalSampleRate:     digitalRate,
		AnalogSampleRate:      analogRate,
		DigitalThresholdVolts: threshold,
	}
}

// HasDigital reports whether any digital channel is requested.
func (c DeviceConfiguration) HasDigital() bool { return len(c.DigitalChannels) > 0 }

// HasAnalog reports whether analog capture is requested: analog channels
// listed and a positive analog sample rate.
func (c DeviceConfiguration) HasAnalog() bool {
	return len(c.AnalogChannels) > 0 && c.AnalogSampleRate > 0
}

// Empty reports whether the configuration selects no channels at all.
func (c DeviceConfiguration) Empty() bool {
	return len(c.DigitalChannels) == 0 && len(c.AnalogChannels) == 0
}

func normalizeChannels(channels []int) []int {
	out := make([]int, 0, len(channels))
	seen := make(map[int]bool, len(channels))

	for _, ch := range channels {
		if ch < 0 || seen[ch] {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}

	return out
}

// CaptureConfiguration describes one timed capture run.
type CaptureConfiguration struct {
	DurationSeconds     float64
	BufferSizeMegabytes int
}
