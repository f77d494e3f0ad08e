package logic2

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// Default automation endpoint of the Logic desktop application.
	DefaultHost = "127.0.0.1"
	DefaultPort = 10430

	// Responses terminating every command exchange.
	ackResponse = "ACK"
	nakResponse = "NAK"

	// Commands understood by the automation socket.
	cmdGetConnectedDevices   = "GET_CONNECTED_DEVICES"
	cmdSetActiveChannels     = "SET_ACTIVE_CHANNELS"
	cmdSetSampleRate         = "SET_SAMPLE_RATE"
	cmdSetDigitalThreshold   = "SET_DIGITAL_VOLTAGE_THRESHOLD"
	cmdSetCaptureSeconds     = "SET_CAPTURE_SECONDS"
	cmdCapture               = "CAPTURE"
	cmdStopCapture           = "STOP_CAPTURE"
	cmdIsProcessingComplete  = "IS_PROCESSING_COMPLETE"
	cmdExportData            = "EXPORT_DATA2"
	cmdSaveToFile            = "SAVE_TO_FILE"
	cmdCloseAllTabs          = "CLOSE_ALL_TABS"
)

// Client is a connection to the Logic automation socket. Commands are sent
// as comma-separated text terminated by a NUL byte; the response body is
// newline-separated and terminated by a NUL byte, with the last line being
// ACK or NAK.
type Client struct {
	conn    net.Conn
	timeout time.Duration
}

// Dial connects to the automation endpoint. A ConnectionError is returned
// when the endpoint is unreachable (Logic not running or automation
// disabled).
func Dial(host string, port int, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	endpoint := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := net.DialTimeout("tcp", endpoint, timeout)
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	return &Client{conn: conn, timeout: timeout}, nil
}

// Close closes the underlying socket.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// command sends a command and returns the response body lines. The trailing
// ACK line is stripped; a NAK turns into an error carrying the body.
func (c *Client) command(parts ...string) ([]string, error) {
	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("failed to set socket deadline: %w", err)
	}

	if _, err := c.conn.Write(append([]byte(strings.Join(parts, ", ")), 0)); err != nil {
		return nil, fmt.Errorf("failed to write command %s: %w", parts[0], err)
	}

	raw, err := c.readResponse()
	if err != nil {
		return nil, fmt.Errorf("failed to read response to %s: %w", parts[0], err)
	}

	lines := strings.Split(strings.TrimRight(raw, "\n"), "\n")
	last := lines[len(lines)-1]
	body := lines[:len(lines)-1]

	switch last {
	case ackResponse:
		return body, nil
	case nakResponse:
		return nil, fmt.Errorf("device refused %s: %s", parts[0], strings.Join(body, "; "))
	default:
		return nil, fmt.Errorf("malformed response to %s: missing ACK/NAK terminator", parts[0])
	}
}

// readResponse reads bytes until the NUL terminator.
func (c *Client) readResponse() (string, error) {
	var out []byte
	buf := make([]byte, 512)

	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			if i := bytes.IndexByte(buf[:n], 0); i >= 0 {
				out = append(out, buf[:i]...)
				return string(out), nil
			}
			out = append(out, buf[:n]...)
		}
		if err != nil {
			return "", err
		}
	}
}

// Device describes one analyzer known to the automation endpoint.
type Device struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// MaskedID hides the middle of the device identifier, keeping enough of it
// to tell devices apart.
func (d Device) MaskedID() string {
	if len(d.ID) <= 8 {
		return "****"
	}
	return d.ID[:4] + "..." + d.ID[len(d.ID)-4:]
}

// IsSimulation reports whether the device is one of the endpoint's built-in
// simulated analyzers.
func (d Device) IsSimulation() bool {
	return strings.Contains(d.Type, "SIMULATION")
}

// GetConnectedDevices lists the devices the endpoint can see. Each response
// line is "index, name, type, id" with an optional trailing ACTIVE marker.
func (c *Client) GetConnectedDevices() ([]Device, error) {
	lines, err := c.command(cmdGetConnectedDevices)
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(lines))
	for _, line := range lines {
		fields := strings.Split(line, ",")
		if len(fields) < 4 {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		index, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}

		devices = append(devices, Device{
			Index:  index,
			Name:   fields[1],
			Type:   fields[2],
			ID:     fields[3],
			Active: len(fields) > 4 && fields[4] == "ACTIVE",
		})
	}

	return devices, nil
}

// SetActiveChannels selects the digital and analog channels for the next
// capture.
func (c *Client) SetActiveChannels(digital, analog []int) error {
	parts := []string{cmdSetActiveChannels, "digital_channels"}
	for _, ch := range digital {
		parts = append(parts, strconv.Itoa(ch))
	}
	parts = append(parts, "analog_channels")
	for _, ch := range analog {
		parts = append(parts, strconv.Itoa(ch))
	}

	_, err := c.command(parts...)
	return err
}

// SetSampleRate sets the digital and analog sample rates in Hz. An analog
// rate of 0 disables analog sampling.
func (c *Client) SetSampleRate(digital, analog int) error {
	_, err := c.command(cmdSetSampleRate, strconv.Itoa(digital), strconv.Itoa(analog))
	return err
}

// SetDigitalThreshold sets the logic-1 threshold voltage for digital inputs.
func (c *Client) SetDigitalThreshold(volts float64) error {
	_, err := c.command(cmdSetDigitalThreshold, strconv.FormatFloat(volts, 'f', -1, 64))
	return err
}

// SetCaptureSeconds sets the timed capture duration.
func (c *Client) SetCaptureSeconds(seconds float64) error {
	_, err := c.command(cmdSetCaptureSeconds, strconv.FormatFloat(seconds, 'f', -1, 64))
	return err
}

// StartCapture begins a timed capture. The command returns as soon as the
// device acknowledges the start; completion is observed by polling
// IsProcessingComplete.
func (c *Client) StartCapture() error {
	_, err := c.command(cmdCapture)
	return err
}

// StopCapture aborts a running capture.
func (c *Client) StopCapture() error {
	_, err := c.command(cmdStopCapture)
	return err
}

// IsProcessingComplete reports whether the endpoint has finished the
// current capture or export.
func (c *Client) IsProcessingComplete() (bool, error) {
	lines, err := c.command(cmdIsProcessingComplete)
	if err != nil {
		return false, err
	}
	if len(lines) == 0 {
		return false, fmt.Errorf("empty response to %s", cmdIsProcessingComplete)
	}
	return strings.EqualFold(strings.TrimSpace(lines[0]), "TRUE"), nil
}

// ExportChannelCSV exports a single channel of the finished capture to a
// CSV file at path.
func (c *Client) ExportChannelCSV(path string, channel int, analog bool) error {
	selector := "DIGITAL_ONLY"
	if analog {
		selector = "ANALOG_ONLY"
	}

	_, err := c.command(cmdExportData, path, selector, strconv.Itoa(channel), "CSV", "HEADERS", "TIME_STAMP")
	return err
}

// SaveToFile persists the full capture artifact.
func (c *Client) SaveToFile(path string) error {
	_, err := c.command(cmdSaveToFile, path)
	return err
}

// CloseCapture releases the capture held by the endpoint.
func (c *Client) CloseCapture() error {
	_, err := c.command(cmdCloseAllTabs)
	return err
}
