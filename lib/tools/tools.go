package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ReconnectFunc re-establishes the automation connection, optionally on a
// different port. Supplied by the caller, which owns endpoint policy.
type ReconnectFunc func(ctx context.Context, port int) error

// Register declares every toolkit tool on the MCP server. Device-facing
// failures are rendered as structured {status, message} payloads instead of
// protocol errors, so the calling agent always receives a JSON envelope.
func Register(srv *server.MCPServer, svc *Service, reconnect ReconnectFunc) {
	srv.AddTool(mcp.NewTool("capture_and_analyze_digital",
		mcp.WithDescription("Run a timed digital capture, export one CSV per channel and return transition count, estimated frequency and duty cycle per channel."),
		mcp.WithArray("digital_channels",
			mcp.Required(),
			mcp.Description("Digital channel indices to record."),
			mcp.Items(map[string]interface{}{"type": "integer"}),
		),
		mcp.WithNumber("duration_seconds",
			mcp.Required(),
			mcp.Description("Capture duration in seconds."),
		),
		mcp.WithNumber("sample_rate",
			mcp.Description("Digital sample rate in Hz."),
			mcp.DefaultNumber(DefaultDigitalSampleRate),
		),
		mcp.WithNumber("digital_threshold_volts",
			mcp.Description("Logic-1 threshold voltage. Omit to keep the device default."),
		),
		mcp.WithString("output_directory",
			mcp.Description("Directory for the exported CSVs and capture artifact."),
		),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.Params.Arguments

		channels, err := intSliceArg(args, "digital_channels")
		if err != nil {
			return errorResult(err)
		}
		duration, err := floatArg(args, "duration_seconds")
		if err != nil {
			return errorResult(err)
		}

		report := svc.CaptureAndAnalyzeDigital(ctx, DigitalRequest{
			Channels:        channels,
			DurationSeconds: duration,
			SampleRate:      intArg(args, "sample_rate", DefaultDigitalSampleRate),
			ThresholdVolts:  optFloatArg(args, "digital_threshold_volts"),
			OutputDirectory: stringArg(args, "output_directory"),
		})
		return reportResult(report.JSON())
	})

	srv.AddTool(mcp.NewTool("capture_and_analyze_analog",
		mcp.WithDescription("Run a timed analog capture, export one CSV per channel and return min/max/mean/stdev/peak-to-peak voltage per channel."),
		mcp.WithArray("analog_channels",
			mcp.Required(),
			mcp.Description("Analog channel indices to record."),
			mcp.Items(map[string]interface{}{"type": "integer"}),
		),
		mcp.WithNumber("duration_seconds",
			mcp.Required(),
			mcp.Description("Capture duration in seconds."),
		),
		mcp.WithNumber("sample_rate",
			mcp.Description("Analog sample rate in Hz."),
			mcp.DefaultNumber(DefaultAnalogSampleRate),
		),
		mcp.WithString("output_directory",
			mcp.Description("Directory for the exported CSVs and capture artifact."),
		),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.Params.Arguments

		channels, err := intSliceArg(args, "analog_channels")
		if err != nil {
			return errorResult(err)
		}
		duration, err := floatArg(args, "duration_seconds")
		if err != nil {
			return errorResult(err)
		}

		report := svc.CaptureAndAnalyzeAnalog(ctx, AnalogRequest{
			Channels:        channels,
			DurationSeconds: duration,
			SampleRate:      intArg(args, "sample_rate", DefaultAnalogSampleRate),
			OutputDirectory: stringArg(args, "output_directory"),
		})
		return reportResult(report.JSON())
	})

	srv.AddTool(mcp.NewTool("logic2_reconnect",
		mcp.WithDescription("Re-establish the connection to the Logic automation endpoint, launching the desktop application when needed."),
		mcp.WithNumber("port",
			mcp.Description("Automation endpoint port."),
			mcp.DefaultNumber(10430),
		),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		port := intArg(request.Params.Arguments, "port", 0)

		if reconnect == nil {
			return errorResult(fmt.Errorf("reconnect is not supported by this server"))
		}
		if err := reconnect(ctx, port); err != nil {
			return errorResult(err)
		}
		return envelopeResult(map[string]interface{}{
			"status":  "success",
			"message": "connected to Logic automation endpoint",
		})
	})

	srv.AddTool(mcp.NewTool("get_available_devices",
		mcp.WithDescription("List the logic analyzers visible to the automation endpoint. Device identifiers are masked."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		devices, err := svc.Devices(ctx)
		if err != nil {
			return errorResult(err)
		}

		listed := make([]map[string]interface{}, 0, len(devices))
		for _, d := range devices {
			listed = append(listed, map[string]interface{}{
				"id":         d.MaskedID(),
				"name":       d.Name,
				"type":       d.Type,
				"active":     d.Active,
				"simulation": d.IsSimulation(),
			})
		}
		return envelopeResult(map[string]interface{}{
			"status":  "success",
			"devices": listed,
		})
	})

	srv.AddTool(mcp.NewTool("capture_to_file",
		mcp.WithDescription("Run a timed digital capture and save the capture artifact without analysis."),
		mcp.WithArray("digital_channels",
			mcp.Required(),
			mcp.Description("Digital channel indices to record."),
			mcp.Items(map[string]interface{}{"type": "integer"}),
		),
		mcp.WithNumber("duration_seconds",
			mcp.Required(),
			mcp.Description("Capture duration in seconds."),
		),
		mcp.WithNumber("sample_rate",
			mcp.Description("Digital sample rate in Hz."),
			mcp.DefaultNumber(DefaultDigitalSampleRate),
		),
		mcp.WithString("output_file",
			mcp.Required(),
			mcp.Description("Path of the capture artifact to write."),
		),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.Params.Arguments

		channels, err := intSliceArg(args, "digital_channels")
		if err != nil {
			return errorResult(err)
		}
		duration, err := floatArg(args, "duration_seconds")
		if err != nil {
			return errorResult(err)
		}
		output := stringArg(args, "output_file")
		if output == "" {
			return errorResult(fmt.Errorf("missing required argument %q", "output_file"))
		}

		cfg := logic2DeviceConfig(channels, intArg(args, "sample_rate", DefaultDigitalSampleRate))
		if err := svc.CaptureToFile(ctx, cfg, duration, output); err != nil {
			return errorResult(err)
		}
		return envelopeResult(map[string]interface{}{
			"status":  "success",
			"message": fmt.Sprintf("capture saved to %s", output),
		})
	})

	srv.AddTool(mcp.NewTool("export_capture",
		mcp.WithDescription("Export channels of the capture the endpoint still holds from an earlier run and return their statistics."),
		mcp.WithArray("digital_channels",
			mcp.Description("Digital channel indices to export."),
			mcp.Items(map[string]interface{}{"type": "integer"}),
		),
		mcp.WithArray("analog_channels",
			mcp.Description("Analog channel indices to export."),
			mcp.Items(map[string]interface{}{"type": "integer"}),
		),
		mcp.WithString("output_directory",
			mcp.Description("Directory for the exported CSVs."),
		),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.Params.Arguments

		digital, _ := intSliceArg(args, "digital_channels")
		analog, _ := intSliceArg(args, "analog_channels")

		report := svc.ExportCapture(ctx, digital, analog, stringArg(args, "output_directory"))
		return reportResult(report.JSON())
	})

	srv.AddTool(mcp.NewTool("analyze_export_directory",
		mcp.WithDescription("Re-run the statistical reduction over a directory of previously exported channel CSVs."),
		mcp.WithString("directory",
			mcp.Required(),
			mcp.Description("Directory holding digital_channel_*.csv / analog_channel_*.csv exports."),
		),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir := stringArg(request.Params.Arguments, "directory")
		if dir == "" {
			return errorResult(fmt.Errorf("missing required argument %q", "directory"))
		}

		report := svc.AnalyzeDirectory(dir)
		return reportResult(report.JSON())
	})
}

// errorResult renders err as a {status, message} payload.
func errorResult(err error) (*mcp.CallToolResult, error) {
	return envelopeResult(map[string]interface{}{
		"status":  "error",
		"message": err.Error(),
	})
}

func envelopeResult(envelope map[string]interface{}) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response envelope: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func reportResult(payload string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(payload), nil
}
