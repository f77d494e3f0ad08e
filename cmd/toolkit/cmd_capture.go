package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hbarrio/logic2-toolkit/lib/analysis"
	"github.com/hbarrio/logic2-toolkit/lib/tools"
	"github.com/spf13/cobra"
)

var (
	captureChannelsFlag  []int
	captureDurationFlag  float64
	captureRateFlag      int
	captureThresholdFlag float64
	captureOutFlag       string
	captureJSONFlag      bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run a one-shot capture and analyze the result",
}

var captureDigitalCmd = &cobra.Command{
	Use:   "digital",
	Short: "Capture digital channels and report transitions, frequency and duty cycle",
	Run: func(cmd *cobra.Command, args []string) {
		svc := newService(loadConfig(), nil)

		req := tools.DigitalRequest{
			Channels:        captureChannelsFlag,
			DurationSeconds: captureDurationFlag,
			SampleRate:      captureRateFlag,
			OutputDirectory: captureOutFlag,
		}
		if cmd.Flags().Changed("threshold") {
			req.ThresholdVolts = &captureThresholdFlag
		}

		printReport(svc.CaptureAndAnalyzeDigital(context.Background(), req), captureJSONFlag)
	},
}

var captureAnalogCmd = &cobra.Command{
	Use:   "analog",
	Short: "Capture analog channels and report voltage statistics",
	Run: func(cmd *cobra.Command, args []string) {
		svc := newService(loadConfig(), nil)

		rate := captureRateFlag
		if !cmd.Flags().Changed("rate") {
			rate = tools.DefaultAnalogSampleRate
		}

		printReport(svc.CaptureAndAnalyzeAnalog(context.Background(), tools.AnalogRequest{
			Channels:        captureChannelsFlag,
			DurationSeconds: captureDurationFlag,
			SampleRate:      rate,
			OutputDirectory: captureOutFlag,
		}), captureJSONFlag)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{captureDigitalCmd, captureAnalogCmd} {
		cmd.Flags().IntSliceVarP(&captureChannelsFlag, "channels", "n", nil, "Channel indices to record")
		cmd.Flags().Float64VarP(&captureDurationFlag, "duration", "d", 1.0, "Capture duration in seconds")
		cmd.Flags().IntVarP(&captureRateFlag, "rate", "r", tools.DefaultDigitalSampleRate, "Sample rate in Hz")
		cmd.Flags().StringVarP(&captureOutFlag, "out", "o", "", "Output directory for CSVs and the capture artifact")
		cmd.Flags().BoolVarP(&captureJSONFlag, "json", "j", false, "Output in JSON format")
	}
	captureDigitalCmd.Flags().Float64VarP(&captureThresholdFlag, "threshold", "t", 0, "Digital logic-1 threshold voltage (omit for device default)")

	captureCmd.AddCommand(captureDigitalCmd)
	captureCmd.AddCommand(captureAnalogCmd)
	rootCmd.AddCommand(captureCmd)
}

// printReport renders a report as JSON or as a human-readable summary.
func printReport(report analysis.Report, jsonOutput bool) {
	if jsonOutput {
		out, err := report.JSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out)
		if report.Status != "success" {
			os.Exit(1)
		}
		return
	}

	if report.Status != "success" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", report.Message)
		os.Exit(1)
	}

	fmt.Printf("Capture complete: %gs at %d Hz, channels %v\n", report.DurationS, report.SampleRate, report.Channels)
	fmt.Printf("CSV directory: %s\n", report.CSVDirectory)
	if report.CaptureFile != nil {
		fmt.Printf("Capture file:  %s\n", *report.CaptureFile)
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	names := make([]string, 0, len(report.Analysis))
	for name := range report.Analysis {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		stats := report.Analysis[name]
		fmt.Printf("\n%s\n", name)
		switch {
		case stats.Digital != nil:
			d := stats.Digital
			fmt.Printf("  samples:     %d\n", d.SampleCount)
			fmt.Printf("  transitions: %d\n", d.TransitionCount)
			if d.EstimatedFrequencyHz != nil {
				fmt.Printf("  frequency:   %.2f Hz\n", *d.EstimatedFrequencyHz)
			}
			if d.DutyCyclePercent != nil {
				fmt.Printf("  duty cycle:  %.2f %%\n", *d.DutyCyclePercent)
			}
		case stats.Analog != nil:
			a := stats.Analog
			fmt.Printf("  samples: %d\n", a.SampleCount)
			fmt.Printf("  min:     %.6f V\n", a.MinV)
			fmt.Printf("  max:     %.6f V\n", a.MaxV)
			fmt.Printf("  mean:    %.6f V\n", a.MeanV)
			fmt.Printf("  stdev:   %.6f V\n", a.StdevV)
			fmt.Printf("  p2p:     %.6f V\n", a.PeakToPeakV)
		}
	}
}
