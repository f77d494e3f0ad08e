package main

import (
	"github.com/spf13/cobra"
)

var analyzeJSONFlag bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <directory>",
	Short: "Re-run the statistical reduction over an export directory",
	Long: `Analyze previously exported channel CSVs without touching the device.
Files named digital_channel_<n>.csv get the digital reduction (transitions,
frequency, duty cycle); analog_channel_<n>.csv files get voltage statistics.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := newService(loadConfig(), nil)
		printReport(svc.AnalyzeDirectory(args[0]), analyzeJSONFlag)
	},
}

func init() {
	analyzeCmd.Flags().BoolVarP(&analyzeJSONFlag, "json", "j", false, "Output in JSON format")
	rootCmd.AddCommand(analyzeCmd)
}
