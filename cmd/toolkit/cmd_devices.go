package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List analyzers visible to the automation endpoint",
	Run: func(cmd *cobra.Command, args []string) {
		executeDevices()
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func executeDevices() {
	svc := newService(loadConfig(), nil)

	devices, err := svc.Devices(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing devices: %v\n", err)
		os.Exit(1)
	}

	if len(devices) == 0 {
		fmt.Println("No devices connected")
		return
	}

	// Print header
	fmt.Printf("%-6s | %-20s | %-16s | %-12s | %s\n", "Index", "Name", "Type", "ID", "Active")
	fmt.Println("-------+----------------------+------------------+--------------+-------")

	for _, d := range devices {
		fmt.Printf("%-6d | %-20s | %-16s | %-12s | %v\n", d.Index, d.Name, d.Type, d.MaskedID(), d.Active)
	}

	fmt.Printf("\nTotal devices: %d\n", len(devices))
}
