package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hbarrio/logic2-toolkit/lib/config"
	"github.com/hbarrio/logic2-toolkit/lib/logic2"
	"github.com/hbarrio/logic2-toolkit/lib/tools"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	// Global flags
	hostFlag   string
	portFlag   int
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:   "logic2-toolkit",
	Short: "Logic 2 Toolkit - logic analyzer capture automation",
	Long: `Logic 2 Toolkit drives Saleae Logic family analyzers through the
desktop application's automation endpoint. You can run one-shot
capture-and-analyze operations, list devices, re-analyze exported CSVs,
serve the tools over MCP for agent clients, or use the web UI.`,
}

func init() {
	// Disable the default help command (use --help flag instead)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Global flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Automation endpoint host (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&portFlag, "port", "p", 0, "Automation endpoint port (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "logic2-toolkit.yaml", "Config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() *config.Config {
	cfg, err := config.Load(configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if hostFlag != "" {
		cfg.Endpoint.Host = hostFlag
	}
	if portFlag != 0 {
		cfg.Endpoint.Port = portFlag
	}

	return cfg
}

func retryPolicy(cfg *config.Config) logic2.RetryPolicy {
	return logic2.RetryPolicy{
		Attempts: cfg.Launch.Attempts,
		Delay:    cfg.Launch.Delay(),
		Launch:   !cfg.Launch.Disabled,
	}
}

// newService wires a capture service to the configured endpoint. Each
// operation dials its own connection and owns it for the request.
func newService(cfg *config.Config, metrics *tools.Metrics) *tools.Service {
	dial := func(ctx context.Context) (tools.Automation, error) {
		client, err := logic2.ConnectWithRetry(cfg.Endpoint.Host, cfg.Endpoint.Port, cfg.Endpoint.Timeout(), retryPolicy(cfg))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	return tools.NewService(dial, cfg.Output.Directory, metrics)
}
