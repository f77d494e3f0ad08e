package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hbarrio/logic2-toolkit/lib/config"
	"github.com/hbarrio/logic2-toolkit/lib/logic2"
	"github.com/hbarrio/logic2-toolkit/lib/tools"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP tool server on stdio",
	Long: `Run the toolkit as an MCP server over stdio so agent clients can call
the capture tools (capture_and_analyze_digital, capture_and_analyze_analog,
device listing, offline analysis).`,
	Run: func(cmd *cobra.Command, args []string) {
		executeServe(loadConfig())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func executeServe(cfg *config.Config) {
	svc := newService(cfg, nil)

	srv := server.NewMCPServer("logic2-toolkit", version)
	tools.Register(srv, svc, reconnectFunc(cfg))

	fmt.Fprintf(os.Stderr, "Serving MCP tools on stdio (endpoint %s:%d)\n", cfg.Endpoint.Host, cfg.Endpoint.Port)
	if err := server.ServeStdio(srv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// reconnectFunc verifies connectivity to the endpoint, switching the
// configured port when the client asks for a different one.
func reconnectFunc(cfg *config.Config) tools.ReconnectFunc {
	return func(ctx context.Context, port int) error {
		if port == 0 {
			port = cfg.Endpoint.Port
		}

		client, err := logic2.ConnectWithRetry(cfg.Endpoint.Host, port, cfg.Endpoint.Timeout(), retryPolicy(cfg))
		if err != nil {
			return err
		}
		defer client.Close()

		if _, err := client.GetConnectedDevices(); err != nil {
			return err
		}

		cfg.Endpoint.Port = port
		return nil
	}
}
