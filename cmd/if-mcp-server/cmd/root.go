// Package cmd provides the CLI commands for the InsightFinder MCP
// server.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/insightfinder/mcp-server-go/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "if-mcp-server",
	Short: "InsightFinder MCP Server - HTTP/SSE tool-invocation transport",
	Long: `if-mcp-server exposes InsightFinder observability tools to MCP
clients over HTTP and Server-Sent Events.

Each request authenticates independently (API key, bearer token, or
basic auth), passes an IP whitelist and a sliding-window rate limit,
and carries its own InsightFinder backend credentials in headers, so
one deployment serves many backend accounts without shared sessions.

Quick start:
  1. Create a config file: if-mcp-server.yaml
  2. Run: if-mcp-server serve

Configuration:
  Config is loaded from if-mcp-server.yaml in the current directory,
  $HOME/.if-mcp-server/, or /etc/if-mcp-server/.

  Environment variables can override config values with the IF_MCP_ prefix.
  Example: IF_MCP_SERVER_HTTP_ADDR=:9000

Commands:
  serve        Start the HTTP server
  hash-secret  Hash a credential for use in config
  version      Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./if-mcp-server.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
