// Package main implements perceptd, the affect and semantic fusion daemon,
// and its one-shot CLI commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath overrides ~/.config/perceptd/config.yaml.
	configPath string
	// serverURL is the base URL for the perceptd HTTP server.
	serverURL string

	// Build information, set via -ldflags.
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "perceptd",
	Short: "Affect and semantic fusion engine",
	Long: `perceptd analyzes utterances for sentiment, emotion, mood and question
intent, fuses the result with named entities and semantic roles, and keeps
per-speaker perception records in working and long-term memory.

Run "perceptd serve" for the HTTP API or "perceptd mcp" for an MCP stdio
server. The remaining commands are one-shot helpers.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/perceptd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9191", "perceptd server URL")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		printVersion(cmd)
	},
}

func printVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "perceptd by Fyrsmith Labs\n")
	fmt.Fprintf(out, "Version:    %s\n", version)
	fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
	fmt.Fprintf(out, "Build Date: %s\n", buildDate)
}
