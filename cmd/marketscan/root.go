// Package main provides the entry point for the marketscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for marketscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marketscan",
		Short: "Keyword-driven marketplace product crawler",
		Long: `Marketscan crawls marketplace search results for given keywords and
extracts structured product records (title, price, rating, reviews,
features, images).

Crawling is polite by default: requests are paced with an adaptive
delay, responses are cached locally, and transient failures are retried
with backoff.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
