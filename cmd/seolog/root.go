// Package main provides the entry point for the seolog CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for seolog.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seolog",
		Short: "SEO-focused access log analyzer",
		Long: `seolog analyzes web server access logs from an SEO perspective.

It classifies traffic into search engine crawlers and human visitors,
measures how crawlers spend their crawl budget, detects bots that fake
a crawler user-agent, and flags crawl traps such as faceted navigation
and calendar pages that waste crawl budget.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewCompareCmd())
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
