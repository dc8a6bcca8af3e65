package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

//go:embed templates/seolog.yaml
var profileTemplate embed.FS

// profileFileName is the default profile file name.
const profileFileName = ".seolog"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new seolog profile file",
		Long: `Initialize creates a new .seolog profile file in the current directory.

The generated file includes:
- Commented examples for custom crawler signatures
- Bot verification settings (DNS and IP-range modes)
- URL normalization rules for crawl trap detection
- Documentation for all available options

Examples:
  # Create .seolog in current directory
  seolog init

  # Create profile file at a specific path
  seolog init -o myprofile.yaml

  # Force overwrite existing file
  seolog init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", profileFileName,
		"Output file path for the profile")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing profile file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("profile file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := profileTemplate.ReadFile("templates/seolog.yaml")
	if err != nil {
		return fmt.Errorf("failed to read profile template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write profile file
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}

	fmt.Printf("Created profile file: %s\n", outputPath)
	fmt.Println("\nEdit this file to configure site-specific settings such as:")
	fmt.Println("  - Custom crawler signatures")
	fmt.Println("  - Bot verification (DNS or published IP ranges)")
	fmt.Println("  - URL normalization rules for crawl trap detection")

	return nil
}
