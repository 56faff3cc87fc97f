// Package cmd implements the paramctl CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danmuck/paramwire/internal/observability"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	// Version is set at build time
	Version = "0.1.0"

	configPath   string
	outputFormat string

	okFmt   = color.New(color.FgGreen).SprintFunc()
	errFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
	infoFmt = color.New(color.FgYellow).SprintFunc()
	dimFmt  = color.New(color.Faint).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "paramctl",
	Short: "Fetch typed parameters from a paramwire host",
	Long: `paramctl talks the paramwire protocol over TCP or a serial line.

It can fetch a single parameter from a host, serve a params file as a
reference host, and write starter config files.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.InitLogger("paramctl")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (TOML or YAML)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func formatOutput(data any) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", outputFormat)
	}
}
