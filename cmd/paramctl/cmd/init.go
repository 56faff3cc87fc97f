package cmd

import (
	"fmt"

	"github.com/danmuck/paramwire/internal/config"
	"github.com/spf13/cobra"
)

var (
	initKind  string
	initPath  string
	initForce bool
)

func init() {
	initCmd.Flags().StringVar(&initKind, "kind", "client", "Template kind: client, client-yaml, host, params")
	initCmd.Flags().StringVar(&initPath, "path", "", "Output path (default <kind>.toml)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config or params file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := initPath
		if path == "" {
			path = defaultTemplatePath(initKind)
		}
		if err := config.WriteTemplate(path, initKind, initForce); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", okFmt("wrote"), path)
		return nil
	},
}

func defaultTemplatePath(kind string) string {
	if kind == "client-yaml" {
		return "client.yaml"
	}
	return kind + ".toml"
}
