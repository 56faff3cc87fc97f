package cmd

import (
	"fmt"

	"github.com/danmuck/paramwire/internal/transport"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(portsCmd)
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := transport.SerialPorts()
		if err != nil {
			return err
		}
		if outputFormat != "text" {
			return formatOutput(ports)
		}
		if len(ports) == 0 {
			fmt.Println(dimFmt("no serial ports found"))
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}
