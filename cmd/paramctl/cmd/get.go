package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/paramwire/internal/config"
	"github.com/danmuck/paramwire/internal/node"
	"github.com/danmuck/paramwire/internal/param"
	"github.com/danmuck/paramwire/internal/transport"
	"github.com/spf13/cobra"
)

var (
	getKind    string
	getCount   int
	getTimeout time.Duration
	getAddress string
	getDevice  string
)

func init() {
	getCmd.Flags().StringVarP(&getKind, "kind", "k", "int", "Parameter kind: int, float, string, int-array, float-array, string-array")
	getCmd.Flags().IntVarP(&getCount, "count", "n", 1, "Exact element count for array kinds")
	getCmd.Flags().DurationVar(&getTimeout, "timeout", 0, "Per-request timeout (default from config)")
	getCmd.Flags().StringVar(&getAddress, "address", "", "Host address, forces the tcp transport")
	getCmd.Flags().StringVar(&getDevice, "device", "", "Serial device, forces the serial transport")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Fetch one parameter from the host",
	Long: `Connect to the host, fetch one parameter and print it.

Examples:
  paramctl get int
  paramctl get string_array --kind string-array --count 3
  paramctl get gain --kind float --device /dev/ttyUSB0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(getKind)
		if err != nil {
			return err
		}
		cfg, err := clientConfig()
		if err != nil {
			return err
		}
		t, err := openTransport(cfg.Transport)
		if err != nil {
			return err
		}
		defer t.Close()

		n, err := node.New(t, node.WithConfig(cfg.SessionConfig()))
		if err != nil {
			return err
		}
		n.InitNode()
		if !n.WaitConnected(cfg.Session.ConnectTimeout.Duration) {
			fmt.Println(errFmt("not connected"), dimFmt(fmt.Sprintf("(after %v)", cfg.Session.ConnectTimeout.Duration)))
			return fmt.Errorf("handshake with host did not complete")
		}
		defer n.Shutdown()

		count := getCount
		if !kind.IsArray() {
			count = 1
		}
		v, err := n.Fetch(args[0], kind, count)
		if err != nil {
			fmt.Println(errFmt("failed"), args[0], dimFmt(err.Error()))
			return err
		}
		if outputFormat != "text" {
			return formatOutput(valueOutput(args[0], v))
		}
		fmt.Printf("%s %s = %s\n", okFmt(kind.String()), args[0], v)
		return nil
	},
}

func clientConfig() (config.ClientConfig, error) {
	cfg := config.DefaultClientConfig()
	if configPath != "" {
		loaded, err := config.LoadClientConfig(configPath)
		if err != nil {
			return config.ClientConfig{}, err
		}
		cfg = loaded
	}
	if getAddress != "" {
		cfg.Transport.Kind = config.TransportTCP
		cfg.Transport.Address = getAddress
	}
	if getDevice != "" {
		cfg.Transport.Kind = config.TransportSerial
		cfg.Transport.Device = getDevice
	}
	if getTimeout > 0 {
		cfg.Session.ParamTimeout = config.Duration{Duration: getTimeout}
	}
	if err := config.ValidateClientConfig(cfg); err != nil {
		return config.ClientConfig{}, err
	}
	return cfg, nil
}

func openTransport(cfg config.TransportConfig) (transport.Transport, error) {
	switch cfg.Kind {
	case config.TransportSerial:
		s, err := transport.OpenSerial(transport.SerialConfig{Device: cfg.Device, Baud: cfg.Baud})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.TransportTCP:
		c, err := transport.DialTCP(cfg.Address, cfg.DialTimeout.Duration)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown transport kind: %q", cfg.Kind)
	}
}

func parseKind(raw string) (param.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "int", "int32":
		return param.KindInt32, nil
	case "float", "float32":
		return param.KindFloat32, nil
	case "string", "str":
		return param.KindString, nil
	case "int-array", "ints":
		return param.KindInt32Array, nil
	case "float-array", "floats":
		return param.KindFloat32Array, nil
	case "string-array", "strings":
		return param.KindStringArray, nil
	default:
		return param.KindInvalid, fmt.Errorf("unknown kind: %s", raw)
	}
}

type paramOutput struct {
	Name  string `json:"name" yaml:"name"`
	Kind  string `json:"kind" yaml:"kind"`
	Value any    `json:"value" yaml:"value"`
}

func valueOutput(name string, v param.Value) paramOutput {
	out := paramOutput{Name: name, Kind: v.Kind().String()}
	switch v.Kind() {
	case param.KindInt32:
		out.Value, _ = v.AsInt32()
	case param.KindFloat32:
		out.Value, _ = v.AsFloat32()
	case param.KindString:
		out.Value, _ = v.AsString()
	case param.KindInt32Array:
		out.Value, _ = v.AsInt32s()
	case param.KindFloat32Array:
		out.Value, _ = v.AsFloat32s()
	case param.KindStringArray:
		out.Value, _ = v.AsStrings()
	}
	return out
}
