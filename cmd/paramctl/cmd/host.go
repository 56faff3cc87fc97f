package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/paramwire/internal/config"
	logs "github.com/danmuck/paramwire/internal/logging"
	"github.com/danmuck/paramwire/internal/observability"
	"github.com/danmuck/paramwire/internal/paramhost"
	"github.com/danmuck/paramwire/internal/protocol/frame"
	"github.com/danmuck/paramwire/internal/transport"
	"github.com/spf13/cobra"
)

var (
	hostListen  string
	hostParams  string
	hostMetrics string
)

func init() {
	hostCmd.Flags().StringVar(&hostListen, "listen", "", "Listen address (default :11411)")
	hostCmd.Flags().StringVar(&hostParams, "params", "", "Params file (TOML)")
	hostCmd.Flags().StringVar(&hostMetrics, "metrics", "", "Serve Prometheus metrics on this address")
	rootCmd.AddCommand(hostCmd)
}

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Serve a params file as a reference host over TCP",
	Long: `Serve parameters to one client at a time over TCP.

Examples:
  paramctl host --params params.toml
  paramctl host --listen :12000 --params params.toml --metrics :9102`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := hostConfig()
		if err != nil {
			return err
		}
		store := paramhost.NewStore()
		if cfg.ParamsFile != "" {
			if store, err = paramhost.LoadStore(cfg.ParamsFile); err != nil {
				return err
			}
		} else {
			fmt.Println(infoFmt("no params file, serving an empty store"))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Metrics != "" {
			go serveMetrics(cfg.Metrics)
		}

		ln, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Listen, err)
		}
		go func() {
			<-ctx.Done()
			_ = ln.Close()
		}()
		fmt.Printf("%s %s %s\n", okFmt("serving"), ln.Addr(), dimFmt(fmt.Sprintf("(%d params)", store.Len())))

		limits := frame.Limits{MaxPayloadBytes: cfg.MaxPayload}
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			logs.Infof("paramctl.host client=%s", conn.RemoteAddr())
			h := paramhost.NewHost(transport.NewTCP(conn), store, paramhost.WithLimits(limits), paramhost.WithName("paramctl-host"))
			err = h.Run(ctx, time.Millisecond)
			_ = conn.Close()
			if ctx.Err() != nil {
				return nil
			}
			logs.Infof("paramctl.host client=%s done err=%v answered=%d", conn.RemoteAddr(), err, h.Answered())
		}
	},
}

func hostConfig() (config.HostConfig, error) {
	cfg := config.DefaultHostConfig()
	if configPath != "" {
		loaded, err := config.LoadHostConfig(configPath)
		if err != nil {
			return config.HostConfig{}, err
		}
		cfg = loaded
	}
	if hostListen != "" {
		cfg.Listen = hostListen
	}
	if hostParams != "" {
		cfg.ParamsFile = hostParams
	}
	if hostMetrics != "" {
		cfg.Metrics = hostMetrics
	}
	return cfg, config.ValidateHostConfig(cfg)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logs.Errf("paramctl.host metrics err=%v", err)
	}
}
