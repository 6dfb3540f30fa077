package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/geopm-project/platformio-go/internal/batchserver"
	"github.com/geopm-project/platformio-go/internal/config"
	"github.com/geopm-project/platformio-go/internal/mcpsurface"
	"github.com/geopm-project/platformio-go/pkg/logging"
)

var (
	serveTransport string
	serveHost      string
	servePort      int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the telemetry/control daemon, exposing the orchestrator over MCP",
	Long: `Start the long-running daemon. Every public orchestrator operation is
exposed as an MCP tool so agents, controllers, and policy engines can
push signals, sample, adjust, and save/restore over the Model Context
Protocol.

Transports:
  stdio            MCP over stdin/stdout (for AI-assistant embeddings)
  streamable-http  MCP over HTTP; the listener comes from systemd socket
                   activation when available, otherwise --host/--port

When a plugin search path is configured, the daemon also watches it and
registers providers from manifests as they appear.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveTransport != "" {
		cfg.MCP.Transport = config.Transport(serveTransport)
	}
	if serveHost != "" {
		cfg.MCP.Host = serveHost
	}
	if servePort != 0 {
		cfg.MCP.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, loader, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	if loader != nil {
		if err := loader.Watch(); err != nil {
			return fmt.Errorf("serve: plugin watch: %w", err)
		}
		defer loader.Stop()
	}

	surface := mcpsurface.New(orch, rootCmd.Version)

	switch cfg.MCP.Transport {
	case config.TransportStreamableHTTP:
		addr := fmt.Sprintf("%s:%d", cfg.MCP.Host, cfg.MCP.Port)
		l, err := batchserver.Listen(addr)
		if err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			l.Close()
		}()
		if err := surface.ServeListener(l); err != nil && ctx.Err() == nil {
			return err
		}
	default:
		if err := surface.ServeStdio(ctx); err != nil && ctx.Err() == nil {
			return err
		}
	}

	logging.Info("Serve", "daemon shut down")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "MCP transport: stdio or streamable-http")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind host for streamable-http")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port for streamable-http")
}
