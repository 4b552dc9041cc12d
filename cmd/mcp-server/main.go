// mcp-server hosts the demo MCP capabilities (calculate_sum,
// get_weather_info and the config://server resource) behind a small web
// front door.
//
// HTTP mode (default):
//
//	mcp-server --port 8000
//
// serves GET /, GET /health, GET /docs, GET /metrics and the MCP streamable
// HTTP endpoint under /mcp. Stdio mode serves the same capabilities to local
// MCP hosts:
//
//	mcp-server stdio
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmerrifield20/mcp-demo-server/internal/capability"
	"github.com/jmerrifield20/mcp-demo-server/internal/config"
	"github.com/jmerrifield20/mcp-demo-server/internal/frontdoor"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = capability.ServerVersion

var (
	configFile string
	listenHost string
	listenPort int
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "MCP demo server with an HTTP front door",
	Long: `mcp-server exposes two demo MCP tools and one resource:

  calculate_sum     add two integers
  get_weather_info  fixed demo weather for a city (default Berlin)
  config://server   server name, version and deployment environment

Without a subcommand it runs the HTTP server. Configuration comes from
mcp-server.yaml (./configs or .), environment variables (PORT, ENVIRONMENT,
MCP_PATH, ...) and flags.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE:  runServe,
}

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve the MCP capabilities over stdin/stdout",
	Long: `stdio runs the MCP server on stdin/stdout for local MCP hosts.
All logging goes to stderr so it does not interfere with the protocol.`,
	RunE: runStdio,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", capability.ServerName, version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default: mcp-server.yaml in ./configs or .)")
	rootCmd.PersistentFlags().StringVar(&listenHost, "host", "0.0.0.0", "Listen host")
	rootCmd.PersistentFlags().IntVar(&listenPort, "port", 8000, "Listen port")
	rootCmd.AddCommand(serveCmd, stdioCmd, versionCmd)
}

// setup loads configuration and builds the logger and capability registry.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, *capability.Registry, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if cmd.Flags().Changed("host") {
		cfg.Override("host", listenHost)
	}
	if cmd.Flags().Changed("port") {
		cfg.Override("port", listenPort)
	}

	logger, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create logger: %w", err)
	}
	if cfg.UsedFile != "" {
		logger.Info("config file loaded", zap.String("path", cfg.UsedFile))
	} else {
		logger.Info("no config file found, using defaults and env vars")
	}

	reg := capability.New(capability.Info{
		Name:         capability.ServerName,
		Version:      version,
		Instructions: "Demo server: calculate_sum adds integers, get_weather_info returns fixed demo weather.",
	}, logger)
	if err := capability.RegisterDemo(reg, cfg.Environment); err != nil {
		return nil, nil, nil, fmt.Errorf("register capabilities: %w", err)
	}
	reg.SetCallObserver(frontdoor.RecordCapabilityCall)

	return cfg, logger, reg, nil
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newHTTPHandler builds the front door with the registry mounted at
// cfg.MCPPath.
func newHTTPHandler(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg *capability.Registry) http.Handler {
	fd := frontdoor.New(ctx, frontdoor.Options{
		CORSOrigins:  cfg.CORSOrigins,
		RateLimitRPS: cfg.RateLimitRPS,
	}, logger)
	mcpHandler := frontdoor.NewMCPHandler(reg.Server(), frontdoor.MCPOptions{
		Stateless:    cfg.MCPStateless,
		JSONResponse: cfg.MCPJSONResponse,
	})
	fd.MountCapabilities(cfg.MCPPath, mcpHandler, reg)
	return fd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, reg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newHTTPHandler(ctx, cfg, logger, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP listening",
			zap.String("addr", cfg.Addr()),
			zap.String("mcp_path", cfg.MCPPath),
			zap.Bool("stateless", cfg.MCPStateless),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP listen: %w", err)
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	logger.Info("shutting down mcp-server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
		return err
	}
	logger.Info("mcp-server stopped")
	return nil
}

func runStdio(cmd *cobra.Command, _ []string) error {
	_, logger, reg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP stdio server ready", zap.Int("tools", len(reg.Tools())), zap.Int("resources", len(reg.Resources())))
	if err := reg.Server().Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}
