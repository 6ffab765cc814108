// snowctl — command-line client for ServiceNow incidents and users.
//
// # Usage
//
//	snowctl [command] [flags]
//
//	Commands:
//	  incident get      Look up incidents by number, description, or requester
//	  incident create   Create an incident (flags or --file for bulk)
//	  incident update   Partially update an incident by number
//	  user get          Look up users by account, email, name, or sys_id
//	  version           Print version information
//
// Configuration comes from a YAML file (--config, default "config.yaml");
// credentials are usually supplied via ${ENV} references inside it. When
// --metrics-addr is set, a /healthz /readyz /metrics server runs for the
// duration of the command.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hematic/servicenow-client/internal/config"
	"github.com/hematic/servicenow-client/internal/observability"
	"github.com/hematic/servicenow-client/internal/servicenow"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	configPath  string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:           "snowctl",
	Short:         "ServiceNow incident and user client",
	Long:          "snowctl looks up, creates, and updates ServiceNow incident records and resolves users by account name, email, or full name.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("snowctl %s (commit: %s, built: %s)\n", version, commit, buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to configuration YAML file")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve /healthz, /readyz, /metrics on this address while the command runs")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(incidentCmd)
	rootCmd.AddCommand(userCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// clients bundles everything a command needs.
type clients struct {
	incidents *servicenow.IncidentClient
	users     *servicenow.UserClient
	logger    *slog.Logger
	close     func()
}

// runCommand loads config, wires the client stack, optionally starts the
// observability server, and runs fn under a signal-cancelled context.
func runCommand(fn func(ctx context.Context, c *clients) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration from %s: %w", configPath, err)
	}

	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auth, err := servicenow.NewAuthenticator(ctx, cfg.ServiceNow, logger)
	if err != nil {
		return fmt.Errorf("initializing authenticator: %w", err)
	}
	defer auth.Close()

	var clientOpts []servicenow.ClientOption
	if cfg.ServiceNow.RateLimitRPS > 0 {
		clientOpts = append(clientOpts, servicenow.WithRateLimiter(cfg.ServiceNow.RateLimitRPS))
	}
	api := servicenow.NewClient(cfg.ServiceNow, auth, logger, clientOpts...)
	defer api.Close()

	users := servicenow.NewUserClient(api, logger)
	c := &clients{
		incidents: servicenow.NewIncidentClient(api, users, nil, logger),
		users:     users,
		logger:    logger,
	}

	addr := metricsAddr
	if addr == "" {
		addr = cfg.Observability.Addr
	}
	if addr == "" {
		return fn(ctx, c)
	}

	// Run the command and the observability server together; the server
	// stops when the command finishes or a signal arrives.
	g, gCtx := errgroup.WithContext(ctx)
	srvCtx, srvCancel := context.WithCancel(gCtx)
	defer srvCancel()

	obsSrv := observability.NewServer(addr, logger)
	g.Go(func() error {
		return obsSrv.Start(srvCtx)
	})
	obsSrv.SetReady(true)

	g.Go(func() error {
		defer srvCancel()
		defer obsSrv.SetReady(false)
		return fn(gCtx, c)
	})

	return g.Wait()
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
