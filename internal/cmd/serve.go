package cmd

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/authflow/internal/config"
	"github.com/felixgeelhaar/authflow/internal/log"
	"github.com/felixgeelhaar/authflow/internal/metrics"
	"github.com/felixgeelhaar/authflow/internal/server"
	"github.com/felixgeelhaar/authflow/internal/version"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		address         string
		database        string
		tokenTTL        time.Duration
		shutdownTimeout time.Duration
		noMetrics       bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo authentication API",
		Long: `Run the demo API the client talks to: signup, login, token validation,
profile and hello under /api, plus /health/live, /health/ready and
Prometheus metrics on /metrics.

Users are kept in memory unless --database names a SQLite file. Tokens are
HS256 JWTs signed with the configured secret (JWT_SECRET_KEY or
AUTHFLOW_SERVER_JWT_SECRET).

The server shuts down gracefully on SIGINT or SIGTERM.

Example:
  # Serve on the default :3001 with in-memory users
  authflow serve

  # Persist users
  authflow serve --database ~/.authflow/users.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := a.cfg.Server
			if cmd.Flags().Changed("address") {
				cfg.Address = address
			}
			if cmd.Flags().Changed("database") {
				cfg.Database = database
			}
			if cmd.Flags().Changed("token-ttl") {
				cfg.TokenTTL = tokenTTL
			}

			base := log.ServerConfig()
			base.Output = log.NewOutput(cmd.ErrOrStderr())
			if cmd.Flags().Changed("log-level") {
				base.Level = log.ParseLevel(a.cfg.Log.Level)
			}
			if cmd.Flags().Changed("log-format") {
				base.Format = log.ParseFormat(a.cfg.Log.Format)
			}
			logger := log.New(base)

			if cfg.JWTSecret == config.DefaultJWTSecret {
				logger.Warn("using the default JWT secret; set JWT_SECRET_KEY outside development")
			}

			users, closeUsers, err := openUsers(cmd, cfg.Database)
			if err != nil {
				return err
			}
			defer closeUsers()

			opts := []server.Option{server.WithLogger(logger)}
			if !noMetrics {
				reg, m := metrics.NewRegistry()
				opts = append(opts, server.WithMetrics(m, reg))
			}

			info := version.GetInfo()
			srv := server.New(users, server.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), server.Config{
				Address:         cfg.Address,
				Version:         info.Version,
				ShutdownTimeout: shutdownTimeout,
			}, opts...)

			l, err := net.Listen("tcp", srv.Addr())
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "authflow API %s\n", info.Version)
			fmt.Fprintf(out, "Listening on: http://%s/api\n", l.Addr())
			fmt.Fprintf(out, "Health: http://%s/health/ready\n", l.Addr())
			if !noMetrics {
				fmt.Fprintf(out, "Metrics: http://%s/metrics\n", l.Addr())
			}
			fmt.Fprintf(out, "Press Ctrl+C to stop the server\n")

			if err := srv.Run(ctx, l); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			fmt.Fprintln(out, "Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", server.DefaultAddress, "address to listen on")
	cmd.Flags().StringVar(&database, "database", "", "SQLite file for users (default in-memory)")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", server.DefaultTokenTTL, "lifetime of issued tokens")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "maximum time to wait for connections to drain during shutdown")
	return cmd
}

func openUsers(cmd *cobra.Command, path string) (server.UserRepository, func(), error) {
	if path == "" {
		return server.NewMemoryUsers(), func() {}, nil
	}
	users, err := server.OpenSQLiteUsers(cmd.Context(), path)
	if err != nil {
		return nil, nil, err
	}
	return users, func() { _ = users.Close() }, nil
}
