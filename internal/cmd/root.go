// Package cmd is the authflow command tree.
package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/authflow/internal/config"
	"github.com/felixgeelhaar/authflow/internal/log"
)

// globalFlags are the persistent flags shared by every command. A flag
// overrides the config file and environment only when it was set.
type globalFlags struct {
	configPath   string
	apiURL       string
	storeBackend string
	storePath    string
	logLevel     string
	logFormat    string
}

// newRootCmd builds the full command tree around a fresh app.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	var flags globalFlags

	root := &cobra.Command{
		Use:   "authflow",
		Short: "Token session client for the authflow API",
		Long: `authflow signs up, logs in and keeps a bearer-token session for the
authflow API. The session survives restarts: it is stored under
~/.authflow and restored optimistically on the next run, then confirmed
with "authflow status --validate".

Configuration is read from ~/.authflow/config.yaml, then AUTHFLOW_*
environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			a.configure(cfg, cmd.ErrOrStderr())
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default $HOME/.authflow/config.yaml)")
	pf.StringVar(&flags.apiURL, "api-url", "", "base URL of the API (default "+config.Default().APIURL+")")
	pf.StringVar(&flags.storeBackend, "store", "", "session store backend: memory, file or sqlite")
	pf.StringVar(&flags.storePath, "store-path", "", "session file or database path")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		newSignupCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newWatchCmd(a),
		newProfileCmd(a),
		newHelloCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root, a
}

// ExecuteContext runs the root command with ctx, which commands use for
// cancellation.
func ExecuteContext(ctx context.Context) error {
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// run executes args and releases the session store whether or not the
// command succeeded.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}

func loadConfig(cmd *cobra.Command, flags globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("api-url") {
		cfg.APIURL = flags.apiURL
	}
	if changed("store") {
		cfg.Store.Backend = flags.storeBackend
	}
	if changed("store-path") {
		cfg.Store.Path = flags.storePath
	}
	if changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = flags.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config, base log.Config) *log.Logger {
	lc := cfg.LoggerConfig()
	lc.Output = base.Output
	lc.Component = base.Component
	lc.AddSource = base.AddSource
	return log.New(lc)
}
