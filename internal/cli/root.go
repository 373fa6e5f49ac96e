package cli

import (
	"context"
	"os"

	"github.com/goliatone/go-metacache/pkg/di"
	"github.com/spf13/cobra"
)

// SecretEnv names the environment variable read when --secret is not given.
const SecretEnv = "METACACHE_SECRET"

// DefaultDSN is the sqlite file used when neither a config file nor --dsn
// names a store.
const DefaultDSN = "metacache.db"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DSN        string
	Secret     string
	Verbose    bool
}

// NewRootCommand creates the root command for metactl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "metactl",
		Short:         "Inspect and edit project connection metadata",
		Long:          "metactl manages the connections and models of projects through the cached metadata repositories.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "metadata store DSN, overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.Secret, "secret", "", "secret sealing connection configs (default $"+SecretEnv+")")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(NewConnectionsCommand(opts))
	cmd.AddCommand(NewModelsCommand(opts))

	return cmd
}

// config resolves the container configuration from the flags.
func (o *RootOptions) config() (di.Config, error) {
	cfg := di.DefaultConfig()
	cfg.Store = di.StoreConfig{Driver: di.DriverSQLite, DSN: DefaultDSN}
	cfg.Log.Level = "warn"

	if o.ConfigPath != "" {
		var err error
		if cfg, err = di.LoadConfig(o.ConfigPath); err != nil {
			return cfg, err
		}
	}

	if o.DSN != "" {
		cfg.Store.DSN = o.DSN
		if cfg.Store.Driver == di.DriverMemory {
			cfg.Store.Driver = di.DriverSQLite
		}
	}

	switch {
	case o.Secret != "":
		cfg.Secret = o.Secret
	case cfg.Secret == "":
		cfg.Secret = os.Getenv(SecretEnv)
	}

	if o.Verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	return cfg, nil
}

// withContainer builds a container for one command invocation.
func withContainer(ctx context.Context, opts *RootOptions, fn func(*di.Container) error) error {
	cfg, err := opts.config()
	if err != nil {
		return WrapExitError(ExitUsage, "load config", err)
	}

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitUsage, "build container", err)
	}
	defer container.Close()

	return fn(container)
}
