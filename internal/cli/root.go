package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/example/stepmigrate/internal/bootstrap"
	"github.com/example/stepmigrate/internal/config"
	"github.com/example/stepmigrate/internal/logging"
	"github.com/example/stepmigrate/internal/migration"
)

// DefaultOptions carry the state shared by every sub-command.
type DefaultOptions struct {
	*IOStreams

	Config   config.Config
	Logger   *slog.Logger
	Delegate migration.Delegate

	now        func() time.Time
	configPath string
	flags      *pflag.FlagSet

	// flag values, applied over the loaded config only when set
	migrationsDir, store, versionFile, storeDSN string
	lockFile, targetDSN, logLevel, logFormat    string
}

var _ BaseOptions = &DefaultOptions{}

// Option configures the root command.
type Option func(*DefaultOptions)

// WithDelegate installs environment overrides.
func WithDelegate(d migration.Delegate) Option {
	return func(o *DefaultOptions) { o.Delegate = d }
}

// WithClock sets the time source used to stamp new migrations.
func WithClock(now func() time.Time) Option {
	return func(o *DefaultOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// Complete loads the configuration and applies flag overrides. Validation
// waits for Validate so flags can fill values the file left out.
func (o *DefaultOptions) Complete() error {
	cfg, err := config.LoadUnvalidated(o.configPath)
	if err != nil {
		return err
	}

	o.applyFlags(&cfg)
	o.Config = cfg
	return nil
}

// Validate validates the final configuration and builds the logger.
func (o *DefaultOptions) Validate() error {
	if err := o.Config.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(o.Config.Log.Level)
	if err != nil {
		return err
	}
	logger, err := logging.New(o.ErrOut, level, o.Config.Log.Format)
	if err != nil {
		return err
	}
	o.Logger = logger.With("service", "stepmigrate")
	return nil
}

func (o *DefaultOptions) applyFlags(cfg *config.Config) {
	if o.flags == nil {
		return
	}

	overrides := []struct {
		flag   string
		value  string
		target *string
	}{
		{"migrations-dir", o.migrationsDir, &cfg.MigrationsDir},
		{"store", o.store, &cfg.Store.Kind},
		{"version-file", o.versionFile, &cfg.Store.VersionFile},
		{"store-dsn", o.storeDSN, &cfg.Store.DSN},
		{"lock-file", o.lockFile, &cfg.Store.LockFile},
		{"target-dsn", o.targetDSN, &cfg.Target.DSN},
		{"log-level", o.logLevel, &cfg.Log.Level},
		{"log-format", o.logFormat, &cfg.Log.Format},
	}
	for _, ov := range overrides {
		if f := o.flags.Lookup(ov.flag); f != nil && f.Changed {
			*ov.target = ov.value
		}
	}
}

// runtime builds the migration runtime for one command. The caller closes it.
func (o *DefaultOptions) runtime(ctx context.Context) (*bootstrap.Runtime, error) {
	return bootstrap.New(ctx, o.Config, o.Delegate, o.Logger)
}

// loggingContext attaches the command logger to ctx.
func (o *DefaultOptions) loggingContext(ctx context.Context) context.Context {
	return logging.ContextWithLogger(ctx, o.Logger)
}

// NewDefaultCommand creates the `stepmigrate` command with its sub-commands.
func NewDefaultCommand(iostreams *IOStreams, args []string, opts ...Option) *cobra.Command {
	o := &DefaultOptions{
		IOStreams: iostreams,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	cmd := &cobra.Command{
		Use:           "stepmigrate",
		Short:         "Versioned migration runner",
		Long:          "stepmigrate moves a system between versions by applying or reverting ordered migration scripts one step at a time.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			o.flags = cmd.Flags()
			return Check(func() error {
				if err := o.Complete(); err != nil {
					return err
				}
				return o.Validate()
			}())
		},
	}

	cmd.SetArgs(args)
	cmd.SetOut(iostreams.Out)
	cmd.SetErr(iostreams.ErrOut)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "path to the config file (default: $STEPMIGRATE_CONFIG or ./stepmigrate.toml)")
	flags.StringVarP(&o.migrationsDir, "migrations-dir", "d", "", "directory holding the migration scripts")
	flags.StringVar(&o.store, "store", "", "version store: file or sqlite")
	flags.StringVar(&o.versionFile, "version-file", "", "version file used by the file store")
	flags.StringVar(&o.storeDSN, "store-dsn", "", "SQLite database used by the sqlite store")
	flags.StringVar(&o.lockFile, "lock-file", "", "lock file guarding migration runs")
	flags.StringVar(&o.targetDSN, "target-dsn", "", "SQLite database the migration scripts run against")
	flags.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&o.logFormat, "log-format", "", "log format: auto, json or text")

	cmd.AddCommand(newMigrateCommand(o))
	cmd.AddCommand(newCleanCommand(o))
	cmd.AddCommand(newCreateCommand(o))
	cmd.AddCommand(newStatusCommand(o))
	cmd.AddCommand(newConfigCommand(o))

	return cmd
}
