package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"restoctl/internal/journal"
	"restoctl/internal/registry"
	"restoctl/internal/settings"
)

type cliOptions struct {
	configDir  string
	jsonOutput bool
	debug      bool
	logger     *zap.Logger

	// populated by setupApp before any subcommand runs
	dir    string
	store  *settings.Store
	params settings.Parameters
	reg    *registry.Registry
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		logger: zap.NewNop(),
	}

	root := &cobra.Command{
		Use:           "restoctl",
		Short:         "Manage resto catalog servers from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			applyRootFlagBindings(cmd, &opts)
			return setupApp(&opts)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "configuration directory (default: platform user config dir)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServerCmd(&opts),
		newCollectionsCmd(&opts),
		newDescribeCmd(&opts),
		newLoginCmd(&opts),
		newParamCmd(&opts),
		newJournalCmd(&opts),
	)

	return root
}

func applyRootFlagBindings(cmd *cobra.Command, opts *cliOptions) {
	flags := cmd.Flags()
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "config-dir":
			opts.configDir, _ = flags.GetString("config-dir")
		case "json":
			opts.jsonOutput, _ = flags.GetBool("json")
		case "debug":
			opts.debug, _ = flags.GetBool("debug")
		}
	})
}

// setupApp loads the sticky parameters, replays the persisted registry
// through migration against the built-in predefined set, and leaves a ready
// registry in opts. Every subcommand runs after this.
func setupApp(opts *cliOptions) error {
	dir, err := settings.ConfigDir(opts.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	opts.dir = dir

	params, err := settings.LoadParameters(dir)
	if err != nil {
		return err
	}
	opts.params = params

	logger, err := newLogger(params.Verbosity, opts.debug)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	opts.logger = logger

	opts.store = settings.NewStore(dir, logger.Named("settings"))
	snapshot, err := opts.store.LoadRegistry()
	if err != nil {
		return err
	}
	wellKnown, err := registry.WellKnownServers()
	if err != nil {
		return err
	}
	reg, _, err := registry.Migrate(snapshot, wellKnown, opts.store, logger)
	if err != nil {
		return err
	}
	opts.reg = reg
	return nil
}

func newLogger(verbosity string, debug bool) (*zap.Logger, error) {
	if verbosity == settings.VerbosityQuiet && !debug {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if debug || verbosity == settings.VerbosityDebug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

// openJournal opens the interaction journal next to the registry file.
// Callers must Close it.
func openJournal(opts *cliOptions) (*journal.Journal, error) {
	return journal.Open(filepath.Join(opts.dir, journal.FileName))
}

// resolveServerName picks the server to talk to: the positional argument
// when given, otherwise the sticky server parameter.
func resolveServerName(opts *cliOptions, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if opts.params.Server != "" {
		return opts.params.Server, nil
	}
	return "", exitWith(2, "no server given and no server parameter set (restoctl param set server <name>)")
}
