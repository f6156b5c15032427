// Package cli provides geoql's command-line interface: a cobra root command
// with subcommands to run a DSL query against a configured storage backend,
// dump a query's parsed statement tree, drive an interactive query shell,
// serve the HTTP front end, print generated documentation, and commit a
// new area-derivation snapshot generation.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoql-project/geoql/internal/cli/commands"
	"github.com/geoql-project/geoql/internal/config"
)

// Version information, set at build time via -ldflags.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

type configKey struct{}
type loggerKey struct{}

var (
	cfgDir string
	cfg    *config.Config
)

// NewRootCmd builds the root command and its full subcommand tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "geoql",
		Short:   "Query a static map-data snapshot with the geoql query language",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			var err error
			cfg, err = config.Load(cfgDir, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgDir, "project-dir", ".", "directory to search for geoql.yaml")
	root.PersistentFlags().String("backend", "", "storage backend (memory|duckdb|postgres)")
	root.PersistentFlags().String("backend-dsn", "", "backend connection string/path")
	root.PersistentFlags().Int("element-limit", 0, "maximum elements a query may account for")
	root.PersistentFlags().Int("max-timeout", 0, "maximum query wall-clock budget, in seconds")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose diagnostics")
	root.PersistentFlags().StringP("format", "f", "xml", "output format: xml|json|csv|html")

	root.AddCommand(commands.NewVersionCommand(Version))
	root.AddCommand(commands.NewQueryCommand(GetConfig))
	root.AddCommand(commands.NewParseCommand())
	root.AddCommand(commands.NewReplCommand(GetConfig))
	root.AddCommand(commands.NewServeCommand(GetConfig, GetLogger))
	root.AddCommand(commands.NewDocsCommand())
	root.AddCommand(commands.NewMakeAreaCommand(GetConfig))
	root.AddCommand(NewCompletionCommand())

	return root
}

// Execute runs the root command with os.Args.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "geoql: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the loaded configuration from a command's context,
// falling back to built-in defaults if none was loaded (e.g. in a test that
// constructs a command directly).
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	c := &config.Config{}
	c.ApplyDefaults()
	return c
}

// GetLogger retrieves the structured logger from a command's context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// NewCompletionCommand generates shell completion scripts.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 "Generate shell completion scripts",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}
