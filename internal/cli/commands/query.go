package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoql-project/geoql/internal/config"
	"github.com/geoql-project/geoql/pkg/output"
	"github.com/geoql-project/geoql/pkg/parser"
)

// ConfigGetter retrieves the loaded configuration from a command's
// context, breaking the import cycle this package would otherwise have
// with internal/cli.
type ConfigGetter func(ctx context.Context) *config.Config

// NewQueryCommand runs DSL text (an argument, --input file, or stdin) to
// completion against the configured backend and renders the result.
func NewQueryCommand(getConfig ConfigGetter) *cobra.Command {
	var input string
	var format string

	cmd := &cobra.Command{
		Use:   "query [DSL]",
		Short: "Run a geoql query against the configured backend",
		Example: `  geoql query 'node["amenity"="cafe"](50.7,7.0,50.8,7.2); out;'
  geoql query --input query.ql --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readQuerySource(args, input)
			if err != nil {
				return err
			}
			cfg := getConfig(cmd.Context())

			root, err := parser.Parse(src, parser.WithGlobalBBox(cfg.AllowImplicitBBox, globalBBoxOption(cfg)))
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}

			ev, closeBackend, err := newEvaluator(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeBackend() }()

			if err := ev.Run(root); err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}

			fmtFlag := format
			if fmtFlag == "" {
				fmtFlag, _ = cmd.Flags().GetString("format")
			}
			if fmtFlag == "table" {
				renderTable(cmd.OutOrStdout(), ev.Records)
				return nil
			}
			return ev.Render(cmd.OutOrStdout(), output.Format(fmtFlag))
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "read DSL text from a file instead of the first argument")
	cmd.Flags().StringVar(&format, "format", "", "override the persistent --format flag for this query (xml|json|csv|html|table)")

	return cmd
}

func readQuerySource(args []string, input string) (string, error) {
	switch {
	case len(args) > 0:
		return args[0], nil
	case input != "":
		b, err := os.ReadFile(input)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", input, err)
		}
		return string(b), nil
	default:
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
}

func globalBBoxOption(cfg *config.Config) *parser.BBox {
	if cfg.GlobalBBox == "" {
		return nil
	}
	bb, err := config.ParseBBox(cfg.GlobalBBox)
	if err != nil {
		return nil
	}
	return &parser.BBox{S: bb.S, W: bb.W, N: bb.N, E: bb.E}
}
