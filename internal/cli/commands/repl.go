package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/geoql-project/geoql/internal/config"
	"github.com/geoql-project/geoql/internal/eval"
	"github.com/geoql-project/geoql/pkg/output"
	"github.com/geoql-project/geoql/pkg/parser"
)

var (
	replPromptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	replErrStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	replInfoStyle   = lipgloss.NewStyle().Faint(true)
)

// NewReplCommand starts an interactive shell that parses and evaluates
// one statement set per submitted block, reusing the same backend and
// configuration as "geoql query" for every line typed.
func NewReplCommand(getConfig ConfigGetter) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive query shell",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd.Context())

			ev, closeBackend, err := newEvaluator(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeBackend() }()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          replPromptStyle.Render("geoql> "),
				HistoryFile:     historyFilePath(cfg),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("repl: init readline: %w", err)
			}
			defer rl.Close()

			fmt.Fprintln(cmd.OutOrStdout(), replInfoStyle.Render(
				"geoql interactive shell — submit a statement set ending with a blank line, :q to quit"))

			var buf strings.Builder
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					buf.Reset()
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("repl: read line: %w", err)
				}

				trimmed := strings.TrimSpace(line)
				if trimmed == ":q" || trimmed == ":quit" || trimmed == ":exit" {
					return nil
				}
				if trimmed == "" {
					if buf.Len() == 0 {
						continue
					}
					src := buf.String()
					buf.Reset()
					if err := runReplStatement(cmd, ev, src, format); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), replErrStyle.Render(err.Error()))
					}
					continue
				}
				buf.WriteString(line)
				buf.WriteString("\n")
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "xml", "render format: xml|json|csv|html|table")
	return cmd
}

func runReplStatement(cmd *cobra.Command, ev *eval.Evaluator, src, format string) error {
	root, err := parser.Parse(src)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	ev.Records = ev.Records[:0]
	if err := ev.Run(root); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if format == "table" {
		renderTable(cmd.OutOrStdout(), ev.Records)
		return nil
	}
	return ev.Render(cmd.OutOrStdout(), output.Format(format))
}

func historyFilePath(cfg *config.Config) string {
	if cfg.SnapshotDir == "" {
		return ""
	}
	return strings.TrimSuffix(cfg.SnapshotDir, "/") + "/.repl_history"
}
