// Package main provides tests for the geoql CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoql-project/geoql/internal/cli"
)

func TestVersionCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	err := cmd.Execute()
	require.NoError(t, err, "version command error")
	assert.Contains(t, buf.String(), "geoql v")
}

func TestHelpCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err, "help command error")

	output := buf.String()
	expectedCommands := []string{"query", "parse", "repl", "serve", "docs", "make-area", "completion"}
	for _, expected := range expectedCommands {
		assert.Contains(t, output, expected, "help output should contain '%s'", expected)
	}
}

func TestQueryCommandRunsAgainstMemoryBackend(t *testing.T) {
	tmpDir := t.TempDir()

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{
		"query", "node(1);out;",
		"--project-dir", tmpDir,
		"--backend", "memory",
		"--format", "json",
	})

	err := cmd.Execute()
	require.NoError(t, err, "query command error")
	assert.Contains(t, buf.String(), "elements")
}

func TestQueryCommandInvalidSyntaxErrors(t *testing.T) {
	tmpDir := t.TempDir()

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{
		"query", "this is not geoql",
		"--project-dir", tmpDir,
		"--backend", "memory",
	})

	err := cmd.Execute()
	assert.Error(t, err, "malformed query should return an error")
}

func TestParseCommandDumpsCompactTree(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"parse", "node(1);out;", "--mode", "compact"})

	err := cmd.Execute()
	require.NoError(t, err, "parse command error")
	assert.Contains(t, buf.String(), "\"kind\"")
}

func TestParseCommandRejectsMalformedQuery(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"parse", "((("})

	err := cmd.Execute()
	assert.Error(t, err, "unbalanced query should fail to parse")
}

func TestDocsCommandRendersMarkdown(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"docs"})

	err := cmd.Execute()
	require.NoError(t, err, "docs command error")
	assert.NotEmpty(t, buf.String())
}

func TestMakeAreaCommandCommitsGeneration(t *testing.T) {
	tmpDir := t.TempDir()
	areaDir := filepath.Join(tmpDir, "areas")
	lockDir := filepath.Join(tmpDir, "locks")
	require.NoError(t, os.MkdirAll(areaDir, 0o755))

	cfgYAML := "area_dir: " + areaDir + "\ndispatcher_lock_dir: " + lockDir + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "geoql.yaml"), []byte(cfgYAML), 0o644))

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{
		"make-area", "node(1);make area ::id=id();",
		"--project-dir", tmpDir,
		"--backend", "memory",
		"--into", "_",
		"--label", "test",
	})

	err := cmd.Execute()
	require.NoError(t, err, "make-area command error")
	assert.Contains(t, buf.String(), "committed area generation")
}

func TestCompletionCommand(t *testing.T) {
	shells := []string{"bash", "zsh", "fish", "powershell"}

	for _, shell := range shells {
		t.Run(shell, func(t *testing.T) {
			cmd := cli.NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs([]string{"completion", shell})

			err := cmd.Execute()
			assert.NoError(t, err, "completion %s command error", shell)
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"unknown-command"})

	err := cmd.Execute()
	assert.Error(t, err, "unknown command should return an error")
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
