// Package macro loads user-defined Starlark helper functions and makes
// them callable from make/convert value expressions via "::eval(name, ...)",
// a supplement to the DSL's fixed aggregate set.
package macro

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.starlark.net/starlark"
)

// Loader scans a directory for .star files and loads every top-level
// function they define (names starting with "_" are private and skipped).
type Loader struct {
	dir string
}

// NewLoader returns a loader that reads .star files from dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// LoadError reports a failure loading or executing one macro file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("macro %s: %s", filepath.Base(e.File), e.Message)
}

// Load scans Loader's directory and returns a Registry of every exported
// function from every .star file found. A missing directory is not an
// error: it yields an empty registry, matching a project with no macros.
func (l *Loader) Load() (*Registry, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry(nil), nil
		}
		return nil, fmt.Errorf("failed to access macro directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("macro path is not a directory: %s", l.dir)
	}

	files, err := filepath.Glob(filepath.Join(l.dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan macro directory: %w", err)
	}

	funcs := make(starlark.StringDict)
	for _, file := range files {
		exports, err := l.loadFile(file)
		if err != nil {
			return nil, err
		}
		for name, v := range exports {
			funcs[name] = v
		}
	}
	return NewRegistry(funcs), nil
}

func (l *Loader) loadFile(path string) (starlark.StringDict, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from filepath.Glob within the configured macro directory
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("read file: %v", err)}
	}

	thread := &starlark.Thread{
		Name: "macro:" + filepath.Base(path),
		Print: func(_ *starlark.Thread, _ string) {
			// Macro files are loaded ahead of query evaluation; prints
			// during load have nowhere useful to surface.
		},
	}

	globals, err := starlark.ExecFile(thread, path, content, nil)
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("execute: %v", err)}
	}

	exports := make(starlark.StringDict)
	for name, v := range globals {
		if !strings.HasPrefix(name, "_") {
			exports[name] = v
		}
	}
	return exports, nil
}
