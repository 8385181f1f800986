// Package styles implements the StyleCompiler port. Plain CSS is passed
// through; SCSS and Sass sources are compiled with the dart-sass CLI.
package styles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// ErrUnsupportedSource is returned for files that are neither CSS nor Sass.
var ErrUnsupportedSource = errors.New("unsupported stylesheet source")

// Compile-time interface satisfaction check.
var _ driven.StyleCompiler = (*Compiler)(nil)

// Compiler compiles stylesheets by invoking an external sass binary.
type Compiler struct {
	binary    string
	loadPaths []string
}

// NewCompiler creates a Compiler. binary is the sass executable name or path;
// loadPaths are passed to it as --load-path.
func NewCompiler(binary string, loadPaths []string) *Compiler {
	return &Compiler{binary: binary, loadPaths: loadPaths}
}

// Compile returns the CSS for the stylesheet at path.
func (c *Compiler) Compile(ctx context.Context, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".css":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	case ".scss", ".sass":
		return c.runSass(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, path)
	}
}

func (c *Compiler) runSass(ctx context.Context, path string) ([]byte, error) {
	args := []string{"--no-source-map", "--style=expanded"}
	for _, p := range c.loadPaths {
		args = append(args, "--load-path="+p)
	}
	args = append(args, path)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("compile %s: %w", path, err)
		}
		return nil, fmt.Errorf("compile %s: %w: %s", path, err, msg)
	}

	return stdout.Bytes(), nil
}
