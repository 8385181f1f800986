package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/microcosm-cc/bluemonday"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for fragment retrieval over HTTPS

	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/dom"
	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/fetch"
	"github.com/ericfisherdev/htmlmgr/internal/adapter/driven/memory"
	"github.com/ericfisherdev/htmlmgr/internal/application"
	"github.com/ericfisherdev/htmlmgr/internal/config"
	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// newComposeCommand returns the command that fills the fragment mount points
// of a single HTML file, retrieving fragments from the dist directory or
// from a base URL.
func newComposeCommand(cfg func() *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "compose",
		Usage:     "inject declared fragments into an HTML file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base", Usage: "retrieve fragments relative to `URL` instead of the dist directory"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write the result to `FILE` instead of stdout"},
			&cli.BoolFlag{Name: "sanitize", Usage: "sanitize fragment markup before injecting it"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("compose expects exactly one FILE argument, got %d", cmd.NArg())
			}

			var retriever driven.Retriever = fetch.NewFSRetriever(os.DirFS(cfg().DistDir))
			if base := cmd.String("base"); base != "" {
				r, err := fetch.NewHTTPRetriever(base)
				if err != nil {
					return err
				}
				retriever = r
			}

			var opts []application.LoaderOption
			if cmd.Bool("sanitize") {
				opts = append(opts, application.WithSanitizer(bluemonday.UGCPolicy()))
			}

			if name := cmd.String("output"); name != "" {
				return composeToFile(ctx, cmd.Args().First(), name, retriever, opts...)
			}
			return composeFile(ctx, cmd.Args().First(), retriever, cmd.Root().Writer, opts...)
		},
	}
}

// createOutput opens the -o destination.
var createOutput = func(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// composeToFile composes the page at path into the file name. An error
// closing the file fails the command.
func composeToFile(ctx context.Context, path, name string, retriever driven.Retriever, opts ...application.LoaderOption) (err error) {
	out, err := createOutput(name)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close output: %w", closeErr))
		}
	}()

	return composeFile(ctx, path, retriever, out, opts...)
}

// composeFile loads every declared fragment of the page at path and writes
// the resulting document to out. Fragments that fail to load are logged and
// leave their mount point untouched.
func composeFile(ctx context.Context, path string, retriever driven.Retriever, out io.Writer, opts ...application.LoaderOption) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}

	doc, err := dom.Parse(string(raw))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	loader := application.NewFragmentLoader(doc, retriever, memory.NewFragmentCache(), opts...)
	for _, target := range loader.Targets() {
		loader.LoadAndLog(ctx, target.Locator, target.MountPointID)
	}

	html, err := doc.HTML()
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	_, err = io.WriteString(out, html)
	return err
}
