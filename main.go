package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/llm-page-context/internal/analyze"
	"github.com/dtnitsch/llm-page-context/internal/cache"
	configcmd "github.com/dtnitsch/llm-page-context/internal/config"
	"github.com/dtnitsch/llm-page-context/internal/db"
	"github.com/dtnitsch/llm-page-context/internal/extract"
	"github.com/dtnitsch/llm-page-context/internal/setup"
	"github.com/dtnitsch/llm-page-context/internal/tokens"
	"github.com/dtnitsch/llm-page-context/pkg/help"
)

var version = "dev"

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to config.yaml (missing file means defaults)"},
		&cli.BoolFlag{Name: "verbose", Usage: "debug logging"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
		&cli.BoolFlag{Name: "log-json", Usage: "log JSON lines instead of console output"},
		&cli.StringFlag{Name: "store", Usage: "settings store backend: sqlite, file or memory"},
		&cli.StringFlag{Name: "store-path", Usage: "database file or directory for the settings store"},
	}
}

// outputFlags are shared by extract and pdf.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "base-url", Usage: "page URL for a local file (drives domain rules and link resolution)"},
		&cli.StringFlag{Name: "mode", Usage: "override the extraction mode: readability or text"},
		&cli.StringFlag{Name: "model", Usage: "model name for token estimates (default from config.yaml)"},
		&cli.StringFlag{Name: "structure", Value: "text", Usage: "block source: text (markdown) or html"},
		&cli.StringFlag{Name: "only", Usage: "keep only matching blocks, e.g. type:heading|code,len:>=40 or has:install"},
		&cli.BoolFlag{Name: "chunk", Usage: "split the prompt into chunks of --max-tokens"},
		&cli.IntFlag{Name: "max-tokens", Usage: "token budget per prompt or chunk (0 means the model's budget)"},
		&cli.IntFlag{Name: "overlap", Value: -1, Usage: "overlap tokens between chunks (-1 means the default)"},
		&cli.StringFlag{Name: "format", Value: "json", Usage: "output format: json, yaml or text"},
		&cli.StringFlag{Name: "fields", Usage: "comma-separated top-level fields to keep in json/yaml output"},
		&cli.IntFlag{Name: "keywords", Value: 10, Usage: "number of top keywords to report"},
	}
}

func extractCommand() *cli.Command {
	flags := append([]cli.Flag{
		&cli.StringFlag{Name: "url", Usage: "page URL to extract"},
		&cli.StringFlag{Name: "urls", Usage: "comma-separated page URLs to extract in parallel"},
		&cli.StringFlag{Name: "file", Usage: "local HTML or PDF file"},
		&cli.BoolFlag{Name: "render", Usage: "render pages in headless Chrome before extracting"},
		&cli.BoolFlag{Name: "no-cache", Usage: "skip the result cache"},
		&cli.IntFlag{Name: "workers", Value: 4, Usage: "parallel workers for --urls"},
		&cli.StringFlag{Name: "manifest", Usage: "also write a run summary to this .json or .yaml file"},
	}, outputFlags()...)
	return &cli.Command{
		Name:   "extract",
		Usage:  "Extract LLM-ready content from pages or local files",
		Flags:  flags,
		Action: extract.ExtractAction,
	}
}

func pdfCommand() *cli.Command {
	flags := append([]cli.Flag{
		&cli.StringFlag{Name: "file", Usage: "PDF file to extract"},
		&cli.StringFlag{Name: "title", Usage: "document title (default from the PDF info dictionary)"},
		&cli.IntFlag{Name: "max-pages", Usage: "stop after this many pages (0 means all)"},
	}, outputFlags()...)
	return &cli.Command{
		Name:   "pdf",
		Usage:  "Extract text from a PDF page by page",
		Flags:  flags,
		Action: extract.PDFAction,
	}
}

func configCommand() *cli.Command {
	format := func() cli.Flag { return &cli.StringFlag{Name: "format", Value: "json", Usage: "json or yaml"} }
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect and edit the extraction config",
		Subcommands: []*cli.Command{
			{Name: "show", Usage: "Print the stored config", Flags: []cli.Flag{format()}, Action: configcmd.ShowAction},
			{Name: "resolve", Usage: "Print the merged config for a domain", ArgsUsage: "<domain>", Flags: []cli.Flag{format()}, Action: configcmd.ResolveAction},
			{Name: "set-mode", Usage: "Set the global extraction mode", ArgsUsage: "<readability|text>", Action: configcmd.SetModeAction},
			{Name: "add-selector", Usage: "Add a global remove selector", ArgsUsage: "<selector>", Action: configcmd.AddSelectorAction},
			{Name: "remove-selector", Usage: "Remove a global remove selector", ArgsUsage: "<selector>", Action: configcmd.RemoveSelectorAction},
			{
				Name:      "set-domain",
				Usage:     "Create or replace a domain rule",
				ArgsUsage: "<domain>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "display name"},
					&cli.StringSliceFlag{Name: "remove", Usage: "CSS selector to remove (repeatable)"},
					&cli.IntFlag{Name: "char-threshold", Usage: "minimum readable characters"},
					&cli.BoolFlag{Name: "keep-classes", Usage: "keep class attributes in readability output"},
					&cli.BoolFlag{Name: "preserve-links", Usage: "keep links in readability output"},
				},
				Action: configcmd.SetDomainAction,
			},
			{Name: "delete-domain", Usage: "Delete a domain rule", ArgsUsage: "<domain>", Action: configcmd.DeleteDomainAction},
			{Name: "domains", Usage: "List domain rules", Action: configcmd.DomainsAction},
			{Name: "apply-template", Usage: "Copy a template onto a domain rule", ArgsUsage: "<domain> <mode> <key>", Action: configcmd.ApplyTemplateAction},
			{
				Name:   "templates",
				Usage:  "List templates",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "mode", Usage: "readability or text"}},
				Action: configcmd.TemplatesAction,
			},
			{
				Name:  "export",
				Usage: "Export the config",
				Flags: []cli.Flag{
					format(),
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write to this file instead of stdout"},
				},
				Action: configcmd.ExportAction,
			},
			{Name: "import", Usage: "Replace the config from a JSON or YAML file", ArgsUsage: "<file>", Action: configcmd.ImportAction},
			{Name: "reset", Usage: "Restore the default config", Action: configcmd.ResetAction},
			{
				Name:      "suggest",
				Usage:     "Suggest a template for a URL",
				ArgsUsage: "<url>",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "apply", Usage: "apply the suggestion to the URL's domain"}},
				Action:    configcmd.SuggestAction,
			},
		},
	}
}

func tokensCommand() *cli.Command {
	flags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "read text from this file instead of stdin"},
			&cli.StringFlag{Name: "model", Usage: "model name (default from config.yaml)"},
			&cli.IntFlag{Name: "max-tokens", Usage: "token budget (0 means the model's budget)"},
		}
	}
	return &cli.Command{
		Name:  "tokens",
		Usage: "Estimate, truncate and chunk text by token budget",
		Subcommands: []*cli.Command{
			{
				Name:   "estimate",
				Usage:  "Estimate the token count of text",
				Flags:  append([]cli.Flag{&cli.BoolFlag{Name: "exact", Usage: "also count with the model's BPE encoding"}}, flags()...),
				Action: tokens.EstimateAction,
			},
			{Name: "truncate", Usage: "Cut text to fit the budget", Flags: flags(), Action: tokens.TruncateAction},
			{
				Name:  "chunk",
				Usage: "Split text into overlapping chunks",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "overlap", Value: -1, Usage: "overlap tokens between chunks (-1 means the default)"},
					&cli.StringFlag{Name: "format", Value: "json", Usage: "json or text"},
				}, flags()...),
				Action: tokens.ChunkAction,
			},
		},
	}
}

func main() {
	app := &cli.App{
		Name:    "lpc",
		Usage:   "Turn web pages and PDFs into token-budgeted LLM context",
		Version: version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			extractCommand(),
			pdfCommand(),
			configCommand(),
			tokensCommand(),
			{
				Name:  "analyze",
				Usage: "Report text statistics for a file, stdin or an extract result",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "text or extract JSON (default stdin)"},
					&cli.StringFlag{Name: "model", Usage: "model name for the token estimate"},
					&cli.IntFlag{Name: "keywords", Value: 10, Usage: "number of top keywords"},
				},
				Action: analyze.AnalyzeAction,
			},
			{
				Name:  "guide",
				Usage: "Print a quick-start guide",
				Action: func(c *cli.Context) error {
					fmt.Print(help.ColdstartYAML)
					return nil
				},
			},
			{
				Name:  "cache",
				Usage: "Maintain the result cache",
				Subcommands: []*cli.Command{
					{Name: "prune", Usage: "Remove expired cache entries", Action: cache.PruneAction},
				},
			},
			{
				Name:  "db",
				Usage: "Inspect the SQLite settings store",
				Subcommands: []*cli.Command{
					{
						Name:   "history",
						Usage:  "List previous versions of the extraction config",
						Flags:  []cli.Flag{&cli.IntFlag{Name: "limit", Value: 10, Usage: "maximum versions to list"}},
						Action: db.HistoryAction,
					},
					{
						Name:      "restore",
						Usage:     "Restore a previous config version",
						ArgsUsage: "<id>",
						Flags:     []cli.Flag{&cli.IntFlag{Name: "limit", Value: 50, Usage: "how far back to look"}},
						Action:    db.RestoreAction,
					},
					{Name: "path", Usage: "Print the database path", Action: db.PathAction},
				},
			},
		},
		ExitErrHandler: func(_ *cli.Context, err error) {
			if err == nil {
				return
			}
			var exit cli.ExitCoder
			if errors.As(err, &exit) {
				cli.HandleExitCoder(err)
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(setup.ExitUsage)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			stop()
			os.Exit(exit.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(setup.ExitUsage)
	}
}
