// Package extract implements the extract and pdf commands.
package extract

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/llm-page-context/internal/common"
	"github.com/dtnitsch/llm-page-context/internal/setup"
	"github.com/dtnitsch/llm-page-context/pkg/extractor"
	"github.com/dtnitsch/llm-page-context/pkg/manifest"
	"github.com/dtnitsch/llm-page-context/pkg/pdf"
	"github.com/dtnitsch/llm-page-context/pkg/pipeline"
	"github.com/dtnitsch/llm-page-context/pkg/tokens"
)

// newRunner reads the flags shared by extract and pdf.
func newRunner(c *cli.Context, env *setup.Env) (*runner, error) {
	mode, err := setup.ParseMode(c.String("mode"))
	if err != nil {
		return nil, err
	}
	structure := pipeline.Structure(strings.ToLower(c.String("structure")))
	if structure != pipeline.StructureText && structure != pipeline.StructureHTML {
		return nil, setup.Usagef("invalid structure %q (want text or html)", c.String("structure"))
	}
	if f := strings.ToLower(c.String("format")); !validFormat(f) {
		return nil, setup.Usagef("invalid format %q (want json, yaml or text)", c.String("format"))
	}
	if c.Int("max-tokens") < 0 {
		return nil, setup.Usagef("--max-tokens must not be negative")
	}
	strategy, err := extractor.ParseStrategy(c.String("only"))
	if err != nil {
		return nil, setup.Usagef("invalid --only filter: %v", err)
	}

	manager, err := env.Manager(c)
	if err != nil {
		return nil, err
	}

	return &runner{
		logger:    env.Logger,
		proc:      env.Processor(manager, structure),
		fetcher:   env.Fetcher(),
		strategy:  strategy,
		estimator: tokens.Default(),
		opts: options{
			Mode:      mode,
			Model:     env.Model(c),
			Structure: structure,
			BaseURL:   c.String("base-url"),
			Chunk:     c.Bool("chunk"),
			MaxTokens: c.Int("max-tokens"),
			Overlap:   c.Int("overlap"),
			Keywords:  c.Int("keywords"),
		},
	}, nil
}

// targets collects --url, --urls and --file in that order.
func targets(c *cli.Context) ([]string, []string) {
	var out, invalid []string
	add := func(raw string) {
		u := common.SanitizeURL(raw)
		if u == "" {
			return
		}
		if !isRemote(u) {
			invalid = append(invalid, raw)
			return
		}
		out = append(out, u)
	}
	if c.IsSet("url") {
		add(c.String("url"))
	}
	if c.IsSet("urls") {
		for _, u := range strings.Split(c.String("urls"), ",") {
			add(u)
		}
	}
	if f := strings.TrimSpace(c.String("file")); f != "" {
		out = append(out, f)
	}
	return out, invalid
}

func ExtractAction(c *cli.Context) error {
	start := time.Now()
	env, err := setup.Open(c)
	if err != nil {
		return err
	}
	defer env.Close()

	list, invalid := targets(c)
	if len(invalid) > 0 {
		return setup.Usagef("malformed URL(s): %s", strings.Join(invalid, ", "))
	}
	if len(list) == 0 {
		fmt.Fprintln(os.Stderr, "Error: No URLs or file provided")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  lpc extract --url "https://example.com/article"`)
		fmt.Fprintln(os.Stderr, `  lpc extract --urls "https://example.com/a,https://example.org/b" --workers 4`)
		fmt.Fprintln(os.Stderr, `  lpc extract --file page.html --base-url https://example.com/page`)
		return cli.Exit("", setup.ExitUsage)
	}

	r, err := newRunner(c, env)
	if err != nil {
		return err
	}
	if !c.Bool("no-cache") {
		r.cache = env.Cache()
	}
	if c.Bool("render") || env.App.Render.Enabled {
		r.renderer = env.Renderer()
		defer r.renderer.Close()
	}

	format := strings.ToLower(c.String("format"))
	fields := c.String("fields")

	if len(list) == 1 {
		out := r.run(c.Context, list[0])
		if err := writeOutput(os.Stdout, format, fields, out); err != nil {
			return err
		}
		if err := saveManifest(c, env, []Output{out}); err != nil {
			return err
		}
		if !out.Success {
			return cli.Exit("", setup.ExitExtraction)
		}
		return nil
	}

	results := r.runAll(c.Context, list, c.Int("workers"))
	stats := summarize(results, start, c.Int("keywords"))
	if err := writeBatch(os.Stdout, format, fields, results, stats); err != nil {
		return err
	}
	if err := saveManifest(c, env, results); err != nil {
		return err
	}
	env.Logger.Info().
		Int("successful", stats.Successful).
		Int("failed", stats.Failed).
		Float64("seconds", stats.TotalTimeSeconds).
		Msg("batch finished")
	if stats.Failed > 0 {
		return cli.Exit("", setup.ExitExtraction)
	}
	return nil
}

// saveManifest writes the run summary to --manifest when set.
func saveManifest(c *cli.Context, env *setup.Env, results []Output) error {
	path := strings.TrimSpace(c.String("manifest"))
	if path == "" {
		return nil
	}
	if err := manifest.Write(path, summaryManifest(results, time.Now(), c.Int("keywords"))); err != nil {
		return err
	}
	env.Logger.Info().Str("file", path).Int("targets", len(results)).Msg("manifest written")
	return nil
}

// PDFAction extracts a local PDF page by page.
func PDFAction(c *cli.Context) error {
	path := strings.TrimSpace(c.String("file"))
	if path == "" {
		return setup.Usagef("--file is required")
	}
	env, err := setup.Open(c)
	if err != nil {
		return err
	}
	defer env.Close()

	r, err := newRunner(c, env)
	if err != nil {
		return err
	}
	format := strings.ToLower(c.String("format"))

	pages, err := pdf.New(env.Logger, pdf.WithMaxPages(c.Int("max-pages"))).ReadFile(path)
	if err != nil {
		out := r.output(path, failure(fmt.Errorf("%w: %w", pipeline.ErrExtractionFailed, err)), false)
		if werr := writeOutput(os.Stdout, format, c.String("fields"), out); werr != nil {
			return werr
		}
		return cli.Exit("", setup.ExitExtraction)
	}
	env.Logger.Debug().Str("file", path).Int("pages", len(pages)).Msg("read PDF text layer")

	req := pipeline.Request{
		URL:      c.String("base-url"),
		Title:    c.String("title"),
		PDFPages: pages,
	}
	res := r.extract(c.Context, env.Logger.With().Str("target", path).Logger(), req)
	out := r.output(path, res, false)
	if err := writeOutput(os.Stdout, format, c.String("fields"), out); err != nil {
		return err
	}
	if !out.Success {
		return cli.Exit("", setup.ExitExtraction)
	}
	return nil
}
