// Package setup turns global CLI flags and config.yaml into the shared
// runtime: logger, settings store, extraction config manager and pipeline.
package setup

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/caching"
	"github.com/dtnitsch/llm-page-context/pkg/config"
	"github.com/dtnitsch/llm-page-context/pkg/db"
	"github.com/dtnitsch/llm-page-context/pkg/detector"
	"github.com/dtnitsch/llm-page-context/pkg/fetcher"
	"github.com/dtnitsch/llm-page-context/pkg/pdf"
	"github.com/dtnitsch/llm-page-context/pkg/pipeline"
	"github.com/dtnitsch/llm-page-context/pkg/storage"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitExtraction = 1
	ExitUsage      = 2
)

const defaultFileStoreDir = ".lpc-store"

// Usagef reports a usage or setup problem with exit code 2.
func Usagef(format string, args ...interface{}) error {
	return cli.Exit(fmt.Sprintf(format, args...), ExitUsage)
}

// Logger builds the root logger from --verbose, --quiet and --log-json.
func Logger(c *cli.Context) zerolog.Logger {
	return newLogger(os.Stderr, c.Bool("verbose"), c.Bool("quiet"), c.Bool("log-json"))
}

func newLogger(out io.Writer, verbose, quiet, jsonLines bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	switch {
	case quiet:
		level = zerolog.ErrorLevel
	case verbose:
		level = zerolog.DebugLevel
	}
	if !jsonLines {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Env is the per-invocation runtime.
type Env struct {
	Logger zerolog.Logger
	App    *config.AppConfig
	Store  storage.Store

	closer io.Closer
}

// Open loads config.yaml, applies flag overrides and opens the settings store.
func Open(c *cli.Context) (*Env, error) {
	logger := Logger(c)

	app, err := config.LoadAppConfig(c.String("config"))
	if err != nil {
		return nil, Usagef("%v", err)
	}
	if c.IsSet("store") {
		app.Store.Backend = c.String("store")
	}
	if c.IsSet("store-path") {
		app.Store.Path = c.String("store-path")
	}
	app.WithDefaults()

	env := &Env{Logger: logger, App: app}
	if err := env.openStore(); err != nil {
		return nil, Usagef("failed to open %s store: %v", app.Store.Backend, err)
	}
	logger.Debug().Str("backend", app.Store.Backend).Str("path", app.Store.Path).Msg("settings store opened")
	return env, nil
}

func (e *Env) openStore() error {
	switch e.App.Store.Backend {
	case config.StoreMemory:
		e.Store = storage.NewMemoryStore()
	case config.StoreFile:
		dir := e.App.Store.Path
		if dir == "" {
			dir = defaultFileStoreDir
		}
		fs, err := storage.NewFileStore(dir)
		if err != nil {
			return err
		}
		e.Store = fs
	default:
		database, err := db.Open(e.App.Store.Path)
		if err != nil {
			return err
		}
		e.Store = database
		e.closer = database
	}
	return nil
}

// Close releases the store.
func (e *Env) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}

// DB returns the SQLite store, or an error for other backends.
func (e *Env) DB() (*db.DB, error) {
	database, ok := e.Store.(*db.DB)
	if !ok {
		return nil, Usagef("this command needs the sqlite store (current backend: %s)", e.App.Store.Backend)
	}
	return database, nil
}

// Manager loads the persisted extraction config.
func (e *Env) Manager(c *cli.Context) (*config.Manager, error) {
	m := config.NewManager(e.Store, e.Logger)
	if err := m.Load(c.Context); err != nil {
		return nil, Usagef("%v", err)
	}
	return m, nil
}

// Guesser is the configured language detector.
func (e *Env) Guesser() detector.Guesser {
	if e.App.Language.Detector == config.DetectorLingua {
		return detector.NewLinguaGuesser(e.Logger)
	}
	return detector.CJKGuesser{}
}

// WaitOptions is the bounded SPA wait from the render settings.
func (e *Env) WaitOptions() detector.WaitOptions {
	r := e.App.Render
	return detector.WaitOptions{
		MinChars: r.MinChars,
		Timeout:  time.Duration(r.WaitMillis) * time.Millisecond,
		Interval: time.Duration(r.PollMillis) * time.Millisecond,
	}
}

// Processor wires the pipeline to the manager and app settings.
func (e *Env) Processor(resolver pipeline.Resolver, structure pipeline.Structure) *pipeline.Processor {
	return pipeline.New(e.Logger,
		pipeline.WithResolver(resolver),
		pipeline.WithGuesser(e.Guesser()),
		pipeline.WithPDFReader(pdf.New(e.Logger)),
		pipeline.WithStructure(structure),
		pipeline.WithSPAWait(e.WaitOptions()),
		pipeline.WithMarkdown(e.App.MarkdownEnabled()),
		pipeline.WithSanitize(e.App.SanitizeEnabled()),
	)
}

func (e *Env) Fetcher() *fetcher.Fetcher {
	f := e.App.Fetch
	return fetcher.NewFetcher(
		fetcher.WithLogger(e.Logger),
		fetcher.WithUserAgent(f.UserAgent),
		fetcher.WithTimeout(time.Duration(f.TimeoutSecs)*time.Second),
		fetcher.WithMaxBodyBytes(f.MaxBodyBytes),
	)
}

// Renderer returns a headless renderer; the caller must Close it.
func (e *Env) Renderer() *fetcher.Renderer {
	return fetcher.NewRenderer(e.Logger,
		fetcher.WithRenderTimeout(time.Duration(e.App.Render.TimeoutSecs)*time.Second),
		fetcher.WithWaitOptions(e.WaitOptions()),
		fetcher.WithHeadless(e.App.HeadlessEnabled()),
	)
}

// Cache returns the result cache, or nil when caching is off.
func (e *Env) Cache() *caching.Cache {
	if !e.App.CacheEnabled() {
		return nil
	}
	cache, err := caching.NewCache(e.App.Cache.Dir, e.App.CacheTTL())
	if err != nil {
		e.Logger.Warn().Err(err).Str("dir", e.App.Cache.Dir).Msg("result cache disabled")
		return nil
	}
	return cache
}

// Model is --model, else the configured default.
func (e *Env) Model(c *cli.Context) string {
	if m := strings.TrimSpace(c.String("model")); m != "" {
		return m
	}
	return e.App.DefaultModel
}

// ParseMode validates a --mode value. Empty means "use the configured mode".
func ParseMode(s string) (models.ExtractionMode, error) {
	mode := models.ExtractionMode(strings.ToLower(strings.TrimSpace(s)))
	if mode == "" || mode.Valid() {
		return mode, nil
	}
	return "", Usagef("invalid mode %q (want readability or text)", s)
}
