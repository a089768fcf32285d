package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/analytics"
	"github.com/dtnitsch/llm-page-context/pkg/caching"
	"github.com/dtnitsch/llm-page-context/pkg/extractor"
	"github.com/dtnitsch/llm-page-context/pkg/fetcher"
	"github.com/dtnitsch/llm-page-context/pkg/pdf"
	"github.com/dtnitsch/llm-page-context/pkg/pipeline"
	"github.com/dtnitsch/llm-page-context/pkg/tokens"
)

type options struct {
	Mode      models.ExtractionMode
	Model     string
	Structure pipeline.Structure
	BaseURL   string
	Chunk     bool
	MaxTokens int
	Overlap   int
	Keywords  int
}

// runner turns targets into Outputs. It is shared by the batch workers.
type runner struct {
	logger    zerolog.Logger
	proc      *pipeline.Processor
	fetcher   *fetcher.Fetcher
	renderer  *fetcher.Renderer
	cache     *caching.Cache
	strategy  *extractor.Strategy
	estimator *tokens.Estimator
	opts      options
}

func isRemote(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

func (r *runner) cacheKey(target string) string {
	return caching.Key(target, string(r.opts.Mode), r.opts.Model, string(r.opts.Structure))
}

// run extracts one target. Remote results are cached unfiltered; --only and
// chunking apply on the way out.
func (r *runner) run(ctx context.Context, target string) Output {
	log := r.logger.With().Str("target", target).Logger()

	useCache := r.cache != nil && isRemote(target)
	key := r.cacheKey(target)
	if useCache {
		if content, ok := r.cached(key); ok {
			log.Debug().Str("key", key).Msg("cache hit")
			return r.output(target, pipeline.Result{
				Success: true,
				Content: content,
				Method:  content.Metadata.Method,
			}, true)
		}
	}

	req, err := r.request(ctx, target)
	if err != nil {
		return r.output(target, failure(err), false)
	}

	res := r.extract(ctx, log, req)
	if res.Success && useCache {
		r.store(key, res.Content)
	}
	return r.output(target, res, false)
}

func (r *runner) extract(ctx context.Context, log zerolog.Logger, req pipeline.Request) pipeline.Result {
	req.Mode = r.opts.Mode
	req.Progress = func(ev models.ExtractionProgress) {
		log.Debug().Str("status", string(ev.Status)).Int("progress", ev.Progress).Str("step", ev.CurrentStep).Msg("progress")
	}
	return r.proc.Extract(ctx, req)
}

// request loads a target into a pipeline request.
func (r *runner) request(ctx context.Context, target string) (pipeline.Request, error) {
	if !isRemote(target) {
		data, err := os.ReadFile(target)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("%w: %w", pipeline.ErrFetch, err)
		}
		if pdf.IsPDF(data) {
			return pipeline.Request{URL: r.opts.BaseURL, PDF: data}, nil
		}
		return pipeline.Request{URL: r.opts.BaseURL, HTML: string(data)}, nil
	}

	if r.renderer != nil && !pipeline.IsPDFRequest(pipeline.Request{URL: target}) {
		html, err := r.renderer.Render(ctx, target)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("%w: %w", pipeline.ErrFetch, err)
		}
		return pipeline.Request{URL: target, HTML: html}, nil
	}

	resp, err := r.fetcher.Fetch(ctx, target)
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("%w: %w", pipeline.ErrFetch, err)
	}
	req := pipeline.Request{URL: resp.URL, ContentType: resp.ContentType}
	switch {
	case resp.IsPDF():
		req.PDF = resp.Body
	case resp.IsHTML(), strings.HasPrefix(resp.ContentType, "text/"):
		req.HTML = string(resp.Body)
	default:
		return pipeline.Request{}, fmt.Errorf("%w: content type %s", pipeline.ErrUnsupportedPage, resp.ContentType)
	}
	return req, nil
}

func failure(err error) pipeline.Result {
	return pipeline.Result{Error: err.Error(), Kind: pipeline.KindOf(err), Err: err}
}

func (r *runner) cached(key string) (*models.ProcessedContent, bool) {
	data, ok := r.cache.Get(key)
	if !ok {
		return nil, false
	}
	var content models.ProcessedContent
	if err := json.Unmarshal(data, &content); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("dropping unreadable cache entry")
		_ = r.cache.Delete(key)
		return nil, false
	}
	return &content, true
}

func (r *runner) store(key string, content *models.ProcessedContent) {
	data, err := json.Marshal(content)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to encode result for cache")
		return
	}
	if err := r.cache.Set(key, data); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("failed to write cache entry")
	}
}

func (r *runner) output(target string, res pipeline.Result, cached bool) Output {
	out := Output{
		Target:  target,
		Success: res.Success,
		Cached:  cached,
		Handler: res.Handler,
		Method:  res.Method,
		Kind:    res.Kind,
		Error:   res.Error,
	}
	if !res.Success || res.Content == nil {
		return out
	}

	content := extractor.FilterContent(res.Content, r.strategy)
	prompt := content.ToPromptText()
	out.Content = content
	out.Tokens = r.estimator.EstimateTokens(prompt, r.opts.Model)
	out.Keywords = analytics.Words(analytics.TopKeywords(content.RawText, r.opts.Keywords))

	if r.opts.Chunk {
		for i, c := range r.estimator.SplitChunks(prompt, r.opts.MaxTokens, r.opts.Model, r.opts.Overlap) {
			out.Chunks = append(out.Chunks, ChunkOutput{Index: i, Tokens: c.Tokens, Overlap: c.OverlapLen, Text: c.Text})
		}
	} else if r.opts.MaxTokens > 0 {
		out.Prompt = r.estimator.TruncateToTokenLimit(prompt, r.opts.MaxTokens, r.opts.Model)
	}
	return out
}
