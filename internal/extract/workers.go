package extract

import (
	"context"
	"sync"
	"time"

	"github.com/dtnitsch/llm-page-context/pkg/mapreduce"
)

// Job defines a task for a worker to perform.
type Job struct {
	Index  int
	Target string
}

// runAll extracts targets with a fixed pool of workers. Results keep the
// order of targets.
func (r *runner) runAll(ctx context.Context, targets []string, workers int) []Output {
	if workers < 1 {
		workers = 1
	}
	if workers > len(targets) {
		workers = len(targets)
	}

	r.logger.Info().Int("targets", len(targets)).Int("workers", workers).Msg("starting extraction workers")
	results := make([]Output, len(targets))
	jobs := make(chan Job, len(targets))

	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go r.worker(ctx, w, &wg, jobs, results)
	}
	for i, t := range targets {
		jobs <- Job{Index: i, Target: t}
	}
	close(jobs)
	wg.Wait()
	r.logger.Info().Msg("all extraction workers finished")
	return results
}

// worker processes jobs until the channel closes. Each job writes only its own
// slot of results.
func (r *runner) worker(ctx context.Context, id int, wg *sync.WaitGroup, jobs <-chan Job, results []Output) {
	defer wg.Done()
	for job := range jobs {
		r.logger.Debug().Int("worker", id).Str("target", job.Target).Msg("worker started job")
		start := time.Now()
		results[job.Index] = r.run(ctx, job.Target)
		r.logger.Debug().Int("worker", id).Str("target", job.Target).Dur("elapsed", time.Since(start)).Msg("worker finished job")
	}
}

// summarize counts outcomes and aggregates keywords across successful pages.
func summarize(results []Output, start time.Time, keywords int) Stats {
	stats := Stats{TotalURLs: len(results), TotalTimeSeconds: time.Since(start).Seconds()}
	var intermediate []map[string]int
	for _, r := range results {
		if !r.Success {
			stats.Failed++
			continue
		}
		stats.Successful++
		if r.Content != nil {
			intermediate = append(intermediate, mapreduce.Map(r.Content.RawText))
		}
	}
	stats.TopKeywords = mapreduce.TopKeywords(mapreduce.Reduce(intermediate), keywords)
	return stats
}
