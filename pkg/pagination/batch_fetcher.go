package pagination

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of collections walked in parallel
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
}

// DefaultConfig returns conservative defaults for the OpenPhone API.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}

// Query names one collection walk.
type Query struct {
	Endpoint string
	Params   url.Values
}

// BatchFetcher drains several collections concurrently, one Paginator per query.
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll walks every query to completion. results[i] holds the records of
// queries[i]. The first failure cancels the remaining walks and is returned
// along with whatever was collected.
func (bf *BatchFetcher) FetchAll(ctx context.Context, queries []Query) ([][]Record, error) {
	start := time.Now()
	results := make([][]Record, len(queries))
	if len(queries) == 0 {
		return results, nil
	}

	log.Info().
		Int("queries", len(queries)).
		Int("concurrency", bf.config.MaxConcurrency).
		Msg("Starting parallel collection fetch")

	fetcher := timeoutFetcher{next: bf.fetcher, timeout: bf.config.Timeout}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bf.config.MaxConcurrency)

	var completed atomic.Int64
	for i, q := range queries {
		g.Go(func() error {
			p := New(fetcher, q.Endpoint, q.Params)
			records, err := p.Collect(gctx, 0)
			results[i] = records
			if err != nil {
				log.Warn().
					Err(err).
					Str("endpoint", q.Endpoint).
					Int("query", i).
					Int("pages", p.PagesFetched()).
					Msg("Collection fetch failed")
				return fmt.Errorf("query %d (%s): %w", i, q.Endpoint, err)
			}
			completed.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch fetch (partial data: %d/%d queries): %w",
			completed.Load(), len(queries), err)
	}

	log.Info().
		Int("queries", len(queries)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")
	return results, nil
}

type timeoutFetcher struct {
	next    PageFetcher
	timeout time.Duration
}

func (f timeoutFetcher) FetchPage(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.next.FetchPage(ctx, endpoint, params)
}
