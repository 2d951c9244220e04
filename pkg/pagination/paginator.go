package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Wire names used by collection endpoints.
const (
	ParamPageToken  = "pageToken"
	ParamMaxResults = "maxResults"

	fieldData          = "data"
	fieldNextPageToken = "nextPageToken"
	fieldTotalItems    = "totalItems"
)

var (
	// Done is returned by Next when the sequence is exhausted.
	Done = errors.New("no more records")

	// ErrMalformedPage indicates a page body whose data field is not an array of objects.
	ErrMalformedPage = errors.New("malformed page")
)

var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openphone_pages_fetched_total",
		Help: "Total number of collection pages fetched",
	}, []string{"endpoint"})

	recordsYieldedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openphone_records_fetched_total",
		Help: "Total number of records received on collection pages",
	}, []string{"endpoint"})
)

// Record is one raw collection item as decoded from JSON.
// Numbers are json.Number.
type Record = map[string]any

// PageFetcher issues one GET for a collection page and returns the parsed body.
type PageFetcher interface {
	FetchPage(ctx context.Context, endpoint string, params url.Values) (map[string]any, error)
}

// Page is a single decoded collection response.
type Page struct {
	Records    []Record
	NextCursor string
	TotalCount *int
}

// ParsePage extracts records, continuation token and total hint from a page body.
func ParsePage(body map[string]any) (Page, error) {
	var page Page

	switch data := body[fieldData].(type) {
	case nil:
	case []any:
		page.Records = make([]Record, 0, len(data))
		for i, item := range data {
			rec, ok := item.(map[string]any)
			if !ok {
				return Page{}, fmt.Errorf("%w: data[%d] is %T, not an object", ErrMalformedPage, i, item)
			}
			page.Records = append(page.Records, rec)
		}
	default:
		return Page{}, fmt.Errorf("%w: data is %T, not an array", ErrMalformedPage, data)
	}

	if token, ok := body[fieldNextPageToken].(string); ok {
		page.NextCursor = token
	}

	if n, ok := intValue(body[fieldTotalItems]); ok {
		page.TotalCount = &n
	}
	return page, nil
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case float64:
		return int(n), n == float64(int(n))
	case int:
		return n, true
	}
	return 0, false
}

// Paginator lazily walks a cursor-paginated collection.
type Paginator struct {
	fetcher  PageFetcher
	endpoint string
	params   url.Values

	queue     []Record
	cursor    string
	exhausted bool

	total *int
	pages int
}

// New creates a Paginator over endpoint. params is copied; a pageToken in it
// becomes the starting cursor.
func New(fetcher PageFetcher, endpoint string, params url.Values) *Paginator {
	base := cloneValues(params)
	cursor := base.Get(ParamPageToken)
	base.Del(ParamPageToken)

	return &Paginator{
		fetcher:  fetcher,
		endpoint: endpoint,
		params:   base,
		cursor:   cursor,
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// Endpoint returns the collection path being iterated.
func (p *Paginator) Endpoint() string { return p.endpoint }

// Next returns the next record, fetching a page when the buffer is empty.
// It returns Done once the collection is exhausted, and keeps returning Done
// without network calls after that. A fetch error is returned as-is and
// leaves the paginator positioned on the same page.
func (p *Paginator) Next(ctx context.Context) (Record, error) {
	for {
		if len(p.queue) > 0 {
			rec := p.queue[0]
			p.queue[0] = nil
			p.queue = p.queue[1:]
			return rec, nil
		}
		if p.exhausted {
			return nil, Done
		}
		if err := p.fetch(ctx); err != nil {
			return nil, err
		}
	}
}

func (p *Paginator) fetch(ctx context.Context) error {
	params := cloneValues(p.params)
	if p.cursor != "" {
		params.Set(ParamPageToken, p.cursor)
	}

	body, err := p.fetcher.FetchPage(ctx, p.endpoint, params)
	if err != nil {
		log.Debug().
			Err(err).
			Str("endpoint", p.endpoint).
			Int("page", p.pages+1).
			Msg("Page fetch failed")
		return err
	}

	page, err := ParsePage(body)
	if err != nil {
		return fmt.Errorf("%s page %d: %w", p.endpoint, p.pages+1, err)
	}

	p.pages++
	p.queue = page.Records
	p.cursor = page.NextCursor
	p.exhausted = page.NextCursor == ""
	if page.TotalCount != nil {
		p.total = page.TotalCount
	}

	pagesFetchedTotal.WithLabelValues(p.endpoint).Inc()
	recordsYieldedTotal.WithLabelValues(p.endpoint).Add(float64(len(page.Records)))

	log.Debug().
		Str("endpoint", p.endpoint).
		Int("page", p.pages).
		Int("records", len(page.Records)).
		Bool("cursor_present", !p.exhausted).
		Msg("Fetched page")
	return nil
}

// All adapts the paginator to a range-over-func sequence. Iteration stops
// after yielding the first error.
func (p *Paginator) All(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := p.Next(ctx)
			if errors.Is(err, Done) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Collect drains up to limit records (all when limit <= 0). On error the
// records gathered so far are returned with it.
func (p *Paginator) Collect(ctx context.Context, limit int) ([]Record, error) {
	var out []Record
	for limit <= 0 || len(out) < limit {
		rec, err := p.Next(ctx)
		if errors.Is(err, Done) {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// TotalItems returns the most recent totalItems hint, if any page carried one.
func (p *Paginator) TotalItems() (int, bool) {
	if p.total == nil {
		return 0, false
	}
	return *p.total, true
}

// PagesFetched returns the number of pages fetched so far.
func (p *Paginator) PagesFetched() int { return p.pages }

// Exhausted reports whether the last page has been fetched.
func (p *Paginator) Exhausted() bool { return p.exhausted }
