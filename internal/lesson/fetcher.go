package lesson

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/MrWong99/diktat/internal/observe"
	"github.com/MrWong99/diktat/internal/resilience"
)

// ErrBadStatus is matched by errors for non-2xx responses of a lesson host.
var ErrBadStatus = errors.New("lesson: unexpected HTTP status")

// maxDocumentBytes caps the size of a lesson document.
const maxDocumentBytes = 8 << 20

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lesson: GET %s: status %d", e.URL, e.Code)
}

// Is makes errors.Is(err, ErrBadStatus) hold.
func (e *StatusError) Is(target error) bool { return target == ErrBadStatus }

// Fetcher downloads lesson documents over HTTP.
//
// Documents are cached per URL for a TTL. Each URL is served by a
// [resilience.FallbackGroup]: the URL itself first, then any mirrors
// registered for it, every entry behind its own circuit breaker. Concurrent
// requests for the same URL share one download.
//
// A Fetcher is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	breaker   resilience.CircuitBreakerConfig
	mirrors   map[string][]string
	metrics   *observe.Metrics
	cacheSize int
	cacheTTL  time.Duration

	docs   *expirable.LRU[string, *Document]
	groups *lru.Cache[string, *resilience.FallbackGroup[string]]
	flight singleflight.Group
}

// FetcherOption configures a [Fetcher].
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the HTTP client. Default: a client without timeout;
// the per-request timeout comes from [WithTimeout].
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout bounds every single download. Default: 10s.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.timeout = d }
}

// WithCache sets the number of cached documents and how long they stay
// fresh. Defaults: 32 documents, 10 minutes.
func WithCache(size int, ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.cacheSize = size
		f.cacheTTL = ttl
	}
}

// WithMirrors registers mirrors tried in order when primary fails.
func WithMirrors(primary string, mirrors ...string) FetcherOption {
	return func(f *Fetcher) { f.mirrors[primary] = append(f.mirrors[primary], mirrors...) }
}

// WithBreaker sets the circuit breaker tuning used per source.
func WithBreaker(cfg resilience.CircuitBreakerConfig) FetcherOption {
	return func(f *Fetcher) { f.breaker = cfg }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// NewFetcher returns a configured [Fetcher].
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{},
		timeout:   10 * time.Second,
		mirrors:   make(map[string][]string),
		cacheSize: 32,
		cacheTTL:  10 * time.Minute,
	}
	for _, o := range opts {
		o(f)
	}
	if f.metrics == nil {
		f.metrics = observe.DefaultMetrics()
	}
	if f.breaker.IsFailure == nil {
		f.breaker.IsFailure = isSourceFailure
	}
	f.cacheSize = max(f.cacheSize, 1)
	f.docs = expirable.NewLRU[string, *Document](f.cacheSize, nil, f.cacheTTL)
	// Groups hold breaker state; keep more of them than documents so a
	// source that keeps failing is remembered after its document expired.
	f.groups, _ = lru.New[string, *resilience.FallbackGroup[string]](4 * f.cacheSize)
	return f
}

// isSourceFailure counts server errors, transport errors, download timeouts
// and undecodable bodies against a source. A 4xx is the caller's problem, and
// a cancelled caller context says nothing about the host.
func isSourceFailure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return true
}

// Document returns the document at url, from cache when fresh.
func (f *Fetcher) Document(ctx context.Context, url string) (*Document, error) {
	if doc, ok := f.docs.Get(url); ok {
		f.metrics.RecordLessonFetch(ctx, "cache", "ok", true)
		return doc, nil
	}

	ctx, span := observe.StartSpan(ctx, "lesson.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("lesson.url", url))

	// The shared download outlives any single caller; each download is
	// still bounded by the fetch timeout.
	detached := context.WithoutCancel(ctx)
	ch := f.flight.DoChan(url, func() (any, error) {
		doc, err := resilience.ExecuteWithResult(detached, f.group(url), func(ctx context.Context, name, src string) (*Document, error) {
			doc, err := f.download(ctx, src)
			status := "ok"
			if err != nil {
				status = "error"
			}
			f.metrics.RecordLessonFetch(ctx, name, status, false)
			return doc, err
		})
		if err != nil {
			return nil, err
		}
		f.docs.Add(url, doc)
		return doc, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return nil, ctx.Err()
	}
	span.SetAttributes(attribute.Bool("lesson.shared", res.Shared))
	if res.Err != nil {
		span.RecordError(res.Err)
		return nil, res.Err
	}
	return res.Val.(*Document), nil
}

// Lesson fetches the document at url and returns section id.
func (f *Fetcher) Lesson(ctx context.Context, url, id string) (Lesson, error) {
	doc, err := f.Document(ctx, url)
	if err != nil {
		return Lesson{}, err
	}
	return doc.Lesson(id)
}

// Invalidate drops url from the document cache.
func (f *Fetcher) Invalidate(url string) {
	f.docs.Remove(url)
}

// Sources reports the breaker state of every source of url. It is empty when
// url has never been fetched.
func (f *Fetcher) Sources(url string) []resilience.EntryState {
	g, ok := f.groups.Peek(url)
	if !ok {
		return nil
	}
	return g.States()
}

// Ready returns an error when every source of url has an open breaker.
func (f *Fetcher) Ready(url string) error {
	g, ok := f.groups.Peek(url)
	if !ok || g.Available() {
		return nil
	}
	return fmt.Errorf("lesson: every source of %s is unavailable", url)
}

func (f *Fetcher) group(url string) *resilience.FallbackGroup[string] {
	if g, ok := f.groups.Get(url); ok {
		return g
	}
	g := resilience.NewFallbackGroup(url, "primary", resilience.FallbackConfig{CircuitBreaker: f.breaker})
	for i, m := range f.mirrors[url] {
		g.AddFallback(fmt.Sprintf("mirror-%d", i+1), m)
	}
	// Concurrent first fetches of url are collapsed by singleflight.
	f.groups.Add(url, g)
	return g
}

func (f *Fetcher) download(parent context.Context, url string) (*Document, error) {
	ctx, cancel := context.WithTimeout(parent, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("lesson: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		if parent.Err() == nil && ctx.Err() != nil {
			// Our own timeout fired: the host is too slow.
			return nil, fmt.Errorf("lesson: GET %s: no response within %s", url, f.timeout)
		}
		return nil, fmt.Errorf("lesson: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	return Decode(io.LimitReader(resp.Body, maxDocumentBytes))
}
