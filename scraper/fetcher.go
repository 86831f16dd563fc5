package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-archive-books/config"
	"github.com/gocolly/colly/v2"
)

// Fetch phases used as metric labels.
const (
	PhaseListing = "listing"
	PhaseText    = "text"
	PhaseDetail  = "detail"
	PhaseImage   = "image"
)

// Page is a raw HTTP response. Redirects are never followed, so a 3xx
// status is returned as is.
type Page struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Redirected reports whether the server answered with a redirect, which the
// site uses to signal a missing resource.
func (p *Page) Redirected() bool {
	return p.StatusCode >= 300 && p.StatusCode < 400
}

// Location returns the redirect target, if any.
func (p *Page) Location() string {
	if p.Headers == nil {
		return ""
	}
	return p.Headers.Get("Location")
}

// PageFetcher issues a single GET without following redirects.
type PageFetcher interface {
	Fetch(ctx context.Context, phase, rawURL string, query url.Values) (*Page, error)
}

// Fetcher is a PageFetcher backed by a colly collector.
type Fetcher struct {
	collector *colly.Collector
	metrics   *Metrics

	requestCount int64
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("fetch timeout must be positive")
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(cfg.MaxBodySize),
	)
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	})
	collector.SetRedirectHandler(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	})

	return &Fetcher{
		collector: collector,
		metrics:   metrics,
	}, nil
}

// WithTransport swaps the HTTP transport, mostly for tests.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// RequestCount reports how many requests were issued.
func (f *Fetcher) RequestCount() int {
	return int(atomic.LoadInt64(&f.requestCount))
}

// Fetch performs a GET against rawURL with query merged into its query
// string. A 2xx or 3xx answer returns the page; any other status or a
// network failure returns a classified error.
func (f *Fetcher) Fetch(ctx context.Context, phase, rawURL string, query url.Values) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := withQuery(rawURL, query)
	if err != nil {
		return nil, err
	}

	collector := f.collector.Clone()
	collector.Context = ctx

	var (
		once     sync.Once
		page     *Page
		fetchErr error
		status   int
	)
	collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		atomic.AddInt64(&f.requestCount, 1)
		f.metrics.IncRequest(phase)
	})
	collector.OnResponse(func(r *colly.Response) {
		once.Do(func() {
			if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
				f.metrics.ObserveDuration(time.Since(start))
			}
			headers := http.Header{}
			if r.Headers != nil {
				headers = r.Headers.Clone()
			}
			status = r.StatusCode
			page = &Page{
				URL:        target,
				StatusCode: r.StatusCode,
				Headers:    headers,
				Body:       append([]byte(nil), r.Body...),
			}
		})
	})
	collector.OnError(func(r *colly.Response, err error) {
		once.Do(func() {
			if err == nil {
				err = errors.New("unknown colly error")
			}
			if r != nil {
				status = r.StatusCode
			}
			fetchErr = err
		})
	})

	visitErr := collector.Visit(target)
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fetchErr == nil && page == nil {
		fetchErr = visitErr
	}
	if fetchErr != nil {
		slog.Debug("fetch failed",
			slog.String("phase", phase),
			slog.String("url", target),
			slog.Any("error", fetchErr),
		)
		return nil, classifyError(fmt.Errorf("GET %s: %w", target, fetchErr), status)
	}
	if page == nil {
		return nil, fmt.Errorf("GET %s: no response", target)
	}
	if page.StatusCode < 200 || page.StatusCode >= 400 {
		return nil, classifyError(fmt.Errorf("GET %s: http status %d", target, page.StatusCode), page.StatusCode)
	}
	return page, nil
}

func withQuery(rawURL string, query url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return err
}
