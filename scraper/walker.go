package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-archive-books/models"
	"github.com/aluiziolira/go-archive-books/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Walker enumerates book detail URLs across category listing pages.
type Walker struct {
	fetcher PageFetcher
	sel     parser.Selectors
	cache   *lru.Cache[string, *Page]

	pagesFetched int
}

// NewWalker builds a walker that memoises up to cacheSize listing pages.
func NewWalker(f PageFetcher, sel parser.Selectors, cacheSize int) (*Walker, error) {
	if f == nil {
		return nil, fmt.Errorf("walker needs a fetcher")
	}
	cache, err := lru.New[string, *Page](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("listing cache: %w", err)
	}
	return &Walker{fetcher: f, sel: sel, cache: cache}, nil
}

// PagesFetched reports how many listing pages went over the wire.
func (w *Walker) PagesFetched() int {
	return w.pagesFetched
}

// ListingURL returns the URL of a category page. A trailing slash on the
// category URL is kept on the page URL.
func ListingURL(categoryURL string, page int) (string, error) {
	u, err := url.Parse(categoryURL)
	if err != nil {
		return "", fmt.Errorf("parse category url %q: %w", categoryURL, err)
	}
	trailing := strings.HasSuffix(u.Path, "/")
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strconv.Itoa(page)
	if trailing {
		u.Path += "/"
	}
	u.RawPath = ""
	return u.String(), nil
}

// DiscoverLastPage reads the page count of a category from its first
// listing page.
func (w *Walker) DiscoverLastPage(ctx context.Context, categoryURL string) (int, error) {
	r := models.PageRange{Start: 1}
	doc, err := w.listing(ctx, categoryURL, 1, r)
	if err != nil {
		return 0, err
	}
	last, err := parser.LastPage(doc, w.sel)
	if err != nil {
		return 0, &RangeError{Range: r, Page: 1, URL: doc.URL(), Reason: "unreadable pagination", Err: err}
	}
	return last, nil
}

// Walk returns book detail URLs for every page in r, in page order and then
// document order. An unbounded range is resolved against the discovered
// page count first. Any failure aborts the walk and returns no URLs.
func (w *Walker) Walk(ctx context.Context, categoryURL string, r models.PageRange) ([]string, error) {
	if r.Start < 1 {
		return nil, &RangeError{Range: r, Reason: "start page must be at least 1"}
	}
	if r.Bounded() && r.End < r.Start {
		return nil, &RangeError{Range: r, Reason: "end page is before start page"}
	}

	if !r.Bounded() {
		last, err := w.DiscoverLastPage(ctx, categoryURL)
		if err != nil {
			return nil, err
		}
		if last < r.Start {
			return nil, &RangeError{Range: r, Reason: fmt.Sprintf("category has only %d pages", last)}
		}
		r.End = last
		slog.Debug("discovered category size",
			slog.String("category", categoryURL),
			slog.Int("last_page", last),
		)
	}

	var urls []string
	for page := r.Start; page <= r.End; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := w.listing(ctx, categoryURL, page, r)
		if err != nil {
			return nil, err
		}
		hrefs := parser.LocateBooks(doc, w.sel)
		for _, href := range hrefs {
			abs, err := doc.Absolute(href)
			if err != nil {
				return nil, fmt.Errorf("listing page %d: %w", page, err)
			}
			urls = append(urls, abs)
		}
		slog.Debug("listing page walked",
			slog.Int("page", page),
			slog.Int("books", len(hrefs)),
		)
	}
	return urls, nil
}

func (w *Walker) listing(ctx context.Context, categoryURL string, page int, r models.PageRange) (*parser.Document, error) {
	target, err := ListingURL(categoryURL, page)
	if err != nil {
		return nil, err
	}

	p, ok := w.cache.Get(target)
	if !ok {
		p, err = w.fetcher.Fetch(ctx, PhaseListing, target, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("listing page %d: %w", page, err)
		}
		w.pagesFetched++
		if p.Redirected() {
			return nil, &RangeError{Range: r, Page: page, URL: target, Reason: "listing page redirected to " + p.Location()}
		}
		w.cache.Add(target, p)
	}

	doc, err := parser.NewDocument(p.Body, target)
	if err != nil {
		return nil, fmt.Errorf("listing page %d: %w", page, err)
	}
	return doc, nil
}
