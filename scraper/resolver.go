package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/aluiziolira/go-archive-books/config"
	"github.com/aluiziolira/go-archive-books/models"
	"github.com/aluiziolira/go-archive-books/parser"
)

// ResolutionStatus tells whether a book exists on the site.
type ResolutionStatus int

const (
	StatusResolved ResolutionStatus = iota
	StatusAbsent
)

func (s ResolutionStatus) String() string {
	if s == StatusAbsent {
		return "absent"
	}
	return "resolved"
}

// Resolution is the outcome of resolving one book ID. Book is nil unless
// Status is StatusResolved.
type Resolution struct {
	Status    ResolutionStatus
	Book      *models.Book
	Text      string
	Image     []byte
	TextName  string
	ImageName string
	// ImageErr is set when the cover could not be retrieved. The book is
	// still resolved.
	ImageErr error
	// AbsentAt is the URL whose redirect marked the book absent.
	AbsentAt string
}

// Resolver turns a book ID into metadata and payloads.
type Resolver struct {
	fetcher    PageFetcher
	sel        parser.Selectors
	baseURL    *url.URL
	textURL    string
	skipText   bool
	skipImages bool
}

// NewResolver builds a resolver for the site described by cfg.
func NewResolver(f PageFetcher, sel parser.Selectors, cfg *config.Config) (*Resolver, error) {
	if f == nil {
		return nil, fmt.Errorf("resolver needs a fetcher")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	textURL, err := cfg.TextURL()
	if err != nil {
		return nil, err
	}
	return &Resolver{
		fetcher:    f,
		sel:        sel,
		baseURL:    base,
		textURL:    textURL,
		skipText:   cfg.SkipText,
		skipImages: cfg.SkipImages,
	}, nil
}

// DetailURL returns the detail page URL of a book.
func (r *Resolver) DetailURL(id models.BookID) string {
	return r.baseURL.ResolveReference(&url.URL{Path: fmt.Sprintf("/b%d/", id)}).String()
}

// Resolve fetches the text, the detail page and the cover of a book, in that
// order. A redirect on the text or detail request means the book is absent.
// Transport and extraction failures are returned as *FetchError.
func (r *Resolver) Resolve(ctx context.Context, id models.BookID) (Resolution, error) {
	if id <= 0 {
		return Resolution{}, &FetchError{Kind: KindParse, BookID: id, Err: fmt.Errorf("book id must be positive")}
	}

	var text string
	if !r.skipText {
		query := url.Values{"id": {strconv.Itoa(int(id))}}
		page, err := r.fetch(ctx, PhaseText, id, r.textURL, query)
		if err != nil {
			return Resolution{}, err
		}
		if page.Redirected() {
			return Resolution{Status: StatusAbsent, AbsentAt: page.URL}, nil
		}
		text = string(page.Body)
	}

	detailURL := r.DetailURL(id)
	page, err := r.fetch(ctx, PhaseDetail, id, detailURL, nil)
	if err != nil {
		return Resolution{}, err
	}
	if page.Redirected() {
		return Resolution{Status: StatusAbsent, AbsentAt: page.URL}, nil
	}

	doc, err := parser.NewDocument(page.Body, detailURL)
	if err != nil {
		return Resolution{}, &FetchError{Kind: KindParse, BookID: id, URL: detailURL, Err: err}
	}
	book, err := parser.ExtractBook(doc, r.sel)
	if err != nil {
		return Resolution{}, &FetchError{Kind: KindParse, BookID: id, URL: detailURL, Err: err}
	}
	if book.Title == "" {
		return Resolution{}, &FetchError{
			Kind:   KindParse,
			BookID: id,
			URL:    detailURL,
			Err:    fmt.Errorf("%w: heading has no title", parser.ErrMissingHeading),
		}
	}
	book.ID = id

	res := Resolution{
		Status: StatusResolved,
		Book:   book,
		Text:   text,
	}
	if !r.skipText {
		res.TextName = parser.TextFilename(id, book.Title)
	}
	if r.skipImages {
		return res, nil
	}

	img, err := r.fetch(ctx, PhaseImage, id, book.ImageURL, nil)
	if err != nil {
		return Resolution{}, err
	}
	if img.Redirected() {
		res.ImageErr = &FetchError{
			Kind:   KindImageUnavailable,
			BookID: id,
			URL:    book.ImageURL,
			Err:    fmt.Errorf("redirected to %q", img.Location()),
		}
		return res, nil
	}
	res.Image = img.Body
	res.ImageName = parser.ImageFilename(id, book.Title, book.ImageURL)
	return res, nil
}

func (r *Resolver) fetch(ctx context.Context, phase string, id models.BookID, rawURL string, query url.Values) (*Page, error) {
	page, err := r.fetcher.Fetch(ctx, phase, rawURL, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &FetchError{Kind: KindTransport, BookID: id, URL: rawURL, Err: err}
	}
	return page, nil
}
