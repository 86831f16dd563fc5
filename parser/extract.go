package parser

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-archive-books/models"
)

var (
	// ErrMissingHeading is returned when a detail page has no title heading.
	ErrMissingHeading = errors.New("parser: missing heading")
	// ErrMissingThumbnail is returned when a detail page has no cover image.
	ErrMissingThumbnail = errors.New("parser: missing thumbnail")
)

// Selectors are the CSS selectors used against listing and detail pages.
// Comment and Genre name containers; CommentText and GenreLink are looked up
// inside them.
type Selectors struct {
	BookLink    string
	Heading     string
	Thumbnail   string
	Comment     string
	CommentText string
	Genre       string
	GenreLink   string
	Pagination  string
}

// DefaultSelectors matches the tululu.org markup.
func DefaultSelectors() Selectors {
	return Selectors{
		BookLink:    ".bookimage a[href]",
		Heading:     "h1",
		Thumbnail:   ".bookimage img[src]",
		Comment:     ".texts",
		CommentText: "span",
		Genre:       "span.d_book",
		GenreLink:   "a",
		Pagination:  "a.npage",
	}
}

// Document is a parsed HTML page together with the URL it was served from.
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// NewDocument parses body as HTML. pageURL anchors relative links.
func NewDocument(body []byte, pageURL string) (*Document, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url %q: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html from %s: %w", pageURL, err)
	}
	return &Document{doc: doc, base: base}, nil
}

// URL returns the page URL the document was parsed against.
func (d *Document) URL() string {
	return d.base.String()
}

// Absolute resolves href against the document URL.
func (d *Document) Absolute(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	return d.base.ResolveReference(ref).String(), nil
}

// Texts returns the text of every element matching selector, in document order.
func (d *Document) Texts(selector string) []string {
	sel := d.doc.Find(selector)
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

// Attrs returns attr of every element matching selector that carries it.
func (d *Document) Attrs(selector, attr string) []string {
	sel := d.doc.Find(selector)
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok {
			out = append(out, v)
		}
	})
	return out
}

// ChildTexts returns, for every element matching container, the text of its
// first descendant matching child. Containers without such a descendant are
// skipped.
func (d *Document) ChildTexts(container, child string) []string {
	sel := d.doc.Find(container)
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if c := s.Find(child).First(); c.Length() > 0 {
			out = append(out, c.Text())
		}
	})
	return out
}

// TextsWithinFirst returns the text of every element matching child inside
// the first element matching container.
func (d *Document) TextsWithinFirst(container, child string) []string {
	sel := d.doc.Find(container).First().Find(child)
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

// FirstText returns the text of the first element matching selector.
func (d *Document) FirstText(selector string) (string, bool) {
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Text(), true
}

// FirstAttr returns attr of the first element matching selector.
func (d *Document) FirstAttr(selector, attr string) (string, bool) {
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Attr(attr)
}

// LocateBooks returns the book detail hrefs found on a listing page, as they
// appear in the markup.
func LocateBooks(d *Document, sel Selectors) []string {
	return d.Attrs(sel.BookLink, "href")
}

// LastPage reads the page count from the last pagination control. Pages
// without pagination report a single page.
func LastPage(d *Document, sel Selectors) (int, error) {
	labels := d.Texts(sel.Pagination)
	if len(labels) == 0 {
		return 1, nil
	}
	last := strings.TrimSpace(labels[len(labels)-1])
	n, err := strconv.Atoi(last)
	if err != nil {
		return 0, fmt.Errorf("pagination label %q is not a page number: %w", last, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("pagination label %q is not a page number", last)
	}
	return n, nil
}

// ExtractBook reads book metadata from a detail page. The returned record
// carries no ID or archive paths.
func ExtractBook(d *Document, sel Selectors) (*models.Book, error) {
	heading, ok := d.FirstText(sel.Heading)
	if !ok {
		return nil, ErrMissingHeading
	}
	title, author := SplitHeading(heading)

	src, ok := d.FirstAttr(sel.Thumbnail, "src")
	if !ok {
		return nil, ErrMissingThumbnail
	}
	imageURL, err := d.Absolute(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingThumbnail, err)
	}

	return &models.Book{
		Title:    title,
		Author:   author,
		ImageURL: imageURL,
		Comments: d.ChildTexts(sel.Comment, sel.CommentText),
		Genres:   d.TextsWithinFirst(sel.Genre, sel.GenreLink),
	}, nil
}
