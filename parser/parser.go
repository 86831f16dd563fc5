package parser

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aluiziolira/go-archive-books/models"
	"github.com/kennygrant/sanitize"
)

const (
	headingDelimiter = "::"
	maxNameBytes     = 255
	defaultImageExt  = "jpg"
)

var bookPathPattern = regexp.MustCompile(`/b(\d+)/?$`)

// ValidateBook ensures a record has the structural shape the manifest expects.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if b.ID <= 0 {
		return fmt.Errorf("book id must be positive, got %d", b.ID)
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("book %d missing title", b.ID)
	}
	if b.ImageURL != "" {
		u, err := url.Parse(b.ImageURL)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("book %d image url %q is not absolute", b.ID, b.ImageURL)
		}
	}
	if b.Comments == nil || b.Genres == nil {
		return fmt.Errorf("book %d has nil comments or genres", b.ID)
	}
	return nil
}

// SplitHeading splits a detail page heading on the first "::" into
// sanitized title and author halves. A heading without the delimiter is
// treated as a bare title.
func SplitHeading(heading string) (title, author string) {
	before, after, found := strings.Cut(heading, headingDelimiter)
	title = SanitizeFilename(before)
	if found {
		author = SanitizeFilename(after)
	}
	return title, author
}

// SanitizeFilename strips characters that are invalid in a file name on
// common filesystems and trims surrounding whitespace and trailing dots.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsControl(r) || r == utf8.RuneError {
			continue
		}
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			continue
		}
		b.WriteRune(r)
	}

	clean := strings.TrimSpace(b.String())
	clean = strings.TrimRight(clean, ". ")
	clean = strings.TrimSpace(clean)
	return truncateBytes(clean, maxNameBytes)
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}

// ParseBookID extracts the numeric identifier from a detail page URL such as
// https://tululu.org/b239/.
func ParseBookID(rawURL string) (models.BookID, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("parse book url %q: %w", rawURL, err)
	}
	match := bookPathPattern.FindStringSubmatch(u.Path)
	if match == nil {
		return 0, fmt.Errorf("book url %q has no b<id> segment", rawURL)
	}
	id, err := strconv.Atoi(match[1])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("book url %q has invalid id %q", rawURL, match[1])
	}
	return models.BookID(id), nil
}

// ImageExtension returns the lower-cased extension of the last path segment
// of imageURL, without the dot.
func ImageExtension(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return defaultImageExt
	}
	ext := strings.TrimPrefix(path.Ext(path.Base(u.Path)), ".")
	ext = strings.ToLower(sanitize.BaseName(ext))
	ext = strings.Trim(ext, ".-")
	if ext == "" {
		return defaultImageExt
	}
	return ext
}

// TextFilename is the archive name of a book's text payload.
func TextFilename(id models.BookID, title string) string {
	return archiveName(id, title, "txt")
}

// ImageFilename is the archive name of a book's cover image.
func ImageFilename(id models.BookID, title, imageURL string) string {
	return archiveName(id, title, ImageExtension(imageURL))
}

// archiveName builds "<id>. <title>.<ext>", shortening the title so the
// whole name fits in maxNameBytes.
func archiveName(id models.BookID, title, ext string) string {
	prefix := fmt.Sprintf("%d. ", id)
	suffix := "." + ext
	budget := maxNameBytes - len(prefix) - len(suffix)
	if len(title) > budget {
		title = strings.TrimRight(truncateBytes(title, budget), ". ")
	}
	return prefix + title + suffix
}
