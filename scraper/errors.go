package scraper

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-archive-books/models"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// RangeError reports an invalid category page range. It aborts the run.
type RangeError struct {
	Range  models.PageRange
	Page   int
	URL    string
	Reason string
	Err    error
}

func (e *RangeError) Error() string {
	msg := fmt.Sprintf("page range %s: %s", e.Range, e.Reason)
	if e.Page > 0 {
		msg = fmt.Sprintf("page range %s: page %d: %s", e.Range, e.Page, e.Reason)
	}
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RangeError) Unwrap() error {
	return e.Err
}

// FetchKind tells why a single book could not be resolved.
type FetchKind int

const (
	// KindTransport covers network failures and unexpected HTTP statuses.
	KindTransport FetchKind = iota
	// KindParse means the detail page lacked a mandatory element.
	KindParse
	// KindImageUnavailable means the cover redirected away.
	KindImageUnavailable
)

func (k FetchKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindImageUnavailable:
		return "image_unavailable"
	default:
		return "unknown"
	}
}

// FetchError is a per-book failure. The run moves on to the next book.
type FetchError struct {
	Kind   FetchKind
	BookID models.BookID
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("book %d: %s", e.BookID, e.Kind)
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ArchiveError reports a failure to persist a resolved book.
type ArchiveError struct {
	BookID models.BookID
	Err    error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("book %d: archive: %v", e.BookID, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var rangeErr *RangeError
	if errors.As(err, &rangeErr) {
		return "range"
	}
	var archiveErr *ArchiveError
	if errors.As(err, &archiveErr) {
		return "archive"
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.Kind != KindTransport {
		return fetchErr.Kind.String()
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	return "other"
}
