package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-archive-books/models"
	"github.com/aluiziolira/go-archive-books/parser"
)

var (
	// ErrManifestClosed is returned when the manifest is used after Finalize.
	ErrManifestClosed = errors.New("manifest: finalized")
	// ErrDuplicateBook is returned when a book ID is added twice.
	ErrDuplicateBook = errors.New("manifest: duplicate book id")
)

// Manifest accumulates archived books in insertion order and serializes them
// once at the end of a run.
type Manifest struct {
	mu        sync.Mutex
	books     []*models.Book
	seen      map[models.BookID]struct{}
	rejected  map[string]int
	finalized bool
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		books:    make([]*models.Book, 0),
		seen:     make(map[models.BookID]struct{}),
		rejected: make(map[string]int),
	}
}

// Add appends a record. Invalid records and repeated IDs are rejected.
func (m *Manifest) Add(book *models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return ErrManifestClosed
	}
	if err := parser.ValidateBook(book); err != nil {
		m.rejected["invalid_record"]++
		return fmt.Errorf("manifest: %w", err)
	}
	if _, ok := m.seen[book.ID]; ok {
		m.rejected["duplicate_id"]++
		return fmt.Errorf("%w: %d", ErrDuplicateBook, book.ID)
	}
	m.seen[book.ID] = struct{}{}
	m.books = append(m.books, book)
	return nil
}

// Len reports the number of accepted records.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.books)
}

// Records returns a snapshot of the accepted records.
func (m *Manifest) Records() []*models.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Book, len(m.books))
	copy(out, m.books)
	return out
}

// Rejections returns counts of rejected records by reason.
func (m *Manifest) Rejections() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.rejected))
	for k, v := range m.rejected {
		out[k] = v
	}
	return out
}

// Finalize serializes the manifest as a JSON array. It may be called once;
// the manifest accepts no records afterwards.
func (m *Manifest) Finalize() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return nil, ErrManifestClosed
	}
	m.finalized = true
	return Encode(m.books)
}

// Encode renders books as an indented JSON array without HTML escaping.
func Encode(books []*models.Book) ([]byte, error) {
	if books == nil {
		books = []*models.Book{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(books); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a serialized manifest.
func Decode(data []byte) ([]*models.Book, error) {
	var books []*models.Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	for i, book := range books {
		if book == nil {
			return nil, fmt.Errorf("decode manifest: entry %d is null", i)
		}
		if book.Comments == nil {
			book.Comments = []string{}
		}
		if book.Genres == nil {
			book.Genres = []string{}
		}
	}
	return books, nil
}
