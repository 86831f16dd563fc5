// Package models defines data structures for the archiver.
package models

import (
	"fmt"
	"time"
)

// BookID identifies a book on the source site.
type BookID int

// Book is one archived catalogue entry as recorded in the manifest.
type Book struct {
	ID        BookID   `json:"id"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	ImageURL  string   `json:"image_url"`
	Comments  []string `json:"comments"`
	Genres    []string `json:"genres"`
	TextPath  string   `json:"text_path"`
	ImagePath string   `json:"image_path"`
}

// PageRange selects category listing pages, both ends inclusive.
// A zero End asks the walker to discover the last page.
type PageRange struct {
	Start int
	End   int
}

// Bounded reports whether the caller supplied an end page.
func (r PageRange) Bounded() bool {
	return r.End > 0
}

func (r PageRange) String() string {
	if !r.Bounded() {
		return fmt.Sprintf("[%d..last]", r.Start)
	}
	return fmt.Sprintf("[%d..%d]", r.Start, r.End)
}

// RunResult holds the overall outcome of an archive run.
type RunResult struct {
	Books         []*Book
	StartTime     time.Time
	EndTime       time.Time
	Attempted     int
	AbsentCount   int
	ImagesMissing int
	ErrorCount    int
	FailedIDs     []BookID
	ErrorsByType  map[string]int
	RequestCount  int
	PageCount     int
}
