package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// OutputWriter persists a finished manifest.
type OutputWriter interface {
	Write(m *Manifest) error
	Validate() error
}

// JSONWriter writes the manifest as a single JSON document.
type JSONWriter struct {
	filename string
}

// NewJSONWriter returns a writer targeting filename.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("json manifest path cannot be empty")
	}
	return &JSONWriter{filename: filename}, nil
}

// Write finalizes m and stores the result atomically.
func (jw *JSONWriter) Write(m *Manifest) error {
	data, err := m.Finalize()
	if err != nil {
		return fmt.Errorf("finalize manifest: %w", err)
	}
	if err := ensureDir(jw.filename); err != nil {
		return err
	}
	if err := writeFileAtomic(jw.filename, data); err != nil {
		return fmt.Errorf("write json manifest: %w", err)
	}
	return nil
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	return validateNonEmpty(jw.filename, "json")
}

// CSVWriter writes a flat, human-oriented index of the manifest. Sequences
// are joined with "; " so it is not meant to be read back.
type CSVWriter struct {
	filename string
}

// NewCSVWriter returns a writer targeting filename.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("csv index path cannot be empty")
	}
	return &CSVWriter{filename: filename}, nil
}

// Write stores the current records of m.
func (cw *CSVWriter) Write(m *Manifest) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	header := []string{"id", "title", "author", "genres", "comment_count", "image_url", "text_path", "image_path"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, book := range m.Records() {
		record := []string{
			strconv.Itoa(int(book.ID)),
			book.Title,
			book.Author,
			strings.Join(book.Genres, "; "),
			strconv.Itoa(len(book.Comments)),
			book.ImageURL,
			book.TextPath,
			book.ImagePath,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}

	if err := ensureDir(cw.filename); err != nil {
		return err
	}
	if err := writeFileAtomic(cw.filename, buf.Bytes()); err != nil {
		return fmt.Errorf("write csv index: %w", err)
	}
	return nil
}

// Validate ensures the CSV file exists and is not empty.
func (cw *CSVWriter) Validate() error {
	return validateNonEmpty(cw.filename, "csv")
}

func validateNonEmpty(filename, kind string) error {
	info, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}

// NewOutputWriter builds the writer for format ("json" or "dual").
func NewOutputWriter(format, filename string) (OutputWriter, error) {
	switch format {
	case "json":
		return NewJSONWriter(filename)
	case "dual":
		csvFilename := strings.TrimSuffix(filename, ".json") + ".csv"
		return NewDualWriter(filename, csvFilename)
	default:
		return nil, fmt.Errorf("unsupported manifest format: %s", format)
	}
}
