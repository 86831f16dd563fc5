package pipeline

import (
	"errors"
	"fmt"
)

// DualWriter outputs the JSON manifest and a CSV index side by side.
type DualWriter struct {
	jsonWriter *JSONWriter
	csvWriter  *CSVWriter
}

// NewDualWriter creates a writer for both outputs.
func NewDualWriter(jsonFilename, csvFilename string) (*DualWriter, error) {
	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create JSON writer: %w", err)
	}

	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}

	return &DualWriter{
		jsonWriter: jsonWriter,
		csvWriter:  csvWriter,
	}, nil
}

// Write finalizes the manifest into JSON, then writes the CSV index.
func (dw *DualWriter) Write(m *Manifest) error {
	if err := dw.jsonWriter.Write(m); err != nil {
		return fmt.Errorf("JSON write failed: %w", err)
	}

	if err := dw.csvWriter.Write(m); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}

	return nil
}

// Validate validates both output files.
func (dw *DualWriter) Validate() error {
	var errs []error

	if err := dw.jsonWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("JSON validation failed: %w", err))
	}

	if err := dw.csvWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("CSV validation failed: %w", err))
	}

	return errors.Join(errs...)
}
