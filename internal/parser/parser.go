// Package parser extracts plain text from uploaded documents, keyed by file
// extension. Given a file path it returns the plain-text content, or
// ErrUnsupported when no parser is registered for the extension. Parsers never
// interpret document semantics; they only surface text for paragraph chunking.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned by Extract for file extensions with no
// registered parser. Callers skip such files silently.
var ErrUnsupported = errors.New("parser: unsupported file type")

// extractFunc reads one file and returns its plain-text content.
type extractFunc func(path string) (string, error)

// extractors maps a lowercase file extension (with dot) to its parser.
var extractors = map[string]extractFunc{
	".txt":  extractPlainText,
	".md":   extractPlainText,
	".csv":  extractCSV,
	".docx": extractDocx,
}

// Supported reports whether files with the given extension can be parsed.
// ext must include the leading dot; matching is case-insensitive.
func Supported(ext string) bool {
	_, ok := extractors[strings.ToLower(ext)]
	return ok
}

// Extract returns the plain-text content of the file at path, selected by its
// extension. Unregistered extensions return ErrUnsupported.
func Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := extractors[ext]
	if !ok {
		return "", ErrUnsupported
	}
	return fn(path)
}

// extractPlainText reads the file verbatim. Used for .txt and .md.
func extractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("parser: read %s: %w", path, err)
	}
	return string(data), nil
}

// extractCSV renders a CSV file as one line of tab-separated values per
// record, so the whole table lands in a single indexable paragraph.
func extractCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("parser: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows in user uploads

	var sb strings.Builder
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parser: csv %s: %w", path, err)
		}
		sb.WriteString(strings.Join(record, "\t"))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
