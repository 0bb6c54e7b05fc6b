package parser

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFile writes content to name under a fresh temp dir and returns the path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func Test_Extract_PlainText(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "notes.txt", "hello world\n")
	got, err := Extract(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "hello world\n" {
		t.Errorf("want %q, got %q", "hello world\n", got)
	}
}

func Test_Extract_Markdown(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "readme.md", "# Title\n\nBody text.")
	got, err := Extract(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(got, "Body text.") {
		t.Errorf("markdown content missing from %q", got)
	}
}

func Test_Extract_CSV(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.csv", "name,age\nalice,30\nbob,41\n")
	got, err := Extract(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "name\tage\nalice\t30\nbob\t41\n"
	if got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func Test_Extract_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "slides.pptx", "binary junk")
	_, err := Extract(path)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("want ErrUnsupported, got %v", err)
	}
}

func Test_Extract_ExtensionCaseInsensitive(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "NOTES.TXT", "upper case name")
	got, err := Extract(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "upper case name" {
		t.Errorf("want %q, got %q", "upper case name", got)
	}
}

func Test_Supported(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want bool
	}{
		{".txt", true},
		{".md", true},
		{".csv", true},
		{".docx", true},
		{".pdf", false},
		{".pptx", false},
		{".TXT", true},
	}
	for _, tt := range tests {
		if got := Supported(tt.ext); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

// writeDocx builds a minimal DOCX archive containing the given paragraphs.
func writeDocx(t *testing.T, paragraphs ...string) string {
	t.Helper()

	var body strings.Builder
	body.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := w.Write([]byte(body.String())); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func Test_Extract_Docx(t *testing.T) {
	t.Parallel()

	path := writeDocx(t, "First paragraph.", "Second paragraph.")
	got, err := Extract(path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "First paragraph.\n\nSecond paragraph."
	if got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func Test_Extract_DocxNotAZip(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "broken.docx", "this is not a zip archive")
	if _, err := Extract(path); err == nil {
		t.Error("want error for malformed docx, got nil")
	}
}
