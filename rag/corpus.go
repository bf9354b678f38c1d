package rag

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// LoadCorpus reads the reference corpus from path. Flat UTF-8 text is the
// normal case; a ".pdf" source has its plain text extracted instead.
func LoadCorpus(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return loadPDF(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading corpus file: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("corpus file %s is empty", path)
	}
	return string(data), nil
}

func loadPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("no text extracted from %s", path)
	}
	return buf.String(), nil
}
