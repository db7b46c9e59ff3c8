package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/hpml/internal/apperr"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses a CSV stream with a header row. A leading UTF-8 BOM is
// ignored and header names are trimmed. A stream without data rows yields
// apperr.ErrEmptyInput.
func ReadCSV(r io.Reader) (*Frame, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnreadableInput, err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnreadableInput, err)
	}
	if len(records) == 0 {
		return nil, apperr.ErrEmptyInput
	}
	return &Frame{Header: header, Records: records}, nil
}

// WriteCSV writes the frame with its header. No BOM is written.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(f.Records); err != nil {
		return err
	}
	return cw.Error()
}

// ReadFile reads a CSV or XLSX file, chosen by extension.
func ReadFile(path string) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path)
	case ".csv", "":
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("dataset: open %s: %w", path, err)
		}
		defer fh.Close()
		return ReadCSV(fh)
	default:
		return nil, fmt.Errorf("%w: %s", apperr.ErrUnsupportedFile, filepath.Ext(path))
	}
}

// WriteFile writes f as CSV or XLSX, chosen by extension. Parent
// directories are created.
func WriteFile(path string, f *Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("dataset: mkdir: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return WriteXLSX(path, f)
	case ".csv":
		fh, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("dataset: create %s: %w", path, err)
		}
		if err := WriteCSV(fh, f); err != nil {
			_ = fh.Close()
			return fmt.Errorf("dataset: write %s: %w", path, err)
		}
		return fh.Close()
	default:
		return fmt.Errorf("%w: %s", apperr.ErrUnsupportedFile, filepath.Ext(path))
	}
}
