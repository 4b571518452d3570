package knowledge

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	apperrors "github.com/duynguyendang/kpextract/pkg/common/errors"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Document is the plain-text view of a course file.
type Document struct {
	Path      string
	Title     string
	Text      string
	Truncated bool
}

type loader func(data []byte) (Document, error)

var loaders = map[string]loader{
	".txt":      textDocument,
	".md":       textDocument,
	".markdown": textDocument,
	".csv":      textDocument,
	".json":     textDocument,
	".yaml":     textDocument,
	".yml":      textDocument,
	".html":     htmlDocument,
	".htm":      htmlDocument,
	".docx":     docxDocument,
}

// LoadDocument reads path and converts it to text, keeping at most maxChars
// runes (no limit when maxChars <= 0).
func LoadDocument(path string, maxChars int) (Document, error) {
	load, ok := loaders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedDocument, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, path)
		}
		return Document{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("%w: %s is a directory", apperrors.ErrInvalidInput, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := load(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", apperrors.ErrUnsupportedDocument, path, err)
	}
	doc.Path = path
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	doc.Text, doc.Truncated = truncateRunes(strings.TrimSpace(doc.Text), maxChars)
	return doc, nil
}

func textDocument(data []byte) (Document, error) {
	text, err := decodeText(data)
	if err != nil {
		return Document{}, err
	}
	return Document{Text: text}, nil
}

// decodeText returns data as UTF-8. UTF-16 input needs a BOM; bytes that are
// neither UTF-16 nor valid UTF-8 are read as GB18030, which covers GBK and
// GB2312 course material.
func decodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", fmt.Errorf("decode utf-16: %w", err)
		}
		return string(out), nil
	case utf8.Valid(data):
		return strings.TrimPrefix(string(data), "\uFEFF"), nil
	}

	out, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decode gb18030: %w", err)
	}
	return string(out), nil
}

func truncateRunes(s string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}
