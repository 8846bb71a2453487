// Package extract pulls plain text out of uploaded resume files.
package extract

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

var ErrUnsupportedType = errors.New("unsupported file type")

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeDOC  = "application/msword"
	MimeText = "text/plain"
)

// Kind normalises a MIME type, file name or extension to one of the Mime constants.
func Kind(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(s, ";"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if !strings.Contains(s, "/") {
		ext := filepath.Ext(s)
		if ext == "" {
			ext = "." + s
		}
		switch ext {
		case ".pdf":
			return MimePDF
		case ".docx":
			return MimeDOCX
		case ".doc":
			return MimeDOC
		case ".txt":
			return MimeText
		}
		return s
	}
	return s
}

// Text returns the plain text of the document. kind may be a MIME type or an extension.
func Text(ctx context.Context, r io.ReaderAt, size int64, kind string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch Kind(kind) {
	case MimeText:
		b, err := io.ReadAll(io.NewSectionReader(r, 0, size))
		if err != nil {
			return "", err
		}
		return string(b), nil
	case MimePDF:
		return pdfText(ctx, r, size)
	case MimeDOCX:
		return docxText(r, size)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
}

func pdfText(ctx context.Context, r io.ReaderAt, size int64) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("failed to read pdf: %v", p)
		}
	}()
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		t, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		b.WriteString(t)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

var (
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:cr/>`)
	tabTag       = regexp.MustCompile(`<w:tab/>`)
	anyTag       = regexp.MustCompile(`<[^>]+>`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

func docxText(r io.ReaderAt, size int64) (string, error) {
	doc, err := docx.ReadDocxFromMemory(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()
	return StripWordXML(doc.Editable().GetContent()), nil
}

// StripWordXML drops WordprocessingML markup and keeps paragraph breaks.
func StripWordXML(x string) string {
	x = paragraphEnd.ReplaceAllString(x, "\n")
	x = tabTag.ReplaceAllString(x, "\t")
	x = anyTag.ReplaceAllString(x, "")
	x = html.UnescapeString(x)
	x = blankLines.ReplaceAllString(x, "\n\n")
	return strings.TrimSpace(x)
}
