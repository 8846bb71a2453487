package extract_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/garnizeh/careerhub/internal/extract"
)

func TestKind(t *testing.T) {
	tests := map[string]string{
		"application/pdf":           extract.MimePDF,
		"text/plain; charset=utf-8": extract.MimeText,
		"cv.PDF":                    extract.MimePDF,
		".docx":                     extract.MimeDOCX,
		"docx":                      extract.MimeDOCX,
		"resume.doc":                extract.MimeDOC,
		"notes.txt":                 extract.MimeText,
		"image/png":                 "image/png",
	}
	for in, want := range tests {
		if got := extract.Kind(in); got != want {
			t.Fatalf("Kind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestText_Plain(t *testing.T) {
	data := []byte("Jane Doe\nGo developer")
	got, err := extract.Text(context.Background(), bytes.NewReader(data), int64(len(data)), "text/plain")
	if err != nil || got != string(data) {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestText_Unsupported(t *testing.T) {
	data := []byte("GIF89a")
	_, err := extract.Text(context.Background(), bytes.NewReader(data), int64(len(data)), "image/gif")
	if !errors.Is(err, extract.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := extract.Text(context.Background(), bytes.NewReader(data), int64(len(data)), "resume.doc"); !errors.Is(err, extract.ErrUnsupportedType) {
		t.Fatalf("legacy .doc should be unsupported, got %v", err)
	}
}

func TestText_BrokenPDF(t *testing.T) {
	data := []byte("not really a pdf")
	if _, err := extract.Text(context.Background(), bytes.NewReader(data), int64(len(data)), "cv.pdf"); err == nil {
		t.Fatalf("expected error for broken pdf")
	}
}

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml":            `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`,
	}
	for name, content := range files {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		f.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestText_Docx(t *testing.T) {
	data := buildDocx(t, `<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p><w:p><w:r><w:t>Go</w:t><w:tab/><w:t>SQL &amp; AWS</w:t></w:r></w:p>`)
	got, err := extract.Text(context.Background(), bytes.NewReader(data), int64(len(data)), extract.MimeDOCX)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "Jane Doe\nGo\tSQL & AWS" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestStripWordXML(t *testing.T) {
	in := `<w:p><w:t>a</w:t></w:p><w:p></w:p><w:p></w:p><w:p></w:p><w:p><w:t>b</w:t><w:br/><w:t>c</w:t></w:p>`
	if got := extract.StripWordXML(in); got != "a\n\nb\nc" {
		t.Fatalf("StripWordXML = %q", got)
	}
}

func TestText_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := []byte("x")
	if _, err := extract.Text(ctx, bytes.NewReader(data), 1, "text/plain"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
