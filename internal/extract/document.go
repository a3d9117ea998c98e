package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/richardlehane/mscfb"
	"github.com/rs/zerolog/log"
)

// DocxText extracts raw text from an OOXML .docx package: it is a zip
// archive, and word/document.xml holds the body as <w:t> runs. No OOXML
// library is present in this module's dependency set, so the run text is
// pulled with a tag-stripping pass in the same regex idiom the teacher
// uses for ad-hoc HTML scraping.
type DocxText struct{}

func NewDocxText() *DocxText { return &DocxText{} }

func (d *DocxText) Name() string { return "DocxText" }

var wordTagStrip = regexp.MustCompile(`<[^>]+>`)

func (d *DocxText) Extract(ctx context.Context, src Source) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(src.Input.FileBytes), int64(len(src.Input.FileBytes)))
	if err != nil {
		return "", fmt.Errorf("opening docx package: %w", err)
	}

	var documentXML []byte
	for _, f := range reader.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening word/document.xml: %w", err)
		}
		documentXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("reading word/document.xml: %w", err)
		}
		break
	}
	if documentXML == nil {
		return "", fmt.Errorf("word/document.xml not found in docx package")
	}

	text := strings.ReplaceAll(string(documentXML), "</w:p>", "</w:p>\n")
	text = wordTagStrip.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("docx produced no text")
	}
	return text, nil
}

// DocText is the best-effort legacy .doc (OLE compound file) extractor.
// It walks the compound file for the WordDocument stream via mscfb and
// keeps runs of printable characters — legacy binary Word layout is not
// decoded structurally, matching the same best-effort spirit as the
// PDF embedded-text heuristic below.
type DocText struct{}

func NewDocText() *DocText { return &DocText{} }

func (d *DocText) Name() string { return "DocText" }

var printableRun = regexp.MustCompile(`[\x20-\x7E]{4,}`)

func (d *DocText) Extract(ctx context.Context, src Source) (string, error) {
	doc, err := mscfb.New(bytes.NewReader(src.Input.FileBytes))
	if err != nil {
		return "", fmt.Errorf("opening legacy doc container: %w", err)
	}

	var wordStream []byte
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if !strings.EqualFold(entry.Name, "WordDocument") {
			continue
		}
		buf := make([]byte, entry.Size)
		if _, readErr := io.ReadFull(doc, buf); readErr != nil && readErr != io.ErrUnexpectedEOF {
			return "", fmt.Errorf("reading WordDocument stream: %w", readErr)
		}
		wordStream = buf
		break
	}
	if wordStream == nil {
		return "", fmt.Errorf("WordDocument stream not found")
	}

	runs := printableRun.FindAll(wordStream, -1)
	var b strings.Builder
	for _, run := range runs {
		b.Write(run)
		b.WriteString(" ")
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("doc produced no readable text")
	}
	return text, nil
}

// PdfTextThenOCR first tries a best-effort embedded-text scan (no PDF
// parsing library is present in this module's dependency set), then falls
// back to the OCR collaborator when embedded text falls short of
// MinPDFChars (§4.10, §8 boundary case).
//
// §4.3 calls for rendering pages up to MaxPDFPages at 2x scale and OCRing
// each individually; no PDF-rasterization library is present in the pack
// (see DESIGN.md), so this degrades to a single whole-document OCR pass.
// countPDFPages still bounds the page count logged, to flag scanned PDFs
// past MaxPDFPages that this pass cannot fully honor.
type PdfTextThenOCR struct {
	ocr         *OCRClient
	minPDFChars int
	maxPDFPages int
}

func NewPdfTextThenOCR(ocr *OCRClient, minPDFChars, maxPDFPages int) *PdfTextThenOCR {
	return &PdfTextThenOCR{ocr: ocr, minPDFChars: minPDFChars, maxPDFPages: maxPDFPages}
}

func (p *PdfTextThenOCR) Name() string { return "PdfTextThenOCR" }

var pdfTextOperator = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)

func (p *PdfTextThenOCR) Extract(ctx context.Context, src Source) (string, error) {
	embedded := extractEmbeddedPDFText(src.Input.FileBytes)
	if len([]rune(embedded)) >= p.minPDFChars {
		return embedded, nil
	}

	if p.ocr == nil || p.ocr.url == "" {
		if embedded != "" {
			return embedded, nil
		}
		return "", fmt.Errorf("embedded PDF text below minimum and no OCR configured")
	}

	pages := countPDFPages(src.Input.FileBytes)
	if pages > p.maxPDFPages {
		log.Warn().
			Int("pages", pages).
			Int("maxPDFPages", p.maxPDFPages).
			Str("filename", src.Input.Filename).
			Msg("pdf exceeds max page count, OCR runs over the whole document rather than per page")
	}

	var b strings.Builder
	b.WriteString(embedded)
	text, err := p.ocr.Recognize(ctx, src.Input.FileBytes, src.Input.Filename)
	if err == nil {
		b.WriteString(" ")
		b.WriteString(text)
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("pdf produced no text via embedded scan or OCR")
	}
	return out, nil
}

func extractEmbeddedPDFText(pdf []byte) string {
	matches := pdfTextOperator.FindAllSubmatch(pdf, -1)
	var b strings.Builder
	for _, m := range matches {
		b.Write(unescapePDFString(m[1]))
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String())
}

func unescapePDFString(s []byte) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, s[i])
			}
			continue
		}
		out = append(out, s[i])
	}
	return out
}

var pageObjectPattern = regexp.MustCompile(`/Type\s*/Page[^s]`)

func countPDFPages(pdf []byte) int {
	return len(pageObjectPattern.FindAll(pdf, -1))
}
