package documents

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	errx "github.com/ragqa/server/internal/core/error"
	logx "github.com/ragqa/server/pkg/logger"
)

// ErrUnsupportedFormat is wrapped by ExtractText for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// Extractor turns raw document bytes into plain text.
type Extractor func(data []byte) (string, error)

var extractors = map[string]Extractor{
	"txt":  extractPlainText,
	"pdf":  extractPDF,
	"doc":  extractWord,
	"docx": extractWord,
}

// FileType returns the lower-cased extension of filename without the dot.
func FileType(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return strings.ToLower(filename)
	}
	return strings.ToLower(filename[i+1:])
}

// Supported reports whether an adapter exists for fileType.
func Supported(fileType string) bool {
	_, ok := extractors[fileType]
	return ok
}

// ExtractText picks the adapter for fileType. Every failure is an extraction error.
func ExtractText(fileType string, data []byte) (string, error) {
	extract, ok := extractors[fileType]
	if !ok {
		return "", errx.Extraction(fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileType), "failed to extract text")
	}
	text, err := extract(data)
	if err != nil {
		return "", errx.Extraction(err, "failed to extract text")
	}
	return text, nil
}

func extractPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text is not valid utf-8")
	}
	return string(data), nil
}

// extractPDF joins page texts with newlines. The parser panics on some
// malformed inputs, so panics are turned into errors.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "pdf_extractor").Msgf("panic recovered: %v", r)
			text, err = "", fmt.Errorf("malformed pdf")
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", i, err)
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// extractWord reads paragraph text from word/document.xml of an OOXML package.
func extractWord(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open word package: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("open document body: %w", err)
	}
	defer rc.Close()

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}
