package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"pdfchat-quiz/internal/models"
)

type Extractor interface {
	Extract(docs []models.Document) (string, error)
}

// DocumentExtractor turns uploaded documents into plain text.
type DocumentExtractor struct {
	markdown goldmark.Markdown
}

func NewExtractor() *DocumentExtractor {
	return &DocumentExtractor{
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

var pdfMagic = []byte("%PDF-")

// Extract concatenates the text of every page of every document in input
// order. The first document that cannot be read aborts the whole batch.
func (e *DocumentExtractor) Extract(docs []models.Document) (string, error) {
	var sb strings.Builder
	for _, doc := range docs {
		content, err := e.ExtractDocument(doc)
		if err != nil {
			return "", err
		}
		log.Debug().Str("file", doc.Filename).Int("chars", utf8.RuneCountInString(content)).Msg("Extracted document")
		sb.WriteString(content)
	}
	return sb.String(), nil
}

// ExtractDocument returns the text of a single document. Every failure is an
// *models.ExtractionError.
func (e *DocumentExtractor) ExtractDocument(doc models.Document) (content string, err error) {
	defer func() {
		// the pdf reader panics on some malformed cross reference tables
		if r := recover(); r != nil {
			content = ""
			err = &models.ExtractionError{Filename: doc.Filename, Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	ext := strings.ToLower(filepath.Ext(doc.Filename))
	if ext == "" && bytes.HasPrefix(doc.Data, pdfMagic) {
		ext = ".pdf"
	}

	switch ext {
	case ".pdf":
		content, err = parsePDF(doc.Data)
	case ".docx":
		content, err = parseDOCX(doc.Data)
	case ".pptx":
		content, err = parsePPTX(doc.Data)
	case ".xlsx":
		content, err = parseXLSX(doc.Data)
	case ".md", ".markdown":
		content, err = e.parseMarkdown(doc.Data)
	case ".txt":
		content, err = parseText(doc.Data)
	default:
		err = fmt.Errorf("unsupported file format: %q", ext)
	}
	if err != nil {
		return "", &models.ExtractionError{Filename: doc.Filename, Err: err}
	}
	return content, nil
}

func parsePDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	// GetContent returns the raw document.xml body
	return extractTextFromXML(r.Editable().GetContent(), "w:t", "</w:p>"), nil
}

func parsePPTX(data []byte) (string, error) {
	f, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var slides []*zip.File
	for _, file := range f.File {
		if strings.HasPrefix(file.Name, "ppt/slides/slide") && strings.HasSuffix(file.Name, ".xml") {
			slides = append(slides, file)
		}
	}
	if len(slides) == 0 {
		return "", errors.New("no slides found")
	}
	// slide10.xml must come after slide9.xml
	sort.Slice(slides, func(i, j int) bool {
		if len(slides[i].Name) != len(slides[j].Name) {
			return len(slides[i].Name) < len(slides[j].Name)
		}
		return slides[i].Name < slides[j].Name
	})

	var sb strings.Builder
	for _, file := range slides {
		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		sb.WriteString(extractTextFromXML(string(data), "a:t", "</a:p>"))
	}
	return sb.String(), nil
}

func parseXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Msg("excelize could not open workbook, trying legacy reader")
		return parseLegacyXLSX(data)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		sb.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func parseLegacyXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, sheet := range f.Sheets {
		sb.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			sb.WriteString(strings.Join(cells, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// parseMarkdown keeps the text of a markdown document and drops its markup.
func (e *DocumentExtractor) parseMarkdown(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("markdown is not valid UTF-8")
	}
	doc := e.markdown.Parser().Parse(text.NewReader(data))

	var sb strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(data))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteString("\n")
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				sb.Write(line.Value(data))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

func parseText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	return string(data), nil
}

// extractTextFromXML collects the character data of every <tag> element and
// emits a newline wherever paragraphEnd occurs.
func extractTextFromXML(xmlContent, tag, paragraphEnd string) string {
	var sb strings.Builder
	open := "<" + tag
	closing := "</" + tag + ">"
	rest := xmlContent
	for {
		start := strings.Index(rest, open)
		pEnd := strings.Index(rest, paragraphEnd)
		if pEnd >= 0 && (start < 0 || pEnd < start) {
			sb.WriteString("\n")
			rest = rest[pEnd+len(paragraphEnd):]
			continue
		}
		if start < 0 {
			break
		}
		rest = rest[start+len(open):]
		// skip attributes, and elements like <a:tab> that share the prefix
		gt := strings.Index(rest, ">")
		if gt < 0 {
			break
		}
		if attrs := rest[:gt]; attrs != "" && attrs[0] != ' ' {
			rest = rest[gt+1:]
			continue
		}
		rest = rest[gt+1:]
		end := strings.Index(rest, closing)
		if end < 0 {
			break
		}
		sb.WriteString(unescapeXML(rest[:end]))
		rest = rest[end+len(closing):]
	}
	return sb.String()
}

var xmlUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string {
	return xmlUnescaper.Replace(s)
}
