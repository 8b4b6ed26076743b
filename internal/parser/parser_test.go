package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pdfchat-quiz/internal/models"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractText(t *testing.T) {
	e := NewExtractor()
	text, err := e.Extract([]models.Document{{Filename: "notes.txt", Data: []byte("plain text")}})
	require.NoError(t, err)
	assert.Equal(t, "plain text", text)
}

func TestExtractConcatenatesInInputOrder(t *testing.T) {
	e := NewExtractor()
	text, err := e.Extract([]models.Document{
		{Filename: "a.txt", Data: []byte("first ")},
		{Filename: "b.txt", Data: []byte("second")},
	})
	require.NoError(t, err)
	assert.Equal(t, "first second", text)
}

func TestExtractMarkdownDropsMarkup(t *testing.T) {
	e := NewExtractor()
	md := "# Title\n\nSome **bold** and `code` text.\n\n- item one\n- item two\n"
	text, err := e.Extract([]models.Document{{Filename: "README.md", Data: []byte(md)}})
	require.NoError(t, err)

	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Some bold and code text.")
	assert.Contains(t, text, "item two")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "#")
}

func TestExtractPPTXOrdersSlidesNumerically(t *testing.T) {
	slide := func(text string) string {
		return `<p:sld><p:txBody><a:p><a:r><a:rPr lang="en"/><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sld>`
	}
	data := zipBytes(t, map[string]string{
		"ppt/slides/slide10.xml":           slide("ten"),
		"ppt/slides/slide2.xml":            slide("two"),
		"ppt/slides/slide1.xml":            slide("one &amp; only"),
		"ppt/slides/_rels/slide1.xml.rels": "<Relationships/>",
	})

	text, err := NewExtractor().Extract([]models.Document{{Filename: "deck.pptx", Data: data}})
	require.NoError(t, err)
	assert.Equal(t, "one & only\ntwo\nten\n", text)
}

func TestExtractDOCX(t *testing.T) {
	body := `<w:document><w:body>` +
		`<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve"> world</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	data := zipBytes(t, map[string]string{
		"word/document.xml":            body,
		"word/_rels/document.xml.rels": "<Relationships/>",
	})

	text, err := NewExtractor().Extract([]models.Document{{Filename: "report.docx", Data: data}})
	require.NoError(t, err)
	assert.Equal(t, "Hello world\nSecond paragraph\n", text)
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "score"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "ada"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 42))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	text, err := NewExtractor().Extract([]models.Document{{Filename: "scores.xlsx", Data: buf.Bytes()}})
	require.NoError(t, err)
	assert.Equal(t, "## Sheet: Sheet1\nname\tscore\nada\t42\n", text)
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name string
		doc  models.Document
	}{
		{"corrupt pdf", models.Document{Filename: "broken.pdf", Data: []byte("%PDF-1.4 this is not a pdf")}},
		{"sniffed pdf", models.Document{Filename: "upload", Data: []byte("%PDF-garbage")}},
		{"unsupported format", models.Document{Filename: "tool.exe", Data: []byte{0x4d, 0x5a}}},
		{"invalid utf8", models.Document{Filename: "bad.txt", Data: []byte{0xff, 0xfe, 0xfd}}},
		{"pptx without slides", models.Document{Filename: "empty.pptx", Data: zipBytes(t, map[string]string{"ppt/presentation.xml": "<p/>"})}},
		{"docx that is not a zip", models.Document{Filename: "fake.docx", Data: []byte("nope")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor().ExtractDocument(tt.doc)
			var extErr *models.ExtractionError
			require.True(t, errors.As(err, &extErr), "want ExtractionError, got %v", err)
			assert.Equal(t, tt.doc.Filename, extErr.Filename)
		})
	}
}

func TestExtractAbortsWholeBatch(t *testing.T) {
	text, err := NewExtractor().Extract([]models.Document{
		{Filename: "good.txt", Data: []byte("fine")},
		{Filename: "bad.pdf", Data: []byte("not a pdf")},
		{Filename: "later.txt", Data: []byte("never read")},
	})
	assert.Empty(t, text)
	var extErr *models.ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, "bad.pdf", extErr.Filename)
}

func TestExtractTextFromXML(t *testing.T) {
	xml := `<a:p><a:r><a:t>x &lt; y</a:t></a:r><a:tab/><a:r><a:t> &quot;z&quot;</a:t></a:r></a:p><a:p><a:t>next</a:t></a:p>`
	assert.Equal(t, "x < y \"z\"\nnext\n", extractTextFromXML(xml, "a:t", "</a:p>"))
}
