// Package docx reads the paragraphs and tables of a Word document.
//
// A .docx file is a zip container; the document body lives in
// word/document.xml. Only the pieces the alignment-grid pipeline needs are
// decoded: paragraph text with its style, and tables as rows of cell text.
package docx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Paragraph is a body-level paragraph with its style name (e.g. "Heading1").
type Paragraph struct {
	Style string
	Text  string
}

// Table holds cell text per row. Cell paragraphs are joined with newlines.
type Table [][]string

// Document is the extracted content of one .docx file.
type Document struct {
	Paragraphs []Paragraph
	Tables     []Table
}

// Extract opens a .docx file and decodes its body.
func Extract(path string) (*Document, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer rc.Close()

	body, err := readZipFile(rc.File, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("read document body: %w", err)
	}
	return Decode(body)
}

// Decode parses the word/document.xml payload.
func Decode(body []byte) (*Document, error) {
	dec := xml.NewDecoder(strings.NewReader(string(body)))

	var (
		doc Document

		// body paragraph state
		inParagraph bool
		inText      bool
		style       string
		text        strings.Builder

		// table state
		tblDepth  int
		table     Table
		row       []string
		cellParas []string
	)

	flushParagraph := func() {
		txt := strings.TrimSpace(text.String())
		if tblDepth > 0 {
			cellParas = append(cellParas, txt)
		} else {
			doc.Paragraphs = append(doc.Paragraphs, Paragraph{Style: style, Text: txt})
		}
		inParagraph = false
		inText = false
		style = ""
		text.Reset()
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode document body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				if tblDepth == 0 {
					table = Table{}
				}
				tblDepth++
			case "tr":
				if tblDepth == 1 {
					row = nil
				}
			case "tc":
				if tblDepth == 1 {
					cellParas = nil
				}
			case "p":
				inParagraph = true
				inText = false
				style = ""
				text.Reset()
			case "pStyle":
				if !inParagraph {
					continue
				}
				for _, a := range t.Attr {
					if strings.EqualFold(a.Name.Local, "val") {
						style = strings.TrimSpace(a.Value)
					}
				}
			case "t":
				if inParagraph {
					inText = true
				}
			case "tab":
				if inParagraph {
					text.WriteString("\t")
				}
			case "br":
				if inParagraph {
					text.WriteString("\n")
				}
			}
		case xml.CharData:
			if inParagraph && inText {
				text.WriteString(string(t))
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inParagraph {
					flushParagraph()
				}
			case "tc":
				if tblDepth == 1 {
					row = append(row, strings.Join(cellParas, "\n"))
					cellParas = nil
				}
			case "tr":
				if tblDepth == 1 && row != nil {
					table = append(table, row)
					row = nil
				}
			case "tbl":
				tblDepth--
				if tblDepth == 0 {
					doc.Tables = append(doc.Tables, table)
					table = nil
				}
			}
		}
	}
	return &doc, nil
}

// Columns returns the widest row of the table. Word stores merged cells
// unevenly, so the header row is the usual source of truth.
func (t Table) Columns() int {
	cols := 0
	for _, r := range t {
		if len(r) > cols {
			cols = len(r)
		}
	}
	return cols
}

// RenderForModel produces a plain-text rendering of the document for the
// fallback parser: numbered paragraphs, then tables with cells joined by ||.
func RenderForModel(doc *Document) string {
	var lines []string
	lines = append(lines, "# Paragraphs")
	n := 0
	for _, p := range doc.Paragraphs {
		txt := strings.TrimSpace(p.Text)
		if txt == "" {
			continue
		}
		n++
		lines = append(lines, fmt.Sprintf("P%d: %s", n, txt))
	}

	lines = append(lines, "", "# Tables")
	for ti, table := range doc.Tables {
		lines = append(lines, fmt.Sprintf("Table %d: rows=%d cols=%d", ti+1, len(table), table.Columns()))
		for ri, r := range table {
			cells := make([]string, len(r))
			for i, c := range r {
				cells[i] = strings.Join(strings.Fields(c), " ")
			}
			lines = append(lines, fmt.Sprintf("R%d: %s", ri+1, strings.Join(cells, " || ")))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func readZipFile(files []*zip.File, target string) ([]byte, error) {
	for _, f := range files {
		if f == nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(f.Name), target) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("file not found in archive: %s", target)
}
