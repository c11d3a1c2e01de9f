// Package tabular parses the three delivery formats the chains use
// (CSV, XLSX, XML) into one positional table shape so the rest of the
// pipeline never cares where a file came from.
package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a parsed price file: a header row and raw string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// HeaderIndex returns the position of a named column, -1 when absent.
func (t *Table) HeaderIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the cell at (row, col), tolerating ragged rows.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// ReadCSV parses semicolon/comma/tab separated content. Ragged and
// loosely quoted lines are tolerated, the way the chains publish them.
func ReadCSV(b []byte, sep rune) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(b))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	t := &Table{Header: header}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadXLSX parses a spreadsheet, skipping skipRows leading rows on
// every sheet. The first remaining row of the first sheet becomes the
// header; all sheets contribute data rows.
func ReadXLSX(b []byte, skipRows int) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	t := &Table{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(rows) <= skipRows {
			continue
		}
		rows = rows[skipRows:]
		if t.Header == nil {
			t.Header = rows[0]
		}
		t.Rows = append(t.Rows, rows[1:]...)
	}
	if t.Header == nil {
		return nil, fmt.Errorf("xlsx: no data rows")
	}
	return t, nil
}

// ReadXML flattens repeated record elements into table rows. fields
// names the child elements to extract, in canonical column order; a
// missing child yields an empty cell. Record elements are matched by
// local name at any nesting depth.
func ReadXML(b []byte, recordTag string, fields []string) (*Table, error) {
	dec := xml.NewDecoder(bytes.NewReader(b))
	t := &Table{Header: fields}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != recordTag {
			continue
		}
		row, err := readRecord(dec, start.Name.Local, fields)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// readRecord consumes one record element and collects its child text
// values by tag name.
func readRecord(dec *xml.Decoder, recordTag string, fields []string) ([]string, error) {
	values := map[string]string{}
	var current string
	var text strings.Builder
	depth := 0

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read xml record: %w", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			current = el.Name.Local
			text.Reset()
		case xml.CharData:
			if current != "" {
				text.Write(el)
			}
		case xml.EndElement:
			if depth == 0 && el.Name.Local == recordTag {
				row := make([]string, len(fields))
				for i, f := range fields {
					row[i] = strings.TrimSpace(values[f])
				}
				return row, nil
			}
			if current != "" {
				values[current] = text.String()
				current = ""
			}
			if depth > 0 {
				depth--
			}
		}
	}
}
