package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"greenlens/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// SheetName is the worksheet XLSX exports are written to.
const SheetName = "Initiatives"

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// FormatForPath picks the format from a file name's extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ContentType returns the media type for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// columns defines the header row shared by every format.
var columns = []string{
	"#",
	"Framework",
	"Summary",
	"Evidence",
	"Page",
}

// Writer wraps csv.Writer for exporting initiatives as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewCSVWriter creates a Writer that writes CSV to w.
func NewCSVWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteInitiatives converts initiatives to CSV rows and writes them.
func (w *Writer) WriteInitiatives(items []domain.Initiative) error {
	for i := range items {
		if err := w.csv.Write(initiativeToRow(i, &items[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// WriteCSV writes BOM, header and every initiative of result to w.
func WriteCSV(w io.Writer, result *domain.AnalysisResult) error {
	if result == nil {
		return domain.ErrNoResult
	}
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	cw := NewCSVWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	if err := cw.WriteInitiatives(result.Initiatives); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes result as a single-sheet workbook to w.
func WriteXLSX(w io.Writer, result *domain.AnalysisResult) error {
	if result == nil {
		return domain.ErrNoResult
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("creating stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(columns)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := range result.Initiatives {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(initiativeToRow(i, &result.Initiatives[i]))); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flushing sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// Write dispatches to the writer for format.
func Write(w io.Writer, format Format, result *domain.AnalysisResult) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, result)
	case FormatXLSX:
		return WriteXLSX(w, result)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// initiativeToRow converts a single initiative to a row. Evidence keeps its
// original line breaks; spreadsheet cells render them.
func initiativeToRow(i int, in *domain.Initiative) []string {
	return []string{
		strconv.Itoa(i + 1),
		in.SourceName,
		in.Summary,
		in.EvidenceText,
		strings.TrimSpace(in.PageLabel),
	}
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
