package excel

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"city-distance/internal/models"
	"city-distance/internal/points"

	"github.com/xuri/excelize/v2"
)

// ErrTooManyRows is returned once a result sheet would exceed the XLSX row limit.
var ErrTooManyRows = fmt.Errorf("result exceeds the %d rows an xlsx sheet can hold", excelize.TotalRows)

func OpenFile(filename string) (*excelize.File, error) {
	return excelize.OpenFile(filename)
}

func OpenReader(r io.Reader) (*excelize.File, error) {
	return excelize.OpenReader(r)
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// ReadPoints reads points from sheetName, or from the first sheet when
// sheetName is empty. Row 1 is the header.
func ReadPoints(f *excelize.File, sheetName, source string, cols points.Columns) ([]models.Point, error) {
	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &models.ParseError{Source: source, Err: errors.New("workbook has no sheets")}
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, &models.ParseError{Source: source, Err: fmt.Errorf("sheet %q: %w", sheetName, err)}
	}
	if len(rows) == 0 {
		return nil, &models.ParseError{Source: source, Err: fmt.Errorf("sheet %q is empty, header row expected", sheetName)}
	}

	idx, err := cols.Locate(source, rows[0])
	if err != nil {
		return nil, err
	}

	var out []models.Point
	for i, row := range rows[1:] {
		if points.Blank(row) {
			continue
		}
		p, err := cols.Build(source, i+2, len(out), cell(row, idx.Name), cell(row, idx.Lat), cell(row, idx.Lon))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ReadResults reads a distance sheet written by ResultWriter back into
// records. An empty sheetName selects the first sheet.
func ReadResults(f *excelize.File, sheetName, source string) ([]models.DistanceRecord, error) {
	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &models.ParseError{Source: source, Err: errors.New("workbook has no sheets")}
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &models.ParseError{Source: source, Err: fmt.Errorf("sheet %q: %w", sheetName, err)}
	}
	if len(rows) == 0 {
		return nil, &models.ParseError{Source: source, Err: fmt.Errorf("sheet %q is empty, header row expected", sheetName)}
	}
	if !models.IsResultHeader(rows[0]) {
		return nil, &models.ParseError{Source: source, Row: 1, Err: fmt.Errorf("sheet %q is not a distance table", sheetName)}
	}

	var out []models.DistanceRecord
	for i, row := range rows[1:] {
		if points.Blank(row) {
			continue
		}
		rowNum := i + 2
		var nums [5]float64
		for k, col := range []int{1, 2, 4, 5, 6} {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell(row, col)), 64)
			if err != nil {
				return nil, &models.ParseError{Source: source, Row: rowNum, Column: models.FullHeader[col], Err: err}
			}
			nums[k] = v
		}
		out = append(out, models.DistanceRecord{
			FromName: cell(row, 0),
			FromLat:  nums[0],
			FromLon:  nums[1],
			ToName:   cell(row, 3),
			ToLat:    nums[2],
			ToLon:    nums[3],
			Distance: nums[4],
		})
	}
	return out, nil
}

// ResultWriter streams distance rows into a single-sheet workbook which is
// serialized to the destination on Close.
type ResultWriter struct {
	dst   io.Writer
	f     *excelize.File
	sw    *excelize.StreamWriter
	sheet string
	index int
	rows  int
}

func NewResultWriter(dst io.Writer, sheetName string, legacyHeader bool) (*ResultWriter, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, err
	}

	// Use Stream Writer for performance
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		f.Close()
		return nil, err
	}

	header := models.ResultHeader(legacyHeader)
	headers := make([]interface{}, len(header))
	for i, h := range header {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		f.Close()
		return nil, err
	}

	return &ResultWriter{dst: dst, f: f, sw: sw, sheet: sheetName, index: index}, nil
}

func (w *ResultWriter) Write(r models.DistanceRecord) error {
	rowNum := w.rows + 2
	if rowNum > excelize.TotalRows {
		return ErrTooManyRows
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := []interface{}{
		r.FromName, r.FromLat, r.FromLon,
		r.ToName, r.ToLat, r.ToLon,
		r.Distance,
	}
	if err := w.sw.SetRow(cell, row); err != nil {
		return err
	}
	w.rows++
	return nil
}

func (w *ResultWriter) Rows() int { return w.rows }

// Close flushes the sheet and writes the workbook to the destination.
func (w *ResultWriter) Close() error {
	defer w.f.Close()

	if err := w.sw.Flush(); err != nil {
		return err
	}

	w.f.SetActiveSheet(w.index)
	// Delete default sheet if exists
	if w.sheet != "Sheet1" {
		w.f.DeleteSheet("Sheet1")
	}

	return w.f.Write(w.dst)
}
