// Package dataset opens point tables and result sinks by file extension.
// Results are written to a temporary file beside the target and only renamed
// into place on Commit, so a failed run never leaves a truncated output.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"city-distance/internal/csvio"
	"city-distance/internal/excel"
	"city-distance/internal/models"
	"city-distance/internal/points"
)

type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// FormatOf picks the table format from a path's extension. Anything that is
// not a workbook is treated as CSV.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return XLSX
	default:
		return CSV
	}
}

type ReadOptions struct {
	Columns points.Columns
	// Sheet selects the workbook sheet; empty means the first one. Ignored for CSV.
	Sheet string
}

// Load reads every point from path.
func Load(path string, opts ReadOptions) ([]models.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	switch FormatOf(path) {
	case XLSX:
		wb, err := excel.OpenReader(f)
		if err != nil {
			return nil, &models.ParseError{Source: path, Err: fmt.Errorf("not a readable workbook: %w", err)}
		}
		defer wb.Close()
		return excel.ReadPoints(wb, opts.Sheet, path, opts.Columns)
	default:
		return csvio.ReadPoints(bufio.NewReader(f), path, opts.Columns)
	}
}

// LoadResults reads a distance table written by Create. sheet selects the
// workbook sheet, empty for the first one.
func LoadResults(path, sheet string) ([]models.DistanceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	switch FormatOf(path) {
	case XLSX:
		wb, err := excel.OpenReader(f)
		if err != nil {
			return nil, &models.ParseError{Source: path, Err: fmt.Errorf("not a readable workbook: %w", err)}
		}
		defer wb.Close()
		return excel.ReadResults(wb, sheet, path)
	default:
		return csvio.ReadResults(bufio.NewReader(f), path)
	}
}

type WriteOptions struct {
	// Sheet names the result sheet for workbooks.
	Sheet        string
	LegacyHeader bool
}

type rowWriter interface {
	Write(models.DistanceRecord) error
	Rows() int
	Close() error
}

// Sink is an output table under construction.
type Sink struct {
	path string
	tmp  *os.File
	buf  *bufio.Writer
	w    rowWriter
	done bool
}

// Create starts a result table destined for path.
func Create(path string, opts WriteOptions) (*Sink, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return nil, &models.IOError{Op: "create", Path: path, Err: err}
	}

	s := &Sink{path: path, tmp: tmp, buf: bufio.NewWriterSize(tmp, 64<<10)}

	switch FormatOf(path) {
	case XLSX:
		sheet := opts.Sheet
		if sheet == "" {
			sheet = "Distances"
		}
		s.w, err = excel.NewResultWriter(s.buf, sheet, opts.LegacyHeader)
	default:
		s.w, err = csvio.NewResultWriter(s.buf, opts.LegacyHeader)
	}
	if err != nil {
		s.Abort()
		return nil, &models.IOError{Op: "create", Path: path, Err: err}
	}
	return s, nil
}

func (s *Sink) Path() string { return s.path }

func (s *Sink) Write(r models.DistanceRecord) error {
	if err := s.w.Write(r); err != nil {
		return &models.IOError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// Rows returns the number of data rows written so far.
func (s *Sink) Rows() int { return s.w.Rows() }

// Commit finishes the table and moves it over the target path.
func (s *Sink) Commit() error {
	if s.done {
		return errors.New("sink already closed")
	}
	if err := s.commit(); err != nil {
		s.Abort()
		return &models.IOError{Op: "commit", Path: s.path, Err: err}
	}
	s.done = true
	return nil
}

func (s *Sink) commit() error {
	if err := s.w.Close(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	if err := s.tmp.Sync(); err != nil {
		return err
	}
	if err := s.tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := s.tmp.Close(); err != nil {
		return err
	}
	return os.Rename(s.tmp.Name(), s.path)
}

// Abort discards the temporary file. It is a no-op after a successful Commit.
func (s *Sink) Abort() {
	if s.done {
		return
	}
	s.done = true
	s.tmp.Close()
	os.Remove(s.tmp.Name())
}
