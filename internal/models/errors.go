package models

import "fmt"

// ParseError reports a malformed or missing input column or value.
type ParseError struct {
	Source string
	Row    int // 1-based, header is row 1; 0 when the whole source is at fault
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("%s: row %d, column %q: %v", e.Source, e.Row, e.Column, e.Err)
	case e.Row > 0:
		return fmt.Sprintf("%s: row %d: %v", e.Source, e.Row, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// GeometryError reports a latitude or longitude outside its valid range.
type GeometryError struct {
	Index int
	Row   int
	Name  string
	Lat   float64
	Lon   float64
}

func (e *GeometryError) Error() string {
	where := fmt.Sprintf("point %d", e.Index)
	if e.Row > 0 {
		where = fmt.Sprintf("row %d", e.Row)
	}
	return fmt.Sprintf("%s (%q): coordinate out of range: lat=%v lon=%v", where, e.Name, e.Lat, e.Lon)
}

// IOError reports a failure opening, writing or committing a file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
