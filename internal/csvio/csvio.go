// Package csvio reads point tables from CSV and writes distance rows as CSV.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"city-distance/internal/models"
	"city-distance/internal/points"

	"github.com/jszwec/csvutil"
)

// pointRow is only used to decode the three columns we care about, after the
// header has been remapped to these tags.
type pointRow struct {
	Name string `csv:"name"`
	Lat  string `csv:"lat"`
	Lon  string `csv:"lon"`
}

// ReadPoints decodes a CSV with a header row into points, in file order.
// source names the input in error messages.
func ReadPoints(r io.Reader, source string, cols points.Columns) ([]models.Point, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.ParseError{Source: source, Err: errors.New("empty input, header row expected")}
	}
	if err != nil {
		return nil, csvError(source, err)
	}

	idx, err := cols.Locate(source, header)
	if err != nil {
		return nil, err
	}

	mapped := make([]string, len(header))
	for i := range header {
		mapped[i] = fmt.Sprintf("_col%d", i)
	}
	mapped[idx.Name] = "name"
	mapped[idx.Lat] = "lat"
	mapped[idx.Lon] = "lon"

	dec, err := csvutil.NewDecoder(cr, mapped...)
	if err != nil {
		return nil, &models.ParseError{Source: source, Row: 1, Err: err}
	}

	var out []models.Point
	for {
		var row pointRow
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(source, err)
		}

		line, _ := cr.FieldPos(0)
		if points.Blank(dec.Record()) {
			continue
		}

		p, err := cols.Build(source, line, len(out), row.Name, row.Lat, row.Lon)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func csvError(source string, err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &models.ParseError{Source: source, Row: perr.StartLine, Err: perr.Err}
	}
	return &models.ParseError{Source: source, Err: err}
}

// number renders a float with the fewest digits that round-trip, never in
// exponent form.
type number float64

func (n number) MarshalText() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(n), 'f', -1, 64), nil
}

// reprNumber renders a float the way Python's repr does: shortest round-trip
// digits, always with a fractional part, in exponent form below 1e-4 or from 1e16.
type reprNumber float64

func (n reprNumber) MarshalText() ([]byte, error) {
	v := float64(n)
	if v != 0 && (math.Abs(v) < 1e-4 || math.Abs(v) >= 1e16) {
		return strconv.AppendFloat(nil, v, 'e', -1, 64), nil
	}
	b := strconv.AppendFloat(nil, v, 'f', -1, 64)
	if !bytes.ContainsRune(b, '.') {
		b = append(b, ".0"...)
	}
	return b, nil
}

type resultRow struct {
	FromCity string `csv:"from_city"`
	FromLat  number `csv:"from_lat"`
	FromLon  number `csv:"from_lon"`
	ToCity   string `csv:"to_city"`
	ToLat    number `csv:"to_lat"`
	ToLon    number `csv:"to_lon"`
	Distance number `csv:"distance"`
}

type legacyRow struct {
	FromCity string     `csv:"from_city"`
	FromLat  reprNumber `csv:"from_lat"`
	FromLon  reprNumber `csv:"from_lon"`
	ToCity   string     `csv:"to_city"`
	ToLat    reprNumber `csv:"to_lat"`
	ToLon    reprNumber `csv:"to_lon"`
	Distance reprNumber `csv:"distance"`
}

// ResultWriter streams distance rows as CSV.
type ResultWriter struct {
	cw     *csv.Writer
	enc    *csvutil.Encoder
	legacy bool
	rows   int
}

// NewResultWriter writes the header immediately. legacy selects the
// models.LegacyHeader layout written the way Python's csv.writer does:
// CRLF line endings and repr-formatted floats.
func NewResultWriter(w io.Writer, legacy bool) (*ResultWriter, error) {
	cw := csv.NewWriter(w)
	cw.UseCRLF = legacy
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false

	if err := cw.Write(models.ResultHeader(legacy)); err != nil {
		return nil, err
	}

	return &ResultWriter{cw: cw, enc: enc, legacy: legacy}, nil
}

func (rw *ResultWriter) Write(r models.DistanceRecord) error {
	var row any = resultRow{
		FromCity: r.FromName,
		FromLat:  number(r.FromLat),
		FromLon:  number(r.FromLon),
		ToCity:   r.ToName,
		ToLat:    number(r.ToLat),
		ToLon:    number(r.ToLon),
		Distance: number(r.Distance),
	}
	if rw.legacy {
		row = legacyRow{
			FromCity: r.FromName,
			FromLat:  reprNumber(r.FromLat),
			FromLon:  reprNumber(r.FromLon),
			ToCity:   r.ToName,
			ToLat:    reprNumber(r.ToLat),
			ToLon:    reprNumber(r.ToLon),
			Distance: reprNumber(r.Distance),
		}
	}
	if err := rw.enc.Encode(row); err != nil {
		return err
	}
	rw.rows++
	return nil
}

// Rows returns the number of data rows written so far.
func (rw *ResultWriter) Rows() int { return rw.rows }

// Close flushes buffered rows. It does not close the underlying writer.
func (rw *ResultWriter) Close() error {
	rw.cw.Flush()
	return rw.cw.Error()
}

type edgeRow struct {
	FromCity string  `csv:"from_city"`
	FromLat  float64 `csv:"from_lat"`
	FromLon  float64 `csv:"from_lon"`
	ToCity   string  `csv:"to_city"`
	ToLat    float64 `csv:"to_lat"`
	ToLon    float64 `csv:"to_lon"`
	Distance float64 `csv:"distance"`
}

// ReadResults decodes a distance table written by ResultWriter, with either
// header. Rows always carry the seven columns of models.FullHeader.
func ReadResults(r io.Reader, source string) ([]models.DistanceRecord, error) {
	cr := csv.NewReader(r)
	// the legacy header is shorter than its rows
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.ParseError{Source: source, Err: errors.New("empty input, header row expected")}
	}
	if err != nil {
		return nil, csvError(source, err)
	}
	if !models.IsResultHeader(header) {
		return nil, &models.ParseError{Source: source, Row: 1, Err: fmt.Errorf("not a distance table header: %s", strings.Join(header, ","))}
	}

	dec, err := csvutil.NewDecoder(cr, models.FullHeader...)
	if err != nil {
		return nil, &models.ParseError{Source: source, Row: 1, Err: err}
	}

	var out []models.DistanceRecord
	for {
		var row edgeRow
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, csvError(source, err)
			}
			line, _ := cr.FieldPos(0)
			return nil, &models.ParseError{Source: source, Row: line, Err: err}
		}
		out = append(out, models.DistanceRecord{
			FromName: row.FromCity,
			FromLat:  row.FromLat,
			FromLon:  row.FromLon,
			ToName:   row.ToCity,
			ToLat:    row.ToLat,
			ToLon:    row.ToLon,
			Distance: row.Distance,
		})
	}
	return out, nil
}

// WriteTemplate writes an empty input table carrying only the header cols expects.
func WriteTemplate(w io.Writer, cols points.Columns) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols.Header()); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
