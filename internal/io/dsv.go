// Package io implements the external format handlers around the core's
// row contracts: DSV (CSV/TSV and friends) and RDF readers and writers.
// Readers push tuples into the engine's tuple writers and count rejected
// rows; writers render the engine's row iterators in canonical lexical
// form.
package io

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/aidan-bailey/nemo/internal/datavalues"
	"github.com/aidan-bailey/nemo/internal/execution"
	"github.com/aidan-bailey/nemo/internal/logging"
)

// ValueFormat controls the coercion of one DSV column.
type ValueFormat string

const (
	// FormatString stores the field as a plain string.
	FormatString ValueFormat = "string"
	// FormatInteger parses the field as an integer; failures reject the
	// row.
	FormatInteger ValueFormat = "integer"
	// FormatDouble parses the field as a double; failures reject the
	// row.
	FormatDouble ValueFormat = "double"
	// FormatAny tries integer, then double, then falls back to string.
	FormatAny ValueFormat = "any"
	// FormatSkip drops the column.
	FormatSkip ValueFormat = "skip"
)

// ParseValueFormat validates a format string.
func ParseValueFormat(s string) (ValueFormat, error) {
	switch ValueFormat(s) {
	case FormatString, FormatInteger, FormatDouble, FormatAny, FormatSkip:
		return ValueFormat(s), nil
	}
	return "", fmt.Errorf("%w: unknown value format %q", execution.ErrPlan, s)
}

func coerce(field string, format ValueFormat) (datavalues.DataValue, bool) {
	switch format {
	case FormatString:
		return datavalues.String(field), true
	case FormatInteger:
		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return datavalues.DataValue{}, false
		}
		return datavalues.Integer(n), true
	case FormatDouble:
		f, err := strconv.ParseFloat(field, 64)
		if err != nil || f != f {
			return datavalues.DataValue{}, false
		}
		return datavalues.DoubleValue(f), true
	case FormatAny:
		if n, err := strconv.ParseInt(field, 10, 64); err == nil {
			return datavalues.Integer(n), true
		}
		if f, err := strconv.ParseFloat(field, 64); err == nil && f == f {
			return datavalues.DoubleValue(f), true
		}
		return datavalues.String(field), true
	}
	return datavalues.DataValue{}, false
}

// DsvReader streams delimiter-separated rows into a tuple writer, one
// engine column per non-skipped format entry.
type DsvReader struct {
	Delimiter rune
	Formats   []ValueFormat
	log       *logging.Logger
}

// NewDsvReader creates a reader; the delimiter defaults to a comma.
func NewDsvReader(delimiter rune, formats []ValueFormat) *DsvReader {
	if delimiter == 0 {
		delimiter = ','
	}
	return &DsvReader{Delimiter: delimiter, Formats: formats, log: logging.Get(logging.CategoryIO)}
}

// columns counts the non-skipped formats.
func (r *DsvReader) columns() int {
	n := 0
	for _, f := range r.Formats {
		if f != FormatSkip {
			n++
		}
	}
	return n
}

// Read consumes the input and pushes every coercible row; rows failing
// coercion are rejected through the writer. It returns the number of rows
// read (accepted or rejected).
func (r *DsvReader) Read(input io.Reader, writer execution.RowSink) (int, error) {
	reader := csv.NewReader(input)
	reader.Comma = r.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	total := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("%w: %v", execution.ErrReading, err)
		}
		total++

		if len(record) != len(r.Formats) {
			// Arity mismatches reject the tuple through the writer.
			writer.EndTuple()
			r.log.Debug("row rejected", "reason", "column count", "fields", len(record))
			continue
		}
		column := 0
		ok := true
		for i, field := range record {
			format := r.Formats[i]
			if format == FormatSkip {
				continue
			}
			value, coerced := coerce(field, format)
			if !coerced {
				ok = false
				break
			}
			writer.Accept(column, value)
			column++
		}
		if !ok {
			// Force the rejection of the partially written tuple.
			writer.Accept(r.columns(), datavalues.DataValue{})
		}
		writer.EndTuple()
	}
}

// DsvWriter renders rows as delimiter-separated values. Plain strings are
// written bare (the CSV layer handles quoting); all other values use
// their canonical lexical form.
type DsvWriter struct {
	Delimiter rune
}

// NewDsvWriter creates a writer; the delimiter defaults to a comma.
func NewDsvWriter(delimiter rune) *DsvWriter {
	if delimiter == 0 {
		delimiter = ','
	}
	return &DsvWriter{Delimiter: delimiter}
}

// Write drains the iterator into the output.
func (w *DsvWriter) Write(out io.Writer, rows *execution.RowIterator) error {
	writer := csv.NewWriter(out)
	writer.Comma = w.Delimiter
	defer writer.Flush()

	for {
		row, ok, err := rows.Next()
		if err != nil {
			return err
		}
		if !ok {
			return writer.Error()
		}
		record := make([]string, len(row))
		for i, v := range row {
			switch v.Kind() {
			case datavalues.KindString:
				record[i] = v.LexicalValue()
			case datavalues.KindIRI, datavalues.KindInteger, datavalues.KindLong,
				datavalues.KindBoolean, datavalues.KindNull:
				record[i] = v.LexicalValue()
			default:
				record[i] = v.Canonical()
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("%w: %v", execution.ErrReading, err)
		}
	}
}
