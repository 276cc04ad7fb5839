package io

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aidan-bailey/nemo/internal/datavalues"
	"github.com/aidan-bailey/nemo/internal/execution"
	"github.com/aidan-bailey/nemo/internal/logging"
)

// ImportSpec describes one external input.
type ImportSpec struct {
	Predicate string
	Path      string
	Format    string // csv, tsv, dsv, ntriples; empty infers from the path
	Delimiter rune   // for dsv
	Formats   []ValueFormat
}

// ExportSpec describes one output target.
type ExportSpec struct {
	Predicate string
	Path      string
	Format    string // csv, tsv, dsv, ntriples, turtle, rdfxml
	Delimiter rune
}

// ImportResult reports the outcome of one input.
type ImportResult struct {
	Spec     ImportSpec
	Rows     int
	Rejected int
	Err      error
}

// collectorSink buffers parsed tuples so files can be parsed concurrently
// while the single-threaded core consumes them afterwards.
type collectorSink struct {
	arity    int
	current  []datavalues.DataValue
	invalid  bool
	rows     [][]datavalues.DataValue
	rejected int
}

func (c *collectorSink) Accept(i int, value datavalues.DataValue) bool {
	if c.invalid || i != len(c.current) || (c.arity > 0 && i >= c.arity) {
		c.invalid = true
		return false
	}
	c.current = append(c.current, value)
	return true
}

func (c *collectorSink) EndTuple() {
	if c.invalid || (c.arity > 0 && len(c.current) != c.arity) || len(c.current) == 0 {
		c.rejected++
	} else {
		row := make([]datavalues.DataValue, len(c.current))
		copy(row, c.current)
		c.rows = append(c.rows, row)
	}
	c.current = c.current[:0]
	c.invalid = false
}

func inferFormat(spec ImportSpec) string {
	if spec.Format != "" {
		return spec.Format
	}
	switch strings.ToLower(filepath.Ext(spec.Path)) {
	case ".tsv":
		return "tsv"
	case ".nt":
		return "ntriples"
	default:
		return "csv"
	}
}

func (spec ImportSpec) delimiter() rune {
	switch inferFormat(spec) {
	case "tsv":
		return '\t'
	case "dsv":
		if spec.Delimiter != 0 {
			return spec.Delimiter
		}
		return ','
	default:
		return ','
	}
}

// readInto parses one input file into a collector.
func readInto(spec ImportSpec, arity int, sink *collectorSink) error {
	file, err := os.Open(spec.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", execution.ErrReading, err)
	}
	defer file.Close()

	switch format := inferFormat(spec); format {
	case "csv", "tsv", "dsv":
		formats := spec.Formats
		if len(formats) == 0 {
			formats = make([]ValueFormat, arity)
			for i := range formats {
				formats[i] = FormatAny
			}
		}
		_, err := NewDsvReader(spec.delimiter(), formats).Read(file, sink)
		return err
	case "ntriples":
		if arity != 3 {
			return fmt.Errorf("%w: RDF import needs a triple-arity predicate, %s has %d", execution.ErrPlan, spec.Predicate, arity)
		}
		_, err := NewNTriplesReader().Read(file, sink)
		return err
	default:
		return fmt.Errorf("%w: unknown import format %q", execution.ErrPlan, format)
	}
}

// ImportAll loads every input: files parse concurrently (bounded fan-out),
// then rows funnel into the engine's tuple writers on the calling
// goroutine before the chase starts. With strict false, failed inputs are
// reported in the results and skipped.
func ImportAll(ctx context.Context, engine *execution.Engine, specs []ImportSpec, strict bool) ([]ImportResult, error) {
	log := logging.Get(logging.CategoryIO)
	results := make([]ImportResult, len(specs))
	sinks := make([]*collectorSink, len(specs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, spec := range specs {
		arity, ok := engine.Tables().Arity(spec.Predicate)
		if !ok {
			err := fmt.Errorf("%w: import target %s is not declared", execution.ErrPlan, spec.Predicate)
			if strict {
				return nil, err
			}
			results[i] = ImportResult{Spec: spec, Err: err}
			continue
		}
		sinks[i] = &collectorSink{arity: arity}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := readInto(spec, arity, sinks[i])
			results[i] = ImportResult{Spec: spec, Rows: len(sinks[i].rows), Rejected: sinks[i].rejected, Err: err}
			if err != nil && strict {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	for i, sink := range sinks {
		if sink == nil || results[i].Err != nil {
			continue
		}
		writer, err := engine.TupleWriter(specs[i].Predicate)
		if err != nil {
			return results, err
		}
		for _, row := range sink.rows {
			for col, value := range row {
				writer.Accept(col, value)
			}
			writer.EndTuple()
		}
		results[i].Rejected += writer.RejectedCount()
		if err := writer.Commit(); err != nil {
			return results, err
		}
		log.Info("input loaded", "predicate", specs[i].Predicate, "rows", results[i].Rows, "rejected", results[i].Rejected)
	}
	return results, nil
}

// ExportAll writes every export target from the engine's row iterators.
// Unsupported formats fail before any file is created.
func ExportAll(engine *execution.Engine, specs []ExportSpec) error {
	type sink struct {
		spec  ExportSpec
		write func(file *os.File, rows *execution.RowIterator) error
	}

	// Validate every format first: plan-time rejection.
	sinks := make([]sink, 0, len(specs))
	for _, spec := range specs {
		switch format := spec.Format; format {
		case "", "csv", "tsv", "dsv":
			delimiter := spec.Delimiter
			if format == "tsv" {
				delimiter = '\t'
			}
			writer := NewDsvWriter(delimiter)
			sinks = append(sinks, sink{spec: spec, write: func(file *os.File, rows *execution.RowIterator) error {
				return writer.Write(file, rows)
			}})
		case "ntriples", "turtle", "rdfxml", "nquads", "trig":
			writer, err := NewRdfWriter(RdfVariant(format))
			if err != nil {
				return err
			}
			sinks = append(sinks, sink{spec: spec, write: func(file *os.File, rows *execution.RowIterator) error {
				return writer.Write(file, rows)
			}})
		default:
			return fmt.Errorf("%w: unknown export format %q", execution.ErrPlan, format)
		}
	}

	for _, s := range sinks {
		rows, err := engine.Rows(s.spec.Predicate)
		if err != nil {
			return err
		}
		file, err := os.Create(s.spec.Path)
		if err != nil {
			return fmt.Errorf("%w: %v", execution.ErrReading, err)
		}
		if err := s.write(file, rows); err != nil {
			file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("%w: %v", execution.ErrReading, err)
		}
	}
	return nil
}
