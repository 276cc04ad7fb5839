package io

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/goleak"

	dv "github.com/aidan-bailey/nemo/internal/datavalues"
	"github.com/aidan-bailey/nemo/internal/execution"
	"github.com/aidan-bailey/nemo/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEngine(t *testing.T, preds map[string]int) *execution.Engine {
	t.Helper()
	engine, err := execution.NewEngine(&execution.Program{Predicates: preds})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func TestDsvCoercionRejectsRows(t *testing.T) {
	engine := newEngine(t, map[string]int{"p": 1})
	writer, err := engine.TupleWriter("p")
	if err != nil {
		t.Fatalf("TupleWriter() error = %v", err)
	}

	reader := NewDsvReader(',', []ValueFormat{FormatInteger})
	total, err := reader.Read(strings.NewReader("42\nabc\n"), writer)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if total != 2 {
		t.Errorf("total rows = %d, want 2", total)
	}
	if writer.RejectedCount() != 1 {
		t.Errorf("rejected = %d, want 1", writer.RejectedCount())
	}
	if err := writer.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	it, err := engine.Rows("p")
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	rows, err := it.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(rows) != 1 || rows[0][0].AsInt64() != 42 {
		t.Errorf("rows = %v, want just 42", rows)
	}
}

func TestDsvSkipAndAny(t *testing.T) {
	engine := newEngine(t, map[string]int{"p": 2})
	writer, err := engine.TupleWriter("p")
	if err != nil {
		t.Fatalf("TupleWriter() error = %v", err)
	}

	reader := NewDsvReader(';', []ValueFormat{FormatAny, FormatSkip, FormatAny})
	if _, err := reader.Read(strings.NewReader("7;ignored;x\n1.5;also;8\n"), writer); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if err := writer.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	it, _ := engine.Rows("p")
	rows, err := it.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// Lex order puts Int64 before Double on the first layer.
	if rows[0][0].AsInt64() != 7 || rows[0][1].Kind() != dv.KindString {
		t.Errorf("first row = %v", rows[0])
	}
	if rows[1][0].Kind() != dv.KindDouble || rows[1][1].AsInt64() != 8 {
		t.Errorf("second row = %v", rows[1])
	}
}

func TestNTriplesRoundTrip(t *testing.T) {
	input := `<http://ex.org/a> <http://ex.org/p> "hallo"@de .
<http://ex.org/a> <http://ex.org/q> "42"^^<http://www.w3.org/2001/XMLSchema#int> .
<http://ex.org/b> <http://ex.org/p> <http://ex.org/c> .
malformed line
`
	engine := newEngine(t, map[string]int{"triple": 3})
	writer, err := engine.TupleWriter("triple")
	if err != nil {
		t.Fatalf("TupleWriter() error = %v", err)
	}
	total, err := NewNTriplesReader().Read(strings.NewReader(input), writer)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if writer.RejectedCount() != 1 {
		t.Errorf("rejected = %d, want 1", writer.RejectedCount())
	}
	if err := writer.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	it, _ := engine.Rows("triple")
	rows, err := it.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	var out strings.Builder
	it2, _ := engine.Rows("triple")
	writerNT, err := NewRdfWriter(RdfNTriples)
	if err != nil {
		t.Fatalf("NewRdfWriter() error = %v", err)
	}
	if err := writerNT.writeNTriples(&out, it2); err != nil {
		t.Fatalf("writeNTriples() error = %v", err)
	}
	text := out.String()
	if !strings.Contains(text, `"hallo"@de .`) {
		t.Errorf("language literal missing:\n%s", text)
	}
	if !strings.Contains(text, "<http://ex.org/b> <http://ex.org/p> <http://ex.org/c> .") {
		t.Errorf("IRI triple missing:\n%s", text)
	}
	if !strings.Contains(text, "42") {
		t.Errorf("numeric literal missing:\n%s", text)
	}
}

func TestRdfVariantRejection(t *testing.T) {
	if _, err := NewRdfWriter(RdfNQuads); !errors.Is(err, execution.ErrPlan) {
		t.Errorf("NQuads error = %v, want plan error", err)
	}
	if _, err := NewRdfWriter(RdfTriG); !errors.Is(err, execution.ErrPlan) {
		t.Errorf("TriG error = %v, want plan error", err)
	}
}

func TestImportExportPipeline(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "edges.csv")
	if err := os.WriteFile(input, []byte("a,b\nb,c\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	program := &execution.Program{
		Predicates: map[string]int{"e": 2, "t": 2},
		Rules: []*model.Rule{
			{
				Name:     "base",
				Positive: []model.VariableAtom{{Predicate: "e", Variables: []model.Variable{"x", "y"}}},
				Head:     []model.Atom{{Predicate: "t", Terms: []model.Term{model.V("x"), model.V("y")}}},
			},
			{
				Name: "step",
				Positive: []model.VariableAtom{
					{Predicate: "t", Variables: []model.Variable{"x", "y"}},
					{Predicate: "e", Variables: []model.Variable{"y", "z"}},
				},
				Head: []model.Atom{{Predicate: "t", Terms: []model.Term{model.V("x"), model.V("z")}}},
			},
		},
	}
	engine, err := execution.NewEngine(program)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	results, err := ImportAll(context.Background(), engine, []ImportSpec{
		{Predicate: "e", Path: input, Formats: []ValueFormat{FormatString, FormatString}},
	}, true)
	if err != nil {
		t.Fatalf("ImportAll() error = %v", err)
	}
	if results[0].Rows != 2 || results[0].Rejected != 0 {
		t.Errorf("import result = %+v", results[0])
	}

	if err := engine.Materialize(context.Background()); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	output := filepath.Join(dir, "closure.csv")
	if err := ExportAll(engine, []ExportSpec{{Predicate: "t", Path: output, Format: "csv"}}); err != nil {
		t.Fatalf("ExportAll() error = %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("exported lines = %v", lines)
	}
	if lines[0] != "a,b" {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestImportMissingFileNonStrict(t *testing.T) {
	engine := newEngine(t, map[string]int{"p": 1})
	results, err := ImportAll(context.Background(), engine, []ImportSpec{
		{Predicate: "p", Path: "/definitely/not/here.csv"},
	}, false)
	if err != nil {
		t.Fatalf("non-strict ImportAll() error = %v", err)
	}
	if results[0].Err == nil || !errors.Is(results[0].Err, execution.ErrReading) {
		t.Errorf("result error = %v, want reading error", results[0].Err)
	}
}
