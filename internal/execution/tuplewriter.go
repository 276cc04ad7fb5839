package execution

import (
	"fmt"

	"github.com/aidan-bailey/nemo/internal/datavalues"
	"github.com/aidan-bailey/nemo/internal/logging"
	"github.com/aidan-bailey/nemo/internal/tabular"
)

// RowSink is the row-source contract readers write into: values arrive
// column by column, EndTuple closes a row. Accept reports rejection.
type RowSink interface {
	Accept(i int, value datavalues.DataValue) bool
	EndTuple()
}

// TupleWriter is the row-source contract offered to external readers:
// values arrive column by column, EndTuple closes a row. Values the
// dictionary cannot store reject the whole tuple; rejected tuples are
// counted and skipped.
type TupleWriter struct {
	engine    *Engine
	predicate string
	arity     int

	buffer   *tabular.TupleBuffer
	current  []datavalues.StorageValue
	invalid  bool
	rejected int
	log      *logging.Logger
}

// TupleWriter creates a writer feeding EDB rows of a predicate.
func (e *Engine) TupleWriter(pred string) (*TupleWriter, error) {
	arity, ok := e.tm.Arity(pred)
	if !ok {
		return nil, fmt.Errorf("%w: predicate %s is not declared", ErrPlan, pred)
	}
	return &TupleWriter{
		engine:    e,
		predicate: pred,
		arity:     arity,
		buffer:    tabular.NewTupleBuffer(arity),
		log:       logging.Get(logging.CategoryIO),
	}, nil
}

// Accept offers the value of column i for the current tuple. It reports
// whether the value was accepted.
func (w *TupleWriter) Accept(i int, value datavalues.DataValue) bool {
	if w.invalid {
		return false
	}
	if i != len(w.current) || i >= w.arity {
		w.invalid = true
		return false
	}
	storage, ok := w.engine.dict.ValueToStorage(value)
	if !ok {
		w.invalid = true
		return false
	}
	w.current = append(w.current, storage)
	return true
}

// EndTuple closes the current tuple; incomplete or rejected tuples are
// dropped and counted.
func (w *TupleWriter) EndTuple() {
	if w.invalid || len(w.current) != w.arity {
		w.rejected++
		w.log.Debug("tuple rejected", "predicate", w.predicate, "columns", len(w.current))
	} else {
		w.buffer.AddRow(w.current)
	}
	w.current = w.current[:0]
	w.invalid = false
}

// RejectedCount returns the number of dropped tuples.
func (w *TupleWriter) RejectedCount() int { return w.rejected }

// Commit builds the trie and registers it as an EDB subtable (step 0).
func (w *TupleWriter) Commit() error {
	trie := tabular.FromTupleBuffer(w.buffer)
	w.buffer = tabular.NewTupleBuffer(w.arity)
	if trie.IsEmpty() {
		return nil
	}
	return w.engine.tm.Add(w.predicate, 0, trie)
}
