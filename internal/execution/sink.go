package execution

import (
	"fmt"

	"github.com/aidan-bailey/nemo/internal/datavalues"
	"github.com/aidan-bailey/nemo/internal/tabular"
)

// RowIterator streams the rows of one predicate in the lex order of its
// canonical trie, reconstructing datavalues through the dictionary.
type RowIterator struct {
	engine *Engine
	scan   *tabular.RowScan
	width  int
	buffer []datavalues.StorageValue
}

// Rows returns a lazy iterator over all derived rows of a predicate.
func (e *Engine) Rows(pred string) (*RowIterator, error) {
	arity, ok := e.tm.Arity(pred)
	if !ok {
		return nil, fmt.Errorf("%w: predicate %s is not declared", ErrPlan, pred)
	}
	combined := e.tm.CombinedTrie(pred, 0, e.step+1)
	return &RowIterator{
		engine: e,
		scan:   tabular.NewRowScan(combined.Scan()),
		width:  arity,
		buffer: make([]datavalues.StorageValue, arity),
	}, nil
}

// Next yields the next row, or false at the end. Ids that cannot be
// reversed fail as internal errors.
func (it *RowIterator) Next() ([]datavalues.DataValue, bool, error) {
	if it.width == 0 {
		return nil, false, nil
	}
	changed, ok := it.scan.AdvanceOnLayer(it.width - 1)
	if !ok {
		return nil, false, nil
	}
	for layer := changed; layer < it.width; layer++ {
		it.buffer[layer] = it.scan.CurrentValue(layer)
	}
	row := make([]datavalues.DataValue, it.width)
	for i, storage := range it.buffer {
		value, ok := it.engine.dict.StorageToValue(storage)
		if !ok {
			return nil, false, fmt.Errorf("%w: id %v has no dictionary entry", ErrInternal, storage)
		}
		row[i] = value
	}
	return row, true, nil
}

// Collect drains the iterator.
func (it *RowIterator) Collect() ([][]datavalues.DataValue, error) {
	var rows [][]datavalues.DataValue
	for {
		row, ok, err := it.Next()
		if err != nil {
			return rows, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}
