package tabular

import (
	"math"

	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// AggregateKind selects the fold applied within each group.
type AggregateKind uint8

const (
	AggCount AggregateKind = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

func (k AggregateKind) String() string {
	switch k {
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggAvg:
		return "avg"
	}
	return "unknown"
}

// aggregator folds the values of one group. add marks the group failed on
// an inadmissible value (a non-numeric sum/avg input or an Int64 sum
// overflow); a failed group is dropped like any other row-level domain
// error.
type aggregator struct {
	kind   AggregateKind
	count  int64
	intSum int64
	fltSum float64
	isFlt  bool
	best   datavalues.StorageValue
	failed bool
}

func newAggregator(kind AggregateKind) *aggregator {
	return &aggregator{kind: kind}
}

func numeric(v datavalues.StorageValue) (float64, bool) {
	switch v.Type() {
	case datavalues.StorageInt64:
		return float64(v.AsInt64()), true
	case datavalues.StorageFloat:
		return float64(v.AsFloat()), true
	case datavalues.StorageDouble:
		return v.AsDouble(), true
	}
	return 0, false
}

func (a *aggregator) add(v datavalues.StorageValue) {
	if a.failed {
		return
	}
	switch a.kind {
	case AggCount:
		a.count++
	case AggMin:
		if a.count == 0 || v.Compare(a.best) < 0 {
			a.best = v
		}
		a.count++
	case AggMax:
		if a.count == 0 || v.Compare(a.best) > 0 {
			a.best = v
		}
		a.count++
	case AggSum, AggAvg:
		f, ok := numeric(v)
		if !ok {
			a.failed = true
			return
		}
		if v.Type() == datavalues.StorageInt64 && !a.isFlt {
			n := v.AsInt64()
			sum := a.intSum + n
			// Two's-complement overflow check.
			if (n > 0 && sum < a.intSum) || (n < 0 && sum > a.intSum) {
				a.failed = true
				return
			}
			a.intSum = sum
		} else {
			if !a.isFlt {
				a.fltSum = float64(a.intSum)
				a.isFlt = true
			}
			a.fltSum += f
		}
		a.count++
	}
}

func (a *aggregator) result() (datavalues.StorageValue, bool) {
	if a.failed || a.count == 0 {
		return datavalues.StorageValue{}, false
	}
	switch a.kind {
	case AggCount:
		return datavalues.Int64(a.count), true
	case AggMin, AggMax:
		return a.best, true
	case AggSum:
		if a.isFlt {
			if math.IsNaN(a.fltSum) {
				return datavalues.StorageValue{}, false
			}
			return datavalues.Double(a.fltSum), true
		}
		return datavalues.Int64(a.intSum), true
	case AggAvg:
		sum := a.fltSum
		if !a.isFlt {
			sum = float64(a.intSum)
		}
		avg := sum / float64(a.count)
		if math.IsNaN(avg) {
			return datavalues.StorageValue{}, false
		}
		return datavalues.Double(avg), true
	}
	return datavalues.StorageValue{}, false
}

// AggregateScan folds an inner scan of shape (group-by layers, aggregated
// layer) into one output row per group. The inner scan must be ordered
// with the group-by layers as a prefix, which a prior project guarantees.
type AggregateScan struct {
	inner   TrieScan
	groupBy int
	kind    AggregateKind

	current []datavalues.StorageValue
	pending []datavalues.StorageValue
	started bool
	done    bool
}

// NewAggregateScan creates an aggregate scan; the inner scan carries
// groupBy+1 layers and so does the output (aggregate value last).
func NewAggregateScan(inner TrieScan, groupBy int, kind AggregateKind) *AggregateScan {
	if inner.Arity() != groupBy+1 {
		panic("tabular: aggregate input must carry the group-by layers plus the aggregated layer")
	}
	return &AggregateScan{inner: inner, groupBy: groupBy, kind: kind}
}

// Arity implements TrieScan.
func (s *AggregateScan) Arity() int { return s.groupBy + 1 }

// CurrentValue implements TrieScan.
func (s *AggregateScan) CurrentValue(layer int) datavalues.StorageValue {
	return s.current[layer]
}

func (s *AggregateScan) readInner() []datavalues.StorageValue {
	if _, ok := s.inner.AdvanceOnLayer(s.inner.Arity() - 1); !ok {
		return nil
	}
	row := make([]datavalues.StorageValue, s.inner.Arity())
	for i := range row {
		row[i] = s.inner.CurrentValue(i)
	}
	return row
}

// AdvanceOnLayer implements TrieScan. Groups whose fold fails are dropped.
func (s *AggregateScan) AdvanceOnLayer(maxLayer int) (int, bool) {
	if s.done {
		return 0, false
	}
	if !s.started {
		s.started = true
		s.pending = s.readInner()
	}

	for {
		if s.pending == nil {
			s.done = true
			return 0, false
		}

		group := s.pending[:s.groupBy]
		agg := newAggregator(s.kind)
		agg.add(s.pending[s.groupBy])
		for {
			row := s.readInner()
			if row == nil {
				s.pending = nil
				break
			}
			if CompareRows(row[:s.groupBy], group) == 0 {
				agg.add(row[s.groupBy])
				continue
			}
			// The rows within one group stay adjacent; keep the first
			// row of the next group for the following advance.
			next := row
			s.pending = next
			break
		}

		result, ok := agg.result()
		if !ok {
			continue
		}

		changed := 0
		if s.current != nil {
			changed = s.groupBy
			for i := 0; i < s.groupBy; i++ {
				if s.current[i].Compare(group[i]) != 0 {
					changed = i
					break
				}
			}
		}
		out := make([]datavalues.StorageValue, s.groupBy+1)
		copy(out, group)
		out[s.groupBy] = result
		s.current = out
		return changed, true
	}
}
