package columnar

import (
	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// RainbowScan presents the five storage-type scans of one trie layer under
// a single interface. All per-type scans share the layer's navigation
// state; callers select the active storage type on every operation.
type RainbowScan struct {
	Id32   ColumnScan[uint32]
	Id64   ColumnScan[uint64]
	Int64  ColumnScan[int64]
	Float  ColumnScan[float32]
	Double ColumnScan[float64]
}

// Next advances the scan of the given storage type.
func (r *RainbowScan) Next(t datavalues.StorageType) (datavalues.StorageValue, bool) {
	switch t {
	case datavalues.StorageId32:
		v, ok := r.Id32.Next()
		return datavalues.Id32(v), ok
	case datavalues.StorageId64:
		v, ok := r.Id64.Next()
		return datavalues.Id64(v), ok
	case datavalues.StorageInt64:
		v, ok := r.Int64.Next()
		return datavalues.Int64(v), ok
	case datavalues.StorageFloat:
		v, ok := r.Float.Next()
		if !ok {
			return datavalues.StorageValue{}, false
		}
		return datavalues.Float(v), true
	default:
		v, ok := r.Double.Next()
		if !ok {
			return datavalues.StorageValue{}, false
		}
		return datavalues.Double(v), true
	}
}

// Current returns the current value of the given storage type.
func (r *RainbowScan) Current(t datavalues.StorageType) (datavalues.StorageValue, bool) {
	switch t {
	case datavalues.StorageId32:
		v, ok := r.Id32.Current()
		return datavalues.Id32(v), ok
	case datavalues.StorageId64:
		v, ok := r.Id64.Current()
		return datavalues.Id64(v), ok
	case datavalues.StorageInt64:
		v, ok := r.Int64.Current()
		return datavalues.Int64(v), ok
	case datavalues.StorageFloat:
		v, ok := r.Float.Current()
		if !ok {
			return datavalues.StorageValue{}, false
		}
		return datavalues.Float(v), true
	default:
		v, ok := r.Double.Current()
		if !ok {
			return datavalues.StorageValue{}, false
		}
		return datavalues.Double(v), true
	}
}

// Seek advances the scan of the value's storage type to the smallest
// element >= value.
func (r *RainbowScan) Seek(value datavalues.StorageValue) (datavalues.StorageValue, bool) {
	switch value.Type() {
	case datavalues.StorageId32:
		v, ok := r.Id32.Seek(value.AsId32())
		return datavalues.Id32(v), ok
	case datavalues.StorageId64:
		v, ok := r.Id64.Seek(value.AsId64())
		return datavalues.Id64(v), ok
	case datavalues.StorageInt64:
		v, ok := r.Int64.Seek(value.AsInt64())
		return datavalues.Int64(v), ok
	case datavalues.StorageFloat:
		v, ok := r.Float.Seek(value.AsFloat())
		if !ok {
			return datavalues.StorageValue{}, false
		}
		return datavalues.Float(v), true
	default:
		v, ok := r.Double.Seek(value.AsDouble())
		if !ok {
			return datavalues.StorageValue{}, false
		}
		return datavalues.Double(v), true
	}
}

// Pos returns the local position of the current element of the given
// storage type.
func (r *RainbowScan) Pos(t datavalues.StorageType) (int, bool) {
	switch t {
	case datavalues.StorageId32:
		return r.Id32.Pos()
	case datavalues.StorageId64:
		return r.Id64.Pos()
	case datavalues.StorageInt64:
		return r.Int64.Pos()
	case datavalues.StorageFloat:
		return r.Float.Pos()
	default:
		return r.Double.Pos()
	}
}

// Narrow restricts the scan of the given storage type to a window and
// resets it.
func (r *RainbowScan) Narrow(t datavalues.StorageType, start, end int) {
	switch t {
	case datavalues.StorageId32:
		r.Id32.Narrow(start, end)
	case datavalues.StorageId64:
		r.Id64.Narrow(start, end)
	case datavalues.StorageInt64:
		r.Int64.Narrow(start, end)
	case datavalues.StorageFloat:
		r.Float.Narrow(start, end)
	default:
		r.Double.Narrow(start, end)
	}
}

// Reset restarts the scan of the given storage type within its window.
func (r *RainbowScan) Reset(t datavalues.StorageType) {
	switch t {
	case datavalues.StorageId32:
		r.Id32.Reset()
	case datavalues.StorageId64:
		r.Id64.Reset()
	case datavalues.StorageInt64:
		r.Int64.Reset()
	case datavalues.StorageFloat:
		r.Float.Reset()
	default:
		r.Double.Reset()
	}
}

// ResetAll restarts all five scans.
func (r *RainbowScan) ResetAll() {
	r.Id32.Reset()
	r.Id64.Reset()
	r.Int64.Reset()
	r.Float.Reset()
	r.Double.Reset()
}
