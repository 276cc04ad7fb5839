package columnar

// The operator scans below compose column scans of one storage type into
// the primitives of the physical algebra. They implement ColumnScan so
// that compositions nest arbitrarily. ScanPass forwards every call to its
// inner scan; the others are not bound to a physical column, so Narrow is a
// Reset and Pos reports no position (except ScanEqualValue, which reports
// its inner scan's position while it holds a value).

// ScanJoin is the intersection of k sorted inputs, advanced with the
// leap-frog step: repeatedly seek every input to the current maximum until
// all inputs agree.
type ScanJoin[T Value] struct {
	inputs    []ColumnScan[T]
	current   T
	valid     bool
	exhausted bool
	started   bool
}

// NewScanJoin creates a join scan over the given inputs.
func NewScanJoin[T Value](inputs ...ColumnScan[T]) *ScanJoin[T] {
	return &ScanJoin[T]{inputs: inputs}
}

func (s *ScanJoin[T]) Next() (T, bool) {
	var zero T
	if s.exhausted {
		return zero, false
	}
	var target T
	if !s.started {
		s.started = true
		for _, in := range s.inputs {
			if _, ok := in.Next(); !ok {
				s.fail()
				return zero, false
			}
		}
		target, _ = s.inputs[0].Current()
		for _, in := range s.inputs[1:] {
			if v, _ := in.Current(); v > target {
				target = v
			}
		}
	} else {
		v, ok := s.inputs[0].Next()
		if !ok {
			s.fail()
			return zero, false
		}
		target = v
	}
	return s.align(target)
}

// align seeks every input to target, raising target whenever an input
// overshoots, until all inputs sit on the same value.
func (s *ScanJoin[T]) align(target T) (T, bool) {
	var zero T
	for {
		matched := true
		for _, in := range s.inputs {
			v, ok := in.Seek(target)
			if !ok {
				s.fail()
				return zero, false
			}
			if v > target {
				target = v
				matched = false
			}
		}
		if matched {
			s.current = target
			s.valid = true
			return target, true
		}
	}
}

func (s *ScanJoin[T]) Current() (T, bool) {
	var zero T
	if !s.valid {
		return zero, false
	}
	return s.current, true
}

func (s *ScanJoin[T]) Seek(value T) (T, bool) {
	var zero T
	if s.exhausted {
		return zero, false
	}
	if s.valid && s.current >= value {
		return s.current, true
	}
	s.started = true
	return s.align(value)
}

func (s *ScanJoin[T]) Pos() (int, bool) { return 0, false }

func (s *ScanJoin[T]) Narrow(start, end int) { s.Reset() }

func (s *ScanJoin[T]) Reset() {
	s.valid = false
	s.exhausted = false
	s.started = false
}

func (s *ScanJoin[T]) fail() {
	s.valid = false
	s.exhausted = true
}

// ScanUnion merges k sorted inputs, collapsing duplicates. ActiveInputs
// reports which inputs carry the current value; trie-level unions use it
// to decide where navigation may descend.
type ScanUnion[T Value] struct {
	inputs  []ColumnScan[T]
	enabled []bool
	heads   []T
	alive   []bool
	started []bool
	current T
	valid   bool
}

// NewScanUnion creates a union scan over the given inputs.
func NewScanUnion[T Value](inputs ...ColumnScan[T]) *ScanUnion[T] {
	enabled := make([]bool, len(inputs))
	for i := range enabled {
		enabled[i] = true
	}
	return &ScanUnion[T]{
		inputs:  inputs,
		enabled: enabled,
		heads:   make([]T, len(inputs)),
		alive:   make([]bool, len(inputs)),
		started: make([]bool, len(inputs)),
	}
}

// SetEnabled restricts the union to a subset of its inputs; disabled
// inputs are neither advanced nor considered for the minimum. Trie-level
// unions disable the inputs that diverged from the current path.
func (s *ScanUnion[T]) SetEnabled(enabled []bool) {
	copy(s.enabled, enabled)
}

func (s *ScanUnion[T]) Next() (T, bool) {
	for i, in := range s.inputs {
		if !s.enabled[i] {
			continue
		}
		if !s.started[i] {
			s.started[i] = true
			s.heads[i], s.alive[i] = in.Next()
			continue
		}
		// Advance every owner of the previous value.
		if s.valid && s.alive[i] && s.heads[i] == s.current {
			s.heads[i], s.alive[i] = in.Next()
		}
	}
	return s.pickMin()
}

func (s *ScanUnion[T]) pickMin() (T, bool) {
	var zero T
	found := false
	var min T
	for i := range s.inputs {
		if !s.enabled[i] || !s.alive[i] {
			continue
		}
		if !found || s.heads[i] < min {
			min = s.heads[i]
			found = true
		}
	}
	if !found {
		s.valid = false
		return zero, false
	}
	s.current = min
	s.valid = true
	return min, true
}

func (s *ScanUnion[T]) Current() (T, bool) {
	var zero T
	if !s.valid {
		return zero, false
	}
	return s.current, true
}

func (s *ScanUnion[T]) Seek(value T) (T, bool) {
	if s.valid && s.current >= value {
		return s.current, true
	}
	for i, in := range s.inputs {
		if !s.enabled[i] {
			continue
		}
		if !s.started[i] {
			s.started[i] = true
			s.heads[i], s.alive[i] = in.Seek(value)
			continue
		}
		if s.alive[i] && s.heads[i] < value {
			s.heads[i], s.alive[i] = in.Seek(value)
		}
	}
	return s.pickMin()
}

// ActiveInputs returns the indices of inputs positioned on the current
// value.
func (s *ScanUnion[T]) ActiveInputs() []int {
	if !s.valid {
		return nil
	}
	var active []int
	for i := range s.inputs {
		if s.enabled[i] && s.alive[i] && s.heads[i] == s.current {
			active = append(active, i)
		}
	}
	return active
}

func (s *ScanUnion[T]) Pos() (int, bool) { return 0, false }

func (s *ScanUnion[T]) Narrow(start, end int) { s.Reset() }

func (s *ScanUnion[T]) Reset() {
	s.valid = false
	for i := range s.inputs {
		s.started[i] = false
		s.alive[i] = false
	}
}

// ScanSubtract emits the values of a minuend, skipping those matched by
// subtrahends. A subtrahend whose final shared layer sits on this scan
// filters values it contains; a pass-through subtrahend merely records
// whether it matched, which the trie-level subtract uses to keep the
// subtrahend on the path. Inactive (already diverged) subtrahends are
// ignored.
type ScanSubtract[T Value] struct {
	main    ColumnScan[T]
	subs    []ColumnScan[T]
	filter  []bool // subtrahend ends on this layer
	active  []bool
	matched []bool
	current T
	valid   bool
}

// NewScanSubtract creates a subtract scan. filter[i] marks subtrahend i as
// ending on this layer.
func NewScanSubtract[T Value](main ColumnScan[T], subs []ColumnScan[T], filter []bool) *ScanSubtract[T] {
	return &ScanSubtract[T]{
		main:    main,
		subs:    subs,
		filter:  filter,
		active:  make([]bool, len(subs)),
		matched: make([]bool, len(subs)),
	}
}

// SetActive marks which subtrahends are still on the current path.
func (s *ScanSubtract[T]) SetActive(active []bool) {
	copy(s.active, active)
}

func (s *ScanSubtract[T]) Next() (T, bool) {
	v, ok := s.main.Next()
	return s.settle(v, ok)
}

func (s *ScanSubtract[T]) Seek(value T) (T, bool) {
	if s.valid && s.current >= value {
		return s.current, true
	}
	v, ok := s.main.Seek(value)
	return s.settle(v, ok)
}

// settle skips main values filtered by a fully-matching subtrahend and
// records equality for pass-through subtrahends.
func (s *ScanSubtract[T]) settle(v T, ok bool) (T, bool) {
	var zero T
	for ok {
		skip := false
		for i, sub := range s.subs {
			s.matched[i] = false
			if !s.active[i] {
				continue
			}
			w, subOK := sub.Seek(v)
			if subOK && w == v {
				s.matched[i] = true
				if s.filter[i] {
					skip = true
				}
			}
		}
		if !skip {
			s.current = v
			s.valid = true
			return v, true
		}
		v, ok = s.main.Next()
	}
	s.valid = false
	return zero, false
}

func (s *ScanSubtract[T]) Current() (T, bool) {
	var zero T
	if !s.valid {
		return zero, false
	}
	return s.current, true
}

// Matched reports, for each subtrahend, whether it contains the current
// value.
func (s *ScanSubtract[T]) Matched() []bool { return s.matched }

func (s *ScanSubtract[T]) Pos() (int, bool) { return 0, false }

func (s *ScanSubtract[T]) Narrow(start, end int) { s.Reset() }

func (s *ScanSubtract[T]) Reset() {
	s.valid = false
	for i := range s.matched {
		s.matched[i] = false
	}
}

// ScanConstant emits a single fixed value.
type ScanConstant[T Value] struct {
	value   T
	emitted bool
	valid   bool
}

// NewScanConstant creates a constant scan.
func NewScanConstant[T Value](value T) *ScanConstant[T] {
	return &ScanConstant[T]{value: value}
}

func (s *ScanConstant[T]) Next() (T, bool) {
	var zero T
	if s.emitted {
		s.valid = false
		return zero, false
	}
	s.emitted = true
	s.valid = true
	return s.value, true
}

func (s *ScanConstant[T]) Current() (T, bool) {
	var zero T
	if !s.valid {
		return zero, false
	}
	return s.value, true
}

func (s *ScanConstant[T]) Seek(value T) (T, bool) {
	var zero T
	if s.emitted && !s.valid {
		return zero, false
	}
	if value <= s.value {
		s.emitted = true
		s.valid = true
		return s.value, true
	}
	s.emitted = true
	s.valid = false
	return zero, false
}

func (s *ScanConstant[T]) Pos() (int, bool) { return 0, false }

func (s *ScanConstant[T]) Narrow(start, end int) { s.Reset() }

func (s *ScanConstant[T]) Reset() {
	s.emitted = false
	s.valid = false
}

// ScanEqualValue restricts an inner scan to the single value produced by a
// reference, implementing select-equal against an earlier layer.
type ScanEqualValue[T Value] struct {
	inner ColumnScan[T]
	ref   func() (T, bool)
	done  bool
	valid bool
	value T
}

// NewScanEqualValue creates a select-equal scan; ref yields the value of
// the referenced earlier layer.
func NewScanEqualValue[T Value](inner ColumnScan[T], ref func() (T, bool)) *ScanEqualValue[T] {
	return &ScanEqualValue[T]{inner: inner, ref: ref}
}

func (s *ScanEqualValue[T]) Next() (T, bool) {
	var zero T
	if s.done {
		s.valid = false
		return zero, false
	}
	s.done = true
	want, ok := s.ref()
	if !ok {
		return zero, false
	}
	v, ok := s.inner.Seek(want)
	if !ok || v != want {
		return zero, false
	}
	s.value = v
	s.valid = true
	return v, true
}

func (s *ScanEqualValue[T]) Current() (T, bool) {
	var zero T
	if !s.valid {
		return zero, false
	}
	return s.value, true
}

func (s *ScanEqualValue[T]) Seek(value T) (T, bool) {
	v, ok := s.Next()
	if ok && v >= value {
		return v, true
	}
	var zero T
	return zero, false
}

func (s *ScanEqualValue[T]) Pos() (int, bool) {
	if !s.valid {
		return 0, false
	}
	return s.inner.Pos()
}

func (s *ScanEqualValue[T]) Narrow(start, end int) { s.Reset() }

func (s *ScanEqualValue[T]) Reset() {
	s.done = false
	s.valid = false
}

// scanEmpty yields no values; computed layers use it for the storage types
// their value does not inhabit.
type scanEmpty[T Value] struct{}

// NewScanEmpty creates a scan without values.
func NewScanEmpty[T Value]() ColumnScan[T] { return scanEmpty[T]{} }

func (scanEmpty[T]) Next() (T, bool) {
	var zero T
	return zero, false
}

func (scanEmpty[T]) Current() (T, bool) {
	var zero T
	return zero, false
}

func (scanEmpty[T]) Seek(value T) (T, bool) {
	var zero T
	return zero, false
}

func (scanEmpty[T]) Pos() (int, bool)      { return 0, false }
func (scanEmpty[T]) Narrow(start, end int) {}
func (scanEmpty[T]) Reset()                {}

// ScanPass forwards an inner scan unchanged.
type ScanPass[T Value] struct {
	inner ColumnScan[T]
}

// NewScanPass creates an identity scan.
func NewScanPass[T Value](inner ColumnScan[T]) *ScanPass[T] {
	return &ScanPass[T]{inner: inner}
}

func (s *ScanPass[T]) Next() (T, bool)        { return s.inner.Next() }
func (s *ScanPass[T]) Current() (T, bool)     { return s.inner.Current() }
func (s *ScanPass[T]) Seek(value T) (T, bool) { return s.inner.Seek(value) }
func (s *ScanPass[T]) Pos() (int, bool)       { return s.inner.Pos() }
func (s *ScanPass[T]) Narrow(start, end int)  { s.inner.Narrow(start, end) }
func (s *ScanPass[T]) Reset()                 { s.inner.Reset() }
