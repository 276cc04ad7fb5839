package execution

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aidan-bailey/nemo/internal/datavalues"
	"github.com/aidan-bailey/nemo/internal/logging"
	"github.com/aidan-bailey/nemo/internal/tabular"
)

// subtable is one immutable trie of a predicate, tagged with the step that
// produced it. Canonical subtables use the predicate's argument order;
// permuted copies are cached beside them.
type subtable struct {
	step int
	trie *tabular.Trie
}

// predicateTables holds all subtables of one predicate.
type predicateTables struct {
	arity     int
	subtables []subtable
	permuted  map[string]*tabular.Trie // key: step "/" permutation
}

// TableManager owns every materialized trie, keyed by predicate and step.
// Step 0 is reserved for loaded EDB tables; each rule application adds
// subtables under its own step. Subtables are append-only and never
// mutated; duplicates across steps are resolved at union time.
type TableManager struct {
	preds map[string]*predicateTables
	log   *logging.Logger
}

// NewTableManager creates an empty manager.
func NewTableManager() *TableManager {
	return &TableManager{
		preds: make(map[string]*predicateTables),
		log:   logging.Get(logging.CategoryTable),
	}
}

// Register declares a predicate with its arity. Registering an existing
// predicate with a different arity is a type error.
func (m *TableManager) Register(pred string, arity int) error {
	if existing, ok := m.preds[pred]; ok {
		if existing.arity != arity {
			return fmt.Errorf("%w: predicate %s declared with arity %d and %d", ErrType, pred, existing.arity, arity)
		}
		return nil
	}
	m.preds[pred] = &predicateTables{arity: arity, permuted: make(map[string]*tabular.Trie)}
	return nil
}

// Arity returns the declared arity of a predicate.
func (m *TableManager) Arity(pred string) (int, bool) {
	p, ok := m.preds[pred]
	if !ok {
		return 0, false
	}
	return p.arity, true
}

// Predicates lists all registered predicates in sorted order.
func (m *TableManager) Predicates() []string {
	names := make([]string, 0, len(m.preds))
	for name := range m.preds {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// Add appends a subtable in canonical argument order for the given step.
// Empty tries are ignored.
func (m *TableManager) Add(pred string, step int, trie *tabular.Trie) error {
	p, ok := m.preds[pred]
	if !ok {
		return fmt.Errorf("%w: unknown predicate %s", ErrInternal, pred)
	}
	if trie.Arity() != p.arity {
		return fmt.Errorf("%w: subtable arity %d for predicate %s/%d", ErrInternal, trie.Arity(), pred, p.arity)
	}
	if trie.IsEmpty() {
		return nil
	}
	if n := len(p.subtables); n > 0 && p.subtables[n-1].step > step {
		return fmt.Errorf("%w: steps of %s not monotone", ErrInternal, pred)
	}
	p.subtables = append(p.subtables, subtable{step: step, trie: trie})
	m.log.Debug("added subtable", "predicate", pred, "step", step, "rows", trie.NumRows())
	return nil
}

func permKey(step int, perm []int) string {
	parts := make([]string, len(perm)+1)
	parts[0] = strconv.Itoa(step)
	for i, p := range perm {
		parts[i+1] = strconv.Itoa(p)
	}
	return strings.Join(parts, "/")
}

// Tries returns the subtables of a predicate with step in [lo, hi) under
// the requested column permutation, lazily creating and caching permuted
// copies.
func (m *TableManager) Tries(pred string, lo, hi int, perm []int) []*tabular.Trie {
	p, ok := m.preds[pred]
	if !ok {
		return nil
	}
	var tries []*tabular.Trie
	for _, st := range p.subtables {
		if st.step < lo || st.step >= hi {
			continue
		}
		tries = append(tries, m.permutedTrie(p, st, perm))
	}
	return tries
}

func (m *TableManager) permutedTrie(p *predicateTables, st subtable, perm []int) *tabular.Trie {
	if tabular.IsIdentity(perm) && len(perm) == p.arity {
		return st.trie
	}
	key := permKey(st.step, perm)
	if cached, ok := p.permuted[key]; ok {
		return cached
	}
	permuted := tabular.ProjectReorder(st.trie, perm)
	p.permuted[key] = permuted
	return permuted
}

// UnionScan returns a partial trie scan over the union of all subtables
// of the predicate with step in [lo, hi) under the requested permutation,
// or nil if there are none.
func (m *TableManager) UnionScan(pred string, lo, hi int, perm []int) tabular.PartialTrieScan {
	tries := m.Tries(pred, lo, hi, perm)
	switch len(tries) {
	case 0:
		return nil
	case 1:
		return tries[0].Scan()
	}
	scans := make([]tabular.PartialTrieScan, len(tries))
	for i, t := range tries {
		scans[i] = t.Scan()
	}
	return tabular.NewTrieScanUnion(scans)
}

// Contains reports whether any subtable with step < hi holds the row.
func (m *TableManager) Contains(pred string, hi int, row []datavalues.StorageValue) bool {
	p, ok := m.preds[pred]
	if !ok {
		return false
	}
	for _, st := range p.subtables {
		if st.step >= hi {
			continue
		}
		if st.trie.ContainsRow(row) {
			return true
		}
	}
	return false
}

// CombinedTrie unions all subtables of a predicate with step in [lo, hi)
// into one canonical trie.
func (m *TableManager) CombinedTrie(pred string, lo, hi int) *tabular.Trie {
	p, ok := m.preds[pred]
	if !ok {
		return tabular.EmptyTrie(0)
	}
	identity := tabular.IdentityPermutation(p.arity)
	scan := m.UnionScan(pred, lo, hi, identity)
	if scan == nil {
		return tabular.EmptyTrie(p.arity)
	}
	return tabular.Materialize(tabular.NewRowScan(scan))
}

// CountRows counts the distinct rows of a predicate across all steps
// below hi.
func (m *TableManager) CountRows(pred string, hi int) int {
	return m.CombinedTrie(pred, 0, hi).NumRows()
}
