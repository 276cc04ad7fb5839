package execution

import (
	"fmt"

	"github.com/aidan-bailey/nemo/internal/logging"
	"github.com/aidan-bailey/nemo/internal/model"
	"github.com/aidan-bailey/nemo/internal/tabular"
)

// PlanKind enumerates the logical operators of an execution plan.
type PlanKind uint8

const (
	// PlanLoad reads the subtables of a predicate for a step range under
	// a column permutation.
	PlanLoad PlanKind = iota
	// PlanUnion unions children of identical schema.
	PlanUnion
	// PlanJoin joins children under the node's variable order.
	PlanJoin
	// PlanSubtract removes rows matched by the subtrahend children from
	// the first child.
	PlanSubtract
	// PlanProject permutes/projects columns; a pipeline breaker.
	PlanProject
	// PlanSelect filters rows by conditions.
	PlanSelect
	// PlanAppend appends computed columns.
	PlanAppend
	// PlanAggregate folds a group-by prefix; a pipeline breaker.
	PlanAggregate
)

// OperationTable is the ordered list of variable markers describing the
// schema at a plan node.
type OperationTable []model.Variable

// PositionOf returns the column of a variable in the schema.
func (t OperationTable) PositionOf(v model.Variable) int {
	for i, marker := range t {
		if marker == v {
			return i
		}
	}
	return -1
}

// PlanNode is one logical operator in an execution plan DAG.
type PlanNode struct {
	Kind     PlanKind
	Schema   OperationTable
	Children []*PlanNode

	// Load
	Predicate      string
	StepLo, StepHi int
	Permutation    []int

	// Join / Subtract: for each child (subtrahend), the output layers it
	// participates in.
	LayerMaps [][]int

	// Project
	Projection []int

	// Select
	Conditions []tabular.FilterCondition

	// Append
	Exprs []tabular.AppendExpr

	// Aggregate
	GroupBy       int
	AggregateKind tabular.AggregateKind
}

// Load builds a load node.
func Load(pred string, lo, hi int, perm []int, schema OperationTable) *PlanNode {
	return &PlanNode{Kind: PlanLoad, Predicate: pred, StepLo: lo, StepHi: hi, Permutation: perm, Schema: schema}
}

// Fuse simplifies a plan: single-child unions collapse, nested selects
// merge, and empty appends disappear.
func Fuse(node *PlanNode) *PlanNode {
	for i, child := range node.Children {
		node.Children[i] = Fuse(child)
	}
	switch node.Kind {
	case PlanUnion:
		if len(node.Children) == 1 {
			return node.Children[0]
		}
	case PlanSelect:
		if len(node.Conditions) == 0 {
			return node.Children[0]
		}
		if child := node.Children[0]; child.Kind == PlanSelect {
			node.Conditions = append(child.Conditions, node.Conditions...)
			node.Children[0] = child.Children[0]
		}
	case PlanAppend:
		if len(node.Exprs) == 0 {
			return node.Children[0]
		}
	case PlanProject:
		if tabular.IsIdentity(node.Projection) && len(node.Projection) == len(node.Children[0].Schema) {
			return node.Children[0]
		}
	}
	return node
}

// Compiler lowers execution plans onto trie scans over the table manager.
type Compiler struct {
	tm  *TableManager
	log *logging.Logger
}

// NewCompiler creates a compiler over the given table manager.
func NewCompiler(tm *TableManager) *Compiler {
	return &Compiler{tm: tm, log: logging.Get(logging.CategoryPlan)}
}

// CompileToTrie evaluates a fused plan and materializes its result.
func (c *Compiler) CompileToTrie(root *PlanNode) (*tabular.Trie, error) {
	root = Fuse(root)
	return c.evaluate(root)
}

// evaluate computes the trie of a pipeline-breaking node.
func (c *Compiler) evaluate(node *PlanNode) (*tabular.Trie, error) {
	switch node.Kind {
	case PlanProject:
		child, err := c.evaluate(node.Children[0])
		if err != nil {
			return nil, err
		}
		return tabular.ProjectReorder(child, node.Projection), nil
	case PlanAggregate:
		child, err := c.evaluate(node.Children[0])
		if err != nil {
			return nil, err
		}
		scan := tabular.NewAggregateScan(tabular.NewRowScan(child.Scan()), node.GroupBy, node.AggregateKind)
		return tabular.Materialize(scan), nil
	case PlanLoad:
		// A bare load materializes to the (cached) union of subtables.
		arity := len(node.Schema)
		tries := c.tm.Tries(node.Predicate, node.StepLo, node.StepHi, node.Permutation)
		if len(tries) == 0 {
			return tabular.EmptyTrie(arity), nil
		}
		if len(tries) == 1 {
			return tries[0], nil
		}
		scan, err := c.lower(node)
		if err != nil {
			return nil, err
		}
		return tabular.Materialize(tabular.NewRowScan(scan)), nil
	default:
		scan, err := c.lower(node)
		if err != nil {
			return nil, err
		}
		if scan == nil {
			return tabular.EmptyTrie(len(node.Schema)), nil
		}
		return tabular.Materialize(tabular.NewRowScan(scan)), nil
	}
}

// lower builds the fused partial trie scan of a streamable subtree. A nil
// scan means the subtree is statically empty.
func (c *Compiler) lower(node *PlanNode) (tabular.PartialTrieScan, error) {
	switch node.Kind {
	case PlanLoad:
		scan := c.tm.UnionScan(node.Predicate, node.StepLo, node.StepHi, node.Permutation)
		if scan == nil {
			return tabular.EmptyTrie(len(node.Schema)).Scan(), nil
		}
		return scan, nil

	case PlanUnion:
		scans := make([]tabular.PartialTrieScan, 0, len(node.Children))
		for _, child := range node.Children {
			scan, err := c.lower(child)
			if err != nil {
				return nil, err
			}
			scans = append(scans, scan)
		}
		return tabular.NewTrieScanUnion(scans), nil

	case PlanJoin:
		scans := make([]tabular.PartialTrieScan, 0, len(node.Children))
		for _, child := range node.Children {
			scan, err := c.lower(child)
			if err != nil {
				return nil, err
			}
			scans = append(scans, scan)
		}
		return tabular.NewTrieScanJoin(len(node.Schema), scans, node.LayerMaps), nil

	case PlanSubtract:
		main, err := c.lower(node.Children[0])
		if err != nil {
			return nil, err
		}
		subs := make([]tabular.PartialTrieScan, 0, len(node.Children)-1)
		for _, child := range node.Children[1:] {
			scan, err := c.lower(child)
			if err != nil {
				return nil, err
			}
			subs = append(subs, scan)
		}
		return tabular.NewTrieScanSubtract(main, subs, node.LayerMaps), nil

	case PlanSelect:
		inner, err := c.lower(node.Children[0])
		if err != nil {
			return nil, err
		}
		return tabular.NewTrieScanFilter(inner, node.Conditions), nil

	case PlanAppend:
		inner, err := c.lower(node.Children[0])
		if err != nil {
			return nil, err
		}
		// A function scan creates the scans of its appended layers only on
		// Down, while select and subtract scans capture the layer scans of
		// their input when they are built, so the appended result is
		// materialized before it is streamed further.
		fn := tabular.NewTrieScanFunction(inner, node.Exprs)
		return tabular.Materialize(tabular.NewRowScan(fn)).Scan(), nil

	case PlanProject, PlanAggregate:
		// Pipeline breakers restart the stream from a materialized trie.
		trie, err := c.evaluate(node)
		if err != nil {
			return nil, err
		}
		return trie.Scan(), nil
	}
	return nil, fmt.Errorf("%w: unknown plan node kind %d", ErrInternal, node.Kind)
}
