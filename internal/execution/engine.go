package execution

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aidan-bailey/nemo/internal/datavalues"
	"github.com/aidan-bailey/nemo/internal/dictionary"
	"github.com/aidan-bailey/nemo/internal/logging"
	"github.com/aidan-bailey/nemo/internal/model"
	"github.com/aidan-bailey/nemo/internal/tabular"
)

// Program is a compiled rule program: the chase rules in user order plus
// the predicate arities (EDB and IDB alike).
type Program struct {
	Rules      []*model.Rule
	Predicates map[string]int
}

// RuleDiagnostics counts per-rule evaluation events.
type RuleDiagnostics struct {
	Applications int
	DerivedRows  int
	DroppedRows  int
}

type ruleState struct {
	lastApplied int
	diags       RuleDiagnostics
}

// Engine runs the semi-naive chase: rules fire in user order, each
// application reads only earlier steps (and its own delta window) and
// appends new subtables under a fresh step. The loop stops when a full
// round derives nothing new.
type Engine struct {
	dict     *dictionary.MetaDictionary
	tm       *TableManager
	compiler *Compiler
	program  *Program

	rules []*ruleState
	step  int
	runID string
	log   *logging.Logger
}

// NewEngine validates the program and prepares an engine. Invalid rules
// surface as plan errors before anything runs.
func NewEngine(program *Program) (*Engine, error) {
	tm := NewTableManager()
	for pred, arity := range program.Predicates {
		if err := tm.Register(pred, arity); err != nil {
			return nil, err
		}
	}
	for _, rule := range program.Rules {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPlan, err)
		}
		for _, atom := range rule.Positive {
			if err := checkAtomArity(tm, atom.Predicate, len(atom.Variables)); err != nil {
				return nil, err
			}
		}
		for _, atom := range rule.Negative {
			if err := checkAtomArity(tm, atom.Predicate, len(atom.Variables)); err != nil {
				return nil, err
			}
		}
		for _, atom := range rule.Head {
			if err := checkAtomArity(tm, atom.Predicate, len(atom.Terms)); err != nil {
				return nil, err
			}
		}
	}

	states := make([]*ruleState, len(program.Rules))
	for i := range states {
		states[i] = &ruleState{}
	}
	return &Engine{
		dict:     dictionary.NewMetaDictionary(),
		tm:       tm,
		compiler: NewCompiler(tm),
		program:  program,
		rules:    states,
		step:     1,
		runID:    uuid.NewString(),
		log:      logging.Get(logging.CategoryChase),
	}, nil
}

func checkAtomArity(tm *TableManager, pred string, arity int) error {
	declared, ok := tm.Arity(pred)
	if !ok {
		return fmt.Errorf("%w: predicate %s is not declared", ErrPlan, pred)
	}
	if declared != arity {
		return fmt.Errorf("%w: predicate %s/%d used with arity %d", ErrType, pred, declared, arity)
	}
	return nil
}

// Dictionary exposes the engine's dictionary.
func (e *Engine) Dictionary() *dictionary.MetaDictionary { return e.dict }

// Tables exposes the table manager.
func (e *Engine) Tables() *TableManager { return e.tm }

// RunID identifies this materialization run in diagnostics.
func (e *Engine) RunID() string { return e.runID }

// Diagnostics returns the per-rule counters in rule order.
func (e *Engine) Diagnostics() []RuleDiagnostics {
	out := make([]RuleDiagnostics, len(e.rules))
	for i, s := range e.rules {
		out[i] = s.diags
	}
	return out
}

// LoadFacts adds EDB rows for a predicate at step 0.
func (e *Engine) LoadFacts(pred string, rows [][]datavalues.DataValue) error {
	writer, err := e.TupleWriter(pred)
	if err != nil {
		return err
	}
	for _, row := range rows {
		for i, v := range row {
			writer.Accept(i, v)
		}
		writer.EndTuple()
	}
	return writer.Commit()
}

// Materialize runs the chase to saturation. The context cancels
// cooperatively at rule boundaries; already-committed subtables remain
// valid afterwards.
func (e *Engine) Materialize(ctx context.Context) error {
	if len(e.program.Rules) == 0 {
		return nil
	}
	e.log.Info("materialization started", "run", e.runID, "rules", len(e.program.Rules))

	saturated := 0
	index := 0
	for saturated < len(e.program.Rules) {
		if err := ctx.Err(); err != nil {
			e.log.Warn("materialization cancelled", "run", e.runID, "step", e.step)
			return err
		}

		rule := e.program.Rules[index]
		state := e.rules[index]

		derived, err := e.applyRule(ctx, rule, state)
		if err != nil {
			return err
		}
		state.diags.Applications++
		state.diags.DerivedRows += derived
		state.lastApplied = e.step
		e.step++

		if derived > 0 {
			saturated = 0
		} else {
			saturated++
		}
		index = (index + 1) % len(e.program.Rules)
	}

	e.log.Info("materialization finished", "run", e.runID, "steps", e.step-1)
	return nil
}

// CurrentStep returns the next step number to be assigned.
func (e *Engine) CurrentStep() int { return e.step }

// variableOrder returns the rule's join order: the positive body variables
// in order of first occurrence. No other candidate orders are considered,
// so the number or depth of the permutations an order needs does not
// influence the choice; the order depends only on the rule text.
func variableOrder(rule *model.Rule) []model.Variable {
	return rule.PositiveVariables()
}

// atomLayout computes, for one body atom under a global variable order,
// the permutation that reorders the atom's columns to the order and the
// output layers the atom occupies.
func atomLayout(atom model.VariableAtom, order []model.Variable) (perm []int, layers []int) {
	type entry struct{ orderPos, column int }
	var entries []entry
	for column, v := range atom.Variables {
		for pos, o := range order {
			if o == v {
				entries = append(entries, entry{orderPos: pos, column: column})
				break
			}
		}
	}
	// Insertion sort by order position keeps the layout deterministic.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].orderPos < entries[j-1].orderPos; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	for _, en := range entries {
		perm = append(perm, en.column)
		layers = append(layers, en.orderPos)
	}
	return perm, layers
}

// bodyPlan builds the semi-naive body of a rule: a union over pivot
// choices, where the pivot atom reads only the delta window
// [lastApplied, step) and the remaining atoms read everything earlier.
func (e *Engine) bodyPlan(rule *model.Rule, state *ruleState) *PlanNode {
	order := variableOrder(rule)
	schema := OperationTable(order)

	join := func(pivot int) *PlanNode {
		node := &PlanNode{Kind: PlanJoin, Schema: schema}
		for i, atom := range rule.Positive {
			perm, layers := atomLayout(atom, order)
			lo, hi := 0, e.step
			if pivot >= 0 && i == pivot {
				lo = state.lastApplied
			}
			atomSchema := make(OperationTable, len(layers))
			for k, l := range layers {
				atomSchema[k] = order[l]
			}
			node.Children = append(node.Children, Load(atom.Predicate, lo, hi, perm, atomSchema))
			node.LayerMaps = append(node.LayerMaps, layers)
		}
		return node
	}

	// Aggregate rules recompute over the full tables: a delta window
	// would fold incomplete groups. Duplicate elimination keeps the
	// recomputation terminating.
	if state.lastApplied == 0 || rule.Aggregate != nil {
		return join(-1)
	}
	union := &PlanNode{Kind: PlanUnion, Schema: schema}
	for pivot := range rule.Positive {
		union.Children = append(union.Children, join(pivot))
	}
	return union
}

// condition converts a constraint into a physical filter over the given
// schema; failures of the predicate drop the row and bump the rule's
// dropped counter.
func (e *Engine) condition(c model.Constraint, schema OperationTable, state *ruleState) (tabular.FilterCondition, error) {
	vars := c.Variables()
	last := -1
	positions := make(map[model.Variable]int, len(vars))
	for v := range vars {
		pos := schema.PositionOf(v)
		if pos < 0 {
			return tabular.FilterCondition{}, fmt.Errorf("%w: constraint references unbound variable ?%s", ErrPlan, v)
		}
		positions[v] = pos
		if pos > last {
			last = pos
		}
	}
	if last < 0 {
		last = 0
	}
	expr := c.Expr
	return tabular.FilterCondition{
		LastLayer: last,
		Pred: func(prefix []datavalues.StorageValue) bool {
			binding := make(model.Binding, len(positions))
			for v, pos := range positions {
				value, ok := e.dict.StorageToValue(prefix[pos])
				if !ok {
					state.diags.DroppedRows++
					return false
				}
				binding[v] = value
			}
			result, ok := expr.Evaluate(binding)
			if !ok || result.Kind() != datavalues.KindBoolean {
				state.diags.DroppedRows++
				return false
			}
			return result.AsBool()
		},
	}, nil
}

// appendExpr converts a constructor expression into a physical append
// over the given schema.
func (e *Engine) appendExpr(expr *model.Expr, schema OperationTable, state *ruleState) tabular.AppendExpr {
	vars := make(map[model.Variable]bool)
	expr.Variables(vars)
	positions := make(map[model.Variable]int, len(vars))
	for v := range vars {
		positions[v] = schema.PositionOf(v)
	}
	return func(bound []datavalues.StorageValue) (datavalues.StorageValue, bool) {
		binding := make(model.Binding, len(positions))
		for v, pos := range positions {
			value, ok := e.dict.StorageToValue(bound[pos])
			if !ok {
				state.diags.DroppedRows++
				return datavalues.StorageValue{}, false
			}
			binding[v] = value
		}
		result, ok := expr.Evaluate(binding)
		if !ok {
			state.diags.DroppedRows++
			return datavalues.StorageValue{}, false
		}
		storage, ok := e.dict.ValueToStorage(result)
		if !ok {
			state.diags.DroppedRows++
			return datavalues.StorageValue{}, false
		}
		return storage, true
	}
}

// negationPlan wraps the body in a subtraction against every negated
// atom: the negated relation is filtered by its per-atom constraints and
// projected onto the variables it shares with the body, ordered like the
// body schema.
func (e *Engine) negationPlan(rule *model.Rule, body *PlanNode, schema OperationTable, state *ruleState) (*PlanNode, error) {
	if len(rule.Negative) == 0 {
		return body, nil
	}
	node := &PlanNode{Kind: PlanSubtract, Schema: schema, Children: []*PlanNode{body}}

	for i, atom := range rule.Negative {
		atomSchema := make(OperationTable, len(atom.Variables))
		copy(atomSchema, atom.Variables)
		load := Load(atom.Predicate, 0, e.step, tabular.IdentityPermutation(len(atom.Variables)), atomSchema)

		var sub *PlanNode = load
		if len(rule.NegativeFilters[i]) > 0 {
			sel := &PlanNode{Kind: PlanSelect, Schema: atomSchema, Children: []*PlanNode{load}}
			for _, c := range rule.NegativeFilters[i] {
				cond, err := e.condition(c, atomSchema, state)
				if err != nil {
					return nil, err
				}
				sel.Conditions = append(sel.Conditions, cond)
			}
			sub = sel
		}

		// Shared variables, ordered like the body schema.
		var projection []int
		var layers []int
		for pos, v := range schema {
			if column := atomSchema.PositionOf(v); column >= 0 {
				projection = append(projection, column)
				layers = append(layers, pos)
			}
		}
		if len(layers) == 0 {
			return nil, fmt.Errorf("%w: negated atom %s shares no variables with the body", ErrPlan, atom)
		}
		projSchema := make(OperationTable, len(layers))
		for k, l := range layers {
			projSchema[k] = schema[l]
		}
		project := &PlanNode{Kind: PlanProject, Schema: projSchema, Children: []*PlanNode{sub}, Projection: projection}

		node.Children = append(node.Children, project)
		node.LayerMaps = append(node.LayerMaps, layers)
	}
	return node, nil
}

// applyRule evaluates one rule at the current step and writes its head
// subtables. It returns the number of genuinely new rows.
func (e *Engine) applyRule(ctx context.Context, rule *model.Rule, state *ruleState) (int, error) {
	order := variableOrder(rule)
	schema := make(OperationTable, len(order))
	copy(schema, order)

	node := e.bodyPlan(rule, state)

	// Constructors extend the schema, then constraints filter.
	if len(rule.Constructors) > 0 {
		appendNode := &PlanNode{Kind: PlanAppend, Children: []*PlanNode{node}}
		for _, c := range rule.Constructors {
			appendNode.Exprs = append(appendNode.Exprs, e.appendExpr(c.Expr, schema, state))
			schema = append(schema, c.Variable)
		}
		appendNode.Schema = schema
		node = appendNode
	}
	if len(rule.Constraints) > 0 {
		sel := &PlanNode{Kind: PlanSelect, Schema: schema, Children: []*PlanNode{node}}
		for _, c := range rule.Constraints {
			cond, err := e.condition(c, schema, state)
			if err != nil {
				return 0, err
			}
			sel.Conditions = append(sel.Conditions, cond)
		}
		node = sel
	}

	var err error
	node, err = e.negationPlan(rule, node, schema, state)
	if err != nil {
		return 0, err
	}

	// Aggregation runs strictly after negation: project to the group-by
	// variables plus the aggregated variable, fold, then apply the
	// aggregate's own constructors and constraints.
	if agg := rule.Aggregate; agg != nil {
		projection := make([]int, 0, len(agg.GroupBy)+1)
		projSchema := make(OperationTable, 0, len(agg.GroupBy)+1)
		for _, v := range agg.GroupBy {
			projection = append(projection, schema.PositionOf(v))
			projSchema = append(projSchema, v)
		}
		projection = append(projection, schema.PositionOf(agg.Input))
		projSchema = append(projSchema, agg.Input)

		project := &PlanNode{Kind: PlanProject, Schema: projSchema, Children: []*PlanNode{node}, Projection: projection}
		aggSchema := make(OperationTable, len(agg.GroupBy), len(agg.GroupBy)+1)
		copy(aggSchema, agg.GroupBy)
		aggSchema = append(aggSchema, agg.Output)
		node = &PlanNode{
			Kind:          PlanAggregate,
			Schema:        aggSchema,
			Children:      []*PlanNode{project},
			GroupBy:       len(agg.GroupBy),
			AggregateKind: aggregateKind(agg.Kind),
		}
		schema = aggSchema

		if len(rule.AggConstructors) > 0 {
			appendNode := &PlanNode{Kind: PlanAppend, Children: []*PlanNode{node}}
			for _, c := range rule.AggConstructors {
				appendNode.Exprs = append(appendNode.Exprs, e.appendExpr(c.Expr, schema, state))
				schema = append(schema, c.Variable)
			}
			appendNode.Schema = schema
			node = appendNode
		}
		if len(rule.AggConstraints) > 0 {
			sel := &PlanNode{Kind: PlanSelect, Schema: schema, Children: []*PlanNode{node}}
			for _, c := range rule.AggConstraints {
				cond, err := e.condition(c, schema, state)
				if err != nil {
					return 0, err
				}
				sel.Conditions = append(sel.Conditions, cond)
			}
			node = sel
		}
	}

	body, err := e.compiler.CompileToTrie(node)
	if err != nil {
		return 0, err
	}
	if body.IsEmpty() {
		return 0, nil
	}

	return e.writeHeads(ctx, rule, state, body, schema)
}

func aggregateKind(kind model.AggregateKind) tabular.AggregateKind {
	switch kind {
	case model.AggCount:
		return tabular.AggCount
	case model.AggSum:
		return tabular.AggSum
	case model.AggMin:
		return tabular.AggMin
	case model.AggMax:
		return tabular.AggMax
	default:
		return tabular.AggAvg
	}
}

// writeHeads projects the body result onto every head atom, skolemizes
// existential variables, eliminates duplicates against earlier steps, and
// commits the surviving rows as new subtables.
func (e *Engine) writeHeads(ctx context.Context, rule *model.Rule, state *ruleState, body *tabular.Trie, schema OperationTable) (int, error) {
	rows := tabular.CollectRows(tabular.NewRowScan(body.Scan()), body.Arity())

	// Frontier: the body variables the head shares. Each distinct
	// frontier tuple receives one fresh null per existential variable,
	// shared across the head atoms of this firing.
	var frontier []int
	if len(rule.Existential) > 0 {
		seen := make(map[model.Variable]bool)
		for _, atom := range rule.Head {
			for _, t := range atom.Terms {
				if t.Ground || seen[t.Variable] || rule.IsExistential(t.Variable) {
					continue
				}
				seen[t.Variable] = true
				frontier = append(frontier, schema.PositionOf(t.Variable))
			}
		}
	}
	nulls := make(map[string]map[model.Variable]datavalues.StorageValue)

	nullFor := func(row []datavalues.StorageValue, v model.Variable) datavalues.StorageValue {
		key := frontierKey(row, frontier)
		perVar, ok := nulls[key]
		if !ok {
			perVar = make(map[model.Variable]datavalues.StorageValue)
			nulls[key] = perVar
		}
		if value, ok := perVar[v]; ok {
			return value
		}
		_, id := e.dict.FreshNull()
		value := datavalues.Id64(id)
		perVar[v] = value
		return value
	}

	derived := 0
	for _, atom := range rule.Head {
		if err := ctx.Err(); err != nil {
			return derived, err
		}

		buffer := tabular.NewTupleBuffer(len(atom.Terms))
		// Ground head terms intern once per application.
		constants := make([]datavalues.StorageValue, len(atom.Terms))
		for i, t := range atom.Terms {
			if t.Ground {
				storage, ok := e.dict.ValueToStorage(t.Value)
				if !ok {
					return derived, fmt.Errorf("%w: head constant %s is not storable", ErrType, t.Value)
				}
				constants[i] = storage
			}
		}

		for _, row := range rows {
			out := make([]datavalues.StorageValue, len(atom.Terms))
			for i, t := range atom.Terms {
				switch {
				case t.Ground:
					out[i] = constants[i]
				case rule.IsExistential(t.Variable):
					out[i] = nullFor(row, t.Variable)
				default:
					out[i] = row[schema.PositionOf(t.Variable)]
				}
			}
			buffer.AddRow(out)
		}

		candidate := tabular.FromTupleBuffer(buffer)
		fresh := e.deduplicate(atom.Predicate, candidate)
		if fresh.IsEmpty() {
			continue
		}
		if err := e.tm.Add(atom.Predicate, e.step, fresh); err != nil {
			return derived, err
		}
		derived += fresh.NumRows()
	}
	return derived, nil
}

func frontierKey(row []datavalues.StorageValue, frontier []int) string {
	key := make([]byte, 0, len(frontier)*16)
	for _, pos := range frontier {
		v := row[pos]
		key = append(key, byte(v.Type()))
		key = append(key, []byte(v.String())...)
		key = append(key, 0)
	}
	return string(key)
}

// deduplicate removes rows already present in earlier subtables of the
// predicate.
func (e *Engine) deduplicate(pred string, candidate *tabular.Trie) *tabular.Trie {
	if candidate.IsEmpty() {
		return candidate
	}
	prior := e.tm.UnionScan(pred, 0, e.step+1, tabular.IdentityPermutation(candidate.Arity()))
	if prior == nil {
		return candidate
	}
	layers := tabular.IdentityPermutation(candidate.Arity())
	subtract := tabular.NewTrieScanSubtract(candidate.Scan(), []tabular.PartialTrieScan{prior}, [][]int{layers})
	return tabular.Materialize(tabular.NewRowScan(subtract))
}
