package model

import (
	"fmt"
)

// AggregateKind mirrors the folds supported by the physical aggregate
// operator.
type AggregateKind uint8

const (
	AggCount AggregateKind = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

// Aggregate describes the optional aggregate of a rule: the input
// variable folded per group, the group-by variables, and the output
// variable the result binds.
type Aggregate struct {
	Kind    AggregateKind
	Input   Variable
	GroupBy []Variable
	Output  Variable
}

// Constructor binds a variable to the value of an expression.
type Constructor struct {
	Variable Variable
	Expr     *Expr
}

// Constraint is a boolean expression a row must satisfy.
type Constraint struct {
	Expr *Expr
}

// Variables returns the variables referenced by the constraint.
func (c Constraint) Variables() map[Variable]bool {
	vars := make(map[Variable]bool)
	c.Expr.Variables(vars)
	return vars
}

// Rule is a rule in chase form: positive body atoms carry only distinct
// variables; constants and repetitions have been normalized away into
// constraints and constructors.
type Rule struct {
	Name string

	Positive        []VariableAtom
	Negative        []VariableAtom
	NegativeFilters [][]Constraint // per negative atom

	Constraints  []Constraint
	Constructors []Constructor

	Aggregate       *Aggregate
	AggConstructors []Constructor
	AggConstraints  []Constraint

	Head []Atom

	// Existential lists head-only variables that are skolemized with
	// fresh nulls instead of being rejected as unbound.
	Existential []Variable
}

// Prefixes of variables introduced by normalization.
const (
	equalityPrefix  = "_EQUALITY_"
	constructPrefix = "_CONSTRUCT_"
)

// PositiveVariables returns the variables bound by the positive body, in
// order of first occurrence.
func (r *Rule) PositiveVariables() []Variable {
	var vars []Variable
	seen := make(map[Variable]bool)
	for _, atom := range r.Positive {
		for _, v := range atom.Variables {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}

// IsExistential reports whether the variable is skolemized.
func (r *Rule) IsExistential(v Variable) bool {
	for _, e := range r.Existential {
		if e == v {
			return true
		}
	}
	return false
}

// Validate rejects rules the planner cannot compile: every head variable
// must be bound by the positive body, a constructor, the aggregate
// output, or be declared existential, and constructors must not form
// cycles.
func (r *Rule) Validate() error {
	bound := make(map[Variable]bool)
	for _, v := range r.PositiveVariables() {
		bound[v] = true
	}

	for _, c := range r.Constructors {
		for v := range c.varsOf() {
			if !bound[v] {
				return fmt.Errorf("rule %s: constructor %s uses unbound variable ?%s", r.Name, c.Variable, v)
			}
		}
		if bound[c.Variable] {
			return fmt.Errorf("rule %s: constructor rebinds ?%s", r.Name, c.Variable)
		}
		bound[c.Variable] = true
	}

	// Negation applies before aggregation, so negated atoms are checked
	// against the pre-aggregation bindings.
	for _, atom := range r.Negative {
		shared := false
		for _, v := range atom.Variables {
			if bound[v] {
				shared = true
			}
		}
		if len(atom.Variables) > 0 && !shared {
			return fmt.Errorf("rule %s: negated atom %s shares no variable with the body", r.Name, atom)
		}
	}

	if r.Aggregate != nil {
		if !bound[r.Aggregate.Input] {
			return fmt.Errorf("rule %s: aggregate input ?%s is unbound", r.Name, r.Aggregate.Input)
		}
		for _, v := range r.Aggregate.GroupBy {
			if !bound[v] {
				return fmt.Errorf("rule %s: group-by variable ?%s is unbound", r.Name, v)
			}
		}
		// After aggregation only the group-by variables survive.
		bound = make(map[Variable]bool)
		for _, v := range r.Aggregate.GroupBy {
			bound[v] = true
		}
		bound[r.Aggregate.Output] = true
		for _, c := range r.AggConstructors {
			for v := range c.varsOf() {
				if !bound[v] {
					return fmt.Errorf("rule %s: aggregate constructor uses unbound variable ?%s", r.Name, v)
				}
			}
			bound[c.Variable] = true
		}
	}

	for _, e := range r.Existential {
		bound[e] = true
	}
	for _, atom := range r.Head {
		for _, t := range atom.Terms {
			if !t.Ground && !bound[t.Variable] {
				return fmt.Errorf("rule %s: head variable ?%s is unbound", r.Name, t.Variable)
			}
		}
	}
	return nil
}

func (c Constructor) varsOf() map[Variable]bool {
	vars := make(map[Variable]bool)
	c.Expr.Variables(vars)
	return vars
}

// Normalize brings a rule with arbitrary body atoms (constants, repeated
// variables) into chase form. The transformation is idempotent: already
// normalized rules pass through unchanged.
func Normalize(name string, body []Atom, negative []Atom, negFilters [][]Constraint,
	constraints []Constraint, constructors []Constructor,
	aggregate *Aggregate, aggConstructors []Constructor, aggConstraints []Constraint,
	head []Atom, existential []Variable) (*Rule, error) {

	rule := &Rule{
		Name:            name,
		Constraints:     constraints,
		Constructors:    constructors,
		Aggregate:       aggregate,
		AggConstructors: aggConstructors,
		AggConstraints:  aggConstraints,
		Head:            head,
		Existential:     existential,
	}

	fresh := 0
	normalizeAtom := func(atom Atom) (VariableAtom, []Constraint) {
		variables := make([]Variable, len(atom.Terms))
		var extra []Constraint
		seen := make(map[Variable]bool)
		for i, term := range atom.Terms {
			switch {
			case term.Ground:
				v := Variable(fmt.Sprintf("%s%d", equalityPrefix, fresh))
				fresh++
				variables[i] = v
				extra = append(extra, Constraint{Expr: Apply(OpEquals, Ref(v), Constant(term.Value))})
			case seen[term.Variable]:
				v := Variable(fmt.Sprintf("%s%d", equalityPrefix, fresh))
				fresh++
				variables[i] = v
				extra = append(extra, Constraint{Expr: Apply(OpEquals, Ref(v), Ref(term.Variable))})
			default:
				seen[term.Variable] = true
				variables[i] = term.Variable
			}
		}
		return VariableAtom{Predicate: atom.Predicate, Variables: variables}, extra
	}

	for _, atom := range body {
		va, extra := normalizeAtom(atom)
		rule.Positive = append(rule.Positive, va)
		rule.Constraints = append(rule.Constraints, extra...)
	}
	for i, atom := range negative {
		va, extra := normalizeAtom(atom)
		rule.Negative = append(rule.Negative, va)
		var filters []Constraint
		if i < len(negFilters) {
			filters = negFilters[i]
		}
		rule.NegativeFilters = append(rule.NegativeFilters, append(filters, extra...))
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}
