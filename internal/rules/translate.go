// Package rules is the surface-syntax collaborator of the engine: rule
// programs are written in Mangle notation, parsed with the Mangle parser,
// and translated into the chase-rule model. Only the Datalog subset the
// engine evaluates is accepted; everything else is a parse error.
package rules

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/parse"

	"github.com/aidan-bailey/nemo/internal/datavalues"
	"github.com/aidan-bailey/nemo/internal/execution"
	"github.com/aidan-bailey/nemo/internal/logging"
	"github.com/aidan-bailey/nemo/internal/model"
)

// Translate parses a rule program and builds the chase program for the
// engine. Head-only variables become existential and are skolemized at
// evaluation time.
func Translate(source string) (*execution.Program, error) {
	unit, err := parse.Unit(bytes.NewReader([]byte(source)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", execution.ErrParse, err)
	}

	log := logging.Get(logging.CategoryPlan)
	program := &execution.Program{Predicates: make(map[string]int)}

	for _, decl := range unit.Decls {
		atom := decl.DeclaredAtom
		program.Predicates[atom.Predicate.Symbol] = len(atom.Args)
	}

	for i, clause := range unit.Clauses {
		if len(clause.Premises) == 0 && clause.Transform == nil {
			// A unit clause is a fact.
			if err := registerAtom(program, clause.Head); err != nil {
				return nil, err
			}
			continue
		}
		rule, err := translateClause(fmt.Sprintf("rule%d", i+1), clause)
		if err != nil {
			return nil, err
		}
		if err := registerRule(program, rule); err != nil {
			return nil, err
		}
		program.Rules = append(program.Rules, rule)
	}

	log.Debug("program translated", "rules", len(program.Rules), "predicates", len(program.Predicates))
	return program, nil
}

// Facts extracts the ground unit clauses of a program as EDB rows.
func Facts(source string) (map[string][][]datavalues.DataValue, error) {
	unit, err := parse.Unit(bytes.NewReader([]byte(source)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", execution.ErrParse, err)
	}
	facts := make(map[string][][]datavalues.DataValue)
	for _, clause := range unit.Clauses {
		if len(clause.Premises) > 0 || clause.Transform != nil {
			continue
		}
		row := make([]datavalues.DataValue, len(clause.Head.Args))
		ground := true
		for i, arg := range clause.Head.Args {
			c, ok := arg.(ast.Constant)
			if !ok {
				ground = false
				break
			}
			row[i] = constantValue(c)
		}
		if !ground {
			return nil, fmt.Errorf("%w: fact %v has non-constant arguments", execution.ErrParse, clause.Head)
		}
		facts[clause.Head.Predicate.Symbol] = append(facts[clause.Head.Predicate.Symbol], row)
	}
	return facts, nil
}

func registerAtom(program *execution.Program, atom ast.Atom) error {
	name := atom.Predicate.Symbol
	arity := len(atom.Args)
	if declared, ok := program.Predicates[name]; ok && declared != arity {
		return fmt.Errorf("%w: predicate %s used with arities %d and %d", execution.ErrType, name, declared, arity)
	}
	program.Predicates[name] = arity
	return nil
}

func registerRule(program *execution.Program, rule *model.Rule) error {
	register := func(pred string, arity int) error {
		if declared, ok := program.Predicates[pred]; ok && declared != arity {
			return fmt.Errorf("%w: predicate %s used with arities %d and %d", execution.ErrType, pred, declared, arity)
		}
		program.Predicates[pred] = arity
		return nil
	}
	for _, a := range rule.Positive {
		if err := register(a.Predicate, len(a.Variables)); err != nil {
			return err
		}
	}
	for _, a := range rule.Negative {
		if err := register(a.Predicate, len(a.Variables)); err != nil {
			return err
		}
	}
	for _, a := range rule.Head {
		if err := register(a.Predicate, len(a.Terms)); err != nil {
			return err
		}
	}
	return nil
}

// comparisonOps maps Mangle's builtin comparison predicates.
var comparisonOps = map[string]model.ExprOp{
	":lt": model.OpLess,
	":le": model.OpLessEq,
	":gt": model.OpGreater,
	":ge": model.OpGreaterEq,
}

// functionOps maps Mangle function symbols onto expression operators.
var functionOps = map[string]model.ExprOp{
	"fn:plus":           model.OpPlus,
	"fn:minus":          model.OpMinus,
	"fn:mult":           model.OpTimes,
	"fn:div":            model.OpDivide,
	"fn:string:concat":  model.OpConcat,
	"fn:string:length":  model.OpStrLength,
	"fn:string:substr":  model.OpStrSubstring,
	"fn:number:to_int":  model.OpCastInteger,
	"fn:number:to_f64":  model.OpCastDouble,
	"fn:string:to_name": model.OpCastString,
}

// aggregateFns maps reducer function symbols onto aggregate kinds.
var aggregateFns = map[string]model.AggregateKind{
	"fn:count": model.AggCount,
	"fn:sum":   model.AggSum,
	"fn:min":   model.AggMin,
	"fn:max":   model.AggMax,
	"fn:avg":   model.AggAvg,
}

func translateClause(name string, clause ast.Clause) (*model.Rule, error) {
	var body []model.Atom
	var negative []model.Atom
	var constraints []model.Constraint
	var constructors []model.Constructor

	for _, premise := range clause.Premises {
		switch p := premise.(type) {
		case ast.Atom:
			if op, ok := comparisonOps[p.Predicate.Symbol]; ok {
				if len(p.Args) != 2 {
					return nil, fmt.Errorf("%w: %s expects two arguments", execution.ErrParse, p.Predicate.Symbol)
				}
				left, err := baseExpr(p.Args[0])
				if err != nil {
					return nil, err
				}
				right, err := baseExpr(p.Args[1])
				if err != nil {
					return nil, err
				}
				constraints = append(constraints, model.Constraint{Expr: model.Apply(op, left, right)})
				continue
			}
			atom, err := plainAtom(p)
			if err != nil {
				return nil, err
			}
			body = append(body, atom)
		case ast.NegAtom:
			atom, err := plainAtom(p.Atom)
			if err != nil {
				return nil, err
			}
			negative = append(negative, atom)
		case ast.Eq:
			if apply, ok := p.Right.(ast.ApplyFn); ok {
				v, ok := p.Left.(ast.Variable)
				if !ok {
					return nil, fmt.Errorf("%w: left side of a binding equality must be a variable", execution.ErrParse)
				}
				expr, err := applyExpr(apply)
				if err != nil {
					return nil, err
				}
				constructors = append(constructors, model.Constructor{Variable: model.Variable(v.Symbol), Expr: expr})
				continue
			}
			left, err := baseExpr(p.Left)
			if err != nil {
				return nil, err
			}
			right, err := baseExpr(p.Right)
			if err != nil {
				return nil, err
			}
			constraints = append(constraints, model.Constraint{Expr: model.Apply(model.OpEquals, left, right)})
		case ast.Ineq:
			left, err := baseExpr(p.Left)
			if err != nil {
				return nil, err
			}
			right, err := baseExpr(p.Right)
			if err != nil {
				return nil, err
			}
			constraints = append(constraints, model.Constraint{Expr: model.Apply(model.OpUnequals, left, right)})
		default:
			return nil, fmt.Errorf("%w: unsupported premise %v", execution.ErrParse, premise)
		}
	}

	aggregate, aggConstructors, err := translateTransform(clause.Transform)
	if err != nil {
		return nil, err
	}
	if aggregate == nil && len(aggConstructors) > 0 {
		// Plain let-transforms are ordinary constructors.
		constructors = append(constructors, aggConstructors...)
		aggConstructors = nil
	}

	head, err := plainAtom(clause.Head)
	if err != nil {
		return nil, err
	}

	// Head-only variables are existential.
	bound := make(map[model.Variable]bool)
	for _, atom := range body {
		for _, t := range atom.Terms {
			if !t.Ground {
				bound[t.Variable] = true
			}
		}
	}
	for _, c := range constructors {
		bound[c.Variable] = true
	}
	if aggregate != nil {
		bound[aggregate.Output] = true
	}
	for _, c := range aggConstructors {
		bound[c.Variable] = true
	}
	var existential []model.Variable
	seen := make(map[model.Variable]bool)
	for _, t := range head.Terms {
		if !t.Ground && !bound[t.Variable] && !seen[t.Variable] {
			seen[t.Variable] = true
			existential = append(existential, t.Variable)
		}
	}

	negFilters := make([][]model.Constraint, len(negative))
	rule, err := model.Normalize(name, body, negative, negFilters,
		constraints, constructors, aggregate, aggConstructors, nil,
		[]model.Atom{head}, existential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", execution.ErrPlan, err)
	}
	return rule, nil
}

// translateTransform handles `|> do fn:group_by(...), let X = fn:...`
// pipelines: one reducer becomes the rule aggregate, further lets become
// aggregate constructors.
func translateTransform(transform *ast.Transform) (*model.Aggregate, []model.Constructor, error) {
	if transform == nil {
		return nil, nil, nil
	}
	var groupBy []model.Variable
	var aggregate *model.Aggregate
	var constructors []model.Constructor

	for _, stmt := range transform.Statements {
		fn := stmt.Fn
		if stmt.Var == nil {
			if fn.Function.Symbol != "fn:group_by" {
				return nil, nil, fmt.Errorf("%w: unsupported transform %s", execution.ErrParse, fn.Function.Symbol)
			}
			for _, arg := range fn.Args {
				v, ok := arg.(ast.Variable)
				if !ok {
					return nil, nil, fmt.Errorf("%w: fn:group_by takes variables", execution.ErrParse)
				}
				groupBy = append(groupBy, model.Variable(v.Symbol))
			}
			continue
		}

		if kind, ok := aggregateFns[fn.Function.Symbol]; ok {
			if aggregate != nil {
				return nil, nil, fmt.Errorf("%w: at most one reducer per rule", execution.ErrParse)
			}
			var input model.Variable
			if len(fn.Args) == 1 {
				v, ok := fn.Args[0].(ast.Variable)
				if !ok {
					return nil, nil, fmt.Errorf("%w: reducer argument must be a variable", execution.ErrParse)
				}
				input = model.Variable(v.Symbol)
			} else if kind != model.AggCount {
				return nil, nil, fmt.Errorf("%w: reducer %s takes one variable", execution.ErrParse, fn.Function.Symbol)
			}
			aggregate = &model.Aggregate{
				Kind:   kind,
				Input:  input,
				Output: model.Variable(stmt.Var.Symbol),
			}
			continue
		}

		expr, err := applyExpr(fn)
		if err != nil {
			return nil, nil, err
		}
		constructors = append(constructors, model.Constructor{
			Variable: model.Variable(stmt.Var.Symbol),
			Expr:     expr,
		})
	}

	if aggregate == nil {
		if len(groupBy) > 0 {
			return nil, nil, fmt.Errorf("%w: fn:group_by without a reducer", execution.ErrParse)
		}
		return nil, constructors, nil
	}
	aggregate.GroupBy = groupBy
	if aggregate.Kind == model.AggCount && aggregate.Input == "" {
		// The planner needs a concrete column to count, so fn:count
		// without a variable argument is rejected.
		return nil, nil, fmt.Errorf("%w: fn:count requires a variable argument", execution.ErrParse)
	}
	return aggregate, nil, nil
}

func plainAtom(atom ast.Atom) (model.Atom, error) {
	out := model.Atom{Predicate: atom.Predicate.Symbol}
	if strings.HasPrefix(out.Predicate, ":") {
		return out, fmt.Errorf("%w: unsupported builtin %s", execution.ErrParse, out.Predicate)
	}
	for _, arg := range atom.Args {
		switch a := arg.(type) {
		case ast.Variable:
			out.Terms = append(out.Terms, model.V(model.Variable(a.Symbol)))
		case ast.Constant:
			out.Terms = append(out.Terms, model.G(constantValue(a)))
		default:
			return out, fmt.Errorf("%w: unsupported term %v in %s", execution.ErrParse, arg, out.Predicate)
		}
	}
	return out, nil
}

func baseExpr(term ast.BaseTerm) (*model.Expr, error) {
	switch t := term.(type) {
	case ast.Variable:
		return model.Ref(model.Variable(t.Symbol)), nil
	case ast.Constant:
		return model.Constant(constantValue(t)), nil
	case ast.ApplyFn:
		return applyExpr(t)
	}
	return nil, fmt.Errorf("%w: unsupported expression term %v", execution.ErrParse, term)
}

func applyExpr(apply ast.ApplyFn) (*model.Expr, error) {
	op, ok := functionOps[apply.Function.Symbol]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported function %s", execution.ErrParse, apply.Function.Symbol)
	}
	args := make([]*model.Expr, 0, len(apply.Args))
	for _, arg := range apply.Args {
		expr, err := baseExpr(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, expr)
	}
	return model.Apply(op, args...), nil
}

// constantValue converts a Mangle constant into a datavalue: names become
// IRIs, strings stay strings, numbers become integers or doubles.
func constantValue(c ast.Constant) datavalues.DataValue {
	switch c.Type {
	case ast.NameType:
		return datavalues.IRI(c.Symbol)
	case ast.StringType:
		return datavalues.String(c.Symbol)
	case ast.NumberType:
		return datavalues.Integer(c.NumValue)
	case ast.Float64Type:
		return datavalues.DoubleValue(math.Float64frombits(uint64(c.NumValue)))
	default:
		return datavalues.String(c.String())
	}
}
