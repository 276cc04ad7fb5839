package model

import (
	"strconv"
	"strings"

	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// ExprOp enumerates the operations of expression trees. Evaluation is
// strict: any domain error (division by zero, cast failure, type
// mismatch) fails the expression and thereby drops the row.
type ExprOp uint8

const (
	OpConst ExprOp = iota
	OpVariable

	// Numeric, n-ary where sensible.
	OpPlus
	OpMinus
	OpTimes
	OpDivide
	OpRemainder
	OpNegate
	OpAbs

	// Comparisons.
	OpEquals
	OpUnequals
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq

	// Boolean.
	OpAnd
	OpOr
	OpNot

	// Strings.
	OpConcat
	OpStrLength
	OpStrSubstring // ternary: string, start, length

	// Casts.
	OpCastInteger
	OpCastDouble
	OpCastFloat
	OpCastString
)

// Expr is a node of an expression tree over variables and constants.
type Expr struct {
	Op    ExprOp
	Const datavalues.DataValue
	Var   Variable
	Args  []*Expr
}

// Constant builds a constant leaf.
func Constant(v datavalues.DataValue) *Expr { return &Expr{Op: OpConst, Const: v} }

// Ref builds a variable leaf.
func Ref(v Variable) *Expr { return &Expr{Op: OpVariable, Var: v} }

// Apply builds an operation node.
func Apply(op ExprOp, args ...*Expr) *Expr { return &Expr{Op: op, Args: args} }

// Variables appends the variables referenced by the tree to vars.
func (e *Expr) Variables(vars map[Variable]bool) {
	if e.Op == OpVariable {
		vars[e.Var] = true
	}
	for _, a := range e.Args {
		a.Variables(vars)
	}
}

// asNumber widens a numeric value for mixed arithmetic.
func asNumber(v datavalues.DataValue) (float64, bool, bool) {
	switch v.Kind() {
	case datavalues.KindInteger, datavalues.KindLong:
		return float64(v.AsInt64()), true, true
	case datavalues.KindFloat, datavalues.KindDouble:
		return v.AsFloat64(), false, true
	}
	return 0, false, false
}

// Evaluate computes the tree under a binding. The second result is false
// on any domain error; callers drop the affected row.
func (e *Expr) Evaluate(binding Binding) (datavalues.DataValue, bool) {
	switch e.Op {
	case OpConst:
		return e.Const, true
	case OpVariable:
		v, ok := binding[e.Var]
		return v, ok
	case OpPlus, OpMinus, OpTimes, OpDivide, OpRemainder:
		return e.evalArithmetic(binding)
	case OpNegate:
		v, ok := e.Args[0].Evaluate(binding)
		if !ok {
			return datavalues.DataValue{}, false
		}
		switch v.Kind() {
		case datavalues.KindInteger, datavalues.KindLong:
			return datavalues.Integer(-v.AsInt64()), true
		case datavalues.KindFloat, datavalues.KindDouble:
			return datavalues.DoubleValue(-v.AsFloat64()), true
		}
		return datavalues.DataValue{}, false
	case OpAbs:
		v, ok := e.Args[0].Evaluate(binding)
		if !ok {
			return datavalues.DataValue{}, false
		}
		switch v.Kind() {
		case datavalues.KindInteger, datavalues.KindLong:
			n := v.AsInt64()
			if n < 0 {
				n = -n
			}
			return datavalues.Integer(n), true
		case datavalues.KindFloat, datavalues.KindDouble:
			f := v.AsFloat64()
			if f < 0 {
				f = -f
			}
			return datavalues.DoubleValue(f), true
		}
		return datavalues.DataValue{}, false
	case OpEquals, OpUnequals, OpLess, OpLessEq, OpGreater, OpGreaterEq:
		return e.evalComparison(binding)
	case OpAnd, OpOr:
		result := e.Op == OpAnd
		for _, a := range e.Args {
			v, ok := a.Evaluate(binding)
			if !ok || v.Kind() != datavalues.KindBoolean {
				return datavalues.DataValue{}, false
			}
			if e.Op == OpAnd {
				result = result && v.AsBool()
			} else {
				result = result || v.AsBool()
			}
		}
		return datavalues.Boolean(result), true
	case OpNot:
		v, ok := e.Args[0].Evaluate(binding)
		if !ok || v.Kind() != datavalues.KindBoolean {
			return datavalues.DataValue{}, false
		}
		return datavalues.Boolean(!v.AsBool()), true
	case OpConcat:
		var sb strings.Builder
		for _, a := range e.Args {
			v, ok := a.Evaluate(binding)
			if !ok || v.Kind() != datavalues.KindString {
				return datavalues.DataValue{}, false
			}
			sb.WriteString(v.LexicalValue())
		}
		return datavalues.String(sb.String()), true
	case OpStrLength:
		v, ok := e.Args[0].Evaluate(binding)
		if !ok || v.Kind() != datavalues.KindString {
			return datavalues.DataValue{}, false
		}
		return datavalues.Integer(int64(len([]rune(v.LexicalValue())))), true
	case OpStrSubstring:
		return e.evalSubstring(binding)
	case OpCastInteger, OpCastDouble, OpCastFloat, OpCastString:
		return e.evalCast(binding)
	}
	return datavalues.DataValue{}, false
}

func (e *Expr) evalArithmetic(binding Binding) (datavalues.DataValue, bool) {
	if len(e.Args) == 0 {
		return datavalues.DataValue{}, false
	}
	values := make([]datavalues.DataValue, len(e.Args))
	allInt := true
	for i, a := range e.Args {
		v, ok := a.Evaluate(binding)
		if !ok {
			return datavalues.DataValue{}, false
		}
		_, isInt, numeric := asNumber(v)
		if !numeric {
			return datavalues.DataValue{}, false
		}
		allInt = allInt && isInt
		values[i] = v
	}

	if allInt {
		acc := values[0].AsInt64()
		for _, v := range values[1:] {
			n := v.AsInt64()
			switch e.Op {
			case OpPlus:
				acc += n
			case OpMinus:
				acc -= n
			case OpTimes:
				acc *= n
			case OpDivide:
				if n == 0 {
					return datavalues.DataValue{}, false
				}
				acc /= n
			case OpRemainder:
				if n == 0 {
					return datavalues.DataValue{}, false
				}
				acc %= n
			}
		}
		return datavalues.Integer(acc), true
	}

	acc, _, _ := asNumber(values[0])
	for _, v := range values[1:] {
		f, _, _ := asNumber(v)
		switch e.Op {
		case OpPlus:
			acc += f
		case OpMinus:
			acc -= f
		case OpTimes:
			acc *= f
		case OpDivide:
			if f == 0 {
				return datavalues.DataValue{}, false
			}
			acc /= f
		case OpRemainder:
			return datavalues.DataValue{}, false
		}
	}
	if acc != acc {
		return datavalues.DataValue{}, false
	}
	return datavalues.DoubleValue(acc), true
}

func (e *Expr) evalComparison(binding Binding) (datavalues.DataValue, bool) {
	left, ok := e.Args[0].Evaluate(binding)
	if !ok {
		return datavalues.DataValue{}, false
	}
	right, ok := e.Args[1].Evaluate(binding)
	if !ok {
		return datavalues.DataValue{}, false
	}

	if e.Op == OpEquals || e.Op == OpUnequals {
		lf, _, ln := asNumber(left)
		rf, _, rn := asNumber(right)
		var equal bool
		if ln && rn {
			equal = lf == rf
		} else {
			equal = left.Equal(right)
		}
		return datavalues.Boolean(equal == (e.Op == OpEquals)), true
	}

	lf, _, ln := asNumber(left)
	rf, _, rn := asNumber(right)
	if !ln || !rn {
		// Ordering comparisons on strings compare lexicographically;
		// anything else is a type error.
		if left.Kind() == datavalues.KindString && right.Kind() == datavalues.KindString {
			cmp := strings.Compare(left.LexicalValue(), right.LexicalValue())
			return compareResult(e.Op, float64(cmp), 0), true
		}
		return datavalues.DataValue{}, false
	}
	return compareResult(e.Op, lf, rf), true
}

func compareResult(op ExprOp, left, right float64) datavalues.DataValue {
	switch op {
	case OpLess:
		return datavalues.Boolean(left < right)
	case OpLessEq:
		return datavalues.Boolean(left <= right)
	case OpGreater:
		return datavalues.Boolean(left > right)
	default:
		return datavalues.Boolean(left >= right)
	}
}

func (e *Expr) evalSubstring(binding Binding) (datavalues.DataValue, bool) {
	s, ok := e.Args[0].Evaluate(binding)
	if !ok || s.Kind() != datavalues.KindString {
		return datavalues.DataValue{}, false
	}
	start, ok := e.Args[1].Evaluate(binding)
	if !ok {
		return datavalues.DataValue{}, false
	}
	from, isInt, numeric := asNumber(start)
	if !numeric || !isInt {
		return datavalues.DataValue{}, false
	}
	runes := []rune(s.LexicalValue())
	// Positions are 1-based as in the rule language.
	begin := int(from) - 1
	if begin < 0 || begin > len(runes) {
		return datavalues.DataValue{}, false
	}
	end := len(runes)
	if len(e.Args) == 3 {
		length, ok := e.Args[2].Evaluate(binding)
		if !ok {
			return datavalues.DataValue{}, false
		}
		n, isInt, numeric := asNumber(length)
		if !numeric || !isInt || n < 0 {
			return datavalues.DataValue{}, false
		}
		if begin+int(n) < end {
			end = begin + int(n)
		}
	}
	return datavalues.String(string(runes[begin:end])), true
}

func (e *Expr) evalCast(binding Binding) (datavalues.DataValue, bool) {
	v, ok := e.Args[0].Evaluate(binding)
	if !ok {
		return datavalues.DataValue{}, false
	}
	switch e.Op {
	case OpCastInteger:
		switch v.Kind() {
		case datavalues.KindInteger, datavalues.KindLong:
			return v, true
		case datavalues.KindFloat, datavalues.KindDouble:
			return datavalues.Integer(int64(v.AsFloat64())), true
		case datavalues.KindString:
			n, err := strconv.ParseInt(v.LexicalValue(), 10, 64)
			if err != nil {
				return datavalues.DataValue{}, false
			}
			return datavalues.Integer(n), true
		}
	case OpCastDouble, OpCastFloat:
		f, _, numeric := asNumber(v)
		if !numeric {
			if v.Kind() != datavalues.KindString {
				return datavalues.DataValue{}, false
			}
			parsed, err := strconv.ParseFloat(v.LexicalValue(), 64)
			if err != nil {
				return datavalues.DataValue{}, false
			}
			f = parsed
		}
		if e.Op == OpCastFloat {
			return datavalues.FloatValue(float32(f)), true
		}
		return datavalues.DoubleValue(f), true
	case OpCastString:
		return datavalues.String(v.LexicalValue()), true
	}
	return datavalues.DataValue{}, false
}
