package model

import (
	"testing"

	dv "github.com/aidan-bailey/nemo/internal/datavalues"
)

func TestExprArithmetic(t *testing.T) {
	binding := Binding{"x": dv.Integer(10), "y": dv.Integer(4)}

	cases := []struct {
		expr *Expr
		want dv.DataValue
	}{
		{Apply(OpPlus, Ref("x"), Ref("y")), dv.Integer(14)},
		{Apply(OpMinus, Ref("x"), Ref("y")), dv.Integer(6)},
		{Apply(OpTimes, Ref("x"), Ref("y")), dv.Integer(40)},
		{Apply(OpDivide, Ref("x"), Ref("y")), dv.Integer(2)},
		{Apply(OpRemainder, Ref("x"), Ref("y")), dv.Integer(2)},
		{Apply(OpPlus, Ref("x"), Constant(dv.DoubleValue(0.5))), dv.DoubleValue(10.5)},
		{Apply(OpNegate, Ref("y")), dv.Integer(-4)},
		{Apply(OpAbs, Constant(dv.Integer(-3))), dv.Integer(3)},
	}
	for _, tc := range cases {
		got, ok := tc.expr.Evaluate(binding)
		if !ok || !got.Equal(tc.want) {
			t.Errorf("Evaluate = (%v, %v), want %v", got, ok, tc.want)
		}
	}
}

func TestExprDomainErrors(t *testing.T) {
	binding := Binding{"x": dv.Integer(1), "s": dv.String("a")}
	failing := []*Expr{
		Apply(OpDivide, Ref("x"), Constant(dv.Integer(0))),
		Apply(OpPlus, Ref("x"), Ref("s")),
		Apply(OpPlus, Ref("x"), Ref("missing")),
		Apply(OpCastInteger, Ref("s")),
		Apply(OpNot, Ref("x")),
	}
	for i, expr := range failing {
		if v, ok := expr.Evaluate(binding); ok {
			t.Errorf("case %d evaluated to %v, want failure", i, v)
		}
	}
}

func TestExprComparisonsAndStrings(t *testing.T) {
	binding := Binding{"a": dv.Integer(2), "b": dv.DoubleValue(2.0), "s": dv.String("hello")}

	if got, ok := Apply(OpEquals, Ref("a"), Ref("b")).Evaluate(binding); !ok || !got.AsBool() {
		t.Error("2 == 2.0 should hold across numeric kinds")
	}
	if got, ok := Apply(OpLess, Ref("a"), Constant(dv.Integer(3))).Evaluate(binding); !ok || !got.AsBool() {
		t.Error("2 < 3 failed")
	}
	if got, ok := Apply(OpConcat, Ref("s"), Constant(dv.String("!"))).Evaluate(binding); !ok || got.LexicalValue() != "hello!" {
		t.Errorf("concat = %v", got)
	}
	if got, ok := Apply(OpStrLength, Ref("s")).Evaluate(binding); !ok || got.AsInt64() != 5 {
		t.Errorf("strlen = %v", got)
	}
	if got, ok := Apply(OpStrSubstring, Ref("s"), Constant(dv.Integer(2)), Constant(dv.Integer(3))).Evaluate(binding); !ok || got.LexicalValue() != "ell" {
		t.Errorf("substring = %v", got)
	}
	if got, ok := Apply(OpCastString, Ref("a")).Evaluate(binding); !ok || got.LexicalValue() != "2" {
		t.Errorf("cast string = %v", got)
	}
}

func TestNormalizeIntroducesEqualityVariables(t *testing.T) {
	// p(?x, ?x, 7) normalizes to p(?x, ?e0, ?e1) with two constraints.
	body := []Atom{{
		Predicate: "p",
		Terms:     []Term{V("x"), V("x"), G(dv.Integer(7))},
	}}
	head := []Atom{{Predicate: "q", Terms: []Term{V("x")}}}

	rule, err := Normalize("r1", body, nil, nil, nil, nil, nil, nil, nil, head, nil)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	atom := rule.Positive[0]
	if len(atom.Variables) != 3 {
		t.Fatalf("atom arity = %d", len(atom.Variables))
	}
	if atom.Variables[0] != "x" || atom.Variables[1] == "x" || atom.Variables[2] == "x" {
		t.Errorf("normalized variables = %v", atom.Variables)
	}
	if len(rule.Constraints) != 2 {
		t.Errorf("constraints = %d, want 2", len(rule.Constraints))
	}

	// Normalization of an already-normalized rule changes nothing.
	again, err := Normalize("r1", []Atom{
		{Predicate: "p", Terms: []Term{V("x"), V("y"), V("z")}},
	}, nil, nil, nil, nil, nil, nil, nil, head, nil)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(again.Constraints) != 0 {
		t.Errorf("idempotent normalization added constraints: %v", again.Constraints)
	}
}

func TestValidateRejectsUnboundHead(t *testing.T) {
	body := []Atom{{Predicate: "p", Terms: []Term{V("x")}}}
	head := []Atom{{Predicate: "q", Terms: []Term{V("x"), V("y")}}}

	if _, err := Normalize("bad", body, nil, nil, nil, nil, nil, nil, nil, head, nil); err == nil {
		t.Fatal("unbound head variable accepted")
	}
	// The same head is fine when ?y is existential.
	if _, err := Normalize("ok", body, nil, nil, nil, nil, nil, nil, nil, head, []Variable{"y"}); err != nil {
		t.Fatalf("existential head rejected: %v", err)
	}
}

func TestValidateConstructorCycles(t *testing.T) {
	body := []Atom{{Predicate: "p", Terms: []Term{V("x")}}}
	head := []Atom{{Predicate: "q", Terms: []Term{V("c")}}}
	ctors := []Constructor{{Variable: "c", Expr: Apply(OpPlus, Ref("c"), Constant(dv.Integer(1)))}}

	if _, err := Normalize("cyclic", body, nil, nil, nil, ctors, nil, nil, nil, head, nil); err == nil {
		t.Fatal("self-referential constructor accepted")
	}
}
