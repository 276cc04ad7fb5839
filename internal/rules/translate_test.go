package rules

import (
	"context"
	"errors"
	"testing"

	dv "github.com/aidan-bailey/nemo/internal/datavalues"
	"github.com/aidan-bailey/nemo/internal/execution"
	"github.com/aidan-bailey/nemo/internal/model"
)

const closureProgram = `
e(/a, /b).
e(/b, /c).
e(/c, /d).

t(X, Y) :- e(X, Y).
t(X, Z) :- t(X, Y), e(Y, Z).
`

func TestTranslateClosureProgram(t *testing.T) {
	program, err := Translate(closureProgram)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if len(program.Rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(program.Rules))
	}
	if program.Predicates["e"] != 2 || program.Predicates["t"] != 2 {
		t.Errorf("predicates = %v", program.Predicates)
	}

	step := program.Rules[1]
	if len(step.Positive) != 2 {
		t.Fatalf("step rule body = %d atoms", len(step.Positive))
	}
	if step.Positive[0].Predicate != "t" || step.Positive[1].Predicate != "e" {
		t.Errorf("body order = %v", step.Positive)
	}

	facts, err := Facts(closureProgram)
	if err != nil {
		t.Fatalf("Facts() error = %v", err)
	}
	if len(facts["e"]) != 3 {
		t.Errorf("e facts = %d, want 3", len(facts["e"]))
	}
	if facts["e"][0][0].Kind() != dv.KindIRI {
		t.Errorf("name constants should become IRIs, got %v", facts["e"][0][0].Kind())
	}
}

func TestTranslateEndToEnd(t *testing.T) {
	program, err := Translate(closureProgram)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	engine, err := execution.NewEngine(program)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	facts, err := Facts(closureProgram)
	if err != nil {
		t.Fatalf("Facts() error = %v", err)
	}
	for pred, rows := range facts {
		if err := engine.LoadFacts(pred, rows); err != nil {
			t.Fatalf("LoadFacts() error = %v", err)
		}
	}
	if err := engine.Materialize(context.Background()); err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	it, err := engine.Rows("t")
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	rows, err := it.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(rows) != 6 {
		t.Errorf("closure size = %d, want 6", len(rows))
	}
}

func TestTranslateNegation(t *testing.T) {
	program, err := Translate(`
p(1). p(2). p(3).
q(2).
r(X) :- p(X), !q(X).
`)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	rule := program.Rules[0]
	if len(rule.Negative) != 1 || rule.Negative[0].Predicate != "q" {
		t.Errorf("negative atoms = %v", rule.Negative)
	}
}

func TestTranslateExistentialHead(t *testing.T) {
	program, err := Translate(`
h(/a).
r(X, Y) :- h(X).
`)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	rule := program.Rules[0]
	if len(rule.Existential) != 1 || rule.Existential[0] != model.Variable("Y") {
		t.Errorf("existential = %v", rule.Existential)
	}
}

func TestTranslateRejectsGarbage(t *testing.T) {
	if _, err := Translate("this is not a rule program"); !errors.Is(err, execution.ErrParse) {
		t.Fatalf("error = %v, want parse error", err)
	}
}
