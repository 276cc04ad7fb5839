// Package model defines the chase-form rule model the engine evaluates:
// atoms over variables, expression trees for constraints and constructors,
// aggregates, and the normalization that brings surface rules into chase
// form.
package model

import (
	"fmt"
	"strings"

	"github.com/aidan-bailey/nemo/internal/datavalues"
)

// Variable names a rule variable.
type Variable string

// Term is either a variable or a ground datavalue.
type Term struct {
	Variable Variable
	Value    datavalues.DataValue
	Ground   bool
}

// V builds a variable term.
func V(name Variable) Term { return Term{Variable: name} }

// G builds a ground term.
func G(value datavalues.DataValue) Term { return Term{Value: value, Ground: true} }

func (t Term) String() string {
	if t.Ground {
		return t.Value.String()
	}
	return "?" + string(t.Variable)
}

// Atom is a predicate applied to terms; head atoms may mix variables and
// ground values.
type Atom struct {
	Predicate string
	Terms     []Term
}

func (a Atom) String() string {
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", a.Predicate, strings.Join(parts, ", "))
}

// Variables returns the distinct variables of the atom in order of first
// occurrence.
func (a Atom) Variables() []Variable {
	var vars []Variable
	seen := make(map[Variable]bool)
	for _, t := range a.Terms {
		if !t.Ground && !seen[t.Variable] {
			seen[t.Variable] = true
			vars = append(vars, t.Variable)
		}
	}
	return vars
}

// VariableAtom is a normalized body atom: variables only, no repeats.
type VariableAtom struct {
	Predicate string
	Variables []Variable
}

func (a VariableAtom) String() string {
	parts := make([]string, len(a.Variables))
	for i, v := range a.Variables {
		parts[i] = "?" + string(v)
	}
	return fmt.Sprintf("%s(%s)", a.Predicate, strings.Join(parts, ", "))
}

// Binding assigns datavalues to variables during evaluation.
type Binding map[Variable]datavalues.DataValue
