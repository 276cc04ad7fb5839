package datavalues

import (
	"testing"
)

func TestStorageValueOrder(t *testing.T) {
	ordered := []StorageValue{
		Id32(0), Id32(7), Id64(3), Id64(900), Int64(-12), Int64(0), Int64(44),
		Float(-1.5), Float(3.25), Double(-100.0), Double(0.0),
	}
	for i := 0; i < len(ordered); i++ {
		for j := 0; j < len(ordered); j++ {
			got := ordered[i].Compare(ordered[j])
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			if got != want {
				t.Errorf("Compare(%v, %v) = %d, want %d", ordered[i], ordered[j], got, want)
			}
		}
	}
}

func TestStorageValueAccessors(t *testing.T) {
	if got := Id32(42).AsId32(); got != 42 {
		t.Errorf("AsId32() = %d, want 42", got)
	}
	if got := Int64(-9).AsInt64(); got != -9 {
		t.Errorf("AsInt64() = %d, want -9", got)
	}
	if got := Float(1.5).AsFloat(); got != 1.5 {
		t.Errorf("AsFloat() = %v, want 1.5", got)
	}
	if got := Double(-2.25).AsDouble(); got != -2.25 {
		t.Errorf("AsDouble() = %v, want -2.25", got)
	}
}

func TestStorageValueNaNPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Float(NaN) did not panic")
		}
	}()
	nan := float32(0)
	nan = nan / nan
	Float(nan)
}

func TestIntegerDomainTightening(t *testing.T) {
	if got := Integer(12).Kind(); got != KindInteger {
		t.Errorf("Integer(12).Kind() = %v, want integer", got)
	}
	if got := Integer(1 << 40).Kind(); got != KindLong {
		t.Errorf("Integer(2^40).Kind() = %v, want long", got)
	}
	if got := Integer(12).DatatypeIRI(); got != XSDInt {
		t.Errorf("datatype = %q, want xsd:int", got)
	}
	if got := Integer(1 << 40).DatatypeIRI(); got != XSDLong {
		t.Errorf("datatype = %q, want xsd:long", got)
	}
}

func TestCanonicalForms(t *testing.T) {
	cases := []struct {
		value DataValue
		want  string
	}{
		{IRI("http://example.org/a"), "http://example.org/a"},
		{String(`say "hi"`), `"say \"hi\""`},
		{LangString("chat", "fr"), `"chat"@fr`},
		{TypedLiteral("P1D", "http://www.w3.org/2001/XMLSchema#duration"),
			`"P1D"^^<http://www.w3.org/2001/XMLSchema#duration>`},
		{Integer(-42), "-42"},
		{DoubleValue(0.1), `"0.1"^^<` + XSDDouble + `>`},
		{Boolean(true), "true"},
		{Null(123), "_:n123"},
	}
	for _, tc := range cases {
		if got := tc.value.Canonical(); got != tc.want {
			t.Errorf("Canonical(%v) = %q, want %q", tc.value.Kind(), got, tc.want)
		}
	}
}

func TestKeyInjective(t *testing.T) {
	values := []DataValue{
		IRI("a"), String("a"), LangString("a", "en"), LangString("a@en", ""),
		TypedLiteral("a", "en"), Integer(1), Long(1 << 40), Boolean(true),
		Null(1), Tuple(String("a")), Tuple(String("a"), String("b")),
		MapValue(String("a"), String("b")),
	}
	seen := make(map[string]DataValue)
	for _, v := range values {
		key := v.Key()
		if prev, ok := seen[key]; ok {
			t.Errorf("key collision between %v and %v", prev, v)
		}
		seen[key] = v
	}
}

func TestEqual(t *testing.T) {
	if !Tuple(String("x"), Integer(1)).Equal(Tuple(String("x"), Integer(1))) {
		t.Error("equal tuples reported unequal")
	}
	if LangString("a", "en").Equal(LangString("a", "de")) {
		t.Error("different language tags reported equal")
	}
	if Null(1).Equal(Null(2)) {
		t.Error("distinct nulls reported equal")
	}
}
