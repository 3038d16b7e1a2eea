package core

import (
	"reflect"
	"testing"
)

func TestParseFilterSet_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"bad json", "{not json"},
		{"unknown operator", `{"matchType":"and","rules":[{"field":"city","operator":"regex","value":"x"}]}`},
		{"unknown match type", `{"matchType":"xor","rules":[{"field":"city","operator":"eq","value":"x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ParseFilterSet(tt.raw, nil)
			if !f.IsEmpty() {
				t.Errorf("ParseFilterSet(%q) = %+v, want empty set", tt.raw, f)
			}
		})
	}
}

func TestParseFilterSet_DropsUnknownFields(t *testing.T) {
	raw := `{"matchType":"and","rules":[
		{"field":"city","operator":"eq","value":"Austin"},
		{"field":"password_hash","operator":"eq","value":"x"},
		{"field":"state","operator":"eq","value":""}
	]}`

	f := ParseFilterSet(raw, nil)
	if len(f.Rules) != 1 {
		t.Fatalf("kept %d rules, want 1: %+v", len(f.Rules), f.Rules)
	}
	if f.Rules[0].Field != "city" {
		t.Errorf("kept field %q, want city", f.Rules[0].Field)
	}
}

func TestParseFilterSet_DefaultsMatchType(t *testing.T) {
	f := ParseFilterSet(`{"rules":[{"field":"city","operator":"eq","value":"Austin"}]}`, nil)
	if f.MatchType != MatchAll {
		t.Errorf("MatchType = %q, want %q", f.MatchType, MatchAll)
	}
}

func TestCompile_And(t *testing.T) {
	f := FilterSet{
		MatchType: MatchAll,
		Rules: []FilterRule{
			{Field: "city", Operator: OpEq, Value: "Austin"},
			{Field: "state", Operator: OpNeq, Value: "TX"},
		},
	}

	where, args := f.Compile("")
	want := `"city" = $1 AND "state" <> $2`
	if where != want {
		t.Errorf("where = %q, want %q", where, want)
	}
	if !reflect.DeepEqual(args, []any{"Austin", "TX"}) {
		t.Errorf("args = %v", args)
	}
}

func TestCompile_OrFoldsIntoOneClause(t *testing.T) {
	f := FilterSet{
		MatchType: MatchAny,
		Rules: []FilterRule{
			{Field: "city", Operator: OpEq, Value: "Austin"},
			{Field: "city", Operator: OpEq, Value: "Dallas"},
		},
	}

	where, args := f.Compile("")
	want := `("city" = $1 OR "city" = $2)`
	if where != want {
		t.Errorf("where = %q, want %q", where, want)
	}
	if len(args) != 2 {
		t.Errorf("args = %v, want 2 values", args)
	}
}

func TestCompile_Operators(t *testing.T) {
	tests := []struct {
		op        FilterOperator
		wantWhere string
		wantArg   any
	}{
		{OpEq, `"city" = $1`, "x"},
		{OpNeq, `"city" <> $1`, "x"},
		{OpILike, `"city" ILIKE $1`, "%x%"},
		{OpGt, `"city" > $1`, "x"},
		{OpLt, `"city" < $1`, "x"},
		{OpGte, `"city" >= $1`, "x"},
		{OpLte, `"city" <= $1`, "x"},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			f := FilterSet{MatchType: MatchAll, Rules: []FilterRule{{Field: "city", Operator: tt.op, Value: "x"}}}
			where, args := f.Compile("")
			if where != tt.wantWhere {
				t.Errorf("where = %q, want %q", where, tt.wantWhere)
			}
			if args[0] != tt.wantArg {
				t.Errorf("arg = %v, want %v", args[0], tt.wantArg)
			}
		})
	}
}

func TestCompile_SearchAlone(t *testing.T) {
	where, args := FilterSet{}.Compile("smith")
	want := "(full_name ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1)"
	if where != want {
		t.Errorf("where = %q, want %q", where, want)
	}
	if !reflect.DeepEqual(args, []any{"%smith%"}) {
		t.Errorf("args = %v", args)
	}
}

func TestCompile_SearchAndsOntoOrRules(t *testing.T) {
	// Free-text search restricts the result even when rules are ORed.
	f := FilterSet{
		MatchType: MatchAny,
		Rules: []FilterRule{
			{Field: "city", Operator: OpEq, Value: "Austin"},
			{Field: "city", Operator: OpEq, Value: "Dallas"},
		},
	}

	where, args := f.Compile("smith")
	want := `("city" = $1 OR "city" = $2) AND ` +
		"(full_name ILIKE $3 OR first_name ILIKE $3 OR last_name ILIKE $3 OR email ILIKE $3)"
	if where != want {
		t.Errorf("where = %q, want %q", where, want)
	}
	if len(args) != 3 {
		t.Errorf("args = %v, want 3 values", args)
	}
}

func TestCompile_Empty(t *testing.T) {
	where, args := FilterSet{}.Compile("")
	if where != "" {
		t.Errorf("where = %q, want empty", where)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := quoteIdentifier(`weird"col`); got != `"weird""col"` {
		t.Errorf("quoteIdentifier = %q", got)
	}
}
