package core

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// MatchType controls how filter rules combine.
type MatchType string

const (
	MatchAll MatchType = "and"
	MatchAny MatchType = "or"
)

// FilterOperator is a comparison applied by a single filter rule.
type FilterOperator string

const (
	OpEq    FilterOperator = "eq"
	OpNeq   FilterOperator = "neq"
	OpILike FilterOperator = "ilike"
	OpGt    FilterOperator = "gt"
	OpLt    FilterOperator = "lt"
	OpGte   FilterOperator = "gte"
	OpLte   FilterOperator = "lte"
)

// FilterRule is one field comparison in a FilterSet.
type FilterRule struct {
	Field    string         `json:"field"`
	Operator FilterOperator `json:"operator"`
	Value    string         `json:"value"`
}

// FilterSet is the advanced-filter payload supplied by clients as a JSON
// query parameter. The zero value matches everything.
type FilterSet struct {
	MatchType MatchType    `json:"matchType"`
	Rules     []FilterRule `json:"rules"`
}

// IsEmpty reports whether the set contains no rules.
func (f FilterSet) IsEmpty() bool {
	return len(f.Rules) == 0
}

// ParseFilterSet decodes a JSON FilterSet from a query parameter.
//
// A filter never fails a request: malformed JSON, a missing rules array
// or an unknown operator degrade to the empty set with a warn log, and
// rules naming fields outside the allow-list are dropped.
func ParseFilterSet(raw string, logger *slog.Logger) FilterSet {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(raw) == "" {
		return FilterSet{}
	}

	var f FilterSet
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		logger.Warn("ignoring malformed filter parameter", "error", err)
		return FilterSet{}
	}

	if f.MatchType != MatchAll && f.MatchType != MatchAny {
		if f.MatchType == "" {
			f.MatchType = MatchAll
		} else {
			logger.Warn("ignoring filter with unknown match type", "match_type", f.MatchType)
			return FilterSet{}
		}
	}

	kept := f.Rules[:0]
	for _, r := range f.Rules {
		if !validOperator(r.Operator) {
			logger.Warn("ignoring filter with unknown operator", "operator", r.Operator)
			return FilterSet{}
		}
		if !filterableFields[r.Field] {
			logger.Warn("dropping filter rule for unknown field", "field", r.Field)
			continue
		}
		if r.Value == "" {
			continue
		}
		kept = append(kept, r)
	}
	f.Rules = kept

	return f
}

func validOperator(op FilterOperator) bool {
	switch op {
	case OpEq, OpNeq, OpILike, OpGt, OpLt, OpGte, OpLte:
		return true
	}
	return false
}

// Compile translates the set plus an optional free-text search into a
// parameterized WHERE clause over the donors table.
//
// With MatchAll every rule becomes its own conjunct; with MatchAny all
// rules fold into a single parenthesized disjunction. The search term is
// always ANDed on top as a name/email disjunction, so "show me lapsed
// donors named smith" works regardless of match type. The returned
// clause has no WHERE keyword and placeholders start at $1; an empty
// clause means no restriction.
func (f FilterSet) Compile(search string) (string, []any) {
	var conjuncts []string
	var args []any

	if len(f.Rules) > 0 {
		if f.MatchType == MatchAny {
			var parts []string
			for _, r := range f.Rules {
				clause, arg := r.compile(len(args) + 1)
				parts = append(parts, clause)
				args = append(args, arg)
			}
			conjuncts = append(conjuncts, "("+strings.Join(parts, " OR ")+")")
		} else {
			for _, r := range f.Rules {
				clause, arg := r.compile(len(args) + 1)
				conjuncts = append(conjuncts, clause)
				args = append(args, arg)
			}
		}
	}

	if s := strings.TrimSpace(search); s != "" {
		n := len(args) + 1
		conjuncts = append(conjuncts, fmt.Sprintf(
			"(full_name ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)",
			n, n, n, n))
		args = append(args, "%"+s+"%")
	}

	return strings.Join(conjuncts, " AND "), args
}

// compile renders one rule as a clause with placeholder $argIdx.
func (r FilterRule) compile(argIdx int) (string, any) {
	col := quoteIdentifier(r.Field)

	switch r.Operator {
	case OpNeq:
		return fmt.Sprintf("%s <> $%d", col, argIdx), r.Value
	case OpILike:
		return fmt.Sprintf("%s ILIKE $%d", col, argIdx), "%" + r.Value + "%"
	case OpGt:
		return fmt.Sprintf("%s > $%d", col, argIdx), r.Value
	case OpLt:
		return fmt.Sprintf("%s < $%d", col, argIdx), r.Value
	case OpGte:
		return fmt.Sprintf("%s >= $%d", col, argIdx), r.Value
	case OpLte:
		return fmt.Sprintf("%s <= $%d", col, argIdx), r.Value
	default:
		return fmt.Sprintf("%s = $%d", col, argIdx), r.Value
	}
}

// quoteIdentifier quotes a SQL identifier, doubling embedded quotes.
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
