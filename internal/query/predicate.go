// Package query describes document filters as conjunctions of attribute
// conditions. The same structure carries access-scope predicates and caller
// filters, so the two can be combined with And before reaching storage.
package query

import (
	"fmt"
	"strings"

	"github.com/spec-kit/constituent-access/internal/domain"
)

// Cond requires an attribute to equal one of Values.
type Cond struct {
	Field  string
	Values []string
}

// Matches reports whether attrs satisfy the condition.
func (c Cond) Matches(attrs domain.Attrs) bool {
	got := attrs.Get(c.Field)
	for _, v := range c.Values {
		if v == got {
			return true
		}
	}
	return false
}

func (c Cond) String() string {
	if len(c.Values) == 1 {
		return fmt.Sprintf("%s=%q", c.Field, c.Values[0])
	}
	return fmt.Sprintf("%s in %q", c.Field, c.Values)
}

// Predicate is a conjunction of conditions. The zero value matches every
// document; a predicate built by None matches nothing.
type Predicate struct {
	Conds []Cond
	none  bool
}

// All matches every document.
func All() Predicate { return Predicate{} }

// None matches no document.
func None() Predicate { return Predicate{none: true} }

// Eq is a single-value condition.
func Eq(field, value string) Predicate {
	return Predicate{Conds: []Cond{{Field: field, Values: []string{value}}}}
}

// In is a multi-value condition. An empty value list matches nothing.
func In(field string, values ...string) Predicate {
	if len(values) == 0 {
		return None()
	}
	cp := append([]string(nil), values...)
	return Predicate{Conds: []Cond{{Field: field, Values: cp}}}
}

// And returns the conjunction of p and others. Conjunction can only narrow.
func (p Predicate) And(others ...Predicate) Predicate {
	out := Predicate{none: p.none, Conds: append([]Cond(nil), p.Conds...)}
	for _, o := range others {
		if o.none {
			out.none = true
		}
		out.Conds = append(out.Conds, o.Conds...)
	}
	return out
}

// And combines predicates.
func And(preds ...Predicate) Predicate {
	return All().And(preds...)
}

// IsNone reports whether the predicate is known to match nothing, either
// explicitly or because two equality conditions on one field cannot both hold.
func (p Predicate) IsNone() bool {
	if p.none {
		return true
	}
	allowed := map[string]map[string]struct{}{}
	for _, c := range p.Conds {
		next := make(map[string]struct{}, len(c.Values))
		prev, seen := allowed[c.Field]
		for _, v := range c.Values {
			if !seen {
				next[v] = struct{}{}
				continue
			}
			if _, ok := prev[v]; ok {
				next[v] = struct{}{}
			}
		}
		if len(next) == 0 {
			return true
		}
		allowed[c.Field] = next
	}
	return false
}

// IsAll reports whether the predicate places no restriction.
func (p Predicate) IsAll() bool {
	return !p.none && len(p.Conds) == 0
}

// Matches evaluates the predicate against an attribute set.
func (p Predicate) Matches(attrs domain.Attrs) bool {
	if p.none {
		return false
	}
	for _, c := range p.Conds {
		if !c.Matches(attrs) {
			return false
		}
	}
	return true
}

func (p Predicate) String() string {
	if p.none {
		return "none"
	}
	if len(p.Conds) == 0 {
		return "all"
	}
	parts := make([]string, len(p.Conds))
	for i, c := range p.Conds {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}
