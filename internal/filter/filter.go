// Package filter implements the post-filter DSL that narrows index
// search hits down to records whose scalar fields satisfy a predicate
// tree. The grammar is parsed from a JSON-like node and evaluated
// against a record's field map.
package filter

import "strings"

// Filter is a parsed predicate tree. The zero value matches nothing
// meaningful on its own; use Parse to build one from a DSL node.
type Filter struct {
	op     string
	field  string
	conds  []any
	gt     any
	gte    any
	lt     any
	lte    any
	prefix string
	sub    string
	pat    string
	and    []*Filter
	or     []*Filter
}

// node mirrors the JSON shape of a single filter operator, used only
// for decoding an untyped map[string]any into a Filter.
type node struct {
	Op      string
	Field   string
	Conds   []any
	Prefix  string
	Sub     string
	Pattern string
	Gt      any
	Gte     any
	Lt      any
	Lte     any
}

// Parse builds a Filter from a decoded JSON-like tree (the shape
// produced by encoding/json when unmarshaling into `any`). Malformed
// nodes — missing operator, wrong field types — yield (nil, false): "no
// filter", never an error, per the DSL contract.
func Parse(v any) (*Filter, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	n, ok := decodeNode(m)
	if !ok {
		return nil, false
	}
	return build(n)
}

func decodeNode(m map[string]any) (node, bool) {
	var n node
	op, ok := m["op"].(string)
	if !ok {
		return n, false
	}
	n.Op = op
	if f, ok := m["field"].(string); ok {
		n.Field = f
	}
	if c, ok := m["conds"].([]any); ok {
		n.Conds = c
	}
	if p, ok := m["prefix"].(string); ok {
		n.Prefix = p
	}
	if s, ok := m["substring"].(string); ok {
		n.Sub = s
	}
	if p, ok := m["pattern"].(string); ok {
		n.Pattern = p
	}
	n.Gt = m["gt"]
	n.Gte = m["gte"]
	n.Lt = m["lt"]
	n.Lte = m["lte"]
	return n, true
}

func build(n node) (*Filter, bool) {
	switch n.Op {
	case "must":
		if n.Field == "" || n.Conds == nil {
			return nil, false
		}
		return &Filter{op: n.Op, field: n.Field, conds: n.Conds}, true
	case "must_not":
		if n.Field == "" || n.Conds == nil {
			return nil, false
		}
		return &Filter{op: n.Op, field: n.Field, conds: n.Conds}, true
	case "range":
		if n.Field == "" {
			return nil, false
		}
		return &Filter{op: n.Op, field: n.Field, gt: n.Gt, gte: n.Gte, lt: n.Lt, lte: n.Lte}, true
	case "range_out":
		if n.Field == "" {
			return nil, false
		}
		return &Filter{op: n.Op, field: n.Field, gte: n.Gte, lte: n.Lte}, true
	case "prefix":
		if n.Field == "" || n.Prefix == "" {
			return nil, false
		}
		return &Filter{op: n.Op, field: n.Field, prefix: n.Prefix}, true
	case "contains":
		if n.Field == "" || n.Sub == "" {
			return nil, false
		}
		return &Filter{op: n.Op, field: n.Field, sub: n.Sub}, true
	case "regex":
		if n.Field == "" || n.Pattern == "" {
			return nil, false
		}
		return &Filter{op: n.Op, field: n.Field, pat: n.Pattern}, true
	case "and":
		var children []*Filter
		for _, c := range n.Conds {
			if f, ok := Parse(c); ok {
				children = append(children, f)
			}
		}
		return &Filter{op: n.Op, and: children}, true
	case "or":
		var children []*Filter
		for _, c := range n.Conds {
			if f, ok := Parse(c); ok {
				children = append(children, f)
			}
		}
		return &Filter{op: n.Op, or: children}, true
	default:
		return nil, false
	}
}

// Matches evaluates the filter against a record's field map.
func (f *Filter) Matches(fields map[string]any) bool {
	if f == nil {
		return true
	}
	switch f.op {
	case "must":
		return evalMust(fields, f.field, f.conds)
	case "must_not":
		return !evalMust(fields, f.field, f.conds)
	case "range":
		val, ok := fields[f.field]
		if !ok {
			return false
		}
		return rangeCheck(val, f.gt, f.gte, f.lt, f.lte)
	case "range_out":
		val, ok := fields[f.field]
		if !ok {
			return false
		}
		below := f.gte != nil && compare(val, f.gte) == cmpLess
		above := f.lte != nil && compare(val, f.lte) == cmpGreater
		return below || above
	case "prefix":
		s, ok := fields[f.field].(string)
		return ok && strings.HasPrefix(s, f.prefix)
	case "contains":
		s, ok := fields[f.field].(string)
		return ok && strings.Contains(s, f.sub)
	case "regex":
		s, ok := fields[f.field].(string)
		return ok && matchPattern(s, f.pat)
	case "and":
		for _, c := range f.and {
			if !c.Matches(fields) {
				return false
			}
		}
		return true
	case "or":
		for _, c := range f.or {
			if c.Matches(fields) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func evalMust(fields map[string]any, field string, conds []any) bool {
	val, ok := fields[field]
	if !ok {
		return false
	}
	if arr, ok := val.([]any); ok {
		for _, want := range conds {
			for _, got := range arr {
				if valuesEqual(got, want) {
					return true
				}
			}
		}
		return false
	}
	for _, want := range conds {
		if valuesEqual(val, want) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	an, aIsNum := asFloat(a)
	bn, bIsNum := asFloat(b)
	if aIsNum && bIsNum {
		return an == bn
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as == bs
	}
	ab, aIsBool := a.(bool)
	bb, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		return ab == bb
	}
	return a == b
}

type ordering int

const (
	cmpLess ordering = iota - 1
	cmpEqual
	cmpGreater
	cmpNone
)

// compare returns the ordering of a relative to b, or cmpNone when the
// two values aren't comparable (cross-type comparisons have no
// ordering per the filter DSL contract).
func compare(a, b any) ordering {
	if an, ok := asFloat(a); ok {
		if bn, ok := asFloat(b); ok {
			switch {
			case an < bn:
				return cmpLess
			case an > bn:
				return cmpGreater
			default:
				return cmpEqual
			}
		}
		return cmpNone
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			switch {
			case as < bs:
				return cmpLess
			case as > bs:
				return cmpGreater
			default:
				return cmpEqual
			}
		}
	}
	return cmpNone
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func rangeCheck(val, gt, gte, lt, lte any) bool {
	if gt != nil && compare(val, gt) != cmpGreater {
		return false
	}
	if gte != nil {
		c := compare(val, gte)
		if c == cmpLess || c == cmpNone {
			return false
		}
	}
	if lt != nil && compare(val, lt) != cmpLess {
		return false
	}
	if lte != nil {
		c := compare(val, lte)
		if c == cmpGreater || c == cmpNone {
			return false
		}
	}
	return true
}

// matchPattern implements the documented regex subset: ^literal$
// (equality), ^literal (prefix), ^(a|b|c) (prefix-alternation),
// literal$ (suffix), and bare pattern (substring fallback). This is
// intentionally not a general regex engine.
func matchPattern(s, pattern string) bool {
	anchoredStart := strings.HasPrefix(pattern, "^")
	anchoredEnd := strings.HasSuffix(pattern, "$")

	if anchoredStart && anchoredEnd {
		inner := pattern[1 : len(pattern)-1]
		if strings.Contains(inner, "|") {
			for _, alt := range strings.Split(inner, "|") {
				alt = strings.Trim(alt, "()")
				if s == alt {
					return true
				}
			}
			return false
		}
		return s == inner
	}
	if anchoredStart {
		prefix := pattern[1:]
		if strings.HasPrefix(prefix, "(") && strings.HasSuffix(prefix, ")") {
			inner := prefix[1 : len(prefix)-1]
			for _, alt := range strings.Split(inner, "|") {
				if strings.HasPrefix(s, alt) {
					return true
				}
			}
			return false
		}
		return strings.HasPrefix(s, prefix)
	}
	if anchoredEnd {
		return strings.HasSuffix(s, pattern[:len(pattern)-1])
	}
	return strings.Contains(s, pattern)
}
