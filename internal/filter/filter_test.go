package filter

import "testing"

func parse(t *testing.T, v any) *Filter {
	t.Helper()
	f, ok := Parse(v)
	if !ok {
		t.Fatalf("Parse(%v) failed", v)
	}
	return f
}

func TestMust(t *testing.T) {
	f := parse(t, map[string]any{
		"op": "must", "field": "category", "conds": []any{"a", "b"},
	})
	if !f.Matches(map[string]any{"category": "a"}) {
		t.Fatal("expected match")
	}
	if f.Matches(map[string]any{"category": "c"}) {
		t.Fatal("expected no match")
	}
	if f.Matches(map[string]any{}) {
		t.Fatal("missing field should not match")
	}
}

func TestMustNotMissingFieldIsTrue(t *testing.T) {
	f := parse(t, map[string]any{
		"op": "must_not", "field": "category", "conds": []any{"a"},
	})
	if !f.Matches(map[string]any{}) {
		t.Fatal("must_not on absent field should be true")
	}
	if f.Matches(map[string]any{"category": "a"}) {
		t.Fatal("must_not should reject present+matching value")
	}
}

func TestMustArrayField(t *testing.T) {
	f := parse(t, map[string]any{
		"op": "must", "field": "tags", "conds": []any{"x"},
	})
	if !f.Matches(map[string]any{"tags": []any{"y", "x"}}) {
		t.Fatal("expected intersection match")
	}
}

func TestRange(t *testing.T) {
	f := parse(t, map[string]any{
		"op": "range", "field": "score", "gte": float64(1), "lt": float64(10),
	})
	if !f.Matches(map[string]any{"score": float64(5)}) {
		t.Fatal("expected in range")
	}
	if f.Matches(map[string]any{"score": float64(10)}) {
		t.Fatal("lt bound exclusive")
	}
	if f.Matches(map[string]any{"score": float64(0)}) {
		t.Fatal("below gte")
	}
	if f.Matches(map[string]any{}) {
		t.Fatal("missing field should not match range")
	}
}

func TestRangeOut(t *testing.T) {
	f := parse(t, map[string]any{
		"op": "range_out", "field": "score", "gte": float64(1), "lte": float64(10),
	})
	if f.Matches(map[string]any{"score": float64(5)}) {
		t.Fatal("inside band should not match range_out")
	}
	if !f.Matches(map[string]any{"score": float64(0)}) {
		t.Fatal("below band should match range_out")
	}
	if !f.Matches(map[string]any{"score": float64(11)}) {
		t.Fatal("above band should match range_out")
	}
}

func TestPrefixAndContains(t *testing.T) {
	pf := parse(t, map[string]any{"op": "prefix", "field": "name", "prefix": "foo"})
	if !pf.Matches(map[string]any{"name": "foobar"}) {
		t.Fatal("expected prefix match")
	}
	cf := parse(t, map[string]any{"op": "contains", "field": "name", "substring": "oob"})
	if !cf.Matches(map[string]any{"name": "foobar"}) {
		t.Fatal("expected contains match")
	}
}

func TestRegexSubset(t *testing.T) {
	cases := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"^abc$", "abc", true},
		{"^abc$", "abcd", false},
		{"^(a|b|c)", "banana", true},
		{"^foo", "foobar", true},
		{"bar$", "foobar", true},
		{"oob", "foobar", true},
		{"^(x|y)$", "x", true},
		{"^(x|y)$", "z", false},
	}
	for _, c := range cases {
		f := parse(t, map[string]any{"op": "regex", "field": "s", "pattern": c.pattern})
		got := f.Matches(map[string]any{"s": c.s})
		if got != c.want {
			t.Errorf("pattern %q against %q = %v, want %v", c.pattern, c.s, got, c.want)
		}
	}
}

func TestAndOr(t *testing.T) {
	and := parse(t, map[string]any{
		"op": "and",
		"conds": []any{
			map[string]any{"op": "must", "field": "a", "conds": []any{"x"}},
			map[string]any{"op": "must", "field": "b", "conds": []any{"y"}},
		},
	})
	if !and.Matches(map[string]any{"a": "x", "b": "y"}) {
		t.Fatal("expected and match")
	}
	if and.Matches(map[string]any{"a": "x", "b": "z"}) {
		t.Fatal("expected and mismatch")
	}

	or := parse(t, map[string]any{
		"op": "or",
		"conds": []any{
			map[string]any{"op": "must", "field": "a", "conds": []any{"x"}},
			map[string]any{"op": "must", "field": "b", "conds": []any{"y"}},
		},
	})
	if !or.Matches(map[string]any{"a": "nope", "b": "y"}) {
		t.Fatal("expected or match")
	}
}

func TestParseMalformedReturnsNoFilter(t *testing.T) {
	if _, ok := Parse(map[string]any{"field": "x"}); ok {
		t.Fatal("missing op should fail to parse")
	}
	if _, ok := Parse(map[string]any{"op": "must", "field": "x"}); ok {
		t.Fatal("missing conds should fail to parse")
	}
	if _, ok := Parse("not-a-map"); ok {
		t.Fatal("non-object should fail to parse")
	}
	if _, ok := Parse(map[string]any{"op": "bogus"}); ok {
		t.Fatal("unknown op should fail to parse")
	}
}

func TestNilFilterMatchesEverything(t *testing.T) {
	var f *Filter
	if !f.Matches(map[string]any{"anything": "goes"}) {
		t.Fatal("nil filter should match unconditionally")
	}
}
