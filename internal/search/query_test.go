package search

import (
	"fmt"
	"reflect"
	"testing"
)

func term(s string) Node { return Node{Kind: KindTerm, Term: s} }

func and(nodes ...Node) Node { return Node{Kind: KindAnd, Nodes: nodes} }

func or(nodes ...Node) Node { return Node{Kind: KindOr, Nodes: nodes} }

func TestParse_NoFilter(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n", " AND ", " OR "} {
		if q := Parse(in); q != nil {
			t.Errorf("Parse(%q) = %v, want nil", in, q.Root)
		}
	}
}

func TestParse_Shapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Node
	}{
		{"single word", "garden", and(term("garden"))},
		{"phrase", `"hello world"`, and(term("hello world"))},
		{"and", "cat AND dog", and(term("cat"), term("dog"))},
		{"and lowercase", "cat and dog", and(term("cat"), term("dog"))},
		{"or", "cat OR dog", or(term("cat"), term("dog"))},
		{"or mixed case", "cat oR dog", or(term("cat"), term("dog"))},
		{"phrase with or", `"x" cat OR dog`, and(term("x"), or(term("cat"), term("dog")))},
		{"phrase and terms without or", `"x" cat AND dog`, and(term("cat"), term("dog"), term("x"))},
		{"phrase alone in an or position", `"x" OR dog`, or(term("x"), term("dog"))},
		{"phrase alone and phrase with terms", `"x" OR "y" dog`, and(term("y"), or(term("x"), term("dog")))},
		{"or with and groups", "a AND b OR c", or(and(term("a"), term("b")), term("c"))},
		{"several phrases alone in an or position", `"a" "b" OR c`, or(and(term("a"), term("b")), term("c"))},
		{
			"mixed nesting stays two levels",
			`"a" b OR c AND d OR e`,
			and(term("a"), or(term("b"), and(term("c"), term("d")), term("e"))),
		},
		{"multiple phrases", `"one two" "three four"`, and(term("one two"), term("three four"))},
		{"operator inside word", "ORegon", and(term("ORegon"))},
		{"unbalanced quote", `"open garden`, and(term(`"open garden`))},
		{"phrase glued to word", `seed"library"swap`, and(term("seedswap"), term("library"))},
		{"operator inside phrase", `"bread OR roses" AND march`, and(term("march"), term("bread OR roses"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Parse(tt.in)
			if q == nil {
				t.Fatalf("Parse(%q) = nil", tt.in)
			}
			if !reflect.DeepEqual(q.Root, tt.want) {
				t.Errorf("Parse(%q)\n got  %#v\n want %#v", tt.in, q.Root, tt.want)
			}
		})
	}
}

func TestParse_OnlyPhrasesAfterOrSplit(t *testing.T) {
	q := Parse(`"x" OR "y"`)
	if q == nil {
		t.Fatal("expected a query")
	}
	want := or(term("x"), term("y"))
	if !reflect.DeepEqual(q.Root, want) {
		t.Errorf("got %#v, want %#v", q.Root, want)
	}
}

func TestParse_Pure(t *testing.T) {
	in := `"community garden" OR market AND stall`
	first := Parse(in)
	for i := 0; i < 10; i++ {
		if got := Parse(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("parse %d differs: %#v vs %#v", i, got, first)
		}
	}
}

func TestQuery_Terms(t *testing.T) {
	q := Parse(`"x" cat OR dog AND bird`)
	want := []string{"x", "cat", "dog", "bird"}
	if got := q.Terms(); !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}

	var nilQuery *Query
	if got := nilQuery.Terms(); got != nil {
		t.Errorf("nil Terms() = %v", got)
	}
}

func TestQuery_Match(t *testing.T) {
	tests := []struct {
		query string
		text  string
		want  bool
	}{
		{`"community garden" OR market`, "Build a Community Garden downtown", true},
		{`"community garden" OR market`, "a farmers market", true},
		{`"community garden" OR market`, "a garden for the community", false},
		{`"x" cat OR dog`, "dog", false},
		{`"x" cat OR dog`, "x marks the dog", true},
		{`"community garden" OR market`, "community garden next to the market", true},
		{"cat AND dog", "dogs and cats", true},
		{"cat AND dog", "just a cat", false},
		{"cat OR dog", "just a cat", true},
		{"bike OR repair AND cafe", "repair cafe", true},
		{"bike OR repair AND cafe", "repair shop", false},
		{`"seed swap" "tools" OR market`, "a farmers market", true},
		{`"seed swap" "tools" OR market`, "seed swap and tools", true},
		{`"seed swap" "tools" OR market`, "seed swap only", false},
	}
	for _, tt := range tests {
		if got := Parse(tt.query).Match(tt.text); got != tt.want {
			t.Errorf("Parse(%q).Match(%q) = %v, want %v", tt.query, tt.text, got, tt.want)
		}
	}

	var nilQuery *Query
	if !nilQuery.Match("anything") {
		t.Error("nil query should match everything")
	}
}

func TestQuery_String(t *testing.T) {
	tests := map[string]string{
		`"x y" cat OR dog`: `"x y" AND (cat OR dog)`,
		"a AND b OR c":     "(a AND b) OR c",
		`"a" "b" OR c`:     "(a AND b) OR c",
		"cat AND dog":      "cat AND dog",
		`"hello world"`:    `"hello world"`,
	}
	for in, want := range tests {
		if got := Parse(in).String(); got != want {
			t.Errorf("Parse(%q).String() = %q, want %q", in, got, want)
		}
	}
}

func ExampleParse() {
	q := Parse(`"community garden" seeds OR market`)
	fmt.Println(q)
	fmt.Println(q.Terms())
	// Output:
	// "community garden" AND (seeds OR market)
	// [community garden seeds market]
}
