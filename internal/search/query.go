// Package search turns the free-text keyword box of the board into a
// predicate over a single text column.
//
// A keyword string is read in three passes. The input is split on the word
// OR into groups, double-quoted phrases are pulled out of each group, and
// what is left of a group is split on the word AND into terms. Both
// operators are case-insensitive and must be surrounded by whitespace.
//
// A phrase that shares its group with bare terms is required by every match:
//
//	"community garden" seeds OR market
//
// parses to
//
//	"community garden" AND (seeds OR market)
//
// A group made only of phrases is one alternative of its own, its phrases
// joined by AND. Several phrases in one group therefore stay together, so
// "a" "b" OR c parses to (a AND b) OR c, and a match on c alone is enough.
//
// The parser never fails. Input that yields no usable term produces a nil
// *Query, which callers treat as "no keyword restriction".
package search

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	phrasePattern = regexp.MustCompile(`"([^"]+)"`)
	orPattern     = regexp.MustCompile(`(?i)\s+OR\s+`)
	andPattern    = regexp.MustCompile(`(?i)\s+AND\s+`)
)

// Kind identifies the role of a Node in a query tree.
type Kind int

const (
	// KindTerm is a leaf: a case-insensitive "contains" test.
	KindTerm Kind = iota
	// KindAnd requires every child to match.
	KindAnd
	// KindOr requires at least one child to match.
	KindOr
)

func (k Kind) String() string {
	switch k {
	case KindTerm:
		return "term"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	default:
		return "unknown"
	}
}

// Node is one element of a query tree. Term is set only for KindTerm, Nodes
// only for KindAnd and KindOr.
type Node struct {
	Kind  Kind
	Term  string
	Nodes []Node
}

// Query is a parsed keyword string. Root is either a conjunction (possibly of
// a single member) or, when the input was a pure OR list, a disjunction.
// Members of Root are terms or at most one disjunction, whose members are in
// turn terms or conjunctions of terms. Nothing nests deeper.
type Query struct {
	Root Node
}

// Parse converts raw keyword text into a Query. It returns nil when the text
// contains no usable term.
//
// Phrases are required by every match. The one exception is a group with no
// bare terms, as in
//
//	"community garden" OR market
//
// whose phrases become that alternative instead of being required.
func Parse(raw string) *Query {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	// Phrases are swapped for markers so OR and AND inside quotes never split.
	raw = strings.ReplaceAll(raw, "\x00", "")
	var phrases []string
	masked := phrasePattern.ReplaceAllStringFunc(raw, func(m string) string {
		phrases = append(phrases, m[1:len(m)-1])
		return marker(len(phrases) - 1)
	})

	rawGroups := orPattern.Split(masked, -1)
	groups := make([]group, 0, len(rawGroups))
	for _, g := range rawGroups {
		groups = append(groups, splitGroup(g, phrases))
	}

	if len(rawGroups) > 1 {
		return disjunctive(groups)
	}

	// Without a literal OR there is a single group. Its bare terms come
	// first, then the phrases, all joined with AND.
	g := groups[0]
	members := append(g.terms, g.phrases...)
	if len(members) == 0 {
		return nil
	}
	return &Query{Root: Node{Kind: KindAnd, Nodes: members}}
}

// group is one OR-separated section of the input.
type group struct {
	terms   []Node
	phrases []Node
}

func marker(i int) string {
	return "\x00" + strconv.Itoa(i) + "\x00"
}

var markerPattern = regexp.MustCompile(`\x00([0-9]+)\x00`)

func splitGroup(s string, phrases []string) group {
	var g group
	for _, t := range andPattern.Split(s, -1) {
		for _, m := range markerPattern.FindAllStringSubmatch(t, -1) {
			i, _ := strconv.Atoi(m[1])
			g.phrases = append(g.phrases, Node{Kind: KindTerm, Term: phrases[i]})
		}
		t = strings.TrimSpace(markerPattern.ReplaceAllString(t, ""))
		if t != "" {
			g.terms = append(g.terms, Node{Kind: KindTerm, Term: t})
		}
	}
	return g
}

// disjunctive builds (phrase AND ...) AND (group OR ...). Phrases found in a
// group that also has bare terms go to the required side; a group made only
// of phrases is an alternative of its own.
func disjunctive(groups []group) *Query {
	var required, alternatives []Node
	for _, g := range groups {
		switch {
		case len(g.terms) > 0:
			required = append(required, g.phrases...)
			alternatives = append(alternatives, collapse(Node{Kind: KindAnd, Nodes: g.terms}))
		case len(g.phrases) > 0:
			alternatives = append(alternatives, collapse(Node{Kind: KindAnd, Nodes: g.phrases}))
		}
	}

	switch {
	case len(alternatives) == 0:
		return nil
	case len(required) == 0 && len(alternatives) == 1:
		if alternatives[0].Kind == KindAnd {
			return &Query{Root: alternatives[0]}
		}
		return &Query{Root: Node{Kind: KindAnd, Nodes: alternatives}}
	case len(required) == 0:
		return &Query{Root: Node{Kind: KindOr, Nodes: alternatives}}
	default:
		members := append(required, collapse(Node{Kind: KindOr, Nodes: alternatives}))
		return &Query{Root: Node{Kind: KindAnd, Nodes: members}}
	}
}

func collapse(n Node) Node {
	if n.Kind != KindTerm && len(n.Nodes) == 1 {
		return n.Nodes[0]
	}
	return n
}

// Terms returns every term of the query in the order Render binds them.
func (q *Query) Terms() []string {
	if q == nil {
		return nil
	}
	var out []string
	q.Root.walk(func(term string) { out = append(out, term) })
	return out
}

func (n Node) walk(fn func(string)) {
	if n.Kind == KindTerm {
		fn(n.Term)
		return
	}
	for _, c := range n.Nodes {
		c.walk(fn)
	}
}

// Match evaluates the query against text in memory using case-insensitive
// substring tests. A nil query matches everything.
func (q *Query) Match(text string) bool {
	if q == nil {
		return true
	}
	return q.Root.match(strings.ToLower(text))
}

func (n Node) match(lowered string) bool {
	switch n.Kind {
	case KindTerm:
		return strings.Contains(lowered, strings.ToLower(n.Term))
	case KindAnd:
		for _, c := range n.Nodes {
			if !c.match(lowered) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range n.Nodes {
			if c.match(lowered) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// String renders the query in the keyword syntax it was parsed from, with
// phrases quoted and nested groups parenthesized.
func (q *Query) String() string {
	if q == nil {
		return ""
	}
	return q.Root.format(false)
}

func (n Node) format(nested bool) string {
	if n.Kind == KindTerm {
		if strings.ContainsAny(n.Term, " \t") {
			return `"` + n.Term + `"`
		}
		return n.Term
	}

	sep := " AND "
	if n.Kind == KindOr {
		sep = " OR "
	}
	parts := make([]string, len(n.Nodes))
	for i, c := range n.Nodes {
		parts[i] = c.format(true)
	}
	s := strings.Join(parts, sep)
	if nested && len(n.Nodes) > 1 {
		return "(" + s + ")"
	}
	return s
}
