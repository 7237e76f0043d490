package search

import (
	"strconv"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern returns a LIKE pattern matching any value that contains s.
// Wildcard characters in s are escaped with a backslash, so the clause using
// it must declare ESCAPE '\'.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// SQL renders the query as a boolean SQL expression over column. like is the
// comparison operator (LIKE or ILIKE). args holds the arguments already bound
// by the caller; bind is called with the 1-based position of each new
// argument and returns its placeholder. The returned slice is args extended
// with one ContainsPattern per term, in the order of Terms.
func (q *Query) SQL(column, like string, args []any, bind func(n int) string) (string, []any) {
	if q == nil {
		return "", args
	}
	var b strings.Builder
	args = q.Root.render(&b, column, like, args, bind)
	return b.String(), args
}

func (n Node) render(b *strings.Builder, column, like string, args []any, bind func(int) string) []any {
	if n.Kind == KindTerm {
		args = append(args, ContainsPattern(n.Term))
		b.WriteString(column)
		b.WriteString(" ")
		b.WriteString(like)
		b.WriteString(" ")
		b.WriteString(bind(len(args)))
		b.WriteString(` ESCAPE '\'`)
		return args
	}

	sep := " AND "
	if n.Kind == KindOr {
		sep = " OR "
	}
	b.WriteString("(")
	for i, c := range n.Nodes {
		if i > 0 {
			b.WriteString(sep)
		}
		args = c.render(b, column, like, args, bind)
	}
	b.WriteString(")")
	return args
}

// QuestionMark binds every argument as "?".
func QuestionMark(int) string { return "?" }

// Dollar binds arguments as "$1", "$2", ...
func Dollar(n int) string { return "$" + strconv.Itoa(n) }
