package search

import (
	"reflect"
	"testing"
)

func TestQuery_SQL(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		bind     func(int) string
		prior    []any
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "and with question marks",
			in:       "cat AND dog",
			bind:     QuestionMark,
			wantSQL:  `(interest LIKE ? ESCAPE '\' AND interest LIKE ? ESCAPE '\')`,
			wantArgs: []any{"%cat%", "%dog%"},
		},
		{
			name:     "phrase and disjunction with dollars after prior args",
			in:       `"x" cat OR dog`,
			bind:     Dollar,
			prior:    []any{"cutoff"},
			wantSQL:  `(interest LIKE $2 ESCAPE '\' AND (interest LIKE $3 ESCAPE '\' OR interest LIKE $4 ESCAPE '\'))`,
			wantArgs: []any{"cutoff", "%x%", "%cat%", "%dog%"},
		},
		{
			name:     "wildcards are escaped",
			in:       "100% off_road",
			bind:     QuestionMark,
			wantSQL:  `(interest LIKE ? ESCAPE '\')`,
			wantArgs: []any{`%100\% off\_road%`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := Parse(tt.in).SQL("interest", "LIKE", tt.prior, tt.bind)
			if sql != tt.wantSQL {
				t.Errorf("sql\n got  %s\n want %s", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestQuery_SQLArgsFollowTerms(t *testing.T) {
	q := Parse(`"a" b OR c AND d OR e`)
	_, args := q.SQL("interest", "LIKE", nil, QuestionMark)
	terms := q.Terms()
	if len(args) != len(terms) {
		t.Fatalf("got %d args for %d terms", len(args), len(terms))
	}
	for i, term := range terms {
		if args[i] != ContainsPattern(term) {
			t.Errorf("arg %d = %v, want pattern for %q", i, args[i], term)
		}
	}
}

func TestQuery_SQLNil(t *testing.T) {
	var q *Query
	sql, args := q.SQL("interest", "LIKE", []any{1}, QuestionMark)
	if sql != "" || len(args) != 1 {
		t.Errorf("nil query rendered %q with %v", sql, args)
	}
}
