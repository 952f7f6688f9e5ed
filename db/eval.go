package db

import (
	"regexp"
	"strings"

	"github.com/wiredb/wiredb/core"
	"github.com/wiredb/wiredb/sql"
)

// Matches reports whether a row satisfies a condition tree. A nil tree
// matches every row. A field absent from the row compares as null.
func Matches(row core.Row, cond *sql.Condition) bool {
	if cond == nil {
		return true
	}

	switch cond.Logic {
	case sql.LogicalAnd:
		for _, child := range cond.Children {
			if !Matches(row, child) {
				return false
			}
		}
		return true
	case sql.LogicalOr:
		for _, child := range cond.Children {
			if Matches(row, child) {
				return true
			}
		}
		return false
	case sql.LogicalNot:
		return !Matches(row, cond.Children[0])
	}

	value := row[cond.Field] // zero Value is null

	switch cond.Op {
	case sql.OpEquals:
		return value.Equal(cond.Value)
	case sql.OpNotEquals:
		return !value.Equal(cond.Value)
	case sql.OpLessThan:
		return value.Compare(cond.Value) < 0
	case sql.OpGreaterThan:
		return value.Compare(cond.Value) > 0
	case sql.OpLessThanOrEqual:
		return value.Compare(cond.Value) <= 0
	case sql.OpGreaterThanOrEqual:
		return value.Compare(cond.Value) >= 0
	case sql.OpLike:
		return likeRegexp(cond.Value.String()).MatchString(value.String())
	case sql.OpIn:
		for _, member := range cond.List {
			if value.Equal(member) {
				return true
			}
		}
		return false
	case sql.OpIsNull:
		return value.IsNull()
	case sql.OpIsNotNull:
		return !value.IsNull()
	default:
		return false
	}
}

// likeRegexp translates a LIKE pattern into an anchored regular expression:
// % matches any run, _ matches one character, everything else is literal.
// Matching is case-insensitive, like string equality.
func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
