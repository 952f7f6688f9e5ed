// Package sql tokenizes and parses the supported SQL subset.
//
// The lexer is a byte scanner producing a flat token stream; the parser is
// a recursive descent parser over that stream. Every statement parses into
// the same canonical Query value tagged by StatementKind, and WHERE clauses
// parse into a Condition tree with OR below AND below NOT in precedence.
//
//	query, err := sql.Parse("SELECT name FROM users WHERE age > 21")
//
// Keywords are matched case-insensitively; identifiers and string literals
// keep their case. Trailing ORDER BY, GROUP BY, LIMIT, OFFSET and HAVING
// clauses are tokenized but not interpreted.
package sql
