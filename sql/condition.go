package sql

import (
	"errors"

	"github.com/wiredb/wiredb/core"
)

type LogicalOp int

const (
	LogicalNone LogicalOp = iota // simple comparison node
	LogicalAnd
	LogicalOr
	LogicalNot
)

type CompareOp int

const (
	OpEquals CompareOp = iota
	OpNotEquals
	OpLessThan
	OpGreaterThan
	OpLessThanOrEqual
	OpGreaterThanOrEqual
	OpLike
	OpIn
	OpIsNull
	OpIsNotNull
)

// Condition is one node of a WHERE tree. A node is either simple (Logic ==
// LogicalNone: Field, Op and Value/List are set) or complex (Logic is
// AND/OR/NOT over Children). Conditions are built once by the parser and
// never mutated; the read, update and delete paths all share the same tree.
type Condition struct {
	Logic    LogicalOp
	Children []*Condition

	Field string
	Op    CompareOp
	Value core.Value
	List  []core.Value
}

// Simple reports whether the node is a field comparison rather than a
// logical combinator.
func (c *Condition) Simple() bool {
	return c.Logic == LogicalNone
}

func and(left, right *Condition) *Condition {
	return &Condition{Logic: LogicalAnd, Children: []*Condition{left, right}}
}

func or(left, right *Condition) *Condition {
	return &Condition{Logic: LogicalOr, Children: []*Condition{left, right}}
}

func not(child *Condition) *Condition {
	return &Condition{Logic: LogicalNot, Children: []*Condition{child}}
}

// parseWhere parses the expression following WHERE. It stops (without
// consuming) at EOF, a closing parenthesis above the expression, or one of
// the trailing clause keywords: ORDER, GROUP, LIMIT, HAVING, OFFSET. An
// immediately empty body yields a nil condition.
func (parser *Parser) parseWhere() (*Condition, error) {
	if atConditionEnd(parser.lexer.PeekToken()) {
		return nil, nil
	}
	return parser.parseOr()
}

// parseOr handles the lowest-precedence operator. OR chains associate to
// the right: a OR b OR c parses as OR(a, OR(b, c)).
func (parser *Parser) parseOr() (*Condition, error) {
	left, err := parser.parseAnd()
	if err != nil {
		return nil, err
	}

	if parser.lexer.PeekToken().Type == Or {
		parser.lexer.NextToken() // consume OR
		right, err := parser.parseOr()
		if err != nil {
			return nil, err
		}
		return or(left, right), nil
	}

	return left, nil
}

func (parser *Parser) parseAnd() (*Condition, error) {
	left, err := parser.parseNot()
	if err != nil {
		return nil, err
	}

	if parser.lexer.PeekToken().Type == And {
		parser.lexer.NextToken() // consume AND
		right, err := parser.parseAnd()
		if err != nil {
			return nil, err
		}
		return and(left, right), nil
	}

	return left, nil
}

func (parser *Parser) parseNot() (*Condition, error) {
	if parser.lexer.PeekToken().Type == Not {
		parser.lexer.NextToken() // consume NOT
		child, err := parser.parseNot()
		if err != nil {
			return nil, err
		}
		return not(child), nil
	}
	return parser.parsePrimary()
}

// parsePrimary handles a parenthesized sub-expression or a single
// comparison.
func (parser *Parser) parsePrimary() (*Condition, error) {
	if parser.lexer.PeekToken().Type == ParenOpen {
		parser.lexer.NextToken() // consume '('
		inner, err := parser.parseOr()
		if err != nil {
			return nil, err
		}
		if token := parser.lexer.NextToken(); token.Type != ParenClose {
			return nil, errors.New("expected ')' in WHERE clause")
		}
		return inner, nil
	}
	return parser.parseComparison()
}

func (parser *Parser) parseComparison() (*Condition, error) {
	token := parser.lexer.NextToken()
	if token.Type != Identifier {
		return nil, errors.New("expected field name in WHERE clause")
	}
	field := token.Value

	token = parser.lexer.NextToken()
	switch token.Type {
	case Is:
		// IS NULL / IS NOT NULL
		token = parser.lexer.NextToken()
		if token.Type == Not {
			if token = parser.lexer.NextToken(); token.Type != Null {
				return nil, errors.New("expected NULL after IS NOT")
			}
			return &Condition{Field: field, Op: OpIsNotNull}, nil
		}
		if token.Type != Null {
			return nil, errors.New("expected NULL or NOT after IS")
		}
		return &Condition{Field: field, Op: OpIsNull}, nil

	case In:
		list, err := parser.parseInList()
		if err != nil {
			return nil, err
		}
		return &Condition{Field: field, Op: OpIn, List: list}, nil

	case Like:
		value, err := parser.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &Condition{Field: field, Op: OpLike, Value: value}, nil

	case Equals, NotEquals, LessThan, GreaterThan, LessThanOrEqual, GreaterThanOrEqual:
		op, _ := compareOpFor(token.Type)
		value, err := parser.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &Condition{Field: field, Op: op, Value: value}, nil

	default:
		return nil, errors.New("expected operator after '" + field + "' in WHERE clause")
	}
}

func (parser *Parser) parseInList() ([]core.Value, error) {
	if token := parser.lexer.NextToken(); token.Type != ParenOpen {
		return nil, errors.New("expected '(' after IN")
	}

	var list []core.Value
	for {
		value, err := parser.parseLiteral()
		if err != nil {
			return nil, err
		}
		list = append(list, value)

		token := parser.lexer.NextToken()
		if token.Type == ParenClose {
			return list, nil
		}
		if token.Type != Comma {
			return nil, errors.New("expected ',' or ')' in IN list")
		}
	}
}

// parseLiteral consumes one value token and types it.
func (parser *Parser) parseLiteral() (core.Value, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case String:
		return core.NewString(token.Value), nil
	case Int, Float, Identifier:
		return core.ParseValue(token.Value), nil
	case True:
		return core.NewBool(true), nil
	case False:
		return core.NewBool(false), nil
	case Null:
		return core.Null(), nil
	default:
		return core.Null(), errors.New("expected value, got " + token.String())
	}
}

func compareOpFor(t TokenType) (CompareOp, bool) {
	switch t {
	case Equals:
		return OpEquals, true
	case NotEquals:
		return OpNotEquals, true
	case LessThan:
		return OpLessThan, true
	case GreaterThan:
		return OpGreaterThan, true
	case LessThanOrEqual:
		return OpLessThanOrEqual, true
	case GreaterThanOrEqual:
		return OpGreaterThanOrEqual, true
	default:
		return OpEquals, false
	}
}

// atConditionEnd reports whether the token terminates a WHERE body. The
// trailing clauses themselves (ORDER BY and friends) are recognized but not
// interpreted.
func atConditionEnd(token Token) bool {
	switch token.Type {
	case EOF, Semicolon, ParenClose, Order, Group, Limit, Having, Offset:
		return true
	default:
		return false
	}
}
