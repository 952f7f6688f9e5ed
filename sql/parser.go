package sql

import (
	"errors"
	"strings"

	"github.com/wiredb/wiredb/core"
)

// ErrUnknownStatement is returned when the leading keyword of a statement
// matches none of the supported statement kinds.
var ErrUnknownStatement = errors.New("unknown statement kind")

type StatementKind int

const (
	SelectStatement StatementKind = iota
	InsertStatement
	UpdateStatement
	DeleteStatement
	CreateTableStatement
	DropTableStatement
	AlterTableStatement
	BeginStatement
	CommitStatement
	RollbackStatement
	ShowTablesStatement
	DescribeStatement
)

// OperationKind is the four-way reduction of statement kinds used by the
// engine dispatch. Transaction-control statements carry ControlOperation.
type OperationKind int

const (
	ReadOperation OperationKind = iota
	CreateOperation
	UpdateOperation
	DeleteOperation
	ControlOperation
)

// Query is the single canonical product of the parser: one tagged variant
// covering every supported statement. It is immutable after Parse returns.
type Query struct {
	Kind StatementKind
	Raw  string

	// Table is the unqualified target table name; empty only for
	// transaction-control and SHOW statements.
	Table string

	// Fields lists the affected columns in statement order. For SELECT an
	// empty list is the all-columns sentinel; for CREATE it holds the column
	// definitions with constraint clauses already skipped.
	Fields []string

	// Values binds column names to typed values for INSERT and UPDATE.
	Values map[string]core.Value

	// Action distinguishes ALTER TABLE ADD from ALTER TABLE DROP.
	Action string

	Where *Condition
}

// Operation derives the engine dispatch kind from the statement kind.
func (q *Query) Operation() OperationKind {
	switch q.Kind {
	case SelectStatement, ShowTablesStatement, DescribeStatement:
		return ReadOperation
	case InsertStatement, CreateTableStatement:
		return CreateOperation
	case UpdateStatement, AlterTableStatement:
		return UpdateOperation
	case DeleteStatement, DropTableStatement:
		return DeleteOperation
	default:
		return ControlOperation
	}
}

type Parser struct {
	lexer *Lexer
	raw   string
}

func NewParser(statement string) *Parser {
	return &Parser{lexer: NewLexer(statement), raw: statement}
}

// Parse reads the leading keyword, dispatches to the matching statement
// rule and returns the canonical Query. SQL keywords match
// case-insensitively; identifiers keep their case.
func (parser *Parser) Parse() (*Query, error) {
	switch token := parser.lexer.NextToken(); token.Type {
	case Select:
		return parser.parseSelect()
	case Insert:
		return parser.parseInsert()
	case Update:
		return parser.parseUpdate()
	case Delete:
		return parser.parseDelete()
	case Create:
		return parser.parseCreate()
	case Drop:
		return parser.parseDrop()
	case Alter:
		return parser.parseAlter()
	case Begin:
		return parser.query(BeginStatement), nil
	case Commit:
		return parser.query(CommitStatement), nil
	case Rollback:
		return parser.query(RollbackStatement), nil
	case Show:
		return parser.parseShow()
	case Describe:
		return parser.parseDescribe()
	default:
		return nil, ErrUnknownStatement
	}
}

// Parse is the package-level convenience entry point.
func Parse(statement string) (*Query, error) {
	return NewParser(statement).Parse()
}

func (parser *Parser) query(kind StatementKind) *Query {
	return &Query{Kind: kind, Raw: parser.raw}
}

func (parser *Parser) parseSelect() (*Query, error) {
	query := parser.query(SelectStatement)

	token := parser.lexer.NextToken()
	switch token.Type {
	case Wildcard:
		// All-columns sentinel: Fields stays empty.
		token = parser.lexer.NextToken()
	case Identifier:
		query.Fields = append(query.Fields, stripQualifier(token.Value))
		for {
			token = parser.lexer.NextToken()
			if token.Type != Comma {
				break
			}
			token = parser.lexer.NextToken()
			if token.Type != Identifier {
				return nil, errors.New("expected column name after comma")
			}
			query.Fields = append(query.Fields, stripQualifier(token.Value))
		}
	default:
		return nil, errors.New("expected column list or * after SELECT")
	}

	if token.Type != From {
		return nil, errors.New("expected FROM in SELECT")
	}

	table, err := parser.parseTableName()
	if err != nil {
		return nil, err
	}
	query.Table = table

	if query.Where, err = parser.parseOptionalWhere(); err != nil {
		return nil, err
	}
	return query, nil
}

func (parser *Parser) parseInsert() (*Query, error) {
	query := parser.query(InsertStatement)

	if token := parser.lexer.NextToken(); token.Type != Into {
		return nil, errors.New("expected INTO after INSERT")
	}

	table, err := parser.parseTableName()
	if err != nil {
		return nil, err
	}
	query.Table = table

	if token := parser.lexer.NextToken(); token.Type != ParenOpen {
		return nil, errors.New("expected '(' after table name")
	}

	for {
		token := parser.lexer.NextToken()
		if token.Type != Identifier {
			return nil, errors.New("expected column name in INSERT column list")
		}
		query.Fields = append(query.Fields, stripQualifier(token.Value))

		token = parser.lexer.NextToken()
		if token.Type == ParenClose {
			break
		}
		if token.Type != Comma {
			return nil, errors.New("expected ',' or ')' in column list")
		}
	}

	if token := parser.lexer.NextToken(); token.Type != Values {
		return nil, errors.New("expected VALUES")
	}
	if token := parser.lexer.NextToken(); token.Type != ParenOpen {
		return nil, errors.New("expected '(' after VALUES")
	}

	var values []core.Value
	for {
		value, err := parser.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, value)

		token := parser.lexer.NextToken()
		if token.Type == ParenClose {
			break
		}
		if token.Type != Comma {
			return nil, errors.New("expected ',' or ')' in value list")
		}
	}

	// Columns and values zip positionally. On a count mismatch nothing is
	// bound: the insert degrades to an empty row rather than failing.
	if len(values) == len(query.Fields) {
		query.Values = make(map[string]core.Value, len(values))
		for i, field := range query.Fields {
			query.Values[field] = values[i]
		}
	}

	return query, nil
}

func (parser *Parser) parseUpdate() (*Query, error) {
	query := parser.query(UpdateStatement)

	table, err := parser.parseTableName()
	if err != nil {
		return nil, err
	}
	query.Table = table

	if token := parser.lexer.NextToken(); token.Type != Set {
		return nil, errors.New("expected SET after table name")
	}

	query.Values = make(map[string]core.Value)
	for {
		token := parser.lexer.NextToken()
		if token.Type != Identifier {
			return nil, errors.New("expected column name in SET clause")
		}
		field := stripQualifier(token.Value)

		if token = parser.lexer.NextToken(); token.Type != Equals {
			return nil, errors.New("expected '=' in SET clause")
		}

		value, err := parser.parseLiteral()
		if err != nil {
			return nil, err
		}
		query.Fields = append(query.Fields, field)
		query.Values[field] = value

		if parser.lexer.PeekToken().Type != Comma {
			break
		}
		parser.lexer.NextToken() // consume comma
	}

	if query.Where, err = parser.parseOptionalWhere(); err != nil {
		return nil, err
	}
	return query, nil
}

func (parser *Parser) parseDelete() (*Query, error) {
	query := parser.query(DeleteStatement)

	if token := parser.lexer.NextToken(); token.Type != From {
		return nil, errors.New("expected FROM after DELETE")
	}

	table, err := parser.parseTableName()
	if err != nil {
		return nil, err
	}
	query.Table = table

	if query.Where, err = parser.parseOptionalWhere(); err != nil {
		return nil, err
	}
	return query, nil
}

func (parser *Parser) parseCreate() (*Query, error) {
	query := parser.query(CreateTableStatement)

	if token := parser.lexer.NextToken(); token.Type != TableKeyword {
		return nil, errors.New("expected TABLE after CREATE")
	}

	table, err := parser.parseTableName()
	if err != nil {
		return nil, err
	}
	query.Table = table

	// Column definitions are optional: CREATE TABLE t is legal and yields
	// an empty schema that accumulates on first INSERT.
	if parser.lexer.PeekToken().Type != ParenOpen {
		return query, nil
	}
	parser.lexer.NextToken() // consume '('

	for {
		token := parser.lexer.NextToken()
		switch token.Type {
		case ParenClose:
			return query, nil
		case Identifier:
			query.Fields = append(query.Fields, stripQualifier(token.Value))
			if done, err := parser.skipColumnDefinition(); err != nil {
				return nil, err
			} else if done {
				return query, nil
			}
		case PrimaryKey, ForeignKey, Unique, Check, Index, Key:
			// Table-level constraint definition: contributes no column.
			if done, err := parser.skipColumnDefinition(); err != nil {
				return nil, err
			} else if done {
				return query, nil
			}
		default:
			return nil, errors.New("expected column definition in CREATE TABLE")
		}
	}
}

// skipColumnDefinition consumes the remainder of one column definition
// (type name, lengths, inline constraints) up to the next comma or the
// closing parenthesis of the definition list. It reports whether the list
// was closed.
func (parser *Parser) skipColumnDefinition() (bool, error) {
	depth := 0
	for {
		switch token := parser.lexer.NextToken(); token.Type {
		case Comma:
			if depth == 0 {
				return false, nil
			}
		case ParenOpen:
			depth++
		case ParenClose:
			if depth == 0 {
				return true, nil
			}
			depth--
		case EOF:
			return false, errors.New("unterminated column definition list")
		}
	}
}

func (parser *Parser) parseDrop() (*Query, error) {
	query := parser.query(DropTableStatement)

	if token := parser.lexer.NextToken(); token.Type != TableKeyword {
		return nil, errors.New("expected TABLE after DROP")
	}

	table, err := parser.parseTableName()
	if err != nil {
		return nil, err
	}
	query.Table = table
	return query, nil
}

func (parser *Parser) parseAlter() (*Query, error) {
	query := parser.query(AlterTableStatement)

	if token := parser.lexer.NextToken(); token.Type != TableKeyword {
		return nil, errors.New("expected TABLE after ALTER")
	}

	table, err := parser.parseTableName()
	if err != nil {
		return nil, err
	}
	query.Table = table

	switch token := parser.lexer.NextToken(); token.Type {
	case Add:
		query.Action = "ADD"
	case Drop:
		query.Action = "DROP"
	default:
		return nil, errors.New("expected ADD or DROP after ALTER TABLE name")
	}

	token := parser.lexer.NextToken()
	if token.Type == Column {
		token = parser.lexer.NextToken()
	}
	if token.Type != Identifier {
		return nil, errors.New("expected column name in ALTER TABLE")
	}
	query.Fields = []string{stripQualifier(token.Value)}

	return query, nil
}

func (parser *Parser) parseShow() (*Query, error) {
	if token := parser.lexer.NextToken(); token.Type != TablesKeyword {
		return nil, errors.New("expected TABLES after SHOW")
	}
	return parser.query(ShowTablesStatement), nil
}

func (parser *Parser) parseDescribe() (*Query, error) {
	query := parser.query(DescribeStatement)

	table, err := parser.parseTableName()
	if err != nil {
		return nil, err
	}
	query.Table = table
	return query, nil
}

// parseOptionalWhere consumes a WHERE keyword and its condition tree when
// present. Trailing ORDER BY / GROUP BY / LIMIT / HAVING clauses end the
// condition body and are otherwise ignored.
func (parser *Parser) parseOptionalWhere() (*Condition, error) {
	for {
		switch parser.lexer.PeekToken().Type {
		case Where:
			parser.lexer.NextToken() // consume WHERE
			return parser.parseWhere()
		case EOF, Semicolon:
			return nil, nil
		default:
			// Unhandled trailing clause; skip a token and keep looking.
			parser.lexer.NextToken()
		}
	}
}

// parseTableName reads the target table identifier, stripping backticks
// (the lexer already removed them for quoted forms) and an optional
// schema-qualifying prefix: `db.users` and users both yield users.
func (parser *Parser) parseTableName() (string, error) {
	token := parser.lexer.NextToken()
	if token.Type != Identifier {
		return "", errors.New("expected table name")
	}
	name := stripQualifier(token.Value)
	if name == "" {
		return "", errors.New("empty table name")
	}
	return name, nil
}

// stripQualifier removes backticks and a dotted schema prefix from an
// identifier, keeping only the final unqualified component.
func stripQualifier(identifier string) string {
	identifier = strings.ReplaceAll(identifier, "`", "")
	if i := strings.LastIndexByte(identifier, '.'); i >= 0 {
		return identifier[i+1:]
	}
	return identifier
}
