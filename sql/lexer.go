package sql

type Token struct {
	Type  TokenType
	Value string
}

type TokenType int

const (
	Identifier TokenType = iota
	String
	Int
	Float
	Wildcard
	Comma
	Semicolon
	ParenOpen
	ParenClose
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	Select
	From
	Where
	Insert
	Into
	Values
	Update
	Set
	Delete
	Create
	Drop
	Alter
	TableKeyword
	TablesKeyword
	Add
	Column
	And
	Or
	Not
	Is
	Null
	Like
	In
	True
	False
	Order
	Group
	By
	Limit
	Offset
	Having
	Begin
	Commit
	Rollback
	Show
	Describe
	PrimaryKey
	ForeignKey
	Unique
	Check
	Index
	Key
	EOF
	Unknown
)

func (token Token) String() string {
	switch token.Type {
	case Identifier:
		return "Identifier(" + token.Value + ")"
	case String:
		return "String(" + token.Value + ")"
	case Int:
		return "Int(" + token.Value + ")"
	case Float:
		return "Float(" + token.Value + ")"
	case EOF:
		return "EOF"
	default:
		return token.Value
	}
}

// Lexer turns a statement string into a token stream. It is a plain byte
// scanner: no lookahead beyond one character, no allocation for keywords.
type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) NextToken() Token {
	var token Token

	lexer.skipWhitespace()

	switch lexer.ch {
	case ',':
		token = Token{Type: Comma, Value: string(lexer.ch)}
	case ';':
		token = Token{Type: Semicolon, Value: string(lexer.ch)}
	case '(':
		token = Token{Type: ParenOpen, Value: string(lexer.ch)}
	case ')':
		token = Token{Type: ParenClose, Value: string(lexer.ch)}
	case 0:
		token = Token{Type: EOF, Value: ""}
	case '\'':
		token = Token{Type: String, Value: lexer.readString('\'')}
	case '"':
		token = Token{Type: String, Value: lexer.readString('"')}
	case '`':
		// Backtick-quoted identifier, quotes stripped.
		token = Token{Type: Identifier, Value: lexer.readString('`')}
	case '*':
		token = Token{Type: Wildcard, Value: string(lexer.ch)}
	default:
		if isOperator(lexer.ch) {
			operator := lexer.readOperator()
			switch operator {
			case "=":
				return Token{Type: Equals, Value: operator}
			case "!=", "<>":
				return Token{Type: NotEquals, Value: operator}
			case "<":
				return Token{Type: LessThan, Value: operator}
			case ">":
				return Token{Type: GreaterThan, Value: operator}
			case "<=":
				return Token{Type: LessThanOrEqual, Value: operator}
			case ">=":
				return Token{Type: GreaterThanOrEqual, Value: operator}
			default:
				return Token{Type: Unknown, Value: operator}
			}
		} else if isDigit(lexer.ch) || (lexer.ch == '-' && isDigit(lexer.peekChar())) {
			return lexer.readNumberToken()
		} else if isAlphaNumeric(lexer.ch) {
			literal := lexer.readIdentifier()
			switch toUpper(literal) {
			case "PRIMARY":
				return lexer.readCompoundKey(literal, PrimaryKey)
			case "FOREIGN":
				return lexer.readCompoundKey(literal, ForeignKey)
			default:
				return Token{Type: lookupIdentifier(literal), Value: literal}
			}
		} else {
			token = Token{Type: Unknown, Value: string(lexer.ch)}
		}
	}

	lexer.readChar()
	return token
}

// PeekToken returns the next token without consuming it.
func (lexer *Lexer) PeekToken() Token {
	savedPosition := lexer.position
	savedReadPosition := lexer.readPosition
	savedCh := lexer.ch

	token := lexer.NextToken()

	lexer.position = savedPosition
	lexer.readPosition = savedReadPosition
	lexer.ch = savedCh

	return token
}

func (lexer *Lexer) skipWhitespace() {
	for lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r' {
		lexer.readChar()
	}
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.readPosition]
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isAlphaNumeric(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readString(quote byte) string {
	lexer.readChar() // skip opening quote
	position := lexer.position
	for lexer.ch != quote && lexer.ch != 0 {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readNumberToken() Token {
	position := lexer.position
	if lexer.ch == '-' {
		lexer.readChar()
	}
	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	if lexer.ch == '.' && isDigit(lexer.peekChar()) {
		lexer.readChar()
		for isDigit(lexer.ch) {
			lexer.readChar()
		}
		return Token{Type: Float, Value: lexer.sql[position:lexer.position]}
	}
	return Token{Type: Int, Value: lexer.sql[position:lexer.position]}
}

func (lexer *Lexer) readOperator() string {
	position := lexer.position
	for isOperator(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

// readCompoundKey handles PRIMARY KEY and FOREIGN KEY as single tokens.
func (lexer *Lexer) readCompoundKey(literal string, kind TokenType) Token {
	lexer.skipWhitespace()
	next := lexer.readIdentifier()
	if toUpper(next) == "KEY" {
		return Token{Type: kind, Value: literal + " " + next}
	}
	return Token{Type: Unknown, Value: literal + " " + next}
}

func isAlphaNumeric(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || ch == '.' || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOperator(ch byte) bool {
	return ch == '=' || ch == '!' || ch == '<' || ch == '>'
}

func lookupIdentifier(id string) TokenType {
	switch toUpper(id) {
	case "SELECT":
		return Select
	case "FROM":
		return From
	case "WHERE":
		return Where
	case "INSERT":
		return Insert
	case "INTO":
		return Into
	case "VALUES":
		return Values
	case "UPDATE":
		return Update
	case "SET":
		return Set
	case "DELETE":
		return Delete
	case "CREATE":
		return Create
	case "DROP":
		return Drop
	case "ALTER":
		return Alter
	case "TABLE":
		return TableKeyword
	case "TABLES":
		return TablesKeyword
	case "ADD":
		return Add
	case "COLUMN":
		return Column
	case "AND":
		return And
	case "OR":
		return Or
	case "NOT":
		return Not
	case "IS":
		return Is
	case "NULL":
		return Null
	case "LIKE":
		return Like
	case "IN":
		return In
	case "TRUE":
		return True
	case "FALSE":
		return False
	case "ORDER":
		return Order
	case "GROUP":
		return Group
	case "BY":
		return By
	case "LIMIT":
		return Limit
	case "OFFSET":
		return Offset
	case "HAVING":
		return Having
	case "BEGIN":
		return Begin
	case "COMMIT":
		return Commit
	case "ROLLBACK":
		return Rollback
	case "SHOW":
		return Show
	case "DESCRIBE":
		return Describe
	case "UNIQUE":
		return Unique
	case "CHECK":
		return Check
	case "INDEX":
		return Index
	case "KEY":
		return Key
	default:
		return Identifier
	}
}

// toUpper converts a string to uppercase without allocating for ASCII
// strings that are already uppercase.
func toUpper(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'a' && s[i] <= 'z' {
			b := make([]byte, len(s))
			for j := 0; j < len(s); j++ {
				if s[j] >= 'a' && s[j] <= 'z' {
					b[j] = s[j] - 32
				} else {
					b[j] = s[j]
				}
			}
			return string(b)
		}
	}
	return s
}
