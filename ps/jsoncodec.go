package ps

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// tableDocument is the only shape the storage codec understands:
//
//	{"tableName": "...", "rows": [{"field": "value", ...}, ...]}
//
// All row values are strings. The codec is deliberately restricted to this
// shape; documents are written with row fields in sorted order so equal
// tables encode to equal bytes.
type tableDocument struct {
	Name string
	Rows []map[string]string
}

func encodeTableDocument(doc tableDocument) []byte {
	var b strings.Builder

	b.WriteString(`{"tableName": `)
	encodeString(&b, doc.Name)
	b.WriteString(`, "rows": [`)

	for i, row := range doc.Rows {
		if i > 0 {
			b.WriteString(", ")
		}

		fields := make([]string, 0, len(row))
		for field := range row {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		b.WriteByte('{')
		for j, field := range fields {
			if j > 0 {
				b.WriteString(", ")
			}
			encodeString(&b, field)
			b.WriteString(": ")
			encodeString(&b, row[field])
		}
		b.WriteByte('}')
	}

	b.WriteString("]}")
	return []byte(b.String())
}

func encodeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

func decodeTableDocument(data []byte) (tableDocument, error) {
	d := &docDecoder{input: string(data)}
	doc, err := d.decodeDocument()
	if err != nil {
		return tableDocument{}, err
	}
	d.skipSpace()
	if !d.done() {
		return tableDocument{}, d.errorf("trailing data after document")
	}
	return doc, nil
}

// docDecoder is a recursive descent scanner over the restricted document
// shape. It accepts the two top-level keys in either order.
type docDecoder struct {
	input string
	pos   int
}

func (d *docDecoder) errorf(format string, args ...any) error {
	return fmt.Errorf("table document at offset %d: %s", d.pos, fmt.Sprintf(format, args...))
}

func (d *docDecoder) done() bool {
	return d.pos >= len(d.input)
}

func (d *docDecoder) peek() byte {
	if d.done() {
		return 0
	}
	return d.input[d.pos]
}

func (d *docDecoder) skipSpace() {
	for !d.done() {
		switch d.input[d.pos] {
		case ' ', '\t', '\n', '\r':
			d.pos++
		default:
			return
		}
	}
}

func (d *docDecoder) expect(ch byte) error {
	d.skipSpace()
	if d.peek() != ch {
		return d.errorf("expected %q", string(ch))
	}
	d.pos++
	return nil
}

func (d *docDecoder) decodeDocument() (tableDocument, error) {
	var doc tableDocument
	sawName, sawRows := false, false

	if err := d.expect('{'); err != nil {
		return doc, err
	}

	for {
		d.skipSpace()
		if d.peek() == '}' {
			d.pos++
			break
		}

		key, err := d.decodeString()
		if err != nil {
			return doc, err
		}
		if err := d.expect(':'); err != nil {
			return doc, err
		}

		switch key {
		case "tableName":
			if doc.Name, err = d.decodeString(); err != nil {
				return doc, err
			}
			sawName = true
		case "rows":
			if doc.Rows, err = d.decodeRows(); err != nil {
				return doc, err
			}
			sawRows = true
		default:
			return doc, d.errorf("unknown document key %q", key)
		}

		d.skipSpace()
		if d.peek() == ',' {
			d.pos++
		}
	}

	if !sawName || !sawRows {
		return doc, errors.New("table document missing tableName or rows")
	}
	return doc, nil
}

func (d *docDecoder) decodeRows() ([]map[string]string, error) {
	if err := d.expect('['); err != nil {
		return nil, err
	}

	var rows []map[string]string
	d.skipSpace()
	if d.peek() == ']' {
		d.pos++
		return rows, nil
	}

	for {
		row, err := d.decodeRow()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)

		d.skipSpace()
		switch d.peek() {
		case ',':
			d.pos++
		case ']':
			d.pos++
			return rows, nil
		default:
			return nil, d.errorf("expected ',' or ']' in rows")
		}
	}
}

func (d *docDecoder) decodeRow() (map[string]string, error) {
	if err := d.expect('{'); err != nil {
		return nil, err
	}

	row := make(map[string]string)
	d.skipSpace()
	if d.peek() == '}' {
		d.pos++
		return row, nil
	}

	for {
		field, err := d.decodeString()
		if err != nil {
			return nil, err
		}
		if err := d.expect(':'); err != nil {
			return nil, err
		}
		value, err := d.decodeString()
		if err != nil {
			return nil, err
		}
		row[field] = value

		d.skipSpace()
		switch d.peek() {
		case ',':
			d.pos++
		case '}':
			d.pos++
			return row, nil
		default:
			return nil, d.errorf("expected ',' or '}' in row")
		}
	}
}

func (d *docDecoder) decodeString() (string, error) {
	if err := d.expect('"'); err != nil {
		return "", err
	}

	var b strings.Builder
	for {
		if d.done() {
			return "", d.errorf("unterminated string")
		}
		ch := d.input[d.pos]
		switch ch {
		case '"':
			d.pos++
			return b.String(), nil
		case '\\':
			d.pos++
			if d.done() {
				return "", d.errorf("unterminated escape")
			}
			esc := d.input[d.pos]
			d.pos++
			switch esc {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '/':
				b.WriteByte('/')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'u':
				r, err := d.decodeUnicodeEscape()
				if err != nil {
					return "", err
				}
				b.WriteRune(r)
			default:
				return "", d.errorf("unknown escape \\%s", string(esc))
			}
		default:
			b.WriteByte(ch)
			d.pos++
		}
	}
}

func (d *docDecoder) decodeUnicodeEscape() (rune, error) {
	r, err := d.decodeHex4()
	if err != nil {
		return 0, err
	}

	// Surrogate pairs arrive as two consecutive \uXXXX escapes.
	if utf16.IsSurrogate(r) && d.pos+1 < len(d.input) &&
		d.input[d.pos] == '\\' && d.input[d.pos+1] == 'u' {
		d.pos += 2
		r2, err := d.decodeHex4()
		if err != nil {
			return 0, err
		}
		if combined := utf16.DecodeRune(r, r2); combined != utf8.RuneError {
			return combined, nil
		}
		return utf8.RuneError, nil
	}
	if utf16.IsSurrogate(r) {
		return utf8.RuneError, nil
	}
	return r, nil
}

func (d *docDecoder) decodeHex4() (rune, error) {
	if d.pos+4 > len(d.input) {
		return 0, d.errorf("truncated unicode escape")
	}
	var r rune
	for i := 0; i < 4; i++ {
		ch := d.input[d.pos]
		d.pos++
		r <<= 4
		switch {
		case '0' <= ch && ch <= '9':
			r |= rune(ch - '0')
		case 'a' <= ch && ch <= 'f':
			r |= rune(ch-'a') + 10
		case 'A' <= ch && ch <= 'F':
			r |= rune(ch-'A') + 10
		default:
			return 0, d.errorf("invalid hex digit %q", string(ch))
		}
	}
	return r, nil
}
