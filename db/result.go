package db

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/wiredb/wiredb/core"
)

// QueryResult is the outcome of one executed statement. Rows is nil for
// statements that return no data; Columns fixes the field render order.
type QueryResult struct {
	Success bool
	Message string
	Columns []string
	Rows    []core.Row
}

func successResult(message string, columns []string, rows []core.Row) QueryResult {
	return QueryResult{Success: true, Message: message, Columns: columns, Rows: rows}
}

func failureResult(format string, args ...any) QueryResult {
	return QueryResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Serialize renders the result in its wire form:
//
//	STATUS|MESSAGE|COUNT|{k1=v1, k2=v2};{...}
//
// STATUS is SUCCESS or ERROR, COUNT is the row count, and the DATA segment
// is only present when COUNT is non-zero. Pipes inside the message are
// replaced so the segment structure survives.
func (result QueryResult) Serialize() string {
	status := "ERROR"
	if result.Success {
		status = "SUCCESS"
	}
	message := strings.ReplaceAll(result.Message, "|", "/")

	parts := []string{status, message, strconv.Itoa(len(result.Rows))}
	if len(result.Rows) > 0 {
		segments := make([]string, len(result.Rows))
		for i, row := range result.Rows {
			segments[i] = encodeRow(row, result.Columns)
		}
		parts = append(parts, strings.Join(segments, ";"))
	}
	return strings.Join(parts, "|")
}

func encodeRow(row core.Row, columns []string) string {
	fields := orderedFields(row, columns)
	pairs := make([]string, 0, len(fields))
	for _, field := range fields {
		pairs = append(pairs, field+"="+row[field].String())
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// orderedFields lists the row's fields in column order, with any fields the
// column list does not know appended in sorted order.
func orderedFields(row core.Row, columns []string) []string {
	fields := make([]string, 0, len(row))
	seen := make(map[string]bool, len(row))
	for _, column := range columns {
		if _, ok := row[column]; ok && !seen[column] {
			fields = append(fields, column)
			seen[column] = true
		}
	}

	var extra []string
	for field := range row {
		if !seen[field] {
			extra = append(extra, field)
		}
	}
	sort.Strings(extra)
	return append(fields, extra...)
}

// ParseResult decodes the wire form produced by Serialize. Row values come
// back typed through the value parser, so ints, floats, booleans and nulls
// survive the round trip; strings that look like numbers do not.
func ParseResult(encoded string) (QueryResult, error) {
	parts := strings.SplitN(encoded, "|", 4)
	if len(parts) < 3 {
		return QueryResult{}, errors.New("malformed result: expected STATUS|MESSAGE|COUNT")
	}

	var result QueryResult
	switch parts[0] {
	case "SUCCESS":
		result.Success = true
	case "ERROR":
		result.Success = false
	default:
		return QueryResult{}, fmt.Errorf("malformed result: unknown status %q", parts[0])
	}
	result.Message = parts[1]

	count, err := strconv.Atoi(parts[2])
	if err != nil {
		return QueryResult{}, fmt.Errorf("malformed result: bad count %q", parts[2])
	}

	if count == 0 {
		return result, nil
	}
	if len(parts) < 4 || parts[3] == "" {
		return QueryResult{}, fmt.Errorf("malformed result: count %d with no data segment", count)
	}

	for _, segment := range strings.Split(parts[3], ";") {
		row, fields, err := decodeRow(segment)
		if err != nil {
			return QueryResult{}, err
		}
		result.Rows = append(result.Rows, row)
		for _, field := range fields {
			if !containsField(result.Columns, field) {
				result.Columns = append(result.Columns, field)
			}
		}
	}

	if len(result.Rows) != count {
		return QueryResult{}, fmt.Errorf("malformed result: count %d but %d row(s)", count, len(result.Rows))
	}
	return result, nil
}

func decodeRow(segment string) (core.Row, []string, error) {
	if !strings.HasPrefix(segment, "{") || !strings.HasSuffix(segment, "}") {
		return nil, nil, fmt.Errorf("malformed row segment %q", segment)
	}
	body := segment[1 : len(segment)-1]

	row := make(core.Row)
	var fields []string
	if body == "" {
		return row, fields, nil
	}

	for _, pair := range strings.Split(body, ", ") {
		field, literal, found := strings.Cut(pair, "=")
		if !found || field == "" {
			return nil, nil, fmt.Errorf("malformed field pair %q", pair)
		}
		row[field] = core.ParseValue(literal)
		fields = append(fields, field)
	}
	return row, fields, nil
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

// Display prints the result for interactive use: the data table when rows
// are present, then the status line.
func (result QueryResult) Display() {
	if len(result.Rows) > 0 {
		table := NewTextTable(os.Stdout)
		table.Header(result.Columns)
		for _, row := range result.Rows {
			cells := make([]string, len(result.Columns))
			for i, field := range result.Columns {
				cells[i] = row[field].String()
			}
			table.Row(cells)
		}
		table.Render()
	}

	if result.Success {
		fmt.Printf("%s (%d row(s))\n", result.Message, len(result.Rows))
	} else {
		fmt.Printf("error: %s\n", result.Message)
	}
}
