package db

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/wiredb/wiredb/core"
	"github.com/wiredb/wiredb/ps"
	"github.com/wiredb/wiredb/sql"
)

// Engine holds the live tables and the single transaction slot, and
// dispatches parsed queries to their executors. One mutex serializes all
// execution; the table registry itself is additionally safe for the
// lock-free readers (Schema, TableNames).
type Engine struct {
	store  *ps.Store
	tables cmap.ConcurrentMap[string, *core.Table]

	mu  sync.Mutex
	txn *transaction
}

// NewEngine loads every table known to the store into memory.
func NewEngine(store *ps.Store) (*Engine, error) {
	engine := &Engine{
		store:  store,
		tables: cmap.New[*core.Table](),
	}

	schemas, err := store.LoadSchemas()
	if err != nil {
		return nil, err
	}

	for name, columns := range schemas {
		loaded, found, err := store.LoadTable(name)
		if err != nil {
			return nil, err
		}

		// Schema column order is authoritative; columns only seen in rows
		// are appended after it.
		table := core.NewTable(name, columns)
		if found {
			table.Rows = loaded.Rows
			for _, column := range loaded.Columns {
				table.AddColumn(column)
			}
		}
		engine.tables.Set(name, table)
	}

	return engine, nil
}

// Execute parses and runs one statement. Parse and execution failures come
// back as a failed QueryResult with a nil error; only transaction protocol
// misuse (double begin, commit or rollback with no transaction, a failed
// commit) surfaces as a hard error.
func (engine *Engine) Execute(statement string) (QueryResult, error) {
	query, err := sql.Parse(statement)
	if err != nil {
		return failureResult("parse error: %v", err), nil
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()

	switch query.Kind {
	case sql.BeginStatement:
		if err := engine.beginLocked(); err != nil {
			return QueryResult{}, err
		}
		return successResult("transaction started", nil, nil), nil
	case sql.CommitStatement:
		if err := engine.commitLocked(); err != nil {
			return QueryResult{}, err
		}
		return successResult("transaction committed", nil, nil), nil
	case sql.RollbackStatement:
		if err := engine.rollbackLocked(); err != nil {
			return QueryResult{}, err
		}
		return successResult("transaction rolled back", nil, nil), nil
	case sql.SelectStatement:
		return engine.executeSelect(query), nil
	case sql.InsertStatement:
		return engine.executeInsert(query), nil
	case sql.UpdateStatement:
		return engine.executeUpdate(query), nil
	case sql.DeleteStatement:
		return engine.executeDelete(query), nil
	case sql.CreateTableStatement:
		return engine.executeCreate(query), nil
	case sql.DropTableStatement:
		return engine.executeDrop(query), nil
	case sql.AlterTableStatement:
		return engine.executeAlter(query), nil
	case sql.ShowTablesStatement:
		return engine.executeShowTables(), nil
	case sql.DescribeStatement:
		return engine.executeDescribe(query), nil
	default:
		return failureResult("unsupported statement"), nil
	}
}

// tableForRead resolves the target table: the transaction snapshot when a
// transaction is open, the live table otherwise.
func (engine *Engine) tableForRead(name string) (*core.Table, bool) {
	if engine.txn != nil {
		return engine.snapshotTable(name)
	}
	return engine.tables.Get(name)
}

func (engine *Engine) executeSelect(query *sql.Query) QueryResult {
	table, ok := engine.tableForRead(query.Table)
	if !ok {
		return failureResult("table %s not found", query.Table)
	}

	columns := query.Fields
	if len(columns) == 0 {
		columns = append([]string(nil), table.Columns...)
	}

	var rows []core.Row
	for _, row := range table.Rows {
		if !Matches(row, query.Where) {
			continue
		}
		out := make(core.Row, len(columns))
		if len(query.Fields) == 0 {
			for field, value := range row {
				out[field] = value
			}
		} else {
			for _, field := range query.Fields {
				if value, ok := row[field]; ok {
					out[field] = value
				}
			}
		}
		rows = append(rows, out)
	}

	return successResult(fmt.Sprintf("%d row(s) selected", len(rows)), columns, rows)
}

func (engine *Engine) executeInsert(query *sql.Query) QueryResult {
	row := make(core.Row, len(query.Values))
	for field, value := range query.Values {
		row[field] = value
	}

	if engine.txn != nil {
		table, ok := engine.snapshotTable(query.Table)
		if !ok {
			table = core.NewTable(query.Table, nil)
			engine.txn.snapshot[query.Table] = table
		}
		table.Rows = append(table.Rows, row)
		for _, field := range query.Fields {
			table.AddColumn(field)
		}
		engine.buffer(writeOp, query.Table)
		return successResult("1 row inserted", query.Fields, nil)
	}

	table, ok := engine.tables.Get(query.Table)
	if !ok {
		table = core.NewTable(query.Table, nil)
		engine.tables.Set(query.Table, table)
	}

	table.Rows = append(table.Rows, row)
	schemaChanged := !ok
	for _, field := range query.Fields {
		if table.AddColumn(field) {
			schemaChanged = true
		}
	}

	if err := engine.persistTable(table, schemaChanged); err != nil {
		return failureResult("1 row inserted but not persisted: %v", err)
	}
	return successResult("1 row inserted", query.Fields, nil)
}

func (engine *Engine) executeUpdate(query *sql.Query) QueryResult {
	inTxn := engine.txn != nil
	table, ok := engine.tableForRead(query.Table)
	if !ok {
		return failureResult("table %s not found", query.Table)
	}

	affected := 0
	for _, row := range table.Rows {
		if !Matches(row, query.Where) {
			continue
		}
		for field, value := range query.Values {
			row[field] = value
		}
		affected++
	}

	schemaChanged := false
	for _, field := range query.Fields {
		if table.AddColumn(field) {
			schemaChanged = true
		}
	}

	message := fmt.Sprintf("%d row(s) updated", affected)
	if inTxn {
		engine.buffer(writeOp, query.Table)
		return successResult(message, nil, nil)
	}

	if err := engine.persistTable(table, schemaChanged); err != nil {
		return failureResult("%s but not persisted: %v", message, err)
	}
	return successResult(message, nil, nil)
}

func (engine *Engine) executeDelete(query *sql.Query) QueryResult {
	inTxn := engine.txn != nil
	table, ok := engine.tableForRead(query.Table)
	if !ok {
		return failureResult("table %s not found", query.Table)
	}

	kept := table.Rows[:0]
	removed := 0
	for _, row := range table.Rows {
		if Matches(row, query.Where) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	table.Rows = kept

	message := fmt.Sprintf("%d row(s) deleted", removed)
	if inTxn {
		engine.buffer(deleteOp, query.Table)
		return successResult(message, nil, nil)
	}

	if err := engine.persistTable(table, false); err != nil {
		return failureResult("%s but not persisted: %v", message, err)
	}
	return successResult(message, nil, nil)
}

// executeCreate applies CREATE TABLE immediately even inside a transaction.
func (engine *Engine) executeCreate(query *sql.Query) QueryResult {
	if _, exists := engine.tables.Get(query.Table); exists {
		return failureResult("table %s already exists", query.Table)
	}

	table := core.NewTable(query.Table, query.Fields)
	engine.tables.Set(query.Table, table)

	if err := engine.persistTable(table, true); err != nil {
		return failureResult("table %s created but not persisted: %v", query.Table, err)
	}
	return successResult(fmt.Sprintf("table %s created", query.Table), nil, nil)
}

func (engine *Engine) executeDrop(query *sql.Query) QueryResult {
	if _, exists := engine.tables.Get(query.Table); !exists {
		return failureResult("table %s not found", query.Table)
	}

	engine.tables.Remove(query.Table)
	if engine.txn != nil {
		delete(engine.txn.snapshot, query.Table)
	}

	if err := engine.store.DeleteTable(query.Table); err != nil {
		return failureResult("table %s dropped but not removed from storage: %v", query.Table, err)
	}
	if err := engine.persistSchemas(); err != nil {
		log.Printf("persisting schemas after drop: %v", err)
	}
	return successResult(fmt.Sprintf("table %s dropped", query.Table), nil, nil)
}

func (engine *Engine) executeAlter(query *sql.Query) QueryResult {
	table, ok := engine.tables.Get(query.Table)
	if !ok {
		return failureResult("table %s not found", query.Table)
	}

	column := query.Fields[0]
	if query.Action == "DROP" {
		// The schema only accumulates; a dropped column stays tracked.
		return successResult(fmt.Sprintf("column %s retained in schema of %s", column, query.Table), nil, nil)
	}

	changed := table.AddColumn(column)
	if changed {
		if err := engine.persistSchemas(); err != nil {
			return failureResult("column %s added but schema not persisted: %v", column, err)
		}
	}
	return successResult(fmt.Sprintf("column %s added to %s", column, query.Table), nil, nil)
}

func (engine *Engine) executeShowTables() QueryResult {
	names := engine.tables.Keys()
	sort.Strings(names)

	rows := make([]core.Row, len(names))
	for i, name := range names {
		rows[i] = core.Row{"table_name": core.NewString(name)}
	}
	return successResult(fmt.Sprintf("%d table(s)", len(names)), []string{"table_name"}, rows)
}

func (engine *Engine) executeDescribe(query *sql.Query) QueryResult {
	table, ok := engine.tableForRead(query.Table)
	if !ok {
		return failureResult("table %s not found", query.Table)
	}

	rows := make([]core.Row, len(table.Columns))
	for i, column := range table.Columns {
		rows[i] = core.Row{"column": core.NewString(column)}
	}
	return successResult(fmt.Sprintf("%d column(s)", len(rows)), []string{"column"}, rows)
}

// persistTable saves a table, and the schema document too when the table's
// column set changed. In-memory state stays mutated even when persistence
// fails; the caller reports the failure.
func (engine *Engine) persistTable(table *core.Table, schemaChanged bool) error {
	if err := engine.store.SaveTable(table); err != nil {
		log.Printf("persisting table %s: %v", table.Name, err)
		return err
	}
	if schemaChanged {
		if err := engine.persistSchemas(); err != nil {
			log.Printf("persisting schemas: %v", err)
			return err
		}
	}
	return nil
}

func (engine *Engine) persistSchemas() error {
	return engine.store.SaveSchemas(engine.schemaLocked())
}

func (engine *Engine) schemaLocked() map[string][]string {
	schemas := make(map[string][]string, engine.tables.Count())
	for entry := range engine.tables.IterBuffered() {
		schemas[entry.Key] = append([]string(nil), entry.Val.Columns...)
	}
	return schemas
}

// Schema returns the accumulated column sets of every live table.
func (engine *Engine) Schema() map[string][]string {
	return engine.schemaLocked()
}

// TableNames lists the live tables, sorted.
func (engine *Engine) TableNames() []string {
	names := engine.tables.Keys()
	sort.Strings(names)
	return names
}

// InTransaction reports whether the engine's transaction slot is occupied.
func (engine *Engine) InTransaction() bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.txn != nil
}

// IsTransactionError reports whether an error from Execute is one of the
// transaction protocol errors.
func IsTransactionError(err error) bool {
	return errors.Is(err, ErrTransactionActive) ||
		errors.Is(err, ErrNoTransaction) ||
		errors.Is(err, ErrCommitFailed)
}
