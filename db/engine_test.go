package db

import (
	"strings"
	"testing"

	"github.com/wiredb/wiredb/core"
	"github.com/wiredb/wiredb/ps"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(ps.NewStore(ps.NewMemoryKV()))
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	return engine
}

func mustExecute(t *testing.T, engine *Engine, statement string) QueryResult {
	t.Helper()
	result, err := engine.Execute(statement)
	if err != nil {
		t.Fatalf("executing %q: %v", statement, err)
	}
	if !result.Success {
		t.Fatalf("executing %q: %s", statement, result.Message)
	}
	return result
}

func TestEngineInsertSelect(t *testing.T) {
	engine := newTestEngine(t)

	mustExecute(t, engine, "INSERT INTO users (id, name, age) VALUES (1, 'Alice', 30)")
	mustExecute(t, engine, "INSERT INTO users (id, name, age) VALUES (2, 'Bob', 17)")

	result := mustExecute(t, engine, "SELECT * FROM users WHERE age > 21")
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if result.Rows[0]["name"] != core.NewString("Alice") {
		t.Fatalf("unexpected row %+v", result.Rows[0])
	}
}

func TestEngineSelectProjection(t *testing.T) {
	engine := newTestEngine(t)
	mustExecute(t, engine, "INSERT INTO users (id, name, age) VALUES (1, 'Alice', 30)")

	result := mustExecute(t, engine, "SELECT name FROM users")
	if len(result.Rows) != 1 || len(result.Rows[0]) != 1 {
		t.Fatalf("projection leaked fields: %+v", result.Rows)
	}
	if result.Rows[0]["name"] != core.NewString("Alice") {
		t.Fatalf("unexpected row %+v", result.Rows[0])
	}

	// Requested fields absent from the row are skipped, not invented.
	result = mustExecute(t, engine, "SELECT name, missing FROM users")
	if _, ok := result.Rows[0]["missing"]; ok {
		t.Fatalf("absent field materialized: %+v", result.Rows[0])
	}
}

func TestEngineSelectMissingTable(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Execute("SELECT * FROM nope")
	if err != nil {
		t.Fatalf("unexpected hard error: %v", err)
	}
	if result.Success {
		t.Fatalf("select from missing table must fail")
	}
}

func TestEngineParseErrorIsSoft(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Execute("FROBNICATE everything")
	if err != nil {
		t.Fatalf("parse errors must not be hard errors: %v", err)
	}
	if result.Success || !strings.Contains(result.Message, "parse error") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestEngineUpdate(t *testing.T) {
	engine := newTestEngine(t)
	mustExecute(t, engine, "INSERT INTO users (id, name) VALUES (1, 'Alice')")
	mustExecute(t, engine, "INSERT INTO users (id, name) VALUES (2, 'Bob')")

	result := mustExecute(t, engine, "UPDATE users SET name = 'Carol' WHERE id = 2")
	if !strings.Contains(result.Message, "1 row(s) updated") {
		t.Fatalf("unexpected message %q", result.Message)
	}

	rows := mustExecute(t, engine, "SELECT name FROM users WHERE id = 2").Rows
	if rows[0]["name"] != core.NewString("Carol") {
		t.Fatalf("update not applied: %+v", rows[0])
	}

	// No condition updates every row.
	result = mustExecute(t, engine, "UPDATE users SET name = 'X'")
	if !strings.Contains(result.Message, "2 row(s) updated") {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestEngineDelete(t *testing.T) {
	engine := newTestEngine(t)
	mustExecute(t, engine, "INSERT INTO users (id) VALUES (1)")
	mustExecute(t, engine, "INSERT INTO users (id) VALUES (2)")
	mustExecute(t, engine, "INSERT INTO users (id) VALUES (3)")

	result := mustExecute(t, engine, "DELETE FROM users WHERE id > 1")
	if !strings.Contains(result.Message, "2 row(s) deleted") {
		t.Fatalf("unexpected message %q", result.Message)
	}

	rows := mustExecute(t, engine, "SELECT * FROM users").Rows
	if len(rows) != 1 || rows[0]["id"] != core.NewInt(1) {
		t.Fatalf("unexpected remaining rows %+v", rows)
	}
}

func TestEngineCreateDrop(t *testing.T) {
	engine := newTestEngine(t)

	mustExecute(t, engine, "CREATE TABLE users (id INT, name VARCHAR(50))")

	result, _ := engine.Execute("CREATE TABLE users (id INT)")
	if result.Success {
		t.Fatalf("duplicate create must fail")
	}

	mustExecute(t, engine, "DROP TABLE users")

	result, _ = engine.Execute("DROP TABLE users")
	if result.Success {
		t.Fatalf("dropping a missing table must fail")
	}
}

func TestEngineSchemaAccumulates(t *testing.T) {
	engine := newTestEngine(t)

	mustExecute(t, engine, "INSERT INTO users (id) VALUES (1)")
	mustExecute(t, engine, "INSERT INTO users (id, email) VALUES (2, 'x@y.z')")
	mustExecute(t, engine, "INSERT INTO users (id, email) VALUES (3, 'a@b.c')")

	schema := engine.Schema()["users"]
	if len(schema) != 2 || schema[0] != "id" || schema[1] != "email" {
		t.Fatalf("unexpected schema %v", schema)
	}

	// ALTER DROP keeps the column tracked.
	mustExecute(t, engine, "ALTER TABLE users DROP COLUMN email")
	if len(engine.Schema()["users"]) != 2 {
		t.Fatalf("schema shrank: %v", engine.Schema()["users"])
	}

	mustExecute(t, engine, "ALTER TABLE users ADD COLUMN phone VARCHAR(20)")
	if len(engine.Schema()["users"]) != 3 {
		t.Fatalf("alter add not applied: %v", engine.Schema()["users"])
	}
}

func TestEngineInsertCountMismatch(t *testing.T) {
	engine := newTestEngine(t)

	// Mismatched counts bind nothing but still insert a row.
	mustExecute(t, engine, "INSERT INTO users (id, name) VALUES (1)")

	rows := mustExecute(t, engine, "SELECT * FROM users").Rows
	if len(rows) != 1 || len(rows[0]) != 0 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestEngineShowTablesAndDescribe(t *testing.T) {
	engine := newTestEngine(t)
	mustExecute(t, engine, "CREATE TABLE b (x INT)")
	mustExecute(t, engine, "CREATE TABLE a (y INT)")

	result := mustExecute(t, engine, "SHOW TABLES")
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 tables, got %+v", result.Rows)
	}
	if result.Rows[0]["table_name"] != core.NewString("a") {
		t.Fatalf("tables not sorted: %+v", result.Rows)
	}

	result = mustExecute(t, engine, "DESCRIBE b")
	if len(result.Rows) != 1 || result.Rows[0]["column"] != core.NewString("x") {
		t.Fatalf("unexpected describe output %+v", result.Rows)
	}
}

func TestEnginePersistsAcrossReload(t *testing.T) {
	store := ps.NewStore(ps.NewMemoryKV())

	engine, err := NewEngine(store)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	mustExecute(t, engine, "INSERT INTO users (id, name) VALUES (1, 'Alice')")

	reloaded, err := NewEngine(store)
	if err != nil {
		t.Fatalf("reloading engine: %v", err)
	}

	rows := mustExecute(t, reloaded, "SELECT * FROM users").Rows
	if len(rows) != 1 || rows[0]["name"] != core.NewString("Alice") {
		t.Fatalf("state not durable: %+v", rows)
	}

	schema := reloaded.Schema()["users"]
	if len(schema) != 2 || schema[0] != "id" {
		t.Fatalf("schema not durable: %v", schema)
	}
}
