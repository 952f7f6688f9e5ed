package wiredb

import (
	"os"
	"strconv"
	"testing"

	"github.com/wiredb/wiredb/core"
	"github.com/wiredb/wiredb/db"
	"github.com/wiredb/wiredb/ps"
)

// StoreFactory builds a fresh KV backend for one test run.
type StoreFactory func(t *testing.T) ps.KV

// runWithEachStore runs a test against every storage backend.
func runWithEachStore(t *testing.T, testFunc func(t *testing.T, kv ps.KV)) {
	backends := map[string]StoreFactory{
		"Memory": func(t *testing.T) ps.KV {
			return ps.NewMemoryKV()
		},
		"File": func(t *testing.T) ps.KV {
			kv, err := ps.NewFileKV(t.TempDir())
			if err != nil {
				t.Fatalf("Failed to initialize file storage: %v", err)
			}
			return kv
		},
		"Git": func(t *testing.T) ps.KV {
			kv, err := ps.NewMemoryGitKV(core.Identity{Name: "test", Email: "test@test.com"})
			if err != nil {
				t.Fatalf("Failed to initialize git storage: %v", err)
			}
			return kv
		},
	}

	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			testFunc(t, factory(t))
		})
	}
}

func newEngine(t *testing.T, kv ps.KV) *db.Engine {
	t.Helper()
	engine, err := Open(kv).Engine()
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func exec(t *testing.T, engine *db.Engine, statement string) db.QueryResult {
	t.Helper()
	result, err := engine.Execute(statement)
	if err != nil {
		t.Fatalf("Executing %q: %v", statement, err)
	}
	if !result.Success {
		t.Fatalf("Executing %q: %s", statement, result.Message)
	}
	return result
}

// TestIntegrationWorkflow drives a complete workflow through every backend.
func TestIntegrationWorkflow(t *testing.T) {
	runWithEachStore(t, func(t *testing.T, kv ps.KV) {
		engine := newEngine(t, kv)

		exec(t, engine, "CREATE TABLE employees (id INT PRIMARY KEY, name STRING, department STRING, salary INT)")

		for i, row := range []string{
			"(1, 'Alice', 'Engineering', 80000)",
			"(2, 'Bob', 'Engineering', 75000)",
			"(3, 'Charlie', 'Sales', 60000)",
			"(4, 'Diana', 'Marketing', 65000)",
			"(5, 'Eve', 'Engineering', 90000)",
		} {
			exec(t, engine, "INSERT INTO employees (id, name, department, salary) VALUES "+row)
			if count := len(exec(t, engine, "SELECT * FROM employees").Rows); count != i+1 {
				t.Fatalf("expected %d rows after insert, got %d", i+1, count)
			}
		}

		// Filtered read.
		result := exec(t, engine, "SELECT name FROM employees WHERE department = 'Engineering' AND salary > 76000")
		if len(result.Rows) != 2 {
			t.Fatalf("expected 2 rows, got %+v", result.Rows)
		}

		// Update and verify.
		exec(t, engine, "UPDATE employees SET salary = 82000 WHERE id = 2")
		result = exec(t, engine, "SELECT salary FROM employees WHERE id = 2")
		if result.Rows[0]["salary"] != core.NewInt(82000) {
			t.Fatalf("update not applied: %+v", result.Rows[0])
		}

		// Delete and verify.
		exec(t, engine, "DELETE FROM employees WHERE department = 'Sales'")
		if count := len(exec(t, engine, "SELECT * FROM employees").Rows); count != 4 {
			t.Fatalf("expected 4 rows after delete, got %d", count)
		}

		// Durability: a new engine over the same backend sees the data.
		reloaded := newEngine(t, kv)
		if count := len(exec(t, reloaded, "SELECT * FROM employees").Rows); count != 4 {
			t.Fatalf("expected 4 rows after reload, got %d", count)
		}
	})
}

// TestIntegrationTransaction covers the transaction lifecycle end to end.
func TestIntegrationTransaction(t *testing.T) {
	runWithEachStore(t, func(t *testing.T, kv ps.KV) {
		engine := newEngine(t, kv)
		exec(t, engine, "INSERT INTO accounts (id, balance) VALUES (1, 100)")

		// Rolled-back changes vanish.
		exec(t, engine, "BEGIN")
		exec(t, engine, "UPDATE accounts SET balance = 0 WHERE id = 1")
		exec(t, engine, "ROLLBACK")

		result := exec(t, engine, "SELECT balance FROM accounts WHERE id = 1")
		if result.Rows[0]["balance"] != core.NewInt(100) {
			t.Fatalf("rollback lost state: %+v", result.Rows[0])
		}

		// Committed changes survive an engine reload.
		exec(t, engine, "BEGIN")
		exec(t, engine, "UPDATE accounts SET balance = 250 WHERE id = 1")
		exec(t, engine, "COMMIT")

		reloaded := newEngine(t, kv)
		result = exec(t, reloaded, "SELECT balance FROM accounts WHERE id = 1")
		if result.Rows[0]["balance"] != core.NewInt(250) {
			t.Fatalf("commit not durable: %+v", result.Rows[0])
		}
	})
}

// TestIntegrationSchemaGrowth checks schema accumulation across backends.
func TestIntegrationSchemaGrowth(t *testing.T) {
	runWithEachStore(t, func(t *testing.T, kv ps.KV) {
		engine := newEngine(t, kv)

		for i := 0; i < 3; i++ {
			exec(t, engine, "INSERT INTO events (id) VALUES ("+strconv.Itoa(i)+")")
		}
		exec(t, engine, "INSERT INTO events (id, kind) VALUES (3, 'login')")

		schema := engine.Schema()["events"]
		if len(schema) != 2 {
			t.Fatalf("unexpected schema %v", schema)
		}

		reloaded := newEngine(t, kv)
		if len(reloaded.Schema()["events"]) != 2 {
			t.Fatalf("schema not durable: %v", reloaded.Schema()["events"])
		}
	})
}

// TestIntegrationDumpRoundTrip exports a table to a file and imports it
// back under a new name.
func TestIntegrationDumpRoundTrip(t *testing.T) {
	kv := ps.NewMemoryKV()
	instance := Open(kv)
	engine := newEngine(t, kv)

	exec(t, engine, "INSERT INTO users (id, name) VALUES (1, 'Alice')")
	exec(t, engine, "INSERT INTO users (id, name) VALUES (2, 'Bob')")

	dump := os.TempDir() + "/wiredb-dump-test.json"
	defer os.Remove(dump)

	if err := instance.Store.ExportTable("users", dump, nil); err != nil {
		t.Fatalf("exporting: %v", err)
	}
	if err := instance.Store.ImportTable("users_copy", dump, nil); err != nil {
		t.Fatalf("importing: %v", err)
	}

	table, found, err := instance.Store.LoadTable("users_copy")
	if err != nil || !found {
		t.Fatalf("loading imported table (found=%v err=%v)", found, err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows in imported table, got %d", len(table.Rows))
	}
}
