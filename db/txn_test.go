package db

import (
	"errors"
	"testing"

	"github.com/wiredb/wiredb/core"
	"github.com/wiredb/wiredb/ps"
)

func TestTransactionReadYourOwnWrites(t *testing.T) {
	engine := newTestEngine(t)
	mustExecute(t, engine, "INSERT INTO users (id) VALUES (1)")

	if err := engine.BeginTransaction(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	mustExecute(t, engine, "INSERT INTO users (id) VALUES (2)")

	rows := mustExecute(t, engine, "SELECT * FROM users").Rows
	if len(rows) != 2 {
		t.Fatalf("transaction must see its own insert, got %d rows", len(rows))
	}

	if err := engine.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
}

func TestTransactionRollbackRestoresState(t *testing.T) {
	engine := newTestEngine(t)
	mustExecute(t, engine, "INSERT INTO users (id, name) VALUES (1, 'Alice')")

	mustExecute(t, engine, "BEGIN")
	mustExecute(t, engine, "INSERT INTO users (id, name) VALUES (2, 'Bob')")
	mustExecute(t, engine, "UPDATE users SET name = 'Mallory' WHERE id = 1")
	mustExecute(t, engine, "ROLLBACK")

	rows := mustExecute(t, engine, "SELECT * FROM users").Rows
	if len(rows) != 1 {
		t.Fatalf("rollback must restore row count, got %d", len(rows))
	}
	if rows[0]["name"] != core.NewString("Alice") {
		t.Fatalf("rollback must restore row contents: %+v", rows[0])
	}
}

func TestTransactionCommitDurability(t *testing.T) {
	store := ps.NewStore(ps.NewMemoryKV())
	engine, err := NewEngine(store)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	mustExecute(t, engine, "BEGIN")
	mustExecute(t, engine, "INSERT INTO users (id, name) VALUES (1, 'Alice')")
	mustExecute(t, engine, "COMMIT")

	rows := mustExecute(t, engine, "SELECT * FROM users").Rows
	if len(rows) != 1 {
		t.Fatalf("commit must install the snapshot, got %d rows", len(rows))
	}

	// The committed row must be durable in the store.
	loaded, found, err := store.LoadTable("users")
	if err != nil || !found {
		t.Fatalf("loading committed table (found=%v err=%v)", found, err)
	}
	if len(loaded.Rows) != 1 || loaded.Rows[0]["name"] != core.NewString("Alice") {
		t.Fatalf("committed row not durable: %+v", loaded.Rows)
	}
}

func TestTransactionDoubleBegin(t *testing.T) {
	engine := newTestEngine(t)

	mustExecute(t, engine, "BEGIN")
	mustExecute(t, engine, "INSERT INTO users (id) VALUES (1)")

	_, err := engine.Execute("BEGIN")
	if !errors.Is(err, ErrTransactionActive) {
		t.Fatalf("expected ErrTransactionActive, got %v", err)
	}

	// The first transaction's buffer must survive the rejected begin.
	rows := mustExecute(t, engine, "SELECT * FROM users").Rows
	if len(rows) != 1 {
		t.Fatalf("buffer lost after rejected begin, got %d rows", len(rows))
	}

	mustExecute(t, engine, "COMMIT")
}

func TestTransactionProtocolErrorsFromIdle(t *testing.T) {
	engine := newTestEngine(t)

	if _, err := engine.Execute("COMMIT"); !errors.Is(err, ErrNoTransaction) {
		t.Fatalf("expected ErrNoTransaction from commit, got %v", err)
	}
	if _, err := engine.Execute("ROLLBACK"); !errors.Is(err, ErrNoTransaction) {
		t.Fatalf("expected ErrNoTransaction from rollback, got %v", err)
	}
}

func TestTransactionDeleteBuffered(t *testing.T) {
	engine := newTestEngine(t)
	mustExecute(t, engine, "INSERT INTO users (id) VALUES (1)")
	mustExecute(t, engine, "INSERT INTO users (id) VALUES (2)")

	mustExecute(t, engine, "BEGIN")
	mustExecute(t, engine, "DELETE FROM users WHERE id = 1")

	if rows := mustExecute(t, engine, "SELECT * FROM users").Rows; len(rows) != 1 {
		t.Fatalf("transaction must see buffered delete, got %d rows", len(rows))
	}

	mustExecute(t, engine, "ROLLBACK")

	if rows := mustExecute(t, engine, "SELECT * FROM users").Rows; len(rows) != 2 {
		t.Fatalf("rollback must restore deleted rows, got %d", len(rows))
	}
}

func TestTransactionCreateTableIsImmediate(t *testing.T) {
	engine := newTestEngine(t)

	mustExecute(t, engine, "BEGIN")
	mustExecute(t, engine, "CREATE TABLE logs (id INT)")
	mustExecute(t, engine, "ROLLBACK")

	// CREATE TABLE bypasses transaction buffering.
	if rows := mustExecute(t, engine, "SHOW TABLES").Rows; len(rows) != 1 {
		t.Fatalf("create table must survive rollback, got %+v", rows)
	}
}

func TestTransactionCommitClearsSlot(t *testing.T) {
	engine := newTestEngine(t)

	mustExecute(t, engine, "BEGIN")
	mustExecute(t, engine, "COMMIT")

	if engine.InTransaction() {
		t.Fatalf("commit must clear the transaction slot")
	}

	// The slot is reusable.
	mustExecute(t, engine, "BEGIN")
	mustExecute(t, engine, "ROLLBACK")
}

type failingKV struct {
	*ps.FileKV
	failWrites bool
}

func (kv *failingKV) Write(key string, data []byte) error {
	if kv.failWrites {
		return errors.New("disk full")
	}
	return kv.FileKV.Write(key, data)
}

func TestTransactionCommitFailureRollsBack(t *testing.T) {
	kv := &failingKV{FileKV: ps.NewMemoryKV()}
	engine, err := NewEngine(ps.NewStore(kv))
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	mustExecute(t, engine, "INSERT INTO users (id) VALUES (1)")

	mustExecute(t, engine, "BEGIN")
	mustExecute(t, engine, "INSERT INTO users (id) VALUES (2)")

	kv.failWrites = true
	_, err = engine.Execute("COMMIT")
	if !errors.Is(err, ErrCommitFailed) {
		t.Fatalf("expected ErrCommitFailed, got %v", err)
	}
	kv.failWrites = false

	// Live state must be back to the pre-transaction contents, and the
	// slot must be free again.
	rows := mustExecute(t, engine, "SELECT * FROM users").Rows
	if len(rows) != 1 {
		t.Fatalf("failed commit must roll back, got %d rows", len(rows))
	}
	if engine.InTransaction() {
		t.Fatalf("failed commit must clear the transaction slot")
	}
}

func TestIsTransactionError(t *testing.T) {
	if !IsTransactionError(ErrTransactionActive) ||
		!IsTransactionError(ErrNoTransaction) ||
		!IsTransactionError(ErrCommitFailed) {
		t.Fatalf("transaction sentinels not recognized")
	}
	if IsTransactionError(errors.New("other")) {
		t.Fatalf("unrelated error recognized as transaction error")
	}
}
