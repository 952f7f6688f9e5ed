//go:build comparative

package wiredb

import (
	"database/sql"
	"strconv"
	"testing"

	"github.com/wiredb/wiredb/db"
	"github.com/wiredb/wiredb/ps"

	_ "github.com/duckdb/duckdb-go/v2"
)

// setupWiredb creates an in-memory engine with test data.
func setupWiredb(b *testing.B) *db.Engine {
	engine, err := Open(ps.NewMemoryKV()).Engine()
	if err != nil {
		b.Fatalf("Failed to create engine: %v", err)
	}

	engine.Execute("CREATE TABLE users (id INT PRIMARY KEY, name STRING, age INT, city STRING)")
	for i := 1; i <= 1000; i++ {
		engine.Execute("INSERT INTO users (id, name, age, city) VALUES (" +
			strconv.Itoa(i) + ", 'User" + strconv.Itoa(i) + "', " + strconv.Itoa(20+i%50) + ", 'City" + strconv.Itoa(i%10) + "')")
	}

	return engine
}

// setupDuckDB creates a DuckDB instance with identical test data.
func setupDuckDB(b *testing.B) *sql.DB {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		b.Fatalf("Failed to open DuckDB: %v", err)
	}

	if _, err := conn.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR, age INTEGER, city VARCHAR)"); err != nil {
		b.Fatalf("Failed to create table: %v", err)
	}

	for i := 1; i <= 1000; i++ {
		_, err = conn.Exec("INSERT INTO users VALUES (?, ?, ?, ?)",
			i, "User"+strconv.Itoa(i), 20+i%50, "City"+strconv.Itoa(i%10))
		if err != nil {
			b.Fatalf("Failed to insert: %v", err)
		}
	}

	return conn
}

func BenchmarkWiredb_SelectAll(b *testing.B) {
	engine := setupWiredb(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := engine.Execute("SELECT * FROM users"); err != nil {
			b.Fatalf("Execute error: %v", err)
		}
	}
}

func BenchmarkDuckDB_SelectAll(b *testing.B) {
	conn := setupDuckDB(b)
	defer conn.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rows, err := conn.Query("SELECT * FROM users")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
		for rows.Next() {
			var id, age int
			var name, city string
			rows.Scan(&id, &name, &age, &city)
		}
		rows.Close()
	}
}

func BenchmarkWiredb_SelectWhere(b *testing.B) {
	engine := setupWiredb(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := engine.Execute("SELECT * FROM users WHERE age > 40"); err != nil {
			b.Fatalf("Execute error: %v", err)
		}
	}
}

func BenchmarkDuckDB_SelectWhere(b *testing.B) {
	conn := setupDuckDB(b)
	defer conn.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rows, err := conn.Query("SELECT * FROM users WHERE age > 40")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
		for rows.Next() {
			var id, age int
			var name, city string
			rows.Scan(&id, &name, &age, &city)
		}
		rows.Close()
	}
}

func BenchmarkWiredb_Insert(b *testing.B) {
	engine := setupWiredb(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		id := strconv.Itoa(10000 + i)
		if _, err := engine.Execute("INSERT INTO users (id, name, age, city) VALUES (" + id + ", 'New', 30, 'City0')"); err != nil {
			b.Fatalf("Execute error: %v", err)
		}
	}
}

func BenchmarkDuckDB_Insert(b *testing.B) {
	conn := setupDuckDB(b)
	defer conn.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := conn.Exec("INSERT INTO users VALUES (?, ?, ?, ?)", 10000+i, "New", 30, "City0"); err != nil {
			b.Fatalf("Exec error: %v", err)
		}
	}
}

func BenchmarkWiredb_Update(b *testing.B) {
	engine := setupWiredb(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := engine.Execute("UPDATE users SET city = 'Metro' WHERE id = 500"); err != nil {
			b.Fatalf("Execute error: %v", err)
		}
	}
}

func BenchmarkDuckDB_Update(b *testing.B) {
	conn := setupDuckDB(b)
	defer conn.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := conn.Exec("UPDATE users SET city = 'Metro' WHERE id = 500"); err != nil {
			b.Fatalf("Exec error: %v", err)
		}
	}
}
