// Package wiredb is a miniature relational database engine: a SQL-subset
// parser, an execution engine with a single buffered transaction, and a
// pluggable JSON-document storage layer, served over a line-based TCP
// protocol by cmd/server.
//
// Embedding the engine:
//
//	kv := ps.NewMemoryKV()                // or ps.NewFileKV(dir), ps.NewGitKV(dir, identity)
//	engine, err := wiredb.Open(kv).Engine()
//	result, err := engine.Execute("SELECT * FROM users WHERE age > 21")
//
// Execute returns a failed QueryResult for parse and execution errors; only
// transaction protocol misuse (BEGIN inside a transaction, COMMIT or
// ROLLBACK outside one, a failed commit) comes back as a hard error.
package wiredb
