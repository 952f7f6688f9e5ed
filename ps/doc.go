// Package ps is the persistence layer.
//
// Store exposes the table-level API the engine uses; underneath it sits the
// KV interface, the pluggable document backend. Two backends ship with the
// package: FileKV keeps one JSON document per table in a directory (on disk
// or in memory), and GitKV keeps the documents in a git worktree where every
// write becomes a commit.
//
// Table documents use a restricted JSON shape with all-string values:
//
//	{"tableName": "users", "rows": [{"id": "1", "name": "Alice"}]}
//
// Value types are re-derived from the strings when a table is loaded. The
// codec in this package understands exactly this shape and nothing else.
package ps
