// Package db is the execution engine: it runs parsed queries against the
// in-memory tables, manages the single buffered transaction, and persists
// mutations through the storage layer.
//
// Execution is serialized by one engine-wide mutex. A transaction snapshots
// each table lazily on first touch; its reads and writes go through the
// snapshots, commit installs them as live state and replays the buffered
// operations against the store, rollback discards them.
//
// Query results serialize to a pipe-delimited wire form, see
// QueryResult.Serialize and ParseResult.
package db
