package db

import (
	"errors"
	"fmt"
	"log"

	"github.com/wiredb/wiredb/core"
)

var (
	ErrTransactionActive = errors.New("transaction already active")
	ErrNoTransaction     = errors.New("no active transaction")
	ErrCommitFailed      = errors.New("commit failed")
)

type bufferedOpKind int

const (
	writeOp bufferedOpKind = iota
	deleteOp
)

type bufferedOp struct {
	kind  bufferedOpKind
	table string
}

// transaction is the engine's single buffered transaction. snapshot holds a
// lazy per-table copy taken on first touch; reads and writes inside the
// transaction go through those copies, so reads see the transaction's own
// buffered writes. ops records the replay order for commit.
type transaction struct {
	snapshot map[string]*core.Table
	ops      []bufferedOp
}

// BeginTransaction opens the engine's transaction slot. Only one
// transaction may be open at a time across all connections.
func (engine *Engine) BeginTransaction() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.beginLocked()
}

// Commit installs the transaction's snapshots as live state and replays
// the buffered operations against the store. A persistence failure rolls
// the live state back in place and surfaces ErrCommitFailed.
func (engine *Engine) Commit() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.commitLocked()
}

// Rollback discards the buffer and snapshots.
func (engine *Engine) Rollback() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.rollbackLocked()
}

func (engine *Engine) beginLocked() error {
	if engine.txn != nil {
		return ErrTransactionActive
	}
	engine.txn = &transaction{snapshot: make(map[string]*core.Table)}
	return nil
}

func (engine *Engine) commitLocked() error {
	if engine.txn == nil {
		return ErrNoTransaction
	}
	txn := engine.txn

	// Install snapshots, keeping the previous live tables for rollback.
	backups := make(map[string]*core.Table, len(txn.snapshot))
	for name, snap := range txn.snapshot {
		if live, ok := engine.tables.Get(name); ok {
			backups[name] = live
		}
		engine.tables.Set(name, snap)
	}

	for _, op := range txn.ops {
		table, ok := engine.tables.Get(op.table)
		if !ok {
			continue // table dropped after the buffered op
		}
		if err := engine.store.SaveTable(table); err != nil {
			for name := range txn.snapshot {
				if backup, ok := backups[name]; ok {
					engine.tables.Set(name, backup)
				} else {
					engine.tables.Remove(name)
				}
			}
			engine.txn = nil
			return fmt.Errorf("%w: %v", ErrCommitFailed, err)
		}
	}

	if len(txn.ops) > 0 {
		if err := engine.persistSchemas(); err != nil {
			log.Printf("persisting schemas after commit: %v", err)
		}
	}

	engine.txn = nil
	return nil
}

func (engine *Engine) rollbackLocked() error {
	if engine.txn == nil {
		return ErrNoTransaction
	}
	engine.txn = nil
	return nil
}

// snapshotTable returns the transaction's copy of a table, cloning the live
// table on first touch. The second return is false when the table exists
// neither in the snapshot nor live.
func (engine *Engine) snapshotTable(name string) (*core.Table, bool) {
	if snap, ok := engine.txn.snapshot[name]; ok {
		return snap, true
	}
	live, ok := engine.tables.Get(name)
	if !ok {
		return nil, false
	}
	snap := live.Clone()
	engine.txn.snapshot[name] = snap
	return snap, true
}

func (engine *Engine) buffer(kind bufferedOpKind, table string) {
	engine.txn.ops = append(engine.txn.ops, bufferedOp{kind: kind, table: table})
}
