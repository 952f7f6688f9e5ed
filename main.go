package wiredb

import (
	"github.com/wiredb/wiredb/db"
	"github.com/wiredb/wiredb/ps"
)

// Instance ties a storage backend to the engine API.
type Instance struct {
	Store *ps.Store
}

// Open wraps a KV backend into an instance.
func Open(kv ps.KV) *Instance {
	return &Instance{
		Store: ps.NewStore(kv),
	}
}

// Engine builds an execution engine over the instance's store, loading
// every persisted table into memory.
func (instance *Instance) Engine() (*db.Engine, error) {
	return db.NewEngine(instance.Store)
}
