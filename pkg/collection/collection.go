// Package collection is the thinnest possible caller of the LSM engine's
// key-value interface: insert a document under a fresh or given id, fetch
// one by id, delete one by id. It exists so the engine has a realistic
// external caller, not as a document-database layer in its own right —
// secondary indexing, queries, and transactions are out of scope. Only a
// B+-tree index and a write-ahead log exist, as unimplemented stubs in
// pkg/bptreestub and pkg/walstub; nothing here calls either.
package collection

import (
	"fmt"

	"tidestore/pkg/document"
	"tidestore/pkg/lsm"
)

// Collection binds one named LSM engine to a small CRUD surface.
type Collection struct {
	name   string
	engine *lsm.Engine
}

// Open wraps an already-constructed engine under name.
func Open(name string, engine *lsm.Engine) *Collection {
	return &Collection{name: name, engine: engine}
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }

// Insert stores doc under a freshly generated id and returns it.
func (c *Collection) Insert(doc *document.Document) (document.ObjectID, error) {
	id := document.NewObjectID()
	if err := c.engine.Set(id, doc); err != nil {
		return id, fmt.Errorf("collection %s: insert: %w", c.name, err)
	}
	return id, nil
}

// InsertWithID stores doc under a caller-supplied id, overwriting any
// existing document at that id.
func (c *Collection) InsertWithID(id document.ObjectID, doc *document.Document) error {
	if err := c.engine.Set(id, doc); err != nil {
		return fmt.Errorf("collection %s: insert %s: %w", c.name, id.Hex(), err)
	}
	return nil
}

// FindByID fetches the document stored under id. It returns ErrNotFound if
// no live document exists at that id (whether never written or tombstoned).
func (c *Collection) FindByID(id document.ObjectID) (*document.Document, error) {
	doc, ok, err := c.engine.Get(id)
	if err != nil {
		return nil, fmt.Errorf("collection %s: find %s: %w", c.name, id.Hex(), err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

// DeleteByID marks id as deleted. Deleting a nonexistent id is not an
// error: it simply leaves a tombstone for an id that never had live data.
func (c *Collection) DeleteByID(id document.ObjectID) error {
	if err := c.engine.Del(id); err != nil {
		return fmt.Errorf("collection %s: delete %s: %w", c.name, id.Hex(), err)
	}
	return nil
}

// Compact drives one compaction cycle of the underlying engine.
func (c *Collection) Compact(force bool) error {
	if err := c.engine.CompactionCycle(force); err != nil {
		return fmt.Errorf("collection %s: compact: %w", c.name, err)
	}
	return nil
}

// Stats reports the underlying engine's current shape.
func (c *Collection) Stats() lsm.Stats {
	return c.engine.Stats()
}

// Close closes the underlying engine.
func (c *Collection) Close() error {
	return c.engine.Close()
}
