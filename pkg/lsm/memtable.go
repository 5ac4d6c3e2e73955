package lsm

import (
	"sync"

	"tidestore/pkg/document"
)

// MemTable is the sorted, in-memory write buffer of an LSM tree. It is a
// sorted associative container from Key to Value, backed by a skip list for
// O(log n) insert and lookup with better cache locality than a balanced
// tree. All keys are unique; inserts overwrite.
//
// Contract: lookups observe writes in program order on a single writer;
// concurrent writers are not supported by the memtable itself — the engine
// serializes writers (see pkg/lsm/engine.go).
type MemTable struct {
	skipList   *SkipList
	maxRecords int
	mu         sync.RWMutex
}

// NewMemTable creates an empty MemTable that reports full once it holds
// maxRecords entries.
func NewMemTable(maxRecords int) *MemTable {
	return &MemTable{
		skipList:   NewSkipList(),
		maxRecords: maxRecords,
	}
}

// Set inserts or overwrites key with a live document value.
func (mt *MemTable) Set(key Key, doc *document.Document) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.skipList.Insert(key[:], &Record{Key: key, Value: DataValue(doc)})
}

// Del inserts or overwrites key with a tombstone. The entry remains in the
// memtable — deletion here is logical, so the tombstone can propagate
// through later merges.
func (mt *MemTable) Del(key Key) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.skipList.Insert(key[:], &Record{Key: key, Value: TombstoneValue()})
}

// Get performs an exact lookup, returning the stored value (which may be a
// tombstone) and whether the key is present at all.
func (mt *MemTable) Get(key Key) (Value, bool) {
	mt.mu.RLock()
	defer mt.mu.RUnlock()

	v, found := mt.skipList.Search(key[:])
	if !found {
		return Value{}, false
	}
	rec, ok := v.(*Record)
	if !ok {
		return Value{}, false
	}
	return rec.Value, true
}

// Size reports the number of live entries (tombstones included) currently
// buffered.
func (mt *MemTable) Size() int {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.skipList.Size()
}

// IsFull reports whether the memtable has reached its configured capacity
// and should be frozen and flushed.
func (mt *MemTable) IsFull() bool {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.skipList.Size() >= mt.maxRecords
}

// Flush drains the memtable's current contents, in key-ascending order,
// into a freshly constructed SortedTable. It fails if the memtable is
// empty. Flush does not clear the memtable; callers swap it out and call
// Clear (or simply drop the reference) once the flush has succeeded.
func (mt *MemTable) Flush() (*SortedTable, error) {
	mt.mu.RLock()
	defer mt.mu.RUnlock()

	records := make([]Record, 0, mt.skipList.Size())
	for node := mt.skipList.head.forward[0]; node != nil; node = node.forward[0] {
		rec, ok := node.value.(*Record)
		if !ok {
			continue
		}
		records = append(records, *rec)
	}
	return NewSortedTable(records)
}

// Clear drops all entries, resetting the memtable to empty.
func (mt *MemTable) Clear() {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.skipList = NewSkipList()
}
