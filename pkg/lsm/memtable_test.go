package lsm

import "testing"

func TestMemTableSetGet(t *testing.T) {
	mt := NewMemTable(100)
	k := newTestKey(1)
	mt.Set(k, newTestDoc("a"))

	v, ok := mt.Get(k)
	if !ok {
		t.Fatalf("expected key to be found after Set")
	}
	if v.Tombstone {
		t.Fatalf("expected a live value, got tombstone")
	}
}

func TestMemTableDelOverwrites(t *testing.T) {
	mt := NewMemTable(100)
	k := newTestKey(1)
	mt.Set(k, newTestDoc("a"))
	mt.Del(k)

	v, ok := mt.Get(k)
	if !ok {
		t.Fatalf("expected tombstoned key to still be present")
	}
	if !v.Tombstone {
		t.Fatalf("expected a tombstone after Del")
	}
}

func TestMemTableGetMissing(t *testing.T) {
	mt := NewMemTable(100)
	_, ok := mt.Get(newTestKey(1))
	if ok {
		t.Fatalf("expected missing key to report not found")
	}
}

func TestMemTableSizeAndIsFull(t *testing.T) {
	mt := NewMemTable(2)
	if mt.IsFull() {
		t.Fatalf("empty memtable must not be full")
	}

	mt.Set(newTestKey(1), newTestDoc("a"))
	if mt.IsFull() {
		t.Fatalf("memtable with 1/2 records must not be full")
	}

	mt.Set(newTestKey(2), newTestDoc("b"))
	if !mt.IsFull() {
		t.Fatalf("memtable with 2/2 records must be full")
	}
	if mt.Size() != 2 {
		t.Fatalf("expected size 2, got %d", mt.Size())
	}
}

func TestMemTableFlushEmptyFails(t *testing.T) {
	mt := NewMemTable(100)
	if _, err := mt.Flush(); err != ErrEmptyInput {
		t.Fatalf("expected ErrEmptyInput flushing an empty memtable, got %v", err)
	}
}

func TestMemTableFlushAscending(t *testing.T) {
	mt := NewMemTable(100)
	mt.Set(newTestKey(3), newTestDoc("c"))
	mt.Set(newTestKey(1), newTestDoc("a"))
	mt.Set(newTestKey(2), newTestDoc("b"))

	table, err := mt.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}

	records := table.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if CompareKeys(records[i-1].Key, records[i].Key) >= 0 {
			t.Fatalf("flushed records are not strictly ascending at index %d", i)
		}
	}
}

func TestMemTableClear(t *testing.T) {
	mt := NewMemTable(100)
	mt.Set(newTestKey(1), newTestDoc("a"))
	mt.Clear()

	if mt.Size() != 0 {
		t.Fatalf("expected size 0 after Clear, got %d", mt.Size())
	}
	if _, ok := mt.Get(newTestKey(1)); ok {
		t.Fatalf("expected cleared key to be gone")
	}
}
