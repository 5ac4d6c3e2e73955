package lsm

import (
	"path/filepath"
	"testing"

	"tidestore/pkg/document"
)

func TestLevelAddTableAndGet(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()

	lvl, err := NewLevel(dir, 1, nil, true, cfg)
	if err != nil {
		t.Fatalf("NewLevel: %v", err)
	}

	k := newTestKey(1)
	table, err := NewSortedTable([]Record{{Key: k, Value: DataValue(newTestDoc("a"))}})
	if err != nil {
		t.Fatalf("NewSortedTable: %v", err)
	}
	if err := lvl.AddTable(table); err != nil {
		t.Fatalf("AddTable: %v", err)
	}

	rec, ok, err := lvl.Get(k)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected to find key after AddTable")
	}
	if rec.Value.Tombstone {
		t.Fatalf("expected a live value")
	}

	if _, ok, err := lvl.Get(newTestKey(99)); err != nil || ok {
		t.Fatalf("expected absent key to miss cleanly, got ok=%v err=%v", ok, err)
	}
}

func TestLevelGetBloomRejectsAbsentKey(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	lvl, _ := NewLevel(dir, 1, nil, true, cfg)

	present := newTestKey(1)
	table, _ := NewSortedTable([]Record{{Key: present, Value: DataValue(newTestDoc("a"))}})
	if err := lvl.AddTable(table); err != nil {
		t.Fatalf("AddTable: %v", err)
	}

	// A key the bloom membership never saw must short-circuit without
	// reading any table file back off disk (the handle's path wouldn't
	// even need to resolve for this to report a miss).
	absent := newTestKey(777)
	if lvl.bloom.Contains(absent[:]) {
		t.Skip("bloom false positive on this input; not a correctness violation")
	}
	_, ok, err := lvl.Get(absent)
	if err != nil || ok {
		t.Fatalf("expected bloom-rejected key to miss cleanly, got ok=%v err=%v", ok, err)
	}
}

func TestLevelGetScansNewestFirst(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	lvl, _ := NewLevel(dir, 1, nil, true, cfg)

	k := newTestKey(1)
	older, _ := NewSortedTable([]Record{{Key: k, Value: DataValue(newTestDoc("old"))}})
	if err := lvl.AddTable(older); err != nil {
		t.Fatalf("AddTable older: %v", err)
	}

	newer, _ := NewSortedTable([]Record{{Key: k, Value: DataValue(newTestDoc("new"))}})
	newer.meta.CreatedAt = older.meta.CreatedAt.Add(1e9) // strictly after, in nanoseconds
	if err := lvl.AddTable(newer); err != nil {
		t.Fatalf("AddTable newer: %v", err)
	}

	rec, ok, err := lvl.Get(k)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	v, _ := rec.Value.Doc.Get("v")
	if v != "new" {
		t.Fatalf("expected the newest table's value to win, got %q", v)
	}
}

func TestLevelCompactFoldsIntoOneTable(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	lvl, _ := NewLevel(dir, 1, nil, true, cfg)

	k1, k2 := newTestKey(1), newTestKey(2)
	t1, _ := NewSortedTable([]Record{{Key: k1, Value: DataValue(newTestDoc("a"))}})
	t2, _ := NewSortedTable([]Record{{Key: k2, Value: DataValue(newTestDoc("b"))}})
	lvl.AddTable(t1)
	lvl.AddTable(t2)

	result, err := lvl.Compact()
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if len(result.OldTableIDs) != 2 {
		t.Fatalf("expected 2 old table ids, got %d", len(result.OldTableIDs))
	}
	if len(result.NewTable.Records()) != 2 {
		t.Fatalf("expected merged table to hold 2 records, got %d", len(result.NewTable.Records()))
	}
}

func TestLevelCompactEmptyFails(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	lvl, _ := NewLevel(dir, 1, nil, true, cfg)

	if _, err := lvl.Compact(); err != ErrEmptyLevel {
		t.Fatalf("expected ErrEmptyLevel, got %v", err)
	}
}

func TestLevelClearRemovesOnlyListedTables(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	lvl, _ := NewLevel(dir, 1, nil, true, cfg)

	k1, k2 := newTestKey(1), newTestKey(2)
	t1, _ := NewSortedTable([]Record{{Key: k1, Value: DataValue(newTestDoc("a"))}})
	t2, _ := NewSortedTable([]Record{{Key: k2, Value: DataValue(newTestDoc("b"))}})
	lvl.AddTable(t1)
	lvl.AddTable(t2)

	if err := lvl.Clear([]document.ObjectID{t1.Meta().TableID}); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if lvl.NumTables() != 1 {
		t.Fatalf("expected 1 remaining table, got %d", lvl.NumTables())
	}
	if _, ok, _ := lvl.Get(k1); ok {
		t.Fatalf("expected cleared table's key to be gone")
	}
	if _, ok, _ := lvl.Get(k2); !ok {
		t.Fatalf("expected untouched table's key to remain")
	}
}

func TestLevelClearAll(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	lvl, _ := NewLevel(dir, 1, nil, true, cfg)

	t1, _ := NewSortedTable([]Record{{Key: newTestKey(1), Value: DataValue(newTestDoc("a"))}})
	lvl.AddTable(t1)

	if err := lvl.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if lvl.NumTables() != 0 {
		t.Fatalf("expected 0 tables after ClearAll, got %d", lvl.NumTables())
	}
}

func TestLevelIsFull(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.MaxTablesPerLevel = 1
	lvl, _ := NewLevel(dir, 1, nil, true, cfg)

	if lvl.IsFull() {
		t.Fatalf("empty level must not be full")
	}
	table, _ := NewSortedTable([]Record{{Key: newTestKey(1), Value: DataValue(newTestDoc("a"))}})
	lvl.AddTable(table)
	if !lvl.IsFull() {
		t.Fatalf("expected level to be full at its table cap")
	}
}

func TestLoadLevelRoundTrip(t *testing.T) {
	parent := t.TempDir()
	cfg := DefaultConfig()

	lvl, err := NewLevel(parent, 2, nil, true, cfg)
	if err != nil {
		t.Fatalf("NewLevel: %v", err)
	}
	k := newTestKey(1)
	table, _ := NewSortedTable([]Record{{Key: k, Value: DataValue(newTestDoc("a"))}})
	if err := lvl.AddTable(table); err != nil {
		t.Fatalf("AddTable: %v", err)
	}

	loaded, err := LoadLevel(parent, filepath.Base(lvl.dir), cfg)
	if err != nil {
		t.Fatalf("LoadLevel: %v", err)
	}
	if loaded.LevelNumber() != 2 {
		t.Fatalf("expected level number 2, got %d", loaded.LevelNumber())
	}
	if loaded.NumTables() != 1 {
		t.Fatalf("expected 1 table after reload, got %d", loaded.NumTables())
	}
	if _, ok, err := loaded.Get(k); err != nil || !ok {
		t.Fatalf("expected reloaded level to find key, ok=%v err=%v", ok, err)
	}
}
