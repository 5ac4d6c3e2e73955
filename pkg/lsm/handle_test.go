package lsm

import (
	"path/filepath"
	"testing"

	"tidestore/pkg/compression"
)

func newTestCompressor(t *testing.T) *compression.Compressor {
	t.Helper()
	c, err := compression.NewCompressor(compression.SnappyConfig())
	if err != nil {
		t.Fatalf("NewCompressor: %v", err)
	}
	return c
}

func TestTableHandleWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	comp := newTestCompressor(t)

	table, err := NewSortedTable([]Record{
		{Key: newTestKey(1), Value: DataValue(newTestDoc("a"))},
		{Key: newTestKey(2), Value: TombstoneValue()},
	})
	if err != nil {
		t.Fatalf("NewSortedTable: %v", err)
	}

	handle := newTableHandle(table.Meta(), dir, comp)
	if err := handle.Write(table); err != nil {
		t.Fatalf("Write: %v", err)
	}

	wantPath := filepath.Join(dir, table.Meta().TableID.Hex()+tableFileExt)
	if handle.Path() != wantPath {
		t.Fatalf("expected path %s, got %s", wantPath, handle.Path())
	}

	loaded, err := handle.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	got := loaded.Records()
	want := table.Records()
	if len(got) != len(want) {
		t.Fatalf("expected %d records after round trip, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("record %d mismatch after round trip: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTableHandleActivateDeactivate(t *testing.T) {
	dir := t.TempDir()
	comp := newTestCompressor(t)
	table, _ := NewSortedTable([]Record{{Key: newTestKey(1), Value: DataValue(newTestDoc("a"))}})
	handle := newTableHandle(table.Meta(), dir, comp)

	if !handle.Active() {
		t.Fatalf("a freshly built handle should be active")
	}
	handle.Deactivate()
	if handle.Active() {
		t.Fatalf("expected handle to be inactive after Deactivate")
	}
	handle.Activate()
	if !handle.Active() {
		t.Fatalf("expected handle to be active after Activate")
	}
}

func TestTableHandleDeleteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	comp := newTestCompressor(t)
	table, _ := NewSortedTable([]Record{{Key: newTestKey(1), Value: DataValue(newTestDoc("a"))}})
	handle := newTableHandle(table.Meta(), dir, comp)

	if err := handle.Write(table); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := handle.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// deleting an already-deleted file must not be an error.
	if err := handle.Delete(); err != nil {
		t.Fatalf("expected idempotent Delete, got %v", err)
	}
}
