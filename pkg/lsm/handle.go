package lsm

import (
	"fmt"
	"os"
	"path/filepath"

	"tidestore/pkg/compression"
)

const tableFileExt = ".bson"

// TableHandle is a lightweight reference to a persisted SortedTable: its
// metadata, its file path, and an activation flag. active=false removes the
// handle from reads without deleting its file — used transiently during
// compaction so a reader never observes a torn handle list.
type TableHandle struct {
	meta       tableMeta
	path       string
	active     bool
	compressor *compression.Compressor
}

// newTableHandle builds a handle for a table that will live at
// <levelDir>/<table_id>.bson.
func newTableHandle(meta tableMeta, levelDir string, compressor *compression.Compressor) *TableHandle {
	return &TableHandle{
		meta:       meta,
		path:       filepath.Join(levelDir, meta.TableID.Hex()+tableFileExt),
		active:     true,
		compressor: compressor,
	}
}

// Meta returns the handle's table metadata.
func (h *TableHandle) Meta() tableMeta { return h.meta }

// Path returns the handle's file path.
func (h *TableHandle) Path() string { return h.path }

// Active reports whether this handle currently participates in reads.
func (h *TableHandle) Active() bool { return h.active }

// Activate restores the handle to the active read set.
func (h *TableHandle) Activate() { h.active = true }

// Deactivate removes the handle from the active read set without touching
// its file on disk.
func (h *TableHandle) Deactivate() { h.active = false }

// Write encodes table as a document tree, optionally compresses the whole
// block, and persists it to the handle's path with fsync, so the write is
// durable before Write returns.
func (h *TableHandle) Write(table *SortedTable) error {
	doc := tableToDocument(table)
	raw, err := encodeDocument(doc)
	if err != nil {
		return fmt.Errorf("lsm: encode table %s: %w", table.meta.TableID.Hex(), err)
	}

	blob, err := h.compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("lsm: compress table %s: %w", table.meta.TableID.Hex(), err)
	}

	return writeFileFsync(h.path, blob)
}

// Read decodes the table from the handle's file.
func (h *TableHandle) Read() (*SortedTable, error) {
	blob, err := os.ReadFile(h.path)
	if err != nil {
		return nil, fmt.Errorf("lsm: read table file %s: %w", h.path, err)
	}

	raw, err := h.compressor.Decompress(blob)
	if err != nil {
		return nil, fmt.Errorf("lsm: decompress table file %s: %w", h.path, err)
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("lsm: decode table file %s: %w", h.path, err)
	}

	return documentToTable(doc)
}

// Delete removes the handle's file from disk. It is not an error to delete
// a handle whose file is already gone.
func (h *TableHandle) Delete() error {
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lsm: delete table file %s: %w", h.path, err)
	}
	return nil
}

// writeFileFsync writes data to path via a temp-file-then-rename, fsyncing
// both the file and its parent directory, so a dropped write is observed on
// next load as either "file absent" or "file fully written" and never as a
// torn partial write.
func writeFileFsync(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("lsm: create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("lsm: write temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("lsm: fsync temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("lsm: close temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("lsm: rename temp file to %s: %w", path, err)
	}

	if dirF, err := os.Open(dir); err == nil {
		dirF.Sync()
		dirF.Close()
	}

	return nil
}
