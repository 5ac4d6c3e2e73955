package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"tidestore/pkg/compression"
	"tidestore/pkg/document"
)

const levelMetaFile = "_meta.bson"

// compressionConfigForLevel picks a table-block compression algorithm by
// temperature: level 1 absorbs every memtable flush and is compacted away
// quickly, so it uses Snappy for fast writes; deeper levels are written far
// less often and held far longer, so they trade write speed for Zstd's
// better ratio.
func compressionConfigForLevel(levelNumber int) *compression.Config {
	if levelNumber <= 1 {
		return compression.SnappyConfig()
	}
	return compression.ZstdConfig(3)
}

// levelMeta is a level's persisted metadata: {id, created_at, level,
// num_tables, table_ids[]}. Invariant: table_ids mirrors the handle list's
// table ids in the same order, and num_tables mirrors its length.
type levelMeta struct {
	LevelID     document.ObjectID
	CreatedAt   time.Time
	LevelNumber int
	TableIDs    []document.ObjectID
}

// Level is an ordered sequence of table handles sharing one directory, one
// Bloom membership structure approximating the union of their keys, and a
// cap on table count. Levels are created lazily by the engine's compaction
// cycle and are never removed.
type Level struct {
	meta            levelMeta
	dir             string
	handles         []*TableHandle
	bloom           *BloomMembership
	maxTables       int
	recordsPerTable int

	bloomBits  int
	bloomRate  float64
	compressor *compression.Compressor
}

// NewLevel creates level levelNumber under parentDir. If createOnDisk is
// true the level directory and its metadata file are written immediately;
// otherwise the level exists only in memory (Level.AddTable creates the
// directory lazily on first use).
func NewLevel(parentDir string, levelNumber int, tables []*SortedTable, createOnDisk bool, cfg Config) (*Level, error) {
	compressor, err := compression.NewCompressor(compressionConfigForLevel(levelNumber))
	if err != nil {
		return nil, fmt.Errorf("lsm: create compressor: %w", err)
	}

	l := &Level{
		meta: levelMeta{
			LevelID:     document.NewObjectID(),
			CreatedAt:   time.Now().UTC(),
			LevelNumber: levelNumber,
		},
		dir:             filepath.Join(parentDir, fmt.Sprintf("level-%d", levelNumber)),
		maxTables:       cfg.MaxTablesPerLevel,
		recordsPerTable: cfg.MemtableMaxRecords * levelNumber,
		bloomBits:       cfg.BloomFilterBits,
		bloomRate:       cfg.BloomFilterErrorRate,
		compressor:      compressor,
	}
	l.bloom = NewBloomMembership(l.bloomBits, l.bloomRate)

	if createOnDisk {
		if err := os.MkdirAll(l.dir, 0o755); err != nil {
			return nil, fmt.Errorf("lsm: create level dir %s: %w", l.dir, err)
		}
	}

	for _, t := range tables {
		if err := l.AddTable(t); err != nil {
			return nil, err
		}
	}

	if createOnDisk {
		if err := l.writeMeta(); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// LoadLevel reads an existing level's metadata from parentDir/dirName,
// reloads a handle for every listed table id, and rebuilds the Bloom
// structure from the tables' contents (BloomMembership is never persisted).
func LoadLevel(parentDir, dirName string, cfg Config) (*Level, error) {
	dir := filepath.Join(parentDir, dirName)

	raw, err := os.ReadFile(filepath.Join(dir, levelMetaFile))
	if err != nil {
		return nil, fmt.Errorf("lsm: read level metadata %s: %w", dir, err)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("lsm: decode level metadata %s: %w", dir, err)
	}
	meta, err := documentToLevelMeta(doc)
	if err != nil {
		return nil, fmt.Errorf("lsm: parse level metadata %s: %w", dir, err)
	}

	compressor, err := compression.NewCompressor(compressionConfigForLevel(meta.LevelNumber))
	if err != nil {
		return nil, fmt.Errorf("lsm: create compressor: %w", err)
	}

	l := &Level{
		meta:            meta,
		dir:             dir,
		maxTables:       cfg.MaxTablesPerLevel,
		recordsPerTable: cfg.MemtableMaxRecords * meta.LevelNumber,
		bloomBits:       cfg.BloomFilterBits,
		bloomRate:       cfg.BloomFilterErrorRate,
		compressor:      compressor,
	}
	l.bloom = NewBloomMembership(l.bloomBits, l.bloomRate)

	for _, id := range meta.TableIDs {
		h := &TableHandle{
			meta:       tableMeta{TableID: id},
			path:       filepath.Join(dir, id.Hex()+tableFileExt),
			active:     true,
			compressor: compressor,
		}
		table, err := h.Read()
		if err != nil {
			return nil, fmt.Errorf("lsm: load table %s: %w", id.Hex(), err)
		}
		h.meta = table.meta
		l.handles = append(l.handles, h)
		l.absorbBloom(table)
	}
	l.sortHandles()

	return l, nil
}

// sortHandles keeps the handle list sorted by CreatedAt descending, so point
// lookups iterate newest-first and the first in-range hit is the freshest.
func (l *Level) sortHandles() {
	sort.SliceStable(l.handles, func(i, j int) bool {
		return l.handles[i].meta.CreatedAt.After(l.handles[j].meta.CreatedAt)
	})
}

func (l *Level) absorbBloom(t *SortedTable) {
	for _, rec := range t.records {
		l.bloom.Insert(rec.Key[:])
	}
}

// AddTable persists table under the level's directory, appends its handle,
// and rewrites metadata and the Bloom structure to reflect it.
func (l *Level) AddTable(table *SortedTable) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("lsm: create level dir %s: %w", l.dir, err)
	}

	h := newTableHandle(table.meta, l.dir, l.compressor)
	if err := h.Write(table); err != nil {
		return err
	}

	l.handles = append(l.handles, h)
	l.sortHandles()
	l.absorbBloom(table)
	l.meta.TableIDs = append(l.meta.TableIDs, table.meta.TableID)

	return l.writeMeta()
}

// Get performs a point lookup: a Bloom miss short-circuits without opening
// any table; otherwise active, in-range handles are scanned newest-first and
// the first hit (including a tombstone) is returned.
func (l *Level) Get(key Key) (Record, bool, error) {
	if !l.bloom.Contains(key[:]) {
		return Record{}, false, nil
	}

	for _, h := range l.handles {
		if !h.active {
			continue
		}
		if !h.meta.KeyInRange(key) {
			continue
		}
		table, err := h.Read()
		if err != nil {
			return Record{}, false, err
		}
		if rec, ok := table.Get(key); ok {
			return rec, true, nil
		}
	}

	return Record{}, false, nil
}

// CompactResult is the outcome of folding a level's tables into one.
type CompactResult struct {
	NewTable   *SortedTable
	OldTableIDs []document.ObjectID
}

// Compact folds every handle's table into one via repeated
// SortedTable.Merge, in the level's stored (newest-first) order. Each
// intermediate merge result is stamped with a fresh CreatedAt and so wins
// every later duplicate key; the newest-first order is what makes the fold
// keep the freshest value per key. Compact fails if the level has no tables.
func (l *Level) Compact() (CompactResult, error) {
	if len(l.handles) == 0 {
		return CompactResult{}, ErrEmptyLevel
	}

	var merged *SortedTable
	oldIDs := make([]document.ObjectID, 0, len(l.handles))
	for _, h := range l.handles {
		table, err := h.Read()
		if err != nil {
			return CompactResult{}, err
		}
		oldIDs = append(oldIDs, h.meta.TableID)

		if merged == nil {
			merged = table
			continue
		}
		merged, err = merged.Merge(table)
		if err != nil {
			return CompactResult{}, err
		}
	}

	return CompactResult{NewTable: merged, OldTableIDs: oldIDs}, nil
}

// DropTombstones rebuilds a table with every tombstone record removed. The
// engine calls this when compacting into the last existing level, per the
// retention policy resolving spec's open tombstone question.
func DropTombstones(t *SortedTable) (*SortedTable, error) {
	kept := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		if !rec.Value.Tombstone {
			kept = append(kept, rec)
		}
	}
	if len(kept) == 0 {
		return nil, ErrEmptyInput
	}
	return NewSortedTable(kept)
}

// Clear deletes the files for the listed table ids, drops their handles, and
// rewrites metadata and the Bloom structure over what remains.
func (l *Level) Clear(ids []document.ObjectID) error {
	drop := make(map[document.ObjectID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := l.handles[:0:0]
	for _, h := range l.handles {
		if drop[h.meta.TableID] {
			h.Deactivate()
			if err := h.Delete(); err != nil {
				return err
			}
			continue
		}
		kept = append(kept, h)
	}
	l.handles = kept

	return l.rebuildAfterClear()
}

// ClearAll deletes every table in the level.
func (l *Level) ClearAll() error {
	for _, h := range l.handles {
		h.Deactivate()
		if err := h.Delete(); err != nil {
			return err
		}
	}
	l.handles = nil
	return l.rebuildAfterClear()
}

func (l *Level) rebuildAfterClear() error {
	l.bloom = NewBloomMembership(l.bloomBits, l.bloomRate)
	ids := make([]document.ObjectID, 0, len(l.handles))
	for _, h := range l.handles {
		ids = append(ids, h.meta.TableID)
		table, err := h.Read()
		if err != nil {
			return err
		}
		l.absorbBloom(table)
	}
	l.meta.TableIDs = ids
	return l.writeMeta()
}

// IsFull reports whether the level has reached its configured table cap.
func (l *Level) IsFull() bool {
	return len(l.handles) >= l.maxTables
}

// LevelNumber returns the level's ordinal position (>= 1).
func (l *Level) LevelNumber() int { return l.meta.LevelNumber }

// NumTables returns the number of tables currently held by the level.
func (l *Level) NumTables() int { return len(l.handles) }

func (l *Level) writeMeta() error {
	l.meta.TableIDs = make([]document.ObjectID, len(l.handles))
	for i, h := range l.handles {
		l.meta.TableIDs[i] = h.meta.TableID
	}

	doc := levelMetaToDocument(l.meta)
	raw, err := encodeDocument(doc)
	if err != nil {
		return fmt.Errorf("lsm: encode level metadata: %w", err)
	}
	return writeFileFsync(filepath.Join(l.dir, levelMetaFile), raw)
}
