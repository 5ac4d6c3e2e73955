package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"tidestore/pkg/document"
)

// Engine ties a memtable, an optional frozen memtable snapshot, and an
// ordered list of on-disk levels behind the single public key-value API
// spec.md §6 describes. It is a single-writer, cooperative-scheduling
// design: Set, Del, Get, CompactionCycle, Stats and Close each hold the
// engine's mutex for their whole duration, so calls are serialized, and
// every disk operation is a suspension point.
type Engine struct {
	id   document.ObjectID
	name string
	path string
	cfg  Config

	mu             sync.Mutex
	memtable       *MemTable
	frozenMemtable *MemTable
	levels         []*Level

	closed bool
}

// New creates a fresh engine rooted at path with default configuration. The
// directory is created if it does not exist; no levels exist yet.
func New(name, path string) (*Engine, error) {
	return NewWithConfig(name, path, DefaultConfig())
}

// NewWithConfig is New with an explicit Config, so callers can promote the
// spec's fixed constants to real parameters without touching engine logic.
func NewWithConfig(name, path string, cfg Config) (*Engine, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("lsm: create engine dir %s: %w", path, err)
	}
	return &Engine{
		id:       document.NewObjectID(),
		name:     name,
		path:     path,
		cfg:      cfg,
		memtable: NewMemTable(cfg.MemtableMaxRecords),
	}, nil
}

// Load reopens an existing engine at path: every level subdirectory is
// scanned and reloaded (rebuilding its Bloom structure from its tables), and
// levels are ordered by level number. The memtable always starts empty —
// this design has no write-ahead log, so anything not yet flushed at the
// last clean shutdown is simply lost.
func Load(name, path string) (*Engine, error) {
	return LoadWithConfig(name, path, DefaultConfig())
}

// LoadWithConfig is Load with an explicit Config.
func LoadWithConfig(name, path string, cfg Config) (*Engine, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("lsm: read engine dir %s: %w", path, err)
	}

	var levels []*Level
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "level-") {
			continue
		}
		lvl, err := LoadLevel(path, entry.Name(), cfg)
		if err != nil {
			return nil, fmt.Errorf("lsm: load level %s: %w", entry.Name(), err)
		}
		levels = append(levels, lvl)
	}
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].LevelNumber() < levels[j].LevelNumber()
	})

	return &Engine{
		id:       document.NewObjectID(),
		name:     name,
		path:     path,
		cfg:      cfg,
		memtable: NewMemTable(cfg.MemtableMaxRecords),
		levels:   levels,
	}, nil
}

// Set inserts or overwrites key with doc in the live memtable. No flush is
// triggered here; flushing only happens via CompactionCycle.
func (e *Engine) Set(key Key, doc *document.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.memtable.Set(key, doc)
	return nil
}

// Del inserts or overwrites key with a tombstone in the live memtable.
func (e *Engine) Del(key Key) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.memtable.Del(key)
	return nil
}

// Get resolves key against, in order: the live memtable, the frozen
// memtable (if a flush is in progress), then each level in index order. A
// tombstone encountered at any source short-circuits the search and returns
// (nil, false); it never falls through to an older source.
func (e *Engine) Get(key Key) (*document.Document, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, false, ErrClosed
	}

	if v, ok := e.memtable.Get(key); ok {
		return resolveValue(v)
	}
	if e.frozenMemtable != nil {
		if v, ok := e.frozenMemtable.Get(key); ok {
			return resolveValue(v)
		}
	}
	for _, lvl := range e.levels {
		rec, ok, err := lvl.Get(key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return resolveValue(rec.Value)
		}
	}

	return nil, false, nil
}

func resolveValue(v Value) (*document.Document, bool, error) {
	if v.Tombstone {
		return nil, false, nil
	}
	return v.Doc, true, nil
}

// CompactionCycle drives the tiered compaction described in spec §4.7: a
// memtable phase that conditionally freezes and flushes, followed by a
// level phase that folds every full level into the next one down,
// cascading as far as necessary. force is passed straight through to the
// memtable phase.
func (e *Engine) CompactionCycle(force bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	if err := e.compactMemtableLocked(force); err != nil && err != errMemtableNotFull {
		return err
	}

	for n := 1; n <= len(e.levels); n++ {
		lvl := e.levels[n-1]
		if !lvl.IsFull() {
			break
		}

		result, err := lvl.Compact()
		if err != nil {
			return err
		}

		newTable := result.NewTable
		// Level n is the highest level that currently exists, so its
		// merge result is about to become the new top of the stack:
		// this is where tombstones reach a point with no further level
		// to propagate toward, and so are dropped for good.
		if n == len(e.levels) {
			dropped, dropErr := DropTombstones(newTable)
			switch dropErr {
			case nil:
				newTable = dropped
			case ErrEmptyInput:
				// The merged table was all tombstones; nothing
				// survives into the next level.
				if clearErr := lvl.Clear(result.OldTableIDs); clearErr != nil {
					return clearErr
				}
				continue
			default:
				return dropErr
			}
		}

		next, err := e.levelOrCreate(n + 1)
		if err != nil {
			return err
		}
		if err := next.AddTable(newTable); err != nil {
			return err
		}
		if err := lvl.Clear(result.OldTableIDs); err != nil {
			return err
		}
	}

	return nil
}

var errMemtableNotFull = fmt.Errorf("lsm: memtable not full")

// compactMemtableLocked implements the memtable phase. It must be called
// with e.mu held. The corrected semantics (per spec §9) flush when force is
// true OR the memtable is full — never the inverted "skip when forced"
// condition the original source carried.
func (e *Engine) compactMemtableLocked(force bool) error {
	if !force && !e.memtable.IsFull() {
		return errMemtableNotFull
	}
	if e.frozenMemtable != nil {
		return ErrFlushInProgress
	}

	e.frozenMemtable = e.memtable
	e.memtable = NewMemTable(e.cfg.MemtableMaxRecords)

	table, err := e.frozenMemtable.Flush()
	if err != nil {
		e.memtable = e.frozenMemtable
		e.frozenMemtable = nil
		return err
	}

	level1, err := e.levelOrCreate(1)
	if err != nil {
		return err
	}
	if err := level1.AddTable(table); err != nil {
		return err
	}

	e.frozenMemtable = nil
	return nil
}

// levelOrCreate returns the existing level at 1-based position n, creating
// it (and its on-disk directory) if it does not exist yet.
func (e *Engine) levelOrCreate(n int) (*Level, error) {
	if n <= len(e.levels) {
		return e.levels[n-1], nil
	}
	if n != len(e.levels)+1 {
		return nil, ErrInvalidLevel
	}

	lvl, err := NewLevel(e.path, n, nil, true, e.cfg)
	if err != nil {
		return nil, err
	}
	e.levels = append(e.levels, lvl)
	return lvl, nil
}

// Stats is a debug/observability snapshot of the engine's current shape.
type Stats struct {
	MemtableSize int
	HasFrozen    bool
	LevelCounts  []int
}

// Stats reports the engine's current memtable size and per-level table
// counts, mirroring the introspection the CLI and tests rely on.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	counts := make([]int, len(e.levels))
	for i, lvl := range e.levels {
		counts[i] = lvl.NumTables()
	}
	return Stats{
		MemtableSize: e.memtable.Size(),
		HasFrozen:    e.frozenMemtable != nil,
		LevelCounts:  counts,
	}
}

// Close marks the engine closed; subsequent operations return ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// Path returns the engine's root directory, matching §4.8's on-disk layout.
func (e *Engine) Path() string { return filepath.Clean(e.path) }
