package lsm

import "errors"

var (
	// ErrEmptyInput is returned when a constructor that requires at least
	// one record is given none (SortedTable.New on an empty slice, or
	// MemTable.Flush on an empty memtable).
	ErrEmptyInput = errors.New("lsm: empty input")

	// ErrClosed is returned when an operation is attempted on a closed
	// engine.
	ErrClosed = errors.New("lsm: engine is closed")

	// ErrFlushInProgress is returned by compactMemtableLocked when a frozen
	// memtable is already pending flush.
	ErrFlushInProgress = errors.New("lsm: a memtable flush is already in progress")

	// ErrInvalidLevel is returned when a level number is out of range for
	// a requested compaction.
	ErrInvalidLevel = errors.New("lsm: invalid level number")

	// ErrEmptyLevel is returned when compaction is attempted on a level
	// with no tables.
	ErrEmptyLevel = errors.New("lsm: no sorted table found in level")

	// ErrInvalidBloom names invalid bloom membership data. Nothing in this
	// package returns it: BloomMembership is never persisted or parsed.
	ErrInvalidBloom = errors.New("lsm: invalid bloom membership data")

	// ErrNotImplemented is a generic "not implemented" sentinel. Nothing in
	// this package returns it; the write-ahead log and B+-tree stubs report
	// their own walstub.ErrNotImplemented and bptreestub.ErrNotImplemented.
	ErrNotImplemented = errors.New("lsm: not implemented")
)
