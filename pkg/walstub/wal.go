// Package walstub is a placeholder for a write-ahead log. Durability in
// this design is limited to fsync-on-write of individual table and level
// metadata files (see pkg/lsm); there is no append log and no crash-recovery
// replay path. This file exists only because the original repository
// carried an empty WAL stub as a named collaborator of the engine.
package walstub

import "errors"

// ErrNotImplemented marks every operation in this stub.
var ErrNotImplemented = errors.New("walstub: not implemented")

// Log is an unimplemented write-ahead log handle.
type Log struct{}

// Append would record an entry before it is applied to the engine. Crash
// recovery via WAL replay is out of scope for this design.
func (l *Log) Append(entry []byte) error {
	return ErrNotImplemented
}
