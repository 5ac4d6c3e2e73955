// Package bptreestub is a placeholder for an on-disk B+-tree secondary
// index. It is not specified beyond its name: the LSM engine has no
// secondary-field indexing (an explicit non-goal), and nothing in this
// repository calls into this package yet. It exists only so pkg/collection
// has a named collaborator to eventually point at.
package bptreestub

import "errors"

// ErrNotImplemented marks every operation in this stub.
var ErrNotImplemented = errors.New("bptreestub: not implemented")

// Tree is an unimplemented handle to a B+-tree index.
type Tree struct{}

// NodeExists reports whether a node for key is present in the tree.
//
// The original source this design was distilled from inverted this check —
// its equivalent returned an error when the node existed rather than when
// it was absent. This stub does not repeat that mistake: it reports
// ErrNotImplemented unconditionally, rather than a correctness bug.
func (t *Tree) NodeExists(key []byte) (bool, error) {
	return false, ErrNotImplemented
}
