package lsm

import (
	"bytes"

	"tidestore/pkg/document"
)

// Key is the 96-bit, timestamp-prefixed identifier every record is keyed
// by. It is byte-identical to document.ObjectID: big-endian bytes sort in
// creation order to within a second, and the engine never interprets a key
// beyond that ordering.
type Key = document.ObjectID

// CompareKeys orders two keys by their big-endian byte representation.
func CompareKeys(a, b Key) int {
	return bytes.Compare(a[:], b[:])
}

// Value is the tagged Data/Tombstone variant a Record carries. A Tombstone
// value has no Doc.
type Value struct {
	Tombstone bool
	Doc       *document.Document
}

// DataValue wraps a document as a live value.
func DataValue(doc *document.Document) Value {
	return Value{Doc: doc}
}

// TombstoneValue builds a deletion marker.
func TombstoneValue() Value {
	return Value{Tombstone: true}
}

// Equal reports whether two values carry the same tombstone-ness and, for
// live values, structurally equal documents. Two tombstones are always
// equal regardless of any residual Doc.
func (v Value) Equal(other Value) bool {
	if v.Tombstone != other.Tombstone {
		return false
	}
	if v.Tombstone {
		return true
	}
	if v.Doc == nil || other.Doc == nil {
		return v.Doc == other.Doc
	}
	return documentsEqual(v.Doc, other.Doc)
}

func documentsEqual(a, b *document.Document) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, key := range a.Keys() {
		av, aok := a.Get(key)
		bv, bok := b.Get(key)
		if !aok || !bok {
			return false
		}
		if !valuesDeepEqual(av, bv) {
			return false
		}
	}
	return true
}

func valuesDeepEqual(a, b interface{}) bool {
	ad, aok := a.(*document.Document)
	bd, bok := b.(*document.Document)
	if aok && bok {
		return documentsEqual(ad, bd)
	}
	aArr, aok := a.([]interface{})
	bArr, bok := b.([]interface{})
	if aok && bok {
		if len(aArr) != len(bArr) {
			return false
		}
		for i := range aArr {
			if !valuesDeepEqual(aArr[i], bArr[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// Record is a single (key, value) pair as stored in a SortedTable. Records
// are ordered by key only; the value, including tombstone-ness, never
// factors into positioning.
type Record struct {
	Key   Key
	Value Value
}

// Equal reports whether two records have the same key and the same value.
// A tombstone and a data record with the same key are never equal.
func (r Record) Equal(other Record) bool {
	return r.Key == other.Key && r.Value.Equal(other.Value)
}

// cmpRecords orders two records by key alone, for use in binary search and
// sort.Slice over a []Record.
func cmpRecords(a, b Record) int {
	return CompareKeys(a.Key, b.Key)
}
