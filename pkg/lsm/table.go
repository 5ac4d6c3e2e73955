package lsm

import (
	"sort"
	"time"

	"tidestore/pkg/document"
)

// tableMeta is a SortedTable's metadata: everything needed to route a
// lookup to (or past) the table without reading its records.
type tableMeta struct {
	TableID    document.ObjectID
	CreatedAt  time.Time
	MinKey     Key
	MaxKey     Key
	NumRecords int
}

// KeyInRange reports whether key falls within the table's closed key range.
// Level.Get uses this to skip opening tables that provably cannot hold key.
func (m tableMeta) KeyInRange(key Key) bool {
	return CompareKeys(key, m.MinKey) >= 0 && CompareKeys(key, m.MaxKey) <= 0
}

// SortedTable is an immutable, key-ascending batch of records. Once built it
// is never mutated; a new table is produced instead (by flush or merge).
type SortedTable struct {
	meta    tableMeta
	records []Record
}

// NewSortedTable derives a table from a duplicate-free slice of records,
// sorting a copy of it by key (stable), so the input need not be ordered.
// The caller's backing array is not retained. It is an error to build a
// table from no records.
func NewSortedTable(records []Record) (*SortedTable, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	owned := make([]Record, len(records))
	copy(owned, records)
	sort.SliceStable(owned, func(i, j int) bool {
		return cmpRecords(owned[i], owned[j]) < 0
	})

	return &SortedTable{
		meta: tableMeta{
			TableID:    document.NewObjectID(),
			CreatedAt:  time.Now().UTC(),
			MinKey:     owned[0].Key,
			MaxKey:     owned[len(owned)-1].Key,
			NumRecords: len(owned),
		},
		records: owned,
	}, nil
}

// Meta returns the table's metadata.
func (t *SortedTable) Meta() tableMeta { return t.meta }

// Records returns the table's records in key-ascending order. The returned
// slice must not be mutated by the caller.
func (t *SortedTable) Records() []Record { return t.records }

// Get performs a binary search for key, returning the full record (including
// tombstones, which the caller must interpret) if present.
func (t *SortedTable) Get(key Key) (Record, bool) {
	i := sort.Search(len(t.records), func(i int) bool {
		return CompareKeys(t.records[i].Key, key) >= 0
	})
	if i < len(t.records) && t.records[i].Key == key {
		return t.records[i], true
	}
	return Record{}, false
}

// GetRange returns every record with a key in the closed interval
// [min, max]. Per the corrected (redesigned) contract, a min that does not
// exactly appear in the table is clamped to the first key >= min rather than
// causing an empty result. The result is empty only when no key lies in
// [min, max], for example when min is strictly after every key in the table.
func (t *SortedTable) GetRange(min, max Key) []Record {
	start := sort.Search(len(t.records), func(i int) bool {
		return CompareKeys(t.records[i].Key, min) >= 0
	})

	var out []Record
	for i := start; i < len(t.records); i++ {
		if CompareKeys(t.records[i].Key, max) > 0 {
			break
		}
		out = append(out, t.records[i])
	}
	return out
}

// Merge performs a two-pointer merge of t and other's ascending record
// sequences into a new table. On equal keys, the record from the newer
// table wins, "newer" meaning the strictly greater in-memory
// metadata.CreatedAt (full nanosecond precision; only the persisted form
// round-trips at second resolution, via codec.go). On an exact tie — both
// tables stamped in the same compaction batch — the receiver t wins; this
// is an arbitrary but deterministic tie-break, chosen so repeated merges of
// the same inputs are reproducible. Tombstones are never eliminated here;
// level-wise compaction decides retention.
func (t *SortedTable) Merge(other *SortedTable) (*SortedTable, error) {
	tNewer := !t.meta.CreatedAt.Before(other.meta.CreatedAt)

	merged := make([]Record, 0, len(t.records)+len(other.records))
	i, j := 0, 0
	for i < len(t.records) && j < len(other.records) {
		a, b := t.records[i], other.records[j]
		switch c := CompareKeys(a.Key, b.Key); {
		case c < 0:
			merged = append(merged, a)
			i++
		case c > 0:
			merged = append(merged, b)
			j++
		default:
			if tNewer {
				merged = append(merged, a)
			} else {
				merged = append(merged, b)
			}
			i++
			j++
		}
	}
	merged = append(merged, t.records[i:]...)
	merged = append(merged, other.records[j:]...)

	return NewSortedTable(merged)
}

// BloomOf inserts every record key into a freshly sized Bloom membership
// structure, per the engine's configured (bits, error rate).
func (t *SortedTable) BloomOf(numBits int, errorRate float64) *BloomMembership {
	return BuildBloomMembership(t, numBits, errorRate)
}
