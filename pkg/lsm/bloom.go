package lsm

import (
	"hash/fnv"
	"math"
)

// BloomMembership is a probabilistic set membership test: Contains never
// reports a false negative, but may report a false positive. Level.Get uses
// it to skip opening a SortedTable that provably does not hold a key.
//
// Unlike a SortedTable, a BloomMembership is never persisted to disk — a
// Level keeps one for all of its tables and rebuilds it by scanning them
// whenever the level is loaded or its table set shrinks, so
// there is no on-disk format or (Un)Marshal pair to keep in sync with the
// table contents.
type BloomMembership struct {
	bits      []byte
	numBits   int
	numHashes int
}

// NewBloomMembership allocates an empty membership filter sized at numBits
// bits and tuned for the given target false-positive rate.
func NewBloomMembership(numBits int, errorRate float64) *BloomMembership {
	if numBits < 8 {
		numBits = 8
	}
	return &BloomMembership{
		bits:      make([]byte, (numBits+7)/8),
		numBits:   numBits,
		numHashes: numHashesFor(errorRate),
	}
}

// numHashesFor picks a hash count from a target false-positive rate using
// k = ceil(-log2(p)), the standard rule of thumb when the filter's bit
// budget is fixed independently of the expected item count.
func numHashesFor(errorRate float64) int {
	if errorRate <= 0 || errorRate >= 1 {
		return 1
	}
	k := int(math.Ceil(-math.Log2(errorRate)))
	if k < 1 {
		k = 1
	}
	return k
}

// Insert records key as a present member.
func (bm *BloomMembership) Insert(key []byte) {
	for i := 0; i < bm.numHashes; i++ {
		bit := bm.bitIndex(key, i)
		bm.bits[bit/8] |= 1 << (bit % 8)
	}
}

// Contains reports whether key might be a member. A false answer is
// conclusive; a true answer is not.
func (bm *BloomMembership) Contains(key []byte) bool {
	for i := 0; i < bm.numHashes; i++ {
		bit := bm.bitIndex(key, i)
		if bm.bits[bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

func (bm *BloomMembership) bitIndex(key []byte, i int) uint64 {
	h1, h2 := bloomHashPair(key)
	return (h1 + uint64(i)*h2) % uint64(bm.numBits)
}

// bloomHashPair derives two independent 64-bit hashes from key via FNV-1a,
// combined by double hashing to cheaply simulate numHashes independent
// functions (Kirsch-Mitzenmacher).
func bloomHashPair(key []byte) (uint64, uint64) {
	h := fnv.New64a()
	h.Write(key)
	h1 := h.Sum64()

	h.Reset()
	h.Write(key)
	h.Write([]byte{0xff})
	h2 := h.Sum64()

	return h1, h2
}

// BuildBloomMembership scans every record in a single SortedTable and returns
// a freshly populated membership filter sized by numBits and errorRate. A
// Level does not use it: its one per-level filter is filled table by table
// via Level.absorbBloom.
func BuildBloomMembership(t *SortedTable, numBits int, errorRate float64) *BloomMembership {
	bm := NewBloomMembership(numBits, errorRate)
	for _, rec := range t.records {
		bm.Insert(rec.Key[:])
	}
	return bm
}
