package lsm

import "testing"

func TestBloomMembershipNoFalseNegatives(t *testing.T) {
	bm := NewBloomMembership(1000, 1e-3)

	keys := [][]byte{
		[]byte("apple"),
		[]byte("banana"),
		[]byte("cherry"),
		[]byte("date"),
	}
	for _, k := range keys {
		bm.Insert(k)
	}

	for _, k := range keys {
		if !bm.Contains(k) {
			t.Fatalf("key %q inserted but reported absent", k)
		}
	}
}

func TestBloomMembershipRejectsAbsentKey(t *testing.T) {
	bm := NewBloomMembership(1000, 1e-3)
	bm.Insert([]byte("only-member"))

	if bm.Contains([]byte("definitely-not-inserted-xyz")) {
		t.Skip("false positive on this input; not a correctness violation")
	}
}

func TestBuildBloomMembershipFromTable(t *testing.T) {
	k1, k2 := newTestKey(1), newTestKey(2)
	table, err := NewSortedTable([]Record{
		{Key: k1, Value: DataValue(newTestDoc("a"))},
		{Key: k2, Value: DataValue(newTestDoc("b"))},
	})
	if err != nil {
		t.Fatalf("NewSortedTable: %v", err)
	}

	bm := BuildBloomMembership(table, 1000, 1e-3)
	if !bm.Contains(k1[:]) || !bm.Contains(k2[:]) {
		t.Fatalf("membership built from table must contain every table key")
	}
}
