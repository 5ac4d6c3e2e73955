package lsm

import "tidestore/pkg/document"

// newTestKey builds a deterministic, strictly ordered ObjectID from a small
// integer: same timestamp and process bytes for every call, distinct and
// ascending in the counter field, so tests can reason about key order
// without depending on wall-clock timing.
func newTestKey(n uint32) document.ObjectID {
	var id document.ObjectID
	id[0], id[1], id[2], id[3] = 0x00, 0x00, 0x00, 0x01
	id[9] = byte(n >> 16)
	id[10] = byte(n >> 8)
	id[11] = byte(n)
	return id
}

func newTestDoc(field string) *document.Document {
	doc := document.NewDocument()
	doc.Set("v", field)
	return doc
}
