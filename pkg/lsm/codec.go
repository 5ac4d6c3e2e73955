package lsm

import (
	"fmt"
	"time"

	"tidestore/pkg/document"
)

// recordToDocument renders a single Record as a document tree so it can be
// nested inside a SortedTable's encoded form via the existing BSON-like
// encoder. Tombstones carry no "doc" field.
func recordToDocument(r Record) *document.Document {
	d := document.NewDocument()
	d.Set("key", r.Key)
	d.Set("tombstone", r.Value.Tombstone)
	if !r.Value.Tombstone && r.Value.Doc != nil {
		d.Set("doc", r.Value.Doc)
	}
	return d
}

func documentToRecord(d *document.Document) (Record, error) {
	keyRaw, ok := d.Get("key")
	if !ok {
		return Record{}, fmt.Errorf("lsm: record document missing key")
	}
	key, ok := keyRaw.(document.ObjectID)
	if !ok {
		return Record{}, fmt.Errorf("lsm: record key has wrong type %T", keyRaw)
	}

	tombstone, _ := d.Get("tombstone")
	isTombstone, _ := tombstone.(bool)

	if isTombstone {
		return Record{Key: key, Value: TombstoneValue()}, nil
	}

	docRaw, ok := d.Get("doc")
	if !ok {
		return Record{Key: key, Value: DataValue(document.NewDocument())}, nil
	}
	doc, ok := docRaw.(*document.Document)
	if !ok {
		return Record{}, fmt.Errorf("lsm: record payload has wrong type %T", docRaw)
	}
	return Record{Key: key, Value: DataValue(doc)}, nil
}

// tableToDocument renders a SortedTable's full metadata and record contents
// as a single document tree, matching spec's "table files are self-describing"
// requirement: {table_id, created_at, min_key, max_key, num_records, records[]}.
func tableToDocument(t *SortedTable) *document.Document {
	d := document.NewDocument()
	d.Set("table_id", t.meta.TableID)
	d.Set("created_at", t.meta.CreatedAt.Unix())
	d.Set("min_key", t.meta.MinKey)
	d.Set("max_key", t.meta.MaxKey)
	d.Set("num_records", int64(t.meta.NumRecords))

	records := make([]interface{}, len(t.records))
	for i, rec := range t.records {
		records[i] = recordToDocument(rec)
	}
	d.Set("records", records)
	return d
}

func documentToTable(d *document.Document) (*SortedTable, error) {
	tableIDRaw, ok := d.Get("table_id")
	if !ok {
		return nil, fmt.Errorf("lsm: table document missing table_id")
	}
	tableID, ok := tableIDRaw.(document.ObjectID)
	if !ok {
		return nil, fmt.Errorf("lsm: table_id has wrong type %T", tableIDRaw)
	}

	createdAtRaw, _ := d.Get("created_at")
	createdAtUnix, ok := createdAtRaw.(int64)
	if !ok {
		return nil, fmt.Errorf("lsm: created_at has wrong type %T", createdAtRaw)
	}

	recordsRaw, ok := d.Get("records")
	if !ok {
		return nil, fmt.Errorf("lsm: table document missing records")
	}
	recordDocs, ok := recordsRaw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("lsm: records has wrong type %T", recordsRaw)
	}
	if len(recordDocs) == 0 {
		return nil, ErrEmptyInput
	}

	records := make([]Record, 0, len(recordDocs))
	for _, rd := range recordDocs {
		rdoc, ok := rd.(*document.Document)
		if !ok {
			return nil, fmt.Errorf("lsm: record entry has wrong type %T", rd)
		}
		rec, err := documentToRecord(rdoc)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	meta := tableMeta{
		TableID:    tableID,
		CreatedAt:  time.Unix(createdAtUnix, 0).UTC(),
		NumRecords: len(records),
	}
	if len(records) > 0 {
		meta.MinKey = records[0].Key
		meta.MaxKey = records[len(records)-1].Key
	}
	return &SortedTable{meta: meta, records: records}, nil
}

// levelMetaToDocument renders a level's metadata, per spec §4.8 and §6:
// {id, created_at, level, num_tables, table_ids[]}.
func levelMetaToDocument(m levelMeta) *document.Document {
	d := document.NewDocument()
	d.Set("id", m.LevelID)
	d.Set("created_at", m.CreatedAt.Unix())
	d.Set("level", int64(m.LevelNumber))
	d.Set("num_tables", int64(len(m.TableIDs)))

	ids := make([]interface{}, len(m.TableIDs))
	for i, id := range m.TableIDs {
		ids[i] = id
	}
	d.Set("table_ids", ids)
	return d
}

func documentToLevelMeta(d *document.Document) (levelMeta, error) {
	var m levelMeta

	idRaw, ok := d.Get("id")
	if !ok {
		return m, fmt.Errorf("lsm: level meta missing id")
	}
	id, ok := idRaw.(document.ObjectID)
	if !ok {
		return m, fmt.Errorf("lsm: level meta id has wrong type %T", idRaw)
	}
	m.LevelID = id

	createdAtRaw, _ := d.Get("created_at")
	createdAtUnix, ok := createdAtRaw.(int64)
	if !ok {
		return m, fmt.Errorf("lsm: level meta created_at has wrong type %T", createdAtRaw)
	}
	m.CreatedAt = time.Unix(createdAtUnix, 0).UTC()

	levelRaw, _ := d.Get("level")
	levelNum, ok := levelRaw.(int64)
	if !ok {
		return m, fmt.Errorf("lsm: level meta level has wrong type %T", levelRaw)
	}
	m.LevelNumber = int(levelNum)

	idsRaw, ok := d.Get("table_ids")
	if !ok {
		return m, fmt.Errorf("lsm: level meta missing table_ids")
	}
	idsList, ok := idsRaw.([]interface{})
	if !ok {
		return m, fmt.Errorf("lsm: level meta table_ids has wrong type %T", idsRaw)
	}
	m.TableIDs = make([]document.ObjectID, 0, len(idsList))
	for _, idv := range idsList {
		tid, ok := idv.(document.ObjectID)
		if !ok {
			return m, fmt.Errorf("lsm: level meta table_id entry has wrong type %T", idv)
		}
		m.TableIDs = append(m.TableIDs, tid)
	}

	return m, nil
}

// encodeDocument is the shared entry point for turning a document tree into
// bytes via the project's BSON-like codec; kept as one call site so a
// different wire format could be swapped in without touching callers.
func encodeDocument(d *document.Document) ([]byte, error) {
	return document.NewEncoder().Encode(d)
}

func decodeDocument(data []byte) (*document.Document, error) {
	return document.NewDecoder(data).Decode()
}
