package vectordb

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/diffsec/vectordb/internal/distance"
	"github.com/diffsec/vectordb/internal/filter"
	"github.com/diffsec/vectordb/internal/index"
	"github.com/diffsec/vectordb/internal/meta"
)

// overFetchFactor scales the limit+offset a filtered vector search asks
// the underlying index for, since the index has no notion of scalar
// filters and must over-fetch candidates for the filter to thin out.
// It is not adaptive: a search that still comes up short after this
// single over-fetch simply returns fewer than limit hits.
const overFetchFactor = 10

// Record is one stored row: a resolved label, its vector (nil if the
// collection's schema has no vector field or the caller omitted it),
// and the rest of the row's scalar fields.
type Record struct {
	Label  uint64
	Vector []float32
	Fields map[string]any
}

// SearchItem is one hit from SearchByVector.
type SearchItem struct {
	ID     any
	Score  float32
	Fields map[string]any
}

// CollectionSearchResult is the result of SearchByVector.
type CollectionSearchResult struct {
	Data []SearchItem
}

// UpsertResult reports the primary-key (or label, if no primary key is
// configured) of every row a call to UpsertData wrote, in order.
type UpsertResult struct {
	IDs []any
}

type collectionIndex struct {
	config IndexConfig
	index  index.Index
	accel  *scalarAccelerator
}

// Collection is a named set of records sharing a scalar schema, with
// zero or more named vector indexes over the schema's vector field.
type Collection struct {
	config CollectionConfig
	path   string
	logger *slog.Logger

	recordsMu sync.RWMutex
	records   map[uint64]*Record

	indexesMu sync.RWMutex
	indexes   map[string]*collectionIndex

	autoIDMu   sync.Mutex
	nextAutoID uint64

	// Exactly one of these is non-nil: volatileSettings for an
	// in-memory collection, persistentSettings for one with a backing
	// directory (where it loads from and saves to meta.json).
	volatileSettings   *meta.VolatileDict
	persistentSettings *meta.PersistentDict
}

// NewCollection creates an in-memory collection with no backing
// directory; Close is then a no-op and nothing is ever persisted.
func NewCollection(config CollectionConfig) *Collection {
	return &Collection{
		config:           config,
		logger:           slog.Default().With("collection", config.Name),
		records:          make(map[uint64]*Record),
		indexes:          make(map[string]*collectionIndex),
		nextAutoID:       1,
		volatileSettings: meta.NewVolatileDict(nil),
	}
}

// OpenCollection creates (if absent) or recovers (if present) a
// collection rooted at dir, and persists every subsequent mutation
// there via atomic replace.
func OpenCollection(config CollectionConfig, dir string) (*Collection, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ioErr(err)
	}
	c := &Collection{
		config:             config,
		path:               dir,
		logger:             slog.Default().With("collection", config.Name),
		records:            make(map[uint64]*Record),
		indexes:            make(map[string]*collectionIndex),
		nextAutoID:         1,
		persistentSettings: meta.NewPersistentDict(filepath.Join(dir, "meta.json"), nil),
	}
	if err := c.tryRecover(); err != nil {
		return nil, err
	}
	return c, nil
}

// Config returns the collection's schema.
func (c *Collection) Config() CollectionConfig { return c.config }

// Name returns the collection's name.
func (c *Collection) Name() string { return c.config.Name }

// Dimension returns the schema's configured vector dimension.
func (c *Collection) Dimension() int { return c.config.Dimension() }

// CreateIndex adds a new named vector index, backfilling it with every
// record's current vector.
func (c *Collection) CreateIndex(name string, cfg IndexConfig) error {
	c.indexesMu.Lock()
	defer c.indexesMu.Unlock()
	if _, exists := c.indexes[name]; exists {
		return indexAlreadyExists(name)
	}

	dim := c.config.Dimension()
	var idx index.Index
	switch cfg.IndexType {
	case "hnsw":
		idx = index.NewHnswIndex(dim, cfg.Distance)
	default:
		cfg.IndexType = "flat"
		idx = index.NewFlatIndex(dim, cfg.Distance)
	}

	var accel *scalarAccelerator
	if c.path != "" && len(cfg.ScalarIndexFields) > 0 {
		a, err := openScalarAccelerator(filepath.Join(c.path, "indexes", name), cfg.ScalarIndexFields)
		if err != nil {
			return storageErr(err, "opening scalar accelerator for index %q", name)
		}
		accel = a
	}

	ci := &collectionIndex{config: cfg, index: idx, accel: accel}

	c.recordsMu.RLock()
	labels := make([]uint64, 0, len(c.records))
	vectors := make([][]float32, 0, len(c.records))
	for _, rec := range c.records {
		if len(rec.Vector) == 0 {
			continue
		}
		labels = append(labels, rec.Label)
		vectors = append(vectors, rec.Vector)
		if accel != nil {
			_ = accel.index(rec.Label, rec.Fields)
		}
	}
	c.recordsMu.RUnlock()
	if len(labels) > 0 {
		if err := idx.InsertBatch(labels, vectors); err != nil {
			return translateIndexErr(err)
		}
	}

	c.indexes[name] = ci
	return c.persist()
}

// HasIndex reports whether name is a configured index.
func (c *Collection) HasIndex(name string) bool {
	c.indexesMu.RLock()
	defer c.indexesMu.RUnlock()
	_, ok := c.indexes[name]
	return ok
}

// ListIndexes returns the names of every configured index.
func (c *Collection) ListIndexes() []string {
	c.indexesMu.RLock()
	defer c.indexesMu.RUnlock()
	out := make([]string, 0, len(c.indexes))
	for name := range c.indexes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DropIndex removes a named index. Dropping an absent index is not an
// error.
func (c *Collection) DropIndex(name string) error {
	c.indexesMu.Lock()
	defer c.indexesMu.Unlock()
	ci, ok := c.indexes[name]
	if !ok {
		return nil
	}
	if ci.accel != nil {
		ci.accel.Close()
	}
	delete(c.indexes, name)
	if c.path != "" {
		os.RemoveAll(filepath.Join(c.path, "indexes", name))
	}
	return c.persist()
}

// UpsertData inserts or overwrites rows by primary key, drawing from
// the auto-id counter instead whenever the schema has no primary key
// field or a given row simply omits it, feeding every configured index
// with the row's vector. The first row that fails aborts the batch;
// rows already applied before the failure remain applied.
func (c *Collection) UpsertData(rows []map[string]any) (UpsertResult, error) {
	vectorField, hasVector := c.config.VectorField()
	pkField, hasPK := c.config.PrimaryKey()

	result := UpsertResult{IDs: make([]any, 0, len(rows))}
	for _, row := range rows {
		var label uint64
		var id any
		if pkVal, ok := rowPK(row, pkField, hasPK); ok {
			label = valueToU64(pkVal)
			id = pkVal
		} else {
			label = c.nextLabel()
			id = label
		}

		var vec []float32
		if hasVector {
			if raw, ok := row[vectorField.Name]; ok {
				vec = valueToF32Vec(raw)
				if vectorField.Dim > 0 && len(vec) != vectorField.Dim {
					return result, dimensionMismatch(vectorField.Dim, len(vec))
				}
			}
		}

		fields := make(map[string]any, len(row))
		for k, v := range row {
			if hasVector && k == vectorField.Name {
				continue
			}
			fields[k] = v
		}

		c.recordsMu.Lock()
		old, existed := c.records[label]
		c.records[label] = &Record{Label: label, Vector: vec, Fields: fields}
		c.recordsMu.Unlock()

		if len(vec) > 0 {
			c.indexesMu.RLock()
			for _, ci := range c.indexes {
				if err := ci.index.Insert(label, vec); err != nil {
					c.indexesMu.RUnlock()
					return result, translateIndexErr(err)
				}
				if ci.accel != nil {
					if existed && old != nil {
						_ = ci.accel.remove(label, old.Fields)
					}
					_ = ci.accel.index(label, fields)
				}
			}
			c.indexesMu.RUnlock()
		}

		result.IDs = append(result.IDs, id)
	}

	if err := c.persist(); err != nil {
		return result, err
	}
	return result, nil
}

// FetchData returns the row for each of the given primary keys (or raw
// labels, if the schema has no primary key), in order; a key with no
// matching row yields a nil entry.
func (c *Collection) FetchData(ids []any) []map[string]any {
	vectorField, hasVector := c.config.VectorField()
	out := make([]map[string]any, len(ids))
	c.recordsMu.RLock()
	defer c.recordsMu.RUnlock()
	for i, id := range ids {
		rec, ok := c.records[valueToU64(id)]
		if !ok {
			continue
		}
		row := make(map[string]any, len(rec.Fields)+1)
		for k, v := range rec.Fields {
			row[k] = v
		}
		if hasVector && len(rec.Vector) > 0 {
			row[vectorField.Name] = rec.Vector
		}
		out[i] = row
	}
	return out
}

// DeleteData removes the rows for the given ids. Deleting an absent id
// is not an error.
func (c *Collection) DeleteData(ids []any) error {
	c.recordsMu.Lock()
	removed := make([]*Record, 0, len(ids))
	for _, id := range ids {
		label := valueToU64(id)
		if rec, ok := c.records[label]; ok {
			removed = append(removed, rec)
			delete(c.records, label)
		}
	}
	c.recordsMu.Unlock()

	if len(removed) > 0 {
		c.indexesMu.RLock()
		for _, ci := range c.indexes {
			for _, rec := range removed {
				_ = ci.index.Delete(rec.Label)
				if ci.accel != nil {
					_ = ci.accel.remove(rec.Label, rec.Fields)
				}
			}
		}
		c.indexesMu.RUnlock()
	}
	return c.persist()
}

// DeleteAllData clears every row and replaces every index with a fresh
// empty one of the same configuration, which is cheaper than deleting
// every label one at a time and avoids HNSW tombstone buildup.
func (c *Collection) DeleteAllData() error {
	c.recordsMu.Lock()
	c.records = make(map[uint64]*Record)
	c.recordsMu.Unlock()

	c.indexesMu.Lock()
	dim := c.config.Dimension()
	for name, ci := range c.indexes {
		switch ci.config.IndexType {
		case "hnsw":
			ci.index = index.NewHnswIndex(dim, ci.config.Distance)
		default:
			ci.index = index.NewFlatIndex(dim, ci.config.Distance)
		}
		if ci.accel != nil {
			_ = ci.accel.reset()
		}
		c.indexes[name] = ci
	}
	c.indexesMu.Unlock()
	return c.persist()
}

// Setting returns the value stored under key in the collection's
// auxiliary metadata dictionary.
func (c *Collection) Setting(key string) (any, bool) {
	if c.persistentSettings != nil {
		return c.persistentSettings.Get(key)
	}
	return c.volatileSettings.Get(key)
}

// SetSetting stores value under key in the collection's auxiliary
// metadata dictionary, persisting it immediately for a collection with
// a backing directory.
func (c *Collection) SetSetting(key string, value any) error {
	if c.persistentSettings != nil {
		return c.persistentSettings.Set(key, value)
	}
	c.volatileSettings.Set(key, value)
	return nil
}

// RemoveSetting deletes key from the collection's auxiliary metadata
// dictionary, if present.
func (c *Collection) RemoveSetting(key string) error {
	if c.persistentSettings != nil {
		data := c.persistentSettings.Data()
		delete(data, key)
		return c.persistentSettings.OverrideAll(data)
	}
	c.volatileSettings.Remove(key)
	return nil
}

// Settings returns a snapshot of the collection's auxiliary metadata
// dictionary.
func (c *Collection) Settings() map[string]any {
	if c.persistentSettings != nil {
		return c.persistentSettings.Data()
	}
	return c.volatileSettings.Data()
}

// Count returns the number of rows in the collection.
func (c *Collection) Count() int {
	c.recordsMu.RLock()
	defer c.recordsMu.RUnlock()
	return len(c.records)
}

// SearchByVector runs a nearest-neighbor search against a named index,
// optionally narrowed by a filter-DSL tree (nil means no filter). With
// no filter, limit+offset candidates are requested directly from the
// index and windowed by offset. With a filter, overFetchFactor times as
// many candidates are requested, the filter is applied to each
// survivor's fields, and the first offset survivors are skipped; the
// call does not retry with a larger fetch if fewer than limit rows
// survive. When the filter is a single must/range node on one of the
// index's scalar_index_fields, the accelerator's candidate set is
// scored directly instead and the index is not queried.
func (c *Collection) SearchByVector(indexName string, query []float32, limit, offset int, filterNode any) (CollectionSearchResult, error) {
	c.indexesMu.RLock()
	ci, ok := c.indexes[indexName]
	c.indexesMu.RUnlock()
	if !ok {
		return CollectionSearchResult{}, indexNotFound(indexName)
	}

	if filterNode == nil {
		res, err := ci.index.Search(query, limit+offset)
		if err != nil {
			return CollectionSearchResult{}, translateIndexErr(err)
		}
		return c.windowResult(res, offset, limit), nil
	}

	if candidates, ok := c.acceleratedCandidates(ci, filterNode); ok {
		return c.searchWithinCandidates(ci, query, limit, offset, filterNode, candidates), nil
	}

	f, _ := filter.Parse(filterNode)
	res, err := ci.index.Search(query, (limit+offset)*overFetchFactor)
	if err != nil {
		return CollectionSearchResult{}, translateIndexErr(err)
	}

	c.recordsMu.RLock()
	defer c.recordsMu.RUnlock()
	items := make([]SearchItem, 0, limit)
	skipped := 0
	for i, label := range res.Labels {
		rec, ok := c.records[label]
		if !ok || !f.Matches(rec.Fields) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		items = append(items, c.toSearchItem(rec, res.Scores[i]))
		if len(items) == limit {
			break
		}
	}
	return CollectionSearchResult{Data: items}, nil
}

// acceleratedCandidates checks whether filterNode is a single
// must/range predicate on one of ci's scalar_index_fields, and if so
// returns the accelerator's candidate label set for it.
func (c *Collection) acceleratedCandidates(ci *collectionIndex, filterNode any) (map[uint64]bool, bool) {
	if ci.accel == nil {
		return nil, false
	}
	m, ok := filterNode.(map[string]any)
	if !ok {
		return nil, false
	}
	op, _ := m["op"].(string)
	field, _ := m["field"].(string)
	switch op {
	case "must":
		conds, _ := m["conds"].([]any)
		return ci.accel.candidatesForMust(field, conds)
	case "range":
		return ci.accel.candidatesForRange(field, m["gte"], m["lte"])
	default:
		return nil, false
	}
}

// searchWithinCandidates scores the query directly against the vectors
// of an accelerator-narrowed candidate set, bypassing the index
// entirely, then re-verifies every hit against the real filter
// evaluator before windowing by offset/limit.
func (c *Collection) searchWithinCandidates(ci *collectionIndex, query []float32, limit, offset int, filterNode any, candidates map[uint64]bool) CollectionSearchResult {
	f, _ := filter.Parse(filterNode)
	type scored struct {
		rec   *Record
		score float32
	}
	c.recordsMu.RLock()
	scoredRows := make([]scored, 0, len(candidates))
	for label := range candidates {
		rec, ok := c.records[label]
		if !ok || len(rec.Vector) == 0 || !f.Matches(rec.Fields) {
			continue
		}
		scoredRows = append(scoredRows, scored{rec: rec, score: distance.Score(ci.config.Distance, query, rec.Vector)})
	}
	c.recordsMu.RUnlock()

	sort.Slice(scoredRows, func(i, j int) bool { return scoredRows[i].score > scoredRows[j].score })
	if offset < len(scoredRows) {
		scoredRows = scoredRows[offset:]
	} else {
		scoredRows = nil
	}
	if limit < len(scoredRows) {
		scoredRows = scoredRows[:limit]
	}

	items := make([]SearchItem, len(scoredRows))
	for i, s := range scoredRows {
		items[i] = c.toSearchItem(s.rec, s.score)
	}
	return CollectionSearchResult{Data: items}
}

func (c *Collection) windowResult(res index.SearchResult, offset, limit int) CollectionSearchResult {
	c.recordsMu.RLock()
	defer c.recordsMu.RUnlock()
	items := make([]SearchItem, 0, limit)
	for i := offset; i < len(res.Labels) && len(items) < limit; i++ {
		rec, ok := c.records[res.Labels[i]]
		if !ok {
			continue
		}
		items = append(items, c.toSearchItem(rec, res.Scores[i]))
	}
	return CollectionSearchResult{Data: items}
}

func (c *Collection) toSearchItem(rec *Record, score float32) SearchItem {
	fields := make(map[string]any, len(rec.Fields))
	for k, v := range rec.Fields {
		fields[k] = v
	}
	return SearchItem{ID: c.labelToPK(rec), Score: score, Fields: fields}
}

func (c *Collection) labelToPK(rec *Record) any {
	if pkField, ok := c.config.PrimaryKey(); ok {
		if v, ok := rec.Fields[pkField]; ok {
			return v
		}
	}
	return rec.Label
}

// Close persists the collection (if it has a backing directory).
func (c *Collection) Close() error {
	if c.path == "" {
		return nil
	}
	return c.persist()
}

// DropCollection closes any scalar accelerators, then removes the
// collection's entire backing directory without persisting first.
// For an in-memory collection only the accelerators are closed.
func (c *Collection) DropCollection() error {
	c.indexesMu.Lock()
	for _, ci := range c.indexes {
		if ci.accel != nil {
			ci.accel.Close()
		}
	}
	c.indexesMu.Unlock()
	if c.path == "" {
		return nil
	}
	if err := os.RemoveAll(c.path); err != nil {
		return ioErr(err)
	}
	return nil
}

func (c *Collection) nextLabel() uint64 {
	c.autoIDMu.Lock()
	defer c.autoIDMu.Unlock()
	id := c.nextAutoID
	c.nextAutoID++
	return id
}

type persistedRecord struct {
	Label  uint64         `json:"label"`
	Vector []float32      `json:"vector,omitempty"`
	Fields map[string]any `json:"fields"`
}

type persistedIndexConfig struct {
	Name   string      `json:"name"`
	Config IndexConfig `json:"config"`
}

// persist is a no-op for in-memory collections. Otherwise it
// atomically rewrites collection_config.json and records.json and asks
// every index to save itself under indexes/<name>.
func (c *Collection) persist() error {
	if c.path == "" {
		return nil
	}

	cfgBytes, err := json.MarshalIndent(c.config, "", "  ")
	if err != nil {
		return serializationErr(err, "marshaling collection config")
	}
	if err := atomicWriteFile(filepath.Join(c.path, "collection_config.json"), cfgBytes); err != nil {
		return storageErr(err, "writing collection_config.json")
	}

	c.recordsMu.RLock()
	recs := make([]persistedRecord, 0, len(c.records))
	for _, rec := range c.records {
		recs = append(recs, persistedRecord{Label: rec.Label, Vector: rec.Vector, Fields: rec.Fields})
	}
	c.recordsMu.RUnlock()
	sort.Slice(recs, func(i, j int) bool { return recs[i].Label < recs[j].Label })

	recBytes, err := json.Marshal(recs)
	if err != nil {
		return serializationErr(err, "marshaling records")
	}
	if err := atomicWriteFile(filepath.Join(c.path, "records.json"), recBytes); err != nil {
		return storageErr(err, "writing records.json")
	}

	c.indexesMu.RLock()
	defer c.indexesMu.RUnlock()
	for name, ci := range c.indexes {
		dir := filepath.Join(c.path, "indexes", name)
		if err := ci.index.Save(dir); err != nil {
			return storageErr(err, "saving index %q", name)
		}
		cfgPath := filepath.Join(dir, "index_config.json")
		cfgBytes, err := json.Marshal(persistedIndexConfig{Name: name, Config: ci.config})
		if err != nil {
			return serializationErr(err, "marshaling index config %q", name)
		}
		if err := atomicWriteFile(cfgPath, cfgBytes); err != nil {
			return storageErr(err, "writing index_config.json for %q", name)
		}
	}
	return nil
}

// tryRecover re-reads collection_config.json, records.json, and every
// indexes/<name>/index_config.json + index blob, if present. Unlike a
// records-only recovery, this also restores every index's in-memory
// graph/table instead of requiring a caller to rebuild it by replaying
// upserts, so a reopened collection's search results match what was
// there before it was closed.
func (c *Collection) tryRecover() error {
	if raw, err := os.ReadFile(filepath.Join(c.path, "collection_config.json")); err == nil {
		var cfg CollectionConfig
		if json.Unmarshal(raw, &cfg) == nil {
			c.config = cfg
		}
	}

	maxLabel := uint64(0)
	if raw, err := os.ReadFile(filepath.Join(c.path, "records.json")); err == nil {
		var recs []persistedRecord
		if err := json.Unmarshal(raw, &recs); err != nil {
			return serializationErr(err, "parsing records.json")
		}
		for _, r := range recs {
			c.records[r.Label] = &Record{Label: r.Label, Vector: r.Vector, Fields: r.Fields}
			if r.Label >= maxLabel {
				maxLabel = r.Label + 1
			}
		}
	}
	c.nextAutoID = maxLabel
	if c.nextAutoID == 0 {
		c.nextAutoID = 1
	}

	indexesDir := filepath.Join(c.path, "indexes")
	entries, err := os.ReadDir(indexesDir)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := filepath.Join(indexesDir, name)
		raw, err := os.ReadFile(filepath.Join(dir, "index_config.json"))
		if err != nil {
			continue
		}
		var pic persistedIndexConfig
		if json.Unmarshal(raw, &pic) != nil {
			continue
		}
		cfg := pic.Config
		var idx index.Index
		switch cfg.IndexType {
		case "hnsw":
			idx = index.NewHnswIndex(c.config.Dimension(), cfg.Distance)
		default:
			idx = index.NewFlatIndex(c.config.Dimension(), cfg.Distance)
		}
		if err := idx.Load(dir); err != nil {
			c.logger.Warn("skipping unloadable index on recovery", "index", name, "error", err)
			continue
		}
		var accel *scalarAccelerator
		if len(cfg.ScalarIndexFields) > 0 {
			if a, err := openScalarAccelerator(dir, cfg.ScalarIndexFields); err == nil {
				accel = a
			}
		}
		c.indexes[name] = &collectionIndex{config: cfg, index: idx, accel: accel}
	}
	return nil
}

func translateIndexErr(err error) error {
	if err == nil {
		return nil
	}
	if de, ok := err.(*index.DimensionError); ok {
		return dimensionMismatch(de.Expected, de.Got)
	}
	return storageErr(err, "index operation failed")
}

// rowPK returns the row's primary-key value, if the schema has a
// primary-key field and the row actually provides it. A row missing
// the field falls through to the caller's auto-id path rather than
// erroring.
func rowPK(row map[string]any, pkField string, hasPK bool) (any, bool) {
	if !hasPK {
		return nil, false
	}
	v, ok := row[pkField]
	return v, ok
}

// valueToU64 resolves a primary-key (or bare id) value to the internal
// uint64 label: integers map to themselves, strings are NFC-normalized
// and hashed, and anything else maps to 0.
func valueToU64(v any) uint64 {
	switch t := v.(type) {
	case uint64:
		return t
	case int:
		return uint64(t)
	case int64:
		return uint64(t)
	case float64:
		return uint64(t)
	case float32:
		return uint64(t)
	case string:
		return xxhash.Sum64String(norm.NFC.String(t))
	default:
		return 0
	}
}

// valueToF32Vec converts a JSON-decoded array (or an already-typed
// []float32) into a []float32, dropping any element that is not a
// number.
func valueToF32Vec(v any) []float32 {
	switch t := v.(type) {
	case []float32:
		out := make([]float32, len(t))
		copy(out, t)
		return out
	case []float64:
		out := make([]float32, len(t))
		for i, f := range t {
			out[i] = float32(f)
		}
		return out
	case []any:
		out := make([]float32, 0, len(t))
		for _, e := range t {
			switch n := e.(type) {
			case float64:
				out = append(out, float32(n))
			case float32:
				out = append(out, n)
			case int:
				out = append(out, float32(n))
			}
		}
		return out
	default:
		return nil
	}
}

func atomicWriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	fh, err := os.OpenFile(tmp, os.O_RDWR, 0o644)
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		os.Remove(tmp)
		return err
	}
	if err := fh.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
