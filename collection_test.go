package vectordb

import (
	"path/filepath"
	"testing"

	"github.com/diffsec/vectordb/internal/distance"
)

func testConfig() CollectionConfig {
	return CollectionConfig{
		Name: "docs",
		Fields: []FieldDef{
			{Name: "id", Type: FieldString, IsPrimaryKey: true},
			{Name: "embedding", Type: FieldVector, Dim: 3},
			{Name: "category", Type: FieldString},
			{Name: "score", Type: FieldFloat32},
		},
	}
}

func TestUpsertFetchDelete(t *testing.T) {
	c := NewCollection(testConfig())
	if err := c.CreateIndex("main", DefaultIndexConfig()); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	res, err := c.UpsertData([]map[string]any{
		{"id": "a", "embedding": []any{1.0, 0.0, 0.0}, "category": "x", "score": 1.0},
		{"id": "b", "embedding": []any{0.0, 1.0, 0.0}, "category": "y", "score": 2.0},
	})
	if err != nil {
		t.Fatalf("UpsertData: %v", err)
	}
	if len(res.IDs) != 2 || res.IDs[0] != "a" || res.IDs[1] != "b" {
		t.Fatalf("UpsertResult = %+v", res)
	}
	if c.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", c.Count())
	}

	rows := c.FetchData([]any{"a", "missing"})
	if rows[0] == nil || rows[0]["category"] != "x" {
		t.Fatalf("FetchData(a) = %+v", rows[0])
	}
	if rows[1] != nil {
		t.Fatalf("FetchData(missing) = %+v, want nil", rows[1])
	}

	if err := c.DeleteData([]any{"a"}); err != nil {
		t.Fatalf("DeleteData: %v", err)
	}
	if c.Count() != 1 {
		t.Fatalf("Count() after delete = %d, want 1", c.Count())
	}
	if err := c.DeleteData([]any{"a"}); err != nil {
		t.Fatalf("double delete should not error: %v", err)
	}
}

func TestUpsertDataFallsBackToAutoIDWhenPKFieldMissing(t *testing.T) {
	c := NewCollection(testConfig())
	res, err := c.UpsertData([]map[string]any{
		{"embedding": []any{1.0, 0.0, 0.0}, "category": "x"},
		{"id": "b", "embedding": []any{0.0, 1.0, 0.0}, "category": "y"},
	})
	if err != nil {
		t.Fatalf("UpsertData: %v", err)
	}
	if len(res.IDs) != 2 {
		t.Fatalf("UpsertResult = %+v", res)
	}
	if _, ok := res.IDs[0].(uint64); !ok {
		t.Fatalf("expected row missing the PK field to get an auto-assigned uint64 id, got %T %v", res.IDs[0], res.IDs[0])
	}
	if res.IDs[1] != "b" {
		t.Fatalf("UpsertResult.IDs[1] = %v, want \"b\"", res.IDs[1])
	}
	if c.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", c.Count())
	}

	rows := c.FetchData([]any{res.IDs[0]})
	if rows[0] == nil || rows[0]["category"] != "x" {
		t.Fatalf("FetchData(auto-id) = %+v", rows[0])
	}
}

func TestSearchByVectorNoFilter(t *testing.T) {
	c := NewCollection(testConfig())
	c.CreateIndex("main", DefaultIndexConfig())
	c.UpsertData([]map[string]any{
		{"id": "a", "embedding": []any{1.0, 0.0, 0.0}, "category": "x"},
		{"id": "b", "embedding": []any{0.0, 1.0, 0.0}, "category": "y"},
		{"id": "c", "embedding": []any{0.9, 0.1, 0.0}, "category": "x"},
	})

	res, err := c.SearchByVector("main", []float32{1, 0, 0}, 2, 0, nil)
	if err != nil {
		t.Fatalf("SearchByVector: %v", err)
	}
	if len(res.Data) != 2 {
		t.Fatalf("len(Data) = %d, want 2", len(res.Data))
	}
	if res.Data[0].ID != "a" {
		t.Fatalf("top hit = %v, want a", res.Data[0].ID)
	}
}

func TestSearchByVectorWithFilter(t *testing.T) {
	c := NewCollection(testConfig())
	c.CreateIndex("main", DefaultIndexConfig())
	c.UpsertData([]map[string]any{
		{"id": "a", "embedding": []any{1.0, 0.0, 0.0}, "category": "x"},
		{"id": "b", "embedding": []any{0.9, 0.1, 0.0}, "category": "y"},
		{"id": "c", "embedding": []any{0.8, 0.2, 0.0}, "category": "x"},
	})

	filterNode := map[string]any{"op": "must", "field": "category", "conds": []any{"x"}}
	res, err := c.SearchByVector("main", []float32{1, 0, 0}, 10, 0, filterNode)
	if err != nil {
		t.Fatalf("SearchByVector: %v", err)
	}
	if len(res.Data) != 2 {
		t.Fatalf("len(Data) = %d, want 2 (category=x only): %+v", len(res.Data), res.Data)
	}
	for _, item := range res.Data {
		if item.Fields["category"] != "x" {
			t.Fatalf("unexpected hit outside filter: %+v", item)
		}
	}
}

func TestSearchByVectorUnknownIndex(t *testing.T) {
	c := NewCollection(testConfig())
	if _, err := c.SearchByVector("nope", []float32{1, 0, 0}, 1, 0, nil); err == nil {
		t.Fatal("expected error for unknown index")
	}
}

func TestCreateIndexBackfillsExistingRecords(t *testing.T) {
	c := NewCollection(testConfig())
	c.UpsertData([]map[string]any{
		{"id": "a", "embedding": []any{1.0, 0.0, 0.0}, "category": "x"},
	})
	if err := c.CreateIndex("late", DefaultIndexConfig()); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	res, err := c.SearchByVector("late", []float32{1, 0, 0}, 1, 0, nil)
	if err != nil || len(res.Data) != 1 {
		t.Fatalf("backfilled index should find existing record: res=%+v err=%v", res, err)
	}
}

func TestDeleteAllDataResetsIndexes(t *testing.T) {
	c := NewCollection(testConfig())
	c.CreateIndex("main", DefaultIndexConfig())
	c.UpsertData([]map[string]any{
		{"id": "a", "embedding": []any{1.0, 0.0, 0.0}, "category": "x"},
	})
	if err := c.DeleteAllData(); err != nil {
		t.Fatalf("DeleteAllData: %v", err)
	}
	if c.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", c.Count())
	}
	res, _ := c.SearchByVector("main", []float32{1, 0, 0}, 5, 0, nil)
	if len(res.Data) != 0 {
		t.Fatalf("expected empty search after DeleteAllData, got %+v", res.Data)
	}
}

func TestOpenCollectionRecoversAcrossInstances(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs")
	c, err := OpenCollection(testConfig(), dir)
	if err != nil {
		t.Fatalf("OpenCollection: %v", err)
	}
	if err := c.CreateIndex("main", IndexConfig{IndexType: "hnsw", Distance: distance.Cosine}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	c.UpsertData([]map[string]any{
		{"id": "a", "embedding": []any{1.0, 0.0, 0.0}, "category": "x"},
		{"id": "b", "embedding": []any{0.0, 1.0, 0.0}, "category": "y"},
	})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenCollection(CollectionConfig{}, dir)
	if err != nil {
		t.Fatalf("reopen OpenCollection: %v", err)
	}
	if reopened.Count() != 2 {
		t.Fatalf("recovered Count() = %d, want 2", reopened.Count())
	}
	if !reopened.HasIndex("main") {
		t.Fatal("recovered collection should have index 'main'")
	}
	res, err := reopened.SearchByVector("main", []float32{1, 0, 0}, 1, 0, nil)
	if err != nil || len(res.Data) != 1 {
		t.Fatalf("recovered index should be searchable: res=%+v err=%v", res, err)
	}
}

func TestCollectionSettingsPersistAcrossInstances(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs")
	c, err := OpenCollection(testConfig(), dir)
	if err != nil {
		t.Fatalf("OpenCollection: %v", err)
	}
	if err := c.SetSetting("embedder", "text-embed-v1"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if v, ok := c.Setting("embedder"); !ok || v != "text-embed-v1" {
		t.Fatalf("Setting(embedder) = %v, %v", v, ok)
	}

	reopened, err := OpenCollection(CollectionConfig{}, dir)
	if err != nil {
		t.Fatalf("reopen OpenCollection: %v", err)
	}
	if v, ok := reopened.Setting("embedder"); !ok || v != "text-embed-v1" {
		t.Fatalf("recovered Setting(embedder) = %v, %v", v, ok)
	}
	if err := reopened.RemoveSetting("embedder"); err != nil {
		t.Fatalf("RemoveSetting: %v", err)
	}
	if _, ok := reopened.Setting("embedder"); ok {
		t.Fatal("expected embedder setting to be removed")
	}
}

func TestInMemoryCollectionSettingsAreVolatile(t *testing.T) {
	c := NewCollection(testConfig())
	if err := c.SetSetting("k", "v"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if got := c.Settings(); got["k"] != "v" {
		t.Fatalf("Settings() = %+v", got)
	}
}
