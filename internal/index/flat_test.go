package index

import (
	"os"
	"testing"

	"github.com/diffsec/vectordb/internal/distance"
)

func TestFlatInsertAndSearch(t *testing.T) {
	idx := NewFlatIndex(2, distance.Cosine)
	if err := idx.Insert(1, []float32{1, 0}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Insert(2, []float32{0, 1}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	res, err := idx.Search([]float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Len() != 1 || res.Labels[0] != 1 {
		t.Fatalf("Search() = %+v, want label 1 first", res)
	}
}

func TestFlatDimensionMismatch(t *testing.T) {
	idx := NewFlatIndex(3, distance.L2)
	if err := idx.Insert(1, []float32{1, 2}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if _, err := idx.Search([]float32{1, 2}, 1); err == nil {
		t.Fatal("expected dimension mismatch error on search")
	}
}

func TestFlatUpdateInPlace(t *testing.T) {
	idx := NewFlatIndex(2, distance.InnerProduct)
	idx.Insert(1, []float32{1, 1})
	idx.Insert(1, []float32{5, 5})
	if idx.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (update, not duplicate)", idx.Len())
	}
}

func TestFlatSwapRemoveDelete(t *testing.T) {
	idx := NewFlatIndex(1, distance.L2)
	idx.Insert(1, []float32{1})
	idx.Insert(2, []float32{2})
	idx.Insert(3, []float32{3})
	if err := idx.Delete(2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", idx.Len())
	}
	res, _ := idx.Search([]float32{3}, 10)
	found := map[uint64]bool{}
	for _, l := range res.Labels {
		found[l] = true
	}
	if found[2] {
		t.Fatal("deleted label 2 should not be searchable")
	}
	if !found[1] || !found[3] {
		t.Fatalf("expected labels 1 and 3 to remain, got %v", res.Labels)
	}
}

func TestFlatSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	idx := NewFlatIndex(2, distance.L2)
	idx.Insert(1, []float32{1, 2})
	idx.Insert(2, []float32{3, 4})
	if err := idx.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewFlatIndex(2, distance.L2)
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("Len() after load = %d, want 2", loaded.Len())
	}
	res, err := loaded.Search([]float32{1, 2}, 1)
	if err != nil || res.Labels[0] != 1 {
		t.Fatalf("Search() after load = %+v, err=%v", res, err)
	}
}

func TestFlatNeedsRebuildAlwaysFalse(t *testing.T) {
	idx := NewFlatIndex(1, distance.Cosine)
	idx.Insert(1, []float32{1})
	idx.Delete(1)
	if idx.NeedsRebuild() {
		t.Fatal("flat index never needs rebuild")
	}
}

func TestFlatLoadMissingFile(t *testing.T) {
	idx := NewFlatIndex(1, distance.Cosine)
	if err := idx.Load(os.TempDir() + "/does-not-exist-vectordb"); err == nil {
		t.Fatal("expected error loading nonexistent index file")
	}
}
