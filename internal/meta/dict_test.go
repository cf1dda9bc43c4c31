package meta

import (
	"path/filepath"
	"testing"
)

func TestVolatileDictBasics(t *testing.T) {
	d := NewVolatileDict(nil)
	d.Set("a", float64(1))
	v, ok := d.Get("a")
	if !ok || v != float64(1) {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}
	d.Remove("a")
	if _, ok := d.Get("a"); ok {
		t.Fatal("expected a to be removed")
	}
}

func TestVolatileDictOverrideAll(t *testing.T) {
	d := NewVolatileDict(map[string]any{"old": true})
	d.OverrideAll(map[string]any{"new": true})
	if _, ok := d.Get("old"); ok {
		t.Fatal("old key should be gone after OverrideAll")
	}
	if v, ok := d.Get("new"); !ok || v != true {
		t.Fatalf("Get(new) = %v, %v", v, ok)
	}
}

func TestPersistentDictPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.json")
	d1 := NewPersistentDict(path, nil)
	if err := d1.Set("key", "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	d2 := NewPersistentDict(path, map[string]any{"key": "ignored-default"})
	v, ok := d2.Get("key")
	if !ok || v != "value" {
		t.Fatalf("reloaded dict Get(key) = %v, %v, want value from disk", v, ok)
	}
}

func TestPersistentDictDropFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.json")
	d := NewPersistentDict(path, nil)
	d.Set("k", "v")
	d.DropFile()

	reloaded := NewPersistentDict(path, nil)
	if _, ok := reloaded.Get("k"); ok {
		t.Fatal("expected no data after DropFile + reload")
	}
}

func TestPersistentDictOverrideAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.json")
	d := NewPersistentDict(path, nil)
	d.Set("a", float64(1))
	if err := d.OverrideAll(map[string]any{"b": float64(2)}); err != nil {
		t.Fatalf("OverrideAll: %v", err)
	}
	if _, ok := d.Get("a"); ok {
		t.Fatal("expected a to be gone after OverrideAll")
	}
	reloaded := NewPersistentDict(path, nil)
	if v, ok := reloaded.Get("b"); !ok || v != float64(2) {
		t.Fatalf("reloaded Get(b) = %v, %v", v, ok)
	}
}
