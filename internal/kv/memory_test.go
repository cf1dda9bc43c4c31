package kv

import "testing"

func TestMemoryStoreBasics(t *testing.T) {
	s := NewMemoryStore()
	if _, ok := s.Get("a"); ok {
		t.Fatal("expected miss on empty store")
	}
	s.Put("a", []byte("1"))
	v, ok := s.Get("a")
	if !ok || string(v) != "1" {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}
	if !s.Contains("a") {
		t.Fatal("expected Contains(a)")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if !s.Delete("a") {
		t.Fatal("expected Delete(a) to report true")
	}
	if s.Delete("a") {
		t.Fatal("expected second Delete(a) to report false")
	}
}

func TestMemoryStoreGetIsolation(t *testing.T) {
	s := NewMemoryStore()
	v := []byte{1, 2, 3}
	s.Put("k", v)
	v[0] = 99
	got, _ := s.Get("k")
	if got[0] != 1 {
		t.Fatal("Put should copy the input, not alias it")
	}
	got[1] = 77
	got2, _ := s.Get("k")
	if got2[1] != 2 {
		t.Fatal("Get should return a copy, not an alias")
	}
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	s.Put("a", []byte("x"))
	s.Put("b", []byte("y"))
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("Len() after Clear = %d", s.Len())
	}
}

func TestMemoryStoreKeys(t *testing.T) {
	s := NewMemoryStore()
	s.Put("a", []byte("1"))
	s.Put("b", []byte("2"))
	keys := s.Keys()
	if len(keys) != 2 {
		t.Fatalf("Keys() = %v", keys)
	}
}
