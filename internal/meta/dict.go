// Package meta implements the small key-value metadata dictionaries
// collections use to stash auxiliary JSON-valued
// settings, either purely in memory or synchronously persisted to a
// single JSON file.
package meta

import (
	"encoding/json"
	"sync"

	"github.com/diffsec/vectordb/internal/kv"
)

// VolatileDict is an in-memory string-keyed JSON-value dictionary.
type VolatileDict struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewVolatileDict wraps an initial data map (nil is treated as empty).
func NewVolatileDict(data map[string]any) *VolatileDict {
	if data == nil {
		data = make(map[string]any)
	}
	return &VolatileDict{data: data}
}

func (d *VolatileDict) Get(key string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.data[key]
	return v, ok
}

func (d *VolatileDict) Set(key string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[key] = value
}

func (d *VolatileDict) Remove(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.data, key)
}

// OverrideAll replaces the entire dictionary contents.
func (d *VolatileDict) OverrideAll(data map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if data == nil {
		data = make(map[string]any)
	}
	d.data = data
}

// Data returns a snapshot copy of the dictionary contents.
func (d *VolatileDict) Data() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]any, len(d.data))
	for k, v := range d.data {
		out[k] = v
	}
	return out
}

// PersistentDict is an in-memory dictionary like VolatileDict (without
// a Remove method) that synchronously persists every
// write to a single JSON file via atomic-replace, and loads any
// existing contents at construction, with the given initial values
// taking lower precedence than whatever was already on disk.
type PersistentDict struct {
	mu    sync.RWMutex
	path  string
	data  map[string]any
	store *kv.FileStore
}

// NewPersistentDict opens (or creates) the dictionary backed by path.
func NewPersistentDict(path string, initial map[string]any) *PersistentDict {
	if initial == nil {
		initial = make(map[string]any)
	}
	store := kv.NewFileStore("")
	d := &PersistentDict{path: path, data: initial, store: store}
	if raw, ok := store.Get(path); ok {
		var existing map[string]any
		if json.Unmarshal(raw, &existing) == nil {
			for k, v := range existing {
				d.data[k] = v
			}
		}
	}
	return d
}

func (d *PersistentDict) Get(key string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.data[key]
	return v, ok
}

func (d *PersistentDict) Set(key string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[key] = value
	return d.persistLocked()
}

// OverrideAll replaces the entire dictionary contents and persists it.
func (d *PersistentDict) OverrideAll(data map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if data == nil {
		data = make(map[string]any)
	}
	d.data = data
	return d.persistLocked()
}

// Data returns a snapshot copy of the dictionary contents.
func (d *PersistentDict) Data() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]any, len(d.data))
	for k, v := range d.data {
		out[k] = v
	}
	return out
}

// DropFile deletes the backing file. The dictionary remains usable in
// memory afterward, but further Set/OverrideAll calls will recreate it.
func (d *PersistentDict) DropFile() {
	d.store.Delete(d.path)
}

func (d *PersistentDict) persistLocked() error {
	bytes, err := json.Marshal(d.data)
	if err != nil {
		return err
	}
	return d.store.Put(d.path, bytes)
}
