package vectordb

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type projectManifest struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// Project owns a set of named collections, each persisted under its
// own subdirectory of the project's root directory.
type Project struct {
	name   string
	path   string
	logger *slog.Logger

	mu          sync.RWMutex
	collections map[string]*Collection
}

// NewProject creates an in-memory project with no backing directory.
func NewProject(name string) *Project {
	return &Project{
		name:        name,
		logger:      slog.Default().With("project", name),
		collections: make(map[string]*Collection),
	}
}

// OpenProject creates (if absent) or recovers (if present) a project
// rooted at dir, scanning its subdirectories for valid collections and
// skipping any that fail to load.
func OpenProject(name, dir string) (*Project, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ioErr(err)
	}
	p := &Project{
		name:        name,
		path:        dir,
		logger:      slog.Default().With("project", name),
		collections: make(map[string]*Collection),
	}
	if err := p.writeManifestIfAbsent(); err != nil {
		return nil, err
	}
	p.recoverCollections()
	return p, nil
}

// Name returns the project's name.
func (p *Project) Name() string { return p.name }

// CreateCollection creates a new, empty collection with the given
// schema. It is an error to create a collection that already exists.
func (p *Project) CreateCollection(config CollectionConfig) (*Collection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.collections[config.Name]; exists {
		return nil, collectionAlreadyExists(config.Name)
	}

	var col *Collection
	if p.path == "" {
		col = NewCollection(config)
	} else {
		c, err := OpenCollection(config, filepath.Join(p.path, config.Name))
		if err != nil {
			return nil, err
		}
		col = c
	}
	p.collections[config.Name] = col
	return col, nil
}

// Collection returns the named collection.
func (p *Project) Collection(name string) (*Collection, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	col, ok := p.collections[name]
	if !ok {
		return nil, collectionNotFound(name)
	}
	return col, nil
}

// HasCollection reports whether name is a known collection.
func (p *Project) HasCollection(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.collections[name]
	return ok
}

// ListCollections returns the names of every collection in the project.
func (p *Project) ListCollections() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.collections))
	for name := range p.collections {
		out = append(out, name)
	}
	return out
}

// DropCollection forgets the named collection and removes its backing
// directory, without persisting it first.
// Dropping an absent collection is not an error.
func (p *Project) DropCollection(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	col, ok := p.collections[name]
	if !ok {
		return nil
	}
	delete(p.collections, name)
	return col.DropCollection()
}

// Close persists every open collection.
func (p *Project) Close() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for name, col := range p.collections {
		if err := col.Close(); err != nil {
			return wrapErr(ErrStorage, err, "closing collection %q", name)
		}
	}
	return nil
}

func (p *Project) writeManifestIfAbsent() error {
	path := filepath.Join(p.path, "manifest.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := yaml.Marshal(projectManifest{Name: p.name, CreatedAt: time.Now()})
	if err != nil {
		return serializationErr(err, "marshaling project manifest")
	}
	return atomicWriteFile(path, data)
}

func (p *Project) recoverCollections() {
	entries, err := os.ReadDir(p.path)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := filepath.Join(p.path, name)
		if _, err := os.Stat(filepath.Join(dir, "collection_config.json")); err != nil {
			continue // not a valid collection directory; skip it
		}
		col, err := OpenCollection(CollectionConfig{}, dir)
		if err != nil {
			p.logger.Warn("skipping unrecoverable collection", "collection", name, "error", err)
			continue
		}
		p.collections[name] = col
	}
}
