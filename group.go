package vectordb

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultProjectName is the project every ProjectGroup guarantees
// exists, creating it on open if missing.
const DefaultProjectName = "default"

type groupManifest struct {
	CreatedAt time.Time `yaml:"created_at"`
}

// ProjectGroup owns a set of named projects rooted under a common
// directory, and creates the "default" project on open if it is
// missing. DeleteProject may remove it for the rest of that instance.
type ProjectGroup struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	projects map[string]*Project
}

// OpenProjectGroup creates (if absent) or recovers (if present) a
// project group rooted at dir, creating the default project if it is
// not already present.
func OpenProjectGroup(dir string) (*ProjectGroup, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ioErr(err)
	}
	g := &ProjectGroup{
		path:     dir,
		logger:   slog.Default(),
		projects: make(map[string]*Project),
	}
	if err := g.writeManifestIfAbsent(); err != nil {
		return nil, err
	}
	g.recoverProjects()
	if _, ok := g.projects[DefaultProjectName]; !ok {
		p, err := OpenProject(DefaultProjectName, filepath.Join(dir, DefaultProjectName))
		if err != nil {
			return nil, err
		}
		g.projects[DefaultProjectName] = p
	}
	return g, nil
}

// CreateProject creates a new, empty project. It is an error to create
// a project that already exists, including "default".
func (g *ProjectGroup) CreateProject(name string) (*Project, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.projects[name]; exists {
		return nil, projectAlreadyExists(name)
	}
	p, err := OpenProject(name, filepath.Join(g.path, name))
	if err != nil {
		return nil, err
	}
	g.projects[name] = p
	return p, nil
}

// Project returns the named project.
func (g *ProjectGroup) Project(name string) (*Project, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.projects[name]
	if !ok {
		return nil, projectNotFound(name)
	}
	return p, nil
}

// ListProjects returns the names of every project in the group.
func (g *ProjectGroup) ListProjects() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.projects))
	for name := range g.projects {
		out = append(out, name)
	}
	return out
}

// DeleteProject removes a project and everything in it. Deleting the
// default project is permitted rather than refused: callers that want
// to keep a default around can simply recreate it, and OpenProjectGroup
// will recreate an empty one on the next open regardless.
func (g *ProjectGroup) DeleteProject(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.projects[name]
	if !ok {
		return nil
	}
	delete(g.projects, name)
	for _, colName := range p.ListCollections() {
		if err := p.DropCollection(colName); err != nil {
			return err
		}
	}
	if p.path == "" {
		return nil
	}
	if err := os.RemoveAll(p.path); err != nil {
		return ioErr(err)
	}
	return nil
}

// Close persists every open project.
func (g *ProjectGroup) Close() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for name, p := range g.projects {
		if err := p.Close(); err != nil {
			return wrapErr(ErrStorage, err, "closing project %q", name)
		}
	}
	return nil
}

func (g *ProjectGroup) writeManifestIfAbsent() error {
	path := filepath.Join(g.path, "manifest.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := yaml.Marshal(groupManifest{CreatedAt: time.Now()})
	if err != nil {
		return serializationErr(err, "marshaling group manifest")
	}
	return atomicWriteFile(path, data)
}

func (g *ProjectGroup) recoverProjects() {
	entries, err := os.ReadDir(g.path)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		p, err := OpenProject(name, filepath.Join(g.path, name))
		if err != nil {
			g.logger.Warn("skipping unrecoverable project", "project", name, "error", err)
			continue
		}
		g.projects[name] = p
	}
}
