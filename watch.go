package vectordb

import "github.com/fsnotify/fsnotify"

// ExternalChange reports that something other than this process's own
// API touched a watched directory tree.
type ExternalChange struct {
	Path string
	Op   string
}

// watchDir starts an fsnotify watcher rooted at dir and returns a
// channel of external changes observed there, plus a stop function.
// The store tolerates another process holding the directory open
// read-only; this is a best-effort signal for callers (e.g. a cache
// layer) that want to notice when that assumption is violated, not a
// correctness dependency of the store itself.
func watchDir(dir string) (<-chan ExternalChange, func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, ioErr(err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, nil, ioErr(err)
	}

	out := make(chan ExternalChange)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				select {
				case out <- ExternalChange{Path: event.Name, Op: event.Op.String()}:
				case <-done:
					return
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		close(done)
		w.Close()
	}
	return out, stop, nil
}

// WatchDir watches the project's backing directory for changes made
// outside this Project's own API, e.g. by another process sharing the
// same data directory. It returns an error if the project is
// in-memory only.
func (p *Project) WatchDir() (<-chan ExternalChange, func(), error) {
	if p.path == "" {
		return nil, nil, invalidConfig("project %q has no backing directory to watch", p.name)
	}
	return watchDir(p.path)
}

// WatchDir watches the project group's root directory for changes
// made outside this ProjectGroup's own API.
func (g *ProjectGroup) WatchDir() (<-chan ExternalChange, func(), error) {
	return watchDir(g.path)
}
