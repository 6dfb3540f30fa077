// Package plugin watches a plugin-search-path directory for provider
// manifest files and turns each into a registered provider, so an
// operator can add a constant-table provider without a rebuild.
package plugin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/geopm-project/platformio-go/internal/provider"
	"github.com/geopm-project/platformio-go/internal/provider/constconfig"
	"github.com/geopm-project/platformio-go/pkg/logging"
)

// DebounceInterval is how long the watcher waits after the last fsnotify
// event in a burst before acting on it, absorbing editors that write a
// file in several small operations.
const DebounceInterval = 250 * time.Millisecond

// Registrar is the subset of *orchestrator.Orchestrator the loader needs.
// Defined locally to avoid a dependency from internal/plugin back onto
// internal/orchestrator.
type Registrar interface {
	RegisterProvider(p provider.Provider) error
}

// Loader watches dir for *.yaml provider manifests (the constconfig
// format) and registers each one discovered, via reg.
type Loader struct {
	dir      string
	hostname string
	reg      Registrar

	mu      sync.Mutex
	loaded  map[string]bool // manifest path -> registered
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// NewLoader builds a Loader over dir. hostname is passed through to each
// manifest's constconfig.Load for template rendering context.
func NewLoader(dir, hostname string, reg Registrar) *Loader {
	return &Loader{
		dir:      dir,
		hostname: hostname,
		reg:      reg,
		loaded:   make(map[string]bool),
	}
}

// LoadExisting validates and registers every manifest already present in
// dir at call time, concurrently, failing fast on the first invalid
// manifest.
func (l *Loader) LoadExisting(ctx context.Context) error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isManifest(e.Name()) {
			paths = append(paths, filepath.Join(l.dir, e.Name()))
		}
	}

	type loaded struct {
		path string
		p    *provider.Base
	}
	results := make([]loaded, len(paths))

	g, _ := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			p, err := constconfig.Load(path, l.hostname)
			if err != nil {
				return err
			}
			results[i] = loaded{path: path, p: p}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range results {
		if err := l.reg.RegisterProvider(r.p); err != nil {
			return err
		}
		l.loaded[r.path] = true
		logging.Info("Plugin", "registered provider from manifest %s", r.path)
	}
	return nil
}

// Watch starts an fsnotify watch on dir, registering newly-created
// manifests as they appear. It returns immediately; the watch runs on a
// background goroutine until Stop is called. RegisterProvider is called
// from the debounce timers' goroutines, not from the caller's, so callers
// that also drive the orchestrator from their own goroutine (the "serve"
// command) must serialize the two, e.g. by giving Loader a Registrar that
// forwards onto a channel drained by the orchestrator's own single caller
// thread.
func (l *Loader) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(l.dir); err != nil {
		w.Close()
		return err
	}

	l.mu.Lock()
	l.watcher = w
	l.stopCh = make(chan struct{})
	l.mu.Unlock()

	go l.processEvents(w)
	logging.Info("Plugin", "watching %s for provider manifests", l.dir)
	return nil
}

func (l *Loader) processEvents(w *fsnotify.Watcher) {
	var debounce *time.Timer
	pending := make(map[string]bool)
	var pendingMu sync.Mutex

	flush := func() {
		pendingMu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]bool)
		pendingMu.Unlock()

		for _, path := range paths {
			l.loadOne(path)
		}
	}

	for {
		select {
		case <-l.stopCh:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !isManifest(filepath.Base(ev.Name)) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pendingMu.Lock()
			pending[ev.Name] = true
			pendingMu.Unlock()
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(DebounceInterval, flush)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logging.Error("Plugin", err, "fsnotify error watching %s", l.dir)
		}
	}
}

func (l *Loader) loadOne(path string) {
	l.mu.Lock()
	if l.loaded[path] {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	p, err := constconfig.Load(path, l.hostname)
	if err != nil {
		logging.Error("Plugin", err, "invalid provider manifest %s", path)
		return
	}
	if err := l.reg.RegisterProvider(p); err != nil {
		logging.Error("Plugin", err, "failed to register provider from %s", path)
		return
	}

	l.mu.Lock()
	l.loaded[path] = true
	l.mu.Unlock()
	logging.Info("Plugin", "registered provider from manifest %s", path)
}

// Stop shuts down the background watch goroutine, if running.
func (l *Loader) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher == nil {
		return nil
	}
	close(l.stopCh)
	err := l.watcher.Close()
	l.watcher = nil
	return err
}

func isManifest(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
