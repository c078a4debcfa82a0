package stain

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Scene is a loaded scene document: a surface tree and its layout.
type Scene struct {
	Root   *Surface
	Layout LayoutTable
}

// ImageSources returns the distinct image sources the scene refers to, in
// paint order. Pass them to ResourceCache.Preload to decode ahead of the
// first frame that draws them.
func (s Scene) ImageSources() []string {
	var sources []string
	seen := make(map[string]bool)
	s.Root.Walk(func(n *Surface) bool {
		if n.Image != nil && !seen[n.Image.Source] {
			seen[n.Image.Source] = true
			sources = append(sources, n.Image.Source)
		}
		return true
	})
	return sources
}

// SceneWatcher keeps the latest successfully loaded version of a scene
// document, reloading it whenever the file is written or replaced. A
// reload that fails keeps the previous scene and logs a warning.
type SceneWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	mu      sync.Mutex
	current Scene
	version uint64
	changed chan struct{}
}

// WatchScene loads the document at path and starts watching it. The
// initial load must succeed.
func WatchScene(path string) (*SceneWatcher, error) {
	root, layout, err := LoadSceneFile(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("stain: watch %s: %w", path, err)
	}
	// Editors often save by renaming a temp file over the original, which
	// drops a watch on the file itself, so the directory is watched.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("stain: watch %s: %w", path, err)
	}

	sw := &SceneWatcher{
		path:    filepath.Clean(path),
		watcher: w,
		done:    make(chan struct{}),
		current: Scene{Root: root, Layout: layout},
		version: 1,
		changed: make(chan struct{}, 1),
	}
	sw.wg.Add(1)
	go sw.run()
	return sw, nil
}

func (sw *SceneWatcher) run() {
	defer sw.wg.Done()
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != sw.path {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				sw.reload()
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			Logger().Warn("scene watcher error", "path", sw.path, "error", err)
		}
	}
}

// reload loads the document again and publishes it on success.
func (sw *SceneWatcher) reload() {
	root, layout, err := LoadSceneFile(sw.path)
	if err != nil {
		Logger().Warn("scene reload failed, keeping previous scene", "path", sw.path, "error", err)
		return
	}
	sw.mu.Lock()
	sw.current = Scene{Root: root, Layout: layout}
	sw.version++
	version := sw.version
	sw.mu.Unlock()

	select {
	case sw.changed <- struct{}{}:
	default:
	}
	Logger().Info("scene reloaded", "path", sw.path, "version", version)
}

// Current returns the latest scene and its version. The version starts at 1
// and increases with every successful reload.
func (sw *SceneWatcher) Current() (Scene, uint64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.current, sw.version
}

// Changed receives a value after a successful reload. Several reloads
// between reads are coalesced.
func (sw *SceneWatcher) Changed() <-chan struct{} {
	return sw.changed
}

// Close stops watching.
func (sw *SceneWatcher) Close() error {
	var err error
	sw.once.Do(func() {
		close(sw.done)
		err = sw.watcher.Close()
		sw.wg.Wait()
	})
	return err
}
