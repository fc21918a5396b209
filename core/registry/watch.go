package registry

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dbbridge/dbbridge/core/logging"
)

// Watcher reloads a registry file when it changes on disk. Lookups through
// the watcher always see the most recently loaded generation; a broken edit
// keeps the previous generation alive.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onReload func(*Registry)

	mu      sync.RWMutex
	current *Registry

	done chan struct{}
}

// Watch loads the registry at path and starts watching it for changes.
// onReload, when non-nil, runs after every successful reload.
func Watch(path string, onReload func(*Registry)) (*Watcher, error) {
	reg, err := Load(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		onReload: onReload,
		current:  reg,
		done:     make(chan struct{}),
	}
	go w.run(path)
	return w, nil
}

// Registry returns the current registry generation.
func (w *Watcher) Registry() *Registry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops watching. The last loaded generation stays readable.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) run(path string) {
	log := logging.New("registry")

	reload := make(chan struct{}, 1)
	var debounce *time.Timer

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Editors often replace the file rather than writing in place.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("registry watch error: %v", err)
		case <-reload:
			reg, err := Load(path)
			if err != nil {
				log.Errorf("registry reload failed, keeping previous generation: %v", err)
				continue
			}

			w.mu.Lock()
			w.current = reg
			w.mu.Unlock()

			log.Infof("registry reloaded from %s (%d entries)", path, len(reg.connections))
			if w.onReload != nil {
				w.onReload(reg)
			}

			// Re-arm in case the file was replaced.
			_ = w.watcher.Add(path)
		}
	}
}
