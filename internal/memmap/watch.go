package memmap

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gxvtx/gxvtx/internal/logger"
)

// Watcher reloads a RAM image into a Reloadable whenever the file is
// rewritten, then calls OnReload.
type Watcher struct {
	path     string
	target   *Reloadable
	onReload func()
	log      logger.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// Watch starts watching path. The parent directory is watched so that
// editors and tools that replace the file by rename are picked up.
// The target must hold a heap image (see LoadImage); a mapped target is
// rejected with ErrMappedImage.
func Watch(path string, target *Reloadable, onReload func(), log logger.Logger) (*Watcher, error) {
	if target.Mapped() {
		return nil, fmt.Errorf("%s: %w", path, ErrMappedImage)
	}
	if log == nil {
		log = logger.Nop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &Watcher{
		path:     path,
		target:   target,
		onReload: onReload,
		log:      log.With("component", "memmap", "path", path),
		watcher:  fw,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	img, err := LoadImage(w.path)
	if err != nil {
		w.log.Warn("reload RAM image failed", "error", err)
		return
	}
	w.target.Swap(img)
	w.log.Info("RAM image reloaded", "size", img.Size())
	if w.onReload != nil {
		w.onReload()
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
