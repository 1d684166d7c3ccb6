// Package notify provides filesystem change notification for files the
// server reloads at runtime, such as the curated collaboration overrides.
package notify

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces the burst of events an editor emits on save
// (truncate+write, or write-to-temp-then-rename) into a single callback.
const debounceDelay = 200 * time.Millisecond

// FileWatcher watches a single file and invokes a callback after it changes.
type FileWatcher struct {
	path     string
	callback func()
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewFileWatcher creates a watcher for path. The callback runs on the
// watcher goroutine and should hand off long work elsewhere.
func NewFileWatcher(path string, callback func()) *FileWatcher {
	return &FileWatcher{
		path:     filepath.Clean(path),
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Start begins watching. The parent directory is watched rather than the
// file itself: editors that save via rename would otherwise leave the
// watch attached to a deleted inode. Call Stop() to clean up.
func (fw *FileWatcher) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(fw.path)); err != nil {
		_ = w.Close()
		return err
	}
	fw.watcher = w

	go fw.loop()
	log.Printf("notify: watching %s", fw.path)
	return nil
}

// Stop shuts down the watcher. Only valid after a successful Start.
func (fw *FileWatcher) Stop() {
	if fw.watcher != nil {
		_ = fw.watcher.Close()
	}
	<-fw.done
}

func (fw *FileWatcher) loop() {
	defer close(fw.done)

	var pending <-chan time.Time
	for {
		select {
		case evt, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != fw.path {
				continue
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				pending = time.After(debounceDelay)
			}
		case <-pending:
			pending = nil
			if fw.callback != nil {
				fw.callback()
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}
