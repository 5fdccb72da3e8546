package snapshot

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// FileWatcher feeds a memory-only store from the snapshot file written by the
// scraper process. Publishing through the store keeps trend computation
// working on the reader side.
type FileWatcher struct {
	Store    *Store
	Path     string
	Interval time.Duration
}

// Run polls the file until the context is cancelled. Read failures keep the
// last good snapshot.
func (w *FileWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refresh()
		}
	}
}

func (w *FileWatcher) refresh() {
	snap, err := LoadFile(w.Path)
	if err != nil {
		log.Errorf("failed to read snapshot file: %v", err)
		return
	}
	if len(snap) == 0 {
		return
	}
	if err := w.Store.Publish(snap); err != nil {
		log.Errorf("failed to publish snapshot: %v", err)
	}
}
