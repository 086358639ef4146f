package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sigrank/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// Handler receives a payload dropped into the inbox.
type Handler func(ctx context.Context, path string, raw []byte, fetchedAt time.Time)

// Watcher hands every *.json file written to an inbox directory to a Handler once the file has
// been quiet for the settle period.
type Watcher struct {
	dir     string
	settle  time.Duration
	handler Handler
}

func NewWatcher(dir string, settle time.Duration, handler Handler) *Watcher {
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	return &Watcher{dir: dir, settle: settle, handler: handler}
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if w.handler == nil {
		return fmt.Errorf("watcher handler is nil")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s failed: %w", w.dir, err)
	}
	logger.Infof("snapshot watcher: watching %s", w.dir)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(evt.Name), ".json") {
				continue
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			pending[evt.Name] = time.Now()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("snapshot watcher: %v", err)
		case now := <-ticker.C:
			var ready []string
			for path, last := range pending {
				if now.Sub(last) >= w.settle {
					ready = append(ready, path)
					delete(pending, path)
				}
			}
			sort.Strings(ready)
			for _, path := range ready {
				raw, at, err := LoadFile(path)
				if err != nil {
					logger.Warnf("snapshot watcher: read %s failed: %v", path, err)
					continue
				}
				w.handler(ctx, path, raw, at)
			}
		}
	}
}
