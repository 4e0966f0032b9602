package props

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Change describes a persistent property written by any process.
type Change struct {
	Key     string
	Value   string
	Removed bool
}

// Watch reports writes to the persistent property directory until ctx is done. The returned
// channel is closed when watching stops.
func Watch(ctx context.Context, persistDir string) (<-chan Change, error) {
	if err := os.MkdirAll(persistDir, 0o700); err != nil {
		return nil, fmt.Errorf("watching %s: %w", persistDir, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to watch: %w", err)
	}
	if err = watcher.Add(persistDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to add dir watch: %w", err)
	}
	changes := make(chan Change)
	go func() {
		defer close(changes)
		//nolint:errcheck
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				key := filepath.Base(event.Name)
				if !strings.HasPrefix(key, persistPrefix) {
					continue
				}
				change := Change{Key: key}
				switch {
				case event.Has(fsnotify.Remove):
					change.Removed = true
				case event.Has(fsnotify.Create), event.Has(fsnotify.Write), event.Has(fsnotify.Rename):
					b, err := os.ReadFile(event.Name)
					if err != nil {
						continue
					}
					change.Value = strings.TrimRight(string(b), "\n")
				default:
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithFields(log.Fields{"err": err, "dir": persistDir}).Warn("property watch error")
			}
		}
	}()
	return changes, nil
}
