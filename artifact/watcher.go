package artifact

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the bundle in dir whenever a new manifest lands there and hands
// every successfully loaded bundle to onReload. A pair that fails to load is logged
// and ignored, so the caller keeps serving the previous one.
func Watch(ctx context.Context, dir string, debounce time.Duration, logger *zap.Logger, onReload func(*Bundle)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		timer := time.NewTimer(debounce)
		if !timer.Stop() {
			<-timer.C
		}
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != ManifestFile {
					continue
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
					timer.Reset(debounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("artifact watcher error", zap.Error(err))
			case <-timer.C:
				bundle, err := Load(dir)
				if err != nil {
					logger.Warn("artifact reload failed, keeping current model", zap.String("dir", dir), zap.Error(err))
					continue
				}
				logger.Info("artifacts reloaded",
					zap.String("dir", dir),
					zap.String("fingerprint", bundle.Manifest.VocabularyFingerprint),
					zap.Time("created_at", bundle.Manifest.CreatedAt))
				onReload(bundle)
			}
		}
	}()
	return nil
}
