package loader

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Watcher reports changes to a single policy file. The parent directory is
// watched so that editors replacing the file via rename are still seen.
type Watcher struct {
	watcher *fsnotify.Watcher
}

func NewWatcher() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{watcher: w}, nil
}

// Watch emits one value per burst of changes to path. Pending notifications
// are coalesced while the receiver is busy. The channel closes with ctx.
func (w *Watcher) Watch(ctx context.Context, path string) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("path", abs))
	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				logger.Debug("policy file changed", zap.String("op", event.Op.String()))
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watch policy file failed", zap.Error(err))
			}
		}
	}()
	return changes, nil
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
