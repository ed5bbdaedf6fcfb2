package pricing

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch re-runs a manual refresh whenever the pricing config file changes
// on disk, so an operator edit takes effect without restarting. Blocks
// until ctx is cancelled. Watching is best-effort: if the watcher cannot
// be created the function returns and the loader keeps serving its
// current snapshot.
func (l *Loader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors replace files rather than write in
	// place, which drops a watch on the file itself.
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		return err
	}

	// Debounce bursts of events from a single save.
	var timer *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(l.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(250*time.Millisecond, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			if l.Refresh(ctx, MethodManual) {
				log.Printf("pricing: config %s changed, table reloaded (%d models)",
					l.path, l.Active().Len())
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("pricing: watcher error: %v", err)
		}
	}
}
