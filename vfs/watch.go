package vfs

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quillmark/world/access"
	"github.com/quillmark/world/errs"
)

// Watcher translates fsnotify filesystem events into ChangeSet batches for
// Vfs.NotifyChanges. File content is captured at event time through the
// given access model, so the session applying the batch sees a consistent
// byte snapshot even if the file keeps changing.
type Watcher struct {
	fsw     *fsnotify.Watcher
	model   access.Model
	logger  *slog.Logger
	changes chan ChangeSet
}

// NewWatcher creates a watcher reading captured content through model.
func NewWatcher(model access.Model, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeOther, "create filesystem watcher")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		fsw:     fsw,
		model:   model,
		logger:  logger,
		changes: make(chan ChangeSet, 16),
	}, nil
}

// Add starts watching a directory or file path.
func (w *Watcher) Add(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return errs.Wrapf(err, errs.CodeOther, "watch %s", path)
	}
	return nil
}

// Changes returns the channel of translated event batches. It is closed
// when Run returns.
func (w *Watcher) Changes() <-chan ChangeSet {
	return w.changes
}

// Run pumps events until the context is cancelled or the watcher is
// closed. It must be called at most once.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.changes)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			cs := w.translate(event)
			if cs.IsEmpty() {
				continue
			}
			select {
			case w.changes <- cs:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watcher error", "error", err)
		}
	}
}

func (w *Watcher) translate(event fsnotify.Event) ChangeSet {
	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.logger.Debug("file removed", "path", event.Name)
		return ChangeSet{Removes: []string{event.Name}}
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		content, err := w.model.Content(event.Name)
		if err != nil {
			// A create/write racing with a delete; report it gone.
			if errs.CodeOf(err) == errs.CodeNotFound {
				return ChangeSet{Removes: []string{event.Name}}
			}
			w.logger.Warn("cannot capture changed file", "path", event.Name, "error", err)
			return ChangeSet{}
		}
		mtime, _ := w.model.Mtime(event.Name)
		if mtime.IsZero() {
			mtime = time.Now()
		}
		w.logger.Debug("file changed", "path", event.Name, "bytes", len(content))
		return ChangeSet{Inserts: []FileEntry{{Path: event.Name, Content: content, Mtime: mtime}}}
	default:
		return ChangeSet{}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
