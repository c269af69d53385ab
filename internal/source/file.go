package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/Marcin0203/1und1-recruitment-task/internal/logging"
	"github.com/Marcin0203/1und1-recruitment-task/internal/platform"
	"github.com/Marcin0203/1und1-recruitment-task/internal/salesman"
)

// File serves a directory stored in a JSON, TOML or YAML file and re-reads
// it whenever the file is written or recreated.
type File struct {
	path  string
	limit rate.Limit
}

// NewFile returns a File source. perSecond caps re-reads; values <= 0 mean 2/s.
func NewFile(path string, perSecond float64) *File {
	if perSecond <= 0 {
		perSecond = 2
	}
	return &File{path: filepath.Clean(path), limit: rate.Limit(perSecond)}
}

// Watch implements Source.
func (f *File) Watch(ctx context.Context) <-chan Update {
	ch := make(chan Update, 1)
	go f.run(ctx, ch)
	return ch
}

func (f *File) run(ctx context.Context, ch chan<- Update) {
	defer close(ch)

	if !send(ctx, ch, f.read()) {
		return
	}

	// Watch the parent directory: editors replace files by rename, which
	// drops a watch placed on the file itself.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		sourceLog.Warn("file_watcher_create_failed", slog.String("error", err.Error()))
		<-ctx.Done()
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		sourceLog.Warn("file_watcher_add_failed", slog.String("dir", dir), slog.String("error", err.Error()))
		<-ctx.Done()
		return
	}

	if warning := platform.FsnotifyWarning(f.path); warning != "" {
		sourceLog.Warn("file_watch_unreliable", slog.String("path", f.path), slog.String("reason", warning))
	}

	limiter := rate.NewLimiter(f.limit, 1)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !f.relevant(event) {
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			// Events that queued up while throttled are covered by this read.
			f.drain(watcher)

			logging.Aggregate(logging.CompSource, "file_reload", slog.String("path", f.path))
			if !send(ctx, ch, f.read()) {
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			sourceLog.Warn("file_watcher_error", slog.String("error", err.Error()))
		}
	}
}

func (f *File) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != f.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create) != 0
}

func (f *File) drain(watcher *fsnotify.Watcher) {
	for {
		select {
		case _, ok := <-watcher.Events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (f *File) read() Update {
	format, err := salesman.FormatFromPath(f.path)
	if err != nil {
		return Update{Err: err}
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return Update{Err: fmt.Errorf("source: read %s: %w", f.path, err)}
	}
	list, err := salesman.Decode(data, format)
	if err != nil {
		sourceLog.Warn("file_decode_failed", slog.String("path", f.path), slog.String("error", err.Error()))
		return Update{Err: fmt.Errorf("source: decode %s: %w", f.path, err)}
	}
	return Update{Salesmen: list}
}
