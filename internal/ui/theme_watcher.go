package ui

import (
	"context"
	"log/slog"

	dark "github.com/thiagokokada/dark-mode-go"
)

// ThemeWatcher reports OS dark mode switches while theme = "system".
type ThemeWatcher struct {
	changes chan bool // true=dark; holds only the newest value
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewThemeWatcher starts watching until ctx ends or Close is called.
// Returns nil when the platform offers no dark mode notifications.
func NewThemeWatcher(ctx context.Context) *ThemeWatcher {
	ctx, cancel := context.WithCancel(ctx)

	events, errs, err := dark.WatchDarkMode(ctx)
	if err != nil {
		cancel()
		uiLog.Warn("theme_watcher_init_failed", slog.String("error", err.Error()))
		return nil
	}

	tw := &ThemeWatcher{
		changes: make(chan bool, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go tw.run(ctx, events, errs)
	return tw
}

func (tw *ThemeWatcher) run(ctx context.Context, events <-chan bool, errs <-chan error) {
	defer close(tw.done)
	defer close(tw.changes)
	for {
		select {
		case <-ctx.Done():
			return
		case isDark, ok := <-events:
			if !ok {
				return
			}
			// Replace an unread value; only the latest mode matters.
			select {
			case <-tw.changes:
			default:
			}
			tw.changes <- isDark
		case err, ok := <-errs:
			if ok && err != nil {
				uiLog.Warn("theme_watcher_error", slog.String("error", err.Error()))
			}
		}
	}
}

// ChangeChannel delivers the new mode (true=dark). Closed after Close.
func (tw *ThemeWatcher) ChangeChannel() <-chan bool {
	return tw.changes
}

// Close stops the watcher and waits for it to exit. Safe to call more than once.
func (tw *ThemeWatcher) Close() {
	tw.cancel()
	<-tw.done
}
