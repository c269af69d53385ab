// Package source supplies the salesman directory to the search pipeline.
//
// A Source emits zero or more full snapshots of the directory. Every
// snapshot replaces the previous one; a failed read is reported as an
// Update carrying Err so consumers can keep showing the last good list.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Marcin0203/1und1-recruitment-task/internal/logging"
	"github.com/Marcin0203/1und1-recruitment-task/internal/salesman"
)

var sourceLog = logging.ForComponent(logging.CompSource)

// Update is one emission of a Source: a complete directory or an error.
type Update struct {
	Salesmen []salesman.Salesman
	Err      error
}

// Source streams directory snapshots. The returned channel is closed once
// ctx is done.
type Source interface {
	Watch(ctx context.Context) <-chan Update
}

// Kind selects a Source implementation.
type Kind string

const (
	KindBuiltin Kind = "builtin"
	KindFile    Kind = "file"
	KindSQLite  Kind = "sqlite"
)

// ErrNoPath is returned when a file or sqlite source has no path configured.
var ErrNoPath = errors.New("source: path is required")

// Options configures New.
type Options struct {
	Kind Kind
	Path string

	// PollInterval is how often the sqlite source checks last_modified (default: 2s).
	PollInterval time.Duration

	// ReloadPerSecond caps how often a file source re-reads its file (default: 2).
	ReloadPerSecond float64
}

// New builds the Source described by opts.
func New(opts Options) (Source, error) {
	switch opts.Kind {
	case "", KindBuiltin:
		return NewStatic(salesman.Builtin()), nil
	case KindFile:
		if opts.Path == "" {
			return nil, ErrNoPath
		}
		if _, err := salesman.FormatFromPath(opts.Path); err != nil {
			return nil, err
		}
		return NewFile(opts.Path, opts.ReloadPerSecond), nil
	case KindSQLite:
		if opts.Path == "" {
			return nil, ErrNoPath
		}
		return NewSQLite(opts.Path, opts.PollInterval), nil
	default:
		return nil, fmt.Errorf("source: unknown kind %q", opts.Kind)
	}
}

// Load returns the first snapshot of src. It is meant for one-shot callers
// such as the CLI, which do not need to follow later changes.
func Load(ctx context.Context, src Source) ([]salesman.Salesman, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	select {
	case u, ok := <-src.Watch(ctx):
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, errors.New("source: closed without a snapshot")
		}
		if u.Err != nil {
			return nil, u.Err
		}
		return u.Salesmen, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// send delivers u unless ctx ends first.
func send(ctx context.Context, ch chan<- Update, u Update) bool {
	select {
	case ch <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
