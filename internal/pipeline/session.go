// Package pipeline turns raw search input into the list the UI shows.
//
// A Session receives two kinds of events: QueryChanged for every keystroke
// and AgentActivated when a row is toggled. The typed text is echoed right
// away; filtering waits until the input has been quiet for a while, skips
// repeats of the last settled query, and runs off the owner goroutine.
// Results that were overtaken by a newer query or snapshot are dropped.
//
// All state is owned by a single goroutine. Everything else (echo, the
// debouncer, filter workers, the source consumer, callers) posts ops to it.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Marcin0203/1und1-recruitment-task/internal/logging"
	"github.com/Marcin0203/1und1-recruitment-task/internal/salesman"
	"github.com/Marcin0203/1und1-recruitment-task/internal/source"
)

var pipelineLog = logging.ForComponent(logging.CompPipeline)

// DefaultQuietPeriod is how long input must stay unchanged before a filter runs.
const DefaultQuietPeriod = time.Second

// eventBuffer is how many events may queue up, including before Run starts.
const eventBuffer = 64

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("pipeline: session already running")

// FilterFunc narrows list to the entries matching a raw query.
type FilterFunc func(list []salesman.Salesman, query string) []salesman.Salesman

// Option configures a Session.
type Option func(*Session)

// WithQuietPeriod overrides DefaultQuietPeriod.
func WithQuietPeriod(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.quiet = d
		}
	}
}

// WithFilter replaces salesman.Filter.
func WithFilter(fn FilterFunc) Option {
	return func(s *Session) {
		if fn != nil {
			s.filter = fn
		}
	}
}

// WithLogger replaces the pipeline component logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// op mutates the owned state and reports whether the display changed.
type op func(st *state) bool

type state struct {
	queryText string

	settled    string
	hasSettled bool

	all      []salesman.Salesman
	haveList bool
	filtered []salesman.Salesman
	ready    bool // a filter result has been applied

	// expanded outlives list membership: a row filtered out and back in
	// keeps its flag.
	expanded map[salesman.ID]bool

	sourceErr error

	gen uint64 // bumped for every filter run; older results are stale
}

// Session is one incremental search over a salesman source.
type Session struct {
	src    source.Source
	quiet  time.Duration
	filter FilterFunc
	log    *slog.Logger

	queries *Bus[string]
	echoCh  <-chan string
	feedCh  <-chan string
	states  *Bus[DisplayState]

	ops      chan op
	done     chan struct{}
	doneOnce sync.Once
	started  atomic.Bool

	debouncer *Debouncer
	workers   sync.WaitGroup

	st state // owner goroutine only

	mu      sync.RWMutex
	current DisplayState
}

// New creates a session over src. A nil src never delivers a list.
// Events may be posted before Run; up to 64 of each kind are buffered.
func New(src source.Source, opts ...Option) *Session {
	s := &Session{
		src:     src,
		quiet:   DefaultQuietPeriod,
		filter:  salesman.Filter,
		log:     pipelineLog,
		queries: NewBus[string](),
		states:  NewBus[DisplayState](),
		ops:     make(chan op, eventBuffer),
		done:    make(chan struct{}),
		st:      state{expanded: make(map[salesman.ID]bool)},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echoCh, _ = s.queries.Subscribe(Block, eventBuffer)
	s.feedCh, _ = s.queries.Subscribe(Block, eventBuffer)
	s.debouncer = NewDebouncer(s.quiet, s.settle)
	return s
}

// Run processes events until ctx is done. It returns only after every
// goroutine and timer it started has exited.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.own(gctx) })
	g.Go(func() error { return s.echo(gctx) })
	g.Go(func() error { return s.feed(gctx) })
	if s.src != nil {
		g.Go(func() error { return s.consume(gctx) })
	}

	err := g.Wait()
	s.shutdown()
	return err
}

func (s *Session) shutdown() {
	s.doneOnce.Do(func() { close(s.done) })
	s.debouncer.Stop()
	s.workers.Wait()
	s.queries.Close()
	s.states.Close()
	s.log.Debug("session_stopped")
}

// QueryChanged reports the full current input text. Before Run starts, up
// to 64 calls are buffered; further calls block until Run drains them or
// the session closes.
func (s *Session) QueryChanged(text string) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	return s.queries.Publish(context.Background(), text)
}

// AgentActivated flips the expansion flag of the salesman with id.
func (s *Session) AgentActivated(id salesman.ID) error {
	return s.post(func(st *state) bool {
		if st.expanded[id] {
			delete(st.expanded, id)
		} else {
			st.expanded[id] = true
		}
		return true
	})
}

// Subscribe returns a channel that always holds the newest display state.
// Intermediate states may be skipped. The channel is closed when the
// session stops; call the returned func to unsubscribe earlier.
func (s *Session) Subscribe() (<-chan DisplayState, func()) {
	return s.states.Subscribe(Latest, 1)
}

// State returns the most recent display state.
func (s *Session) State() DisplayState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) post(o op) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.ops <- o:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

func (s *Session) own(ctx context.Context) error {
	defer s.doneOnce.Do(func() { close(s.done) })

	s.publish()
	for {
		select {
		case <-ctx.Done():
			return nil
		case o := <-s.ops:
			if o(&s.st) {
				s.publish()
			}
		}
	}
}

func (s *Session) publish() {
	ds := DisplayState{
		QueryText: s.st.queryText,
		Rows:      Rows(s.st.filtered, s.st.expanded),
		SourceErr: s.st.sourceErr,
		Loaded:    s.st.ready,
	}
	s.mu.Lock()
	s.current = ds
	s.mu.Unlock()
	_ = s.states.Publish(context.Background(), ds)
}

// echo mirrors every keystroke into QueryText without waiting for filtering.
func (s *Session) echo(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case text, ok := <-s.echoCh:
			if !ok {
				return nil
			}
			logging.Aggregate(logging.CompPipeline, "query_changed", slog.String("query", text))
			err := s.post(func(st *state) bool {
				if st.queryText == text {
					return false
				}
				st.queryText = text
				return true
			})
			if err != nil {
				return nil
			}
		}
	}
}

// feed hands every keystroke to the debouncer.
func (s *Session) feed(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case text, ok := <-s.feedCh:
			if !ok {
				return nil
			}
			s.debouncer.Trigger(text)
		}
	}
}

// settle runs on the debouncer's timer once the input has been quiet.
func (s *Session) settle(text string) {
	_ = s.post(func(st *state) bool {
		if st.hasSettled && st.settled == text {
			s.log.Debug("query_unchanged", slog.String("query", text))
			return false
		}
		st.settled = text
		st.hasSettled = true
		s.log.Debug("query_settled", slog.String("query", text))
		s.refilter(st)
		return false
	})
}

// consume applies source snapshots until the source closes its channel.
func (s *Session) consume(ctx context.Context) error {
	updates := s.src.Watch(ctx)
	for u := range updates {
		if err := s.post(s.snapshot(u)); err != nil {
			break
		}
	}
	// Sources close once ctx is done; wait for that so none outlive Run.
	for range updates {
	}
	return nil
}

func (s *Session) snapshot(u source.Update) op {
	return func(st *state) bool {
		if u.Err != nil {
			s.log.Warn("source_error", slog.String("error", u.Err.Error()))
			st.sourceErr = u.Err
			return true
		}
		s.log.Info("snapshot_received", slog.Int("count", len(u.Salesmen)))
		st.all = u.Salesmen
		st.haveList = true
		changed := st.sourceErr != nil
		st.sourceErr = nil
		s.refilter(st)
		return changed
	}
}

// refilter starts a filter run for the current list and settled query.
// Called from the owner goroutine only.
func (s *Session) refilter(st *state) {
	if !st.haveList {
		return
	}
	st.gen++
	gen, list, query := st.gen, st.all, st.settled

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		result := s.filter(list, query)
		_ = s.post(func(st *state) bool {
			if gen != st.gen {
				s.log.Debug("stale_result_dropped",
					slog.Uint64("gen", gen),
					slog.Uint64("current", st.gen),
					slog.String("query", query),
				)
				return false
			}
			st.filtered = result
			st.ready = true
			return true
		})
	}()
}
