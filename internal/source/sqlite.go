package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Marcin0203/1und1-recruitment-task/internal/logging"
	"github.com/Marcin0203/1und1-recruitment-task/internal/salesman"
	"github.com/Marcin0203/1und1-recruitment-task/internal/statedb"
)

const defaultPollInterval = 2 * time.Second

// SQLite serves the directory stored in a statedb database. It polls the
// metadata.last_modified timestamp and reloads when another process (for
// example `salesdeck import`) changes it.
type SQLite struct {
	path     string
	interval time.Duration
}

// NewSQLite returns a SQLite source. interval <= 0 means 2s.
func NewSQLite(path string, interval time.Duration) *SQLite {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &SQLite{path: path, interval: interval}
}

// Watch implements Source.
func (s *SQLite) Watch(ctx context.Context) <-chan Update {
	ch := make(chan Update, 1)
	go s.run(ctx, ch)
	return ch
}

func (s *SQLite) run(ctx context.Context, ch chan<- Update) {
	defer close(ch)

	db, err := statedb.Open(s.path)
	if err != nil {
		if send(ctx, ch, Update{Err: err}) {
			<-ctx.Done()
		}
		return
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		if send(ctx, ch, Update{Err: err}) {
			<-ctx.Done()
		}
		return
	}

	lastModified, err := db.LastModified()
	if err != nil {
		sourceLog.Debug("sqlite_poll_error", slog.String("error", err.Error()))
	}
	if !send(ctx, ch, loadUpdate(db)) {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ts, err := db.LastModified()
			if err != nil {
				sourceLog.Debug("sqlite_poll_error", slog.String("error", err.Error()))
				continue
			}
			if ts == lastModified {
				continue
			}
			lastModified = ts

			logging.Aggregate(logging.CompSource, "sqlite_reload", slog.Int64("last_modified", ts))
			if !send(ctx, ch, loadUpdate(db)) {
				return
			}
		}
	}
}

func loadUpdate(db *statedb.StateDB) Update {
	rows, err := db.LoadSalesmen()
	if err != nil {
		return Update{Err: err}
	}
	list := make([]salesman.Salesman, 0, len(rows))
	for _, r := range rows {
		list = append(list, salesman.Salesman{Name: r.Name, Areas: r.Areas})
	}
	return Update{Salesmen: list}
}

// Import replaces the directory stored in db with list.
func Import(db *statedb.StateDB, list []salesman.Salesman) error {
	rows := make([]statedb.SalesmanRow, 0, len(list))
	for i, s := range list {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("source: import record %d: %w", i, err)
		}
		rows = append(rows, statedb.SalesmanRow{
			ID:    string(s.ID()),
			Name:  s.Name,
			Areas: s.Areas,
			Order: i,
		})
	}
	if err := db.SaveSalesmen(rows); err != nil {
		return err
	}
	sourceLog.Info("directory_imported", slog.Int("count", len(rows)))
	return nil
}
