package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
)

// lockedBuffer is a bytes.Buffer safe for the aggregator's flush goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) lines() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Split(bytes.TrimSpace(b.buf.Bytes()), []byte("\n"))
}

func TestAggregatorSummarizesOnStop(t *testing.T) {
	var out lockedBuffer
	agg := NewAggregator(slog.New(slog.NewJSONHandler(&out, nil)), 60)
	agg.Start()

	agg.Record(CompUI, "query_changed", slog.String("query", "7"))
	agg.Record(CompUI, "query_changed", slog.String("query", "76"))
	agg.Record(CompUI, "query_changed", slog.String("query", "761"))
	agg.Record(CompSource, "poll")

	if got := agg.Pending(CompUI, "query_changed"); got != 3 {
		t.Errorf("Pending = %d, want 3", got)
	}

	agg.Stop()

	lines := out.lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 summary records, got %d: %s", len(lines), out.buf.String())
	}

	// Sorted by component: source before ui.
	var first, second map[string]any
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(lines[1], &second); err != nil {
		t.Fatal(err)
	}
	if first["event"] != "poll" || first["count"] != float64(1) {
		t.Errorf("unexpected first summary: %v", first)
	}
	if second["event"] != "query_changed" || second["count"] != float64(3) {
		t.Errorf("unexpected second summary: %v", second)
	}
	if second["query"] != "761" {
		t.Errorf("expected last-seen fields, got %v", second["query"])
	}
	if agg.Pending(CompUI, "query_changed") != 0 {
		t.Error("expected entries cleared after flush")
	}
}

func TestAggregatorNilLogger(t *testing.T) {
	agg := NewAggregator(nil, 1)
	agg.Start()
	agg.Record(CompUI, "dropped")
	agg.Stop()
	agg.Stop() // idempotent
}
