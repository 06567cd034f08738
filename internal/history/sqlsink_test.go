package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLSinkSQLiteMemory(t *testing.T) {
	sink, err := NewSQLSinkFromDSN(":memory:")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()
	events := []Event{
		{Type: EventStart, OccurredAt: now, Unit: "primary", PID: 100, BinPath: "/usr/bin/clash", Config: `{"bin_path":"/usr/bin/clash"}`},
		{Type: EventStart, OccurredAt: now, Unit: "auxiliary", PID: 101, BinPath: "/usr/bin/mihomo"},
		{Type: EventStop, OccurredAt: now.Add(time.Second), Unit: "primary", PID: 100, BinPath: "/usr/bin/clash"},
	}
	for _, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("send %s: %v", e.Type, err)
		}
	}

	got, err := sink.Recent(ctx, "primary", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 primary events, got %d", len(got))
	}
	if got[0].Type != EventStop || got[1].Type != EventStart {
		t.Fatalf("expected newest first, got %v then %v", got[0].Type, got[1].Type)
	}
	if got[1].Config == "" || got[0].Config != "" {
		t.Fatalf("config column not round-tripped: %+v", got)
	}

	all, err := sink.Recent(ctx, "", 2)
	if err != nil {
		t.Fatalf("recent all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("limit not applied: %d", len(all))
	}
}

func TestSQLSinkSQLiteFileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	dsn := "sqlite://" + path

	sink, err := NewSQLSinkFromDSN(dsn)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if err := sink.Send(context.Background(), Event{Type: EventExit, Unit: "primary", PID: 7, BinPath: "/bin/sleep"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	_ = sink.Close()

	// schema creation must be idempotent
	sink, err = NewSQLSinkFromDSN(dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = sink.Close() }()
	got, err := sink.Recent(context.Background(), "primary", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].Type != EventExit || got[0].PID != 7 {
		t.Fatalf("unexpected events after reopen: %+v", got)
	}
	if got[0].OccurredAt.IsZero() {
		t.Fatalf("zero occurred_at should be filled on send")
	}
}

func TestSQLSinkEmptyDSN(t *testing.T) {
	if _, err := NewSQLSinkFromDSN("  "); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLSink{dialect: "postgres"}
	if got := pg.rebind("a = ? AND b = ? LIMIT ?"); got != "a = $1 AND b = $2 LIMIT $3" {
		t.Fatalf("postgres rebind: %q", got)
	}
	lite := &SQLSink{dialect: "sqlite"}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}
}
