package observability

import (
	"context"
	"testing"
	"time"

	"github.com/hazyhaar/lexpipe/dbopen"
	_ "modernc.org/sqlite"
)

func TestHeartbeatRoundTrip(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("init: %v", err)
	}

	hw := NewHeartbeatWriter(db, "lexpipe-worker", time.Minute)
	if err := hw.WriteHeartbeat(); err != nil {
		t.Fatalf("write heartbeat: %v", err)
	}

	hs, err := LatestHeartbeat(context.Background(), db, "lexpipe-worker", time.Minute)
	if err != nil {
		t.Fatalf("latest heartbeat: %v", err)
	}
	if hs == nil {
		t.Fatal("no heartbeat found")
	}
	if !hs.Alive {
		t.Error("fresh heartbeat should be alive")
	}
	if hs.GoroutinesCount <= 0 {
		t.Errorf("goroutines = %d", hs.GoroutinesCount)
	}
}

func TestLatestHeartbeatMissingWorker(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("init: %v", err)
	}

	hs, err := LatestHeartbeat(context.Background(), db, "nobody", time.Minute)
	if err != nil {
		t.Fatalf("latest heartbeat: %v", err)
	}
	if hs != nil {
		t.Errorf("expected nil, got %+v", hs)
	}
}

func TestStaleHeartbeat(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("init: %v", err)
	}

	old := time.Now().Add(-time.Hour).Unix()
	_, err := db.Exec(`INSERT INTO worker_heartbeats
		(worker_name, hostname, worker_pid, timestamp, goroutines_count, memory_alloc_mb, gc_count)
		VALUES ('w', 'h', 1, ?, 5, 1.0, 0)`, old)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	hs, err := LatestHeartbeat(context.Background(), db, "w", time.Minute)
	if err != nil {
		t.Fatalf("latest heartbeat: %v", err)
	}
	if hs.Alive {
		t.Error("hour-old heartbeat should be stale")
	}
}

func TestCleanupHeartbeats(t *testing.T) {
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("init: %v", err)
	}

	ancient := time.Now().AddDate(0, 0, -30).Unix()
	db.Exec(`INSERT INTO worker_heartbeats
		(worker_name, hostname, worker_pid, timestamp, goroutines_count, memory_alloc_mb, gc_count)
		VALUES ('w', 'h', 1, ?, 5, 1.0, 0)`, ancient)

	n, err := CleanupHeartbeats(context.Background(), db, 7)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}
}
