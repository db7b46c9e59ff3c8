package registry

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "hpml-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM training_runs`).Scan(&count); err != nil {
		t.Fatalf("training_runs table missing: %v", err)
	}
}

func TestRecordAndList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	testMAE := 12345.5

	runs := []Run{
		{RunID: "a", CreatedAt: base, Target: "price", NSamples: 100, TrainMAE: 1000, TrainR2: 0.9},
		{RunID: "b", CreatedAt: base.Add(time.Hour), Target: "price", NSamples: 120, TestMAE: &testMAE,
			Metadata: json.RawMessage(`{"model":"Ridge(alpha=1)"}`)},
	}
	for _, r := range runs {
		if err := db.Record(ctx, r); err != nil {
			t.Fatalf("Record %s: %v", r.RunID, err)
		}
	}

	got, err := db.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
	if got[0].RunID != "b" {
		t.Errorf("first run = %s, want b", got[0].RunID)
	}
	if got[0].TestMAE == nil || *got[0].TestMAE != testMAE {
		t.Errorf("test mae = %v, want %v", got[0].TestMAE, testMAE)
	}
	if got[1].TestMAE != nil {
		t.Errorf("run a test mae = %v, want nil", *got[1].TestMAE)
	}
	if string(got[1].Metadata) != "{}" {
		t.Errorf("run a metadata = %s, want {}", got[1].Metadata)
	}
}

func TestRecordReplacesSameID(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.Record(ctx, Run{RunID: "x", CreatedAt: time.Now(), NSamples: 1})
	if err := db.Record(ctx, Run{RunID: "x", CreatedAt: time.Now(), NSamples: 2}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, _ := db.List(ctx, 0)
	if len(got) != 1 || got[0].NSamples != 2 {
		t.Errorf("got %+v, want one run with 2 samples", got)
	}
}

func TestRecordRequiresID(t *testing.T) {
	if err := testDB(t).Record(context.Background(), Run{}); err == nil {
		t.Error("expected error for empty run id")
	}
}

func TestLatest(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r, err := db.Latest(ctx)
	if err != nil || r != nil {
		t.Fatalf("Latest on empty = %v, %v; want nil, nil", r, err)
	}
	_ = db.Record(ctx, Run{RunID: "old", CreatedAt: time.Now().Add(-time.Hour)})
	_ = db.Record(ctx, Run{RunID: "new", CreatedAt: time.Now()})
	r, err = db.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if r.RunID != "new" {
		t.Errorf("latest = %s, want new", r.RunID)
	}
}
