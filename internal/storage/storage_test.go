package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Avicted/aicall/internal/callrecord"
)

func TestNopStore(t *testing.T) {
	store := NewNopStore()
	if store == nil {
		t.Fatal("expected non-nil store")
	}
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	repo := store.CallRecords()
	if repo == nil {
		t.Fatal("expected CallRecords() to return a repository")
	}
	if err := repo.Save(ctx, callrecord.Record{ID: "r1", EndedAt: time.Now()}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	recs, err := repo.ListRecent(ctx, 10)
	if err != nil || len(recs) != 0 {
		t.Fatalf("ListRecent() = %v, %v; want empty", recs, err)
	}
	if err := store.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
