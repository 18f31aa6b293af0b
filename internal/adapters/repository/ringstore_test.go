package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

func record(id int) RunRecord {
	return RunRecord{ID: strconv.Itoa(id), State: "completed"}
}

func TestRingStore_RecordAndRecent(t *testing.T) {
	s := NewRingStore(WithCapacity(3))
	ctx := context.Background()

	if c := s.Count(ctx); c != 0 {
		t.Errorf("expected empty store, got %d", c)
	}

	for i := 1; i <= 2; i++ {
		if err := s.Record(ctx, record(i)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	// Newest first.
	if got[0].ID != "2" || got[1].ID != "1" {
		t.Errorf("unexpected order: %v, %v", got[0].ID, got[1].ID)
	}
}

func TestRingStore_EvictsOldest(t *testing.T) {
	s := NewRingStore(WithCapacity(3))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := s.Record(ctx, record(i)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	if c := s.Count(ctx); c != 3 {
		t.Errorf("expected count 3, got %d", c)
	}

	got, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	want := []string{"5", "4", "3"}
	for i, w := range want {
		if got[i].ID != w {
			t.Errorf("run %d: expected %s, got %s", i, w, got[i].ID)
		}
	}
}

func TestRingStore_InvalidLimit(t *testing.T) {
	s := NewRingStore()
	_, err := s.Recent(context.Background(), 0)
	if !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}
