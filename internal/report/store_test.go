package report

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type samplePayload struct {
	Issues int    `json:"issues"`
	Note   string `json:"note"`
}

func TestSaveAndLatest(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, KindValidation, samplePayload{Issues: 1, Note: "first"}); err != nil {
		t.Fatalf("Save(first): %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	id, err := s.Save(ctx, KindValidation, samplePayload{Issues: 3, Note: "second"})
	if err != nil {
		t.Fatalf("Save(second): %v", err)
	}

	rec, err := s.Latest(ctx, KindValidation)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if rec.ID != id {
		t.Errorf("Latest ID = %s, want %s", rec.ID, id)
	}
	if rec.Kind != KindValidation {
		t.Errorf("Kind = %q, want %q", rec.Kind, KindValidation)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}

	var got samplePayload
	if err := json.Unmarshal(rec.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.Note != "second" || got.Issues != 3 {
		t.Errorf("decoded payload = %+v, want the second save", got)
	}
}

func TestLatestNotFound(t *testing.T) {
	s := openStore(t)

	_, err := s.Latest(context.Background(), KindTraffic)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest on empty store: %v, want ErrNotFound", err)
	}
}

func TestListFiltersByKindAndLimits(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Save(ctx, KindDay2, samplePayload{Issues: i}); err != nil {
			t.Fatalf("Save(day2 %d): %v", i, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := s.Save(ctx, KindTraffic, samplePayload{}); err != nil {
		t.Fatalf("Save(traffic): %v", err)
	}

	all, err := s.List(ctx, KindDay2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d records, want 3", len(all))
	}
	for _, rec := range all {
		if rec.Kind != KindDay2 {
			t.Errorf("record %s kind = %q, want %q", rec.ID, rec.Kind, KindDay2)
		}
	}

	// Newest first.
	var newest samplePayload
	if err := json.Unmarshal(all[0].Data, &newest); err != nil {
		t.Fatalf("decode newest: %v", err)
	}
	if newest.Issues != 2 {
		t.Errorf("newest payload = %+v, want the last save", newest)
	}

	limited, err := s.List(ctx, KindDay2, 2)
	if err != nil {
		t.Fatalf("List(limit 2): %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("List(limit 2) returned %d records", len(limited))
	}
}
