/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// downStore fails every operation as an unreachable backend would.
type downStore struct{}

var errDown = fmt.Errorf("dial: %w", ErrUnavailable)

func (downStore) List(context.Context, string, string) ([]Doc, error) { return nil, errDown }
func (downStore) Get(context.Context, string, string) (Doc, error)    { return Doc{}, errDown }
func (downStore) Create(context.Context, string, Fields) (string, error) {
	return "", errDown
}
func (downStore) CreateWithID(context.Context, string, string, Fields) (bool, error) {
	return false, errDown
}
func (downStore) Update(context.Context, string, string, Fields) error    { return errDown }
func (downStore) Set(context.Context, string, string, Fields, bool) error { return errDown }
func (downStore) Delete(context.Context, string, string) (bool, error)    { return false, errDown }
func (downStore) Subscribe(_ string, _ Filter, fn func([]Doc)) func() {
	go fn(nil)
	return func() {}
}
func (downStore) Close() error { return nil }

func TestFallbackDegradesWrites(t *testing.T) {
	ctx := context.Background()
	local := NewMemory()
	f := NewFallback(downStore{}, local, "users", "points", "drinkChoices")
	defer f.Close()

	tests := []struct {
		collection string
		wantErr    bool
	}{
		{"points", false},
		{"users", false},
		{"drinkChoices", false},
		{"dares", true},
		{"admin", true},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			err := f.Set(ctx, tt.collection, "alice", Fields{"points": 10}, true)
			if tt.wantErr {
				if !errors.Is(err, ErrUnavailable) {
					t.Fatalf("Set() error = %v, want ErrUnavailable", err)
				}
				if _, err := local.Get(ctx, tt.collection, "alice"); !errors.Is(err, ErrNotFound) {
					t.Errorf("shared collection %q was written locally", tt.collection)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			doc, err := f.Get(ctx, tt.collection, "alice")
			if err != nil {
				t.Fatalf("Get() through fallback error = %v", err)
			}
			if doc.Fields.Int("points") != 10 {
				t.Errorf("points = %d, want 10", doc.Fields.Int("points"))
			}
		})
	}
}

func TestFallbackDegradesReadsAndSubscriptions(t *testing.T) {
	ctx := context.Background()
	local := NewMemory()
	if err := SeedDataset(ctx, local); err != nil {
		t.Fatal(err)
	}

	f := NewFallback(downStore{}, local, "points")
	defer f.Close()

	docs, err := f.List(ctx, "riddles", "id")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("List() returned %d riddles, want 3", len(docs))
	}

	rec := newRecorder()
	cancel := f.Subscribe("points", nil, rec.record)
	defer cancel()

	if err := f.Set(ctx, "points", "bob", Fields{"points": -5}, true); err != nil {
		t.Fatal(err)
	}

	rec.waitFor(t, func(docs []Doc) bool {
		return len(docs) == 1 && docs[0].Fields.Int("points") == -5
	})
}

func TestFallbackPassesThroughHealthyPrimary(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory()
	local := NewMemory()
	f := NewFallback(primary, local, "points")
	defer f.Close()

	if err := f.Set(ctx, "points", "alice", Fields{"points": 1}, true); err != nil {
		t.Fatal(err)
	}

	if _, err := primary.Get(ctx, "points", "alice"); err != nil {
		t.Errorf("primary missing write: %v", err)
	}
	if _, err := local.Get(ctx, "points", "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("local received write while primary was healthy")
	}
}
