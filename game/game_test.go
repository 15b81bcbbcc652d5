/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"testing"
	"time"

	"github.com/Seednode/waterrock/store"
)

func newMemory(t *testing.T) *store.Memory {
	t.Helper()

	m := store.NewMemory()
	t.Cleanup(func() {
		_ = m.Close()
	})

	return m
}

func put(t *testing.T, s store.Store, collection, id string, data store.Fields) {
	t.Helper()

	if err := s.Set(context.Background(), collection, id, data, false); err != nil {
		t.Fatalf("Set(%s/%s) error = %v", collection, id, err)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", what)
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		expected string
		want     bool
	}{
		{"exact", "piano", "piano", true},
		{"case and space", "PIANO ", "piano", true},
		{"wrong", "organ", "piano", false},
		{"blank answer", "  ", "", false},
		{"empty expected", "piano", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matches(tt.answer, tt.expected); got != tt.want {
				t.Errorf("matches(%q, %q) = %v, want %v", tt.answer, tt.expected, got, tt.want)
			}
		})
	}
}
