/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/Seednode/waterrock/store"
)

func darePool(n int) []Dare {
	pool := make([]Dare, 0, n)
	for i := 1; i <= n; i++ {
		id := strconv.Itoa(i)
		pool = append(pool, Dare{Key: "dare-" + id, ID: id, Challenge: "challenge " + id})
	}

	return pool
}

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func unique(dares []Dare) bool {
	seen := make(map[string]bool)
	for _, d := range dares {
		if seen[d.identity()] {
			return false
		}
		seen[d.identity()] = true
	}

	return true
}

func TestDareText(t *testing.T) {
	tests := []struct {
		name   string
		fields store.Fields
		want   string
	}{
		{"challenge", store.Fields{"id": 1, "challenge": "Sing", "title": "T"}, "Sing"},
		{"title", store.Fields{"id": 1, "title": "Dance"}, "Dance"},
		{"description", store.Fields{"id": 1, "description": "Jump"}, "Jump"},
		{"id", store.Fields{"id": 7}, "Dare 7"},
		{"key", store.Fields{}, "Dare k1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DareFromDoc(store.Doc{ID: "k1", Fields: tt.fields})
			if got := d.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitializeActiveSet(t *testing.T) {
	tests := []struct {
		name string
		pool int
		size int
		want int
	}{
		{"larger pool", 10, 3, 3},
		{"exact pool", 3, 3, 3},
		{"small pool", 2, 3, 2},
		{"empty pool", 0, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRotation(seeded())
			r.SetPool(darePool(tt.pool))
			r.InitializeActiveSet(tt.size)

			active := r.Active()
			if len(active) != tt.want {
				t.Fatalf("len(Active()) = %d, want %d", len(active), tt.want)
			}
			if !unique(active) {
				t.Errorf("Active() = %v, want no duplicates", active)
			}
		})
	}
}

func TestInitializeActiveSetOnlyWhenEmpty(t *testing.T) {
	r := NewRotation(seeded())
	r.SetPool(darePool(10))
	r.InitializeActiveSet(3)
	before := r.Active()

	r.SetPool(darePool(20))
	r.InitializeActiveSet(3)
	after := r.Active()

	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("Active() changed from %v to %v", before, after)
		}
	}
}

func TestResolveRestoresSetSize(t *testing.T) {
	r := NewRotation(seeded())
	r.SetPool(darePool(5))
	r.InitializeActiveSet(3)

	for i := range 50 {
		outcome := Complete
		if i%2 == 1 {
			outcome = Trash
		}

		resolved, delta, err := r.Resolve(i%3, outcome)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if resolved.Key == "" {
			t.Errorf("Resolve() returned an empty dare")
		}

		want := DareComplete
		if outcome == Trash {
			want = DareTrash
		}
		if delta != want {
			t.Errorf("Resolve(%s) delta = %d, want %d", outcome, delta, want)
		}

		active := r.Active()
		if len(active) != 3 {
			t.Fatalf("len(Active()) = %d, want 3", len(active))
		}
		if !unique(active) {
			t.Fatalf("Active() = %v, want no duplicates", active)
		}
	}
}

func TestResolveSmallPoolAllowsDuplicates(t *testing.T) {
	r := NewRotation(seeded())
	r.SetPool(darePool(1))
	r.InitializeActiveSet(3)

	if _, _, err := r.Resolve(0, Complete); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	active := r.Active()
	if len(active) != 1 || active[0].ID != "1" {
		t.Errorf("Active() = %v, want the single pool dare again", active)
	}
}

func TestResolveEmptyPoolShrinks(t *testing.T) {
	r := NewRotation(seeded())
	r.SetPool(darePool(3))
	r.InitializeActiveSet(3)
	r.SetPool(nil)

	if _, _, err := r.Resolve(1, Trash); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := len(r.Active()); got != 2 {
		t.Errorf("len(Active()) = %d, want 2", got)
	}
}

func TestResolveRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		outcome Outcome
	}{
		{"negative index", -1, Complete},
		{"index past end", 3, Complete},
		{"unknown outcome", 0, Outcome("skip")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRotation(seeded())
			r.SetPool(darePool(5))
			r.InitializeActiveSet(3)
			before := r.Active()

			if _, _, err := r.Resolve(tt.index, tt.outcome); !errors.Is(err, ErrValidation) {
				t.Fatalf("Resolve() error = %v, want ErrValidation", err)
			}

			after := r.Active()
			if len(after) != len(before) {
				t.Fatalf("Active() changed from %v to %v", before, after)
			}
			for i := range before {
				if before[i] != after[i] {
					t.Errorf("Active()[%d] = %v, want %v", i, after[i], before[i])
				}
			}
		})
	}
}
