/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"slices"
	"testing"
)

func riddlePool() []Riddle {
	return []Riddle{
		{Key: "riddle-3", ID: 3, Puzzle: Puzzle{Riddle: "What has hands but cannot clap?", Answer: "clock", Hint: "You check it to know the time"}},
		{Key: "riddle-1", ID: 1, Puzzle: Puzzle{Riddle: "What has keys but can't open locks?", Answer: "piano", Hint: "It makes music"}},
		{Key: "riddle-2", ID: 2, Puzzle: Puzzle{Riddle: "What speaks without a mouth?", Answer: "echo"}},
	}
}

func TestRiddleCursorOrderAndWrap(t *testing.T) {
	var c RiddleCursor
	c.SetPool(riddlePool())

	answers := []string{"piano", "echo", "clock", "piano"}
	ids := []int{1, 2, 3, 1}

	for i, answer := range answers {
		r, ok := c.Current()
		if !ok {
			t.Fatalf("Current() ok = false")
		}
		if r.ID != ids[i] {
			t.Fatalf("Current().ID = %d, want %d", r.ID, ids[i])
		}

		correct, delta, err := c.Submit(answer)
		if err != nil || !correct || delta != AnswerCorrect {
			t.Fatalf("Submit(%q) = %v, %d, %v, want true, %d, nil", answer, correct, delta, err, AnswerCorrect)
		}
	}
}

func TestRiddleCursorSubmit(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		correct   bool
		delta     int
		wantIndex int
		wantErr   error
	}{
		{"padded uppercase", "PIANO ", true, AnswerCorrect, 1, nil},
		{"wrong", "guitar", false, AnswerIncorrect, 0, nil},
		{"blank", "   ", false, 0, 0, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c RiddleCursor
			c.SetPool(riddlePool())

			correct, delta, err := c.Submit(tt.answer)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Submit() error = %v, want %v", err, tt.wantErr)
			}
			if correct != tt.correct || delta != tt.delta {
				t.Errorf("Submit() = %v, %d, want %v, %d", correct, delta, tt.correct, tt.delta)
			}
			if c.Index() != tt.wantIndex {
				t.Errorf("Index() = %d, want %d", c.Index(), tt.wantIndex)
			}
		})
	}
}

func TestRiddleCursorEmptyPool(t *testing.T) {
	var c RiddleCursor

	if _, ok := c.Current(); ok {
		t.Errorf("Current() ok = true on empty pool")
	}
	if _, _, err := c.Submit("piano"); !errors.Is(err, ErrNoPuzzle) {
		t.Errorf("Submit() error = %v, want ErrNoPuzzle", err)
	}
	if _, _, _, err := c.RequestHint(); !errors.Is(err, ErrNoPuzzle) {
		t.Errorf("RequestHint() error = %v, want ErrNoPuzzle", err)
	}
}

func TestRiddleCursorHintOnce(t *testing.T) {
	var c RiddleCursor
	c.SetPool(riddlePool())

	hint, outcome, deltas, err := c.RequestHint()
	if err != nil || outcome != HintRevealed || hint != "It makes music" || !slices.Equal(deltas, []int{-HintCost}) {
		t.Fatalf("RequestHint() = %q, %v, %v, %v", hint, outcome, deltas, err)
	}

	_, outcome, deltas, err = c.RequestHint()
	if err != nil || outcome != HintAlreadyShown || len(deltas) != 0 {
		t.Fatalf("second RequestHint() = %v, %v, %v, want HintAlreadyShown with no charge", outcome, deltas, err)
	}

	if _, _, err := c.Submit("piano"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if c.HintShown() {
		t.Errorf("HintShown() = true after advancing")
	}
}

func TestRiddleCursorMissingHintRefunds(t *testing.T) {
	var c RiddleCursor
	c.SetPool(riddlePool())
	c.Next()

	_, outcome, deltas, err := c.RequestHint()
	if err != nil || outcome != HintMissing {
		t.Fatalf("RequestHint() = %v, %v, want HintMissing", outcome, err)
	}

	sum := 0
	for _, d := range deltas {
		sum += d
	}
	if sum != 0 || len(deltas) != 2 {
		t.Errorf("RequestHint() deltas = %v, want a charge and matching refund", deltas)
	}
	if c.HintShown() {
		t.Errorf("HintShown() = true for a riddle without a hint")
	}
}

func without(pool []Riddle, key string) []Riddle {
	return slices.DeleteFunc(pool, func(r Riddle) bool {
		return r.Key == key
	})
}

func TestRiddleCursorCheckDoesNotAdvance(t *testing.T) {
	var c RiddleCursor
	c.SetPool(riddlePool())

	correct, delta, err := c.Check("piano")
	if err != nil || !correct || delta != AnswerCorrect {
		t.Fatalf("Check() = %v, %d, %v", correct, delta, err)
	}
	if r, _ := c.Current(); r.ID != 1 {
		t.Errorf("Current().ID = %d after Check, want 1", r.ID)
	}
}

func TestRiddleCursorPoolEdits(t *testing.T) {
	tests := []struct {
		name     string
		advance  int
		remove   string
		wantID   int
		wantHint bool
	}{
		{"current removed moves to next id", 0, "riddle-1", 2, false},
		{"last removed wraps to first", 2, "riddle-3", 1, false},
		{"earlier removed keeps current", 2, "riddle-1", 3, true},
		{"later removed keeps current", 0, "riddle-3", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c RiddleCursor
			c.SetPool(riddlePool())
			for range tt.advance {
				c.Next()
			}
			if _, outcome, _, err := c.RequestHint(); err != nil || outcome != HintRevealed {
				t.Fatalf("RequestHint() = %v, %v, want HintRevealed", outcome, err)
			}

			c.SetPool(without(riddlePool(), tt.remove))

			r, ok := c.Current()
			if !ok || r.ID != tt.wantID {
				t.Fatalf("Current() = %d, %v, want %d", r.ID, ok, tt.wantID)
			}
			if c.HintShown() != tt.wantHint {
				t.Errorf("HintShown() = %v, want %v", c.HintShown(), tt.wantHint)
			}
		})
	}
}

func TestRiddleCursorPoolEmptiedAndRefilled(t *testing.T) {
	var c RiddleCursor
	c.SetPool(riddlePool())
	c.Next()

	c.SetPool(nil)
	if _, ok := c.Current(); ok {
		t.Fatalf("Current() ok = true on empty pool")
	}

	c.SetPool(riddlePool())
	if r, _ := c.Current(); r.ID != 2 {
		t.Errorf("Current().ID = %d after refill, want 2", r.ID)
	}
}

func TestRiddleCursorPoolShrinkKeepsCurrent(t *testing.T) {
	var c RiddleCursor
	c.SetPool(riddlePool())
	c.Next()
	c.Next()

	c.SetPool(riddlePool()[:1])

	r, ok := c.Current()
	if !ok || c.Index() != 0 || r.ID != 3 {
		t.Errorf("Current() = %v at %d, want riddle 3 at 0", r, c.Index())
	}
}
