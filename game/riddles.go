/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"sort"

	"github.com/Seednode/waterrock/store"
)

// Puzzle is the part riddles and clues have in common.
type Puzzle struct {
	Riddle      string `json:"riddle"`
	Answer      string `json:"-"`
	Hint        string `json:"-"`
	Instruction string `json:"instruction,omitempty"`
}

func puzzleFromFields(f store.Fields) Puzzle {
	return Puzzle{
		Riddle:      f.String("riddle"),
		Answer:      f.String("answer"),
		Hint:        f.String("hint"),
		Instruction: f.String("instruction"),
	}
}

// Matches reports whether answer is correct, ignoring case and surrounding
// whitespace.
func (p Puzzle) Matches(answer string) bool {
	return matches(answer, p.Answer)
}

// Riddle is a puzzle in the sequential pool, ordered by its numeric id. Key is
// the document key, which admin edits address.
type Riddle struct {
	Puzzle

	Key string `json:"key"`
	ID  int    `json:"id"`
}

func RiddleFromDoc(d store.Doc) Riddle {
	return Riddle{
		Puzzle: puzzleFromFields(d.Fields),
		Key:    d.ID,
		ID:     d.Fields.Int("id"),
	}
}

// HintOutcome describes the result of a hint request.
type HintOutcome int

const (
	HintRevealed HintOutcome = iota
	HintAlreadyShown
	HintMissing
)

// RiddleCursor walks the riddle pool in ascending id order, wrapping back to
// the first riddle after the last. Each player has their own cursor. The
// cursor follows the current riddle by key so pool edits do not move it.
type RiddleCursor struct {
	pool      []Riddle
	index     int
	key       string
	id        int
	hintShown bool
}

// SetPool replaces the pool. The cursor stays on the current riddle while it
// exists; once removed, it moves to the next riddle by id, wrapping to the
// first. A move clears the revealed hint.
func (c *RiddleCursor) SetPool(pool []Riddle) {
	sorted := append([]Riddle(nil), pool...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	c.pool = sorted
	if len(c.pool) == 0 {
		c.index = 0
		return
	}

	if c.key == "" {
		c.moveTo(0)
		return
	}

	next := -1
	for i, r := range c.pool {
		if r.Key == c.key {
			c.index = i
			c.id = r.ID
			return
		}
		if next < 0 && r.ID > c.id {
			next = i
		}
	}
	if next < 0 {
		next = 0
	}

	c.moveTo(next)
}

// moveTo points the cursor at pool[i], clearing the hint when the riddle
// changes.
func (c *RiddleCursor) moveTo(i int) {
	r := c.pool[i]
	if r.Key != c.key {
		c.hintShown = false
	}

	c.index = i
	c.key = r.Key
	c.id = r.ID
}

func (c *RiddleCursor) Index() int {
	return c.index
}

func (c *RiddleCursor) HintShown() bool {
	return c.hintShown
}

// Current returns the riddle under the cursor.
func (c *RiddleCursor) Current() (Riddle, bool) {
	if len(c.pool) == 0 {
		return Riddle{}, false
	}
	if c.index >= len(c.pool) {
		c.moveTo(0)
	}

	return c.pool[c.index], true
}

// Next moves past the current riddle and returns the new one.
func (c *RiddleCursor) Next() (Riddle, bool) {
	if len(c.pool) == 0 {
		return Riddle{}, false
	}

	c.moveTo((c.index + 1) % len(c.pool))
	c.hintShown = false

	return c.Current()
}

// Check reports whether answer solves the current riddle and the point delta
// to apply, without moving the cursor.
func (c *RiddleCursor) Check(answer string) (bool, int, error) {
	if isBlank(answer) {
		return false, 0, invalid("please enter an answer")
	}

	r, ok := c.Current()
	if !ok {
		return false, 0, ErrNoPuzzle
	}

	if !r.Matches(answer) {
		return false, AnswerIncorrect, nil
	}

	return true, AnswerCorrect, nil
}

// Submit checks answer like Check, and advances the cursor when it is
// correct.
func (c *RiddleCursor) Submit(answer string) (bool, int, error) {
	correct, delta, err := c.Check(answer)
	if correct {
		c.Next()
	}

	return correct, delta, err
}

// RequestHint reveals the current riddle's hint once. The returned deltas
// are applied in order; a missing hint is charged and then refunded.
func (c *RiddleCursor) RequestHint() (string, HintOutcome, []int, error) {
	r, ok := c.Current()
	if !ok {
		return "", 0, nil, ErrNoPuzzle
	}

	if c.hintShown {
		return r.Hint, HintAlreadyShown, nil, nil
	}

	if r.Hint == "" {
		return "", HintMissing, []int{-HintCost, HintCost}, nil
	}

	c.hintShown = true

	return r.Hint, HintRevealed, []int{-HintCost}, nil
}
