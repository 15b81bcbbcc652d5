/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Seednode/waterrock/store"
)

// failingWrites rejects writes to one collection.
type failingWrites struct {
	store.Store

	mu         sync.Mutex
	collection string
	pass       int
	once       bool
}

// failOn lets pass writes to collection through and fails the ones after.
// With once set, only a single write fails. An empty collection heals the
// store.
func (f *failingWrites) failOn(collection string, pass int, once bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.collection, f.pass, f.once = collection, pass, once
}

func (f *failingWrites) failing(collection string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.collection == "" || f.collection != collection {
		return false
	}
	if f.pass > 0 {
		f.pass--
		return false
	}
	if f.once {
		f.collection = ""
	}

	return true
}

func (f *failingWrites) CreateWithID(ctx context.Context, collection, id string, data store.Fields) (bool, error) {
	if f.failing(collection) {
		return false, store.ErrUnavailable
	}
	return f.Store.CreateWithID(ctx, collection, id, data)
}

func (f *failingWrites) Set(ctx context.Context, collection, id string, data store.Fields, merge bool) error {
	if f.failing(collection) {
		return store.ErrUnavailable
	}
	return f.Store.Set(ctx, collection, id, data, merge)
}

func seedRiddleGame(t *testing.T, unlocked bool) *Game {
	t.Helper()

	return New(seedRiddleStore(t, unlocked), Options{ActiveDares: 3, Seed: 7})
}

func seedRiddleStore(t *testing.T, unlocked bool) *store.Memory {
	t.Helper()

	m := newMemory(t)

	put(t, m, RiddlesCollection, "riddle-1", store.Fields{"id": 1, "riddle": "What has keys but can't open locks?", "answer": "piano", "hint": "It makes music"})
	put(t, m, RiddlesCollection, "riddle-2", store.Fields{"id": 2, "riddle": "What speaks without a mouth?", "answer": "echo"})
	for i := 1; i <= 5; i++ {
		id := strconv.Itoa(i)
		put(t, m, DaresCollection, "dare-"+id, store.Fields{"id": i, "challenge": "challenge " + id})
	}
	put(t, m, AdminCollection, AdminStateID, store.Fields{"unlocked": unlocked})

	return m
}

func startSession(t *testing.T, g *Game, id string) (*Session, *atomic.Int64) {
	t.Helper()

	views := &atomic.Int64{}
	s := g.NewSession(User{ID: id, Role: id, Username: id, Active: true}, func(View) {
		views.Add(1)
	})
	s.Start()
	t.Cleanup(s.Close)

	return s, views
}

func TestSessionRiddleRound(t *testing.T) {
	ctx := context.Background()
	g := seedRiddleGame(t, true)
	s, views := startSession(t, g, "alice")

	waitFor(t, "first riddle", func() bool {
		v := s.View()
		return v.Gates.Unlocked && v.Puzzle.Actionable && len(v.Dares) == 3 &&
			v.Puzzle.Text == "What has keys but can't open locks?"
	})

	r, err := s.RequestHint(ctx)
	if err != nil || r.Delta != -HintCost || r.Message != MsgHintRevealed {
		t.Fatalf("RequestHint() = %+v, %v", r, err)
	}
	if hint := s.View().Puzzle.Hint; hint != "It makes music" {
		t.Errorf("View().Puzzle.Hint = %q, want the hint", hint)
	}

	r, err = s.SubmitAnswer(ctx, "PIANO ")
	if err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if !r.Correct || r.Delta != AnswerCorrect || r.Points != 20 || r.Message != MsgCorrect {
		t.Errorf("SubmitAnswer() = %+v, want correct with 20 points", r)
	}

	v := s.View()
	if v.Puzzle.Text != "What speaks without a mouth?" || v.Puzzle.Hint != "" {
		t.Errorf("View().Puzzle = %+v, want second riddle without hint", v.Puzzle)
	}

	r, err = s.RequestHint(ctx)
	if err != nil || r.Delta != 0 || r.Message != MsgNoHint {
		t.Errorf("RequestHint(no hint) = %+v, %v, want refund", r, err)
	}

	r, err = s.SubmitAnswer(ctx, "wind")
	if err != nil || r.Correct || r.Points != 15 || r.Message != MsgIncorrect {
		t.Errorf("SubmitAnswer(wrong) = %+v, %v", r, err)
	}

	r, err = s.ResolveDare(ctx, 1, Complete)
	if err != nil || r.Points != 25 || r.Message != MsgDareComplete {
		t.Errorf("ResolveDare() = %+v, %v", r, err)
	}
	if n := len(s.View().Dares); n != 3 {
		t.Errorf("len(View().Dares) = %d, want 3", n)
	}

	if _, err := s.ResolveDare(ctx, 5, Trash); !errors.Is(err, ErrValidation) {
		t.Errorf("ResolveDare(5) error = %v, want ErrValidation", err)
	}

	if points, _ := g.Ledger.Points(ctx, "alice"); points != 25 {
		t.Errorf("Ledger.Points() = %d, want 25", points)
	}
	if views.Load() == 0 {
		t.Errorf("no views were emitted")
	}
}

func dareKeys(v View) []string {
	keys := make([]string, 0, len(v.Dares))
	for _, d := range v.Dares {
		keys = append(keys, d.Key)
	}
	return keys
}

func TestSessionFailedChargeLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	st := &failingWrites{Store: seedRiddleStore(t, true)}
	g := New(st, Options{ActiveDares: 3, Seed: 7})
	s, _ := startSession(t, g, "alice")

	waitFor(t, "first riddle", func() bool {
		v := s.View()
		return v.Puzzle.Actionable && len(v.Dares) == 3
	})
	before := s.View()

	st.failOn(PointsCollection, 0, false)

	if _, err := s.SubmitAnswer(ctx, "piano"); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("SubmitAnswer() error = %v, want ErrUnavailable", err)
	}
	if _, err := s.RequestHint(ctx); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("RequestHint() error = %v, want ErrUnavailable", err)
	}
	if _, err := s.ResolveDare(ctx, 0, Complete); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("ResolveDare() error = %v, want ErrUnavailable", err)
	}

	after := s.View()
	if after.Puzzle != before.Puzzle {
		t.Errorf("View().Puzzle = %+v, want %+v", after.Puzzle, before.Puzzle)
	}
	if !slices.Equal(dareKeys(after), dareKeys(before)) {
		t.Errorf("View().Dares = %v, want %v", dareKeys(after), dareKeys(before))
	}
	if after.Points != 0 {
		t.Errorf("View().Points = %d, want 0", after.Points)
	}

	st.failOn("", 0, false)

	r, err := s.RequestHint(ctx)
	if err != nil || r.Delta != -HintCost || r.Message != MsgHintRevealed {
		t.Errorf("RequestHint() after recovery = %+v, %v, want a charged reveal", r, err)
	}
	r, err = s.SubmitAnswer(ctx, "piano")
	if err != nil || !r.Correct || r.Points != AnswerCorrect-HintCost {
		t.Errorf("SubmitAnswer() after recovery = %+v, %v", r, err)
	}
}

func TestSessionHintRefundFailureReversesCharge(t *testing.T) {
	ctx := context.Background()
	st := &failingWrites{Store: seedRiddleStore(t, true)}
	g := New(st, Options{ActiveDares: 3, Seed: 7})
	s, _ := startSession(t, g, "alice")

	waitFor(t, "first riddle", func() bool {
		return s.View().Puzzle.Actionable
	})
	if _, err := s.SubmitAnswer(ctx, "piano"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	// The charge goes through, the refund fails and the charge is reversed.
	st.failOn(PointsCollection, 1, true)

	if _, err := s.RequestHint(ctx); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("RequestHint(no hint) error = %v, want ErrUnavailable", err)
	}
	if v := s.View(); v.Points != AnswerCorrect {
		t.Errorf("View().Points = %d, want %d", v.Points, AnswerCorrect)
	}
	if points, _ := g.Ledger.Points(ctx, "alice"); points != AnswerCorrect {
		t.Errorf("Ledger.Points() = %d, want %d", points, AnswerCorrect)
	}
}

func TestSessionClueRecordFailureRefunds(t *testing.T) {
	ctx := context.Background()
	st := &failingWrites{Store: seedClueStore(t)}
	g := New(st, Options{Mode: ClueMode, Seed: 7})
	s, _ := startSession(t, g, "alice")

	waitFor(t, "first clue", func() bool {
		return s.View().Puzzle.Text == "first"
	})

	st.failOn(GlobalClueCompletionCollection, 0, false)

	if _, err := s.SubmitAnswer(ctx, "one"); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("SubmitAnswer() error = %v, want ErrUnavailable", err)
	}
	if points, _ := g.Ledger.Points(ctx, "alice"); points != 0 {
		t.Errorf("Ledger.Points() = %d, want 0 after refund", points)
	}
	if v := s.View(); v.Puzzle.Text != "first" || v.Points != 0 {
		t.Errorf("View() = %q with %d points, want first clue with 0", v.Puzzle.Text, v.Points)
	}

	st.failOn("", 0, false)

	r, err := s.SubmitAnswer(ctx, "one")
	if err != nil || !r.Correct || r.Points != AnswerCorrect {
		t.Fatalf("SubmitAnswer() after recovery = %+v, %v", r, err)
	}
}

func TestSessionRiddleDeletedUnderPlayer(t *testing.T) {
	ctx := context.Background()
	g := seedRiddleGame(t, true)
	put(t, g.Store, RiddlesCollection, "riddle-3", store.Fields{"id": 3, "riddle": "What has hands but cannot clap?", "answer": "clock", "hint": "You check it to know the time"})
	s, _ := startSession(t, g, "alice")

	waitFor(t, "first riddle", func() bool {
		return s.View().Puzzle.Text == "What has keys but can't open locks?"
	})
	if _, err := s.RequestHint(ctx); err != nil {
		t.Fatalf("RequestHint() error = %v", err)
	}

	if ok, err := g.Content.DeleteRiddle(ctx, "riddle-1"); err != nil || !ok {
		t.Fatalf("DeleteRiddle() = %v, %v", ok, err)
	}
	waitFor(t, "next riddle", func() bool {
		return s.View().Puzzle.Text == "What speaks without a mouth?"
	})
	if hint := s.View().Puzzle.Hint; hint != "" {
		t.Errorf("View().Puzzle.Hint = %q, want none on the new riddle", hint)
	}

	if _, err := s.SubmitAnswer(ctx, "echo"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if _, err := s.RequestHint(ctx); err != nil {
		t.Fatalf("RequestHint() error = %v", err)
	}

	// Removing an earlier riddle keeps the player where they are.
	if ok, err := g.Content.DeleteRiddle(ctx, "riddle-2"); err != nil || !ok {
		t.Fatalf("DeleteRiddle() = %v, %v", ok, err)
	}
	if err := g.Store.Update(ctx, RiddlesCollection, "riddle-3", store.Fields{"instruction": "look up"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	waitFor(t, "pool update", func() bool {
		return s.View().Puzzle.Instruction == "look up"
	})

	v := s.View()
	if v.Puzzle.Text != "What has hands but cannot clap?" || v.Puzzle.Hint != "You check it to know the time" {
		t.Errorf("View().Puzzle = %+v, want the third riddle with its hint", v.Puzzle)
	}

	r, err := s.RequestHint(ctx)
	if err != nil || r.Delta != 0 || r.Message != MsgHintShown {
		t.Errorf("RequestHint() = %+v, %v, want the hint already shown", r, err)
	}
}

func TestSessionLocked(t *testing.T) {
	ctx := context.Background()
	g := seedRiddleGame(t, false)
	s, _ := startSession(t, g, "bob")

	waitFor(t, "dares", func() bool {
		return len(s.View().Dares) == 3
	})

	v := s.View()
	if v.Puzzle.Actionable || v.Puzzle.Text != MsgComeBackLater {
		t.Errorf("View().Puzzle = %+v, want nothing actionable", v.Puzzle)
	}

	if _, err := s.SubmitAnswer(ctx, "piano"); !errors.Is(err, ErrLocked) {
		t.Errorf("SubmitAnswer() error = %v, want ErrLocked", err)
	}
	if _, err := s.RequestHint(ctx); !errors.Is(err, ErrLocked) {
		t.Errorf("RequestHint() error = %v, want ErrLocked", err)
	}
	if _, err := s.ResolveDare(ctx, 0, Complete); !errors.Is(err, ErrLocked) {
		t.Errorf("ResolveDare() error = %v, want ErrLocked", err)
	}
	if points, _ := g.Ledger.Points(ctx, "bob"); points != 0 {
		t.Errorf("Ledger.Points() = %d, want 0", points)
	}

	if err := g.Gates.SetUnlocked(ctx, true); err != nil {
		t.Fatalf("SetUnlocked() error = %v", err)
	}
	waitFor(t, "unlock broadcast", func() bool {
		return s.View().Puzzle.Actionable
	})
}

func TestSessionDrinkVoteAndProceed(t *testing.T) {
	ctx := context.Background()
	g := seedRiddleGame(t, false)
	s, _ := startSession(t, g, "carol")

	if err := g.Gates.SetCanProceed(ctx, true); err != nil {
		t.Fatalf("SetCanProceed() error = %v", err)
	}
	waitFor(t, "proceed gate", func() bool {
		return s.View().Gates.CanProceed
	})
	if s.View().CanProceed {
		t.Fatalf("CanProceed = true before voting")
	}

	if _, err := s.VoteDrink(ctx, "lemonade"); err != nil {
		t.Fatalf("VoteDrink() error = %v", err)
	}
	waitFor(t, "proceed after vote", func() bool {
		v := s.View()
		return v.CanProceed && v.Drink == "lemonade"
	})
}

func seedClueGame(t *testing.T) *Game {
	t.Helper()

	return New(seedClueStore(t), Options{Mode: ClueMode, Seed: 7})
}

func seedClueStore(t *testing.T) *store.Memory {
	t.Helper()

	m := newMemory(t)

	put(t, m, CluesCollection, "c1", store.Fields{"order": 1, "type": "global", "riddle": "first", "answer": "one", "hint": "a number"})
	put(t, m, CluesCollection, "c2", store.Fields{"order": 2, "type": "person-specific", "riddle": "together", "answer": "two", "assignedTo": []string{"alice", "bob"}})
	put(t, m, CluesCollection, "c3", store.Fields{"order": 3, "type": "global", "riddle": "last", "answer": "three"})
	put(t, m, AdminCollection, AdminStateID, store.Fields{"unlocked": true})

	return m
}

func TestSessionCluesAcrossPlayers(t *testing.T) {
	ctx := context.Background()
	g := seedClueGame(t)
	alice, _ := startSession(t, g, "alice")
	bob, _ := startSession(t, g, "bob")

	for _, s := range []*Session{alice, bob} {
		waitFor(t, "first clue", func() bool {
			v := s.View()
			return v.ClueState == CluePresenting && v.Puzzle.Text == "first"
		})
	}

	r, err := alice.RequestHint(ctx)
	if err != nil || r.Delta != -HintCost {
		t.Fatalf("RequestHint() = %+v, %v", r, err)
	}
	r, err = alice.RequestHint(ctx)
	if err != nil || r.Delta != 0 || r.Message != MsgHintShown {
		t.Fatalf("second RequestHint() = %+v, %v", r, err)
	}

	r, err = alice.SubmitAnswer(ctx, " ONE")
	if err != nil || !r.Correct || r.Points != AnswerCorrect-HintCost {
		t.Fatalf("SubmitAnswer() = %+v, %v", r, err)
	}

	// bob skips the clue alice already solved.
	waitFor(t, "bob skips solved global clue", func() bool {
		return bob.View().Puzzle.Text == "together"
	})
	if points, _ := g.Ledger.Points(ctx, "bob"); points != 0 {
		t.Errorf("bob earned %d points for a clue solved by alice", points)
	}

	r, err = alice.SubmitAnswer(ctx, "two")
	if err != nil || !r.Correct {
		t.Fatalf("SubmitAnswer(two) = %+v, %v", r, err)
	}
	waitFor(t, "alice waits", func() bool {
		v := alice.View()
		return v.ClueState == ClueWaiting && v.Puzzle.Text == MsgWaiting && !v.Puzzle.Actionable
	})

	if _, err := bob.SubmitAnswer(ctx, "two"); err != nil {
		t.Fatalf("bob SubmitAnswer(two) error = %v", err)
	}

	for _, s := range []*Session{alice, bob} {
		waitFor(t, "group advances", func() bool {
			return s.View().Puzzle.Text == "last"
		})
	}

	if _, err := bob.SubmitAnswer(ctx, "three"); err != nil {
		t.Fatalf("bob SubmitAnswer(three) error = %v", err)
	}
	for _, s := range []*Session{alice, bob} {
		waitFor(t, "all clues done", func() bool {
			return s.View().ClueState == ClueCompleted
		})
	}

	if _, err := alice.SubmitAnswer(ctx, "anything"); !errors.Is(err, ErrNoPuzzle) {
		t.Errorf("SubmitAnswer() after completion error = %v, want ErrNoPuzzle", err)
	}
}

func TestSessionCloseStopsViews(t *testing.T) {
	ctx := context.Background()
	g := seedRiddleGame(t, true)
	s, views := startSession(t, g, "dave")

	waitFor(t, "first view", func() bool {
		return views.Load() > 0
	})

	s.Close()
	s.Close()

	before := views.Load()
	if err := g.Gates.SetUnlocked(ctx, false); err != nil {
		t.Fatalf("SetUnlocked() error = %v", err)
	}
	if _, err := g.Ledger.ApplyDelta(ctx, "dave", 10); err != nil {
		t.Fatalf("ApplyDelta() error = %v", err)
	}

	if after := views.Load(); after != before {
		t.Errorf("views after Close = %d, want %d", after, before)
	}
}
