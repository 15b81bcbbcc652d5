/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"

	"github.com/Seednode/waterrock/store"
)

// Mode selects which puzzle track the dashboard shows.
type Mode string

const (
	RiddleMode Mode = "riddles"
	ClueMode   Mode = "clues"
)

// Player-facing messages.
const (
	MsgCorrect       = "CORRECT! Answer accepted."
	MsgIncorrect     = "INCORRECT. Answer rejected."
	MsgHintRevealed  = "Hint revealed. -30 points"
	MsgHintShown     = "Hint already shown"
	MsgNoHint        = "No hint available for this riddle"
	MsgDareComplete  = "Dare completed! +10 points"
	MsgDareTrashed   = "Dare trashed. -5 points"
	MsgComeBackLater = "COME BACK LATER"
	MsgWaiting       = "WAIT FOR OTHER PLAYERS TO FINISH THEIR CLUES"
	MsgVoted         = "Vote recorded"
)

// Options configures a Game.
type Options struct {
	Mode        Mode
	ActiveDares int
	// Seed fixes the dare shuffles, for tests. Zero seeds randomly.
	Seed uint64
}

// Game bundles the shared services sessions are built from.
type Game struct {
	Store       store.Store
	Ledger      *Ledger
	Gates       *Gates
	Users       *Users
	Drinks      *Drinks
	Content     *Content
	Progression *Progression

	mode        Mode
	activeDares int
	seed        uint64
}

func New(s store.Store, opts Options) *Game {
	if opts.Mode == "" {
		opts.Mode = RiddleMode
	}
	if opts.ActiveDares <= 0 {
		opts.ActiveDares = 3
	}

	return &Game{
		Store:       s,
		Ledger:      NewLedger(s),
		Gates:       NewGates(s),
		Users:       NewUsers(s),
		Drinks:      NewDrinks(s),
		Content:     NewContent(s),
		Progression: NewProgression(s),
		mode:        opts.Mode,
		activeDares: opts.ActiveDares,
		seed:        opts.Seed,
	}
}

func (g *Game) Mode() Mode {
	return g.mode
}

// Result reports the outcome of a player action.
type Result struct {
	Correct bool   `json:"correct,omitempty"`
	Delta   int    `json:"delta"`
	Points  int    `json:"points"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// DareView is one entry of the active set as shown to the player.
type DareView struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Text  string `json:"text"`
}

// PuzzleView is the riddle or clue a player can act on right now.
type PuzzleView struct {
	Text        string `json:"text"`
	Instruction string `json:"instruction,omitempty"`
	Hint        string `json:"hint,omitempty"`
	Actionable  bool   `json:"actionable"`
}

// View is the full state pushed to a player after every change.
type View struct {
	UserID     string     `json:"user_id"`
	Username   string     `json:"username"`
	Role       string     `json:"role"`
	Mode       Mode       `json:"mode"`
	Points     int        `json:"points"`
	Gates      GateState  `json:"gates"`
	Dares      []DareView `json:"dares"`
	Puzzle     PuzzleView `json:"puzzle"`
	ClueState  ClueState  `json:"clue_state,omitempty"`
	Drink      string     `json:"drink,omitempty"`
	CanProceed bool       `json:"can_proceed"`
}

// Session is one player's live view of the game. Store callbacks and player
// actions may arrive concurrently; all of them are serialised on mu and each
// ends by pushing a fresh View to the listener.
type Session struct {
	game   *Game
	user   User
	onView func(View)

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	cancels  []func()
	closed   bool
	gates    GateState
	points   int
	drink    string
	rotation *Rotation
	riddles  RiddleCursor

	clues     []Clue
	progress  Progress
	peers     map[string]Progress
	clueView  ClueView
	clueHints map[string]bool

	watching  string
	watchDone bool
	unwatch   func()
}

// NewSession prepares a session for user. onView must not block.
func (g *Game) NewSession(user User, onView func(View)) *Session {
	seed := g.seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		game:      g,
		user:      user,
		onView:    onView,
		ctx:       ctx,
		cancel:    cancel,
		rotation:  NewRotation(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))),
		progress:  Progress{UserID: user.ID},
		peers:     make(map[string]Progress),
		clueView:  ClueView{State: ClueLocked},
		clueHints: make(map[string]bool),
	}
}

func (s *Session) User() User {
	return s.user
}

// Start subscribes to everything the player's view depends on.
func (s *Session) Start() {
	st := s.game.Store

	cancels := []func(){
		s.game.Gates.Subscribe(s.onGates),
		st.Subscribe(DaresCollection, nil, s.onDares),
		st.Subscribe(PointsCollection, store.ByID(s.user.ID), s.onPoints),
		st.Subscribe(DrinkChoicesCollection, store.ByID(s.user.ID), s.onDrink),
	}

	switch s.game.mode {
	case ClueMode:
		cancels = append(cancels,
			st.Subscribe(CluesCollection, nil, s.onClues),
			st.Subscribe(ClueProgressCollection, nil, s.onProgress),
		)
	default:
		cancels = append(cancels, st.Subscribe(RiddlesCollection, nil, s.onRiddles))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		for _, cancel := range cancels {
			cancel()
		}
		return
	}

	s.cancels = cancels
}

// Close releases every subscription the session holds.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	s.cancel()

	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil

	s.unwatchLocked()
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.viewLocked()
}

func (s *Session) onGates(state GateState) {
	s.update(func() {
		s.gates = state
		s.refreshClueLocked()
	})
}

func (s *Session) onDares(docs []store.Doc) {
	s.update(func() {
		pool := make([]Dare, 0, len(docs))
		for _, d := range docs {
			pool = append(pool, DareFromDoc(d))
		}
		s.rotation.SetPool(pool)
		s.rotation.InitializeActiveSet(s.game.activeDares)
	})
}

func (s *Session) onRiddles(docs []store.Doc) {
	s.update(func() {
		pool := make([]Riddle, 0, len(docs))
		for _, d := range docs {
			pool = append(pool, RiddleFromDoc(d))
		}
		s.riddles.SetPool(pool)
	})
}

func (s *Session) onPoints(docs []store.Doc) {
	s.update(func() {
		s.points = 0
		if len(docs) > 0 {
			s.points = docs[0].Fields.Int("points")
		}
	})
}

func (s *Session) onDrink(docs []store.Doc) {
	s.update(func() {
		s.drink = ""
		if len(docs) > 0 {
			s.drink = docs[0].Fields.String("drink")
		}
	})
}

func (s *Session) onClues(docs []store.Doc) {
	s.update(func() {
		clues := make([]Clue, 0, len(docs))
		for _, d := range docs {
			clues = append(clues, ClueFromDoc(d))
		}
		s.clues = clues
		s.refreshClueLocked()
	})
}

func (s *Session) onProgress(docs []store.Doc) {
	s.update(func() {
		peers := make(map[string]Progress, len(docs))
		for _, d := range docs {
			p := ProgressFromFields(d.ID, d.Fields)
			if d.ID == s.user.ID {
				if p.Supersedes(s.progress) {
					s.progress = p
				}
				continue
			}
			peers[d.ID] = p
		}
		s.peers = peers
		s.refreshClueLocked()
	})
}

func (s *Session) onGlobalCompletion(clueID string, f store.Fields) {
	s.update(func() {
		if s.watching != clueID {
			return
		}
		s.watchDone = f.Bool("isCompleted")
		s.refreshClueLocked()
	})
}

// update applies fn under the session lock and pushes the resulting view.
func (s *Session) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	fn()
	s.emitLocked()
}

func (s *Session) emitLocked() {
	if s.onView != nil {
		s.onView(s.viewLocked())
	}
}

// refreshClueLocked recomputes the clue view from the latest snapshots,
// performing the automatic transitions: leaving the waiting state once the
// group is done and skipping global clues someone already solved.
func (s *Session) refreshClueLocked() {
	if s.game.mode != ClueMode {
		return
	}

	prog := s.game.Progression

	// Every pass either settles or strictly advances progress, so the number
	// of clues bounds the loop.
	for range len(s.clues) + 2 {
		if s.gates.Unlocked && s.progress.WaitingForOthers {
			next, advanced, err := prog.ResolveWaiting(s.ctx, s.progress, s.clues, s.peers)
			if err != nil {
				log.Printf("GAMES: Failed to release %s from waiting: %v", s.user.ID, err)
			}
			if advanced {
				s.progress = next
				continue
			}
		}

		view := DetermineCurrentClue(s.clues, s.progress, s.user.ID, s.gates.Unlocked)
		s.clueView = view

		if view.State != CluePresenting || view.Clue.Type != GlobalClue {
			s.unwatchLocked()
			return
		}

		if s.watching != view.Clue.ID {
			s.watchLocked(view.Clue.ID)
			return
		}

		if !s.watchDone {
			return
		}

		next, err := prog.AutoAdvance(s.ctx, s.progress, *view.Clue)
		if err != nil {
			log.Printf("GAMES: Failed to skip solved clue %s for %s: %v", view.Clue.ID, s.user.ID, err)
			return
		}
		s.progress = next
	}
}

// watchLocked follows the completion record of the global clue being
// presented. At most one such subscription exists per session.
func (s *Session) watchLocked(clueID string) {
	s.unwatchLocked()

	s.watching = clueID
	s.watchDone = false
	s.unwatch = store.SubscribeSingleton(s.game.Store, GlobalClueCompletionCollection, clueID, func(f store.Fields) {
		s.onGlobalCompletion(clueID, f)
	})
}

func (s *Session) unwatchLocked() {
	if s.unwatch != nil {
		s.unwatch()
	}
	s.unwatch = nil
	s.watching = ""
	s.watchDone = false
}

func (s *Session) viewLocked() View {
	v := View{
		UserID:     s.user.ID,
		Username:   s.user.Username,
		Role:       s.user.Role,
		Mode:       s.game.mode,
		Points:     s.points,
		Gates:      s.gates,
		Dares:      []DareView{},
		Drink:      s.drink,
		CanProceed: CanProceed(s.gates, s.drink),
		Puzzle:     PuzzleView{Text: MsgComeBackLater},
	}

	for i, d := range s.rotation.Active() {
		v.Dares = append(v.Dares, DareView{Index: i, Key: d.Key, Text: d.Text()})
	}

	if !s.gates.Unlocked {
		if s.game.mode == ClueMode {
			v.ClueState = ClueLocked
		}
		return v
	}

	switch s.game.mode {
	case ClueMode:
		v.ClueState = s.clueView.State
		switch s.clueView.State {
		case ClueWaiting:
			v.Puzzle = PuzzleView{Text: MsgWaiting}
		case CluePresenting:
			c := s.clueView.Clue
			v.Puzzle = PuzzleView{Text: c.Riddle, Instruction: c.Instruction, Actionable: true}
			if s.clueHints[c.ID] {
				v.Puzzle.Hint = c.Hint
			}
		}
	default:
		if r, ok := s.riddles.Current(); ok {
			v.Puzzle = PuzzleView{Text: r.Riddle, Instruction: r.Instruction, Actionable: true}
			if s.riddles.HintShown() {
				v.Puzzle.Hint = r.Hint
			}
		}
	}

	return v
}

// applyLocked charges deltas to the player's balance in order. On failure,
// the deltas already applied are reversed and nothing is charged.
func (s *Session) applyLocked(ctx context.Context, deltas ...int) (int, int, error) {
	total := 0
	for _, d := range deltas {
		balance, err := s.game.Ledger.ApplyDelta(ctx, s.user.ID, d)
		if err != nil {
			s.reverseLocked(ctx, total)
			return 0, s.points, err
		}
		total += d
		s.points = balance
	}

	return total, s.points, nil
}

// reverseLocked undoes total points already charged to the player.
func (s *Session) reverseLocked(ctx context.Context, total int) {
	if total == 0 {
		return
	}

	balance, err := s.game.Ledger.ApplyDelta(ctx, s.user.ID, -total)
	if err != nil {
		log.Printf("GAMES: Failed to reverse %+d points for %s: %v", total, s.user.ID, err)
		return
	}
	s.points = balance
}

// SubmitAnswer checks answer against the puzzle currently shown.
func (s *Session) SubmitAnswer(ctx context.Context, answer string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.emitLocked()

	if isBlank(answer) {
		return Result{}, invalid("please enter an answer")
	}
	if !s.gates.Unlocked {
		return Result{}, ErrLocked
	}

	if s.game.mode == ClueMode {
		return s.submitClueLocked(ctx, answer)
	}

	correct, delta, err := s.riddles.Check(answer)
	if err != nil {
		return Result{}, err
	}

	r, err := s.answerResultLocked(ctx, correct, delta)
	if err != nil {
		return Result{}, err
	}
	if correct {
		s.riddles.Next()
	}

	return r, nil
}

func (s *Session) submitClueLocked(ctx context.Context, answer string) (Result, error) {
	if s.clueView.State != CluePresenting {
		return Result{}, ErrNoPuzzle
	}
	c := *s.clueView.Clue

	if !c.Matches(answer) {
		return s.answerResultLocked(ctx, false, AnswerIncorrect)
	}

	r, err := s.answerResultLocked(ctx, true, AnswerCorrect)
	if err != nil {
		return Result{}, err
	}

	next, err := s.game.Progression.Complete(ctx, s.progress, c, s.clues, s.peers)
	if err != nil {
		s.reverseLocked(ctx, r.Delta)
		return Result{}, fmt.Errorf("record clue %s: %w", c.ID, err)
	}
	s.progress = next
	s.refreshClueLocked()

	return r, nil
}

func (s *Session) answerResultLocked(ctx context.Context, correct bool, delta int) (Result, error) {
	applied, points, err := s.applyLocked(ctx, delta)
	if err != nil {
		return Result{}, err
	}

	r := Result{Correct: correct, Delta: applied, Points: points, Message: MsgIncorrect, Kind: "error"}
	if correct {
		r.Message, r.Kind = MsgCorrect, "success"
	}

	return r, nil
}

// RequestHint reveals the hint of the puzzle currently shown, once.
func (s *Session) RequestHint(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.emitLocked()

	if !s.gates.Unlocked {
		return Result{}, ErrLocked
	}

	var (
		outcome HintOutcome
		deltas  []int
		undo    func()
	)

	switch s.game.mode {
	case ClueMode:
		if s.clueView.State != CluePresenting {
			return Result{}, ErrNoPuzzle
		}
		c := s.clueView.Clue
		switch {
		case s.clueHints[c.ID]:
			outcome = HintAlreadyShown
		case c.Hint == "":
			outcome, deltas = HintMissing, []int{-HintCost, HintCost}
		default:
			s.clueHints[c.ID] = true
			undo = func() { delete(s.clueHints, c.ID) }
			outcome, deltas = HintRevealed, []int{-HintCost}
		}
	default:
		saved := s.riddles
		undo = func() { s.riddles = saved }

		var err error
		_, outcome, deltas, err = s.riddles.RequestHint()
		if err != nil {
			return Result{}, err
		}
	}

	applied, points, err := s.applyLocked(ctx, deltas...)
	if err != nil {
		if undo != nil {
			undo()
		}
		return Result{}, err
	}

	r := Result{Delta: applied, Points: points}
	switch outcome {
	case HintRevealed:
		r.Message, r.Kind = MsgHintRevealed, "info"
	case HintAlreadyShown:
		r.Message, r.Kind = MsgHintShown, "info"
	case HintMissing:
		r.Message, r.Kind = MsgNoHint, "error"
	}

	return r, nil
}

// ResolveDare completes or trashes the active dare at index.
func (s *Session) ResolveDare(ctx context.Context, index int, outcome Outcome) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.emitLocked()

	if !s.gates.Unlocked {
		return Result{}, ErrLocked
	}

	saved := s.rotation.Active()

	_, delta, err := s.rotation.Resolve(index, outcome)
	if err != nil {
		return Result{}, err
	}

	applied, points, err := s.applyLocked(ctx, delta)
	if err != nil {
		s.rotation.restore(saved)
		return Result{}, err
	}

	r := Result{Delta: applied, Points: points, Message: MsgDareComplete, Kind: "success"}
	if outcome == Trash {
		r.Message, r.Kind = MsgDareTrashed, "info"
	}

	return r, nil
}

// VoteDrink records the player's drink choice.
func (s *Session) VoteDrink(ctx context.Context, drink string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.emitLocked()

	if err := s.game.Drinks.Vote(ctx, s.user.ID, s.user.Role, drink); err != nil {
		return Result{}, err
	}
	s.drink = drink

	return Result{Points: s.points, Message: MsgVoted, Kind: "success"}, nil
}
