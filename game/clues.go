/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"errors"
	"log"
	"slices"
	"sort"
	"time"

	"github.com/Seednode/waterrock/store"
)

type ClueType string

const (
	GlobalClue ClueType = "global"
	PersonClue ClueType = "person-specific"
)

// Clue is an ordered puzzle. A global clue is shared by everyone and is
// solved once for all; a person-specific clue is shown only to its
// assignees, who all have to finish before any of them moves on.
type Clue struct {
	Puzzle

	ID         string   `json:"id"`
	Order      int      `json:"order"`
	Type       ClueType `json:"type"`
	AssignedTo []string `json:"assigned_to,omitempty"`
}

func ClueFromDoc(d store.Doc) Clue {
	p := puzzleFromFields(d.Fields)
	if p.Riddle == "" {
		p.Riddle = d.Fields.String("clue")
	}

	return Clue{
		Puzzle:     p,
		ID:         d.ID,
		Order:      d.Fields.Int("order"),
		Type:       ClueType(d.Fields.String("type")),
		AssignedTo: d.Fields.Strings("assignedTo"),
	}
}

// EligibleFor reports whether the clue is meant for userID.
func (c Clue) EligibleFor(userID string) bool {
	switch c.Type {
	case GlobalClue:
		return true
	case PersonClue:
		return slices.Contains(c.AssignedTo, userID)
	default:
		return false
	}
}

// Progress is a player's position in the clue sequence.
type Progress struct {
	UserID           string   `json:"user_id"`
	CurrentClueOrder int      `json:"current_clue_order"`
	CompletedClueIDs []string `json:"completed_clue_ids"`
	WaitingForOthers bool     `json:"waiting_for_others"`

	updated time.Time
}

func ProgressFromFields(userID string, f store.Fields) Progress {
	updated, _ := time.Parse(time.RFC3339Nano, f.String("updatedAt"))

	return Progress{
		UserID:           userID,
		CurrentClueOrder: f.Int("currentClueOrder"),
		CompletedClueIDs: f.Strings("completedClueIds"),
		WaitingForOthers: f.Bool("waitingForOthers"),
		updated:          updated,
	}
}

// Supersedes reports whether p was written no earlier than other, so a
// snapshot that was read before a local write never overrides it.
func (p Progress) Supersedes(other Progress) bool {
	return !p.updated.Before(other.updated)
}

func (p Progress) fields() store.Fields {
	completed := p.CompletedClueIDs
	if completed == nil {
		completed = []string{}
	}

	return store.Fields{
		"userId":           p.UserID,
		"currentClueOrder": p.CurrentClueOrder,
		"completedClueIds": completed,
		"waitingForOthers": p.WaitingForOthers,
	}
}

func (p Progress) Completed(clueID string) bool {
	return slices.Contains(p.CompletedClueIDs, clueID)
}

// complete records clueID as solved.
func (p Progress) complete(clueID string) Progress {
	if !p.Completed(clueID) {
		p.CompletedClueIDs = append(slices.Clone(p.CompletedClueIDs), clueID)
	}

	return p
}

func (p Progress) advancePast(order int) Progress {
	p.CurrentClueOrder = max(p.CurrentClueOrder, order+1)
	p.WaitingForOthers = false

	return p
}

type ClueState string

const (
	ClueLocked     ClueState = "locked"
	CluePresenting ClueState = "presenting"
	ClueWaiting    ClueState = "waiting"
	ClueCompleted  ClueState = "completed"
)

// ClueView is what a player should currently see in clue mode.
type ClueView struct {
	State ClueState `json:"state"`
	Clue  *Clue     `json:"clue,omitempty"`
}

func sortClues(clues []Clue) []Clue {
	sorted := slices.Clone(clues)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Order != sorted[j].Order {
			return sorted[i].Order < sorted[j].Order
		}
		return sorted[i].ID < sorted[j].ID
	})

	return sorted
}

// DetermineCurrentClue works out which clue userID should see. It has no
// side effects and returns the same view for the same inputs.
func DetermineCurrentClue(clues []Clue, p Progress, userID string, unlocked bool) ClueView {
	if !unlocked {
		return ClueView{State: ClueLocked}
	}

	sorted := sortClues(clues)

	if p.WaitingForOthers {
		for _, c := range sorted {
			if c.Order == p.CurrentClueOrder && c.Type == PersonClue && c.EligibleFor(userID) {
				return ClueView{State: ClueWaiting, Clue: &c}
			}
		}
	}

	start := max(p.CurrentClueOrder, 1)
	for _, c := range sorted {
		if c.Order < start || !c.EligibleFor(userID) || p.Completed(c.ID) {
			continue
		}

		return ClueView{State: CluePresenting, Clue: &c}
	}

	return ClueView{State: ClueCompleted}
}

// group returns everyone assigned a person-specific clue at order.
func group(clues []Clue, order int) []string {
	var members []string
	for _, c := range clues {
		if c.Order != order || c.Type != PersonClue {
			continue
		}
		for _, id := range c.AssignedTo {
			if !slices.Contains(members, id) {
				members = append(members, id)
			}
		}
	}
	sort.Strings(members)

	return members
}

// doneAt reports whether p has finished every person-specific clue at order
// assigned to its user.
func doneAt(clues []Clue, order int, p Progress) bool {
	assigned := false
	for _, c := range clues {
		if c.Order != order || c.Type != PersonClue || !c.EligibleFor(p.UserID) {
			continue
		}
		assigned = true
		if !p.Completed(c.ID) {
			return false
		}
	}

	return assigned
}

// groupDone reports whether every member of the group at order has finished.
// peers holds the latest progress of the other players.
func groupDone(clues []Clue, order int, self Progress, peers map[string]Progress) bool {
	for _, member := range group(clues, order) {
		p, ok := peers[member]
		if member == self.UserID {
			p, ok = self, true
		}
		if !ok {
			p = Progress{UserID: member}
		}
		if !doneAt(clues, order, p) {
			return false
		}
	}

	return true
}

// Progression persists clue progress and the shared completion records.
type Progression struct {
	store store.Store
	now   func() time.Time
}

func NewProgression(s store.Store) *Progression {
	return &Progression{store: s, now: time.Now}
}

// Progress returns userID's progress, or a fresh start if none is stored.
func (g *Progression) Progress(ctx context.Context, userID string) (Progress, error) {
	doc, err := g.store.Get(ctx, ClueProgressCollection, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return Progress{UserID: userID}, nil
	case err != nil:
		return Progress{UserID: userID}, err
	}

	return ProgressFromFields(userID, doc.Fields), nil
}

func (g *Progression) AllProgress(ctx context.Context) ([]Progress, error) {
	docs, err := g.store.List(ctx, ClueProgressCollection, "")
	if err != nil {
		return nil, err
	}

	out := make([]Progress, 0, len(docs))
	for _, d := range docs {
		out = append(out, ProgressFromFields(d.ID, d.Fields))
	}

	return out, nil
}

// Save writes p and returns it as stored.
func (g *Progression) Save(ctx context.Context, p Progress) (Progress, error) {
	if p.UserID == "" {
		return p, invalid("missing user id")
	}

	if err := g.store.Set(ctx, ClueProgressCollection, p.UserID, p.fields(), true); err != nil {
		return p, err
	}

	return g.Progress(ctx, p.UserID)
}

// Reset puts userID back at the start of the clue sequence.
func (g *Progression) Reset(ctx context.Context, userID string) error {
	if userID == "" {
		return invalid("missing user id")
	}

	_, err := g.Save(ctx, Progress{UserID: userID})

	return err
}

// MarkGlobalComplete records that userID solved a global clue. Only the first
// call for a clue creates the record; it reports whether this one did.
func (g *Progression) MarkGlobalComplete(ctx context.Context, clueID, userID string) (bool, error) {
	return g.store.CreateWithID(ctx, GlobalClueCompletionCollection, clueID, store.Fields{
		"isCompleted": true,
		"completedBy": userID,
		"completedAt": g.now().UTC().Format(time.RFC3339),
	})
}

func (g *Progression) GlobalCompleted(ctx context.Context, clueID string) (bool, error) {
	doc, err := g.store.Get(ctx, GlobalClueCompletionCollection, clueID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}

	return doc.Fields.Bool("isCompleted"), nil
}

// AutoAdvance moves p past a global clue somebody else already solved.
func (g *Progression) AutoAdvance(ctx context.Context, p Progress, c Clue) (Progress, error) {
	return g.Save(ctx, p.complete(c.ID).advancePast(c.Order))
}

// Complete records a correct answer to c. Global clues are announced to
// everyone and passed at once. Person-specific clues pass only when every
// assignee at that order is done, and then the whole group moves together;
// until then the player waits.
func (g *Progression) Complete(ctx context.Context, p Progress, c Clue, clues []Clue, peers map[string]Progress) (Progress, error) {
	next := p.complete(c.ID)

	if c.Type == GlobalClue {
		if _, err := g.MarkGlobalComplete(ctx, c.ID, p.UserID); err != nil {
			return p, err
		}

		return g.Save(ctx, next.advancePast(c.Order))
	}

	if !groupDone(clues, c.Order, next, peers) {
		next.CurrentClueOrder = max(next.CurrentClueOrder, c.Order)
		next.WaitingForOthers = true

		return g.Save(ctx, next)
	}

	next, err := g.Save(ctx, next.advancePast(c.Order))
	if err != nil {
		return p, err
	}

	for _, member := range group(clues, c.Order) {
		if member == p.UserID {
			continue
		}

		peer, ok := peers[member]
		if !ok || !peer.WaitingForOthers || peer.CurrentClueOrder > c.Order {
			continue
		}

		// A peer left waiting releases itself on its next progress change.
		if _, err := g.Save(ctx, peer.advancePast(c.Order)); err != nil {
			log.Printf("GAMES: Failed to release %s from waiting: %v", member, err)
		}
	}

	return next, nil
}

// ResolveWaiting lets a waiting player through once their whole group has
// finished. It is safe to call on every progress change.
func (g *Progression) ResolveWaiting(ctx context.Context, p Progress, clues []Clue, peers map[string]Progress) (Progress, bool, error) {
	if !p.WaitingForOthers {
		return p, false, nil
	}

	order := p.CurrentClueOrder
	if !doneAt(clues, order, p) || !groupDone(clues, order, p, peers) {
		return p, false, nil
	}

	next, err := g.Save(ctx, p.advancePast(order))
	if err != nil {
		return p, false, err
	}

	return next, true, nil
}
