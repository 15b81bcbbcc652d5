/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math/rand/v2"

	"github.com/Seednode/waterrock/store"
)

// Dare is a single challenge from the pool. Dare records are free-form; the
// fields below are the ones the game knows how to display.
type Dare struct {
	Key         string `json:"key"`
	ID          string `json:"id,omitempty"`
	Challenge   string `json:"challenge,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

func DareFromDoc(d store.Doc) Dare {
	return Dare{
		Key:         d.ID,
		ID:          d.Fields.String("id"),
		Challenge:   d.Fields.String("challenge"),
		Title:       d.Fields.String("title"),
		Description: d.Fields.String("description"),
	}
}

// Text is what a player sees: the challenge, else the title, else the
// description, else a generic label.
func (d Dare) Text() string {
	switch {
	case d.Challenge != "":
		return d.Challenge
	case d.Title != "":
		return d.Title
	case d.Description != "":
		return d.Description
	case d.ID != "":
		return "Dare " + d.ID
	default:
		return "Dare " + d.Key
	}
}

// identity de-duplicates dares within the active set.
func (d Dare) identity() string {
	if d.ID != "" {
		return "id:" + d.ID
	}
	if d.Challenge != "" {
		return "challenge:" + d.Challenge
	}

	return "key:" + d.Key
}

// Outcome is how a player resolved a dare.
type Outcome string

const (
	Complete Outcome = "complete"
	Trash    Outcome = "trash"
)

func (o Outcome) delta() (int, error) {
	switch o {
	case Complete:
		return DareComplete, nil
	case Trash:
		return DareTrash, nil
	default:
		return 0, invalid("unknown dare outcome %q", o)
	}
}

// Rotation holds a bounded working set of dares drawn from the pool. It is
// not safe for concurrent use; a Session serialises access to it.
type Rotation struct {
	pool   []Dare
	active []Dare
	rand   *rand.Rand
}

func NewRotation(r *rand.Rand) *Rotation {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Rotation{rand: r}
}

// SetPool replaces the pool. The active set is left untouched.
func (r *Rotation) SetPool(pool []Dare) {
	r.pool = append([]Dare(nil), pool...)
}

// restore puts back an active set saved from Active.
func (r *Rotation) restore(active []Dare) {
	r.active = active
}

func (r *Rotation) Active() []Dare {
	return append([]Dare(nil), r.active...)
}

// InitializeActiveSet draws a uniform sample without replacement of up to
// size dares, but only while the active set is empty.
func (r *Rotation) InitializeActiveSet(size int) {
	if len(r.active) > 0 || len(r.pool) == 0 || size <= 0 {
		return
	}

	perm := r.rand.Perm(len(r.pool))
	n := min(size, len(r.pool))

	r.active = make([]Dare, 0, n)
	for _, i := range perm[:n] {
		r.active = append(r.active, r.pool[i])
	}
}

// Resolve removes the dare at index, replenishes the set and reports the
// point delta for the outcome.
func (r *Rotation) Resolve(index int, outcome Outcome) (Dare, int, error) {
	delta, err := outcome.delta()
	if err != nil {
		return Dare{}, 0, err
	}

	if index < 0 || index >= len(r.active) {
		return Dare{}, 0, invalid("dare index %d out of range", index)
	}

	resolved := r.active[index]
	r.active = append(r.active[:index:index], r.active[index+1:]...)

	if next, ok := r.pick(); ok {
		r.active = append(r.active, next)
	}

	return resolved, delta, nil
}

// pick prefers a pool dare that is not already active, falling back to any
// pool dare when the pool is smaller than the active set.
func (r *Rotation) pick() (Dare, bool) {
	if len(r.pool) == 0 {
		return Dare{}, false
	}

	inUse := make(map[string]bool, len(r.active))
	for _, d := range r.active {
		inUse[d.identity()] = true
	}

	var fresh []Dare
	for _, d := range r.pool {
		if !inUse[d.identity()] {
			fresh = append(fresh, d)
		}
	}

	if len(fresh) > 0 {
		return fresh[r.rand.IntN(len(fresh))], true
	}

	return r.pool[r.rand.IntN(len(r.pool))], true
}
