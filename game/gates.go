/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"

	"github.com/Seednode/waterrock/store"
)

// GateState holds the admin-controlled flags every session obeys.
type GateState struct {
	Unlocked   bool `json:"unlocked"`
	CanProceed bool `json:"can_proceed_to_dashboard"`
}

// legacyProceedKey is an older name for canProceedToDashboard that is still
// honoured when reading.
const legacyProceedKey = "instructionsComplete"

func GateStateFromFields(f store.Fields) GateState {
	proceed := f.Bool(legacyProceedKey)
	if f.Has("canProceedToDashboard") {
		proceed = f.Bool("canProceedToDashboard")
	}

	return GateState{
		Unlocked:   f.Bool("unlocked"),
		CanProceed: proceed,
	}
}

// Gates reads and writes the admin state singleton. Each setter touches
// only its own key, so concurrent admins never clobber each other's gate.
type Gates struct {
	store store.Store
}

func NewGates(s store.Store) *Gates {
	return &Gates{store: s}
}

func (g *Gates) State(ctx context.Context) (GateState, error) {
	f, err := store.GetSingleton(ctx, g.store, AdminCollection, AdminStateID)
	if err != nil {
		return GateState{}, err
	}

	return GateStateFromFields(f), nil
}

// Fields returns the raw admin state document.
func (g *Gates) Fields(ctx context.Context) (store.Fields, error) {
	return store.GetSingleton(ctx, g.store, AdminCollection, AdminStateID)
}

// Subscribe calls fn with the current state and after every change. An
// unreadable state is delivered as the zero state, which keeps players
// locked out.
func (g *Gates) Subscribe(fn func(GateState)) func() {
	return store.SubscribeSingleton(g.store, AdminCollection, AdminStateID, func(f store.Fields) {
		fn(GateStateFromFields(f))
	})
}

func (g *Gates) SetUnlocked(ctx context.Context, unlocked bool) error {
	return g.Patch(ctx, store.Fields{"unlocked": unlocked})
}

func (g *Gates) SetCanProceed(ctx context.Context, proceed bool) error {
	return g.Patch(ctx, store.Fields{"canProceedToDashboard": proceed})
}

// Patch merges arbitrary keys into the admin state.
func (g *Gates) Patch(ctx context.Context, patch store.Fields) error {
	if len(patch) == 0 {
		return invalid("empty admin state patch")
	}

	return store.UpsertSingleton(ctx, g.store, AdminCollection, AdminStateID, patch)
}
