/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Seednode/waterrock/store"
)

// Ledger keeps each user's point balance in its own document so balances can
// change often without rewriting user records. Balances have no floor.
type Ledger struct {
	store store.Store

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// Balance is one row of the admin points view.
type Balance struct {
	UserID string `json:"user_id"`
	Points int    `json:"points"`
}

func NewLedger(s store.Store) *Ledger {
	return &Ledger{
		store: s,
		users: make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) lock(userID string) func() {
	l.mu.Lock()
	m, ok := l.users[userID]
	if !ok {
		m = &sync.Mutex{}
		l.users[userID] = m
	}
	l.mu.Unlock()

	m.Lock()

	return m.Unlock
}

// Points returns the user's balance, zero if none has been recorded.
func (l *Ledger) Points(ctx context.Context, userID string) (int, error) {
	doc, err := l.store.Get(ctx, PointsCollection, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return 0, nil
	case err != nil:
		return 0, err
	}

	return doc.Fields.Int("points"), nil
}

func (l *Ledger) SetPoints(ctx context.Context, userID string, n int) error {
	if userID == "" {
		return invalid("missing user id")
	}

	unlock := l.lock(userID)
	defer unlock()

	return l.store.Set(ctx, PointsCollection, userID, store.Fields{"points": n}, true)
}

// ApplyDelta adds delta to the user's balance and returns the new balance.
func (l *Ledger) ApplyDelta(ctx context.Context, userID string, delta int) (int, error) {
	if userID == "" {
		return 0, invalid("missing user id")
	}

	unlock := l.lock(userID)
	defer unlock()

	current, err := l.Points(ctx, userID)
	if err != nil {
		return 0, err
	}

	next := current + delta
	if err := l.store.Set(ctx, PointsCollection, userID, store.Fields{"points": next}, true); err != nil {
		return current, err
	}

	return next, nil
}

// ResetAll zeroes the balance of every known user, meaning every user record
// and every user that already has a balance, and returns how many were reset.
func (l *Ledger) ResetAll(ctx context.Context) (int, error) {
	ids := make(map[string]struct{})

	users, err := l.store.List(ctx, UsersCollection, "")
	if err != nil {
		return 0, err
	}
	for _, u := range users {
		ids[u.ID] = struct{}{}
	}

	balances, err := l.store.List(ctx, PointsCollection, "")
	if err != nil {
		return 0, err
	}
	for _, b := range balances {
		ids[b.ID] = struct{}{}
	}

	n := 0
	for id := range ids {
		if err := l.SetPoints(ctx, id, 0); err != nil {
			return n, err
		}
		n++
	}

	return n, nil
}

// All returns every recorded balance ordered by user id.
func (l *Ledger) All(ctx context.Context) ([]Balance, error) {
	docs, err := l.store.List(ctx, PointsCollection, "")
	if err != nil {
		return nil, err
	}

	out := make([]Balance, 0, len(docs))
	for _, d := range docs {
		out = append(out, Balance{UserID: d.ID, Points: d.Fields.Int("points")})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID < out[j].UserID
	})

	return out, nil
}
