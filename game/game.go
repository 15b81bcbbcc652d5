/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game implements the rules of the party: points, rotating dares,
// sequential riddles, assignment-aware clues and the admin gates that hold
// every player back until the host lets them through.
//
// All state lives in a store.Store. A Session is the per-player view onto
// that state; it recomputes everything it shows from the latest snapshots
// the store delivers.
package game

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation = errors.New("invalid input")
	ErrAuthDenied = errors.New("access denied")
	ErrLocked     = errors.New("controls are locked")
	ErrNoPuzzle   = errors.New("no puzzle available")
)

// Collection names
const (
	DaresCollection                = "dares"
	RiddlesCollection              = "riddles"
	CluesCollection                = "clues"
	UsersCollection                = "users"
	PointsCollection               = "points"
	DrinkChoicesCollection         = "drinkChoices"
	ClueProgressCollection         = "clueProgress"
	GlobalClueCompletionCollection = "globalClueCompletion"
	AdminCollection                = "admin"
	AdminStateID                   = "state"
)

// LocalCollections may be written to the local fallback store when the
// shared store is unreachable.
var LocalCollections = []string{UsersCollection, PointsCollection, DrinkChoicesCollection}

// Point deltas
const (
	AnswerCorrect   = 50
	AnswerIncorrect = -5
	HintCost        = 30
	DareComplete    = 10
	DareTrash       = -5
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// matches compares a submitted answer against the expected one, ignoring
// case and surrounding whitespace.
func matches(answer, expected string) bool {
	a := strings.TrimSpace(answer)
	e := strings.TrimSpace(expected)

	return a != "" && strings.EqualFold(a, e)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
