/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/Seednode/waterrock/store"
)

// DrinkChoice is a player's vote on the instructions page.
type DrinkChoice struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Drink  string `json:"drink"`
}

func DrinkChoiceFromDoc(d store.Doc) DrinkChoice {
	c := DrinkChoice{
		UserID: d.Fields.String("userId"),
		Role:   d.Fields.String("role"),
		Drink:  d.Fields.String("drink"),
	}
	if c.UserID == "" {
		c.UserID = d.ID
	}

	return c
}

// DrinkGroup is every vote for one drink.
type DrinkGroup struct {
	Drink   string        `json:"drink"`
	Choices []DrinkChoice `json:"choices"`
}

type Drinks struct {
	store store.Store
}

func NewDrinks(s store.Store) *Drinks {
	return &Drinks{store: s}
}

// Vote records userID's drink, replacing any earlier vote.
func (d *Drinks) Vote(ctx context.Context, userID, role, drink string) error {
	drink = strings.TrimSpace(drink)
	switch {
	case userID == "":
		return invalid("missing user id")
	case drink == "":
		return invalid("please choose a drink")
	}

	return d.store.Set(ctx, DrinkChoicesCollection, userID, store.Fields{
		"userId": userID,
		"role":   role,
		"drink":  drink,
	}, true)
}

// Choice returns userID's vote, or an empty string if they have not voted.
func (d *Drinks) Choice(ctx context.Context, userID string) (string, error) {
	doc, err := d.store.Get(ctx, DrinkChoicesCollection, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "", nil
	case err != nil:
		return "", err
	}

	return doc.Fields.String("drink"), nil
}

// All groups every vote by drink, drinks and voters both sorted.
func (d *Drinks) All(ctx context.Context) ([]DrinkGroup, error) {
	docs, err := d.store.List(ctx, DrinkChoicesCollection, "")
	if err != nil {
		return nil, err
	}

	byDrink := make(map[string][]DrinkChoice)
	for _, doc := range docs {
		c := DrinkChoiceFromDoc(doc)
		name := c.Drink
		if name == "" {
			name = "Not chosen"
		}
		byDrink[name] = append(byDrink[name], c)
	}

	groups := make([]DrinkGroup, 0, len(byDrink))
	for drink, choices := range byDrink {
		sort.Slice(choices, func(i, j int) bool {
			return choices[i].UserID < choices[j].UserID
		})
		groups = append(groups, DrinkGroup{Drink: drink, Choices: choices})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Drink < groups[j].Drink
	})

	return groups, nil
}

// Reset removes userID's vote and reports whether there was one.
func (d *Drinks) Reset(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, invalid("missing user id")
	}

	return d.store.Delete(ctx, DrinkChoicesCollection, userID)
}

// CanProceed reports whether a player may leave the instructions page: the
// admin has opened the gate and the player has voted.
func CanProceed(state GateState, drink string) bool {
	return state.CanProceed && drink != ""
}
