/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Seednode/waterrock/store"
)

// Content manages the dare, riddle and clue pools on behalf of the admin.
type Content struct {
	store store.Store
}

func NewContent(s store.Store) *Content {
	return &Content{store: s}
}

var (
	riddleFields = []string{"riddle", "answer", "hint", "instruction"}
	clueFields   = []string{"riddle", "answer", "hint", "instruction", "order", "type", "assignedTo"}
)

func (c *Content) Dares(ctx context.Context) ([]Dare, error) {
	docs, err := c.store.List(ctx, DaresCollection, "id")
	if err != nil {
		return nil, err
	}

	dares := make([]Dare, 0, len(docs))
	for _, d := range docs {
		dares = append(dares, DareFromDoc(d))
	}

	return dares, nil
}

// AddDare stores a one-line challenge under the next free numeric id.
func (c *Content) AddDare(ctx context.Context, challenge string) (string, error) {
	challenge = strings.TrimSpace(challenge)
	if challenge == "" {
		return "", invalid("missing challenge text")
	}

	docs, err := c.store.List(ctx, DaresCollection, "")
	if err != nil {
		return "", err
	}

	next := 1
	for _, d := range docs {
		next = max(next, d.Fields.Int("id")+1)
	}

	return c.store.Create(ctx, DaresCollection, store.Fields{
		"id":        next,
		"challenge": challenge,
	})
}

// EditDare sets a single field on the dare addressed by ref, which may be its
// document key or its numeric id.
func (c *Content) EditDare(ctx context.Context, ref, field, value string) (string, error) {
	if field == "" || field == "createdAt" || field == "updatedAt" {
		return "", invalid("cannot edit field %q", field)
	}

	key, err := c.resolve(ctx, DaresCollection, ref)
	if err != nil {
		return "", err
	}

	return key, c.store.Update(ctx, DaresCollection, key, store.Fields{field: value})
}

func (c *Content) DeleteDare(ctx context.Context, ref string) (bool, error) {
	return c.delete(ctx, DaresCollection, ref)
}

func (c *Content) Riddles(ctx context.Context) ([]Riddle, error) {
	docs, err := c.store.List(ctx, RiddlesCollection, "id")
	if err != nil {
		return nil, err
	}

	riddles := make([]Riddle, 0, len(docs))
	for _, d := range docs {
		riddles = append(riddles, RiddleFromDoc(d))
	}

	return riddles, nil
}

// AddRiddle stores a riddle at numeric position id. Positions are unique.
func (c *Content) AddRiddle(ctx context.Context, id int, p Puzzle) (string, error) {
	switch {
	case id < 1:
		return "", invalid("riddle id must be a positive number")
	case isBlank(p.Riddle), isBlank(p.Answer):
		return "", invalid("riddle text and answer are required")
	}

	existing, err := c.Riddles(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range existing {
		if r.ID == id {
			return "", invalid("riddle %d already exists", id)
		}
	}

	data := store.Fields{
		"id":     id,
		"riddle": p.Riddle,
		"answer": p.Answer,
		"hint":   p.Hint,
	}
	if p.Instruction != "" {
		data["instruction"] = p.Instruction
	}

	key := "riddle-" + strconv.Itoa(id)
	created, err := c.store.CreateWithID(ctx, RiddlesCollection, key, data)
	if err != nil {
		return "", err
	}
	if !created {
		return c.store.Create(ctx, RiddlesCollection, data)
	}

	return key, nil
}

func (c *Content) EditRiddle(ctx context.Context, ref, field, value string) (string, error) {
	if !slices.Contains(riddleFields, field) {
		return "", invalid("field must be one of: %s", strings.Join(riddleFields, ", "))
	}

	key, err := c.resolve(ctx, RiddlesCollection, ref)
	if err != nil {
		return "", err
	}

	return key, c.store.Update(ctx, RiddlesCollection, key, store.Fields{field: value})
}

func (c *Content) DeleteRiddle(ctx context.Context, ref string) (bool, error) {
	return c.delete(ctx, RiddlesCollection, ref)
}

func (c *Content) Clues(ctx context.Context) ([]Clue, error) {
	docs, err := c.store.List(ctx, CluesCollection, "order")
	if err != nil {
		return nil, err
	}

	clues := make([]Clue, 0, len(docs))
	for _, d := range docs {
		clues = append(clues, ClueFromDoc(d))
	}

	return sortClues(clues), nil
}

// ParseClueType accepts the short admin spelling "person" as well as the
// stored names.
func ParseClueType(s string) (ClueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "global":
		return GlobalClue, nil
	case "person", "person-specific":
		return PersonClue, nil
	default:
		return "", invalid("type must be \"global\" or \"person\"")
	}
}

// SplitAssignees parses a comma separated list of user ids.
func SplitAssignees(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

func (c *Content) AddClue(ctx context.Context, order int, typ ClueType, p Puzzle, assignedTo []string) (string, error) {
	switch {
	case order < 1:
		return "", invalid("clue order must be a positive number")
	case typ != GlobalClue && typ != PersonClue:
		return "", invalid("type must be \"global\" or \"person\"")
	case isBlank(p.Riddle), isBlank(p.Answer):
		return "", invalid("clue text and answer are required")
	case typ == PersonClue && len(assignedTo) == 0:
		return "", invalid("person clues need at least one assignee")
	}

	data := store.Fields{
		"order":  order,
		"type":   string(typ),
		"riddle": p.Riddle,
		"answer": p.Answer,
		"hint":   p.Hint,
	}
	if p.Instruction != "" {
		data["instruction"] = p.Instruction
	}
	if typ == PersonClue {
		data["assignedTo"] = assignedTo
	}

	return c.store.Create(ctx, CluesCollection, data)
}

func (c *Content) EditClue(ctx context.Context, id, field, value string) error {
	if !slices.Contains(clueFields, field) {
		return invalid("field must be one of: %s", strings.Join(clueFields, ", "))
	}

	var patch store.Fields
	switch field {
	case "order":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 1 {
			return invalid("clue order must be a positive number")
		}
		patch = store.Fields{"order": n}
	case "type":
		typ, err := ParseClueType(value)
		if err != nil {
			return err
		}
		patch = store.Fields{"type": string(typ)}
	case "assignedTo":
		patch = store.Fields{"assignedTo": SplitAssignees(value)}
	default:
		patch = store.Fields{field: value}
	}

	return c.store.Update(ctx, CluesCollection, id, patch)
}

func (c *Content) DeleteClue(ctx context.Context, id string) (bool, error) {
	return c.store.Delete(ctx, CluesCollection, id)
}

// resolve maps an admin reference to a document key. A reference that is not
// a key is matched against the numeric id field.
func (c *Content) resolve(ctx context.Context, collection, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", invalid("missing id")
	}

	_, err := c.store.Get(ctx, collection, ref)
	switch {
	case err == nil:
		return ref, nil
	case !errors.Is(err, store.ErrNotFound):
		return "", err
	}

	docs, err := c.store.List(ctx, collection, "")
	if err != nil {
		return "", err
	}
	for _, d := range docs {
		if d.Fields.String("id") == ref {
			return d.ID, nil
		}
	}

	return "", fmt.Errorf("%s %s: %w", collection, ref, store.ErrNotFound)
}

func (c *Content) delete(ctx context.Context, collection, ref string) (bool, error) {
	key, err := c.resolve(ctx, collection, ref)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return c.store.Delete(ctx, collection, key)
}
