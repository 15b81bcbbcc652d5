/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"errors"
)

// GetSingleton reads a single well-known document, returning empty fields
// when it has not been written yet.
func GetSingleton(ctx context.Context, s Store, collection, id string) (Fields, error) {
	doc, err := s.Get(ctx, collection, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return Fields{}, nil
	case err != nil:
		return Fields{}, err
	}

	return doc.Fields, nil
}

// SubscribeSingleton delivers the document's fields, or empty fields while it
// is missing or unreadable.
func SubscribeSingleton(s Store, collection, id string, fn func(Fields)) func() {
	return s.Subscribe(collection, ByID(id), func(docs []Doc) {
		if len(docs) == 0 {
			fn(Fields{})
			return
		}
		fn(docs[0].Fields)
	})
}

// UpsertSingleton merges patch into the document, creating it if needed.
func UpsertSingleton(ctx context.Context, s Store, collection, id string, patch Fields) error {
	return s.Set(ctx, collection, id, patch, true)
}
