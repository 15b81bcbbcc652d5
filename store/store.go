/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store holds the document collections the game is built on.
//
// Every backend exposes the same contract: named collections of JSON-like
// documents, merge updates, create-if-absent, singleton documents and change
// subscriptions that always deliver a full snapshot of the collection.
package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"time"
)

var (
	ErrUnavailable = errors.New("store unavailable")
	ErrNotFound    = errors.New("not found")
)

const timestampFormat = time.RFC3339Nano

// Fields is the payload of a single document.
type Fields map[string]any

// Doc is a document together with its key inside the collection.
type Doc struct {
	ID     string
	Fields Fields
}

// Filter selects documents delivered to a subscriber. A nil Filter matches
// everything.
type Filter func(Doc) bool

// ByID matches the single document with the given key.
func ByID(id string) Filter {
	return func(d Doc) bool {
		return d.ID == id
	}
}

// Store is implemented by every backend.
type Store interface {
	// List returns every document of a collection, ordered by the named
	// field, or by document key when orderBy is empty.
	List(ctx context.Context, collection, orderBy string) ([]Doc, error)
	Get(ctx context.Context, collection, id string) (Doc, error)
	Create(ctx context.Context, collection string, data Fields) (string, error)
	// CreateWithID inserts the document only if the key is free and reports
	// whether this call created it.
	CreateWithID(ctx context.Context, collection, id string, data Fields) (bool, error)
	// Update merges patch into an existing document.
	Update(ctx context.Context, collection, id string, patch Fields) error
	// Set writes the document, merging into any existing one when merge is
	// true and replacing it otherwise.
	Set(ctx context.Context, collection, id string, data Fields, merge bool) error
	Delete(ctx context.Context, collection, id string) (bool, error)
	// Subscribe calls fn with the current snapshot and again after every
	// change to the collection. A failed read delivers an empty snapshot.
	Subscribe(collection string, filter Filter, fn func([]Doc)) (cancel func())
	Close() error
}

func (f Fields) clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Int reads a numeric field, accepting numeric strings. Missing or malformed
// values read as zero.
func (f Fields) Int(key string) int {
	n, _ := f.IntOK(key)
	return n
}

func (f Fields) IntOK(key string) (int, bool) {
	switch v := f[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

func (f Fields) Bool(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	default:
		return nil
	}
}

func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

func stamp(data Fields, now time.Time, created bool) Fields {
	out := data.clone()
	ts := now.UTC().Format(timestampFormat)
	if created {
		out["createdAt"] = ts
	}
	out["updatedAt"] = ts
	return out
}

func merge(dst, patch Fields) Fields {
	out := dst.clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func filterDocs(docs []Doc, filter Filter) []Doc {
	if filter == nil {
		return docs
	}
	out := docs[:0:0]
	for _, d := range docs {
		if filter(d) {
			out = append(out, d)
		}
	}
	return out
}

// sortDocs orders documents by a field. Numeric values compare numerically,
// documents missing the field sort first, ties fall back to the key.
func sortDocs(docs []Doc, field string) {
	sort.SliceStable(docs, func(i, j int) bool {
		if field == "" {
			return docs[i].ID < docs[j].ID
		}
		a, b := docs[i].Fields, docs[j].Fields
		if a.Has(field) != b.Has(field) {
			return !a.Has(field)
		}
		an, aok := a.IntOK(field)
		bn, bok := b.IntOK(field)
		switch {
		case aok && bok && an != bn:
			return an < bn
		case aok && bok:
		case a.String(field) != b.String(field):
			return a.String(field) < b.String(field)
		}
		return docs[i].ID < docs[j].ID
	})
}
