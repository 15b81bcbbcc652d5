/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Fallback serves reads from Primary and degrades to Local whenever Primary
// reports ErrUnavailable. Writes degrade only for the collections named in
// localWrites; every other write fails so that shared content is never
// silently forked.
type Fallback struct {
	primary     Store
	local       Store
	localWrites map[string]bool

	mu      sync.Mutex
	watches map[string][]func()

	*broker
}

func NewFallback(primary, local Store, localWrites ...string) *Fallback {
	f := &Fallback{
		primary:     primary,
		local:       local,
		localWrites: make(map[string]bool, len(localWrites)),
		watches:     make(map[string][]func()),
	}
	for _, c := range localWrites {
		f.localWrites[c] = true
	}
	f.broker = newBroker(func(ctx context.Context, collection string) ([]Doc, error) {
		return f.List(ctx, collection, "")
	})

	return f
}

func (f *Fallback) List(ctx context.Context, collection, orderBy string) ([]Doc, error) {
	docs, err := f.primary.List(ctx, collection, orderBy)
	if errors.Is(err, ErrUnavailable) {
		log.Printf("STORE: Reading %q from local state: %v", collection, err)

		return f.local.List(ctx, collection, orderBy)
	}

	return docs, err
}

func (f *Fallback) Get(ctx context.Context, collection, id string) (Doc, error) {
	doc, err := f.primary.Get(ctx, collection, id)
	if errors.Is(err, ErrUnavailable) {
		log.Printf("STORE: Reading %s/%s from local state: %v", collection, id, err)

		return f.local.Get(ctx, collection, id)
	}

	return doc, err
}

func (f *Fallback) Create(ctx context.Context, collection string, data Fields) (string, error) {
	id, err := f.primary.Create(ctx, collection, data)
	if f.degrade(collection, err) {
		return f.local.Create(ctx, collection, data)
	}

	return id, err
}

func (f *Fallback) CreateWithID(ctx context.Context, collection, id string, data Fields) (bool, error) {
	created, err := f.primary.CreateWithID(ctx, collection, id, data)
	if f.degrade(collection, err) {
		return f.local.CreateWithID(ctx, collection, id, data)
	}

	return created, err
}

func (f *Fallback) Update(ctx context.Context, collection, id string, patch Fields) error {
	err := f.primary.Update(ctx, collection, id, patch)
	if f.degrade(collection, err) {
		return f.local.Update(ctx, collection, id, patch)
	}

	return err
}

func (f *Fallback) Set(ctx context.Context, collection, id string, data Fields, mergeExisting bool) error {
	err := f.primary.Set(ctx, collection, id, data, mergeExisting)
	if f.degrade(collection, err) {
		return f.local.Set(ctx, collection, id, data, mergeExisting)
	}

	return err
}

func (f *Fallback) Delete(ctx context.Context, collection, id string) (bool, error) {
	deleted, err := f.primary.Delete(ctx, collection, id)
	if f.degrade(collection, err) {
		return f.local.Delete(ctx, collection, id)
	}

	return deleted, err
}

// Subscribe watches both underlying stores and re-reads through the
// degrading List on any change from either.
func (f *Fallback) Subscribe(collection string, filter Filter, fn func([]Doc)) func() {
	f.watch(collection)

	return f.subscribe(collection, filter, fn)
}

func (f *Fallback) Close() error {
	f.close()

	f.mu.Lock()
	for c, cancels := range f.watches {
		for _, cancel := range cancels {
			cancel()
		}
		delete(f.watches, c)
	}
	f.mu.Unlock()

	return errors.Join(f.primary.Close(), f.local.Close())
}

func (f *Fallback) watch(collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.watches[collection]; ok {
		return
	}

	poke := func([]Doc) {
		f.publish(collection)
	}

	f.watches[collection] = []func(){
		f.primary.Subscribe(collection, nil, poke),
		f.local.Subscribe(collection, nil, poke),
	}
}

func (f *Fallback) degrade(collection string, err error) bool {
	if !errors.Is(err, ErrUnavailable) || !f.localWrites[collection] {
		return false
	}

	log.Printf("STORE: Writing %q to local state: %v", collection, err)

	return true
}
