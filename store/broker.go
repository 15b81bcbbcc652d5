/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"log"
	"sync"
)

type lister func(ctx context.Context, collection string) ([]Doc, error)

// broker fans collection changes out to subscribers. Each subscriber owns a
// goroutine and a one-slot notify channel, so bursts of writes coalesce into
// a single re-read of the latest snapshot.
type broker struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
	list lister
}

type subscription struct {
	collection string
	filter     Filter
	fn         func([]Doc)
	notify     chan struct{}
	done       chan struct{}
	once       sync.Once
}

func newBroker(list lister) *broker {
	return &broker{
		subs: make(map[string]map[*subscription]struct{}),
		list: list,
	}
}

func (b *broker) subscribe(collection string, filter Filter, fn func([]Doc)) func() {
	s := &subscription{
		collection: collection,
		filter:     filter,
		fn:         fn,
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	s.notify <- struct{}{}

	b.mu.Lock()
	if b.subs[collection] == nil {
		b.subs[collection] = make(map[*subscription]struct{})
	}
	b.subs[collection][s] = struct{}{}
	b.mu.Unlock()

	go s.run(b.list)

	return func() {
		s.stop()

		b.mu.Lock()
		delete(b.subs[collection], s)
		b.mu.Unlock()
	}
}

func (b *broker) publish(collection string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs[collection] {
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
}

func (b *broker) publishAll() {
	b.mu.Lock()
	collections := make([]string, 0, len(b.subs))
	for c := range b.subs {
		collections = append(collections, c)
	}
	b.mu.Unlock()

	for _, c := range collections {
		b.publish(c)
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for c, subs := range b.subs {
		for s := range subs {
			s.stop()
		}
		delete(b.subs, c)
	}
}

func (s *subscription) stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *subscription) run(list lister) {
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		docs, err := list(context.Background(), s.collection)
		if err != nil {
			log.Printf("STORE: Subscription to %q failed, delivering empty snapshot: %v", s.collection, err)
			docs = nil
		}
		docs = filterDocs(docs, s.filter)

		select {
		case <-s.done:
			return
		default:
		}

		s.fn(docs)
	}
}
