/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process store. When opened with a path it rewrites a JSON
// file after every change, which makes it the local fallback map for users,
// points and drink choices.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Fields
	path        string
	now         func() time.Time

	*broker
}

func NewMemory() *Memory {
	m := &Memory{
		collections: make(map[string]map[string]Fields),
		now:         time.Now,
	}
	m.broker = newBroker(func(ctx context.Context, collection string) ([]Doc, error) {
		return m.List(ctx, collection, "")
	})

	return m
}

// OpenFile returns a Memory store persisted at path, loading any existing
// contents first.
func OpenFile(path string) (*Memory, error) {
	m := NewMemory()
	m.path = path

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return m, nil
	case err != nil:
		return nil, fmt.Errorf("read local state: %w", err)
	}

	if len(data) == 0 {
		return m, nil
	}

	if err := json.Unmarshal(data, &m.collections); err != nil {
		return nil, fmt.Errorf("decode local state %s: %w", path, err)
	}

	return m, nil
}

func (m *Memory) List(_ context.Context, collection, orderBy string) ([]Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll := m.collections[collection]
	docs := make([]Doc, 0, len(coll))
	for id, f := range coll {
		docs = append(docs, Doc{ID: id, Fields: deepCopy(f)})
	}
	sortDocs(docs, orderBy)

	return docs, nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.collections[collection][id]
	if !ok {
		return Doc{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}

	return Doc{ID: id, Fields: deepCopy(f)}, nil
}

func (m *Memory) Create(ctx context.Context, collection string, data Fields) (string, error) {
	id := uuid.NewString()
	if _, err := m.CreateWithID(ctx, collection, id, data); err != nil {
		return "", err
	}

	return id, nil
}

func (m *Memory) CreateWithID(_ context.Context, collection, id string, data Fields) (bool, error) {
	f, err := normalize(stamp(data, m.now(), true))
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	coll := m.collectionLocked(collection)
	if _, ok := coll[id]; ok {
		m.mu.Unlock()
		return false, nil
	}
	coll[id] = f
	err = m.commitLocked(coll, id, nil, false)
	m.mu.Unlock()

	if err != nil {
		return false, err
	}
	m.publish(collection)

	return true, nil
}

func (m *Memory) Update(_ context.Context, collection, id string, patch Fields) error {
	m.mu.Lock()
	coll := m.collectionLocked(collection)
	existing, ok := coll[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	f, err := normalize(merge(existing, stamp(patch, m.now(), false)))
	if err != nil {
		m.mu.Unlock()
		return err
	}
	coll[id] = f
	err = m.commitLocked(coll, id, existing, true)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	m.publish(collection)

	return nil
}

func (m *Memory) Set(_ context.Context, collection, id string, data Fields, mergeExisting bool) error {
	m.mu.Lock()
	coll := m.collectionLocked(collection)
	existing, exists := coll[id]

	next := stamp(data, m.now(), !exists)
	if exists {
		if created, ok := existing["createdAt"]; ok {
			next["createdAt"] = created
		}
		if mergeExisting {
			next = merge(existing, next)
		}
	}

	f, err := normalize(next)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	coll[id] = f
	err = m.commitLocked(coll, id, existing, exists)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	m.publish(collection)

	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) (bool, error) {
	m.mu.Lock()
	coll := m.collectionLocked(collection)
	existing, ok := coll[id]
	if !ok {
		m.mu.Unlock()
		return false, nil
	}
	delete(coll, id)
	err := m.commitLocked(coll, id, existing, true)
	m.mu.Unlock()

	if err != nil {
		return false, err
	}
	m.publish(collection)

	return true, nil
}

func (m *Memory) Subscribe(collection string, filter Filter, fn func([]Doc)) func() {
	return m.subscribe(collection, filter, fn)
}

func (m *Memory) Close() error {
	m.close()

	return nil
}

func (m *Memory) collectionLocked(collection string) map[string]Fields {
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]Fields)
		m.collections[collection] = coll
	}

	return coll
}

// commitLocked persists a change to coll[id], putting back the previous
// entry when the file cannot be written.
func (m *Memory) commitLocked(coll map[string]Fields, id string, prev Fields, existed bool) error {
	err := m.persistLocked()
	if err == nil {
		return nil
	}

	if existed {
		coll[id] = prev
	} else {
		delete(coll, id)
	}

	return err
}

func (m *Memory) persistLocked() error {
	if m.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(m.collections, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".waterrock-*")
	if err != nil {
		return fmt.Errorf("write local state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write local state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write local state: %w", err)
	}

	return os.Rename(tmp.Name(), m.path)
}

// normalize round-trips fields through JSON so memory documents hold the
// same value shapes as documents read back from SQL.
func normalize(f Fields) (Fields, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	out := Fields{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	return out, nil
}

func deepCopy(f Fields) Fields {
	out, err := normalize(f)
	if err != nil {
		return f.clone()
	}

	return out
}
