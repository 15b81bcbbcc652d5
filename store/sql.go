/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const notifyChannel = "waterrock_documents"

const schema = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, id)
)`

// SQL keeps every collection in a single documents table with a JSON payload
// column. SQLite and PostgreSQL are supported; with PostgreSQL, writes are
// announced through NOTIFY so that every server sharing the database fans the
// change out to its own subscribers.
type SQL struct {
	db       *sql.DB
	driver   string
	now      func() time.Time
	listener *pq.Listener
	done     chan struct{}

	*broker
}

// OpenSQL connects to driver ("sqlite" or "postgres") and creates the schema.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, unavailable("open", err)
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unavailable("ping", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, unavailable("create schema", err)
	}

	s := &SQL{
		db:     db,
		driver: driver,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	s.broker = newBroker(func(ctx context.Context, collection string) ([]Doc, error) {
		return s.List(ctx, collection, "")
	})

	if driver == "postgres" {
		if err := s.listen(dsn); err != nil {
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

func (s *SQL) listen(dsn string) error {
	s.listener = pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("STORE: Listener event %d: %v", ev, err)
		}
	})

	if err := s.listener.Listen(notifyChannel); err != nil {
		s.listener.Close()
		return unavailable("listen", err)
	}

	go func() {
		ticker := time.NewTicker(90 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case n := <-s.listener.Notify:
				// A nil notification follows a reconnect, after which any
				// collection may have changed.
				if n == nil {
					s.publishAll()
					continue
				}
				s.publish(n.Extra)
			case <-ticker.C:
				go s.listener.Ping()
			}
		}
	}()

	return nil
}

func (s *SQL) List(ctx context.Context, collection, orderBy string) ([]Doc, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, data FROM documents WHERE collection = ?`), collection)
	if err != nil {
		return nil, unavailable("list "+collection, err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, unavailable("list "+collection, err)
		}
		f, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, err)
		}
		docs = append(docs, Doc{ID: id, Fields: f})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list "+collection, err)
	}

	sortDocs(docs, orderBy)

	return docs, nil
}

func (s *SQL) Get(ctx context.Context, collection, id string) (Doc, error) {
	f, err := s.get(ctx, s.db, collection, id, false)
	if err != nil {
		return Doc{}, err
	}

	return Doc{ID: id, Fields: f}, nil
}

func (s *SQL) Create(ctx context.Context, collection string, data Fields) (string, error) {
	id := uuid.NewString()
	if _, err := s.CreateWithID(ctx, collection, id, data); err != nil {
		return "", err
	}

	return id, nil
}

func (s *SQL) CreateWithID(ctx context.Context, collection, id string, data Fields) (bool, error) {
	now := s.now()
	payload, err := encode(stamp(data, now, true))
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO documents (collection, id, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO NOTHING`),
		collection, id, payload, now.UTC().Format(timestampFormat))
	if err != nil {
		return false, unavailable("create "+collection, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("create "+collection, err)
	}
	if n == 0 {
		return false, nil
	}

	s.changed(ctx, collection)

	return true, nil
}

func (s *SQL) Update(ctx context.Context, collection, id string, patch Fields) error {
	err := s.inTx(ctx, "update "+collection, func(tx *sql.Tx) error {
		existing, err := s.get(ctx, tx, collection, id, true)
		if err != nil {
			return err
		}

		return s.put(ctx, tx, collection, id, merge(existing, stamp(patch, s.now(), false)))
	})
	if err != nil {
		return err
	}

	s.changed(ctx, collection)

	return nil
}

func (s *SQL) Set(ctx context.Context, collection, id string, data Fields, mergeExisting bool) error {
	err := s.inTx(ctx, "set "+collection, func(tx *sql.Tx) error {
		existing, err := s.get(ctx, tx, collection, id, true)
		exists := err == nil
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		next := stamp(data, s.now(), !exists)
		if exists {
			if created, ok := existing["createdAt"]; ok {
				next["createdAt"] = created
			}
			if mergeExisting {
				next = merge(existing, next)
			}
		}

		return s.put(ctx, tx, collection, id, next)
	})
	if err != nil {
		return err
	}

	s.changed(ctx, collection)

	return nil
}

func (s *SQL) Delete(ctx context.Context, collection, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM documents WHERE collection = ? AND id = ?`), collection, id)
	if err != nil {
		return false, unavailable("delete "+collection, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("delete "+collection, err)
	}
	if n == 0 {
		return false, nil
	}

	s.changed(ctx, collection)

	return true, nil
}

func (s *SQL) Subscribe(collection string, filter Filter, fn func([]Doc)) func() {
	return s.subscribe(collection, filter, fn)
}

func (s *SQL) Close() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}

	s.close()

	if s.listener != nil {
		s.listener.Close()
	}

	return s.db.Close()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQL) get(ctx context.Context, q querier, collection, id string, lock bool) (Fields, error) {
	query := `SELECT data FROM documents WHERE collection = ? AND id = ?`
	if lock && s.driver == "postgres" {
		query += ` FOR UPDATE`
	}

	var data string
	err := q.QueryRowContext(ctx, s.rebind(query), collection, id).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	case err != nil:
		return nil, unavailable("get "+collection, err)
	}

	return decode(data)
}

func (s *SQL) put(ctx context.Context, tx *sql.Tx, collection, id string, data Fields) error {
	payload, err := encode(data)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO documents (collection, id, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`),
		collection, id, payload, s.now().UTC().Format(timestampFormat))
	if err != nil {
		return unavailable("put "+collection, err)
	}

	return nil
}

func (s *SQL) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(op, err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable(op, err)
	}

	return nil
}

// changed wakes local subscribers and, on PostgreSQL, every other listener.
func (s *SQL) changed(ctx context.Context, collection string) {
	s.publish(collection)

	if s.driver != "postgres" {
		return
	}

	if _, err := s.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection); err != nil {
		log.Printf("STORE: Failed to notify peers of change to %q: %v", collection, err)
	}
}

// rebind rewrites ? placeholders into PostgreSQL's numbered form.
func (s *SQL) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

func encode(f Fields) (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	return string(data), nil
}

func decode(data string) (Fields, error) {
	f := Fields{}
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	return f, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
