// Package store persists bot state as JSON documents in SQLite and exposes
// the narrow find/update/delete surface every module shares. Filtering and
// update application happen in Go against the decoded document, so modules
// never issue SQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Collection names used across modules.
const (
	ColServerSettings = "server_settings"
	ColEconomy        = "economy"
	ColLeveling       = "leveling"
	ColWarnings       = "warnings"
	ColTickets        = "tickets"
	ColGiveaways      = "giveaways"
	ColAutoroles      = "autoroles"
	ColTags           = "tags"
)

// Doc is one stored document. Values follow encoding/json conventions
// after a round trip: numbers are float64, arrays []any, objects
// map[string]any.
type Doc = map[string]any

// ErrNoDocument is returned by FindOne and FindOneAndUpdate when nothing
// matches the filter.
var ErrNoDocument = errors.New("store: no matching document")

// FindOptions carries optional sort and limit for FindMany.
type FindOptions struct {
	SortField string
	SortDesc  bool
	Limit     int
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite file backing the store. A single
// connection keeps read-modify-write operations atomic per process.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0755)
	}

	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	d.SetMaxOpenConns(1)
	d.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := d.PingContext(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}

	return &Store{db: d}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// FindOne returns the oldest document matching filter, or ErrNoDocument.
func (s *Store) FindOne(ctx context.Context, collection string, filter Doc) (Doc, error) {
	var found Doc
	err := s.scan(ctx, s.db, collection, func(id int64, doc Doc) bool {
		if matches(doc, filter) {
			found = doc
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNoDocument
	}
	return found, nil
}

// FindMany returns all documents matching filter, sorted and limited per
// opts. A nil opts returns every match in insertion order.
func (s *Store) FindMany(ctx context.Context, collection string, filter Doc, opts *FindOptions) ([]Doc, error) {
	var out []Doc
	err := s.scan(ctx, s.db, collection, func(id int64, doc Doc) bool {
		if matches(doc, filter) {
			out = append(out, doc)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if opts != nil {
		if opts.SortField != "" {
			sortDocs(out, opts.SortField, opts.SortDesc)
		}
		if opts.Limit > 0 && len(out) > opts.Limit {
			out = out[:opts.Limit]
		}
	}
	return out, nil
}

// UpdateOne applies update to the first document matching filter and
// reports how many documents were written (0 or 1). With upsert a missing
// document is created from the filter's equality fields before the update
// is applied.
func (s *Store) UpdateOne(ctx context.Context, collection string, filter, update Doc, upsert bool) (int, error) {
	n := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, doc, err := s.findFirst(ctx, tx, collection, filter)
		if errors.Is(err, ErrNoDocument) {
			if !upsert {
				return nil
			}
			doc = seedFromFilter(filter)
			if err := applyUpdate(doc, update); err != nil {
				return err
			}
			if err := s.insert(ctx, tx, collection, doc); err != nil {
				return err
			}
			n = 1
			return nil
		}
		if err != nil {
			return err
		}
		if err := applyUpdate(doc, update); err != nil {
			return err
		}
		if err := s.replace(ctx, tx, id, doc); err != nil {
			return err
		}
		n = 1
		return nil
	})
	return n, err
}

// FindOneAndUpdate is UpdateOne returning the post-update document
// (atomic read-modify-write, used for balance and XP increment-and-fetch).
// Without upsert a missing document yields ErrNoDocument.
func (s *Store) FindOneAndUpdate(ctx context.Context, collection string, filter, update Doc, upsert bool) (Doc, error) {
	var out Doc
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, doc, err := s.findFirst(ctx, tx, collection, filter)
		if errors.Is(err, ErrNoDocument) {
			if !upsert {
				return ErrNoDocument
			}
			doc = seedFromFilter(filter)
			if err := applyUpdate(doc, update); err != nil {
				return err
			}
			if err := s.insert(ctx, tx, collection, doc); err != nil {
				return err
			}
			out = doc
			return nil
		}
		if err != nil {
			return err
		}
		if err := applyUpdate(doc, update); err != nil {
			return err
		}
		if err := s.replace(ctx, tx, id, doc); err != nil {
			return err
		}
		out = doc
		return nil
	})
	return out, err
}

// DeleteOne removes the first document matching filter.
func (s *Store) DeleteOne(ctx context.Context, collection string, filter Doc) (int, error) {
	n := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, _, err := s.findFirst(ctx, tx, collection, filter)
		if errors.Is(err, ErrNoDocument) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
			return err
		}
		n = 1
		return nil
	})
	return n, err
}

// DeleteMany removes every document matching filter.
func (s *Store) DeleteMany(ctx context.Context, collection string, filter Doc) (int, error) {
	n := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var ids []int64
		err := s.scanTx(ctx, tx, collection, func(id int64, doc Doc) bool {
			if matches(doc, filter) {
				ids = append(ids, id)
			}
			return true
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
				return err
			}
		}
		n = len(ids)
		return nil
	})
	return n, err
}

// CountDocuments counts documents matching filter.
func (s *Store) CountDocuments(ctx context.Context, collection string, filter Doc) (int, error) {
	n := 0
	err := s.scan(ctx, s.db, collection, func(id int64, doc Doc) bool {
		if matches(doc, filter) {
			n++
		}
		return true
	})
	return n, err
}

// InsertOne stores a new document. Modules that key documents by an
// external identifier (message id, ticket id) insert directly instead of
// upserting.
func (s *Store) InsertOne(ctx context.Context, collection string, doc Doc) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.insert(ctx, tx, collection, doc)
	})
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) scan(ctx context.Context, q querier, collection string, fn func(id int64, doc Doc) bool) error {
	rows, err := q.QueryContext(ctx, `SELECT id, doc FROM documents WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			raw string
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return err
		}
		var doc Doc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return err
		}
		if !fn(id, doc) {
			break
		}
	}
	return rows.Err()
}

func (s *Store) scanTx(ctx context.Context, tx *sql.Tx, collection string, fn func(id int64, doc Doc) bool) error {
	return s.scan(ctx, tx, collection, fn)
}

func (s *Store) findFirst(ctx context.Context, tx *sql.Tx, collection string, filter Doc) (int64, Doc, error) {
	var (
		foundID  int64
		foundDoc Doc
	)
	err := s.scanTx(ctx, tx, collection, func(id int64, doc Doc) bool {
		if matches(doc, filter) {
			foundID, foundDoc = id, doc
			return false
		}
		return true
	})
	if err != nil {
		return 0, nil, err
	}
	if foundDoc == nil {
		return 0, nil, ErrNoDocument
	}
	return foundID, foundDoc, nil
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, collection string, doc Doc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO documents(collection, doc) VALUES(?, ?)`, collection, string(raw))
	return err
}

func (s *Store) replace(ctx context.Context, tx *sql.Tx, id int64, doc Doc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE documents SET doc = ? WHERE id = ?`, string(raw), id)
	return err
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Decode unmarshals a document into a typed struct via a JSON round trip.
func Decode(doc Doc, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Encode converts a typed struct into a document the same way.
func Encode(in any) (Doc, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var doc Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
