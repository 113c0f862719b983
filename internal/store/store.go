package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"
)

// Table names shared by the web process and the dispatcher.
const (
	TableProfile   = "profile"
	TableContacts  = "contacts"
	TableTemplates = "templates"
	TableEmails    = "scheduled_emails"
	TableReminders = "reminders"
)

var ErrNotFound = errors.New("document not found")

// Store is a schemaless document store: one JSON file per table, every
// operation a whole-file read-modify-write under an OS file lock. Two
// processes share a store directory safely as long as write volume
// stays low; there is no sub-record transaction.
type Store struct {
	dir         string
	lockTimeout time.Duration
}

// Record is one stored document plus its assigned id.
type Record struct {
	ID   int64
	Data json.RawMessage
}

// Decode unmarshals the record into out.
func (r Record) Decode(out any) error {
	return json.Unmarshal(r.Data, out)
}

func New(dir string, lockTimeout time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &Store{dir: dir, lockTimeout: lockTimeout}, nil
}

// tableFile is the on-disk layout of a table.
type tableFile struct {
	LastID int64                      `json:"last_id"`
	Docs   map[string]json.RawMessage `json:"docs"`
}

func (s *Store) tablePath(table string) string {
	return filepath.Join(s.dir, table+".json")
}

// withLock acquires the table's file lock, retrying briefly under
// contention with the other process, then runs fn.
func (s *Store) withLock(table string, fn func() error) error {
	fl := flock.New(s.tablePath(table) + ".lock")

	acquire := func() error {
		ok, err := fl.TryLock()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errors.New("table lock held")
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxElapsedTime = s.lockTimeout

	if err := backoff.Retry(acquire, b); err != nil {
		return fmt.Errorf("lock table %s: %w", table, err)
	}
	defer fl.Unlock()

	return fn()
}

func (s *Store) readTable(table string) (*tableFile, error) {
	raw, err := os.ReadFile(s.tablePath(table))
	if errors.Is(err, os.ErrNotExist) {
		return &tableFile{Docs: map[string]json.RawMessage{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", table, err)
	}

	var tf tableFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", table, err)
	}
	if tf.Docs == nil {
		tf.Docs = map[string]json.RawMessage{}
	}
	return &tf, nil
}

// writeTable writes through a temp file and renames so a crash mid-write
// never leaves a half-written table behind.
func (s *Store) writeTable(table string, tf *tableFile) error {
	raw, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode table %s: %w", table, err)
	}

	path := s.tablePath(table)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write table %s: %w", table, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace table %s: %w", table, err)
	}
	return nil
}

// Insert stores doc under the next auto-assigned id and returns it. The
// document's own "id" field is overwritten with the assigned value.
func (s *Store) Insert(table string, doc any) (int64, error) {
	var id int64
	err := s.withLock(table, func() error {
		tf, err := s.readTable(table)
		if err != nil {
			return err
		}

		tf.LastID++
		id = tf.LastID

		raw, err := marshalWithID(doc, id)
		if err != nil {
			return err
		}
		tf.Docs[strconv.FormatInt(id, 10)] = raw

		return s.writeTable(table, tf)
	})
	return id, err
}

// Upsert stores doc under a fixed id, creating or replacing it. Used for
// singleton records like the sender profile.
func (s *Store) Upsert(table string, id int64, doc any) error {
	return s.withLock(table, func() error {
		tf, err := s.readTable(table)
		if err != nil {
			return err
		}

		raw, err := marshalWithID(doc, id)
		if err != nil {
			return err
		}
		tf.Docs[strconv.FormatInt(id, 10)] = raw
		if id > tf.LastID {
			tf.LastID = id
		}

		return s.writeTable(table, tf)
	})
}

// Get unmarshals the document with the given id into out.
func (s *Store) Get(table string, id int64, out any) error {
	return s.withLock(table, func() error {
		tf, err := s.readTable(table)
		if err != nil {
			return err
		}
		raw, ok := tf.Docs[strconv.FormatInt(id, 10)]
		if !ok {
			return ErrNotFound
		}
		return json.Unmarshal(raw, out)
	})
}

// All returns every document in the table in ascending id order.
func (s *Store) All(table string) ([]Record, error) {
	return s.Query(table, nil)
}

// Query returns the documents matching keep, ascending by id. A nil
// predicate matches everything.
func (s *Store) Query(table string, keep func(Record) bool) ([]Record, error) {
	var records []Record
	err := s.withLock(table, func() error {
		tf, err := s.readTable(table)
		if err != nil {
			return err
		}
		for key, raw := range tf.Docs {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				continue // skip corrupt key
			}
			rec := Record{ID: id, Data: raw}
			if keep == nil || keep(rec) {
				records = append(records, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// Update applies a shallow field patch to the document with the given id.
func (s *Store) Update(table string, id int64, patch map[string]any) error {
	return s.withLock(table, func() error {
		tf, err := s.readTable(table)
		if err != nil {
			return err
		}

		key := strconv.FormatInt(id, 10)
		raw, ok := tf.Docs[key]
		if !ok {
			return ErrNotFound
		}

		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode document %s/%d: %w", table, id, err)
		}
		for k, v := range patch {
			doc[k] = v
		}

		updated, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode document %s/%d: %w", table, id, err)
		}
		tf.Docs[key] = updated

		return s.writeTable(table, tf)
	})
}

// Delete removes the document with the given id.
func (s *Store) Delete(table string, id int64) error {
	return s.withLock(table, func() error {
		tf, err := s.readTable(table)
		if err != nil {
			return err
		}

		key := strconv.FormatInt(id, 10)
		if _, ok := tf.Docs[key]; !ok {
			return ErrNotFound
		}
		delete(tf.Docs, key)

		return s.writeTable(table, tf)
	})
}

// marshalWithID serializes doc and forces its "id" field to id, keeping
// the stored document consistent with its table key.
func marshalWithID(doc any, id int64) (json.RawMessage, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	m["id"] = id
	return json.Marshal(m)
}
