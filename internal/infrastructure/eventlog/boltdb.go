package eventlog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/repository"
)

var (
	eventsBucket      = []byte("page_views")
	preferencesBucket = []byte("preferences")
)

// Store wraps BoltDB as the persistent slot: the view event log plus client preferences.
type Store struct {
	db *bolt.DB
}

// Open initializes the BoltDB file and ensures the buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{eventsBucket, preferencesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Append stores the event under the next sequence key and evicts the oldest
// entries beyond capacity in the same transaction.
func (s *Store) Append(_ context.Context, event domain.ViewEvent, capacity int) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(eventsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(sequenceKey(seq), payload); err != nil {
			return err
		}
		if capacity <= 0 {
			return nil
		}

		excess := countKeys(b) - capacity
		c := b.Cursor()
		for k, _ := c.First(); k != nil && excess > 0; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
			excess--
		}
		return nil
	})
}

// List returns every readable event, oldest first.
func (s *Store) List(_ context.Context) ([]domain.ViewEvent, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}

	events := make([]domain.ViewEvent, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(eventsBucket).ForEach(func(_, v []byte) error {
			var event domain.ViewEvent
			if err := json.Unmarshal(v, &event); err != nil {
				return nil
			}
			events = append(events, event)
			return nil
		})
	})
	return events, err
}

// Size returns the number of stored events.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(eventsBucket).Stats().KeyN
		return nil
	})
	return count, err
}

// DeleteBefore removes events stamped before cutoff and unreadable entries.
func (s *Store) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var removed int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(eventsBucket)
		var stale [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			var event domain.ViewEvent
			if err := json.Unmarshal(v, &event); err != nil || event.Timestamp.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Clear drops every event.
func (s *Store) Clear(_ context.Context) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(eventsBucket); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(eventsBucket)
		return err
	})
}

// GetPreference returns the stored value or "" when none was saved.
func (s *Store) GetPreference(_ context.Context, clientID, key string) (string, error) {
	if s == nil || s.db == nil {
		return "", bolt.ErrDatabaseNotOpen
	}
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(preferencesBucket).Get(preferenceKey(clientID, key)); v != nil {
			value = string(v)
		}
		return nil
	})
	return value, err
}

func (s *Store) SetPreference(_ context.Context, clientID, key, value string) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(preferencesBucket).Put(preferenceKey(clientID, key), []byte(value))
	})
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func countKeys(b *bolt.Bucket) int {
	var n int
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func preferenceKey(clientID, key string) []byte {
	return []byte(clientID + "\x00" + key)
}

var (
	_ repository.EventLog        = (*Store)(nil)
	_ repository.PreferenceStore = (*Store)(nil)
)
