package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"contacts/internal/models"

	bolt "go.etcd.io/bbolt"
)

var (
	metaBucket     = []byte("meta")
	contactsBucket = []byte("contacts")

	keySchemaVersion = []byte("schema_version")
	keyLastSync      = []byte("last_sync")
)

const schemaVersion = "1"

var ErrNotFound = errors.New("contact not found")

type Store struct {
	db     *bolt.DB
	dbPath string
}

func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}

	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{metaBucket, contactsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		meta := tx.Bucket(metaBucket)
		if meta.Get(keySchemaVersion) == nil {
			if err := meta.Put(keySchemaVersion, []byte(schemaVersion)); err != nil {
				return err
			}
		}

		return nil
	})
}

func contactKey(id string) []byte {
	return []byte("contact:" + id)
}

func (s *Store) SaveContact(c models.Contact) error {
	if c.ID == "" {
		return fmt.Errorf("contact has no id")
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize contact: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(contactsBucket).Put(contactKey(c.ID), data)
	})
}

func (s *Store) GetContact(id string) (models.Contact, error) {
	var c models.Contact
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(contactsBucket).Get(contactKey(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &c)
	})
	if err != nil {
		return models.Contact{}, err
	}
	return c, nil
}

// DeleteContact is idempotent: deleting a missing record is not an error.
func (s *Store) DeleteContact(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(contactsBucket).Delete(contactKey(id))
	})
}

// ListContacts returns every record, soft-deleted ones included, sorted by
// last then first name.
func (s *Store) ListContacts() ([]models.Contact, error) {
	var contacts []models.Contact
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(contactsBucket).ForEach(func(k, v []byte) error {
			var c models.Contact
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("failed to parse contact %s: %w", k, err)
			}
			contacts = append(contacts, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(contacts, func(i, j int) bool {
		a, b := contacts[i], contacts[j]
		if !strings.EqualFold(a.LastName, b.LastName) {
			return strings.ToLower(a.LastName) < strings.ToLower(b.LastName)
		}
		return strings.ToLower(a.FirstName) < strings.ToLower(b.FirstName)
	})
	return contacts, nil
}

func (s *Store) FindByRemoteID(remoteID string) (models.Contact, error) {
	if remoteID == "" {
		return models.Contact{}, ErrNotFound
	}
	var found *models.Contact
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(contactsBucket).ForEach(func(k, v []byte) error {
			if found != nil {
				return nil
			}
			var c models.Contact
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("failed to parse contact %s: %w", k, err)
			}
			if c.RemoteID == remoteID {
				found = &c
			}
			return nil
		})
	})
	if err != nil {
		return models.Contact{}, err
	}
	if found == nil {
		return models.Contact{}, ErrNotFound
	}
	return *found, nil
}

func (s *Store) SetLastSync(t time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(keyLastSync, []byte(t.UTC().Format(time.RFC3339)))
	})
}

// LastSync returns the zero time when no sync has completed yet.
func (s *Store) LastSync() (time.Time, error) {
	var raw []byte
	s.db.View(func(tx *bolt.Tx) error {
		raw = copyBytes(tx.Bucket(metaBucket).Get(keyLastSync))
		return nil
	})
	if raw == nil {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse last sync time: %w", err)
	}
	return t, nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
