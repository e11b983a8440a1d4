// Package store provides a thin bbolt wrapper for appmeta's local data store.
//
// The store is an explicit accumulator, not a cache: records are written only
// when a command is run with --store, and fetch commands never read from it.
//
// Buckets:
//
//	apps     canonical app records keyed by country and store ID
//	privacy  privacy-label payloads keyed by country and store ID
//	_meta    internal: schema version, created_at
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/appmeta/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketApps     = []byte("apps")
	bucketPrivacy  = []byte("privacy")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every user-facing bucket for stats and clear operations.
var AllBuckets = []string{"apps", "privacy"}

// Store wraps a bbolt database.
type Store struct {
	db   *bolt.DB
	path string
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

func openDB(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}
	return db, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.path
}

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketApps, bucketPrivacy, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Keys ─────────────────────────────────────────────────────────────────────

// Key builds the canonical key for a record: <country>:<id>.
func Key(country, id string) string {
	return strings.ToLower(country) + ":" + id
}

// ─── App records ──────────────────────────────────────────────────────────────

// StoredApp is the on-disk envelope for an app record.
type StoredApp struct {
	Key       string          `json:"key"`
	Country   string          `json:"country"`
	FetchedAt time.Time       `json:"fetched_at"`
	Source    string          `json:"source"` // catalog | lookup
	App       model.AppRecord `json:"app"`
}

// PutApp stores rec under country:rec.ID, stamping FetchedAt.
func (s *Store) PutApp(country, source string, rec model.AppRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("cannot store app record without id")
	}
	env := StoredApp{
		Key:       Key(country, rec.ID),
		Country:   strings.ToLower(country),
		FetchedAt: time.Now().UTC(),
		Source:    source,
		App:       rec,
	}
	return s.put(bucketApps, env.Key, env)
}

// GetApp retrieves a stored app record.
// Returns (app, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetApp(country, id string) (StoredApp, bool, error) {
	var env StoredApp
	ok, err := s.get(bucketApps, Key(country, id), &env)
	return env, ok, err
}

// ListApps returns every stored app record in key order.
func (s *Store) ListApps() ([]StoredApp, error) {
	var out []StoredApp
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketApps).ForEach(func(k, v []byte) error {
			var env StoredApp
			if err := json.Unmarshal(v, &env); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			out = append(out, env)
			return nil
		})
	})
	return out, err
}

// ─── Privacy records ──────────────────────────────────────────────────────────

// StoredPrivacy is the on-disk envelope for a privacy label.
type StoredPrivacy struct {
	FetchedAt time.Time           `json:"fetched_at"`
	Record    model.PrivacyRecord `json:"record"`
}

// PutPrivacy stores a privacy label under country:id.
func (s *Store) PutPrivacy(rec model.PrivacyRecord) error {
	env := StoredPrivacy{FetchedAt: time.Now().UTC(), Record: rec}
	return s.put(bucketPrivacy, Key(rec.Country, rec.ID), env)
}

// GetPrivacy retrieves a stored privacy label.
func (s *Store) GetPrivacy(country, id string) (StoredPrivacy, bool, error) {
	var env StoredPrivacy
	ok, err := s.get(bucketPrivacy, Key(country, id), &env)
	return env, ok, err
}

// ─── Generic helpers ──────────────────────────────────────────────────────────

func (s *Store) put(bucket []byte, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *Store) get(bucket []byte, key string, out interface{}) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, out)
	})
	return found, err
}

// ListKeys returns the keys of a bucket that start with prefix, in order.
func (s *Store) ListKeys(bucket, prefix string) ([]string, error) {
	var keys []string
	p := []byte(prefix)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("unknown bucket %q", bucket)
		}
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all user-facing buckets.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			st := BucketStats{Name: name}
			err := b.ForEach(func(k, v []byte) error {
				st.Count++
				st.Bytes += int64(len(k) + len(v))
				return nil
			})
			if err != nil {
				return err
			}
			stats = append(stats, st)
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	if !isUserBucket(name) {
		return fmt.Errorf("unknown bucket %q (valid: %s)", name, strings.Join(AllBuckets, ", "))
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}

// Compact rewrites the database into a fresh file and swaps it in place,
// returning the file sizes before and after. The Store stays usable.
func (s *Store) Compact() (before, after int64, err error) {
	if fi, err := os.Stat(s.path); err == nil {
		before = fi.Size()
	}

	tmpPath := s.path + ".compact"
	_ = os.Remove(tmpPath)
	dst, err := openDB(tmpPath)
	if err != nil {
		return 0, 0, err
	}
	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return 0, 0, fmt.Errorf("compacting: %w", err)
	}
	if err := dst.Close(); err != nil {
		return 0, 0, err
	}
	if err := s.db.Close(); err != nil {
		return 0, 0, err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return 0, 0, fmt.Errorf("replacing db: %w", err)
	}
	db, err := openDB(s.path)
	if err != nil {
		return 0, 0, err
	}
	s.db = db

	if fi, err := os.Stat(s.path); err == nil {
		after = fi.Size()
	}
	return before, after, nil
}

func isUserBucket(name string) bool {
	for _, b := range AllBuckets {
		if b == name {
			return true
		}
	}
	return false
}
