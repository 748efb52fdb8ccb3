// Package journal keeps a local append-only record of server interactions:
// logins, collection listings and catalog descriptions. Entries live in a
// bbolt database next to the registry file.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Kind labels what an entry records.
type Kind string

const (
	KindAuth     Kind = "auth"
	KindSearch   Kind = "search"
	KindDownload Kind = "download"
)

const (
	schemaVersion = 1

	metaBucketName    = "meta"
	entriesBucketName = "entries"
	versionKey        = "version"

	FileName = "journal.db"
)

var (
	ErrClosed      = errors.New("journal is closed")
	ErrInvalidKind = errors.New("invalid journal kind")
)

// Entry is one recorded interaction with a server.
type Entry struct {
	ID      string    `json:"id"`
	Server  string    `json:"server"`
	Kind    Kind      `json:"kind"`
	Subject string    `json:"subject,omitempty"`
	At      time.Time `json:"at"`
}

// Journal is the on-disk entry store. Safe for concurrent use.
type Journal struct {
	mu     sync.RWMutex
	db     *bolt.DB
	closed bool
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal dir: %w", err)
	}
	options := &bolt.Options{Timeout: time.Second}
	db, err := bolt.Open(trimmed, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

// Append records one interaction. The entry ID and timestamp are assigned
// here; callers only name the server, the kind and an optional subject.
func (j *Journal) Append(server string, kind Kind, subject string) (Entry, error) {
	switch kind {
	case KindAuth, KindSearch, KindDownload:
	default:
		return Entry{}, ErrInvalidKind
	}
	entry := Entry{
		ID:      uuid.NewString(),
		Server:  server,
		Kind:    kind,
		Subject: subject,
		At:      time.Now().UTC(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("encode journal entry: %w", err)
	}
	if err := j.update(func(tx *bolt.Tx) error {
		entries := tx.Bucket([]byte(entriesBucketName))
		if entries == nil {
			return fmt.Errorf("missing entries bucket")
		}
		seq, err := entries.NextSequence()
		if err != nil {
			return fmt.Errorf("next journal sequence: %w", err)
		}
		return entries.Put(sequenceKey(seq), raw)
	}); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// List returns entries in append order. A non-empty server filters to that
// server's entries, and limit > 0 keeps only the most recent ones.
func (j *Journal) List(server string, limit int) ([]Entry, error) {
	var out []Entry
	err := j.view(func(tx *bolt.Tx) error {
		entries := tx.Bucket([]byte(entriesBucketName))
		if entries == nil {
			return fmt.Errorf("missing entries bucket")
		}
		return entries.ForEach(func(_, value []byte) error {
			var entry Entry
			if err := json.Unmarshal(value, &entry); err != nil {
				return fmt.Errorf("decode journal entry: %w", err)
			}
			if server != "" && entry.Server != server {
				return nil
			}
			out = append(out, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (j *Journal) view(fn func(*bolt.Tx) error) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	return j.db.View(fn)
}

func (j *Journal) update(fn func(*bolt.Tx) error) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	return j.db.Update(fn)
}

func ensureSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucketName))
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(entriesBucketName)); err != nil {
			return fmt.Errorf("create entries bucket: %w", err)
		}

		current := readSchemaVersion(meta)
		switch {
		case current == 0:
			return writeSchemaVersion(meta, schemaVersion)
		case current > schemaVersion:
			return fmt.Errorf("unsupported journal schema version %d", current)
		default:
			return nil
		}
	})
}

func readSchemaVersion(meta *bolt.Bucket) int {
	raw := meta.Get([]byte(versionKey))
	if len(raw) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(raw))
}

func writeSchemaVersion(meta *bolt.Bucket, version int) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(version))
	return meta.Put([]byte(versionKey), buf)
}

func sequenceKey(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}
