// Package state persists analysis results between runs in a bbolt
// database under the project's .ustgen directory. The meta bucket holds
// the state header, files holds per-file hashes and declarations, roots
// holds the serialized UST of each file and outputs the hashes of
// written output files. Saves are transactional.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/morozRed/ustgen/internal/ust"
)

const (
	DirName   = ".ustgen"
	StateFile = "state.db"
)

// Bucket keys
var (
	bucketMeta    = []byte("meta")
	bucketFiles   = []byte("files")
	bucketRoots   = []byte("roots")
	bucketOutputs = []byte("outputs")
	keyHeader     = []byte("header")
)

type header struct {
	Version           string    `json:"version"`
	ParserVersion     string    `json:"parser_version"`
	PolicyFingerprint string    `json:"policy_fingerprint"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Store is the on-disk state of one project.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) rootPath/.ustgen/state.db.
func Open(rootPath string) (*Store, error) {
	dir := filepath.Join(rootPath, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return OpenFile(filepath.Join(dir, StateFile))
}

// OpenFile opens the state database at path.
func OpenFile(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the stored state. A fresh database yields an empty state.
func (s *Store) Load() (*State, error) {
	st := NewState()
	st.ParserVersion = ""

	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			st.ParserVersion = CurrentParserVersion
			return nil
		}
		if data := meta.Get(keyHeader); data != nil {
			var h header
			if err := json.Unmarshal(data, &h); err != nil {
				return fmt.Errorf("decode state header: %w", err)
			}
			st.Version = h.Version
			st.ParserVersion = h.ParserVersion
			st.PolicyFingerprint = h.PolicyFingerprint
			st.UpdatedAt = h.UpdatedAt
		}

		if b := tx.Bucket(bucketFiles); b != nil {
			if err := b.ForEach(func(k, v []byte) error {
				var fs FileState
				if err := json.Unmarshal(v, &fs); err != nil {
					return fmt.Errorf("decode file state %s: %w", k, err)
				}
				st.Files[string(k)] = fs
				return nil
			}); err != nil {
				return err
			}
		}

		if b := tx.Bucket(bucketRoots); b != nil {
			if err := b.ForEach(func(k, v []byte) error {
				// v is only valid inside the transaction; DecodeRoot copies
				// everything it keeps.
				root, err := ust.DecodeRoot(v)
				if err != nil {
					return fmt.Errorf("decode root %s: %w", k, err)
				}
				st.roots[string(k)] = root
				return nil
			}); err != nil {
				return err
			}
		}

		if b := tx.Bucket(bucketOutputs); b != nil {
			return b.ForEach(func(k, v []byte) error {
				st.OutputHashes[string(k)] = string(v)
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	migrateState(st)
	return st, nil
}

// Save writes the header, every file entry and the roots changed since
// the last load or save. Removed files are deleted from all buckets.
func (s *Store) Save(st *State) error {
	st.init()
	if st.Version == "" {
		st.Version = CurrentStateVersion
	}
	if st.ParserVersion == "" {
		st.ParserVersion = CurrentParserVersion
	}
	st.UpdatedAt = time.Now()

	headerJSON, err := json.Marshal(header{
		Version:           st.Version,
		ParserVersion:     st.ParserVersion,
		PolicyFingerprint: st.PolicyFingerprint,
		UpdatedAt:         st.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal state header: %w", err)
	}

	files := make(map[string][]byte, len(st.Files))
	for file, fs := range st.Files {
		data, err := json.Marshal(fs)
		if err != nil {
			return fmt.Errorf("marshal file state %s: %w", file, err)
		}
		files[file] = data
	}

	roots := make(map[string][]byte, len(st.dirty))
	for file := range st.dirty {
		root := st.roots[file]
		if root == nil {
			continue
		}
		data, err := json.Marshal(root)
		if err != nil {
			return fmt.Errorf("marshal root %s: %w", file, err)
		}
		roots[file] = data
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if err := meta.Put(keyHeader, headerJSON); err != nil {
			return err
		}

		fb, err := tx.CreateBucketIfNotExists(bucketFiles)
		if err != nil {
			return err
		}
		rb, err := tx.CreateBucketIfNotExists(bucketRoots)
		if err != nil {
			return err
		}
		ob, err := tx.CreateBucketIfNotExists(bucketOutputs)
		if err != nil {
			return err
		}

		for file := range st.removed {
			key := []byte(file)
			if err := rb.Delete(key); err != nil {
				return err
			}
			if _, ok := st.Files[file]; !ok {
				if err := fb.Delete(key); err != nil {
					return err
				}
			}
		}
		for file, data := range files {
			if err := fb.Put([]byte(file), data); err != nil {
				return err
			}
		}
		for file, data := range roots {
			if err := rb.Put([]byte(file), data); err != nil {
				return err
			}
		}
		for path, hash := range st.OutputHashes {
			if err := ob.Put([]byte(path), []byte(hash)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	st.dirty = make(map[string]bool)
	st.removed = make(map[string]bool)
	return nil
}

// Reset drops every bucket. It is used when the stored state can no
// longer be decoded.
func (s *Store) Reset() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketFiles, bucketRoots, bucketOutputs} {
			if tx.Bucket(name) == nil {
				continue
			}
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}
