package state

import (
	"sort"
	"time"

	"github.com/morozRed/ustgen/internal/fileutil"
	"github.com/morozRed/ustgen/internal/parser"
	"github.com/morozRed/ustgen/internal/semantic"
	"github.com/morozRed/ustgen/internal/traverse"
	"github.com/morozRed/ustgen/internal/ust"
)

const (
	CurrentStateVersion  = "1"
	CurrentParserVersion = "tree-sitter-ust-v1"
)

// FileState tracks the state of a single file
type FileState struct {
	Hash      string              `json:"hash"`
	Language  string              `json:"language,omitempty"`
	DeclsHash string              `json:"decls_hash,omitempty"`
	Decls     *semantic.FileDecls `json:"decls,omitempty"`
	Stats     traverse.Stats      `json:"stats"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// State tracks the state of all files for incremental updates. Roots are
// persisted separately from the file table and only rewritten when a file
// was rebuilt.
type State struct {
	Version           string               `json:"version"`
	ParserVersion     string               `json:"parser_version,omitempty"`
	PolicyFingerprint string               `json:"policy_fingerprint,omitempty"`
	UpdatedAt         time.Time            `json:"updated_at"`
	Files             map[string]FileState `json:"files"`
	OutputHashes      map[string]string    `json:"output_hashes,omitempty"`

	roots   map[string]*ust.Root
	dirty   map[string]bool
	removed map[string]bool
}

// NewState creates a new empty state
func NewState() *State {
	return &State{
		Version:       CurrentStateVersion,
		ParserVersion: CurrentParserVersion,
		Files:         make(map[string]FileState),
		OutputHashes:  make(map[string]string),
		roots:         make(map[string]*ust.Root),
		dirty:         make(map[string]bool),
		removed:       make(map[string]bool),
	}
}

// SetFileHash updates the hash for a file
func (s *State) SetFileHash(file, hash string) {
	s.Files[file] = FileState{
		Hash:      hash,
		UpdatedAt: time.Now(),
	}
	s.markDirty(file)
}

// SetFileData stores an analysed file. Roots reused from the prior run
// are not rewritten on save.
func (s *State) SetFileData(rec parser.FileRecord) {
	prev, existed := s.Files[rec.Path]
	updated := time.Now()
	if rec.Reused && existed {
		updated = prev.UpdatedAt
	}
	s.Files[rec.Path] = FileState{
		Hash:      rec.Hash,
		Language:  rec.Language,
		DeclsHash: rec.DeclsHash,
		Decls:     rec.Decls,
		Stats:     rec.Stats,
		UpdatedAt: updated,
	}
	if s.roots[rec.Path] != rec.Root {
		s.roots[rec.Path] = rec.Root
		s.markDirty(rec.Path)
	}
}

// Apply records every file of an analyzer result and forgets files the
// result no longer contains.
func (s *State) Apply(result *parser.Result) {
	current := make(map[string]bool, len(result.Files))
	for _, rec := range result.Files {
		current[rec.Path] = true
		s.SetFileData(rec)
	}
	for _, file := range s.DeletedFiles(current) {
		s.RemoveFile(file)
	}
}

// GetFileHash returns the stored hash for a file
func (s *State) GetFileHash(file string) (string, bool) {
	fs, ok := s.Files[file]
	if !ok {
		return "", false
	}
	return fs.Hash, true
}

// HasChanged returns true if the file hash differs from stored
func (s *State) HasChanged(file, currentHash string) bool {
	storedHash, ok := s.GetFileHash(file)
	if !ok {
		return true // New file
	}
	return storedHash != currentHash
}

// RemoveFile removes a file from state tracking
func (s *State) RemoveFile(file string) {
	delete(s.Files, file)
	delete(s.roots, file)
	delete(s.dirty, file)
	s.removed[file] = true
}

// ChangedFiles returns files that have changed based on provided hashes
func (s *State) ChangedFiles(currentHashes map[string]string) []string {
	changed := make([]string, 0)
	for file, hash := range currentHashes {
		if s.HasChanged(file, hash) {
			changed = append(changed, file)
		}
	}
	sort.Strings(changed)
	return changed
}

// DeletedFiles returns files that no longer exist
func (s *State) DeletedFiles(currentFiles map[string]bool) []string {
	deleted := make([]string, 0)
	for file := range s.Files {
		if !currentFiles[file] {
			deleted = append(deleted, file)
		}
	}
	sort.Strings(deleted)
	return deleted
}

// Root returns the stored root of a file.
func (s *State) Root(file string) (*ust.Root, bool) {
	root, ok := s.roots[file]
	return root, ok && root != nil
}

// Roots returns the stored roots in path order.
func (s *State) Roots() []*ust.Root {
	out := make([]*ust.Root, 0, len(s.roots))
	for _, file := range fileutil.MapKeysSorted(s.roots) {
		if root := s.roots[file]; root != nil {
			out = append(out, root)
		}
	}
	return out
}

// Prior converts the state into the analyzer's view of the previous run.
func (s *State) Prior() map[string]parser.Prior {
	out := make(map[string]parser.Prior, len(s.Files))
	for file, fs := range s.Files {
		out[file] = parser.Prior{
			Hash:      fs.Hash,
			DeclsHash: fs.DeclsHash,
			Decls:     fs.Decls,
			Root:      s.roots[file],
			Stats:     fs.Stats,
		}
	}
	return out
}

// UsePolicy records the capture policy fingerprint. Stored roots built
// under a different policy are dropped so every file is rebuilt; the
// return value reports whether that happened.
func (s *State) UsePolicy(fingerprint string) bool {
	if s.PolicyFingerprint == fingerprint {
		return false
	}
	invalidated := s.PolicyFingerprint != "" || len(s.roots) > 0
	s.PolicyFingerprint = fingerprint
	s.dropRoots()
	return invalidated
}

// SetOutputHash records the content hash for a generated output file.
func (s *State) SetOutputHash(path, hash string) {
	if s.OutputHashes == nil {
		s.OutputHashes = make(map[string]string)
	}
	s.OutputHashes[path] = hash
}

// GetOutputHash returns the previously stored hash for a generated output file.
func (s *State) GetOutputHash(path string) (string, bool) {
	hash, ok := s.OutputHashes[path]
	return hash, ok
}

func (s *State) markDirty(file string) {
	s.dirty[file] = true
	delete(s.removed, file)
}

func (s *State) dropRoots() {
	for file := range s.roots {
		s.removed[file] = true
	}
	s.roots = make(map[string]*ust.Root)
	for file, fs := range s.Files {
		fs.Stats = traverse.Stats{}
		s.Files[file] = fs
	}
}

func (s *State) init() {
	if s.Files == nil {
		s.Files = make(map[string]FileState)
	}
	if s.OutputHashes == nil {
		s.OutputHashes = make(map[string]string)
	}
	if s.roots == nil {
		s.roots = make(map[string]*ust.Root)
	}
	if s.dirty == nil {
		s.dirty = make(map[string]bool)
	}
	if s.removed == nil {
		s.removed = make(map[string]bool)
	}
}

// migrateState brings a loaded state up to the current versions. A
// parser change invalidates cached declarations and roots because both
// are parser output.
func migrateState(s *State) {
	s.init()

	if s.ParserVersion != CurrentParserVersion {
		s.ParserVersion = CurrentParserVersion
		s.dropRoots()
		for file, fs := range s.Files {
			fs.Decls = nil
			fs.DeclsHash = ""
			s.Files[file] = fs
		}
	}

	switch s.Version {
	case "":
		s.Version = CurrentStateVersion
	case CurrentStateVersion:
		// no-op
	default:
		// Keep unknown versions untouched but ensure required maps are initialized.
	}
}
