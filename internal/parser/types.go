package parser

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/morozRed/ustgen/internal/semantic"
	"github.com/morozRed/ustgen/internal/traverse"
	"github.com/morozRed/ustgen/internal/ust"
)

// ParseIssue captures a non-fatal file-level problem. The run continues
// without the file.
type ParseIssue struct {
	File     string `json:"file"`
	Language string `json:"language,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Prior is what a previous run knew about one file.
type Prior struct {
	Hash      string
	DeclsHash string
	Decls     *semantic.FileDecls
	Root      *ust.Root
	Stats     traverse.Stats
}

// FileRecord is the outcome of analysing one file.
type FileRecord struct {
	Path      string
	Language  string
	Hash      string
	DeclsHash string
	Decls     *semantic.FileDecls
	Root      *ust.Root
	Stats     traverse.Stats
	// Reused is set when Root was taken from the prior run unchanged.
	Reused bool
}

// Result is the outcome of one analyzer run.
type Result struct {
	RootPath string
	Files    []FileRecord
	Issues   []ParseIssue
	Stats    traverse.Stats
	// Transformed counts files whose Root was rebuilt in this run.
	Transformed int
	// DeclsChanged reports that the project-wide declaration set differs
	// from the prior run, which forces every file to be rebuilt.
	DeclsChanged bool
}

// Project is the serialized document for a whole project.
type Project struct {
	RootPath    string         `json:"root_path"`
	GeneratedAt time.Time      `json:"generated_at"`
	Files       []*ust.Root    `json:"files"`
	Issues      []ParseIssue   `json:"issues"`
	Stats       traverse.Stats `json:"stats"`
}

// Project collects the roots of r into an output document.
func (r *Result) Project(now time.Time) *Project {
	p := &Project{
		RootPath:    r.RootPath,
		GeneratedAt: now.UTC(),
		Files:       make([]*ust.Root, 0, len(r.Files)),
		Issues:      r.Issues,
		Stats:       r.Stats,
	}
	if p.Issues == nil {
		p.Issues = []ParseIssue{}
	}
	for _, f := range r.Files {
		if f.Root != nil {
			p.Files = append(p.Files, f.Root)
		}
	}
	return p
}

// DecodeProject reads a project document, rebuilding every root through
// the node registry.
func DecodeProject(data []byte) (*Project, error) {
	var wire struct {
		RootPath    string            `json:"root_path"`
		GeneratedAt time.Time         `json:"generated_at"`
		Files       []json.RawMessage `json:"files"`
		Issues      []ParseIssue      `json:"issues"`
		Stats       traverse.Stats    `json:"stats"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}

	p := &Project{
		RootPath:    wire.RootPath,
		GeneratedAt: wire.GeneratedAt,
		Files:       make([]*ust.Root, 0, len(wire.Files)),
		Issues:      wire.Issues,
		Stats:       wire.Stats,
	}
	for i, raw := range wire.Files {
		root, err := ust.DecodeRoot(raw)
		if err != nil {
			return nil, fmt.Errorf("decode project file %d: %w", i, err)
		}
		p.Files = append(p.Files, root)
	}
	return p, nil
}
