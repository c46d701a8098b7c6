package parser

import (
	"bytes"

	"github.com/morozRed/ustgen/internal/ust"
)

// FileInfo is the file metadata stamped onto a root.
type FileInfo struct {
	Path     string // workspace-relative, slash separated
	FullPath string
	Language string
	Content  []byte
}

// Assemble stamps file metadata onto the root produced by a traversal.
// The root's identifier is its relative path.
func Assemble(root *ust.Root, info FileInfo) *ust.Root {
	if root == nil {
		root = ust.NewRoot()
	}
	root.Identifier = info.Path
	root.Language = info.Language
	root.FilePath = info.Path
	root.FileFullPath = info.FullPath
	root.LineCount = lineCount(info.Content)
	if root.References == nil {
		root.References = []ust.Reference{}
	}
	return root
}

// lineCount counts lines the way editors number them: a trailing newline
// does not open a new line, and empty content has none.
func lineCount(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
