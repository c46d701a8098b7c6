package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/morozRed/ustgen/internal/fileutil"
	"github.com/morozRed/ustgen/internal/parser"
	"github.com/morozRed/ustgen/internal/state"
)

// Format selects how the project document is written.
type Format string

const (
	// FormatJSON writes one indented project document.
	FormatJSON Format = "json"
	// FormatJSONL writes one compact Root per line.
	FormatJSONL Format = "jsonl"

	outputBase = "ust"
)

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatJSONL:
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unsupported format %q (supported: json, jsonl)", value)
	}
}

// DefaultOutputPath is rootPath/.ustgen/ust.<format>.
func DefaultOutputPath(rootPath string, format Format) string {
	return filepath.Join(rootPath, state.DirName, outputBase+"."+string(format))
}

// EncodeProject renders the project in format.
func EncodeProject(project *parser.Project, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return fileutil.EncodeJSON(project)
	case FormatJSONL:
		return fileutil.EncodeJSONL(project.Files)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
