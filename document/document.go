package document

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/InfinitiBit/graphbit/core"
)

// Dependency is the logical dependency name for document loading, used by
// the circuit breaker registry.
const Dependency = "loader"

// Document is one loaded source text.
type Document struct {
	// ID uniquely identifies the document within a pipeline run.
	ID string
	// Source is where the content came from (path, name).
	Source string
	// Content is the full text.
	Content string
}

// Loader resolves a reference to document content. Implementations must be
// safe for concurrent use.
type Loader interface {
	Load(ctx context.Context, ref string) (*Document, error)
}

// FileLoader reads UTF-8 text files from disk, optionally scoped to a root
// directory.
type FileLoader struct {
	root string
}

// NewFileLoader creates a loader. A non-empty root confines all refs to
// that directory.
func NewFileLoader(root string) *FileLoader {
	return &FileLoader{root: root}
}

// Load implements Loader. Missing files and escape-from-root refs are
// permanent errors; transient filesystem conditions are not distinguished.
func (l *FileLoader) Load(_ context.Context, ref string) (*Document, error) {
	path := ref
	if l.root != "" {
		path = filepath.Join(l.root, ref)
		rel, err := filepath.Rel(l.root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, core.NewPermanentError(Dependency,
				fmt.Errorf("ref %q escapes loader root", ref))
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, core.NewPermanentError(Dependency, err)
		}
		return nil, core.NewTransientError(Dependency, err)
	}
	if !utf8.Valid(raw) {
		return nil, core.NewPermanentError(Dependency,
			fmt.Errorf("file %q is not valid UTF-8 text", ref))
	}

	return &Document{ID: ref, Source: path, Content: string(raw)}, nil
}

// InlineLoader serves documents from an in-memory map, keyed by ref.
// Intended for tests and examples.
type InlineLoader struct {
	docs map[string]string
}

// NewInlineLoader creates a loader over the given ref-to-content map.
func NewInlineLoader(docs map[string]string) *InlineLoader {
	return &InlineLoader{docs: docs}
}

// Load implements Loader.
func (l *InlineLoader) Load(_ context.Context, ref string) (*Document, error) {
	content, ok := l.docs[ref]
	if !ok {
		return nil, core.NewPermanentError(Dependency,
			fmt.Errorf("no inline document %q", ref))
	}
	return &Document{ID: ref, Source: "inline:" + ref, Content: content}, nil
}
