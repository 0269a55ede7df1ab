package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InfinitiBit/graphbit/core"
)

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	doc, err := NewFileLoader(dir).Load(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", doc.ID)
	assert.Equal(t, "hello", doc.Content)
}

func TestFileLoaderMissingFileIsPermanent(t *testing.T) {
	_, err := NewFileLoader(t.TempDir()).Load(context.Background(), "nope.txt")
	require.Error(t, err)
	var ce *core.ClientError
	require.True(t, errors.As(err, &ce))
	assert.False(t, ce.Transient)
	assert.Equal(t, Dependency, ce.Dependency)
}

func TestFileLoaderRejectsEscapingRef(t *testing.T) {
	_, err := NewFileLoader(t.TempDir()).Load(context.Background(), "../etc/passwd")
	require.Error(t, err)
	assert.False(t, core.IsTransient(err))
}

func TestFileLoaderRejectsBinary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin"), []byte{0xff, 0xfe, 0x00}, 0o644))

	_, err := NewFileLoader(dir).Load(context.Background(), "bin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UTF-8")
}

func TestInlineLoader(t *testing.T) {
	l := NewInlineLoader(map[string]string{"doc-1": "content one"})

	doc, err := l.Load(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "content one", doc.Content)
	assert.Equal(t, "inline:doc-1", doc.Source)

	_, err = l.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.False(t, core.IsTransient(err))
}
