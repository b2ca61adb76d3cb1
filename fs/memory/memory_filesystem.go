package fsmemory

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	db "github.com/sayden/fqsort"
)

// NewMemoryFs keeps blocks in memory. It is meant for tests and for inputs that are only
// split to bound the sort working set.
func NewMemoryFs() db.Filesystem {
	return &memoryFs{
		data: xsync.NewMapOf[string, []byte](),
	}
}

type memoryFs struct {
	data *xsync.MapOf[string, []byte]
}

type memoryBlockWriter struct {
	bytes.Buffer
	name string
	fs   *memoryFs
}

// Close publishes the block. Nothing is visible to Open before that.
func (w *memoryBlockWriter) Close() error {
	w.fs.data.Store(w.name, w.Bytes())
	return nil
}

func (m *memoryFs) Create(name string) (io.WriteCloser, error) {
	return &memoryBlockWriter{name: name, fs: m}, nil
}

func (m *memoryFs) Open(name string) (io.ReadCloser, error) {
	val, found := m.data.Load(name)
	if !found {
		return nil, db.ErrBlockNotFound
	}

	return io.NopCloser(bytes.NewReader(val)), nil
}

func (m *memoryFs) Remove(name string) error {
	if _, found := m.data.LoadAndDelete(name); !found {
		return db.ErrBlockNotFound
	}
	return nil
}

func (m *memoryFs) List(prefix string) ([]string, error) {
	names := make([]string, 0, m.data.Size())
	m.data.Range(func(key string, _ []byte) bool {
		if strings.HasPrefix(key, prefix) {
			names = append(names, key)
		}
		return true
	})
	sort.Strings(names)

	return names, nil
}
