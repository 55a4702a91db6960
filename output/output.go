// Package output holds the sinks generated units are written to: a
// directory on disk, an S3-compatible bucket, or memory.
package output

import (
	"context"
	"sort"
	"sync"

	"github.com/teranos/jbind/emit"
	"github.com/teranos/jbind/errors"
)

// Sink receives generated units. Paths are slash-separated and relative
// to the sink root. Write and Remove failures are emission I/O errors.
type Sink interface {
	Write(ctx context.Context, u emit.Unit) error
	Remove(ctx context.Context, path string) error
	// Read returns a file's content, or an error matching
	// errors.ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	// List returns every file under the root in path order.
	List(ctx context.Context) ([]string, error)
	String() string
}

// Memory keeps units in memory. check and tests use it.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemory returns an empty memory sink.
func NewMemory() *Memory {
	return &Memory{files: map[string][]byte{}}
}

func (m *Memory) Write(ctx context.Context, u emit.Unit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[u.Path] = append([]byte(nil), u.Source...)
	return nil
}

func (m *Memory) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *Memory) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, errors.Mark(errors.Newf("%s not written", path), errors.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) List(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) String() string { return "memory" }
