package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/beam-cloud/xtmsplit/pkg/common"
	"github.com/beam-cloud/xtmsplit/pkg/metrics"
	"github.com/beam-cloud/xtmsplit/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps parts in memory. failOpen and failCreate inject errors for
// specific names.
type memStore struct {
	mu         sync.Mutex
	parts      map[string][]byte
	failOpen   map[string]error
	failCreate map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		parts:      make(map[string][]byte),
		failOpen:   make(map[string]error),
		failCreate: make(map[string]error),
	}
}

func (m *memStore) Mode() common.StorageMode { return common.StorageMode("memory") }

func (m *memStore) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := m.failCreate[name]; err != nil {
		return nil, err
	}
	return &memWriter{store: m, name: name}, nil
}

func (m *memStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := m.failOpen[name]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.parts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Exists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.parts[name]
	return ok, nil
}

func (m *memStore) Size(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.parts[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", common.ErrNotFound, name)
	}
	return int64(len(data)), nil
}

func (m *memStore) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.parts, name)
	return nil
}

func (m *memStore) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.parts))
	for n := range m.parts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type memWriter struct {
	store *memStore
	name  string
	buf   bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.parts[w.name] = w.buf.Bytes()
	return nil
}

// writeSource creates a file of size bytes with a non repeating-at-1KiB
// pattern so misplaced chunks show up in comparisons.
func writeSource(t *testing.T, dir, name string, size int) (string, []byte) {
	t.Helper()

	data := make([]byte, size)
	for i := range data {
		data[i] = byte((i*7 + i/251) % 256)
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path, data
}

func newTestArchiver(store storage.PartStore) *XtmArchiver {
	return NewXtmArchiver(store).WithMetrics(metrics.NewMetrics())
}

func TestExpectedPartCount(t *testing.T) {
	tests := []struct {
		sourceSize int64
		partSize   int64
		expected   int64
	}{
		{2500, 1000, 3},
		{0, 1000, 1},
		{0, 104, 1},
		{0, 10, 11},
		{896, 1000, 1},
		{897, 1000, 2},
		{10, 0, 0},
		{10, math.MaxInt64, 1},
		{math.MaxInt64 - 200, math.MaxInt64, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.sourceSize, tt.partSize), func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpectedPartCount(tt.sourceSize, tt.partSize))
		})
	}
}

func TestChainListsPartsInOrder(t *testing.T) {
	store := newMemStore()
	store.parts["a/movie.001.xtm"] = make([]byte, 10)
	store.parts["a/movie.002.xtm"] = make([]byte, 10)
	store.parts["a/movie.003.xtm"] = make([]byte, 4)
	store.parts["a/movie.005.xtm"] = make([]byte, 4)

	parts, err := newTestArchiver(store).Chain(context.Background(), "a/movie")
	require.NoError(t, err)
	require.Len(t, parts, 3)

	assert.Equal(t, common.PartInfo{Name: "a/movie.003.xtm", Number: 3, Size: 4}, parts[2])
}

func TestChainMissingFirstPart(t *testing.T) {
	_, err := newTestArchiver(newMemStore()).Chain(context.Background(), "nothing.001.xtm")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
