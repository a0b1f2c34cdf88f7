package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data []byte
	info ObjectInfo
}

// MemoryStore is an in-process BlobStore for development without an object
// store, and for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	base    string
	now     func() time.Time
}

func NewMemory(publicBase string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memObject),
		base:    strings.TrimRight(publicBase, "/"),
		now:     time.Now,
	}
}

// SetClock replaces the time source used for LastModified.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *MemoryStore) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	info := ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		LastModified: m.now().UTC(),
	}
	m.objects[key] = memObject{data: data, info: info}
	return info, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ObjectInfo{}, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

func (m *MemoryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, obj.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return m.base + "/" + url.PathEscape(key)
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
