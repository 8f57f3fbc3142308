package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process BlobStore.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

type memoryObject struct {
	data     []byte
	opts     PutOptions
	modified time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var objects []Object
	for name, obj := range s.objects {
		if strings.HasPrefix(name, prefix) {
			objects = append(objects, Object{Name: name, LastModified: obj.modified})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

func (s *MemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *MemoryStore) Put(_ context.Context, name string, data []byte, opts PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[name] = memoryObject{
		data:     append([]byte(nil), data...),
		opts:     opts,
		modified: s.now(),
	}
	return nil
}

func (s *MemoryStore) Copy(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[src]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, src)
	}
	obj.modified = s.now()
	s.objects[dst] = obj
	return nil
}

// Options returns the metadata an object was stored with.
func (s *MemoryStore) Options(name string) (PutOptions, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[name]
	return obj.opts, ok
}
