package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cinedex/cinedex-backend/pkg/kv"
)

// Store is an in-memory implementation of the kv.Store interface
type Store struct {
	mu          sync.Mutex
	strings     map[string][]byte
	lists       map[string][][]byte
	expirations map[string]time.Time

	janitorInterval time.Duration
	janitorStop     chan struct{}
	janitorDone     chan struct{}
	closeOnce       sync.Once
}

// New creates a new in-memory store with optional janitor for TTL cleanup
func New(janitorInterval time.Duration) *Store {
	s := &Store{
		strings:         make(map[string][]byte),
		lists:           make(map[string][][]byte),
		expirations:     make(map[string]time.Time),
		janitorInterval: janitorInterval,
		janitorStop:     make(chan struct{}),
		janitorDone:     make(chan struct{}),
	}

	if janitorInterval > 0 {
		go s.janitor()
	} else {
		close(s.janitorDone)
	}

	return s
}

// janitor runs background expiration cleanup
func (s *Store) janitor() {
	defer close(s.janitorDone)
	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.janitorStop:
			return
		}
	}
}

// evictExpired removes all expired keys
func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, expiry := range s.expirations {
		if now.After(expiry) {
			s.deleteKeyUnsafe(key)
		}
	}
}

// expireIfNeeded drops key when its TTL has passed (must hold lock)
func (s *Store) expireIfNeeded(key string) {
	if expiry, exists := s.expirations[key]; exists && time.Now().After(expiry) {
		s.deleteKeyUnsafe(key)
	}
}

// existsUnsafe reports whether key holds any value (must hold lock)
func (s *Store) existsUnsafe(key string) bool {
	s.expireIfNeeded(key)
	if _, ok := s.strings[key]; ok {
		return true
	}
	_, ok := s.lists[key]
	return ok
}

// deleteKeyUnsafe removes a key from all data structures (must hold lock)
func (s *Store) deleteKeyUnsafe(key string) {
	delete(s.strings, key)
	delete(s.lists, key)
	delete(s.expirations, key)
}

// String operations

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteKeyUnsafe(key)
	s.strings[key] = append([]byte(nil), value...)

	if len(ttl) > 0 && ttl[0] > 0 {
		s.expirations[key] = time.Now().Add(ttl[0])
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	value, exists := s.strings[key]
	if !exists {
		return nil, kv.ErrNotFound
	}

	return append([]byte(nil), value...), nil
}

// Key operations

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.existsUnsafe(key) {
		return false, nil
	}
	if ttl <= 0 {
		s.deleteKeyUnsafe(key)
		return true, nil
	}
	s.expirations[key] = time.Now().Add(ttl)
	return true, nil
}

// List operations

func (s *Store) LPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	if _, isString := s.strings[key]; isString {
		delete(s.strings, key)
	}

	list := s.lists[key]
	for _, v := range values {
		list = append([][]byte{append([]byte(nil), v...)}, list...)
	}
	s.lists[key] = list
	return int64(len(list)), nil
}

func (s *Store) LTrim(ctx context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	list, exists := s.lists[key]
	if !exists {
		return nil
	}

	from, to, ok := normalizeRange(int64(len(list)), start, stop)
	if !ok {
		s.deleteKeyUnsafe(key)
		return nil
	}
	s.lists[key] = list[from : to+1]
	return nil
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	list, exists := s.lists[key]
	if !exists {
		return nil, kv.ErrNotFound
	}

	from, to, ok := normalizeRange(int64(len(list)), start, stop)
	if !ok {
		return [][]byte{}, nil
	}

	result := make([][]byte, 0, to-from+1)
	for _, v := range list[from : to+1] {
		result = append(result, append([]byte(nil), v...))
	}
	return result, nil
}

// normalizeRange applies Redis index semantics (negative indexes count from
// the end, stop is inclusive) and reports whether the range is non-empty.
func normalizeRange(length, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop || start >= length {
		return 0, 0, false
	}
	return start, stop, true
}

// Ping always succeeds for the in-memory store
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close stops the janitor
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.janitorStop)
		<-s.janitorDone
	})
	return nil
}
