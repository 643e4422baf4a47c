package storage

import (
	gocache "github.com/patrickmn/go-cache"
)

// SessionStore is an ephemeral Store that lives only as long as the
// process. It also carries one-shot flags that are consumed on read,
// used for handoff between a navigation and the next controller boot.
type SessionStore struct {
	cache *gocache.Cache
}

// NewSessionStore creates an empty ephemeral store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns the value for key, or ErrNotFound.
func (s *SessionStore) Get(key string) (string, error) {
	if v, ok := s.cache.Get(key); ok {
		return v.(string), nil
	}
	return "", ErrNotFound
}

// Set stores value under key.
func (s *SessionStore) Set(key, value string) error {
	s.cache.Set(key, value, gocache.NoExpiration)
	return nil
}

// Remove deletes key.
func (s *SessionStore) Remove(key string) error {
	s.cache.Delete(key)
	return nil
}

// Take returns the value for key and removes it in the same step. The
// second return is false when the key was absent.
func (s *SessionStore) Take(key string) (string, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", false
	}
	s.cache.Delete(key)
	return v.(string), true
}
