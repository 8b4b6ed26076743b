package session

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// IndexCleaner deletes a persisted index.
type IndexCleaner interface {
	Clear(location string) error
}

// Store keeps sessions in memory. A session not touched for ttl is evicted
// and its index directory removed.
type Store struct {
	cache   *cache.Cache
	baseDir string
}

func NewStore(baseDir string, ttl time.Duration, cleaner IndexCleaner) *Store {
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(id string, v interface{}) {
		sess, ok := v.(*Session)
		if !ok {
			return
		}
		if err := cleaner.Clear(sess.IndexLocation); err != nil {
			log.Warn().Err(err).Str("session", id).Msg("Error clearing index of evicted session")
			return
		}
		log.Debug().Str("session", id).Msg("Session evicted")
	})
	return &Store{cache: c, baseDir: baseDir}
}

// Create starts a new session and saves it.
func (s *Store) Create() (*Session, error) {
	sess, err := New(s.baseDir)
	if err != nil {
		return nil, err
	}
	s.Save(sess)
	return sess, nil
}

func (s *Store) Save(sess *Session) {
	s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
}

// Get returns the session and extends its lifetime.
func (s *Store) Get(id string) (*Session, bool) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	sess := x.(*Session)
	s.Save(sess)
	return sess, true
}

// Delete removes the session and its index.
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

func (s *Store) Count() int {
	return s.cache.ItemCount()
}
