// Package store keeps comment contexts in the configured cache, one entry per user.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apprenticelog/apprenticelog/pkg/cache"
	"github.com/apprenticelog/apprenticelog/pkg/common/structs"
	"github.com/apprenticelog/apprenticelog/pkg/logger"
)

const keyPrefix = "commentctx:"

var (
	// ErrNotFound is returned when no comment context is stored for the user
	ErrNotFound = errors.New("comment context not found")

	// ErrEmptyUserID is returned for operations on an empty user id
	ErrEmptyUserID = errors.New("user id must not be empty")
)

// UpdateFunc receives the stored context and returns its replacement together
// with whether anything changed. Unchanged results are not written back.
type UpdateFunc func(current structs.CommentContext) (structs.CommentContext, bool)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/apprenticelog/apprenticelog/pkg/store Store

// Store is the comment context repository used by the API and the periodic jobs
type Store interface {
	Get(ctx context.Context, userID string) (structs.CommentContext, error)
	Put(ctx context.Context, userID string, cc structs.CommentContext) error
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context) (map[string]structs.CommentContext, error)
	Update(ctx context.Context, userID string, fn UpdateFunc) (structs.CommentContext, bool, error)
}

// CommentContextStore implements Store on top of cache.Cache
type CommentContextStore struct {
	cache cache.Cache
	ttl   time.Duration

	// mu is shared with the periodic jobs so their read-modify-write cycles
	// do not interleave with API writes.
	mu *sync.RWMutex
}

// New returns a store writing entries with the given ttl (0 keeps them forever).
// A nil mutex gets a private one.
func New(c cache.Cache, ttl time.Duration, mu *sync.RWMutex) *CommentContextStore {
	if mu == nil {
		mu = &sync.RWMutex{}
	}
	// a zero ttl would fall back to the driver's default expiration
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &CommentContextStore{
		cache: c,
		ttl:   ttl,
		mu:    mu,
	}
}

func key(userID string) string {
	return keyPrefix + userID
}

func (s *CommentContextStore) Get(ctx context.Context, userID string) (structs.CommentContext, error) {
	if userID == "" {
		return structs.CommentContext{}, ErrEmptyUserID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.get(ctx, userID)
}

// get reads without locking. Caller must hold s.mu.
func (s *CommentContextStore) get(ctx context.Context, userID string) (structs.CommentContext, error) {
	val, err := s.cache.Get(ctx, key(userID))
	if err != nil {
		if cache.IsNotFound(err) {
			return structs.CommentContext{}, ErrNotFound
		}
		return structs.CommentContext{}, fmt.Errorf("reading comment context for %s: %w", userID, err)
	}
	return decode(userID, val)
}

func (s *CommentContextStore) Put(ctx context.Context, userID string, cc structs.CommentContext) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.put(ctx, userID, cc)
}

// put writes without locking. Caller must hold s.mu.
func (s *CommentContextStore) put(ctx context.Context, userID string, cc structs.CommentContext) error {
	data, err := json.Marshal(cc)
	if err != nil {
		return fmt.Errorf("encoding comment context for %s: %w", userID, err)
	}
	if err := s.cache.Set(ctx, key(userID), string(data), s.ttl); err != nil {
		return fmt.Errorf("writing comment context for %s: %w", userID, err)
	}

	logger.Logger(ctx).WithField("userID", userID).Debug("stored comment context")
	return nil
}

func (s *CommentContextStore) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(ctx, userID); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, key(userID)); err != nil {
		return fmt.Errorf("deleting comment context for %s: %w", userID, err)
	}

	logger.Logger(ctx).WithField("userID", userID).Debug("deleted comment context")
	return nil
}

// List returns every stored context keyed by user id
func (s *CommentContextStore) List(ctx context.Context) (map[string]structs.CommentContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, err := s.cache.GetByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("listing comment contexts: %w", err)
	}

	result := make(map[string]structs.CommentContext, len(values))
	for k, val := range values {
		userID := strings.TrimPrefix(k, keyPrefix)
		cc, err := decode(userID, val)
		if err != nil {
			return nil, err
		}
		result[userID] = cc
	}
	return result, nil
}

// Update replaces the stored context with fn's result while holding the write lock
func (s *CommentContextStore) Update(ctx context.Context, userID string, fn UpdateFunc) (structs.CommentContext, bool, error) {
	if userID == "" {
		return structs.CommentContext{}, false, ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.get(ctx, userID)
	if err != nil {
		return structs.CommentContext{}, false, err
	}

	next, changed := fn(current)
	if !changed {
		return current, false, nil
	}
	if err := s.put(ctx, userID, next); err != nil {
		return structs.CommentContext{}, false, err
	}
	return next, true, nil
}

func decode(userID string, val interface{}) (structs.CommentContext, error) {
	var raw []byte
	switch v := val.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return structs.CommentContext{}, fmt.Errorf("unexpected cache value %T for %s", val, userID)
	}

	var cc structs.CommentContext
	if err := json.Unmarshal(raw, &cc); err != nil {
		return structs.CommentContext{}, fmt.Errorf("decoding comment context for %s: %w", userID, err)
	}
	return cc, nil
}
