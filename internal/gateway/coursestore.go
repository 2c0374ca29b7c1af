package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/brunoga/deep"
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fairwaylab/coursemapper/internal/gateway/redisstore"
	"github.com/fairwaylab/coursemapper/internal/model"
	"github.com/fairwaylab/coursemapper/internal/observability"
)

const keyPrefix = "course:"

func courseKey(id string) string { return keyPrefix + id }

type redisCourseStore struct {
	cli *redisstore.Client
	log *slog.Logger

	cache *lru.Cache[string, *model.Course]

	// hashes remembers the content hash of the last write per course so
	// an unchanged document is not rewritten on every autosave tick.
	mu     sync.Mutex
	hashes map[string]uint64
}

// NewRedisCourseStore builds the gateway on a Redis key-value store
// with an LRU read cache of decoded documents.
func NewRedisCourseStore(cli *redisstore.Client, cacheSize int, logger *slog.Logger) (CourseStore, error) {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[string, *model.Course](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("gateway cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &redisCourseStore{
		cli:    cli,
		log:    logger,
		cache:  cache,
		hashes: make(map[string]uint64),
	}, nil
}

func decode(raw []byte) (*model.Course, error) {
	var c model.Course
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode course: %w", err)
	}
	// One-way migration: layer the stored style over current defaults
	// so old documents gain new fields without losing overrides.
	c.Style = model.MergeStyleDefaults(c.Style)
	return &c, nil
}

// copyOut hands a caller an independent copy so cache entries never
// alias live documents.
func copyOut(c *model.Course) (*model.Course, error) {
	cp, err := deep.Copy(c)
	if err != nil {
		return nil, fmt.Errorf("copy course %s: %w", c.ID, err)
	}
	return cp, nil
}

func (s *redisCourseStore) Load(ctx context.Context, id string) (*model.Course, error) {
	if cached, ok := s.cache.Get(id); ok {
		observability.IncGatewayCacheHit()
		return copyOut(cached)
	}
	observability.IncGatewayCacheMiss()

	raw, err := s.cli.Get(ctx, courseKey(id))
	if err != nil {
		if errors.Is(err, redisstore.ErrMissing) {
			return nil, fmt.Errorf("course %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	c, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("course %s: %w", id, err)
	}
	s.cache.Add(id, c)
	return copyOut(c)
}

func (s *redisCourseStore) LoadAll(ctx context.Context) (map[string]*model.Course, error) {
	keys, err := s.cli.ScanKeys(ctx, keyPrefix+"*")
	if err != nil {
		return nil, err
	}
	raws, err := s.cli.MGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*model.Course, len(raws))
	for key, raw := range raws {
		c, err := decode(raw)
		if err != nil {
			// A single corrupt record must not block startup.
			s.log.Warn("skipping undecodable course record", "key", key, "err", err)
			continue
		}
		id := strings.TrimPrefix(key, keyPrefix)
		if c.ID != id {
			s.log.Warn("course id does not match its key", "key", key, "course_id", c.ID)
		}
		out[c.ID] = c
	}
	return out, nil
}

func (s *redisCourseStore) Save(ctx context.Context, c *model.Course) (bool, error) {
	if c == nil {
		return false, errors.New("nil course")
	}
	body, err := json.Marshal(c)
	if err != nil {
		return false, fmt.Errorf("encode course %s: %w", c.ID, err)
	}
	sum := xxhash.Sum64(body)

	s.mu.Lock()
	prev, seen := s.hashes[c.ID]
	s.mu.Unlock()
	if seen && prev == sum {
		return false, nil
	}

	if err := s.cli.Set(ctx, courseKey(c.ID), body); err != nil {
		return false, err
	}

	s.mu.Lock()
	s.hashes[c.ID] = sum
	s.mu.Unlock()

	if cp, err := copyOut(c); err == nil {
		s.cache.Add(c.ID, cp)
	}
	return true, nil
}

func (s *redisCourseStore) Delete(ctx context.Context, id string) error {
	if err := s.cli.Del(ctx, courseKey(id)); err != nil {
		return err
	}
	s.cache.Remove(id)
	s.mu.Lock()
	delete(s.hashes, id)
	s.mu.Unlock()
	return nil
}

// Invalidate drops a course from the read cache, used by the change
// feed when another instance rewrote the record.
func (s *redisCourseStore) Invalidate(id string) {
	s.cache.Remove(id)
	s.mu.Lock()
	delete(s.hashes, id)
	s.mu.Unlock()
}
