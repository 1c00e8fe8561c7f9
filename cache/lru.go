// Copyright 2024 The chunkstore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache implements a byte-budgeted, write-back LRU layer over a
// Provider. A Layer itself satisfies providers.Provider, so layers compose
// into a chain: each one caches a faster "front" Provider in front of a
// slower "backing" Provider, evicting to the backing store on demand.
//
// The eviction bookkeeping (a container/list LRU ring plus a map from key to
// list element) follows the same shape as a generic size-bounded cache: keep
// an index of key, size, dirty bit; evict from the front of the list until
// the tracked total drops back under budget, and only write an evicted
// entry through to the backing Provider if it was dirty.
package cache

import (
	"container/list"
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/hub-go/chunkstore/providers"
	"github.com/hub-go/chunkstore/store/chunkerr"
	"github.com/hub-go/chunkstore/store/d"
)

type entry struct {
	key   string
	size  uint64
	dirty bool
}

// Layer is a write-back cache of front's contents, bounded to budget bytes,
// backed by a slower Provider on miss and on eviction.
type Layer struct {
	mu sync.Mutex

	front   providers.Provider
	backing providers.Provider
	budget  uint64

	lru   *list.List
	index map[string]*list.Element

	totalSize uint64
	log       *zap.Logger
}

// Option configures a Layer at construction time.
type Option func(*Layer)

// WithLogger attaches a structured logger; by default a Layer logs nothing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Layer) { c.log = l }
}

// NewLayer wraps backing with a write-back cache of up to budget bytes,
// using front as the storage for cached entries. front is expected to be
// empty: NewLayer does not scan it to rebuild the LRU index.
func NewLayer(front, backing providers.Provider, budget uint64, opts ...Option) *Layer {
	c := &Layer{
		front:   front,
		backing: backing,
		budget:  budget,
		lru:     list.New(),
		index:   make(map[string]*list.Element),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ providers.Provider = (*Layer)(nil)

func (c *Layer) touch(key string) {
	if el, ok := c.index[key]; ok {
		c.lru.MoveToBack(el)
	}
}

// admit records a cache entry for key/size and evicts from the front of the
// LRU list until totalSize fits under budget. Must be called with mu held.
func (c *Layer) admit(ctx context.Context, key string, size uint64, dirty bool) error {
	if el, ok := c.index[key]; ok {
		old := el.Value.(*entry)
		c.totalSize -= old.size
		old.size = size
		old.dirty = old.dirty || dirty
		c.lru.MoveToBack(el)
	} else {
		el := c.lru.PushBack(&entry{key: key, size: size, dirty: dirty})
		c.index[key] = el
	}
	c.totalSize += size
	return c.evictLocked(ctx)
}

func (c *Layer) evictLocked(ctx context.Context) error {
	for c.totalSize > c.budget {
		front := c.lru.Front()
		if front == nil {
			break
		}
		e := front.Value.(*entry)
		if e.dirty {
			value, err := c.front.Get(ctx, e.key)
			if err != nil {
				return err
			}
			if err := c.backing.Put(ctx, e.key, value); err != nil {
				return err
			}
		}
		if err := c.front.Delete(ctx, e.key); err != nil && !errors.Is(err, chunkerr.ErrNotFound) {
			return err
		}
		c.lru.Remove(front)
		delete(c.index, e.key)
		c.totalSize -= e.size
		c.log.Debug("evicted cache entry",
			zap.String("key", e.key),
			zap.Bool("dirty", e.dirty),
			zap.String("size", humanize.Bytes(e.size)),
			zap.String("budget", humanize.Bytes(c.budget)),
		)
	}
	d.PanicIfTrue(c.lru.Len() != len(c.index))
	return nil
}

func (c *Layer) dropLocked(key string) {
	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry)
		c.totalSize -= e.size
		c.lru.Remove(el)
		delete(c.index, key)
	}
	d.PanicIfTrue(c.lru.Len() != len(c.index))
}

func (c *Layer) Get(ctx context.Context, key string) ([]byte, error) {
	if err := providers.ValidateKey(key); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[key]; ok {
		c.touch(key)
		return c.front.Get(ctx, key)
	}

	value, err := c.backing.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if uint64(len(value)) <= c.budget {
		if err := c.front.Put(ctx, key, value); err != nil {
			return nil, err
		}
		if err := c.admit(ctx, key, uint64(len(value)), false); err != nil {
			return nil, err
		}
	}
	return value, nil
}

func (c *Layer) GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	if err := providers.ValidateKey(key); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, chunkerr.InvalidArgument("get_range offset and length must be >= 0, got offset=%d length=%d", offset, length)
	}
	value, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if offset >= int64(len(value)) {
		return []byte{}, nil
	}
	end := offset + length
	if end > int64(len(value)) {
		end = int64(len(value))
	}
	return value[offset:end], nil
}

func (c *Layer) Put(ctx context.Context, key string, value []byte) error {
	if err := providers.ValidateKey(key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if uint64(len(value)) > c.budget {
		// Oversize writes bypass the cache entirely: caching them would
		// either blow the budget or immediately evict every other entry.
		c.dropLocked(key)
		if err := c.front.Delete(ctx, key); err != nil && !errors.Is(err, chunkerr.ErrNotFound) {
			return err
		}
		return c.backing.Put(ctx, key, value)
	}

	if err := c.front.Put(ctx, key, value); err != nil {
		return err
	}
	return c.admit(ctx, key, uint64(len(value)), true)
}

func (c *Layer) PutRange(ctx context.Context, key string, value []byte, offset int64, overwrite bool) error {
	if err := providers.ValidateKey(key); err != nil {
		return err
	}
	if offset < 0 {
		return chunkerr.InvalidArgument("put_range offset must be >= 0, got %d", offset)
	}

	current, err := c.Get(ctx, key)
	if err != nil && !errors.Is(err, chunkerr.ErrNotFound) {
		return err
	}
	next, err := providers.ApplyPutRange(current, value, offset, overwrite)
	if err != nil {
		return err
	}
	return c.Put(ctx, key, next)
}

func (c *Layer) Delete(ctx context.Context, key string) error {
	if err := providers.ValidateKey(key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	_, cached := c.index[key]
	if cached {
		c.dropLocked(key)
		if err := c.front.Delete(ctx, key); err != nil && !errors.Is(err, chunkerr.ErrNotFound) {
			return err
		}
	}

	err := c.backing.Delete(ctx, key)
	if err != nil {
		if cached && errors.Is(err, chunkerr.ErrNotFound) {
			// The entry existed only in the cache (never flushed) — the
			// cache-side delete above already satisfied it.
			return nil
		}
		return err
	}
	return nil
}

// Flush writes every dirty cached entry through to backing, then flushes
// both front and backing.
func (c *Layer) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.lru.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if !e.dirty {
			continue
		}
		value, err := c.front.Get(ctx, e.key)
		if err != nil {
			return err
		}
		if err := c.backing.Put(ctx, e.key, value); err != nil {
			return err
		}
		e.dirty = false
	}
	if err := c.front.Flush(ctx); err != nil {
		return err
	}
	return c.backing.Flush(ctx)
}

// Iterate returns the union of keys cached in front (including entries not
// yet flushed to backing) and keys already present in backing.
func (c *Layer) Iterate(ctx context.Context) (providers.KeyIterator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(c.index))
	for key := range c.index {
		seen[key] = struct{}{}
	}

	it, err := c.backing.Iterate(ctx)
	if err != nil {
		return nil, err
	}
	for it.Next() {
		seen[it.Key()] = struct{}{}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return newSliceIterator(keys), nil
}

func (c *Layer) Len(ctx context.Context) (int, error) {
	it, err := c.Iterate(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for it.Next() {
		n++
	}
	return n, it.Err()
}

// sliceIterator walks a pre-materialized, sorted snapshot of keys.
type sliceIterator struct {
	keys []string
	pos  int
}

func newSliceIterator(keys []string) *sliceIterator {
	return &sliceIterator{keys: keys, pos: -1}
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *sliceIterator) Key() string { return it.keys[it.pos] }

func (it *sliceIterator) Err() error { return nil }
