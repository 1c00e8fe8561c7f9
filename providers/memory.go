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

package providers

import (
	"context"
	"sort"
	"sync"

	"github.com/hub-go/chunkstore/store/chunkerr"
)

// MemoryProvider is an in-memory Provider backed by a plain map. It is the
// fastest, smallest-footprint layer in a cache chain and the reference
// implementation every other Provider's behavior is tested against.
type MemoryProvider struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryProvider returns an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string][]byte)}
}

var _ Provider = (*MemoryProvider)(nil)

func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.data[key]
	if !ok {
		return nil, chunkerr.NotFound("key %q not found", key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (p *MemoryProvider) GetRange(_ context.Context, key string, offset, length int64) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, chunkerr.InvalidArgument("get_range offset and length must be >= 0, got offset=%d length=%d", offset, length)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.data[key]
	if !ok {
		return nil, chunkerr.NotFound("key %q not found", key)
	}
	if offset >= int64(len(v)) {
		return []byte{}, nil
	}
	end := offset + length
	if end > int64(len(v)) {
		end = int64(len(v))
	}
	out := make([]byte, end-offset)
	copy(out, v[offset:end])
	return out, nil
}

func (p *MemoryProvider) Put(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]byte, len(value))
	copy(out, value)
	p.data[key] = out
	return nil
}

func (p *MemoryProvider) PutRange(_ context.Context, key string, value []byte, offset int64, overwrite bool) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	next, err := ApplyPutRange(p.data[key], value, offset, overwrite)
	if err != nil {
		return err
	}
	p.data[key] = next
	return nil
}

func (p *MemoryProvider) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.data[key]; !ok {
		return chunkerr.NotFound("key %q not found", key)
	}
	delete(p.data, key)
	return nil
}

func (p *MemoryProvider) Iterate(_ context.Context) (KeyIterator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := make([]string, 0, len(p.data))
	for k := range p.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return newSliceIterator(keys), nil
}

func (p *MemoryProvider) Len(_ context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.data), nil
}

// Flush is a no-op: a MemoryProvider has no slower layer to persist to.
func (p *MemoryProvider) Flush(_ context.Context) error {
	return nil
}
