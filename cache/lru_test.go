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

package cache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hub-go/chunkstore/cache"
	"github.com/hub-go/chunkstore/providers"
)

func TestLayerReadThroughPopulatesFront(t *testing.T) {
	ctx := context.Background()
	front := providers.NewMemoryProvider()
	backing := providers.NewMemoryProvider()
	require.NoError(t, backing.Put(ctx, "a", []byte("hello")))

	layer := cache.NewLayer(front, backing, 1024)
	got, err := layer.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)

	// The read-through should have admitted the value into front.
	fv, err := front.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), fv)
}

func TestLayerWriteBackOnEviction(t *testing.T) {
	ctx := context.Background()
	front := providers.NewMemoryProvider()
	backing := providers.NewMemoryProvider()

	// Budget fits exactly one 5-byte value.
	layer := cache.NewLayer(front, backing, 5)
	require.NoError(t, layer.Put(ctx, "a", []byte("aaaaa")))
	require.NoError(t, layer.Put(ctx, "b", []byte("bbbbb")))

	// "a" should have been evicted and written back to backing.
	_, err := front.Get(ctx, "a")
	require.Error(t, err)
	bv, err := backing.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("aaaaa"), bv)

	// "b" is still the hot entry, served from front.
	fv, err := front.Get(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, []byte("bbbbb"), fv)
}

func TestLayerOversizeBypassesCache(t *testing.T) {
	ctx := context.Background()
	front := providers.NewMemoryProvider()
	backing := providers.NewMemoryProvider()

	layer := cache.NewLayer(front, backing, 4)
	require.NoError(t, layer.Put(ctx, "big", []byte("way too big")))

	_, err := front.Get(ctx, "big")
	require.Error(t, err, "oversize values must not land in front")

	got, err := layer.Get(ctx, "big")
	require.NoError(t, err)
	require.Equal(t, []byte("way too big"), got)
}

func TestLayerFlushPersistsDirtyEntriesWithoutEviction(t *testing.T) {
	ctx := context.Background()
	front := providers.NewMemoryProvider()
	backing := providers.NewMemoryProvider()

	layer := cache.NewLayer(front, backing, 1024)
	require.NoError(t, layer.Put(ctx, "a", []byte("hello")))

	// Not yet durable in backing.
	_, err := backing.Get(ctx, "a")
	require.Error(t, err)

	require.NoError(t, layer.Flush(ctx))

	bv, err := backing.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), bv)

	// Still readable, and still cached, after the flush.
	fv, err := front.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), fv)
}

func TestLayerGetRangeAndPutRange(t *testing.T) {
	ctx := context.Background()
	front := providers.NewMemoryProvider()
	backing := providers.NewMemoryProvider()
	layer := cache.NewLayer(front, backing, 1024)

	require.NoError(t, layer.Put(ctx, "a", []byte("hello world")))
	got, err := layer.GetRange(ctx, "a", 2, 3)
	require.NoError(t, err)
	require.Equal(t, []byte("llo"), got)

	require.NoError(t, layer.PutRange(ctx, "a", []byte("abcde"), 6, false))
	got, err = layer.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("hello abcde"), got)
}

func TestLayerDeleteRemovesFromBothTiers(t *testing.T) {
	ctx := context.Background()
	front := providers.NewMemoryProvider()
	backing := providers.NewMemoryProvider()
	layer := cache.NewLayer(front, backing, 1024)

	require.NoError(t, layer.Put(ctx, "a", []byte("x")))
	require.NoError(t, layer.Flush(ctx))
	require.NoError(t, layer.Delete(ctx, "a"))

	_, err := layer.Get(ctx, "a")
	require.Error(t, err)
	_, err = backing.Get(ctx, "a")
	require.Error(t, err)
}

func TestLayerDeleteUnflushedEntry(t *testing.T) {
	ctx := context.Background()
	front := providers.NewMemoryProvider()
	backing := providers.NewMemoryProvider()
	layer := cache.NewLayer(front, backing, 1024)

	// Never flushed: only exists in front, dirty.
	require.NoError(t, layer.Put(ctx, "a", []byte("x")))
	require.NoError(t, layer.Delete(ctx, "a"))

	_, err := layer.Get(ctx, "a")
	require.Error(t, err)
}

func TestLayerIterateUnionsFrontAndBacking(t *testing.T) {
	ctx := context.Background()
	front := providers.NewMemoryProvider()
	backing := providers.NewMemoryProvider()
	require.NoError(t, backing.Put(ctx, "z", []byte("1")))

	layer := cache.NewLayer(front, backing, 1024)
	require.NoError(t, layer.Put(ctx, "a", []byte("2")))

	n, err := layer.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	it, err := layer.Iterate(ctx)
	require.NoError(t, err)
	var keys []string
	for it.Next() {
		keys = append(keys, it.Key())
	}
	require.Equal(t, []string{"a", "z"}, keys)
}
