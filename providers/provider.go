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

// Package providers defines the byte-addressable key/value Storage Provider
// contract and its concrete backends: an in-memory map, a
// bbolt-backed local-disk store, and S3/DynamoDB-backed remote stores.
package providers

import (
	"context"
	"unicode/utf8"

	"github.com/hub-go/chunkstore/store/chunkerr"
)

// MaxKeyLen is the maximum allowed key length in bytes.
const MaxKeyLen = 1024

// Provider is the byte-addressable key/value contract every storage layer
// implements.
type Provider interface {
	// Get returns the full value stored at key. It fails with
	// chunkerr.ErrNotFound if key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetRange returns up to length bytes starting at offset. It fails with
	// chunkerr.ErrNotFound if key is absent; reading past the end of the
	// value returns whatever bytes exist (a short read, not an error).
	GetRange(ctx context.Context, key string, offset, length int64) ([]byte, error)

	// Put replaces the entire value stored at key.
	Put(ctx context.Context, key string, value []byte) error

	// PutRange writes value into the stored value at offset. See
	// ApplyPutRange for the exact semantics of overwrite=true/false and of
	// writing past the current end of the value.
	PutRange(ctx context.Context, key string, value []byte, offset int64, overwrite bool) error

	// Delete removes key. It fails with chunkerr.ErrNotFound if absent.
	Delete(ctx context.Context, key string) error

	// Iterate returns a snapshot-consistent iterator over all keys.
	Iterate(ctx context.Context) (KeyIterator, error)

	// Len returns the number of keys.
	Len(ctx context.Context) (int, error)

	// Flush is a best-effort durability barrier for this layer.
	Flush(ctx context.Context) error
}

// KeyIterator walks a snapshot of a Provider's key space, in the style of
// bufio.Scanner: call Next until it returns false, then check Err.
type KeyIterator interface {
	Next() bool
	Key() string
	Err() error
}

// ValidateKey enforces the key-space rules: valid UTF-8, no
// embedded NUL, length at most MaxKeyLen bytes.
func ValidateKey(key string) error {
	if len(key) == 0 {
		return chunkerr.InvalidArgument("key must not be empty")
	}
	if len(key) > MaxKeyLen {
		return chunkerr.InvalidArgument("key length %d exceeds max %d", len(key), MaxKeyLen)
	}
	if !utf8.ValidString(key) {
		return chunkerr.InvalidArgument("key is not valid UTF-8")
	}
	for i := 0; i < len(key); i++ {
		if key[i] == 0 {
			return chunkerr.InvalidArgument("key must not contain an embedded NUL byte")
		}
	}
	return nil
}

// sliceIterator is a KeyIterator over a pre-materialized snapshot of keys,
// used by every backend here: each one collects its whole key space up
// front (the remote ones page by page) before returning the iterator.
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

func (it *sliceIterator) Key() string {
	return it.keys[it.pos]
}

func (it *sliceIterator) Err() error { return nil }

// ApplyPutRange computes the new value for a put_range operation given the
// current value (nil if the key does not yet exist). It is shared by every
// Provider implementation so the
// semantics can't drift between backends.
func ApplyPutRange(current []byte, value []byte, offset int64, overwrite bool) ([]byte, error) {
	if offset < 0 {
		return nil, chunkerr.InvalidArgument("put_range offset must be >= 0, got %d", offset)
	}
	if overwrite {
		// offset is ignored: the value is replaced by exactly value.
		out := make([]byte, len(value))
		copy(out, value)
		return out, nil
	}

	end := offset + int64(len(value))
	size := end
	if int64(len(current)) > size {
		size = int64(len(current))
	}

	out := make([]byte, size)
	copy(out, current)
	copy(out[offset:end], value)
	return out, nil
}
