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
	"errors"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hub-go/chunkstore/store/chunkerr"
)

var localBucket = []byte("chunks")

// LocalProvider is a Provider backed by a single bbolt file: the local-disk
// tier of a cache chain. bbolt gives crash-safe durability without the
// per-backend filesystem wire code the encoder and cache core stay free of —
// the chain only ever sees it through the Provider interface.
type LocalProvider struct {
	db *bbolt.DB
}

// NewLocalProvider opens (creating if necessary) a bbolt-backed provider at
// path.
func NewLocalProvider(path string) (*LocalProvider, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, chunkerr.BackendFailure(err, "opening local provider at %q", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(localBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, chunkerr.BackendFailure(err, "initializing local provider bucket at %q", path)
	}
	return &LocalProvider{db: db}, nil
}

var _ Provider = (*LocalProvider)(nil)

// Close releases the underlying bbolt file handle. Not part of the Provider
// contract, which has no explicit close/teardown operation, but necessary
// for a real on-disk backend.
func (p *LocalProvider) Close() error {
	if err := p.db.Close(); err != nil {
		return chunkerr.BackendFailure(err, "closing local provider")
	}
	return nil
}

func (p *LocalProvider) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var out []byte
	err := p.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(localBucket).Get([]byte(key))
		if v == nil {
			return chunkerr.NotFound("key %q not found", key)
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, asProviderError(err)
	}
	return out, nil
}

func (p *LocalProvider) GetRange(_ context.Context, key string, offset, length int64) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, chunkerr.InvalidArgument("get_range offset and length must be >= 0, got offset=%d length=%d", offset, length)
	}
	var out []byte
	err := p.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(localBucket).Get([]byte(key))
		if v == nil {
			return chunkerr.NotFound("key %q not found", key)
		}
		if offset >= int64(len(v)) {
			out = []byte{}
			return nil
		}
		end := offset + length
		if end > int64(len(v)) {
			end = int64(len(v))
		}
		out = append([]byte(nil), v[offset:end]...)
		return nil
	})
	if err != nil {
		return nil, asProviderError(err)
	}
	return out, nil
}

func (p *LocalProvider) Put(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	err := p.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(localBucket).Put([]byte(key), value)
	})
	if err != nil {
		return chunkerr.BackendFailure(err, "put %q", key)
	}
	return nil
}

func (p *LocalProvider) PutRange(_ context.Context, key string, value []byte, offset int64, overwrite bool) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	err := p.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(localBucket)
		current := bucket.Get([]byte(key))
		next, err := ApplyPutRange(current, value, offset, overwrite)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), next)
	})
	if err != nil {
		return asProviderError(err)
	}
	return nil
}

func (p *LocalProvider) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	err := p.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(localBucket)
		if bucket.Get([]byte(key)) == nil {
			return chunkerr.NotFound("key %q not found", key)
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return asProviderError(err)
	}
	return nil
}

func (p *LocalProvider) Iterate(_ context.Context) (KeyIterator, error) {
	var keys []string
	err := p.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(localBucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, chunkerr.BackendFailure(err, "iterating local provider")
	}
	sort.Strings(keys)
	return newSliceIterator(keys), nil
}

func (p *LocalProvider) Len(_ context.Context) (int, error) {
	n := 0
	err := p.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(localBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, chunkerr.BackendFailure(err, "counting local provider keys")
	}
	return n, nil
}

// Flush fsyncs the bbolt file. bbolt commits each Update transaction
// durably already; Flush exists so LocalProvider satisfies Provider's
// explicit durability-barrier operation uniformly with the remote backends.
func (p *LocalProvider) Flush(_ context.Context) error {
	if err := p.db.Sync(); err != nil {
		return chunkerr.BackendFailure(err, "flushing local provider")
	}
	return nil
}

// asProviderError passes chunkerr-typed errors through unchanged (they were
// raised inside the bbolt transaction closure) and wraps anything else as a
// BackendFailure.
func asProviderError(err error) error {
	switch {
	case err == nil:
		return nil
	case isChunkErr(err):
		return err
	default:
		return chunkerr.BackendFailure(err, "local provider operation failed")
	}
}

func isChunkErr(err error) bool {
	return errors.Is(err, chunkerr.ErrNotFound) ||
		errors.Is(err, chunkerr.ErrInvalidArgument) ||
		errors.Is(err, chunkerr.ErrBackendFailure)
}
