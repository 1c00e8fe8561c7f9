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

// Package encode implements the chunk-name encoder: an append-only,
// binary-searchable index mapping a monotonically increasing global sample
// index to the ordered set of chunks that hold it.
package encode

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hub-go/chunkstore/chunkid"
	"github.com/hub-go/chunkstore/store/chunkerr"
	"github.com/hub-go/chunkstore/store/d"
)

// Encoder is the chunk-name encoder. The zero
// value is not usable; construct with New.
//
// Encoder is safe for concurrent use: every public method takes a single
// coarse lock for its duration.
// There is no finer-grained locking and no operation suspends mid-mutation.
type Encoder struct {
	mu sync.Mutex

	ids  []chunkid.ID
	last []int64
	conn *bitset

	log *zap.Logger
}

// Option configures an Encoder at construction time.
type Option func(*Encoder)

// WithLogger attaches a structured logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Encoder) { e.log = l }
}

// New returns an empty Encoder.
func New(opts ...Option) *Encoder {
	e := &Encoder{conn: newBitset(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NumChunks returns the number of rows (chunks ever attached). O(1).
func (e *Encoder) NumChunks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.ids)
}

// NumSamples returns the number of samples recorded so far. O(1).
func (e *Encoder) NumSamples() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.numSamplesLocked()
}

func (e *Encoder) numSamplesLocked() int64 {
	if len(e.last) == 0 {
		return 0
	}
	return e.last[len(e.last)-1] + 1
}

// AttachSamplesToNewChunk opens a new chunk holding n additional samples
// and returns its printable name. See the method's precondition
// and effect description.
func (e *Encoder) AttachSamplesToNewChunk(n int64, connectedToNext bool) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n < 0 {
		return "", chunkerr.InvalidArgument("attach_samples_to_new_chunk: n must be >= 0, got %d", n)
	}

	var newLast int64
	switch {
	case n == 0:
		if len(e.last) == 0 || !e.conn.Get(len(e.last)-1) {
			return "", chunkerr.InvalidState("cannot open a new chunk containing zero samples unless continuing a split sample")
		}
		newLast = e.last[len(e.last)-1]
	case len(e.last) == 0:
		newLast = n - 1
	default:
		newLast = e.last[len(e.last)-1] + n
	}

	id := chunkid.Generate()
	e.ids = append(e.ids, id)
	e.last = append(e.last, newLast)
	e.conn.Append(connectedToNext)

	e.log.Debug("attached new chunk",
		zap.String("chunk", chunkid.Name(id)),
		zap.Int64("n", n),
		zap.Bool("connected_to_next", connectedToNext),
		zap.Int64("last_sample_index", newLast),
	)

	return chunkid.Name(id), nil
}

// AttachSamplesToLastChunk extends the most recently attached chunk by n
// samples and returns its printable name.
func (e *Encoder) AttachSamplesToLastChunk(n int64, connectedToNext bool) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n <= 0 {
		return "", chunkerr.InvalidArgument("attach_samples_to_last_chunk: n must be >= 1, got %d", n)
	}
	if len(e.last) == 0 {
		return "", chunkerr.InvalidState("cannot extend last chunk: no chunk has been attached yet")
	}

	idx := len(e.last) - 1
	if e.conn.Get(idx) {
		return "", chunkerr.InvalidState("cannot extend last chunk: it is already connected to a following chunk")
	}

	e.last[idx] += n
	e.conn.Set(idx, connectedToNext)

	e.log.Debug("extended last chunk",
		zap.String("chunk", chunkid.Name(e.ids[idx])),
		zap.Int64("n", n),
		zap.Bool("connected_to_next", connectedToNext),
		zap.Int64("last_sample_index", e.last[idx]),
	)

	return chunkid.Name(e.ids[idx]), nil
}

// GetChunkNames returns the ordered, duplicate-free sequence of chunk names
// holding globalIndex, in chunk order. See locate for the resolution
// algorithm.
func (e *Encoder) GetChunkNames(globalIndex int64) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lo, hi, err := e.locate(globalIndex)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		names = append(names, chunkid.Name(e.ids[i]))
	}
	return names, nil
}

// GetLocalSampleIndex returns the offset of globalIndex within its first
// containing chunk.
func (e *Encoder) GetLocalSampleIndex(globalIndex int64) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lo, _, err := e.locate(globalIndex)
	if err != nil {
		return 0, err
	}

	prevLast := int64(-1)
	if lo > 0 {
		prevLast = e.last[lo-1]
	}
	return globalIndex - prevLast - 1, nil
}

// locate resolves globalIndex to the inclusive row range [lo, hi] of chunks
// that hold it, via a binary-search-then-walk algorithm.
//
// A row's connected_to_next flag can legitimately still be set on the last
// row ever attached: that's the SEALED state, reached between the call that
// opens/extends a split sample and the later call that closes it. Any
// globalIndex whose forward walk runs off the end of the table is therefore
// caller-reachable, not a bookkeeping bug, and is reported as
// chunkerr.InvalidState rather than an internal invariant panic.
func (e *Encoder) locate(globalIndex int64) (lo, hi int, err error) {
	numSamples := e.numSamplesLocked()
	if globalIndex < 0 || globalIndex >= numSamples {
		return 0, 0, chunkerr.OutOfRange("global sample index %d is out of range [0, %d)", globalIndex, numSamples)
	}

	r := sort.Search(len(e.last), func(i int) bool { return e.last[i] >= globalIndex })
	d.Chk(r < len(e.last), "locate: sort.Search found no row covering in-range index %d", globalIndex)

	lo = r
	for lo > 0 && e.last[lo-1] == e.last[r] && e.conn.Get(lo-1) {
		lo--
	}

	hi = lo
	if e.last[lo] == globalIndex {
		for e.conn.Get(hi) {
			if hi+1 >= len(e.last) {
				return 0, 0, chunkerr.InvalidState("global sample index %d falls within a split sample that has not yet been closed", globalIndex)
			}
			hi++
		}
	}

	return lo, hi, nil
}
