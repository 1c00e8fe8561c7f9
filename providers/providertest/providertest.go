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

// Package providertest holds a Provider contract suite shared by every
// backend under providers/: a single Factory-driven testify suite exercised
// against each concrete implementation.
package providertest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/hub-go/chunkstore/providers"
	"github.com/hub-go/chunkstore/store/chunkerr"
)

// Factory builds a fresh, empty Provider for each test. Implementations
// that need teardown (e.g. an open file handle) should register it with
// t.Cleanup.
type Factory interface {
	NewProvider(t *testing.T) providers.Provider
}

// ContractSuite exercises the full Provider contract against
// whatever Factory it's given. Concrete backend tests construct it with
// Factory set and pass it to suite.Run.
type ContractSuite struct {
	suite.Suite
	Factory Factory
}

func (s *ContractSuite) provider() providers.Provider {
	return s.Factory.NewProvider(s.T())
}

func (s *ContractSuite) TestPutGetRoundTrip() {
	p := s.provider()
	ctx := context.Background()
	s.Require().NoError(p.Put(ctx, "a", []byte("hello world")))
	got, err := p.Get(ctx, "a")
	s.NoError(err)
	s.Equal([]byte("hello world"), got)
}

func (s *ContractSuite) TestGetMissingReturnsNotFound() {
	p := s.provider()
	ctx := context.Background()
	_, err := p.Get(ctx, "nope")
	s.Error(err)
	s.True(errors.Is(err, chunkerr.ErrNotFound))
}

func (s *ContractSuite) TestGetRangeMiddle() {
	p := s.provider()
	ctx := context.Background()
	s.Require().NoError(p.Put(ctx, "a", []byte("hello world")))
	got, err := p.GetRange(ctx, "a", 2, 3)
	s.NoError(err)
	s.Equal([]byte("llo"), got)
}

func (s *ContractSuite) TestGetRangePastEndIsShortRead() {
	p := s.provider()
	ctx := context.Background()
	s.Require().NoError(p.Put(ctx, "a", []byte("hello")))
	got, err := p.GetRange(ctx, "a", 3, 100)
	s.NoError(err)
	s.Equal([]byte("lo"), got)

	got, err = p.GetRange(ctx, "a", 10, 5)
	s.NoError(err)
	s.Equal([]byte{}, got)
}

func (s *ContractSuite) TestPutRangeReplacesWindow() {
	p := s.provider()
	ctx := context.Background()
	s.Require().NoError(p.Put(ctx, "a", []byte("hello world")))
	s.Require().NoError(p.PutRange(ctx, "a", []byte("abcde"), 6, false))
	got, err := p.Get(ctx, "a")
	s.NoError(err)
	s.Equal([]byte("hello abcde"), got)
}

func (s *ContractSuite) TestPutRangeWithGapZeroFills() {
	p := s.provider()
	ctx := context.Background()
	s.Require().NoError(p.Put(ctx, "a", []byte("ab")))
	s.Require().NoError(p.PutRange(ctx, "a", []byte("xy"), 5, false))
	got, err := p.Get(ctx, "a")
	s.NoError(err)
	s.Equal([]byte{'a', 'b', 0, 0, 0, 'x', 'y'}, got)
}

func (s *ContractSuite) TestPutRangeOverwriteIgnoresOffset() {
	p := s.provider()
	ctx := context.Background()
	s.Require().NoError(p.Put(ctx, "a", []byte("hello world")))
	s.Require().NoError(p.PutRange(ctx, "a", []byte("new"), 6, true))
	got, err := p.Get(ctx, "a")
	s.NoError(err)
	s.Equal([]byte("new"), got)
}

func (s *ContractSuite) TestPutRangeOnMissingKeyActsAsPut() {
	p := s.provider()
	ctx := context.Background()
	s.Require().NoError(p.PutRange(ctx, "a", []byte("xy"), 2, false))
	got, err := p.Get(ctx, "a")
	s.NoError(err)
	s.Equal([]byte{0, 0, 'x', 'y'}, got)
}

func (s *ContractSuite) TestDeleteRemovesKey() {
	p := s.provider()
	ctx := context.Background()
	s.Require().NoError(p.Put(ctx, "a", []byte("x")))
	s.Require().NoError(p.Delete(ctx, "a"))
	_, err := p.Get(ctx, "a")
	s.True(errors.Is(err, chunkerr.ErrNotFound))
}

func (s *ContractSuite) TestDeleteMissingReturnsNotFound() {
	p := s.provider()
	ctx := context.Background()
	err := p.Delete(ctx, "nope")
	s.True(errors.Is(err, chunkerr.ErrNotFound))
}

func (s *ContractSuite) TestLenAndIterate() {
	p := s.provider()
	ctx := context.Background()
	s.Require().NoError(p.Put(ctx, "b", []byte("2")))
	s.Require().NoError(p.Put(ctx, "a", []byte("1")))
	s.Require().NoError(p.Put(ctx, "c", []byte("3")))

	n, err := p.Len(ctx)
	s.NoError(err)
	s.Equal(3, n)

	it, err := p.Iterate(ctx)
	s.Require().NoError(err)
	var keys []string
	for it.Next() {
		keys = append(keys, it.Key())
	}
	s.NoError(it.Err())
	s.Equal([]string{"a", "b", "c"}, keys)
}

func (s *ContractSuite) TestEmptyKeyRejected() {
	p := s.provider()
	ctx := context.Background()
	_, err := p.Get(ctx, "")
	s.True(errors.Is(err, chunkerr.ErrInvalidArgument))
}

func (s *ContractSuite) TestFlushIsSafeToCall() {
	p := s.provider()
	ctx := context.Background()
	s.Require().NoError(p.Put(ctx, "a", []byte("x")))
	s.NoError(p.Flush(ctx))
}
