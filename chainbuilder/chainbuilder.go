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

// Package chainbuilder composes a list of providers.Provider tiers into a
// single cache.Layer chain, fastest first, slowest (terminal) last.
package chainbuilder

import (
	"go.uber.org/zap"

	"github.com/hub-go/chunkstore/cache"
	"github.com/hub-go/chunkstore/providers"
	"github.com/hub-go/chunkstore/store/chunkerr"
)

// Option configures the chain builder's cache layers.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger attaches a structured logger to every cache.Layer the chain
// builds.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// Build takes providers [P0, P1, ..., Pk] ordered fastest to slowest, and
// budgets [B0, ..., B(k-1)] (one per non-terminal layer), and returns a
// single Provider: each Pi for i < k is wrapped in an LRU cache.Layer whose
// backing store is the chain built from [P(i+1), ..., Pk]. Pk is returned
// unwrapped as the terminal layer.
func Build(tiers []providers.Provider, budgets []uint64, opts ...Option) (providers.Provider, error) {
	if len(tiers) == 0 {
		return nil, chunkerr.InvalidArgument("chain must have at least one provider")
	}
	if len(budgets) != len(tiers)-1 {
		return nil, chunkerr.InvalidArgument(
			"expected %d budgets for %d providers, got %d", len(tiers)-1, len(tiers), len(budgets))
	}

	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	chain := tiers[len(tiers)-1]
	for i := len(tiers) - 2; i >= 0; i-- {
		o.log.Debug("wrapping cache tier",
			zap.Int("tier_index", i),
			zap.Uint64("budget_bytes", budgets[i]),
		)
		chain = cache.NewLayer(tiers[i], chain, budgets[i], cache.WithLogger(o.log))
	}
	return chain, nil
}
