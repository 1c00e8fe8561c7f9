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

// Package config decodes a declarative description of a cache chain from
// TOML and assembles it into a live providers.Provider via chainbuilder.
package config

import (
	"context"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hub-go/chunkstore/chainbuilder"
	"github.com/hub-go/chunkstore/providers"
	"github.com/hub-go/chunkstore/store/chunkerr"
)

// TierKind names one of the backend implementations a TierConfig can
// select.
type TierKind string

const (
	KindMemory TierKind = "memory"
	KindLocal  TierKind = "local"
	KindS3     TierKind = "s3"
	KindDynamo TierKind = "dynamo"
)

// TierConfig describes one layer of a cache chain, ordered fastest first.
// BudgetBytes is ignored on the last (terminal) tier.
type TierConfig struct {
	Kind        TierKind `toml:"kind"`
	BudgetBytes uint64   `toml:"budget_bytes"`

	// Path is the bbolt file path, used when Kind == KindLocal.
	Path string `toml:"path,omitempty"`

	// Bucket and Prefix configure an S3 tier, used when Kind == KindS3.
	Bucket string `toml:"bucket,omitempty"`
	Prefix string `toml:"prefix,omitempty"`

	// Table configures a DynamoDB tier, used when Kind == KindDynamo.
	Table string `toml:"table,omitempty"`
}

// ChainConfig is the root of a cache-chain TOML document: an ordered list
// of tiers from fastest to slowest.
type ChainConfig struct {
	Tier []TierConfig `toml:"tier"`
}

// Load decodes a ChainConfig from a TOML file at path.
func Load(path string) (*ChainConfig, error) {
	var cfg ChainConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, chunkerr.BackendFailure(err, "decoding chain config %q", path)
	}
	return &cfg, nil
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	log *zap.Logger
}

// WithLogger attaches a structured logger to chain assembly and to every
// cache layer it builds.
func WithLogger(l *zap.Logger) Option {
	return func(o *buildOptions) { o.log = l }
}

// Build turns a ChainConfig into a live providers.Provider chain. Tiers
// needing AWS clients (s3, dynamo) load the default AWS SDK credential
// chain via config.LoadDefaultConfig.
func Build(ctx context.Context, cfg *ChainConfig, opts ...Option) (providers.Provider, error) {
	if len(cfg.Tier) == 0 {
		return nil, chunkerr.InvalidArgument("chain config must declare at least one tier")
	}

	o := &buildOptions{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	tiers := make([]providers.Provider, 0, len(cfg.Tier))
	budgets := make([]uint64, 0, len(cfg.Tier)-1)

	for i, t := range cfg.Tier {
		p, err := buildTier(ctx, t)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, p)
		if i < len(cfg.Tier)-1 {
			budgets = append(budgets, t.BudgetBytes)
			o.log.Debug("configured cache tier",
				zap.String("kind", string(t.Kind)),
				zap.String("budget", humanize.Bytes(t.BudgetBytes)),
			)
		}
	}

	return chainbuilder.Build(tiers, budgets, chainbuilder.WithLogger(o.log))
}

func buildTier(ctx context.Context, t TierConfig) (providers.Provider, error) {
	switch t.Kind {
	case KindMemory:
		return providers.NewMemoryProvider(), nil

	case KindLocal:
		if t.Path == "" {
			return nil, chunkerr.InvalidArgument("local tier requires a path")
		}
		return providers.NewLocalProvider(t.Path)

	case KindS3:
		if t.Bucket == "" {
			return nil, chunkerr.InvalidArgument("s3 tier requires a bucket")
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, chunkerr.BackendFailure(err, "loading AWS config for s3 tier")
		}
		client := s3.NewFromConfig(cfg)
		return providers.NewS3Provider(client, t.Bucket, t.Prefix), nil

	case KindDynamo:
		if t.Table == "" {
			return nil, chunkerr.InvalidArgument("dynamo tier requires a table")
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, chunkerr.BackendFailure(err, "loading AWS config for dynamo tier")
		}
		client := dynamodb.NewFromConfig(cfg)
		return providers.NewDynamoProvider(client, t.Table), nil

	default:
		return nil, chunkerr.InvalidArgument("unknown tier kind %q", t.Kind)
	}
}
