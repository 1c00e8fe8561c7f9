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

package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hub-go/chunkstore/store/chunkerr"
	"github.com/hub-go/chunkstore/store/config"
)

const sampleTOML = `
[[tier]]
kind = "memory"
budget_bytes = 1048576

[[tier]]
kind = "local"
path = "chain.bolt"
`

func writeConfig(t *testing.T, dir, body string) string {
	path := filepath.Join(dir, "chain.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDecodesOrderedTiers(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleTOML)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Tier, 2)
	require.Equal(t, config.KindMemory, cfg.Tier[0].Kind)
	require.Equal(t, uint64(1048576), cfg.Tier[0].BudgetBytes)
	require.Equal(t, config.KindLocal, cfg.Tier[1].Kind)
}

func TestBuildAssemblesWorkingChain(t *testing.T) {
	dir := t.TempDir()
	body := `
[[tier]]
kind = "memory"
budget_bytes = 1024

[[tier]]
kind = "local"
path = "` + filepath.Join(dir, "chain.bolt") + `"
`
	path := writeConfig(t, dir, body)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	chain, err := config.Build(context.Background(), cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, chain.Put(ctx, "a", []byte("hello")))
	got, err := chain.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestBuildRejectsEmptyChain(t *testing.T) {
	_, err := config.Build(context.Background(), &config.ChainConfig{})
	require.True(t, errors.Is(err, chunkerr.ErrInvalidArgument))
}

func TestBuildRejectsUnknownKind(t *testing.T) {
	cfg := &config.ChainConfig{Tier: []config.TierConfig{{Kind: "quantum"}}}
	_, err := config.Build(context.Background(), cfg)
	require.True(t, errors.Is(err, chunkerr.ErrInvalidArgument))
}

func TestBuildRejectsLocalTierWithoutPath(t *testing.T) {
	cfg := &config.ChainConfig{Tier: []config.TierConfig{{Kind: config.KindLocal}}}
	_, err := config.Build(context.Background(), cfg)
	require.True(t, errors.Is(err, chunkerr.ErrInvalidArgument))
}
