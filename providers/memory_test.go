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

package providers_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/hub-go/chunkstore/providers"
	"github.com/hub-go/chunkstore/providers/providertest"
)

type memoryFactory struct{}

func (memoryFactory) NewProvider(_ *testing.T) providers.Provider {
	return providers.NewMemoryProvider()
}

func TestMemoryProviderContract(t *testing.T) {
	s := &providertest.ContractSuite{Factory: memoryFactory{}}
	suite.Run(t, s)
}
