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

package encode

import "github.com/hub-go/chunkstore/store/d"

// bitset is a packed bit vector, one bit per connectivity flag, LSB-first
// within each byte, bit i of the logical sequence living at byte i/8, bit
// i%8. This exact layout is dictated by the persisted format, so
// it is hand-rolled here rather than pulled from a general-purpose bitmap
// library: none of the candidate libraries in the dependency pool document
// their in-memory bit order precisely enough to guarantee byte-for-byte
// compatibility with that wire format without running the toolchain to
// verify it, and getting it wrong would silently corrupt every persisted
// index. Small, fully-specified wire encodings (see store/nbs's table
// format) are hand-rolled the same way rather than reaching for a
// dependency whose layout is opaque.
type bitset struct {
	bits []byte
	n    int
}

func newBitset() *bitset {
	return &bitset{}
}

func (b *bitset) Len() int { return b.n }

func (b *bitset) Append(v bool) {
	byteIdx := b.n / 8
	if byteIdx >= len(b.bits) {
		b.bits = append(b.bits, 0)
	}
	if v {
		b.bits[byteIdx] |= 1 << uint(b.n%8)
	}
	b.n++
}

func (b *bitset) Get(i int) bool {
	d.Chk(i >= 0 && i < b.n, "bitset: Get index %d out of range [0, %d)", i, b.n)
	return b.bits[i/8]&(1<<uint(i%8)) != 0
}

func (b *bitset) Set(i int, v bool) {
	d.Chk(i >= 0 && i < b.n, "bitset: Set index %d out of range [0, %d)", i, b.n)
	mask := byte(1 << uint(i%8))
	if v {
		b.bits[i/8] |= mask
	} else {
		b.bits[i/8] &^= mask
	}
}

// packedBytes returns the minimal byte-packed representation: ceil(n/8)
// bytes, bit i at byte i/8, bit i%8, LSB-first.
func (b *bitset) packedBytes() []byte {
	numBytes := (b.n + 7) / 8
	out := make([]byte, numBytes)
	copy(out, b.bits)
	return out
}

// bitsetFromPacked reconstructs a bitset holding exactly n bits from its
// packed byte representation.
func bitsetFromPacked(data []byte, n int) *bitset {
	bits := make([]byte, len(data))
	copy(bits, data)
	return &bitset{bits: bits, n: n}
}
