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

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/hub-go/chunkstore/chunkid"
	"github.com/hub-go/chunkstore/store/chunkerr"
	"github.com/hub-go/chunkstore/store/d"
)

// magic identifies the encoded format. version allows the framing to
// change without breaking the ability to detect old files.
var magic = [4]byte{'H', 'C', 'N', 'E'} // Hub Chunk-Name Encoder

const formatVersion uint16 = 1

const rowSize = chunkid.Width + 8 // 128-bit id + 64-bit last_sample_index

// Encode serializes e into the persisted format: a 4-byte magic, a
// 2-byte version, a 4-byte row count, a little-endian sequence of (id,
// last_sample_index) pairs, and a packed connectivity bitset.
func (e *Encoder) Encode() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	numRows := len(e.ids)
	d.PanicIfFalse(len(e.last) == numRows && e.conn.Len() == numRows)

	buf := bytes.NewBuffer(make([]byte, 0, 4+2+4+numRows*rowSize+(numRows+7)/8))

	buf.Write(magic[:])
	d.PanicIfError(binary.Write(buf, binary.LittleEndian, formatVersion))
	d.PanicIfError(binary.Write(buf, binary.LittleEndian, uint32(numRows)))

	for i := 0; i < numRows; i++ {
		buf.Write(e.ids[i][:])
		d.PanicIfError(binary.Write(buf, binary.LittleEndian, uint64(e.last[i])))
	}

	buf.Write(e.conn.packedBytes())

	return buf.Bytes(), nil
}

// Decode reconstructs an Encoder from bytes produced by Encode. The result
// is observationally equal to the encoder that produced data: same rows,
// same connectivity, same NumChunks/NumSamples.
func Decode(data []byte, opts ...Option) (*Encoder, error) {
	r := bytes.NewReader(data)

	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, chunkerr.InvalidArgument("encoded index is truncated: %s", err)
	}
	if gotMagic != magic {
		return nil, chunkerr.InvalidArgument("encoded index has bad magic %q", gotMagic)
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, chunkerr.InvalidArgument("encoded index is truncated reading version: %s", err)
	}
	if version != formatVersion {
		return nil, chunkerr.InvalidArgument("encoded index has unsupported version %d", version)
	}

	var numRows uint32
	if err := binary.Read(r, binary.LittleEndian, &numRows); err != nil {
		return nil, chunkerr.InvalidArgument("encoded index is truncated reading row count: %s", err)
	}

	e := New(opts...)
	e.ids = make([]chunkid.ID, numRows)
	e.last = make([]int64, numRows)

	for i := uint32(0); i < numRows; i++ {
		if _, err := io.ReadFull(r, e.ids[i][:]); err != nil {
			return nil, chunkerr.InvalidArgument("encoded index is truncated reading row %d id: %s", i, err)
		}
		var last uint64
		if err := binary.Read(r, binary.LittleEndian, &last); err != nil {
			return nil, chunkerr.InvalidArgument("encoded index is truncated reading row %d last_sample_index: %s", i, err)
		}
		e.last[i] = int64(last)
	}

	packedLen := (int(numRows) + 7) / 8
	packed := make([]byte, packedLen)
	if packedLen > 0 {
		if _, err := io.ReadFull(r, packed); err != nil {
			return nil, chunkerr.InvalidArgument("encoded index is truncated reading connectivity bitset: %s", err)
		}
	}
	e.conn = bitsetFromPacked(packed, int(numRows))

	return e, nil
}
