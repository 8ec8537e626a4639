/*
 * Copyright 2023 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package abi

import (
	"encoding/binary"

	"github.com/bytedance/gopkg/lang/dirtmake"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Wire format, all little-endian:
//
//	u32 magic "PLL0"
//	u16 version
//	u16 push constant count
//	u16 set count
//	per set: u16 ordinal, u16 binding count,
//	         per binding: u16 ordinal, u8 type, u8 flags
//
// The encoding is consumed by the runtime loader; it must stay
// bit-compatible across architectures, hence the fixed endianness.

const (
	layoutMagic   = 0x304c4c50 // "PLL0"
	layoutVersion = 1
)

func (self *PipelineLayout) encodedSize() int {
	n := 4 + 2 + 2 + 2
	for _, s := range self.Sets {
		n += 4 + 4*len(s.Bindings)
	}
	return n
}

// Encode serializes the layout into its wire form.
func (self *PipelineLayout) Encode() []byte {
	buf := dirtmake.Bytes(self.encodedSize(), self.encodedSize())
	le := binary.LittleEndian

	le.PutUint32(buf[0:], layoutMagic)
	le.PutUint16(buf[4:], layoutVersion)
	le.PutUint16(buf[6:], uint16(self.PushConstants))
	le.PutUint16(buf[8:], uint16(len(self.Sets)))

	i := 10
	for _, s := range self.Sets {
		le.PutUint16(buf[i:], uint16(s.Ordinal))
		le.PutUint16(buf[i+2:], uint16(len(s.Bindings)))
		i += 4
		for _, b := range s.Bindings {
			le.PutUint16(buf[i:], uint16(b.Ordinal))
			buf[i+2] = uint8(b.Type)
			buf[i+3] = uint8(b.Flags)
			i += 4
		}
	}
	return buf
}

// Decode parses a wire-form layout.
func Decode(buf []byte) (*PipelineLayout, error) {
	le := binary.LittleEndian
	if len(buf) < 10 {
		return nil, errors.New("abi: layout encoding truncated")
	}
	if le.Uint32(buf[0:]) != layoutMagic {
		return nil, errors.Errorf("abi: bad layout magic %#08x", le.Uint32(buf[0:]))
	}
	if v := le.Uint16(buf[4:]); v != layoutVersion {
		return nil, errors.Errorf("abi: unsupported layout version %d", v)
	}

	ret := &PipelineLayout{PushConstants: uint32(le.Uint16(buf[6:]))}
	nsets := int(le.Uint16(buf[8:]))

	i := 10
	for s := 0; s < nsets; s++ {
		if len(buf) < i+4 {
			return nil, errors.New("abi: layout encoding truncated")
		}
		set := DescriptorSetLayout{Ordinal: uint32(le.Uint16(buf[i:]))}
		nb := int(le.Uint16(buf[i+2:]))
		i += 4
		for b := 0; b < nb; b++ {
			if len(buf) < i+4 {
				return nil, errors.New("abi: layout encoding truncated")
			}
			set.Bindings = append(set.Bindings, Binding{
				Ordinal: uint32(le.Uint16(buf[i:])),
				Type:    BindingType(buf[i+2]),
				Flags:   BindingFlags(buf[i+3]),
			})
			i += 4
		}
		ret.Sets = append(ret.Sets, set)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

// PackF16 packs a float into the low half of a push constant word using
// IEEE 754 half precision.
func PackF16(v float32) uint32 {
	return uint32(float16.Fromfloat32(v).Bits())
}

// UnpackF16 recovers a half-precision push constant word.
func UnpackF16(w uint32) float32 {
	return float16.Frombits(uint16(w)).Float32()
}
