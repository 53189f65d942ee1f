// Copyright 2026 B4E SRL.
// SPDX-License-Identifier: Apache-2.0
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

// Package frame builds and validates CR95HF command frames.
//
// The chip's UART grammar is a flat triplet in both directions:
//
//	[command: 1B] [payload_length: 1B] [payload: payload_length B]
//
// A Frame is constructed once, validated against the 32-byte chip buffer,
// and never mutated afterwards. Construction fails loudly instead of
// truncating an oversized payload.
package frame

import (
	"errors"
	"fmt"
)

// ErrPayloadTooLarge is returned when a payload would not fit the chip's
// 32-byte frame buffer.
var ErrPayloadTooLarge = errors.New("payload exceeds frame capacity")

// Frame is a validated, immutable CR95HF command frame.
type Frame struct {
	data []byte
}

// New builds a frame for cmd with the given payload. The length byte is
// always the exact payload size; payloads over MaxPayloadSize are rejected.
func New(cmd byte, payload []byte) (Frame, error) {
	if len(payload) > MaxPayloadSize {
		return Frame{}, fmt.Errorf("%w: %d bytes for command 0x%02X (max %d)",
			ErrPayloadTooLarge, len(payload), cmd, MaxPayloadSize)
	}
	data := make([]byte, 0, HeaderSize+len(payload))
	data = append(data, cmd, byte(len(payload)))
	data = append(data, payload...)
	return Frame{data: data}, nil
}

// Bytes returns a copy of the encoded frame ready for the wire.
func (f Frame) Bytes() []byte {
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}

// Command returns the frame's command code byte.
func (f Frame) Command() byte {
	if len(f.data) == 0 {
		return 0
	}
	return f.data[0]
}

// PayloadLen returns the value of the frame's length byte.
func (f Frame) PayloadLen() int {
	if len(f.data) < HeaderSize {
		return 0
	}
	return int(f.data[1])
}

// Len returns the total encoded size of the frame.
func (f Frame) Len() int {
	return len(f.data)
}
