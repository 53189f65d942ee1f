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

// Package testing provides test utilities including a wire-level CR95HF
// simulator.
//
// The VirtualCR95HF type implements io.ReadWriter and simulates the chip at
// the serial protocol level: [command, length, payload] frames in,
// [status, length, payload] responses out, plus the bare-byte echo
// handshake. The SendRecv command is interpreted against the VirtualTag
// currently in the simulated field, covering the ISO14443-3A wake,
// anticollision, and select exchanges.
package testing

import (
	"github.com/b4e-srl/go-cr95hf/internal/syncutil"
)

// CR95HF command codes handled by the simulator
const (
	cmdIDN            = 0x01
	cmdProtocolSelect = 0x02
	cmdSendRecv       = 0x04
	cmdEcho           = 0x55
)

// Response status codes (datasheet section 5.4)
const (
	statusSuccess    = 0x00
	statusData       = 0x80
	statusInvalidLen = 0x82
	statusInvalidCmd = 0x83
	statusTimeout    = 0x87
	statusFraming    = 0x8F
)

// ISO14443-3A bytes the simulator recognizes inside SendRecv payloads
const (
	isoREQA       = 0x26
	isoWUPA       = 0x52
	isoSelCL1     = 0x93
	isoSelCL2     = 0x95
	nvbAnticoll   = 0x20
	nvbSelect     = 0x70
	cascadeTag    = 0x88
	sakCascadeBit = 0x04
)

// identPayload is the IDN answer: device name, NUL, ROM CRC
var identPayload = []byte{
	'N', 'F', 'C', ' ', 'F', 'S', '2', 'J', 'A', 'S', 'T', '4', 0x00,
	0x2A, 0xCE,
}

// VirtualCR95HF simulates a CR95HF chip behind a serial link.
// It is safe for concurrent use.
type VirtualCR95HF struct {
	tag        *VirtualTag
	rxBuffer   []byte // Bytes written by the host, not yet parsed
	txBuffer   []byte // Bytes waiting for the host to read
	protocol   byte
	mu         syncutil.Mutex
	mute       bool // Drop all responses, simulating a dead chip
	corruptBCC bool // Corrupt the next anticollision check byte
}

// NewVirtualCR95HF creates a simulator with the RF field off and no tag
func NewVirtualCR95HF() *VirtualCR95HF {
	return &VirtualCR95HF{}
}

// Write receives bytes from the host (implements io.Writer)
func (v *VirtualCR95HF) Write(data []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rxBuffer = append(v.rxBuffer, data...)
	v.processReceivedData()
	return len(data), nil
}

// Read returns response bytes to the host (implements io.Reader).
// It never blocks; with nothing pending it returns 0 bytes, matching a
// serial port read timeout.
func (v *VirtualCR95HF) Read(buf []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.txBuffer) == 0 {
		return 0, nil
	}

	n := copy(buf, v.txBuffer)
	v.txBuffer = v.txBuffer[n:]
	return n, nil
}

// PlaceTag puts a tag into the simulated RF field, replacing any other
func (v *VirtualCR95HF) PlaceTag(tag *VirtualTag) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tag = tag
}

// RemoveTag empties the simulated RF field
func (v *VirtualCR95HF) RemoveTag() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tag = nil
}

// SetMute makes the chip stop answering entirely, so every read times out
func (v *VirtualCR95HF) SetMute(mute bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mute = mute
}

// InjectBCCError corrupts the check byte of the next anticollision answer
func (v *VirtualCR95HF) InjectBCCError() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.corruptBCC = true
}

// Protocol returns the protocol code from the last ProtocolSelect
func (v *VirtualCR95HF) Protocol() byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.protocol
}

// HasPendingResponse reports whether unread response bytes remain
func (v *VirtualCR95HF) HasPendingResponse() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.txBuffer) > 0
}

// processReceivedData consumes complete frames from the rx buffer.
// Called with the lock held.
func (v *VirtualCR95HF) processReceivedData() {
	for len(v.rxBuffer) > 0 {
		// The echo command is a single bare byte outside the frame format
		if v.rxBuffer[0] == cmdEcho {
			v.rxBuffer = v.rxBuffer[1:]
			v.respondRaw([]byte{cmdEcho})
			continue
		}

		// Need at least [cmd, len]; then the full payload
		if len(v.rxBuffer) < 2 {
			return
		}
		payloadLen := int(v.rxBuffer[1])
		if len(v.rxBuffer) < 2+payloadLen {
			return
		}

		cmd := v.rxBuffer[0]
		payload := v.rxBuffer[2 : 2+payloadLen]
		v.processCommand(cmd, payload)
		v.rxBuffer = v.rxBuffer[2+payloadLen:]
	}
}

// processCommand dispatches one complete frame. Called with the lock held.
func (v *VirtualCR95HF) processCommand(cmd byte, payload []byte) {
	switch cmd {
	case cmdIDN:
		v.respond(statusSuccess, identPayload)
	case cmdProtocolSelect:
		if len(payload) < 2 {
			v.respond(statusInvalidLen, nil)
			return
		}
		v.protocol = payload[0]
		// A field cycle resets every tag in it
		if v.tag != nil {
			v.tag.halted = false
		}
		v.respond(statusSuccess, nil)
	case cmdSendRecv:
		v.processSendRecv(payload)
	default:
		v.respond(statusInvalidCmd, nil)
	}
}

// processSendRecv interprets the RF payload against the tag in the field.
// The last payload byte is the transmit flags byte; the rest is ISO14443-3A
// frame data.
func (v *VirtualCR95HF) processSendRecv(payload []byte) {
	if len(payload) < 2 {
		v.respond(statusInvalidLen, nil)
		return
	}
	rf := payload[:len(payload)-1]

	switch rf[0] {
	case isoREQA, isoWUPA:
		v.processWake(rf[0])
	case isoSelCL1, isoSelCL2:
		v.processCascade(rf)
	default:
		// Unknown RF data reaches no tag
		v.respond(statusTimeout, nil)
	}
}

// processWake handles REQA and WUPA
func (v *VirtualCR95HF) processWake(wake byte) {
	tag := v.fieldTag()
	if tag == nil {
		v.respond(statusTimeout, nil)
		return
	}
	if wake == isoWUPA && tag.IgnoreWUPA {
		v.respond(statusTimeout, nil)
		return
	}
	// REQA only wakes tags that have not been halted by a prior selection
	if wake == isoREQA && tag.halted {
		v.respond(statusTimeout, nil)
		return
	}
	v.respondRF(tag.ATQA[:])
}

// processCascade handles the anticollision and select exchanges
func (v *VirtualCR95HF) processCascade(rf []byte) {
	tag := v.fieldTag()
	if tag == nil || len(rf) < 2 {
		v.respond(statusTimeout, nil)
		return
	}

	level := 1
	if rf[0] == isoSelCL2 {
		level = 2
	}

	switch rf[1] {
	case nvbAnticoll:
		block, err := tag.cascadeBlock(level)
		if err != nil {
			v.respond(statusTimeout, nil)
			return
		}
		if v.corruptBCC {
			v.corruptBCC = false
			block[4] ^= 0xFF
		}
		v.respondRF(block)
	case nvbSelect:
		if len(rf) < 7 {
			v.respond(statusFraming, nil)
			return
		}
		expected, err := tag.cascadeBlock(level)
		if err != nil {
			v.respond(statusTimeout, nil)
			return
		}
		for i, b := range expected {
			if rf[2+i] != b {
				// Wrong UID selects nothing
				v.respond(statusTimeout, nil)
				return
			}
		}
		if level == tag.levels() {
			tag.halted = true
		}
		v.respondRF([]byte{tag.sakForLevel(level)})
	default:
		v.respond(statusFraming, nil)
	}
}

// fieldTag returns the tag in the field, or nil when the field is off
func (v *VirtualCR95HF) fieldTag() *VirtualTag {
	if v.protocol == 0x00 {
		return nil
	}
	return v.tag
}

// respondRF answers a SendRecv with tag data plus the chip's three-byte
// RF status trailer
func (v *VirtualCR95HF) respondRF(data []byte) {
	payload := make([]byte, 0, len(data)+3)
	payload = append(payload, data...)
	payload = append(payload, 0x28, 0x00, 0x00)
	v.respond(statusData, payload)
}

// respond queues a [status, length, payload] response. Called with the
// lock held.
func (v *VirtualCR95HF) respond(code byte, payload []byte) {
	out := make([]byte, 0, 2+len(payload))
	out = append(out, code, byte(len(payload)))
	out = append(out, payload...)
	v.respondRaw(out)
}

// respondRaw queues raw bytes for the host to read. Called with the lock held.
func (v *VirtualCR95HF) respondRaw(data []byte) {
	if v.mute {
		return
	}
	v.txBuffer = append(v.txBuffer, data...)
}
