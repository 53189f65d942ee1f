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

package frame

// Host command codes (CR95HF datasheet section 5.2)
const (
	CmdIDN            = 0x01 // Device identification string
	CmdProtocolSelect = 0x02 // Select RF protocol
	CmdSendRecv       = 0x04 // Send data to tag, receive its response
	CmdIdle           = 0x07 // Enter low-power idle mode
	CmdReadRegister   = 0x08 // Read analog configuration register
	CmdWriteRegister  = 0x09 // Write analog configuration register
	CmdEcho           = 0x55 // Echo test, answered with a bare 0x55
)

// RF protocol codes for ProtocolSelect (datasheet section 5.3)
const (
	ProtoFieldOff  = 0x00
	ProtoISO15693  = 0x01
	ProtoISO14443A = 0x02
	ProtoISO14443B = 0x03
	ProtoFeliCa    = 0x04
)

// ISO14443-3A command bytes carried inside SendRecv payloads
const (
	ReqA        = 0x26 // REQA, wakes idle tags only
	WupA        = 0x52 // WUPA, wakes all tags including halted ones
	SelCL1      = 0x93 // Select cascade level 1 (UID bytes 0-3)
	SelCL2      = 0x95 // Select cascade level 2 (UID bytes 3-6)
	NVBAnticoll = 0x20 // NVB: no UID bits known yet (anticollision)
	NVBSelect   = 0x70 // NVB: all 40 UID bits known (select)
	CascadeTag  = 0x88 // More UID bytes follow in the next cascade level
)

// SendRecv transmit flag bytes (datasheet section 5.6)
const (
	FlagShortFrame = 0x07 // 7-bit short frame, no parity (REQA/WUPA)
	FlagParity     = 0x08 // Append odd parity bits (anticollision)
	FlagParityCRC  = 0x28 // Append parity and CRC-A (select and onwards)
)

// Frame size limits. A command frame is command byte + length byte + payload
// and the chip's receive buffer caps the whole frame at 32 bytes.
const (
	MaxFrameSize   = 32
	HeaderSize     = 2
	MaxPayloadSize = MaxFrameSize - HeaderSize
)

// CascadeSize is the byte count of one anticollision candidate:
// four UID bytes plus the BCC check byte.
const CascadeSize = 5
