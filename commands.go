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

package cr95hf

// Response status codes (CR95HF datasheet section 5.4). The transport layer
// hands these back untouched; interpreting them is the caller's job.
const (
	// StatusSuccess indicates the command executed with no tag data.
	StatusSuccess byte = 0x00
	// StatusData indicates tag data follows in the payload.
	StatusData byte = 0x80
	// StatusInvalidLength indicates the command frame length was rejected.
	StatusInvalidLength byte = 0x82
	// StatusInvalidCommand indicates an unsupported command code.
	StatusInvalidCommand byte = 0x83
	// StatusTimeout indicates the frame wait time expired with no tag answer.
	StatusTimeout byte = 0x87
	// StatusCollision indicates a bit collision during anticollision.
	StatusCollision byte = 0x88
	// StatusFramingError indicates a framing error in the tag's response.
	StatusFramingError byte = 0x8F
)

// Protocol codes accepted by SelectProtocol.
const (
	// ProtocolFieldOff switches the RF field off.
	ProtocolFieldOff byte = 0x00
	// ProtocolISO15693 selects ISO15693 vicinity cards.
	ProtocolISO15693 byte = 0x01
	// ProtocolISO14443A selects ISO14443-A (NFC-A, MIFARE, NTAG).
	ProtocolISO14443A byte = 0x02
	// ProtocolISO14443B selects ISO14443-B.
	ProtocolISO14443B byte = 0x03
	// ProtocolFeliCa selects FeliCa (NFC-F).
	ProtocolFeliCa byte = 0x04
)
