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

// The fixed-shape builders below use payloads that are statically under
// MaxPayloadSize, so the New error is impossible and discarded.

// IDN builds the device identification query. The response payload carries
// the device name string and a ROM CRC.
func IDN() Frame {
	f, _ := New(CmdIDN, nil)
	return f
}

// ProtocolSelect builds the RF protocol selection command. param is the
// protocol-specific parameter byte, 0x00 for ISO14443-A defaults.
func ProtocolSelect(proto, param byte) Frame {
	f, _ := New(CmdProtocolSelect, []byte{proto, param})
	return f
}

// Echo returns the echo handshake bytes. Echo sits outside the triplet
// grammar: the host writes a bare 0x55 and the chip answers with one.
func Echo() []byte {
	return []byte{CmdEcho}
}

// SendRecv builds a SendRecv command carrying arbitrary RF data. The
// transmit flags byte is appended after the RF data per the chip grammar.
func SendRecv(rf []byte, flags byte) (Frame, error) {
	payload := make([]byte, 0, len(rf)+1)
	payload = append(payload, rf...)
	payload = append(payload, flags)
	return New(CmdSendRecv, payload)
}

// REQA builds the "wake idle tags" short frame.
func REQA() Frame {
	f, _ := SendRecv([]byte{ReqA}, FlagShortFrame)
	return f
}

// WUPA builds the "wake all tags" short frame, which also wakes
// previously halted tags.
func WUPA() Frame {
	f, _ := SendRecv([]byte{WupA}, FlagShortFrame)
	return f
}

// Anticollision builds the anticollision command for the given cascade
// select byte (SelCL1 or SelCL2). The tag answers with four identifier
// bytes plus the BCC check byte.
func Anticollision(sel byte) Frame {
	f, _ := SendRecv([]byte{sel, NVBAnticoll}, FlagParity)
	return f
}

// Select builds the select command for the given cascade select byte and
// the five candidate bytes observed during anticollision. CRC-A framing is
// requested because select is the first fully-framed ISO14443-A exchange.
func Select(sel byte, cascade [CascadeSize]byte) Frame {
	rf := make([]byte, 0, 2+CascadeSize)
	rf = append(rf, sel, NVBSelect)
	rf = append(rf, cascade[:]...)
	f, _ := SendRecv(rf, FlagParityCRC)
	return f
}
