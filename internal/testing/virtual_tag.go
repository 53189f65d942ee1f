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

package testing

import "fmt"

// VirtualTag simulates an ISO14443-A tag in the RF field of a VirtualCR95HF.
type VirtualTag struct {
	// UID is the tag's unique identifier, 4 or 7 bytes
	UID []byte
	// ATQA is the answer to REQA/WUPA
	ATQA [2]byte
	// SAK is the select acknowledge of the final cascade level
	SAK byte
	// IgnoreWUPA makes the tag answer REQA only, for exercising the
	// wake fallback path
	IgnoreWUPA bool
	// halted is set once the tag has been selected; only WUPA wakes it again
	halted bool
}

// NewVirtualTag4 creates a tag with a 4-byte UID (classic MIFARE layout)
func NewVirtualTag4(uid [4]byte, sak byte) *VirtualTag {
	return &VirtualTag{
		UID:  uid[:],
		ATQA: [2]byte{0x04, 0x00},
		SAK:  sak,
	}
}

// NewVirtualTag7 creates a tag with a 7-byte UID (NTAG/Ultralight layout)
func NewVirtualTag7(uid [7]byte, sak byte) *VirtualTag {
	return &VirtualTag{
		UID:  uid[:],
		ATQA: [2]byte{0x44, 0x00},
		SAK:  sak,
	}
}

// cascadeBlock returns the 5-byte anticollision answer for the given
// cascade level (1 or 2): four ID bytes and their XOR check byte.
func (t *VirtualTag) cascadeBlock(level int) ([]byte, error) {
	var id []byte
	switch {
	case level == 1 && len(t.UID) == 4:
		id = t.UID[0:4]
	case level == 1 && len(t.UID) == 7:
		id = append([]byte{cascadeTag}, t.UID[0:3]...)
	case level == 2 && len(t.UID) == 7:
		id = t.UID[3:7]
	default:
		return nil, fmt.Errorf("no cascade level %d for %d-byte UID", level, len(t.UID))
	}

	block := make([]byte, 0, 5)
	block = append(block, id...)
	block = append(block, id[0]^id[1]^id[2]^id[3])
	return block, nil
}

// sakForLevel returns the SAK the tag answers at the given cascade level.
// A 7-byte tag answers level 1 with the cascade bit set, telling the
// reader to continue at level 2.
func (t *VirtualTag) sakForLevel(level int) byte {
	if level == 1 && len(t.UID) == 7 {
		return sakCascadeBit
	}
	return t.SAK
}

// levels returns how many cascade levels this tag's UID spans
func (t *VirtualTag) levels() int {
	if len(t.UID) == 7 {
		return 2
	}
	return 1
}
