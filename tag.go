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

import "time"

// CardType classifies an ISO14443-A tag by its SAK byte
type CardType string

const (
	// CardTypeUltralight is MIFARE Ultralight / NTAG (SAK 0x00)
	CardTypeUltralight CardType = "MIFARE Ultralight/NTAG"
	// CardTypeMini is MIFARE Mini (SAK 0x09)
	CardTypeMini CardType = "MIFARE Mini"
	// CardTypeClassic1K is MIFARE Classic 1K (SAK 0x08)
	CardTypeClassic1K CardType = "MIFARE Classic 1K"
	// CardTypeClassic4K is MIFARE Classic 4K (SAK 0x18)
	CardTypeClassic4K CardType = "MIFARE Classic 4K"
	// CardTypePlus2K is MIFARE Plus 2K in security level 1 (SAK 0x10)
	CardTypePlus2K CardType = "MIFARE Plus 2K"
	// CardTypePlus4K is MIFARE Plus 4K in security level 1 (SAK 0x11)
	CardTypePlus4K CardType = "MIFARE Plus 4K"
	// CardTypePlusDESFire is MIFARE Plus SL3 or DESFire (SAK 0x20)
	CardTypePlusDESFire CardType = "MIFARE Plus/DESFire"
	// CardTypeJCOP is an NXP JCOP/SmartMX-class smart card (SAK 0x28)
	CardTypeJCOP CardType = "JCOP/SmartMX"
	// CardTypeClassic4KEmu is MIFARE Classic 4K emulation (SAK 0x38)
	CardTypeClassic4KEmu CardType = "MIFARE Classic 4K emulated"
	// CardTypeClassic1KInfineon is an Infineon MIFARE Classic 1K (SAK 0x88)
	CardTypeClassic1KInfineon CardType = "Infineon MIFARE Classic 1K"
	// CardTypeProX is a Philips Pro-X / ProX (SAK 0x98)
	CardTypeProX CardType = "Pro-X"
	// CardTypeUnknown is any SAK value not in the table
	CardTypeUnknown CardType = "Unknown"
)

// CardTypeFromSAK maps a SAK byte to a card type.
func CardTypeFromSAK(sak byte) CardType {
	switch sak {
	case 0x00:
		return CardTypeUltralight
	case 0x08:
		return CardTypeClassic1K
	case 0x09:
		return CardTypeMini
	case 0x10:
		return CardTypePlus2K
	case 0x11:
		return CardTypePlus4K
	case 0x18:
		return CardTypeClassic4K
	case 0x20:
		return CardTypePlusDESFire
	case 0x28:
		return CardTypeJCOP
	case 0x38:
		return CardTypeClassic4KEmu
	case 0x88:
		return CardTypeClassic1KInfineon
	case 0x98:
		return CardTypeProX
	default:
		return CardTypeUnknown
	}
}

// DetectedTag represents one tag selected by DetectTag
type DetectedTag struct {
	// DetectedAt is when the tag was selected
	DetectedAt time.Time
	// UID is the tag's UID as a lowercase hex string
	UID string
	// Type is the card type derived from the SAK byte
	Type CardType
	// UIDBytes is the raw 4- or 7-byte UID
	UIDBytes []byte
	// ATQA is the answer to the wake command
	ATQA [2]byte
	// SAK is the select acknowledge byte from the final cascade level
	SAK byte
}

// Manufacturer returns the tag manufacturer derived from the first UID
// byte. Only meaningful for 7-byte UIDs, where ISO14443-3 reserves the
// first byte as a manufacturer code; 4-byte UIDs return "unknown".
func (t *DetectedTag) Manufacturer() string {
	if len(t.UIDBytes) != 7 {
		return "unknown"
	}
	switch t.UIDBytes[0] {
	case 0x04:
		return "NXP"
	case 0x05:
		return "Infineon"
	case 0x02:
		return "STMicroelectronics"
	case 0x07:
		return "Texas Instruments"
	case 0x1D:
		return "Shanghai Feiju"
	default:
		return "unknown"
	}
}
