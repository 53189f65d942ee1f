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

// BCC computes the ISO14443-3A block check character: the bitwise XOR of
// the four identifier bytes in an anticollision response.
func BCC(id []byte) byte {
	var bcc byte
	for _, b := range id {
		bcc ^= b
	}
	return bcc
}

// ValidBCC reports whether a 5-byte cascade candidate's check byte matches
// the XOR of its four identifier bytes.
func ValidBCC(cascade []byte) bool {
	if len(cascade) < CascadeSize {
		return false
	}
	return BCC(cascade[:CascadeSize-1]) == cascade[CascadeSize-1]
}
