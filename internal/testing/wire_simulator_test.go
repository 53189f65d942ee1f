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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, v *VirtualCR95HF) []byte {
	t.Helper()
	out := make([]byte, 0, 64)
	buf := make([]byte, 64)
	for {
		n, err := v.Read(buf)
		require.NoError(t, err)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

func TestSimulator_EchoOutsideFrameFormat(t *testing.T) {
	t.Parallel()

	sim := NewVirtualCR95HF()
	_, err := sim.Write([]byte{0x55})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55}, readAll(t, sim))
}

func TestSimulator_ReassemblesPartialWrites(t *testing.T) {
	t.Parallel()

	sim := NewVirtualCR95HF()

	// IDN frame split across three writes
	for _, b := range []byte{0x01, 0x00} {
		_, err := sim.Write([]byte{b})
		require.NoError(t, err)
	}

	out := readAll(t, sim)
	require.GreaterOrEqual(t, len(out), 2)
	assert.Equal(t, byte(statusSuccess), out[0])
	assert.Equal(t, int(out[1]), len(out)-2)
}

func TestSimulator_FieldOffHidesTag(t *testing.T) {
	t.Parallel()

	sim := NewVirtualCR95HF()
	sim.PlaceTag(NewVirtualTag4([4]byte{1, 2, 3, 4}, 0x08))

	// Field off: WUPA reaches nothing
	_, err := sim.Write([]byte{0x04, 0x02, 0x52, 0x07})
	require.NoError(t, err)
	assert.Equal(t, []byte{statusTimeout, 0x00}, readAll(t, sim))

	// Select ISO14443A, then the tag answers
	_, err = sim.Write([]byte{0x02, 0x02, 0x02, 0x00})
	require.NoError(t, err)
	readAll(t, sim)

	_, err = sim.Write([]byte{0x04, 0x02, 0x52, 0x07})
	require.NoError(t, err)
	out := readAll(t, sim)
	require.NotEmpty(t, out)
	assert.Equal(t, byte(statusData), out[0])
}

func TestSimulator_UnknownCommand(t *testing.T) {
	t.Parallel()

	sim := NewVirtualCR95HF()
	_, err := sim.Write([]byte{0x42, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{statusInvalidCmd, 0x00}, readAll(t, sim))
}

func TestVirtualTag_CascadeBlocks(t *testing.T) {
	t.Parallel()

	tag := NewVirtualTag7([7]byte{0x04, 0xA1, 0xB2, 0xC3, 0xD4, 0xE5, 0xF6}, 0x00)
	require.Equal(t, 2, tag.levels())

	cl1, err := tag.cascadeBlock(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x88, 0x04, 0xA1, 0xB2, 0x88 ^ 0x04 ^ 0xA1 ^ 0xB2}, cl1)
	assert.Equal(t, byte(sakCascadeBit), tag.sakForLevel(1))

	cl2, err := tag.cascadeBlock(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xC3, 0xD4, 0xE5, 0xF6, 0xC3 ^ 0xD4 ^ 0xE5 ^ 0xF6}, cl2)
	assert.Equal(t, byte(0x00), tag.sakForLevel(2))

	short := NewVirtualTag4([4]byte{1, 2, 3, 4}, 0x08)
	_, err = short.cascadeBlock(2)
	require.Error(t, err)
}
