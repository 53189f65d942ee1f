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

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfTest_AllStagesPassWithTag(t *testing.T) {
	t.Parallel()
	device, mock := newTestDevice(t)

	mock.QueueEchoReply(0x55)
	mock.QueueResponse(StatusSuccess, idnPayload)         // IDN
	mock.QueueResponse(StatusSuccess, nil)                // protocol select
	mock.QueueResponse(StatusData, rfPayload(0x04, 0x00)) // WUPA: tag answers

	result, err := device.SelfTest(context.Background())
	require.NoError(t, err)

	assert.True(t, result.EchoOK)
	require.NotNil(t, result.Identification)
	assert.Equal(t, "NFC FS2JAST4", result.Identification.DeviceName)
	assert.True(t, result.ProtocolOK)
	assert.Equal(t, FieldStrong, result.Field)
	assert.True(t, result.TagPresent)
	assert.Equal(t, [2]byte{0x04, 0x00}, result.ATQA)
	assert.True(t, result.OK())
}

func TestSelfTest_FieldOnWithoutTag(t *testing.T) {
	t.Parallel()
	device, mock := newTestDevice(t)

	mock.QueueEchoReply(0x55)
	mock.QueueResponse(StatusSuccess, idnPayload)
	mock.QueueResponse(StatusSuccess, nil)
	mock.QueueResponse(StatusTimeout, nil) // WUPA: no tag
	mock.QueueResponse(StatusTimeout, nil) // REQA: no tag
	mock.QueueResponse(StatusTimeout, nil) // bare REQA field probe

	result, err := device.SelfTest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, FieldOn, result.Field)
	assert.False(t, result.TagPresent)
	assert.True(t, result.OK())
}

func TestSelfTest_ReportsEveryFailure(t *testing.T) {
	t.Parallel()
	device, mock := newTestDevice(t)

	// Chip answers nothing at all
	_ = mock

	result, err := device.SelfTest(context.Background())
	require.NoError(t, err)

	assert.False(t, result.EchoOK)
	assert.Nil(t, result.Identification)
	assert.False(t, result.ProtocolOK)
	assert.Equal(t, FieldOff, result.Field)
	assert.False(t, result.OK())
	assert.Contains(t, result.String(), "FAIL")
}

func TestMeasureFieldLevel(t *testing.T) {
	t.Parallel()

	t.Run("tag present", func(t *testing.T) {
		t.Parallel()
		device, mock := newTestDevice(t)
		mock.QueueResponse(StatusSuccess, nil) // protocol select
		mock.QueueResponse(StatusData, rfPayload(0x04, 0x00))

		level, err := device.MeasureFieldLevel(context.Background())
		require.NoError(t, err)
		assert.Equal(t, FieldStrong, level)
	})

	t.Run("field on no tag", func(t *testing.T) {
		t.Parallel()
		device, mock := newTestDevice(t)
		mock.QueueResponse(StatusSuccess, nil)
		mock.QueueResponse(StatusTimeout, nil)
		mock.QueueResponse(StatusTimeout, nil)
		mock.QueueResponse(StatusTimeout, nil)

		level, err := device.MeasureFieldLevel(context.Background())
		require.NoError(t, err)
		assert.Equal(t, FieldOn, level)
	})

	t.Run("weak field", func(t *testing.T) {
		t.Parallel()
		device, mock := newTestDevice(t)
		mock.QueueResponse(StatusSuccess, nil)
		mock.QueueResponse(StatusTimeout, nil)
		mock.QueueResponse(StatusTimeout, nil)
		mock.QueueResponse(StatusFramingError, nil) // garbled field probe

		level, err := device.MeasureFieldLevel(context.Background())
		require.NoError(t, err)
		assert.Equal(t, FieldWeak, level)
	})

	t.Run("protocol select rejected", func(t *testing.T) {
		t.Parallel()
		device, mock := newTestDevice(t)
		mock.QueueResponse(StatusInvalidCommand, nil)

		level, err := device.MeasureFieldLevel(context.Background())
		require.NoError(t, err)
		assert.Equal(t, FieldOff, level)
	})
}

func TestAntennaOK(t *testing.T) {
	t.Parallel()
	device, mock := newTestDevice(t)

	mock.QueueResponse(StatusSuccess, nil)
	mock.QueueResponse(StatusData, rfPayload(0x04, 0x00))

	ok, err := device.AntennaOK(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFieldLevelString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "off", FieldOff.String())
	assert.Equal(t, "weak", FieldWeak.String())
	assert.Equal(t, "on", FieldOn.String())
	assert.Equal(t, "strong", FieldStrong.String())
}
