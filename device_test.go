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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// idnPayload is a canned IDN answer: device name, NUL, two ROM CRC bytes
var idnPayload = []byte{
	'N', 'F', 'C', ' ', 'F', 'S', '2', 'J', 'A', 'S', 'T', '4', 0x00,
	0x2A, 0xCE,
}

func TestDevice_Init(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.QueueEchoReply(0x55)
	mock.QueueResponse(StatusSuccess, idnPayload)
	mock.QueueResponse(StatusSuccess, nil) // protocol select

	device, err := New(mock)
	require.NoError(t, err)

	err = device.Init(context.Background())
	require.NoError(t, err)

	frames := mock.SentFrames()
	require.Len(t, frames, 3)
	assert.Equal(t, []byte{0x55}, frames[0])
	assert.Equal(t, []byte{0x01, 0x00}, frames[1])
	assert.Equal(t, []byte{0x02, 0x02, 0x02, 0x00}, frames[2])
	assert.Zero(t, mock.PendingResponses())
}

func TestDevice_InitEchoFailure(t *testing.T) {
	t.Parallel()

	// No echo reply queued: every attempt times out
	mock := NewMockTransport()

	device, err := New(mock)
	require.NoError(t, err)

	err = device.Init(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEchoFailed))
	assert.True(t, errors.Is(err, ErrTransportTimeout))
}

func TestDevice_EchoRetriesWrongByte(t *testing.T) {
	t.Parallel()

	// First answer is garbage, second is the real echo
	mock := NewMockTransport()
	mock.QueueEchoReply(0xAA)
	mock.QueueEchoReply(0x55)

	device, err := New(mock)
	require.NoError(t, err)
	require.NoError(t, device.Echo(context.Background()))
}

func TestDevice_Identification(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.QueueResponse(StatusSuccess, idnPayload)

	device, err := New(mock)
	require.NoError(t, err)

	ident, err := device.Identification(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NFC FS2JAST4", ident.DeviceName)
	assert.Equal(t, [2]byte{0x2A, 0xCE}, ident.ROMCRC)

	// Second call must come from the cache, not the wire
	again, err := device.Identification(context.Background())
	require.NoError(t, err)
	assert.Same(t, ident, again)
	require.Len(t, mock.SentFrames(), 1)
}

func TestDevice_SelectProtocolRejected(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	mock.QueueResponse(StatusInvalidCommand, nil)

	device, err := New(mock)
	require.NoError(t, err)

	err = device.SelectProtocol(context.Background(), ProtocolISO14443A)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StatusInvalidCommand, se.Code)
}

func TestDevice_InitCanceledContext(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	device, err := New(mock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = device.Init(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, mock.SentFrames())
}

func TestDevice_Options(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	device, err := New(mock, WithTimeout(250*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, device.config.Timeout)

	_, err = New(mock, WithTimeout(0))
	require.Error(t, err)
}

func TestDevice_Close(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	device, err := New(mock)
	require.NoError(t, err)

	require.NoError(t, device.Close())
	assert.False(t, mock.IsConnected())

	err = mock.SendFrame([]byte{0x55})
	assert.True(t, errors.Is(err, ErrTransportClosed))
}

func TestResponse_Predicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		code    byte
		success bool
		data    bool
		isErr   bool
	}{
		{"success", StatusSuccess, true, false, false},
		{"tag data", StatusData, false, true, false},
		{"timeout is an error", StatusTimeout, false, false, true},
		{"collision", StatusCollision, false, false, true},
		{"framing", StatusFramingError, false, false, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &Response{Code: tt.code}
			assert.Equal(t, tt.success, r.IsSuccess())
			assert.Equal(t, tt.data, r.IsData())
			assert.Equal(t, tt.isErr, r.IsError())
		})
	}
}
