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

//nolint:paralleltest // Wire tests share timing assumptions
package uart

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/b4e-srl/go-cr95hf"
	virt "github.com/b4e-srl/go-cr95hf/internal/testing"
)

// errPortClosed is returned when operations are attempted on a closed port
var errPortClosed = errors.New("port is closed")

// MockSerialPort wraps VirtualCR95HF to implement the serial.Port interface
type MockSerialPort struct {
	sim         *virt.VirtualCR95HF
	readTimeout time.Duration
	closed      bool
}

// NewMockSerialPort creates a mock serial port backed by the wire simulator
func NewMockSerialPort(sim *virt.VirtualCR95HF) *MockSerialPort {
	return &MockSerialPort{
		sim:         sim,
		readTimeout: 10 * time.Millisecond,
	}
}

func (*MockSerialPort) SetMode(_ *serial.Mode) error {
	return nil
}

func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	if m.closed {
		return 0, errPortClosed
	}
	n, err = m.sim.Read(p)
	if err != nil {
		return n, fmt.Errorf("mock read: %w", err)
	}
	if n == 0 {
		// A real port blocks up to the read timeout before returning empty
		time.Sleep(m.readTimeout)
	}
	return n, nil
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	if m.closed {
		return 0, errPortClosed
	}
	n, err = m.sim.Write(p)
	if err != nil {
		return n, fmt.Errorf("mock write: %w", err)
	}
	return n, nil
}

func (*MockSerialPort) Drain() error {
	return nil
}

func (m *MockSerialPort) ResetInputBuffer() error {
	// Discard everything the simulator has queued, like a real port
	buf := make([]byte, 64)
	for {
		n, err := m.sim.Read(buf)
		if err != nil || n == 0 {
			return nil
		}
	}
}

func (*MockSerialPort) ResetOutputBuffer() error {
	return nil
}

func (*MockSerialPort) SetDTR(_ bool) error {
	return nil
}

func (*MockSerialPort) SetRTS(_ bool) error {
	return nil
}

func (*MockSerialPort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

func (m *MockSerialPort) SetReadTimeout(t time.Duration) error {
	m.readTimeout = t
	return nil
}

func (m *MockSerialPort) Close() error {
	m.closed = true
	return nil
}

func (*MockSerialPort) Break(_ time.Duration) error {
	return nil
}

// Verify interface implementation
var _ serial.Port = (*MockSerialPort)(nil)

func newSimTransport(t *testing.T) (*Transport, *virt.VirtualCR95HF) {
	t.Helper()
	sim := virt.NewVirtualCR95HF()
	transport, err := newWithPort(NewMockSerialPort(sim), "sim")
	require.NoError(t, err)
	return transport, sim
}

func TestTransport_EchoRoundTrip(t *testing.T) {
	transport, _ := newSimTransport(t)

	require.NoError(t, transport.SendFrame([]byte{0x55}))
	b, err := transport.ReceiveByte(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, byte(0x55), b)
}

func TestTransport_ResponseRoundTrip(t *testing.T) {
	transport, _ := newSimTransport(t)

	// IDN through the real framing path
	require.NoError(t, transport.SendFrame([]byte{0x01, 0x00}))
	resp, err := transport.ReceiveResponse(100 * time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, byte(0x00), resp.Code)
	require.GreaterOrEqual(t, len(resp.Payload), 3)
	assert.Equal(t, "NFC FS2JAST4", string(resp.Payload[:12]))
}

func TestTransport_CumulativeTimeout(t *testing.T) {
	transport, sim := newSimTransport(t)
	sim.SetMute(true)

	require.NoError(t, transport.SendFrame([]byte{0x01, 0x00}))

	start := time.Now()
	_, err := transport.ReceiveResponse(50 * time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, cr95hf.ErrTransportTimeout))
	// One budget for the whole response, not one per stage
	assert.Less(t, elapsed, 150*time.Millisecond)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)

	// The failure carries the wire trace for debugging
	assert.True(t, cr95hf.HasTrace(err))
}

func TestTransport_StaleInputDiscardedOnSend(t *testing.T) {
	transport, sim := newSimTransport(t)

	// Leave an unread IDN response in the receive path
	require.NoError(t, transport.SendFrame([]byte{0x01, 0x00}))
	require.True(t, sim.HasPendingResponse())

	// The next send flushes it; the echo answer is the next byte read
	require.NoError(t, transport.SendFrame([]byte{0x55}))
	b, err := transport.ReceiveByte(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, byte(0x55), b)
}

func TestTransport_ClosedPort(t *testing.T) {
	transport, _ := newSimTransport(t)
	require.NoError(t, transport.Close())

	assert.False(t, transport.IsConnected())
	assert.True(t, errors.Is(transport.SendFrame([]byte{0x55}), cr95hf.ErrTransportClosed))
	_, err := transport.ReceiveResponse(10 * time.Millisecond)
	assert.True(t, errors.Is(err, cr95hf.ErrTransportClosed))

	// Double close is fine
	require.NoError(t, transport.Close())
}

func TestDevice_FullDiscoveryOverWire(t *testing.T) {
	transport, sim := newSimTransport(t)
	sim.PlaceTag(virt.NewVirtualTag4([4]byte{0xDE, 0xAD, 0xBE, 0xEF}, 0x08))

	device, err := cr95hf.New(transport)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, device.Init(ctx))

	tag, err := device.DetectTag(ctx)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", tag.UID)
	assert.Equal(t, cr95hf.CardTypeClassic1K, tag.Type)
}

func TestDevice_SevenByteDiscoveryOverWire(t *testing.T) {
	transport, sim := newSimTransport(t)
	sim.PlaceTag(virt.NewVirtualTag7([7]byte{0x04, 0xA1, 0xB2, 0xC3, 0xD4, 0xE5, 0xF6}, 0x00))

	device, err := cr95hf.New(transport)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, device.Init(ctx))

	tag, err := device.DetectTag(ctx)
	require.NoError(t, err)
	assert.Equal(t, "04a1b2c3d4e5f6", tag.UID)
	assert.Equal(t, cr95hf.CardTypeUltralight, tag.Type)
	assert.Equal(t, "NXP", tag.Manufacturer())
}

func TestDevice_RediscoverAfterSelection(t *testing.T) {
	transport, sim := newSimTransport(t)
	sim.PlaceTag(virt.NewVirtualTag4([4]byte{0x01, 0x02, 0x03, 0x04}, 0x08))

	device, err := cr95hf.New(transport)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, device.Init(ctx))

	// The simulated tag halts after selection and ignores REQA; the
	// WUPA-first wake still finds it on every later attempt.
	for i := 0; i < 3; i++ {
		tag, detErr := device.DetectTag(ctx)
		require.NoError(t, detErr)
		assert.Equal(t, "01020304", tag.UID)
	}
}

func TestDevice_WakeFallbackOverWire(t *testing.T) {
	transport, sim := newSimTransport(t)
	tag := virt.NewVirtualTag4([4]byte{0x01, 0x02, 0x03, 0x04}, 0x08)
	tag.IgnoreWUPA = true
	sim.PlaceTag(tag)

	device, err := cr95hf.New(transport)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, device.Init(ctx))

	got, err := device.DetectTag(ctx)
	require.NoError(t, err)
	assert.Equal(t, "01020304", got.UID)
}

func TestDevice_CorruptedCascadeOverWire(t *testing.T) {
	transport, sim := newSimTransport(t)
	sim.PlaceTag(virt.NewVirtualTag4([4]byte{0x01, 0x02, 0x03, 0x04}, 0x08))

	device, err := cr95hf.New(transport)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, device.Init(ctx))

	sim.InjectBCCError()
	_, err = device.DetectTag(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cr95hf.ErrChecksumMismatch))

	// The corruption was transient; the next attempt succeeds
	got, err := device.DetectTag(ctx)
	require.NoError(t, err)
	assert.Equal(t, "01020304", got.UID)
}

func TestDevice_EmptyFieldOverWire(t *testing.T) {
	transport, _ := newSimTransport(t)

	device, err := cr95hf.New(transport)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, device.Init(ctx))

	_, err = device.DetectTag(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cr95hf.ErrNoTagPresent))
}
