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
	"time"

	"github.com/b4e-srl/go-cr95hf/internal/syncutil"
)

// TransportType identifies the physical interface to the CR95HF
type TransportType string

const (
	// TransportUART is the UART transport type (57600 baud, 2 stop bits)
	TransportUART TransportType = "uart"
	// TransportSPI is the SPI transport type
	TransportSPI TransportType = "spi"
	// TransportMock is the mock transport type for testing
	TransportMock TransportType = "mock"
)

// Transport defines the interface for communicating with a CR95HF.
// Implementations move raw command frames out and decode the chip's
// [status, length, payload] answers coming back; they never interpret
// the status code.
type Transport interface {
	// SendFrame writes a complete command frame to the chip. Stale bytes
	// left in the receive path from earlier exchanges are discarded first,
	// so the next ReceiveResponse pairs with this command.
	SendFrame(data []byte) error

	// ReceiveResponse reads one [status, length, payload] response. The
	// timeout is a single cumulative budget covering all of it: waiting for
	// the status byte, the length byte, and every payload byte. If the
	// budget runs out at any stage the whole call fails with
	// ErrTransportTimeout and nothing partial is returned.
	ReceiveResponse(timeout time.Duration) (*Response, error)

	// ReceiveByte reads a single raw byte. The echo handshake answers with
	// a bare 0x55 outside the response grammar, so it cannot go through
	// ReceiveResponse.
	ReceiveByte(timeout time.Duration) (byte, error)

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// MockTransport is a mock implementation of Transport for testing.
// Responses are scripted as a FIFO queue: each SendFrame consumes nothing,
// each ReceiveResponse pops the next queued response. That matches how the
// discovery sequence reuses the same command code for every RF exchange.
type MockTransport struct {
	sendError    error
	receiveError error
	responses    []*Response
	echoReplies  []byte
	sentFrames   [][]byte
	sendDelay    time.Duration
	receiveDelay time.Duration
	mu           syncutil.Mutex
	connected    bool
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		connected: true,
	}
}

// QueueResponse appends a scripted response to the FIFO queue
func (m *MockTransport) QueueResponse(code byte, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := make([]byte, len(payload))
	copy(p, payload)
	m.responses = append(m.responses, &Response{Code: code, Payload: p})
}

// QueueEchoReply appends a scripted raw byte for ReceiveByte
func (m *MockTransport) QueueEchoReply(b byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.echoReplies = append(m.echoReplies, b)
}

// SetSendError makes every subsequent SendFrame fail with err
func (m *MockTransport) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendError = err
}

// SetReceiveError makes every subsequent receive fail with err
func (m *MockTransport) SetReceiveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiveError = err
}

// SetSendDelay adds an artificial delay to SendFrame
func (m *MockTransport) SetSendDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendDelay = d
}

// SetReceiveDelay adds an artificial delay before each receive completes
func (m *MockTransport) SetReceiveDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiveDelay = d
}

// SentFrames returns copies of every frame sent so far, in order
func (m *MockTransport) SentFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	frames := make([][]byte, len(m.sentFrames))
	for i, f := range m.sentFrames {
		frames[i] = make([]byte, len(f))
		copy(frames[i], f)
	}
	return frames
}

// PendingResponses returns how many scripted responses remain unconsumed
func (m *MockTransport) PendingResponses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.responses)
}

// SendFrame implements Transport
func (m *MockTransport) SendFrame(data []byte) error {
	m.mu.Lock()
	delay := m.sendDelay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrTransportClosed
	}
	if m.sendError != nil {
		return m.sendError
	}

	frame := make([]byte, len(data))
	copy(frame, data)
	m.sentFrames = append(m.sentFrames, frame)
	return nil
}

// ReceiveResponse implements Transport
func (m *MockTransport) ReceiveResponse(timeout time.Duration) (*Response, error) {
	m.mu.Lock()
	delay := m.receiveDelay
	m.mu.Unlock()

	if delay > 0 {
		if delay > timeout {
			time.Sleep(timeout)
			return nil, NewTimeoutError("receive response", "mock")
		}
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, ErrTransportClosed
	}
	if m.receiveError != nil {
		return nil, m.receiveError
	}
	if len(m.responses) == 0 {
		return nil, NewTimeoutError("receive response", "mock")
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// ReceiveByte implements Transport
func (m *MockTransport) ReceiveByte(timeout time.Duration) (byte, error) {
	m.mu.Lock()
	delay := m.receiveDelay
	m.mu.Unlock()

	if delay > 0 {
		if delay > timeout {
			time.Sleep(timeout)
			return 0, NewTimeoutError("receive byte", "mock")
		}
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, ErrTransportClosed
	}
	if m.receiveError != nil {
		return 0, m.receiveError
	}
	if len(m.echoReplies) == 0 {
		return 0, NewTimeoutError("receive byte", "mock")
	}

	b := m.echoReplies[0]
	m.echoReplies = m.echoReplies[1:]
	return b, nil
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// IsConnected implements Transport
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Type implements Transport
func (m *MockTransport) Type() TransportType {
	return TransportMock
}
