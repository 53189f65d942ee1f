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

// Package uart provides the UART transport for the CR95HF. The chip's
// serial interface runs at 57600 baud with 8 data bits, no parity, and
// two stop bits; one stop bit works on the bench until it doesn't, so the
// mode here is not configurable.
package uart

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/b4e-srl/go-cr95hf"
	"github.com/b4e-srl/go-cr95hf/internal/frame"
	"github.com/b4e-srl/go-cr95hf/internal/syncutil"
)

const (
	baudRate = 57600

	// portReadTimeout is the granularity of the blocking reads inside
	// ReceiveResponse; the real deadline is enforced per call.
	portReadTimeout = 10 * time.Millisecond

	traceBufferSize = 16
)

// Transport implements the cr95hf.Transport interface for UART communication
type Transport struct {
	port     serial.Port
	trace    *cr95hf.TraceBuffer
	portName string
	mu       syncutil.Mutex
}

// New opens the named serial port and returns a UART transport.
func New(portName string) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.TwoStopBits,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}

	t, err := newWithPort(port, portName)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// newWithPort wraps an already-open port. Tests inject simulator-backed
// ports through this.
func newWithPort(port serial.Port, portName string) (*Transport, error) {
	if err := port.SetReadTimeout(portReadTimeout); err != nil {
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}
	return &Transport{
		port:     port,
		portName: portName,
		trace:    cr95hf.NewTraceBuffer("uart", portName, traceBufferSize),
	}, nil
}

// SendFrame implements cr95hf.Transport. Any unread bytes from earlier
// exchanges are discarded before the write so the next response pairs with
// this command.
func (t *Transport) SendFrame(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return cr95hf.ErrTransportClosed
	}

	if err := t.port.ResetInputBuffer(); err != nil {
		return t.trace.WrapError(cr95hf.NewTransportError(
			"reset input buffer", t.portName, err, cr95hf.ErrorTypeTransient))
	}

	if _, err := t.port.Write(data); err != nil {
		t.trace.RecordTX(data, "write failed")
		return t.trace.WrapError(cr95hf.NewTransportWriteError("send frame", t.portName))
	}
	t.trace.RecordTX(data, "")

	return t.drainWithRetry("send frame")
}

// ReceiveResponse implements cr95hf.Transport. The timeout is one budget
// for the whole [status, length, payload] response: however far the read
// gets, the clock never restarts.
func (t *Transport) ReceiveResponse(timeout time.Duration) (*cr95hf.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, cr95hf.ErrTransportClosed
	}

	deadline := time.Now().Add(timeout)

	header := make([]byte, frame.HeaderSize)
	if err := t.readFull(header, deadline, "response header"); err != nil {
		return nil, err
	}
	code := header[0]
	length := int(header[1])

	payload := make([]byte, length)
	if err := t.readFull(payload, deadline, "response payload"); err != nil {
		return nil, err
	}

	t.trace.RecordRX(append(header, payload...), "")
	return &cr95hf.Response{Code: code, Payload: payload}, nil
}

// ReceiveByte implements cr95hf.Transport
func (t *Transport) ReceiveByte(timeout time.Duration) (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return 0, cr95hf.ErrTransportClosed
	}

	buf := make([]byte, 1)
	if err := t.readFull(buf, time.Now().Add(timeout), "single byte"); err != nil {
		return 0, err
	}
	t.trace.RecordRX(buf, "")
	return buf[0], nil
}

// readFull reads len(buf) bytes, looping over the port's short read timeout
// until the deadline. A deadline hit fails the whole read; partial data is
// never returned.
func (t *Transport) readFull(buf []byte, deadline time.Time, what string) error {
	off := 0
	for off < len(buf) {
		if !time.Now().Before(deadline) {
			t.trace.RecordTimeout(fmt.Sprintf("%s: %d/%d bytes", what, off, len(buf)))
			return t.trace.WrapError(cr95hf.NewTimeoutError("receive "+what, t.portName))
		}

		n, err := t.port.Read(buf[off:])
		if err != nil {
			if isInterruptedSystemCall(err) {
				continue
			}
			t.trace.RecordRX(buf[:off], what+" read failed")
			return t.trace.WrapError(cr95hf.NewTransportError(
				"receive "+what, t.portName, err, cr95hf.ErrorTypeTransient))
		}
		off += n
	}
	return nil
}

// drainWithRetry flushes the output buffer with retry logic for
// interrupted system calls
func (t *Transport) drainWithRetry(operation string) error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := t.port.Drain()
		if err == nil {
			return nil
		}

		if isInterruptedSystemCall(err) && attempt < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<attempt))
			continue
		}

		return fmt.Errorf("UART %s drain failed: %w", operation, err)
	}

	return fmt.Errorf("UART %s drain failed after %d retries", operation, maxRetries)
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// Close closes the transport connection
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	port := t.port
	t.port = nil
	if err := port.Close(); err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Type returns the transport type
func (*Transport) Type() cr95hf.TransportType {
	return cr95hf.TransportUART
}

// Verify interface implementation
var _ cr95hf.Transport = (*Transport)(nil)
