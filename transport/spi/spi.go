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

// Package spi provides the SPI transport for the CR95HF. Every transaction
// starts with a control byte: 0x00 to send a command, 0x02 to read the
// response, 0x03 to poll the ready flag, 0x01 to reset the chip.
package spi

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/b4e-srl/go-cr95hf"
	"github.com/b4e-srl/go-cr95hf/internal/frame"
	"github.com/b4e-srl/go-cr95hf/internal/syncutil"
)

const (
	ctrlSend  = 0x00
	ctrlReset = 0x01
	ctrlRead  = 0x02
	ctrlPoll  = 0x03

	// Bit 3 of the poll answer: chip has response data ready to read.
	flagDataReady = 0x08

	// The chip tops out at 2 MHz SCK.
	defaultFreq = 1 * physic.MegaHertz
	mode        = spi.Mode0

	pollInterval    = 1 * time.Millisecond
	traceBufferSize = 16
)

// Transport implements the cr95hf.Transport interface for SPI communication
type Transport struct {
	port     spi.PortCloser
	conn     spi.Conn
	trace    *cr95hf.TraceBuffer
	portName string
	mu       syncutil.Mutex
}

// New opens the named SPI port and returns an SPI transport.
func New(portName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", portName, err)
	}

	conn, err := port.Connect(defaultFreq, mode, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	return &Transport{
		port:     port,
		conn:     conn,
		portName: portName,
		trace:    cr95hf.NewTraceBuffer("spi", portName, traceBufferSize),
	}, nil
}

// Reset pulses the chip's SPI reset command. The chip needs about 10ms
// before it accepts the next command.
func (t *Transport) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return cr95hf.ErrTransportClosed
	}
	if err := t.conn.Tx([]byte{ctrlReset}, nil); err != nil {
		return cr95hf.NewTransportError("reset", t.portName, err, cr95hf.ErrorTypeTransient)
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// SendFrame implements cr95hf.Transport. On SPI there is no input stream to
// drain; any unread response is simply abandoned because the next read
// transaction starts from the chip's fresh output buffer.
func (t *Transport) SendFrame(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return cr95hf.ErrTransportClosed
	}

	tx := make([]byte, 0, len(data)+1)
	tx = append(tx, ctrlSend)
	tx = append(tx, data...)

	if err := t.conn.Tx(tx, nil); err != nil {
		t.trace.RecordTX(data, "write failed")
		return t.trace.WrapError(cr95hf.NewTransportWriteError("send frame", t.portName))
	}
	t.trace.RecordTX(data, "")
	return nil
}

// ReceiveResponse implements cr95hf.Transport. The timeout covers both the
// wait for the ready flag and the read transaction.
func (t *Transport) ReceiveResponse(timeout time.Duration) (*cr95hf.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil, cr95hf.ErrTransportClosed
	}

	deadline := time.Now().Add(timeout)
	if err := t.waitReady(deadline); err != nil {
		return nil, err
	}

	// One read transaction clocks out the whole response buffer; the
	// length byte then bounds the payload. Reading past what the chip
	// wrote just yields filler bytes.
	tx := make([]byte, 1+frame.MaxFrameSize)
	tx[0] = ctrlRead
	rx := make([]byte, len(tx))
	if err := t.conn.Tx(tx, rx); err != nil {
		return nil, t.trace.WrapError(cr95hf.NewTransportReadError("receive response", t.portName))
	}

	code := rx[1]
	length := int(rx[2])
	if length > frame.MaxPayloadSize {
		t.trace.RecordRX(rx[1:3], "length out of range")
		return nil, t.trace.WrapError(cr95hf.NewInvalidResponseError("receive response", t.portName))
	}

	payload := make([]byte, length)
	copy(payload, rx[3:3+length])
	t.trace.RecordRX(rx[1:3+length], "")

	return &cr95hf.Response{Code: code, Payload: payload}, nil
}

// ReceiveByte implements cr95hf.Transport
func (t *Transport) ReceiveByte(timeout time.Duration) (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return 0, cr95hf.ErrTransportClosed
	}

	if err := t.waitReady(time.Now().Add(timeout)); err != nil {
		return 0, err
	}

	rx := make([]byte, 2)
	if err := t.conn.Tx([]byte{ctrlRead, 0x00}, rx); err != nil {
		return 0, t.trace.WrapError(cr95hf.NewTransportReadError("receive byte", t.portName))
	}
	t.trace.RecordRX(rx[1:], "")
	return rx[1], nil
}

// waitReady polls the chip's ready flag until data is available or the
// deadline passes.
func (t *Transport) waitReady(deadline time.Time) error {
	rx := make([]byte, 2)
	for {
		if err := t.conn.Tx([]byte{ctrlPoll, 0x00}, rx); err != nil {
			return t.trace.WrapError(cr95hf.NewTransportReadError("poll ready", t.portName))
		}
		if rx[1]&flagDataReady != 0 {
			return nil
		}
		if !time.Now().Before(deadline) {
			t.trace.RecordTimeout("ready flag never set")
			return t.trace.WrapError(cr95hf.NewTimeoutError("poll ready", t.portName))
		}
		time.Sleep(pollInterval)
	}
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
	t.conn = nil
	if err := port.Close(); err != nil {
		return fmt.Errorf("SPI close failed: %w", err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Type returns the transport type
func (*Transport) Type() cr95hf.TransportType {
	return cr95hf.TransportSPI
}

// Verify interface implementation
var _ cr95hf.Transport = (*Transport)(nil)
