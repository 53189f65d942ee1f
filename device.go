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
	"fmt"
	"strings"
	"time"

	"github.com/b4e-srl/go-cr95hf/internal/frame"
)

// Per-exchange response timeouts. The RF exchanges are short because the
// chip answers (or reports 0x87) within the ISO14443 frame wait time; the
// control commands get more headroom.
const (
	echoTimeout     = 50 * time.Millisecond
	idnTimeout      = 100 * time.Millisecond
	protocolTimeout = 50 * time.Millisecond
	wakeTimeout     = 20 * time.Millisecond
	anticollTimeout = 50 * time.Millisecond
	selectTimeout   = 50 * time.Millisecond
)

// echoAttempts is how many echo rounds Init tries before giving up. The
// first byte after power-up is sometimes swallowed while the chip decides
// between its UART and SPI interfaces.
const echoAttempts = 3

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// RetryConfig configures retry behavior for Init and connection setup
	RetryConfig *RetryConfig
	// Timeout is the default timeout for chip responses
	Timeout time.Duration
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		RetryConfig: DefaultRetryConfig(),
		Timeout:     100 * time.Millisecond,
	}
}

// Identification is the chip's answer to the IDN command: a device name
// string and the CRC of its ROM code.
type Identification struct {
	DeviceName string
	ROMCRC     [2]byte
}

func (i Identification) String() string {
	return fmt.Sprintf("%s (ROM CRC %02X%02X)", i.DeviceName, i.ROMCRC[0], i.ROMCRC[1])
}

// Device represents a CR95HF transceiver attached through a Transport.
//
// Thread Safety: Device is NOT thread-safe. All methods must be called from
// a single goroutine or protected with external synchronization. For
// concurrent access, wrap the Device with a mutex or use separate Device
// instances with separate transports.
type Device struct {
	transport Transport
	config    *DeviceConfig
	ident     *Identification
	protocol  byte
}

// Option configures a Device during New
type Option func(*Device) error

// WithTimeout sets the default response timeout
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", timeout)
		}
		d.config.Timeout = timeout
		return nil
	}
}

// WithRetryConfig sets the retry configuration used by Init
func WithRetryConfig(config *RetryConfig) Option {
	return func(d *Device) error {
		d.config.RetryConfig = config
		return nil
	}
}

// New creates a new CR95HF device with the given transport
func New(transport Transport, opts ...Option) (*Device, error) {
	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
		protocol:  ProtocolFieldOff,
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// SetTimeout sets the default timeout for chip responses
func (d *Device) SetTimeout(timeout time.Duration) {
	d.config.Timeout = timeout
}

// Close closes the device connection
func (d *Device) Close() error {
	if d.transport != nil {
		if err := d.transport.Close(); err != nil {
			return fmt.Errorf("failed to close transport: %w", err)
		}
	}
	return nil
}

// Init brings the chip to a known state: it verifies the serial link with
// the echo handshake, reads the chip identification, and selects the
// ISO14443-A protocol so discovery can run.
func (d *Device) Init(ctx context.Context) error {
	if err := d.Echo(ctx); err != nil {
		return err
	}

	ident, err := d.Identification(ctx)
	if err != nil {
		return err
	}
	Debugf("connected to %s", ident)

	if err := d.SelectProtocol(ctx, ProtocolISO14443A); err != nil {
		return err
	}

	return nil
}

// Echo verifies the serial link. The chip answers a bare 0x55 byte with the
// same byte, outside the normal response format.
func (d *Device) Echo(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < echoAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("echo canceled: %w", err)
		}

		if err := d.transport.SendFrame(frame.Echo()); err != nil {
			lastErr = err
			continue
		}

		b, err := d.transport.ReceiveByte(echoTimeout)
		if err != nil {
			lastErr = err
			continue
		}
		if b == frame.CmdEcho {
			return nil
		}
		lastErr = fmt.Errorf("%w: got 0x%02X", ErrEchoFailed, b)
	}
	return fmt.Errorf("%w: %w", ErrEchoFailed, lastErr)
}

// Identification reads the chip's device name and ROM CRC via the IDN
// command. The result is cached; the chip's identity does not change.
func (d *Device) Identification(ctx context.Context) (*Identification, error) {
	if d.ident != nil {
		return d.ident, nil
	}

	resp, err := d.exchange(ctx, frame.IDN(), idnTimeout)
	if err != nil {
		return nil, fmt.Errorf("identification failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{Op: "identification", Code: resp.Code}
	}
	// Payload is a NUL-terminated device name followed by two ROM CRC bytes.
	if len(resp.Payload) < 3 {
		return nil, fmt.Errorf("identification payload too short: %w", ErrShortResponse)
	}

	ident := &Identification{
		DeviceName: strings.TrimRight(string(resp.Payload[:len(resp.Payload)-2]), "\x00"),
	}
	copy(ident.ROMCRC[:], resp.Payload[len(resp.Payload)-2:])

	d.ident = ident
	return ident, nil
}

// SelectProtocol configures the chip's RF front end for the given protocol
// (one of the Protocol* constants). ProtocolFieldOff switches the field off.
func (d *Device) SelectProtocol(ctx context.Context, protocol byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("protocol select canceled: %w", err)
	}

	resp, err := d.exchange(ctx, frame.ProtocolSelect(protocol, 0x00), protocolTimeout)
	if err != nil {
		return fmt.Errorf("protocol select failed: %w", err)
	}
	if !resp.IsSuccess() {
		return &StatusError{Op: "protocol select", Code: resp.Code}
	}

	d.protocol = protocol
	return nil
}

// FieldOff switches the RF field off. Tags in the field lose power and
// reset, so the next wake command sees them fresh.
func (d *Device) FieldOff(ctx context.Context) error {
	return d.SelectProtocol(ctx, ProtocolFieldOff)
}

// exchange sends one command frame and reads the matching response. The
// timeout covers the whole response, not each byte.
func (d *Device) exchange(ctx context.Context, f frame.Frame, timeout time.Duration) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("exchange canceled: %w", err)
	}

	data := f.Bytes()
	Debugf("TX % X", data)
	if err := d.transport.SendFrame(data); err != nil {
		return nil, err
	}

	resp, err := d.transport.ReceiveResponse(timeout)
	if err != nil {
		return nil, err
	}
	Debugf("RX %s", resp)
	return resp, nil
}
