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

// Package uart detects CR95HF readers on serial ports. Importing it
// registers the detector with the detection package.
package uart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial/enumerator"

	"github.com/b4e-srl/go-cr95hf/detection"
	"github.com/b4e-srl/go-cr95hf/internal/frame"
	"github.com/b4e-srl/go-cr95hf/transport/uart"
)

// probeTimeout bounds one echo probe of a candidate port
const probeTimeout = 200 * time.Millisecond

// usbSerialBridges lists VIDs of the USB-serial bridge chips CR95HF
// evaluation boards ship with
var usbSerialBridges = map[string]string{
	"0403": "FTDI",
	"10C4": "Silicon Labs",
	"067B": "Prolific",
	"1A86": "WCH",
}

// detector implements the Detector interface for UART devices.
type detector struct{}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Detect searches for CR95HF devices on serial ports
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		select {
		case <-ctx.Done():
			return devices, nil
		default:
		}

		device, ok := d.examinePort(port, opts)
		if ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// examinePort filters and optionally probes one candidate port
func (d *detector) examinePort(port *enumerator.PortDetails, opts *detection.Options) (detection.DeviceInfo, bool) {
	if detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	vidpid := ""
	if port.IsUSB {
		vidpid = strings.ToUpper(port.VID + ":" + port.PID)
		if detection.IsBlocked(vidpid, opts.Blocklist) {
			return detection.DeviceInfo{}, false
		}
	}

	confidence, likely := classifyPort(port)
	if !likely {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  "uart",
		Path:       port.Name,
		Name:       bridgeName(port),
		Confidence: confidence,
		Metadata:   map[string]string{},
	}
	if vidpid != "" {
		device.Metadata["vidpid"] = vidpid
	}

	// Passive mode stops at descriptors; safe mode confirms with an echo
	if opts.Mode >= detection.Safe {
		if !probePort(port.Name) {
			return detection.DeviceInfo{}, false
		}
		device.Confidence = detection.High
	}

	return device, true
}

// classifyPort decides from descriptors alone whether a port could be a
// CR95HF reader
func classifyPort(port *enumerator.PortDetails) (detection.Confidence, bool) {
	if port.IsUSB {
		if _, ok := usbSerialBridges[strings.ToUpper(port.VID)]; ok {
			return detection.Medium, true
		}
		// Unknown USB serial device, still worth probing
		return detection.Low, true
	}

	// Non-USB ports: include common hardware UART paths only
	name := strings.ToLower(port.Name)
	if strings.Contains(name, "ttyama") || strings.Contains(name, "ttys") {
		return detection.Low, true
	}
	return detection.Low, false
}

// bridgeName returns a human-readable name for the port
func bridgeName(port *enumerator.PortDetails) string {
	if port.IsUSB {
		if vendor, ok := usbSerialBridges[strings.ToUpper(port.VID)]; ok {
			return vendor + " USB serial"
		}
		return "USB serial"
	}
	return "serial port"
}

// probePort opens the port and runs the echo handshake. A chip that
// answers 0x55 is a CR95HF (or something wearing its protocol).
func probePort(path string) bool {
	t, err := uart.New(path)
	if err != nil {
		return false
	}
	defer func() { _ = t.Close() }()

	if err := t.SendFrame(frame.Echo()); err != nil {
		return false
	}
	b, err := t.ReceiveByte(probeTimeout)
	return err == nil && b == frame.CmdEcho
}
