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

// cr95hf-reader polls a CR95HF reader and prints every tag it sees.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cr95hf "github.com/b4e-srl/go-cr95hf"
	"github.com/b4e-srl/go-cr95hf/detection"
	_ "github.com/b4e-srl/go-cr95hf/detection/uart"
	"github.com/b4e-srl/go-cr95hf/transport/spi"
	"github.com/b4e-srl/go-cr95hf/transport/uart"
)

type config struct {
	devicePath string
	interval   time.Duration
	debug      bool
	once       bool
	selfTest   bool
}

func parseConfig() *config {
	cfg := &config{}
	flag.StringVar(&cfg.devicePath, "device", "", "Device path (auto-detect if empty)")
	flag.DurationVar(&cfg.interval, "interval", cr95hf.DefaultPollInterval, "Polling interval")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug output")
	flag.BoolVar(&cfg.once, "once", false, "Exit after the first tag")
	flag.BoolVar(&cfg.selfTest, "selftest", false, "Run the self test and exit")
	flag.Parse()

	if cfg.debug {
		cr95hf.SetDebugEnabled(true)
	}
	return cfg
}

// newTransportFromDevice creates a transport from a detected device
func newTransportFromDevice(device detection.DeviceInfo) (cr95hf.Transport, error) {
	switch strings.ToLower(device.Transport) {
	case "uart":
		transport, err := uart.New(device.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return transport, nil
	case "spi":
		transport, err := spi.New(device.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SPI transport: %w", err)
		}
		return transport, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", device.Transport)
	}
}

// newTransport creates a transport from an explicit device path
func newTransport(path string) (cr95hf.Transport, error) {
	if path == "" {
		return nil, errors.New("empty device path")
	}

	if strings.Contains(strings.ToLower(path), "spi") {
		transport, err := spi.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SPI transport for %s: %w", path, err)
		}
		return transport, nil
	}

	transport, err := uart.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create UART transport for %s: %w", path, err)
	}
	return transport, nil
}

func connectToDevice(ctx context.Context, cfg *config) (*cr95hf.Device, error) {
	connectOpts := []cr95hf.ConnectOption{
		cr95hf.WithConnectTimeout(5 * time.Second),
	}

	if cfg.devicePath == "" {
		connectOpts = append(connectOpts,
			cr95hf.WithAutoDetection(),
			cr95hf.WithTransportFromDeviceFactory(newTransportFromDevice))
		if cfg.debug {
			_, _ = fmt.Println("Auto-detecting CR95HF devices...")
		}
	} else {
		connectOpts = append(connectOpts, cr95hf.WithTransportFactory(newTransport))
		if cfg.debug {
			_, _ = fmt.Printf("Opening device: %s\n", cfg.devicePath)
		}
	}

	device, err := cr95hf.ConnectDevice(ctx, cfg.devicePath, connectOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CR95HF device: %w", err)
	}

	if cfg.debug {
		if ident, identErr := device.Identification(ctx); identErr == nil {
			_, _ = fmt.Printf("CR95HF: %s\n", ident)
		}
	}

	return device, nil
}

func runSelfTest(ctx context.Context, device *cr95hf.Device) error {
	result, err := device.SelfTest(ctx)
	if err != nil {
		return fmt.Errorf("self test failed to run: %w", err)
	}
	_, _ = fmt.Printf("Self test: %s\n", result)
	if !result.OK() {
		return errors.New("self test reported failures")
	}
	return nil
}

func runReadLoop(ctx context.Context, device *cr95hf.Device, cfg *config) error {
	_, _ = fmt.Println("Monitoring for tags. Press Ctrl+C to stop...")

	errDone := errors.New("done")
	err := device.Poll(ctx, cfg.interval, func(tag *cr95hf.DetectedTag) error {
		_, _ = fmt.Printf("Tag detected: UID=%s Type=%s SAK=0x%02X ATQA=%02X%02X",
			tag.UID, tag.Type, tag.SAK, tag.ATQA[0], tag.ATQA[1])
		if m := tag.Manufacturer(); m != "unknown" {
			_, _ = fmt.Printf(" Manufacturer=%s", m)
		}
		_, _ = fmt.Println()
		if cfg.once {
			return errDone
		}
		return nil
	})

	if err == nil || errors.Is(err, errDone) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func run() error {
	cfg := parseConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	device, err := connectToDevice(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := device.Close(); closeErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close device: %v\n", closeErr)
		}
	}()

	if cfg.selfTest {
		return runSelfTest(ctx, device)
	}
	return runReadLoop(ctx, device, cfg)
}

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
