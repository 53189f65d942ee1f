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

// Package cr95hf is a driver for the STMicroelectronics CR95HF 13.56 MHz
// multi-protocol contactless transceiver. It speaks the chip's serial
// command protocol and runs the ISO14443-A anticollision and selection
// sequence to read 4- and 7-byte tag UIDs together with the SAK type byte.
//
// Basic usage with a UART-attached chip:
//
//	transport, err := uart.New("/dev/ttyUSB0")
//	if err != nil {
//		log.Fatal(err)
//	}
//	device, err := cr95hf.New(transport)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer device.Close()
//
//	if err := device.Init(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//
//	tag, err := device.DetectTag(context.Background())
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("UID=%s type=%s\n", tag.UID, tag.Type)
//
// Each DetectTag call is one complete discovery attempt with no internal
// retries; callers poll on their own cadence, or use WaitForTag which wraps
// the loop. A failed attempt means "no tag currently readable" and leaves
// the device ready for the next attempt.
package cr95hf
