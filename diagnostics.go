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
	"fmt"

	"github.com/b4e-srl/go-cr95hf/internal/frame"
)

// FieldLevel is a coarse measure of RF field health
type FieldLevel int

const (
	// FieldOff means the chip gave no RF response at all
	FieldOff FieldLevel = 0
	// FieldWeak means the chip answered with an unexpected status
	FieldWeak FieldLevel = 25
	// FieldOn means the field is up but no tag answered
	FieldOn FieldLevel = 50
	// FieldStrong means a tag answered the wake command
	FieldStrong FieldLevel = 100
)

func (l FieldLevel) String() string {
	switch l {
	case FieldOff:
		return "off"
	case FieldWeak:
		return "weak"
	case FieldOn:
		return "on"
	case FieldStrong:
		return "strong"
	default:
		return fmt.Sprintf("FieldLevel(%d)", int(l))
	}
}

// SelfTestResult holds the outcome of each stage of SelfTest
type SelfTestResult struct {
	Identification *Identification
	Field          FieldLevel
	ATQA           [2]byte
	EchoOK         bool
	ProtocolOK     bool
	TagPresent     bool
}

// OK reports whether every stage passed. A missing tag is not a failure;
// an unresponsive RF field is.
func (r *SelfTestResult) OK() bool {
	return r.EchoOK && r.Identification != nil && r.ProtocolOK && r.Field > FieldOff
}

func (r *SelfTestResult) String() string {
	status := func(ok bool) string {
		if ok {
			return "OK"
		}
		return "FAIL"
	}
	idn := "FAIL"
	if r.Identification != nil {
		idn = r.Identification.String()
	}
	return fmt.Sprintf("echo=%s idn=%s protocol=%s field=%s tag=%v",
		status(r.EchoOK), idn, status(r.ProtocolOK), r.Field, r.TagPresent)
}

// SelfTest exercises the serial link, the chip identity, the protocol
// configuration, and the RF field in order. Later stages run even when
// earlier ones fail so the result shows everything that is broken.
func (d *Device) SelfTest(ctx context.Context) (*SelfTestResult, error) {
	result := &SelfTestResult{}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("self test canceled: %w", err)
	}

	result.EchoOK = d.Echo(ctx) == nil

	if ident, err := d.Identification(ctx); err == nil {
		result.Identification = ident
	}

	result.ProtocolOK = d.SelectProtocol(ctx, ProtocolISO14443A) == nil

	level, atqa, err := d.measureField(ctx)
	if err != nil {
		return result, err
	}
	result.Field = level
	if level == FieldStrong {
		result.TagPresent = true
		copy(result.ATQA[:], atqa)
	}

	return result, nil
}

// MeasureFieldLevel probes the RF field. FieldStrong means a tag answered
// the wake command; FieldOn means the chip reported the normal no-tag
// timeout, which proves the field is radiating.
func (d *Device) MeasureFieldLevel(ctx context.Context) (FieldLevel, error) {
	// Re-select the protocol first so the field is known to be commanded on.
	if err := d.SelectProtocol(ctx, ProtocolISO14443A); err != nil {
		if errors.Is(err, ErrUnexpectedStatus) {
			return FieldOff, nil
		}
		return FieldOff, err
	}

	level, _, err := d.measureField(ctx)
	return level, err
}

// AntennaOK reports whether the RF field is operational at all.
func (d *Device) AntennaOK(ctx context.Context) (bool, error) {
	level, err := d.MeasureFieldLevel(ctx)
	if err != nil {
		return false, err
	}
	return level > FieldOff, nil
}

func (d *Device) measureField(ctx context.Context) (FieldLevel, []byte, error) {
	if atqa, err := d.wake(ctx); err == nil {
		return FieldStrong, atqa, nil
	} else if IsFatal(err) {
		return FieldOff, nil, err
	}

	// No tag answered. A clean chip-side timeout on a bare REQA still
	// proves the field is radiating; anything else means trouble.
	resp, err := d.exchange(ctx, frame.REQA(), anticollTimeout)
	if err != nil {
		if IsFatal(err) {
			return FieldOff, nil, err
		}
		return FieldOff, nil, nil
	}
	if resp.Code == StatusTimeout {
		return FieldOn, nil, nil
	}
	return FieldWeak, nil, nil
}
