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
	"time"

	"github.com/b4e-srl/go-cr95hf/internal/frame"
)

// DetectTag runs one complete ISO14443-A discovery attempt: wake the field,
// resolve the UID through anticollision, and select the tag to obtain its
// SAK. It returns the selected tag, or an error naming the step that failed.
//
// A single call is one attempt with no internal retries. Any failure leaves
// the device ready for the next call; callers poll on their own cadence or
// use WaitForTag. An empty field surfaces as ErrNoTagPresent.
//
// Tags with 7-byte UIDs signal a cascaded UID in level 1 and are resolved
// through a second anticollision round at cascade level 2. Triple-size
// (10-byte) UIDs are not supported.
func (d *Device) DetectTag(ctx context.Context) (*DetectedTag, error) {
	atqa, err := d.wake(ctx)
	if err != nil {
		return nil, err
	}

	cl1, err := d.anticollision(ctx, frame.SelCL1, StepAnticollCL1)
	if err != nil {
		return nil, err
	}

	var uid []byte
	var sak byte

	if cl1[0] == frame.CascadeTag {
		// Level 1 carries the cascade sentinel plus the first three UID
		// bytes. The level 1 SAK has the incomplete-UID bit set and is
		// discarded; the real SAK comes from the level 2 select.
		if _, err = d.selectCascade(ctx, frame.SelCL1, cl1, StepSelectCL1); err != nil {
			return nil, err
		}

		cl2, err := d.anticollision(ctx, frame.SelCL2, StepAnticollCL2)
		if err != nil {
			return nil, err
		}
		sak, err = d.selectCascade(ctx, frame.SelCL2, cl2, StepSelectCL2)
		if err != nil {
			return nil, err
		}

		uid = make([]byte, 0, 7)
		uid = append(uid, cl1[1:4]...)
		uid = append(uid, cl2[0:4]...)
	} else {
		sak, err = d.selectCascade(ctx, frame.SelCL1, cl1, StepSelectCL1)
		if err != nil {
			return nil, err
		}
		uid = append(uid, cl1[0:4]...)
	}

	tag := newDetectedTag(uid, atqa, sak)
	Debugf("detected tag %s type=%s sak=0x%02X", tag.UID, tag.Type, sak)
	return tag, nil
}

// wake sends WUPA and, if nothing answers, falls back to REQA. WUPA also
// wakes tags sitting in HALT state from a previous selection, which is what
// makes repeated discovery of the same tag work; REQA catches tags that
// answer only the request frame.
func (d *Device) wake(ctx context.Context) ([]byte, error) {
	resp, err := d.exchange(ctx, frame.WUPA(), wakeTimeout)
	if err == nil && resp.IsData() && len(resp.Payload) >= 2 {
		return resp.Payload[:2], nil
	}
	if err != nil && IsFatal(err) {
		return nil, &DiscoveryError{Step: StepWake, Err: err}
	}

	resp, err = d.exchange(ctx, frame.REQA(), wakeTimeout)
	if err != nil {
		if IsFatal(err) {
			return nil, &DiscoveryError{Step: StepWake, Err: err}
		}
		return nil, &DiscoveryError{Step: StepWake, Err: ErrNoTagPresent}
	}
	if !resp.IsData() || len(resp.Payload) < 2 {
		return nil, &DiscoveryError{Step: StepWake, Err: ErrNoTagPresent}
	}
	return resp.Payload[:2], nil
}

// anticollision runs one anticollision round at the given cascade level and
// returns the 5-byte cascade block (4 ID bytes plus check byte). The chip
// appends RF status bytes after the tag data; only the first five bytes are
// the cascade block.
func (d *Device) anticollision(ctx context.Context, sel byte, step DiscoveryStep) ([]byte, error) {
	resp, err := d.exchange(ctx, frame.Anticollision(sel), anticollTimeout)
	if err != nil {
		return nil, &DiscoveryError{Step: step, Err: err}
	}
	if !resp.IsData() {
		return nil, &DiscoveryError{Step: step, Err: &StatusError{Op: string(step), Code: resp.Code}}
	}
	if len(resp.Payload) < frame.CascadeSize {
		return nil, &DiscoveryError{
			Step: step,
			Err:  fmt.Errorf("%w: got %d bytes, need %d", ErrShortResponse, len(resp.Payload), frame.CascadeSize),
		}
	}

	block := resp.Payload[:frame.CascadeSize]
	if !frame.ValidBCC(block) {
		return nil, &DiscoveryError{
			Step: step,
			Err: fmt.Errorf("%w: % X xor to 0x%02X", ErrChecksumMismatch,
				block[:4], frame.BCC(block[:4])),
		}
	}
	return block, nil
}

// selectCascade selects the tag with the given cascade block and returns
// the SAK byte from the tag's answer.
func (d *Device) selectCascade(ctx context.Context, sel byte, block []byte, step DiscoveryStep) (byte, error) {
	var cascade [frame.CascadeSize]byte
	copy(cascade[:], block)

	resp, err := d.exchange(ctx, frame.Select(sel, cascade), selectTimeout)
	if err != nil {
		return 0, &DiscoveryError{Step: step, Err: err}
	}
	if !resp.IsData() {
		return 0, &DiscoveryError{Step: step, Err: &StatusError{Op: string(step), Code: resp.Code}}
	}
	if len(resp.Payload) < 1 {
		return 0, &DiscoveryError{Step: step, Err: fmt.Errorf("%w: empty select answer", ErrShortResponse)}
	}
	return resp.Payload[0], nil
}

func newDetectedTag(uid, atqa []byte, sak byte) *DetectedTag {
	tag := &DetectedTag{
		UIDBytes:   uid,
		SAK:        sak,
		Type:       CardTypeFromSAK(sak),
		DetectedAt: time.Now(),
	}
	tag.UID = fmt.Sprintf("%x", uid)
	copy(tag.ATQA[:], atqa)
	return tag
}
