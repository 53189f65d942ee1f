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
	"time"
)

// DefaultPollInterval is the pause between discovery attempts when the
// caller does not specify one.
const DefaultPollInterval = 100 * time.Millisecond

// WaitForTag polls DetectTag until a tag is selected, the context ends, or
// a fatal transport error occurs. An empty field and transient RF failures
// (collisions, corrupted cascade blocks) just schedule the next attempt.
func (d *Device) WaitForTag(ctx context.Context, interval time.Duration) (*DetectedTag, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		tag, err := d.DetectTag(ctx)
		if err == nil {
			return tag, nil
		}
		if IsFatal(err) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("wait for tag: %w", ctxErr)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for tag: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// PollFunc is called for each tag WaitForTag or Poll selects. Returning an
// error stops the poll loop and propagates the error to the caller.
type PollFunc func(*DetectedTag) error

// Poll runs a continuous detect loop, invoking onTag once per tag arrival.
// A tag is reported when its UID differs from the previous cycle's, so a
// tag swapped for another between polls is seen even without an observed
// empty-field cycle in between. The same tag is reported again only after
// the field reads empty once (tag removed and re-presented). The loop ends
// when the context is done, onTag returns an error, or a fatal transport
// error occurs.
func (d *Device) Poll(ctx context.Context, interval time.Duration, onTag PollFunc) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastUID := ""
	for {
		tag, err := d.DetectTag(ctx)
		switch {
		case err == nil:
			if tag.UID != lastUID {
				lastUID = tag.UID
				if cbErr := onTag(tag); cbErr != nil {
					return cbErr
				}
			}
		case IsFatal(err):
			return err
		case errors.Is(err, ErrNoTagPresent):
			lastUID = ""
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
