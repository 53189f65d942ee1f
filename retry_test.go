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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		RetryTimeout:      time.Second,
	}
}

func TestRetryWithConfig_EventualSuccess(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(5), func() error {
		attempts++
		if attempts < 3 {
			return NewTimeoutError("read", "port")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithConfig_NonRetryableAbortsImmediately(t *testing.T) {
	t.Parallel()

	permanent := NewInvalidResponseError("read", "port")
	attempts := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(5), func() error {
		attempts++
		return permanent
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}

func TestRetryWithConfig_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(3), func() error {
		attempts++
		return NewTimeoutError("read", "port")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, errors.Is(err, ErrTransportTimeout))
}

func TestRetryWithConfig_ZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()

	config := fastRetryConfig(0)
	attempts := 0
	err := RetryWithConfig(context.Background(), config, func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithConfig_ContextCancelDuringBackoff(t *testing.T) {
	t.Parallel()

	config := fastRetryConfig(10)
	config.InitialBackoff = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := RetryWithConfig(ctx, config, func() error {
		return NewTimeoutError("read", "port")
	})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 90*time.Millisecond)
}
