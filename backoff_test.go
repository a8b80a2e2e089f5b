/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	o := BackoffOptions{
		Initial:    100 * time.Millisecond,
		Max:        time.Second,
		Multiplier: 2,
	}
	assert.Equal(t, 100*time.Millisecond, o.Delay(0))
	assert.Equal(t, 200*time.Millisecond, o.Delay(1))
	assert.Equal(t, 800*time.Millisecond, o.Delay(3))
	assert.Equal(t, time.Second, o.Delay(4))
	assert.Equal(t, time.Second, o.Delay(100))
}

func TestRetry(t *testing.T) {
	o := BackoffOptions{
		Initial:    time.Millisecond,
		Max:        2 * time.Millisecond,
		Multiplier: 2,
		MaxRetries: 3,
	}
	errDown := errors.New("down")

	t.Run("succeeds", func(t *testing.T) {
		attempts := 0
		err := retry(context.Background(), o, func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errDown
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("exhausted", func(t *testing.T) {
		attempts := 0
		err := retry(context.Background(), o, func(context.Context) error {
			attempts++
			return errDown
		})
		assert.ErrorIs(t, err, ErrCollectorUnreachable)
		assert.ErrorIs(t, err, errDown)
		assert.Equal(t, 4, attempts)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancelCause(context.Background())
		slow := BackoffOptions{Initial: time.Hour, Max: time.Hour, Multiplier: 2, MaxRetries: 1}
		err := retry(ctx, slow, func(context.Context) error {
			cancel(ErrSessionClosing)
			return errDown
		})
		assert.ErrorIs(t, err, ErrSessionClosing)
		assert.ErrorIs(t, err, errDown)
	})
}
