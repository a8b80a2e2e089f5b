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
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffOptions configures the capped exponential backoff of reconnects
type BackoffOptions struct {
	Initial    time.Duration `json:"initial,omitempty" yaml:"initial,omitempty"`
	Max        time.Duration `json:"max,omitempty" yaml:"max,omitempty"`
	Multiplier float64       `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	// MaxRetries is the number of attempts after the first one failed
	MaxRetries int `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
}

// exponential returns a backoff without jitter and without an elapsed time limit, the retry
// budget is enforced by MaxRetries alone
func (o BackoffOptions) exponential() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.Initial
	b.MaxInterval = o.Max
	b.Multiplier = o.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Delay returns the time to wait before the given retry, counting from 0
func (o BackoffOptions) Delay(retry int) time.Duration {
	b := o.exponential()
	d := b.NextBackOff()
	for i := 0; i < retry && d < o.Max; i++ {
		d = b.NextBackOff()
	}
	return min(d, o.Max)
}

// retry calls fn until it succeeds or the retry budget is exhausted, waiting the backoff delay
// in between. Cancellation of ctx aborts waiting with the context's cause.
func retry(ctx context.Context, opts BackoffOptions, fn func(context.Context) error) error {
	var (
		attempts int
		last     error
	)
	b := backoff.WithContext(backoff.WithMaxRetries(opts.exponential(), uint64(max(opts.MaxRetries, 0))), ctx)
	err := backoff.RetryNotify(func() error {
		attempts++
		last = fn(ctx)
		return last
	}, b, func(error, time.Duration) {
		RetriesTotal.Inc()
	})
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%w, last error %w", context.Cause(ctx), last)
	default:
		return fmt.Errorf("%w after %d attempts, %w", ErrCollectorUnreachable, attempts, last)
	}
}
