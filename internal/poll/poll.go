// Copyright 2026 Google LLC. All Rights Reserved.
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

// Package poll provides the bounded wait used whenever the loader has to wait
// for hardware.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/bootchain/api"
)

// Policy bounds a wait.
type Policy struct {
	// MaxPolls is the maximum number of times the condition is evaluated.
	// Zero means once.
	MaxPolls uint
	// Interval is the delay between polls.
	Interval time.Duration
	// Timeout optionally bounds the total wait. Zero means no limit other
	// than MaxPolls.
	Timeout time.Duration
}

// DefaultPolicy waits up to one second for a device.
var DefaultPolicy = Policy{MaxPolls: 100, Interval: 10 * time.Millisecond}

var errNotYet = errors.New("condition not met")

// Until evaluates cond until it reports true, returns an error, or the policy
// is exhausted. In the last case the returned error wraps api.ErrTimeout.
//
// cond is never evaluated more than p.MaxPolls times.
func Until(ctx context.Context, p Policy, cond func() (bool, error)) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	retries := uint64(0)
	if p.MaxPolls > 1 {
		retries = uint64(p.MaxPolls - 1)
	}
	b := backoff.WithMaxRetries(backoff.WithContext(backoff.NewConstantBackOff(p.Interval), ctx), retries)

	polls := 0
	err := backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		polls++
		done, err := cond()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !done {
			return errNotYet
		}
		return nil
	}, b)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errNotYet), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("gave up after %d polls: %w", polls, api.ErrTimeout)
	}
	return err
}
