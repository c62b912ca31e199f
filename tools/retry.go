package tools

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/joshp123/gosauna/harvia"
)

// Policy bounds how often a failed tool call is retried. Only transient
// failures (expired credentials, discovery hiccups, transport errors)
// are retried; validation errors and backend rejections surface on the
// first attempt. The zero value means a single attempt.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = 500 * time.Millisecond
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 5 * time.Second
	}
	return p
}

func (p Policy) retry(ctx context.Context, fn func(context.Context) error) error {
	p = p.withDefaults()

	operation := func() error {
		err := fn(ctx)
		if err != nil && !harvia.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx))
}
