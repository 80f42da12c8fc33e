package client

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped reports that Stop ended the poll before the job finished.
var ErrStopped = errors.New("client: poll stopped")

const (
	defaultPollInterval = 2 * time.Second
	defaultPollCap      = 30 * time.Second
)

// Poller follows one job until it reaches a terminal status. Transport
// failures do not abort the poll; each consecutive failure doubles the wait
// up to a cap, and the first success drops it back to the base interval.
type Poller struct {
	cli      *Client
	interval time.Duration
	cap      time.Duration

	// OnUpdate, when set, runs after every successful poll.
	OnUpdate func(JobSummary)

	stopOnce sync.Once
	stopped  chan struct{}
}

func NewPoller(cli *Client) *Poller {
	return &Poller{
		cli:      cli,
		interval: defaultPollInterval,
		cap:      defaultPollCap,
		stopped:  make(chan struct{}),
	}
}

// WithInterval overrides the base interval and cap. Zero values keep the
// defaults.
func (p *Poller) WithInterval(base, cap time.Duration) *Poller {
	if base > 0 {
		p.interval = base
	}
	if cap > 0 {
		p.cap = cap
	}
	return p
}

// Stop ends a running Wait early. Safe to call more than once and from a
// different goroutine than the one waiting.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopped) })
}

// delay reports the wait before the next poll after n consecutive failures
// (n = 0 means the last poll succeeded).
func (p *Poller) delay(failures int) time.Duration {
	if failures <= 0 {
		return p.interval
	}
	d := p.interval
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= p.cap {
			return p.cap
		}
	}
	if d > p.cap {
		return p.cap
	}
	return d
}

// Wait polls until the job is terminal and returns its final summary. The
// last transport error is only surfaced when the context ends or Stop is
// called before a terminal status was seen.
func (p *Poller) Wait(ctx context.Context, jobID string) (*JobSummary, error) {
	failures := 0
	var lastErr error

	for {
		detail, err := p.cli.Job(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			lastErr = err
		} else {
			failures = 0
			lastErr = nil
			if p.OnUpdate != nil {
				p.OnUpdate(detail.JobSummary)
			}
			if detail.Terminal() {
				return &detail.JobSummary, nil
			}
		}

		timer := time.NewTimer(p.delay(failures))
		select {
		case <-ctx.Done():
			timer.Stop()
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, ctx.Err()
		case <-p.stopped:
			timer.Stop()
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, ErrStopped
		case <-timer.C:
		}
	}
}
