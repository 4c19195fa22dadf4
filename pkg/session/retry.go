package session

import "time"

// retryPolicy paces reconnect attempts after transient closes.
//
// The source this design derives from reconnected unconditionally with no
// backoff and no cap. That is reproduced by MaxReconnects == 0; the
// default configuration bounds the loop and backs off exponentially.
type retryPolicy struct {
	max      int
	initial  time.Duration
	ceiling  time.Duration
	attempts int
	sleep    func(time.Duration)
}

func newRetryPolicy(cfg Config) *retryPolicy {
	return &retryPolicy{
		max:     cfg.MaxReconnects,
		initial: cfg.InitialBackoff,
		ceiling: cfg.MaxBackoff,
		sleep:   time.Sleep,
	}
}

// Next records one reconnect attempt, sleeping the backoff interval.
// Returns false when the attempt budget is exhausted.
func (r *retryPolicy) Next() bool {
	r.attempts++
	if r.max > 0 && r.attempts > r.max {
		return false
	}
	r.sleep(r.backoff())
	return true
}

func (r *retryPolicy) backoff() time.Duration {
	d := r.initial
	for i := 1; i < r.attempts; i++ {
		d *= 2
		if d >= r.ceiling {
			return r.ceiling
		}
	}
	if d > r.ceiling {
		return r.ceiling
	}
	return d
}
