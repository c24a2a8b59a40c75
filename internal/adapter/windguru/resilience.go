package windguru

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
)

// resilience wraps outbound requests with retries, exponential backoff, and
// a circuit breaker. The backend throttles aggressive clients, so failed
// calls back off rather than hammering it.
type resilience struct {
	breaker         *gobreaker.CircuitBreaker
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

func newResilience(name string, maxRetries int) resilience {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return resilience{
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     name,
			Interval: time.Minute,
			Timeout:  30 * time.Second,
		}),
		maxRetries:      maxRetries,
		initialInterval: 200 * time.Millisecond,
		maxInterval:     5 * time.Second,
	}
}

// do executes the request, rebuilding it for each attempt so request bodies
// are fresh. Responses with retryable statuses (429, 5xx) are retried up to
// maxRetries times; an open circuit fails fast.
func (r resilience) do(ctx context.Context, buildRequest func() (*http.Request, error), client *http.Client) (*http.Response, error) {
	delay := r.initialInterval

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		result, err := r.breaker.Execute(func() (interface{}, error) {
			resp, execErr := client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				resp.Body.Close()
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				resp.Body.Close()
				return nil, errServerError
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}
			return resp, nil
		})
		if err == nil {
			return result.(*http.Response), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if !retryable(err) || attempt >= r.maxRetries {
			return nil, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if delay *= 2; delay > r.maxInterval {
			delay = r.maxInterval
		}
	}
}

// retryable reports whether another attempt could help. Client errors
// (4xx other than 429) will fail the same way every time.
func retryable(err error) bool {
	if errors.Is(err, errRateLimited) || errors.Is(err, errServerError) {
		return true
	}
	return !errors.Is(err, errUnexpected)
}
