package classifier

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// breakerProvider wraps a Provider in a circuit breaker so a
// misbehaving upstream sheds load instead of burning queue attempts
// against a dead endpoint.
type breakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker[*Result]
}

// Resilient wraps p in a circuit breaker named for the service. The
// breaker opens after five consecutive failures and probes again after
// thirty seconds.
func Resilient(name string, p Provider) Provider {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &breakerProvider{
		inner:   p,
		breaker: gobreaker.NewCircuitBreaker[*Result](settings),
	}
}

func (b *breakerProvider) Classify(ctx context.Context, content []byte, kind ContentKind) (*Result, error) {
	return b.breaker.Execute(func() (*Result, error) {
		return b.inner.Classify(ctx, content, kind)
	})
}
