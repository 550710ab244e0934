package broker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// Broker defines the interface for interacting with the upstream brokerage.
type Broker interface {
	// Session lifecycle
	Login(ctx context.Context, creds Credentials) (*LoginData, error)
	RefreshTokens(ctx context.Context, apiKey, refreshToken string) (*TokenData, error)
	Logout(ctx context.Context, bearerToken, clientID string) error

	// Market data
	GetLTP(ctx context.Context, bearerToken string, req LTPRequest) (json.RawMessage, error)
}

// Ensure AngelAPI implements Broker at compile time.
var _ Broker = (*AngelAPI)(nil)

// CircuitBreakerBroker wraps a Broker with circuit breaker functionality so
// a flapping upstream fails fast instead of tying up request goroutines.
type CircuitBreakerBroker struct {
	broker  Broker
	breaker *gobreaker.CircuitBreaker
}

// execCircuitBreaker is a generic helper for circuit breaker wrapper methods
func execCircuitBreaker[T any](
	breaker *gobreaker.CircuitBreaker,
	broker Broker,
	fn func(Broker) (T, error),
) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn(broker) })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// CircuitBreakerSettings configures circuit breaker behavior
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// NewCircuitBreakerBroker creates a new CircuitBreakerBroker with sensible defaults
func NewCircuitBreakerBroker(broker Broker) *CircuitBreakerBroker {
	return NewCircuitBreakerBrokerWithSettings(broker, CircuitBreakerSettings{
		MaxRequests:  3,                // Allow 3 requests when half-open
		Interval:     60 * time.Second, // Reset counts every minute
		Timeout:      30 * time.Second, // Open circuit for 30 seconds
		MinRequests:  5,                // Minimum requests before tripping
		FailureRatio: 0.6,              // Trip if 60% failure rate
	})
}

// NewCircuitBreakerBrokerWithSettings creates a CircuitBreakerBroker with custom settings
func NewCircuitBreakerBrokerWithSettings(broker Broker, settings CircuitBreakerSettings) *CircuitBreakerBroker {
	gbSettings := gobreaker.Settings{
		Name:        "SmartAPICircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}

	return &CircuitBreakerBroker{
		broker:  broker,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// Login wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) Login(ctx context.Context, creds Credentials) (*LoginData, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (*LoginData, error) {
		return b.Login(ctx, creds)
	})
}

// RefreshTokens wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) RefreshTokens(ctx context.Context, apiKey, refreshToken string) (*TokenData, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (*TokenData, error) {
		return b.RefreshTokens(ctx, apiKey, refreshToken)
	})
}

// Logout wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) Logout(ctx context.Context, bearerToken, clientID string) error {
	_, err := execCircuitBreaker(c.breaker, c.broker, func(b Broker) (struct{}, error) {
		return struct{}{}, b.Logout(ctx, bearerToken, clientID)
	})
	return err
}

// GetLTP wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetLTP(ctx context.Context, bearerToken string, req LTPRequest) (json.RawMessage, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (json.RawMessage, error) {
		return b.GetLTP(ctx, bearerToken, req)
	})
}

// Ensure CircuitBreakerBroker implements Broker at compile time.
var _ Broker = (*CircuitBreakerBroker)(nil)
