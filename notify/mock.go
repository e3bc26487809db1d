package notify

import (
	"context"
	"time"

	"github.com/bitmark-inc/logger"
)

// MockDelay is how long the mock gateway pretends delivery takes.
const MockDelay = time.Second

// MockGateway logs messages instead of sending them; used when no SMS
// provider is configured.
type MockGateway struct {
	delay time.Duration
	log   *logger.L
}

func NewMockGateway(delay time.Duration) *MockGateway {
	return &MockGateway{
		delay: delay,
		log:   logger.New("notify"),
	}
}

func (g *MockGateway) Name() string {
	return MethodMock
}

func (g *MockGateway) Send(ctx context.Context, to string, body string) (*Delivery, error) {
	g.log.Infof("[MOCK SMS] to: %s  message: %q", to, body)

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return &Delivery{
		Method: MethodMock,
		To:     to,
	}, nil
}
