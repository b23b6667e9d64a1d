// Package notify implements the Channel Adapter contract: formatting a
// NotificationPayload for a chat channel and delivering it to one
// channelTarget. Adapters are stateless across calls and safe for
// concurrent invocation; each adapter serializes sends to the same
// channelTarget through its own PerChat, so callers need no extra locking.
package notify

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// Adapter delivers a rendered NotificationPayload to one channelTarget over
// a specific chat channel.
type Adapter interface {
	Name() domain.Channel
	Send(ctx context.Context, channelTarget string, payload domain.NotificationPayload) error
}

// PerChat serializes sends to the same channelTarget without serializing
// sends across different targets. Messages to two different chats may be
// in flight at once; two messages to the same chat never race.
type PerChat struct {
	locks sync.Map // channelTarget -> *sync.Mutex
}

func (p *PerChat) lockFor(channelTarget string) *sync.Mutex {
	v, _ := p.locks.LoadOrStore(channelTarget, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Do runs send while holding the exclusive lock for channelTarget.
func (p *PerChat) Do(channelTarget string, send func() error) error {
	mu := p.lockFor(channelTarget)
	mu.Lock()
	defer mu.Unlock()
	return send()
}

// formatPrice renders a decimal price the way chat messages present it:
// two fixed decimals with a złoty suffix, matching the Polish rendering
// the channel adapters are required to use.
func formatPrice(p domain.NotificationPayload) string {
	return fmt.Sprintf("%s zł", p.Price.StringFixed(2))
}

// hasDiscount reports whether the current price actually undercuts the
// user's ceiling, the only case where both prices are shown.
func hasDiscount(p domain.NotificationPayload) bool {
	return p.Price.LessThan(p.MaxPrice)
}
