// README: Fire-and-forget notification sink contract and channel naming.
package notify

import (
	"context"
	"fmt"

	"fleet/internal/types"
)

// Sink delivers an event to one driver or customer channel. Delivery is
// at-most-once and unacknowledged; callers must not depend on receipt.
type Sink interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

func DriverChannel(id types.ID) string {
	return fmt.Sprintf("driver:%s", string(id))
}

func CustomerChannel(id types.ID) string {
	return fmt.Sprintf("customer:%s", string(id))
}
