package bus

import (
	"context"
	"time"

	"github.com/indigolab/indigo-core/internal/protocol"
)

// DefaultTimeout is the per-exchange timeout used by the poll scheduler.
const DefaultTimeout = 250 * time.Millisecond

// Bus is a synchronous request/response transport.
//
// SendAndReceive sends req and waits up to timeout for the matching
// response. It returns ok=false when nothing usable came back.
// Implementations must be safe for use by a single caller goroutine; the
// poll scheduler is the only component that calls it.
type Bus interface {
	SendAndReceive(ctx context.Context, req protocol.Frame, timeout time.Duration) (resp protocol.Frame, ok bool)
}

// Func adapts an ordinary function to the Bus interface.
type Func func(ctx context.Context, req protocol.Frame, timeout time.Duration) (protocol.Frame, bool)

// SendAndReceive calls f(ctx, req, timeout).
func (f Func) SendAndReceive(ctx context.Context, req protocol.Frame, timeout time.Duration) (protocol.Frame, bool) {
	return f(ctx, req, timeout)
}
