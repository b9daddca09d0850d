package mqtt

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigolab/indigo-core/internal/device"
	"github.com/indigolab/indigo-core/internal/safety"
)

// DefaultQueueSize is the StatusPublisher queue capacity when none is given.
const DefaultQueueSize = 64

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// RetainedPublisher is the part of Client the StatusPublisher needs.
type RetainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// statePayload is the body of every retained state message.
type statePayload struct {
	Status    any       `json:"status"`
	Timestamp time.Time `json:"ts"`
}

type message struct {
	topic   string
	payload []byte
}

// PublisherStats counts StatusPublisher outcomes.
type PublisherStats struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

// StatusPublisher mirrors polled device status to retained MQTT topics.
//
// It implements poller.Observer. Callbacks marshal the status and enqueue it
// without blocking; a single goroutine drains the queue to the broker. When
// the queue is full the message is dropped and counted, so a slow or absent
// broker never stalls the poll loop. Retained topics mean only the latest
// value matters, so drops lose no state a subscriber could use.
//
// Topics:
//   - {prefix}/state/lane/{addr}  every lane status
//   - {prefix}/state/utility      every utility status
//   - {prefix}/system/ready       safety gate result, when it changes
//
// Thread Safety:
//   - Observer callbacks, Stats, and Close are safe for concurrent use.
type StatusPublisher struct {
	pub    RetainedPublisher
	topics Topics
	queue  chan message
	logger Logger

	// lastReady is the last published safety state, touched only by the
	// observer goroutine.
	lastReady *safety.SystemState

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	mu      sync.Mutex
	started bool
	closed  bool
	stop    chan struct{}
	done    chan struct{}
}

// NewStatusPublisher creates a publisher. queueSize <= 0 uses DefaultQueueSize.
// Call Start before registering it with the scheduler.
func NewStatusPublisher(pub RetainedPublisher, topics Topics, queueSize int) *StatusPublisher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &StatusPublisher{
		pub:    pub,
		topics: topics,
		queue:  make(chan message, queueSize),
		logger: noopLogger{},
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// SetLogger sets the logger. Call before Start.
func (p *StatusPublisher) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	p.logger = logger
}

// Start launches the drain goroutine. Calling it again is a no-op.
//
// Returns:
//   - error: ErrPublisherClosed if Close was already called
func (p *StatusPublisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}
	if p.started {
		return nil
	}
	p.started = true
	go p.drain()
	return nil
}

// Close stops the drain goroutine and waits for it to exit.
// Messages still queued are discarded. Safe to call more than once.
func (p *StatusPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	started := p.started
	close(p.stop)
	p.mu.Unlock()

	if started {
		<-p.done
	}
}

// OnLaneStatus implements poller.Observer.
func (p *StatusPublisher) OnLaneStatus(st device.LaneStatus, ts time.Time) {
	p.enqueue(p.topics.LaneState(st.Address), statePayload{Status: st, Timestamp: ts})
}

// OnUtilityStatus implements poller.Observer. It also publishes the derived
// safety state whenever readiness or its reason changes.
func (p *StatusPublisher) OnUtilityStatus(st device.UtilityStatus, ts time.Time) {
	p.enqueue(p.topics.UtilityState(), statePayload{Status: st, Timestamp: ts})

	state := safety.Evaluate(&st)
	if p.lastReady != nil && p.lastReady.Ready == state.Ready && p.lastReady.Reason == state.Reason {
		return
	}
	if p.enqueue(p.topics.SystemReady(), statePayload{Status: state, Timestamp: ts}) {
		p.lastReady = &state
	}
}

// enqueue reports whether the message was queued.
func (p *StatusPublisher) enqueue(topic string, v statePayload) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		p.failed.Add(1)
		p.logger.Warn("status publish: marshal failed", "topic", topic, "error", err)
		return false
	}

	select {
	case <-p.stop:
		p.dropped.Add(1)
		return false
	default:
	}

	select {
	case p.queue <- message{topic: topic, payload: payload}:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

func (p *StatusPublisher) drain() {
	defer close(p.done)
	for {
		select {
		case <-p.stop:
			return
		case m := <-p.queue:
			if err := p.pub.PublishRetained(m.topic, m.payload); err != nil {
				p.failed.Add(1)
				p.logger.Debug("status publish failed", "topic", m.topic, "error", err)
				continue
			}
			p.published.Add(1)
		}
	}
}

// Stats returns the publisher counters.
func (p *StatusPublisher) Stats() PublisherStats {
	return PublisherStats{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.failed.Load(),
	}
}
