package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indigolab/indigo-core/internal/device"
	"github.com/indigolab/indigo-core/internal/safety"
)

// fakeBroker records retained publishes. When block is non-nil each publish
// waits on it.
type fakeBroker struct {
	mu       sync.Mutex
	messages map[string][]byte
	order    []string
	err      error
	block    chan struct{}
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{messages: make(map[string][]byte)}
}

func (f *fakeBroker) PublishRetained(topic string, payload []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages[topic] = payload
	f.order = append(f.order, topic)
	return nil
}

func (f *fakeBroker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

func (f *fakeBroker) get(topic string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.messages[topic]
	return b, ok
}

func (f *fakeBroker) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

var ts = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func readyUtility() device.UtilityStatus {
	return device.UtilityStatus{Address: 9, Online: true, SafeChainOK: true}
}

func TestStatusPublisher_PublishesState(t *testing.T) {
	broker := newFakeBroker()
	p := NewStatusPublisher(broker, Topics{}, 8)
	require.NoError(t, p.Start())
	defer p.Close()

	p.OnLaneStatus(device.LaneStatus{Address: 2, Online: true, StirSpeedCmd: 300}, ts)
	p.OnUtilityStatus(readyUtility(), ts)

	require.Eventually(t, func() bool { return broker.count() == 3 }, time.Second, 5*time.Millisecond)

	raw, ok := broker.get("indigo/state/lane/2")
	require.True(t, ok)
	var lane struct {
		Status    device.LaneStatus `json:"status"`
		Timestamp time.Time         `json:"ts"`
	}
	require.NoError(t, json.Unmarshal(raw, &lane))
	assert.Equal(t, uint8(2), lane.Status.Address)
	assert.Equal(t, uint16(300), lane.Status.StirSpeedCmd)
	assert.True(t, lane.Timestamp.Equal(ts))

	raw, ok = broker.get("indigo/system/ready")
	require.True(t, ok)
	var ready struct {
		Status safety.SystemState `json:"status"`
	}
	require.NoError(t, json.Unmarshal(raw, &ready))
	assert.True(t, ready.Status.Ready)
	assert.Equal(t, safety.ReasonOK, ready.Status.Reason)

	_, ok = broker.get("indigo/state/utility")
	assert.True(t, ok)
	assert.Equal(t, uint64(3), p.Stats().Published)
}

func TestStatusPublisher_ReadyOnlyOnChange(t *testing.T) {
	broker := newFakeBroker()
	p := NewStatusPublisher(broker, Topics{}, 16)
	require.NoError(t, p.Start())
	defer p.Close()

	p.OnUtilityStatus(readyUtility(), ts)
	p.OnUtilityStatus(readyUtility(), ts.Add(time.Second))

	estop := readyUtility()
	estop.SafeChainOK = false
	p.OnUtilityStatus(estop, ts.Add(2*time.Second))

	// 3 utility + 2 ready (initial, then the change)
	require.Eventually(t, func() bool { return broker.count() == 5 }, time.Second, 5*time.Millisecond)

	readies := 0
	for _, topic := range broker.topics() {
		if topic == "indigo/system/ready" {
			readies++
		}
	}
	assert.Equal(t, 2, readies)

	raw, _ := broker.get("indigo/system/ready")
	var ready struct {
		Status safety.SystemState `json:"status"`
	}
	require.NoError(t, json.Unmarshal(raw, &ready))
	assert.False(t, ready.Status.Ready)
	assert.Equal(t, safety.ReasonSafeChain, ready.Status.Reason)
}

func TestStatusPublisher_DropsWhenFull(t *testing.T) {
	broker := newFakeBroker()
	broker.block = make(chan struct{})
	p := NewStatusPublisher(broker, Topics{}, 2)
	require.NoError(t, p.Start())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 20 {
			p.OnLaneStatus(device.LaneStatus{Address: uint8(i)}, ts)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observer callbacks blocked on a stalled broker")
	}

	// One message may be held by the drain goroutine, two in the queue.
	assert.GreaterOrEqual(t, p.Stats().Dropped, uint64(17))

	close(broker.block)
	p.Close()
}

func TestStatusPublisher_CountsFailures(t *testing.T) {
	broker := newFakeBroker()
	broker.err = errors.New("not connected")
	p := NewStatusPublisher(broker, Topics{}, 4)
	require.NoError(t, p.Start())
	defer p.Close()

	p.OnLaneStatus(device.LaneStatus{Address: 1}, ts)

	require.Eventually(t, func() bool { return p.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, p.Stats().Published)
}

func TestStatusPublisher_Lifecycle(t *testing.T) {
	p := NewStatusPublisher(newFakeBroker(), Topics{}, 0)
	assert.Equal(t, DefaultQueueSize, cap(p.queue))

	require.NoError(t, p.Start())
	require.NoError(t, p.Start(), "second Start is a no-op")

	p.Close()
	p.Close()

	assert.ErrorIs(t, p.Start(), ErrPublisherClosed)

	// Callbacks after Close are dropped, not panics.
	p.OnLaneStatus(device.LaneStatus{Address: 1}, ts)
	assert.Equal(t, uint64(1), p.Stats().Dropped)
}

func TestStatusPublisher_CloseWithoutStart(t *testing.T) {
	p := NewStatusPublisher(newFakeBroker(), Topics{}, 1)

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked without Start")
	}
}
