//go:build integration

package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/indigolab/indigo-core/internal/device"
	"github.com/indigolab/indigo-core/internal/infrastructure/config"
)

// Integration tests need a broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		TopicPrefix: "indigo-it",
	}
}

// readRetained subscribes with a raw paho client and returns the retained payload.
func readRetained(t *testing.T, topic string) []byte {
	t.Helper()

	opts := pahomqtt.NewClientOptions().AddBroker("tcp://127.0.0.1:1883").SetClientID("indigo-it-reader")
	c := pahomqtt.NewClient(opts)
	if tok := c.Connect(); !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		t.Fatalf("reader connect failed: %v", tok.Error())
	}
	defer c.Disconnect(100)

	got := make(chan []byte, 1)
	tok := c.Subscribe(topic, 1, func(_ pahomqtt.Client, m pahomqtt.Message) {
		select {
		case got <- m.Payload():
		default:
		}
	})
	if !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		t.Fatalf("reader subscribe failed: %v", tok.Error())
	}

	select {
	case b := <-got:
		return b
	case <-time.After(5 * time.Second):
		t.Fatalf("no retained message on %s", topic)
		return nil
	}
}

func TestIntegration_ConnectAndHealth(t *testing.T) {
	client, err := Connect(integrationConfig("indigo-it-health"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() with cancelled context should fail")
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := integrationConfig("indigo-it-refused")
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_PublishValidation(t *testing.T) {
	client, err := Connect(integrationConfig("indigo-it-validate"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.Publish("", nil, 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Publish("indigo-it/x", nil, 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("qos 3 error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Publish("indigo-it/x", make([]byte, maxPayloadSize+1), 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversized payload error = %v, want ErrPublishFailed", err)
	}
}

func TestIntegration_StatusPublisherRetained(t *testing.T) {
	client, err := Connect(integrationConfig("indigo-it-status"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	pub := NewStatusPublisher(client, client.Topics(), 8)
	if err := pub.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer pub.Close()

	pub.OnLaneStatus(device.LaneStatus{Address: 7, Online: true}, time.Now())

	deadline := time.Now().Add(5 * time.Second)
	for pub.Stats().Published == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if pub.Stats().Published == 0 {
		t.Fatalf("nothing published, stats = %+v", pub.Stats())
	}

	if b := readRetained(t, "indigo-it/state/lane/7"); len(b) == 0 {
		t.Error("empty retained payload")
	}
}

// collectRetained subscribes to a wildcard pattern and gathers retained
// payloads by topic until every topic in want has arrived.
func collectRetained(t *testing.T, pattern string, want ...string) map[string][]byte {
	t.Helper()

	opts := pahomqtt.NewClientOptions().AddBroker("tcp://127.0.0.1:1883").SetClientID("indigo-it-wildcard")
	c := pahomqtt.NewClient(opts)
	if tok := c.Connect(); !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		t.Fatalf("reader connect failed: %v", tok.Error())
	}
	defer c.Disconnect(100)

	msgs := make(chan pahomqtt.Message, 64)
	tok := c.Subscribe(pattern, 1, func(_ pahomqtt.Client, m pahomqtt.Message) {
		select {
		case msgs <- m:
		default:
		}
	})
	if !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		t.Fatalf("reader subscribe failed: %v", tok.Error())
	}

	got := make(map[string][]byte)
	timeout := time.After(5 * time.Second)
	for {
		done := true
		for _, topic := range want {
			if _, ok := got[topic]; !ok {
				done = false
			}
		}
		if done {
			return got
		}
		select {
		case m := <-msgs:
			got[m.Topic()] = m.Payload()
		case <-timeout:
			t.Fatalf("retained topics under %s = %d, missing some of %v", pattern, len(got), want)
			return nil
		}
	}
}

func TestIntegration_AllStateWildcard(t *testing.T) {
	client, err := Connect(integrationConfig("indigo-it-wildcard-pub"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := client.Topics()
	pub := NewStatusPublisher(client, topics, 8)
	if err := pub.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer pub.Close()

	now := time.Now()
	pub.OnLaneStatus(device.LaneStatus{Address: 3, Online: true}, now)
	pub.OnUtilityStatus(device.UtilityStatus{Address: 9, Online: true, SafeChainOK: true}, now)

	got := collectRetained(t, topics.AllState(), topics.LaneState(3), topics.UtilityState())
	if _, ok := got[topics.SystemReady()]; ok {
		t.Errorf("%s matched the state wildcard", topics.SystemReady())
	}
}

func TestIntegration_CallbacksRegistered(t *testing.T) {
	client, err := Connect(integrationConfig("indigo-it-callbacks"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.SetOnConnect(func() {})
	client.SetOnDisconnect(func(error) {})
	client.SetOnConnect(nil)
	client.SetOnDisconnect(nil)
}
