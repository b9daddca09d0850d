// Package mqtt publishes Indigo device status to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained publishing of lane, utility, and safety state
//   - Last Will and Testament (LWT) for offline detection
//
// The broker is optional. When mqtt.enabled is false Core runs without it,
// and nothing in the poll path depends on broker availability.
//
// # Topics
//
//	indigo/system/status      online/offline (retained, LWT)
//	indigo/system/ready       safety gate result (retained)
//	indigo/state/utility      latest utility status (retained)
//	indigo/state/lane/{addr}  latest lane status (retained)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	pub := mqtt.NewStatusPublisher(client, client.Topics(), cfg.MQTT.QueueSize)
//	if err := pub.Start(); err != nil {
//	    return err
//	}
//	defer pub.Close()
//	// pass pub as poller.Options.Observer
//
// # Security Considerations
//
//   - Enable TLS (mqtt.broker.tls) when the broker is not on localhost
//   - Supply credentials through INDIGO_MQTT_USERNAME / INDIGO_MQTT_PASSWORD
package mqtt
