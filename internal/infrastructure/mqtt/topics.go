package mqtt

import "fmt"

// DefaultTopicPrefix is the root of every Indigo topic.
const DefaultTopicPrefix = "indigo"

// Topics builds Indigo MQTT topic names under Prefix.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{Prefix: "indigo"}
//	topics.LaneState(3) // "indigo/state/lane/3"
//
// A zero Topics uses DefaultTopicPrefix.
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// LaneState returns the retained status topic for one lane board.
//
// Example: indigo/state/lane/3
func (t Topics) LaneState(addr uint8) string {
	return fmt.Sprintf("%s/state/lane/%d", t.prefix(), addr)
}

// UtilityState returns the retained status topic for the utility board.
//
// Example: indigo/state/utility
func (t Topics) UtilityState() string {
	return t.prefix() + "/state/utility"
}

// SystemReady returns the retained safety gate topic.
//
// Example: indigo/system/ready
func (t Topics) SystemReady() string {
	return t.prefix() + "/system/ready"
}

// SystemStatus returns the Core online/offline topic, also used for the LWT.
//
// Example: indigo/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// AllState returns a pattern matching every device state topic.
//
// Pattern: indigo/state/#
func (t Topics) AllState() string {
	return t.prefix() + "/state/#"
}
