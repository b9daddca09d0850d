// Package config handles loading and validating Indigo Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields and bus addressing
//   - Default value handling
//
// Configuration is loaded once at startup and passed down as explicit
// structs; nothing below cmd/indigo reads the environment or files.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Bus.LaneAddrs)
//
// Security Considerations:
//   - MQTT credentials should be set via INDIGO_MQTT_USERNAME and
//     INDIGO_MQTT_PASSWORD rather than committed to the YAML file
package config
