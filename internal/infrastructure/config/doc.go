// Package config handles loading and validating codalcfg configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The configuration selects which layers to resolve (target section) and
// where the result goes afterwards: the SQLite ledger, MQTT and InfluxDB.
// Every sink is disabled by default, so Load("") yields a configuration that
// resolves the built-in codal-wasm target and prints it.
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/codalcfg.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Target.Override)
package config
