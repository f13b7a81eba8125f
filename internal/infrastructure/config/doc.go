// Package config handles loading and validating SealDB configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Database credentials should be set via SEALDB_DATABASE_CREDENTIAL,
//     never committed in a config file
//   - The config file should have restricted permissions (0600)
//   - Config values are never logged in full
//
// Usage:
//
//	cfg, err := config.Load("configs/sealdb.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Database.Dir)
package config
