// Package config provides the prodadmin CLI configuration.
//
//   - spec.go: CLIConfig struct, defaults and validation
//   - loader.go: layered loading (defaults, ~/.prodadmin/cli.yaml,
//     PRODADMIN_* environment, flags) and saving
package config
