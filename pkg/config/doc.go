// Package config provides configuration management for calcul.
//
// Configuration is loaded from a YAML file, completed with defaults and
// environment variable overrides, then validated.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("calcul.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("calcul.yaml")
//
// An empty path to LoadConfigWithEnvOverrides starts from Default.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CALCUL_SECTION_FIELD:
//
//   - CALCUL_RULES_PATHS overrides rules.paths (comma-separated)
//   - CALCUL_ENGINE_MAX_DEPTH overrides engine.max_depth
//   - CALCUL_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Example
//
//	rules:
//	  paths: ["./regles"]
//	  situation: ./situation.yaml
//	  watch: true
//	engine:
//	  max_depth: 500
//	telemetry:
//	  logging:
//	    level: debug
//	    format: console
//	  metrics:
//	    address: 127.0.0.1:9090
//
// # Singleton Pattern
//
//	if err := config.Initialize("calcul.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
package config
