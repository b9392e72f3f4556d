// Package config provides configuration management for the planpilot service.
//
// # Overview
//
// The config package uses Viper to load configuration from a YAML file and
// environment variables. It provides a type-safe configuration structure with
// validation, default values, and automatic file creation on first run.
//
// # Configuration File
//
// Configuration is stored at ~/.planpilot/config.yaml and is created with
// sensible defaults when missing. The file structure mirrors the Go structs
// defined in this package.
//
// # Environment Variables
//
// Every configuration value can be overridden with a PLANPILOT_-prefixed
// environment variable; nested fields are separated by underscores.
//
// Examples:
//   - PLANPILOT_LLM_PREFERRED_PROVIDER=gemini
//   - PLANPILOT_SERVER_PORT=9090
//   - PLANPILOT_LOGGING_LEVEL=debug
//
// Provider credentials are usually supplied through the conventional
// environment variables instead of the config file:
//
//	export GROQ_API_KEY=gsk-...
//	export GEMINI_API_KEY=AIza...
//	export HF_API_KEY=hf_...
//
// A provider whose credential is absent from both sources is treated as
// permanently unavailable for the lifetime of the process.
//
// # Configuration Sections
//
//   - Server: HTTP listener address and timeouts
//   - LLM: provider order override plus per-provider endpoint/model/credential
//   - Logging: log level and console coloring
package config
