package main

import "github.com/xyproto/env/v2"

// Environment variables consulted by the assembler. Reading them
// through xyproto/env keeps the fallback-handling in one place instead of
// scattering os.Getenv/ok checks across the driver.
const (
	envSecureLogFile = "AS_SECURE_LOG_FILE"
	envDebugOptions  = "RC_DEBUG_OPTIONS"
)

// EnvConfig captures the environment-derived configuration for one run.
type EnvConfig struct {
	SecureLogFile string // target of .secure_log_unique
	DebugOptions  string // captured argv, later emitted as AT_APPLE_flags
	HasDebugOpts  bool
}

// LoadEnvConfig reads the two environment variables the assembler honors.
func LoadEnvConfig() EnvConfig {
	return EnvConfig{
		SecureLogFile: env.Str(envSecureLogFile, ""),
		DebugOptions:  env.Str(envDebugOptions, ""),
		HasDebugOpts:  env.Has(envDebugOptions),
	}
}
