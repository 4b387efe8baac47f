package config

import "os"

// Environment variable names.
const (
	EnvConfig = "SHANOIR_DOWNLOADER_CONFIG"
	// EnvPassword keeps the lower-case name used by existing Shanoir scripts.
	EnvPassword = "shanoir_password"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // SHANOIR_DOWNLOADER_CONFIG: override config file path
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// The password variable is deliberately not part of Settings; the token
// manager reads it at the moment it needs it.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
	}
}
