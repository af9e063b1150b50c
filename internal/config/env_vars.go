package config

import (
	"os"
)

const (
	passwordEnvVar = "TABLEAU_PASSWORD"
	configEnvVar   = "PAT_CONFIG"
	appNameVar     = "APP_NAME"
)

// GetConfigPath returns the config file path, honouring PAT_CONFIG.
func GetConfigPath() string {
	return GetEnv(configEnvVar, DefaultConfigFile)
}

func GetAppName() string {
	return GetEnv(appNameVar, "PAT Provisioner")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
