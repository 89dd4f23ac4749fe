package utils

import (
	"os"
)

const (
	ENV string = "ENV"

	ENV_LOCAL string = "LOCAL"
	ENV_DEV   string = "DEV"
	ENV_PROD  string = "PROD"
)

const (
	CONFIG_FILE_PATH string = "CONFIG_FILE_PATH"
)

var envPrefix string

func SetEnvPrefix(prefix string) {
	envPrefix = prefix
}

func GetEnv() string {
	return os.Getenv(envPrefix + ENV)
}

func IsLocalEnv() bool {
	return GetEnv() == ENV_LOCAL
}

func IsDevEnv() bool {
	return GetEnv() == ENV_DEV
}

func IsProdEnv() bool {
	return GetEnv() == ENV_PROD
}

func GetConfigFilePath() string {
	return os.Getenv(envPrefix + CONFIG_FILE_PATH)
}
