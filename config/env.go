package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvChainID     = "ROUTEGAS_CHAIN_ID"
	EnvRPCEndpoint = "ROUTEGAS_RPC_ENDPOINT"
	EnvPoolsFile   = "ROUTEGAS_POOLS_FILE"
	EnvGasPriceWei = "ROUTEGAS_GAS_PRICE_WEI"
	EnvMaxHops     = "ROUTEGAS_MAX_HOPS"
)

// LoadEnv loads environment variables from the given .env files, or ./.env.
// Missing files are ignored; variables already set are never overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetRequiredEnv returns an environment variable or an error when it is unset
func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("environment variable %s is required", key)
	}
	return value, nil
}
