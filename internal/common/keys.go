package common

import (
	"context"
	"fmt"
	"os"

	"github.com/pd-experiments/vendere/internal/interfaces"
)

// ResolveAPIKey resolves an API key with the following priority:
// environment variable, KV store, config file fallback.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnv := map[string]string{
		"anthropic_api_key": "ANTHROPIC_API_KEY",
		"gemini_api_key":    "GEMINI_API_KEY",
	}

	if envName, ok := keyToEnv[name]; ok {
		if envValue := os.Getenv(envName); envValue != "" {
			return envValue, nil
		}
	}

	if kvStorage != nil {
		if value, err := kvStorage.Get(ctx, name); err == nil && value != "" {
			return value, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key %q not found in environment, KV store, or config", name)
}
