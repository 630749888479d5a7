package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads local secrets in priority order: .env.local
// (highest) then .env (lowest); a missing file is not an error.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// EnvMap reads every KEY=VALUE pair currently set for the given keys,
// skipping ones that aren't present. It is the bridge between
// LoadEnvFiles and Team.SetEnv.
func EnvMap(keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			out[k] = v
		}
	}
	return out
}
