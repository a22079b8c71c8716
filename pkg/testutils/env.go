package testutils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/joho/godotenv"
)

// LoadEnv loads the .env file from the project root directory
func LoadEnv() error {
	_, filename, _, _ := runtime.Caller(0)
	// pkg/testutils -> project root
	envPath := filepath.Join(filepath.Dir(filename), "..", "..", ".env")

	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(envPath)
}

// GetEnvOrDefault gets an environment variable with a default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// RequireEnv 加载 .env 后检查变量，缺失时跳过当前集成测试
func RequireEnv(t *testing.T, keys ...string) map[string]string {
	t.Helper()
	if err := LoadEnv(); err != nil {
		t.Fatalf("failed to load .env file: %v", err)
	}

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v := os.Getenv(key)
		if v == "" {
			t.Skipf("%s not set, skip integration test", key)
		}
		values[key] = v
	}
	return values
}
