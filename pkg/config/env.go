package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ENV_PREFIX 所有服务环境变量的统一前缀
const ENV_PREFIX = "AIRAG_"

// LoadDotEnv 读取 .env 文件到进程环境变量，已存在的变量不会被覆盖
// 文件不存在时直接忽略
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func key(name string) string {
	return ENV_PREFIX + strings.ToUpper(name)
}

// GetEnv 读取 AIRAG_{name}，不存在时返回默认值
func GetEnv(name, defaultValue string) string {
	if value := os.Getenv(key(name)); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvBool(name string, defaultValue bool) bool {
	if value := os.Getenv(key(name)); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func GetEnvInt(name string, defaultValue int) int {
	if value := os.Getenv(key(name)); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func GetEnvFloat(name string, defaultValue float64) float64 {
	if value := os.Getenv(key(name)); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvDuration 支持 time.ParseDuration 格式，如 30s
func GetEnvDuration(name string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key(name)); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
