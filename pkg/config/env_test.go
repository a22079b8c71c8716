package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("AIRAG_REDIS_DB", "3")
	t.Setenv("AIRAG_S3_PATH_STYLE", "true")
	t.Setenv("AIRAG_RERANK_THRESHOLD", "0.42")
	t.Setenv("AIRAG_LLM_TIMEOUT", "5s")
	t.Setenv("AIRAG_HISTORY_TURNS", "abc")

	assert.Equal(t, 3, GetEnvInt("redis_db", 0))
	assert.True(t, GetEnvBool("s3_path_style", false))
	assert.Equal(t, 0.42, GetEnvFloat("rerank_threshold", 0))
	assert.Equal(t, 5*time.Second, GetEnvDuration("llm_timeout", 0))
	assert.Equal(t, 6, GetEnvInt("history_turns", 6))
	assert.Equal(t, "fallback", GetEnv("not_exist", "fallback"))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	assert.NoError(t, os.WriteFile(path, []byte("AIRAG_DOTENV_CASE=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("AIRAG_DOTENV_CASE") })

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", GetEnv("dotenv_case", ""))
}
