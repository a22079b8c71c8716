package core

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/quka-ai/airag/app/core/srv"
	"github.com/quka-ai/airag/pkg/config"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}
	conf.RAG = conf.RAG.WithDefault()

	return *conf
}

func LoadBaseConfigFromENV() CoreConfig {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("failed to load .env file", slog.String("error", err.Error()))
	}
	var c CoreConfig
	c.FromENV()
	c.RAG = c.RAG.WithDefault()
	return c
}

type CoreConfig struct {
	Addr          string              `toml:"addr"`
	Log           Log                 `toml:"log"`
	Postgres      PGConfig            `toml:"postgres"`
	Redis         RedisConfig         `toml:"redis"`
	ObjectStorage ObjectStorageDriver `toml:"object_storage"`

	AI  srv.AIConfig `toml:"ai"`
	RAG RAGConfig    `toml:"rag"`

	Semaphore SemaphoreConfig `toml:"semaphore"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

type ObjectStorageDriver struct {
	Driver string    `toml:"driver"`
	S3     *S3Config `toml:"s3"`
}

type S3Config struct {
	Bucket        string        `toml:"bucket"`
	Region        string        `toml:"region"`
	Endpoint      string        `toml:"endpoint"`
	AccessKey     string        `toml:"access_key"`
	SecretKey     string        `toml:"secret_key"`
	UsePathStyle  bool          `toml:"use_path_style"`
	PresignExpire time.Duration `toml:"presign_expire"`
}

const (
	VECTOR_STORE_POSTGRES = "postgres"
	VECTOR_STORE_MEMORY   = "memory"
)

// RAGConfig 检索相关参数，零值在加载时替换为默认值
type RAGConfig struct {
	LargeChunkSize       int     `toml:"large_chunk_size"`
	SmallChunkSize       int     `toml:"small_chunk_size"`
	Overlap              int     `toml:"overlap"`
	SummaryChunkSize     int     `toml:"summary_chunk_size"`
	SummaryFallbackChars int     `toml:"summary_fallback_chars"`
	RelevanceThreshold   float64 `toml:"relevance_threshold"`
	RerankThreshold      float64 `toml:"rerank_threshold"`
	RerankMaxChars       int     `toml:"rerank_max_chars"`
	HistoryTurns         int     `toml:"history_turns"`
	HistoryMaxTokens     int     `toml:"history_max_tokens"`
	VectorStore          string  `toml:"vector_store"`

	LLMTimeout       time.Duration `toml:"llm_timeout"`
	EmbeddingTimeout time.Duration `toml:"embedding_timeout"`
	RerankTimeout    time.Duration `toml:"rerank_timeout"`
	RouterTimeout    time.Duration `toml:"router_timeout"`
}

func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		LargeChunkSize:       1024,
		SmallChunkSize:       256,
		Overlap:              50,
		SummaryChunkSize:     2000,
		SummaryFallbackChars: 500,
		RelevanceThreshold:   0.35,
		RerankThreshold:      0.3,
		RerankMaxChars:       2000,
		HistoryTurns:         6,
		HistoryMaxTokens:     4000,
		VectorStore:          VECTOR_STORE_POSTGRES,
		LLMTimeout:           60 * time.Second,
		EmbeddingTimeout:     30 * time.Second,
		RerankTimeout:        30 * time.Second,
		RouterTimeout:        15 * time.Second,
	}
}

// FromENV 只覆盖常用的检索参数，其余使用默认值
func (c *RAGConfig) FromENV() {
	c.VectorStore = config.GetEnv("vector_store", "")
	c.RelevanceThreshold = config.GetEnvFloat("relevance_threshold", 0)
	c.RerankThreshold = config.GetEnvFloat("rerank_threshold", 0)
	c.HistoryTurns = config.GetEnvInt("history_turns", 0)
	c.LLMTimeout = config.GetEnvDuration("llm_timeout", 0)
}

func (c RAGConfig) WithDefault() RAGConfig {
	d := DefaultRAGConfig()
	setDefault(&c.LargeChunkSize, d.LargeChunkSize)
	setDefault(&c.SmallChunkSize, d.SmallChunkSize)
	setDefault(&c.Overlap, d.Overlap)
	setDefault(&c.SummaryChunkSize, d.SummaryChunkSize)
	setDefault(&c.SummaryFallbackChars, d.SummaryFallbackChars)
	setDefault(&c.RelevanceThreshold, d.RelevanceThreshold)
	setDefault(&c.RerankThreshold, d.RerankThreshold)
	setDefault(&c.RerankMaxChars, d.RerankMaxChars)
	setDefault(&c.HistoryTurns, d.HistoryTurns)
	setDefault(&c.HistoryMaxTokens, d.HistoryMaxTokens)
	setDefault(&c.VectorStore, d.VectorStore)
	setDefault(&c.LLMTimeout, d.LLMTimeout)
	setDefault(&c.EmbeddingTimeout, d.EmbeddingTimeout)
	setDefault(&c.RerankTimeout, d.RerankTimeout)
	setDefault(&c.RouterTimeout, d.RouterTimeout)
	return c
}

func setDefault[T comparable](v *T, d T) {
	var zero T
	if *v == zero {
		*v = d
	}
}

type SemaphoreConfig struct {
	Knowledge KnowledgeSemaphoreConfig `toml:"knowledge"`
}

type KnowledgeSemaphoreConfig struct {
	IngestMaxConcurrency int `toml:"ingest_max_concurrency"` // 入库最大并发数，默认 4
}

// RateLimitConfig 每个用户每分钟允许的请求数
type RateLimitConfig struct {
	ChatPerMinute   int `toml:"chat_per_minute"`
	IngestPerMinute int `toml:"ingest_per_minute"`
}

func (c *CoreConfig) FromENV() {
	c.Addr = config.GetEnv("service_address", "")
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
	c.AI.FromENV()
	c.RAG.FromENV()
	c.Semaphore.Knowledge.IngestMaxConcurrency = config.GetEnvInt("ingest_max_concurrency", 0)
	c.RateLimit.ChatPerMinute = config.GetEnvInt("chat_per_minute", 0)
	c.RateLimit.IngestPerMinute = config.GetEnvInt("ingest_per_minute", 0)

	if endpoint := config.GetEnv("s3_endpoint", ""); endpoint != "" {
		c.ObjectStorage.Driver = "s3"
		c.ObjectStorage.S3 = &S3Config{
			Endpoint:      endpoint,
			Bucket:        config.GetEnv("s3_bucket", ""),
			Region:        config.GetEnv("s3_region", ""),
			AccessKey:     config.GetEnv("s3_access_key", ""),
			SecretKey:     config.GetEnv("s3_secret_key", ""),
			UsePathStyle:  config.GetEnvBool("s3_path_style", false),
			PresignExpire: config.GetEnvDuration("s3_presign_expire", 0),
		}
	}
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = config.GetEnv("postgresql_dsn", "")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type RedisConfig struct {
	Addr     string `toml:"addr"`     // Redis地址，格式: host:port
	Password string `toml:"password"` // Redis密码
	DB       int    `toml:"db"`       // Redis数据库索引 (0-15)

	// 集群模式配置
	Cluster      bool     `toml:"cluster"`
	ClusterAddrs []string `toml:"cluster_addrs"`

	KeyPrefix string `toml:"key_prefix"` // Redis键前缀，用于隔离不同环境/应用
}

func (r *RedisConfig) FromENV() {
	r.Addr = config.GetEnv("redis_addr", "")
	r.Password = config.GetEnv("redis_password", "")
	r.DB = config.GetEnvInt("redis_db", 0)
	r.KeyPrefix = config.GetEnv("redis_key_prefix", "")
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != "" || (r.Cluster && len(r.ClusterAddrs) > 0)
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = config.GetEnv("log_level", "")
	l.Path = config.GetEnv("log_path", "")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
