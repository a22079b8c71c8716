package srv

import (
	"context"
	"fmt"
	"time"

	"github.com/quka-ai/airag/pkg/ai"
	"github.com/quka-ai/airag/pkg/ai/gemini"
	"github.com/quka-ai/airag/pkg/ai/jina"
	"github.com/quka-ai/airag/pkg/ai/openai"
	"github.com/quka-ai/airag/pkg/config"
)

const (
	PROVIDER_OPENAI = openai.NAME
	PROVIDER_GEMINI = "gemini"
)

// AIDriver 对话 + 结构化决策 + 向量化，rerank 可选
type AIDriver interface {
	ai.ChatModel
	ai.Decider
	ai.Embedder
}

type AIConfig struct {
	// openai | gemini
	Provider string      `toml:"provider"`
	Agent    AgentDriver `toml:"agent"`
	Jina     Jina        `toml:"jina"`

	ChatTimeout      time.Duration `toml:"-"`
	EmbeddingTimeout time.Duration `toml:"-"`
}

type AgentDriver struct {
	Token          string `toml:"token"`
	Endpoint       string `toml:"endpoint"`
	ChatModel      string `toml:"chat_model"`
	EmbeddingModel string `toml:"embedding_model"`
}

type Jina struct {
	Token       string        `toml:"token"`
	ApiEndpoint string        `toml:"api_endpoint"`
	Model       string        `toml:"model"`
	Timeout     time.Duration `toml:"timeout"`
}

func (c *AIConfig) FromENV() {
	c.Provider = config.GetEnv("ai_provider", "")
	c.Agent.Token = config.GetEnv("ai_token", "")
	c.Agent.Endpoint = config.GetEnv("ai_endpoint", "")
	c.Agent.ChatModel = config.GetEnv("ai_chat_model", "")
	c.Agent.EmbeddingModel = config.GetEnv("ai_embedding_model", "")
	c.Jina.Token = config.GetEnv("jina_token", "")
	c.Jina.Model = config.GetEnv("jina_model", "")
}

type AI struct {
	driver AIDriver
	rerank ai.Reranker

	chatTimeout      time.Duration
	embeddingTimeout time.Duration
}

func SetupAI(ctx context.Context, cfg AIConfig) (*AI, error) {
	model := ai.ModelName{
		ChatModel:      cfg.Agent.ChatModel,
		EmbeddingModel: cfg.Agent.EmbeddingModel,
	}

	a := &AI{
		chatTimeout:      cfg.ChatTimeout,
		embeddingTimeout: cfg.EmbeddingTimeout,
	}

	switch cfg.Provider {
	case PROVIDER_OPENAI, "":
		a.driver = openai.New(cfg.Agent.Token, cfg.Agent.Endpoint, model)
	case PROVIDER_GEMINI:
		d, err := gemini.New(ctx, cfg.Agent.Token, model)
		if err != nil {
			return nil, err
		}
		a.driver = d
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}

	if cfg.Jina.Token != "" {
		a.rerank = jina.New(cfg.Jina.Token, cfg.Jina.ApiEndpoint, cfg.Jina.Model, cfg.Jina.Timeout)
	}
	return a, nil
}

// NewAI 直接使用给定的能力实现，测试和内存模式使用
func NewAI(driver AIDriver, rerank ai.Reranker) *AI {
	return &AI{driver: driver, rerank: rerank}
}

func (s *AI) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func (s *AI) Lang() string {
	return s.driver.Lang()
}

func (s *AI) Chat(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	ctx, cancel := s.withTimeout(ctx, s.chatTimeout)
	defer cancel()
	return s.driver.Chat(ctx, req)
}

func (s *AI) Decide(ctx context.Context, req ai.DecisionRequest) (string, error) {
	ctx, cancel := s.withTimeout(ctx, s.chatTimeout)
	defer cancel()
	return s.driver.Decide(ctx, req)
}

func (s *AI) EmbeddingForQuery(ctx context.Context, content []string) (ai.EmbeddingResult, error) {
	ctx, cancel := s.withTimeout(ctx, s.embeddingTimeout)
	defer cancel()
	return s.driver.EmbeddingForQuery(ctx, content)
}

func (s *AI) EmbeddingForDocument(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error) {
	ctx, cancel := s.withTimeout(ctx, s.embeddingTimeout)
	defer cancel()
	return s.driver.EmbeddingForDocument(ctx, title, content)
}

// Reranker 未配置时返回 nil，由 rerank 组件走降级逻辑
func (s *AI) Reranker() ai.Reranker {
	return s.rerank
}

// Status 各能力的可用情况
func (s *AI) Status() map[string]interface{} {
	if s == nil || s.driver == nil {
		return map[string]interface{}{
			"status": "not_initialized",
		}
	}
	return map[string]interface{}{
		"status":           "running",
		"chat_available":   true,
		"embed_available":  true,
		"rerank_available": s.rerank != nil,
	}
}
