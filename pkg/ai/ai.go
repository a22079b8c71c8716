package ai

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

type ModelName struct {
	ChatModel      string `toml:"chat_model"`
	EmbeddingModel string `toml:"embedding_model"`
	RerankModel    string `toml:"rerank_model"`
}

const (
	MODEL_BASE_LANGUAGE_CN = "CN"
	MODEL_BASE_LANGUAGE_EN = "EN"
)

type Lang interface {
	Lang() string
}

type Usage struct {
	Model string
	Usage *openai.Usage
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	System      string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

type ChatResponse struct {
	Content string
	Model   string
	Usage   *openai.Usage
}

// ChatModel 对话能力，用于回答生成和块摘要
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	Lang
}

type EmbeddingResult struct {
	Data  [][]float32
	Model string
	Usage *openai.Usage
}

type Embedder interface {
	EmbeddingForQuery(ctx context.Context, content []string) (EmbeddingResult, error)
	EmbeddingForDocument(ctx context.Context, title string, content []string) (EmbeddingResult, error)
}

// DecisionRequest 结构化决策，模型按 Schema 输出 json
type DecisionRequest struct {
	System      string
	User        string
	FuncName    string
	Description string
	Schema      jsonschema.Definition
	Temperature float32
}

// Decider 返回模型输出的原始 json 参数，解析交给调用方
type Decider interface {
	Decide(ctx context.Context, req DecisionRequest) (string, error)
}

type RerankDoc struct {
	ID      string
	Content string
}

type RankDocItem struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type Reranker interface {
	Rerank(ctx context.Context, query string, docs []*RerankDoc) ([]RankDocItem, *Usage, error)
}

// FirstEmbedding 取单条 query 的向量
func FirstEmbedding(ctx context.Context, e Embedder, query string) ([]float32, error) {
	res, err := e.EmbeddingForQuery(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return res.Data[0], nil
}

func NumTokens(messages []openai.ChatCompletionMessage, model string) (numTokens int, err error) {
	var tokensPerMessage, tokensPerName int
	switch model {
	case "gpt-3.5-turbo-0613",
		"gpt-3.5-turbo-16k-0613",
		"gpt-4-0314",
		"gpt-4-32k-0314",
		"gpt-4-0613",
		"gpt-4-32k-0613":
		tokensPerMessage = 3
		tokensPerName = 1
	default:
		if strings.Contains(model, "gpt-4") {
			return NumTokens(messages, "gpt-4-0613")
		}
		return NumTokens(messages, "gpt-3.5-turbo-0613")
	}

	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		err = fmt.Errorf("encoding for model: %v", err)
		return
	}

	for _, message := range messages {
		numTokens += tokensPerMessage
		numTokens += len(tkm.Encode(message.Content, nil, nil))
		numTokens += len(tkm.Encode(message.Role, nil, nil))
		numTokens += len(tkm.Encode(message.Name, nil, nil))
		if message.Name != "" {
			numTokens += tokensPerName
		}
	}
	numTokens += 3
	return numTokens, nil
}

// EstimateTokens tiktoken 不可用(离线环境拿不到编码表)时按字符数估算，中文约一字一 token
func EstimateTokens(messages []openai.ChatCompletionMessage, model string) int {
	if n, err := NumTokens(messages, model); err == nil {
		return n
	}
	n := 3
	for _, m := range messages {
		n += 3 + utf8.RuneCountInString(m.Content)
	}
	return n
}
