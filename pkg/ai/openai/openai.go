package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"

	"github.com/quka-ai/airag/pkg/ai"
)

const (
	NAME = "openai"

	EMBEDDING_DIMENSIONS = 1024
)

type Driver struct {
	client *openai.Client
	model  ai.ModelName
	lang   string
}

// New proxy 为空时使用官方地址，兼容 dashscope 等 openai 协议的服务
func New(token, proxy string, model ai.ModelName) *Driver {
	cfg := openai.DefaultConfig(token)
	if proxy != "" {
		cfg.BaseURL = proxy
	}

	if model.ChatModel == "" {
		model.ChatModel = openai.GPT4oMini
	}
	if model.EmbeddingModel == "" {
		model.EmbeddingModel = string(openai.LargeEmbedding3)
	}

	return &Driver{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		lang:   ai.MODEL_BASE_LANGUAGE_CN,
	}
}

func (s *Driver) Lang() string {
	return s.lang
}

func (s *Driver) embedding(ctx context.Context, content []string) (ai.EmbeddingResult, error) {
	slog.Debug("Embedding", slog.String("driver", NAME), slog.Int("count", len(content)))
	queryReq := openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(s.model.EmbeddingModel),
		Dimensions: EMBEDDING_DIMENSIONS,
	}

	r := ai.EmbeddingResult{
		Usage: &openai.Usage{},
	}
	// 部分服务商单次最多接受 6 条输入
	for _, group := range lo.Chunk(content, 6) {
		queryReq.Input = group
		resp, err := s.client.CreateEmbeddings(ctx, queryReq)
		if err != nil {
			return r, fmt.Errorf("Error creating embedding: %w", err)
		}
		if len(resp.Data) != len(group) {
			return r, fmt.Errorf("Error creating embedding: expect %d vectors, got %d", len(group), len(resp.Data))
		}
		for _, v := range resp.Data {
			r.Data = append(r.Data, v.Embedding)
		}

		r.Usage.CompletionTokens += resp.Usage.CompletionTokens
		r.Usage.PromptTokens += resp.Usage.PromptTokens
		r.Usage.TotalTokens += resp.Usage.TotalTokens
		r.Model = string(resp.Model)
	}

	return r, nil
}

func (s *Driver) EmbeddingForQuery(ctx context.Context, content []string) (ai.EmbeddingResult, error) {
	return s.embedding(ctx, content)
}

func (s *Driver) EmbeddingForDocument(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error) {
	return s.embedding(ctx, content)
}

func convertMessages(system string, messages []ai.Message) []openai.ChatCompletionMessage {
	var result []openai.ChatCompletionMessage
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, v := range messages {
		result = append(result, openai.ChatCompletionMessage{Role: v.Role, Content: v.Content})
	}
	return result
}

func (s *Driver) Chat(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	request := openai.ChatCompletionRequest{
		Model:       s.model.ChatModel,
		Messages:    convertMessages(req.System, req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var result ai.ChatResponse
	resp, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return result, fmt.Errorf("Completion error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return result, fmt.Errorf("Completion error: empty choices")
	}

	slog.Debug("Chat", slog.String("driver", NAME), slog.String("model", s.model.ChatModel), slog.Int("total_tokens", resp.Usage.TotalTokens))

	result.Content = resp.Choices[0].Message.Content
	result.Model = resp.Model
	result.Usage = &resp.Usage
	return result, nil
}

// Decide 通过 function call 让模型按 schema 输出，没有工具调用时退回消息正文
func (s *Driver) Decide(ctx context.Context, req ai.DecisionRequest) (string, error) {
	slog.Debug("Decide", slog.String("driver", NAME), slog.String("func", req.FuncName))

	f := openai.FunctionDefinition{
		Name:        req.FuncName,
		Description: req.Description,
		Parameters:  req.Schema,
	}
	t := openai.Tool{
		Type:     openai.ToolTypeFunction,
		Function: &f,
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model.ChatModel,
		Messages: convertMessages(req.System, []ai.Message{
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		}),
		Tools:       []openai.Tool{t},
		ToolChoice:  openai.ToolChoice{Type: openai.ToolTypeFunction, Function: openai.ToolFunction{Name: req.FuncName}},
		Temperature: req.Temperature,
	})
	if err != nil || len(resp.Choices) != 1 {
		return "", fmt.Errorf("Completion error: err:%v len(choices):%v", err, len(resp.Choices))
	}

	for _, v := range resp.Choices[0].Message.ToolCalls {
		if v.Function.Name == req.FuncName {
			return v.Function.Arguments, nil
		}
	}
	return resp.Choices[0].Message.Content, nil
}
