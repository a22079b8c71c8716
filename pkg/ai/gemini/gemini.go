package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/api/option"

	"github.com/quka-ai/airag/pkg/ai"
)

const (
	NAME = "gemini"

	DEFAULT_CHAT_MODEL      = "gemini-1.5-flash"
	DEFAULT_EMBEDDING_MODEL = "text-embedding-004"
)

type Driver struct {
	client *genai.Client
	model  ai.ModelName
}

func New(ctx context.Context, token string, model ai.ModelName) (*Driver, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(token))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client, %w", err)
	}

	if model.ChatModel == "" {
		model.ChatModel = DEFAULT_CHAT_MODEL
	}
	if model.EmbeddingModel == "" {
		model.EmbeddingModel = DEFAULT_EMBEDDING_MODEL
	}

	return &Driver{
		client: client,
		model:  model,
	}, nil
}

func (s *Driver) Close() error {
	return s.client.Close()
}

func (s *Driver) Lang() string {
	return ai.MODEL_BASE_LANGUAGE_EN
}

func (s *Driver) embedding(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error) {
	slog.Debug("Embedding", slog.String("driver", NAME), slog.Int("count", len(content)))
	em := s.client.EmbeddingModel(s.model.EmbeddingModel)
	if title != "" {
		em.TaskType = genai.TaskTypeRetrievalDocument
	} else {
		em.TaskType = genai.TaskTypeRetrievalQuery
	}

	batch := em.NewBatch()
	for _, v := range content {
		if title != "" {
			batch = batch.AddContentWithTitle(title, genai.Text(v))
		} else {
			batch = batch.AddContent(genai.Text(v))
		}
	}

	result := ai.EmbeddingResult{Model: s.model.EmbeddingModel}
	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return result, fmt.Errorf("Error creating embedding: %w", err)
	}
	if len(res.Embeddings) != len(content) {
		return result, fmt.Errorf("Error creating embedding: expect %d vectors, got %d", len(content), len(res.Embeddings))
	}
	for _, v := range res.Embeddings {
		result.Data = append(result.Data, v.Values)
	}
	return result, nil
}

func (s *Driver) EmbeddingForQuery(ctx context.Context, content []string) (ai.EmbeddingResult, error) {
	return s.embedding(ctx, "", content)
}

func (s *Driver) EmbeddingForDocument(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error) {
	return s.embedding(ctx, title, content)
}

func (s *Driver) newModel(system string, temperature float32, maxTokens int) *genai.GenerativeModel {
	model := s.client.GenerativeModel(s.model.ChatModel)
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	if temperature > 0 {
		model.SetTemperature(temperature)
	}
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}
	return model
}

func readText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response content")
	}
	if resp.Candidates[0].FinishReason != genai.FinishReasonStop {
		slog.Warn("gemini finished without stop", slog.String("reason", resp.Candidates[0].FinishReason.String()))
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

func readUsage(resp *genai.GenerateContentResponse) *openai.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return &openai.Usage{}
	}
	return &openai.Usage{
		PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
		CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
	}
}

func (s *Driver) Chat(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	var result ai.ChatResponse
	if len(req.Messages) == 0 {
		return result, errors.New("empty messages")
	}

	model := s.newModel(req.System, req.Temperature, req.MaxTokens)
	cs := model.StartChat()
	for _, v := range req.Messages[:len(req.Messages)-1] {
		role := "user"
		if v.Role == openai.ChatMessageRoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(v.Content)}})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(req.Messages[len(req.Messages)-1].Content))
	if err != nil {
		return result, fmt.Errorf("Completion error: %w", err)
	}

	if result.Content, err = readText(resp); err != nil {
		return result, err
	}
	result.Model = s.model.ChatModel
	result.Usage = readUsage(resp)
	return result, nil
}

// Decide 使用 gemini 的 json 输出模式代替 function call
func (s *Driver) Decide(ctx context.Context, req ai.DecisionRequest) (string, error) {
	model := s.newModel(req.System, req.Temperature, 0)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = convertSchema(req.Schema)

	resp, err := model.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return "", fmt.Errorf("Completion error: %w", err)
	}
	return readText(resp)
}

func convertSchema(def jsonschema.Definition) *genai.Schema {
	schema := &genai.Schema{
		Description: def.Description,
		Enum:        def.Enum,
		Required:    def.Required,
	}
	switch def.Type {
	case jsonschema.Object:
		schema.Type = genai.TypeObject
		schema.Properties = make(map[string]*genai.Schema, len(def.Properties))
		for k, v := range def.Properties {
			schema.Properties[k] = convertSchema(v)
		}
	case jsonschema.Array:
		schema.Type = genai.TypeArray
		if def.Items != nil {
			schema.Items = convertSchema(*def.Items)
		}
	case jsonschema.Number:
		schema.Type = genai.TypeNumber
	case jsonschema.Integer:
		schema.Type = genai.TypeInteger
	case jsonschema.Boolean:
		schema.Type = genai.TypeBoolean
	default:
		schema.Type = genai.TypeString
		if len(def.Enum) > 0 {
			schema.Format = "enum"
		}
	}
	return schema
}
