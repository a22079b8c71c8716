package jina

// rerank provider, compatible with https://jina.ai/ and other
// services speaking the same {model, query, top_n, documents} protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"
	"github.com/sashabaranov/go-openai"

	"github.com/quka-ai/airag/pkg/ai"
)

const (
	NAME = "jina"

	DEFAULT_ENDPOINT = "https://api.jina.ai/v1/rerank"
)

type Driver struct {
	client   *http.Client
	token    string
	endpoint string
	model    string
}

func New(token, endpoint, model string, timeout time.Duration) *Driver {
	if endpoint == "" {
		endpoint = DEFAULT_ENDPOINT
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Driver{
		client:   &http.Client{Timeout: timeout},
		token:    token,
		endpoint: endpoint,
		model:    model,
	}
}

func (s *Driver) applyBaseHeader(req *http.Request) {
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", "Bearer "+s.token)
}

type RerankRequestBody struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	TopN      int      `json:"top_n"`
	Documents []string `json:"documents"`
}

type RerankResponse struct {
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Results []RerankResponseItem `json:"results"`
}

type RerankResponseItem struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

func (s *Driver) Rerank(ctx context.Context, query string, docs []*ai.RerankDoc) ([]ai.RankDocItem, *ai.Usage, error) {
	slog.Debug("Rerank", slog.String("driver", NAME), slog.Int("docs", len(docs)))

	request := RerankRequestBody{
		Model: s.model,
		Query: query,
		TopN:  len(docs),
		Documents: lo.Map(docs, func(item *ai.RerankDoc, _ int) string {
			return item.Content
		}),
	}

	raw, _ := json.Marshal(request)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, nil, err
	}
	s.applyBaseHeader(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("Failed to request rerank api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("Failed to request rerank api, %s", string(body))
	}

	var result RerankResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, nil, err
	}

	var rank []ai.RankDocItem
	for _, v := range result.Results {
		if v.Index < 0 || v.Index >= len(docs) {
			continue
		}
		rank = append(rank, ai.RankDocItem{
			ID:    docs[v.Index].ID,
			Score: v.RelevanceScore,
		})
	}

	return rank, &ai.Usage{
		Model: s.model,
		Usage: &openai.Usage{
			PromptTokens: result.Usage.TotalTokens,
		},
	}, nil
}
