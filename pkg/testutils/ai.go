package testutils

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/quka-ai/airag/pkg/ai"
)

const FAKE_EMBEDDING_DIMENSIONS = 64

// FakeEmbedder 按字符哈希生成确定性的归一化向量，字面相近的文本距离更近
type FakeEmbedder struct {
	Err   error
	mu    sync.Mutex
	Calls int
}

func Embed(text string) []float32 {
	vec := make([]float32, FAKE_EMBEDDING_DIMENSIONS)
	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(string(r)))
		vec[h.Sum32()%FAKE_EMBEDDING_DIMENSIONS] += 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func (e *FakeEmbedder) embed(content []string) (ai.EmbeddingResult, error) {
	e.mu.Lock()
	e.Calls++
	e.mu.Unlock()

	if e.Err != nil {
		return ai.EmbeddingResult{}, e.Err
	}
	result := ai.EmbeddingResult{Model: "fake-embedding"}
	for _, v := range content {
		result.Data = append(result.Data, Embed(v))
	}
	return result, nil
}

func (e *FakeEmbedder) EmbeddingForQuery(ctx context.Context, content []string) (ai.EmbeddingResult, error) {
	return e.embed(content)
}

func (e *FakeEmbedder) EmbeddingForDocument(ctx context.Context, title string, content []string) (ai.EmbeddingResult, error) {
	return e.embed(content)
}

// FakeChat 记录请求，按 Reply 返回结果
type FakeChat struct {
	Reply func(req ai.ChatRequest) (string, error)

	mu       sync.Mutex
	Requests []ai.ChatRequest
}

func (c *FakeChat) Lang() string {
	return ai.MODEL_BASE_LANGUAGE_CN
}

func (c *FakeChat) Chat(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	c.mu.Lock()
	c.Requests = append(c.Requests, req)
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return ai.ChatResponse{}, err
	}
	if c.Reply == nil {
		return ai.ChatResponse{Content: "ok", Model: "fake-chat"}, nil
	}
	content, err := c.Reply(req)
	if err != nil {
		return ai.ChatResponse{}, err
	}
	return ai.ChatResponse{Content: content, Model: "fake-chat"}, nil
}

type FakeDecider struct {
	Raw string
	Err error
	// Block 阻塞直到 ctx 结束，用于测试超时
	Block bool
}

func (d *FakeDecider) Decide(ctx context.Context, req ai.DecisionRequest) (string, error) {
	if d.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return d.Raw, d.Err
}

// FakeReranker 按 Scores[文档内容] 打分，未配置的内容得 0
type FakeReranker struct {
	Scores map[string]float64
	Err    error
	Docs   []*ai.RerankDoc
}

func (r *FakeReranker) Rerank(ctx context.Context, query string, docs []*ai.RerankDoc) ([]ai.RankDocItem, *ai.Usage, error) {
	r.Docs = docs
	if r.Err != nil {
		return nil, nil, r.Err
	}
	var items []ai.RankDocItem
	for _, d := range docs {
		items = append(items, ai.RankDocItem{ID: d.ID, Score: r.Scores[d.Content]})
	}
	return items, &ai.Usage{Model: "fake-rerank"}, nil
}

var ErrFake = fmt.Errorf("fake capability failure")

// FakeAI 组合以上 fake，满足 srv.AIDriver
type FakeAI struct {
	*FakeChat
	*FakeDecider
	*FakeEmbedder
}

func NewFakeAI() *FakeAI {
	return &FakeAI{
		FakeChat:     &FakeChat{},
		FakeDecider:  &FakeDecider{Raw: `{"intent":"DETAIL","confidence":0.9,"reasoning":"fake"}`},
		FakeEmbedder: &FakeEmbedder{},
	}
}
