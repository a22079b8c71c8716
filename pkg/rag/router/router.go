// Package router classifies a question as DETAIL or GLOBAL and picks the
// retrieval parameters for it.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/quka-ai/airag/pkg/ai"
	"github.com/quka-ai/airag/pkg/rag"
	"github.com/quka-ai/airag/pkg/types"
)

const (
	DEFAULT_TIMEOUT = 10 * time.Second
	FUNC_NAME       = "classify_query"

	FALLBACK_REASON_ERROR   = "error"
	FALLBACK_REASON_TIMEOUT = "timeout"
	FALLBACK_REASON_PARSE   = "parse"
)

// Params 每种意图的检索参数
var Params = map[types.Intent]types.RetrievalParams{
	types.INTENT_DETAIL: {TopK: 5, VectorWeight: 0.7, KeywordWeight: 0.3, UseLargeChunk: true},
	types.INTENT_GLOBAL: {TopK: 3, VectorWeight: 0.9, KeywordWeight: 0.1, UseLargeChunk: false},
}

var schema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"intent": {
			Type:        jsonschema.String,
			Enum:        []string{string(types.INTENT_DETAIL), string(types.INTENT_GLOBAL)},
			Description: "查询类型",
		},
		"confidence": {
			Type:        jsonschema.Number,
			Description: "0 到 1 之间的置信度",
		},
		"reasoning": {
			Type:        jsonschema.String,
			Description: "简短的判断理由",
		},
	},
	Required: []string{"intent", "confidence", "reasoning"},
}

type Decision struct {
	Intent     types.Intent
	Params     types.RetrievalParams
	Confidence float64
	Reasoning  string
	Fallback   bool
}

type Router struct {
	decider  ai.Decider
	timeout  time.Duration
	observer rag.Observer
}

func New(decider ai.Decider, timeout time.Duration, observer rag.Observer) *Router {
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	return &Router{
		decider:  decider,
		timeout:  timeout,
		observer: rag.OrNop(observer),
	}
}

func SystemPrompt() string {
	intents := strings.Join([]string{ai.PROMPT_ROUTER_INTENT_DETAIL, ai.PROMPT_ROUTER_INTENT_GLOBAL}, "\n")
	return strings.ReplaceAll(ai.PROMPT_ROUTER_CN, "${intents}", intents)
}

type output struct {
	Intent     types.Intent `json:"intent"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning"`
}

// Route 不返回错误，分类失败时按关键字降级
func (r *Router) Route(ctx context.Context, query string) Decision {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.decider.Decide(ctx, ai.DecisionRequest{
		System:      SystemPrompt(),
		User:        query,
		FuncName:    FUNC_NAME,
		Description: "判断用户问题的检索类型",
		Schema:      schema,
		Temperature: 0.3,
	})
	if err != nil {
		reason := FALLBACK_REASON_ERROR
		if ctx.Err() != nil {
			reason = FALLBACK_REASON_TIMEOUT
		}
		return r.fallback(query, raw, reason, err)
	}

	var out output
	if err = json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return r.fallback(query, raw, FALLBACK_REASON_PARSE, err)
	}
	out.Intent = types.Intent(strings.ToUpper(string(out.Intent)))
	if !out.Intent.Valid() {
		return r.fallback(query, raw, FALLBACK_REASON_PARSE, fmt.Errorf("unknown intent %q", out.Intent))
	}

	return Decision{
		Intent:     out.Intent,
		Params:     Params[out.Intent],
		Confidence: out.Confidence,
		Reasoning:  out.Reasoning,
	}
}

func (r *Router) fallback(query, raw, reason string, err error) Decision {
	intent := types.INTENT_DETAIL
	if strings.Contains(strings.ToUpper(raw), "GLOBAL") || strings.Contains(raw, "摘要") || strings.Contains(raw, "总结") {
		intent = types.INTENT_GLOBAL
	}

	slog.Warn("query router fallback",
		slog.String("reason", reason),
		slog.String("intent", string(intent)),
		slog.String("query", query),
		slog.String("error", err.Error()))
	r.observer.RouterFallback(reason)

	return Decision{
		Intent:    intent,
		Params:    Params[intent],
		Reasoning: "fallback: " + reason,
		Fallback:  true,
	}
}
