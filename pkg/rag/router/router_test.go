package router

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quka-ai/airag/pkg/rag"
	"github.com/quka-ai/airag/pkg/testutils"
	"github.com/quka-ai/airag/pkg/types"
)

type fallbackRecorder struct {
	rag.NopObserver
	reasons []string
}

func (f *fallbackRecorder) RouterFallback(reason string) {
	f.reasons = append(f.reasons, reason)
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name     string
		decider  *testutils.FakeDecider
		intent   types.Intent
		fallback bool
		reason   string
	}{
		{
			name:    "detail",
			decider: &testutils.FakeDecider{Raw: `{"intent":"DETAIL","confidence":0.9,"reasoning":"具体概念"}`},
			intent:  types.INTENT_DETAIL,
		},
		{
			name:    "global lower case",
			decider: &testutils.FakeDecider{Raw: `{"intent":"global","confidence":0.8,"reasoning":"总结"}`},
			intent:  types.INTENT_GLOBAL,
		},
		{
			name:     "unparsable mentions summary",
			decider:  &testutils.FakeDecider{Raw: `这个问题需要总结全文`},
			intent:   types.INTENT_GLOBAL,
			fallback: true,
			reason:   FALLBACK_REASON_PARSE,
		},
		{
			name:     "unparsable lower case global",
			decider:  &testutils.FakeDecider{Raw: `this looks like a global question`},
			intent:   types.INTENT_GLOBAL,
			fallback: true,
			reason:   FALLBACK_REASON_PARSE,
		},
		{
			name:     "unknown intent",
			decider:  &testutils.FakeDecider{Raw: `{"intent":"OTHER","confidence":0.5}`},
			intent:   types.INTENT_DETAIL,
			fallback: true,
			reason:   FALLBACK_REASON_PARSE,
		},
		{
			name:     "error",
			decider:  &testutils.FakeDecider{Err: testutils.ErrFake},
			intent:   types.INTENT_DETAIL,
			fallback: true,
			reason:   FALLBACK_REASON_ERROR,
		},
		{
			name:     "timeout",
			decider:  &testutils.FakeDecider{Block: true},
			intent:   types.INTENT_DETAIL,
			fallback: true,
			reason:   FALLBACK_REASON_TIMEOUT,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &fallbackRecorder{}
			r := New(tt.decider, 20*time.Millisecond, recorder)

			d := r.Route(context.Background(), "什么是死锁？")
			assert.Equal(t, tt.intent, d.Intent)
			assert.Equal(t, Params[tt.intent], d.Params)
			assert.Equal(t, tt.fallback, d.Fallback)
			if tt.fallback {
				assert.Equal(t, []string{tt.reason}, recorder.reasons)
			} else {
				assert.Empty(t, recorder.reasons)
			}
		})
	}
}

func TestParams(t *testing.T) {
	assert.Equal(t, types.RetrievalParams{TopK: 5, VectorWeight: 0.7, KeywordWeight: 0.3, UseLargeChunk: true}, Params[types.INTENT_DETAIL])
	assert.Equal(t, types.RetrievalParams{TopK: 3, VectorWeight: 0.9, KeywordWeight: 0.1, UseLargeChunk: false}, Params[types.INTENT_GLOBAL])
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt()
	assert.NotContains(t, p, "${intents}")
	assert.True(t, strings.Contains(p, "DETAIL") && strings.Contains(p, "GLOBAL"))
}
