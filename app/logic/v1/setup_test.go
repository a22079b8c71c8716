package v1_test

import (
	"context"
	"encoding/base64"
	"os"
	"testing"

	"github.com/quka-ai/airag/app/core"
	"github.com/quka-ai/airag/app/core/srv"
	v1 "github.com/quka-ai/airag/app/logic/v1"
	"github.com/quka-ai/airag/app/store/memstore"
	"github.com/quka-ai/airag/pkg/testutils"
	"github.com/quka-ai/airag/pkg/utils"
)

func TestMain(m *testing.M) {
	utils.SetupIDWorker(1)
	os.Exit(m.Run())
}

func NewCore() (*core.Core, *testutils.FakeAI) {
	fake := testutils.NewFakeAI()
	c := core.NewCore(core.CoreConfig{
		RAG: core.RAGConfig{VectorStore: core.VECTOR_STORE_MEMORY},
	}, memstore.New(), srv.NewAI(fake, nil), nil)
	return c, fake
}

func userCtx(user string) context.Context {
	return v1.WithUserClaims(context.Background(), v1.UserClaims{User: user})
}

func systemCtx() context.Context {
	return v1.WithUserClaims(context.Background(), v1.UserClaims{User: "course-service", Role: "system"})
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

const redisDoc = `# Redis 简介

Redis 是一个开源的内存数据库，常用作缓存和消息队列。

## 持久化

Redis 支持 RDB 快照和 AOF 日志两种持久化方式。`
