package v1_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/quka-ai/airag/app/logic/v1"
	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/types"
)

func TestKnowledgeAddAndList(t *testing.T) {
	c, _ := NewCore()
	logic := v1.NewKnowledgeLogic(userCtx("u1"), c)

	res, err := logic.Add(v1.AddKnowledgeRequest{
		Name:          "redis.md",
		ContentBase64: "data:text/markdown;base64," + b64(redisDoc),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Greater(t, res.ChunksCount, 0)

	list, err := logic.List(nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.ID, list[0].ID)
	assert.Equal(t, types.KNOWLEDGE_SOURCE_PERSONAL, list[0].SourceType)
	assert.Equal(t, "md", list[0].FileType)
	assert.Equal(t, res.ChunksCount, list[0].ChunksCount)

	// 其他用户看不到个人资料
	other, err := v1.NewKnowledgeLogic(userCtx("u2"), c).List(nil)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestKnowledgeAddValidation(t *testing.T) {
	c, _ := NewCore()
	logic := v1.NewKnowledgeLogic(userCtx("u1"), c)

	tests := []struct {
		name string
		req  v1.AddKnowledgeRequest
	}{
		{name: "empty name", req: v1.AddKnowledgeRequest{Name: " ", ContentBase64: b64("hello")}},
		{name: "bad base64", req: v1.AddKnowledgeRequest{Name: "a.txt", ContentBase64: "%%%"}},
		{name: "empty content", req: v1.AddKnowledgeRequest{Name: "a.txt", ContentBase64: b64("  \n ")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := logic.Add(tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))
		})
	}

	total, err := c.Store().KnowledgeStore().Total(userCtx("u1"), types.ListKnowledgeOptions{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestKnowledgeAddFromCourse(t *testing.T) {
	c, _ := NewCore()
	logic := v1.NewKnowledgeLogic(systemCtx(), c)

	req := v1.AddCourseKnowledgeRequest{
		CourseID:   "c1",
		CourseName: "数据库原理",
		FileID:     "f1",
		FileName:   "redis.md",
		Content:    []byte(redisDoc),
	}
	res, err := logic.AddFromCourse(req)
	require.NoError(t, err)
	assert.Equal(t, types.CourseKnowledgeID("c1", "f1"), res.ID)
	assert.False(t, res.Skipped)

	again, err := logic.AddFromCourse(req)
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.Equal(t, res.ChunksCount, again.ChunksCount)

	k, err := c.Store().KnowledgeStore().Get(systemCtx(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SYSTEM_USER, k.OwnerID)
	assert.Equal(t, "数据库原理", k.CourseName)

	// 课程资料按 course_id 可见
	list, err := v1.NewKnowledgeLogic(userCtx("u1"), c).List([]string{"c1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, types.KNOWLEDGE_SOURCE_COURSE, list[0].SourceType)
}

func TestKnowledgeDelete(t *testing.T) {
	c, _ := NewCore()
	owner := v1.NewKnowledgeLogic(userCtx("u1"), c)
	res, err := owner.Add(v1.AddKnowledgeRequest{Name: "redis.md", ContentBase64: b64(redisDoc)})
	require.NoError(t, err)

	course, err := v1.NewKnowledgeLogic(systemCtx(), c).AddFromCourse(v1.AddCourseKnowledgeRequest{
		CourseID: "c1", FileID: "f1", FileName: "redis.txt", Content: []byte(redisDoc),
	})
	require.NoError(t, err)

	t.Run("other user", func(t *testing.T) {
		err := v1.NewKnowledgeLogic(userCtx("u2"), c).Delete(res.ID)
		require.Error(t, err)
		var ce *errors.CustomizedError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, http.StatusForbidden, ce.GetCode())
	})

	t.Run("course by user", func(t *testing.T) {
		err := owner.Delete(course.ID)
		require.Error(t, err)
		var ce *errors.CustomizedError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, http.StatusForbidden, ce.GetCode())
	})

	t.Run("owner", func(t *testing.T) {
		require.NoError(t, owner.Delete(res.ID))
		counts, err := c.Store().DetailIndexStore().CountByKnowledge(userCtx("u1"), []string{res.ID})
		require.NoError(t, err)
		assert.Zero(t, counts[res.ID])
	})

	t.Run("course by system", func(t *testing.T) {
		require.NoError(t, v1.NewKnowledgeLogic(systemCtx(), c).Delete(course.ID))
	})

	t.Run("missing", func(t *testing.T) {
		require.NoError(t, owner.Delete("not-exist"))
	})
}

func TestKnowledgeIngestAndStats(t *testing.T) {
	c, _ := NewCore()
	logic := v1.NewKnowledgeLogic(userCtx("u1"), c)

	n, err := logic.Ingest("k1", redisDoc, v1.IngestMeta{Name: "redis.md"})
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	stats, err := logic.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalKnowledge)
	assert.Equal(t, int64(n), stats.TotalDetailDocs)
	assert.Greater(t, stats.TotalSummaryDocs, int64(0))
	assert.True(t, stats.BM25Enabled)
	assert.Equal(t, v1.INDEX_STRATEGY_DUAL, stats.IndexStrategy)

	require.NoError(t, logic.Remove("k1"))
	stats, err = logic.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalKnowledge)
	assert.Zero(t, stats.TotalDetailDocs)
	assert.Zero(t, stats.TotalSummaryDocs)
}
