package chunker

import (
	"strconv"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/types"
)

const markdownDoc = "# 操作系统\r\n\r\n操作系统是管理计算机硬件与软件资源的程序。\r\n\r\n## 进程\r\n\r\n进程是资源分配的基本单位。\n\n- 就绪\n- 运行\n  继续运行的说明\n- 阻塞\n\n### 线程\n\n线程是调度的基本单位。\n\n```go\nfunc main() {\n\n\tprintln(\"hi\")\n}\n```\n\n| 状态 | 说明 |\n| --- | --- |\n| 就绪 | 等待 CPU |\n\n![调度图](minio://bucket/schedule.png)\n"

func TestParseUnits(t *testing.T) {
	units := ParseUnits(markdownDoc)

	kinds := lo.Map(units, func(u Unit, _ int) UnitKind { return u.Kind })
	assert.Equal(t, []UnitKind{
		UnitHeading, UnitParagraph,
		UnitHeading, UnitParagraph, UnitList,
		UnitHeading, UnitParagraph,
		UnitCode, UnitTable, UnitImage,
	}, kinds)

	assert.Equal(t, 1, units[0].Level)
	assert.Equal(t, 2, units[2].Level)
	assert.Equal(t, 3, units[5].Level)

	// 代码块内的空行不会切断代码块
	assert.Contains(t, units[7].Text, "println")
	assert.True(t, strings.HasSuffix(units[7].Text, "```"))
	// 列表续行归属列表
	assert.Contains(t, units[4].Text, "继续运行的说明")
	assert.Equal(t, 3, strings.Count(units[8].Text, "\n")+1)
}

func TestChunkEmptyDocument(t *testing.T) {
	c := New(Options{})
	for _, text := range []string{"", "   ", "\r\n\r\n\t"} {
		chunks, err := c.Chunk("kid", text)
		require.Error(t, err)
		assert.Nil(t, chunks)
		assert.True(t, errors.Is(err, errors.ErrValidation))
	}
}

func TestChunkHeadingBreak(t *testing.T) {
	c := New(Options{})

	chunks, err := c.Chunk("kid", "# A\n\npara one\n\n## B\n\npara two\n\n### C\n\npara three")
	require.NoError(t, err)

	larges := lo.Uniq(lo.Map(chunks, func(c types.Chunk, _ int) string { return c.LargeText }))
	require.Len(t, larges, 2)
	assert.Equal(t, "# A\n\npara one", larges[0])
	// 三级标题不强制断块
	assert.Equal(t, "## B\n\npara two\n\n### C\n\npara three", larges[1])

	for _, item := range chunks {
		assert.Equal(t, 2, item.TotalLargeChunks)
	}
}

func TestChunkIDs(t *testing.T) {
	c := New(Options{LargeChunkSize: 40, SmallChunkSize: 15})
	text := "第一段内容比较短。\n\n第二段内容稍微长一点点，超过小块。\n\n第三段。"

	first, err := c.Chunk("k1", text)
	require.NoError(t, err)
	second, err := c.Chunk("k1", text)
	require.NoError(t, err)

	ids := func(list []types.Chunk) []string {
		return lo.Map(list, func(c types.Chunk, _ int) string { return c.ID })
	}
	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, "k1_0_0", first[0].ID)

	for _, item := range first {
		assert.Equal(t, item.ID, strings.Join([]string{"k1", strconv.Itoa(item.LargeIndex), strconv.Itoa(item.SmallIndex)}, "_"))
		// 小块总是来自所属的大块
		assert.Contains(t, item.LargeText, item.SmallText)
	}
}

func TestChunkSentenceSplit(t *testing.T) {
	c := New(Options{LargeChunkSize: 12, SmallChunkSize: 6})

	chunks, err := c.Chunk("kid", "第一句话。第二句话！第三句话？")
	require.NoError(t, err)

	larges := lo.Uniq(lo.Map(chunks, func(c types.Chunk, _ int) string { return c.LargeText }))
	assert.Equal(t, []string{"第一句话。第二句话！", "第三句话？"}, larges)

	smalls := lo.Map(chunks, func(c types.Chunk, _ int) string { return c.SmallText })
	assert.Equal(t, []string{"第一句话。", "第二句话！", "第三句话？"}, smalls)
}

func TestChunkKeepsCodeAndTable(t *testing.T) {
	code := "```\n" + strings.Repeat("x := 1\n", 10) + "```"
	table := "| a | b |\n| --- | --- |\n| 1 | 2 |\n| 3 | 4 |"
	c := New(Options{LargeChunkSize: 20, SmallChunkSize: 10})

	chunks, err := c.Chunk("kid", code+"\n\n"+table)
	require.NoError(t, err)

	larges := lo.Uniq(lo.Map(chunks, func(c types.Chunk, _ int) string { return c.LargeText }))
	assert.Equal(t, []string{code, table}, larges)
	for _, item := range chunks {
		assert.Equal(t, item.LargeText, item.SmallText)
	}
}

func TestChunkCoverage(t *testing.T) {
	c := New(Options{LargeChunkSize: 120, SmallChunkSize: 40})
	chunks, err := c.Chunk("kid", markdownDoc)
	require.NoError(t, err)

	larges := lo.Uniq(lo.Map(chunks, func(c types.Chunk, _ int) string { return c.LargeText }))
	joined := strings.Join(larges, "\n\n")

	for _, u := range ParseUnits(markdownDoc) {
		found := lo.CountBy(larges, func(l string) bool { return strings.Contains(l, u.Text) })
		assert.Equal(t, 1, found, "unit %q", u.Text)
		assert.Contains(t, joined, u.Text)
	}
}

func TestSplitSentencesHardSplit(t *testing.T) {
	parts := SplitSentences(strings.Repeat("a", 25), 10)
	assert.Equal(t, []string{strings.Repeat("a", 10), strings.Repeat("a", 10), strings.Repeat("a", 5)}, parts)
	assert.Equal(t, strings.Repeat("a", 25), strings.Join(parts, ""))
}

func TestOverlapCarried(t *testing.T) {
	c := New(Options{Overlap: 50})
	assert.Equal(t, 50, c.Options().Overlap)
	assert.Equal(t, DEFAULT_LARGE_CHUNK_SIZE, c.Options().LargeChunkSize)
}
