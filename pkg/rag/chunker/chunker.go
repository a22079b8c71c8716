package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/i18n"
	"github.com/quka-ai/airag/pkg/types"
)

const (
	DEFAULT_LARGE_CHUNK_SIZE = 1024
	DEFAULT_SMALL_CHUNK_SIZE = 256
	DEFAULT_OVERLAP          = 50

	paragraphSeparator = "\n\n"
)

type Options struct {
	LargeChunkSize int
	SmallChunkSize int
	// Overlap 只做配置透传，分块之间不重叠
	Overlap int
}

func (o Options) withDefault() Options {
	if o.LargeChunkSize <= 0 {
		o.LargeChunkSize = DEFAULT_LARGE_CHUNK_SIZE
	}
	if o.SmallChunkSize <= 0 {
		o.SmallChunkSize = DEFAULT_SMALL_CHUNK_SIZE
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	return o
}

// Chunker 层级分块：大块用于返回上下文，小块用于索引
type Chunker struct {
	opts Options
}

func New(opts Options) *Chunker {
	return &Chunker{opts: opts.withDefault()}
}

func (c *Chunker) Options() Options {
	return c.opts
}

// Chunk 切分文档，返回按阅读顺序排列的小块，每个小块携带所属大块
func (c *Chunker) Chunk(knowledgeID, text string) ([]types.Chunk, error) {
	larges := pack(ParseUnits(text), c.opts.LargeChunkSize, true)

	var chunks []types.Chunk
	for largeIdx, large := range larges {
		smalls := pack(ParseUnits(large), c.opts.SmallChunkSize, false)
		for smallIdx, small := range smalls {
			chunks = append(chunks, types.Chunk{
				ID:               types.ChunkID(knowledgeID, largeIdx, smallIdx),
				KnowledgeID:      knowledgeID,
				SmallText:        small,
				LargeText:        large,
				LargeIndex:       largeIdx,
				SmallIndex:       smallIdx,
				TotalLargeChunks: len(larges),
			})
		}
	}

	if len(chunks) == 0 {
		return nil, errors.New("Chunker.Chunk", i18n.ERROR_EMPTY_DOCUMENT,
			fmt.Errorf("%w: knowledge %s produced no chunks", errors.ErrValidation, knowledgeID))
	}
	return chunks, nil
}

// Split 按语义单元拼接到 size 左右，不做标题强制断块
func Split(text string, size int) []string {
	return pack(ParseUnits(text), size, false)
}

func pack(units []Unit, size int, headingBreak bool) []string {
	var (
		blocks []string
		cur    string
	)
	flush := func() {
		if s := strings.TrimSpace(cur); s != "" {
			blocks = append(blocks, s)
		}
		cur = ""
	}

	for _, u := range units {
		// 一二级标题总是开启新的大块，保证章节不跨块
		if headingBreak && u.Kind == UnitHeading && u.Level <= 2 {
			flush()
		}

		n := utf8.RuneCountInString(u.Text)
		if cur == "" && n <= size {
			cur = u.Text
			continue
		}
		if cur != "" && utf8.RuneCountInString(cur)+n+len(paragraphSeparator) <= size {
			cur += paragraphSeparator + u.Text
			continue
		}

		flush()
		if n > size && !u.Atomic() {
			blocks = append(blocks, SplitSentences(u.Text, size)...)
			continue
		}
		cur = u.Text
	}
	flush()

	return blocks
}

func isTerminator(r rune) bool {
	switch r {
	case '。', '！', '？', '.', '!', '?':
		return true
	}
	return false
}

// SplitSentences 按中英文句末标点切句，标点保留在句子末尾，再把句子拼到 size 以内
func SplitSentences(text string, size int) []string {
	var (
		sentences []string
		start     int
	)
	for i, r := range text {
		if isTerminator(r) {
			end := i + utf8.RuneLen(r)
			sentences = append(sentences, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}

	var (
		chunks []string
		buf    string
	)
	flush := func() {
		if s := strings.TrimSpace(buf); s != "" {
			chunks = append(chunks, s)
		}
		buf = ""
	}
	for _, sentence := range sentences {
		n := utf8.RuneCountInString(sentence)
		if utf8.RuneCountInString(buf)+n <= size {
			buf += sentence
			continue
		}
		flush()
		if n > size {
			// 没有句末标点的超长句按字符数切开，内容不丢弃
			chunks = append(chunks, hardSplit(sentence, size)...)
			continue
		}
		buf = sentence
	}
	flush()

	return chunks
}

func hardSplit(text string, size int) []string {
	var (
		parts []string
		runes = []rune(text)
	)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
