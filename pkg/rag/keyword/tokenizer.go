package keyword

import (
	"strings"
	"unicode"
)

func isCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

// Tokenize 中文按单字切分，连续的字母数字作为一个小写词，其余字符都是分隔符
func Tokenize(text string) []string {
	var (
		tokens []string
		word   strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, strings.ToLower(word.String()))
			word.Reset()
		}
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}
