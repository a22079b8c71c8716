package register

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testKey struct{}

func TestApply(t *testing.T) {
	var got []string
	RegisterFunc[*[]string](testKey{}, func(s *[]string) { *s = append(*s, "a") })
	RegisterFunc[*[]string](testKey{}, func(s *[]string) { *s = append(*s, "b") })
	// 类型不匹配的回调被忽略
	RegisterFunc[int](testKey{}, func(int) {})

	n := Apply(testKey{}, &got)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b"}, got)
}
