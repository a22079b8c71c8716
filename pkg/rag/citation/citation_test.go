package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sources(n int) []string {
	list := make([]string, n)
	for i := range list {
		list[i] = "source_" + string(rune('1'+i))
	}
	return list
}

func TestReconcile(t *testing.T) {
	cases := []struct {
		name       string
		answer     string
		sources    []string
		wantAnswer string
		wantUsed   []string
	}{
		{
			name:       "renumber ascending",
			answer:     "A[2] and B[2][5]",
			sources:    sources(5),
			wantAnswer: "A[1] and B[1][2]",
			wantUsed:   []string{"source_2", "source_5"},
		},
		{
			name:       "ascending original order not appearance order",
			answer:     "先看[3]，再看[1]",
			sources:    sources(3),
			wantAnswer: "先看[2]，再看[1]",
			wantUsed:   []string{"source_1", "source_3"},
		},
		{
			name:       "no markers",
			answer:     "没有引用任何资料",
			sources:    sources(3),
			wantAnswer: "没有引用任何资料",
			wantUsed:   []string{},
		},
		{
			name:       "out of range markers untouched",
			answer:     "见[9]和[2]以及[0]",
			sources:    sources(3),
			wantAnswer: "见[9]和[1]以及[0]",
			wantUsed:   []string{"source_2"},
		},
		{
			name:       "only invalid markers",
			answer:     "见[7]",
			sources:    sources(3),
			wantAnswer: "见[7]",
			wantUsed:   []string{},
		},
		{
			name:       "no sources",
			answer:     "见[1]",
			sources:    nil,
			wantAnswer: "见[1]",
			wantUsed:   []string{},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			answer, used := Reconcile(c.answer, c.sources)
			assert.Equal(t, c.wantAnswer, answer)
			assert.Equal(t, c.wantUsed, used)
		})
	}
}

func TestCited(t *testing.T) {
	assert.Equal(t, []int{5, 2}, Cited("x[5] y[2] z[5] w[6]", 5))
	assert.Empty(t, Cited("[abc] [ 1 ]", 5))
}
