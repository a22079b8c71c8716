package safe

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunRecover(t *testing.T) {
	assert.NotPanics(t, func() {
		Run(func() { panic("boom") })
	})
}

func TestGo(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	Go("test", func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()
}

func TestCall(t *testing.T) {
	err := Call(func() error { panic("boom") })
	assert.EqualError(t, err, "panic: boom")

	want := errors.New("plain")
	assert.Equal(t, want, Call(func() error { return want }))
}

func TestTrimStack(t *testing.T) {
	long := strings.Repeat("frame\n", maxStackLines*2)
	out := trimStack([]byte(long))
	assert.True(t, strings.HasSuffix(out, "(truncated)"))
	assert.Len(t, strings.Split(out, "\n"), maxStackLines+1)
}
