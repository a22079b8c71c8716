package safe

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
)

// 堆栈最多保留的行数
const maxStackLines = 40

// Run 执行 fn，panic 会被恢复并记录日志
func Run(fn func()) {
	RunWithLog(fn, "safe.Run")
}

func RunWithLog(fn func(), component string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered",
				slog.Any("recover", r),
				slog.String("component", component),
				slog.String("stack", trimStack(debug.Stack())),
			)
		}
	}()

	fn()
}

// Go 在新的 goroutine 中执行 fn
func Go(component string, fn func()) {
	go RunWithLog(fn, component)
}

// Call 与 RunWithLog 类似，但把 panic 转成 error 返回给调用方
func Call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			slog.Error("panic recovered", slog.Any("recover", r), slog.String("stack", trimStack(debug.Stack())))
		}
	}()
	return fn()
}

func trimStack(stack []byte) string {
	lines := strings.Split(strings.TrimSpace(string(stack)), "\n")
	if len(lines) <= maxStackLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:maxStackLines], "\n") + "\n... (truncated)"
}
