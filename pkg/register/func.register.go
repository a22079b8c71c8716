package register

import "sync"

// 按 key 收集 init 阶段注册的回调，供 store provider / process 在启动时统一执行
var (
	mu       sync.Mutex
	handlers = make(map[any][]any)
)

type Handler[T any] func(T)

func RegisterFunc[T any](key any, handler Handler[T]) {
	mu.Lock()
	defer mu.Unlock()
	handlers[key] = append(handlers[key], handler)
}

// ResolveFuncHandlers 按注册顺序返回类型匹配的回调
func ResolveFuncHandlers[T any](key any) []Handler[T] {
	mu.Lock()
	defer mu.Unlock()

	result := make([]Handler[T], 0, len(handlers[key]))
	for _, v := range handlers[key] {
		if h, ok := v.(Handler[T]); ok {
			result = append(result, h)
		}
	}
	return result
}

// Apply 依次执行 key 下的所有回调
func Apply[T any](key any, target T) int {
	hs := ResolveFuncHandlers[T](key)
	for _, h := range hs {
		h(target)
	}
	return len(hs)
}
