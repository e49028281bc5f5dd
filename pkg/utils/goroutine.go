package utils

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// SafeGo запускает fn в горутине. Паника перехватывается и пишется в лог со стеком.
func SafeGo(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Паника в горутине",
					zap.String("goroutine", name),
					zap.String("panic", fmt.Sprintf("%v", r)),
					zap.String("stack", string(debug.Stack())),
				)
			}
		}()
		fn()
	}()
}
