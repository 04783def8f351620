package delivery

import (
	"context"
	"sync"
	"time"
)

// SignalFunc 发送一次“正在处理”的状态信号，例如 Telegram 的 upload_document。
type SignalFunc func(ctx context.Context) error

// StartPresence 立即发送一次信号，之后每隔 interval 再发送一次，直到 stop 被调用或 ctx 结束。
// stop 可重复调用，返回时后台 goroutine 已退出。信号发送失败会被忽略。
func StartPresence(ctx context.Context, interval time.Duration, signal SignalFunc) (stop func()) {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = signal(loopCtx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				_ = signal(loopCtx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
