package services

import (
	"context"
	"sync"
	"time"

	"oaforum/internal/logger"
)

// Runner 执行不影响主请求结果的副作用（积分、通知、推送、邮件）。
// 失败只记录日志
type Runner interface {
	Go(name string, fn func(ctx context.Context) error)
}

// AsyncRunner 在独立 goroutine 中执行任务，Wait 用于优雅退出
type AsyncRunner struct {
	log     *logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncRunner(log *logger.Logger) *AsyncRunner {
	return &AsyncRunner{log: log, timeout: 30 * time.Second}
}

func (r *AsyncRunner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("Background task panicked", "task", name, "panic", p)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			r.log.Warn("Background task failed", "task", name, "error", err)
		}
	}()
}

// Wait 等待所有已提交的任务结束
func (r *AsyncRunner) Wait() {
	r.wg.Wait()
}

// InlineRunner 同步执行，测试中使用以便断言副作用
type InlineRunner struct {
	Log *logger.Logger
}

func (r InlineRunner) Go(name string, fn func(ctx context.Context) error) {
	if err := fn(context.Background()); err != nil && r.Log != nil {
		r.Log.Warn("Background task failed", "task", name, "error", err)
	}
}
