package breaker

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// gate 并发容量门控（内部使用）。
//
// 限制同时在途的调用数，与熔断状态无关。获准的调用必须且只能
// 释放一次；释放由执行管线的单一 defer 保证，即使被保护操作在
// 超时后仍未返回，槽位也会随管线退出立即归还。
type gate struct {
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

func newGate(capacity int) *gate {
	return &gate{sem: semaphore.NewWeighted(int64(capacity))}
}

// tryAcquire 非阻塞获取一个槽位。
func (g *gate) tryAcquire() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.inFlight.Add(1)
	return true
}

// release 归还一个槽位，只能对获准的调用调用一次。
func (g *gate) release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// pending 当前在途调用数。
func (g *gate) pending() int64 {
	return g.inFlight.Load()
}
