package breaker

import "time"

// Listener 生命周期事件监听器接口，每个事件对应一个方法。
//
// 所有事件都是纯信息性的：监听器的行为（包括 panic 之外的任何返回）
// 不会影响熔断器的控制流。如果只关心少数事件，可以内嵌 NoopListener：
//
//	type openLogger struct {
//		breaker.NoopListener
//	}
//
//	func (openLogger) OnOpen(name string) { log.Printf("%s opened", name) }
type Listener interface {
	// OnFire 每次调用进入熔断器时触发
	OnFire(name string)
	// OnSuccess 被保护操作成功完成时触发
	OnSuccess(name string, latency time.Duration)
	// OnFailure 被保护操作失败时触发（被 ErrorFilter 忽略的失败除外）
	OnFailure(name string, err error, latency time.Duration)
	// OnTimeout 被保护操作超时时触发
	OnTimeout(name string, latency time.Duration)
	// OnReject 调用因熔断打开（或半开探测占用中）或熔断器已关闭
	// 被拒绝时触发；容量拒绝只触发 OnSemaphoreLocked
	OnReject(name string)
	// OnOpen 状态机进入 Open 时触发，每次转换恰好一次
	OnOpen(name string)
	// OnClose 状态机回到 Closed 时触发，每次转换恰好一次
	OnClose(name string)
	// OnHalfOpen 状态机进入 HalfOpen 时触发，每次转换恰好一次
	OnHalfOpen(name string)
	// OnFallback 降级函数（含默认降级）被调用时触发
	OnFallback(name string, err error)
	// OnCacheHit 结果缓存命中时触发
	OnCacheHit(name string)
	// OnCacheMiss 启用缓存但未命中时触发
	OnCacheMiss(name string)
	// OnSemaphoreLocked 并发容量耗尽导致拒绝时触发
	OnSemaphoreLocked(name string)
	// OnShutdown 熔断器关闭时触发，仅一次
	OnShutdown(name string)
}

// NoopListener 空实现，可内嵌后只覆盖感兴趣的事件。
type NoopListener struct{}

func (NoopListener) OnFire(name string)                                      {}
func (NoopListener) OnSuccess(name string, latency time.Duration)            {}
func (NoopListener) OnFailure(name string, err error, latency time.Duration) {}
func (NoopListener) OnTimeout(name string, latency time.Duration)            {}
func (NoopListener) OnReject(name string)                                    {}
func (NoopListener) OnOpen(name string)                                      {}
func (NoopListener) OnClose(name string)                                     {}
func (NoopListener) OnHalfOpen(name string)                                  {}
func (NoopListener) OnFallback(name string, err error)                       {}
func (NoopListener) OnCacheHit(name string)                                  {}
func (NoopListener) OnCacheMiss(name string)                                 {}
func (NoopListener) OnSemaphoreLocked(name string)                           {}
func (NoopListener) OnShutdown(name string)                                  {}

// notifier 将事件扇出给全部已注册监听器（内部使用）。
type notifier struct {
	name      string
	listeners []Listener
}

func newNotifier(name string, listeners []Listener) *notifier {
	return &notifier{name: name, listeners: listeners}
}

func (n *notifier) fire() {
	for _, l := range n.listeners {
		l.OnFire(n.name)
	}
}

func (n *notifier) success(latency time.Duration) {
	for _, l := range n.listeners {
		l.OnSuccess(n.name, latency)
	}
}

func (n *notifier) failure(err error, latency time.Duration) {
	for _, l := range n.listeners {
		l.OnFailure(n.name, err, latency)
	}
}

func (n *notifier) timeout(latency time.Duration) {
	for _, l := range n.listeners {
		l.OnTimeout(n.name, latency)
	}
}

func (n *notifier) reject() {
	for _, l := range n.listeners {
		l.OnReject(n.name)
	}
}

func (n *notifier) stateChange(to State) {
	switch to {
	case StateOpen:
		for _, l := range n.listeners {
			l.OnOpen(n.name)
		}
	case StateClosed:
		for _, l := range n.listeners {
			l.OnClose(n.name)
		}
	case StateHalfOpen:
		for _, l := range n.listeners {
			l.OnHalfOpen(n.name)
		}
	}
}

func (n *notifier) fallback(err error) {
	for _, l := range n.listeners {
		l.OnFallback(n.name, err)
	}
}

func (n *notifier) cacheHit() {
	for _, l := range n.listeners {
		l.OnCacheHit(n.name)
	}
}

func (n *notifier) cacheMiss() {
	for _, l := range n.listeners {
		l.OnCacheMiss(n.name)
	}
}

func (n *notifier) semaphoreLocked() {
	for _, l := range n.listeners {
		l.OnSemaphoreLocked(n.name)
	}
}

func (n *notifier) shutdown() {
	for _, l := range n.listeners {
		l.OnShutdown(n.name)
	}
}
