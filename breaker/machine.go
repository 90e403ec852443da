package breaker

import (
	"sync"
	"time"
)

// transition 一次状态转换（内部使用）。
type transition struct {
	from State
	to   State
}

// stateMachine 熔断状态机（内部使用）。
//
// 所有状态变更都在 mu 保护下进行，保证并发调用不会重复转换；
// 转换回调在锁外触发，避免监听器回调引发死锁。
//
// Open → HalfOpen 由两条路径共同驱动：resetTimeout 到期的一次性
// 定时器，以及每次准入时的同步时间检查。后者保证即使定时器尚未
// 触发（或进程刚经历长时间停顿），到期后的第一个调用也能成为探测。
type stateMachine struct {
	mu           sync.Mutex
	state        State
	openedAt     time.Time
	resetTimeout time.Duration
	resetTimer   *time.Timer
	probeActive  bool
	stopped      bool

	// onTransition 在锁外被调用，每次转换恰好一次。
	onTransition func(tr transition)
}

func newStateMachine(resetTimeout time.Duration, onTransition func(transition)) *stateMachine {
	return &stateMachine{
		state:        StateClosed,
		resetTimeout: resetTimeout,
		onTransition: onTransition,
	}
}

// admit 判定一次调用能否通过状态机。
// 返回 (是否准入, 是否作为半开探测准入)。
func (m *stateMachine) admit() (allowed, probe bool) {
	var fired []transition

	m.mu.Lock()
	if m.state == StateOpen {
		if time.Since(m.openedAt) < m.resetTimeout {
			m.mu.Unlock()
			return false, false
		}
		fired = append(fired, m.toHalfOpenLocked())
	}

	switch m.state {
	case StateClosed:
		m.mu.Unlock()
		m.emit(fired)
		return true, false

	case StateHalfOpen:
		// 半开状态同一时刻只允许一个探测在途
		if m.probeActive {
			m.mu.Unlock()
			m.emit(fired)
			return false, false
		}
		m.probeActive = true
		m.mu.Unlock()
		m.emit(fired)
		return true, true

	default:
		m.mu.Unlock()
		m.emit(fired)
		return false, false
	}
}

// onSuccess 记录一次成功完成。探测成功使熔断器闭合。
func (m *stateMachine) onSuccess(probe bool) {
	if !probe {
		return
	}

	var fired []transition
	m.mu.Lock()
	if m.state == StateHalfOpen {
		fired = append(fired, m.toClosedLocked())
	}
	m.probeActive = false
	m.mu.Unlock()
	m.emit(fired)
}

// onFailure 记录一次失败或超时。探测失败使熔断器重新打开。
func (m *stateMachine) onFailure(probe bool) {
	if !probe {
		return
	}

	var fired []transition
	m.mu.Lock()
	if m.state == StateHalfOpen {
		fired = append(fired, m.toOpenLocked())
	}
	m.probeActive = false
	m.mu.Unlock()
	m.emit(fired)
}

// releaseProbe 归还探测槽位但不触发任何转换。
// 用于被 ErrorFilter 忽略的失败和缓存命中：下一个被准入的调用
// 成为新的探测。
func (m *stateMachine) releaseProbe(probe bool) {
	if !probe {
		return
	}

	m.mu.Lock()
	m.probeActive = false
	m.mu.Unlock()
}

// trip 从 Closed 进入 Open。在稳定状态下重复调用是幂等的。
func (m *stateMachine) trip() {
	var fired []transition
	m.mu.Lock()
	if m.state == StateClosed {
		fired = append(fired, m.toOpenLocked())
	}
	m.mu.Unlock()
	m.emit(fired)
}

// currentState 返回当前状态。
func (m *stateMachine) currentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// shutdown 停止定时器，之后状态机不再自行转换。
func (m *stateMachine) shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	if m.resetTimer != nil {
		m.resetTimer.Stop()
		m.resetTimer = nil
	}
}

// probeReady 定时器回调：resetTimeout 到期后进入半开。
func (m *stateMachine) probeReady() {
	var fired []transition
	m.mu.Lock()
	if !m.stopped && m.state == StateOpen && time.Since(m.openedAt) >= m.resetTimeout {
		fired = append(fired, m.toHalfOpenLocked())
	}
	m.mu.Unlock()
	m.emit(fired)
}

// toOpenLocked 进入 Open 并调度一次性的恢复探测检查，必须持有 mu。
func (m *stateMachine) toOpenLocked() transition {
	tr := transition{from: m.state, to: StateOpen}
	m.state = StateOpen
	m.openedAt = time.Now()
	m.probeActive = false
	if m.resetTimer != nil {
		m.resetTimer.Stop()
	}
	if !m.stopped {
		m.resetTimer = time.AfterFunc(m.resetTimeout, m.probeReady)
	}
	return tr
}

// toHalfOpenLocked 进入 HalfOpen，必须持有 mu。
func (m *stateMachine) toHalfOpenLocked() transition {
	tr := transition{from: m.state, to: StateHalfOpen}
	m.state = StateHalfOpen
	m.probeActive = false
	if m.resetTimer != nil {
		m.resetTimer.Stop()
		m.resetTimer = nil
	}
	return tr
}

// toClosedLocked 回到 Closed，必须持有 mu。
// 窗口数据不清空：陈旧的失败会随时间自然旋出窗口。
func (m *stateMachine) toClosedLocked() transition {
	tr := transition{from: m.state, to: StateClosed}
	m.state = StateClosed
	return tr
}

// emit 在锁外按顺序触发转换回调。
func (m *stateMachine) emit(fired []transition) {
	if m.onTransition == nil {
		return
	}
	for _, tr := range fired {
		m.onTransition(tr)
	}
}
