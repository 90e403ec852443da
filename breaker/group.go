package breaker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ceyewan/fuse/config"
	"github.com/ceyewan/fuse/xerrors"
)

// ErrGroupClosed Group 已关闭
var ErrGroupClosed = xerrors.New("breaker: group has been shut down")

// Group 按名称管理多个熔断器实例的注册表。
//
// 同一名称的熔断器在进程内只会被创建一次（首次使用时惰性创建），
// 之后的调用复用同一实例。Group 是并发安全的。
//
// 使用示例:
//
//	group, _ := breaker.NewGroup(defaultCfg, breaker.WithLogger(logger))
//	result, err := group.Execute(ctx, "payments", chargeOp, orderID)
//	stats := group.Stats()
type Group struct {
	cfg  *Config
	opts []Option

	// breakers map[string]Breaker，configs map[string]*Config（按名覆盖）
	breakers sync.Map
	configs  sync.Map
	closed   atomic.Bool
}

// NewGroup 创建熔断器注册表。
//
// 参数:
//   - cfg: 所有熔断器的默认配置，nil 时使用内置默认值
//   - opts: 应用到每个被创建熔断器的选项 (Logger, Meter, Fallback, Listener)
func NewGroup(cfg *Config, opts ...Option) (*Group, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg = cfg.clone()
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Group{cfg: cfg, opts: opts}, nil
}

// groupConfig 配置文件中 breakers 段的结构。
type groupConfig struct {
	Default   *Config            `json:"default" yaml:"default" mapstructure:"default"`
	Instances map[string]*Config `json:"instances" yaml:"instances" mapstructure:"instances"`
}

// NewGroupFromLoader 从配置加载器创建注册表，读取 breakers 段：
//
//	breakers:
//	  default:
//	    timeout: 2s
//	    error_threshold_percentage: 50
//	  instances:
//	    payments:
//	      timeout: 500ms
//	      capacity: 64
//
// instances 中命名的熔断器使用各自的配置，其余名称使用 default。
func NewGroupFromLoader(loader config.Loader, opts ...Option) (*Group, error) {
	var gc groupConfig
	if err := loader.UnmarshalKey("breakers", &gc); err != nil {
		return nil, xerrors.Wrap(err, "breaker: failed to unmarshal breakers config")
	}

	group, err := NewGroup(gc.Default, opts...)
	if err != nil {
		return nil, err
	}

	for name, cfg := range gc.Instances {
		if err := group.Configure(name, cfg); err != nil {
			return nil, err
		}
	}
	return group, nil
}

// Configure 为指定名称注册专属配置，覆盖 Group 默认配置。
// 必须在该名称首次被 Execute 使用之前调用，否则返回错误。
func (g *Group) Configure(name string, cfg *Config) error {
	if name == "" {
		return ErrNameEmpty
	}
	if cfg == nil {
		return xerrors.Wrap(ErrConfigInvalid, "breaker: nil config for "+name)
	}
	if _, ok := g.breakers.Load(name); ok {
		return xerrors.Wrapf(ErrConfigInvalid, "breaker: %q already created, configure before first use", name)
	}

	cfg = cfg.clone()
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	g.configs.Store(name, cfg)
	return nil
}

// Execute 通过名为 name 的熔断器执行操作。
// 该名称的熔断器不存在时惰性创建。
func (g *Group) Execute(ctx context.Context, name string, op Operation, args ...any) (any, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}
	if op == nil {
		return nil, ErrOperationNil
	}
	if g.closed.Load() {
		return nil, ErrGroupClosed
	}

	brk, err := g.getOrCreate(name)
	if err != nil {
		return nil, err
	}
	return brk.Execute(ctx, op, args...)
}

// executeInline 与 Execute 相同，但操作在调用方 goroutine 内同步执行，
// 不做超时竞速。供 Gin 中间件使用：处理器必须在响应写回前完成。
func (g *Group) executeInline(ctx context.Context, name string, op Operation) (any, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}
	if op == nil {
		return nil, ErrOperationNil
	}
	if g.closed.Load() {
		return nil, ErrGroupClosed
	}

	brk, err := g.getOrCreate(name)
	if err != nil {
		return nil, err
	}
	return brk.(*circuitBreaker).executeInline(ctx, op, nil)
}

// Get 返回名为 name 的熔断器，不存在时惰性创建。
func (g *Group) Get(name string) (Breaker, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}
	if g.closed.Load() {
		return nil, ErrGroupClosed
	}
	return g.getOrCreate(name)
}

// State 返回指定熔断器的状态，不存在时返回 ErrBreakerNotFound。
func (g *Group) State(name string) (State, error) {
	val, ok := g.breakers.Load(name)
	if !ok {
		return StateClosed, xerrors.Wrapf(ErrBreakerNotFound, "breaker: %q", name)
	}
	return val.(Breaker).State(), nil
}

// Snapshot 返回指定熔断器的统计快照，不存在时返回 ErrBreakerNotFound。
func (g *Group) Snapshot(name string) (Snapshot, error) {
	val, ok := g.breakers.Load(name)
	if !ok {
		return Snapshot{}, xerrors.Wrapf(ErrBreakerNotFound, "breaker: %q", name)
	}
	return val.(Breaker).Snapshot(), nil
}

// Stats 返回所有已创建熔断器的统计快照，按名称索引。
func (g *Group) Stats() map[string]Snapshot {
	stats := make(map[string]Snapshot)
	g.breakers.Range(func(key, val any) bool {
		stats[key.(string)] = val.(Breaker).Snapshot()
		return true
	})
	return stats
}

// Shutdown 关闭所有熔断器并拒绝后续调用。幂等。
func (g *Group) Shutdown() {
	if !g.closed.CompareAndSwap(false, true) {
		return
	}

	g.breakers.Range(func(_, val any) bool {
		val.(Breaker).Shutdown()
		return true
	})
}

// getOrCreate 获取或创建指定名称的熔断器。
func (g *Group) getOrCreate(name string) (Breaker, error) {
	if val, ok := g.breakers.Load(name); ok {
		return val.(Breaker), nil
	}

	cfg := g.cfg
	if val, ok := g.configs.Load(name); ok {
		cfg = val.(*Config)
	}

	brk, err := New(name, cfg, g.opts...)
	if err != nil {
		return nil, err
	}

	// 并发创建时只保留一个实例，落选者立即关闭
	actual, loaded := g.breakers.LoadOrStore(name, brk)
	if loaded {
		brk.Shutdown()
	}

	// Shutdown 与惰性创建竞争时，其遍历可能错过刚存入的实例，
	// 这里复查关闭标记并补一次关闭（Shutdown 幂等）
	if g.closed.Load() {
		actual.(Breaker).Shutdown()
		return nil, ErrGroupClosed
	}
	return actual.(Breaker), nil
}
