package breaker

import (
	"time"

	"github.com/ceyewan/fuse/xerrors"
)

// ========================================
// 配置定义 (Configuration)
// ========================================

// Config 熔断器配置，创建时固定，之后不可变。
type Config struct {
	// Timeout 单次调用的超时时间（默认：10s）
	// 超过该时间仍未完成的调用被判定为超时，其结果即使稍后到达也会被丢弃。
	// 设置为负数禁用超时。
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// ErrorThresholdPercentage 失败率阈值，取值 [0,100]（默认：50）
	// 窗口内 (失败+超时)/总完成数 达到该百分比时触发熔断。
	ErrorThresholdPercentage float64 `json:"error_threshold_percentage" yaml:"error_threshold_percentage" mapstructure:"error_threshold_percentage"`

	// ResetTimeout 打开状态持续时间（默认：30s）
	// 超时后进入半开状态进行探测。
	ResetTimeout time.Duration `json:"reset_timeout" yaml:"reset_timeout" mapstructure:"reset_timeout"`

	// RollingCountTimeout 滚动统计窗口时长（默认：10s）
	RollingCountTimeout time.Duration `json:"rolling_count_timeout" yaml:"rolling_count_timeout" mapstructure:"rolling_count_timeout"`

	// RollingCountBuckets 滚动窗口的桶数量（默认：10）
	// 桶越多，窗口滑动越平滑，内存占用越大。
	RollingCountBuckets int `json:"rolling_count_buckets" yaml:"rolling_count_buckets" mapstructure:"rolling_count_buckets"`

	// Capacity 允许同时在途的最大调用数（默认：1024）
	// 与熔断状态无关；超出容量的调用被拒绝并走降级路径。
	Capacity int `json:"capacity" yaml:"capacity" mapstructure:"capacity"`

	// VolumeThreshold 触发熔断的最小请求数（默认：10）
	// 窗口内完成的调用数少于此值时不会触发熔断。
	VolumeThreshold int `json:"volume_threshold" yaml:"volume_threshold" mapstructure:"volume_threshold"`

	// AllowWarmUp 启用预热宽限期（默认：false）
	// 开启后，创建后的第一个 RollingCountTimeout 窗口内
	// 失败只记录、不触发熔断。
	AllowWarmUp bool `json:"allow_warm_up" yaml:"allow_warm_up" mapstructure:"allow_warm_up"`

	// ErrorFilter 错误过滤谓词（仅代码配置）
	// 返回 true 的错误不计入失败率统计。
	ErrorFilter ErrorFilter `json:"-" yaml:"-" mapstructure:"-"`

	// Cache 启用成功结果缓存（默认：false）
	Cache bool `json:"cache" yaml:"cache" mapstructure:"cache"`

	// CacheTTL 缓存条目的存活时间，0 表示永不过期（默认：0）
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// CacheSize 缓存最大容量（条目数，默认：10000）
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`

	// CacheGetKey 缓存键派生函数（仅代码配置）
	// 为空时使用默认实现：fmt.Sprint(args...)。
	CacheGetKey CacheKeyFunc `json:"-" yaml:"-" mapstructure:"-"`

	// Disabled 旁路开关（默认：false，即启用保护）
	// 为 true 时所有调用直接透传给被保护操作，不做任何统计与保护。
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`
}

// 默认值
const (
	defaultTimeout             = 10 * time.Second
	defaultErrorThresholdPct   = 50
	defaultResetTimeout        = 30 * time.Second
	defaultRollingCountTimeout = 10 * time.Second
	defaultRollingCountBuckets = 10
	defaultCapacity            = 1024
	defaultVolumeThreshold     = 10
	defaultCacheSize           = 10000
)

// clone 返回配置的浅拷贝，保证实例持有的配置不被外部修改。
func (c *Config) clone() *Config {
	dup := *c
	return &dup
}

// setDefaults 为零值字段填充默认值。
func (c *Config) setDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.ErrorThresholdPercentage == 0 {
		c.ErrorThresholdPercentage = defaultErrorThresholdPct
	}
	if c.ResetTimeout == 0 {
		c.ResetTimeout = defaultResetTimeout
	}
	if c.RollingCountTimeout == 0 {
		c.RollingCountTimeout = defaultRollingCountTimeout
	}
	if c.RollingCountBuckets == 0 {
		c.RollingCountBuckets = defaultRollingCountBuckets
	}
	if c.Capacity == 0 {
		c.Capacity = defaultCapacity
	}
	if c.VolumeThreshold == 0 {
		c.VolumeThreshold = defaultVolumeThreshold
	}
	if c.CacheSize == 0 {
		c.CacheSize = defaultCacheSize
	}
}

// validate 验证配置不变量。
func (c *Config) validate() error {
	if c.ErrorThresholdPercentage < 0 || c.ErrorThresholdPercentage > 100 {
		return xerrors.Wrapf(ErrConfigInvalid, "error_threshold_percentage %v out of [0,100]", c.ErrorThresholdPercentage)
	}
	if c.Capacity < 1 {
		return xerrors.Wrapf(ErrConfigInvalid, "capacity %d must be >= 1", c.Capacity)
	}
	if c.RollingCountBuckets < 1 {
		return xerrors.Wrapf(ErrConfigInvalid, "rolling_count_buckets %d must be >= 1", c.RollingCountBuckets)
	}
	if c.RollingCountTimeout <= 0 {
		return xerrors.Wrapf(ErrConfigInvalid, "rolling_count_timeout %v must be > 0", c.RollingCountTimeout)
	}
	if c.ResetTimeout <= 0 {
		return xerrors.Wrapf(ErrConfigInvalid, "reset_timeout %v must be > 0", c.ResetTimeout)
	}
	if c.VolumeThreshold < 0 {
		return xerrors.Wrapf(ErrConfigInvalid, "volume_threshold %d must be >= 0", c.VolumeThreshold)
	}
	if c.CacheTTL < 0 {
		return xerrors.Wrapf(ErrConfigInvalid, "cache_ttl %v must be >= 0", c.CacheTTL)
	}
	return nil
}
