// Package metrics 提供基于 OpenTelemetry 的指标采集与 Prometheus 暴露。
//
// 创建的 metric.Meter 可以直接注入 breaker.WithMeter：
//
//	provider, _ := metrics.New(&metrics.Config{
//		Enabled:     true,
//		ServiceName: "payments-gateway",
//		Port:        9090,
//		Path:        "/metrics",
//	})
//	defer provider.Shutdown(ctx)
//
//	brk, _ := breaker.New("payments", cfg,
//		breaker.WithMeter(provider.Meter("fuse")))
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/fuse/xerrors"
)

// Config 指标系统配置
type Config struct {
	// Enabled 是否启用指标收集
	// 为 false 时 Meter() 返回 noop Meter，所有记录都是空操作
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// ServiceName 服务名称，写入 OpenTelemetry Resource 的 service.name
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`

	// Version 服务版本，写入 service.version
	Version string `json:"version" yaml:"version" mapstructure:"version"`

	// Port Prometheus HTTP 端口，大于 0 时启动暴露服务器
	Port int `json:"port" yaml:"port" mapstructure:"port"`

	// Path Prometheus 指标路径，默认 "/metrics"
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// Provider 持有 MeterProvider 与可选的 Prometheus HTTP 服务器。
type Provider struct {
	mp     *sdkmetric.MeterProvider
	server *http.Server
}

// New 创建指标 Provider。cfg 为 nil 或 Enabled 为 false 时返回 noop Provider。
func New(cfg *Config) (*Provider, error) {
	if cfg == nil || !cfg.Enabled {
		return &Provider{}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
		),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "metrics: failed to create resource")
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, xerrors.Wrap(err, "metrics: failed to create prometheus exporter")
	}

	p := &Provider{
		mp: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(res),
		),
	}

	if cfg.Port > 0 {
		path := cfg.Path
		if path == "" {
			path = "/metrics"
		}
		mux := http.NewServeMux()
		mux.Handle(path, promhttp.Handler())
		p.server = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: mux,
		}
		go func() {
			_ = p.server.ListenAndServe()
		}()
	}

	return p, nil
}

// Meter 返回命名 Meter。noop Provider 返回空操作实现。
func (p *Provider) Meter(name string) metric.Meter {
	if p.mp == nil {
		return noop.NewMeterProvider().Meter(name)
	}
	return p.mp.Meter(name)
}

// Shutdown 刷出剩余指标并停掉暴露服务器。
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.server != nil {
		_ = p.server.Shutdown(ctx)
	}
	if p.mp == nil {
		return nil
	}
	return p.mp.Shutdown(ctx)
}
