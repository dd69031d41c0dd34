package compat

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/applog"
)

// Builder creates adapters that share one applog.Logger. The logger is
// either supplied with WithLogger or created from WithConfig on first use.
type Builder struct {
	logger *applog.Logger
	logCfg *applog.Config
	err    error
}

// NewBuilder creates a new adapter builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithLogger sets the logger every adapter writes to. It takes precedence over WithConfig.
func (b *Builder) WithLogger(l *applog.Logger) *Builder {
	if l == nil {
		b.err = fmt.Errorf("applog/compat: provided logger cannot be nil")
		return b
	}
	b.logger = l
	return b
}

// WithConfig provides the configuration of a logger created on demand
func (b *Builder) WithConfig(cfg *applog.Config) *Builder {
	b.logCfg = cfg
	return b
}

// getLogger resolves the shared logger, creating it once if necessary
func (b *Builder) getLogger() (*applog.Logger, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.logger != nil {
		return b.logger, nil
	}

	l := applog.NewLogger()
	cfg := b.logCfg
	if cfg == nil {
		cfg = applog.DefaultConfig()
	}
	if err := l.ApplyConfig(cfg); err != nil {
		return nil, err
	}

	b.logger = l
	return l, nil
}

// BuildGnet creates a gnet adapter
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(l, opts...), nil
}

// BuildStructuredGnet creates a gnet adapter with key=value field extraction
func (b *Builder) BuildStructuredGnet(opts ...GnetOption) (*StructuredGnetAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewStructuredGnetAdapter(l, opts...), nil
}

// BuildFastHTTP creates a fasthttp adapter
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(l, opts...), nil
}

// BuildLogrusHook creates a logrus hook for the given levels (all when empty)
func (b *Builder) BuildLogrusHook(levels ...logrus.Level) (*LogrusHook, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewLogrusHook(l, levels...), nil
}

// BuildCollector creates a Prometheus collector over the logger's counters
func (b *Builder) BuildCollector(namespace string) (*Collector, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewCollector(l, namespace), nil
}

// GetLogger returns the shared logger, creating it if needed
func (b *Builder) GetLogger() (*applog.Logger, error) {
	return b.getLogger()
}
