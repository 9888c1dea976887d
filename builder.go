package goCred

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goCred/attempts"
	internalaudit "github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/source"
)

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once, then discard it.
type Builder struct {
	config Config
	logger *zap.Logger

	sources []source.Source
	store   attempts.Store
	redis   redis.UniversalClient

	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithSources sets the credential sources in the order Authenticate
// consults them. Nil entries are skipped.
func (b *Builder) WithSources(sources ...CredentialSource) *Builder {
	b.sources = append([]source.Source(nil), sources...)
	return b
}

// AddSource appends one source after those already configured.
func (b *Builder) AddSource(src CredentialSource) *Builder {
	b.sources = append(b.sources, src)
	return b
}

// WithAttemptStore sets the lockout store. It takes precedence over WithRedis.
func (b *Builder) WithAttemptStore(store attempts.Store) *Builder {
	b.store = store
	return b
}

// WithRedis keeps lockout state in Redis so it is shared by every instance
// pointing at the same server.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the audit destination. Without one, audit events are
// logged through the engine logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock replaces time.Now for the limiter and latency measurement.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns the engine. A builder can
// be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sources := make([]source.Source, 0, len(b.sources))
	for _, src := range b.sources {
		if src != nil {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- ATTEMPT STORE --------
	store := b.store
	storeKind := "custom"
	if store == nil && b.redis != nil {
		store = attempts.NewRedisStore(b.redis)
		storeKind = "redis"
	}
	if store == nil {
		mem, err := attempts.NewMemoryStore(cfg.Attempts.MemoryCapacity)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
		store = mem
		storeKind = "memory"
	}

	limiter := attempts.New(store, attempts.Config{
		MaxAttempts:     cfg.Attempts.MaxAttempts,
		LockoutDuration: cfg.Attempts.LockoutDuration,
	}, attempts.WithClock(now))

	// -------- AUDIT --------
	sink := b.auditSink
	if sink == nil {
		sink = internalaudit.NewZapSink(logger)
	}

	engine := &Engine{
		config:  cfg,
		logger:  logger,
		sources: sources,
		limiter: limiter,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink),
		metrics: NewMetrics(cfg.Metrics),
		now:     now,
	}
	engine.initFlowDeps()

	logger.Info("credential engine ready",
		zap.Int("sources", len(sources)),
		zap.String("attempt_store", storeKind),
		zap.Int("max_attempts", cfg.Attempts.MaxAttempts),
		zap.Duration("lockout", cfg.Attempts.LockoutDuration),
	)

	b.built = true

	return engine, nil
}
