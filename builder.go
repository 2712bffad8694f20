package dia

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dia-accounts/dia/internal/audit"
	internalflows "github.com/dia-accounts/dia/internal/flows"
	"github.com/dia-accounts/dia/internal/limiters"
	"github.com/dia-accounts/dia/internal/logging"
	"github.com/dia-accounts/dia/internal/rate"
	"github.com/dia-accounts/dia/jwt"
	"github.com/dia-accounts/dia/password"
	"github.com/dia-accounts/dia/refresh"
	"github.com/dia-accounts/dia/user"
	"github.com/redis/go-redis/v9"
)

// Builder collects collaborators and configuration for an Engine.
//
// Builder instances are intended to be configured during initialization and used once.
type Builder struct {
	config Config

	redis        redis.UniversalClient
	counterStore rate.Store
	users        user.Store
	refreshStore refresh.Store
	keys         *jwt.KeyPair

	auditSink AuditSink
	logger    logging.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis backs rate limiting with client. WithCounterStore takes precedence.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCounterStore supplies a custom rate-limit counter store.
func (b *Builder) WithCounterStore(store rate.Store) *Builder {
	b.counterStore = store
	return b
}

func (b *Builder) WithUserStore(store user.Store) *Builder {
	b.users = store
	return b
}

func (b *Builder) WithRefreshTokenStore(store refresh.Store) *Builder {
	b.refreshStore = store
	return b
}

// WithKeyPair sets the signing key. Without one, Build generates a Config.JWT.KeyBits key
// that lives only as long as the Engine.
func (b *Builder) WithKeyPair(keys *jwt.KeyPair) *Builder {
	b.keys = keys
	return b
}

// WithAuditSink sets where audit events go. Events are only dispatched when
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	if logger == nil {
		b.logger = nil
		return b
	}
	b.logger = logging.NewSlogLogger(logger)
	return b
}

// WithClock overrides the wall clock used for token issue times and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine. A Builder can be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.counterStore
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or counter store required")
		}
		store = rate.NewRedisStore(b.redis)
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.refreshStore == nil {
		return nil, errors.New("refresh token store required")
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Nop()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	keys := b.keys
	if keys == nil {
		logger.Debug(context.Background(), "generating ephemeral signing key", "bits", cfg.JWT.KeyBits)
		generated, err := jwt.GenerateKeyPairBits(cfg.JWT.KeyBits)
		if err != nil {
			return nil, err
		}
		keys = generated
	}

	// -------- TOKENS --------
	tokens, err := jwt.NewManager(jwt.Config{
		Keys:   keys,
		Leeway: cfg.JWT.Leeway,
		Now:    clock,
	})
	if err != nil {
		return nil, err
	}

	ledger, err := refresh.NewLedger(refresh.Config{
		Store:  b.refreshStore,
		Users:  b.users,
		Tokens: tokens,
		Bounds: cfg.RefreshToken.Bounds,
		Now:    clock,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	// -------- RATE LIMITING --------
	limiter := rate.New(store, rate.Config{
		Prefix:    cfg.RateLimit.Prefix,
		OpTimeout: cfg.RateLimit.OpTimeout,
	})

	engine := &Engine{
		config:    cfg,
		gate:      limiters.NewGate(limiter, cfg.RateLimit.policies()),
		users:     b.users,
		ledger:    ledger,
		tokens:    tokens,
		passwords: password.NewPool(hasher, cfg.Password.Workers),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		clock:   clock,
	}
	engine.flows = internalflows.New(engine.flowDeps())

	logger.Debug(context.Background(), "engine built",
		"key_id", keys.KeyID(),
		"fail_open", cfg.RateLimit.FailOpen,
		"audit", cfg.Audit.Enabled,
		"metrics", cfg.Metrics.Enabled,
	)

	b.built = true

	return engine, nil
}
