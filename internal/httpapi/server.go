package httpapi

import (
	"net/http"

	"github.com/dia-accounts/dia"
	"github.com/dia-accounts/dia/clientip"
	"github.com/dia-accounts/dia/internal/logging"
	"github.com/dia-accounts/dia/internal/observability"
	"github.com/dia-accounts/dia/metrics/export/prometheus"
	"github.com/dia-accounts/dia/middleware"
)

const maxJSONBodyBytes = 1 << 16

type Options struct {
	Engine   *dia.Engine
	Logger   logging.Logger
	Resolver clientip.Resolver
	// Metrics mounts GET /metrics when set.
	Metrics bool
}

type Server struct {
	engine   *dia.Engine
	logger   logging.Logger
	resolver clientip.Resolver
	metrics  bool
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Server{
		engine:   opts.Engine,
		logger:   opts.Logger,
		resolver: opts.Resolver,
		metrics:  opts.Metrics,
	}
}

// Handler returns the full middleware chain around the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", s.ping)
	mux.HandleFunc("POST /users", s.createUser)
	mux.HandleFunc("POST /users/lookup", s.lookupUser)
	mux.HandleFunc("POST /refresh-tokens", s.createRefreshToken)
	mux.HandleFunc("POST /refresh-tokens/list", s.listRefreshTokens)
	mux.HandleFunc("POST /refresh-tokens/lookup", s.lookupRefreshToken)
	mux.HandleFunc("POST /jwt", s.signJWT)
	mux.HandleFunc("GET /jwt/public-key", s.publicKey)
	mux.HandleFunc("POST /jwt/validate", s.validateJWT)
	mux.Handle("GET /me", middleware.Guard(s.engine)(http.HandlerFunc(s.me)))
	if s.metrics {
		mux.Handle("GET /metrics", prometheus.New(s.engine).Handler())
	}

	var h http.Handler = mux
	h = middleware.RateLimit(s.engine, dia.GroupGeneral)(h)
	h = middleware.ClientAddress(s.resolver)(h)
	h = observability.RequestLogging(s.logger, h)
	return observability.Recover(s.logger, h)
}
