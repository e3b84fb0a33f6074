package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/livedeck/livedeck/pkg/core/session"
	"github.com/livedeck/livedeck/pkg/gateway/config"
	"github.com/livedeck/livedeck/pkg/gateway/handlers"
	"github.com/livedeck/livedeck/pkg/gateway/metrics"
	"github.com/livedeck/livedeck/pkg/gateway/mw"
	"github.com/livedeck/livedeck/pkg/gateway/ratelimit"
)

// Upstream bundles the two model-backed boundaries. Both methods are
// implemented by upstream.Client; tests substitute fakes.
type Upstream interface {
	handlers.GestureClassifier
	handlers.Transcriber
}

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	upstream Upstream // nil when GEMINI_API_KEY is absent
	slides   session.SlideSource
	metrics  *metrics.Metrics
	limiter  *ratelimit.Limiter
}

func New(cfg config.Config, logger *slog.Logger, up Upstream, slides session.SlideSource, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New("")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		upstream: up,
		slides:   slides,
		metrics:  m,
		limiter: ratelimit.New(ratelimit.Config{
			RPS:                   cfg.LimitRPS,
			Burst:                 cfg.LimitBurst,
			MaxConcurrentRequests: cfg.LimitMaxConcurrentRequests,
		}),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/health", handlers.HealthHandler{})
	ready := handlers.ReadyHandler{
		Config:        s.cfg,
		UpstreamReady: s.upstream != nil,
	}
	// DB-backed slide sources expose Ping; static decks are always ready.
	if p, ok := s.slides.(interface{ Ping(context.Context) error }); ok {
		ready.StoreReady = func(r *http.Request) bool {
			return p.Ping(r.Context()) == nil
		}
	}
	s.mux.Handle("/readyz", ready)
	s.mux.Handle("/metrics", s.metrics.Handler())

	var classifier handlers.GestureClassifier
	var transcriber handlers.Transcriber
	if s.upstream != nil {
		classifier = s.upstream
		transcriber = s.upstream
	}

	s.mux.Handle("/classify-gesture-image", &handlers.ClassifyHandler{
		Upstream:         classifier,
		Metrics:          s.metrics,
		Logger:           s.logger,
		MaxBodyBytes:     s.cfg.MaxBodyBytes,
		MaxImageB64Bytes: s.cfg.MaxImageB64Bytes,
	})
	s.mux.Handle("/transcribe", &handlers.TranscribeHandler{
		Upstream:      transcriber,
		Metrics:       s.metrics,
		Logger:        s.logger,
		MaxBodyBytes:  s.cfg.MaxBodyBytes,
		MaxAudioBytes: s.cfg.MaxAudioBytes,
	})
	if s.slides != nil {
		s.mux.Handle("/slides", &handlers.SlidesHandler{Source: s.slides, Logger: s.logger})
	}

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.RateLimit(s.limiter, s.metrics.RecordRateLimitHit, h)
	h = mw.CORS(s.cfg.CORSAllowedOrigins, h)
	h = mw.Recover(s.logger, h)
	h = mw.Observe(s.metrics.RecordRequest, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
