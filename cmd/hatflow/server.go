package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chin3/hat-manager/api/handlers"
	"github.com/chin3/hat-manager/internal/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// skipAuthPaths 不需要认证的路径
var skipAuthPaths = []string{"/health", "/healthz", "/ready", "/readyz", "/version"}

// Server 管理 API 与 Metrics 两个端口
type Server struct {
	app    *App
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager
}

// NewServer 创建服务器实例
func NewServer(app *App, logger *zap.Logger) *Server {
	return &Server{app: app, logger: logger}
}

// Handler 构建带完整中间件链的 API 路由。ctx 控制限流器清理协程的生命周期
func (s *Server) Handler(ctx context.Context) http.Handler {
	a := s.app
	mux := http.NewServeMux()

	health := handlers.NewHealthHandler(s.logger)
	if a.cache != nil {
		health.RegisterCheck(handlers.NewPingCheck("redis", a.cache.Ping))
	}
	if a.db != nil {
		health.RegisterCheck(handlers.NewPingCheck("database", a.db.Ping))
	}
	health.RegisterCheck(handlers.NewPingCheck("llm", func(ctx context.Context) error {
		status, err := a.provider.HealthCheck(ctx)
		if err != nil {
			return err
		}
		if !status.Healthy {
			return fmt.Errorf("provider %s unhealthy", a.provider.Name())
		}
		return nil
	}))
	health.Register(mux, Version, BuildTime, GitCommit)

	handlers.NewSessionHandler(a.orchestrator, a.sessions, a.hats, s.logger).Register(mux)
	handlers.NewHatHandler(a.hats, a.memory, a.generator, a.cfg.LLM.DefaultModel, s.logger).Register(mux)
	handlers.NewMissionHandler(a.archive, s.logger).Register(mux)
	handlers.NewEventStreamHandler(a.hub, a.cfg.Server.CORSAllowedOrigins, s.logger).Register(mux)

	cfg := a.cfg.Server
	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		RequestLogger(s.logger),
		CORS(cfg.CORSAllowedOrigins),
		RateLimiter(ctx, float64(cfg.RateLimitRPS), cfg.RateLimitBurst, s.logger),
		Auth(cfg.APIKeys, cfg.JWTSecret, skipAuthPaths, s.logger),
		MetricsMiddleware(a.collector),
	)
}

// metricsHandler 暴露 App 自有 Registry 的指标
func (s *Server) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.app.registry, promhttp.HandlerOpts{
		Registry:          s.app.registry,
		EnableOpenMetrics: true,
	}))
	return mux
}

// Run 启动两个服务器，直到 ctx 结束或任一服务器失败
func (s *Server) Run(ctx context.Context) error {
	cfg := s.app.cfg.Server

	s.httpManager = server.NewManager("api", s.Handler(ctx), server.ConfigFor(cfg, cfg.HTTPPort), s.logger)
	s.metricsManager = server.NewManager("metrics", s.metricsHandler(), server.ConfigFor(cfg, cfg.MetricsPort), s.logger)

	if err := s.httpManager.Listen(); err != nil {
		return err
	}
	if err := s.metricsManager.Listen(); err != nil {
		_ = s.httpManager.Shutdown(context.Background())
		return err
	}
	s.logger.Info("HatFlow listening",
		zap.String("api", s.httpManager.Addr()),
		zap.String("metrics", s.metricsManager.Addr()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.httpManager.Run(gctx) })
	g.Go(func() error { return s.metricsManager.Run(gctx) })
	return g.Wait()
}
