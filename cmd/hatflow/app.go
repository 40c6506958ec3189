package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/chin3/hat-manager/config"
	"github.com/chin3/hat-manager/hat"
	"github.com/chin3/hat-manager/internal/cache"
	"github.com/chin3/hat-manager/internal/database"
	"github.com/chin3/hat-manager/internal/metrics"
	"github.com/chin3/hat-manager/internal/telemetry"
	"github.com/chin3/hat-manager/llm"
	llmfactory "github.com/chin3/hat-manager/llm/factory"
	"github.com/chin3/hat-manager/memory"
	"github.com/chin3/hat-manager/mission"
	"github.com/chin3/hat-manager/notify"
	"github.com/chin3/hat-manager/teamflow"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// =============================================================================
// 🧩 App 依赖图
// =============================================================================

// App 持有 serve 与 REPL 共用的全部组件
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	provider  llm.Provider
	generator *teamflow.Generator
	hats      hat.Store
	memory    memory.Store
	snapshots teamflow.SnapshotStore
	archive   mission.Archive

	orchestrator *teamflow.Orchestrator
	sessions     *teamflow.SessionRegistry
	hub          *notify.Hub

	registry  *prometheus.Registry
	collector *metrics.Collector
	telemetry *telemetry.Providers

	cache  *cache.Manager
	db     *database.PoolManager
	nats   *nats.Conn
	bridge *notify.Bridge
}

// NewApp 按配置构建依赖图。provider 为 nil 时由 llm/factory 创建
func NewApp(cfg *config.Config, provider llm.Provider, logger *zap.Logger) (app *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	a.telemetry, err = telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("telemetry unavailable, continuing without export", zap.Error(err))
		a.telemetry, err = nil, nil
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.collector = metrics.NewCollector("hatflow", a.registry, logger)

	if cfg.UsesRedis() {
		if a.cache, err = cache.NewManager(cfg.Redis, cache.DefaultOptions(), logger); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}
	if cfg.UsesDatabase() {
		if a.db, err = database.Open(cfg.Database, logger); err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
	}

	if a.hats, err = a.buildHatStore(); err != nil {
		return nil, err
	}
	a.memory = a.buildMemoryStore()
	a.snapshots = a.buildSnapshotStore()
	if a.archive, err = a.buildArchive(); err != nil {
		return nil, err
	}

	if provider == nil {
		provider, err = llmfactory.NewProvider(llmfactory.Config{
			Provider:     cfg.LLM.Provider,
			APIKey:       cfg.LLM.APIKey,
			BaseURL:      cfg.LLM.BaseURL,
			Organization: cfg.LLM.Organization,
			DefaultModel: cfg.LLM.DefaultModel,
			Timeout:      cfg.LLM.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create llm provider: %w", err)
		}
	}
	a.provider = provider

	a.generator = teamflow.NewGenerator(provider, a.hats, a.memory, teamflow.GeneratorConfig{
		Timeout:     cfg.Flow.GenerationTimeout,
		MemoryTopK:  cfg.Flow.MemoryTopK,
		Temperature: float32(cfg.LLM.Temperature),
		MaxTokens:   cfg.LLM.MaxTokens,
	}, a.collector, logger)

	a.hub = notify.NewHub(0, logger)
	notifier := teamflow.MultiNotifier{teamflow.NewLogNotifier(logger), a.hub}
	if cfg.NATS.Enabled {
		publisher, err := a.connectNATS()
		if err != nil {
			return nil, err
		}
		notifier = append(notifier, publisher)
	}

	finalizer := teamflow.NewFinalizer(a.generator, a.hats, a.archive,
		teamflow.FinalizerConfig{AnalystModel: cfg.Flow.AnalystModel}, logger)
	a.orchestrator, err = teamflow.NewOrchestrator(teamflow.Options{
		Hats:      a.hats,
		Memory:    a.memory,
		Responder: a.generator,
		Finalizer: finalizer,
		Snapshots: a.snapshots,
		Notifier:  notifier,
		Metrics:   a.collector,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	a.sessions = teamflow.NewSessionRegistry(a.snapshots)
	return a, nil
}

func (a *App) buildHatStore() (hat.Store, error) {
	switch hat.StoreType(a.cfg.Hats.Store) {
	case hat.StoreTypeMemory:
		return hat.NewMemoryStore(), nil
	case hat.StoreTypeDatabase:
		store, err := hat.NewGormStore(a.db.DB())
		if err != nil {
			return nil, fmt.Errorf("hat store: %w", err)
		}
		return store, nil
	default:
		store, err := hat.NewFileStore(a.cfg.Hats.Dir, a.logger)
		if err != nil {
			return nil, fmt.Errorf("hat store: %w", err)
		}
		return store, nil
	}
}

func (a *App) buildMemoryStore() memory.Store {
	if memory.BackendType(a.cfg.Memory.Backend) == memory.BackendRedis {
		return memory.NewRedisStore(a.cache.Client(), a.cfg.Memory.KeyPrefix, a.cfg.Memory.MaxEntries, a.logger)
	}
	return memory.NewInMemoryStore(a.cfg.Memory.MaxEntries)
}

func (a *App) buildSnapshotStore() teamflow.SnapshotStore {
	if a.cfg.Sessions.Backend == "redis" {
		return teamflow.NewRedisSnapshotStore(a.cache.Client(), a.cfg.Sessions.KeyPrefix, a.cfg.Sessions.SnapshotTTL)
	}
	return teamflow.NewMemorySnapshotStore()
}

func (a *App) buildArchive() (mission.Archive, error) {
	if mission.BackendType(a.cfg.Missions.Backend) == mission.BackendDatabase {
		archive, err := mission.NewGormArchive(a.db.DB())
		if err != nil {
			return nil, fmt.Errorf("mission archive: %w", err)
		}
		return archive, nil
	}
	archive, err := mission.NewFileArchive(a.cfg.Missions.Dir, a.logger)
	if err != nil {
		return nil, fmt.Errorf("mission archive: %w", err)
	}
	return archive, nil
}

// connectNATS 发布本地事件，并把其他副本的事件桥接到本地 Hub
func (a *App) connectNATS() (teamflow.Notifier, error) {
	conn, err := notify.Connect(a.cfg.NATS.URL, "hatflow", a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	a.nats = conn

	origin := uuid.NewString()
	a.bridge, err = notify.StartBridge(conn, a.cfg.NATS.SubjectPrefix, origin, a.hub, a.logger)
	if err != nil {
		return nil, err
	}
	return notify.NewNATSPublisher(conn, a.cfg.NATS.SubjectPrefix, origin, a.logger), nil
}

// Close 释放连接，按创建的逆序关闭
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.bridge != nil {
		errs = append(errs, a.bridge.Close())
	}
	if a.nats != nil {
		if err := a.nats.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("drain nats: %w", err))
		}
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
