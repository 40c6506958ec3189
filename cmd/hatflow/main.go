// =============================================================================
// HatFlow 主入口
// =============================================================================
// 多角色（Hat）团队流程服务与命令行工具
//
// 使用方法:
//
//	hatflow serve                          # 启动 HTTP 服务
//	hatflow serve --config config.yaml     # 指定配置文件
//	hatflow run --session cli              # 交互式会话
//	hatflow propose --save "<goal>"        # 让模型设计一个团队
//	hatflow missions --limit 5             # 查看最近的任务归档
//	hatflow health                         # 健康检查
//	hatflow version                        # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chin3/hat-manager/config"
	"github.com/chin3/hat-manager/teamflow"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "run":
		err = runREPL(os.Args[2:], os.Stdin, os.Stdout)
	case "propose":
		err = runPropose(os.Args[2:], os.Stdout)
	case "missions":
		err = runMissions(os.Args[2:], os.Stdout)
	case "health":
		err = runHealthCheck(os.Args[2:])
	case "version":
		printVersion(os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig 加载并验证配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting HatFlow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	app, err := NewApp(cfg, nil, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	runErr := NewServer(app, logger).Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.Close(shutdownCtx); err != nil {
		logger.Error("shutdown cleanup failed", zap.Error(err))
	}
	logger.Info("HatFlow stopped")
	return runErr
}

// =============================================================================
// 💬 run / propose / missions 命令
// =============================================================================

func runREPL(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	sessionID := fs.String("session", "cli", "Session id")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := initLogger(cliLogConfig(cfg.Log))
	defer func() { _ = logger.Sync() }()

	app, err := NewApp(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	ctx, stop := signalContext()
	defer stop()
	return NewREPL(app, *sessionID, out).Run(ctx, in)
}

func runPropose(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("propose", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	save := fs.Bool("save", false, "Store the proposed hats")
	_ = fs.Parse(args)

	goal := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if goal == "" {
		return fmt.Errorf("usage: hatflow propose [--save] <goal>")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := initLogger(cliLogConfig(cfg.Log))
	defer func() { _ = logger.Sync() }()

	app, err := NewApp(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	ctx, stop := signalContext()
	defer stop()
	return proposeTeam(ctx, app, goal, *save, out)
}

func proposeTeam(ctx context.Context, app *App, goal string, save bool, out io.Writer) error {
	teamID, hats, err := teamflow.ProposeTeam(ctx, app.generator, goal, app.cfg.LLM.DefaultModel, time.Now())
	if err != nil {
		return err
	}
	if save {
		for _, h := range hats {
			if err := app.hats.Put(ctx, h); err != nil {
				return fmt.Errorf("save hat %s: %w", h.ID, err)
			}
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"team_id": teamID, "hats": hats, "saved": save})
}

func runMissions(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("missions", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	limit := fs.Int("limit", 10, "Number of missions to show")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := initLogger(cliLogConfig(cfg.Log))
	defer func() { _ = logger.Sync() }()

	app, err := NewApp(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	records, err := app.archive.List(context.Background(), *limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No missions archived yet.")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(out, "%s  %-16s %-12s %s\n",
			rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Outcome, rec.TeamID, rec.Goal)
	}
	return nil
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	_ = fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/ready")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}
	fmt.Println("OK")
	return nil
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "HatFlow %s\n", Version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `HatFlow - persona team flows with human approval

Usage:
  hatflow <command> [options]

Commands:
  serve     Start the HTTP API and metrics servers
  run       Start an interactive session
  propose   Ask the model to design a team for a goal
  missions  List archived missions
  health    Check server readiness
  version   Show version information
  help      Show this help message

Options:
  --config <path>   Path to configuration file (YAML), all commands but health
  --session <id>    Session id for 'run' (default "cli")
  --save            Store the hats produced by 'propose'
  --limit <n>       Number of missions for 'missions' (default 10)
  --addr <url>      Server address for 'health'

Examples:
  hatflow serve --config /etc/hatflow/config.yaml
  hatflow run
  hatflow propose --save "write a launch plan for a coffee shop"
  hatflow missions --limit 5
  hatflow health --addr http://localhost:8080`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

// cliLogConfig 把日志从 stdout 移到 stderr，stdout 留给命令输出
func cliLogConfig(cfg config.LogConfig) config.LogConfig {
	paths := make([]string, 0, len(cfg.OutputPaths))
	for _, p := range cfg.OutputPaths {
		if p != "stdout" {
			paths = append(paths, p)
		}
	}
	cfg.OutputPaths = append(paths, "stderr")
	return cfg
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
