package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/exsim/exsim/params"
	"github.com/exsim/exsim/pkg/engine"
	"github.com/exsim/exsim/pkg/server"
	"github.com/exsim/exsim/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("exsim_starting",
		"listen_addr", cfg.Server.ListenAddr,
		"api_addr", cfg.Server.APIAddr,
		"default_symbol", cfg.Engine.DefaultSymbol)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Matching core ----
	matcher := engine.NewMatcher(cfg.Engine.DefaultSymbol, sugar)

	// ---- API server (healthz, book inspection, websocket orders) ----
	apiServer := server.NewAPIServer(matcher, sugar)
	go func() {
		if err := apiServer.Start(cfg.Server.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	// ---- TCP order protocol ----
	tcpServer := server.NewTCPServer(matcher, sugar)
	if err := tcpServer.ListenAndServe(ctx, cfg.Server.ListenAddr); err != nil && ctx.Err() == nil {
		sugar.Fatalw("tcp_server_failed", "err", err)
	}

	sugar.Info("exsim_stopped")
}

func newLogger(cfg params.Config) (*zap.Logger, error) {
	if cfg.Log.File != "" {
		return util.NewLoggerWithFile(cfg.Log.File)
	}
	return util.NewLogger()
}
