package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/resdex/resdex/internal/client/cache"
	"github.com/resdex/resdex/internal/client/cli"
	"github.com/resdex/resdex/internal/client/client"
	"github.com/resdex/resdex/internal/client/config"
	"github.com/resdex/resdex/internal/client/kv"
	"github.com/resdex/resdex/internal/client/probe"
	"github.com/resdex/resdex/internal/client/services"
	"github.com/resdex/resdex/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	// stdout belongs to the REPL
	logger := logging.NewJSONLogger(os.Stderr, slog.LevelWarn)

	apiClient, err := client.NewGRPCClient(cfg.ServerEndpointAddr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer apiClient.Close()

	store, err := kv.Open(ctx, cfg.CacheBackend, cfg.CachePath, logger)
	if err != nil {
		log.Printf("error opening cache: %v", err)
		return
	}
	defer store.Close()

	auth := services.NewAuthService(apiClient)
	profiles := services.NewProfileService(apiClient, apiClient, auth,
		cache.NewProfileCache(store, cfg.CacheTTL), probe.NewHTTPProber(cfg.ProbeTimeout, cfg.ProbeSafeMode), logger)

	app := cli.NewApp(cfg, auth, profiles, apiClient, logger)
	app.Run(ctx)
}
