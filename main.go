package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/shareflow/shareflow-go/api"
	"github.com/shareflow/shareflow-go/api/notifyhub"
	"github.com/shareflow/shareflow-go/blob"
	"github.com/shareflow/shareflow-go/session"
	"github.com/shareflow/shareflow-go/tool"
)

func main() {
	cfg := tool.SetFlags()
	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	if cfg.UsePort > 0 {
		appCfg.Port = cfg.UsePort
	}
	if cfg.UsePublicBaseURL != "" {
		appCfg.PublicBaseURL = cfg.UsePublicBaseURL
	}
	if cfg.UseStorageDir != "" {
		appCfg.StorageDir = cfg.UseStorageDir
	}

	// initialize logger
	tool.InitLogger()
	switch strings.ToLower(cfg.Log) {
	case "", "dev":
		tool.DefaultLogger.SetLevel(log.DebugLevel)
	case "prod":
		tool.DefaultLogger.SetLevel(log.InfoLevel)
	case "none":
		tool.DefaultLogger.SetLevel(log.FatalLevel)
	default:
		tool.DefaultLogger.Warnf("Unknown log mode %q, using debug level", cfg.Log)
		tool.DefaultLogger.SetLevel(log.DebugLevel)
	}

	blobs, err := blob.NewDiskStore(appCfg.StorageDir)
	if err != nil {
		tool.DefaultLogger.Fatalf("Failed to open blob storage: %v", err)
	}

	store := session.NewStore(
		session.WithTTL(appCfg.SessionTTL()),
		session.WithRetentionGrace(appCfg.RetentionGrace()),
		session.WithBlobStore(blobs),
	)
	mediator := session.NewMediator(store)
	hub := notifyhub.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := session.NewSweeper(store,
		session.WithInterval(appCfg.SweepInterval()),
		session.WithNotifier(hub),
	)
	go sweeper.Run(ctx)

	apiServer := api.NewServer(appCfg, store, mediator, blobs, hub)
	go func() {
		if err := apiServer.Start(); err != nil {
			tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	tool.DefaultLogger.Infof("Shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		tool.DefaultLogger.Errorf("Shutdown error: %v", err)
	}
}
