package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storyreel/storyreel/internal/api"
	"github.com/storyreel/storyreel/internal/command"
	"github.com/storyreel/storyreel/internal/config"
	"github.com/storyreel/storyreel/internal/db"
	"github.com/storyreel/storyreel/internal/editor"
	"github.com/storyreel/storyreel/internal/logging"
	"github.com/storyreel/storyreel/internal/media"
	"github.com/storyreel/storyreel/internal/playback"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/store"
	"github.com/storyreel/storyreel/internal/timeline"
	"github.com/storyreel/storyreel/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting storyreel", "version", config.Version, "data_dir", cfg.DataDir())

	editorFile, err := config.LoadEditorFile(cfg.EditorFile())
	if err != nil {
		return fmt.Errorf("failed to load editor file: %w", err)
	}
	keymap := command.DefaultKeymap()
	if err := keymap.Apply(editorFile.Keymap); err != nil {
		return fmt.Errorf("invalid keymap in %s: %w", cfg.EditorFile(), err)
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if n, err := database.RecoverInterrupted(context.Background()); err != nil {
		logger.Warn("failed to recover interrupted media", "error", err)
	} else if n > 0 {
		logger.Info("marked interrupted media as failed", "count", n)
	}

	kv := store.NewKV(database.Conn(), cfg.SessionMaxBytes())

	authToken, err := ensureAuthToken(kv)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                    STORYREEL v%-28s║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	files, err := media.NewFileStore(cfg.MediaDir())
	if err != nil {
		return fmt.Errorf("failed to open media dir: %w", err)
	}

	prober := media.NewFFprobe(cfg.FFprobePath(), logger)
	if !prober.Available() {
		logger.Warn("ffprobe not found, media will use the fallback duration", "path", cfg.FFprobePath())
	}

	catalog := media.NewCatalog(prober, files, media.NewRepository(database.Conn()), media.Options{
		DefaultDuration:  cfg.DefaultMediaDuration(),
		ProbeTimeout:     cfg.ProbeTimeout(),
		ProbeConcurrency: cfg.ProbeConcurrency(),
	}, logger)
	defer catalog.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	restored, err := catalog.Restore(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore media: %w", err)
	}
	if restored > 0 {
		logger.Info("restored media library", "count", restored)
		go func() {
			if failed := catalog.ProbeAll(ctx, unprobed(catalog.List())); failed > 0 {
				logger.Warn("some restored media could not be probed", "failed", failed)
			}
		}()
	}

	sessions := session.NewStore(kv, session.Options{TTL: cfg.SessionTTL()}, logger)
	if s, ok := sessions.Load(ctx); ok {
		logger.Info("resuming workflow session", "step", s.Step)
	}

	removal := editor.RemovalFlag
	if cfg.PruneOnRemove() {
		removal = editor.RemovalPrune
	}
	tlOpts := timeline.Options{
		MaxClipDuration: cfg.MaxClipDuration(),
		DefaultDuration: cfg.DefaultMediaDuration(),
	}
	ed := editor.New(catalog, files, sessions, editor.Options{
		Tracks:          editorFile.Tracks,
		Timeline:        tlOpts,
		SnapThresholdPx: cfg.SnapThresholdPx(),
		FrameRate:       cfg.FrameRate(),
		RemovalPolicy:   removal,
		MaxImportBytes:  cfg.MaxUploadBytes(),
	}, logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		Editor:         ed,
		Dispatcher:     command.NewDispatcher(ed, keymap, logger),
		Playback:       playback.NewServer(catalog, files, logger),
		Tokens:         kv,
		FrameRate:      cfg.FrameRate(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
		StartTime:      startTime,
		Version:        config.Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})
	quit := func() {
		select {
		case <-quitCh:
		default:
			close(quitCh)
		}
	}

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	var tray *ui.Tray
	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray = ui.NewTray(ui.TrayConfig{
			Editor: ed,
			Logger: logger,
			APIURL: fmt.Sprintf("http://127.0.0.1:%d", cfg.Port()),
			OnQuit: quit,
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	if tray != nil {
		tray.Quit()
	}

	logger.Info("shutdown complete")
	return nil
}

func unprobed(items []media.Item) []string {
	var ids []string
	for _, it := range items {
		if !it.Probed && it.URL != "" && it.Status == media.StatusReady {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

func ensureAuthToken(kv *store.KV) (string, error) {
	ctx := context.Background()

	existing, ok, err := kv.Get(ctx, api.AuthTokenKey)
	if err != nil {
		return "", err
	}
	if ok && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := kv.Set(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
