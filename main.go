package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"voting-ledger/api"
	"voting-ledger/config"
	"voting-ledger/encryption"
	"voting-ledger/ledger"
	"voting-ledger/mirror"
	"voting-ledger/notify"
	"voting-ledger/service"
	"voting-ledger/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	if err := setupStorageDirectories(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup storage: %v\n", err)
		os.Exit(1)
	}

	logging := logger.Configuration{
		Directory: cfg.LogDir,
		File:      "voting-ledger.log",
		Size:      1048576,
		Count:     10,
		Console:   true,
		Levels: map[string]string{
			logger.DefaultTag: cfg.LogLevel,
		},
	}
	if err := logger.Initialise(logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Finalise()

	log := logger.New("main")
	if err := run(cfg, log); err != nil {
		log.Criticalf("%s", err)
		logger.Finalise()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.L) error {
	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.DatabaseType, err)
	}
	defer store.Close()

	mirrorStore, err := openMirror(ctx, cfg, log)
	if err != nil {
		return err
	}
	if mirrorStore != nil {
		defer mirrorStore.Close()
	}

	key, err := encryption.LoadOrGenerateKey(cfg.LedgerKeyPath)
	if err != nil {
		return fmt.Errorf("failed to load ledger key: %w", err)
	}
	signer := encryption.NewReceiptSigner(key)
	log.Infof("receipt signing key: %s", signer.KeyID())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := service.NewMetricsCollector(registry)

	l := ledger.New(ledger.Config{
		Votes:          store,
		Mirror:         mirrorStore,
		Signer:         signer,
		Observer:       metrics,
		ElectionID:     cfg.ElectionID,
		PollingStation: cfg.PollingStation,
		QueueSize:      cfg.VoteQueueSize,
	})
	// stopped after the server has drained and before the stores close
	defer l.Stop()

	votingService := service.NewVotingService(service.Config{
		Store:       store,
		Ledger:      l,
		Gateway:     newGateway(cfg, log),
		Metrics:     metrics,
		CountryCode: cfg.SMSCountryCode,
	})

	server := api.NewServer(votingService, api.Config{
		Port:       cfg.Port,
		VoteRate:   cfg.VoteRate,
		VoteBurst:  cfg.VoteBurst,
		TrustProxy: cfg.TrustProxy,
		Gatherer:   registry,
	})

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Start server in a goroutine
	serverChan := make(chan error, 1)
	go func() {
		log.Infof("starting server on port %d", cfg.Port)
		serverChan <- server.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		log.Infof("received signal: %v", sig)
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("error during shutdown: %s", err)
		}
	}

	log.Info("server shutdown completed")
	return nil
}

// openMirror returns nil when no mirror is configured. A configured mirror
// that cannot be reached at startup is also dropped so the primary store
// keeps accepting votes.
func openMirror(ctx context.Context, cfg config.Config, log *logger.L) (mirror.Store, error) {
	switch cfg.Mirror {
	case config.MirrorLevelDB:
		store, err := mirror.OpenLevelDB(cfg.MirrorPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open leveldb mirror: %w", err)
		}
		log.Infof("leveldb mirror at %s", cfg.MirrorPath)
		return store, nil

	case config.MirrorFirestore:
		store, err := mirror.NewFirestoreStore(ctx, cfg.Firestore)
		if err != nil {
			log.Warnf("firestore mirror unavailable, continuing without it: %s", err)
			return nil, nil
		}
		log.Infof("firestore mirror for project %s", cfg.Firestore.ProjectID)
		return store, nil
	}

	log.Warn("no mirror configured, votes are recorded in the primary store only")
	return nil, nil
}

func newGateway(cfg config.Config, log *logger.L) notify.Gateway {
	gateway, err := notify.NewTwilioGateway(cfg.Twilio)
	if err != nil {
		log.Warnf("twilio not configured, using mock SMS gateway: %s", err)
		return notify.NewMockGateway(notify.MockDelay)
	}
	return gateway
}

func setupStorageDirectories(cfg config.Config) error {
	dirs := []string{cfg.LogDir, filepath.Dir(cfg.LedgerKeyPath)}
	if cfg.DatabaseType == storage.SQLite {
		dirs = append(dirs, filepath.Dir(cfg.DatabaseURL))
	}
	if cfg.Mirror == config.MirrorLevelDB {
		dirs = append(dirs, cfg.MirrorPath)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
