package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/candle-writer/internal/assets"
	"github.com/amirphl/candle-writer/internal/chain"
	"github.com/amirphl/candle-writer/internal/config"
	"github.com/amirphl/candle-writer/internal/feed"
	"github.com/amirphl/candle-writer/internal/logging"
	"github.com/amirphl/candle-writer/internal/scheduler"
	"github.com/amirphl/candle-writer/internal/store"
	"github.com/amirphl/candle-writer/internal/transport"
)

const componentName = "CandleWriter"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(componentName)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	storage, cleanup, err := buildStorage(cfg)
	if err != nil {
		log.Fatalf("failed to build storage: %v", err)
	}
	defer cleanup()

	throttle := logging.NewThrottle(time.Hour)

	pairs := make([]assets.Pair, len(cfg.AssetPairs))
	for i, p := range cfg.AssetPairs {
		pairs[i] = assets.Pair{ID: p.ID, Accuracy: p.Accuracy, IsDisabled: p.Disabled}
	}
	assetSvc := assets.NewService(&assets.StaticRepository{Pairs: pairs}, logger)

	enrichment := chain.New(
		chain.NewAssetFilter(assetSvc, logger, throttle),
		chain.NewMidStage(assetSvc),
		chain.NewCollector(),
	)

	schedCfg := scheduler.DefaultConfig()
	schedCfg.DrainCycle = cfg.DrainCycle
	sched := scheduler.New(schedCfg, enrichment, logger, throttle)
	sched.SetStore(store.NewCandleStore(storage))

	monitor := scheduler.NewQueueMonitor(sched, logger, cfg.MonitorWarnSize)

	sched.Start()
	monitor.Start()

	var consumer *transport.QuoteConsumer
	if len(cfg.KafkaBrokers) > 0 {
		consumer = transport.NewQuoteConsumer(transport.KafkaConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, sched, logger)
		consumer.Start()
	}

	var wallexFeed *feed.WallexFeed
	if cfg.WallexEnabled {
		wallexFeed = feed.NewWallexFeed(feed.WallexConfig{
			APIKey:   cfg.WallexAPIKey,
			Symbols:  cfg.WallexSymbols,
			PollEach: cfg.WallexPollEach,
		}, sched, logger)
		wallexFeed.Start()
	}

	logger.Info("main", "candle writer started (storage=%s)", cfg.Storage)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("main", "received signal %s, shutting down", sig)

	if wallexFeed != nil {
		wallexFeed.Stop()
	}
	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Error("main", "failed to stop consumer: %v", err)
		}
	}
	monitor.Stop()
	sched.Stop()
}

func buildStorage(cfg *config.Config) (store.TableStorage, func(), error) {
	switch cfg.Storage {
	case "postgres":
		pg, err := store.NewPostgres(cfg.PostgresConnStr, cfg.PostgresMaxOpen, cfg.PostgresMaxIdle)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	case "redis":
		r, err := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}
