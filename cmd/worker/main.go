package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"issuetracker/api/internal/attachments"
	"issuetracker/api/internal/cache"
	"issuetracker/api/internal/config"
	"issuetracker/api/internal/docstore"
	"issuetracker/api/internal/ingest"
	"issuetracker/api/internal/logger"
	"issuetracker/api/internal/queue"
	"issuetracker/api/internal/search"
	"issuetracker/api/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx := context.Background()

	// Every backend is optional: an unreachable dependency degrades the
	// worker instead of crashing it, and the next restart retries.
	var docs docstore.Client
	fs, err := docstore.NewFirestore(ctx, cfg.FirestoreProject, cfg.GoogleCredentials)
	if err != nil {
		log.Warn().Err(err).Msg("firestore unavailable, store running degraded")
	} else {
		docs = fs
		defer fs.Close()
	}
	dataStore := store.New(docs, log)

	var issueCache *cache.IssueCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		issueCache, err = cache.New(cfg.RedisURL, cfg.CacheTTL, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, recency cache disabled")
		} else {
			defer issueCache.Close()
		}
	}

	var attachmentStore *attachments.Service
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		attachmentStore, err = attachments.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, log)
		if err != nil {
			log.Warn().Err(err).Msg("object storage unavailable, attachments disabled")
		}
	}

	var searchService *search.Service
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		searchService = search.NewService(search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, log), log)
		defer searchService.Close()
		searchService.Reindex(ctx, dataStore)
	}

	consumer := ingest.New(ingest.Options{
		NewConsumer: func(_ context.Context) (queue.Consumer, error) {
			return queue.NewKafkaConsumer(cfg.KafkaBrokers, cfg.IssuesTopic, cfg.ConsumerGroup)
		},
		Store:        dataStore,
		Cache:        issueCache,
		Search:       searchService,
		Logger:       log,
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
	})
	if err := consumer.Start(); err != nil {
		log.Warn().Err(err).Msg("issue consumer not started, worker running degraded")
	}

	log.Info().
		Str("topic", cfg.IssuesTopic).
		Str("group", cfg.ConsumerGroup).
		Strs("brokers", cfg.KafkaBrokers).
		Bool("attachments", attachmentStore != nil).
		Msg("issue worker up")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	consumer.Stop()
}
