package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stylevec/internal/config"
	"github.com/kailas-cloud/stylevec/internal/db"
	dbMemory "github.com/kailas-cloud/stylevec/internal/db/memory"
	dbRedis "github.com/kailas-cloud/stylevec/internal/db/redis"
	"github.com/kailas-cloud/stylevec/internal/domain"
	logpkg "github.com/kailas-cloud/stylevec/internal/logger"
	"github.com/kailas-cloud/stylevec/internal/metrics"
	"github.com/kailas-cloud/stylevec/internal/repository/embcache"
	productrepo "github.com/kailas-cloud/stylevec/internal/repository/product"
	openaiTransport "github.com/kailas-cloud/stylevec/internal/transport/openai"
)

// app bundles the shared wiring every command needs: config, logger, store,
// embedders, and the product repository.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  db.Store

	textEmbedder  *cachedTextEmbedder
	imageEmbedder *cachedImageEmbedder
	products      *productrepo.Repo
}

// cachedTextEmbedder pairs the cache decorator with the base provider so
// callers can reach batch embedding and health checks on the base.
type cachedTextEmbedder struct {
	*embcache.TextEmbedder
	base *openaiTransport.TextEmbedder
}

func (e *cachedTextEmbedder) BatchEmbedText(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return e.base.BatchEmbedText(ctx, texts)
}

func (e *cachedTextEmbedder) HealthCheck(ctx context.Context) error {
	return e.base.HealthCheck(ctx)
}

type cachedImageEmbedder struct {
	*embcache.ImageEmbedder
	base *openaiTransport.ImageEmbedder
}

func (e *cachedImageEmbedder) HealthCheck(ctx context.Context) error {
	return e.base.HealthCheck(ctx)
}

// newApp loads config, connects the store, and builds the embedder chain.
func newApp(ctx context.Context) (*app, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
	case "memory":
		store = dbMemory.NewStore()
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	metrics.RegisterCoreMetrics()

	a := &app{cfg: cfg, logger: logger, store: store}
	a.buildEmbedders()
	a.products = productrepo.New(
		store, cfg.Catalog.KeyPrefix,
		cfg.Embedding.Text.Dimensions, cfg.Embedding.Image.Dimensions,
	).WithHNSW(productrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})

	return a, nil
}

// buildEmbedders assembles the decorator chain: OpenAI provider -> cache.
func (a *app) buildEmbedders() {
	prov := a.cfg.Embedding.Provider

	textBase := openaiTransport.NewTextEmbedder(&openaiTransport.Config{
		APIKey:     prov.APIKey,
		BaseURL:    prov.BaseURL,
		Model:      a.cfg.Embedding.Text.Model,
		Dimensions: a.cfg.Embedding.Text.Dimensions,
		Logger:     a.logger,
	})
	imageBase := openaiTransport.NewImageEmbedder(&openaiTransport.Config{
		APIKey:     prov.APIKey,
		BaseURL:    prov.BaseURL,
		Model:      a.cfg.Embedding.Image.Model,
		Dimensions: a.cfg.Embedding.Image.Dimensions,
		Logger:     a.logger,
	})

	a.textEmbedder = &cachedTextEmbedder{
		TextEmbedder: embcache.NewText(
			textBase, a.store, a.cfg.Catalog.KeyPrefix, metrics.EmbeddingCacheTotal, a.logger),
		base: textBase,
	}
	a.imageEmbedder = &cachedImageEmbedder{
		ImageEmbedder: embcache.NewImage(
			imageBase, a.store, a.cfg.Catalog.KeyPrefix, metrics.EmbeddingCacheTotal, a.logger),
		base: imageBase,
	}

	a.logger.Info("Embedders created",
		zap.String("text_model", a.cfg.Embedding.Text.Model),
		zap.Int("text_dimensions", a.cfg.Embedding.Text.Dimensions),
		zap.String("image_model", a.cfg.Embedding.Image.Model),
		zap.Int("image_dimensions", a.cfg.Embedding.Image.Dimensions),
	)
}

func (a *app) close() {
	a.store.Close()
	_ = a.logger.Sync()
}
