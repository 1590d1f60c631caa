// Package app wires configured components into a running application.
package app

import (
	"context"
	"fmt"

	"github.com/timmy/copyscale/internal/config"
	"github.com/timmy/copyscale/internal/embedding"
	"github.com/timmy/copyscale/internal/imaging"
	"github.com/timmy/copyscale/internal/logger"
	"github.com/timmy/copyscale/internal/repository"
	"github.com/timmy/copyscale/internal/service"
	"github.com/timmy/copyscale/internal/similarity"
	"github.com/timmy/copyscale/internal/storage"
	"github.com/timmy/copyscale/internal/video"
)

// App holds the constructed components. Nothing here is a process-wide default.
type App struct {
	Config   *config.Config
	Objects  storage.ObjectStorage // nil when originals are not copied
	Store    *repository.FingerprintStore
	Engine   *similarity.Engine
	Analysis *service.AnalysisService
	Search   *service.SearchService
	Video    *service.VideoService

	closers []func() error
}

// Options override parts of the wiring, mainly for tests.
type Options struct {
	// Provider replaces the configured HTTP embedding provider.
	Provider embedding.Provider
	// Decoder opens videos. Required for video matching.
	Decoder video.Decoder
}

// New builds every component from cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}
	log := logger.GetDefault().WithField(logger.FieldComponent, "app")

	objects, err := newObjectStorage(ctx, &cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.Objects = objects

	provider := opts.Provider
	if provider == nil {
		httpProvider := embedding.NewHTTPProvider(&cfg.Embedding)
		provider = embedding.NewInstrumented(httpProvider, cfg.Embedding.Provider, httpProvider.Model())
	}
	extractor := embedding.NewExtractor(imaging.NewRouter(objects), provider)

	persister, err := a.newPersister(cfg)
	if err != nil {
		return nil, err
	}
	a.Store, err = repository.NewFingerprintStore(ctx, persister, extractor, repository.StoreOptions{
		Objects:          objects,
		Prefix:           cfg.Storage.Prefix,
		RejectCollisions: cfg.Store.RejectCollisions,
		StrictLoad:       cfg.Store.StrictLoad,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load fingerprint store: %w", err)
	}

	a.Engine = similarity.NewEngineFromConfig(extractor, cfg.Similarity)
	a.Analysis = service.NewAnalysisService(a.Engine)
	a.Search = service.NewSearchService(a.Store, a.Engine, &service.SearchConfig{
		AdmissionThreshold: cfg.Search.AdmissionThreshold,
		Workers:            cfg.Search.Workers,
	})
	a.Video = service.NewVideoService(opts.Decoder, a.Engine, a.Search, &service.VideoConfig{
		Frames:          cfg.Video.Frames,
		MatchesPerFrame: cfg.Video.MatchesPerFrame,
		Workers:         cfg.Video.Workers,
		TempDir:         cfg.Video.TempDir,
	})

	log.WithFields(logger.Fields{
		"store_backend": cfg.Store.Backend,
		"storage_type":  cfg.Storage.Type,
		"records":       a.Store.Len(),
	}).Info("Application initialized")
	return a, nil
}

func (a *App) newPersister(cfg *config.Config) (repository.Persister, error) {
	switch cfg.Store.Backend {
	case "database":
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		sqlDB, err := db.DB()
		if err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		return repository.NewSQLPersister(db), nil
	default:
		return repository.NewJSONFilePersister(cfg.Store.Path), nil
	}
}

func newObjectStorage(ctx context.Context, cfg *config.StorageConfig) (storage.ObjectStorage, error) {
	if cfg.Type == "" && cfg.Endpoint == "" {
		return nil, nil
	}
	objects, err := storage.NewStorage(&storage.Config{
		Type:      storage.StorageType(cfg.Type),
		LocalDir:  cfg.LocalDir,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		PublicURL: cfg.PublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
	}
	return objects, nil
}

// Close releases database connections.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
