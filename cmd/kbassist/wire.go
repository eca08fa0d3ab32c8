package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/kbassist/internal/adapters/driven/ai"
	"github.com/custodia-labs/kbassist/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbassist/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbassist/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/cli"
	"github.com/custodia-labs/kbassist/internal/config"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/core/services"
	"github.com/custodia-labs/kbassist/internal/logger"
	"github.com/custodia-labs/kbassist/internal/metrics"
	"github.com/custodia-labs/kbassist/internal/normalisers"
	"github.com/custodia-labs/kbassist/internal/normalisers/docx"
	"github.com/custodia-labs/kbassist/internal/normalisers/markdown"
	"github.com/custodia-labs/kbassist/internal/normalisers/pdf"
	"github.com/custodia-labs/kbassist/internal/normalisers/plaintext"
	"github.com/custodia-labs/kbassist/internal/postprocessors/chunker"
)

// bootstrap loads configuration and builds every service.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if cfg.Log.Format == "json" && !opts.JSONLogs {
		logger.SetJSON(true)
	}
	for _, w := range cfg.Warnings() {
		logger.Warn("%s", w)
	}

	configFile := opts.ConfigPath
	if configFile == "" {
		configFile = config.DefaultPath()
	}
	store, err := file.NewConfigStore(configFile)
	if err != nil {
		return nil, err
	}

	svc, err := build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc.Config = store
	return svc, nil
}

// build wires adapters and core services from cfg.
func build(ctx context.Context, cfg *config.Config) (*cli.Services, error) {
	logger.Section("Wiring")

	st, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	components := ai.Build(ctx, cfg, st.vectors)

	var prompts driven.PromptStore
	if !cfg.Ephemeral() {
		fileStore, err := file.NewPromptStore(cfg.PromptsPath(), map[string]string{
			driven.PromptContextAnswer: services.DefaultAnswerTemplate,
		})
		if err != nil {
			_ = components.Close()
			_ = st.close()
			return nil, err
		}
		prompts = fileStore
	}

	registry := normalisers.NewRegistry(cfg.Extraction.AllowedTypes)
	registry.Register(plaintext.New(plaintext.WithFallbackEncoding(cfg.Extraction.TextFallbackEncoding)))
	registry.Register(markdown.New())
	registry.Register(docx.New())
	registry.Register(pdf.New())

	chunks := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)

	engine := services.NewEmbeddingEngine(components.Embedding, components.Reranker, components.Cache, services.EmbeddingEngineConfig{
		Dimension:    cfg.Embedding.Dimension,
		ChunkSize:    cfg.Chunking.Size,
		ChunkOverlap: cfg.Chunking.Overlap,
	})

	docs := st.docs

	retrieval := services.NewRetrievalService(engine, components.Index, docs, chunks, services.RetrievalConfig{
		OverFetch:      cfg.Retrieval.OverFetch,
		ScoreThreshold: cfg.Vector.ScoreThreshold,
		ExcerptLength:  cfg.Retrieval.ExcerptLength,
		Rerank:         cfg.Retrieval.Rerank,
	})

	assembler := services.NewContextAssembler(prompts)
	assembler.Budget = cfg.Retrieval.ContextBudget
	assembler.MinRemainder = cfg.Retrieval.MinRemainder

	generation := services.NewGenerationService(components.Completion, services.GenerationConfig{
		MaxRetries:         cfg.Generation.MaxRetries,
		RetryBackoff:       cfg.Generation.RetryBackoff,
		FallbackSliceSize:  cfg.Generation.FallbackSliceSize,
		FallbackSliceDelay: cfg.Generation.FallbackSliceDelay,
	})

	chat := services.NewChatService(retrieval, assembler, generation, docs, cfg.Retrieval.Limit)
	documents := services.NewDocumentService(docs, registry, retrieval)

	return &cli.Services{
		Chat:      chat,
		Retrieval: retrieval,
		Documents: documents,
		Health:    components,
		Accept: func(fileType string) bool {
			_, ok := registry.Get(fileType)
			return ok && registry.Allowed(fileType)
		},
		Metrics:     metrics.Handler(),
		MetricsAddr: cfg.Metrics.Addr,
		Close: func() error {
			return errors.Join(engine.Close(), components.Close(), st.close())
		},
	}, nil
}

// storage is the document store plus the source of the sqlite vector
// backend, when there is one.
type storage struct {
	docs    driven.DocumentStore
	vectors ai.VectorIndexSource
	close   func() error
}

// openStorage opens the SQLite database in DataDir, or in-memory stores
// when DataDir is config.InMemory.
func openStorage(cfg *config.Config) (*storage, error) {
	if cfg.Ephemeral() {
		if cfg.Vector.Backend == "sqlite" {
			cfg.Vector.Backend = "memory"
		}
		logger.Debug("storage: in memory")
		return &storage{
			docs:  memory.NewDocumentStore(),
			close: func() error { return nil },
		}, nil
	}

	db, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}
	logger.Debug("database: %s", cfg.DatabasePath())
	return &storage{docs: db.DocumentStore(), vectors: db, close: db.Close}, nil
}
